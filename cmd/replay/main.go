package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	persistlog "skineffects.io/internal/persistence/log"
	"skineffects.io/internal/persistence/snapshot"
	"skineffects.io/internal/sim/tuning"
	"skineffects.io/internal/sim/world"
)

func main() {
	var (
		sessionDir = flag.String("session", "", "world data dir containing frames/ (e.g. ./data/worlds/main)")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "tuning.yaml the session ran with")
		snapPath   = flag.String("import", "", "store export every run was started with (optional)")
		sessionID  = flag.String("session_id", "", "replay only this run (optional)")
		fromFrame  = flag.Uint64("from_frame", 0, "start verifying from frame in each run (inclusive, optional)")
		toFrame    = flag.Uint64("to_frame", 0, "stop each run at frame (inclusive, optional)")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags|log.Lmicroseconds)

	if *sessionDir == "" {
		fmt.Fprintln(os.Stderr, "missing -session")
		os.Exit(2)
	}

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}

	var imported *snapshot.StoreV1
	if *snapPath != "" {
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			logger.Fatalf("read export: %v", err)
		}
		imported = &snap
		fmt.Printf("export v%d session=%s frame=%d entries=%d\n",
			snap.Header.Version, snap.Header.SessionID, snap.Header.Frame, len(snap.Entries))
	}

	// Every recorded run starts from a fresh world (plus the import, if any).
	start := func() (*world.World, error) {
		w, err := world.New(world.WorldConfig{
			ID:          "replay",
			FrameRateHz: tune.FrameRateHz,
			Session:     tune.Session(),
		}, log.New(io.Discard, "", 0))
		if err != nil {
			return nil, err
		}
		if imported != nil {
			if err := w.ImportSnapshot(*imported); err != nil {
				w.Tracker().Close()
				return nil, fmt.Errorf("import export: %w", err)
			}
		}
		return w, nil
	}

	files, err := persistlog.ListFiles(filepath.Join(*sessionDir, "frames"), "frames")
	if err != nil {
		logger.Fatalf("list frames: %v", err)
	}
	if len(files) == 0 {
		logger.Fatalf("no frame journal found in %s", *sessionDir)
	}

	r := &replayer{start: start, verifyFrom: *fromFrame, toFrame: *toFrame, only: *sessionID}
	defer r.close()
	if err := r.run(files); err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	if r.sessions == 0 {
		logger.Fatalf("no frames recorded for session %q", *sessionID)
	}
	fmt.Printf("replay ok: sessions=%d checked=%d frames (last session=%s frame=%d)\n",
		r.sessions, r.checked, r.session, r.w.CurrentFrame())
}

// replayer steps worlds through the journal. Frames between logged entries
// had no inbound messages and are stepped empty; each logged frame's digest
// must match. A new session id in the journal means the server restarted, so
// frames begin again at 0 on a fresh world.
type replayer struct {
	start      func() (*world.World, error)
	verifyFrom uint64
	toFrame    uint64
	// only limits the replay to one session id; empty replays them all.
	only string

	w        *world.World
	session  string
	sessions int
	checked  uint64
	// stopped is set once toFrame is passed in the current session.
	stopped bool
}

func (r *replayer) run(files []string) error {
	for _, path := range files {
		if err := persistlog.ReadJSONL(path, r.feed); err != nil {
			return err
		}
	}
	return nil
}

func (r *replayer) feed(line []byte) error {
	var entry world.FrameLogEntry
	if err := json.Unmarshal(line, &entry); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if r.only != "" && entry.Session != r.only {
		return nil
	}
	if r.w == nil || entry.Session != r.session {
		if err := r.begin(entry.Session); err != nil {
			return err
		}
	}
	if r.stopped {
		return nil
	}
	if r.toFrame != 0 && entry.Frame > r.toFrame {
		r.stopped = true
		return nil
	}
	w := r.w
	if entry.Frame < w.CurrentFrame() {
		return fmt.Errorf("session %s: frame %d out of order (at %d)", r.session, entry.Frame, w.CurrentFrame())
	}
	for w.CurrentFrame() < entry.Frame {
		w.StepOnce(nil, nil, nil)
	}
	envs := make([]world.Envelope, 0, len(entry.Messages))
	for _, m := range entry.Messages {
		envs = append(envs, world.Envelope{ClientID: m.ClientID, Raw: m.Msg})
	}
	frame, digest := w.StepOnce(nil, nil, envs)
	if frame >= r.verifyFrom {
		if digest != entry.Digest {
			return fmt.Errorf("session %s: digest mismatch at frame %d: got %s want %s", r.session, frame, digest, entry.Digest)
		}
		r.checked++
	}
	return nil
}

func (r *replayer) begin(session string) error {
	r.close()
	w, err := r.start()
	if err != nil {
		return err
	}
	r.w = w
	r.session = session
	r.sessions++
	r.stopped = false
	return nil
}

func (r *replayer) close() {
	if r.w != nil {
		r.w.Tracker().Close()
	}
}
