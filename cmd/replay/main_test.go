package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	persistlog "skineffects.io/internal/persistence/log"
	"skineffects.io/internal/persistence/snapshot"
	"skineffects.io/internal/protocol"
	"skineffects.io/internal/sim/ids"
	"skineffects.io/internal/sim/session"
	"skineffects.io/internal/sim/world"
)

func newWorld(t *testing.T) *world.World {
	t.Helper()
	w, err := world.New(world.WorldConfig{ID: "t", FrameRateHz: 10, Session: session.DefaultConfig()}, nil)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	t.Cleanup(w.Tracker().Close)
	return w
}

func envelope(t *testing.T, v any) world.Envelope {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return world.Envelope{Raw: b}
}

func freshWorlds(t *testing.T) func() (*world.World, error) {
	return func() (*world.World, error) {
		return world.New(world.WorldConfig{ID: "t", FrameRateHz: 10, Session: session.DefaultConfig()}, nil)
	}
}

// recordSession runs one scripted server lifetime into dir and returns the
// number of journaled frames and the run's session id.
func recordSession(t *testing.T, dir string) (uint64, string) {
	t.Helper()
	w := newWorld(t)
	fl := persistlog.NewFrameLogger(dir)
	w.SetFrameLogger(fl)

	script := map[int][]any{
		0: {protocol.InstanceMsg{Type: protocol.TypeInstance, Character: "heroine/1", Instance: "h-1"}},
		2: {protocol.SceneMsg{Type: protocol.TypeScene, Action: protocol.SceneStart, SceneKind: "h", Participants: []string{"heroine/1"}}},
		4: {protocol.EventMsg{Type: protocol.TypeEvent, Character: "heroine/1", Kind: "finish_vaginal"}},
		6: {protocol.SceneMsg{Type: protocol.TypeScene, Action: protocol.SceneEnd}},
		9: {protocol.InstanceMsg{Type: protocol.TypeInstance, Character: "heroine/1", Instance: "roam-1"}},
	}
	for f := 0; f < 20; f++ {
		var envs []world.Envelope
		for _, m := range script[f] {
			envs = append(envs, envelope(t, m))
		}
		w.StepOnce(nil, nil, envs)
	}
	if err := fl.Close(); err != nil {
		t.Fatalf("close frame log: %v", err)
	}
	return uint64(len(script)), w.SessionID()
}

func journal(t *testing.T, dir string) []string {
	t.Helper()
	files, err := persistlog.ListFiles(filepath.Join(dir, "frames"), "frames")
	if err != nil || len(files) == 0 {
		t.Fatalf("ListFiles: %v files=%v", err, files)
	}
	return files
}

func TestReplay_VerifiesJournal(t *testing.T) {
	dir := t.TempDir()
	want, sid := recordSession(t, dir)

	r := &replayer{start: freshWorlds(t)}
	defer r.close()
	if err := r.run(journal(t, dir)); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if r.checked != want || r.sessions != 1 || r.session != sid {
		t.Fatalf("checked=%d sessions=%d session=%s want %d/1/%s", r.checked, r.sessions, r.session, want, sid)
	}
}

func TestReplay_RestartedServerSharesJournal(t *testing.T) {
	dir := t.TempDir()
	first, sid1 := recordSession(t, dir)
	second, sid2 := recordSession(t, dir)
	if sid1 == sid2 {
		t.Fatalf("runs share session id %s", sid1)
	}

	r := &replayer{start: freshWorlds(t)}
	defer r.close()
	if err := r.run(journal(t, dir)); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if r.sessions != 2 || r.checked != first+second {
		t.Fatalf("sessions=%d checked=%d want 2/%d", r.sessions, r.checked, first+second)
	}
	if r.session != sid2 {
		t.Fatalf("last session=%s want %s", r.session, sid2)
	}

	only := &replayer{start: freshWorlds(t), only: sid1}
	defer only.close()
	if err := only.run(journal(t, dir)); err != nil {
		t.Fatalf("replay %s: %v", sid1, err)
	}
	if only.sessions != 1 || only.checked != first {
		t.Fatalf("filtered sessions=%d checked=%d want 1/%d", only.sessions, only.checked, first)
	}
}

func TestReplay_StopsAtToFrame(t *testing.T) {
	dir := t.TempDir()
	recordSession(t, dir)

	r := &replayer{start: freshWorlds(t), toFrame: 4}
	defer r.close()
	if err := r.run(journal(t, dir)); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if r.checked != 3 {
		t.Fatalf("checked=%d want 3", r.checked)
	}
	if r.w.CurrentFrame() != 5 {
		t.Fatalf("frame=%d want 5", r.w.CurrentFrame())
	}
}

func TestReplay_DetectsDivergence(t *testing.T) {
	dir := t.TempDir()
	recordSession(t, dir)

	// Replaying without the store the session started from diverges at once.
	start := func() (*world.World, error) {
		w, err := world.New(world.WorldConfig{ID: "t", FrameRateHz: 10, Session: session.DefaultConfig()}, nil)
		if err != nil {
			return nil, err
		}
		err = w.ImportSnapshot(snapshot.StoreV1{
			Entries: []snapshot.EntryV1{{Character: ids.Character("heroine/9").String(), Raw: map[string]float64{"sweat": 10}}},
		})
		return w, err
	}
	r := &replayer{start: start}
	defer r.close()
	err := r.run(journal(t, dir))
	if err == nil || !strings.Contains(err.Error(), "digest mismatch at frame 0") {
		t.Fatalf("err=%v", err)
	}
}
