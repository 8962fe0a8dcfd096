package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"skineffects.io/internal/persistence/indexdb"
	persistlog "skineffects.io/internal/persistence/log"
	"skineffects.io/internal/persistence/snapshot"
	"skineffects.io/internal/sim/world"
)

func writeExport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "12.store.zst")
	err := snapshot.WriteSnapshot(path, snapshot.StoreV1{
		Header: snapshot.Header{Version: snapshot.Version, SessionID: "sess_a", Frame: 12},
		Entries: []snapshot.EntryV1{{
			Character:        "7f1c8d52-0000-5000-8000-000000000001",
			Key:              "heroine/1",
			Raw:              map[string]float64{"tear": 25, "saliva": 10},
			DeflowerDisabled: true,
			Consumed:         []string{"first_vaginal"},
		}},
	})
	if err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("effectsctl %v: %v", args, err)
	}
	return out.String()
}

func TestInspect(t *testing.T) {
	out := run(t, "--tuning", filepath.Join(t.TempDir(), "missing.yaml"), "inspect", writeExport(t))
	if !strings.Contains(out, "session=sess_a frame=12 entries=1") {
		t.Fatalf("header missing:\n%s", out)
	}
	if !strings.Contains(out, "heroine/1") || !strings.Contains(out, "deflower_disabled,first_vaginal") {
		t.Fatalf("entry missing:\n%s", out)
	}
}

func TestInspectJSON(t *testing.T) {
	out := run(t, "inspect", "--json", writeExport(t))
	if !strings.Contains(out, `"session_id": "sess_a"`) {
		t.Fatalf("json missing session:\n%s", out)
	}
}

func TestTransitionsAndExports(t *testing.T) {
	db := filepath.Join(t.TempDir(), "index.db")
	idx, err := indexdb.OpenSQLite(db)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	_ = idx.WriteTransition(world.TransitionEntry{Frame: 3, Character: "c1", Key: "heroine/1", Stage: world.StageStarted, Policy: "discard", AfterScene: true, From: "h-1"})
	_ = idx.WriteTransition(world.TransitionEntry{Frame: 4, Character: "c2", Key: "heroine/2", Stage: world.StageStarted, Policy: "persist"})
	idx.RecordExport("/x/9.store.zst", snapshot.StoreV1{Header: snapshot.Header{SessionID: "sess_b", Frame: 9}})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out := run(t, "transitions", "--db", db, "--character", "heroine/1")
	if !strings.Contains(out, "discard") || strings.Contains(out, "heroine/2") {
		t.Fatalf("transitions:\n%s", out)
	}
	out = run(t, "exports", "--db", db)
	if !strings.Contains(out, "sess_b") || !strings.Contains(out, "/x/9.store.zst") {
		t.Fatalf("exports:\n%s", out)
	}
}

func TestFramesSummary(t *testing.T) {
	dir := t.TempDir()
	fl := persistlog.NewFrameLogger(dir)
	_ = fl.WriteFrame(world.FrameLogEntry{Frame: 2, Messages: []world.RecordedMessage{{Msg: []byte(`{}`)}}, Digest: "a"})
	_ = fl.WriteFrame(world.FrameLogEntry{Frame: 5, Rejected: 1, Digest: "b"})
	if err := fl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	out := run(t, "frames", dir)
	if !strings.Contains(out, "sessions=1 frames=2 messages=1 rejected=1 first=2 last=5") {
		t.Fatalf("summary=%s", out)
	}
}

func TestFramesSummaryCountsRestarts(t *testing.T) {
	dir := t.TempDir()
	for _, sid := range []string{"sess_1", "sess_2"} {
		fl := persistlog.NewFrameLogger(dir)
		_ = fl.WriteFrame(world.FrameLogEntry{Session: sid, Frame: 0, Digest: "a"})
		_ = fl.WriteFrame(world.FrameLogEntry{Session: sid, Frame: 3, Digest: "b"})
		if err := fl.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	out := run(t, "frames", dir)
	if !strings.Contains(out, "sessions=2 frames=4") {
		t.Fatalf("summary=%s", out)
	}
}

func TestSessionsAndSessionFilter(t *testing.T) {
	db := filepath.Join(t.TempDir(), "index.db")
	idx, err := indexdb.OpenSQLite(db)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	for _, sid := range []string{"sess_1", "sess_2"} {
		_ = idx.WriteFrame(world.FrameLogEntry{Session: sid, Frame: 0, Digest: "a"})
		_ = idx.WriteTransition(world.TransitionEntry{Session: sid, Frame: 2, Character: "c1", Key: "heroine/1", Stage: world.StageStarted, Policy: "persist"})
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out := run(t, "sessions", "--db", db)
	if !strings.Contains(out, "sess_1") || !strings.Contains(out, "sess_2") {
		t.Fatalf("sessions:\n%s", out)
	}
	out = run(t, "transitions", "--db", db, "--session", "sess_2")
	if !strings.Contains(out, "sess_2") || strings.Contains(out, "sess_1") {
		t.Fatalf("transitions:\n%s", out)
	}
}
