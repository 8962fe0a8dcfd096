package snapshot

import (
	"path/filepath"
	"testing"
)

func TestWriteReadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "42.store.zst")
	in := StoreV1{
		Header:      Header{Version: Version, SessionID: "sess_a", Frame: 42},
		FrameRateHz: 30,
		DeflowerOff: []string{"c1"},
		Entries: []EntryV1{{
			Character:        "c1",
			Key:              "heroine/1",
			Raw:              map[string]float64{"tear": 3, "sweat": 0.5},
			DeflowerDisabled: true,
			Consumed:         []string{"first_vaginal"},
		}},
	}
	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.Frame != 42 || h.SessionID != "sess_a" {
		t.Fatalf("header=%+v", h)
	}

	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(out.Entries) != 1 {
		t.Fatalf("entries=%d want 1", len(out.Entries))
	}
	e := out.Entries[0]
	if e.Key != "heroine/1" || e.Raw["tear"] != 3 || !e.DeflowerDisabled || len(e.Consumed) != 1 {
		t.Fatalf("entry=%+v", e)
	}
	if len(out.DeflowerOff) != 1 || out.DeflowerOff[0] != "c1" {
		t.Fatalf("deflower_off=%v", out.DeflowerOff)
	}
}

func TestReadSnapshotRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v9.store.zst")
	if err := WriteSnapshot(path, StoreV1{Header: Header{Version: 9}}); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestReadSnapshotMissingFile(t *testing.T) {
	if _, err := ReadSnapshot(filepath.Join(t.TempDir(), "nope.zst")); err == nil {
		t.Fatalf("expected error")
	}
}
