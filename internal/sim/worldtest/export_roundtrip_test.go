package worldtest

import (
	"testing"

	"skineffects.io/internal/sim/world"
)

func TestExportRoundTrip_RestoresOnNextScene(t *testing.T) {
	a := NewHarness(t, Config())
	playScene(a)
	snap := a.W.ExportSnapshot(a.W.CurrentFrame())
	if len(snap.Entries) != 1 || snap.Entries[0].Key != heroine {
		t.Fatalf("entries=%+v", snap.Entries)
	}
	if len(snap.DeflowerOff) != 1 {
		t.Fatalf("deflower_off=%v want 1 id", snap.DeflowerOff)
	}

	w, err := world.New(Config(), nil)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	if err := w.ImportSnapshot(snap); err != nil {
		t.Fatalf("ImportSnapshot: %v", err)
	}
	b := NewHarnessWithWorld(t, w)

	// A fresh instance entering a scene is seeded from the imported store.
	b.Send(Instance(heroine, "h-9"))
	b.Send(SceneStart("h", heroine))
	for ch, want := range map[string]int{"blood": 1, "tear": 1, "drool": 1, "pussyJuice": 1} {
		if got := b.Level(heroine, ch); got != want {
			t.Fatalf("%s after import=%d want %d", ch, got, want)
		}
	}

	// The imported day decision still suppresses deflowering.
	b.Send(Event(heroine, "insert_vaginal", true))
	if got := b.Level(heroine, "blood"); got != 1 {
		t.Fatalf("blood=%d want 1", got)
	}
}
