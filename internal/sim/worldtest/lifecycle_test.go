package worldtest

import (
	"testing"
	"time"

	"skineffects.io/internal/protocol"
	"skineffects.io/internal/sim/session"
)

const heroine = "heroine/1"

// playScene runs a persisted h scene on instance h-1 and ends it.
func playScene(h *Harness) {
	h.Send(Instance(heroine, "h-1"))
	h.Send(SceneStart("h", heroine))
	h.Send(Event(heroine, "insert_vaginal", true), Event(heroine, "cum_in_mouth", false))
	h.Step(3)
	h.Send(SceneEnd())
}

func TestLifecycle_SceneHandOffDrainAndDayChange(t *testing.T) {
	h := NewHarness(t, Config())
	playScene(h)

	if got := h.Level(heroine, "blood"); got != 1 {
		t.Fatalf("blood in scene=%d want 1", got)
	}

	// Scene-to-roaming swap: state follows the character to the new instance.
	h.Send(Loading(true), Instance(heroine, ""))
	h.Step(5)
	h.Send(Loading(false), Instance(heroine, "roam-1"))
	h.Step(4)

	for ch, want := range map[string]int{"blood": 1, "tear": 1, "drool": 1, "cumInNose": 1, "pussyJuice": 1} {
		if got := h.Level(heroine, ch); got != want {
			t.Fatalf("%s after hand-off=%d want %d", ch, got, want)
		}
	}
	d := h.Desires()
	if len(d) != 1 || d[0].Character != heroine || d[0].Desire != session.DesireBathe || d[0].Amount != 200 {
		t.Fatalf("desires=%+v", d)
	}

	// Drain drops tear and drool; the rest stays.
	h.StepFor(3 * time.Second)
	if h.Level(heroine, "tear") != 0 || h.Level(heroine, "drool") != 0 {
		t.Fatalf("tear=%d drool=%d want 0 after drain", h.Level(heroine, "tear"), h.Level(heroine, "drool"))
	}
	if h.Level(heroine, "blood") != 1 || h.Level(heroine, "cumInNose") != 1 {
		t.Fatalf("non-drain channels changed: blood=%d cumInNose=%d", h.Level(heroine, "blood"), h.Level(heroine, "cumInNose"))
	}

	// Same day: the first-time rows do not fire again.
	h.Send(SceneStart("h", heroine))
	h.Send(Event(heroine, "insert_vaginal", true))
	if got := h.Level(heroine, "blood"); got != 1 {
		t.Fatalf("blood on second insert=%d want 1", got)
	}
	if got := h.Level(heroine, "pussyJuice"); got != 2 {
		t.Fatalf("pussyJuice=%d want 2", got)
	}
	h.Send(SceneEnd())

	// A new day clears everything, sticky flags included.
	h.Send(Control(protocol.ControlDayChanged))
	for _, ch := range []string{"blood", "pussyJuice", "cumInNose"} {
		if got := h.Level(heroine, ch); got != 0 {
			t.Fatalf("%s after day change=%d want 0", ch, got)
		}
	}
	h.Send(SceneStart("h", heroine))
	h.Send(Event(heroine, "insert_vaginal", true))
	if got := h.Level(heroine, "blood"); got != 1 {
		t.Fatalf("blood on a new day=%d want 1", got)
	}
	if len(h.Errors()) != 0 {
		t.Fatalf("errors=%+v", h.Errors())
	}
}

func TestLifecycle_ShowerPeepingDiscards(t *testing.T) {
	h := NewHarness(t, Config())
	h.Send(Instance(heroine, "shower-1"))
	h.Send(SceneStart("shower_peeping", heroine))
	h.Send(Event(heroine, "kiss", false))
	h.Send(SceneEnd())
	if got := h.Level(heroine, "saliva"); got != 1 {
		t.Fatalf("saliva in scene=%d want 1", got)
	}

	h.Send(Instance(heroine, "roam-1"))
	h.Step(4)
	if got := h.Level(heroine, "saliva"); got != 0 {
		t.Fatalf("saliva after discard=%d want 0", got)
	}
}

func TestLifecycle_FreeSceneDoesNotHandOff(t *testing.T) {
	h := NewHarness(t, Config())
	h.Send(Instance(heroine, "h-1"))
	h.Send(FreeSceneStart("h", heroine))
	h.Send(Event(heroine, "kiss", false))
	h.Send(SceneEnd())

	h.Send(Instance(heroine, "roam-1"))
	h.Step(4)
	h.Send(Event(heroine, "kiss", false))
	if got := h.Level(heroine, "saliva"); got != 1 {
		t.Fatalf("saliva after free scene=%d want 1 (nothing carried over)", got)
	}
	if len(h.Desires()) != 0 {
		t.Fatalf("free scene sent desires=%+v", h.Desires())
	}
}

func TestLifecycle_LoadingStopsDrain(t *testing.T) {
	h := NewHarness(t, Config())
	playScene(h)
	h.Send(Instance(heroine, "roam-1"))
	h.Step(4)
	if got := h.Level(heroine, "tear"); got != 1 || len(h.Desires()) != 1 {
		t.Fatalf("tear=%d desires=%d want applied hand-off", got, len(h.Desires()))
	}

	h.Send(Loading(true))
	h.StepFor(2 * time.Second)
	h.Send(Loading(false))
	h.StepFor(3 * time.Second)
	if got := h.Level(heroine, "tear"); got != 1 {
		t.Fatalf("tear after interrupted drain=%d want 1", got)
	}
}

func TestLifecycle_TalkUnloadCarriesState(t *testing.T) {
	h := NewHarness(t, Config())
	h.Send(Instance(heroine, "talk-1"))
	h.Send(Event(heroine, "kiss", false))
	h.Send(SceneUnload(heroine))
	h.Send(Instance(heroine, "roam-1"))
	h.Step(4)
	h.Send(Event(heroine, "kiss", false))
	if got := h.Level(heroine, "saliva"); got != 2 {
		t.Fatalf("saliva after talk unload=%d want 2", got)
	}
	if len(h.Desires()) != 0 {
		t.Fatalf("non-scene hand-off sent desires=%+v", h.Desires())
	}
}

func TestLifecycle_RejectsUnknownCharacterEvent(t *testing.T) {
	h := NewHarness(t, Config())
	h.Send(Event("heroine/404", "kiss", false))
	errs := h.Errors()
	if len(errs) != 1 || errs[0].Code != protocol.ErrUnknownCharacter {
		t.Fatalf("errors=%+v", errs)
	}
}
