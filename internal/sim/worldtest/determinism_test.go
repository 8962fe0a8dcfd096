package worldtest

import (
	"testing"

	"skineffects.io/internal/protocol"
)

func TestDeterminism_SameInputsSameDigest(t *testing.T) {
	h1 := NewHarness(t, Config())
	h2 := NewHarness(t, Config())

	script := map[int][]any{
		0:  {Instance("heroine/1", "h-1"), Instance("heroine/2", "h-2")},
		1:  {SceneStart("h", "heroine/1", "heroine/2")},
		3:  {Signal(0, "butt_l", true), Event("heroine/2", "kiss", false)},
		4:  {Signal(0, "butt_l", true)},
		5:  {Event("heroine/1", "insert_anal", true), Event("heroine/1", "gauge_up", false)},
		8:  {SceneEnd()},
		9:  {Instance("heroine/1", ""), Instance("heroine/2", "")},
		12: {Instance("heroine/1", "roam-1"), Instance("heroine/2", "roam-2")},
		40: {Control(protocol.ControlClearEffects)},
		60: {Control(protocol.ControlPeriodChanged)},
	}
	for f := 0; f < 80; f++ {
		h1.Send(script[f]...)
		h2.Send(script[f]...)
		if h1.LastDigest != h2.LastDigest {
			t.Fatalf("digest mismatch at frame %d: %s vs %s", f, h1.LastDigest, h2.LastDigest)
		}
	}
	if h1.W.SessionID() == h2.W.SessionID() {
		t.Fatalf("session ids should differ between runs")
	}
}

func TestDeterminism_DifferentInputsDiverge(t *testing.T) {
	h1 := NewHarness(t, Config())
	h2 := NewHarness(t, Config())
	h1.Send(Instance("heroine/1", "h-1"), Event("heroine/1", "kiss", false))
	h2.Send(Instance("heroine/1", "h-1"))
	if h1.LastDigest == h2.LastDigest {
		t.Fatalf("digests should differ")
	}
}
