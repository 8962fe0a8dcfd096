package session

import "skineffects.io/internal/sim/ids"

// InstanceID names a live character instance in the host. The empty value
// means "no instance right now".
type InstanceID string

// Host is the tracker's view of the game. Implementations are queried on the
// simulation thread only.
type Host interface {
	// Instance resolves the instance currently backing a character.
	Instance(id ids.CharacterID) InstanceID
	// Loading reports whether a scene load fade is in progress.
	Loading() bool
	// SetDesire biases the character's future behavior in the game simulation.
	SetDesire(id ids.CharacterID, desire, amount int)
}

// Listener observes hand-offs. All methods run on the simulation thread.
type Listener interface {
	TransitionStarted(id ids.CharacterID, from InstanceID, policy Policy, afterScene bool)
	TransitionApplied(id ids.CharacterID, to InstanceID, restored bool)
	DrainFinished(id ids.CharacterID, interrupted bool)
}

type nopListener struct{}

func (nopListener) TransitionStarted(ids.CharacterID, InstanceID, Policy, bool) {}
func (nopListener) TransitionApplied(ids.CharacterID, InstanceID, bool)         {}
func (nopListener) DrainFinished(ids.CharacterID, bool)                         {}
