package session

import (
	"time"

	"skineffects.io/internal/sim/effects"
)

type Config struct {
	Effects effects.Config

	// PersistenceEnabled=false makes scene ends skip the hand-off entirely.
	PersistenceEnabled bool
	// SettleFrames is how many frames a new instance must survive before
	// state is applied to it.
	SettleFrames int

	DrainInterval time.Duration
	DrainChannels []effects.Name

	// ClearAfterScenes lists scene kinds whose end drops the saved state
	// instead of persisting it.
	ClearAfterScenes []SceneKind

	DesireID     int
	DesireAmount int
}

const (
	DesireBathe = 2
)

func DefaultConfig() Config {
	return Config{
		Effects:            effects.DefaultConfig(),
		PersistenceEnabled: true,
		SettleFrames:       2,
		DrainInterval:      60 * time.Second,
		DrainChannels:      []effects.Name{effects.Sweat, effects.Tear, effects.Drool},
		ClearAfterScenes:   []SceneKind{SceneShowerPeeping},
		DesireID:           DesireBathe,
		DesireAmount:       200,
	}
}

func (c Config) clearsAfter(kind SceneKind) bool {
	for _, k := range c.ClearAfterScenes {
		if k == kind {
			return true
		}
	}
	return false
}
