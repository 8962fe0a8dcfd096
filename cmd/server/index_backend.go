package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"skineffects.io/internal/persistence/indexdb"
	"skineffects.io/internal/persistence/snapshot"
	"skineffects.io/internal/sim/tuning"
	"skineffects.io/internal/sim/world"
)

type runtimeIndex interface {
	world.FrameLogger
	world.TransitionLogger
	Close() error
	UpsertTuning(tune tuning.Tuning) error
	RecordExport(path string, snap snapshot.StoreV1)
	Stats() indexdb.Stats
}

func openRuntimeIndex(sessionDir, backend string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}
	backend = strings.ToLower(strings.TrimSpace(backend))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(sessionDir, "index", "effects.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported SFX_INDEX_BACKEND: %s", backend)
	}
}

type multiFrameLogger struct {
	a world.FrameLogger
	b world.FrameLogger
}

func (m multiFrameLogger) WriteFrame(entry world.FrameLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteFrame(entry)
	}
	if m.b != nil {
		_ = m.b.WriteFrame(entry)
	}
	return nil
}

type multiTransitionLogger struct {
	a world.TransitionLogger
	b world.TransitionLogger
}

func (m multiTransitionLogger) WriteTransition(entry world.TransitionEntry) error {
	if m.a != nil {
		_ = m.a.WriteTransition(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTransition(entry)
	}
	return nil
}
