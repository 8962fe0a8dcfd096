package world

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"skineffects.io/internal/persistence/snapshot"
	"skineffects.io/internal/sim/effects"
	"skineffects.io/internal/sim/ids"
)

type exportReq struct {
	Resp chan snapshot.StoreV1
}

// RequestExport asks the world loop goroutine for a copy of the persistence
// store. It is safe to call from other goroutines (e.g. HTTP handlers).
func (w *World) RequestExport(ctx context.Context) (snapshot.StoreV1, error) {
	if w == nil || w.exportReq == nil {
		return snapshot.StoreV1{}, errors.New("export not available")
	}
	resp := make(chan snapshot.StoreV1, 1)
	select {
	case w.exportReq <- exportReq{Resp: resp}:
	case <-ctx.Done():
		return snapshot.StoreV1{}, ctx.Err()
	}
	select {
	case snap := <-resp:
		return snap, nil
	case <-ctx.Done():
		return snapshot.StoreV1{}, ctx.Err()
	}
}

func (w *World) handleExportRequests(reqs []exportReq) {
	if len(reqs) == 0 {
		return
	}
	cur := w.frame.Load()
	frame := uint64(0)
	if cur > 0 {
		frame = cur - 1
	}
	snap := w.ExportSnapshot(frame)
	for _, r := range reqs {
		if r.Resp == nil {
			continue
		}
		select {
		case r.Resp <- snap:
		default:
			// Client timed out; don't block the sim loop.
		}
	}
}

// ExportSnapshot copies the store. Not safe to call concurrently with Run.
func (w *World) ExportSnapshot(frame uint64) snapshot.StoreV1 {
	out := snapshot.StoreV1{
		Header: snapshot.Header{
			Version:   snapshot.Version,
			SessionID: w.sessionID,
			Frame:     frame,
		},
		FrameRateHz: w.cfg.FrameRateHz,
	}
	for _, id := range w.tracker.DeflowerDisabledIDs() {
		out.DeflowerOff = append(out.DeflowerOff, id.String())
	}
	entries := w.tracker.Store().Export()
	for _, id := range w.tracker.Store().IDs() {
		snap := entries[id]
		e := snapshot.EntryV1{
			Character:        id.String(),
			Key:              w.keys[id],
			Raw:              make(map[string]float64, len(snap.Raw)),
			DeflowerDisabled: snap.DeflowerDisabled,
		}
		for n, v := range snap.Raw {
			if v > 0 {
				e.Raw[string(n)] = v
			}
		}
		for _, m := range snap.Consumed {
			e.Consumed = append(e.Consumed, string(m))
		}
		out.Entries = append(out.Entries, e)
	}
	return out
}

// archiveDay hands the store of the day that is ending to the archive sink.
func (w *World) archiveDay() {
	w.day++
	if w.archiveSink == nil {
		return
	}
	snap := w.ExportSnapshot(w.frame.Load())
	snap.Day = w.day
	select {
	case w.archiveSink <- snap:
	default:
		w.log.Printf("day archive dropped: day=%d frame=%d", snap.Day, snap.Header.Frame)
	}
}

// ImportSnapshot replaces the store with an export. Call it before Run.
func (w *World) ImportSnapshot(snap snapshot.StoreV1) error {
	entries := make(map[ids.CharacterID]*effects.Snapshot, len(snap.Entries))
	for _, e := range snap.Entries {
		id, ok := ids.ParseCharacter(e.Character)
		if !ok {
			return fmt.Errorf("import: bad character id %q", e.Character)
		}
		s := &effects.Snapshot{
			Raw:              make(map[effects.Name]float64, len(e.Raw)),
			DeflowerDisabled: e.DeflowerDisabled,
		}
		for n, v := range e.Raw {
			if !effects.Name(n).Valid() {
				return fmt.Errorf("import %s: unknown channel %q", e.Character, n)
			}
			s.Raw[effects.Name(n)] = v
		}
		for _, m := range e.Consumed {
			s.Consumed = append(s.Consumed, effects.Marker(m))
		}
		sort.Slice(s.Consumed, func(i, j int) bool { return s.Consumed[i] < s.Consumed[j] })
		entries[id] = s
		if e.Key != "" {
			w.keys[id] = e.Key
		}
	}
	if err := w.tracker.Store().Import(entries); err != nil {
		return err
	}
	for _, s := range snap.DeflowerOff {
		id, ok := ids.ParseCharacter(s)
		if !ok {
			return fmt.Errorf("import: bad deflower id %q", s)
		}
		w.tracker.SetDeflowerDisabled(id, true)
	}
	return nil
}
