package session

import (
	"errors"
	"fmt"
	"sort"

	"skineffects.io/internal/sim/effects"
	"skineffects.io/internal/sim/ids"
)

// ErrInvalidArgument marks a caller bug (zero identity, nil state).
var ErrInvalidArgument = errors.New("invalid argument")

// Store maps logical characters to their last saved snapshot. It lives for
// one session and is only touched from the simulation thread.
type Store struct {
	m map[ids.CharacterID]*effects.Snapshot
}

func NewStore() *Store {
	return &Store{m: map[ids.CharacterID]*effects.Snapshot{}}
}

// Save stores a copy of snap, replacing any earlier entry.
func (s *Store) Save(id ids.CharacterID, snap *effects.Snapshot) error {
	if id.IsZero() {
		return fmt.Errorf("save: zero character id: %w", ErrInvalidArgument)
	}
	if snap == nil {
		return fmt.Errorf("save %s: nil snapshot: %w", id, ErrInvalidArgument)
	}
	s.m[id] = snap.Clone()
	return nil
}

// SaveState snapshots st under id.
func (s *Store) SaveState(id ids.CharacterID, st *effects.State) error {
	if st == nil {
		return fmt.Errorf("save %s: nil state: %w", id, ErrInvalidArgument)
	}
	return s.Save(id, st.Snapshot())
}

// Load returns a copy of the entry for id.
func (s *Store) Load(id ids.CharacterID) (*effects.Snapshot, bool) {
	snap, ok := s.m[id]
	if !ok {
		return nil, false
	}
	return snap.Clone(), true
}

// ApplyState restores the entry for id onto st, or clears st when there is
// no entry. It reports whether an entry was found.
func (s *Store) ApplyState(id ids.CharacterID, st *effects.State) (bool, error) {
	if st == nil {
		return false, fmt.Errorf("apply %s: nil state: %w", id, ErrInvalidArgument)
	}
	if id.IsZero() {
		return false, fmt.Errorf("apply: zero character id: %w", ErrInvalidArgument)
	}
	snap, ok := s.m[id]
	st.Restore(snap)
	return ok, nil
}

func (s *Store) Has(id ids.CharacterID) bool {
	_, ok := s.m[id]
	return ok
}

func (s *Store) Remove(id ids.CharacterID) { delete(s.m, id) }

func (s *Store) Clear() { s.m = map[ids.CharacterID]*effects.Snapshot{} }

func (s *Store) Len() int { return len(s.m) }

// IDs returns the stored identities in a stable order.
func (s *Store) IDs() []ids.CharacterID {
	out := make([]ids.CharacterID, 0, len(s.m))
	for id := range s.m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Export copies every entry, for an explicit save request.
func (s *Store) Export() map[ids.CharacterID]*effects.Snapshot {
	out := make(map[ids.CharacterID]*effects.Snapshot, len(s.m))
	for id, snap := range s.m {
		out[id] = snap.Clone()
	}
	return out
}

// Import replaces the store contents.
func (s *Store) Import(entries map[ids.CharacterID]*effects.Snapshot) error {
	next := make(map[ids.CharacterID]*effects.Snapshot, len(entries))
	for id, snap := range entries {
		if id.IsZero() || snap == nil {
			return fmt.Errorf("import: bad entry %s: %w", id, ErrInvalidArgument)
		}
		next[id] = snap.Clone()
	}
	s.m = next
	return nil
}
