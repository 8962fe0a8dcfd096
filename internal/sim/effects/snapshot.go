package effects

import (
	"math"
	"sort"
)

// Snapshot is the persisted part of a State: raw channel values and sticky
// flags. The touch accumulator is not part of it.
type Snapshot struct {
	Raw              map[Name]float64 `json:"raw"`
	DeflowerDisabled bool             `json:"deflower_disabled,omitempty"`
	Consumed         []Marker         `json:"consumed,omitempty"`
}

func (s *State) Snapshot() *Snapshot {
	snap := &Snapshot{
		Raw:              make(map[Name]float64, len(s.channels)),
		DeflowerDisabled: s.DeflowerDisabled,
	}
	for n, c := range s.channels {
		snap.Raw[n] = c.Raw
	}
	for m, ok := range s.consumed {
		if ok {
			snap.Consumed = append(snap.Consumed, m)
		}
	}
	sort.Slice(snap.Consumed, func(i, j int) bool { return snap.Consumed[i] < snap.Consumed[j] })
	return snap
}

// Restore replaces the state with snap. A nil snapshot is an explicit clear.
// Raw values are written directly, so monotonic channels can go down here.
func (s *State) Restore(snap *Snapshot) {
	s.ResetAll(true)
	if snap == nil {
		return
	}
	for n, v := range snap.Raw {
		c := s.channels[n]
		if c == nil || !(v > 0) || math.IsInf(v, 0) {
			continue
		}
		c.Raw = v
	}
	s.DeflowerDisabled = snap.DeflowerDisabled
	for _, m := range snap.Consumed {
		s.consumed[m] = true
	}
}

func (snap *Snapshot) Clone() *Snapshot {
	if snap == nil {
		return nil
	}
	out := &Snapshot{
		Raw:              make(map[Name]float64, len(snap.Raw)),
		DeflowerDisabled: snap.DeflowerDisabled,
		Consumed:         append([]Marker(nil), snap.Consumed...),
	}
	for k, v := range snap.Raw {
		out.Raw[k] = v
	}
	return out
}

// Level computes a channel level from the snapshot using the given config.
func (snap *Snapshot) Level(cfg Config, n Name) int {
	if snap == nil {
		return 0
	}
	c := Channel{Raw: snap.Raw[n], Divisor: cfg.Channels[n].Divisor}
	return c.Level()
}
