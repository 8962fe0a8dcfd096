package effects

import "math"

// Event is a discrete host event addressed to one character.
type Event struct {
	Kind   EventKind
	Region Region
	// Magnitude scales every row of the event; zero means 1.
	Magnitude float64
	// First is set by the host when this is the character's first time for
	// the event (e.g. first penetration). Marker rows need it.
	First bool
}

// State is the full channel set of one live character instance.
// It is not safe for concurrent use; the simulation loop owns it.
type State struct {
	cfg      Config
	channels map[Name]*Channel
	// touch is scene-local and never persisted.
	touch Channel

	DeflowerDisabled bool
	consumed         map[Marker]bool
}

func NewState(cfg Config) *State {
	s := &State{
		cfg:      cfg,
		channels: make(map[Name]*Channel, len(Names)),
		consumed: map[Marker]bool{},
	}
	for _, n := range Names {
		def, ok := cfg.Channels[n]
		if !ok {
			def = ChannelDef{Divisor: 1, AccumulationRate: 1, DecayRate: 1, Fluid: n != ButtTouch, Monotonic: n == ButtTouch}
		}
		s.channels[n] = newChannel(def)
	}
	s.touch = Channel{
		AccumulationRate: cfg.Touch.ContactRate,
		DecayRate:        cfg.Touch.DecayRate,
		Divisor:          cfg.Touch.Divisor,
	}
	return s
}

// Channel returns the named channel, or nil for an unknown name.
func (s *State) Channel(n Name) *Channel { return s.channels[n] }

func (s *State) Level(n Name) int {
	if c := s.channels[n]; c != nil {
		return c.Level()
	}
	return 0
}

func (s *State) Raw(n Name) float64 {
	if c := s.channels[n]; c != nil {
		return c.Raw
	}
	return 0
}

// Levels returns the integer level of every channel (the renderer contract).
func (s *State) Levels() map[Name]int {
	out := make(map[Name]int, len(s.channels))
	for _, n := range Names {
		out[n] = s.channels[n].Level()
	}
	return out
}

func (s *State) SetLevel(n Name, level int) {
	if c := s.channels[n]; c != nil {
		c.SetLevel(level)
	}
}

func (s *State) Decrement(n Name) {
	if c := s.channels[n]; c != nil {
		c.Decrement()
	}
}

// Drain runs one cooldown step on the named channel.
func (s *State) Drain(n Name) {
	if c := s.channels[n]; c != nil {
		c.Drain()
	}
}

func (s *State) Consumed(m Marker) bool { return s.consumed[m] }

// ApplyEvent routes ev through the rule table and returns how many rows fired.
func (s *State) ApplyEvent(ev Event) int {
	mag := ev.Magnitude
	if mag <= 0 || math.IsNaN(mag) || math.IsInf(mag, 0) {
		mag = 1
	}

	fired := 0
	var consume []Marker
	deflowered := false
	for _, r := range RulesFor(ev.Kind, ev.Region) {
		if r.Marker != "" {
			if !ev.First || s.consumed[r.Marker] {
				continue
			}
			if r.Deflower && s.DeflowerDisabled {
				continue
			}
		}
		c := s.channels[r.Channel]
		if c == nil {
			continue
		}
		c.Accumulate(r.Levels*c.divisor()*c.rate(), mag)
		fired++
		if r.Marker != "" {
			consume = append(consume, r.Marker)
			if r.Deflower {
				deflowered = true
			}
		}
	}
	// Markers are consumed after the whole row set so sibling rows share the gate.
	for _, m := range consume {
		s.consumed[m] = true
	}
	if deflowered {
		s.DeflowerDisabled = true
	}
	return fired
}

// ResetTransient zeroes the per-scene touch accumulator.
func (s *State) ResetTransient() { s.touch.Reset() }

// ResetVisible zeroes every fluid channel. Sticky flags stay.
func (s *State) ResetVisible() {
	for n, c := range s.channels {
		if s.fluid(n) {
			c.Reset()
		}
	}
}

func (s *State) fluid(n Name) bool {
	if def, ok := s.cfg.Channels[n]; ok {
		return def.Fluid
	}
	return n != ButtTouch
}

// ResetAll zeroes every channel and the touch accumulator. With includeSticky
// the deflower flag and consumed markers are cleared as well.
func (s *State) ResetAll(includeSticky bool) {
	for _, c := range s.channels {
		c.Reset()
	}
	s.touch.Reset()
	if includeSticky {
		s.DeflowerDisabled = false
		s.consumed = map[Marker]bool{}
	}
}
