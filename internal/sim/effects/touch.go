package effects

// Contact is one frame of continuous touch signals for a scene slot.
type Contact struct {
	Region   Region
	Reacting bool // hit reaction animation playing
	// Caress is set only for the primary slot of a caress-mode scene.
	Caress     bool
	ItemOnButt bool
	Speed      float64
}

// Tick advances the touch accumulator by dt seconds and promotes its level to
// ButtTouch. The shown level only moves forward here; a decaying accumulator
// never pulls it down.
func (s *State) Tick(dt float64, c Contact) {
	if dt <= 0 {
		return
	}
	t := s.cfg.Touch
	engaged := false
	if c.Reacting && c.Region.IsButt() {
		s.touch.Accumulate(t.ContactRate, dt)
		engaged = true
	}
	if c.Caress && c.ItemOnButt {
		switch t.Tier(c.Speed) {
		case TierFast:
			s.touch.Accumulate(t.FastRate, dt)
			engaged = true
		case TierSlow:
			s.touch.Accumulate(t.SlowRate, dt)
			engaged = true
		}
	}
	if !engaged {
		s.touch.Decay(t.DecayRate, dt)
	}

	shown := s.channels[ButtTouch]
	if l := s.touch.Level(); l > shown.Level() {
		shown.SetLevel(l)
	}
}

// TouchRaw exposes the accumulator for diagnostics and tests.
func (s *State) TouchRaw() float64 { return s.touch.Raw }
