package effects

import "math"

// levelEpsilon absorbs float drift from many small per-frame increments
// (60 frames of 1/60s must reach a whole level).
const levelEpsilon = 1e-9

const maxLevel = math.MaxInt32

// Channel is one accumulate/decay scalar with its quantization rule.
// Raw never goes below zero.
type Channel struct {
	Raw float64
	// AccumulationRate scales every rule row that feeds this channel.
	AccumulationRate float64
	// DecayRate is the number of levels one drain step removes.
	DecayRate float64
	Divisor          float64
	// Monotonic channels ignore SetLevel calls that would lower the shown level.
	Monotonic bool
}

func newChannel(def ChannelDef) *Channel {
	return &Channel{
		AccumulationRate: def.AccumulationRate,
		DecayRate:        def.DecayRate,
		Divisor:          def.Divisor,
		Monotonic:        def.Monotonic,
	}
}

func (c *Channel) divisor() float64 {
	if c.Divisor <= 0 || math.IsNaN(c.Divisor) || math.IsInf(c.Divisor, 0) {
		return 1
	}
	return c.Divisor
}

// Level is floor(Raw / Divisor).
func (c *Channel) Level() int {
	if c.Raw <= 0 {
		return 0
	}
	l := math.Floor(c.Raw/c.divisor() + levelEpsilon)
	if l >= maxLevel {
		return maxLevel
	}
	return int(l)
}

// Accumulate adds amount*dt. There is no upper bound.
func (c *Channel) Accumulate(amount, dt float64) {
	v := amount * dt
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	c.Raw = math.Max(0, c.Raw+v)
}

// Decay removes amount*dt, clamping at zero.
func (c *Channel) Decay(amount, dt float64) {
	v := amount * dt
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	c.Raw = math.Max(0, c.Raw-v)
}

func (c *Channel) rate() float64 {
	if c.AccumulationRate < 0 || math.IsNaN(c.AccumulationRate) || math.IsInf(c.AccumulationRate, 0) {
		return 1
	}
	return c.AccumulationRate
}

// Drain is one cooldown step: it drops ceil(DecayRate) levels, at least one,
// bypassing the monotonic floor like Decrement.
func (c *Channel) Drain() {
	n := 1
	if c.DecayRate > 1 && !math.IsInf(c.DecayRate, 0) {
		n = int(math.Ceil(c.DecayRate))
	}
	for i := 0; i < n && c.Level() > 0; i++ {
		c.Decrement()
	}
}

// SetLevel forces Raw to n*Divisor. On a monotonic channel a lower level is ignored.
func (c *Channel) SetLevel(n int) {
	if n < 0 {
		n = 0
	}
	if c.Monotonic && n < c.Level() {
		return
	}
	c.Raw = float64(n) * c.divisor()
}

// Decrement drops exactly one level, bypassing the monotonic floor.
func (c *Channel) Decrement() {
	l := c.Level()
	if l <= 0 {
		return
	}
	c.Raw = float64(l-1) * c.divisor()
}

func (c *Channel) Reset() { c.Raw = 0 }
