package effects

// ChannelDef configures one channel.
type ChannelDef struct {
	Divisor float64
	// AccumulationRate multiplies rule-table levels; 1 is the stock table.
	AccumulationRate float64
	// DecayRate is levels removed per drain step; values up to 1 remove one.
	DecayRate float64
	Monotonic bool
	// Fluid channels are zeroed by ResetVisible.
	Fluid bool
}

// TouchConfig drives the per-scene touch accumulator behind ButtTouch.
type TouchConfig struct {
	ContactRate float64 // per second while a butt region is hit and reacting
	FastRate    float64 // per second, caress item on butt at fast speed
	SlowRate    float64 // per second, caress item on butt at slow speed
	FastSpeed   float64
	SlowSpeed   float64
	DecayRate   float64 // per second without any contact
	Divisor     float64
}

type Config struct {
	Channels map[Name]ChannelDef
	Touch    TouchConfig
}

func DefaultConfig() Config {
	chans := make(map[Name]ChannelDef, len(Names))
	for _, n := range Names {
		chans[n] = ChannelDef{Divisor: 1, AccumulationRate: 1, DecayRate: 1, Fluid: true}
	}
	chans[ButtTouch] = ChannelDef{Divisor: 1, AccumulationRate: 1, DecayRate: 1, Monotonic: true}
	return Config{
		Channels: chans,
		Touch: TouchConfig{
			ContactRate: 2,
			FastRate:    1,
			SlowRate:    0.5,
			FastSpeed:   1,
			SlowSpeed:   0.5,
			DecayRate:   1.0 / 9,
			Divisor:     10,
		},
	}
}

// SpeedTier quantizes interaction speed.
type SpeedTier int

const (
	TierNone SpeedTier = iota
	TierSlow
	TierFast
)

func (t TouchConfig) Tier(speed float64) SpeedTier {
	switch {
	case speed >= t.FastSpeed:
		return TierFast
	case speed >= t.SlowSpeed:
		return TierSlow
	default:
		return TierNone
	}
}
