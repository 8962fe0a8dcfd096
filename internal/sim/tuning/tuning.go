package tuning

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"skineffects.io/internal/sim/effects"
	"skineffects.io/internal/sim/session"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	FrameRateHz        int  `yaml:"frame_rate_hz"`
	PersistenceEnabled bool `yaml:"persistence_enabled"`
	SettleFrames       int  `yaml:"settle_frames"`

	DrainIntervalSeconds float64  `yaml:"drain_interval_seconds"`
	DrainChannels        []string `yaml:"drain_channels"`
	ClearAfterScenes     []string `yaml:"clear_after_scenes"`

	AfterSceneDesire Desire `yaml:"after_scene_desire"`

	Touch    Touch              `yaml:"touch"`
	Channels map[string]Channel `yaml:"channels"`
}

type Desire struct {
	ID     int `yaml:"id"`
	Amount int `yaml:"amount"`
}

type Touch struct {
	ContactRate float64 `yaml:"contact_rate"`
	FastRate    float64 `yaml:"fast_rate"`
	SlowRate    float64 `yaml:"slow_rate"`
	FastSpeed   float64 `yaml:"fast_speed"`
	SlowSpeed   float64 `yaml:"slow_speed"`
	DecayRate   float64 `yaml:"decay_rate"`
	Divisor     float64 `yaml:"divisor"`
}

// Channel overrides one channel. Pointer fields keep the default when absent.
type Channel struct {
	Divisor          *float64 `yaml:"divisor"`
	AccumulationRate *float64 `yaml:"accumulation_rate"`
	DecayRate        *float64 `yaml:"decay_rate"`
	Monotonic        *bool    `yaml:"monotonic"`
	Fluid            *bool    `yaml:"fluid"`
}

func Defaults() Tuning {
	s := session.DefaultConfig()
	e := s.Effects
	t := Tuning{
		ProtocolVersion:      "1.0",
		FrameRateHz:          30,
		PersistenceEnabled:   s.PersistenceEnabled,
		SettleFrames:         s.SettleFrames,
		DrainIntervalSeconds: s.DrainInterval.Seconds(),
		AfterSceneDesire:     Desire{ID: s.DesireID, Amount: s.DesireAmount},
		Touch: Touch{
			ContactRate: e.Touch.ContactRate,
			FastRate:    e.Touch.FastRate,
			SlowRate:    e.Touch.SlowRate,
			FastSpeed:   e.Touch.FastSpeed,
			SlowSpeed:   e.Touch.SlowSpeed,
			DecayRate:   e.Touch.DecayRate,
			Divisor:     e.Touch.Divisor,
		},
		Channels: map[string]Channel{},
	}
	for _, n := range s.DrainChannels {
		t.DrainChannels = append(t.DrainChannels, string(n))
	}
	for _, k := range s.ClearAfterScenes {
		t.ClearAfterScenes = append(t.ClearAfterScenes, string(k))
	}
	return t
}

// Load reads path on top of Defaults and validates the result.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error
	if t.FrameRateHz <= 0 || t.FrameRateHz > 240 {
		errs = append(errs, fmt.Errorf("frame_rate_hz %d out of range (1..240)", t.FrameRateHz))
	}
	if t.SettleFrames < 0 {
		errs = append(errs, fmt.Errorf("settle_frames %d < 0", t.SettleFrames))
	}
	if !(t.DrainIntervalSeconds > 0) || math.IsInf(t.DrainIntervalSeconds, 0) {
		errs = append(errs, fmt.Errorf("drain_interval_seconds must be > 0"))
	}
	for _, n := range t.DrainChannels {
		if !effects.Name(n).Valid() {
			errs = append(errs, fmt.Errorf("drain_channels: unknown channel %q", n))
		}
	}
	for n, c := range t.Channels {
		if !effects.Name(n).Valid() {
			errs = append(errs, fmt.Errorf("channels: unknown channel %q", n))
		}
		if c.Divisor != nil && !(*c.Divisor > 0) {
			errs = append(errs, fmt.Errorf("channels.%s.divisor must be > 0", n))
		}
		if c.AccumulationRate != nil && !(*c.AccumulationRate >= 0 && !math.IsInf(*c.AccumulationRate, 0)) {
			errs = append(errs, fmt.Errorf("channels.%s.accumulation_rate must be >= 0", n))
		}
		if c.DecayRate != nil && !(*c.DecayRate >= 0 && !math.IsInf(*c.DecayRate, 0)) {
			errs = append(errs, fmt.Errorf("channels.%s.decay_rate must be >= 0", n))
		}
	}
	if !(t.Touch.Divisor > 0) {
		errs = append(errs, fmt.Errorf("touch.divisor must be > 0"))
	}
	if t.Touch.SlowSpeed > t.Touch.FastSpeed {
		errs = append(errs, fmt.Errorf("touch.slow_speed %v > fast_speed %v", t.Touch.SlowSpeed, t.Touch.FastSpeed))
	}
	return errors.Join(errs...)
}

func (t Tuning) FrameDuration() time.Duration {
	if t.FrameRateHz <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(t.FrameRateHz)
}

func (t Tuning) Effects() effects.Config {
	cfg := effects.DefaultConfig()
	cfg.Touch = effects.TouchConfig{
		ContactRate: t.Touch.ContactRate,
		FastRate:    t.Touch.FastRate,
		SlowRate:    t.Touch.SlowRate,
		FastSpeed:   t.Touch.FastSpeed,
		SlowSpeed:   t.Touch.SlowSpeed,
		DecayRate:   t.Touch.DecayRate,
		Divisor:     t.Touch.Divisor,
	}
	for n, c := range t.Channels {
		def, ok := cfg.Channels[effects.Name(n)]
		if !ok {
			continue
		}
		if c.Divisor != nil {
			def.Divisor = *c.Divisor
		}
		if c.AccumulationRate != nil {
			def.AccumulationRate = *c.AccumulationRate
		}
		if c.DecayRate != nil {
			def.DecayRate = *c.DecayRate
		}
		if c.Monotonic != nil {
			def.Monotonic = *c.Monotonic
		}
		if c.Fluid != nil {
			def.Fluid = *c.Fluid
		}
		cfg.Channels[effects.Name(n)] = def
	}
	return cfg
}

func (t Tuning) Session() session.Config {
	cfg := session.Config{
		Effects:            t.Effects(),
		PersistenceEnabled: t.PersistenceEnabled,
		SettleFrames:       t.SettleFrames,
		DrainInterval:      time.Duration(t.DrainIntervalSeconds * float64(time.Second)),
		DesireID:           t.AfterSceneDesire.ID,
		DesireAmount:       t.AfterSceneDesire.Amount,
	}
	for _, n := range t.DrainChannels {
		cfg.DrainChannels = append(cfg.DrainChannels, effects.Name(n))
	}
	for _, k := range t.ClearAfterScenes {
		cfg.ClearAfterScenes = append(cfg.ClearAfterScenes, session.SceneKind(k))
	}
	return cfg
}
