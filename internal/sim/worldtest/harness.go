package worldtest

import (
	"encoding/json"
	"testing"
	"time"

	"skineffects.io/internal/protocol"
	"skineffects.io/internal/sim/session"
	world "skineffects.io/internal/sim/world"
)

// Harness drives a world through its exported API the way a host would:
// every input is a wire message stepped in with StepOnce, every observation
// comes back on the client's Out channel.
type Harness struct {
	T *testing.T
	W *world.World

	ClientID string

	out     chan []byte
	levels  map[string]map[string]int
	desires []protocol.DesireMsg
	errors  []protocol.ErrorMsg

	LastDigest string
}

// Config returns a small world config: 10 frames per second and a one second
// drain interval.
func Config() world.WorldConfig {
	cfg := session.DefaultConfig()
	cfg.DrainInterval = time.Second
	return world.WorldConfig{ID: "worldtest", FrameRateHz: 10, Session: cfg}
}

func NewHarness(t *testing.T, cfg world.WorldConfig) *Harness {
	t.Helper()
	w, err := world.New(cfg, nil)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return NewHarnessWithWorld(t, w)
}

// NewHarnessWithWorld uses an already constructed world, e.g. one that had a
// store export imported.
func NewHarnessWithWorld(t *testing.T, w *world.World) *Harness {
	t.Helper()
	if w == nil {
		t.Fatalf("NewHarnessWithWorld: nil world")
	}
	t.Cleanup(w.Tracker().Close)

	h := &Harness{
		T:      t,
		W:      w,
		out:    make(chan []byte, 1024),
		levels: map[string]map[string]int{},
	}
	resp := make(chan world.JoinResponse, 1)
	w.StepOnce([]world.JoinRequest{{HostName: "worldtest", Out: h.out, Resp: resp}}, nil, nil)
	jr := <-resp
	if jr.ClientID == "" {
		t.Fatalf("join returned empty client id")
	}
	h.ClientID = jr.ClientID
	h.collect()
	return h
}

// Send steps one frame carrying msgs.
func (h *Harness) Send(msgs ...any) {
	h.T.Helper()
	envs := make([]world.Envelope, 0, len(msgs))
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			h.T.Fatalf("marshal %T: %v", m, err)
		}
		envs = append(envs, world.Envelope{ClientID: h.ClientID, Raw: b})
	}
	_, h.LastDigest = h.W.StepOnce(nil, nil, envs)
	h.collect()
}

// Step runs n empty frames.
func (h *Harness) Step(n int) {
	h.T.Helper()
	for i := 0; i < n; i++ {
		h.Send()
	}
}

// StepFor runs empty frames covering d of simulated time.
func (h *Harness) StepFor(d time.Duration) {
	h.T.Helper()
	n := int(d.Seconds()*float64(h.W.FrameRateHz()) + 0.5)
	h.Step(n)
}

func (h *Harness) collect() {
	for {
		select {
		case b := <-h.out:
			base, err := protocol.DecodeBase(b)
			if err != nil {
				h.T.Fatalf("bad outbound json: %v", err)
			}
			switch base.Type {
			case protocol.TypeLevels:
				var m protocol.LevelsMsg
				_ = json.Unmarshal(b, &m)
				h.levels[m.Character] = m.Levels
			case protocol.TypeDesire:
				var m protocol.DesireMsg
				_ = json.Unmarshal(b, &m)
				h.desires = append(h.desires, m)
			case protocol.TypeError:
				var m protocol.ErrorMsg
				_ = json.Unmarshal(b, &m)
				h.errors = append(h.errors, m)
			}
		default:
			return
		}
	}
}

// Level is the last level the host was told for a character channel.
func (h *Harness) Level(key, channel string) int { return h.levels[key][channel] }

func (h *Harness) Desires() []protocol.DesireMsg { return h.desires }
func (h *Harness) Errors() []protocol.ErrorMsg   { return h.errors }

// ---- message builders ----

func Instance(key, inst string) protocol.InstanceMsg {
	return protocol.InstanceMsg{Type: protocol.TypeInstance, ProtocolVersion: protocol.Version, Character: key, Instance: inst}
}

func Event(key, kind string, first bool) protocol.EventMsg {
	return protocol.EventMsg{Type: protocol.TypeEvent, ProtocolVersion: protocol.Version, Character: key, Kind: kind, First: first}
}

func Touch(key, region string) protocol.EventMsg {
	return protocol.EventMsg{Type: protocol.TypeEvent, ProtocolVersion: protocol.Version, Character: key, Kind: "touch", Region: region}
}

func SceneStart(kind string, keys ...string) protocol.SceneMsg {
	return protocol.SceneMsg{Type: protocol.TypeScene, ProtocolVersion: protocol.Version, Action: protocol.SceneStart, SceneKind: kind, Participants: keys}
}

func FreeSceneStart(kind string, keys ...string) protocol.SceneMsg {
	m := SceneStart(kind, keys...)
	m.Free = true
	return m
}

func SceneEnd() protocol.SceneMsg {
	return protocol.SceneMsg{Type: protocol.TypeScene, ProtocolVersion: protocol.Version, Action: protocol.SceneEnd}
}

func SceneUnload(keys ...string) protocol.SceneMsg {
	return protocol.SceneMsg{Type: protocol.TypeScene, ProtocolVersion: protocol.Version, Action: protocol.SceneUnload, Participants: keys}
}

func Loading(on bool) protocol.LoadingMsg {
	return protocol.LoadingMsg{Type: protocol.TypeLoading, ProtocolVersion: protocol.Version, Loading: on}
}

func Control(cmd string) protocol.ControlMsg {
	return protocol.ControlMsg{Type: protocol.TypeControl, ProtocolVersion: protocol.Version, Command: cmd}
}

func Signal(slot int, region string, reacting bool) protocol.SignalMsg {
	return protocol.SignalMsg{Type: protocol.TypeSignal, ProtocolVersion: protocol.Version, Slot: slot, Region: region, Reacting: reacting}
}
