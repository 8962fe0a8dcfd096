package world

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"skineffects.io/internal/persistence/snapshot"
	"skineffects.io/internal/protocol"
	"skineffects.io/internal/sim/effects"
	"skineffects.io/internal/sim/ids"
	"skineffects.io/internal/sim/session"
)

type WorldConfig struct {
	ID          string
	FrameRateHz int
	Session     session.Config
}

type JoinRequest struct {
	HostName string
	Out      chan []byte
	Resp     chan JoinResponse
}

type JoinResponse struct {
	ClientID string
	Welcome  protocol.WelcomeMsg
}

// Envelope is one inbound host message, still in wire form.
type Envelope struct {
	ClientID string
	Raw      []byte
}

type RecordedMessage struct {
	ClientID string          `json:"client_id,omitempty"`
	Msg      json.RawMessage `json:"msg"`
}

// World mirrors the host's view (instances, loading fade) and owns the
// session tracker. All state must be accessed only from the world loop
// goroutine.
type World struct {
	cfg       WorldConfig
	sessionID string
	log       *log.Logger
	dt        time.Duration

	frame atomic.Uint64

	tracker *session.Tracker

	instances map[ids.CharacterID]session.InstanceID
	keys      map[ids.CharacterID]string
	loading   bool

	clients map[string]*clientState
	// shown is the last LEVELS payload sent per character.
	shown   map[ids.CharacterID]map[effects.Name]int
	desires []protocol.DesireMsg

	inbox     chan Envelope
	join      chan JoinRequest
	leave     chan string
	exportReq chan exportReq
	stop      chan struct{}

	nextClientNum atomic.Uint64

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	frameLogger      FrameLogger
	transitionLogger TransitionLogger

	// day counts day changes seen this session; archiveSink receives the
	// store as it was just before each one.
	day         int
	archiveSink chan<- snapshot.StoreV1

	metrics atomic.Value
}

type FrameLogger interface {
	WriteFrame(entry FrameLogEntry) error
}

type TransitionLogger interface {
	WriteTransition(entry TransitionEntry) error
}

// FrameLogEntry is one journal line. Frames restart at 0 in every process,
// so Session tells runs that share a journal directory apart.
type FrameLogEntry struct {
	Session  string            `json:"session,omitempty"`
	Frame    uint64            `json:"frame"`
	Messages []RecordedMessage `json:"messages,omitempty"`
	Rejected int               `json:"rejected,omitempty"`
	Digest   string            `json:"digest"`
}

// Transition stages.
const (
	StageStarted = "started"
	StageApplied = "applied"
	StageDrained = "drained"
)

type TransitionEntry struct {
	Session     string `json:"session,omitempty"`
	Frame       uint64 `json:"frame"`
	Character   string `json:"character"`
	Key         string `json:"key,omitempty"`
	Stage       string `json:"stage"`
	Policy      string `json:"policy,omitempty"`
	AfterScene  bool   `json:"after_scene,omitempty"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	Restored    bool   `json:"restored,omitempty"`
	Interrupted bool   `json:"interrupted,omitempty"`
}

type clientState struct {
	Name string
	Out  chan []byte
}

func New(cfg WorldConfig, logger *log.Logger) (*World, error) {
	if cfg.FrameRateHz <= 0 {
		return nil, fmt.Errorf("frame rate must be > 0, got %d", cfg.FrameRateHz)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	w := &World{
		cfg:       cfg,
		sessionID: ids.NewSession(),
		log:       logger,
		dt:        time.Second / time.Duration(cfg.FrameRateHz),
		instances: map[ids.CharacterID]session.InstanceID{},
		keys:      map[ids.CharacterID]string{},
		clients:   map[string]*clientState{},
		shown:     map[ids.CharacterID]map[effects.Name]int{},
		inbox:     make(chan Envelope, 4096),
		join:      make(chan JoinRequest, 16),
		leave:     make(chan string, 16),
		exportReq: make(chan exportReq, 4),
		stop:      make(chan struct{}),
	}
	w.tracker = session.NewTracker(cfg.Session, w, logger)
	w.tracker.SetListener(w)
	return w, nil
}

func (w *World) SetFrameLogger(l FrameLogger)           { w.frameLogger = l }
func (w *World) SetTransitionLogger(l TransitionLogger) { w.transitionLogger = l }

// SetArchiveSink receives a store export at every day change. Sends never
// block; a full sink loses that day's archive.
func (w *World) SetArchiveSink(ch chan<- snapshot.StoreV1) { w.archiveSink = ch }

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) SessionID() string { return w.sessionID }

func (w *World) FrameRateHz() int {
	if w == nil {
		return 0
	}
	return w.cfg.FrameRateHz
}

func (w *World) CurrentFrame() uint64 { return w.frame.Load() }

func (w *World) Inbox() chan<- Envelope   { return w.inbox }
func (w *World) Join() chan<- JoinRequest { return w.join }
func (w *World) Leave() chan<- string     { return w.leave }

// Tracker exposes the session tracker. Not safe to use concurrently with Run.
func (w *World) Tracker() *session.Tracker { return w.tracker }

// ---- session.Host ----

func (w *World) Instance(id ids.CharacterID) session.InstanceID { return w.instances[id] }

func (w *World) Loading() bool { return w.loading }

func (w *World) SetDesire(id ids.CharacterID, desire, amount int) {
	w.desires = append(w.desires, protocol.DesireMsg{
		Type:            protocol.TypeDesire,
		ProtocolVersion: protocol.Version,
		Character:       w.keyOf(id),
		Desire:          desire,
		Amount:          amount,
	})
}

// ---- session.Listener ----

func (w *World) TransitionStarted(id ids.CharacterID, from session.InstanceID, policy session.Policy, afterScene bool) {
	w.writeTransition(id, TransitionEntry{
		Stage:      StageStarted,
		Policy:     policy.String(),
		AfterScene: afterScene,
		From:       string(from),
	})
}

func (w *World) TransitionApplied(id ids.CharacterID, to session.InstanceID, restored bool) {
	w.writeTransition(id, TransitionEntry{
		Stage:    StageApplied,
		To:       string(to),
		Restored: restored,
	})
}

func (w *World) DrainFinished(id ids.CharacterID, interrupted bool) {
	w.writeTransition(id, TransitionEntry{
		Stage:       StageDrained,
		Interrupted: interrupted,
	})
}

func (w *World) writeTransition(id ids.CharacterID, e TransitionEntry) {
	if w.transitionLogger == nil {
		return
	}
	e.Session = w.sessionID
	e.Frame = w.frame.Load()
	e.Character = id.String()
	e.Key = w.keys[id]
	_ = w.transitionLogger.WriteTransition(e)
}

func (w *World) keyOf(id ids.CharacterID) string {
	if k, ok := w.keys[id]; ok {
		return k
	}
	return id.String()
}

// character resolves a host key and remembers it for outbound messages.
func (w *World) character(key string) ids.CharacterID {
	id := ids.Character(key)
	if !id.IsZero() {
		w.keys[id] = key
	}
	return id
}
