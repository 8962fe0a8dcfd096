package session

import (
	"io"
	"log"
	"sort"
	"time"

	"skineffects.io/internal/sim/effects"
	"skineffects.io/internal/sim/ids"
	"skineffects.io/internal/sim/sched"
)

// Phase is where a logical character is in the scene lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseActive
	PhaseDraining
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseDraining:
		return "draining"
	default:
		return "idle"
	}
}

type character struct {
	phase Phase
}

// Tracker owns all effect state of one session. Every method must be called
// from the simulation goroutine, the same one that calls Step.
type Tracker struct {
	cfg      Config
	host     Host
	sched    *sched.Scheduler
	store    *Store
	coord    *Coordinator
	log      *log.Logger
	listener Listener

	// states belong to live instances, not to logical characters.
	states      map[InstanceID]*effects.State
	chars       map[ids.CharacterID]*character
	deflowerOff map[ids.CharacterID]bool

	scene    *activeScene
	contacts map[int]effects.Contact
}

func NewTracker(cfg Config, host Host, logger *log.Logger) *Tracker {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	t := &Tracker{
		cfg:         cfg,
		host:        host,
		sched:       sched.New(),
		store:       NewStore(),
		log:         logger,
		listener:    nopListener{},
		states:      map[InstanceID]*effects.State{},
		chars:       map[ids.CharacterID]*character{},
		deflowerOff: map[ids.CharacterID]bool{},
	}
	t.coord = &Coordinator{t: t, tasks: map[ids.CharacterID]*sched.Task{}}
	return t
}

func (t *Tracker) SetListener(l Listener) {
	if l == nil {
		l = nopListener{}
	}
	t.listener = l
}

func (t *Tracker) Config() Config { return t.cfg }
func (t *Tracker) Store() *Store { return t.store }
func (t *Tracker) Coordinator() *Coordinator { return t.coord }
func (t *Tracker) Scheduler() *sched.Scheduler { return t.sched }
func (t *Tracker) DeflowerDisabled(id ids.CharacterID) bool { return t.deflowerOff[id] }

// Step advances one simulation frame.
func (t *Tracker) Step(dt time.Duration) { t.sched.Step(dt) }

// Close cancels every pending task. The tracker must not be used afterwards.
func (t *Tracker) Close() { t.sched.Close() }

func (t *Tracker) char(id ids.CharacterID) *character {
	c := t.chars[id]
	if c == nil {
		c = &character{}
		t.chars[id] = c
	}
	return c
}

func (t *Tracker) Phase(id ids.CharacterID) Phase {
	if c := t.chars[id]; c != nil {
		return c.phase
	}
	return PhaseIdle
}

// Characters lists every character the tracker has seen, in a stable order.
func (t *Tracker) Characters() []ids.CharacterID {
	out := make([]ids.CharacterID, 0, len(t.chars))
	for id := range t.chars {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// stateFor returns the state of a live instance, creating it on first use.
func (t *Tracker) stateFor(inst InstanceID) (*effects.State, bool) {
	if st := t.states[inst]; st != nil {
		return st, false
	}
	st := effects.NewState(t.cfg.Effects)
	t.states[inst] = st
	return st, true
}

// State resolves the character's current instance and returns its state.
// It is nil when there is no instance or the instance was never observed.
func (t *Tracker) State(id ids.CharacterID) *effects.State {
	inst := t.host.Instance(id)
	if inst == "" {
		return nil
	}
	return t.states[inst]
}

func (t *Tracker) Levels(id ids.CharacterID) (map[effects.Name]int, bool) {
	st := t.State(id)
	if st == nil {
		return nil, false
	}
	return st.Levels(), true
}

// ApplyEvent feeds a discrete host event to the character's live instance.
// It returns false when the character has no instance right now.
func (t *Tracker) ApplyEvent(id ids.CharacterID, ev effects.Event) bool {
	if id.IsZero() {
		return false
	}
	inst := t.host.Instance(id)
	if inst == "" {
		return false
	}
	st, _ := t.stateFor(inst)
	t.char(id)
	st.ApplyEvent(ev)
	return true
}

// ReleaseInstance forgets the state of a destroyed instance.
func (t *Tracker) ReleaseInstance(inst InstanceID) { delete(t.states, inst) }

func (t *Tracker) Instances() int { return len(t.states) }

// InstanceIDs lists live instances with state, in a stable order.
func (t *Tracker) InstanceIDs() []InstanceID {
	out := make([]InstanceID, 0, len(t.states))
	for inst := range t.states {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t *Tracker) InstanceState(inst InstanceID) *effects.State { return t.states[inst] }

// DeflowerDisabledIDs lists characters whose deflowering is suppressed for the day.
func (t *Tracker) DeflowerDisabledIDs() []ids.CharacterID {
	out := make([]ids.CharacterID, 0, len(t.deflowerOff))
	for id := range t.deflowerOff {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (t *Tracker) SetDeflowerDisabled(id ids.CharacterID, off bool) {
	if id.IsZero() {
		return
	}
	if off {
		t.deflowerOff[id] = true
		return
	}
	delete(t.deflowerOff, id)
}

// SceneUnloaded hands a character over to whatever instance the next scene
// uses, outside of an interactive scene (talk -> roaming and the like).
func (t *Tracker) SceneUnloaded(id ids.CharacterID) error {
	return t.coord.Begin(id, PolicyPersist, false)
}

// ClearVisible is the user's "clear effects" shortcut.
func (t *Tracker) ClearVisible() {
	for _, st := range t.states {
		st.ResetVisible()
	}
}

// DayChanged drops everything, including the day's deflower decisions.
func (t *Tracker) DayChanged() {
	t.resetSession(true)
	t.deflowerOff = map[ids.CharacterID]bool{}
	t.log.Printf("day changed: session state cleared")
}

// PeriodChanged drops channel state; deflower decisions survive until the day ends.
func (t *Tracker) PeriodChanged() {
	t.resetSession(false)
	t.log.Printf("period changed: channel state cleared")
}

func (t *Tracker) resetSession(includeSticky bool) {
	// Cancel first: no hand-off may observe the half-cleared store.
	t.coord.CancelAll()
	if t.scene != nil {
		t.scene.task.Cancel()
		t.scene = nil
		t.contacts = nil
	}
	for _, st := range t.states {
		st.ResetAll(includeSticky)
	}
	t.store.Clear()
	for _, c := range t.chars {
		c.phase = PhaseIdle
	}
}
