package session

import (
	"skineffects.io/internal/sim/ids"
	"skineffects.io/internal/sim/sched"
)

// Policy decides what happens to a character's state when it leaves an instance.
type Policy int

const (
	PolicyPersist Policy = iota
	PolicyDiscard
)

func (p Policy) String() string {
	if p == PolicyDiscard {
		return "discard"
	}
	return "persist"
}

// Coordinator carries state across instance swaps. At most one hand-off task
// runs per character; a newer one supersedes the older.
type Coordinator struct {
	t     *Tracker
	tasks map[ids.CharacterID]*sched.Task
}

func (c *Coordinator) Pending() int { return len(c.tasks) }

func (c *Coordinator) Active(id ids.CharacterID) bool { return c.tasks[id] != nil }

func (c *Coordinator) Cancel(id ids.CharacterID) {
	if k := c.tasks[id]; k != nil {
		k.Cancel()
		delete(c.tasks, id)
	}
}

func (c *Coordinator) CancelAll() {
	for id, k := range c.tasks {
		k.Cancel()
		delete(c.tasks, id)
	}
}

// Begin captures the state of the character's current instance, stores or
// drops it per policy and starts the task that applies it to the next one.
func (c *Coordinator) Begin(id ids.CharacterID, policy Policy, afterScene bool) error {
	if id.IsZero() {
		return ErrInvalidArgument
	}
	t := c.t
	prev := t.host.Instance(id)
	switch policy {
	case PolicyPersist:
		if st := t.states[prev]; prev != "" && st != nil {
			if err := t.store.SaveState(id, st); err != nil {
				return err
			}
		}
	case PolicyDiscard:
		t.store.Remove(id)
	}

	c.Cancel(id)
	ch := t.char(id)
	if afterScene {
		ch.phase = PhaseDraining
	} else if ch.phase != PhaseActive {
		ch.phase = PhaseIdle
	}
	t.listener.TransitionStarted(id, prev, policy, afterScene)
	t.sched.Go("handoff:"+id.String(), func(k *sched.Task) { c.run(k, id, prev, afterScene) })
	return nil
}

func (c *Coordinator) current(id ids.CharacterID, k *sched.Task) bool { return c.tasks[id] == k }

func (c *Coordinator) run(k *sched.Task, id ids.CharacterID, prev InstanceID, afterScene bool) {
	c.tasks[id] = k
	defer func() {
		if c.current(id, k) {
			delete(c.tasks, id)
		}
	}()
	t := c.t

	var inst InstanceID
	swapped := func() bool {
		cur := t.host.Instance(id)
		return cur != "" && cur != prev
	}
	for {
		if !k.Until(swapped) {
			return
		}
		if !k.Frames(t.cfg.SettleFrames) {
			return
		}
		// The instance may have flickered during the settle window.
		if swapped() {
			inst = t.host.Instance(id)
			break
		}
	}

	st, _ := t.stateFor(inst)
	restored, err := t.store.ApplyState(id, st)
	if err != nil {
		t.log.Printf("hand-off %s: %v", id, err)
		return
	}
	t.listener.TransitionApplied(id, inst, restored)
	if !afterScene {
		return
	}

	t.host.SetDesire(id, t.cfg.DesireID, t.cfg.DesireAmount)
	interrupted := false
	for c.draining(id) {
		if !k.Sleep(t.cfg.DrainInterval) {
			return
		}
		if t.host.Loading() {
			interrupted = true
			break
		}
		// Re-resolve: the instance may have been swapped while asleep.
		st := t.State(id)
		if st == nil {
			interrupted = true
			break
		}
		for _, n := range t.cfg.DrainChannels {
			st.Drain(n)
		}
		if t.store.Has(id) {
			if err := t.store.SaveState(id, st); err != nil {
				t.log.Printf("drain %s: %v", id, err)
			}
		}
	}
	t.char(id).phase = PhaseIdle
	t.listener.DrainFinished(id, interrupted)
}

func (c *Coordinator) draining(id ids.CharacterID) bool {
	st := c.t.State(id)
	if st == nil {
		return false
	}
	for _, n := range c.t.cfg.DrainChannels {
		if st.Level(n) > 0 {
			return true
		}
	}
	return false
}
