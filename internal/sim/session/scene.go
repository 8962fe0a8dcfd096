package session

import (
	"errors"
	"fmt"

	"skineffects.io/internal/sim/effects"
	"skineffects.io/internal/sim/ids"
	"skineffects.io/internal/sim/sched"
)

type SceneKind string

const (
	SceneH             SceneKind = "h"
	SceneShowerPeeping SceneKind = "shower_peeping"
	SceneTalk          SceneKind = "talk"
)

var ErrSceneActive = errors.New("scene already active")

// Scene describes an interactive scene. Participants are in slot order;
// slot 0 is the lead and is the only slot that honors caress contact.
type Scene struct {
	Kind         SceneKind
	Free         bool
	Participants []ids.CharacterID
}

type activeScene struct {
	Scene
	task *sched.Task
}

func (t *Tracker) InScene() bool { return t.scene != nil }

func (t *Tracker) ActiveScene() (Scene, bool) {
	if t.scene == nil {
		return Scene{}, false
	}
	return t.scene.Scene, true
}

// StartScene begins sc. Saved levels are applied only to participant instances
// the tracker has not seen yet, so the host must start the scene before it
// sends events to the new instances.
func (t *Tracker) StartScene(sc Scene) error {
	if t.scene != nil {
		return ErrSceneActive
	}
	if len(sc.Participants) == 0 {
		return ErrInvalidArgument
	}
	seen := make(map[ids.CharacterID]bool, len(sc.Participants))
	for _, id := range sc.Participants {
		if id.IsZero() {
			return ErrInvalidArgument
		}
		// Two slots on one character would tick its state twice per frame.
		if seen[id] {
			return fmt.Errorf("scene start: %s in more than one slot: %w", id, ErrInvalidArgument)
		}
		seen[id] = true
	}
	sc.Participants = append([]ids.CharacterID(nil), sc.Participants...)

	t.contacts = map[int]effects.Contact{}
	for _, id := range sc.Participants {
		t.coord.Cancel(id)
		t.char(id).phase = PhaseActive
		inst := t.host.Instance(id)
		if inst == "" {
			continue
		}
		st, created := t.stateFor(inst)
		// A live instance is authoritative; only a fresh one is seeded from the store.
		if created && t.cfg.PersistenceEnabled {
			if _, err := t.store.ApplyState(id, st); err != nil {
				t.log.Printf("scene start: restore %s: %v", id, err)
			}
		}
		st.ResetTransient()
		st.DeflowerDisabled = st.DeflowerDisabled || t.deflowerOff[id]
	}

	as := &activeScene{Scene: sc}
	t.scene = as
	as.task = t.sched.Go("scene:"+string(sc.Kind), func(k *sched.Task) { t.runScene(k, as) })
	t.log.Printf("scene start kind=%s free=%v participants=%d", sc.Kind, sc.Free, len(sc.Participants))
	return nil
}

// SetContact records this frame's contact signal for a participant slot.
func (t *Tracker) SetContact(slot int, c effects.Contact) bool {
	if t.scene == nil || slot < 0 || slot >= len(t.scene.Participants) {
		return false
	}
	t.contacts[slot] = c
	return true
}

// ClearContacts drops the frame's contact signals; slots without a fresh
// signal count as untouched on the next frame.
func (t *Tracker) ClearContacts() {
	if t.scene != nil {
		t.contacts = map[int]effects.Contact{}
	}
}

func (t *Tracker) runScene(k *sched.Task, sc *activeScene) {
	if !k.While(t.host.Loading) {
		return
	}
	for k.NextFrame() {
		dt := t.sched.Delta().Seconds()
		for slot, id := range sc.Participants {
			st := t.State(id)
			if st == nil {
				continue
			}
			c := t.contacts[slot]
			if slot != 0 {
				c.Caress = false
			}
			st.Tick(dt, c)
		}
	}
}

// EndScene closes the active scene and hands every participant over to the
// next scene's instance. It returns false when no scene was active.
func (t *Tracker) EndScene() bool {
	sc := t.scene
	if sc == nil {
		return false
	}
	t.scene = nil
	t.contacts = nil
	sc.task.Cancel()

	if sc.Free || !t.cfg.PersistenceEnabled {
		for _, id := range sc.Participants {
			t.char(id).phase = PhaseIdle
		}
		t.log.Printf("scene end kind=%s: no hand-off", sc.Kind)
		return true
	}

	policy := PolicyPersist
	if t.cfg.clearsAfter(sc.Kind) {
		policy = PolicyDiscard
	}
	for _, id := range sc.Participants {
		if st := t.State(id); st != nil && st.DeflowerDisabled {
			t.deflowerOff[id] = true
		}
		if err := t.coord.Begin(id, policy, true); err != nil {
			t.log.Printf("scene end: hand-off %s: %v", id, err)
		}
	}
	t.log.Printf("scene end kind=%s policy=%s", sc.Kind, policy)
	return true
}
