package world

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"skineffects.io/internal/protocol"
	"skineffects.io/internal/sim/effects"
	"skineffects.io/internal/sim/ids"
	"skineffects.io/internal/sim/session"
)

// rejection is a wire error for the sending client.
type rejection struct {
	Code    string
	Message string
}

func reject(code, format string, args ...any) *rejection {
	return &rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

// applyMessage applies one host message to the mirror and the tracker.
func (w *World) applyMessage(raw []byte) *rejection {
	base, err := protocol.DecodeBase(raw)
	if err != nil {
		return reject(protocol.ErrProtoBadRequest, "bad json: %v", err)
	}
	if base.ProtocolVersion != "" && base.ProtocolVersion != protocol.Version {
		return reject(protocol.ErrProtoBadVersion, "protocol_version %q, want %q", base.ProtocolVersion, protocol.Version)
	}

	switch base.Type {
	case protocol.TypeInstance:
		var m protocol.InstanceMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return reject(protocol.ErrProtoBadRequest, "INSTANCE: %v", err)
		}
		return w.applyInstance(m)
	case protocol.TypeRelease:
		var m protocol.ReleaseMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return reject(protocol.ErrProtoBadRequest, "RELEASE: %v", err)
		}
		return w.applyRelease(m)
	case protocol.TypeLoading:
		var m protocol.LoadingMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return reject(protocol.ErrProtoBadRequest, "LOADING: %v", err)
		}
		w.loading = m.Loading
		return nil
	case protocol.TypeEvent:
		var m protocol.EventMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return reject(protocol.ErrProtoBadRequest, "EVENT: %v", err)
		}
		return w.applyEvent(m)
	case protocol.TypeSignal:
		var m protocol.SignalMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return reject(protocol.ErrProtoBadRequest, "SIGNAL: %v", err)
		}
		return w.applySignal(m)
	case protocol.TypeScene:
		var m protocol.SceneMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return reject(protocol.ErrProtoBadRequest, "SCENE: %v", err)
		}
		return w.applyScene(m)
	case protocol.TypeControl:
		var m protocol.ControlMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return reject(protocol.ErrProtoBadRequest, "CONTROL: %v", err)
		}
		return w.applyControl(m)
	default:
		return reject(protocol.ErrProtoUnknownType, "unknown message type %q", base.Type)
	}
}

func (w *World) applyInstance(m protocol.InstanceMsg) *rejection {
	key := strings.TrimSpace(m.Character)
	if key == "" {
		return reject(protocol.ErrBadRequest, "INSTANCE: missing character")
	}
	id := w.character(key)
	inst := session.InstanceID(strings.TrimSpace(m.Instance))
	if inst == "" {
		delete(w.instances, id)
		return nil
	}
	w.instances[id] = inst
	return nil
}

func (w *World) applyRelease(m protocol.ReleaseMsg) *rejection {
	inst := session.InstanceID(strings.TrimSpace(m.Instance))
	if inst == "" {
		return reject(protocol.ErrBadRequest, "RELEASE: missing instance")
	}
	for id, cur := range w.instances {
		if cur == inst {
			delete(w.instances, id)
		}
	}
	w.tracker.ReleaseInstance(inst)
	return nil
}

func (w *World) applyEvent(m protocol.EventMsg) *rejection {
	key := strings.TrimSpace(m.Character)
	if key == "" {
		return reject(protocol.ErrBadRequest, "EVENT: missing character")
	}
	kind := effects.EventKind(m.Kind)
	if !effects.KnownEvent(kind) {
		return reject(protocol.ErrUnknownEvent, "EVENT: unknown kind %q", m.Kind)
	}
	if m.Magnitude < 0 || math.IsNaN(m.Magnitude) {
		return reject(protocol.ErrBadRequest, "EVENT: magnitude %v", m.Magnitude)
	}
	id := w.character(key)
	ok := w.tracker.ApplyEvent(id, effects.Event{
		Kind:      kind,
		Region:    effects.Region(m.Region),
		Magnitude: m.Magnitude,
		First:     m.First,
	})
	if !ok {
		return reject(protocol.ErrUnknownCharacter, "EVENT: %s has no instance", key)
	}
	return nil
}

func (w *World) applySignal(m protocol.SignalMsg) *rejection {
	if !w.tracker.InScene() {
		return reject(protocol.ErrNoScene, "SIGNAL: no active scene")
	}
	ok := w.tracker.SetContact(m.Slot, effects.Contact{
		Region:     effects.Region(m.Region),
		Reacting:   m.Reacting,
		Caress:     m.Caress,
		ItemOnButt: m.ItemOnButt,
		Speed:      m.Speed,
	})
	if !ok {
		return reject(protocol.ErrBadRequest, "SIGNAL: slot %d outside the scene", m.Slot)
	}
	return nil
}

func (w *World) applyScene(m protocol.SceneMsg) *rejection {
	participants := make([]ids.CharacterID, 0, len(m.Participants))
	for _, key := range m.Participants {
		id := w.character(strings.TrimSpace(key))
		if id.IsZero() {
			return reject(protocol.ErrBadRequest, "SCENE: empty participant")
		}
		participants = append(participants, id)
	}

	switch m.Action {
	case protocol.SceneStart:
		kind := session.SceneKind(m.SceneKind)
		if kind == "" {
			kind = session.SceneH
		}
		err := w.tracker.StartScene(session.Scene{Kind: kind, Free: m.Free, Participants: participants})
		switch {
		case errors.Is(err, session.ErrSceneActive):
			return reject(protocol.ErrConflict, "SCENE: a scene is already active")
		case err != nil:
			return reject(protocol.ErrBadRequest, "SCENE: %v", err)
		}
		return nil
	case protocol.SceneEnd:
		if !w.tracker.EndScene() {
			return reject(protocol.ErrNoScene, "SCENE: no active scene")
		}
		return nil
	case protocol.SceneUnload:
		if len(participants) == 0 {
			return reject(protocol.ErrBadRequest, "SCENE: unload without participants")
		}
		for _, id := range participants {
			if err := w.tracker.SceneUnloaded(id); err != nil {
				return reject(protocol.ErrBadRequest, "SCENE: %v", err)
			}
		}
		return nil
	default:
		return reject(protocol.ErrBadRequest, "SCENE: unknown action %q", m.Action)
	}
}

func (w *World) applyControl(m protocol.ControlMsg) *rejection {
	switch m.Command {
	case protocol.ControlDayChanged:
		w.archiveDay()
		w.tracker.DayChanged()
	case protocol.ControlPeriodChanged:
		w.tracker.PeriodChanged()
	case protocol.ControlClearEffects:
		w.tracker.ClearVisible()
	default:
		return reject(protocol.ErrBadRequest, "CONTROL: unknown command %q", m.Command)
	}
	return nil
}
