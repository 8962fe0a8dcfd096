package world

import (
	"encoding/json"

	"skineffects.io/internal/protocol"
	"skineffects.io/internal/sim/effects"
)

// publishLevels sends LEVELS for every character whose levels differ from
// what was last sent.
func (w *World) publishLevels(frame uint64) {
	for _, id := range w.tracker.Characters() {
		lv, ok := w.tracker.Levels(id)
		if !ok {
			continue
		}
		if sameLevels(w.shown[id], lv) {
			continue
		}
		w.shown[id] = lv
		out := make(map[string]int, len(lv))
		for n, v := range lv {
			out[string(n)] = v
		}
		w.broadcast(protocol.LevelsMsg{
			Type:            protocol.TypeLevels,
			ProtocolVersion: protocol.Version,
			Frame:           frame,
			Character:       w.keyOf(id),
			Levels:          out,
		})
	}
}

func sameLevels(a, b map[effects.Name]int) bool {
	if a == nil || len(a) != len(b) {
		return false
	}
	for n, v := range b {
		if a[n] != v {
			return false
		}
	}
	return true
}

func (w *World) flushDesires() {
	for _, d := range w.desires {
		w.broadcast(d)
	}
	w.desires = w.desires[:0]
}

func (w *World) broadcast(v any) {
	if len(w.clients) == 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	for _, c := range w.clients {
		sendLatest(c.Out, b)
	}
}

func (w *World) sendTo(clientID string, v any) {
	c := w.clients[clientID]
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	sendLatest(c.Out, b)
}

// sendLatest never blocks the world loop; a full queue drops its oldest message.
func sendLatest(ch chan []byte, b []byte) {
	if ch == nil {
		return
	}
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
