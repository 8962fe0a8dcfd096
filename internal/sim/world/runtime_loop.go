package world

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"skineffects.io/internal/protocol"
	"skineffects.io/internal/sim/effects"
	"skineffects.io/internal/sim/ids"
)

func (w *World) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.dt)
	defer ticker.Stop()
	defer w.tracker.Close()

	var pendingJoins []JoinRequest
	var pendingLeaves []string
	var pendingMsgs []Envelope
	var pendingExports []exportReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-w.leave:
			pendingLeaves = append(pendingLeaves, id)
		case req := <-w.exportReq:
			pendingExports = append(pendingExports, req)
		case env := <-w.inbox:
			pendingMsgs = append(pendingMsgs, env)
		case <-ticker.C:
			w.step(pendingJoins, pendingLeaves, pendingMsgs)
			w.handleExportRequests(pendingExports)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingMsgs = pendingMsgs[:0]
			pendingExports = pendingExports[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single frame using the same ordering
// semantics as the server. It is intended for deterministic replays and tests.
func (w *World) StepOnce(joins []JoinRequest, leaves []string, msgs []Envelope) (frame uint64, digest string) {
	frame = w.frame.Load()
	digest = w.step(joins, leaves, msgs)
	return frame, digest
}

func (w *World) step(joins []JoinRequest, leaves []string, msgs []Envelope) string {
	start := time.Now()
	frame := w.frame.Load()

	for _, req := range joins {
		w.handleJoin(req)
	}
	for _, id := range leaves {
		delete(w.clients, id)
	}

	var recorded []RecordedMessage
	rejected := 0
	for _, env := range msgs {
		rej := w.applyMessage(env.Raw)
		if json.Valid(env.Raw) {
			recorded = append(recorded, RecordedMessage{ClientID: env.ClientID, Msg: json.RawMessage(env.Raw)})
		}
		if rej != nil {
			rejected++
			w.sendTo(env.ClientID, protocol.NewError(rej.Code, rej.Message))
		}
	}

	w.tracker.Step(w.dt)
	w.tracker.ClearContacts()

	w.publishLevels(frame)
	w.flushDesires()

	digest := w.stateDigest(frame)
	if w.frameLogger != nil && len(recorded) > 0 {
		_ = w.frameLogger.WriteFrame(FrameLogEntry{
			Session:  w.sessionID,
			Frame:    frame,
			Messages: recorded,
			Rejected: rejected,
			Digest:   digest,
		})
	}

	w.frame.Add(1)
	w.updateMetrics(frame, time.Since(start))
	return digest
}

func (w *World) handleJoin(req JoinRequest) {
	n := w.nextClientNum.Add(1)
	clientID := fmt.Sprintf("H%d", n)
	w.clients[clientID] = &clientState{Name: req.HostName, Out: req.Out}
	// A new client has seen nothing yet.
	w.shown = map[ids.CharacterID]map[effects.Name]int{}
	if req.Resp == nil {
		return
	}
	req.Resp <- JoinResponse{
		ClientID: clientID,
		Welcome: protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			SessionID:       w.sessionID,
			FrameRateHz:     w.cfg.FrameRateHz,
		},
	}
}
