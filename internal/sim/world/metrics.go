package world

import "time"

// WorldMetrics is a thread-safe read-only view of key runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Frame uint64 `json:"frame"`

	Characters   int  `json:"characters"`
	Instances    int  `json:"instances"`
	Clients      int  `json:"clients"`
	StoreEntries int  `json:"store_entries"`
	PendingTasks int  `json:"pending_tasks"`
	HandOffs     int  `json:"hand_offs"`
	InScene      bool `json:"in_scene"`
	Loading      bool `json:"loading"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS float64 `json:"step_ms"`
}

type QueueDepths struct {
	Inbox  int `json:"inbox"`
	Join   int `json:"join"`
	Leave  int `json:"leave"`
	Export int `json:"export"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}

func (w *World) updateMetrics(frame uint64, took time.Duration) {
	w.metrics.Store(WorldMetrics{
		Frame:        frame,
		Characters:   len(w.tracker.Characters()),
		Instances:    w.tracker.Instances(),
		Clients:      len(w.clients),
		StoreEntries: w.tracker.Store().Len(),
		PendingTasks: w.tracker.Scheduler().Len(),
		HandOffs:     w.tracker.Coordinator().Pending(),
		InScene:      w.tracker.InScene(),
		Loading:      w.loading,
		QueueDepths: QueueDepths{
			Inbox:  len(w.inbox),
			Join:   len(w.join),
			Leave:  len(w.leave),
			Export: len(w.exportReq),
		},
		StepMS: float64(took.Microseconds()) / 1000,
	})
}
