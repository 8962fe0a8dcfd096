package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"path/filepath"
	"strings"
	"time"

	"skineffects.io/internal/persistence/snapshot"
	"skineffects.io/internal/sim/world"
	"skineffects.io/internal/transport/ws"
)

type httpDeps struct {
	World       *world.World
	WorldID     string
	SessionDir  string
	Index       runtimeIndex
	EnableAdmin bool
	EnablePprof bool
	Logger      *log.Logger
}

func newMux(d httpDeps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(d))

	if d.EnableAdmin {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				WorldID   string             `json:"world_id"`
				SessionID string             `json:"session_id"`
				Frame     uint64             `json:"frame"`
				Metrics   world.WorldMetrics `json:"metrics"`
			}{
				WorldID:   d.WorldID,
				SessionID: d.World.SessionID(),
				Frame:     d.World.CurrentFrame(),
				Metrics:   d.World.Metrics(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
		mux.HandleFunc("/admin/v1/export", exportHandler(d))
	} else {
		d.Logger.Printf("admin endpoints disabled (SFX_ENABLE_ADMIN_HTTP=false)")
	}
	if d.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(d.World, d.Logger).Handler())
	return mux
}

func exportHandler(d httpDeps) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		rw.Header().Set("Content-Type", "application/json")
		snap, err := d.World.RequestExport(ctx)
		if err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
			return
		}
		path := filepath.Join(d.SessionDir, "exports", fmt.Sprintf("%d.store.zst", snap.Header.Frame))
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			d.Logger.Printf("export write: %v", err)
			rw.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "frame": snap.Header.Frame, "error": err.Error()})
			return
		}
		if d.Index != nil {
			d.Index.RecordExport(path, snap)
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{
			"ok":      true,
			"frame":   snap.Header.Frame,
			"path":    path,
			"entries": len(snap.Entries),
		})
	}
}

func metricsHandler(d httpDeps) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := d.World.Metrics()
		frame := d.World.CurrentFrame()
		if m.Frame != 0 {
			frame = m.Frame
		}
		id := d.WorldID

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP skineffects_frame Current simulation frame.\n")
		fmt.Fprintf(rw, "# TYPE skineffects_frame gauge\n")
		fmt.Fprintf(rw, "skineffects_frame{world=%q} %d\n", id, frame)

		fmt.Fprintf(rw, "# HELP skineffects_characters Characters with tracked effect state.\n")
		fmt.Fprintf(rw, "# TYPE skineffects_characters gauge\n")
		fmt.Fprintf(rw, "skineffects_characters{world=%q} %d\n", id, m.Characters)

		fmt.Fprintf(rw, "# HELP skineffects_instances Live character instances reported by the host.\n")
		fmt.Fprintf(rw, "# TYPE skineffects_instances gauge\n")
		fmt.Fprintf(rw, "skineffects_instances{world=%q} %d\n", id, m.Instances)

		fmt.Fprintf(rw, "# HELP skineffects_clients Connected host clients.\n")
		fmt.Fprintf(rw, "# TYPE skineffects_clients gauge\n")
		fmt.Fprintf(rw, "skineffects_clients{world=%q} %d\n", id, m.Clients)

		fmt.Fprintf(rw, "# HELP skineffects_store_entries Persisted snapshots awaiting restore.\n")
		fmt.Fprintf(rw, "# TYPE skineffects_store_entries gauge\n")
		fmt.Fprintf(rw, "skineffects_store_entries{world=%q} %d\n", id, m.StoreEntries)

		fmt.Fprintf(rw, "# HELP skineffects_pending_tasks Suspended scheduler tasks.\n")
		fmt.Fprintf(rw, "# TYPE skineffects_pending_tasks gauge\n")
		fmt.Fprintf(rw, "skineffects_pending_tasks{world=%q} %d\n", id, m.PendingTasks)

		fmt.Fprintf(rw, "# HELP skineffects_hand_offs Running scene transition hand-offs.\n")
		fmt.Fprintf(rw, "# TYPE skineffects_hand_offs gauge\n")
		fmt.Fprintf(rw, "skineffects_hand_offs{world=%q} %d\n", id, m.HandOffs)

		fmt.Fprintf(rw, "# HELP skineffects_in_scene Whether a scene is running.\n")
		fmt.Fprintf(rw, "# TYPE skineffects_in_scene gauge\n")
		fmt.Fprintf(rw, "skineffects_in_scene{world=%q} %d\n", id, boolGauge(m.InScene))

		fmt.Fprintf(rw, "# HELP skineffects_loading Whether the host reports a loading fade.\n")
		fmt.Fprintf(rw, "# TYPE skineffects_loading gauge\n")
		fmt.Fprintf(rw, "skineffects_loading{world=%q} %d\n", id, boolGauge(m.Loading))

		fmt.Fprintf(rw, "# HELP skineffects_queue_depth Channel backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE skineffects_queue_depth gauge\n")
		fmt.Fprintf(rw, "skineffects_queue_depth{world=%q,queue=%q} %d\n", id, "inbox", m.QueueDepths.Inbox)
		fmt.Fprintf(rw, "skineffects_queue_depth{world=%q,queue=%q} %d\n", id, "join", m.QueueDepths.Join)
		fmt.Fprintf(rw, "skineffects_queue_depth{world=%q,queue=%q} %d\n", id, "leave", m.QueueDepths.Leave)
		fmt.Fprintf(rw, "skineffects_queue_depth{world=%q,queue=%q} %d\n", id, "export", m.QueueDepths.Export)

		fmt.Fprintf(rw, "# HELP skineffects_step_ms Last frame step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE skineffects_step_ms gauge\n")
		fmt.Fprintf(rw, "skineffects_step_ms{world=%q} %.3f\n", id, m.StepMS)

		if d.Index != nil {
			s := d.Index.Stats()
			fmt.Fprintf(rw, "# HELP skineffects_index_queue_depth Index writer backlog.\n")
			fmt.Fprintf(rw, "# TYPE skineffects_index_queue_depth gauge\n")
			fmt.Fprintf(rw, "skineffects_index_queue_depth{world=%q} %d\n", id, s.QueueDepth)

			fmt.Fprintf(rw, "# HELP skineffects_index_dropped_total Index rows dropped because the writer fell behind.\n")
			fmt.Fprintf(rw, "# TYPE skineffects_index_dropped_total counter\n")
			fmt.Fprintf(rw, "skineffects_index_dropped_total{world=%q,kind=%q} %d\n", id, "frame", s.DropFrameTotal)
			fmt.Fprintf(rw, "skineffects_index_dropped_total{world=%q,kind=%q} %d\n", id, "transition", s.DropTransitionTotal)
			fmt.Fprintf(rw, "skineffects_index_dropped_total{world=%q,kind=%q} %d\n", id, "export", s.DropExportTotal)
		}
	}
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
