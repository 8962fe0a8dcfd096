package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"skineffects.io/internal/sim/world"
)

// Reader queries an existing index for operator tooling. It never writes.
type Reader struct {
	db *sql.DB
}

func OpenReader(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Close() error { return r.db.Close() }

type TransitionFilter struct {
	Session string
	// Character matches either the character id or the host key.
	Character string
	Stage     string
	FromFrame uint64
	Limit     int
}

func (r *Reader) Transitions(ctx context.Context, f TransitionFilter) ([]world.TransitionEntry, error) {
	var (
		where []string
		args  []any
	)
	if f.Session != "" {
		where = append(where, "session_id = ?")
		args = append(args, f.Session)
	}
	if f.Character != "" {
		where = append(where, "(character = ? OR char_key = ?)")
		args = append(args, f.Character, f.Character)
	}
	if f.Stage != "" {
		where = append(where, "stage = ?")
		args = append(args, f.Stage)
	}
	if f.FromFrame > 0 {
		where = append(where, "frame >= ?")
		args = append(args, int64(f.FromFrame))
	}
	q := `SELECT session_id,frame,character,char_key,stage,policy,after_scene,from_instance,to_instance,restored,interrupted FROM transitions`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id"
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []world.TransitionEntry
	for rows.Next() {
		var (
			e                                 world.TransitionEntry
			frame                             int64
			afterScene, restored, interrupted int
		)
		if err := rows.Scan(&e.Session, &frame, &e.Character, &e.Key, &e.Stage, &e.Policy, &afterScene, &e.From, &e.To, &restored, &interrupted); err != nil {
			return nil, err
		}
		e.Frame = uint64(frame)
		e.AfterScene = afterScene != 0
		e.Restored = restored != 0
		e.Interrupted = interrupted != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

type ExportRecord struct {
	Frame      uint64 `json:"frame"`
	SessionID  string `json:"session_id"`
	Path       string `json:"path"`
	Entries    int    `json:"entries"`
	RecordedAt string `json:"recorded_at"`
}

func (r *Reader) Exports(ctx context.Context) ([]ExportRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT frame,session_id,path,entries,recorded_at FROM exports ORDER BY recorded_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExportRecord
	for rows.Next() {
		var (
			e     ExportRecord
			frame int64
		)
		if err := rows.Scan(&frame, &e.SessionID, &e.Path, &e.Entries, &e.RecordedAt); err != nil {
			return nil, err
		}
		e.Frame = uint64(frame)
		out = append(out, e)
	}
	return out, rows.Err()
}

// SessionSummary describes one server run recorded in the frames table.
type SessionSummary struct {
	SessionID  string `json:"session_id"`
	Frames     int    `json:"frames"`
	FirstFrame uint64 `json:"first_frame"`
	LastFrame  uint64 `json:"last_frame"`
	Rejected   int    `json:"rejected"`
}

func (r *Reader) Sessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT session_id, COUNT(*), MIN(frame), MAX(frame), COALESCE(SUM(rejected),0)
		FROM frames GROUP BY session_id ORDER BY MIN(rowid)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SessionSummary
	for rows.Next() {
		var (
			s           SessionSummary
			first, last int64
		)
		if err := rows.Scan(&s.SessionID, &s.Frames, &first, &last, &s.Rejected); err != nil {
			return nil, err
		}
		s.FirstFrame = uint64(first)
		s.LastFrame = uint64(last)
		out = append(out, s)
	}
	return out, rows.Err()
}
