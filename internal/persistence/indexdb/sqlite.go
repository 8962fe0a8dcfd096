package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"skineffects.io/internal/persistence/snapshot"
	"skineffects.io/internal/sim/tuning"
	"skineffects.io/internal/sim/world"
)

// SQLiteIndex is a queryable read-model of the frame journal, hand-offs and
// store exports. Writes are queued to a single writer goroutine; the sim
// never waits on the database.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropFrame      atomic.Uint64
	dropTransition atomic.Uint64
	dropExport     atomic.Uint64
}

type reqKind int

const (
	reqFrame reqKind = iota + 1
	reqTransition
	reqExport
)

type req struct {
	kind reqKind

	frame      world.FrameLogEntry
	transition world.TransitionEntry
	export     exportRow
}

type exportRow struct {
	Frame      uint64
	SessionID  string
	Path       string
	Entries    int
	RecordedAt string
}

type Stats struct {
	QueueDepth    int `json:"queue_depth"`
	QueueCapacity int `json:"queue_capacity"`

	DropFrameTotal      uint64 `json:"drop_frame_total"`
	DropTransitionTotal uint64 `json:"drop_transition_total"`
	DropExportTotal     uint64 `json:"drop_export_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

const schemaVersion = "2"

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`); err != nil {
		return err
	}
	// Version 1 keyed frames by frame number alone, so a restarted server
	// overwrote the previous run. The journal is the source of truth; the old
	// tables are rebuilt empty.
	var ver string
	err := db.QueryRow(`SELECT value FROM meta WHERE key='schema_version'`).Scan(&ver)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if ver != "" && ver != schemaVersion {
		for _, t := range []string{"frames", "transitions"} {
			if _, err := db.Exec(`DROP TABLE IF EXISTS ` + t); err != nil {
				return err
			}
		}
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS frames (
			session_id TEXT NOT NULL,
			frame INTEGER NOT NULL,
			digest TEXT NOT NULL,
			messages INTEGER NOT NULL,
			rejected INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (session_id, frame)
		);`,
		`CREATE TABLE IF NOT EXISTS transitions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			frame INTEGER NOT NULL,
			character TEXT NOT NULL,
			char_key TEXT NOT NULL,
			stage TEXT NOT NULL,
			policy TEXT NOT NULL,
			after_scene INTEGER NOT NULL,
			from_instance TEXT NOT NULL,
			to_instance TEXT NOT NULL,
			restored INTEGER NOT NULL,
			interrupted INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_transitions_character_frame ON transitions(character, session_id, frame);`,
		`CREATE TABLE IF NOT EXISTS exports (
			frame INTEGER NOT NULL,
			session_id TEXT NOT NULL,
			path TEXT NOT NULL,
			entries INTEGER NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (session_id, frame)
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','` + schemaVersion + `')`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:          len(s.ch),
		QueueCapacity:       cap(s.ch),
		DropFrameTotal:      s.dropFrame.Load(),
		DropTransitionTotal: s.dropTransition.Load(),
		DropExportTotal:     s.dropExport.Load(),
	}
}

func (s *SQLiteIndex) WriteFrame(entry world.FrameLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqFrame, frame: entry}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropFrame.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteTransition(entry world.TransitionEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTransition, transition: entry}:
	default:
		s.dropTransition.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordExport(path string, snap snapshot.StoreV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := exportRow{
		Frame:      snap.Header.Frame,
		SessionID:  snap.Header.SessionID,
		Path:       path,
		Entries:    len(snap.Entries),
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqExport, export: r}:
	default:
		s.dropExport.Add(1)
	}
}

// UpsertTuning stores the tuning actually applied, so index rows can be read
// against the rates that produced them.
func (s *SQLiteIndex) UpsertTuning(tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('tuning',?)`, string(b)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	insertFrame, _ := s.db.Prepare(`INSERT OR REPLACE INTO frames(session_id,frame,digest,messages,rejected,raw_json) VALUES(?,?,?,?,?,?)`)
	insertTransition, _ := s.db.Prepare(`INSERT INTO transitions(session_id,frame,character,char_key,stage,policy,after_scene,from_instance,to_instance,restored,interrupted) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	insertExport, _ := s.db.Prepare(`INSERT OR REPLACE INTO exports(frame,session_id,path,entries,recorded_at) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertFrame, insertTransition, insertExport} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqFrame:
			b, _ := json.Marshal(r.frame)
			if insertFrame != nil {
				if _, err := tx.Stmt(insertFrame).Exec(
					r.frame.Session,
					int64(r.frame.Frame),
					r.frame.Digest,
					len(r.frame.Messages),
					r.frame.Rejected,
					string(b),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqTransition:
			e := r.transition
			if insertTransition != nil {
				if _, err := tx.Stmt(insertTransition).Exec(
					e.Session,
					int64(e.Frame),
					e.Character,
					e.Key,
					e.Stage,
					e.Policy,
					boolInt(e.AfterScene),
					e.From,
					e.To,
					boolInt(e.Restored),
					boolInt(e.Interrupted),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqExport:
			ex := r.export
			if insertExport != nil {
				if _, err := tx.Stmt(insertExport).Exec(
					int64(ex.Frame),
					ex.SessionID,
					ex.Path,
					ex.Entries,
					ex.RecordedAt,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
