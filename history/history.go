// Package history durably records the outcome of every refresh cycle that
// ran an action. Outcomes fan out to the enabled sinks (SQLite always, JSONL
// when a path is configured); sink failures are logged and never propagate
// into the refresh loop.
package history

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const (
	envDBPath    = "INKDASH_HISTORY_DB_PATH"
	envJSONLPath = "INKDASH_HISTORY_JSONL"

	defaultDirName = ".inkdash"
	defaultDBName  = "history.sqlite"
	outcomeTable   = "refresh_outcomes"
)

// Cycle outcome statuses.
const (
	StatusDisplayed = "displayed"
	StatusSkipped   = "skipped"
	StatusAborted   = "aborted"
	StatusFailed    = "failed"
)

// Outcome is one recorded refresh cycle.
type Outcome struct {
	CycleID    string    `json:"cycle_id"`
	StartedAt  time.Time `json:"started_at"`
	PlaylistID string    `json:"playlist_id,omitempty"`
	PluginID   string    `json:"plugin_id,omitempty"`
	InstanceID string    `json:"instance_id,omitempty"`
	Manual     bool      `json:"manual,omitempty"`
	Status     string    `json:"status"`
	Step       string    `json:"step,omitempty"`
	ImageHash  string    `json:"image_hash,omitempty"`
	Error      string    `json:"error,omitempty"`
	ElapsedMS  int64     `json:"elapsed_ms"`
}

// Recorder accepts cycle outcomes.
type Recorder interface {
	Record(ctx context.Context, outcome Outcome)
}

// Noop discards outcomes.
type Noop struct{}

func (Noop) Record(ctx context.Context, outcome Outcome) {}

// Sink is one storage backend.
type Sink interface {
	Write(ctx context.Context, outcome Outcome) error
	Close() error
	Name() string
}

// Config controls which sinks a Manager enables.
type Config struct {
	DBPath    string
	JSONLPath string
}

// Manager fans outcomes out to all enabled sinks.
type Manager struct {
	sinks []Sink
}

// NewManager opens the configured sinks. The SQLite sink is always enabled;
// JSONL only when a path is set via Config or environment.
func NewManager(cfg Config) (*Manager, error) {
	sinks := make([]Sink, 0, 2)
	sqlite, err := newSQLiteSink(resolveDBPath(cfg.DBPath))
	if err != nil {
		return nil, err
	}
	sinks = append(sinks, sqlite)
	if path := resolveJSONLPath(cfg.JSONLPath); path != "" {
		jsonl, err := newJSONLSink(path)
		if err != nil {
			sqlite.Close()
			return nil, err
		}
		sinks = append(sinks, jsonl)
	}
	return &Manager{sinks: sinks}, nil
}

// Record writes the outcome to every sink, logging per-sink failures.
func (m *Manager) Record(ctx context.Context, outcome Outcome) {
	for _, sink := range m.sinks {
		if err := sink.Write(ctx, outcome); err != nil {
			log.Error().Err(err).Str("sink", sink.Name()).Str("cycle_id", outcome.CycleID).
				Msg("record refresh outcome failed")
		}
	}
}

// Close releases all sinks.
func (m *Manager) Close() error {
	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func resolveDBPath(override string) string {
	if v := strings.TrimSpace(override); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(envDBPath)); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, defaultDirName, defaultDBName)
}

func resolveJSONLPath(override string) string {
	if v := strings.TrimSpace(override); v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv(envJSONLPath))
}

type jsonlSink struct {
	path   string
	file   *os.File
	writer *bufio.Writer
}

func newJSONLSink(path string) (Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "history: create dir for %s", path)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "history: open jsonl %s", path)
	}
	return &jsonlSink{path: path, file: file, writer: bufio.NewWriter(file)}, nil
}

func (s *jsonlSink) Name() string { return "jsonl" }

func (s *jsonlSink) Write(ctx context.Context, outcome Outcome) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return errors.Wrap(err, "history: marshal outcome")
	}
	if _, err := s.writer.Write(append(data, '\n')); err != nil {
		return errors.Wrap(err, "history: append jsonl")
	}
	return errors.Wrap(s.writer.Flush(), "history: flush jsonl")
}

func (s *jsonlSink) Close() error {
	if err := s.writer.Flush(); err != nil {
		s.file.Close()
		return errors.Wrap(err, "history: flush jsonl on close")
	}
	return errors.Wrap(s.file.Close(), "history: close jsonl")
}

type sqliteSink struct {
	db   *sql.DB
	stmt *sql.Stmt
	path string
}

const outcomeSchema = `CREATE TABLE IF NOT EXISTS ` + outcomeTable + ` (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cycle_id TEXT NOT NULL,
	started_at TEXT NOT NULL,
	playlist_id TEXT,
	plugin_id TEXT,
	instance_id TEXT,
	manual INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	step TEXT,
	image_hash TEXT,
	error TEXT,
	elapsed_ms INTEGER NOT NULL DEFAULT 0
)`

const outcomeInsert = `INSERT INTO ` + outcomeTable +
	` (cycle_id, started_at, playlist_id, plugin_id, instance_id, manual, status, step, image_hash, error, elapsed_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func newSQLiteSink(path string) (Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "history: create dir for %s", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "history: open sqlite %s", path)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "history: enable wal")
	}
	if _, err := db.Exec(outcomeSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "history: create schema")
	}
	stmt, err := db.Prepare(outcomeInsert)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "history: prepare insert")
	}
	return &sqliteSink{db: db, stmt: stmt, path: path}, nil
}

func (s *sqliteSink) Name() string { return "sqlite" }

func (s *sqliteSink) Write(ctx context.Context, outcome Outcome) error {
	manual := 0
	if outcome.Manual {
		manual = 1
	}
	_, err := s.stmt.ExecContext(ctx,
		outcome.CycleID,
		outcome.StartedAt.UTC().Format(time.RFC3339Nano),
		outcome.PlaylistID,
		outcome.PluginID,
		outcome.InstanceID,
		manual,
		outcome.Status,
		outcome.Step,
		outcome.ImageHash,
		outcome.Error,
		outcome.ElapsedMS,
	)
	return errors.Wrap(err, "history: insert outcome")
}

func (s *sqliteSink) Close() error {
	s.stmt.Close()
	return errors.Wrap(s.db.Close(), "history: close sqlite")
}
