// File path: internal/catalog/catalog.go
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Run kinds recorded by the pipeline commands.
const (
	KindGenerate    = "generate"
	KindBuild       = "build"
	KindInstantiate = "instantiate"
	KindEvaluate    = "evaluate"
	KindIngest      = "ingest"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

var (
	// ErrUnknownKind rejects a run kind outside the pipeline vocabulary.
	ErrUnknownKind = errors.New("unknown run kind")
	// ErrRunNotFound reports a run id absent from the catalog.
	ErrRunNotFound = errors.New("run not found")
)

var knownKinds = map[string]bool{
	KindGenerate:    true,
	KindBuild:       true,
	KindInstantiate: true,
	KindEvaluate:    true,
	KindIngest:      true,
}

// Run is one recorded pipeline invocation.
type Run struct {
	ID         string       `db:"id" json:"id"`
	Kind       string       `db:"kind" json:"kind"`
	Status     string       `db:"status" json:"status"`
	Detail     string       `db:"detail" json:"detail,omitempty"`
	StartedAt  time.Time    `db:"started_at" json:"started_at"`
	FinishedAt sql.NullTime `db:"finished_at" json:"finished_at,omitempty"`
}

// Duration reports the elapsed run time, zero while the run is still open.
func (r Run) Duration() time.Duration {
	if !r.FinishedAt.Valid {
		return 0
	}
	return r.FinishedAt.Time.Sub(r.StartedAt)
}

// Catalog wraps a pooled sqlx.DB connection to the SQLite run catalog.
type Catalog struct {
	db *sqlx.DB
}

// Open constructs a Catalog backed by the SQLite database at the provided
// path. The schema is migrated on first use.
func Open(path string) (*Catalog, error) {
	cfg := LoadConfig()
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		cfg.Path = trimmed
	}
	return OpenWithConfig(cfg)
}

// OpenWithConfig constructs a Catalog using the provided configuration.
func OpenWithConfig(cfg Config) (*Catalog, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("catalog path required")
	}
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog path: %w", err)
	}
	busy := int(cfg.BusyTimeout / time.Millisecond)
	if busy <= 0 {
		busy = 5000
	}
	// journal_mode and foreign_keys ride on the DSN so every pooled
	// connection gets them; SQLite refuses journal_mode changes inside the
	// migration transaction.
	dsn := fmt.Sprintf("file:%s?_time_format=sqlite&_pragma=busy_timeout(%d)&_pragma=journal_mode(wal)&_pragma=foreign_keys(1)", abs, busy)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	pingTimeout := cfg.BusyTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping catalog: %w", err)
	}

	cat := &Catalog{db: db}
	if err := cat.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return cat, nil
}

// Close releases the underlying database resources.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Catalog) migrate(ctx context.Context) error {
	if c == nil || c.db == nil {
		return errors.New("catalog not initialised")
	}
	tx, err := c.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute schema statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS runs (
                id TEXT PRIMARY KEY,
                kind TEXT NOT NULL,
                status TEXT NOT NULL DEFAULT 'running',
                detail TEXT NOT NULL DEFAULT '{}',
                started_at DATETIME NOT NULL,
                finished_at DATETIME
        );`,
	`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);`,
	`CREATE INDEX IF NOT EXISTS idx_runs_kind_started ON runs(kind, started_at);`,
}

// Begin records a new run of the given kind and returns its id.
func (c *Catalog) Begin(ctx context.Context, kind string, detail map[string]any) (string, error) {
	if c == nil || c.db == nil {
		return "", errors.New("catalog not initialised")
	}
	kind = strings.TrimSpace(kind)
	if !knownKinds[kind] {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	payload, err := marshalDetail(detail)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	query := `INSERT INTO runs(id, kind, status, detail, started_at) VALUES(?, ?, ?, ?, ?)`
	if _, err := c.db.ExecContext(ctx, query, id, kind, StatusRunning, payload, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("record run start: %w", err)
	}
	return id, nil
}

// Finish closes a run with its final status. A nil detail keeps the detail
// recorded at Begin; a non-nil detail replaces it.
func (c *Catalog) Finish(ctx context.Context, id, status string, detail map[string]any) error {
	if c == nil || c.db == nil {
		return errors.New("catalog not initialised")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrRunNotFound)
	}
	now := time.Now().UTC()
	var res sql.Result
	var err error
	if detail == nil {
		res, err = c.db.ExecContext(ctx, `UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`, status, now, id)
	} else {
		var payload string
		payload, err = marshalDetail(detail)
		if err != nil {
			return err
		}
		res, err = c.db.ExecContext(ctx, `UPDATE runs SET status = ?, finished_at = ?, detail = ? WHERE id = ?`, status, now, payload, id)
	}
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// Get retrieves a single run by id.
func (c *Catalog) Get(ctx context.Context, id string) (*Run, error) {
	if c == nil || c.db == nil {
		return nil, errors.New("catalog not initialised")
	}
	var run Run
	err := c.db.GetContext(ctx, &run, `SELECT id, kind, status, detail, started_at, finished_at FROM runs WHERE id = ?`, strings.TrimSpace(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	return &run, nil
}

// Recent returns the newest runs first, at most limit entries.
func (c *Catalog) Recent(ctx context.Context, limit int) ([]Run, error) {
	if c == nil || c.db == nil {
		return nil, errors.New("catalog not initialised")
	}
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	query := `SELECT id, kind, status, detail, started_at, finished_at FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`
	if err := c.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	return runs, nil
}

func marshalDetail(detail map[string]any) (string, error) {
	if detail == nil {
		return "{}", nil
	}
	data, err := json.Marshal(detail)
	if err != nil {
		return "", fmt.Errorf("encode run detail: %w", err)
	}
	return string(data), nil
}
