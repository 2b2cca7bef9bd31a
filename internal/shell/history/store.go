// Package history keeps a local ledger of build runs in SQLite so operators
// can see which variant was built, how many attempt tiers it took, and
// whether the run succeeded.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/artpar/botdeploy/internal/shell/builder"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// Error Types
// =============================================================================

var (
	ErrConnectionFailed = errors.New("history database connection failed")
	ErrMigrationFailed  = errors.New("history migration failed")
)

// StoreError wraps store failures with operation context.
type StoreError struct {
	Op      string
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Record Types
// =============================================================================

// BuildRun is one recorded build invocation.
type BuildRun struct {
	ID          string    `db:"id"`
	Variant     string    `db:"variant"`
	Dockerfile  string    `db:"dockerfile"`
	ImageRef    string    `db:"image_ref"`
	Attempts    int       `db:"attempts"`
	WinningTier string    `db:"winning_tier"`
	Success     bool      `db:"success"`
	DurationMS  int64     `db:"duration_ms"`
	StartedAt   time.Time `db:"started_at"`
}

// =============================================================================
// Store
// =============================================================================

// Store is the SQLite-backed build ledger.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the ledger database and runs migrations.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, &StoreError{Op: "Open", Message: "failed to open database", Err: ErrConnectionFailed}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &StoreError{Op: "Open", Message: "failed to ping database", Err: ErrConnectionFailed}
	}
	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, &StoreError{Op: "Open", Message: err.Error(), Err: ErrMigrationFailed}
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// =============================================================================
// Recording
// =============================================================================

// RecordBuild persists one build outcome. Implements builder.Recorder.
func (s *Store) RecordBuild(ctx context.Context, result builder.Result) error {
	run := BuildRun{
		ID:          uuid.NewString(),
		Variant:     result.Variant,
		Dockerfile:  result.Dockerfile,
		ImageRef:    result.ImageRef,
		Attempts:    result.Attempts,
		WinningTier: string(result.WinningTier),
		Success:     result.Success,
		DurationMS:  result.Duration.Milliseconds(),
		StartedAt:   result.StartedAt.UTC(),
	}

	const query = `
		INSERT INTO build_runs (id, variant, dockerfile, image_ref, attempts, winning_tier, success, duration_ms, started_at)
		VALUES (:id, :variant, :dockerfile, :image_ref, :attempts, :winning_tier, :success, :duration_ms, :started_at)`

	if _, err := s.db.NamedExecContext(ctx, query, run); err != nil {
		return &StoreError{Op: "RecordBuild", Message: err.Error(), Err: err}
	}
	return nil
}

// RecentBuilds returns the most recent runs, newest first.
func (s *Store) RecentBuilds(ctx context.Context, limit int) ([]BuildRun, error) {
	if limit <= 0 {
		limit = 20
	}

	var runs []BuildRun
	const query = `
		SELECT id, variant, dockerfile, image_ref, attempts, winning_tier, success, duration_ms, started_at
		FROM build_runs
		ORDER BY started_at DESC, id
		LIMIT ?`

	if err := s.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, &StoreError{Op: "RecentBuilds", Message: err.Error(), Err: err}
	}
	return runs, nil
}
