package stores

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

	"github.com/glasspane/glasspane/pkg/engine"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore persists per-process settings and the event journal.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	return &SQLiteStore{
		path: cfg.Path,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// One engine per process writes rarely; a small pool is plenty.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations from the embedded sources.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// LoadSettings implements engine.SettingsStore.
func (s *SQLiteStore) LoadSettings(ctx context.Context, process string) (engine.Settings, bool, error) {
	query := `
		SELECT enabled, intensity, clear_chrome
		FROM settings
		WHERE process = ?
	`

	var (
		settings engine.Settings
		enabled  int
		chrome   int
	)
	err := s.db.QueryRowContext(ctx, query, process).Scan(&enabled, &settings.Intensity, &chrome)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Settings{}, false, nil
	}
	if err != nil {
		return engine.Settings{}, false, fmt.Errorf("failed to load settings: %w", err)
	}

	settings.Enabled = enabled != 0
	settings.ClearChrome = chrome != 0
	return settings, true, nil
}

// SaveSettings implements engine.SettingsStore with an upsert.
func (s *SQLiteStore) SaveSettings(ctx context.Context, process string, settings engine.Settings) error {
	query := `
		INSERT INTO settings (process, enabled, intensity, clear_chrome, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(process) DO UPDATE SET
			enabled = excluded.enabled,
			intensity = excluded.intensity,
			clear_chrome = excluded.clear_chrome,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, query,
		process,
		boolInt(settings.Enabled),
		settings.Intensity,
		boolInt(settings.ClearChrome),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// DeleteSettings removes a process's persisted settings.
func (s *SQLiteStore) DeleteSettings(ctx context.Context, process string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE process = ?`, process); err != nil {
		return fmt.Errorf("failed to delete settings: %w", err)
	}
	return nil
}

// ListSettings returns every persisted settings row, ordered by process.
func (s *SQLiteStore) ListSettings(ctx context.Context) ([]SettingsRecord, error) {
	query := `
		SELECT process, enabled, intensity, clear_chrome, created_at, updated_at
		FROM settings
		ORDER BY process
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []SettingsRecord
	for rows.Next() {
		var (
			rec     SettingsRecord
			enabled int
			chrome  int
		)
		if err := rows.Scan(&rec.Process, &enabled, &rec.Intensity, &chrome, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan settings: %w", err)
		}
		rec.Enabled = enabled != 0
		rec.ClearChrome = chrome != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RecordEvent journals one engine event. A missing ID is generated.
func (s *SQLiteStore) RecordEvent(ctx context.Context, rec EventRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO events (id, process, type, container_id, message, level, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Process,
		rec.Type,
		rec.ContainerID,
		rec.Message,
		rec.Level,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// RecentEvents returns the newest events for a process, newest first.
// An empty process returns events across every process.
func (s *SQLiteStore) RecentEvents(ctx context.Context, process string, limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, process, type, container_id, message, level, created_at
		FROM events
		WHERE (? = '' OR process = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, process, process, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []EventRecord
	for rows.Next() {
		var rec EventRecord
		if err := rows.Scan(&rec.ID, &rec.Process, &rec.Type, &rec.ContainerID, &rec.Message, &rec.Level, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PruneEvents deletes journal rows older than the cutoff and returns how
// many were removed.
func (s *SQLiteStore) PruneEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	return res.RowsAffected()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
