package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/openfroyo/urigraph/pkg/telemetry"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using SQLite. Values are stored as JSON.
type SQLiteStore struct {
	db      *sql.DB
	cfg     Config
	metrics *telemetry.Metrics
}

var _ Store = (*SQLiteStore)(nil)

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Metrics records store operations when set.
	Metrics *telemetry.Metrics
}

// NewSQLiteStore creates a new SQLite store instance. Call Init and
// Migrate before use, or use OpenSQLite.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	// Every connection to :memory: is a separate database.
	if cfg.Path == ":memory:" {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
	}

	return &SQLiteStore{
		cfg:     cfg,
		metrics: cfg.Metrics,
	}, nil
}

// OpenSQLite creates, initializes and migrates a store.
func OpenSQLite(ctx context.Context, cfg Config) (*SQLiteStore, error) {
	s, err := NewSQLiteStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := s.cfg.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
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

// Migrate runs database migrations.
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

// HealthCheck verifies the database connection.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}

// ReadValue implements engine.LocalStore.
func (s *SQLiteStore) ReadValue(ctx context.Context, name string) (value any, found bool, err error) {
	defer func() { s.metrics.RecordStoreOperation(opRead, status(err)) }()

	var text string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM local_values WHERE name = ?`, name).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read local value: %w", err)
	}

	value, err = decodeValue(text)
	if err != nil {
		return nil, false, fmt.Errorf("local value %s: %w", name, err)
	}
	return value, true, nil
}

// WriteValue implements engine.LocalStore.
func (s *SQLiteStore) WriteValue(ctx context.Context, name string, value any) (err error) {
	defer func() { s.metrics.RecordStoreOperation(opWrite, status(err)) }()

	text, err := encodeValue(value)
	if err != nil {
		return fmt.Errorf("local value %s: %w", name, err)
	}

	query := `
		INSERT INTO local_values (name, value, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	if _, err = s.db.ExecContext(ctx, query, name, text, now, now); err != nil {
		return fmt.Errorf("failed to write local value: %w", err)
	}

	return nil
}

// DeleteValue removes a stored value.
func (s *SQLiteStore) DeleteValue(ctx context.Context, name string) (err error) {
	defer func() { s.metrics.RecordStoreOperation(opDelete, status(err)) }()

	result, err := s.db.ExecContext(ctx, `DELETE FROM local_values WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete local value: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return nil
}

// ListValues returns stored values whose names start with prefix.
func (s *SQLiteStore) ListValues(ctx context.Context, prefix string) (entries []*Entry, err error) {
	defer func() { s.metrics.RecordStoreOperation(opList, status(err)) }()

	query := `
		SELECT name, value, created_at, updated_at
		FROM local_values
		WHERE substr(name, 1, ?) = ?
		ORDER BY name
	`

	rows, err := s.db.QueryContext(ctx, query, utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list local values: %w", err)
	}
	defer rows.Close()

	entries = []*Entry{}
	for rows.Next() {
		var text string
		entry := &Entry{}
		if err := rows.Scan(&entry.Name, &text, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan local value: %w", err)
		}
		if entry.Value, err = decodeValue(text); err != nil {
			return nil, fmt.Errorf("local value %s: %w", entry.Name, err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating local values: %w", err)
	}

	return entries, nil
}
