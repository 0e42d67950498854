package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/notespace/internal/db"
)

//go:embed sql/*.sql
var embeddedFiles embed.FS

// Migrator manages database migrations
type Migrator struct {
	db     db.DBTX
	files  fs.FS
	logger zerolog.Logger
}

// NewMigrator creates a migrator over the SQL files compiled into the binary
func NewMigrator(conn db.DBTX, logger zerolog.Logger) *Migrator {
	sub, _ := fs.Sub(embeddedFiles, "sql")
	return NewMigratorFS(conn, sub, logger)
}

// NewMigratorFS creates a migrator reading *.sql files from the root of files
func NewMigratorFS(conn db.DBTX, files fs.FS, logger zerolog.Logger) *Migrator {
	return &Migrator{
		db:     conn,
		files:  files,
		logger: logger,
	}
}

// ensureMigrationTableExists creates the migration tracking table if it doesn't exist
func (m *Migrator) ensureMigrationTableExists(ctx context.Context) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`

	if _, err := m.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create migration tracking table: %w", err)
	}
	return nil
}

// isMigrationApplied checks if a specific migration has already been applied
func (m *Migrator) isMigrationApplied(ctx context.Context, version string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`
	if err := m.db.QueryRow(ctx, query, version).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	return exists, nil
}

// Versions returns the migration file names in the order they are applied
func (m *Migrator) Versions() ([]string, error) {
	entries, err := fs.ReadDir(m.files, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Migrate applies every pending migration, each in its own transaction
func (m *Migrator) Migrate(ctx context.Context) error {
	// Make sure the tracking table exists
	if err := m.ensureMigrationTableExists(ctx); err != nil {
		return err
	}

	// Apply files in lexical order
	names, err := m.Versions()
	if err != nil {
		return err
	}

	for _, name := range names {
		if err := m.apply(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// apply runs a single file. "001_init.sql" is recorded as version "001".
func (m *Migrator) apply(ctx context.Context, name string) error {
	version := strings.SplitN(path.Base(name), "_", 2)[0]

	applied, err := m.isMigrationApplied(ctx, version)
	if err != nil {
		return err
	}
	if applied {
		m.logger.Debug().Str("file", name).Msg("Migration already applied, skipping")
		return nil
	}

	// Read migration file
	content, err := fs.ReadFile(m.files, name)
	if err != nil {
		return fmt.Errorf("failed to read migration file %s: %w", name, err)
	}

	// Execute migration and record it atomically
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	if _, err := tx.Exec(ctx, string(content)); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("migration %s failed: %w", name, err)
	}

	// Mark as applied
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES ($1, $2)`, version, time.Now()); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	m.logger.Info().Str("file", name).Msg("Migration applied")
	return nil
}
