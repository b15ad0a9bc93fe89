package sqlite

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrator applies the embedded schema migrations with goose.
type Migrator struct {
	provider *goose.Provider
	logger   *slog.Logger
}

// NewMigrator prepares a goose provider over the pool's database.
func NewMigrator(pool *ConnectionPool, logger *slog.Logger) (*Migrator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fsys, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, pool.DB(), fsys)
	if err != nil {
		return nil, fmt.Errorf("create goose provider: %w", err)
	}

	return &Migrator{provider: provider, logger: logger}, nil
}

// Run applies all pending migrations.
func (m *Migrator) Run(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	for _, result := range results {
		if result == nil || result.Source == nil {
			continue
		}
		m.logger.InfoContext(ctx, "migration applied",
			"version", result.Source.Version,
			"path", result.Source.Path,
			"duration", result.Duration,
		)
	}

	version, err := m.Version(ctx)
	if err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "schema is up to date", "version", version, "applied", len(results))
	return nil
}

// Version reports the current schema version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	version, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("get schema version: %w", err)
	}
	return version, nil
}

// Migrate is a convenience wrapper that builds a Migrator and runs it.
func Migrate(ctx context.Context, pool *ConnectionPool, logger *slog.Logger) error {
	migrator, err := NewMigrator(pool, logger)
	if err != nil {
		return err
	}
	return migrator.Run(ctx)
}
