package sqlite

import (
	"context"
	"log/slog"
)

// Storage bundles the connection pool with every SQLite repository so callers
// can open, migrate and share a single database handle.
type Storage struct {
	*ExamRepository
	*PendingChangeRepository
	*NotificationRepository
	*PreferenceRepository

	pool   *ConnectionPool
	logger *slog.Logger
}

// Open connects to the database described by config. Call Migrate before use.
func Open(ctx context.Context, config Config, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}

	return &Storage{
		ExamRepository:          NewExamRepository(pool),
		PendingChangeRepository: NewPendingChangeRepository(pool),
		NotificationRepository:  NewNotificationRepository(pool),
		PreferenceRepository:    NewPreferenceRepository(pool),
		pool:                    pool,
		logger:                  logger,
	}, nil
}

// Pool exposes the underlying connection pool.
func (s *Storage) Pool() *ConnectionPool {
	return s.pool
}

// Migrate brings the schema up to date.
func (s *Storage) Migrate(ctx context.Context) error {
	return Migrate(ctx, s.pool, s.logger)
}

// WithTransaction runs fn in a transaction shared by every repository call made
// with the context fn receives.
func (s *Storage) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.pool.WithTransaction(ctx, fn)
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the database handle.
func (s *Storage) Close() error {
	return s.pool.Close()
}
