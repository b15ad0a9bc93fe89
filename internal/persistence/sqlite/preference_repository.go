package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/thekillacodar/Sparo-Exam-Sync/internal/persistence"
)

// PreferenceRepository implements persistence.PreferenceRepository using SQLite.
type PreferenceRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewPreferenceRepository creates a new SQLite preference repository.
func NewPreferenceRepository(pool *ConnectionPool) *PreferenceRepository {
	return &PreferenceRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

// UpsertPreference creates or replaces a user preference.
func (r *PreferenceRepository) UpsertPreference(ctx context.Context, p persistence.UserPreference) error {
	if strings.TrimSpace(p.UserID) == "" || strings.TrimSpace(p.Key) == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO user_preferences (user_id, pref_key, pref_value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, pref_key) DO UPDATE SET
			pref_value = excluded.pref_value,
			updated_at = excluded.updated_at
	`
	_, err := r.pool.conn(ctx).ExecContext(ctx, query,
		p.UserID, p.Key, p.Value, formatTimestamp(nowIfZero(p.UpdatedAt)))
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// ListPreferences returns the user's preferences ordered by key.
func (r *PreferenceRepository) ListPreferences(ctx context.Context, userID string, updatedAfter *time.Time) ([]persistence.UserPreference, error) {
	query := `SELECT user_id, pref_key, pref_value, updated_at FROM user_preferences WHERE user_id = ?`
	args := []any{userID}
	if updatedAfter != nil {
		query += " AND updated_at > ?"
		args = append(args, formatTimestamp(*updatedAfter))
	}
	query += " ORDER BY pref_key ASC"

	rows, err := r.pool.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	preferences := make([]persistence.UserPreference, 0)
	for rows.Next() {
		var (
			p         persistence.UserPreference
			updatedAt string
		)
		if err := rows.Scan(&p.UserID, &p.Key, &p.Value, &updatedAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if p.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
			return nil, err
		}
		preferences = append(preferences, p)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return preferences, nil
}

var _ persistence.PreferenceRepository = (*PreferenceRepository)(nil)
