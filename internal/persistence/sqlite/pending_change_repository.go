package sqlite

import (
	"context"
	"strings"

	"github.com/thekillacodar/Sparo-Exam-Sync/internal/persistence"
)

// PendingChangeRepository implements persistence.PendingChangeRepository using SQLite.
type PendingChangeRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewPendingChangeRepository creates a new SQLite pending change repository.
func NewPendingChangeRepository(pool *ConnectionPool) *PendingChangeRepository {
	return &PendingChangeRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

// SavePendingChange stores change, replacing any earlier record with the same
// user and change id so that re-uploading a batch does not duplicate it.
func (r *PendingChangeRepository) SavePendingChange(ctx context.Context, change persistence.PendingChange) error {
	if strings.TrimSpace(change.ChangeID) == "" || strings.TrimSpace(change.UserID) == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO pending_changes (change_id, user_id, device_id, change_type, action, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, change_id) DO UPDATE SET
			device_id = excluded.device_id,
			change_type = excluded.change_type,
			action = excluded.action,
			payload = excluded.payload,
			created_at = excluded.created_at
	`
	_, err := r.pool.conn(ctx).ExecContext(ctx, query,
		change.ChangeID,
		change.UserID,
		change.DeviceID,
		change.ChangeType,
		change.Action,
		string(change.Payload),
		formatTimestamp(nowIfZero(change.CreatedAt)),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetPendingChange retrieves a pending change owned by userID.
func (r *PendingChangeRepository) GetPendingChange(ctx context.Context, changeID, userID string) (persistence.PendingChange, error) {
	query := `
		SELECT change_id, user_id, device_id, change_type, action, payload, created_at
		FROM pending_changes
		WHERE change_id = ? AND user_id = ?
	`
	change, err := scanPendingChange(r.pool.conn(ctx).QueryRowContext(ctx, query, changeID, userID))
	if err != nil {
		return persistence.PendingChange{}, r.mapper.MapError(err)
	}
	return change, nil
}

// ListPendingChanges returns the user's pending changes, oldest first.
func (r *PendingChangeRepository) ListPendingChanges(ctx context.Context, userID string) ([]persistence.PendingChange, error) {
	query := `
		SELECT change_id, user_id, device_id, change_type, action, payload, created_at
		FROM pending_changes
		WHERE user_id = ?
		ORDER BY created_at ASC, change_id ASC
	`
	rows, err := r.pool.conn(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	changes := make([]persistence.PendingChange, 0)
	for rows.Next() {
		change, err := scanPendingChange(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		changes = append(changes, change)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return changes, nil
}

// DeletePendingChange removes a pending change owned by userID.
func (r *PendingChangeRepository) DeletePendingChange(ctx context.Context, changeID, userID string) error {
	result, err := r.pool.conn(ctx).ExecContext(ctx,
		`DELETE FROM pending_changes WHERE change_id = ? AND user_id = ?`, changeID, userID)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return rowsAffected(result)
}

func scanPendingChange(row rowScanner) (persistence.PendingChange, error) {
	var (
		change    persistence.PendingChange
		payload   string
		createdAt string
	)
	err := row.Scan(
		&change.ChangeID,
		&change.UserID,
		&change.DeviceID,
		&change.ChangeType,
		&change.Action,
		&payload,
		&createdAt,
	)
	if err != nil {
		return persistence.PendingChange{}, err
	}

	change.Payload = []byte(payload)
	if change.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.PendingChange{}, err
	}
	return change, nil
}

var _ persistence.PendingChangeRepository = (*PendingChangeRepository)(nil)
