package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HandoffAudit is one recorded workflow outcome.
type HandoffAudit struct {
	ID        int64
	EventID   string
	EventType string
	SessionID string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// HandoffAuditRepository appends and lists audit rows.
type HandoffAuditRepository interface {
	Append(ctx context.Context, entry *HandoffAudit) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]HandoffAudit, error)
}

type handoffAuditRepository struct {
	pool *pgxpool.Pool
}

// NewHandoffAuditRepository returns a Postgres-backed implementation, or a
// discarding one when pool is nil.
func NewHandoffAuditRepository(pool *pgxpool.Pool) HandoffAuditRepository {
	if pool == nil {
		return discardAudit{}
	}
	return &handoffAuditRepository{pool: pool}
}

func (r *handoffAuditRepository) Append(ctx context.Context, entry *HandoffAudit) error {
	const query = `
        INSERT INTO handoff_audit (event_id, event_type, session_id, payload)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (event_id) DO NOTHING
        RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		entry.EventID,
		entry.EventType,
		entry.SessionID,
		entry.Payload,
	).Scan(&entry.ID, &entry.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}

func (r *handoffAuditRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]HandoffAudit, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	const query = `
        SELECT id, event_id, event_type, session_id, payload, created_at
        FROM handoff_audit WHERE session_id=$1
        ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HandoffAudit
	for rows.Next() {
		var entry HandoffAudit
		if err := rows.Scan(
			&entry.ID,
			&entry.EventID,
			&entry.EventType,
			&entry.SessionID,
			&entry.Payload,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

type discardAudit struct{}

func (discardAudit) Append(context.Context, *HandoffAudit) error { return nil }

func (discardAudit) ListBySession(context.Context, string, int) ([]HandoffAudit, error) {
	return nil, nil
}
