package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campusdesk/api/internal/models"
)

// AuditRepository only ever inserts and reads. There is deliberately no
// update or delete method; retention is an external concern.
type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Append(ctx context.Context, entry models.AuditEntry) error {
	const query = `
		INSERT INTO audit_log (
			id, actor_user_id, actor_username, action, resource_type, resource_id,
			details, client_ip, user_agent, duration_ms, outcome, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.ActorUserID,
		entry.ActorUsername,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		entry.Details,
		entry.ClientIP,
		entry.UserAgent,
		entry.DurationMs,
		entry.Outcome,
		entry.CreatedAt,
	)
	return err
}

func (r *AuditRepository) List(ctx context.Context, limit int, offset int) ([]models.AuditEntry, error) {
	const query = `
		SELECT id, actor_user_id, actor_username, action, resource_type, resource_id,
		       details, client_ip, user_agent, duration_ms, outcome, created_at
		FROM audit_log
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListRange returns entries in [from, to) in insertion order, for the
// archive job.
func (r *AuditRepository) ListRange(ctx context.Context, from, to time.Time) ([]models.AuditEntry, error) {
	const query = `
		SELECT id, actor_user_id, actor_username, action, resource_type, resource_id,
		       details, client_ip, user_agent, duration_ms, outcome, created_at
		FROM audit_log
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	for rows.Next() {
		var entry models.AuditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ActorUserID,
			&entry.ActorUsername,
			&entry.Action,
			&entry.ResourceType,
			&entry.ResourceID,
			&entry.Details,
			&entry.ClientIP,
			&entry.UserAgent,
			&entry.DurationMs,
			&entry.Outcome,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
