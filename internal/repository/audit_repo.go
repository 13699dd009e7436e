package repository

import (
	"context"
	"fmt"
	"strings"

	"go-users-api/internal/model"
)

type AuditRepository struct {
	db DBTX
}

func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Log(ctx context.Context, entry model.AuditEntry) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO audit_entries
		 (action, occurred_at, actor_user_id, actor_nickname, actor_role, actor_ip, status, resource, error_text)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.Action, entry.OccurredAt,
		entry.Actor.UserID, entry.Actor.Nickname, string(entry.Actor.Role), entry.Actor.IP,
		entry.Status, entry.Resource, entry.Error)
	if err != nil {
		return fmt.Errorf("log audit entry: %w", err)
	}
	return nil
}

// Query expects a normalized query with Page and Limit already set.
func (r *AuditRepository) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, int, error) {
	where := make([]string, 0)
	args := make([]any, 0)
	argIdx := 1

	if query.Action != "" {
		where = append(where, fmt.Sprintf("lower(action) = lower($%d)", argIdx))
		args = append(args, query.Action)
		argIdx++
	}
	if query.ActorID != "" {
		where = append(where, fmt.Sprintf("actor_user_id = $%d", argIdx))
		args = append(args, query.ActorID)
		argIdx++
	}
	if query.Status != "" {
		where = append(where, fmt.Sprintf("lower(status) = lower($%d)", argIdx))
		args = append(args, query.Status)
		argIdx++
	}
	if !query.From.IsZero() {
		where = append(where, fmt.Sprintf("occurred_at >= $%d", argIdx))
		args = append(args, query.From)
		argIdx++
	}
	if !query.To.IsZero() {
		where = append(where, fmt.Sprintf("occurred_at <= $%d", argIdx))
		args = append(args, query.To)
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM audit_entries "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	offset := (query.Page - 1) * query.Limit
	dataQuery := fmt.Sprintf(
		`SELECT id, action, occurred_at, actor_user_id, actor_nickname, actor_role, actor_ip,
		        status, resource, error_text
		 FROM audit_entries %s
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT $%d OFFSET $%d`, whereClause, argIdx, argIdx+1)
	args = append(args, query.Limit, offset)

	rows, err := r.db.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.AuditEntry, 0)
	for rows.Next() {
		var e model.AuditEntry
		var role string

		if err := rows.Scan(
			&e.ID, &e.Action, &e.OccurredAt,
			&e.Actor.UserID, &e.Actor.Nickname, &role, &e.Actor.IP,
			&e.Status, &e.Resource, &e.Error,
		); err != nil {
			return nil, 0, fmt.Errorf("scan audit entry: %w", err)
		}

		e.Actor.Role = model.Role(role)
		e.OccurredAt = e.OccurredAt.UTC()
		entries = append(entries, e)
	}

	return entries, total, rows.Err()
}
