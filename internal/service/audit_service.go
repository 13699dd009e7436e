package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go-users-api/internal/model"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

type AuditService struct {
	store AuditStore
	now   func() time.Time
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store, now: time.Now}
}

// Log records an entry. Audit failures never fail the request that produced them.
func (s *AuditService) Log(ctx context.Context, action string, actor model.AuditActor, status string, resource string, errText string) {
	if s == nil || s.store == nil {
		return
	}

	entry := model.AuditEntry{
		Action:     action,
		OccurredAt: s.now().UTC(),
		Actor:      actor,
		Status:     status,
		Resource:   resource,
		Error:      errText,
	}

	if err := s.store.Log(context.WithoutCancel(ctx), entry); err != nil {
		slog.Warn("audit entry not stored", "action", action, "error", err)
	}
}

// Record logs the outcome of an operation, deriving status and error text from err.
func (s *AuditService) Record(ctx context.Context, action string, actor model.AuditActor, resource string, err error) {
	if err != nil {
		s.Log(ctx, action, actor, model.AuditStatusFailure, resource, err.Error())
		return
	}
	s.Log(ctx, action, actor, model.AuditStatusSuccess, resource, "")
}

func (s *AuditService) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = defaultAuditPageSize
	}
	if query.Limit > maxAuditPageSize {
		query.Limit = maxAuditPageSize
	}

	query.Action = strings.ToLower(strings.TrimSpace(query.Action))
	query.Status = strings.ToLower(strings.TrimSpace(query.Status))
	query.ActorID = strings.TrimSpace(query.ActorID)

	if query.Status != "" && query.Status != model.AuditStatusSuccess && query.Status != model.AuditStatusFailure {
		return nil, model.Meta{}, validationError("invalid audit status", query.Status)
	}
	if !query.From.IsZero() && !query.To.IsZero() && query.To.Before(query.From) {
		return nil, model.Meta{}, validationError("'to' must not be before 'from'", "to")
	}

	items, total, err := s.store.Query(ctx, query)
	if err != nil {
		return nil, model.Meta{}, storeError("query audit entries", err)
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + query.Limit - 1) / query.Limit
	}

	return items, model.Meta{Page: query.Page, Limit: query.Limit, Total: total, TotalPages: totalPages}, nil
}
