package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-users-api/internal/model"
	"go-users-api/internal/repository"
)

type failingAuditStore struct{}

func (failingAuditStore) Log(context.Context, model.AuditEntry) error {
	return errors.New("disk full")
}

func (failingAuditStore) Query(context.Context, model.AuditQuery) ([]model.AuditEntry, int, error) {
	return nil, 0, errors.New("disk full")
}

func TestAuditService_RecordAndQuery(t *testing.T) {
	ctx := context.Background()
	svc := NewAuditService(repository.NewMemoryAuditStore())
	actor := model.AuditActor{UserID: "u1", Nickname: "alice", Role: model.RoleUser, IP: "127.0.0.1"}

	svc.Record(ctx, model.AuditActionLogin, actor, "alice", nil)
	svc.Record(ctx, model.AuditActionLogin, model.AuditActor{IP: "127.0.0.1"}, "mallory", errors.New("bad login"))
	svc.Record(ctx, model.AuditActionLogout, actor, "alice", nil)

	items, meta, err := svc.Query(ctx, model.AuditQuery{})
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, model.Meta{Page: 1, Limit: defaultAuditPageSize, Total: 3, TotalPages: 1}, meta)
	assert.Equal(t, model.AuditActionLogout, items[0].Action)

	failures, _, err := svc.Query(ctx, model.AuditQuery{Status: "FAILURE"})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "bad login", failures[0].Error)
	assert.Equal(t, "mallory", failures[0].Resource)

	mine, _, err := svc.Query(ctx, model.AuditQuery{ActorID: "u1", Action: " auth.login "})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, model.AuditStatusSuccess, mine[0].Status)
}

func TestAuditService_QueryValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewAuditService(repository.NewMemoryAuditStore())

	_, _, err := svc.Query(ctx, model.AuditQuery{Status: "maybe"})
	assert.ErrorIs(t, err, model.ErrValidation)

	now := time.Now()
	_, _, err = svc.Query(ctx, model.AuditQuery{From: now, To: now.Add(-time.Hour)})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, meta, err := svc.Query(ctx, model.AuditQuery{Limit: 10_000})
	require.NoError(t, err)
	assert.Equal(t, maxAuditPageSize, meta.Limit)
}

func TestAuditService_StoreFailures(t *testing.T) {
	ctx := context.Background()
	svc := NewAuditService(failingAuditStore{})

	assert.NotPanics(t, func() {
		svc.Log(ctx, model.AuditActionSignup, model.AuditActor{}, model.AuditStatusSuccess, "alice", "")
	})

	_, _, err := svc.Query(ctx, model.AuditQuery{})
	assert.ErrorIs(t, err, model.ErrStore)

	var nilSvc *AuditService
	assert.NotPanics(t, func() {
		nilSvc.Record(ctx, model.AuditActionSignup, model.AuditActor{}, "alice", nil)
	})
}
