package service

import (
	"context"
	"time"

	"go-users-api/internal/model"
	"go-users-api/internal/security"
)

// CredentialStore is the slice of user persistence the session core needs.
// Lookups return model.ErrNotFound when absent; Create returns model.ErrConflict
// when the nickname is already taken.
type CredentialStore interface {
	FindByNickname(ctx context.Context, nickname string) (model.User, error)
	FindByID(ctx context.Context, id string) (model.User, error)
	Create(ctx context.Context, user model.User) error
	UpdatePassword(ctx context.Context, id string, digest security.Digest, updatedAt time.Time) error
}

// UserStore adds the profile operations used outside the session core.
type UserStore interface {
	CredentialStore
	List(ctx context.Context, limit int, offset int) ([]model.User, error)
	Count(ctx context.Context) (int, error)
	UpdateProfile(ctx context.Context, user model.User) error
	UpdateRole(ctx context.Context, id string, role model.Role, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// RefreshTokenStore holds one authoritative refresh token per owner. Saving a token
// for an owner supersedes the previous one. Implementations must make Rotate an
// atomic compare-and-swap on the owner's slot.
type RefreshTokenStore interface {
	Save(ctx context.Context, token string, ownerID string, expiresAt time.Time) error
	IsValid(ctx context.Context, token string) (bool, error)
	Rotate(ctx context.Context, oldToken string, newToken string, ownerID string, expiresAt time.Time) (bool, error)
	Delete(ctx context.Context, token string) error
	DeleteByOwner(ctx context.Context, ownerID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type AuditStore interface {
	Log(ctx context.Context, entry model.AuditEntry) error
	Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, int, error)
}

// OperationRecorder receives the outcome of every session operation.
type OperationRecorder interface {
	ObserveAuth(operation string, err error)
	ObservePurge(removed int64)
}

type noopRecorder struct{}

func (noopRecorder) ObserveAuth(string, error) {}

func (noopRecorder) ObservePurge(int64) {}
