package repository

import (
	"context"
	"fmt"
	"time"

	"go-users-api/internal/security"
)

// TokenRepository keeps one refresh token slot per user. Only the SHA-256 of a token is stored.
type TokenRepository struct {
	db  DBTX
	now func() time.Time
}

func NewTokenRepository(db DBTX) *TokenRepository {
	return &TokenRepository{db: db, now: time.Now}
}

func (r *TokenRepository) Save(ctx context.Context, token string, ownerID string, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, issued_at, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE
		 SET token_hash = EXCLUDED.token_hash, issued_at = EXCLUDED.issued_at, expires_at = EXCLUDED.expires_at`,
		ownerID, security.HashToken(token), r.now().UTC(), expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

func (r *TokenRepository) IsValid(ctx context.Context, token string) (bool, error) {
	var valid bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM refresh_tokens WHERE token_hash = $1 AND expires_at > now())`,
		security.HashToken(token)).Scan(&valid)
	if err != nil {
		return false, fmt.Errorf("check refresh token: %w", err)
	}
	return valid, nil
}

// Rotate swaps the owner's slot from oldToken to newToken in one statement. It reports
// false when the slot no longer holds oldToken, which is how a concurrent refresh loses.
func (r *TokenRepository) Rotate(ctx context.Context, oldToken string, newToken string, ownerID string, expiresAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE refresh_tokens
		 SET token_hash = $3, issued_at = $4, expires_at = $5
		 WHERE user_id = $1 AND token_hash = $2 AND expires_at > now()`,
		ownerID, security.HashToken(oldToken), security.HashToken(newToken), r.now().UTC(), expiresAt)
	if err != nil {
		return false, fmt.Errorf("rotate refresh token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *TokenRepository) Delete(ctx context.Context, token string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, security.HashToken(token))
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (r *TokenRepository) DeleteByOwner(ctx context.Context, ownerID string) error {
	if !validID(ownerID) {
		return nil
	}

	_, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, ownerID)
	if err != nil {
		return fmt.Errorf("delete refresh tokens for user: %w", err)
	}
	return nil
}

func (r *TokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
