package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-users-api/internal/model"
	"go-users-api/internal/security"
)

const (
	OperationSignup         = "signup"
	OperationLogin          = "login"
	OperationLogout         = "logout"
	OperationRefresh        = "refresh"
	OperationChangePassword = "change_password"
)

type SignupInput struct {
	Nickname  string
	Password  string
	FirstName string
	LastName  string
}

// AuthService owns signup, login, logout and refresh. It holds no session state of
// its own; every authoritative decision is delegated to the stores.
type AuthService struct {
	users    CredentialStore
	tokens   RefreshTokenStore
	hasher   security.PasswordHasher
	issuer   *TokenIssuer
	recorder OperationRecorder
	now      func() time.Time

	// Verified against when the nickname is unknown so both login failures cost one verification.
	dummy security.Digest
}

func NewAuthService(users CredentialStore, tokens RefreshTokenStore, hasher security.PasswordHasher, issuer *TokenIssuer) *AuthService {
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		slog.Warn("dummy password digest unavailable", "error", err)
	}

	return &AuthService{
		dummy:    dummy,
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		issuer:   issuer,
		recorder: noopRecorder{},
		now:      time.Now,
	}
}

func (s *AuthService) SetMetrics(recorder OperationRecorder) {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	s.recorder = recorder
}

func (s *AuthService) Issuer() *TokenIssuer {
	return s.issuer
}

func (s *AuthService) Signup(ctx context.Context, input SignupInput) (user model.User, err error) {
	defer func() { s.recorder.ObserveAuth(OperationSignup, err) }()

	nickname := strings.TrimSpace(input.Nickname)
	if nickname == "" {
		return model.User{}, validationError("nickname is required", "nickname")
	}
	if input.Password == "" {
		return model.User{}, validationError("password is required", "password")
	}

	_, err = s.users.FindByNickname(ctx, nickname)
	switch {
	case err == nil:
		return model.User{}, conflictError(nickname)
	case !errors.Is(err, model.ErrNotFound):
		return model.User{}, storeError("find user by nickname", err)
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		return model.User{}, err
	}

	now := s.now().UTC()
	user = model.User{
		ID:           uuid.NewString(),
		Nickname:     nickname,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PasswordHash: digest.Hash,
		PasswordSalt: digest.Salt,
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err = s.users.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return model.User{}, conflictError(nickname)
		}
		return model.User{}, storeError("create user", err)
	}

	slog.Info("user signed up", "user_id", user.ID, "nickname", user.Nickname)
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, nickname string, password string) (session model.Session, err error) {
	defer func() { s.recorder.ObserveAuth(OperationLogin, err) }()

	user, err := s.users.FindByNickname(ctx, strings.TrimSpace(nickname))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			_, _ = s.hasher.Verify(password, s.dummy)
			return model.Session{}, loginError(model.ErrNotFound)
		}
		return model.Session{}, storeError("find user by nickname", err)
	}

	digest := security.Digest{Salt: user.PasswordSalt, Hash: user.PasswordHash}
	ok, err := s.hasher.Verify(password, digest)
	if err != nil {
		slog.Warn("stored password digest is unreadable", "user_id", user.ID, "error", err)
		return model.Session{}, loginError(model.ErrInvalidCredentials)
	}
	if !ok {
		return model.Session{}, loginError(model.ErrInvalidCredentials)
	}

	if s.hasher.NeedsUpgrade(digest) {
		s.upgradeDigest(ctx, user.ID, password)
	}

	tokens, err := s.issuer.Issue(user.ID, user.Nickname, user.Role)
	if err != nil {
		return model.Session{}, err
	}

	if err = s.tokens.Save(ctx, tokens.RefreshToken, user.ID, tokens.RefreshExpiresAt); err != nil {
		return model.Session{}, storeError("save refresh token", err)
	}

	slog.Info("user logged in", "user_id", user.ID)
	return model.Session{User: user, Tokens: tokens}, nil
}

// Logout is idempotent; an unknown or empty token is not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) (err error) {
	defer func() { s.recorder.ObserveAuth(OperationLogout, err) }()

	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}

	if err = s.tokens.Delete(ctx, refreshToken); err != nil {
		return storeError("delete refresh token", err)
	}

	return nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (session model.Session, err error) {
	defer func() { s.recorder.ObserveAuth(OperationRefresh, err) }()

	claims, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return model.Session{}, err
	}

	valid, err := s.tokens.IsValid(ctx, refreshToken)
	if err != nil {
		return model.Session{}, storeError("check refresh token", err)
	}
	if !valid {
		slog.Warn("refresh token reuse rejected", "user_id", claims.UserID)
		return model.Session{}, invalidTokenError("token revoked or rotated")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			if revokeErr := s.tokens.DeleteByOwner(ctx, claims.UserID); revokeErr != nil {
				slog.Warn("revoke tokens of missing user failed", "user_id", claims.UserID, "error", revokeErr)
			}
			return model.Session{}, invalidTokenError("token owner no longer exists")
		}
		return model.Session{}, storeError("find user by id", err)
	}

	tokens, err := s.issuer.Issue(user.ID, user.Nickname, user.Role)
	if err != nil {
		return model.Session{}, err
	}

	rotated, err := s.tokens.Rotate(ctx, refreshToken, tokens.RefreshToken, user.ID, tokens.RefreshExpiresAt)
	if err != nil {
		return model.Session{}, storeError("rotate refresh token", err)
	}
	if !rotated {
		return model.Session{}, invalidTokenError("token revoked or rotated")
	}

	return model.Session{User: user, Tokens: tokens}, nil
}

// ChangePassword replaces the digest and revokes the stored refresh token.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, newPassword string) error {
	digest, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.applyPassword(ctx, userID, digest)
}

func (s *AuthService) hashPassword(password string) (security.Digest, error) {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		s.recorder.ObserveAuth(OperationChangePassword, err)
		return security.Digest{}, err
	}
	return digest, nil
}

func (s *AuthService) applyPassword(ctx context.Context, userID string, digest security.Digest) (err error) {
	defer func() { s.recorder.ObserveAuth(OperationChangePassword, err) }()

	if err = s.users.UpdatePassword(ctx, userID, digest, s.now().UTC()); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return notFoundError(userID)
		}
		return storeError("update password", err)
	}

	return s.RevokeSessions(ctx, userID)
}

func (s *AuthService) RevokeSessions(ctx context.Context, userID string) error {
	if err := s.tokens.DeleteByOwner(ctx, userID); err != nil {
		return storeError("revoke refresh tokens", err)
	}
	return nil
}

func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	removed, err := s.tokens.DeleteExpired(ctx)
	if err != nil {
		return 0, storeError("purge expired refresh tokens", err)
	}
	s.recorder.ObservePurge(removed)
	if removed > 0 {
		slog.Info("purged expired refresh tokens", "count", removed)
	}
	return removed, nil
}

// StartCleanupTicker purges expired refresh tokens until ctx is cancelled.
func (s *AuthService) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.purge(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.purge(ctx)
		}
	}
}

func (s *AuthService) purge(ctx context.Context) {
	if _, err := s.PurgeExpiredTokens(ctx); err != nil && ctx.Err() == nil {
		slog.Warn("refresh token cleanup failed", "error", err)
	}
}

func (s *AuthService) upgradeDigest(ctx context.Context, userID string, password string) {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		slog.Warn("password rehash failed", "user_id", userID, "error", err)
		return
	}
	if err := s.users.UpdatePassword(ctx, userID, digest, s.now().UTC()); err != nil {
		slog.Warn("password rehash not stored", "user_id", userID, "error", err)
		return
	}
	slog.Info("password digest upgraded", "user_id", userID)
}
