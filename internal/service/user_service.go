package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go-users-api/internal/model"
	"go-users-api/internal/security"
)

const (
	defaultUserPageSize = 20
	maxUserPageSize     = 100
)

type ProfileUpdate struct {
	Nickname  *string
	FirstName *string
	LastName  *string
	Password  *string
}

// UserService covers the profile operations around the session core.
type UserService struct {
	users UserStore
	auth  *AuthService
	now   func() time.Time
}

func NewUserService(users UserStore, auth *AuthService) *UserService {
	return &UserService{users: users, auth: auth, now: time.Now}
}

func (s *UserService) List(ctx context.Context, page int, limit int) ([]model.User, model.Meta, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultUserPageSize
	}
	if limit > maxUserPageSize {
		limit = maxUserPageSize
	}

	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, model.Meta{}, storeError("count users", err)
	}

	users, err := s.users.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, model.Meta{}, storeError("list users", err)
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return users, model.Meta{Page: page, Limit: limit, Total: total, TotalPages: totalPages}, nil
}

func (s *UserService) Get(ctx context.Context, id string) (model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, notFoundError(id)
		}
		return model.User{}, storeError("find user by id", err)
	}
	return user, nil
}

// Update applies profile edits. Nicknames are immutable; a password change goes through
// AuthService so the stored refresh token is revoked with it. The new password is hashed
// before any write.
func (s *UserService) Update(ctx context.Context, id string, update ProfileUpdate) (model.User, error) {
	if update.Nickname != nil {
		return model.User{}, validationError("nickname cannot be changed", "nickname")
	}
	if update.FirstName == nil && update.LastName == nil && update.Password == nil {
		return model.User{}, validationError("nothing to update", "")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return model.User{}, err
	}

	var digest security.Digest
	if update.Password != nil {
		if digest, err = s.auth.hashPassword(*update.Password); err != nil {
			return model.User{}, err
		}
	}

	if update.FirstName != nil || update.LastName != nil {
		if update.FirstName != nil {
			user.FirstName = strings.TrimSpace(*update.FirstName)
		}
		if update.LastName != nil {
			user.LastName = strings.TrimSpace(*update.LastName)
		}
		user.UpdatedAt = s.now().UTC()

		if err := s.users.UpdateProfile(ctx, user); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.User{}, notFoundError(id)
			}
			return model.User{}, storeError("update user", err)
		}
	}

	if update.Password != nil {
		if err := s.auth.applyPassword(ctx, id, digest); err != nil {
			return model.User{}, err
		}
	}

	return s.Get(ctx, id)
}

// Delete removes the user and revokes their refresh token.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return notFoundError(id)
		}
		return storeError("delete user", err)
	}

	if err := s.auth.RevokeSessions(ctx, id); err != nil {
		return err
	}

	slog.Info("user deleted", "user_id", id)
	return nil
}

func (s *UserService) SetRole(ctx context.Context, id string, role model.Role) (model.User, error) {
	if !role.Valid() {
		return model.User{}, validationError("invalid role", string(role))
	}

	if err := s.users.UpdateRole(ctx, id, role, s.now().UTC()); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, notFoundError(id)
		}
		return model.User{}, storeError("update role", err)
	}

	slog.Info("user role changed", "user_id", id, "role", role)
	return s.Get(ctx, id)
}
