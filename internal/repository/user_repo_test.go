package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-users-api/internal/model"
	"go-users-api/internal/security"
)

const testUserID = "0b6f7c3e-5a0f-4f8e-9f55-6c2b1f0f6a11"

var userRowColumns = []string{"id", "nickname", "first_name", "last_name", "password_hash", "password_salt", "role", "created_at", "updated_at"}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return mock
}

func TestUserRepository_FindByNickname(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		errMsg    string
	}{
		{
			name: "found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(userRowColumns).
					AddRow(testUserID, "alice", "Alice", "L", "$argon2id$...", "salt", "moderator", created, created)
				mock.ExpectQuery(`FROM users WHERE lower\(nickname\) = lower\(\$1\)`).
					WithArgs("alice").
					WillReturnRows(rows)
			},
		},
		{
			name: "not found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE lower\(nickname\)`).
					WithArgs("alice").
					WillReturnRows(pgxmock.NewRows(userRowColumns))
			},
			wantErr: model.ErrNotFound,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE lower\(nickname\)`).
					WithArgs("alice").
					WillReturnError(errors.New("connection refused"))
			},
			errMsg: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			tt.setupMock(mock)

			repo := NewUserRepository(mock)
			got, err := repo.FindByNickname(context.Background(), "  alice ")

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.NotErrorIs(t, err, model.ErrNotFound)
			default:
				require.NoError(t, err)
				assert.Equal(t, testUserID, got.ID)
				assert.Equal(t, model.RoleModerator, got.Role)
				assert.Equal(t, "salt", got.PasswordSalt)
				assert.Equal(t, created, got.CreatedAt)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestUserRepository_FindByID_InvalidID(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUserRepository(mock)

	_, err := repo.FindByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create(t *testing.T) {
	now := time.Now().UTC()
	user := model.User{
		ID: testUserID, Nickname: "alice", FirstName: "A", LastName: "L",
		PasswordHash: "hash", PasswordSalt: "salt", Role: model.RoleUser,
		CreatedAt: now, UpdatedAt: now,
	}

	t.Run("inserts", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(testUserID, "alice", "A", "L", "hash", "salt", "user", now, now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, NewUserRepository(mock).Create(context.Background(), user))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation is a conflict", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(testUserID, "alice", "A", "L", "hash", "salt", "user", now, now).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

		err := NewUserRepository(mock).Create(context.Background(), user)
		assert.ErrorIs(t, err, model.ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	digest := security.Digest{Salt: "salt", Hash: "hash"}

	t.Run("updated", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE users SET password_hash`).
			WithArgs(testUserID, "hash", "salt", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, NewUserRepository(mock).UpdatePassword(context.Background(), testUserID, digest, time.Now()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE users SET password_hash`).
			WithArgs(testUserID, "hash", "salt", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := NewUserRepository(mock).UpdatePassword(context.Background(), testUserID, digest, time.Now())
		assert.ErrorIs(t, err, model.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_UpdateRoleAndDelete(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec(`UPDATE users SET role`).
		WithArgs(testUserID, "admin", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`DELETE FROM users`).
		WithArgs(testUserID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := NewUserRepository(mock)
	require.NoError(t, repo.UpdateRole(context.Background(), testUserID, model.RoleAdmin, time.Now()))
	assert.ErrorIs(t, repo.Delete(context.Background(), testUserID), model.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ListAndCount(t *testing.T) {
	mock := newMockPool(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`FROM users ORDER BY`).
		WithArgs(10, 0).
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(testUserID, "alice", "", "", "h", "s", "user", now, now).
			AddRow("7d1c4f0e-2b8a-4f0a-9c11-3a8e5f6b7c22", "bob", "", "", "h", "s", "admin", now, now))

	repo := NewUserRepository(mock)
	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	users, err := repo.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "bob", users[1].Nickname)
	assert.Equal(t, model.RoleAdmin, users[1].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}
