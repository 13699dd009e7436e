package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"go-users-api/internal/model"
	"go-users-api/internal/security"
)

const userColumns = `id::text, nickname, first_name, last_name, password_hash, password_salt, role, created_at, updated_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	if !validID(id) {
		return model.User{}, model.ErrNotFound
	}

	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

func (r *UserRepository) FindByNickname(ctx context.Context, nickname string) (model.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(nickname) = lower($1)`, strings.TrimSpace(nickname))

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by nickname: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u model.User) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, nickname, first_name, last_name, password_hash, password_salt, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Nickname, u.FirstName, u.LastName, u.PasswordHash, u.PasswordSalt, string(u.Role), u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return model.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id string, digest security.Digest, updatedAt time.Time) error {
	if !validID(id) {
		return model.ErrNotFound
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $2, password_salt = $3, updated_at = $4 WHERE id = $1`,
		id, digest.Hash, digest.Salt, updatedAt)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, u model.User) error {
	if !validID(u.ID) {
		return model.ErrNotFound
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE users SET first_name = $2, last_name = $3, updated_at = $4 WHERE id = $1`,
		u.ID, u.FirstName, u.LastName, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id string, role model.Role, updatedAt time.Time) error {
	if !validID(id) {
		return model.ErrNotFound
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE users SET role = $2, updated_at = $3 WHERE id = $1`,
		id, string(role), updatedAt)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return model.ErrNotFound
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, limit int, offset int) ([]model.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, nickname LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// Ids are UUIDs; anything else cannot match a row and would fail the cast in Postgres.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	var role string
	err := row.Scan(&u.ID, &u.Nickname, &u.FirstName, &u.LastName, &u.PasswordHash, &u.PasswordSalt,
		&role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.Role = model.Role(role)
	return u, nil
}
