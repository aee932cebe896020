package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"muralhub/internal/platform/database"
	"muralhub/internal/platform/models"
)

const userColumns = `id, email, password_hash, full_name, roles, last_login_at, created_at, updated_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return createUser(ctx, r.db, user)
}

func (r *UserRepository) CreateTx(ctx context.Context, tx *sql.Tx, user *models.User) error {
	return createUser(ctx, tx, user)
}

func createUser(ctx context.Context, q querier, user *models.User) error {
	roles := user.Roles
	if roles == nil {
		roles = []string{}
	}
	rolesJSON, err := json.Marshal(roles)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, roles, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, user.ID, user.Email, user.PasswordHash, user.FullName, string(rolesJSON), user.CreatedAt, user.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetByEmail matches case-insensitively; stored addresses keep their
// original case.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = ?`, strings.ToLower(email))
	return scanUser(row)
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID string, timestamp int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, timestamp, userID)
	return err
}

func (r *UserRepository) DeleteTx(ctx context.Context, tx *sql.Tx, userID string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanUser(s scanner) (*models.User, error) {
	user := &models.User{}
	var rolesRaw string
	var lastLogin sql.NullInt64

	err := s.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &rolesRaw, &lastLogin, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if lastLogin.Valid {
		val := lastLogin.Int64
		user.LastLoginAt = &val
	}
	if rolesRaw != "" {
		if err := json.Unmarshal([]byte(rolesRaw), &user.Roles); err != nil {
			return nil, err
		}
	}

	return user, nil
}
