package repository

import (
	"context"
	"database/sql"

	"github.com/magokoro/onigiri-reservation/internal/model"
)

// AdminRepo reads staff accounts for login. Accounts are provisioned at
// startup from configuration, not through the API.
type AdminRepo struct{ db *sql.DB }

func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{db: db} }

// GetByEmail returns the admin account for an email, or ErrNotFound.
func (r *AdminRepo) GetByEmail(ctx context.Context, email string) (model.Admin, error) {
	var a model.Admin
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM admins WHERE email = ? LIMIT 1`,
		email).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return model.Admin{}, ErrNotFound
	}
	if err != nil {
		return model.Admin{}, err
	}
	return a, nil
}
