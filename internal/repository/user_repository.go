package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/magokoro/onigiri-reservation/internal/model"
)

// UserRepo provides lazy user creation keyed by the opaque external
// identity the messaging platform hands us.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// GetOrCreate returns the user for an external identity, inserting a
// row on first contact. A concurrent insert losing the race on the
// unique key falls back to re-reading the winner's row.
func (r *UserRepo) GetOrCreate(ctx context.Context, externalID string) (model.User, error) {
	u, err := r.getByExternal(ctx, externalID)
	if err == nil {
		return u, nil
	}
	if err != sql.ErrNoRows {
		return model.User{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (external_id) VALUES (?)`, externalID)
	if err != nil {
		// 1062: duplicate key; someone else created the row first.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return r.getByExternal(ctx, externalID)
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return model.User{ID: uint64(id), ExternalID: externalID}, nil
}

func (r *UserRepo) getByExternal(ctx context.Context, externalID string) (model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, external_id, created_at FROM users WHERE external_id = ? LIMIT 1`,
		externalID).Scan(&u.ID, &u.ExternalID, &u.CreatedAt)
	return u, err
}
