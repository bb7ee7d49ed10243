package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/magokoro/onigiri-reservation/internal/model"
)

// MenuRepo provides CRUD over menu_items. Items referenced by
// reservations are never hard-deleted; taking an item off the menu
// flips is_available instead.
type MenuRepo struct{ db *sql.DB }

func NewMenuRepo(db *sql.DB) *MenuRepo { return &MenuRepo{db: db} }

const menuColumns = `id, name, description, price, is_available, created_at, updated_at`

// Get returns the item by id. found is false when no row exists.
func (r *MenuRepo) Get(ctx context.Context, id uint64) (model.MenuItem, bool, error) {
	var m model.MenuItem
	err := r.db.QueryRowContext(ctx,
		`SELECT `+menuColumns+` FROM menu_items WHERE id = ?`, id).Scan(
		&m.ID, &m.Name, &m.Description, &m.Price, &m.IsAvailable, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.MenuItem{}, false, nil
	}
	if err != nil {
		return model.MenuItem{}, false, err
	}
	return m, true, nil
}

// ListAvailable returns items currently on the menu in insertion order.
func (r *MenuRepo) ListAvailable(ctx context.Context) ([]model.MenuItem, error) {
	return r.list(ctx, `SELECT `+menuColumns+` FROM menu_items WHERE is_available = 1 ORDER BY id`)
}

// ListAll returns every item including disabled ones, for the admin UI.
func (r *MenuRepo) ListAll(ctx context.Context) ([]model.MenuItem, error) {
	return r.list(ctx, `SELECT `+menuColumns+` FROM menu_items ORDER BY id`)
}

// Create inserts a new item. A duplicate name returns ErrConflict.
func (r *MenuRepo) Create(ctx context.Context, m *model.MenuItem) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO menu_items (name, description, price, is_available) VALUES (?, ?, ?, ?)`,
		m.Name, m.Description, m.Price, m.IsAvailable)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// Update rewrites the mutable fields of an item. ErrNotFound when the
// id does not exist, ErrConflict when the new name collides.
func (r *MenuRepo) Update(ctx context.Context, m model.MenuItem) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE menu_items SET name = ?, description = ?, price = ?, is_available = ? WHERE id = ?`,
		m.Name, m.Description, m.Price, m.IsAvailable, m.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports zero rows for a no-change update too; confirm
		// existence before declaring the item missing.
		if _, found, err := r.Get(ctx, m.ID); err != nil {
			return err
		} else if !found {
			return ErrNotFound
		}
	}
	return nil
}

// Disable soft-removes an item from the menu. Historical reservations
// keep their denormalized name and price.
func (r *MenuRepo) Disable(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE menu_items SET is_available = 0 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, found, err := r.Get(ctx, id); err != nil {
			return err
		} else if !found {
			return ErrNotFound
		}
	}
	return nil
}

func (r *MenuRepo) list(ctx context.Context, query string) ([]model.MenuItem, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.MenuItem, 0)
	for rows.Next() {
		var m model.MenuItem
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.Price, &m.IsAvailable, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}
