package database

import (
	"context"
	"database/sql"
)

// Schema statements, executed in order at startup. Reservation dates
// are CHAR(10) in YYYY-MM-DD form so that lexical ordering matches
// chronological ordering and the slot key stays a plain string pair.
// The UNIQUE key on capacity(reservation_date, time_slot) is what makes
// lazy slot creation safe under concurrency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		external_id VARCHAR(64) NOT NULL,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_external (external_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS menu_items (
		id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		name         VARCHAR(64) NOT NULL,
		description  VARCHAR(255) NOT NULL DEFAULT '',
		price        INT UNSIGNED NOT NULL,
		is_available TINYINT(1) NOT NULL DEFAULT 1,
		created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_menu_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reservations (
		id               BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id          BIGINT UNSIGNED NOT NULL,
		reservation_date CHAR(10) NOT NULL,
		time_slot        CHAR(5) NOT NULL,
		menu_item_id     BIGINT UNSIGNED NOT NULL,
		item_name        VARCHAR(64) NOT NULL,
		unit_price       INT UNSIGNED NOT NULL,
		quantity         INT UNSIGNED NOT NULL,
		status           VARCHAR(16) NOT NULL DEFAULT 'confirmed',
		created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_res_slot (reservation_date, time_slot),
		KEY idx_res_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS capacity (
		id               BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		reservation_date CHAR(10) NOT NULL,
		time_slot        CHAR(5) NOT NULL,
		total_capacity   INT UNSIGNED NOT NULL,
		reserved_count   INT UNSIGNED NOT NULL DEFAULT 0,
		created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_capacity_slot (reservation_date, time_slot)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS business_calendar (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		calendar_date CHAR(10) NOT NULL,
		is_open       TINYINT(1) NOT NULL,
		note          VARCHAR(255) NOT NULL DEFAULT '',
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_calendar_date (calendar_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS admins (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		email         VARCHAR(128) NOT NULL,
		password_hash VARCHAR(100) NOT NULL,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_admin_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// seedMenu is the starting onigiri lineup. INSERT IGNORE keeps reruns
// idempotent; edits made through the admin API are never overwritten.
var seedMenu = []struct {
	name, description string
	price             uint32
}{
	{"Salt", "Plain salted rice ball", 120},
	{"Tuna Mayo", "Tuna and mayonnaise filling", 150},
	{"Kombu", "Simmered kelp filling", 130},
	{"Chicken Soboro", "Seasoned minced chicken", 140},
	{"Salmon", "Flaked grilled salmon", 160},
	{"Pickled Plum", "Classic umeboshi", 130},
	{"Cod Roe", "Seasoned tarako", 170},
	{"Mustard Greens", "Takana pickles", 140},
}

// EnsureSchema creates all tables if absent and seeds the menu.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	for _, item := range seedMenu {
		_, err := db.ExecContext(ctx,
			`INSERT IGNORE INTO menu_items (name, description, price) VALUES (?, ?, ?)`,
			item.name, item.description, item.price)
		if err != nil {
			return err
		}
	}
	return nil
}

// EnsureAdmin inserts a staff account with the given email and bcrypt
// hash unless one already exists. Used to bootstrap the dashboard login
// from ADMIN_EMAIL / ADMIN_PASSWORD.
func EnsureAdmin(ctx context.Context, db *sql.DB, email, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`INSERT IGNORE INTO admins (email, password_hash) VALUES (?, ?)`,
		email, passwordHash)
	return err
}
