package model

import "time"

// User mirrors the `users` table. A row is created lazily the first
// time an external identity shows up on the webhook and is immutable
// afterwards.
type User struct {
	ID         uint64    // users.id
	ExternalID string    // users.external_id (opaque messaging-platform identity, unique)
	CreatedAt  time.Time // users.created_at
}

// Admin mirrors the `admins` table. Staff accounts for the dashboard
// REST surface; passwords are stored as bcrypt hashes.
type Admin struct {
	ID           uint64    // admins.id
	Email        string    // admins.email
	PasswordHash string    // admins.password_hash
	CreatedAt    time.Time // admins.created_at
}
