package models

import "time"

// User owns surveys. Submitters may be anonymous; a user row exists only
// for registered owners.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// TokenClaims is what the JWT middleware stores on the request context.
type TokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}
