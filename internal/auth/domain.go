package auth

import (
	"errors"
	"time"
)

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ErrInvalidCredentials indicates login failure. The same error is returned
// for unknown accounts, wrong passwords and deactivated users.
var ErrInvalidCredentials = errors.New("invalid credentials")
