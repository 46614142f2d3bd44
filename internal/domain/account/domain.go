package account

import (
	"errors"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// FederatedCredential is stored instead of a password hash for accounts
// created through Google sign-in. It never verifies as a password.
const FederatedCredential = "GOOGLE_SSO"

var (
	ErrNotFound    = errors.New("account not found")
	ErrEmailExists = errors.New("account email already exists")
)

type Account struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

func (a *Account) IsAdmin() bool { return a.Role == RoleAdmin }

func (a *Account) IsFederated() bool { return a.PasswordHash == FederatedCredential }
