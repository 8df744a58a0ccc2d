package domain

import (
	"context"
	"time"
)

// Role distinguishes shoppers from service providers
type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleVendor
}

// User represents a registered account
type User struct {
	ID           string // ObjectID hex
	Username     string // Unique username
	Email        string // Unique, stored lower-cased
	PasswordHash string // Bcrypt hashed password (not returned in API)
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// KeyValueStore is the small key-value surface used for reset tokens and
// idempotency keys. Get and GetDel return ErrNotFound for missing keys.
type KeyValueStore interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID string
	Role   Role
}

// IsVendor reports whether the caller acts as a service provider
func (a Actor) IsVendor() bool { return a.Role == RoleVendor }
