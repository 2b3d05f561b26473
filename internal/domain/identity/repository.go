package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository defines the persistence operations on tenants
type UserRepository interface {
	// GetUser returns shared.ErrNotFound when no user has the id
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	// GetUserByEmail returns shared.ErrNotFound when no user has the email
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	CreateUser(ctx context.Context, user *User) error
	// UpdateUser applies the non-nil fields of update
	UpdateUser(ctx context.Context, id uuid.UUID, update UserUpdate) (*User, error)
}

// UserUpdate is a partial update. Nil fields are left unchanged.
type UserUpdate struct {
	Email            *string
	BusinessName     *string
	IsActive         *bool
	EmailPreferences EmailPreferences
}
