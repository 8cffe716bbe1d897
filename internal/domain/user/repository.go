package user

import "context"

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
	// Update writes with optimistic locking on the version.
	Update(ctx context.Context, user *User) error
}
