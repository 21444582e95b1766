package user

import "context"

// Repo is the user store. Lookups return ErrNotFound for a missing user;
// Create and Update return ErrEmailExists when the email belongs to
// someone else. Roles are loaded with the user and replaced as a whole.
type Repo interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	// Update writes email and, when non-empty, the password hash.
	Update(ctx context.Context, u *User) error
	// Delete removes the user and returns the row as it was.
	Delete(ctx context.Context, id int64) (*User, error)
	ReplaceRoles(ctx context.Context, userID int64, roles []Role) error
}
