package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("user not found")

// User represents a registered customer or administrator account.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      string
	CreatedAt time.Time
}

// Summary is the display-friendly projection of a user embedded in order
// responses and exports.
type Summary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Repository defines read operations for user accounts.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}
