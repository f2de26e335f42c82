package repository

import (
	"context"
	"errors"

	"github.com/coursebind/user-service/internal/domain/entity"
)

var (
	// ErrNotFound is returned by lookups when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateKey is returned by Create when the username or email
	// uniqueness constraint is violated. The storage layer enforces this
	// atomically; callers must not rely on pre-checks alone.
	ErrDuplicateKey = errors.New("duplicate key")
)

// UserRepository defines the persistence boundary for user records.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
}
