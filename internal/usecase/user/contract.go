package user

import (
	"context"

	domuser "github.com/kailas-cloud/docdex/internal/domain/user"
)

// Repository defines the storage contract for users.
type Repository interface {
	Put(ctx context.Context, u *domuser.User) error
	Get(ctx context.Context, id string) (domuser.User, error)
	List(ctx context.Context, limit, offset int) ([]domuser.User, int, error)
}
