package docdex

import (
	"context"
	"fmt"
	"time"

	domuser "github.com/kailas-cloud/docdex/internal/domain/user"
)

// UsersService manages documents in the users index.
type UsersService struct {
	svc userUseCase
	obs *observer
}

// Create stores a user. An empty ID gets a generated one.
func (s *UsersService) Create(ctx context.Context, u User) (_ User, err error) {
	start := time.Now()
	defer func() { s.obs.observe("users.create", start, err) }()

	d, err := domuser.New(u.ID, u.Username, u.Email, u.FullName, u.Bio)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	created, err := s.svc.Create(ctx, d)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return fromInternalUser(created), nil
}

// Get retrieves a user by ID.
func (s *UsersService) Get(ctx context.Context, id string) (_ User, err error) {
	start := time.Now()
	defer func() { s.obs.observe("users.get", start, err) }()

	d, err := s.svc.Get(ctx, id)
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return fromInternalUser(d), nil
}

// List returns a page of users, newest first.
func (s *UsersService) List(ctx context.Context, limit, offset int) (_ UserList, err error) {
	start := time.Now()
	defer func() { s.obs.observe("users.list", start, err) }()

	items, total, err := s.svc.List(ctx, limit, offset)
	if err != nil {
		return UserList{}, fmt.Errorf("list users: %w", err)
	}
	out := make([]User, len(items))
	for i, d := range items {
		out[i] = fromInternalUser(d)
	}
	return UserList{Users: out, Total: total}, nil
}

func fromInternalUser(d domuser.User) User {
	return User{
		ID:        d.ID(),
		Username:  d.Username(),
		Email:     d.Email(),
		FullName:  d.FullName(),
		Bio:       d.Bio(),
		IsActive:  d.IsActive(),
		CreatedAt: d.CreatedAt(),
		UpdatedAt: d.UpdatedAt(),
	}
}

// userUseCase is the internal interface for user operations.
type userUseCase interface {
	Create(ctx context.Context, u domuser.User) (domuser.User, error)
	Get(ctx context.Context, id string) (domuser.User, error)
	List(ctx context.Context, limit, offset int) ([]domuser.User, int, error)
}
