// Package user implements user account management. Users are create/read
// only; there is no update or delete path.
package user

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kailas-cloud/docdex/internal/domain/search/request"
	domuser "github.com/kailas-cloud/docdex/internal/domain/user"
)

// Service handles user accounts.
type Service struct {
	repo            Repository
	defaultPageSize int
	maxPageSize     int
	maxOffset       int
}

// New creates a user service.
func New(repo Repository) *Service {
	return &Service{
		repo:            repo,
		defaultPageSize: request.DefaultLimit,
		maxPageSize:     request.MaxLimit,
		maxOffset:       request.MaxOffset,
	}
}

// WithPagination configures page size limits.
func (s *Service) WithPagination(defaultPageSize, maxPageSize int) *Service {
	if defaultPageSize > 0 {
		s.defaultPageSize = defaultPageSize
	}
	if maxPageSize > 0 {
		s.maxPageSize = maxPageSize
	}
	return s
}

// WithMaxOffset caps list pagination depth. Must stay within the index
// max_result_window or deep pages fail at the store.
func (s *Service) WithMaxOffset(maxOffset int) *Service {
	if maxOffset > 0 {
		s.maxOffset = maxOffset
	}
	return s
}

// Create stores a new user. A missing ID gets a generated UUID.
func (s *Service) Create(ctx context.Context, u domuser.User) (domuser.User, error) {
	if u.ID() == "" {
		u = u.WithID(uuid.NewString())
	}

	if err := s.repo.Put(ctx, &u); err != nil {
		return domuser.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Get retrieves a user by ID.
func (s *Service) Get(ctx context.Context, id string) (domuser.User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return domuser.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// List returns a page of users, newest first, and the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]domuser.User, int, error) {
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	if offset > s.maxOffset {
		offset = s.maxOffset
	}

	users, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}
