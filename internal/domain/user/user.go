// Package user defines the user aggregate.
package user

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/docdex/internal/domain"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Field limits.
const (
	MaxUsernameLength = 64
	MaxEmailLength    = 256
	MaxFullNameLength = 256
	MaxBioSize        = 4096
)

// User is the user aggregate (immutable value object).
type User struct {
	id        string
	username  string
	email     string
	fullName  string
	bio       string
	isActive  bool
	createdAt time.Time
	updatedAt time.Time
}

// New validates and creates a User. New users are active; both timestamps are
// stamped now (UTC). ID may be empty; the service assigns one before storage.
func New(id, username, email, fullName, bio string) (User, error) {
	if id != "" && !usernameRegex.MatchString(id) {
		return User{}, fmt.Errorf("user ID must be alphanumeric with underscores and hyphens: %w",
			domain.ErrInvalidDocument)
	}
	if username == "" {
		return User{}, fmt.Errorf("username is required: %w", domain.ErrInvalidDocument)
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return User{}, fmt.Errorf("username too long (max %d chars): %w",
			MaxUsernameLength, domain.ErrInvalidDocument)
	}
	if !usernameRegex.MatchString(username) {
		return User{}, fmt.Errorf("username must be alphanumeric with underscores and hyphens: %w",
			domain.ErrInvalidDocument)
	}
	if err := validateEmail(email); err != nil {
		return User{}, err
	}
	if utf8.RuneCountInString(fullName) > MaxFullNameLength {
		return User{}, fmt.Errorf("full name too long (max %d chars): %w",
			MaxFullNameLength, domain.ErrInvalidDocument)
	}
	if len(bio) > MaxBioSize {
		return User{}, fmt.Errorf("bio too large (max %d bytes): %w", MaxBioSize, domain.ErrInvalidDocument)
	}

	now := time.Now().UTC()
	return User{
		id:        id,
		username:  username,
		email:     email,
		fullName:  fullName,
		bio:       bio,
		isActive:  true,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstruct creates a User without validation (storage hydration).
func Reconstruct(id, username, email, fullName, bio string, isActive bool, createdAt, updatedAt time.Time) User {
	return User{
		id: id, username: username, email: email, fullName: fullName, bio: bio,
		isActive: isActive, createdAt: createdAt, updatedAt: updatedAt,
	}
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required: %w", domain.ErrInvalidDocument)
	}
	if len(email) > MaxEmailLength {
		return fmt.Errorf("email too long (max %d chars): %w", MaxEmailLength, domain.ErrInvalidDocument)
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("email must contain a local part and a domain: %w", domain.ErrInvalidDocument)
	}
	return nil
}

// ID returns the user identifier.
func (u User) ID() string { return u.id }

// Username returns the unique login name.
func (u User) Username() string { return u.username }

// Email returns the email address.
func (u User) Email() string { return u.email }

// FullName returns the display name.
func (u User) FullName() string { return u.fullName }

// Bio returns the profile text.
func (u User) Bio() string { return u.bio }

// IsActive reports whether the account is active.
func (u User) IsActive() bool { return u.isActive }

// CreatedAt returns the creation timestamp.
func (u User) CreatedAt() time.Time { return u.createdAt }

// UpdatedAt returns the last modification timestamp.
func (u User) UpdatedAt() time.Time { return u.updatedAt }

// WithID returns a copy with the given identifier set.
func (u User) WithID(id string) User {
	u.id = id
	return u
}
