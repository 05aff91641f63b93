package user

import (
	"time"

	domuser "github.com/kailas-cloud/docdex/internal/domain/user"
)

// doc mirrors the stored user document.
type doc struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// toDoc converts a domain user into its stored document.
func toDoc(u *domuser.User) doc {
	return doc{
		Username:  u.Username(),
		Email:     u.Email(),
		FullName:  u.FullName(),
		Bio:       u.Bio(),
		IsActive:  u.IsActive(),
		CreatedAt: u.CreatedAt(),
		UpdatedAt: u.UpdatedAt(),
	}
}

// fromDoc hydrates a domain user from a stored document.
func fromDoc(id string, d doc) domuser.User {
	return domuser.Reconstruct(
		id, d.Username, d.Email, d.FullName, d.Bio,
		d.IsActive, d.CreatedAt, d.UpdatedAt,
	)
}
