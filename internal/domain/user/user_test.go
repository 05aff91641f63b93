package user

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/docdex/internal/domain"
)

func TestNew_Valid(t *testing.T) {
	u, err := New("u-1", "jane_doe", "jane@example.com", "Jane Doe", "writes about search")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID() != "u-1" || u.Username() != "jane_doe" {
		t.Errorf("ID() = %q, Username() = %q", u.ID(), u.Username())
	}
	if u.Email() != "jane@example.com" {
		t.Errorf("Email() = %q", u.Email())
	}
	if !u.IsActive() {
		t.Error("new users must be active")
	}
	if u.CreatedAt().IsZero() {
		t.Error("created_at not stamped")
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		fn    func() (User, error)
		wants string
	}{
		{"missing username", func() (User, error) {
			return New("", "", "a@b.com", "", "")
		}, "username is required"},
		{"username with spaces", func() (User, error) {
			return New("", "jane doe", "a@b.com", "", "")
		}, "alphanumeric"},
		{"username too long", func() (User, error) {
			return New("", strings.Repeat("a", 65), "a@b.com", "", "")
		}, "too long"},
		{"missing email", func() (User, error) {
			return New("", "jane", "", "", "")
		}, "email is required"},
		{"email without at", func() (User, error) {
			return New("", "jane", "janeexample.com", "", "")
		}, "local part"},
		{"email without domain", func() (User, error) {
			return New("", "jane", "jane@", "", "")
		}, "local part"},
		{"email without local part", func() (User, error) {
			return New("", "jane", "@example.com", "", "")
		}, "local part"},
		{"bio too large", func() (User, error) {
			return New("", "jane", "a@b.com", "", strings.Repeat("x", MaxBioSize+1))
		}, "bio too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn()
			if !errors.Is(err, domain.ErrInvalidDocument) {
				t.Fatalf("error = %v, want ErrInvalidDocument", err)
			}
			if !strings.Contains(err.Error(), tt.wants) {
				t.Errorf("error = %q, want substring %q", err, tt.wants)
			}
		})
	}
}

func TestReconstruct(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	u := Reconstruct("u-1", "jane", "jane@example.com", "Jane", "bio", false, created, created)
	if u.IsActive() {
		t.Error("Reconstruct must keep stored is_active")
	}
	if !u.CreatedAt().Equal(created) {
		t.Errorf("CreatedAt() = %v", u.CreatedAt())
	}
}

func TestWithID(t *testing.T) {
	u, _ := New("", "jane", "jane@example.com", "", "")
	withID := u.WithID("gen-1")
	if withID.ID() != "gen-1" || u.ID() != "" {
		t.Error("WithID must not mutate the receiver")
	}
}
