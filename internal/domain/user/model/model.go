package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Username     string
	FirstName    string
	LastName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProfilePatch carries a partial profile update. Nil fields are left as is.
type ProfilePatch struct {
	Email     *string
	Username  *string
	FirstName *string
	LastName  *string
}

func (p ProfilePatch) IsEmpty() bool {
	return p.Email == nil && p.Username == nil && p.FirstName == nil && p.LastName == nil
}

// Apply returns a copy of u with the patch applied.
func (p ProfilePatch) Apply(u User) User {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	return u
}

// NormalizeEmail is the canonical form used for uniqueness and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
	User      User
}

func (s Session) TTL(now time.Time) time.Duration {
	return s.ExpiresAt.Sub(now)
}
