package model

import (
	"time"

	"github.com/google/uuid"
)

type ResetState string

const (
	ResetIssued   ResetState = "issued"
	ResetConsumed ResetState = "consumed"
	ResetExpired  ResetState = "expired"
)

// ResetToken is the stored side of a password reset. Only the hash of the
// raw token is persisted.
type ResetToken struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	TokenHash  string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

func (t ResetToken) State(now time.Time) ResetState {
	switch {
	case t.ConsumedAt != nil:
		return ResetConsumed
	case !now.Before(t.ExpiresAt):
		return ResetExpired
	default:
		return ResetIssued
	}
}
