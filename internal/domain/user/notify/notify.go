package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ResetNotification struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ResetURL  string    `json:"reset_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ResetSender interface {
	SendPasswordReset(ctx context.Context, n ResetNotification) error
}

const (
	EventUserCreated     = "user.created"
	EventProfileUpdated  = "user.profile_updated"
	EventPasswordChanged = "user.password_changed"
	EventPasswordReset   = "user.password_reset"
	EventUserDeleted     = "user.deleted"
)

type Event struct {
	Type       string    `json:"type"`
	UserID     uuid.UUID `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, e Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishEvent(context.Context, Event) error { return nil }
