package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRegisteredEvent announces that a new account was created on a first verified login.
// Consumers (profile provisioning, welcome notifications) live outside this service.
type UserRegisteredEvent struct {
	UserID        uuid.UUID `json:"user_id"`
	Email         string    `json:"email"`
	Provider      string    `json:"provider"`
	RegisteredAt  time.Time `json:"registered_at"`
	CorrelationID string    `json:"correlation_id"` // Fresh per emission, for downstream tracing
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// PublishUserRegistered publishes a registration fact. Delivery is fire-and-forget.
	PublishUserRegistered(ctx context.Context, event *UserRegisteredEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
