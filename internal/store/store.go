// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/buynest/live-assist/internal/domain"
)

// Repository defines the interface for persisting carts, assist requests,
// and chat messages. It is the durable side of the live-assist feature;
// the relay itself owns no durable state.
type Repository interface {
	// GetCart retrieves the persisted cart snapshot for a user.
	// Returns an empty snapshot (not an error) if the user has no cart.
	GetCart(ctx context.Context, userID string) (domain.CartSnapshot, error)

	// PutCart stores the full cart snapshot for a user, replacing any
	// previous snapshot wholesale.
	PutCart(ctx context.Context, userID string, cart domain.CartSnapshot) error

	// ListPendingAssists retrieves all assist requests not yet accepted.
	ListPendingAssists(ctx context.Context) ([]*domain.AssistRequest, error)

	// GetAssist retrieves an assist request by ID. Returns nil, nil if absent.
	GetAssist(ctx context.Context, id string) (*domain.AssistRequest, error)

	// CreateAssist stores a new assist request.
	CreateAssist(ctx context.Context, req *domain.AssistRequest) error

	// MarkAssistAccepted flips the accepted flag to true. Re-accepting an
	// already-accepted request is allowed and succeeds. Returns the number
	// of rows matched so callers can detect a missing request.
	MarkAssistAccepted(ctx context.Context, id string) (int64, error)

	// DeleteAssist removes an assist request. Returns the number of rows
	// deleted so callers can detect a missing request.
	DeleteAssist(ctx context.Context, id string) (int64, error)

	// AppendMessage stores a new chat message.
	AppendMessage(ctx context.Context, msg *domain.ChatMessage) error

	// ListMessages retrieves all messages for a user ordered by creation
	// time ascending, ties broken by insertion order.
	ListMessages(ctx context.Context, userID string) ([]*domain.ChatMessage, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
