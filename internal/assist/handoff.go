// Package assist implements the helper session handoff: the sequence by
// which a helper picks up a shopper's pending request, receives the cart
// snapshot, and exchanges chat messages.
package assist

import (
	"context"
	"fmt"
	"time"

	"github.com/buynest/live-assist/internal/domain"
	"github.com/buynest/live-assist/internal/relay"
	"github.com/buynest/live-assist/internal/store"
	"github.com/google/uuid"
)

// Publisher fans events out to the other live sessions.
type Publisher interface {
	Publish(ev relay.Event, originID string)
}

// AcceptedSession is the combined view returned to a helper after
// accepting a request: the accept-time cart snapshot plus the request
// itself. Later cart_updated events keep the helper's working copy
// consistent with the shopper's live edits.
type AcceptedSession struct {
	Request *domain.AssistRequest `json:"assist"`
	Cart    domain.CartSnapshot   `json:"cartData"`
}

// Handoff coordinates assist requests and chat between shoppers and
// helpers. Chat delivery is polling over the store, not relay push.
type Handoff struct {
	repo store.Repository
	hub  Publisher
}

// NewHandoff creates a handoff service.
func NewHandoff(repo store.Repository, hub Publisher) *Handoff {
	return &Handoff{repo: repo, hub: hub}
}

// ListPending returns all assist requests no helper has accepted yet.
func (h *Handoff) ListPending(ctx context.Context) ([]*domain.AssistRequest, error) {
	return h.repo.ListPendingAssists(ctx)
}

// Request creates a new assistance request for a shopper.
func (h *Handoff) Request(ctx context.Context, userID, name, email string) (*domain.AssistRequest, error) {
	if userID == "" {
		return nil, domain.NewValidationError("userId required")
	}
	if name == "" {
		return nil, domain.NewValidationError("name required")
	}
	if email == "" {
		return nil, domain.NewValidationError("email required")
	}

	now := time.Now()
	req := &domain.AssistRequest{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Email:     email,
		Accepted:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.repo.CreateAssist(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Accept marks a request accepted, fetches the shopper's persisted cart,
// and broadcasts the snapshot as cartInfo to every attached client except
// the originator. Accepting an already-accepted request is idempotent: it
// re-marks the flag and re-fetches the cart without error.
//
// originClientID is the helper's own relay identity, so the exclusion rule
// skips the helper's dashboard connection. An empty origin excludes no one.
func (h *Handoff) Accept(ctx context.Context, requestID, originClientID string) (*AcceptedSession, error) {
	req, err := h.repo.GetAssist(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("assist request %s: %w", requestID, domain.ErrNotFound)
	}

	cartSnapshot, err := h.repo.GetCart(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	rows, err := h.repo.MarkAssistAccepted(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// Deleted between the fetch and the update.
		return nil, fmt.Errorf("assist request %s: %w", requestID, domain.ErrNotFound)
	}
	req.Accepted = true

	h.hub.Publish(relay.Event{
		Name:   relay.EventAcceptAssistance,
		UserID: req.UserID,
		Cart:   cartSnapshot,
	}, originClientID)

	return &AcceptedSession{Request: req, Cart: cartSnapshot}, nil
}

// Remove deletes an assist request. This is dashboard housekeeping after a
// session ends; no relay event is emitted.
func (h *Handoff) Remove(ctx context.Context, requestID string) error {
	rows, err := h.repo.DeleteAssist(ctx, requestID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("assist request %s: %w", requestID, domain.ErrNotFound)
	}
	return nil
}

// SendMessage appends one chat message and returns the stored record.
func (h *Handoff) SendMessage(ctx context.Context, userID, userEmail, content string, from domain.Sender) (*domain.ChatMessage, error) {
	if content == "" {
		return nil, domain.NewValidationError("content required")
	}
	if !from.Valid() {
		return nil, domain.NewValidationError("from must be 'user' or 'assistant'")
	}

	msg := &domain.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		UserEmail: userEmail,
		Content:   content,
		From:      from,
		CreatedAt: time.Now(),
	}
	if err := h.repo.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// PollMessages returns all messages for a user, oldest first.
func (h *Handoff) PollMessages(ctx context.Context, userID string) ([]*domain.ChatMessage, error) {
	return h.repo.ListMessages(ctx, userID)
}
