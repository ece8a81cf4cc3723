// Package cart implements the client cart synchronizer: the in-memory
// cart owned by one live session, kept eventually consistent with other
// sessions through the broadcast relay.
package cart

import (
	"context"
	"log/slog"
	"sync"

	"github.com/buynest/live-assist/internal/domain"
	"github.com/buynest/live-assist/internal/relay"
)

// Store is the durable cart collaborator. The synchronizer only reads the
// persisted snapshot at load time and writes the full snapshot after each
// local mutation.
type Store interface {
	GetCart(ctx context.Context, userID string) (domain.CartSnapshot, error)
	PutCart(ctx context.Context, userID string, cart domain.CartSnapshot) error
}

// Publisher fans events out to the other live sessions.
type Publisher interface {
	Publish(ev relay.Event, originID string)
}

// Synchronizer owns the authoritative-for-this-session cart. Mutations
// apply locally first, then persist and broadcast; incoming remote
// snapshots replace local state wholesale (last-writer-wins, no merge).
//
// Local state is the system of record for the live view: a failed
// persistence write is logged and surfaced as a notice, never rolled back.
type Synchronizer struct {
	store    Store
	relay    Publisher
	clientID string

	mu     sync.Mutex
	userID string
	items  domain.CartSnapshot
}

// NewSynchronizer creates a synchronizer with an empty cart. clientID is
// the session's relay identity, used as the publish origin.
func NewSynchronizer(store Store, pub Publisher, clientID string) *Synchronizer {
	return &Synchronizer{
		store:    store,
		relay:    pub,
		clientID: clientID,
		items:    domain.NewCartSnapshot(),
	}
}

// Load fetches the persisted snapshot for userID and makes it the local
// state. An empty userID means a guest session: the cart starts empty and
// is never persisted.
func (s *Synchronizer) Load(ctx context.Context, userID string) error {
	items := domain.NewCartSnapshot()
	if userID != "" {
		persisted, err := s.store.GetCart(ctx, userID)
		if err != nil {
			return err
		}
		items = persisted
	}

	s.mu.Lock()
	s.userID = userID
	s.items = items
	s.mu.Unlock()
	return nil
}

// AddItem increments the quantity for (productID, size) by one. A missing
// size selection is rejected before any state changes.
func (s *Synchronizer) AddItem(ctx context.Context, productID, size string) error {
	if size == "" {
		return domain.NewValidationError("size required")
	}

	s.mu.Lock()
	s.items.Add(productID, size)
	snapshot := s.items.Clone()
	userID := s.userID
	s.mu.Unlock()

	s.persist(ctx, userID, snapshot)
	s.emit(snapshot)
	return nil
}

// SetQuantity overwrites the quantity for (productID, size). Zero removes
// the entry.
func (s *Synchronizer) SetQuantity(ctx context.Context, productID, size string, quantity int) error {
	if size == "" {
		return domain.NewValidationError("size required")
	}
	if quantity < 0 {
		return domain.NewValidationError("quantity cannot be negative")
	}

	s.mu.Lock()
	s.items.Set(productID, size, quantity)
	snapshot := s.items.Clone()
	userID := s.userID
	s.mu.Unlock()

	s.persist(ctx, userID, snapshot)
	s.emit(snapshot)
	return nil
}

// OnRemoteSnapshot replaces the local cart with a snapshot received from
// the relay. The incoming snapshot is authoritative until superseded; this
// is the system's only conflict resolution policy. Applying the same
// snapshot twice (including the session's own echo) is idempotent.
func (s *Synchronizer) OnRemoteSnapshot(snapshot domain.CartSnapshot) {
	clean := snapshot.Clone().Normalize()
	s.mu.Lock()
	s.items = clean
	s.mu.Unlock()
}

// Snapshot returns a copy of the current local cart.
func (s *Synchronizer) Snapshot() domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Clone()
}

// Count sums all quantities across all products and sizes.
func (s *Synchronizer) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Count()
}

// Total sums price * quantity across all entries, skipping products the
// lookup no longer knows about.
func (s *Synchronizer) Total(price func(productID string) (int64, bool)) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Total(price)
}

// persist writes the full snapshot for logged-in sessions. Failure is a
// non-fatal notice; the local cart is never rolled back.
func (s *Synchronizer) persist(ctx context.Context, userID string, snapshot domain.CartSnapshot) {
	if userID == "" {
		return
	}
	if err := s.store.PutCart(ctx, userID, snapshot); err != nil {
		slog.Warn("Cart persistence failed, keeping local state", "user_id", userID, "error", err)
	}
}

func (s *Synchronizer) emit(snapshot domain.CartSnapshot) {
	s.relay.Publish(relay.Event{Name: relay.EventCartUpdate, Cart: snapshot}, s.clientID)
}
