package api

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/buynest/live-assist/internal/assist"
	"github.com/buynest/live-assist/internal/domain"
	"github.com/buynest/live-assist/internal/relay"
	"github.com/go-chi/chi/v5"
)

// memRepo is an in-memory store.Repository for handler tests.
type memRepo struct {
	mu       sync.Mutex
	carts    map[string]domain.CartSnapshot
	assists  map[string]*domain.AssistRequest
	messages []*domain.ChatMessage
}

func newMemRepo() *memRepo {
	return &memRepo{
		carts:   make(map[string]domain.CartSnapshot),
		assists: make(map[string]*domain.AssistRequest),
	}
}

func (m *memRepo) GetCart(_ context.Context, userID string) (domain.CartSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cart, ok := m.carts[userID]; ok {
		return cart.Clone(), nil
	}
	return domain.NewCartSnapshot(), nil
}

func (m *memRepo) PutCart(_ context.Context, userID string, cart domain.CartSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[userID] = cart.Clone()
	return nil
}

func (m *memRepo) ListPendingAssists(_ context.Context) ([]*domain.AssistRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.AssistRequest
	for _, req := range m.assists {
		if !req.Accepted {
			copied := *req
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) GetAssist(_ context.Context, id string) (*domain.AssistRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.assists[id]
	if !ok {
		return nil, nil
	}
	copied := *req
	return &copied, nil
}

func (m *memRepo) CreateAssist(_ context.Context, req *domain.AssistRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *req
	m.assists[req.ID] = &copied
	return nil
}

func (m *memRepo) MarkAssistAccepted(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.assists[id]
	if !ok {
		return 0, nil
	}
	req.Accepted = true
	req.UpdatedAt = time.Now()
	return 1, nil
}

func (m *memRepo) DeleteAssist(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assists[id]; !ok {
		return 0, nil
	}
	delete(m.assists, id)
	return 1, nil
}

func (m *memRepo) AppendMessage(_ context.Context, msg *domain.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *msg
	m.messages = append(m.messages, &copied)
	return nil
}

func (m *memRepo) ListMessages(_ context.Context, userID string) ([]*domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ChatMessage
	for _, msg := range m.messages {
		if msg.UserID == userID {
			copied := *msg
			out = append(out, &copied)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) Ping(context.Context) error { return nil }
func (m *memRepo) Close() error               { return nil }

// newTestRouter wires the full handler stack against in-memory state.
func newTestRouter() (chi.Router, *memRepo, *relay.Hub) {
	repo := newMemRepo()
	hub := relay.NewHub()
	handoff := assist.NewHandoff(repo, hub)
	base := NewHandler(repo, handoff)

	r := chi.NewRouter()
	NewCartHandler(base).RegisterRoutes(r)
	NewAssistHandler(base).RegisterRoutes(r)
	return r, repo, hub
}
