package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/buynest/live-assist/internal/domain"
	"github.com/go-chi/chi/v5"
)

// AssistHandler exposes assist requests and chat messages over REST.
// Chat is polled, not pushed: the dashboard re-fetches messages rather
// than receiving them over the relay.
type AssistHandler struct {
	*Handler
}

// NewAssistHandler creates an assist handler.
func NewAssistHandler(base *Handler) *AssistHandler {
	return &AssistHandler{Handler: base}
}

// RegisterRoutes registers assist and message routes.
func (h *AssistHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/assist", func(r chi.Router) {
		r.Get("/", h.ListPending)
		r.Post("/", h.Request)
		r.Put("/{id}", h.Accept)
		r.Delete("/{id}", h.Remove)
	})
	r.Route("/api/messages", func(r chi.Router) {
		r.Post("/", h.SendMessage)
		r.Get("/{userId}", h.GetMessages)
	})
}

// ListPending returns all assist requests awaiting a helper.
func (h *AssistHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.handoff.ListPending(r.Context())
	if err != nil {
		slog.Error("Failed to list pending assists", "error", err)
		Fail(w, http.StatusInternalServerError, "failed to list assist requests")
		return
	}
	if reqs == nil {
		reqs = []*domain.AssistRequest{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "assist": reqs})
}

// Request creates a new assistance request for a shopper.
func (h *AssistHandler) Request(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"userId"`
		Name   string `json:"name"`
		Email  string `json:"email"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	if _, err := h.handoff.Request(r.Context(), body.UserID, body.Name, body.Email); err != nil {
		if domain.IsValidation(err) {
			Fail(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("Failed to create assist request", "user_id", body.UserID, "error", err)
		Fail(w, http.StatusInternalServerError, "failed to create assist request")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Assist request sent successfully"})
}

// Accept marks a request accepted and hands the shopper's cart to the
// caller. The caller's relay client ID, if sent, is excluded from the
// cartInfo broadcast.
func (h *AssistHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	origin := r.Header.Get(RelayClientHeader)

	session, err := h.handoff.Accept(r.Context(), id, origin)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			Fail(w, http.StatusNotFound, "Assist request not found")
			return
		}
		slog.Error("Failed to accept assist request", "request_id", id, "error", err)
		Fail(w, http.StatusInternalServerError, "failed to accept assist request")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  "Assist request accepted",
		"assist":   session.Request,
		"cartData": session.Cart,
	})
}

// Remove deletes an assist request after a session ends.
func (h *AssistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.handoff.Remove(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			Fail(w, http.StatusNotFound, "Assist request not found")
			return
		}
		slog.Error("Failed to delete assist request", "request_id", id, "error", err)
		Fail(w, http.StatusInternalServerError, "failed to delete assist request")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Assist request deleted successfully"})
}

// SendMessage appends one chat message.
func (h *AssistHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID    string `json:"userId"`
		UserEmail string `json:"userEmail"`
		Content   string `json:"content"`
		From      string `json:"from"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	msg, err := h.handoff.SendMessage(r.Context(), body.UserID, body.UserEmail, body.Content, domain.Sender(body.From))
	if err != nil {
		if domain.IsValidation(err) {
			Fail(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("Failed to send message", "user_id", body.UserID, "error", err)
		Fail(w, http.StatusInternalServerError, "Failed to send message")
		return
	}

	JSON(w, http.StatusCreated, map[string]interface{}{"success": true, "message": msg})
}

// GetMessages returns all messages for a user, oldest first.
func (h *AssistHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	msgs, err := h.handoff.PollMessages(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to fetch messages", "user_id", userID, "error", err)
		Fail(w, http.StatusInternalServerError, "Failed to retrieve messages")
		return
	}
	if msgs == nil {
		msgs = []*domain.ChatMessage{}
	}

	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "messages": msgs})
}
