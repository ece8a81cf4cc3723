package api

import (
	"log/slog"
	"net/http"

	"github.com/buynest/live-assist/internal/identity"
	"github.com/go-chi/chi/v5"
)

// CartHandler exposes the persisted cart store over REST. These routes
// mirror the browser's local cart mutations into durable state; the live
// view travels over the relay, not through here.
type CartHandler struct {
	*Handler
}

// NewCartHandler creates a cart handler.
func NewCartHandler(base *Handler) *CartHandler {
	return &CartHandler{Handler: base}
}

// RegisterRoutes registers cart routes.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Post("/add", h.Add)
		r.Post("/update", h.Update)
		r.Post("/get", h.Get)
	})
}

func (h *CartHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Fail(w, http.StatusUnauthorized, "not authorized, login again")
		return "", false
	}
	return userID, true
}

// Add increments the quantity for one (item, size) pair in the persisted cart.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var body struct {
		ItemID string `json:"itemId"`
		Size   string `json:"size"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Size == "" {
		Fail(w, http.StatusBadRequest, "size required")
		return
	}
	if body.ItemID == "" {
		Fail(w, http.StatusBadRequest, "itemId required")
		return
	}

	cartData, err := h.repo.GetCart(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to load cart", "user_id", userID, "error", err)
		Fail(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	cartData.Add(body.ItemID, body.Size)

	if err := h.repo.PutCart(r.Context(), userID, cartData); err != nil {
		slog.Error("Failed to persist cart", "user_id", userID, "error", err)
		Fail(w, http.StatusInternalServerError, "failed to save cart")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Added To Cart"})
}

// Update overwrites the quantity for one (item, size) pair. Zero removes it.
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var body struct {
		ItemID   string `json:"itemId"`
		Size     string `json:"size"`
		Quantity int    `json:"quantity"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Size == "" {
		Fail(w, http.StatusBadRequest, "size required")
		return
	}
	if body.ItemID == "" {
		Fail(w, http.StatusBadRequest, "itemId required")
		return
	}
	if body.Quantity < 0 {
		Fail(w, http.StatusBadRequest, "quantity cannot be negative")
		return
	}

	cartData, err := h.repo.GetCart(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to load cart", "user_id", userID, "error", err)
		Fail(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	cartData.Set(body.ItemID, body.Size, body.Quantity)

	if err := h.repo.PutCart(r.Context(), userID, cartData); err != nil {
		slog.Error("Failed to persist cart", "user_id", userID, "error", err)
		Fail(w, http.StatusInternalServerError, "failed to save cart")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Cart Updated"})
}

// Get returns the user's persisted cart snapshot.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	cartData, err := h.repo.GetCart(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to load cart", "user_id", userID, "error", err)
		Fail(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "cartData": cartData})
}
