package relay

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// WebSocketHandler upgrades HTTP requests to relay connections. Each
// connection gets a fresh client ID; there is no authentication on the
// relay by design — the browser clients attach anonymously.
type WebSocketHandler struct {
	hub           *Hub
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler bound to the hub.
func NewWebSocketHandler(hub *Hub, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}

	clientID := uuid.NewString()
	slog.Info("Relay connection opened", "client_id", clientID, "ip", r.RemoteAddr)

	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "client_id", clientID)
		}
	}()

	client := h.hub.Attach(clientID)
	defer h.hub.Detach(clientID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)

	// Read loop: client events -> hub.
	go func() {
		defer wg.Done()
		defer cancel()
		h.readLoop(ctx, ws, clientID)
	}()

	// Write loop: hub fan-out -> client.
	go func() {
		defer wg.Done()
		defer cancel()
		h.writeLoop(ctx, ws, client)
	}()

	wg.Wait()
	slog.Info("Relay connection closed", "client_id", clientID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, clientID string) {
	for {
		_, raw, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "client_id", clientID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "client_id", clientID)
			}
			return
		}

		ev, err := DecodeInbound(raw)
		if err != nil {
			// Malformed payloads are dropped, never fanned out.
			slog.Warn("Dropping malformed relay event", "error", err, "client_id", clientID)
			continue
		}

		h.hub.Publish(ev, clientID)
	}
}

func (h *WebSocketHandler) writeLoop(ctx context.Context, ws *websocket.Conn, client *Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-client.Receive():
			if !ok {
				return
			}
			if err := ws.Write(ctx, websocket.MessageText, payload); err != nil {
				if ctx.Err() == nil {
					slog.Debug("WebSocket write error", "error", err, "client_id", client.ID())
				}
				return
			}
		}
	}
}
