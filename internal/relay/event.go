// Package relay provides the in-process broadcast hub that mirrors live
// cart state between shopper tabs and helper dashboards.
package relay

import (
	"encoding/json"
	"fmt"

	"github.com/buynest/live-assist/internal/domain"
)

// Wire event names. These are fixed by the browser clients and must be
// preserved bit-exact.
const (
	// Inbound from clients.
	EventCartUpdate       = "cart_update"
	EventAcceptAssistance = "acceptAssistance"

	// Outbound to clients.
	EventCartUpdated = "cart_updated"
	EventCartInfo    = "cartInfo"
)

// Event is one relay message: a tagged cart snapshot. Events have no
// identity, no acknowledgment, and no persistence; they exist only on the
// wire for the duration of one fan-out.
type Event struct {
	Name string `json:"event"`
	// UserID accompanies acceptAssistance so receivers know whose cart
	// the snapshot belongs to. Empty for cart_update.
	UserID string              `json:"userId,omitempty"`
	Cart   domain.CartSnapshot `json:"data"`
}

// Encode serializes the event for the wire.
func (e Event) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode relay event: %w", err)
	}
	return data, nil
}

// DecodeInbound parses and validates a client-sent event. Only the two
// inbound event names are accepted; malformed or unknown payloads are
// rejected here so undefined shapes never reach the fan-out.
func DecodeInbound(raw []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Event{}, fmt.Errorf("decode relay event: %w", err)
	}

	switch ev.Name {
	case EventCartUpdate, EventAcceptAssistance:
	default:
		return Event{}, fmt.Errorf("unknown relay event %q", ev.Name)
	}

	if ev.Cart == nil {
		return Event{}, fmt.Errorf("relay event %q missing cart payload", ev.Name)
	}
	ev.Cart.Normalize()

	return ev, nil
}

// Outbound returns the event as delivered to recipients: cart_update is
// rebroadcast as cart_updated, acceptAssistance as cartInfo.
func (e Event) Outbound() Event {
	out := e
	switch e.Name {
	case EventCartUpdate:
		out.Name = EventCartUpdated
	case EventAcceptAssistance:
		out.Name = EventCartInfo
	}
	return out
}
