package relay

import (
	"strconv"
	"sync"
	"testing"

	"github.com/buynest/live-assist/internal/domain"
)

func drain(t *testing.T, c *Client) [][]byte {
	t.Helper()
	var out [][]byte
	for {
		select {
		case payload, ok := <-c.Receive():
			if !ok {
				return out
			}
			out = append(out, payload)
		default:
			return out
		}
	}
}

func TestHub_CartUpdateReachesEveryoneIncludingOrigin(t *testing.T) {
	hub := NewHub()
	a := hub.Attach("a")
	b := hub.Attach("b")

	hub.Publish(Event{Name: EventCartUpdate, Cart: domain.CartSnapshot{"p1": {"M": 1}}}, "a")

	if got := len(drain(t, a)); got != 1 {
		t.Errorf("Expected originator to receive its own echo, got %d deliveries", got)
	}
	if got := len(drain(t, b)); got != 1 {
		t.Errorf("Expected other client to receive 1 delivery, got %d", got)
	}
}

func TestHub_AcceptAssistanceExcludesOrigin(t *testing.T) {
	hub := NewHub()
	a := hub.Attach("a")
	b := hub.Attach("b")
	c := hub.Attach("c")

	hub.Publish(Event{Name: EventAcceptAssistance, UserID: "u1", Cart: domain.CartSnapshot{}}, "a")

	if got := len(drain(t, a)); got != 0 {
		t.Errorf("Expected originator to receive nothing, got %d deliveries", got)
	}
	if got := len(drain(t, b)); got != 1 {
		t.Errorf("Expected client b to receive 1 cartInfo, got %d", got)
	}
	if got := len(drain(t, c)); got != 1 {
		t.Errorf("Expected client c to receive 1 cartInfo, got %d", got)
	}
}

func TestHub_DetachIsIdempotent(t *testing.T) {
	hub := NewHub()
	hub.Attach("a")

	hub.Detach("a")
	hub.Detach("a")
	hub.Detach("never-attached")

	if got := hub.Len(); got != 0 {
		t.Errorf("Expected 0 attached clients, got %d", got)
	}
}

func TestHub_DetachedClientMissesEvents(t *testing.T) {
	hub := NewHub()
	a := hub.Attach("a")
	b := hub.Attach("b")
	hub.Detach("a")

	hub.Publish(Event{Name: EventCartUpdate, Cart: domain.CartSnapshot{}}, "b")

	if got := len(drain(t, a)); got != 0 {
		t.Errorf("Expected detached client to miss the event, got %d deliveries", got)
	}
	if got := len(drain(t, b)); got != 1 {
		t.Errorf("Expected attached client to receive the event, got %d", got)
	}
}

func TestHub_SlowClientDoesNotBlockOthers(t *testing.T) {
	hub := NewHub()
	slow := hub.Attach("slow")
	fast := hub.Attach("fast")

	// Overflow the slow client's queue; deliveries past the buffer are
	// dropped for it while the fast client keeps draining.
	for i := 0; i < sendQueueSize+10; i++ {
		hub.Publish(Event{Name: EventCartUpdate, Cart: domain.CartSnapshot{}}, "fast")
		drain(t, fast)
	}

	if got := len(drain(t, slow)); got != sendQueueSize {
		t.Errorf("Expected slow client queue capped at %d, got %d", sendQueueSize, got)
	}
}

func TestHub_AttachReplacesExistingID(t *testing.T) {
	hub := NewHub()
	old := hub.Attach("a")
	fresh := hub.Attach("a")

	if _, ok := <-old.Receive(); ok {
		t.Errorf("Expected replaced client's channel closed")
	}

	hub.Publish(Event{Name: EventCartUpdate, Cart: domain.CartSnapshot{}}, "b")
	if got := len(drain(t, fresh)); got != 1 {
		t.Errorf("Expected replacement client to receive events, got %d", got)
	}
	if got := hub.Len(); got != 1 {
		t.Errorf("Expected 1 attached client, got %d", got)
	}
}

// TestHub_ConcurrentAttachDetachPublish exercises the registry under
// concurrent mutation and fan-out.
//
// Run with: go test -race ./internal/relay/...
func TestHub_ConcurrentAttachDetachPublish(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	const iterations = 500

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			hub.Attach("client-" + strconv.Itoa(i))
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			hub.Detach("client-" + strconv.Itoa(i))
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			hub.Publish(Event{Name: EventCartUpdate, Cart: domain.CartSnapshot{"p": {"M": i}}}, "client-0")
		}
	}()

	wg.Wait()
}
