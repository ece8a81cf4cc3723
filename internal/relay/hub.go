package relay

import (
	"hash/fnv"
	"log/slog"
	"sync"
)

const (
	// shardCount stripes the client registry so attach/detach on one
	// client never serializes fan-out to unrelated clients.
	shardCount = 16

	// sendQueueSize bounds the per-client delivery queue. A recipient
	// that falls this far behind starts dropping events; delivery is
	// best-effort and the client recovers on its next full cart reload.
	sendQueueSize = 32
)

// Client is one attached relay connection. The owner drains Receive and
// writes each payload to its transport.
type Client struct {
	id string

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

// ID returns the client identifier assigned at attach time.
func (c *Client) ID() string {
	return c.id
}

// Receive returns the channel of outbound payloads for this client.
// The channel is closed when the client is detached.
func (c *Client) Receive() <-chan []byte {
	return c.send
}

// trySend queues a payload without blocking. Returns false if the client
// is detached or its queue is full; either way the event is simply dropped
// for this recipient.
func (c *Client) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

type shard struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// Hub is the broadcast relay: a single in-process event router that every
// live session attaches to. It owns no durable state; it only fans events
// out according to two fixed rules:
//
//   - cart_update is rebroadcast as cart_updated to every attached client,
//     including the originator;
//   - acceptAssistance is rebroadcast as cartInfo to every attached client
//     except the originator.
//
// Delivery is fire-and-forget. A slow or dead recipient is skipped without
// affecting delivery to anyone else.
type Hub struct {
	shards [shardCount]shard
}

// NewHub creates an empty relay hub.
func NewHub() *Hub {
	h := &Hub{}
	for i := range h.shards {
		h.shards[i].clients = make(map[string]*Client)
	}
	return h
}

func (h *Hub) shardFor(id string) *shard {
	hash := fnv.New32a()
	hash.Write([]byte(id))
	return &h.shards[hash.Sum32()%shardCount]
}

// Attach registers a new client under the given ID and returns its handle.
// Attaching an ID that is already registered replaces the old client,
// closing its receive channel.
func (h *Hub) Attach(id string) *Client {
	client := &Client{
		id:   id,
		send: make(chan []byte, sendQueueSize),
	}

	s := h.shardFor(id)
	s.mu.Lock()
	old := s.clients[id]
	s.clients[id] = client
	s.mu.Unlock()

	if old != nil {
		old.close()
	}

	slog.Debug("relay client attached", "client_id", id)
	return client
}

// Detach removes a client. Idempotent: detaching an unknown or
// already-detached ID is a no-op.
func (h *Hub) Detach(id string) {
	s := h.shardFor(id)
	s.mu.Lock()
	client := s.clients[id]
	delete(s.clients, id)
	s.mu.Unlock()

	if client != nil {
		client.close()
		slog.Debug("relay client detached", "client_id", id)
	}
}

// Len returns the number of currently attached clients.
func (h *Hub) Len() int {
	n := 0
	for i := range h.shards {
		s := &h.shards[i]
		s.mu.RLock()
		n += len(s.clients)
		s.mu.RUnlock()
	}
	return n
}

// Publish fans an event out to attached clients per the two routing rules.
// The origin client is excluded only for acceptAssistance. Publish never
// blocks on a recipient and never reports per-recipient failures to the
// caller.
func (h *Hub) Publish(ev Event, originID string) {
	payload, err := ev.Outbound().Encode()
	if err != nil {
		slog.Warn("relay publish dropped: unencodable event", "event", ev.Name, "error", err)
		return
	}

	excludeOrigin := ev.Name == EventAcceptAssistance

	// Fan out over a snapshot of each shard so a concurrent attach or
	// detach never mutates a map mid-iteration.
	for i := range h.shards {
		s := &h.shards[i]
		s.mu.RLock()
		targets := make([]*Client, 0, len(s.clients))
		for _, c := range s.clients {
			targets = append(targets, c)
		}
		s.mu.RUnlock()

		for _, c := range targets {
			if excludeOrigin && c.id == originID {
				continue
			}
			if !c.trySend(payload) {
				slog.Debug("relay delivery dropped", "client_id", c.id, "event", ev.Name)
			}
		}
	}
}
