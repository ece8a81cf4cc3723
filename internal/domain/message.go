package domain

import "time"

// Sender identifies which side of an assistance session wrote a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Valid reports whether s is one of the two known senders.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAssistant
}

// ChatMessage is one append-only chat record between a shopper and a helper.
// Messages are never mutated or deleted; total order is createdAt ascending
// with ties broken by insertion order.
type ChatMessage struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"userId"`
	UserEmail string    `json:"userEmail"`
	Content   string    `json:"content"`
	From      Sender    `json:"from"`
	CreatedAt time.Time `json:"createdAt"`
}
