package domain

import "time"

// AssistRequest is a shopper's pending or accepted call for live human help.
type AssistRequest struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Accepted  bool      `json:"accept"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsPending returns true if no helper has accepted the request yet.
func (a *AssistRequest) IsPending() bool {
	return !a.Accepted
}
