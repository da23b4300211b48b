package model

import "time"

// BorrowEvent records one step in a borrow request's history: its creation
// (From empty, To Pending) or a status change.
type BorrowEvent struct {
	ID         string       `json:"id"`
	EventID    string       `json:"-"` // stream message id, unique per event
	BorrowID   string       `json:"borrowId"`
	ResourceID string       `json:"resourceId"`
	Borrower   string       `json:"borrower"`
	Owner      string       `json:"owner"`
	From       BorrowStatus `json:"from,omitempty"`
	To         BorrowStatus `json:"to"`
	OccurredAt time.Time    `json:"occurredAt"`
}
