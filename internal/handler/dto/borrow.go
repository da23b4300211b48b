package dto

import (
	"time"

	"github.com/campusshare/campusshare/internal/model"
)

// CreateBorrowRequest represents the request body for requesting a resource.
type CreateBorrowRequest struct {
	ResourceID string `json:"resourceId"`
	Borrower   string `json:"borrower"`
	Owner      string `json:"owner"`
}

// BorrowResponse represents a borrow request in API responses.
type BorrowResponse struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resourceId"`
	Borrower   string    `json:"borrower"`
	Owner      string    `json:"owner"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ToBorrowResponse converts a model.BorrowRequest to BorrowResponse.
func ToBorrowResponse(b *model.BorrowRequest) BorrowResponse {
	return BorrowResponse{
		ID:         b.ID,
		ResourceID: b.ResourceID,
		Borrower:   b.Borrower,
		Owner:      b.Owner,
		Status:     string(b.Status),
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

// ToBorrowListResponse converts borrow requests to a JSON array, never null.
func ToBorrowListResponse(borrows []*model.BorrowRequest) []BorrowResponse {
	out := make([]BorrowResponse, 0, len(borrows))
	for _, b := range borrows {
		out = append(out, ToBorrowResponse(b))
	}
	return out
}

// BorrowEventResponse is one step of a borrow request's history.
type BorrowEventResponse struct {
	ID         string    `json:"id"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ToBorrowHistoryResponse converts history events to a JSON array, never null.
func ToBorrowHistoryResponse(events []*model.BorrowEvent) []BorrowEventResponse {
	out := make([]BorrowEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, BorrowEventResponse{
			ID:         e.ID,
			From:       string(e.From),
			To:         string(e.To),
			OccurredAt: e.OccurredAt,
		})
	}
	return out
}
