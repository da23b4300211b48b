package model

import (
	"slices"
	"time"
)

// BorrowStatus is the lifecycle state of a borrow request.
type BorrowStatus string

const (
	BorrowPending  BorrowStatus = "Pending"
	BorrowApproved BorrowStatus = "Approved"
	BorrowRejected BorrowStatus = "Rejected"
	BorrowReturned BorrowStatus = "Returned"
)

// BorrowStatuses lists every valid borrow status.
var BorrowStatuses = []BorrowStatus{BorrowPending, BorrowApproved, BorrowRejected, BorrowReturned}

// ActiveBorrowStatuses are the states that block a second request
// for the same (resource, borrower) pair.
var ActiveBorrowStatuses = []BorrowStatus{BorrowPending, BorrowApproved}

// borrowTransitions is the lifecycle graph. Rejected and Returned are terminal.
var borrowTransitions = map[BorrowStatus][]BorrowStatus{
	BorrowPending:  {BorrowApproved, BorrowRejected},
	BorrowApproved: {BorrowReturned},
	BorrowRejected: nil,
	BorrowReturned: nil,
}

// IsValid reports whether s is a known borrow status.
func (s BorrowStatus) IsValid() bool {
	_, ok := borrowTransitions[s]
	return ok
}

// IsActive reports whether s counts toward the one-active-request rule.
func (s BorrowStatus) IsActive() bool {
	return slices.Contains(ActiveBorrowStatuses, s)
}

// IsTerminal reports whether no further transition is possible from s.
func (s BorrowStatus) IsTerminal() bool {
	return s.IsValid() && len(borrowTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Staying in the same state is always allowed.
func (s BorrowStatus) CanTransitionTo(next BorrowStatus) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	if s == next {
		return true
	}
	return slices.Contains(borrowTransitions[s], next)
}

// PredecessorsOf returns every status that may move directly to next.
func PredecessorsOf(next BorrowStatus) []BorrowStatus {
	var from []BorrowStatus
	for _, s := range BorrowStatuses {
		if s != next && slices.Contains(borrowTransitions[s], next) {
			from = append(from, s)
		}
	}
	return from
}

// SourcesOf returns every status from which next may be reached,
// including next itself.
func SourcesOf(next BorrowStatus) []BorrowStatus {
	if !next.IsValid() {
		return nil
	}
	return append([]BorrowStatus{next}, PredecessorsOf(next)...)
}

// BorrowRequest is a borrower's request to take a resource from its owner.
type BorrowRequest struct {
	ID         string       `json:"id"`
	ResourceID string       `json:"resourceId"`
	Borrower   string       `json:"borrower"`
	Owner      string       `json:"owner"`
	Status     BorrowStatus `json:"status"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// IsActive reports whether the request is Pending or Approved.
func (b *BorrowRequest) IsActive() bool {
	return b.Status.IsActive()
}
