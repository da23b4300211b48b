package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campusshare/campusshare/internal/errs"
	"github.com/campusshare/campusshare/internal/metrics"
	"github.com/campusshare/campusshare/internal/model"
	"github.com/campusshare/campusshare/internal/repository"
)

const msgDuplicateRequest = "duplicate active request"

// BorrowService runs the borrow request workflow.
type BorrowService struct {
	store     BorrowStore
	resources ResourceGetter
	metrics   metrics.Recorder
	events    BorrowEventPublisher
	now       func() time.Time
}

// NewBorrowService creates a BorrowService.
func NewBorrowService(store BorrowStore, resources ResourceGetter, recorder metrics.Recorder) *BorrowService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &BorrowService{
		store:     store,
		resources: resources,
		metrics:   recorder,
		now:       utcNow,
	}
}

// SetEventPublisher enables history events for creations and transitions.
func (s *BorrowService) SetEventPublisher(p BorrowEventPublisher) {
	s.events = p
}

func (s *BorrowService) publish(b *model.BorrowRequest, from model.BorrowStatus) {
	if s.events == nil {
		return
	}
	s.events.PublishBorrowEvent(model.BorrowEvent{
		ID:         newID(),
		BorrowID:   b.ID,
		ResourceID: b.ResourceID,
		Borrower:   b.Borrower,
		Owner:      b.Owner,
		From:       from,
		To:         b.Status,
		OccurredAt: b.UpdatedAt,
	})
}

// CreateBorrowInput defines input for requesting a resource.
type CreateBorrowInput struct {
	ResourceID string `json:"resourceId" validate:"required"`
	Borrower   string `json:"borrower" validate:"required"`
	Owner      string `json:"owner" validate:"required"`
}

// CreateRequest opens a Pending request. A pair with a Pending or Approved
// request already open is refused with a conflict.
func (s *BorrowService) CreateRequest(ctx context.Context, input CreateBorrowInput) (*model.BorrowRequest, error) {
	input.ResourceID = strings.TrimSpace(input.ResourceID)
	input.Borrower = strings.TrimSpace(input.Borrower)
	input.Owner = strings.TrimSpace(input.Owner)

	if err := validateStruct(input); err != nil {
		return nil, err
	}

	if _, err := s.resources.GetResource(ctx, input.ResourceID); err != nil {
		if errors.Is(err, repository.ErrResourceNotFound) {
			return nil, errs.Field("resourceId", "resourceId does not reference an existing resource")
		}
		return nil, fmt.Errorf("failed to look up resource: %w", err)
	}

	active, err := s.store.HasActiveBorrow(ctx, input.ResourceID, input.Borrower)
	if err != nil {
		return nil, fmt.Errorf("failed to check active requests: %w", err)
	}
	if active {
		s.metrics.IncBorrowDuplicate()
		return nil, errs.Conflict(errs.CodeDuplicateRequest, msgDuplicateRequest)
	}

	now := s.now()
	b := &model.BorrowRequest{
		ID:         newID(),
		ResourceID: input.ResourceID,
		Borrower:   input.Borrower,
		Owner:      input.Owner,
		Status:     model.BorrowPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.store.CreateBorrow(ctx, b); err != nil {
		switch {
		case errors.Is(err, repository.ErrActiveBorrowExists):
			s.metrics.IncBorrowDuplicate()
			return nil, errs.Conflict(errs.CodeDuplicateRequest, msgDuplicateRequest)
		case errors.Is(err, repository.ErrResourceNotFound):
			return nil, errs.Field("resourceId", "resourceId does not reference an existing resource")
		}
		return nil, fmt.Errorf("failed to create borrow request: %w", err)
	}

	s.metrics.IncBorrowRequested()
	s.publish(b, "")

	return b, nil
}

// ListBorrowsInput holds optional listing filters.
type ListBorrowsInput struct {
	Status     string
	Borrower   string
	Owner      string
	ResourceID string
}

// ListRequests returns borrow requests newest first.
func (s *BorrowService) ListRequests(ctx context.Context, input ListBorrowsInput) ([]*model.BorrowRequest, error) {
	filter := model.BorrowFilter{
		Status:     model.BorrowStatus(strings.TrimSpace(input.Status)),
		Borrower:   strings.TrimSpace(input.Borrower),
		Owner:      strings.TrimSpace(input.Owner),
		ResourceID: strings.TrimSpace(input.ResourceID),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, errs.Field("status", "status must be one of "+joinStatuses(model.BorrowStatuses))
	}

	borrows, err := s.store.ListBorrows(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list borrow requests: %w", err)
	}
	return borrows, nil
}

// GetRequest returns a single borrow request.
func (s *BorrowService) GetRequest(ctx context.Context, id string) (*model.BorrowRequest, error) {
	b, err := s.store.GetBorrow(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, repository.ErrBorrowNotFound) {
			return nil, errs.NotFound("borrow request not found")
		}
		return nil, fmt.Errorf("failed to get borrow request: %w", err)
	}
	return b, nil
}

// UpdateBorrowStatusInput defines input for moving a request through its lifecycle.
type UpdateBorrowStatusInput struct {
	Status string `json:"status" validate:"required,borrow_status"`
}

// UpdateRequestStatus applies a lifecycle transition.
//
// Pending may become Approved or Rejected, Approved may become Returned;
// Rejected and Returned are final. Requesting the current status is a no-op
// that returns the record unchanged. The write only succeeds if the stored
// status is still a legal predecessor, so concurrent updates cannot skip a
// step.
func (s *BorrowService) UpdateRequestStatus(ctx context.Context, id string, input UpdateBorrowStatusInput) (*model.BorrowRequest, error) {
	input.Status = strings.TrimSpace(input.Status)
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	next := model.BorrowStatus(input.Status)

	current, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	if current.Status == next {
		return current, nil
	}
	if !current.Status.CanTransitionTo(next) {
		s.metrics.IncBorrowInvalidTransition()
		return nil, invalidTransition(current.Status, next)
	}

	updated, err := s.store.TransitionBorrow(ctx, current.ID, next, model.PredecessorsOf(next), s.now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBorrowNotFound):
			return nil, errs.NotFound("borrow request not found")
		case errors.Is(err, repository.ErrBorrowStatusConflict):
			return s.resolveLostRace(ctx, current.ID, next)
		}
		return nil, fmt.Errorf("failed to update borrow request status: %w", err)
	}

	s.metrics.IncBorrowTransition(string(next))
	s.publish(updated, current.Status)

	return updated, nil
}

// resolveLostRace re-reads a request whose status changed underneath a
// transition. Landing on next already counts as success.
func (s *BorrowService) resolveLostRace(ctx context.Context, id string, next model.BorrowStatus) (*model.BorrowRequest, error) {
	latest, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if latest.Status == next {
		return latest, nil
	}
	s.metrics.IncBorrowInvalidTransition()
	return nil, invalidTransition(latest.Status, next)
}

func invalidTransition(from, to model.BorrowStatus) error {
	return errs.Conflict(errs.CodeInvalidTransition, fmt.Sprintf("cannot change status from %s to %s", from, to))
}
