package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campusshare/campusshare/internal/errs"
	"github.com/campusshare/campusshare/internal/model"
	"github.com/campusshare/campusshare/internal/repository"
)

// ActivityService serves borrow request history.
type ActivityService struct {
	borrows BorrowGetter
	events  BorrowEventLister
}

// NewActivityService creates an ActivityService.
func NewActivityService(borrows BorrowGetter, events BorrowEventLister) *ActivityService {
	return &ActivityService{borrows: borrows, events: events}
}

// BorrowHistory returns the recorded events of a borrow request, oldest
// first. Events are written asynchronously, so the newest step may lag
// briefly behind the request's current status.
func (s *ActivityService) BorrowHistory(ctx context.Context, borrowID string) ([]*model.BorrowEvent, error) {
	borrowID = strings.TrimSpace(borrowID)

	if _, err := s.borrows.GetBorrow(ctx, borrowID); err != nil {
		if errors.Is(err, repository.ErrBorrowNotFound) {
			return nil, errs.NotFound("borrow request not found")
		}
		return nil, fmt.Errorf("failed to get borrow request: %w", err)
	}

	events, err := s.events.ListBorrowEvents(ctx, borrowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list borrow events: %w", err)
	}
	return events, nil
}
