package activity

import (
	"errors"
	"fmt"

	"github.com/campusshare/campusshare/internal/model"
)

const maxFieldLength = 255

// ValidatePayload checks a decoded stream entry before it is stored.
func ValidatePayload(p EventPayload) error {
	for _, f := range []struct{ name, value string }{
		{"id", p.ID},
		{"borrow_id", p.BorrowID},
		{"resource_id", p.ResourceID},
		{"borrower", p.Borrower},
		{"owner", p.Owner},
	} {
		if f.value == "" {
			return fmt.Errorf("%s is required", f.name)
		}
		if len(f.value) > maxFieldLength {
			return fmt.Errorf("%s too long", f.name)
		}
	}

	to := model.BorrowStatus(p.To)
	if !to.IsValid() {
		return fmt.Errorf("unknown target status %q", p.To)
	}
	if p.From == "" {
		if to != model.BorrowPending {
			return errors.New("a new request must start Pending")
		}
	} else if !model.BorrowStatus(p.From).CanTransitionTo(to) || p.From == p.To {
		return fmt.Errorf("illegal transition %s -> %s", p.From, p.To)
	}

	if p.OccurredAt <= 0 {
		return errors.New("occurred_at must be set")
	}
	return nil
}
