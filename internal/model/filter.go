package model

// ResourceFilter narrows a resource listing. Zero fields match everything.
type ResourceFilter struct {
	Status ResourceStatus
	Owner  string
}

// IsZero reports whether no filter is set.
func (f ResourceFilter) IsZero() bool {
	return f == ResourceFilter{}
}

// Matches reports whether r satisfies the filter.
func (f ResourceFilter) Matches(r *Resource) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Owner != "" && r.Owner != f.Owner {
		return false
	}
	return true
}

// BorrowFilter narrows a borrow request listing. Zero fields match everything.
type BorrowFilter struct {
	Status     BorrowStatus
	Borrower   string
	Owner      string
	ResourceID string
}

// Matches reports whether b satisfies the filter.
func (f BorrowFilter) Matches(b *BorrowRequest) bool {
	switch {
	case f.Status != "" && b.Status != f.Status:
		return false
	case f.Borrower != "" && b.Borrower != f.Borrower:
		return false
	case f.Owner != "" && b.Owner != f.Owner:
		return false
	case f.ResourceID != "" && b.ResourceID != f.ResourceID:
		return false
	}
	return true
}
