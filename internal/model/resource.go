package model

import "time"

// ResourceStatus is the availability of a shareable resource.
type ResourceStatus string

const (
	ResourceAvailable   ResourceStatus = "Available"
	ResourceBorrowed    ResourceStatus = "Borrowed"
	ResourceUnavailable ResourceStatus = "Unavailable"
)

// ResourceStatuses lists every valid resource status.
var ResourceStatuses = []ResourceStatus{ResourceAvailable, ResourceBorrowed, ResourceUnavailable}

// IsValid reports whether s is a known resource status.
func (s ResourceStatus) IsValid() bool {
	switch s {
	case ResourceAvailable, ResourceBorrowed, ResourceUnavailable:
		return true
	}
	return false
}

// Resource is an item listed for sharing by its owner.
// Owner is a display name, not a reference to a User.
type Resource struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Owner       string         `json:"owner"`
	Status      ResourceStatus `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}
