// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/campusshare/campusshare/internal/model"
)

// CreateResourceRequest represents the request body for listing a resource.
type CreateResourceRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Owner       string `json:"owner"`
}

// UpdateStatusRequest is the body of both status update endpoints.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// ResourceResponse represents a resource in API responses.
type ResourceResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Owner       string    `json:"owner"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ToResourceResponse converts a model.Resource to ResourceResponse.
func ToResourceResponse(res *model.Resource) ResourceResponse {
	return ResourceResponse{
		ID:          res.ID,
		Title:       res.Title,
		Description: res.Description,
		Owner:       res.Owner,
		Status:      string(res.Status),
		CreatedAt:   res.CreatedAt,
		UpdatedAt:   res.UpdatedAt,
	}
}

// ToResourceListResponse converts resources to a JSON array, never null.
func ToResourceListResponse(resources []*model.Resource) []ResourceResponse {
	out := make([]ResourceResponse, 0, len(resources))
	for _, res := range resources {
		out = append(out, ToResourceResponse(res))
	}
	return out
}
