package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/campusshare/campusshare/internal/cache"
	"github.com/campusshare/campusshare/internal/errs"
	"github.com/campusshare/campusshare/internal/metrics"
	"github.com/campusshare/campusshare/internal/model"
	"github.com/campusshare/campusshare/internal/repository"
)

// ResourceService is the resource registry.
type ResourceService struct {
	store    ResourceStore
	cache    ResourceCache
	cacheTTL time.Duration
	metrics  metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewResourceService creates a ResourceService. cache may be nil, which
// disables listing caching.
func NewResourceService(store ResourceStore, cache ResourceCache, cacheTTL time.Duration, recorder metrics.Recorder, logger *slog.Logger) *ResourceService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResourceService{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  recorder,
		logger:   logger,
		now:      utcNow,
	}
}

// AddResourceInput defines input for listing a new resource.
type AddResourceInput struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Owner       string `json:"owner" validate:"required"`
}

// AddResource creates a resource in the Available state.
func (s *ResourceService) AddResource(ctx context.Context, input AddResourceInput) (*model.Resource, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Owner = strings.TrimSpace(input.Owner)

	if err := validateStruct(input); err != nil {
		return nil, err
	}

	now := s.now()
	res := &model.Resource{
		ID:          newID(),
		Title:       input.Title,
		Description: input.Description,
		Owner:       input.Owner,
		Status:      model.ResourceAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateResource(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	s.invalidateList(ctx)
	s.metrics.IncResourceCreated()

	return res, nil
}

// ListResourcesInput holds optional listing filters.
type ListResourcesInput struct {
	Status string
	Owner  string
}

// ListResources returns resources newest first. The unfiltered listing is
// served from cache when available.
func (s *ResourceService) ListResources(ctx context.Context, input ListResourcesInput) ([]*model.Resource, error) {
	filter := model.ResourceFilter{
		Status: model.ResourceStatus(strings.TrimSpace(input.Status)),
		Owner:  strings.TrimSpace(input.Owner),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, errs.Field("status", "status must be one of "+joinStatuses(model.ResourceStatuses))
	}

	cacheable := filter.IsZero() && s.cache != nil
	var gen int64
	if cacheable {
		cached, err := s.cache.GetResourceList(ctx)
		if err == nil {
			s.metrics.IncResourceListCacheHit()
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("resource list cache read failed", "error", err)
		}
		s.metrics.IncResourceListCacheMiss()

		// The generation must be read before the store so a write landing
		// between the query and the fill cannot be masked.
		gen, err = s.cache.ResourceListGeneration(ctx)
		if err != nil {
			s.logger.Warn("resource list generation read failed", "error", err)
			cacheable = false
		}
	}

	resources, err := s.store.ListResources(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}

	if cacheable {
		written, err := s.cache.SetResourceList(ctx, resources, gen, s.cacheTTL)
		if err != nil {
			s.logger.Warn("resource list cache write failed", "error", err)
		} else if !written {
			s.logger.Debug("resource list cache fill skipped", "generation", gen)
		}
	}

	return resources, nil
}

// GetResource returns a single resource.
func (s *ResourceService) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	res, err := s.store.GetResource(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, repository.ErrResourceNotFound) {
			return nil, errs.NotFound("resource not found")
		}
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	return res, nil
}

// UpdateResourceStatusInput defines input for changing a resource's status.
type UpdateResourceStatusInput struct {
	Status string `json:"status" validate:"required,resource_status"`
}

// UpdateResourceStatus overwrites the status of a resource. An invalid status
// leaves the record untouched.
func (s *ResourceService) UpdateResourceStatus(ctx context.Context, id string, input UpdateResourceStatusInput) (*model.Resource, error) {
	input.Status = strings.TrimSpace(input.Status)
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	res, err := s.store.UpdateResourceStatus(ctx, strings.TrimSpace(id), model.ResourceStatus(input.Status), s.now())
	if err != nil {
		if errors.Is(err, repository.ErrResourceNotFound) {
			return nil, errs.NotFound("resource not found")
		}
		return nil, fmt.Errorf("failed to update resource status: %w", err)
	}

	s.invalidateList(ctx)
	s.metrics.IncResourceStatusUpdated()

	return res, nil
}

func (s *ResourceService) invalidateList(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateResourceList(ctx); err != nil {
		s.logger.Warn("resource list cache invalidation failed", "error", err)
	}
}
