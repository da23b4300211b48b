package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campusshare/campusshare/internal/handler/dto"
	"github.com/campusshare/campusshare/internal/middleware"
	"github.com/campusshare/campusshare/internal/service"
)

// ResourceHandler handles HTTP requests for resource operations.
type ResourceHandler struct {
	svc    *service.ResourceService
	logger *slog.Logger
}

// NewResourceHandler creates a new ResourceHandler.
func NewResourceHandler(svc *service.ResourceService, logger *slog.Logger) *ResourceHandler {
	return &ResourceHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /api/resources.
func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateResourceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.svc.AddResource(r.Context(), service.AddResourceInput{
		Title:       req.Title,
		Description: req.Description,
		Owner:       req.Owner,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("resource_created",
		"resource_id", res.ID,
		"owner", res.Owner,
		"request_id", middleware.GetRequestID(r.Context()),
	)

	writeJSON(w, http.StatusCreated, dto.ToResourceResponse(res))
}

// List handles GET /api/resources?status=&owner=.
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	resources, err := h.svc.ListResources(r.Context(), service.ListResourcesInput{
		Status: query.Get("status"),
		Owner:  query.Get("owner"),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToResourceListResponse(resources))
}

// Get handles GET /api/resources/{id}.
func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetResource(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToResourceResponse(res))
}

// UpdateStatus handles PUT /api/resources/{id}/status.
func (h *ResourceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.svc.UpdateResourceStatus(r.Context(), chi.URLParam(r, "id"), service.UpdateResourceStatusInput{
		Status: req.Status,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("resource_status_updated",
		"resource_id", res.ID,
		"status", res.Status,
		"request_id", middleware.GetRequestID(r.Context()),
	)

	writeJSON(w, http.StatusOK, dto.ToResourceResponse(res))
}
