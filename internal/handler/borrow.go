package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campusshare/campusshare/internal/handler/dto"
	"github.com/campusshare/campusshare/internal/middleware"
	"github.com/campusshare/campusshare/internal/service"
)

// BorrowHandler handles HTTP requests for borrow requests.
type BorrowHandler struct {
	svc    *service.BorrowService
	logger *slog.Logger
}

// NewBorrowHandler creates a new BorrowHandler.
func NewBorrowHandler(svc *service.BorrowService, logger *slog.Logger) *BorrowHandler {
	return &BorrowHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /api/borrows.
func (h *BorrowHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBorrowRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	b, err := h.svc.CreateRequest(r.Context(), service.CreateBorrowInput{
		ResourceID: req.ResourceID,
		Borrower:   req.Borrower,
		Owner:      req.Owner,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("borrow_requested",
		"borrow_id", b.ID,
		"resource_id", b.ResourceID,
		"request_id", middleware.GetRequestID(r.Context()),
	)

	writeJSON(w, http.StatusCreated, dto.ToBorrowResponse(b))
}

// List handles GET /api/borrows?status=&borrower=&owner=&resourceId=.
func (h *BorrowHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	borrows, err := h.svc.ListRequests(r.Context(), service.ListBorrowsInput{
		Status:     query.Get("status"),
		Borrower:   query.Get("borrower"),
		Owner:      query.Get("owner"),
		ResourceID: query.Get("resourceId"),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToBorrowListResponse(borrows))
}

// Get handles GET /api/borrows/{id}.
func (h *BorrowHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.GetRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToBorrowResponse(b))
}

// UpdateStatus handles PUT /api/borrows/{id}/status.
func (h *BorrowHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	b, err := h.svc.UpdateRequestStatus(r.Context(), chi.URLParam(r, "id"), service.UpdateBorrowStatusInput{
		Status: req.Status,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("borrow_status_updated",
		"borrow_id", b.ID,
		"status", b.Status,
		"request_id", middleware.GetRequestID(r.Context()),
	)

	writeJSON(w, http.StatusOK, dto.ToBorrowResponse(b))
}
