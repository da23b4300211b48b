package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campusshare/campusshare/internal/handler/dto"
	"github.com/campusshare/campusshare/internal/service"
)

// ActivityHandler serves borrow request history.
type ActivityHandler struct {
	svc    *service.ActivityService
	logger *slog.Logger
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(svc *service.ActivityService, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{svc: svc, logger: logger}
}

// BorrowHistory handles GET /api/borrows/{id}/history.
func (h *ActivityHandler) BorrowHistory(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.BorrowHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToBorrowHistoryResponse(events))
}
