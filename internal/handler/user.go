package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/campusshare/campusshare/internal/auth"
	"github.com/campusshare/campusshare/internal/errs"
	"github.com/campusshare/campusshare/internal/handler/dto"
	"github.com/campusshare/campusshare/internal/middleware"
	"github.com/campusshare/campusshare/internal/service"
)

// UserHandler handles account endpoints.
type UserHandler struct {
	svc    *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		svc:    svc,
		logger: logger,
	}
}

// Register handles POST /api/users/register.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.svc.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("user_registered",
		"user_id", user.ID,
		"request_id", middleware.GetRequestID(r.Context()),
	)

	writeJSON(w, http.StatusCreated, dto.ToUserResponse(user))
}

// Login handles POST /api/users/login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.svc.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, errs.ErrUnauthorized) {
			h.logger.Warn("login_failed",
				"ip", r.RemoteAddr,
				"request_id", middleware.GetRequestID(r.Context()),
			)
		}
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("user_logged_in",
		"user_id", res.User.ID,
		"request_id", middleware.GetRequestID(r.Context()),
	)

	writeJSON(w, http.StatusOK, dto.LoginResponse{
		Token:     res.Token,
		Username:  res.User.Username,
		ExpiresAt: res.ExpiresAt,
	})
}

// Logout handles POST /api/users/logout. The bearer token used for the
// call stops working immediately.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if err := h.svc.Logout(r.Context(), principal); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("user_logged_out",
		"user_id", principal.UserID,
		"request_id", middleware.GetRequestID(r.Context()),
	)

	w.WriteHeader(http.StatusNoContent)
}
