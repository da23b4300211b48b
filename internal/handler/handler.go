// Package handler provides HTTP request handlers.
package handler

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/campusshare/campusshare/internal/errs"
	"github.com/campusshare/campusshare/internal/middleware"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Handler serves the informational endpoints and the router fallbacks.
type Handler struct {
	history bool
}

// New creates a new Handler instance. history controls whether the borrow
// history route is advertised.
func New(history bool) *Handler {
	return &Handler{history: history}
}

// InfoResponse describes the service and its endpoints.
type InfoResponse struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// Info lists the API surface.
// GET /
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	endpoints := map[string]string{
		"register":             "POST /api/users/register",
		"login":                "POST /api/users/login",
		"logout":               "POST /api/users/logout",
		"listResources":        "GET /api/resources",
		"getResource":          "GET /api/resources/{id}",
		"addResource":          "POST /api/resources",
		"updateResourceStatus": "PUT /api/resources/{id}/status",
		"listBorrowRequests":   "GET /api/borrows",
		"getBorrowRequest":     "GET /api/borrows/{id}",
		"createBorrowRequest":  "POST /api/borrows",
		"updateBorrowRequest":  "PUT /api/borrows/{id}/status",
		"ping":                 "GET /ping",
		"health":               "GET /healthz",
		"readiness":            "GET /readyz",
		"detailedHealth":       "GET /api/health/detailed",
		"metrics":              "GET /metrics",
	}
	if h.history {
		endpoints["borrowHistory"] = "GET /api/borrows/{id}/history"
	}

	writeJSON(w, http.StatusOK, InfoResponse{
		Name:      "campusshare",
		Version:   Version,
		Endpoints: endpoints,
	})
}

// Ping answers "pong".
// GET /ping
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "pong")
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeHTTPError(w, errs.NewHTTPError(http.StatusNotFound, errs.CodeNotFound, "route not found"))
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeHTTPError(w, errs.NewHTTPError(http.StatusMethodNotAllowed, "", "method not allowed"))
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

type errorEnvelope struct {
	Error *errs.HTTPError `json:"error"`
}

func writeHTTPError(w http.ResponseWriter, he *errs.HTTPError) {
	writeJSON(w, he.Status, errorEnvelope{Error: he})
}

// writeError maps err onto its HTTP form. Internal errors are logged with
// the request id and answered with a generic body.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	he := errs.ToHTTP(err)
	if he.Status >= http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeHTTPError(w, he)
}

// decodeJSON reads a JSON request body into dst. Unknown fields are
// ignored.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errs.NewHTTPError(http.StatusBadRequest, "INVALID_JSON", "request body is required")
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.NewHTTPError(http.StatusRequestEntityTooLarge, "", "request body too large")
		}
		return errs.NewHTTPError(http.StatusBadRequest, "INVALID_JSON", "could not read request body")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return errs.NewHTTPError(http.StatusBadRequest, "INVALID_JSON", "request body is required")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errs.NewHTTPError(http.StatusBadRequest, "INVALID_JSON", "invalid request body")
	}
	return nil
}
