package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/campusshare/campusshare/internal/auth"
	"github.com/campusshare/campusshare/internal/errs"
)

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Parse(token string) (*auth.Claims, error)
}

// RevocationChecker reports whether a token id has been logged out.
type RevocationChecker interface {
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger *slog.Logger
	Tokens TokenVerifier
	// Revocations may be nil, which disables the logout denylist.
	Revocations RevocationChecker
}

// Auth returns a middleware that requires a bearer token.
//
// A missing or non-Bearer Authorization header answers 401. A token that
// fails verification, has expired or was revoked answers 403.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				logAuthFailure(cfg.Logger, r, "missing_token")
				writeError(w, errs.NewHTTPError(http.StatusUnauthorized, errs.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := cfg.Tokens.Parse(token)
			if err != nil {
				reason, msg := "invalid_token", "invalid token"
				if errors.Is(err, auth.ErrTokenExpired) {
					reason, msg = "expired_token", "token expired"
				}
				logAuthFailure(cfg.Logger, r, reason)
				writeError(w, errs.NewHTTPError(http.StatusForbidden, errs.CodeForbidden, msg))
				return
			}

			if cfg.Revocations != nil {
				revoked, err := cfg.Revocations.IsTokenRevoked(r.Context(), claims.ID)
				if err != nil {
					cfg.Logger.Error("token revocation check failed",
						slog.String("error", err.Error()),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					writeError(w, errs.NewInternalServerError())
					return
				}
				if revoked {
					logAuthFailure(cfg.Logger, r, "revoked_token")
					writeError(w, errs.NewHTTPError(http.StatusForbidden, errs.CodeForbidden, "token revoked"))
					return
				}
			}

			principal := claims.Principal()
			recordPrincipal(r, principal.UserID)

			ctx := auth.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}
