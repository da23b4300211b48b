package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/campusshare/campusshare/internal/errs"
	"github.com/campusshare/campusshare/internal/metrics"
	"github.com/campusshare/campusshare/internal/model"
	"github.com/campusshare/campusshare/internal/repository"
)

const msgInvalidCredentials = "invalid credentials"

// UserService handles registration, login and logout.
type UserService struct {
	store   UserStore
	hasher  PasswordHasher
	tokens  TokenIssuer
	revoker TokenRevoker
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time

	// dummyHash is verified when the email is unknown so both failure paths
	// cost one hash.
	dummyHash string
}

// NewUserService creates a UserService.
func NewUserService(store UserStore, hasher PasswordHasher, tokens TokenIssuer, revoker TokenRevoker, recorder metrics.Recorder, logger *slog.Logger) (*UserService, error) {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}

	dummy, err := hasher.Hash("campusshare-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare password hasher: %w", err)
	}

	return &UserService{
		store:     store,
		hasher:    hasher,
		tokens:    tokens,
		revoker:   revoker,
		metrics:   recorder,
		logger:    logger,
		now:       utcNow,
		dummyHash: dummy,
	}, nil
}

// RegisterInput defines input for creating an account.
type RegisterInput struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Register creates an account. Emails are stored trimmed and lower-cased.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = normalizeEmail(input.Email)

	if err := validateStruct(input); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           newID(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, errs.Conflict(errs.CodeUserExists, "user already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.IncUserRegistered()

	return user, nil
}

// LoginInput defines input for exchanging credentials for a token.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is a signed bearer token and its owner.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// Login verifies credentials. Unknown email and wrong password produce the
// same error.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	input.Email = normalizeEmail(input.Email)

	if err := validateStruct(input); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, input.Email)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		_, _ = s.hasher.Verify(input.Password, s.dummyHash)
		return nil, s.loginFailed()
	}

	ok, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		s.logger.Error("stored password hash unreadable", "user_id", user.ID, "error", err)
		return nil, s.loginFailed()
	}
	if !ok {
		return nil, s.loginFailed()
	}

	issued, err := s.tokens.Mint(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.metrics.IncLogin(metrics.LoginSuccess)

	return &LoginResult{Token: issued.Token, ExpiresAt: issued.ExpiresAt, User: user}, nil
}

// Logout revokes the caller's token until it would have expired.
func (s *UserService) Logout(ctx context.Context, principal *model.Principal) error {
	if principal == nil || principal.TokenID == "" {
		return errs.Unauthorized(errs.CodeUnauthorized, "missing credentials")
	}

	if err := s.revoker.RevokeToken(ctx, principal.TokenID, principal.ExpiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	s.metrics.IncLogout()

	return nil
}

func (s *UserService) loginFailed() error {
	s.metrics.IncLogin(metrics.LoginFailure)
	return errs.Unauthorized(errs.CodeInvalidCredential, msgInvalidCredentials)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
