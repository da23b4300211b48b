// Package service provides business logic for the application.
//
// Services hold no request state. Every operation reads and writes through
// the injected stores, so a single instance is shared by all handlers.
package service

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/campusshare/campusshare/internal/auth"
	"github.com/campusshare/campusshare/internal/model"
)

// ResourceStore persists resources.
type ResourceStore interface {
	CreateResource(ctx context.Context, res *model.Resource) error
	GetResource(ctx context.Context, id string) (*model.Resource, error)
	ListResources(ctx context.Context, filter model.ResourceFilter) ([]*model.Resource, error)
	UpdateResourceStatus(ctx context.Context, id string, status model.ResourceStatus, at time.Time) (*model.Resource, error)
}

// ResourceCache caches the unfiltered resource listing.
type ResourceCache interface {
	GetResourceList(ctx context.Context) ([]*model.Resource, error)
	ResourceListGeneration(ctx context.Context) (int64, error)
	SetResourceList(ctx context.Context, resources []*model.Resource, gen int64, ttl time.Duration) (bool, error)
	InvalidateResourceList(ctx context.Context) error
}

// ResourceGetter looks up a single resource.
type ResourceGetter interface {
	GetResource(ctx context.Context, id string) (*model.Resource, error)
}

// BorrowStore persists borrow requests.
type BorrowStore interface {
	CreateBorrow(ctx context.Context, b *model.BorrowRequest) error
	GetBorrow(ctx context.Context, id string) (*model.BorrowRequest, error)
	ListBorrows(ctx context.Context, filter model.BorrowFilter) ([]*model.BorrowRequest, error)
	HasActiveBorrow(ctx context.Context, resourceID, borrower string) (bool, error)
	TransitionBorrow(ctx context.Context, id string, next model.BorrowStatus, from []model.BorrowStatus, at time.Time) (*model.BorrowRequest, error)
}

// BorrowGetter looks up a single borrow request.
type BorrowGetter interface {
	GetBorrow(ctx context.Context, id string) (*model.BorrowRequest, error)
}

// BorrowEventPublisher hands borrow history events off for asynchronous
// persistence. Publishing never fails the calling operation.
type BorrowEventPublisher interface {
	PublishBorrowEvent(event model.BorrowEvent)
}

// BorrowEventLister reads persisted borrow history.
type BorrowEventLister interface {
	ListBorrowEvents(ctx context.Context, borrowID string) ([]*model.BorrowEvent, error)
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// TokenIssuer mints bearer tokens.
type TokenIssuer interface {
	Mint(user *model.User) (*auth.IssuedToken, error)
}

// TokenRevoker denylists bearer tokens.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// newID returns a lexicographically time-ordered identifier.
func newID() string {
	return ulid.Make().String()
}

func utcNow() time.Time {
	return time.Now().UTC()
}
