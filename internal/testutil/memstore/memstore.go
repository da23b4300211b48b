// Package memstore provides in-memory stand-ins for the PostgreSQL
// repository and the Redis cache, for unit and contract tests.
//
// Store mirrors the database constraints the services rely on: unique user
// email, the resource foreign key on borrow requests, one active request per
// (resource, borrower) and conditional status transitions.
package memstore

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/campusshare/campusshare/internal/cache"
	"github.com/campusshare/campusshare/internal/model"
	"github.com/campusshare/campusshare/internal/repository"
)

// Store is a goroutine-safe in-memory repository.
type Store struct {
	mu        sync.Mutex
	users     map[string]*model.User
	resources map[string]*model.Resource
	borrows   map[string]*model.BorrowRequest
	events    map[string]*model.BorrowEvent

	// PingErr is returned by Ping when set.
	PingErr error
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:     make(map[string]*model.User),
		resources: make(map[string]*model.Resource),
		borrows:   make(map[string]*model.BorrowRequest),
		events:    make(map[string]*model.BorrowEvent),
	}
}

// Ping reports PingErr.
func (s *Store) Ping(ctx context.Context) error {
	return s.PingErr
}

// Counts returns per-table totals.
func (s *Store) Counts(ctx context.Context) (*repository.Counts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &repository.Counts{
		Users:          int64(len(s.users)),
		Resources:      int64(len(s.resources)),
		BorrowRequests: int64(len(s.borrows)),
	}, nil
}

// CreateUser stores a user; emails are unique.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

// GetUserByEmail looks a user up by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// GetUserByID looks a user up by id.
func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// CreateResource stores a resource.
func (s *Store) CreateResource(ctx context.Context, res *model.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *res
	s.resources[res.ID] = &cp
	return nil
}

// GetResource looks a resource up by id.
func (s *Store) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.resources[id]
	if !ok {
		return nil, repository.ErrResourceNotFound
	}
	cp := *res
	return &cp, nil
}

// ListResources returns matching resources, newest id first.
func (s *Store) ListResources(ctx context.Context, filter model.ResourceFilter) ([]*model.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Resource, 0, len(s.resources))
	for _, res := range s.resources {
		if filter.Matches(res) {
			cp := *res
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *model.Resource) int { return strings.Compare(b.ID, a.ID) })
	return out, nil
}

// UpdateResourceStatus overwrites a resource's status.
func (s *Store) UpdateResourceStatus(ctx context.Context, id string, status model.ResourceStatus, at time.Time) (*model.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.resources[id]
	if !ok {
		return nil, repository.ErrResourceNotFound
	}
	res.Status = status
	res.UpdatedAt = at
	cp := *res
	return &cp, nil
}

// CreateBorrow stores a borrow request, enforcing the resource reference and
// the one-active-request rule.
func (s *Store) CreateBorrow(ctx context.Context, b *model.BorrowRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[b.ResourceID]; !ok {
		return repository.ErrResourceNotFound
	}
	if b.Status.IsActive() && s.hasActiveLocked(b.ResourceID, b.Borrower) {
		return repository.ErrActiveBorrowExists
	}
	cp := *b
	s.borrows[b.ID] = &cp
	return nil
}

// GetBorrow looks a borrow request up by id.
func (s *Store) GetBorrow(ctx context.Context, id string) (*model.BorrowRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.borrows[id]
	if !ok {
		return nil, repository.ErrBorrowNotFound
	}
	cp := *b
	return &cp, nil
}

// ListBorrows returns matching requests, newest id first.
func (s *Store) ListBorrows(ctx context.Context, filter model.BorrowFilter) ([]*model.BorrowRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.BorrowRequest, 0, len(s.borrows))
	for _, b := range s.borrows {
		if filter.Matches(b) {
			cp := *b
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *model.BorrowRequest) int { return strings.Compare(b.ID, a.ID) })
	return out, nil
}

// HasActiveBorrow reports whether the pair has a Pending or Approved request.
func (s *Store) HasActiveBorrow(ctx context.Context, resourceID, borrower string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasActiveLocked(resourceID, borrower), nil
}

// TransitionBorrow sets next only when the current status is in from.
func (s *Store) TransitionBorrow(ctx context.Context, id string, next model.BorrowStatus, from []model.BorrowStatus, at time.Time) (*model.BorrowRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.borrows[id]
	if !ok {
		return nil, repository.ErrBorrowNotFound
	}
	if !slices.Contains(from, b.Status) {
		return nil, repository.ErrBorrowStatusConflict
	}
	b.Status = next
	b.UpdatedAt = at
	cp := *b
	return &cp, nil
}

// SetBorrowStatus forces a status, bypassing the lifecycle. Tests use it to
// simulate a concurrent writer.
func (s *Store) SetBorrowStatus(id string, status model.BorrowStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.borrows[id]; ok {
		b.Status = status
	}
}

// InsertBorrowEvents stores history events, skipping event ids already seen.
func (s *Store) InsertBorrowEvents(ctx context.Context, events []*model.BorrowEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if _, ok := s.borrows[e.BorrowID]; !ok {
			return repository.ErrBorrowNotFound
		}
	}
	for _, e := range events {
		if _, ok := s.events[e.EventID]; ok {
			continue
		}
		cp := *e
		s.events[e.EventID] = &cp
	}
	return nil
}

// ListBorrowEvents returns a request's history, oldest first.
func (s *Store) ListBorrowEvents(ctx context.Context, borrowID string) ([]*model.BorrowEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.BorrowEvent, 0)
	for _, e := range s.events {
		if e.BorrowID == borrowID {
			cp := *e
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *model.BorrowEvent) int {
		if c := a.OccurredAt.Compare(b.OccurredAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// PublishBorrowEvent records the event straight into the history, standing in
// for the stream and its worker.
func (s *Store) PublishBorrowEvent(event model.BorrowEvent) {
	if event.EventID == "" {
		event.EventID = event.ID
	}
	_ = s.InsertBorrowEvents(context.Background(), []*model.BorrowEvent{&event})
}

func (s *Store) hasActiveLocked(resourceID, borrower string) bool {
	for _, b := range s.borrows {
		if b.ResourceID == resourceID && b.Borrower == borrower && b.Status.IsActive() {
			return true
		}
	}
	return false
}

// Cache is an in-memory stand-in for the Redis resource list cache and the
// token denylist.
type Cache struct {
	mu      sync.Mutex
	list    []*model.Resource
	hasList bool
	gen     int64
	revoked map[string]time.Time

	// PingErr is returned by Ping when set.
	PingErr error
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{revoked: make(map[string]time.Time)}
}

// Ping reports PingErr.
func (c *Cache) Ping(ctx context.Context) error {
	return c.PingErr
}

// GetResourceList returns the cached listing or cache.ErrCacheMiss.
func (c *Cache) GetResourceList(ctx context.Context) ([]*model.Resource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasList {
		return nil, cache.ErrCacheMiss
	}
	return slices.Clone(c.list), nil
}

// ResourceListGeneration returns the invalidation counter.
func (c *Cache) ResourceListGeneration(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

// SetResourceList stores the listing unless the generation moved past gen;
// ttl is ignored.
func (c *Cache) SetResourceList(ctx context.Context, resources []*model.Resource, gen int64, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false, nil
	}
	c.list = slices.Clone(resources)
	c.hasList = true
	return true, nil
}

// InvalidateResourceList bumps the generation and drops the listing.
func (c *Cache) InvalidateResourceList(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.list = nil
	c.hasList = false
	return nil
}

// RevokeToken denylists tokenID.
func (c *Cache) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked[tokenID] = expiresAt
	return nil
}

// IsTokenRevoked reports whether tokenID is denylisted and not yet expired.
func (c *Cache) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp, ok := c.revoked[tokenID]
	return ok && time.Now().Before(exp), nil
}
