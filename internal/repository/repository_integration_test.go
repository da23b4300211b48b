//go:build integration

package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/campusshare/campusshare/internal/model"
	"github.com/campusshare/campusshare/internal/testutil"
)

func newTestRepository(t *testing.T, ctx context.Context) *Repository {
	t.Helper()

	dbURL := testutil.RequireEnv(t, "TEST_DATABASE_URL")
	repo, err := New(ctx, dbURL, DefaultPoolConfig)
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.ResetSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	return repo
}

func TestIntegrationRepository_Users(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	user := testutil.NewTestUser(t, "alice@campus.edu")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := repo.GetUserByEmail(ctx, "alice@campus.edu")
	if err != nil {
		t.Fatalf("get user by email: %v", err)
	}
	if got.ID != user.ID || got.PasswordHash != user.PasswordHash || got.Username != user.Username {
		t.Errorf("unexpected user: %+v", got)
	}

	if _, err := repo.GetUserByID(ctx, user.ID); err != nil {
		t.Fatalf("get user by id: %v", err)
	}

	dup := testutil.NewTestUser(t, "alice@campus.edu")
	if err := repo.CreateUser(ctx, dup); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}

	if _, err := repo.GetUserByEmail(ctx, "nobody@campus.edu"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestIntegrationRepository_Resources(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	first := testutil.NewTestResource(t, "alice")
	second := testutil.NewTestResource(t, "bob")
	for _, r := range []*model.Resource{first, second} {
		if err := repo.CreateResource(ctx, r); err != nil {
			t.Fatalf("create resource: %v", err)
		}
	}

	all, err := repo.ListResources(ctx, model.ResourceFilter{})
	if err != nil {
		t.Fatalf("list resources: %v", err)
	}
	if len(all) != 2 || all[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", all)
	}

	byOwner, err := repo.ListResources(ctx, model.ResourceFilter{Owner: "alice"})
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(byOwner) != 1 || byOwner[0].ID != first.ID {
		t.Fatalf("unexpected owner filter result: %+v", byOwner)
	}

	updated, err := repo.UpdateResourceStatus(ctx, first.ID, model.ResourceBorrowed, time.Now().UTC())
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != model.ResourceBorrowed || !updated.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("status not updated: %+v", updated)
	}

	borrowed, err := repo.ListResources(ctx, model.ResourceFilter{Status: model.ResourceBorrowed})
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(borrowed) != 1 {
		t.Fatalf("expected 1 borrowed resource, got %d", len(borrowed))
	}

	if _, err := repo.UpdateResourceStatus(ctx, "missing", model.ResourceBorrowed, time.Now()); !errors.Is(err, ErrResourceNotFound) {
		t.Fatalf("expected ErrResourceNotFound, got %v", err)
	}
	if _, err := repo.GetResource(ctx, "missing"); !errors.Is(err, ErrResourceNotFound) {
		t.Fatalf("expected ErrResourceNotFound, got %v", err)
	}
}

func TestIntegrationRepository_BorrowLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	res := testutil.NewTestResource(t, "alice")
	if err := repo.CreateResource(ctx, res); err != nil {
		t.Fatalf("create resource: %v", err)
	}

	b := testutil.NewTestBorrow(t, res.ID, "bob", "alice")
	if err := repo.CreateBorrow(ctx, b); err != nil {
		t.Fatalf("create borrow: %v", err)
	}

	active, err := repo.HasActiveBorrow(ctx, res.ID, "bob")
	if err != nil {
		t.Fatalf("has active borrow: %v", err)
	}
	if !active {
		t.Fatal("expected an active borrow request")
	}

	dup := testutil.NewTestBorrow(t, res.ID, "bob", "alice")
	if err := repo.CreateBorrow(ctx, dup); !errors.Is(err, ErrActiveBorrowExists) {
		t.Fatalf("expected ErrActiveBorrowExists, got %v", err)
	}

	approved, err := repo.TransitionBorrow(ctx, b.ID, model.BorrowApproved, []model.BorrowStatus{model.BorrowPending}, time.Now().UTC())
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != model.BorrowApproved {
		t.Fatalf("expected Approved, got %s", approved.Status)
	}

	if _, err := repo.TransitionBorrow(ctx, b.ID, model.BorrowRejected, []model.BorrowStatus{model.BorrowPending}, time.Now()); !errors.Is(err, ErrBorrowStatusConflict) {
		t.Fatalf("expected ErrBorrowStatusConflict, got %v", err)
	}
	if _, err := repo.TransitionBorrow(ctx, "missing", model.BorrowRejected, []model.BorrowStatus{model.BorrowPending}, time.Now()); !errors.Is(err, ErrBorrowNotFound) {
		t.Fatalf("expected ErrBorrowNotFound, got %v", err)
	}

	if _, err := repo.TransitionBorrow(ctx, b.ID, model.BorrowReturned, []model.BorrowStatus{model.BorrowApproved}, time.Now().UTC()); err != nil {
		t.Fatalf("return: %v", err)
	}

	again := testutil.NewTestBorrow(t, res.ID, "bob", "alice")
	if err := repo.CreateBorrow(ctx, again); err != nil {
		t.Fatalf("re-request after return: %v", err)
	}

	list, err := repo.ListBorrows(ctx, model.BorrowFilter{ResourceID: res.ID})
	if err != nil {
		t.Fatalf("list borrows: %v", err)
	}
	if len(list) != 2 || list[0].ID != again.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}

	pending, err := repo.ListBorrows(ctx, model.BorrowFilter{Status: model.BorrowPending, Borrower: "bob"})
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != again.ID {
		t.Fatalf("unexpected pending list: %+v", pending)
	}

	counts, err := repo.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Resources != 1 || counts.BorrowRequests != 2 || counts.Users != 0 {
		t.Errorf("unexpected counts: %+v", counts)
	}
}

func TestIntegrationRepository_BorrowEvents(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	res := testutil.NewTestResource(t, "alice")
	if err := repo.CreateResource(ctx, res); err != nil {
		t.Fatalf("create resource: %v", err)
	}
	b := testutil.NewTestBorrow(t, res.ID, "bob", "alice")
	if err := repo.CreateBorrow(ctx, b); err != nil {
		t.Fatalf("create borrow: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	events := []*model.BorrowEvent{
		{ID: "ev-1", EventID: "1-0", BorrowID: b.ID, ResourceID: res.ID, Borrower: "bob", Owner: "alice", To: model.BorrowPending, OccurredAt: now},
		{ID: "ev-2", EventID: "2-0", BorrowID: b.ID, ResourceID: res.ID, Borrower: "bob", Owner: "alice", From: model.BorrowPending, To: model.BorrowApproved, OccurredAt: now.Add(time.Second)},
	}
	if err := repo.InsertBorrowEvents(ctx, events); err != nil {
		t.Fatalf("insert events: %v", err)
	}
	// Replays are ignored.
	if err := repo.InsertBorrowEvents(ctx, events); err != nil {
		t.Fatalf("replay events: %v", err)
	}

	history, err := repo.ListBorrowEvents(ctx, b.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(history) != 2 || history[0].To != model.BorrowPending || history[1].From != model.BorrowPending {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestIntegrationRepository_BorrowUnknownResource(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	b := testutil.NewTestBorrow(t, "no-such-resource", "bob", "alice")
	if err := repo.CreateBorrow(ctx, b); !errors.Is(err, ErrResourceNotFound) {
		t.Fatalf("expected ErrResourceNotFound, got %v", err)
	}
}

func TestIntegrationRepository_ConcurrentCreateOneWins(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	res := testutil.NewTestResource(t, "alice")
	if err := repo.CreateResource(ctx, res); err != nil {
		t.Fatalf("create resource: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.CreateBorrow(ctx, testutil.NewTestBorrow(t, res.ID, "bob", "alice"))
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrActiveBorrowExists):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != workers-1 {
		t.Errorf("expected exactly one winner, got ok=%d dup=%d", ok, dup)
	}
}

func TestIntegrationRepository_MigrateRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	reverted, err := repo.MigrateDown(ctx, 0)
	if err != nil {
		t.Fatalf("migrate down: %v", err)
	}
	// ResetSchema applies the scripts without recording them.
	if len(reverted) != 0 {
		t.Fatalf("expected nothing recorded to revert, got %v", reverted)
	}

	if _, err := repo.Pool().Exec(ctx, `DROP TABLE IF EXISTS borrow_events, borrow_requests, resources, users, schema_migrations`); err != nil {
		t.Fatalf("drop: %v", err)
	}

	applied, err := repo.Migrate(ctx)
	if err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	if len(applied) != 4 {
		t.Fatalf("expected 4 migrations applied, got %v", applied)
	}

	again, err := repo.Migrate(ctx)
	if err != nil {
		t.Fatalf("migrate up again: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected no pending migrations, got %v", again)
	}

	reverted, err = repo.MigrateDown(ctx, 1)
	if err != nil {
		t.Fatalf("migrate down one: %v", err)
	}
	if len(reverted) != 1 || reverted[0] != "000004_borrow_events" {
		t.Fatalf("expected borrow_events reverted, got %v", reverted)
	}
}
