package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusshare/campusshare/internal/errs"
	"github.com/campusshare/campusshare/internal/metrics"
	"github.com/campusshare/campusshare/internal/model"
	"github.com/campusshare/campusshare/internal/testutil/memstore"
)

func newResourceService(t *testing.T) (*ResourceService, *memstore.Store, *memstore.Cache, *metrics.InMemoryRecorder) {
	t.Helper()
	store := memstore.New()
	c := memstore.NewCache()
	rec := metrics.NewInMemory()
	return NewResourceService(store, c, time.Minute, rec, nil), store, c, rec
}

func TestAddResource_DefaultsToAvailable(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newResourceService(t)

	res, err := svc.AddResource(context.Background(), AddResourceInput{Title: "Book", Description: "Desc", Owner: "alice"})
	require.NoError(t, err)

	assert.Equal(t, model.ResourceAvailable, res.Status)
	assert.Equal(t, "Book", res.Title)
	assert.Equal(t, "alice", res.Owner)
	assert.NotEmpty(t, res.ID)
	assert.False(t, res.CreatedAt.IsZero())
	assert.Equal(t, res.CreatedAt, res.UpdatedAt)
}

func TestAddResource_AlwaysAvailable(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newResourceService(t)

	inputs := []AddResourceInput{
		{Title: "Projector", Description: "Epson, HDMI", Owner: "dept-physics"},
		{Title: " Bike ", Description: "Blue, 21 gears", Owner: "carol"},
		{Title: "x", Description: "y", Owner: "z"},
	}
	for _, in := range inputs {
		res, err := svc.AddResource(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, model.ResourceAvailable, res.Status)
	}
}

func TestAddResource_TrimsInput(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newResourceService(t)

	res, err := svc.AddResource(context.Background(), AddResourceInput{Title: "  Book  ", Description: "\tDesc\n", Owner: " alice "})
	require.NoError(t, err)
	assert.Equal(t, "Book", res.Title)
	assert.Equal(t, "Desc", res.Description)
	assert.Equal(t, "alice", res.Owner)
}

func TestAddResource_MissingFields(t *testing.T) {
	t.Parallel()
	svc, store, _, _ := newResourceService(t)

	_, err := svc.AddResource(context.Background(), AddResourceInput{Title: "   ", Owner: "alice"})
	require.ErrorIs(t, err, errs.ErrValidation)

	var verr *errs.ValidationError
	require.ErrorAs(t, err, &verr)

	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"title", "description"}, fields)

	list, _ := store.ListResources(context.Background(), model.ResourceFilter{})
	assert.Empty(t, list)
}

func TestListResources_NewestFirst(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newResourceService(t)
	ctx := context.Background()

	first, err := svc.AddResource(ctx, AddResourceInput{Title: "A", Description: "a", Owner: "alice"})
	require.NoError(t, err)
	second, err := svc.AddResource(ctx, AddResourceInput{Title: "B", Description: "b", Owner: "bob"})
	require.NoError(t, err)

	list, err := svc.ListResources(ctx, ListResourcesInput{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestListResources_Filters(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newResourceService(t)
	ctx := context.Background()

	a, err := svc.AddResource(ctx, AddResourceInput{Title: "A", Description: "a", Owner: "alice"})
	require.NoError(t, err)
	_, err = svc.AddResource(ctx, AddResourceInput{Title: "B", Description: "b", Owner: "bob"})
	require.NoError(t, err)
	_, err = svc.UpdateResourceStatus(ctx, a.ID, UpdateResourceStatusInput{Status: "Borrowed"})
	require.NoError(t, err)

	byOwner, err := svc.ListResources(ctx, ListResourcesInput{Owner: "alice"})
	require.NoError(t, err)
	require.Len(t, byOwner, 1)
	assert.Equal(t, a.ID, byOwner[0].ID)

	borrowed, err := svc.ListResources(ctx, ListResourcesInput{Status: "Borrowed"})
	require.NoError(t, err)
	require.Len(t, borrowed, 1)

	_, err = svc.ListResources(ctx, ListResourcesInput{Status: "Lost"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestListResources_CachesUnfiltered(t *testing.T) {
	t.Parallel()
	svc, _, c, rec := newResourceService(t)
	ctx := context.Background()

	_, err := svc.AddResource(ctx, AddResourceInput{Title: "A", Description: "a", Owner: "alice"})
	require.NoError(t, err)

	_, err = svc.ListResources(ctx, ListResourcesInput{})
	require.NoError(t, err)
	cached, err := c.GetResourceList(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 1)

	_, err = svc.ListResources(ctx, ListResourcesInput{})
	require.NoError(t, err)

	snap := rec.Snapshot()
	assert.EqualValues(t, 1, snap.ResourceListCacheMisses)
	assert.EqualValues(t, 1, snap.ResourceListCacheHits)

	// A write invalidates the cached listing.
	_, err = svc.AddResource(ctx, AddResourceInput{Title: "B", Description: "b", Owner: "bob"})
	require.NoError(t, err)

	list, err := svc.ListResources(ctx, ListResourcesInput{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

// listRacingStore runs afterList once, right after a listing is read and before
// the caller gets to fill the cache.
type listRacingStore struct {
	*memstore.Store
	afterList func()
}

func (s *listRacingStore) ListResources(ctx context.Context, filter model.ResourceFilter) ([]*model.Resource, error) {
	list, err := s.Store.ListResources(ctx, filter)
	if hook := s.afterList; hook != nil {
		s.afterList = nil
		hook()
	}
	return list, err
}

func TestListResources_WriteDuringFillIsNotMasked(t *testing.T) {
	t.Parallel()
	store := &listRacingStore{Store: memstore.New()}
	c := memstore.NewCache()
	svc := NewResourceService(store, c, time.Minute, nil, nil)
	ctx := context.Background()

	store.afterList = func() {
		_, err := svc.AddResource(ctx, AddResourceInput{Title: "Tent", Description: "2p", Owner: "alice"})
		require.NoError(t, err)
	}

	first, err := svc.ListResources(ctx, ListResourcesInput{})
	require.NoError(t, err)
	assert.Empty(t, first)

	_, err = c.GetResourceList(ctx)
	assert.Error(t, err, "stale listing must not be cached")

	second, err := svc.ListResources(ctx, ListResourcesInput{})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "Tent", second[0].Title)
}

func TestListResources_StatusChangeDuringFillIsNotMasked(t *testing.T) {
	t.Parallel()
	store := &listRacingStore{Store: memstore.New()}
	c := memstore.NewCache()
	svc := NewResourceService(store, c, time.Minute, nil, nil)
	ctx := context.Background()

	res, err := svc.AddResource(ctx, AddResourceInput{Title: "Kettle", Description: "1l", Owner: "bob"})
	require.NoError(t, err)

	store.afterList = func() {
		_, err := svc.UpdateResourceStatus(ctx, res.ID, UpdateResourceStatusInput{Status: "Borrowed"})
		require.NoError(t, err)
	}

	_, err = svc.ListResources(ctx, ListResourcesInput{})
	require.NoError(t, err)

	list, err := svc.ListResources(ctx, ListResourcesInput{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.ResourceBorrowed, list[0].Status)
}

func TestListResources_FilteredBypassesCache(t *testing.T) {
	t.Parallel()
	svc, _, c, _ := newResourceService(t)
	ctx := context.Background()

	_, err := svc.ListResources(ctx, ListResourcesInput{Owner: "alice"})
	require.NoError(t, err)

	_, err = c.GetResourceList(ctx)
	assert.Error(t, err)
}

func TestListResources_NilCache(t *testing.T) {
	t.Parallel()
	svc := NewResourceService(memstore.New(), nil, time.Minute, nil, nil)

	list, err := svc.ListResources(context.Background(), ListResourcesInput{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGetResource(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newResourceService(t)
	ctx := context.Background()

	res, err := svc.AddResource(ctx, AddResourceInput{Title: "A", Description: "a", Owner: "alice"})
	require.NoError(t, err)

	got, err := svc.GetResource(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, got.ID)

	_, err = svc.GetResource(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUpdateResourceStatus(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newResourceService(t)
	ctx := context.Background()

	res, err := svc.AddResource(ctx, AddResourceInput{Title: "A", Description: "a", Owner: "alice"})
	require.NoError(t, err)

	for _, status := range []string{"Borrowed", "Unavailable", "Available"} {
		updated, err := svc.UpdateResourceStatus(ctx, res.ID, UpdateResourceStatusInput{Status: status})
		require.NoError(t, err)
		assert.Equal(t, model.ResourceStatus(status), updated.Status)
	}
}

func TestUpdateResourceStatus_InvalidLeavesRecordUnchanged(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newResourceService(t)
	ctx := context.Background()

	res, err := svc.AddResource(ctx, AddResourceInput{Title: "A", Description: "a", Owner: "alice"})
	require.NoError(t, err)

	for _, status := range []string{"", "available", "Lost", "Pending"} {
		_, err := svc.UpdateResourceStatus(ctx, res.ID, UpdateResourceStatusInput{Status: status})
		require.ErrorIs(t, err, errs.ErrValidation, "status %q", status)

		got, err := svc.GetResource(ctx, res.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ResourceAvailable, got.Status)
		assert.Equal(t, res.UpdatedAt, got.UpdatedAt)
	}
}

func TestUpdateResourceStatus_NotFound(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newResourceService(t)

	_, err := svc.UpdateResourceStatus(context.Background(), "missing", UpdateResourceStatusInput{Status: "Borrowed"})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUpdateResourceStatus_ValidationBeforeLookup(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newResourceService(t)

	_, err := svc.UpdateResourceStatus(context.Background(), "missing", UpdateResourceStatusInput{Status: "Lost"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}
