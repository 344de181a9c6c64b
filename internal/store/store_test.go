package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geosnap/internal/model"
	"geosnap/internal/testutil"
)

func openTestStore(t *testing.T) (*Store, *testutil.Clock) {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "photos.db"), testutil.Logger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := testutil.NewClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	s.SetClock(clock.Now)
	return s, clock
}

func urlRecord(name string, coords *model.Coordinates) model.NewRecord {
	return model.NewRecord{
		Image:       model.ImageRef{URL: "https://storage.googleapis.com/b/images/" + name},
		Coordinates: coords,
	}
}

func recordIDs(rs []model.PhotoRecord) []string {
	ids := make([]string, 0, len(rs))
	for _, r := range rs {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestAddAssignsIDAndTimestamp(t *testing.T) {
	s, clock := openTestStore(t)
	ctx := context.Background()

	rec, err := s.Add(ctx, urlRecord("a.jpg", &model.Coordinates{Lat: 12.9, Lon: 77.6}))
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.True(t, rec.CreatedAt.Equal(clock.Now()))

	got, err := s.List(ctx, model.Query{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
	assert.Equal(t, rec.Image, got[0].Image)
	require.NotNil(t, got[0].Coordinates)
	assert.Equal(t, 12.9, got[0].Coordinates.Lat)
	assert.Equal(t, 77.6, got[0].Coordinates.Lon)
	assert.True(t, got[0].CreatedAt.Equal(rec.CreatedAt))
}

func TestAddWithoutCoordinates(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, urlRecord("a.jpg", nil))
	require.NoError(t, err)

	got, err := s.List(ctx, model.Query{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Coordinates)
}

func TestAddRejectsInvalidImage(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, model.NewRecord{})
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = s.Add(ctx, model.NewRecord{Image: model.ImageRef{URL: "u", InlineBase64: "b"}})
	assert.ErrorIs(t, err, ErrInvalidImage)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAddRejectsMixedRepresentations(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, model.NewRecord{Image: model.ImageRef{InlineBase64: "aGk="}})
	require.NoError(t, err)

	_, err = s.Add(ctx, urlRecord("a.jpg", nil))
	assert.ErrorIs(t, err, ErrMixedImages)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCreatedAtNeverGoesBackwards(t *testing.T) {
	s, clock := openTestStore(t)
	ctx := context.Background()

	first, err := s.Add(ctx, urlRecord("a.jpg", nil))
	require.NoError(t, err)

	clock.Set(clock.Now().Add(-time.Hour))
	second, err := s.Add(ctx, urlRecord("b.jpg", nil))
	require.NoError(t, err)
	assert.False(t, second.CreatedAt.Before(first.CreatedAt))

	clock.Set(first.CreatedAt.Add(time.Minute))
	third, err := s.Add(ctx, urlRecord("c.jpg", nil))
	require.NoError(t, err)
	assert.True(t, third.CreatedAt.After(second.CreatedAt))
}

func TestListOrderingAndWindow(t *testing.T) {
	s, clock := openTestStore(t)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		rec, err := s.Add(ctx, urlRecord(name, nil))
		require.NoError(t, err)
		ids = append(ids, rec.ID)
		clock.Advance(time.Hour)
	}

	asc, err := s.List(ctx, model.Query{})
	require.NoError(t, err)
	assert.Equal(t, ids, recordIDs(asc))

	desc, err := s.List(ctx, model.Query{NewestFirst: true})
	require.NoError(t, err)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, recordIDs(desc))

	// clock is now 3h past the first write; the window reaches back to 30m
	recent, err := s.List(ctx, model.Query{NewestFirst: true, Since: 150 * time.Minute})
	require.NoError(t, err)
	assert.Equal(t, []string{ids[2], ids[1]}, recordIDs(recent))
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photos.db")
	ctx := context.Background()

	s, err := Open(path, testutil.Logger())
	require.NoError(t, err)
	_, err = s.Add(ctx, urlRecord("a.jpg", nil))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, testutil.Logger())
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// collector gathers snapshots delivered to a subscriber.
type collector struct {
	mu    sync.Mutex
	snaps []model.Snapshot
}

func (c *collector) fn(s model.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps = append(c.snaps, s)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.snaps)
}

func (c *collector) last() model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.snaps) == 0 {
		return model.Snapshot{}
	}
	return c.snaps[len(c.snaps)-1]
}

func TestSubscribeDeliversInitialAndUpdates(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, urlRecord("a.jpg", nil))
	require.NoError(t, err)

	var c collector
	unsubscribe, err := s.Subscribe(ctx, model.Query{NewestFirst: true}, c.fn)
	require.NoError(t, err)
	defer unsubscribe()

	require.Eventually(t, func() bool { return len(c.last().Records) == 1 }, 2*time.Second, 5*time.Millisecond)

	second, err := s.Add(ctx, urlRecord("b.jpg", nil))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(c.last().Records) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, second.ID, c.last().Records[0].ID)
}

func TestUnsubscribeStopsDeliveries(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	var c collector
	unsubscribe, err := s.Subscribe(ctx, model.Query{}, c.fn)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return c.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, s.ActiveListeners())

	unsubscribe()
	unsubscribe()
	assert.Zero(t, s.ActiveListeners())

	_, err = s.Add(ctx, urlRecord("a.jpg", nil))
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, c.count())
}

func TestRepeatedSubscribeDoesNotLeak(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	for range 20 {
		var c collector
		unsubscribe, err := s.Subscribe(ctx, model.Query{}, c.fn)
		require.NoError(t, err)
		unsubscribe()
	}
	assert.Zero(t, s.ActiveListeners())
}

func TestCancelledContextDetachesListener(t *testing.T) {
	s, _ := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	var c collector
	unsubscribe, err := s.Subscribe(ctx, model.Query{}, c.fn)
	require.NoError(t, err)
	defer unsubscribe()
	require.Eventually(t, func() bool { return c.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, s.ActiveListeners())

	cancel()
	require.Eventually(t, func() bool { return s.ActiveListeners() == 0 }, 2*time.Second, 5*time.Millisecond)

	_, err = s.Add(context.Background(), urlRecord("a.jpg", nil))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, c.count())
}
