package location

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geosnap/internal/apperr"
	"geosnap/internal/model"
)

// flakySource fails every other reading.
type flakySource struct {
	n atomic.Int64
}

func (f *flakySource) Configure(context.Context) error { return nil }

func (f *flakySource) CurrentFix(ctx context.Context, _ FixRequest) (Fix, error) {
	n := f.n.Add(1)
	if n%2 == 0 {
		return Fix{}, errors.New("multipath")
	}
	return Fix{Latitude: float64(n), Longitude: 1, Time: time.Now()}, nil
}

func TestWatch_UpdatesLastKnownAndSwallowsErrors(t *testing.T) {
	src := &flakySource{}
	p, prompter, _ := newProvider(t, src, nil)

	_, ok := p.LastKnown()
	assert.False(t, ok)

	p.Watch(context.Background())
	p.Watch(context.Background())
	assert.True(t, p.Watching())

	require.Eventually(t, func() bool {
		return src.n.Load() >= 4
	}, time.Second, time.Millisecond)

	pos, ok := p.LastKnown()
	require.True(t, ok)
	assert.Equal(t, 1.0, pos.Longitude)
	assert.Empty(t, prompter.Alerts)
	assert.Empty(t, prompter.Notices)

	p.ClearWatch()
	p.ClearWatch()
	assert.False(t, p.Watching())

	stopped := src.n.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, src.n.Load(), "no readings after ClearWatch")
}

func TestTeardown_StopsWatch(t *testing.T) {
	p, _, _ := newProvider(t, &flakySource{}, nil)
	p.Watch(context.Background())
	require.NoError(t, p.Teardown())
	assert.False(t, p.Watching())
}

// onceSource answers the first reading and then never again.
type onceSource struct {
	n atomic.Int64
}

func (o *onceSource) Configure(context.Context) error { return nil }

func (o *onceSource) CurrentFix(ctx context.Context, _ FixRequest) (Fix, error) {
	if o.n.Add(1) == 1 {
		return Fix{Latitude: 12.9, Longitude: 77.6, AccuracyMeters: 3, Time: time.Now()}, nil
	}
	<-ctx.Done()
	return Fix{}, ctx.Err()
}

func TestRelaxedAttemptUsesFreshWatchReading(t *testing.T) {
	src := &onceSource{}
	p, _, _ := newProvider(t, src, nil)

	p.Watch(context.Background())
	require.Eventually(t, func() bool {
		_, ok := p.LastKnown()
		return ok
	}, time.Second, time.Millisecond)
	p.ClearWatch()
	before := src.n.Load()

	pos, err := p.GetCurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12.9, pos.Latitude)
	assert.Equal(t, 77.6, pos.Longitude)
	assert.Equal(t, model.AccuracyCoarse, pos.Accuracy)
	assert.Equal(t, before+1, src.n.Load(), "only the high accuracy attempt reaches the source")
}

func TestRelaxedAttemptIgnoresStaleWatchReading(t *testing.T) {
	src := &onceSource{}
	p, _, _ := newProvider(t, src, nil)

	p.Watch(context.Background())
	require.Eventually(t, func() bool {
		_, ok := p.LastKnown()
		return ok
	}, time.Second, time.Millisecond)
	p.ClearWatch()

	p.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err := p.GetCurrentPosition(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeLocationTimeout, apperr.CodeOf(err))
}
