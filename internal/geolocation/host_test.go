package geolocation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"geoloc/internal/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name   string
	fix    Fix
	err    error
	delay  time.Duration
	hbErr  error
	calls  atomic.Int32
	lastIP atomic.Value
}

func (f *fakeProvider) Name() string                        { return f.name }
func (f *fakeProvider) Heartbeat(ctx context.Context) error { return f.hbErr }

func (f *fakeProvider) Locate(ctx context.Context, ip string) (Fix, error) {
	f.calls.Add(1)
	f.lastIP.Store(ip)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Fix{}, ctx.Err()
		}
	}
	return f.fix, f.err
}

type result struct {
	pos *Position
	err *PositionError
}

func get(t *testing.T, g Geolocation, ctx context.Context, opts PositionOptions) result {
	t.Helper()
	ch := make(chan result, 2)
	g.GetCurrentPosition(ctx,
		func(p Position) { ch <- result{pos: &p} },
		func(e *PositionError) { ch <- result{err: e} },
		opts,
	)
	select {
	case r := <-ch:
		select {
		case <-ch:
			t.Fatal("callback invoked twice")
		case <-time.After(20 * time.Millisecond):
		}
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no callback")
	}
	return result{}
}

func TestHostHighAccuracyPicksSmallestRadius(t *testing.T) {
	h := NewHost()
	h.Register(&fakeProvider{name: "coarse", fix: Fix{Coordinate: geo.Coordinate{Lat: 1, Lng: 1}, AccuracyM: 50000}})
	h.Register(&fakeProvider{name: "fine", fix: Fix{Coordinate: geo.Coordinate{Lat: 2, Lng: 2}, AccuracyM: 20}})
	h.Register(&fakeProvider{name: "broken", err: errors.New("boom")})

	r := get(t, h, context.Background(), PositionOptions{EnableHighAccuracy: true, Timeout: time.Second})
	require.NotNil(t, r.pos)
	assert.Equal(t, 2.0, r.pos.Coords.Latitude)
	assert.Equal(t, 20.0, r.pos.Coords.Accuracy)
	assert.NotZero(t, r.pos.Timestamp)
}

func TestHostLowAccuracyTakesFirstSuccess(t *testing.T) {
	h := NewHost()
	miss := &fakeProvider{name: "miss", err: ErrNoFix}
	first := &fakeProvider{name: "first", fix: Fix{Coordinate: geo.Coordinate{Lat: 1}, AccuracyM: 50000}}
	later := &fakeProvider{name: "later", fix: Fix{Coordinate: geo.Coordinate{Lat: 2}, AccuracyM: 10}}
	h.Register(miss)
	h.Register(first)
	h.Register(later)

	r := get(t, h, context.Background(), PositionOptions{})
	require.NotNil(t, r.pos)
	assert.Equal(t, 1.0, r.pos.Coords.Latitude)
	assert.Equal(t, int32(0), later.calls.Load())
}

func TestHostKeepsProviderTimestamp(t *testing.T) {
	h := NewHost()
	at := time.UnixMilli(1700000000000)
	h.Register(&fakeProvider{name: "p", fix: Fix{AccuracyM: 5, At: at}})
	r := get(t, h, context.Background(), PositionOptions{})
	require.NotNil(t, r.pos)
	assert.Equal(t, int64(1700000000000), r.pos.Timestamp)
}

func TestHostTimeout(t *testing.T) {
	h := NewHost()
	h.Register(&fakeProvider{name: "slow", delay: time.Second, fix: Fix{AccuracyM: 1}})
	r := get(t, h, context.Background(), PositionOptions{Timeout: 30 * time.Millisecond})
	require.NotNil(t, r.err)
	assert.Equal(t, Timeout, r.err.Code)
}

func TestHostCallerCancellation(t *testing.T) {
	h := NewHost()
	h.Register(&fakeProvider{name: "slow", delay: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := get(t, h, ctx, PositionOptions{Timeout: time.Second})
	require.NotNil(t, r.err)
	assert.Equal(t, Unknown, r.err.Code)
	assert.Equal(t, context.Canceled.Error(), r.err.Message)
}

func TestHostConsentRevoked(t *testing.T) {
	h := NewHost()
	p := &fakeProvider{name: "p", fix: Fix{AccuracyM: 1}}
	h.Register(p)
	h.SetConsent(false)
	r := get(t, h, context.Background(), PositionOptions{})
	require.NotNil(t, r.err)
	assert.Equal(t, PermissionDenied, r.err.Code)
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestHostErrorClassification(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{ErrPermission, PermissionDenied},
		{ErrNoFix, PositionUnavailable},
		{errors.New("decode failure"), Unknown},
	}
	for _, c := range cases {
		h := NewHost()
		h.Register(&fakeProvider{name: "p", err: c.err})
		r := get(t, h, context.Background(), PositionOptions{})
		require.NotNil(t, r.err)
		assert.Equal(t, c.code, r.err.Code, c.err.Error())
		assert.Contains(t, r.err.Message, c.err.Error())
	}
}

func TestHostNoProviders(t *testing.T) {
	r := get(t, NewHost(), context.Background(), PositionOptions{EnableHighAccuracy: true})
	require.NotNil(t, r.err)
	assert.Equal(t, PositionUnavailable, r.err.Code)
}

func TestHostMaximumAge(t *testing.T) {
	h := NewHost()
	p := &fakeProvider{name: "p", fix: Fix{Coordinate: geo.Coordinate{Lat: 3}, AccuracyM: 1}}
	h.Register(p)

	get(t, h, context.Background(), PositionOptions{})
	get(t, h, context.Background(), PositionOptions{MaximumAge: time.Minute})
	assert.Equal(t, int32(1), p.calls.Load())

	get(t, h, context.Background(), PositionOptions{MaximumAge: 0})
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestHostTargetIP(t *testing.T) {
	h := NewHost(WithResolver(NewPublicIP("198.51.100.7", "", 0)))
	p := &fakeProvider{name: "p", fix: Fix{AccuracyM: 1}}
	h.Register(p)

	get(t, h, context.Background(), PositionOptions{})
	assert.Equal(t, "198.51.100.7", p.lastIP.Load())

	get(t, h, WithClientIP(context.Background(), "203.0.113.9"), PositionOptions{})
	assert.Equal(t, "203.0.113.9", p.lastIP.Load())
}

func TestHostHeartbeatExcludesUnhealthy(t *testing.T) {
	h := NewHost()
	sick := &fakeProvider{name: "sick", hbErr: errors.New("down"), fix: Fix{AccuracyM: 1}}
	ok := &fakeProvider{name: "ok", fix: Fix{AccuracyM: 100}}
	h.Register(sick)
	h.Register(ok)
	assert.Len(t, h.HealthyProviders(), 2)

	h.Heartbeat(context.Background())
	hs := h.HealthyProviders()
	require.Len(t, hs, 1)
	assert.Equal(t, "ok", hs[0].Name())

	get(t, h, context.Background(), PositionOptions{EnableHighAccuracy: true})
	assert.Equal(t, int32(0), sick.calls.Load())
}

func TestHostRegisterReplacesKeepsOrder(t *testing.T) {
	h := NewHost()
	h.Register(&fakeProvider{name: "a"})
	h.Register(&fakeProvider{name: "b"})
	h.Register(&fakeProvider{name: "a"})
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, "a", h.HealthyProviders()[0].Name())
}
