package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"geoloc/internal/geo"
	"geoloc/internal/location"
	"geoloc/internal/shopping"
	"geoloc/internal/stores"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAcquirer struct {
	r       location.Reading
	err     error
	timeout time.Duration
}

func (f *fakeAcquirer) Acquire(ctx context.Context, timeout time.Duration) (location.Reading, error) {
	f.timeout = timeout
	return f.r, f.err
}

type fakeStores struct {
	mu sync.Mutex
	m  map[string]stores.Store
}

func newFakeStores(ss ...stores.Store) *fakeStores {
	f := &fakeStores{m: map[string]stores.Store{}}
	for _, s := range ss {
		f.m[s.ID] = s
	}
	return f
}

func (f *fakeStores) List(ctx context.Context) ([]stores.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []stores.Store
	for _, s := range f.m {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStores) Get(ctx context.Context, id string) (stores.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.m[id]
	if !ok {
		return stores.Store{}, stores.ErrNotFound
	}
	return s, nil
}

func (f *fakeStores) Upsert(ctx context.Context, s stores.Store) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.m[s.ID] = s
	return nil
}

func (f *fakeStores) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.m[id]; !ok {
		return stores.ErrNotFound
	}
	delete(f.m, id)
	return nil
}

func (f *fakeStores) WithinBox(ctx context.Context, b geo.Box) ([]stores.Store, error) {
	all, _ := f.List(ctx)
	var out []stores.Store
	for _, s := range all {
		if b.Contains(s.Location) {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeLists struct {
	mu sync.Mutex
	m  map[string]shopping.List
	n  int
}

func (f *fakeLists) Create(ctx context.Context, name string, items []shopping.Item) (shopping.List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	l := shopping.List{ID: "list-" + string(rune('0'+f.n)), Name: name, Items: items}
	f.m[l.ID] = l
	return l, nil
}

func (f *fakeLists) Get(ctx context.Context, id string) (shopping.List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.m[id]
	if !ok {
		return shopping.List{}, shopping.ErrNotFound
	}
	l.Items = append([]shopping.Item(nil), l.Items...)
	return l, nil
}

func (f *fakeLists) Save(ctx context.Context, l *shopping.List) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.m[l.ID]; !ok {
		return shopping.ErrNotFound
	}
	f.m[l.ID] = *l
	return nil
}

func (f *fakeLists) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.m[id]; !ok {
		return shopping.ErrNotFound
	}
	delete(f.m, id)
	return nil
}

func (f *fakeLists) All(ctx context.Context) ([]shopping.List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []shopping.List
	for _, l := range f.m {
		out = append(out, l)
	}
	return out, nil
}

var (
	nyc      = geo.Coordinate{Lat: 40.7128, Lng: -74.0060}
	midtown  = stores.Store{ID: "s1", Name: "Midtown", Location: geo.Coordinate{Lat: 40.7549, Lng: -73.9840}}
	downtown = stores.Store{ID: "s2", Name: "Downtown", Location: nyc}
)

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestGetLocationSuccess(t *testing.T) {
	acq := &fakeAcquirer{r: location.Reading{Location: nyc, Accuracy: 12, Timestamp: 1700000000000}}
	rec := do(t, BuildRoutes(Deps{Location: acq}), http.MethodGet, "/location?timeout_ms=1500", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[location.Reading](t, rec)
	assert.Equal(t, nyc, got.Location)
	assert.Equal(t, int64(1700000000000), got.Timestamp)
	assert.Equal(t, 1500*time.Millisecond, acq.timeout)
}

func TestGetLocationFailureStatus(t *testing.T) {
	cases := map[location.ErrorCode]int{
		location.PermissionDenied:    http.StatusForbidden,
		location.PositionUnavailable: http.StatusNotFound,
		location.Timeout:             http.StatusGatewayTimeout,
		location.NotSupported:        http.StatusNotImplemented,
	}
	for code, status := range cases {
		acq := &fakeAcquirer{err: &location.Failure{Code: code, Message: "m"}}
		rec := do(t, BuildRoutes(Deps{Location: acq}), http.MethodGet, "/location", "")
		assert.Equal(t, status, rec.Code, code)
		got := decode[location.Failure](t, rec)
		assert.Equal(t, code, got.Code)
		assert.Equal(t, time.Duration(0), acq.timeout)
	}
}

func TestGetLocationBadTimeoutAndPlainError(t *testing.T) {
	h := BuildRoutes(Deps{Location: &fakeAcquirer{err: errors.New("boom")}})
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/location?timeout_ms=-5", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/location?timeout_ms=600001", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/location?timeout_ms=9300000000000000", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/location?timeout_ms=99999999999999999999", "").Code)
	assert.Equal(t, http.StatusInternalServerError, do(t, h, http.MethodGet, "/location", "").Code)
}

func TestGetLocationWithoutCapability(t *testing.T) {
	rec := do(t, BuildRoutes(Deps{Location: location.NewService(nil)}), http.MethodGet, "/location", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	got := decode[location.Failure](t, rec)
	assert.Equal(t, "Geolocation is not supported by this browser", got.Message)
}

func TestTrackerRoutes(t *testing.T) {
	tr := location.NewTracker(&fakeAcquirer{r: location.Reading{Location: nyc}})
	h := BuildRoutes(Deps{Tracker: tr})

	st := decode[location.State](t, do(t, h, http.MethodGet, "/location/state", ""))
	assert.Equal(t, location.State{}, st)

	rec := do(t, h, http.MethodPost, "/location/refetch", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	tr.Wait()

	st = decode[location.State](t, do(t, h, http.MethodGet, "/location/state", ""))
	require.NotNil(t, st.Location)
	assert.Equal(t, nyc, *st.Location)
	assert.False(t, st.Loading)

	assert.Equal(t, http.StatusServiceUnavailable, do(t, BuildRoutes(Deps{}), http.MethodGet, "/location/state", "").Code)
}

func TestDistance(t *testing.T) {
	h := BuildRoutes(Deps{})
	rec := do(t, h, http.MethodGet, "/distance?from=40.7128,-74.0060&to=34.0522,-118.2437", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[distanceBody](t, rec)
	assert.Greater(t, got.Miles, 2400.0)
	assert.Less(t, got.Miles, 2500.0)
	assert.True(t, strings.HasSuffix(got.Formatted, " mi"))

	rec = do(t, h, http.MethodGet, "/distance?from=1,1&to=1,1", "")
	assert.Equal(t, "0 ft", decode[distanceBody](t, rec).Formatted)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/distance?from=91,0&to=0,0", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/distance?from=1&to=0,0", "").Code)
}

func TestNearby(t *testing.T) {
	fs := newFakeStores(midtown, downtown)
	h := BuildRoutes(Deps{Stores: fs, Nearby: stores.NewNearby(fs)})

	rec := do(t, h, http.MethodGet, "/stores/nearby?lat=40.7128&lng=-74.0060&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[nearbyBody](t, rec)
	require.Len(t, got.Stores, 1)
	assert.Equal(t, "s2", got.Stores[0].Store.ID)
	assert.Equal(t, "0 ft", got.Stores[0].Distance)
	assert.Equal(t, stores.DefaultRadiusMiles, got.RadiusMiles)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/stores/nearby?lat=abc&lng=1", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/stores/nearby?lat=1&lng=1&limit=x", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/stores/nearby", "").Code)
}

func TestNearbyFallsBackToTracker(t *testing.T) {
	fs := newFakeStores(midtown, downtown)
	tr := location.NewTracker(&fakeAcquirer{r: location.Reading{Location: midtown.Location}})
	tr.Refetch()
	tr.Wait()
	h := BuildRoutes(Deps{Stores: fs, Nearby: stores.NewNearby(fs), Tracker: tr})

	got := decode[nearbyBody](t, do(t, h, http.MethodGet, "/stores/nearby", ""))
	require.Len(t, got.Stores, 2)
	assert.Equal(t, "s1", got.Stores[0].Store.ID)
	assert.Equal(t, midtown.Location, got.Origin)
}

func TestStoreCRUD(t *testing.T) {
	fs := newFakeStores(downtown)
	nb := stores.NewNearby(fs)
	h := BuildRoutes(Deps{Stores: fs, Nearby: nb})

	got := decode[nearbyBody](t, do(t, h, http.MethodGet, "/stores/nearby?lat=40.7128&lng=-74.0060", ""))
	assert.Len(t, got.Stores, 1)

	rec := do(t, h, http.MethodPost, "/stores", `{"id":"s1","name":"Midtown","location":{"lat":40.7549,"lng":-73.984},"address":"5th Ave"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	got = decode[nearbyBody](t, do(t, h, http.MethodGet, "/stores/nearby?lat=40.7128&lng=-74.0060", ""))
	assert.Len(t, got.Stores, 2)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/stores", `{"id":"x","name":"Bad","location":{"lat":100,"lng":0}}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/stores", `{"name":"NoID"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/stores", `{`).Code)

	s := decode[stores.Store](t, do(t, h, http.MethodGet, "/stores/s1", ""))
	assert.Equal(t, "5th Ave", s.Address)
	assert.Len(t, decode[[]stores.Store](t, do(t, h, http.MethodGet, "/stores", "")), 2)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/stores/s1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/stores/s1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/stores/s1", "").Code)
}

func TestLists(t *testing.T) {
	h := BuildRoutes(Deps{Lists: &fakeLists{m: map[string]shopping.List{}}})

	rec := do(t, h, http.MethodPost, "/lists", `{"name":"weekly","items":[{"productId":"milk","productName":"Milk","quantity":2,"priceCents":349},{"productId":"eggs","productName":"Eggs","quantity":1}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	l := decode[listBody](t, rec)
	assert.Equal(t, 2, l.Remaining)
	assert.Equal(t, "$6.98", l.Total)

	rec = do(t, h, http.MethodPost, "/lists/"+l.ID+"/items/milk/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[listBody](t, rec).Remaining)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/lists/"+l.ID+"/items/butter/toggle", "").Code)

	rec = do(t, h, http.MethodPut, "/lists/"+l.ID, `{"name":"renamed","items":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	l2 := decode[listBody](t, rec)
	assert.Equal(t, "renamed", l2.Name)
	assert.Equal(t, "$0.00", l2.Total)
	assert.Empty(t, l2.Items)

	assert.Len(t, decode[[]listBody](t, do(t, h, http.MethodGet, "/lists", "")), 1)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/lists", `{"name":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/lists", `{"name":"x","items":[{"productId":"a","quantity":0}]}`).Code)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/lists/"+l.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/lists/"+l.ID, "").Code)
}

func TestUnconfiguredRoutes(t *testing.T) {
	h := BuildRoutes(Deps{})
	for _, target := range []string{"/stores", "/stores/nearby?lat=1&lng=1", "/lists", "/lists/abc"} {
		assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, target, "").Code, target)
	}
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodPost, "/distance", "").Code)
}

func TestHealth(t *testing.T) {
	h := BuildRoutes(Deps{Ready: map[string]func(context.Context) error{
		"db": func(context.Context) error { return nil },
	}})
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)

	h = BuildRoutes(Deps{Ready: map[string]func(context.Context) error{
		"redis": func(context.Context) error { return errors.New("down") },
	}})
	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}
