package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tefi/server/internal/models"
)

func newTestServer(t *testing.T, body string, calls *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "no", r.URL.Query().Get("countrycodes"))
		assert.NotEmpty(t, r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestGeocoder(t *testing.T, baseURL, cacheDir string) *Geocoder {
	g := NewGeocoder(logrus.New(), baseURL, "no", cacheDir)
	g.minInterval = 0
	return g
}

func TestGeocodeAddress(t *testing.T) {
	var calls int32
	server := newTestServer(t, `[{"lat": "59.9139", "lon": "10.7522"}]`, &calls)
	g := newTestGeocoder(t, server.URL, t.TempDir())

	point, err := g.GeocodeAddress(context.Background(), "Karl Johans gate 1, Oslo")
	require.NoError(t, err)
	assert.Equal(t, 59.9139, point.Lat())
	assert.Equal(t, 10.7522, point.Lon())

	// Same address, different casing, comes from the cache
	point, err = g.GeocodeAddress(context.Background(), "karl johans gate 1, oslo ")
	require.NoError(t, err)
	assert.Equal(t, 59.9139, point.Lat())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGeocodeAddressCachePersists(t *testing.T) {
	var calls int32
	server := newTestServer(t, `[{"lat": "60.3913", "lon": "5.3221"}]`, &calls)
	cacheDir := t.TempDir()

	first := newTestGeocoder(t, server.URL, cacheDir)
	_, err := first.GeocodeAddress(context.Background(), "Bryggen, Bergen")
	require.NoError(t, err)

	second := newTestGeocoder(t, server.URL, cacheDir)
	point, err := second.GeocodeAddress(context.Background(), "Bryggen, Bergen")
	require.NoError(t, err)
	assert.Equal(t, 60.3913, point.Lat())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGeocodeAddressNoResults(t *testing.T) {
	var calls int32
	server := newTestServer(t, `[]`, &calls)
	g := newTestGeocoder(t, server.URL, t.TempDir())

	_, err := g.GeocodeAddress(context.Background(), "Nowhere 99")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no results found")
}

func TestGeocodeAddressServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()
	g := newTestGeocoder(t, server.URL, t.TempDir())

	_, err := g.GeocodeAddress(context.Background(), "Storgata 1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestGeocodeAddressEmpty(t *testing.T) {
	g := newTestGeocoder(t, "http://127.0.0.1:0", t.TempDir())

	_, err := g.GeocodeAddress(context.Background(), "   ")
	assert.Error(t, err)
}

type MockCoordinateStore struct {
	mock.Mock
}

func (m *MockCoordinateStore) SetCoordinates(ctx context.Context, id int64, point orb.Point) error {
	return m.Called(id, point).Error(0)
}

func (m *MockCoordinateStore) MarkGeocodingAttempted(ctx context.Context, id int64) error {
	return m.Called(id).Error(0)
}

func TestLocateProperty(t *testing.T) {
	var calls int32
	server := newTestServer(t, `[{"lat": "63.4305", "lon": "10.3951"}]`, &calls)
	g := newTestGeocoder(t, server.URL, t.TempDir())

	store := &MockCoordinateStore{}
	store.On("SetCoordinates", int64(3), orb.Point{10.3951, 63.4305}).Return(nil).Once()

	err := g.LocateProperty(context.Background(), store, &models.Property{ID: 3, Address: "Nidarosdomen, Trondheim"})
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestLocatePropertyMarksFailedLookup(t *testing.T) {
	var calls int32
	server := newTestServer(t, `[]`, &calls)
	g := newTestGeocoder(t, server.URL, t.TempDir())

	store := &MockCoordinateStore{}
	store.On("MarkGeocodingAttempted", int64(4)).Return(nil).Once()

	err := g.LocateProperty(context.Background(), store, &models.Property{ID: 4, Address: "Nowhere 99", UniqueCode: "ab12cd34"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ab12cd34")
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "SetCoordinates", mock.Anything, mock.Anything)
}
