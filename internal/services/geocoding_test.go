package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleGeocoder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "52.520000,13.410000", r.URL.Query().Get("latlng"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"Alexanderplatz 1, Berlin"}]}`))
	}))
	defer server.Close()

	g := NewGoogleGeocoder("test-key", time.Second)
	g.baseURL = server.URL

	address, err := g.ReverseGeocode(context.Background(), 52.52, 13.41)
	require.NoError(t, err)
	assert.Equal(t, "Alexanderplatz 1, Berlin", address)
}

func TestGoogleGeocoderZeroResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer server.Close()

	g := NewGoogleGeocoder("test-key", time.Second)
	g.baseURL = server.URL

	_, err := g.ReverseGeocode(context.Background(), 0, 0)
	assert.Error(t, err)
}

func TestHEREGeocoder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "52.520000,13.410000", r.URL.Query().Get("at"))
		assert.Equal(t, "here-key", r.URL.Query().Get("apiKey"))
		w.Write([]byte(`{"items":[{"address":{"label":"Alexanderplatz, 10178 Berlin"},"distance":12}]}`))
	}))
	defer server.Close()

	g := NewHEREGeocoder("here-key", time.Second)
	g.baseURL = server.URL

	address, err := g.ReverseGeocode(context.Background(), 52.52, 13.41)
	require.NoError(t, err)
	assert.Equal(t, "Alexanderplatz, 10178 Berlin", address)
}

func TestHEREGeocoderErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apiKey") == "bad" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	g := NewHEREGeocoder("bad", time.Second)
	g.baseURL = server.URL
	_, err := g.ReverseGeocode(context.Background(), 1, 1)
	assert.ErrorContains(t, err, "401")

	g = NewHEREGeocoder("ok", time.Second)
	g.baseURL = server.URL
	_, err = g.ReverseGeocode(context.Background(), 1, 1)
	assert.ErrorContains(t, err, "no address")
}

func TestCachingGeocoder(t *testing.T) {
	ctx := context.Background()

	t.Run("Nearby coordinates share an entry", func(t *testing.T) {
		next := &stubGeocoder{address: "Main St 1"}
		c := NewCachingGeocoder(next, 10, time.Hour)

		for _, lat := range []float64{40.71281, 40.71284, 40.71279} {
			address, err := c.ReverseGeocode(ctx, lat, -74.006)
			require.NoError(t, err)
			assert.Equal(t, "Main St 1", address)
		}
		assert.Equal(t, 1, next.calls)

		stats := c.Stats()
		assert.Equal(t, int64(2), stats.Hits)
		assert.Equal(t, int64(1), stats.Misses)
		assert.Equal(t, 1, stats.Size)
	})

	t.Run("Failures are not cached", func(t *testing.T) {
		next := &stubGeocoder{err: errors.New("quota exceeded")}
		c := NewCachingGeocoder(next, 10, time.Hour)

		_, err := c.ReverseGeocode(ctx, 1, 1)
		require.Error(t, err)
		_, err = c.ReverseGeocode(ctx, 1, 1)
		require.Error(t, err)
		assert.Equal(t, 2, next.calls)
		assert.Equal(t, 0, c.Stats().Size)
	})

	t.Run("Entries expire", func(t *testing.T) {
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		next := &stubGeocoder{address: "Main St 1"}
		c := NewCachingGeocoder(next, 10, time.Hour)
		c.now = func() time.Time { return now }

		_, _ = c.ReverseGeocode(ctx, 1, 1)
		now = now.Add(2 * time.Hour)
		_, _ = c.ReverseGeocode(ctx, 1, 1)

		assert.Equal(t, 2, next.calls)
		assert.Equal(t, int64(1), c.Stats().Evictions)
	})

	t.Run("Least recently used entry is evicted", func(t *testing.T) {
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		next := &stubGeocoder{address: "somewhere"}
		c := NewCachingGeocoder(next, 2, time.Hour)
		c.now = func() time.Time {
			now = now.Add(time.Second)
			return now
		}

		_, _ = c.ReverseGeocode(ctx, 1, 1) // a
		_, _ = c.ReverseGeocode(ctx, 2, 2) // b
		_, _ = c.ReverseGeocode(ctx, 1, 1) // touch a
		_, _ = c.ReverseGeocode(ctx, 3, 3) // evicts b
		require.Equal(t, 3, next.calls)

		_, _ = c.ReverseGeocode(ctx, 1, 1)
		assert.Equal(t, 3, next.calls)
		_, _ = c.ReverseGeocode(ctx, 2, 2)
		assert.Equal(t, 4, next.calls)
	})
}
