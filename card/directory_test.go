package card

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCardServer(t *testing.T, c Card, fetches *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != WellKnownPath {
			http.NotFound(w, r)
			return
		}
		fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(c)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveFetchesAndCaches(t *testing.T) {
	var fetches atomic.Int64
	srv := newCardServer(t, Card{Name: "alpha", URL: "http://alpha.local", Version: "1.0"}, &fetches)

	d := NewDirectory()

	first, err := d.Resolve(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "alpha", first.Name)
	assert.Equal(t, int64(1), fetches.Load())

	second, err := d.Resolve(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Same(t, first, second, "cache hit must return the stored descriptor")
	assert.Equal(t, int64(1), fetches.Load(), "second resolve must not refetch")
}

func TestResolveFailureNotCached(t *testing.T) {
	var healthy atomic.Bool
	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		if !healthy.Load() {
			http.Error(w, "boot in progress", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Card{Name: "alpha", URL: "http://alpha.local"})
	}))
	t.Cleanup(srv.Close)

	d := NewDirectory()

	_, err := d.Resolve(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrUnreachable)
	assert.False(t, d.Cached(srv.URL), "a failed fetch must not be cached")

	healthy.Store(true)

	c, err := d.Resolve(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "alpha", c.Name)
	assert.Equal(t, int64(2), fetches.Load())
}

func TestResolveMalformedCard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json at all {"))
	}))
	t.Cleanup(srv.Close)

	d := NewDirectory()

	_, err := d.Resolve(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrUnreachable)
}

func TestResolveConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // address is now refused

	d := NewDirectory()

	_, err := d.Resolve(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrUnreachable)
}

func TestResolveConcurrentSameAddress(t *testing.T) {
	var fetches atomic.Int64
	srv := newCardServer(t, Card{Name: "alpha", URL: "http://alpha.local"}, &fetches)

	d := NewDirectory()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := d.Resolve(context.Background(), srv.URL)
			assert.NoError(t, err)
			assert.Equal(t, "alpha", c.Name)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, d.Len())
	// Duplicate concurrent fetches are tolerated but every caller must see
	// the same stored descriptor afterwards.
	final, err := d.Resolve(context.Background(), srv.URL)
	require.NoError(t, err)
	again, err := d.Resolve(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Same(t, final, again)
}

func TestSupportsTransport(t *testing.T) {
	bare := &Card{Name: "bare"}
	assert.True(t, bare.SupportsTransport(TransportJSONRPC), "undeclared transports default to JSON-RPC")
	assert.False(t, bare.SupportsTransport(TransportHTTPJSON))

	declared := &Card{
		Name:                 "declared",
		PreferredTransport:   TransportJSONRPC,
		AdditionalTransports: []TransportProtocol{TransportHTTPJSON},
	}
	assert.True(t, declared.SupportsTransport(TransportJSONRPC))
	assert.True(t, declared.SupportsTransport(TransportHTTPJSON))
}
