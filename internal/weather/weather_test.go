package weather

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, url string) (*Provider, string) {
	t.Helper()
	cachePath := filepath.Join(t.TempDir(), ".state", "weather.json")
	p := New(Options{
		Enabled:   true,
		URL:       url,
		Latitude:  52.52,
		Longitude: 13.41,
		TTL:       time.Hour,
		Timeout:   2 * time.Second,
		CachePath: cachePath,
	})
	return p, cachePath
}

func forecastServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "true", r.URL.Query().Get("current_weather"))
		assert.Equal(t, "52.52", r.URL.Query().Get("latitude"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"current_weather":{"temperature":11.6,"windspeed":8.8,"weathercode":3}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeCache(t *testing.T, path string, c cacheFile) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data, err := json.Marshal(c)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestCurrent_FetchesAndCaches(t *testing.T) {
	var hits int32
	srv := forecastServer(t, &hits)
	p, cachePath := newTestProvider(t, srv.URL)

	assert.Equal(t, "12°C, overcast, wind 9 km/h", p.Current(context.Background()))
	assert.Equal(t, "12°C, overcast, wind 9 km/h", p.Current(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "fresh cache skips the network")
	assert.FileExists(t, cachePath)
}

func TestCurrent_ExpiredCacheRefreshes(t *testing.T) {
	var hits int32
	srv := forecastServer(t, &hits)
	p, cachePath := newTestProvider(t, srv.URL)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.SetClock(func() time.Time { return now })
	writeCache(t, cachePath, cacheFile{FetchedAt: now.Add(-2 * time.Hour), Summary: "old"})

	assert.Equal(t, "12°C, overcast, wind 9 km/h", p.Current(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestCurrent_FailureFallsBackToStaleCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()
	p, cachePath := newTestProvider(t, srv.URL)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.SetClock(func() time.Time { return now })
	writeCache(t, cachePath, cacheFile{FetchedAt: now.Add(-48 * time.Hour), Summary: "3°C, fog, wind 2 km/h"})

	assert.Equal(t, "3°C, fog, wind 2 km/h", p.Current(context.Background()))
}

func TestCurrent_ColdCacheNetworkErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p, _ := newTestProvider(t, url)
	assert.Equal(t, Unavailable, p.Current(context.Background()))
}

func TestCurrent_Disabled(t *testing.T) {
	p := New(Options{Enabled: false})
	assert.Equal(t, Unavailable, p.Current(context.Background()))
}

func TestCurrent_MissingPayloadIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	p, _ := newTestProvider(t, srv.URL)
	assert.Equal(t, Unavailable, p.Current(context.Background()))
}

func TestCurrent_ConcurrentCallersShareRefresh(t *testing.T) {
	var hits int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"current_weather":{"temperature":20,"windspeed":0,"weathercode":0}}`))
	}))
	defer srv.Close()
	p, _ := newTestProvider(t, srv.URL)

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.Current(context.Background())
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "20°C, clear sky, wind 0 km/h", r)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&hits), int32(5))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "overcast", Describe(3))
	assert.Equal(t, "unsettled", Describe(1234))
}
