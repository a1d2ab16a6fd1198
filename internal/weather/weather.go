// Package weather supplies the one-line weather summary shown in the wake
// context. Results are cached on disk; network failure never blocks a wake.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/singleflight"

	"github.com/curtiv3/gpthome-refurbished/internal/config"
	"github.com/curtiv3/gpthome-refurbished/internal/logging"
)

// Unavailable is rendered when no weather is known.
const Unavailable = "(unavailable)"

// Options configures a Provider.
type Options struct {
	Enabled   bool
	URL       string
	Latitude  float64
	Longitude float64
	TTL       time.Duration
	Timeout   time.Duration
	CachePath string
}

// OptionsFromConfig derives provider options from the resident config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Enabled:   cfg.Weather.Enabled,
		URL:       cfg.Weather.URL,
		Latitude:  cfg.Weather.Latitude,
		Longitude: cfg.Weather.Longitude,
		TTL:       cfg.GetWeatherTTL(),
		Timeout:   cfg.GetWeatherTimeout(),
		CachePath: cfg.WeatherCachePath(),
	}
}

// cacheFile is the on-disk cache record.
type cacheFile struct {
	FetchedAt time.Time `json:"fetched_at"`
	Summary   string    `json:"summary"`
}

type currentWeather struct {
	Temperature float64 `json:"temperature"`
	WindSpeed   float64 `json:"windspeed"`
	WeatherCode int     `json:"weathercode"`
}

type forecastResponse struct {
	CurrentWeather *currentWeather `json:"current_weather"`
}

// Provider fetches and caches the current weather.
type Provider struct {
	opts   Options
	client *resty.Client
	group  singleflight.Group

	mu  sync.Mutex // guards the cache file
	now func() time.Time
}

// New creates a Provider.
func New(opts Options) *Provider {
	client := resty.New().
		SetHeader("Accept", "application/json").
		SetTimeout(opts.Timeout)
	return &Provider{opts: opts, client: client, now: time.Now}
}

// SetClock replaces the time source used for TTL checks.
func (p *Provider) SetClock(now func() time.Time) {
	p.now = now
}

// Current returns a summary such as "12°C, overcast, wind 9 km/h". A fresh
// cache entry is returned without touching the network. On fetch failure the
// last cached value is used regardless of age, else Unavailable.
func (p *Provider) Current(ctx context.Context) string {
	if !p.opts.Enabled {
		return Unavailable
	}

	cached, haveCache := p.readCache()
	if haveCache && p.now().Sub(cached.FetchedAt) < p.opts.TTL {
		logging.Get(logging.CategoryWeather).Debug("Using cached weather from %s", cached.FetchedAt.Format(time.RFC3339))
		return cached.Summary
	}

	v, err, _ := p.group.Do("current", func() (interface{}, error) {
		return p.refresh(ctx)
	})
	if err != nil {
		if haveCache {
			logging.WeatherWarn("Weather fetch failed, using stale cache: %v", err)
			return cached.Summary
		}
		logging.WeatherWarn("Weather fetch failed with no cache: %v", err)
		return Unavailable
	}
	return v.(string)
}

func (p *Provider) refresh(ctx context.Context) (string, error) {
	timer := logging.StartTimer(logging.CategoryWeather, "refresh")
	defer timer.Stop()

	summary, err := p.fetch(ctx)
	if err != nil {
		return "", err
	}
	if err := p.writeCache(cacheFile{FetchedAt: p.now().UTC(), Summary: summary}); err != nil {
		logging.WeatherWarn("Failed to write weather cache: %v", err)
	}
	logging.Weather("Weather refreshed: %s", summary)
	return summary, nil
}

func (p *Provider) fetch(ctx context.Context) (string, error) {
	var body forecastResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latitude":        strconv.FormatFloat(p.opts.Latitude, 'f', -1, 64),
			"longitude":       strconv.FormatFloat(p.opts.Longitude, 'f', -1, 64),
			"current_weather": "true",
		}).
		SetResult(&body).
		Get(p.opts.URL)
	if err != nil {
		return "", fmt.Errorf("weather request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("weather status %d", resp.StatusCode())
	}
	if body.CurrentWeather == nil {
		return "", errors.New("weather response has no current_weather")
	}
	return format(*body.CurrentWeather), nil
}

// format renders a current-weather record.
func format(w currentWeather) string {
	return fmt.Sprintf("%d°C, %s, wind %d km/h",
		int(math.Round(w.Temperature)), Describe(w.WeatherCode), int(math.Round(w.WindSpeed)))
}

func (p *Provider) readCache() (cacheFile, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.opts.CachePath)
	if err != nil {
		return cacheFile{}, false
	}
	var c cacheFile
	if err := json.Unmarshal(data, &c); err != nil || c.Summary == "" {
		logging.WeatherWarn("Ignoring unreadable weather cache %s", p.opts.CachePath)
		return cacheFile{}, false
	}
	return c, true
}

func (p *Provider) writeCache(c cacheFile) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.opts.CachePath), 0o755); err != nil {
		return err
	}
	tmp := p.opts.CachePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p.opts.CachePath)
}
