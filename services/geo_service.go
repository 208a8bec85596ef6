package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"pinpoint-server/models"
	"pinpoint-server/utils/logger"
	"pinpoint-server/utils/metrics"
)

// NameResolver turns coordinates into a display name. It never fails: an
// unresolvable place is named models.UnknownPlace.
type NameResolver interface {
	ResolveName(ctx context.Context, lat, lng float64) string
}

// NameCache stores resolved place names.
type NameCache interface {
	GetName(ctx context.Context, key string) (string, bool, error)
	SetName(ctx context.Context, key, name string, ttl time.Duration) error
}

// geocodeResponse is the part of the OpenCage response we read.
type geocodeResponse struct {
	Results []struct {
		Components struct {
			City string `json:"city"`
		} `json:"components"`
	} `json:"results"`
}

// GeoService resolves place names through the OpenCage reverse geocoding API.
type GeoService struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cache      NameCache
	cacheTTL   time.Duration
	log        *slog.Logger
}

type GeoOption func(*GeoService)

func WithGeoBaseURL(u string) GeoOption { return func(s *GeoService) { s.baseURL = u } }

func WithGeoHTTPClient(c *http.Client) GeoOption { return func(s *GeoService) { s.httpClient = c } }

func WithNameCache(c NameCache, ttl time.Duration) GeoOption {
	return func(s *GeoService) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

func WithGeoLogger(l *slog.Logger) GeoOption { return func(s *GeoService) { s.log = l } }

func NewGeoService(apiKey string, opts ...GeoOption) *GeoService {
	s := &GeoService{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    "https://api.opencagedata.com",
		apiKey:     apiKey,
		log:        logger.L(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveName issues a single lookup. No retries; every failure yields
// models.UnknownPlace.
func (s *GeoService) ResolveName(ctx context.Context, lat, lng float64) string {
	key := nameCacheKey(lat, lng)
	if s.cache != nil {
		name, ok, err := s.cache.GetName(ctx, key)
		if err != nil {
			s.log.Debug("geocode_cache_error", "err", err)
		} else if ok {
			metrics.GeocodeCacheHitsTotal.Inc()
			return name
		}
	}

	name, err := s.lookup(ctx, lat, lng)
	if err != nil {
		metrics.GeocodeFailTotal.Inc()
		s.log.Warn("geocode_failed", "lat", lat, "lng", lng, "err", err)
		return models.UnknownPlace
	}

	if s.cache != nil {
		if err := s.cache.SetName(ctx, key, name, s.cacheTTL); err != nil {
			s.log.Debug("geocode_cache_error", "err", err)
		}
	}
	return name
}

func (s *GeoService) lookup(ctx context.Context, lat, lng float64) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("missing geocoding api key")
	}
	q := url.Values{}
	q.Set("q", formatFloat(lat)+" "+formatFloat(lng))
	q.Set("key", s.apiKey)
	u := s.baseURL + "/geocode/v1/json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}

	t0 := time.Now()
	metrics.GeocodeRequestsTotal.Inc()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	metrics.GeocodeDurationMs.Observe(float64(time.Since(t0).Milliseconds()))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}
	var r geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", fmt.Errorf("decode geocoder response: %w", err)
	}
	if len(r.Results) == 0 || r.Results[0].Components.City == "" {
		return "", fmt.Errorf("no city in geocoder response")
	}
	s.log.Debug("geocode_resp", "lat", lat, "lng", lng, "city", r.Results[0].Components.City, "duration_ms", time.Since(t0).Milliseconds())
	return r.Results[0].Components.City, nil
}

func nameCacheKey(lat, lng float64) string {
	c := models.NewCoords(lat, lng).Round(4)
	return "geocode:" + strconv.FormatFloat(c.Lat(), 'f', 4, 64) + ":" + strconv.FormatFloat(c.Lng(), 'f', 4, 64)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RedisNameCache keeps resolved names in Redis.
type RedisNameCache struct {
	client *redis.Client
}

func NewRedisNameCache(client *redis.Client) *RedisNameCache {
	return &RedisNameCache{client: client}
}

func (c *RedisNameCache) GetName(ctx context.Context, key string) (string, bool, error) {
	name, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return name, name != "", nil
}

func (c *RedisNameCache) SetName(ctx context.Context, key, name string, ttl time.Duration) error {
	return c.client.Set(ctx, key, name, ttl).Err()
}
