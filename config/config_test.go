package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "pinpoint", cfg.MongoDatabase)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "https://api.opencagedata.com", cfg.GeocodeBaseURL)
	assert.Equal(t, 5*time.Second, cfg.GeocodeTimeout)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.SeedMarkers)
	assert.Equal(t, [2]float64{37.7749, -122.4194}, cfg.DefaultCenter)
	assert.Equal(t, 7, cfg.DefaultZoom)
	assert.Equal(t, 10, cfg.PanZoom)
	assert.Equal(t, 5, cfg.PageSize)
	assert.Equal(t, "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png", cfg.TileURL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ADDR", ":9999")
	t.Setenv("SEED_MARKERS", "false")
	t.Setenv("SIGN_OUT_DELAY", "750ms")
	t.Setenv("GEOCODE_BASE_URL", "http://geo.local/")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Addr)
	assert.False(t, cfg.SeedMarkers)
	assert.Equal(t, 750*time.Millisecond, cfg.SignOutDelay)
	assert.Equal(t, "http://geo.local", cfg.GeocodeBaseURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	path := filepath.Join(t.TempDir(), "pinpoint.yaml")
	require.NoError(t, os.WriteFile(path, []byte("page_size: 25\npan_zoom: 12\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, 12, cfg.PanZoom)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{JWTSecret: "s", MongoURI: "mongodb://x", RedisAddr: "r:6379", PageSize: 5}
	}
	require.NoError(t, base().Validate())

	c := base()
	c.PageSize = 0
	assert.Error(t, c.Validate())

	c = base()
	c.RedisDB = -1
	assert.Error(t, c.Validate())

	c = base()
	c.PanZoom = -3
	assert.Error(t, c.Validate())
}
