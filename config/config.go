// Package config loads server settings from .env, the environment and an
// optional config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime settings for the PinPoint server.
type Config struct {
	Addr string

	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisDB       int
	RedisPassword string

	JWTSecret string
	JWTTTL    time.Duration

	OpenCageAPIKey  string
	GeocodeBaseURL  string
	GeocodeTimeout  time.Duration
	GeocodeCacheTTL time.Duration

	CORSAllowedOrigins []string

	LogLevel  string
	LogFormat string

	SeedMarkers   bool
	SignOutDelay  time.Duration
	DefaultCenter [2]float64
	DefaultZoom   int
	PanZoom       int
	TileURL       string
	PageSize      int
	MaxWorkspaces int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("mongodb_uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb_database", "pinpoint")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_password", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_ttl", "24h")
	v.SetDefault("opencage_api_key", "")
	v.SetDefault("geocode_base_url", "https://api.opencagedata.com")
	v.SetDefault("geocode_timeout", "5s")
	v.SetDefault("geocode_cache_ttl", "24h")
	v.SetDefault("cors_allowed_origins", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("seed_markers", true)
	v.SetDefault("sign_out_delay", "0s")
	v.SetDefault("default_center_lat", 37.7749)
	v.SetDefault("default_center_lng", -122.4194)
	v.SetDefault("default_zoom", 7)
	v.SetDefault("pan_zoom", 10)
	v.SetDefault("tile_url", "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png")
	v.SetDefault("page_size", 5)
	v.SetDefault("max_workspaces", 10000)
}

// Load reads .env (when present), then configFile (when not empty), then the
// process environment. Later sources win.
func Load(configFile string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %v", err)
		}
	}
	v.AutomaticEnv()

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Addr:               v.GetString("addr"),
		MongoURI:           v.GetString("mongodb_uri"),
		MongoDatabase:      v.GetString("mongodb_database"),
		RedisAddr:          v.GetString("redis_addr"),
		RedisDB:            v.GetInt("redis_db"),
		RedisPassword:      v.GetString("redis_password"),
		JWTSecret:          v.GetString("jwt_secret"),
		JWTTTL:             v.GetDuration("jwt_ttl"),
		OpenCageAPIKey:     v.GetString("opencage_api_key"),
		GeocodeBaseURL:     strings.TrimRight(v.GetString("geocode_base_url"), "/"),
		GeocodeTimeout:     v.GetDuration("geocode_timeout"),
		GeocodeCacheTTL:    v.GetDuration("geocode_cache_ttl"),
		CORSAllowedOrigins: splitList(v.GetString("cors_allowed_origins")),
		LogLevel:           v.GetString("log_level"),
		LogFormat:          v.GetString("log_format"),
		SeedMarkers:        v.GetBool("seed_markers"),
		SignOutDelay:       v.GetDuration("sign_out_delay"),
		DefaultCenter:      [2]float64{v.GetFloat64("default_center_lat"), v.GetFloat64("default_center_lng")},
		DefaultZoom:        v.GetInt("default_zoom"),
		PanZoom:            v.GetInt("pan_zoom"),
		TileURL:            v.GetString("tile_url"),
		PageSize:           v.GetInt("page_size"),
		MaxWorkspaces:      v.GetInt("max_workspaces"),
	}
}

// Validate checks settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	if c.MongoURI == "" {
		return fmt.Errorf("MONGODB_URI environment variable is not set")
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR environment variable is not set")
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("invalid REDIS_DB value: %d", c.RedisDB)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("invalid PAGE_SIZE value: %d", c.PageSize)
	}
	if c.DefaultZoom < 0 || c.PanZoom < 0 {
		return fmt.Errorf("zoom levels must not be negative")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
