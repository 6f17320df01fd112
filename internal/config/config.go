package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port string

	// Upstream station feed.
	FeedURL          string
	FetchTimeout     time.Duration
	FetchMaxAttempts int
	RetryDelays      []time.Duration

	// RefreshInterval controls how often one acquisition cycle runs.
	RefreshInterval time.Duration

	// In-memory series retention.
	Retention  time.Duration
	StaleAfter time.Duration

	// DX cluster feed.
	DXFeedURL         string
	DXRefreshInterval time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.FeedURL = getenvDefault("MUF_FEED_URL", "https://prop.kc2g.com/api/stations.json")
	cfg.FetchMaxAttempts = getenvInt("MUF_FETCH_ATTEMPTS", 3)

	var err error
	if cfg.FetchTimeout, err = getenvDuration("MUF_FETCH_TIMEOUT", "5s"); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("MUF_REFRESH_INTERVAL", "5m"); err != nil {
		return nil, err
	}
	if cfg.Retention, err = getenvDuration("MUF_RETENTION", "60m"); err != nil {
		return nil, err
	}
	if cfg.StaleAfter, err = getenvDuration("MUF_STALE_AFTER", "600s"); err != nil {
		return nil, err
	}

	delays, err := parseDelays(getenvDefault("MUF_RETRY_DELAYS", "500ms,1s,2s"))
	if err != nil {
		return nil, err
	}
	cfg.RetryDelays = delays

	cfg.DXFeedURL = getenvDefault("DX_FEED_URL",
		"http://www.dxsummit.fi/api/v1/spots?include=1.8MHz,3.5MHz,7MHz,14MHz,21MHz,28MHz&include_modes=PHONE&dx_calls=CT,CS,CQ,CR")
	if cfg.DXRefreshInterval, err = getenvDuration("DX_REFRESH_INTERVAL", "2m"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseDelays(s string) ([]time.Duration, error) {
	parts := strings.Split(s, ",")
	delays := make([]time.Duration, 0, len(parts))
	for _, p := range parts {
		d, err := time.ParseDuration(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid MUF_RETRY_DELAYS entry %q: %w", p, err)
		}
		delays = append(delays, d)
	}
	return delays, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
