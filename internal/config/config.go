package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the chartdraw server.
type Config struct {
	// HTTP listener
	BindAddr         string
	PortAutoFallback bool
	PortCandidates   []string

	// Logging
	LogLevel string
	LogFile  string

	// Storage
	SnapshotDir  string
	DefaultsFile string
	TraceDir     string
	TraceMaxMB   int
	TraceBuffer  int

	// Market data
	PollInterval time.Duration
	YahooBaseURL string

	// Rasterizer (remote Chromium over CDP)
	CDPAddress      string
	CDPPort         int
	RasterEnabled   bool
	RasterTimeoutMS int

	// RasterLaunch starts a local headless Chromium when nothing listens on CDPPort.
	RasterLaunch      bool
	BrowserProfileDir string

	// Snapshot notifications (ntfy topic URL); empty disables.
	NotifyURL string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		BindAddr:          getEnvOrDefault("CHARTDRAW_BIND_ADDR", "127.0.0.1:8190"),
		PortAutoFallback:  getEnvBoolOrDefault("CHARTDRAW_PORT_AUTO_FALLBACK", true),
		PortCandidates:    splitList(getEnvOrDefault("CHARTDRAW_PORT_CANDIDATES", "127.0.0.1:8191,127.0.0.1:8192,127.0.0.1:8193")),
		LogLevel:          strings.ToLower(getEnvOrDefault("CHARTDRAW_LOG_LEVEL", "info")),
		LogFile:           getEnvOrDefault("CHARTDRAW_LOG_FILE", "logs/chartdraw.log"),
		SnapshotDir:       getEnvOrDefault("CHARTDRAW_SNAPSHOT_DIR", "./snapshots"),
		DefaultsFile:      getEnvOrDefault("CHARTDRAW_DEFAULTS_FILE", ""),
		TraceDir:          getEnvOrDefault("CHARTDRAW_TRACE_DIR", ""),
		TraceMaxMB:        getEnvIntOrDefault("CHARTDRAW_TRACE_MAX_MB", 100),
		TraceBuffer:       getEnvIntOrDefault("CHARTDRAW_TRACE_BUFFER", 1000),
		YahooBaseURL:      getEnvOrDefault("CHARTDRAW_YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
		CDPAddress:        getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:           getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9220),
		RasterEnabled:     getEnvBoolOrDefault("CHARTDRAW_RASTER_ENABLED", false),
		RasterTimeoutMS:   getEnvIntOrDefault("CHARTDRAW_RASTER_TIMEOUT_MS", 10000),
		RasterLaunch:      getEnvBoolOrDefault("CHARTDRAW_RASTER_LAUNCH", false),
		BrowserProfileDir: getEnvOrDefault("CHARTDRAW_BROWSER_PROFILE_DIR", "./browser-profile"),
		NotifyURL:         getEnvOrDefault("CHARTDRAW_NOTIFY_URL", ""),
	}

	poll := getEnvOrDefault("CHARTDRAW_POLL_INTERVAL", "0")
	if poll != "0" {
		d, err := time.ParseDuration(poll)
		if err != nil {
			return nil, fmt.Errorf("CHARTDRAW_POLL_INTERVAL: %w", err)
		}
		cfg.PollInterval = d
	}
	if cfg.PollInterval > 0 && cfg.PollInterval < time.Second {
		cfg.PollInterval = time.Second
	}
	if cfg.RasterTimeoutMS < 1000 {
		cfg.RasterTimeoutMS = 1000
	}
	if cfg.TraceMaxMB < 1 {
		cfg.TraceMaxMB = 1
	}
	return cfg, nil
}

// CDPURL returns the full CDP HTTP endpoint used by the chromedp remote allocator.
func (c *Config) CDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

// RasterTimeout is RasterTimeoutMS as a duration.
func (c *Config) RasterTimeout() time.Duration {
	return time.Duration(c.RasterTimeoutMS) * time.Millisecond
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
