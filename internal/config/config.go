package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	common "github.com/bobmcallan/stock-portal/internal/common"
)

// Config represents the application configuration.
type Config struct {
	Environment string               `toml:"environment" yaml:"environment"`
	Server      ServerConfig         `toml:"server" yaml:"server"`
	API         APIConfig            `toml:"api" yaml:"api"`
	Dashboard   DashboardConfig      `toml:"dashboard" yaml:"dashboard"`
	MCP         MCPConfig            `toml:"mcp" yaml:"mcp"`
	Logging     common.LoggingConfig `toml:"logging" yaml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port" yaml:"port"`
	Host string `toml:"host" yaml:"host"`
}

// APIConfig points at the stock backend.
type APIConfig struct {
	URL           string `toml:"url" yaml:"url"`
	Timeout       string `toml:"timeout" yaml:"timeout"`
	UpdateTimeout string `toml:"update_timeout" yaml:"update_timeout"`
}

// DashboardConfig holds display and behaviour settings for the dashboard.
type DashboardConfig struct {
	Currency      string `toml:"currency" yaml:"currency"`
	Locale        string `toml:"locale" yaml:"locale"`
	DefaultDays   int    `toml:"default_days" yaml:"default_days"`
	Periods       []int  `toml:"periods" yaml:"periods"`
	StatusTTL     string `toml:"status_ttl" yaml:"status_ttl"`
	ReloadDelay   string `toml:"reload_delay" yaml:"reload_delay"`
	SessionTTL    string `toml:"session_ttl" yaml:"session_ttl"`
	ChartCacheTTL string `toml:"chart_cache_ttl" yaml:"chart_cache_ttl"`
	ChartWidth    int    `toml:"chart_width" yaml:"chart_width"`
	ChartHeight   int    `toml:"chart_height" yaml:"chart_height"`
	UpdateCron    string `toml:"update_cron" yaml:"update_cron"`
}

// MCPConfig toggles the MCP endpoint.
type MCPConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
}

// duration parses a config duration, returning def when empty or invalid.
func duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// GetTimeout returns the read timeout for backend calls.
func (c *APIConfig) GetTimeout() time.Duration {
	return duration(c.Timeout, 10*time.Second)
}

// GetUpdateTimeout returns the timeout for POST /api/update-data, which
// takes one to two minutes on the backend.
func (c *APIConfig) GetUpdateTimeout() time.Duration {
	return duration(c.UpdateTimeout, 3*time.Minute)
}

// GetStatusTTL returns how long a status banner stays visible.
func (c *DashboardConfig) GetStatusTTL() time.Duration {
	return duration(c.StatusTTL, 5*time.Second)
}

// GetReloadDelay returns the delay between a successful update and the
// stock list reload.
func (c *DashboardConfig) GetReloadDelay() time.Duration {
	return duration(c.ReloadDelay, time.Second)
}

// GetSessionTTL returns the idle time after which a dashboard session is torn down.
func (c *DashboardConfig) GetSessionTTL() time.Duration {
	return duration(c.SessionTTL, 30*time.Minute)
}

// GetChartCacheTTL returns how long chart series are cached. Zero, the
// default, disables the cache.
func (c *DashboardConfig) GetChartCacheTTL() time.Duration {
	return duration(c.ChartCacheTTL, 0)
}

// IsDevMode returns true when environment is "dev".
func (c *Config) IsDevMode() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "dev")
}

// BaseURL returns the portal's own base URL.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
}

// Validate returns a list of configuration problems; empty means valid.
func (c *Config) Validate() []string {
	var issues []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port must be between 1 and 65535 (got %d)", c.Server.Port))
	}
	if strings.TrimSpace(c.API.URL) == "" {
		issues = append(issues, "api.url is required (STOCK_API_URL)")
	} else if !strings.HasPrefix(c.API.URL, "http://") && !strings.HasPrefix(c.API.URL, "https://") {
		issues = append(issues, fmt.Sprintf("api.url must start with http:// or https:// (got %q)", c.API.URL))
	}
	if c.Dashboard.DefaultDays <= 0 {
		issues = append(issues, "dashboard.default_days must be positive")
	}
	for _, p := range c.Dashboard.Periods {
		if p <= 0 {
			issues = append(issues, fmt.Sprintf("dashboard.periods contains non-positive value %d", p))
			break
		}
	}
	for name, v := range map[string]string{
		"api.timeout":               c.API.Timeout,
		"api.update_timeout":        c.API.UpdateTimeout,
		"dashboard.status_ttl":      c.Dashboard.StatusTTL,
		"dashboard.reload_delay":    c.Dashboard.ReloadDelay,
		"dashboard.session_ttl":     c.Dashboard.SessionTTL,
		"dashboard.chart_cache_ttl": c.Dashboard.ChartCacheTTL,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			issues = append(issues, fmt.Sprintf("%s is not a valid duration (%q)", name, v))
		}
	}
	return issues
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files. Files ending in .yaml or .yml are
// decoded as YAML, everything else as TOML.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, config)
		default:
			err = toml.Unmarshal(data, config)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies STOCK_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("STOCK_ENV"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("STOCK_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("STOCK_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if url := os.Getenv("STOCK_API_URL"); url != "" {
		config.API.URL = url
	}
	if currency := os.Getenv("STOCK_CURRENCY"); currency != "" {
		config.Dashboard.Currency = currency
	}
	if locale := os.Getenv("STOCK_LOCALE"); locale != "" {
		config.Dashboard.Locale = locale
	}
	if cron := os.Getenv("STOCK_UPDATE_CRON"); cron != "" {
		config.Dashboard.UpdateCron = cron
	}
	if mcp := os.Getenv("STOCK_MCP_ENABLED"); mcp != "" {
		if b, err := strconv.ParseBool(mcp); err == nil {
			config.MCP.Enabled = b
		}
	}
	if level := os.Getenv("STOCK_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if outputs := os.Getenv("STOCK_LOG_OUTPUTS"); outputs != "" {
		config.Logging.Outputs = strings.Split(outputs, ",")
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}
