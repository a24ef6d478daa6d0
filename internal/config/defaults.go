package config

import common "github.com/bobmcallan/stock-portal/internal/common"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "prod",
		Server: ServerConfig{
			Port: 4241,
			Host: "localhost",
		},
		API: APIConfig{
			URL:           "http://localhost:5000",
			Timeout:       "10s",
			UpdateTimeout: "3m",
		},
		Dashboard: DashboardConfig{
			Currency:      "KRW",
			Locale:        "ko-KR",
			DefaultDays:   365,
			Periods:       []int{30, 90, 180, 365},
			StatusTTL:     "5s",
			ReloadDelay:   "1s",
			SessionTTL:    "30m",
			ChartCacheTTL: "0",
			ChartWidth:    960,
			ChartHeight:   400,
		},
		MCP: MCPConfig{
			Enabled: true,
		},
		Logging: common.LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console", "file"},
			FilePath:   "logs/stock-portal.log",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
	}
}
