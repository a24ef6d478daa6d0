package common

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// TestConfig is read from tests/ui/test_config.toml when present.
type TestConfig struct {
	Results struct {
		Dir string `toml:"dir"`
	} `toml:"results"`
	Server struct {
		URL string `toml:"url"`
	} `toml:"server"`
	Browser struct {
		Headless    bool `toml:"headless"`
		TimeoutSecs int  `toml:"timeout_seconds"`
	} `toml:"browser"`
}

var (
	testConfig     *TestConfig
	testConfigOnce sync.Once

	resultsDir     string
	resultsDirOnce sync.Once
)

func defaultTestConfig() *TestConfig {
	cfg := &TestConfig{}
	cfg.Results.Dir = "tests/results"
	cfg.Server.URL = "http://localhost:4241"
	cfg.Browser.Headless = true
	cfg.Browser.TimeoutSecs = 30
	return cfg
}

// LoadTestConfig returns the defaults overlaid with the first readable
// test_config.toml, searched relative to the project root.
func LoadTestConfig() *TestConfig {
	testConfigOnce.Do(func() {
		testConfig = defaultTestConfig()
		root := FindProjectRoot()
		for _, path := range []string{
			filepath.Join(root, "tests", "ui", "test_config.toml"),
			filepath.Join(root, "test_config.toml"),
		} {
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			if err := toml.Unmarshal(data, testConfig); err == nil {
				return
			}
		}
	})
	return testConfig
}

// ResultsDir returns the directory for screenshots and container logs.
// STOCK_TEST_RESULTS_DIR overrides it; otherwise a timestamped directory
// under the configured results dir is created once per run.
func ResultsDir() string {
	if dir := os.Getenv("STOCK_TEST_RESULTS_DIR"); dir != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			return abs
		}
		return dir
	}
	resultsDirOnce.Do(func() {
		base := LoadTestConfig().Results.Dir
		if !filepath.IsAbs(base) {
			base = filepath.Join(FindProjectRoot(), base)
		}
		resultsDir = filepath.Join(base, time.Now().Format("2006-01-02-15-04-05"))
		if err := os.MkdirAll(resultsDir, 0755); err != nil {
			panic("failed to create results dir: " + err.Error())
		}
	})
	return resultsDir
}

// ScreenshotDir returns subdir of ResultsDir, creating it.
func ScreenshotDir(subdir string) string {
	dir := filepath.Join(ResultsDir(), subdir)
	os.MkdirAll(dir, 0755)
	return dir
}
