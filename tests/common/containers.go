package common

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	portalBuildOnce  sync.Once
	portalBuildError error
	portalContainer  *PortalContainer
	portalOnce       sync.Once
	portalStartErr   error
)

// PortalContainer wraps the stock-portal container and the in-process
// backend it talks to.
type PortalContainer struct {
	portal  testcontainers.Container
	backend *StockBackend
	ctx     context.Context
	cancel  context.CancelFunc
	url     string
}

// URL returns the base URL of the running portal container.
func (p *PortalContainer) URL() string {
	return p.url
}

// Backend returns the fake stock backend behind the portal.
func (p *PortalContainer) Backend() *StockBackend {
	return p.backend
}

// CollectLogs saves the portal container's output to dir/portal.log.
func (p *PortalContainer) CollectLogs(dir string) {
	if p == nil || p.portal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	os.MkdirAll(dir, 0755)

	reader, err := p.portal.Logs(ctx)
	if err != nil {
		return
	}
	defer reader.Close()

	logs, err := io.ReadAll(reader)
	if err != nil {
		return
	}
	os.WriteFile(filepath.Join(dir, "portal.log"), logs, 0644)
}

// Cleanup tears down the container and the backend.
// Uses a fresh context for teardown in case the main context expired.
func (p *PortalContainer) Cleanup() {
	if p == nil {
		return
	}

	cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cleanupCancel()

	if p.portal != nil {
		p.portal.Terminate(cleanupCtx)
	}
	if p.backend != nil {
		p.backend.Close()
	}
	if p.cancel != nil {
		p.cancel()
	}
}

// buildPortalImage builds the stock-portal:test Docker image once per test run.
func buildPortalImage() error {
	portalBuildOnce.Do(func() {
		ctx := context.Background()

		req := testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				FromDockerfile: testcontainers.FromDockerfile{
					Context:    FindProjectRoot(),
					Dockerfile: "docker/Dockerfile",
					Repo:       "stock-portal",
					Tag:        "test",
					KeepImage:  true,
				},
			},
		}

		_, portalBuildError = testcontainers.GenericContainer(ctx, req)
		if portalBuildError != nil {
			// Image may have built successfully even if container creation failed
			if strings.Contains(portalBuildError.Error(), "stock-portal:test") {
				portalBuildError = nil
			}
		}
	})
	return portalBuildError
}

// startTestEnvironment starts the fake backend on the host and a portal
// container that reaches it through the testcontainers host tunnel.
func startTestEnvironment() (*PortalContainer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 180*time.Second)

	backend := NewStockBackend()

	portalCtr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:           "stock-portal:test",
			ExposedPorts:    []string{"4241/tcp"},
			HostAccessPorts: []int{backend.Port()},
			Env: map[string]string{
				"STOCK_API_URL":     fmt.Sprintf("http://%s:%d", testcontainers.HostInternal, backend.Port()),
				"STOCK_ENV":         "dev",
				"STOCK_SERVER_HOST": "0.0.0.0",
				"STOCK_LOG_LEVEL":   "debug",
			},
			WaitingFor: wait.ForHTTP("/api/health").WithPort("4241/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		backend.Close()
		cancel()
		return nil, fmt.Errorf("start stock-portal: %w", err)
	}

	mappedPort, err := portalCtr.MappedPort(ctx, "4241/tcp")
	if err != nil {
		portalCtr.Terminate(ctx)
		backend.Close()
		cancel()
		return nil, fmt.Errorf("get portal mapped port: %w", err)
	}

	host, err := portalCtr.Host(ctx)
	if err != nil {
		portalCtr.Terminate(ctx)
		backend.Close()
		cancel()
		return nil, fmt.Errorf("get portal host: %w", err)
	}

	return &PortalContainer{
		portal:  portalCtr,
		backend: backend,
		ctx:     ctx,
		cancel:  cancel,
		url:     fmt.Sprintf("http://%s:%s", host, mappedPort.Port()),
	}, nil
}

func startOnce() {
	portalOnce.Do(func() {
		if err := buildPortalImage(); err != nil {
			portalStartErr = fmt.Errorf("build portal image: %w", err)
			return
		}
		portalContainer, portalStartErr = startTestEnvironment()
	})
}

// StartPortal starts the test environment (one per test process).
// Returns nil when STOCK_TEST_URL is set (manual mode -- tests use the existing server).
func StartPortal(t *testing.T) *PortalContainer {
	t.Helper()
	if os.Getenv("STOCK_TEST_URL") != "" {
		return nil
	}
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	startOnce()
	if portalStartErr != nil {
		t.Fatalf("Failed to start test environment: %v", portalStartErr)
	}
	return portalContainer
}

// StartPortalForTestMain starts the test environment for use in TestMain (no *testing.T).
// Returns (nil, nil) when STOCK_TEST_URL is set (manual mode).
func StartPortalForTestMain() (*PortalContainer, error) {
	if os.Getenv("STOCK_TEST_URL") != "" {
		return nil, nil
	}

	startOnce()
	if portalStartErr != nil {
		return nil, portalStartErr
	}
	return portalContainer, nil
}

// FindProjectRoot walks up from the working directory to the go.mod.
func FindProjectRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "."
		}
		dir = parent
	}
}
