package mcp

import (
	"context"
	"encoding/json"

	common "github.com/bobmcallan/stock-portal/internal/common"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// versionInfo holds version fields for one component.
type versionInfo struct {
	Version string `json:"version"`
	Build   string `json:"build"`
	Commit  string `json:"commit"`
}

// versionResult is the get_version payload.
type versionResult struct {
	Portal  versionInfo `json:"stock_portal"`
	Backend string      `json:"backend"`
}

// VersionTool returns the mcp.Tool definition for get_version.
func VersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the stock portal version and whether the stock backend is reachable. Use this to verify connectivity."),
	)
}

// VersionToolHandler reports the portal version and backend status.
func VersionToolHandler(backend HealthChecker) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := versionResult{
			Portal: versionInfo{
				Version: common.GetVersion(),
				Build:   common.GetBuild(),
				Commit:  common.GetGitCommit(),
			},
			Backend: "ok",
		}
		if backend == nil || backend.Health(ctx) != nil {
			result.Backend = "unreachable"
		}

		out, err := json.Marshal(result)
		if err != nil {
			return errorResult("failed to marshal version info"), nil
		}
		return textResult(string(out)), nil
	}
}
