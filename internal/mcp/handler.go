package mcp

import (
	"context"
	"net/http"

	common "github.com/bobmcallan/stock-portal/internal/common"
	"github.com/bobmcallan/stock-portal/internal/dashboard"
	"github.com/bobmcallan/stock-portal/internal/models"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// HealthChecker probes the stock backend.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Backend is what the tools need beyond a controller.
type Backend interface {
	HealthChecker
	ListCompanies(ctx context.Context) ([]models.Company, error)
	StockDetail(ctx context.Context, symbol string) (models.StockDetail, error)
}

// ControllerFactory builds an uninitialized dashboard controller.
type ControllerFactory func() *dashboard.Controller

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	server     *mcpserver.MCPServer
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
}

// NewServer creates an MCP server with every stock tool registered.
func NewServer(backend Backend, newController ControllerFactory, formatter *common.Formatter) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer(
		"stock-portal",
		common.GetVersion(),
		mcpserver.WithToolCapabilities(true),
	)
	RegisterTools(s, &Tools{
		Backend:       backend,
		NewController: newController,
		Formatter:     formatter,
	})
	return s
}

// NewHandler creates the /mcp handler.
func NewHandler(backend Backend, newController ControllerFactory, formatter *common.Formatter, logger *common.Logger) *Handler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	s := NewServer(backend, newController, formatter)
	streamable := mcpserver.NewStreamableHTTPServer(s,
		mcpserver.WithStateLess(true),
	)

	logger.Info().
		Int("tools", len(ToolNames)).
		Msg("MCP handler initialized")

	return &Handler{
		server:     s,
		streamable: streamable,
		logger:     logger,
	}
}

// Server returns the underlying MCP server.
func (h *Handler) Server() *mcpserver.MCPServer {
	return h.server
}

// ServeHTTP delegates to the mcp-go StreamableHTTPServer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.streamable.ServeHTTP(w, r)
}
