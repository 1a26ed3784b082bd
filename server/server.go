package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/raganything/rag-anything-mcp/config"
	"github.com/raganything/rag-anything-mcp/tools"
)

// RAGServer binds the tool catalog and dispatcher to the MCP stdio
// transport.
type RAGServer struct {
	mcp    *mcpserver.MCPServer
	tools  *tools.Tools
	config *config.Config
	logger *zap.Logger
}

func NewRAGServer(t *tools.Tools, cfg *config.Config, logger *zap.Logger) (*RAGServer, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("tool catalog mismatch: %w", err)
	}

	s := &RAGServer{
		tools:  t,
		config: cfg,
		logger: logger,
	}

	mcpServer := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
	)

	s.registerTools(mcpServer)
	s.mcp = mcpServer

	return s, nil
}

func (s *RAGServer) registerTools(mcpServer *mcpserver.MCPServer) {
	for _, def := range s.tools.Definitions() {
		name := def.Name
		mcpServer.AddTool(def, func(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
			result := s.tools.HandleToolCall(context.Background(), name, arguments)

			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				s.logger.Error("Failed to marshal tool result", zap.String("tool", name), zap.Error(err))
				return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
			}

			return mcp.NewToolResultText(string(data)), nil
		})
	}
}

// CallTool runs one tool invocation and returns the result envelope.
// Used by the HTTP front end.
func (s *RAGServer) CallTool(ctx context.Context, name string, arguments map[string]interface{}) map[string]interface{} {
	return s.tools.HandleToolCall(ctx, name, arguments)
}

// Definitions exposes the tool catalog for listing endpoints.
func (s *RAGServer) Definitions() []mcp.Tool {
	return s.tools.Definitions()
}

func (s *RAGServer) Serve(ctx context.Context) error {
	return mcpserver.ServeStdio(s.mcp)
}
