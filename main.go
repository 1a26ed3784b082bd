package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/raganything/rag-anything-mcp/config"
	"github.com/raganything/rag-anything-mcp/rag"
	"github.com/raganything/rag-anything-mcp/server"
	"github.com/raganything/rag-anything-mcp/tools"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Starting RAG-Anything MCP Server",
		zap.String("server_name", cfg.ServerName),
		zap.String("version", cfg.ServerVersion),
		zap.String("llm_model", cfg.LLMModel),
		zap.String("embedding_model", cfg.EmbeddingModel),
		zap.String("storage_dir", cfg.RAGStorageDir),
	)

	// Create the RAG manager. The underlying engine is created lazily on
	// the first tool call that needs it.
	manager := rag.NewManager(cfg, logger)

	toolset := tools.New(cfg, manager, logger)

	// Create MCP server
	mcpServer, err := server.NewRAGServer(toolset, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create MCP server", zap.Error(err))
	}

	// Start HTTP API server if enabled
	var httpAPIServer *server.HTTPAPIServer
	if cfg.HTTPAPIEnabled {
		httpAPIServer = server.NewHTTPAPIServer(mcpServer, cfg.HTTPAPIPort, logger)
		if err := httpAPIServer.Start(); err != nil {
			logger.Error("Failed to start HTTP API server", zap.Error(err))
		} else {
			logger.Info("HTTP API server started", zap.Int("port", cfg.HTTPAPIPort))
		}
	}

	// Start server
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down gracefully...")

		if httpAPIServer != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := httpAPIServer.Stop(shutdownCtx); err != nil {
				logger.Error("Failed to stop HTTP API server", zap.Error(err))
			}
		}

		manager.Shutdown(context.Background())

		cancel()
	}()

	logger.Info("MCP Server starting...")
	if err := mcpServer.Serve(ctx); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}
