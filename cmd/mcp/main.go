package main

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"beebi/backend/internal/config"
	"beebi/backend/internal/mcptools"
	"beebi/backend/internal/service"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger := cfg.NewLogger()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	engine, closeSource, err := service.NewEngine(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("analytics engine setup failed", "error", err)
		os.Exit(1)
	}
	defer closeSource()

	if err := server.ServeStdio(mcptools.NewServer(engine, version, logger)); err != nil {
		logger.Error("mcp server stopped", "error", err)
		closeSource()
		os.Exit(1)
	}
}
