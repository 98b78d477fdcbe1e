package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/scholar-rag/internal/bootstrap"
	"github.com/kirillkom/scholar-rag/internal/config"
	"github.com/kirillkom/scholar-rag/internal/observability/logging"
)

const serviceName = "mcp"

func main() {
	cfg := config.Load()
	// stdout carries the MCP protocol.
	logger := logging.New(serviceName, logging.Options{Level: cfg.LogLevel, Output: os.Stderr, File: cfg.LogFile})
	slog.SetDefault(logger)

	app, err := bootstrap.New(context.Background(), cfg)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	s := newServer(app.QueryUC, app.StatsUC)
	logger.Info("mcp_stdio_started")
	if err := server.ServeStdio(s); err != nil {
		logger.Error("mcp_server_failed", "error", err)
	}
}
