package main

import (
	"context"
	"flag"
	"log"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	mcpadapter "tessera/internal/adapters/mcp"
	"tessera/internal/application/commands"
	"tessera/internal/bootstrap"
	"tessera/internal/config"
	"tessera/internal/logging"
)

func main() {
	configFlag := flag.String("config", "", "config file")
	vaultFlag := flag.String("vault", "", "path to the vault")
	watchFlag := flag.Bool("watch", false, "invalidate and recompute widgets as vault documents change")
	flag.Parse()

	overrides := map[string]any{}
	if *vaultFlag != "" {
		overrides["vault"] = *vaultFlag
	}
	cfg, err := config.LoadWith(*configFlag, overrides)
	if err != nil {
		log.Fatalf("tessera-mcp: %v", err)
	}

	// stdout carries the protocol; logs go to a file or nowhere
	logger := logging.NewDiscardLogger()
	if cfg.Log.File != "" {
		fileLogger, f, err := logging.NewFileLogger(cfg.Log.File, logging.LevelFromString(cfg.Log.Level))
		if err != nil {
			log.Fatalf("tessera-mcp: open log file: %v", err)
		}
		defer f.Close()
		logger = fileLogger
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("tessera-mcp: %v", err)
	}
	defer svc.Close()

	if *watchFlag {
		go watch(ctx, svc, logger)
	}

	mcpServer := server.NewMCPServer(
		"tessera-mcp",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(
		mcp.NewTool("ping",
			mcp.WithDescription("Health check, returns pong"),
		),
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("pong"), nil
		},
	)

	mcpadapter.RegisterEngineTools(mcpServer, svc.Engine, svc.Health)

	if err := server.ServeStdio(mcpServer); err != nil {
		log.Printf("tessera-mcp: %v", err)
	}
}

func watch(ctx context.Context, svc *bootstrap.Service, logger *slog.Logger) {
	err := svc.Watcher().Watch(ctx, func(paths []string) {
		report, err := commands.NewFilesChangedCommand(svc.Engine, paths, true).Execute(ctx)
		if err != nil {
			logger.Error("failed to handle changes", "error", err)
			return
		}
		logger.Info("vault changed", "paths", len(paths), "invalidated", len(report.InvalidatedWidgets))
	})
	if err != nil && ctx.Err() == nil {
		logger.Error("watcher stopped", "error", err)
	}
}
