// Command reposum-mcp serves repository summarization as MCP tools over
// stdio. Logs go to stderr; stdout carries the protocol.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"reposummarizer/internal/gateway/app"
	"reposummarizer/internal/gateway/config"
	"reposummarizer/internal/mcp"
)

const version = "v0.1.0"

func main() {
	fs := flag.NewFlagSet("reposum-mcp", flag.ExitOnError)
	cfgFile := fs.String("config", "", "YAML config file")
	allowLocal := fs.Bool("allow-local", false, "register repo.summarize_local for checkouts on this machine")
	_ = fs.Parse(os.Args[1:])

	logger := log.New(os.Stderr, "reposum-mcp ", log.LstdFlags)

	var cfgArgs []string
	if *cfgFile != "" {
		cfgArgs = []string{"-config", *cfgFile}
	}
	cfg, err := config.Load(cfgArgs)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := app.NewService(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize service: %v", err)
	}
	defer svc.Close()

	srv := mcp.NewServer(mcp.Host{
		Service:    svc,
		Fetcher:    svc.Summarizer.Fetcher,
		Limits:     cfg.Limits,
		AllowLocal: *allowLocal,
		Logger:     logger,
	}, version)

	logger.Printf("serving MCP on stdio (allow-local=%t)", *allowLocal)
	if err := mcp.Run(ctx, srv); err != nil && ctx.Err() == nil {
		logger.Printf("MCP server error: %v", err)
	}
}
