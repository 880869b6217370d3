package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cvforge/cvforge/pkg/mcp"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the résumé tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := buildApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := []mcp.Option{
				mcp.WithMetrics(a.dispatcher.Metrics()),
				mcp.WithLogger(logger),
			}
			if a.cache != nil {
				opts = append(opts, mcp.WithCache(a.cache))
			}
			if h := a.historyStore(); h != nil {
				opts = append(opts, mcp.WithHistory(h))
			}
			srv := mcp.New(a.service, version, opts...)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx, os.Stdin, os.Stdout)
		},
	}
}
