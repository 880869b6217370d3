package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/cvforge/cvforge/pkg/config"
	"github.com/cvforge/cvforge/pkg/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			a, err := buildApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := []server.Option{
				server.WithAllowOrigins(cfg.Server.AllowOrigins),
				server.WithLogger(logger),
			}
			if h := a.historyStore(); h != nil {
				opts = append(opts, server.WithHistory(h), server.WithQuota(a.quota))
			}
			srv := server.New(cfg.Listen, a.service, a.dispatcher, opts...)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if configPath != "" {
				go func() {
					if err := config.Watch(ctx, configPath, logger, a.applyConfig); err != nil {
						logger.Warn("config watch stopped", "error", err)
					}
				}()
			}

			logger.Info("starting cvforge", "config", configPath, "cache", cfg.Cache.Backend, "history", cfg.History.Enabled)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (overrides config)")
	return cmd
}
