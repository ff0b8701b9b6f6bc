package main

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"facetforge/internal/logging"
	"facetforge/internal/mcp"
)

func newServeCmd() *cobra.Command {
	var (
		metricsAddr   string
		maxConcurrent int64
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdin/stdout",
		Long: `Serves the generate_idea_categories and analyze_request tools over the
Model Context Protocol (JSON-RPC 2.0, one message per line on stdio).

Logs go to stderr; stdout carries protocol messages only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("metrics-addr") {
				cfg.Metrics.Addr = metricsAddr
			}
			if cmd.Flags().Changed("max-concurrent") {
				cfg.Server.MaxConcurrentCalls = maxConcurrent
			}
			return runServe(cmd)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address (e.g. :9464)")
	cmd.Flags().Int64Var(&maxConcurrent, "max-concurrent", 1, "Maximum tool calls executed at once")
	return cmd
}

func runServe(cmd *cobra.Command) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	server := mcp.NewServer(a.registry(), mcp.ServerConfig{
		Info:               mcp.ServerInfo{Name: cfg.Name, Version: cfg.Version},
		MaxConcurrentCalls: cfg.Server.MaxConcurrentCalls,
	})
	server.SetObserver(a.metrics)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// End of input stops the metrics endpoint too.
		defer cancel()
		return server.Serve(gctx, cmd.InOrStdin(), cmd.OutOrStdout())
	})
	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			return a.metrics.Serve(gctx, cfg.Metrics.Addr)
		})
	}

	err = g.Wait()
	if err != nil && cmd.Context().Err() != nil {
		logging.MCP("Shutting down on signal")
		return nil
	}
	return err
}
