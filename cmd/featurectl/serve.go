package main

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/togglekit/pkg/httpserver"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the feature API, health probes and Prometheus metrics",
		Long: `Serve the read-only feature API under /v1/features, /metrics for
Prometheus, and /healthz and /readyz probes. The server stops on SIGINT or
SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stack, ctx, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer stack.Close()

			opts := []httpserver.Option{httpserver.WithLogger(a.log)}
			if cmd.Flags().Changed("addr") {
				opts = append(opts, httpserver.WithAddr(addr))
			}
			return httpserver.NewFromConfig(a.cfg.HTTP, opts...).Run(ctx, stack.Handler())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address (overrides HTTP_ADDR)")
	return cmd
}
