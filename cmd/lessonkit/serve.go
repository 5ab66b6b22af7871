package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/lessonkit/internal/cli"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Starts the reader and editor HTTP API. Explorations found in --dir are
imported into the store; with --watch, markdown changes are re-imported
and announced on /events.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := openEnv(ctx, cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			if cmd.Flags().Changed("addr") {
				e.cfg.Addr, _ = cmd.Flags().GetString("addr")
			}
			if cmd.Flags().Changed("watch") {
				e.cfg.Watch, _ = cmd.Flags().GetBool("watch")
			}
			if cmd.Flags().Changed("metrics") {
				e.cfg.Metrics, _ = cmd.Flags().GetBool("metrics")
			}
			return cli.Serve(ctx, e.backend, e.cfg, cmd.OutOrStdout(), e.logger)
		},
	}
	cmd.Flags().String("addr", ":8080", "Address to listen on")
	cmd.Flags().BoolP("watch", "w", false, "Re-import explorations when their files change")
	cmd.Flags().Bool("metrics", true, "Expose Prometheus metrics on /metrics")
	return cmd
}

