package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/lessonkit/internal/cli"
	"github.com/spf13/cobra"
)

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play [exploration]",
		Short: "Play an exploration in the terminal",
		Long: `Plays an exploration interactively. The exploration can be omitted when
the directory holds exactly one. Type 'exit' or 'quit' to stop.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := openEnv(ctx, cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			headless, _ := cmd.Flags().GetBool("headless")
			opts := cli.PlayOptions{
				Headless: headless,
				Debug:    e.cfg.LogLevel == "debug",
				Input:    cmd.InOrStdin(),
				Output:   cmd.OutOrStdout(),
			}
			if len(args) > 0 {
				opts.ExplorationID = args[0]
			}
			return cli.Play(ctx, e.backend, opts, e.logger)
		},
	}
	cmd.Flags().Bool("headless", false, "Plain output without banner or markdown rendering")
	return cmd
}
