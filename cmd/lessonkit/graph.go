package main

import (
	"fmt"

	"github.com/aretw0/lessonkit/internal/presentation/graph"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph <exploration>",
		Short: "Export the state graph visualization",
		Long:  `Outputs a Mermaid diagram (graph TD) of the states of an exploration and the rules linking them.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			exp, err := e.backend.Store.Load(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", args[0], err)
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(exp, nil))
			return nil
		},
	}
}
