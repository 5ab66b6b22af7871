package main

import (
	"encoding/json"
	"fmt"

	stategraph "github.com/aretw0/lessonkit/pkg/graph"
	"github.com/spf13/cobra"
)

func newIncomingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "incoming <exploration> <state>",
		Short: "List the states with rules leading to a state",
		Args:  cobra.ExactArgs(2),
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
			out := make(map[string][]string)
			for source, in := range stategraph.New(exp).GetIncomingStates(args[1]) {
				out[source] = in.Rules
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
