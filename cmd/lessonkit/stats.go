package main

import (
	"encoding/json"

	"github.com/aretw0/lessonkit/pkg/stats"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <exploration> <state>",
		Short: "Summarize the answers given at a state",
		Long: `Summarizes logged answers. Answers only outlive a process with the redis
store; calculations are AnswerFrequencies, Top5AnswerFrequencies and
FrequencyCommonlySubmittedElements.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			calculation, _ := cmd.Flags().GetString("calculation")
			result, err := stats.Calculate(cmd.Context(), e.backend.Answers, args[0], args[1], calculation)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().String("calculation", stats.AnswerFrequencies, "Calculation to run")
	return cmd
}
