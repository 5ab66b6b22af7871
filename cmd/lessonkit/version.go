package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/lessonkit"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of lessonkit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lessonkit version %s\n", strings.TrimSpace(lessonkit.Version))
		},
	}
}
