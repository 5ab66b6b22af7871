package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/lessonkit/internal/cli"
	"github.com/aretw0/lessonkit/internal/config"
	"github.com/aretw0/lessonkit/pkg/dialog"
	"github.com/aretw0/lessonkit/pkg/editor"
	"github.com/aretw0/lessonkit/pkg/notify"
	"github.com/spf13/cobra"
)

func newRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <exploration> <old-name> <new-name>",
		Short: "Rename a state and commit the change",
		Long: `Renames a state in the store, rewriting every rule pointing at it, and
commits the change list. Without --message the commit message is asked
for; an empty answer cancels the save.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			services := cli.NewServices(e.backend, e.cfg, e.logger)
			warnings := notify.NewWarningList(0)
			sess, err := editor.Open(cmd.Context(), e.backend.Store, args[0], services.Editor,
				editor.WithNotifier(notify.Multi{warnings, notify.Logger{Log: e.logger}}),
				editor.WithValidator(services.Widgets),
				editor.WithSessionLogger(e.logger),
			)
			if err != nil {
				return err
			}

			if err := sess.Graph().RenameState(args[1], args[2]); err != nil {
				for _, w := range warnings.Warnings() {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
				}
				return err
			}

			out := cmd.OutOrStdout()
			for _, line := range sess.Describe() {
				fmt.Fprintln(out, "-", line)
			}

			prompt := dialog.Line(cmd.InOrStdin(), out, "Commit message: ")
			if msg, _ := cmd.Flags().GetString("message"); strings.TrimSpace(msg) != "" {
				prompt = dialog.Static(dialog.Confirmed(msg))
			}
			saved, err := sess.Save(cmd.Context(), prompt)
			if err != nil {
				return err
			}
			if !saved {
				fmt.Fprintln(out, "Save cancelled.")
				return nil
			}
			fmt.Fprintf(out, "Committed version %d.\n", sess.Version())
			if e.cfg.Store == config.StoreMemory {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: the memory store does not outlive this command")
			}
			return nil
		},
	}
	cmd.Flags().StringP("message", "m", "", "Commit message")
	return cmd
}
