package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/aretw0/lessonkit/internal/cli"
	stategraph "github.com/aretw0/lessonkit/pkg/graph"
	"github.com/aretw0/lessonkit/pkg/widget"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var auditWidgets bool
	cmd := &cobra.Command{
		Use:   "validate [exploration...]",
		Short: "Check explorations for consistency",
		Long: `Checks the explorations in --dir (all of them when none is named) for
dangling rule destinations, missing default rules and invalid widget
arguments, and warns about unreachable states. With --widgets it also lists
which states use each widget.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			ids := args
			if len(ids) == 0 {
				if ids, err = e.backend.Source.List(cmd.Context()); err != nil {
					return err
				}
			}

			usage := map[string][]string{}
			var failed []error
			for _, id := range ids {
				if err := validateOne(cmd.Context(), cmd.OutOrStdout(), e.backend, id, usage); err != nil {
					failed = append(failed, fmt.Errorf("%s: %w", id, err))
				}
			}
			if auditWidgets {
				printWidgetUsage(cmd.OutOrStdout(), usage)
			}
			if len(failed) > 0 {
				return fmt.Errorf("validation failed: %w", errors.Join(failed...))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&auditWidgets, "widgets", false, "list the states using each widget")
	return cmd
}

// validateOne checks exploration id and adds "id state" to usage under the
// widget each state uses.
func validateOne(ctx context.Context, out io.Writer, b *cli.Backend, id string, usage map[string][]string) error {
	exp, err := b.Source.Load(ctx, id)
	if err != nil {
		return err
	}
	for _, name := range exp.StateNames() {
		w := exp.States[name].Widget.WidgetID
		usage[w] = append(usage[w], id+" "+name)
	}

	errs := []error{stategraph.Check(exp)}
	registry := widget.DefaultRegistry()
	for _, name := range exp.StateNames() {
		w := exp.States[name].Widget
		if err := registry.ValidateArgs(w.WidgetID, w.CustomizationArgs); err != nil {
			errs = append(errs, fmt.Errorf("state %s: %w", name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	for _, name := range stategraph.Unreachable(exp) {
		fmt.Fprintf(out, "warning: %s: state %q is unreachable\n", id, name)
	}
	fmt.Fprintf(out, "Exploration %s is valid! ✅\n", id)
	return nil
}

func printWidgetUsage(out io.Writer, usage map[string][]string) {
	widgets := make([]string, 0, len(usage))
	for w := range usage {
		widgets = append(widgets, w)
	}
	slices.Sort(widgets)

	fmt.Fprintln(out, "Widget usage:")
	for _, w := range widgets {
		fmt.Fprintf(out, "  %s: %s\n", w, strings.Join(usage[w], ", "))
	}
}
