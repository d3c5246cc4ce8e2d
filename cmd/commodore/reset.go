// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"commodore-cli/internal/ledger"
)

type resetFlagValues struct {
	all bool
}

func newResetCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &resetFlagValues{}

	cmd := &cobra.Command{
		Use:   "reset [app...]",
		Short: "Forget recorded provision state so applications run again",
		Long: `Forget the recorded provision state of the named applications for the
configured commodity, so the next provision run processes them again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.all == (len(args) > 0) {
				return errors.New("name one or more applications, or pass --all")
			}
			return runReset(cmd.Context(), app, rootFlags, flags, args)
		},
	}

	cmd.Flags().BoolVar(&flags.all, "all", false, "forget every record of the configured commodity")
	return cmd
}

func runReset(ctx context.Context, app *App, rootFlags *rootFlagValues, flags *resetFlagValues, apps []string) error {
	s, err := app.openSession(ctx, rootFlags, false)
	if err != nil {
		return err
	}
	defer s.Close(app.stderr)

	commodity := s.cfg.Commodity.Name
	if flags.all {
		records, listErr := s.store.List(ctx)
		if listErr != nil {
			return newServiceError(fmt.Errorf("list ledger records: %w", listErr), 0, "")
		}
		for _, rec := range records {
			if rec.Commodity == commodity {
				apps = append(apps, rec.App)
			}
		}
	}

	for _, name := range apps {
		if err := s.store.Delete(ctx, ledger.NewKey(name, commodity)); err != nil {
			return newServiceError(fmt.Errorf("reset %s: %w", name, err), 0, "")
		}
		fmt.Fprintf(app.stdout, "%s %s %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(name), SubtitleStyle.Render("will be provisioned on the next run"))
	}
	if len(apps) == 0 {
		fmt.Fprintln(app.stdout, SubtitleStyle.Render("nothing to reset"))
	}
	return nil
}
