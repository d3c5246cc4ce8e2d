// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"commodore-cli/internal/provision"
	"commodore-cli/internal/watch"
)

type watchFlagValues struct {
	debounce time.Duration
	initial  bool
}

func newWatchCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &watchFlagValues{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run an application's fragments when they change",
		Long: `Watch apps/*/fragments for changes to init fragments and re-run the
fragments of the changed applications. Edited fragments always run, whatever
the ledger records. Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), app, rootFlags, flags)
		},
	}

	cmd.Flags().DurationVar(&flags.debounce, "debounce", 500*time.Millisecond, "quiet period before fragments are re-run")
	cmd.Flags().BoolVar(&flags.initial, "initial", false, "run a full provision pass before watching")
	return cmd
}

func runWatch(ctx context.Context, app *App, rootFlags *rootFlagValues, flags *watchFlagValues) error {
	s, err := app.openSession(ctx, rootFlags, true)
	if err != nil {
		return err
	}
	defer s.Close(app.stderr)

	if flags.initial {
		apps, appsErr := s.applications(nil)
		if appsErr != nil {
			return appsErr
		}
		printReport(app.stdout, s.orchestrator().Run(ctx, apps, nil), s.cfg.UI.Verbose)
	}

	w, err := watch.New(watch.Config{
		Root:     s.cfg.RootDir,
		Prefix:   s.cfg.Commodity.FragmentPrefix,
		Debounce: flags.debounce,
		Logger:   s.logger,
		OnChange: func(ctx context.Context, apps []string) error {
			reprovision(ctx, app, s, apps)
			return nil
		},
	})
	if err != nil {
		return newServiceError(err, 0, "")
	}

	fmt.Fprintln(app.stdout, SubtitleStyle.Render("Watching "+watch.Pattern(s.cfg.Commodity.FragmentPrefix)+" (Ctrl+C to stop)"))
	return w.Run(ctx)
}

// reprovision runs the changed applications as if the container were new,
// so the ledger does not suppress edited fragments.
func reprovision(ctx context.Context, app *App, s *session, apps []string) {
	orch := s.orchestrator()
	report := provision.Report{Commodity: orch.Commodity(), Started: s.clock.Now()}
	for _, name := range apps {
		report.Results = append(report.Results, orch.ProcessApp(ctx, name, true))
	}
	report.Finished = s.clock.Now()
	printReport(app.stdout, report, s.cfg.UI.Verbose)
}
