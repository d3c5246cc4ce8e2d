// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"commodore-cli/internal/provision"
)

type provisionFlagValues struct {
	newContainers []string
	apps          []string
	strict        bool
}

func newProvisionCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &provisionFlagValues{}

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Run init fragments for every application that needs them",
		Long: `Run init fragments for every application that needs them.

Applications are processed in the order of dev-env-config/configuration.yml.
An application is processed when its configuration.yml lists the commodity,
it ships at least one init fragment, and the ledger does not already record
a successful provision. Passing the commodity to --new-container ignores the
ledger because a recreated container has lost its databases.

A failing application does not stop the run. Use --strict to exit with
status 3 when any application failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProvision(cmd.Context(), app, rootFlags, flags)
		},
	}

	cmd.Flags().StringSliceVarP(&flags.newContainers, "new-container", "n", nil, "container created in this dev-env run (repeatable)")
	cmd.Flags().StringSliceVarP(&flags.apps, "app", "a", nil, "only provision these applications (repeatable)")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "exit with status 3 when any application failed")
	return cmd
}

func runProvision(ctx context.Context, app *App, rootFlags *rootFlagValues, flags *provisionFlagValues) error {
	s, err := app.openSession(ctx, rootFlags, true)
	if err != nil {
		return err
	}
	defer s.Close(app.stderr)

	apps, err := s.applications(flags.apps)
	if err != nil {
		return err
	}

	report := s.orchestrator().Run(ctx, apps, flags.newContainers)
	printReport(app.stdout, report, s.cfg.UI.Verbose)

	if flags.strict && report.HasFailures() {
		failed := report.Failed()
		summary := fmt.Errorf("%d of %d applications failed to provision", len(failed), len(report.Results))
		return &ExitError{
			Code: ExitProvisionFailed,
			Err:  newServiceError(summary, classifyError(failed[0].Err), ""),
		}
	}
	return nil
}

// printReport writes one line per application and a summary line.
func printReport(w io.Writer, report provision.Report, verbose bool) {
	header := "Provisioning " + report.Commodity
	if report.FreshlyCreated {
		header += WarningStyle.Render(" (new container, ledger ignored)")
	}
	fmt.Fprintln(w, TitleStyle.Render(header))

	if len(report.Results) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("  no applications configured"))
		return
	}

	width := 0
	for _, res := range report.Results {
		width = max(width, len(res.App))
	}

	for _, res := range report.Results {
		fmt.Fprintf(w, "  %s %s  %s  %s\n",
			resultMark(res.Status),
			CmdStyle.Render(fmt.Sprintf("%-*s", width, res.App)),
			statusStyle(string(res.Status)).Render(fmt.Sprintf("%-7s", res.Status)),
			resultDetail(res))
		if verbose {
			for _, out := range res.Outcomes {
				fmt.Fprintf(w, "      %s exit %d\n", VerboseStyle.Render(out.Fragment.Base()), out.ExitCode)
			}
		}
	}

	fmt.Fprintf(w, "%s %d ok, %d failed, %d skipped",
		SubtitleStyle.Render("Summary:"),
		len(report.Succeeded()), len(report.Failed()), len(report.Skipped()))
	if report.ReadinessPolls > 0 {
		fmt.Fprintf(w, ", %d readiness polls", report.ReadinessPolls)
	}
	fmt.Fprintf(w, " in %s\n", report.Duration().Round(time.Millisecond))
}

func resultMark(status provision.Status) string {
	switch status {
	case provision.StatusOK:
		return SuccessStyle.Render("✓")
	case provision.StatusFailed:
		return ErrorStyle.Render("✗")
	default:
		return SubtitleStyle.Render("-")
	}
}

func resultDetail(res provision.Result) string {
	switch res.Status {
	case provision.StatusOK:
		n := len(res.Outcomes)
		if n == 1 {
			return "1 fragment"
		}
		return fmt.Sprintf("%d fragments", n)
	case provision.StatusFailed:
		msg := res.Message
		if msg == "" && res.Err != nil {
			msg = res.Err.Error()
		}
		// Joined errors span lines; keep the report to one line per app.
		msg = strings.ReplaceAll(msg, "\n", "; ")
		return ErrorStyle.Render(string(res.Kind)+": ") + msg
	default:
		return SubtitleStyle.Render(res.Reason)
	}
}
