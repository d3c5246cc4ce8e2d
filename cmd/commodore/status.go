// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"commodore-cli/internal/ledger"
)

// errNoHistory is returned when attempt history is requested from a ledger
// backend that does not keep it.
var errNoHistory = errors.New("attempt history requires the sqlite ledger backend")

type (
	statusFlagValues struct {
		markdown bool
		history  string
	}

	// historian is implemented by ledgers that keep every attempt.
	historian interface {
		History(ctx context.Context, key ledger.Key) ([]ledger.Attempt, error)
	}
)

func newStatusCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &statusFlagValues{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recorded provision state",
		Long: `Show the provision state recorded in the ledger.

With --history APP the individual attempts for APP are listed; this needs
the sqlite ledger backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), app, rootFlags, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.markdown, "markdown", false, "render the state as a Markdown table")
	cmd.Flags().StringVar(&flags.history, "history", "", "list every recorded attempt for this application")
	return cmd
}

func runStatus(ctx context.Context, app *App, rootFlags *rootFlagValues, flags *statusFlagValues) error {
	s, err := app.openSession(ctx, rootFlags, false)
	if err != nil {
		return err
	}
	defer s.Close(app.stderr)

	if flags.history != "" {
		return printHistory(ctx, app.stdout, s, flags.history)
	}

	records, err := s.store.List(ctx)
	if err != nil {
		return newServiceError(fmt.Errorf("list ledger records: %w", err), 0, "")
	}

	if flags.markdown {
		fmt.Fprint(app.stdout, renderMarkdown(app.stdout, statusMarkdown(s.cfg.LedgerPath(), records), s.cfg.UI.ColorScheme))
		return nil
	}
	printStatus(app.stdout, s.cfg.LedgerPath(), records)
	return nil
}

func provisionedWord(provisioned bool) string {
	if provisioned {
		return "provisioned"
	}
	return "not provisioned"
}

func printStatus(w io.Writer, path string, records []ledger.Record) {
	fmt.Fprintln(w, TitleStyle.Render("Ledger")+" "+SubtitleStyle.Render(path))
	if len(records) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("  no provision attempts recorded"))
		return
	}

	width := 0
	for _, rec := range records {
		width = max(width, len(rec.App))
	}
	for _, rec := range records {
		word := provisionedWord(rec.Provisioned)
		fmt.Fprintf(w, "  %s  %s  %s  %s\n",
			CmdStyle.Render(fmt.Sprintf("%-*s", width, rec.App)),
			rec.Commodity,
			statusStyle(word).Render(fmt.Sprintf("%-15s", word)),
			VerboseStyle.Render(formatTime(rec.UpdatedAt)))
	}
}

// statusMarkdown renders records as a Markdown document.
func statusMarkdown(path string, records []ledger.Record) string {
	var sb strings.Builder
	sb.WriteString("# Provision status\n\n")
	sb.WriteString("Ledger: `" + path + "`\n\n")
	if len(records) == 0 {
		sb.WriteString("_No provision attempts recorded._\n")
		return sb.String()
	}
	sb.WriteString("| Application | Commodity | State | Updated |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, rec := range records {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", rec.App, rec.Commodity, provisionedWord(rec.Provisioned), formatTime(rec.UpdatedAt))
	}
	return sb.String()
}

func printHistory(ctx context.Context, w io.Writer, s *session, app string) error {
	h, ok := s.store.(historian)
	if !ok {
		return newServiceError(errNoHistory, 0, "")
	}
	attempts, err := h.History(ctx, ledger.NewKey(app, s.cfg.Commodity.Name))
	if err != nil {
		return newServiceError(fmt.Errorf("read attempt history: %w", err), 0, "")
	}

	fmt.Fprintln(w, TitleStyle.Render("History")+" "+CmdStyle.Render(app))
	if len(attempts) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("  no attempts recorded"))
		return nil
	}
	for _, a := range attempts {
		word := "failed"
		if a.Provisioned {
			word = "ok"
		}
		fmt.Fprintf(w, "  %s  %s  %s\n",
			VerboseStyle.Render(formatTime(a.AttemptedAt)),
			statusStyle(word).Render(fmt.Sprintf("%-6s", word)),
			SubtitleStyle.Render("run "+a.RunID))
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
