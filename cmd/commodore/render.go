// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"golang.org/x/term"

	"commodore-cli/internal/config"
)

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// glamourStyle picks the Markdown style for w: the configured scheme on a
// terminal, plain ASCII otherwise.
func glamourStyle(w io.Writer, scheme config.ColorScheme) string {
	if !isTerminal(w) {
		return styles.NoTTYStyle
	}
	switch scheme {
	case config.ColorSchemeDark:
		return styles.DarkStyle
	case config.ColorSchemeLight:
		return styles.LightStyle
	default:
		return styles.AutoStyle
	}
}

// renderMarkdown renders md for w, falling back to the raw source when
// rendering fails.
func renderMarkdown(w io.Writer, md string, scheme config.ColorScheme) string {
	out, err := glamour.Render(md, glamourStyle(w, scheme))
	if err != nil {
		return md
	}
	return out
}
