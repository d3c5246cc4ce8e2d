// SPDX-License-Identifier: MPL-2.0

package fragment

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"commodore-cli/internal/ledger"
	"commodore-cli/internal/manifest"
)

const (
	// DirName is the fragment directory inside an application.
	DirName = "fragments"

	// KindSQL is a declarative fragment run by the database batch client.
	KindSQL Kind = "sql"
	// KindShell is an imperative fragment run as an executable script.
	KindShell Kind = "sh"
)

const (
	// ReasonNoFragments means neither fragment file exists.
	ReasonNoFragments Reason = "no-fragments"
	// ReasonAlreadyProvisioned means the ledger records success and the container is unchanged.
	ReasonAlreadyProvisioned Reason = "already-provisioned"
	// ReasonFreshContainer means the container was just created, so the ledger is ignored.
	ReasonFreshContainer Reason = "fresh-container"
	// ReasonNotProvisioned means no successful attempt is recorded.
	ReasonNotProvisioned Reason = "not-provisioned"
)

type (
	// Kind is a fragment type. Its value is the file extension.
	Kind string

	// Reason explains a Decision.
	Reason string

	// Fragment is one initialisation file on disk.
	Fragment struct {
		App  string
		Kind Kind
		Path string
	}

	// Decision is the outcome of ShouldProcess.
	Decision struct {
		Process bool
		Reason  Reason
		// Fragments are the files to run, declarative first.
		Fragments []Fragment
	}

	// Locator finds fragments for one commodity.
	Locator struct {
		root      string
		prefix    string
		commodity string
		ledger    ledger.Ledger
	}
)

// Kinds returns the fragment kinds in execution order.
func Kinds() []Kind {
	return []Kind{KindSQL, KindShell}
}

// FileName returns the fragment file name for prefix and kind.
func FileName(prefix string, kind Kind) string {
	return prefix + "-init-fragment." + string(kind)
}

// Base returns the file name of the fragment.
func (f Fragment) Base() string {
	return filepath.Base(f.Path)
}

// String returns a human-readable description of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonNoFragments:
		return "requires the commodity but has no init fragments"
	case ReasonAlreadyProvisioned:
		return "already provisioned"
	case ReasonFreshContainer:
		return "container was newly created"
	case ReasonNotProvisioned:
		return "not provisioned yet"
	default:
		return string(r)
	}
}

// NewLocator creates a Locator for commodity, whose fragment files are named
// with prefix, reading provision records from l.
func NewLocator(root, prefix, commodity string, l ledger.Ledger) *Locator {
	return &Locator{root: root, prefix: prefix, commodity: commodity, ledger: l}
}

// Dir returns the fragment directory of app.
func (l *Locator) Dir(app string) string {
	return filepath.Join(manifest.AppDir(l.root, app), DirName)
}

// Path returns the path the fragment of kind would have for app.
func (l *Locator) Path(app string, kind Kind) string {
	return filepath.Join(l.Dir(app), FileName(l.prefix, kind))
}

// Discover returns the fragments present for app, declarative first.
func (l *Locator) Discover(app string) ([]Fragment, error) {
	var found []Fragment
	for _, kind := range Kinds() {
		path := l.Path(app, kind)
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat fragment %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		found = append(found, Fragment{App: app, Kind: kind, Path: path})
	}
	return found, nil
}

// ShouldProcess decides whether app needs its fragments run. Missing fragments
// always skip; a fresh container always runs; otherwise a recorded success skips.
func (l *Locator) ShouldProcess(ctx context.Context, app string, freshlyCreated bool) (Decision, error) {
	fragments, err := l.Discover(app)
	if err != nil {
		return Decision{}, err
	}
	if len(fragments) == 0 {
		return Decision{Reason: ReasonNoFragments}, nil
	}

	decision := Decision{Process: true, Fragments: fragments}
	if freshlyCreated {
		decision.Reason = ReasonFreshContainer
		return decision, nil
	}

	provisioned, _, err := l.ledger.Get(ctx, ledger.NewKey(app, l.commodity))
	if err != nil {
		return Decision{}, fmt.Errorf("read provision status of %s: %w", app, err)
	}
	if provisioned {
		return Decision{Reason: ReasonAlreadyProvisioned, Fragments: fragments}, nil
	}
	decision.Reason = ReasonNotProvisioned
	return decision, nil
}
