// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"errors"
	"fmt"

	"commodore-cli/internal/fragment"
)

var (
	// ErrFragmentFailed is the sentinel error wrapped by FragmentError.
	ErrFragmentFailed = errors.New("fragment execution failed")
	// ErrInjection is the sentinel error wrapped by InjectionError.
	ErrInjection = errors.New("fragment injection failed")
)

type (
	// FragmentError is returned when a fragment exits outside its acceptance set.
	FragmentError struct {
		Kind     fragment.Kind
		App      string
		File     string
		ExitCode int
		Accepted AcceptanceSet
	}

	// InjectionError is returned when a fragment cannot be copied into the
	// container or made readable there.
	InjectionError struct {
		Step     string
		File     string
		ExitCode int
		Err      error
	}
)

// Error implements the error interface.
func (e *FragmentError) Error() string {
	what := "sql"
	if e.Kind == fragment.KindShell {
		what = "shell script"
	}
	return fmt.Sprintf("failed to run init %s for %s: %s exited with code %d (accepted %s)", what, e.App, e.File, e.ExitCode, e.Accepted)
}

// Unwrap returns ErrFragmentFailed for errors.Is() compatibility.
func (e *FragmentError) Unwrap() error { return ErrFragmentFailed }

// Error implements the error interface.
func (e *InjectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("inject %s: %s: %v", e.File, e.Step, e.Err)
	}
	return fmt.Sprintf("inject %s: %s exited with code %d", e.File, e.Step, e.ExitCode)
}

// Unwrap returns ErrInjection and the underlying cause.
func (e *InjectionError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInjection, e.Err}
	}
	return []error{ErrInjection}
}
