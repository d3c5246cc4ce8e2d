// SPDX-License-Identifier: MPL-2.0

// Package executor injects initialisation fragments into the commodity
// container, runs them with the right tool and judges their exit codes.
//
// Declarative (SQL) fragments run through the database batch client and accept
// the idempotent-conflict codes in SQLAcceptance. Imperative (shell) fragments
// accept only ShellAcceptance. Every run is followed by a Reconciler pass that
// closes the sessions the fragment may have left open.
package executor
