// SPDX-License-Identifier: MPL-2.0

// Package ledger persists the outcome of the most recent provisioning attempt
// for each (application, commodity) pair.
//
// The orchestrator reads a record before deciding whether an application needs
// work and writes one after every attempt, successful or not. Three backends
// are provided: MemoryLedger for tests, FileLedger (a TOML document, the
// default) and SQLiteLedger, which also keeps an append-only attempt history.
//
// Writes are not atomic across processes; a single writer per run is assumed.
package ledger
