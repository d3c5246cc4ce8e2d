// SPDX-License-Identifier: MPL-2.0

// Package testutil provides deterministic fakes and helpers shared by tests.
//
// ScriptedRunner stands in for the shell.Runner capability with scripted exit
// codes and output per command; FakeClock drives the readiness monitor without
// real sleeping; MustWriteFile and friends build throwaway dev-env layouts.
package testutil
