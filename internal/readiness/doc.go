// SPDX-License-Identifier: MPL-2.0

// Package readiness drives the shared commodity container to a healthy state.
//
// The Monitor starts the container, then polls its health at a fixed interval
// until the engine reports "healthy", and finally waits a fixed grace delay so
// the database can finish account setup the health probe does not observe:
//
//	unknown -> (poll) -> unhealthy -> (sleep, poll) -> ... -> healthy -> (grace) -> ready
//
// By default there is no retry limit: a container that never becomes healthy
// blocks until the context is cancelled. Config.MaxAttempts bounds the wait.
// Time is read through a Clock so tests run without sleeping.
package readiness
