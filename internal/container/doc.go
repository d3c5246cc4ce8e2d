// SPDX-License-Identifier: MPL-2.0

// Package container speaks the container runtime protocol used to provision a
// shared commodity container: start (idempotent, through compose), health
// query, single-file copy-in, and exec as a given user.
//
// The Engine interface builds argument vectors for a CLI engine; DockerEngine
// and PodmanEngine both embed BaseCLIEngine for the shared construction. A
// Client turns those vectors into command lines and hands them to a
// shell.Runner, so every container interaction can be replaced by a scripted
// fake in tests. LazyClient defers engine detection to the first protocol
// call.
package container
