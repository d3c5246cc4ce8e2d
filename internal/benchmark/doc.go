// SPDX-License-Identifier: MPL-2.0

// Package benchmark holds benchmarks for the provisioning hot paths, used for
// PGO profile generation:
//   - dev-env YAML extraction and CUE config decoding
//   - ledger reads and writes for each backend
//   - fragment discovery and skip decisions across many applications
//   - a full orchestrator run against a scripted container
//
// To generate a PGO profile, run:
//
//	go test -run '^$' -bench . -cpuprofile default.pgo ./internal/benchmark
package benchmark
