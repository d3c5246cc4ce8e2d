// SPDX-License-Identifier: MPL-2.0

// Package shell is the single command-execution capability used by the
// provisioning core. Every interaction with the container runtime is a command
// line handed to a Runner, which reports the exit code and the output lines.
//
// InterpRunner parses command lines with mvdan/sh and runs them in-process, so
// pipelines such as "tar -c ... | docker cp - name:/" behave the same on every
// host without depending on /bin/sh.
package shell
