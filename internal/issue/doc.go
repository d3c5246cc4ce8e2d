// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and a catalog of Markdown
// troubleshooting notes for the failures operators hit most often: an
// unreachable container engine, a container that never turns healthy, a
// rejected fragment, an unreadable ledger.
package issue
