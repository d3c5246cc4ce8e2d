// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"slices"
	"strconv"
	"strings"
)

// AcceptanceSet lists the exit codes treated as non-failing for a fragment kind.
type AcceptanceSet []int

var (
	// SQLAcceptance is the batch client's success code plus its
	// "already exists" codes for indexes, databases and tables.
	SQLAcceptance = AcceptanceSet{0, 2, 4, 6}
	// ShellAcceptance accepts success only.
	ShellAcceptance = AcceptanceSet{0}
)

// Accepts reports whether code is in the set.
func (a AcceptanceSet) Accepts(code int) bool {
	return slices.Contains(a, code)
}

// String returns the set as "{0, 2, 4, 6}".
func (a AcceptanceSet) String() string {
	parts := make([]string, len(a))
	for i, c := range a {
		parts[i] = strconv.Itoa(c)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// SQLCodeMeaning describes a batch client exit code in the SQL acceptance set.
func SQLCodeMeaning(code int) string {
	switch code {
	case 0:
		return "success"
	case 2:
		return "index already exists"
	case 4:
		return "database already exists"
	case 6:
		return "table already exists"
	default:
		return "failure"
	}
}
