// SPDX-License-Identifier: MPL-2.0

// Package fragment locates application initialisation fragments and decides
// whether an application needs provisioning in the current run.
//
// Fragments live at <root>/apps/<app>/fragments/<prefix>-init-fragment.sql
// (declarative) and <prefix>-init-fragment.sh (imperative).
package fragment
