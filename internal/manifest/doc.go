// SPDX-License-Identifier: MPL-2.0

// Package manifest reads application manifests and answers whether an
// application declares a dependency on a commodity.
//
// An application's manifest lives at <root>/apps/<app>/configuration.yml and
// lists the commodities it uses:
//
//	commodities:
//	  - db2_community
//	  - postgres
//
// A missing manifest means the application depends on nothing.
package manifest
