// SPDX-License-Identifier: MPL-2.0

// Package provision runs the commodity provisioning pass over a dev-env's
// applications.
//
// For each application, in configuration order, the Orchestrator asks the
// dependency gate whether the commodity is used, asks the fragment locator
// whether work is needed, makes sure the container is ready (once per run),
// runs the declarative then the imperative fragment and records the outcome
// in the ledger. Each application yields a Result; one application's failure
// never stops the others:
//
//	orch := provision.New("db2_community", provision.Deps{...})
//	report := orch.Run(ctx, apps, newContainers)
//	for _, r := range report.Failed() {
//		fmt.Println(r.App, r.Kind, r.Message)
//	}
package provision
