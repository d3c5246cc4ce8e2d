// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"context"
	"fmt"
	"log/slog"

	"commodore-cli/internal/container"
)

// Reconciler closes database sessions left open by a fragment so the next
// fragment's CONNECT does not block.
type Reconciler struct {
	container  Container
	adminUser  string
	clientPath string
	logger     *slog.Logger
}

// NewReconciler creates a Reconciler running clientPath as adminUser.
func NewReconciler(c Container, adminUser, clientPath string, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{container: c, adminUser: adminUser, clientPath: clientPath, logger: logger}
}

// DisconnectAll terminates the admin account's open sessions. Only a failure
// to run the command is an error; the client's own exit code is logged.
func (r *Reconciler) DisconnectAll(ctx context.Context) error {
	res, err := r.container.Exec(ctx, r.clientPath+" disconnect all", container.ExecOptions{User: r.adminUser})
	if err != nil {
		return fmt.Errorf("disconnect sessions in %s: %w", r.container.Name(), err)
	}
	if res.ExitCode != 0 {
		r.logger.Warn("disconnect all returned nonzero", "container", r.container.Name(), "exit_code", res.ExitCode)
	}
	return nil
}
