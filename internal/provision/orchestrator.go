// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"commodore-cli/internal/executor"
	"commodore-cli/internal/fragment"
	"commodore-cli/internal/ledger"
	"commodore-cli/internal/readiness"
)

type (
	// Gate decides whether an application uses the commodity.
	Gate interface {
		Requires(ctx context.Context, app string) (bool, error)
	}

	// Locator decides whether an application needs its fragments run.
	Locator interface {
		ShouldProcess(ctx context.Context, app string, freshlyCreated bool) (fragment.Decision, error)
	}

	// Readiness brings the container to the ready state. Implementations run
	// the wait once and return the first outcome on later calls.
	Readiness interface {
		EnsureReady(ctx context.Context) (readiness.Stats, error)
	}

	// Executor runs one fragment, including connection reconciliation.
	Executor interface {
		Run(ctx context.Context, f fragment.Fragment) (executor.Outcome, error)
	}

	// Deps are the collaborators of an Orchestrator.
	Deps struct {
		Gate      Gate
		Locator   Locator
		Readiness Readiness
		Executor  Executor
		Ledger    ledger.Ledger
	}

	// Orchestrator provisions one commodity for a list of applications.
	Orchestrator struct {
		commodity string
		deps      Deps
		logger    *slog.Logger
		now       func() time.Time

		readyPolls int
	}

	// Option configures an Orchestrator.
	Option func(*Orchestrator)
)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithNow sets the time source for report timestamps.
func WithNow(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New creates an Orchestrator for commodity.
func New(commodity string, deps Deps, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		commodity: commodity,
		deps:      deps,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Commodity returns the commodity name.
func (o *Orchestrator) Commodity() string { return o.commodity }

// FreshlyCreated reports whether commodity is among the containers the caller
// just created.
func FreshlyCreated(commodity string, newContainers []string) bool {
	return slices.Contains(newContainers, commodity)
}

// Run processes apps in order. newContainers names the containers created in
// this run; if it includes the commodity, ledger records are ignored.
func (o *Orchestrator) Run(ctx context.Context, apps []string, newContainers []string) Report {
	fresh := FreshlyCreated(o.commodity, newContainers)
	report := Report{Commodity: o.commodity, FreshlyCreated: fresh, Started: o.now()}

	o.logger.Info("searching for initialisation fragments", "commodity", o.commodity, "apps", len(apps))
	if fresh {
		o.logger.Warn("container was newly created; provision status will be ignored", "commodity", o.commodity)
	}

	for i, app := range apps {
		if ctx.Err() != nil {
			for _, rest := range apps[i:] {
				report.Results = append(report.Results, Result{App: rest, Status: StatusSkipped, Reason: SkipCancelled})
			}
			break
		}
		report.Results = append(report.Results, o.ProcessApp(ctx, app, fresh))
	}

	report.ReadinessPolls = o.readyPolls
	report.Finished = o.now()
	return report
}

// ProcessApp runs the gate, the skip decision and the fragments for one
// application. With freshlyCreated the ledger is not consulted.
func (o *Orchestrator) ProcessApp(ctx context.Context, app string, freshlyCreated bool) Result {
	logger := o.logger.With("app", app)

	required, err := o.deps.Gate.Requires(ctx, app)
	if err != nil {
		return failed(app, FailureUnexpected, fmt.Errorf("check dependencies: %w", err))
	}
	if !required {
		logger.Debug("commodity not required")
		return Result{App: app, Status: StatusSkipped, Reason: SkipNotRequired}
	}

	decision, err := o.deps.Locator.ShouldProcess(ctx, app, freshlyCreated)
	if err != nil {
		return failed(app, FailureUnexpected, fmt.Errorf("locate fragments: %w", err))
	}
	if !decision.Process {
		if decision.Reason == fragment.ReasonNoFragments {
			logger.Warn("app uses the commodity but has no init fragments", "commodity", o.commodity)
		} else {
			logger.Info("skipping", "reason", decision.Reason.String())
		}
		return Result{App: app, Status: StatusSkipped, Reason: string(decision.Reason)}
	}

	logger.Info("found fragments", "count", len(decision.Fragments), "reason", decision.Reason.String())
	res := o.attempt(ctx, app, decision.Fragments)
	return o.record(ctx, res)
}

// attempt ensures readiness and runs the fragments, stopping at the first failure.
func (o *Orchestrator) attempt(ctx context.Context, app string, fragments []fragment.Fragment) Result {
	stats, err := o.deps.Readiness.EnsureReady(ctx)
	if o.readyPolls == 0 {
		o.readyPolls = stats.Polls
	}
	if err != nil {
		return failed(app, FailureReadiness, err)
	}

	res := Result{App: app, Status: StatusOK}
	for _, f := range fragments {
		out, err := o.deps.Executor.Run(ctx, f)
		res.Outcomes = append(res.Outcomes, out)
		if err != nil {
			kind := FailureUnexpected
			if errors.Is(err, executor.ErrFragmentFailed) {
				kind = FailureFragment
			}
			failure := failed(app, kind, err)
			failure.Outcomes = res.Outcomes
			return failure
		}
	}
	return res
}

// record writes the attempt's outcome to the ledger.
func (o *Orchestrator) record(ctx context.Context, res Result) Result {
	key := ledger.NewKey(res.App, o.commodity)
	// The write must happen even if the run was cancelled mid-attempt.
	if err := o.deps.Ledger.Set(context.WithoutCancel(ctx), key, res.OK()); err != nil {
		o.logger.Error("failed to record provision status", "app", res.App, "error", err)
		if res.OK() {
			return failed(res.App, FailureUnexpected, fmt.Errorf("record provision status: %w", err))
		}
		res.Err = errors.Join(res.Err, err)
		return res
	}
	res.Recorded = true

	if res.OK() {
		o.logger.Info("provisioned", "app", res.App, "commodity", o.commodity)
	} else {
		o.logger.Error("provisioning failed", "app", res.App, "kind", res.Kind, "error", res.Message)
	}
	return res
}

func failed(app string, kind FailureKind, err error) Result {
	return Result{App: app, Status: StatusFailed, Kind: kind, Message: err.Error(), Err: err}
}
