// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"time"

	"commodore-cli/internal/executor"
)

const (
	// StatusOK means every fragment ran within its acceptance set.
	StatusOK Status = "ok"
	// StatusFailed means processing stopped with an error.
	StatusFailed Status = "failed"
	// StatusSkipped means no fragment was run.
	StatusSkipped Status = "skipped"
)

const (
	// FailureFragment is a fragment exit code outside its acceptance set.
	FailureFragment FailureKind = "fragment"
	// FailureReadiness means the container never became ready.
	FailureReadiness FailureKind = "readiness"
	// FailureUnexpected covers every other fault, such as injection errors.
	FailureUnexpected FailureKind = "unexpected"
)

const (
	// SkipNotRequired means the manifest does not declare the commodity.
	SkipNotRequired = "not-required"
	// SkipCancelled means the run was cancelled before the application was reached.
	SkipCancelled = "cancelled"
)

type (
	// Status is the outcome class of one application.
	Status string

	// FailureKind classifies a failed Result.
	FailureKind string

	// Result is the outcome of processing one application.
	Result struct {
		App    string
		Status Status
		// Reason explains a skip.
		Reason string
		// Kind and Message describe a failure.
		Kind    FailureKind
		Message string
		Err     error
		// Recorded is true when the outcome was written to the ledger.
		Recorded bool
		Outcomes []executor.Outcome
	}

	// Report aggregates one run.
	Report struct {
		Commodity      string
		FreshlyCreated bool
		// ReadinessPolls is the number of health queries, zero if readiness
		// was never needed.
		ReadinessPolls int
		Started        time.Time
		Finished       time.Time
		Results        []Result
	}
)

// OK reports whether the result succeeded.
func (r Result) OK() bool { return r.Status == StatusOK }

// Failed returns the failed results.
func (r Report) Failed() []Result { return r.filter(StatusFailed) }

// Succeeded returns the successful results.
func (r Report) Succeeded() []Result { return r.filter(StatusOK) }

// Skipped returns the skipped results.
func (r Report) Skipped() []Result { return r.filter(StatusSkipped) }

// HasFailures reports whether any application failed.
func (r Report) HasFailures() bool { return len(r.Failed()) > 0 }

// Result returns the result for app.
func (r Report) Result(app string) (Result, bool) {
	for _, res := range r.Results {
		if res.App == app {
			return res, true
		}
	}
	return Result{}, false
}

// Duration returns the wall time of the run.
func (r Report) Duration() time.Duration { return r.Finished.Sub(r.Started) }

func (r Report) filter(s Status) []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Status == s {
			out = append(out, res)
		}
	}
	return out
}
