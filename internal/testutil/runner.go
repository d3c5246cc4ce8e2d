// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"slices"
	"strings"
	"sync"

	"commodore-cli/internal/shell"
)

type (
	// ScriptedRunner is a deterministic shell.Runner. Each command is matched
	// against rules in registration order by substring; the first matching rule
	// yields its next scripted result, repeating the last one once exhausted.
	// Unmatched commands succeed with no output.
	ScriptedRunner struct {
		mu       sync.Mutex
		rules    []*scriptRule
		commands []string
	}

	scriptRule struct {
		match   string
		results []shell.Result
		err     error
		next    int
	}
)

// NewScriptedRunner creates a ScriptedRunner with no rules.
func NewScriptedRunner() *ScriptedRunner {
	return &ScriptedRunner{}
}

// On scripts the results returned for commands containing match.
func (r *ScriptedRunner) On(match string, results ...shell.Result) *ScriptedRunner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, &scriptRule{match: match, results: results})
	return r
}

// OnExit scripts bare exit codes for commands containing match.
func (r *ScriptedRunner) OnExit(match string, codes ...int) *ScriptedRunner {
	results := make([]shell.Result, 0, len(codes))
	for _, c := range codes {
		results = append(results, shell.Result{ExitCode: c})
	}
	return r.On(match, results...)
}

// OnError makes commands containing match fail to run with err.
func (r *ScriptedRunner) OnError(match string, err error) *ScriptedRunner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, &scriptRule{match: match, err: err})
	return r
}

// Run records command and returns the scripted result.
func (r *ScriptedRunner) Run(_ context.Context, command string) (shell.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, command)

	for _, rule := range r.rules {
		if !strings.Contains(command, rule.match) {
			continue
		}
		if rule.err != nil {
			return shell.Result{ExitCode: 1}, rule.err
		}
		if len(rule.results) == 0 {
			return shell.Result{}, nil
		}
		res := rule.results[min(rule.next, len(rule.results)-1)]
		rule.next++
		return res, nil
	}
	return shell.Result{}, nil
}

// Commands returns every command run so far, in order.
func (r *ScriptedRunner) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.commands)
}

// Count returns how many commands contained match.
func (r *ScriptedRunner) Count(match string) int {
	n := 0
	for _, c := range r.Commands() {
		if strings.Contains(c, match) {
			n++
		}
	}
	return n
}

// Index returns the position of the first command containing match at or
// after from, or -1.
func (r *ScriptedRunner) Index(match string, from int) int {
	cmds := r.Commands()
	for i := max(from, 0); i < len(cmds); i++ {
		if strings.Contains(cmds[i], match) {
			return i
		}
	}
	return -1
}
