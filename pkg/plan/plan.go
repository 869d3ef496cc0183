// Package plan defines declarative transactional plans: an ordered
// list of steps, each with a forward command and an optional undo
// command, plus the rollback policy to apply when the run finishes.
// Plans are loaded from TOML or YAML files.
package plan

import (
	"fmt"

	"github.com/arthur-debert/unwind/pkg/errors"
)

// Plan is a parsed transactional plan.
type Plan struct {
	Name   string `toml:"name" yaml:"name"`
	Policy Policy `toml:"policy" yaml:"policy"`
	Steps  []Step `toml:"steps" yaml:"steps"`
}

// Policy selects when the pending undo commands fire and whether the
// failing step's error is reported after a successful rollback.
type Policy struct {
	// OnError fires the undo commands when a step fails.
	OnError bool `toml:"on_error" yaml:"on_error"`
	// OnSuccess fires the undo commands after all steps succeed.
	OnSuccess bool `toml:"on_success" yaml:"on_success"`
	// SuppressError swallows the failing step's error once rollback
	// policy has been applied.
	SuppressError bool `toml:"suppress_error" yaml:"suppress_error"`
}

// Step pairs a forward command with the command that undoes it.
type Step struct {
	Name string  `toml:"name" yaml:"name"`
	Run  Command `toml:"run" yaml:"run"`
	Undo Command `toml:"undo" yaml:"undo"`
}

// Command describes one process invocation.
type Command struct {
	Command string            `toml:"command" yaml:"command"`
	Args    []string          `toml:"args" yaml:"args"`
	Dir     string            `toml:"dir" yaml:"dir"`
	Env     map[string]string `toml:"env" yaml:"env"`
	// TimeoutSeconds bounds the invocation; zero means the default.
	TimeoutSeconds int `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

// Empty reports whether the command is unset. An empty undo command
// means the step has no compensating action.
func (c Command) Empty() bool {
	return c.Command == ""
}

// String returns a short human-readable form for logs.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Command
	}
	return fmt.Sprintf("%s %v", c.Command, c.Args)
}

// Validate checks the plan for structural problems.
func (p *Plan) Validate() error {
	if len(p.Steps) == 0 {
		return errors.New(errors.ErrPlanInvalid, "plan has no steps")
	}

	seen := make(map[string]bool, len(p.Steps))
	for i, s := range p.Steps {
		if s.Name == "" {
			return errors.Newf(errors.ErrPlanInvalid, "step %d has no name", i+1)
		}
		if seen[s.Name] {
			return errors.Newf(errors.ErrPlanInvalid, "duplicate step name %q", s.Name).
				WithDetail("step", s.Name)
		}
		seen[s.Name] = true

		if s.Run.Empty() {
			return errors.Newf(errors.ErrPlanInvalid, "step %q has no run command", s.Name).
				WithDetail("step", s.Name)
		}
	}
	return nil
}
