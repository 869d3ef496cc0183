// Package runner executes transactional plans on top of the rollback
// registry: each step's forward command runs in order, and every
// completed step registers its undo command as a compensating action.
// The whole run is guarded, so the pending undo commands fire per the
// plan's policy when a step fails (or when the run succeeds).
package runner

import (
	"context"
	"time"

	"github.com/arthur-debert/unwind/pkg/errors"
	"github.com/arthur-debert/unwind/pkg/logging"
	"github.com/arthur-debert/unwind/pkg/plan"
	"github.com/arthur-debert/unwind/pkg/rollback"
	"github.com/rs/zerolog"
)

// Options contains configuration for the runner
type Options struct {
	// DryRun logs what would happen without executing any command.
	DryRun bool
	// Logger overrides the default component logger.
	Logger zerolog.Logger
}

// Runner executes plans
type Runner struct {
	dryRun bool
	logger zerolog.Logger
}

// StepResult records the outcome of one forward step
type StepResult struct {
	Name     string
	Success  bool
	Skipped  bool
	Err      error
	Duration time.Duration
}

// Result records the outcome of a whole plan run
type Result struct {
	Plan       string
	Steps      []StepResult
	RolledBack bool
}

// New creates a new runner instance
func New(opts Options) *Runner {
	logger := opts.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = logging.GetLogger("runner")
	}

	return &Runner{
		dryRun: opts.DryRun,
		logger: logger,
	}
}

// Run executes the plan's steps in order. The returned Result always
// covers the steps that were attempted, even when err is non-nil.
//
// A step failure aborts the forward run; whether the registered undo
// commands then fire, and whether the failure is reported, follows the
// plan's policy. An undo command that fails always surfaces as a
// *rollback.StepError.
func (r *Runner) Run(ctx context.Context, p *plan.Plan) (*Result, error) {
	res := &Result{Plan: p.Name}

	reg := rollback.New(rollback.Options{
		OnError:       p.Policy.OnError,
		OnSuccess:     p.Policy.OnSuccess,
		SuppressError: p.Policy.SuppressError,
		Logger:        r.logger,
	})

	err := reg.GuardContext(ctx, func(ctx context.Context, reg *rollback.Registry) error {
		for _, st := range p.Steps {
			sr := r.runStep(ctx, st)
			res.Steps = append(res.Steps, sr)
			if sr.Err != nil {
				return errors.Wrapf(sr.Err, errors.ErrStepExecute, "step %q failed", st.Name).
					WithDetail("step", st.Name)
			}

			if st.Undo.Empty() || r.dryRun {
				continue
			}
			st := st
			reg.AddContext(st.Name, func(ctx context.Context) error {
				res.RolledBack = true
				if err := r.exec(ctx, st.Undo); err != nil {
					return errors.Wrapf(err, errors.ErrUndoExecute, "undo for step %q failed", st.Name)
				}
				return nil
			})
		}
		return nil
	})

	return res, err
}

// runStep executes a single forward step and returns its result
func (r *Runner) runStep(ctx context.Context, st plan.Step) StepResult {
	start := time.Now()

	r.logger.Debug().
		Str("step", st.Name).
		Str("command", st.Run.String()).
		Bool("dry_run", r.dryRun).
		Msg("Executing step")

	if r.dryRun {
		return StepResult{
			Name:     st.Name,
			Success:  true,
			Skipped:  true,
			Duration: time.Since(start),
		}
	}

	if err := r.exec(ctx, st.Run); err != nil {
		r.logger.Error().
			Err(err).
			Str("step", st.Name).
			Msg("Step execution failed")

		return StepResult{
			Name:     st.Name,
			Err:      err,
			Duration: time.Since(start),
		}
	}

	r.logger.Info().
		Str("step", st.Name).
		Dur("duration", time.Since(start)).
		Msg("Step executed successfully")

	return StepResult{
		Name:     st.Name,
		Success:  true,
		Duration: time.Since(start),
	}
}
