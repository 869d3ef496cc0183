// Package rollback implements the compensating-action pattern: while
// performing a multi-step operation, the caller registers an undo step
// for every action that succeeded, and the registry runs the pending
// steps in reverse order when the operation fails (or succeeds,
// depending on policy).
//
// The registry only sequences caller-supplied callbacks. It does not
// manage the underlying resources, persist steps, or retry failed
// steps.
package rollback

import (
	"context"
	"fmt"

	"github.com/arthur-debert/unwind/pkg/logging"
	"github.com/rs/zerolog"
)

// StepFunc is a synchronous compensating action.
type StepFunc func() error

// StepContextFunc is a compensating action that may block and honors
// context cancellation.
type StepContextFunc func(ctx context.Context) error

// step is a registered compensating action. Exactly one of fn and
// ctxFn is set. Arguments are bound at registration time by the
// caller's closure, not at execution time.
type step struct {
	name  string
	fn    StepFunc
	ctxFn StepContextFunc
}

// Options contains configuration for a Registry.
type Options struct {
	// OnError fires rollback when the guarded function returns an error.
	OnError bool

	// OnSuccess fires rollback when the guarded function returns nil.
	OnSuccess bool

	// SuppressError swallows the guarded function's error after the
	// rollback policy has been applied. An error raised by a
	// compensating step itself is never swallowed (see StepError).
	SuppressError bool

	// Background makes Guard fire rollback as a detached goroutine
	// instead of waiting for it to finish. A background rollback
	// failure is logged but not observable to the exiting caller.
	// GuardContext ignores this and always waits.
	Background bool

	// Logger overrides the default component logger.
	Logger zerolog.Logger
}

// Registry owns an ordered list of pending compensating actions and
// drains them in LIFO order: the most recently registered step runs
// first.
//
// A Registry has a single logical owner. It performs no internal
// locking; concurrent mutation from multiple goroutines must be
// serialized by the caller.
type Registry struct {
	steps []step

	onError       bool
	onSuccess     bool
	suppressError bool
	background    bool

	logger zerolog.Logger
}

// New creates a new registry instance.
func New(opts Options) *Registry {
	logger := opts.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = logging.GetLogger("rollback")
	}

	return &Registry{
		onError:       opts.OnError,
		onSuccess:     opts.OnSuccess,
		suppressError: opts.SuppressError,
		background:    opts.Background,
		logger:        logger,
	}
}

// Add appends a synchronous compensating action. Steps may be added at
// any point, including from inside a step that is currently executing.
func (r *Registry) Add(name string, fn StepFunc) {
	r.steps = append(r.steps, step{name: name, fn: fn})
}

// AddContext appends a context-aware compensating action.
func (r *Registry) AddContext(name string, fn StepContextFunc) {
	r.steps = append(r.steps, step{name: name, ctxFn: fn})
}

// Clear discards all pending steps without executing them, forfeiting
// their compensating effect. Idempotent.
func (r *Registry) Clear() {
	r.steps = r.steps[:0]
}

// Len returns the number of pending steps.
func (r *Registry) Len() int {
	return len(r.steps)
}

// Pending returns the names of the pending steps in registration
// order. After a failed Rollback it reports the steps that were never
// run.
func (r *Registry) Pending() []string {
	names := make([]string, len(r.steps))
	for i, s := range r.steps {
		names[i] = s.name
	}
	return names
}

// Rollback drains and executes the pending steps in LIFO order. Each
// step runs at most once; on normal completion the list is empty.
//
// If a step fails, the drain stops immediately and the failure is
// returned as a *StepError. Steps that were still pending remain in
// the registry and are not retried. Calling Rollback with no pending
// steps is a no-op.
func (r *Registry) Rollback(ctx context.Context) error {
	for len(r.steps) > 0 {
		i := len(r.steps) - 1
		s := r.steps[i]
		r.steps = r.steps[:i]

		r.logger.Debug().
			Str("step", s.name).
			Int("remaining", i).
			Msg("Running compensating step")

		var err error
		if s.ctxFn != nil {
			err = s.ctxFn(ctx)
		} else {
			err = s.fn()
		}
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("step", s.name).
				Int("pending", len(r.steps)).
				Msg("Compensating step failed, aborting rollback")
			return &StepError{Step: s.name, Err: err, registry: r}
		}
	}
	return nil
}

// StepError reports a compensating step that failed during Rollback.
// It marks the error as originating in a specific registry's rollback
// execution, which exempts it from that registry's SuppressError
// policy: a rollback failure always propagates.
type StepError struct {
	// Step is the name the failing step was registered under.
	Step string
	// Err is the error the step returned.
	Err error

	registry *Registry
}

// Error implements the error interface.
func (e *StepError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("rollback step failed: %v", e.Err)
	}
	return fmt.Sprintf("rollback step %q failed: %v", e.Step, e.Err)
}

// Unwrap implements the errors.Unwrap interface.
func (e *StepError) Unwrap() error {
	return e.Err
}
