package rollback

import (
	"context"
	"errors"
)

// Guard runs fn with the registry and applies the configured policy to
// its result: rollback fires if fn returned an error and OnError is
// set, or if fn returned nil and OnSuccess is set.
//
// Unless Options.Background is set, rollback runs to completion before
// Guard returns, and a rollback failure supersedes fn's error and is
// always returned. With Background set, rollback is fired as a
// detached goroutine and Guard does not wait for it.
//
// When SuppressError is set, fn's error is swallowed and Guard returns
// nil — except when that error originated in this registry's own
// Rollback (see StepError), which always propagates.
func (r *Registry) Guard(fn func(*Registry) error) error {
	return r.finish(context.Background(), fn(r), !r.background)
}

// GuardContext is the context-aware variant of Guard. The policy is
// identical, but rollback is always awaited inline: GuardContext does
// not return until any triggered rollback has finished.
func (r *Registry) GuardContext(ctx context.Context, fn func(context.Context, *Registry) error) error {
	return r.finish(ctx, fn(ctx, r), true)
}

// finish evaluates the exit policy shared by Guard and GuardContext.
// await selects between running a triggered rollback inline and firing
// it as a detached goroutine.
func (r *Registry) finish(ctx context.Context, err error, await bool) error {
	hadError := err != nil

	if (hadError && r.onError) || (r.onSuccess && !hadError) {
		if await {
			if rbErr := r.Rollback(ctx); rbErr != nil {
				if hadError {
					r.logger.Error().
						Err(err).
						Msg("Original error superseded by rollback failure")
				}
				return rbErr
			}
		} else {
			go func() {
				if rbErr := r.Rollback(ctx); rbErr != nil {
					r.logger.Error().Err(rbErr).Msg("Background rollback failed")
				}
			}()
		}
	}

	if !hadError {
		return nil
	}
	if r.suppressError && !r.ownsStepError(err) {
		r.logger.Debug().Err(err).Msg("Suppressing guarded error per policy")
		return nil
	}
	return err
}

// ownsStepError reports whether err originated in this registry's own
// rollback execution. Such errors are exempt from suppression: the
// policy mutes the guarded block's original error, never a rollback
// failure.
func (r *Registry) ownsStepError(err error) bool {
	var stepErr *StepError
	return errors.As(err, &stepErr) && stepErr.registry == r
}
