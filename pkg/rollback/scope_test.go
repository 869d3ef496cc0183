// pkg/rollback/scope_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test Guard/GuardContext policy evaluation and error suppression

package rollback_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arthur-debert/unwind/pkg/rollback"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardPassesSameRegistry(t *testing.T) {
	reg := rollback.New(rollback.Options{})

	err := reg.Guard(func(inner *rollback.Registry) error {
		assert.Same(t, reg, inner)
		return nil
	})
	require.NoError(t, err)
}

func TestGuardContextPassesSameRegistryAndContext(t *testing.T) {
	type ctxKey struct{}
	reg := rollback.New(rollback.Options{})
	ctx := context.WithValue(context.Background(), ctxKey{}, "payload")

	err := reg.GuardContext(ctx, func(inner context.Context, r *rollback.Registry) error {
		assert.Same(t, reg, r)
		assert.Equal(t, "payload", inner.Value(ctxKey{}))
		return nil
	})
	require.NoError(t, err)
}

func TestGuardDefaultPolicyFiresNothing(t *testing.T) {
	tests := []struct {
		name     string
		blockErr error
	}{
		{name: "success", blockErr: nil},
		{name: "failure", blockErr: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := rollback.New(rollback.Options{})

			called := false
			err := reg.Guard(func(r *rollback.Registry) error {
				r.Add("step", func() error {
					called = true
					return nil
				})
				return tt.blockErr
			})

			assert.False(t, called, "default policy must not fire rollback")
			assert.Equal(t, 1, reg.Len(), "step stays pending")
			if tt.blockErr != nil {
				assert.ErrorIs(t, err, tt.blockErr, "original error always propagates by default")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGuardOnErrorSuppressesOriginalError(t *testing.T) {
	reg := rollback.New(rollback.Options{OnError: true, SuppressError: true})

	count := 0
	err := reg.Guard(func(r *rollback.Registry) error {
		r.Add("undo", func() error {
			count++
			return nil
		})
		return errors.New("guarded block failed")
	})

	require.NoError(t, err, "error is swallowed per policy")
	assert.Equal(t, 1, count, "step invoked exactly once")
	assert.Equal(t, 0, reg.Len())
}

func TestGuardOnErrorPropagatesByDefault(t *testing.T) {
	reg := rollback.New(rollback.Options{OnError: true})
	blockErr := errors.New("guarded block failed")

	count := 0
	err := reg.Guard(func(r *rollback.Registry) error {
		r.Add("undo", func() error {
			count++
			return nil
		})
		return blockErr
	})

	assert.ErrorIs(t, err, blockErr)
	assert.Equal(t, 1, count)
}

func TestGuardOnSuccessFiresRollback(t *testing.T) {
	reg := rollback.New(rollback.Options{OnSuccess: true})

	count := 0
	err := reg.Guard(func(r *rollback.Registry) error {
		r.Add("undo", func() error {
			count++
			return nil
		})
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGuardOnSuccessDoesNotFireOnError(t *testing.T) {
	reg := rollback.New(rollback.Options{OnSuccess: true})
	blockErr := errors.New("boom")

	called := false
	err := reg.Guard(func(r *rollback.Registry) error {
		r.Add("undo", func() error {
			called = true
			return nil
		})
		return blockErr
	})

	assert.ErrorIs(t, err, blockErr)
	assert.False(t, called)
}

func TestRollbackFailureOverridesSuppression(t *testing.T) {
	// SuppressError mutes the guarded block's error, but a failure in
	// this registry's own rollback must still escape the scope.
	reg := rollback.New(rollback.Options{OnError: true, SuppressError: true})
	undoErr := errors.New("undo failed")

	err := reg.Guard(func(r *rollback.Registry) error {
		r.Add("bad-undo", func() error {
			return undoErr
		})
		return errors.New("guarded block failed")
	})

	require.Error(t, err)
	var failure *rollback.StepError
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "bad-undo", failure.Step)
	assert.ErrorIs(t, err, undoErr)
}

func TestGuardedRollbackErrorIsNotSuppressed(t *testing.T) {
	// The guarded block drains the registry itself and returns the
	// drain error: suppression must not apply to it.
	reg := rollback.New(rollback.Options{SuppressError: true})
	undoErr := errors.New("undo failed")

	err := reg.Guard(func(r *rollback.Registry) error {
		r.Add("bad-undo", func() error {
			return undoErr
		})
		return r.Rollback(context.Background())
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, undoErr)
}

func TestForeignStepErrorIsStillSuppressed(t *testing.T) {
	// The override is instance-scoped: a StepError produced by some
	// other registry counts as an ordinary guarded-block error.
	other := rollback.New(rollback.Options{})
	other.Add("bad-undo", func() error {
		return errors.New("other registry undo failed")
	})
	foreignErr := other.Rollback(context.Background())
	require.Error(t, foreignErr)

	reg := rollback.New(rollback.Options{SuppressError: true})
	err := reg.Guard(func(r *rollback.Registry) error {
		return foreignErr
	})
	assert.NoError(t, err)
}

func TestGuardBackgroundFiresRollbackWithoutWaiting(t *testing.T) {
	reg := rollback.New(rollback.Options{OnError: true, SuppressError: true, Background: true})

	done := make(chan struct{})
	err := reg.Guard(func(r *rollback.Registry) error {
		r.Add("undo", func() error {
			close(done)
			return nil
		})
		return errors.New("guarded block failed")
	})

	require.NoError(t, err, "suppression applies regardless of background rollback")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("background rollback never ran")
	}
}

func TestGuardBackgroundFailureIsNotObservable(t *testing.T) {
	reg := rollback.New(rollback.Options{OnError: true, SuppressError: true, Background: true})

	done := make(chan struct{})
	err := reg.Guard(func(r *rollback.Registry) error {
		r.Add("bad-undo", func() error {
			defer close(done)
			return errors.New("undo failed")
		})
		return errors.New("guarded block failed")
	})

	// The exiting caller never sees the background failure.
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("background rollback never ran")
	}
}

func TestGuardContextAlwaysAwaitsRollback(t *testing.T) {
	// Background only applies to the blocking variant; the context
	// variant waits for rollback before returning.
	reg := rollback.New(rollback.Options{OnError: true, Background: true})
	blockErr := errors.New("guarded block failed")

	count := 0
	err := reg.GuardContext(context.Background(), func(ctx context.Context, r *rollback.Registry) error {
		r.AddContext("undo", func(ctx context.Context) error {
			count++
			return nil
		})
		return blockErr
	})

	assert.ErrorIs(t, err, blockErr)
	assert.Equal(t, 1, count, "rollback finished before GuardContext returned")
	assert.Equal(t, 0, reg.Len())
}

func TestGuardContextRollbackFailurePropagates(t *testing.T) {
	reg := rollback.New(rollback.Options{OnError: true, SuppressError: true})
	undoErr := errors.New("undo failed")

	err := reg.GuardContext(context.Background(), func(ctx context.Context, r *rollback.Registry) error {
		r.AddContext("bad-undo", func(ctx context.Context) error {
			return undoErr
		})
		return errors.New("guarded block failed")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, undoErr)
}
