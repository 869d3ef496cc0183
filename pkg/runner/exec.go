package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/arthur-debert/unwind/pkg/errors"
	"github.com/arthur-debert/unwind/pkg/plan"
)

// defaultTimeout bounds commands without an explicit timeout_seconds.
const defaultTimeout = 5 * time.Minute

// exec runs a single plan command to completion, capturing combined
// output for the logs.
func (r *Runner) exec(ctx context.Context, c plan.Command) error {
	timeout := defaultTimeout
	if c.TimeoutSeconds > 0 {
		timeout = time.Duration(c.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Command, c.Args...)

	if c.Dir != "" {
		if _, err := os.Stat(c.Dir); os.IsNotExist(err) {
			return errors.Newf(errors.ErrNotFound,
				"working directory does not exist: %s", c.Dir)
		}
		cmd.Dir = c.Dir
	}

	cmd.Env = os.Environ()
	for key, value := range c.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	err := cmd.Run()

	r.logger.Debug().
		Str("command", c.String()).
		Dur("duration", time.Since(start)).
		Str("output", output.String()).
		Msg("Command finished")

	if err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "command %s failed", c.String()).
			WithDetail("output", output.String())
	}
	return nil
}
