package main

import (
	"fmt"
	"time"

	"github.com/arthur-debert/unwind/pkg/plan"
	"github.com/arthur-debert/unwind/pkg/runner"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <plan-file>",
	Short: "Execute a transactional plan",
	Long: `Execute the steps of a plan file (TOML or YAML) in order.

Each completed step registers its undo command; whether the undo
commands fire on failure or success is controlled by the plan's
policy section.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.Load(args[0])
		if err != nil {
			return err
		}

		r := runner.New(runner.Options{DryRun: dryRun})
		res, runErr := r.Run(cmd.Context(), p)

		for _, sr := range res.Steps {
			switch {
			case sr.Skipped:
				fmt.Printf("  - %s (skipped, dry run)\n", sr.Name)
			case sr.Success:
				fmt.Printf("  ✓ %s (%s)\n", sr.Name, sr.Duration.Round(time.Millisecond))
			default:
				fmt.Printf("  ✗ %s: %v\n", sr.Name, sr.Err)
			}
		}

		if res.RolledBack {
			fmt.Printf("plan %q rolled back\n", res.Plan)
		} else if runErr == nil && !dryRun {
			fmt.Printf("plan %q completed\n", res.Plan)
		}

		return runErr
	},
}
