package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahrav/terrabench/internal/domain"
	"github.com/ahrav/terrabench/internal/run"
)

const pollInterval = 2 * time.Second

func newRunCmd() *cobra.Command {
	var (
		models        []string
		tasks         []string
		maxIterations int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one evaluation run and wait for it to finish",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sys, err := buildSystem(ctx)
			if err != nil {
				return err
			}
			if sys.cfg.OpenRouterAPIKey == "" {
				return errors.New("OPENROUTER_API_KEY is not set")
			}

			descriptors := sys.cfg.Models
			if len(models) > 0 {
				descriptors = make([]domain.ModelDescriptor, len(models))
				for i, id := range models {
					descriptors[i] = domain.ModelDescriptor{ID: id}
				}
			}
			if maxIterations == 0 {
				maxIterations = sys.cfg.MaxIterations
			}

			record, err := sys.manager.StartRun(run.Params{
				Models:        descriptors,
				TaskIDs:       tasks,
				MaxIterations: maxIterations,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s started\n", record.ID)

			cancelled := false
			for {
				select {
				case <-ctx.Done():
					// Interrupt cancels between attempts; the in-flight
					// attempt still finishes and is recorded.
					if !cancelled {
						if err := sys.manager.CancelRun(record.ID); err != nil {
							return err
						}
						cancelled = true
					}
					time.Sleep(pollInterval)
				case <-time.After(pollInterval):
				}

				record, err = sys.manager.GetRun(record.ID)
				if err != nil {
					return err
				}
				if record.Status.Terminal() {
					break
				}
			}

			printSummary(cmd, record)
			if record.Status == domain.RunFailed {
				return errors.New(record.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&models, "model", nil, "model identifier to evaluate (repeatable)")
	cmd.Flags().StringSliceVar(&tasks, "task", nil, "task identifier to run (repeatable, default all)")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "per-attempt iteration budget")
	return cmd
}

func printSummary(cmd *cobra.Command, record domain.RunRecord) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s finished: %s\n", record.ID, record.Status)
	fmt.Fprintf(out, "attempts: %d total, %d succeeded, %d failed\n",
		record.TotalTasks, record.CompletedTasks, record.FailedTasks)
	for _, o := range record.Outcomes {
		fmt.Fprintf(out, "  %-8s %-30s %-16s iterations=%d\n", o.TaskID, o.ModelID, o.Status, o.Iterations)
	}
}

func newTasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List the built-in task catalog in execution order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sys, err := buildSystem(cmd.Context())
			if err != nil {
				return err
			}

			ordered, err := sys.catalog.Resolve(nil)
			if err != nil {
				return err
			}
			for _, task := range ordered {
				deps := ""
				if len(task.DependsOn) > 0 {
					deps = fmt.Sprintf(" (after %v)", task.DependsOn)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-6s %s%s\n", task.ID, task.Description, deps)
			}
			return nil
		},
	}
}
