package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/epicwp/bulkagent/internal/db/models"
	"github.com/epicwp/bulkagent/internal/services"
)

// Run flag names
const (
	flagRunID     = "id"
	flagTask      = "task"
	flagPreset    = "preset"
	flagProducts  = "products"
	flagAvailable = "available"
	flagRunLimit  = "limit"
	flagJobID     = "job"
)

func init() {
	runsCmd.AddCommand(createRunCmd)
	runsCmd.AddCommand(listRunsCmd)
	runsCmd.AddCommand(getRunCmd)
	runsCmd.AddCommand(startRunCmd)
	runsCmd.AddCommand(cancelRunCmd)
	runsCmd.AddCommand(rollbackRunCmd)
	runsCmd.AddCommand(clearRunsCmd)

	// Add flags for create
	createRunCmd.Flags().StringP(flagTask, "t", "", "Task instruction the agent performs on every product")
	createRunCmd.Flags().StringP(flagPreset, "p", "", "Name of a built-in task preset (see 'tasks list')")
	createRunCmd.Flags().StringP(flagProducts, "P", "", "Comma-separated product IDs, e.g. 101,102,103")
	_ = createRunCmd.MarkFlagRequired(flagProducts)

	// Add flags for list
	listRunsCmd.Flags().BoolP(flagAvailable, "a", false, "Only show runs that can still be resumed")
	listRunsCmd.Flags().IntP(flagRunLimit, "l", 0, "Limit the number of runs returned")

	// Add flags for get
	getRunCmd.Flags().UintP(flagRunID, "i", 0, "Run ID")
	_ = getRunCmd.MarkFlagRequired(flagRunID)

	// Add flags for start
	startRunCmd.Flags().UintP(flagRunID, "i", 0, "Run ID (defaults to the latest resumable run)")

	// Add flags for cancel
	cancelRunCmd.Flags().UintP(flagRunID, "i", 0, "Run ID")
	_ = cancelRunCmd.MarkFlagRequired(flagRunID)

	// Add flags for rollback
	rollbackRunCmd.Flags().UintP(flagRunID, "i", 0, "Run ID")
	rollbackRunCmd.Flags().Uint(flagJobID, 0, "Restrict the rollback to a single job")
	_ = rollbackRunCmd.MarkFlagRequired(flagRunID)
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage bulk editing runs",
}

var createRunCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a run with one job per product",
	RunE: func(cmd *cobra.Command, _ []string) error {
		task, err := resolveTask(cmd)
		if err != nil {
			return err
		}
		productsFlag, _ := cmd.Flags().GetString(flagProducts)
		productIDs, err := parseProductIDs(productsFlag)
		if err != nil {
			return err
		}

		env, err := newEnvironment(cmd)
		if err != nil {
			return err
		}

		ctx := context.Background()
		run, err := env.Runs.Create(ctx, task, productIDs)
		if err != nil {
			return fmt.Errorf("error creating run: %w", err)
		}
		summary, err := env.Runs.Summary(ctx, run)
		if err != nil {
			return fmt.Errorf("error building run summary: %w", err)
		}
		return printJSON(summary)
	},
}

var listRunsCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		available, _ := cmd.Flags().GetBool(flagAvailable)
		limit, _ := cmd.Flags().GetInt(flagRunLimit)

		env, err := newEnvironment(cmd)
		if err != nil {
			return err
		}

		opts := &models.ListOptions{Limit: limit}
		summaries, err := env.Runs.List(context.Background(), available, opts)
		if err != nil {
			return fmt.Errorf("error fetching runs: %w", err)
		}
		return printJSON(map[string]interface{}{"runs": summaries})
	},
}

var getRunCmd = &cobra.Command{
	Use:   "get",
	Short: "Get a specific run with its jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		runID, _ := cmd.Flags().GetUint(flagRunID)

		env, err := newEnvironment(cmd)
		if err != nil {
			return err
		}

		ctx := context.Background()
		run, err := env.Runs.Get(ctx, runID)
		if err != nil {
			return fmt.Errorf("error fetching run: %w", err)
		}
		summary, err := env.Runs.Summary(ctx, run)
		if err != nil {
			return fmt.Errorf("error building run summary: %w", err)
		}
		jobs, err := env.Runs.Jobs(ctx, run.ID)
		if err != nil {
			return fmt.Errorf("error fetching jobs: %w", err)
		}
		return printJSON(map[string]interface{}{"run": summary, "jobs": jobs})
	},
}

var startRunCmd = &cobra.Command{
	Use:   "start",
	Short: "Process a run's pending jobs until none remain",
	RunE: func(cmd *cobra.Command, _ []string) error {
		runID, _ := cmd.Flags().GetUint(flagRunID)

		env, err := newEnvironment(cmd)
		if err != nil {
			return err
		}

		ctx := context.Background()
		run, err := selectRun(ctx, env.Runs, runID)
		if err != nil {
			return err
		}

		if err := env.Runs.Start(ctx, run, env.Processor); err != nil {
			return fmt.Errorf("error starting run: %w", err)
		}
		summary, err := env.Runs.Summary(ctx, run)
		if err != nil {
			return fmt.Errorf("error building run summary: %w", err)
		}
		return printJSON(summary)
	},
}

var cancelRunCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel a run and its pending jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		runID, _ := cmd.Flags().GetUint(flagRunID)

		env, err := newEnvironment(cmd)
		if err != nil {
			return err
		}

		cancelled, err := env.Runs.Cancel(context.Background(), runID)
		if err != nil {
			return fmt.Errorf("error cancelling run: %w", err)
		}
		return printJSON(cancelled)
	},
}

var rollbackRunCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Restore the previous values recorded for a run's changes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		runID, _ := cmd.Flags().GetUint(flagRunID)
		jobID, _ := cmd.Flags().GetUint(flagJobID)

		env, err := newEnvironment(cmd)
		if err != nil {
			return err
		}

		ctx := context.Background()
		var applied int
		if jobID != 0 {
			applied, err = env.Engine.Rollback(ctx, jobID)
		} else {
			applied, err = env.Engine.RollbackRun(ctx, runID)
		}
		if err != nil {
			return fmt.Errorf("error rolling back: %w", err)
		}
		return printJSON(map[string]interface{}{"applied": applied})
	},
}

var clearRunsCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all runs, jobs and rollback records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := newEnvironment(cmd)
		if err != nil {
			return err
		}

		counts, err := env.Runs.ClearAll(context.Background())
		if err != nil {
			return fmt.Errorf("error clearing runs: %w", err)
		}
		return printJSON(counts)
	},
}

// GetRunsCmd returns the runs command
func GetRunsCmd() *cobra.Command {
	return runsCmd
}

// resolveTask returns the task instruction from either the task or the
// preset flag; exactly one of the two must be provided.
func resolveTask(cmd *cobra.Command) (string, error) {
	task, _ := cmd.Flags().GetString(flagTask)
	presetName, _ := cmd.Flags().GetString(flagPreset)

	switch {
	case task != "" && presetName != "":
		return "", fmt.Errorf("provide either --%s or --%s, not both", flagTask, flagPreset)
	case presetName != "":
		preset, ok := services.FindTaskPreset(presetName)
		if !ok {
			return "", fmt.Errorf("unknown task preset: %s", presetName)
		}
		return preset.Instruction, nil
	case task != "":
		return task, nil
	default:
		return "", fmt.Errorf("either --%s or --%s is required", flagTask, flagPreset)
	}
}

// selectRun resolves the run to operate on: an explicit ID, or the newest
// run that can still be resumed.
func selectRun(ctx context.Context, runs *services.Run, runID uint) (*models.Run, error) {
	if runID != 0 {
		run, err := runs.Get(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("error fetching run: %w", err)
		}
		return run, nil
	}

	summaries, err := runs.List(ctx, true, &models.ListOptions{Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("error fetching runs: %w", err)
	}
	if len(summaries) == 0 {
		return nil, fmt.Errorf("no resumable runs found")
	}
	run, err := runs.Get(ctx, summaries[0].ID)
	if err != nil {
		return nil, fmt.Errorf("error fetching run: %w", err)
	}
	return run, nil
}

// parseProductIDs parses a comma-separated list of product IDs
func parseProductIDs(value string) ([]int64, error) {
	parts := strings.Split(value, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid product ID %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one product ID is required")
	}
	return ids, nil
}

// printJSON pretty prints the value to stdout
func printJSON(v interface{}) error {
	prettyJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error formatting response: %w", err)
	}
	fmt.Println(string(prettyJSON))
	return nil
}
