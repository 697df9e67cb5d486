package commands

import (
	"github.com/spf13/cobra"

	"github.com/epicwp/bulkagent/internal/services"
)

func init() {
	tasksCmd.AddCommand(listTasksCmd)
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Manage task presets",
}

var listTasksCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in task presets",
	RunE: func(_ *cobra.Command, _ []string) error {
		return printJSON(map[string]interface{}{"presets": services.DefaultTaskPresets()})
	},
}

// GetTasksCmd returns the tasks command
func GetTasksCmd() *cobra.Command {
	return tasksCmd
}
