package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/epicwp/bulkagent/internal/agent"
	"github.com/epicwp/bulkagent/internal/app"
	"github.com/epicwp/bulkagent/internal/logger"
)

// flag names shared across commands
const (
	flagVerbose = "verbose"
)

func init() {
	RootCmd.PersistentFlags().BoolP(flagVerbose, "v", false, "Log every model response and tool call")

	RootCmd.AddCommand(GetRunsCmd())
	RootCmd.AddCommand(GetTasksCmd())
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "bulkagent",
	Short: "bulkagent CLI - bulk product editing through a conversational agent",
	Long: `bulkagent drives an LLM agent over batches of catalog products, applying
one task instruction per product and recording rollback data for every change.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// .env is optional; real deployments set the environment directly
		_ = godotenv.Load()
		logger.InitializeAndConfigure()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}

// newEnvironment builds the in-process service environment, honoring the
// verbose flag for conversation logging.
func newEnvironment(cmd *cobra.Command) (*app.Environment, error) {
	verbose, _ := cmd.Flags().GetBool(flagVerbose)
	var plog agent.ProcessLogger = agent.BasicLogger{}
	if verbose {
		plog = agent.VerboseLogger{}
	}
	return app.NewEnvironmentFromEnv(plog)
}
