// Command hostbroker is the script-mode CLI: one subcommand per boundary
// operation, reading a JSON envelope from stdin and writing one to stdout
// (spec.md §6), plus the template-authoring and storage-migration
// subcommands. Mirrors cuemby/warren's cmd/warren/main.go cobra
// root-command-plus-subcommands idiom, minus the cluster/manager/worker
// surface this broker has no equivalent of.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/hostbroker/pkg/config"
	"github.com/cuemby/hostbroker/pkg/log"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hostbroker",
	Short: "Cloud host-provisioning broker (script mode)",
	Long: `hostbroker mediates between a workload scheduler and AWS EC2:
it acquires and returns hosts on the scheduler's behalf, tracking every
request and machine in durable storage.

Each operation subcommand reads a JSON envelope from stdin and writes one
to stdout, matching the scheduler-facing interface this broker exposes.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"hostbroker version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().Bool("human", false, "Print a plain-text summary instead of the JSON envelope")
	rootCmd.PersistentFlags().String("config", "", "Path to an explicit config file")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(getAvailableTemplatesCmd)
	rootCmd.AddCommand(requestMachinesCmd)
	rootCmd.AddCommand(requestReturnMachinesCmd)
	rootCmd.AddCommand(getRequestStatusCmd)
	rootCmd.AddCommand(getReturnRequestsCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(migrateCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	explicitPath, _ := cmd.Flags().GetString("config")
	return config.Load(explicitPath)
}

func humanMode(cmd *cobra.Command) bool {
	human, _ := cmd.Flags().GetBool("human")
	return human
}
