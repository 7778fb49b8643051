// Package commands defines all Cobra CLI commands for the hrfaq binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/Farx1/hrfaq-go/internal/audit"
	"github.com/Farx1/hrfaq-go/internal/config"
	"github.com/Farx1/hrfaq-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hrfaq",
		Short: "HR FAQ — an HR policy assistant with retrieval-backed answers",
		Long: `hrfaq answers employee HR questions from an indexed markdown policy corpus.

It retrieves the most relevant policy excerpts for a question, deflects
questions outside the HR domain, and generates grounded answers either
synchronously or as a server-sent event stream. A benchmark command compares
prompt strategies with paired statistical tests.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.hrfaq/config.yaml).
See 'hrfaq --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.hrfaq/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewServeCmd(),
		NewIndexCmd(),
		NewBenchmarkCmd(),
		NewVersionCmd(),
	)

	return root
}
