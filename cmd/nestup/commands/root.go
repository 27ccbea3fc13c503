// Package commands wires the nestup command-line interface.
package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ewagner-dev/nestup/internal/version"
	"github.com/ewagner-dev/nestup/pkg/config"
	"github.com/ewagner-dev/nestup/pkg/logging"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	v := config.NewViper()

	var (
		logLevel string
		logFile  string
	)

	rootCmd := &cobra.Command{
		Use:   "nestup",
		Short: "Keep nested subprojects and their dependencies in sync",
		Long: `nestup walks a project tree for nested subprojects, brings their
checkouts up to date, and reconciles their dependency requirements
against the main project before installing them into one environment.

Without --execute every run is a preview: nestup reports what it would
do and touches nothing.`,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(logging.Options{Level: logLevel, LogFile: logFile})
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Log file path (default: state dir)")

	rootCmd.AddCommand(newSyncCmd(v))
	rootCmd.AddCommand(newDocsCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
