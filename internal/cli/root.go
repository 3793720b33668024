// Package cli wires configuration, the sonar client and the sinks into commands.
package cli

import (
	"github.com/ibs-source/sonar-consumer/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCommand creates the sonar-consumer command tree
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sonar-consumer",
		Short: "Consume records from a sonar collection",
		Long: "sonar-consumer follows a named subscription of a sonar collection and hands every " +
			"record to the configured sinks (log, MQTT, Redis stream, local store). " +
			"Settings come from defaults, a YAML file, environment variables and flags, in that order.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newSubscribeCommand())
	cmd.AddCommand(newQueryCommand())
	cmd.AddCommand(newEventsCommand())

	return cmd
}
