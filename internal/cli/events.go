package cli

import (
	"github.com/ibs-source/sonar-consumer/internal/consumer"
	"github.com/spf13/cobra"
)

func newEventsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Log the push notifications of the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			a.serveMetrics(cmd.Context())

			_, ep := a.collection()
			return ignoreCanceled(consumer.RunEvents(cmd.Context(), ep, a.cfg.Sonar.Collection, a.log))
		},
	}
}
