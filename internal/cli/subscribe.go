package cli

import (
	"context"
	"errors"
	"time"

	"github.com/ibs-source/sonar-consumer/internal/consumer"
	"github.com/ibs-source/sonar-consumer/pkg/sonar"
	"github.com/spf13/cobra"
)

func newSubscribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe [name]",
		Short: "Follow a subscription and hand its records to the sinks",
		Long: "subscribe pulls every pending batch of the named subscription, then waits for " +
			"push notifications and pulls again. Each batch is acknowledged once all sinks have " +
			"handled it. The name defaults to --subscription.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			name := a.cfg.Sonar.Subscription
			if len(args) == 1 {
				name = args[0]
			}
			if name == "" {
				return errors.New("a subscription name is required")
			}
			return ignoreCanceled(a.subscribe(cmd.Context(), name))
		},
	}
}

func (a *app) subscribe(ctx context.Context, name string) error {
	a.serveMetrics(ctx)

	d, err := a.dispatcher()
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	_, ep := a.collection()
	sub, err := sonar.NewSubscription(ctx, ep, name, sonar.WithSubscriptionLogger(a.log.FieldLogger()))
	if err != nil {
		return err
	}
	defer func() { _ = sub.Close() }()

	c := consumer.New(sub, d, &a.cfg.Pipeline, a.metrics, a.log)

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.log.Info("Initiating graceful shutdown")
	}

	// Let the batch in flight reach the sinks
	timer := time.NewTimer(a.cfg.Pipeline.ShutdownTimeout)
	defer timer.Stop()
	select {
	case err := <-errCh:
		a.log.Info("Graceful shutdown completed")
		return err
	case <-timer.C:
		return errors.New("shutdown timeout exceeded")
	}
}
