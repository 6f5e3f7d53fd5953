package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func runCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Build and deliver one digest, then exit",
		Long: `Fetch the league's recent activity, reconcile it into narrated events,
render the HTML digest and deliver it.

With DEBUG set (or --debug) the digest is written to reports/activity-YYYY-MM-DD.html
and the raw activity is dumped for replay with the file source.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(opts)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return a.runOnce(ctx)
		},
	}
}

func (a *app) runOnce(ctx context.Context) error {
	d, err := a.runner.Run(ctx)
	a.snapshot()
	if err != nil {
		return err
	}
	a.log.Info("cycle finished", "run_id", d.RunID.String(), "events", len(d.Events))
	return nil
}
