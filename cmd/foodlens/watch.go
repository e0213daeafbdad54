package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/foodlens/backend/internal/domain"
	"github.com/foodlens/backend/internal/infrastructure/events"
)

func newWatchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print analysis events as the server publishes them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Events.NATSURL == "" {
				return fmt.Errorf("no NATS URL configured (set FOODLENS_EVENTS_NATS_URL)")
			}

			pub, err := events.Connect(events.NATSConfig{
				URL:     c.cfg.Events.NATSURL,
				Subject: c.cfg.Events.Subject,
				Logger:  c.logger,
			})
			if err != nil {
				return err
			}
			defer pub.Close()

			sub, err := pub.Subscribe(func(ctx context.Context, e domain.AnalysisEvent) {
				fmt.Fprintf(c.out, "%s  %-14s %3d  %-34s %s\n",
					e.AnalyzedAt.Format("2006-01-02 15:04:05"), e.Barcode, e.HealthScore, e.Verdict, e.Name)
			})
			if err != nil {
				return err
			}
			defer sub.Unsubscribe()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c.logger.Info("watching analysis events", "subject", c.cfg.Events.Subject)
			<-ctx.Done()
			return nil
		},
	}
}
