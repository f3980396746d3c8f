/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prostay/apiserver/config"
	"github.com/prostay/apiserver/internal/logger"
	"github.com/prostay/apiserver/internal/mq"
	"github.com/spf13/cobra"
)

// eventsCmd tails the domain event channel and logs every event.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Log booking, payment and listing events from the event bus",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		log := logger.New(cfg.IsDev(), cfg.LogLevel)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		bus, err := mq.NewFromConfig(ctx, cfg.MQ, log)
		if err != nil {
			return err
		}
		defer bus.Close()

		log.Info("listening for events", "backend", cfg.MQ.Backend, "channel", cfg.MQ.Channel)
		err = bus.Subscribe(ctx, func(ctx context.Context, event mq.Event) error {
			log.LogAttrs(ctx, slog.LevelInfo, "event",
				slog.String("type", string(event.Type)),
				slog.Int("resource_id", event.ResourceID),
				slog.Int("actor_id", event.ActorID),
				slog.Time("occurred_at", event.OccurredAt),
				slog.String("data", string(event.Data)),
			)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}
