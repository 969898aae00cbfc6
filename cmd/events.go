/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/morerecipes/apiserver/config"
	"github.com/morerecipes/apiserver/internal/logging"
	"github.com/morerecipes/apiserver/internal/mq"
	"github.com/morerecipes/apiserver/internal/services"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect recipe lifecycle events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Subscribe to recipe events and log each one",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := logging.New(cfg.Log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if broker == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		defer broker.Close()

		logger.Info("tailing recipe events", "backend", broker.Name(), "channel", cfg.MQ.EventsChannel)
		err = broker.Subscribe(ctx, cfg.MQ.EventsChannel, func(ctx context.Context, msg mq.Message) error {
			event, err := services.DecodeRecipeEvent(msg.Data)
			if err != nil {
				// Undecodable payloads are acked and dropped.
				logger.WarnContext(ctx, "dropping undecodable event", "message_id", msg.ID, "error", err)
				return nil
			}
			logger.InfoContext(ctx, "recipe event",
				"message_id", msg.ID,
				"type", event.Type,
				"recipe_id", event.RecipeID,
				"user_id", event.UserID,
				"name", event.Name,
				"occurred_at", event.OccurredAt,
			)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("subscribe %s: %w", cfg.MQ.EventsChannel, err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
