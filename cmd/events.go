/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hostrate/apiserver/config"
	"github.com/hostrate/apiserver/internal/mq"
	"github.com/hostrate/apiserver/types"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var eventsChannel string

// eventsCmd groups commands that work with the event broker.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect host events on the configured broker",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log every event published on a channel",
	Long: `Subscribes to a channel on the configured broker (MQ_BACKEND) and logs
each message until interrupted. Usage:

	hostrate events tail --channel rating.submitted
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			if errors.Is(err, mq.ErrDisabled) {
				return fmt.Errorf("set MQ_BACKEND to %s or %s to tail events", config.BackendRabbitMQ, config.BackendPubSub)
			}
			return err
		}
		defer broker.Close()

		logger.WithField("channel", eventsChannel).Info("tailing events")
		err = broker.Subscribe(ctx, eventsChannel, logEvent(logger))
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsTailCmd.Flags().StringVar(&eventsChannel, "channel", types.ChannelRatingSubmitted, "channel to subscribe to")
	eventsCmd.AddCommand(eventsTailCmd)
}

func logEvent(logger logrus.FieldLogger) mq.Handler {
	return func(ctx context.Context, msg mq.Message) error {
		var payload map[string]any
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			logger.WithError(err).WithField("message_id", msg.ID).Warn("dropping malformed event")
			return nil
		}
		logger.WithFields(logrus.Fields{
			"message_id": msg.ID,
			"event":      msg.Attributes["event"],
			"payload":    payload,
		}).Info("event received")
		return nil
	}
}
