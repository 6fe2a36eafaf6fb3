/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/contactsbook/apiserver/config"
	"github.com/contactsbook/apiserver/internal/logging"
	"github.com/contactsbook/apiserver/internal/mq"
	"github.com/contactsbook/apiserver/internal/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// workerCmd consumes verification events and hands the links to the mailer.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consumes email verification events",
	Long: `Subscribes to the verification channel and delivers verification links.
Requires MQ_BACKEND to be rabbitmq or pubsub.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		logger, err := logging.New(cfg.Env, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		queue, err := mq.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("MQ_BACKEND is none; nothing to consume")
		}
		defer queue.Close()

		logger.Info("worker subscribed", zap.String("channel", cfg.MQ.VerificationChannel))
		err = queue.Subscribe(cmd.Context(), cfg.MQ.VerificationChannel, verificationHandler(logger))
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

// verificationHandler logs the link a mailer would send. Undecodable messages
// are dropped instead of redelivered.
func verificationHandler(logger *zap.Logger) mq.Handler {
	return func(ctx context.Context, msg mq.Message) error {
		event, err := services.DecodeVerificationEvent(msg.Data)
		if err != nil {
			logger.Warn("drop malformed verification event", zap.String("message_id", msg.ID), zap.Error(err))
			return nil
		}
		logger.Info("verification link",
			zap.String("message_id", msg.ID),
			zap.String("email", event.Email),
			zap.String("link", event.VerifyURL),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
