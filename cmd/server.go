/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/contactsbook/apiserver/config"
	"github.com/contactsbook/apiserver/internal/logging"
	"github.com/contactsbook/apiserver/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the contacts API server",
	Long: `Starts the contacts API server. Usage:

	contacts server
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()

		logger, err := logging.New(cfg.Env, cfg.LogLevel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = logger.Sync() }()

		ctx := cmd.Context()
		srv, err := server.New(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("failed to start server", zap.Error(err))
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			if err != nil {
				logger.Fatal("server error", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown", zap.Error(err))
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
