/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/contactsbook/apiserver/config"
	"github.com/contactsbook/apiserver/internal/db"
	"github.com/contactsbook/apiserver/internal/store"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	Long: `Applies the schema for the configured DB_DRIVER: SQL migrations for
postgres, collection indexes for mongo.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		switch cfg.Database.Driver {
		case config.DriverPostgres:
			return db.MigrateUp(db.PostgresURL(cfg))
		case config.DriverMongo, "":
			client, database, err := db.OpenMongo(cmd.Context(), cfg.Mongo)
			if err != nil {
				return fmt.Errorf("open mongo failed: %w", err)
			}
			defer func() {
				_ = client.Disconnect(cmd.Context())
			}()
			return store.NewMongoUserRepository(database).EnsureIndexes(cmd.Context())
		case config.DriverMemory:
			return nil
		default:
			return fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
}
