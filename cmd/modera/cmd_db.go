package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/modera-shop/modera/config"
	"github.com/modera-shop/modera/pkg/app"
)

// modera migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run pending migrations (SQL) or ensure indexes (Mongo)",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings()
		if err != nil {
			return err
		}
		return app.Migrate(cmd.Context(), s, os.Stdout)
	},
}

// modera migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of SQL migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings()
		if err != nil {
			return err
		}
		return app.Rollback(s, os.Stdout)
	},
}

// modera migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each SQL migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings()
		if err != nil {
			return err
		}
		return app.MigrationStatus(s, os.Stdout)
	},
}

// modera seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill an empty catalog with sample products",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings()
		if err != nil {
			return err
		}
		return app.Seed(cmd.Context(), s, os.Stdout)
	},
}

var (
	fixFrom string
	fixTo   string
)

// modera images:fix
var imagesFixCmd = &cobra.Command{
	Use:   "images:fix",
	Short: "Rewrite a stored image URL prefix (e.g. localhost to the public host)",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings()
		if err != nil {
			return err
		}
		from, to := fixFrom, fixTo
		if from == "" {
			from = config.Get("REPLACE_FROM", "http://localhost:4000")
		}
		if to == "" {
			to = config.Get("REPLACE_TO", s.BaseURL)
		}
		return app.FixImages(cmd.Context(), s, from, to, os.Stdout)
	},
}

func init() {
	imagesFixCmd.Flags().StringVar(&fixFrom, "from", "", "prefix to replace (default $REPLACE_FROM or http://localhost:4000)")
	imagesFixCmd.Flags().StringVar(&fixTo, "to", "", "replacement prefix (default $REPLACE_TO or BASE_URL)")
}
