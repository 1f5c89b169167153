package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/modera-shop/modera/config"
	_ "github.com/modera-shop/modera/database/migrations"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "modera",
	Short:         "Modera shop backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Server
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	// Database
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateRollbackCmd)
	rootCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(imagesFixCmd)
}

// settings loads config for a command.
func settings() (*config.Settings, error) {
	s, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return s, nil
}
