package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/modera-shop/modera/app/repositories"
	"github.com/modera-shop/modera/pkg/app"
	"github.com/modera-shop/modera/pkg/cache"
	"github.com/modera-shop/modera/pkg/storage"
)

// modera serve
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"run"},
	Short:   "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.Boot(ctx, s)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		if err := a.Stores.Migrate(ctx); err != nil {
			return err
		}
		return a.Serve(ctx)
	},
}

// modera route:list
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered named routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings()
		if err != nil {
			return err
		}

		// The route table does not depend on the store, so list it off an
		// in-memory application.
		a := app.New(s, repositories.NewMemory(), cache.NewMemory(), storage.NewManager(cmd.Context(), s))
		defer a.Close(cmd.Context())

		r, err := a.Router()
		if err != nil {
			return err
		}
		return app.PrintRoutes(r, os.Stdout)
	},
}
