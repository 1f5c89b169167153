package main

// cmd/server is the deployable server binary: it migrates the store and
// serves until SIGINT/SIGTERM. Use cmd/modera for the other commands.

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/modera-shop/modera/config"
	_ "github.com/modera-shop/modera/database/migrations"
	"github.com/modera-shop/modera/pkg/app"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	s, err := config.Build()
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
}
