package app

import (
	"context"

	"github.com/modera-shop/modera/internal/server"
)

// Serve builds the handler and serves HTTP (and gRPC health when GRPC_PORT
// is set) until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	handler, err := a.Handler()
	if err != nil {
		return err
	}

	opts := server.Options{
		Addr:    ":" + a.Settings.Port,
		Handler: handler,
	}
	if a.Settings.GRPCPort != "" {
		opts.GRPCAddr = ":" + a.Settings.GRPCPort
	}
	return server.Run(ctx, opts)
}
