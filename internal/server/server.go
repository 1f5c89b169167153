// Package server runs the HTTP listener and the optional gRPC health server
// until the context is cancelled, then shuts both down gracefully.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/modera-shop/modera/pkg/grpc"
	"github.com/modera-shop/modera/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

type Options struct {
	Addr     string
	GRPCAddr string // empty disables gRPC
	Handler  http.Handler
	// Ready, when set, receives the bound HTTP address once listening.
	Ready func(net.Addr)
}

// Run blocks until ctx is cancelled or the listener fails.
func Run(ctx context.Context, opts Options) error {
	lis, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", opts.Addr, err)
	}

	var rpc *grpc.Server
	if opts.GRPCAddr != "" {
		rpc, err = grpc.Start(opts.GRPCAddr)
		if err != nil {
			lis.Close()
			return err
		}
	}

	srv := &http.Server{
		Handler:           opts.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server: listening", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	if opts.Ready != nil {
		opts.Ready(lis.Addr())
	}

	select {
	case err := <-errCh:
		grpc.Stop(rpc)
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("server: shutting down")
	grpc.Stop(rpc)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
