// Package logger wraps log/slog with the process-wide handler setup and a
// per-request logger carried in the context.
//
//	log := logger.WithCtx(r.Context())
//	log.Info("cart updated", "item", id)
//	// → time=... level=INFO msg="cart updated" request_id=a1b2c3d4 item=12
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

var L = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

// Setup replaces the base logger. Production gets JSON at INFO, anything
// else human-readable text at DEBUG. Extra handlers (the Mongo sink) receive
// every record as well.
func Setup(env string, extra ...slog.Handler) *slog.Logger {
	L = slog.New(newHandler(env, os.Stdout, extra...))
	slog.SetDefault(L)
	return L
}

func newHandler(env string, w io.Writer, extra ...slog.Handler) slog.Handler {
	var handler slog.Handler
	switch env {
	case "production", "prod":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	if len(extra) == 0 {
		return handler
	}
	return NewMultiHandler(append([]slog.Handler{handler}, extra...)...)
}

type ctxKey struct{}

// WithCtx returns the request-scoped logger stored by the Logger middleware,
// or the base logger when there is none.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores log in ctx for WithCtx.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
