package logger

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type fakeSink struct {
	mu   sync.Mutex
	docs []LogDocument
}

func (f *fakeSink) InsertMany(_ context.Context, docs []interface{}, _ ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range docs {
		f.docs = append(f.docs, d.(LogDocument))
	}
	return &mongo.InsertManyResult{}, nil
}

func TestMongoHandler_FlushOnClose(t *testing.T) {
	sink := &fakeSink{}
	h := newMongoHandler(sink, slog.LevelInfo)

	log := slog.New(h).With("request_id", "r-1")
	log.Debug("skipped")
	log.Info("cart updated", "item", "12")
	log.WithGroup("http").Warn("slow", "ms", 900)
	h.Close()
	h.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.docs, 2)
	assert.Equal(t, "cart updated", sink.docs[0].Msg)
	assert.Equal(t, "r-1", sink.docs[0].RequestID)
	assert.Equal(t, "12", sink.docs[0].Attrs["item"])
	assert.Equal(t, "WARN", sink.docs[1].Level)
	assert.EqualValues(t, 900, sink.docs[1].Attrs["http.ms"])
}

func TestNewHandler_FansOut(t *testing.T) {
	var buf bytes.Buffer
	sink := &fakeSink{}
	extra := newMongoHandler(sink, slog.LevelInfo)

	log := slog.New(newHandler("production", &buf, extra))
	log.Info("hello", "k", "v")
	extra.Close()

	assert.Contains(t, buf.String(), `"msg":"hello"`)
	sink.mu.Lock()
	assert.Len(t, sink.docs, 1)
	sink.mu.Unlock()
}

func TestWithCtx(t *testing.T) {
	assert.Same(t, L, WithCtx(context.Background()))

	scoped := L.With("request_id", "abc")
	ctx := InjectLogger(context.Background(), scoped)
	assert.Same(t, scoped, WithCtx(ctx))
}
