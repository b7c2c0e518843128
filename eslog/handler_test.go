package eslog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_ShipsRecords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := NewHandler(env.logger, nil).
		WithAttrs([]slog.Attr{slog.String("service", "billing")}).
		WithGroup("req")

	r := slog.NewRecord(testNow, slog.LevelInfo, "request served", 0)
	r.AddAttrs(slog.String("method", "GET"), slog.Group("client", "ip", "10.0.0.1"),
		slog.Duration("took", 250*time.Millisecond), slog.Any("err", errors.New("partial")))
	require.NoError(t, h.Handle(ctx, r))

	res, err := env.logger.GetLogs(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)

	src := res.Hits[0].Source
	assert.Equal(t, "request served", src.Message())
	assert.Equal(t, "INFO", src.Level())
	assert.Equal(t, "billing", src["service"])
	assert.Equal(t, "GET", src["req.method"])
	assert.Equal(t, "10.0.0.1", src["req.client.ip"])
	assert.Equal(t, "250ms", src["req.took"])
	assert.Equal(t, "partial", src["req.err"])
	assert.Equal(t, "2024-03-05T10:00:00.000Z", src.Timestamp())
}

func TestHandler_Level(t *testing.T) {
	h := NewHandler(nil, &HandlerOptions{Level: slog.LevelWarn})
	ctx := context.Background()

	assert.False(t, h.Enabled(ctx, slog.LevelInfo))
	assert.True(t, h.Enabled(ctx, slog.LevelWarn))
	assert.True(t, h.Enabled(ctx, slog.LevelError))

	assert.True(t, NewHandler(nil, nil).Enabled(ctx, slog.LevelInfo))
	assert.False(t, NewHandler(nil, nil).Enabled(ctx, slog.LevelDebug))
}

func TestHandler_AttrsAreNotShared(t *testing.T) {
	base := NewHandler(nil, nil)
	a := base.WithAttrs([]slog.Attr{slog.String("a", "1")}).(*Handler)
	b := base.WithGroup("g").WithAttrs([]slog.Attr{slog.String("b", "2")}).(*Handler)

	assert.Empty(t, base.attrs)
	require.Len(t, a.attrs, 1)
	require.Len(t, b.attrs, 1)
	assert.Equal(t, "a", a.attrs[0].Key)
	assert.Equal(t, "g.b", b.attrs[0].Key)
	assert.Same(t, base, base.WithGroup(""))
}

func TestHandler_WriteFailureIsReturned(t *testing.T) {
	env := newTestEnv(t, failOn(func(r *http.Request) bool { return r.Method == http.MethodPost }))
	h := NewHandler(env.logger, nil)

	r := slog.NewRecord(time.Now(), slog.LevelError, "gone", 0)
	assert.Error(t, h.Handle(context.Background(), r))
}

func TestHandler_UsesRecordTime(t *testing.T) {
	env := newTestEnv(t)
	at := testNow.Add(-11 * time.Hour)

	r := slog.NewRecord(at, slog.LevelWarn, "late", 0)
	require.NoError(t, NewHandler(env.logger, nil).Handle(context.Background(), r))

	hits, total, err := env.store.Search("logs-generic-4-3-2024", DefaultDocType, "", 10)
	require.NoError(t, err)
	require.Equal(t, 1, total)

	var src Record
	require.NoError(t, json.Unmarshal(hits[0].Doc.Source, &src))
	assert.Equal(t, "late", src.Message())
	assert.Equal(t, "2024-03-04T23:00:00.000Z", src.Timestamp())
}

func TestHandler_DefaultLoggerWithStoreDown(t *testing.T) {
	env := newTestEnv(t,
		func(o *Options) { o.Diagnostics = nil },
		failOn(func(r *http.Request) bool { return true }),
	)
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	slog.SetDefault(slog.New(NewHandler(env.logger, nil)))

	done := make(chan struct{})
	go func() {
		defer close(done)
		slog.InfoContext(context.Background(), "hello")
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("logging through the default logger did not return")
	}
}

// slotHandler forwards to a handler installed after the Logger is built.
type slotHandler struct{ h *slog.Handler }

func (s slotHandler) Enabled(ctx context.Context, l slog.Level) bool { return (*s.h).Enabled(ctx, l) }
func (s slotHandler) Handle(ctx context.Context, r slog.Record) error { return (*s.h).Handle(ctx, r) }
func (s slotHandler) WithAttrs([]slog.Attr) slog.Handler              { return s }
func (s slotHandler) WithGroup(string) slog.Handler                   { return s }

func TestHandler_DiagnosticsAreNotShipped(t *testing.T) {
	var slot slog.Handler = slog.NewTextHandler(io.Discard, nil)
	env := newTestEnv(t,
		func(o *Options) { o.Diagnostics = slog.New(slotHandler{&slot}) },
		failOn(func(r *http.Request) bool { return r.Method == http.MethodPut }),
	)
	slot = NewHandler(env.logger, &HandlerOptions{Level: slog.LevelDebug})

	done := make(chan error, 1)
	go func() {
		_, err := env.logger.Info(context.Background(), "hello")
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("write did not return")
	}
	assert.Equal(t, 1, env.calls.count("POST /logs-generic-5-3-2024/logs"))
	assert.False(t, NewHandler(env.logger, nil).Enabled(shipping(context.Background()), slog.LevelError))
}
