package eslog

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleLine(t *testing.T) {
	assert.Equal(t, `2024-03-05T10:00:00.000Z INFO: data: "Hello World"`,
		consoleLine(LevelInfo, "Hello World", testNow))
	assert.Equal(t, `2024-03-05T10:00:00.000Z ERROR: data: {"code":500}`,
		consoleLine(LevelError, map[string]int{"code": 500}, testNow))
}

func TestLogger_MirrorsToConsole(t *testing.T) {
	var out, errOut bytes.Buffer
	env := newTestEnv(t, func(o *Options) {
		o.DisableConsoleMirror = false
		o.Console = &WriterConsole{Out: &out, Err: &errOut}
	})
	ctx := context.Background()

	_, err := env.logger.Info(ctx, "hello")
	require.NoError(t, err)
	_, err = env.logger.Warn(ctx, "careful")
	require.NoError(t, err)
	_, err = env.logger.Error(ctx, map[string]any{"code": 500})
	require.NoError(t, err)

	assert.Equal(t, "2024-03-05T10:00:00.000Z INFO: data: \"hello\"\n", out.String())
	assert.Equal(t,
		"2024-03-05T10:00:00.000Z WARN: data: \"careful\"\n"+
			"2024-03-05T10:00:00.000Z ERROR: data: {\"code\":500}\n",
		errOut.String())
}

func TestLogger_MirrorsEvenWhenWriteFails(t *testing.T) {
	var out bytes.Buffer
	env := newTestEnv(t,
		func(o *Options) {
			o.DisableConsoleMirror = false
			o.Console = &WriterConsole{Out: &out, Err: &out}
		},
		failOn(func(r *http.Request) bool { return true }),
	)

	_, err := env.logger.Info(context.Background(), "offline")
	require.Error(t, err)
	assert.Contains(t, out.String(), `INFO: data: "offline"`)
}

func TestLogger_LogDoesNotMirror(t *testing.T) {
	var out bytes.Buffer
	env := newTestEnv(t, func(o *Options) {
		o.DisableConsoleMirror = false
		o.Console = &WriterConsole{Out: &out, Err: &out}
	})

	_, err := env.logger.Log(context.Background(), "DEBUG", "quiet")
	require.NoError(t, err)
	assert.Empty(t, out.String())
}

func TestLogger_ZeroOptionsMirror(t *testing.T) {
	var out bytes.Buffer
	l, err := New(Options{
		Console:       &WriterConsole{Out: &out, Err: &out},
		Diagnostics:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:         clockwork.NewFakeClockAt(testNow),
		HTTPTransport: roundTripFunc(func(*http.Request) (*http.Response, error) { return nil, io.ErrUnexpectedEOF }),
	})
	require.NoError(t, err)

	_, err = l.Info(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, "2024-03-05T10:00:00.000Z INFO: data: \"hello\"\n", out.String())
}
