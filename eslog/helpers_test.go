package eslog

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/coffersTech/esrestlog/internal/docstore"
	"github.com/coffersTech/esrestlog/internal/transport"
)

// 10:00 UTC on 5 March 2024.
var testNow = time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
}

type testEnv struct {
	logger *Logger
	store  *docstore.Store
	clock  fakeClock
	diag   *syncBuffer
	calls  *callLog
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// callLog records "METHOD /path" for every request sent.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (c *callLog) add(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, s)
}

func (c *callLog) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *callLog) count(s string) int {
	n := 0
	for _, call := range c.all() {
		if call == s {
			n++
		}
	}
	return n
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// failOn makes requests matching pred fail at the transport level.
func failOn(pred func(*http.Request) bool) func(*Options) {
	return func(o *Options) {
		next := o.HTTPTransport
		o.HTTPTransport = roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if pred(r) {
				return nil, &net.OpError{Op: "dial", Net: "tcp", Err: net.UnknownNetworkError("refused")}
			}
			return next.RoundTrip(r)
		})
	}
}

// newTestEnv starts an in-memory document store and a Logger pointed at it.
// The logger has console mirroring off and a fake clock at testNow.
func newTestEnv(t *testing.T, mutate ...func(*Options)) *testEnv {
	t.Helper()
	store := docstore.NewStore()
	srv := httptest.NewServer(docstore.NewServer(store, slog.New(slog.NewTextHandler(new(bytes.Buffer), nil))))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	env := &testEnv{
		store: store,
		clock: clockwork.NewFakeClockAt(testNow),
		diag:  &syncBuffer{},
		calls: &callLog{},
	}

	opts := DefaultOptions()
	opts.Host = host
	opts.Port = port
	opts.DisableConsoleMirror = true
	opts.Clock = env.clock
	opts.Location = time.UTC
	opts.Diagnostics = slog.New(slog.NewTextHandler(env.diag, &slog.HandlerOptions{Level: slog.LevelDebug}))
	opts.HTTPTransport = roundTripFunc(func(r *http.Request) (*http.Response, error) {
		env.calls.add(r.Method + " " + r.URL.Path)
		return http.DefaultTransport.RoundTrip(r)
	})
	for _, m := range mutate {
		m(&opts)
	}

	env.logger, err = New(opts)
	require.NoError(t, err)
	return env
}

// scriptedDoer answers requests from a table keyed by "METHOD /path".
type scriptedDoer struct {
	replies map[string]*transport.Response
	errs    map[string]error
	calls   []string
}

func (d *scriptedDoer) Do(_ context.Context, req *transport.Request) (*transport.Response, error) {
	key := req.Method + " " + req.Path
	d.calls = append(d.calls, key)
	if err, ok := d.errs[key]; ok {
		return nil, err
	}
	if res, ok := d.replies[key]; ok {
		return res, nil
	}
	return &transport.Response{StatusCode: http.StatusNotFound}, nil
}

func reply(status int, body string) *transport.Response {
	return &transport.Response{StatusCode: status, Body: []byte(body)}
}
