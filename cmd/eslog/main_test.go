package main

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffersTech/esrestlog/internal/docstore"
)

type cli struct {
	store *docstore.Store
	host  string
	port  string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	store := docstore.NewStore()
	srv := httptest.NewServer(docstore.NewServer(store, nil))
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	return &cli{store: store, host: host, port: port}
}

func (c *cli) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--host", c.host, "--port", c.port, "--stream", "cli"}, args...))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestCLI_LogGetSearchTeardown(t *testing.T) {
	c := newCLI(t)

	out, _, err := c.run(t, "init")
	require.NoError(t, err)
	var initOut map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &initOut))
	assert.EqualValues(t, 200, initOut["index_status"])
	assert.True(t, strings.HasPrefix(initOut["index"].(string), "logs-cli-"))

	out, _, err = c.run(t, "--quiet", "log", "hello", "world")
	require.NoError(t, err)
	var written struct {
		ID    string `json:"_id"`
		Index string `json:"_index"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &written))
	require.NotEmpty(t, written.ID)

	out, _, err = c.run(t, "get", written.ID)
	require.NoError(t, err)
	assert.Contains(t, out, `"message":"hello world"`)
	assert.Contains(t, out, `"level":"INFO"`)

	_, errOut, err := c.run(t, "log", "--level", "error", `{"code":500,"path":"/pay"}`)
	require.NoError(t, err)
	assert.Contains(t, errOut, `ERROR: data: {"code":500,"path":"/pay"}`)

	out, _, err = c.run(t, "search", "level:ERROR")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "total: 1", lines[0])
	assert.Contains(t, lines[1], `"path":"/pay"`)

	out, _, err = c.run(t, "teardown")
	require.NoError(t, err)
	assert.Contains(t, out, `"index_status":200`)
	assert.Empty(t, c.store.ListIndices(""))

	out, _, err = c.run(t, "teardown")
	require.NoError(t, err)
	assert.Contains(t, out, `"index_status":404`)
}

func TestCLI_LogMirrorsInfoToStdout(t *testing.T) {
	c := newCLI(t)

	out, _, err := c.run(t, "log", "Hello World")
	require.NoError(t, err)
	assert.Contains(t, out, `INFO: data: "Hello World"`)
}

func TestCLI_GetMissing(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run(t, "get", "nope")
	assert.Error(t, err)
}

func TestCLI_Prune(t *testing.T) {
	c := newCLI(t)
	require.NoError(t, c.store.CreateIndex("logs-cli-1-1-2000"))
	require.NoError(t, c.store.CreateIndex("logs-other-1-1-2000"))

	out, _, err := c.run(t, "prune", "--retention", "24h")
	require.NoError(t, err)
	assert.Equal(t, "logs-cli-1-1-2000\n", out)
	assert.Equal(t, []string{"logs-other-1-1-2000"}, c.store.ListIndices(""))
}

func TestEnvFallbacks(t *testing.T) {
	t.Setenv("ESLOG_PORT", "9999")
	t.Setenv("ESLOG_COMPRESS", "true")
	t.Setenv("ESLOG_CACHE_TTL", "bogus")

	root := newRootCommand()
	port, err := root.PersistentFlags().GetInt("port")
	require.NoError(t, err)
	assert.Equal(t, 9999, port)
	compress, err := root.PersistentFlags().GetBool("compress")
	require.NoError(t, err)
	assert.True(t, compress)
	ttl, err := root.PersistentFlags().GetDuration("cache-ttl")
	require.NoError(t, err)
	assert.Zero(t, ttl)
}

func TestCLI_TemplateFollowsPrefixAndFile(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run(t, "--prefix", "app", "init")
	require.NoError(t, err)
	tpl, ok := c.store.GetTemplate("log_template")
	require.True(t, ok)
	assert.Equal(t, []string{"app-*"}, tpl.Patterns)

	path := filepath.Join(t.TempDir(), "template.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"index_patterns":["edge-*"],"settings":{"index":{"refresh_interval":"1s"}}}`), 0o600))
	_, _, err = c.run(t, "--prefix", "edge", "--template-name", "edge_template", "--template-file", path, "init")
	require.NoError(t, err)
	tpl, ok = c.store.GetTemplate("edge_template")
	require.True(t, ok)
	assert.Equal(t, []string{"edge-*"}, tpl.Patterns)
	assert.Contains(t, string(tpl.Body), "refresh_interval")
}
