// Package transport executes document-store REST calls.
//
// It is a thin layer over the opensearch-go client: requests are described
// by method, path and an optional JSON body, and every HTTP status comes
// back as a Response. Only failures to obtain a response at all are
// returned as errors; interpreting status codes is left to the caller.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/valyala/fastjson"
)

// Doer executes a single request against the document store.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Request describes one REST call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON-encoded unless it is already a []byte or json.RawMessage.
	// A nil Body sends no payload.
	Body any
}

// Response is the status and fully read body of a REST call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// NotFound reports whether the status is 404.
func (r *Response) NotFound() bool {
	return r != nil && r.StatusCode == http.StatusNotFound
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.Wrapf(err, "decode %d response", r.StatusCode)
	}
	return nil
}

// ErrorInfo extracts the error type and reason from a document-store error
// body such as {"error":{"type":"...","reason":"..."},"status":400}.
// Older servers answer with a plain string in "error"; that string is
// returned as the reason.
func (r *Response) ErrorInfo() (typ, reason string) {
	if r == nil || len(r.Body) == 0 {
		return "", ""
	}
	var p fastjson.Parser
	v, err := p.ParseBytes(r.Body)
	if err != nil {
		return "", strings.TrimSpace(string(r.Body))
	}
	e := v.Get("error")
	if e == nil {
		return "", ""
	}
	if e.Type() == fastjson.TypeString {
		return "", string(e.GetStringBytes())
	}
	return string(e.GetStringBytes("type")), string(e.GetStringBytes("reason"))
}

// Config configures a Client.
type Config struct {
	// Addresses are base URLs such as "http://localhost:9200".
	Addresses []string
	// Transport overrides the HTTP round tripper. Nil uses http.DefaultTransport.
	Transport http.RoundTripper
	// Compress gzips request bodies and sets Content-Encoding.
	Compress bool
}

// Client is a Doer backed by an opensearch-go client.
type Client struct {
	os       *opensearch.Client
	compress bool
}

// New creates a Client. Retries are disabled: a transport failure is
// reported to the caller on the first attempt.
func New(cfg Config) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("transport: no addresses configured")
	}
	osc, err := opensearch.NewClient(opensearch.Config{
		Addresses:    cfg.Addresses,
		Transport:    cfg.Transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create opensearch client")
	}
	return &Client{os: osc, compress: cfg.Compress}, nil
}

// Do implements Doer.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	body, err := c.encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	u := &url.URL{Path: "/" + strings.TrimLeft(req.Path, "/")}
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), rd)
	if err != nil {
		return nil, errors.Wrapf(err, "build %s %s", req.Method, u.Path)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
		if c.compress {
			httpReq.Header.Set("Content-Encoding", "gzip")
		}
	}
	httpReq.Header.Set("Accept", "application/json")

	res, err := c.os.Perform(httpReq)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", req.Method, u.Path)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s %s response", req.Method, u.Path)
	}
	return &Response{StatusCode: res.StatusCode, Header: res.Header, Body: data}, nil
}

func (c *Client) encodeBody(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var raw []byte
	switch b := v.(type) {
	case []byte:
		raw = b
	case json.RawMessage:
		raw = b
	default:
		var err error
		if raw, err = json.Marshal(v); err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
	}
	if !c.compress {
		return raw, nil
	}
	return Gzip(raw)
}

// Gzip compresses data.
func Gzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, errors.Wrap(err, "gzip request body")
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "gzip request body")
	}
	return buf.Bytes(), nil
}

// Gunzip decompresses data produced by Gzip.
func Gunzip(r io.Reader) ([]byte, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open gzip body")
	}
	defer zr.Close()
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.Wrap(err, "read gzip body")
	}
	return data, nil
}
