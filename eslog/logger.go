package eslog

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/coffersTech/esrestlog/internal/transport"
)

// Logger ships log records to the document store.
//
// Each write re-derives the day's index from the clock, makes sure the
// template and that index exist, and posts the normalized record. A Logger
// holds no per-call state and is safe for concurrent use.
type Logger struct {
	opts  Options
	tr    transport.Doer
	prov  *Provisioner
	log   *slog.Logger
	cache *provisionCache
}

// WriteResult is the store's answer to a successful write.
type WriteResult struct {
	StatusCode int    `json:"-"`
	ID         string `json:"_id"`
	Index      string `json:"_index"`
	Type       string `json:"_type"`
	Version    int64  `json:"_version"`
	Result     string `json:"result"`
	Created    bool   `json:"created"`
}

// Document is a stored record as returned by reads.
type Document struct {
	ID      string `json:"_id"`
	Index   string `json:"_index"`
	Type    string `json:"_type"`
	Version int64  `json:"_version,omitempty"`
	Found   bool   `json:"found"`
	Source  Record `json:"_source"`
}

// SearchResult is the answer to a filtered read.
type SearchResult struct {
	Total int
	Hits  []Document
}

// InitResult holds the outcome of both provisioning steps.
type InitResult struct {
	Template *Response
	Index    *Response
}

// New creates a Logger. Zero fields of opts take their defaults, so the
// zero Options mirrors to stdout and writes to localhost:9200.
func New(opts Options) (*Logger, error) {
	opts = opts.withDefaults()
	if len(opts.TemplateBody) > 0 && !isJSONObject(opts.TemplateBody) {
		return nil, errors.Newf("template body for %q is not a JSON object", opts.TemplateName)
	}
	tr, err := transport.New(transport.Config{
		Addresses: []string{opts.Address()},
		Transport: opts.HTTPTransport,
		Compress:  opts.CompressRequests,
	})
	if err != nil {
		return nil, err
	}
	return newLogger(opts, tr), nil
}

func newLogger(opts Options, tr transport.Doer) *Logger {
	log := opts.Diagnostics.With("component", "eslog", "stream", opts.StreamType)
	return &Logger{
		opts:  opts,
		tr:    tr,
		prov:  NewProvisioner(tr, log),
		log:   log,
		cache: newProvisionCache(opts.ProvisionCacheTTL, opts.Clock),
	}
}

// Options returns the effective options.
func (l *Logger) Options() Options {
	return l.opts
}

// Provisioner returns the provisioner used by the logger.
func (l *Logger) Provisioner() *Provisioner {
	return l.prov
}

// template is the document registered under TemplateName.
func (l *Logger) template() any {
	if len(l.opts.TemplateBody) > 0 {
		return l.opts.TemplateBody
	}
	return l.opts.Template
}

func (l *Logger) now() time.Time {
	return l.opts.Clock.Now().In(l.opts.Location)
}

// Target returns the index written to now.
func (l *Logger) Target() string {
	return ResolveTarget(l.opts.Prefix, l.opts.StreamType, l.now())
}

// Init provisions the template and today's index eagerly and reports both
// outcomes. The error joins whichever steps failed.
func (l *Logger) Init(ctx context.Context) (*InitResult, error) {
	tplRes, tplErr := l.prov.EnsureTemplate(ctx, l.opts.TemplateName, l.template())
	if tplErr == nil {
		l.cache.mark(templateKey(l.opts.TemplateName))
	}
	target := l.Target()
	idxRes, idxErr := l.prov.EnsureIndex(ctx, target)
	if idxErr == nil {
		l.cache.mark(indexKey(target))
	}
	return &InitResult{Template: tplRes, Index: idxRes}, errors.CombineErrors(tplErr, idxErr)
}

// Log writes payload at level. See Normalize for how payloads become
// records.
//
// Provisioning failures are reported to the diagnostic logger and do not
// stop the write. A failed write is reported as well and returned marked
// ErrWrite with a nil result, so a nil error means the record was stored.
func (l *Logger) Log(ctx context.Context, level string, payload any) (*WriteResult, error) {
	return l.LogAt(ctx, l.now(), level, payload)
}

// LogAt is Log for a record that happened at t. Both the record's
// timestamp and the day's index are taken from t.
func (l *Logger) LogAt(ctx context.Context, t time.Time, level string, payload any) (*WriteResult, error) {
	ctx = shipping(ctx)
	t = t.In(l.opts.Location)
	target := ResolveTarget(l.opts.Prefix, l.opts.StreamType, t)

	l.ensure(ctx, target)

	rec := Normalize(level, payload, t)
	res, err := l.tr.Do(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   indexPath(target) + "/" + l.opts.DocType,
		Body:   rec,
	})
	if err == nil && !res.OK() {
		err = statusError(res)
	}
	var out WriteResult
	if err == nil {
		err = res.Decode(&out)
	}
	if err != nil {
		err = errors.Mark(errors.Wrapf(err, "write to %s", target), ErrWrite)
		l.log.ErrorContext(ctx, "log write failed", "index", target, "level", level, "error", err)
		return nil, err
	}
	out.StatusCode = res.StatusCode
	if out.Result == "created" {
		out.Created = true
	}
	return &out, nil
}

// ensure runs both provisioning steps. Failures were already reported by
// the provisioner and are dropped here.
func (l *Logger) ensure(ctx context.Context, target string) {
	if key := templateKey(l.opts.TemplateName); !l.cache.fresh(key) {
		if _, err := l.prov.EnsureTemplate(ctx, l.opts.TemplateName, l.template()); err == nil {
			l.cache.mark(key)
		}
	}
	if key := indexKey(target); !l.cache.fresh(key) {
		if _, err := l.prov.EnsureIndex(ctx, target); err == nil {
			l.cache.mark(key)
		}
	}
}

// Info logs payload at INFO.
func (l *Logger) Info(ctx context.Context, payload any) (*WriteResult, error) {
	return l.leveled(ctx, LevelInfo, payload)
}

// Warn logs payload at WARN.
func (l *Logger) Warn(ctx context.Context, payload any) (*WriteResult, error) {
	return l.leveled(ctx, LevelWarn, payload)
}

// Error logs payload at ERROR.
func (l *Logger) Error(ctx context.Context, payload any) (*WriteResult, error) {
	return l.leveled(ctx, LevelError, payload)
}

func (l *Logger) leveled(ctx context.Context, level string, payload any) (*WriteResult, error) {
	if !l.opts.DisableConsoleMirror {
		mirror(l.opts.Console, level, payload, l.opts.Clock.Now())
	}
	return l.Log(ctx, level, payload)
}

// GetLog reads a record by id from today's index. Failures are returned
// marked ErrRead, and additionally ErrNotFound when the index or document
// does not exist.
func (l *Logger) GetLog(ctx context.Context, id string) (*Document, error) {
	target := l.Target()
	res, err := l.tr.Do(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   indexPath(target) + "/" + l.opts.DocType + "/" + id,
	})
	if err == nil && !res.OK() {
		err = statusError(res)
	}
	var doc Document
	if err == nil {
		err = res.Decode(&doc)
	}
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "get log %s from %s", id, target), ErrRead)
	}
	return &doc, nil
}

// GetLogs searches today's index. A non-empty filter is passed verbatim as
// the query-string query; the store's default result size applies.
func (l *Logger) GetLogs(ctx context.Context, filter string) (*SearchResult, error) {
	target := l.Target()
	req := &transport.Request{
		Method: http.MethodGet,
		Path:   indexPath(target) + "/" + l.opts.DocType + "/_search",
	}
	if filter != "" {
		req.Query = url.Values{"q": {filter}}
	}
	res, err := l.tr.Do(ctx, req)
	if err == nil && !res.OK() {
		err = statusError(res)
	}
	var out SearchResult
	if err == nil {
		err = decodeSearch(res, &out)
	}
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "search %s", target), ErrRead)
	}
	return &out, nil
}

func decodeSearch(res *Response, out *SearchResult) error {
	var body struct {
		Hits struct {
			Total json.RawMessage `json:"total"`
			Hits  []Document      `json:"hits"`
		} `json:"hits"`
	}
	if err := res.Decode(&body); err != nil {
		return err
	}
	out.Hits = body.Hits.Hits
	for i := range out.Hits {
		out.Hits[i].Found = true
	}

	// Older stores report a number, newer ones {"value": n, "relation": ...}.
	var n int
	if err := json.Unmarshal(body.Hits.Total, &n); err == nil {
		out.Total = n
		return nil
	}
	var obj struct {
		Value int `json:"value"`
	}
	if err := json.Unmarshal(body.Hits.Total, &obj); err != nil {
		return errors.Wrap(err, "decode hits.total")
	}
	out.Total = obj.Value
	return nil
}

// DeleteIndex deletes today's index. A missing index yields its 404
// response and no error.
func (l *Logger) DeleteIndex(ctx context.Context) (*Response, error) {
	target := l.Target()
	l.cache.forget(indexKey(target))
	return l.prov.DeleteIndex(ctx, target)
}

// DeleteTemplate deletes the configured template. A missing template yields
// its 404 response and no error.
func (l *Logger) DeleteTemplate(ctx context.Context) (*Response, error) {
	l.cache.forget(templateKey(l.opts.TemplateName))
	return l.prov.DeleteTemplate(ctx, l.opts.TemplateName)
}
