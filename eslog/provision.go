package eslog

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/coffersTech/esrestlog/internal/transport"
)

// Response is the status and body of a store call.
type Response = transport.Response

// Provisioner makes sure templates and indices exist before they are used.
//
// Every ensure call checks existence first and creates only on a negative
// answer, so concurrent provisioners at worst race to create the same
// resource; the loser's "already exists" answer is treated as success.
type Provisioner struct {
	tr  transport.Doer
	log *slog.Logger
}

// NewProvisioner creates a Provisioner over tr. A nil logger writes to
// stderr.
func NewProvisioner(tr transport.Doer, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = stderrDiagnostics()
	}
	return &Provisioner{tr: tr, log: logger}
}

// EnsureTemplate registers tpl under name unless a template of that name
// exists. tpl is a Template, a json.RawMessage sent verbatim, or any other
// JSON-encodable document. Any answer other than 200 to the existence
// check, including a transport failure, leads to a creation attempt. It
// returns the response of the last call made. A failed creation is
// reported to the diagnostic logger and returned marked ErrProvisioning.
func (p *Provisioner) EnsureTemplate(ctx context.Context, name string, tpl any) (*Response, error) {
	path := templatePath(name)
	if res, ok := p.exists(ctx, path); ok {
		return res, nil
	}
	return p.create(ctx, "template", name, &transport.Request{
		Method: http.MethodPut,
		Path:   path,
		Body:   tpl,
	})
}

// EnsureIndex creates the index target with default settings unless it
// exists. It follows the same rules as EnsureTemplate.
func (p *Provisioner) EnsureIndex(ctx context.Context, target string) (*Response, error) {
	path := indexPath(target)
	if res, ok := p.exists(ctx, path); ok {
		return res, nil
	}
	return p.create(ctx, "index", target, &transport.Request{
		Method: http.MethodPut,
		Path:   path,
		Body:   []byte("{}"),
	})
}

// DeleteTemplate deletes the named template. A missing template is not an
// error: the 404 response is returned with a nil error.
func (p *Provisioner) DeleteTemplate(ctx context.Context, name string) (*Response, error) {
	return p.delete(ctx, templatePath(name))
}

// DeleteIndex deletes an index and its documents. A missing index is not an
// error: the 404 response is returned with a nil error.
func (p *Provisioner) DeleteIndex(ctx context.Context, target string) (*Response, error) {
	return p.delete(ctx, indexPath(target))
}

func (p *Provisioner) exists(ctx context.Context, path string) (*Response, bool) {
	ctx = shipping(ctx)
	res, err := p.tr.Do(ctx, &transport.Request{Method: http.MethodHead, Path: path})
	if err != nil {
		p.log.DebugContext(ctx, "existence check failed, assuming absent", "path", path, "error", err)
		return nil, false
	}
	return res, res.StatusCode == http.StatusOK
}

func (p *Provisioner) create(ctx context.Context, kind, name string, req *transport.Request) (*Response, error) {
	ctx = shipping(ctx)
	res, err := p.tr.Do(ctx, req)
	if err != nil {
		err = errors.Mark(errors.Wrapf(err, "create %s %q", kind, name), ErrProvisioning)
		p.log.ErrorContext(ctx, "provisioning failed", "kind", kind, "name", name, "error", err)
		return nil, err
	}
	if res.OK() {
		p.log.InfoContext(ctx, "provisioned", "kind", kind, "name", name)
		return res, nil
	}
	if isConflict(res) {
		p.log.DebugContext(ctx, "already provisioned by a concurrent writer", "kind", kind, "name", name)
		return res, nil
	}
	err = errors.Mark(errors.Wrapf(statusError(res), "create %s %q", kind, name), ErrProvisioning)
	p.log.ErrorContext(ctx, "provisioning failed", "kind", kind, "name", name, "error", err)
	return res, err
}

func (p *Provisioner) delete(ctx context.Context, path string) (*Response, error) {
	res, err := p.tr.Do(ctx, &transport.Request{Method: http.MethodDelete, Path: path})
	if err != nil {
		return nil, errors.Wrapf(err, "delete %s", path)
	}
	if res.OK() || res.NotFound() {
		return res, nil
	}
	return res, errors.Wrapf(statusError(res), "delete %s", path)
}

func templatePath(name string) string {
	return "/_template/" + name
}

func indexPath(target string) string {
	return "/" + target
}
