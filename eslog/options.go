package eslog

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
)

// Defaults used by DefaultOptions and by New for zero fields.
const (
	DefaultHost         = "localhost"
	DefaultPort         = 9200
	DefaultScheme       = "http"
	DefaultStreamType   = "generic"
	DefaultPrefix       = "logs"
	DefaultDocType      = "logs"
	DefaultTemplateName = "log_template"
)

// Options configures a Logger.
type Options struct {
	Host   string
	Port   int
	Scheme string

	// StreamType is the logical stream embedded in every index name.
	StreamType string
	// Prefix starts every index name. The default template matches
	// Prefix + "-*".
	Prefix string
	// DocType is the document type used in write and read paths.
	DocType string

	TemplateName string
	// Template is registered under TemplateName. A zero Template becomes
	// the default template for Prefix and DocType.
	Template Template
	// TemplateBody, when set, is registered verbatim instead of Template.
	// It must be a JSON object.
	TemplateBody json.RawMessage

	// DisableConsoleMirror stops Info, Warn and Error calls from being
	// copied to Console before they are sent.
	DisableConsoleMirror bool
	Console              ConsoleSink

	// Diagnostics receives provisioning and write failures. Nil writes
	// text lines to stderr.
	Diagnostics *slog.Logger

	// Clock supplies the time of each log call.
	Clock clockwork.Clock
	// Location is the calendar used to pick the day's index.
	Location *time.Location

	// CompressRequests gzips request bodies.
	CompressRequests bool
	// ProvisionCacheTTL, when positive, skips existence checks for a
	// template or index verified within the TTL. Zero re-checks on every
	// write.
	ProvisionCacheTTL time.Duration

	// HTTPTransport overrides the HTTP round tripper.
	HTTPTransport http.RoundTripper
}

// DefaultOptions returns the options of a console-mirroring logger for the
// "generic" stream on localhost:9200. Template is left zero so that New
// derives it from Prefix.
func DefaultOptions() Options {
	return Options{
		Host:         DefaultHost,
		Port:         DefaultPort,
		Scheme:       DefaultScheme,
		StreamType:   DefaultStreamType,
		Prefix:       DefaultPrefix,
		DocType:      DefaultDocType,
		TemplateName: DefaultTemplateName,
		Console:      StdConsole(),
	}
}

// withDefaults fills zero fields. Booleans are taken as given.
func (o Options) withDefaults() Options {
	if o.Host == "" {
		o.Host = DefaultHost
	}
	if o.Port == 0 {
		o.Port = DefaultPort
	}
	if o.Scheme == "" {
		o.Scheme = DefaultScheme
	}
	if o.StreamType == "" {
		o.StreamType = DefaultStreamType
	}
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}
	if o.DocType == "" {
		o.DocType = DefaultDocType
	}
	if o.TemplateName == "" {
		o.TemplateName = DefaultTemplateName
	}
	if o.Template.isZero() {
		o.Template = templateFor(o.Prefix, o.DocType)
	}
	if o.Console == nil {
		o.Console = StdConsole()
	}
	if o.Diagnostics == nil {
		o.Diagnostics = stderrDiagnostics()
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

// stderrDiagnostics writes straight to stderr. It must not route through
// slog.Default, which may itself be a Handler over the same Logger.
func stderrDiagnostics() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// Address is the base URL of the document store.
func (o Options) Address() string {
	return o.Scheme + "://" + net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}
