// Package docstore is an in-memory emulation of the document-store REST
// subset the log client speaks: legacy index templates, indices, typed
// document writes and reads, and query-string search.
//
// It backs the client tests and the "eslog devstore" command. It is not a
// storage engine: there is no analysis, scoring or sharding.
package docstore

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

const defaultSearchSize = 10

// Server serves a Store over HTTP.
type Server struct {
	store *Store
	log   *slog.Logger
	srv   *http.Server
}

// NewServer creates a server for store. A nil logger uses slog.Default().
func NewServer(store *Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: store, log: logger}
}

// Store returns the backing store.
func (s *Server) Store() *Store {
	return s.store
}

// Start runs the HTTP server until Shutdown.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:    addr,
		Handler: s,
	}

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

// ServeHTTP routes on the first path segment, the way the real store
// reserves names starting with an underscore for its APIs.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.log.Debug("docstore request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)

	parts := splitPath(r.URL.Path)
	switch {
	case len(parts) == 0:
		s.handleRoot(w, r)
	case parts[0] == "_template" && len(parts) == 2:
		s.handleTemplate(w, r, parts[1])
	case parts[0] == "_cat" && len(parts) >= 2 && parts[1] == "indices":
		pattern := ""
		if len(parts) == 3 {
			pattern = parts[2]
		}
		s.handleCatIndices(w, r, pattern)
	case strings.HasPrefix(parts[0], "_") && parts[0] != "_all":
		writeError(w, &Error{Status: http.StatusBadRequest, Type: "illegal_argument_exception", Reason: "unsupported endpoint " + r.URL.Path})
	case len(parts) == 1:
		s.handleIndex(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "_search":
		s.handleSearch(w, r, parts[0], "")
	case len(parts) == 2:
		s.handleCollection(w, r, parts[0], parts[1])
	case len(parts) == 3 && parts[2] == "_search":
		s.handleSearch(w, r, parts[0], parts[1])
	case len(parts) == 3:
		s.handleDocument(w, r, parts[0], parts[1], parts[2])
	default:
		writeError(w, &Error{Status: http.StatusBadRequest, Type: "illegal_argument_exception", Reason: "unsupported endpoint " + r.URL.Path})
	}
}

func splitPath(p string) []string {
	var parts []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	return parts
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "docstore",
		"tagline": "You Know, for Search",
		"version": map[string]any{"number": "6.8.0"},
	})
}

// handleTemplate serves /_template/{name}.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request, name string) {
	switch r.Method {
	case http.MethodHead:
		if _, ok := s.store.GetTemplate(name); ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)

	case http.MethodGet:
		t, ok := s.store.GetTemplate(name)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{})
			return
		}
		writeJSON(w, http.StatusOK, map[string]json.RawMessage{name: t.Body})

	case http.MethodPut, http.MethodPost:
		body, ok := readBody(w, r)
		if !ok {
			return
		}
		if err := s.store.PutTemplate(name, body); err != nil {
			writeError(w, err)
			return
		}
		s.log.Info("template stored", "template", name)
		writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true})

	case http.MethodDelete:
		if !s.store.DeleteTemplate(name) {
			writeError(w, &Error{Status: http.StatusNotFound, Type: "index_template_missing_exception", Reason: "index_template [" + name + "] missing"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true})

	default:
		methodNotAllowed(w)
	}
}

// handleIndex serves /{index}.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request, name string) {
	switch r.Method {
	case http.MethodHead:
		if _, ok := s.store.GetIndex(name); ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)

	case http.MethodGet:
		idx, ok := s.store.GetIndex(name)
		if !ok {
			writeError(w, indexNotFound(name))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			name: map[string]any{
				"template":   idx.Template,
				"created_at": idx.CreatedAt,
				"docs":       s.store.DocCount(name),
			},
		})

	case http.MethodPut:
		if _, ok := readBody(w, r); !ok {
			return
		}
		if err := s.store.CreateIndex(name); err != nil {
			writeError(w, err)
			return
		}
		s.log.Info("index created", "index", name)
		writeJSON(w, http.StatusOK, map[string]any{
			"acknowledged":        true,
			"shards_acknowledged": true,
			"index":               name,
		})

	case http.MethodDelete:
		if !s.store.DeleteIndex(name) {
			writeError(w, indexNotFound(name))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true})

	default:
		methodNotAllowed(w)
	}
}

// handleCollection serves POST /{index}/{type}: a write with a generated id.
func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request, index, typ string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	s.indexDocument(w, r, index, typ, "")
}

// handleDocument serves /{index}/{type}/{id}.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request, index, typ, id string) {
	switch r.Method {
	case http.MethodGet:
		doc, err := s.store.GetDocument(index, typ, id)
		if err == errDocumentMissing {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"_index": index,
				"_type":  typ,
				"_id":    id,
				"found":  false,
			})
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"_index":   index,
			"_type":    doc.Type,
			"_id":      doc.ID,
			"_version": doc.Version,
			"found":    true,
			"_source":  doc.Source,
		})

	case http.MethodPut, http.MethodPost:
		s.indexDocument(w, r, index, typ, id)

	default:
		methodNotAllowed(w)
	}
}

func (s *Server) indexDocument(w http.ResponseWriter, r *http.Request, index, typ, id string) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	doc, created, err := s.store.IndexDocument(index, typ, id, body)
	if err != nil {
		writeError(w, err)
		return
	}

	status, result := http.StatusCreated, "created"
	if !created {
		status, result = http.StatusOK, "updated"
	}
	writeJSON(w, status, map[string]any{
		"_index":   index,
		"_type":    doc.Type,
		"_id":      doc.ID,
		"_version": doc.Version,
		"result":   result,
		"created":  created,
		"_shards":  map[string]int{"total": 1, "successful": 1, "failed": 0},
	})
}

// handleSearch serves /{index}[/{type}]/_search?q=...&size=...
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request, pattern, typ string) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	q := r.URL.Query()
	size := defaultSearchSize
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, &Error{Status: http.StatusBadRequest, Type: "illegal_argument_exception", Reason: "invalid size [" + v + "]"})
			return
		}
		size = n
	}

	hits, total, err := s.store.Search(pattern, typ, q.Get("q"), size)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(hits))
	for _, h := range hits {
		out = append(out, map[string]any{
			"_index":  h.Index,
			"_type":   h.Doc.Type,
			"_id":     h.Doc.ID,
			"_score":  1.0,
			"_source": h.Doc.Source,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"took":      0,
		"timed_out": false,
		"hits": map[string]any{
			"total":     total,
			"max_score": 1.0,
			"hits":      out,
		},
	})
}

// handleCatIndices serves /_cat/indices[/{pattern}]. Only format=json is
// produced; the plain text table is a line per index name.
func (s *Server) handleCatIndices(w http.ResponseWriter, r *http.Request, pattern string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	names := s.store.ListIndices(pattern)

	if r.URL.Query().Get("format") != "json" {
		w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
		w.WriteHeader(http.StatusOK)
		for _, name := range names {
			io.WriteString(w, name+"\n")
		}
		return
	}

	rows := make([]map[string]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, map[string]string{
			"health":     "green",
			"status":     "open",
			"index":      name,
			"docs.count": strconv.Itoa(s.store.DocCount(name)),
		})
	}
	writeJSON(w, http.StatusOK, rows)
}

// readBody reads the request body, decoding gzip when announced.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	defer r.Body.Close()

	var rd io.Reader = r.Body
	if strings.EqualFold(r.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			writeError(w, &Error{Status: http.StatusBadRequest, Type: "parse_exception", Reason: "invalid gzip body"})
			return nil, false
		}
		defer zr.Close()
		rd = zr
	}

	body, err := io.ReadAll(rd)
	if err != nil {
		writeError(w, &Error{Status: http.StatusBadRequest, Type: "parse_exception", Reason: "failed to read body"})
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	e, ok := err.(*Error)
	if !ok {
		e = &Error{Status: http.StatusInternalServerError, Type: "exception", Reason: err.Error()}
	}
	cause := map[string]string{"type": e.Type, "reason": e.Reason}
	writeJSON(w, e.Status, map[string]any{
		"error": map[string]any{
			"root_cause": []map[string]string{cause},
			"type":       e.Type,
			"reason":     e.Reason,
		},
		"status": e.Status,
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, &Error{Status: http.StatusMethodNotAllowed, Type: "method_not_allowed", Reason: "method not allowed"})
}
