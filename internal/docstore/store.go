package docstore

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fastjson"

	"github.com/coffersTech/esrestlog/internal/query"
)

// Template is a registered index template.
type Template struct {
	Name     string          `json:"name"`
	Order    int             `json:"order"`
	Patterns []string        `json:"patterns"`
	Body     json.RawMessage `json:"body"`
}

// Document is a stored document.
type Document struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Version int64           `json:"version"`
	Source  json.RawMessage `json:"source"`
}

// Index is a named collection of documents.
type Index struct {
	Name      string               `json:"name"`
	Template  string               `json:"template,omitempty"` // template applied at creation
	CreatedAt int64                `json:"created_at"`
	Docs      map[string]*Document `json:"docs"`
	Order     []string             `json:"order"` // insertion order of ids
}

// Hit is a single search result.
type Hit struct {
	Index string
	Doc   Document
}

var parserPool fastjson.ParserPool

// Store holds templates, indices and documents in memory.
type Store struct {
	mu        sync.RWMutex
	templates map[string]*Template
	indices   map[string]*Index
	newID     func() string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		templates: make(map[string]*Template),
		indices:   make(map[string]*Index),
		newID:     uuid.NewString,
	}
}

// PutTemplate registers or replaces a template. The body must be a JSON
// object naming its patterns with "index_patterns" or the legacy "template".
func (s *Store) PutTemplate(name string, body []byte) error {
	p := parserPool.Get()
	defer parserPool.Put(p)
	v, err := p.ParseBytes(body)
	if err != nil {
		return &Error{Status: 400, Type: "parse_exception", Reason: fmt.Sprintf("failed to parse template: %v", err)}
	}
	if v.Type() != fastjson.TypeObject {
		return &Error{Status: 400, Type: "parse_exception", Reason: "template body must be an object"}
	}

	var patterns []string
	if pv := v.Get("index_patterns"); pv != nil {
		switch pv.Type() {
		case fastjson.TypeArray:
			for _, item := range pv.GetArray() {
				patterns = append(patterns, string(item.GetStringBytes()))
			}
		case fastjson.TypeString:
			patterns = append(patterns, string(pv.GetStringBytes()))
		}
	} else if tv := v.GetStringBytes("template"); tv != nil {
		patterns = append(patterns, string(tv))
	}
	if len(patterns) == 0 {
		return &Error{Status: 400, Type: "action_request_validation_exception", Reason: "index patterns are missing"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[name] = &Template{
		Name:     name,
		Order:    v.GetInt("order"),
		Patterns: patterns,
		Body:     append(json.RawMessage(nil), body...),
	}
	return nil
}

// GetTemplate returns a copy of the named template.
func (s *Store) GetTemplate(name string) (Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[name]
	if !ok {
		return Template{}, false
	}
	return *t, true
}

// DeleteTemplate removes a template, reporting whether it existed.
func (s *Store) DeleteTemplate(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[name]; !ok {
		return false
	}
	delete(s.templates, name)
	return true
}

// CreateIndex creates an empty index. Creating an existing index fails with
// resource_already_exists_exception.
func (s *Store) CreateIndex(name string) error {
	if err := validateIndexName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indices[name]; ok {
		return &Error{
			Status: 400,
			Type:   "resource_already_exists_exception",
			Reason: fmt.Sprintf("index [%s] already exists", name),
		}
	}
	s.createIndexLocked(name)
	return nil
}

func (s *Store) createIndexLocked(name string) *Index {
	idx := &Index{
		Name:      name,
		Template:  s.matchTemplateLocked(name),
		CreatedAt: time.Now().Unix(),
		Docs:      make(map[string]*Document),
	}
	s.indices[name] = idx
	return idx
}

// matchTemplateLocked returns the highest-order template whose pattern
// matches name.
func (s *Store) matchTemplateLocked(name string) string {
	best, bestOrder := "", -1
	for _, t := range s.templates {
		for _, p := range t.Patterns {
			if ok, _ := path.Match(p, name); ok && t.Order > bestOrder {
				best, bestOrder = t.Name, t.Order
			}
		}
	}
	return best
}

// GetIndex returns a summary copy of an index without its documents.
func (s *Store) GetIndex(name string) (Index, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indices[name]
	if !ok {
		return Index{}, false
	}
	return Index{Name: idx.Name, Template: idx.Template, CreatedAt: idx.CreatedAt}, true
}

// DeleteIndex removes an index and its documents, reporting whether it existed.
func (s *Store) DeleteIndex(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indices[name]; !ok {
		return false
	}
	delete(s.indices, name)
	return true
}

// ListIndices returns the names of indices matching pattern, sorted.
// An empty pattern lists everything.
func (s *Store) ListIndices(pattern string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	for name := range s.indices {
		if pattern == "" || matchAny(pattern, name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// DocCount returns the number of documents in an index.
func (s *Store) DocCount(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx, ok := s.indices[name]; ok {
		return len(idx.Docs)
	}
	return 0
}

// IndexDocument stores source under index/typ. An empty id is generated.
// The index is created on first write, as the real store does.
func (s *Store) IndexDocument(index, typ, id string, source []byte) (Document, bool, error) {
	if err := validateIndexName(index); err != nil {
		return Document{}, false, err
	}
	p := parserPool.Get()
	defer parserPool.Put(p)
	v, err := p.ParseBytes(source)
	if err != nil || v.Type() != fastjson.TypeObject {
		return Document{}, false, &Error{Status: 400, Type: "mapper_parsing_exception", Reason: "failed to parse, document is empty or not an object"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indices[index]
	if !ok {
		idx = s.createIndexLocked(index)
	}
	if id == "" {
		id = s.newID()
	}
	created := true
	doc, ok := idx.Docs[id]
	if ok {
		created = false
		doc.Version++
		doc.Type = typ
		doc.Source = append(json.RawMessage(nil), source...)
	} else {
		doc = &Document{ID: id, Type: typ, Version: 1, Source: append(json.RawMessage(nil), source...)}
		idx.Docs[id] = doc
		idx.Order = append(idx.Order, id)
	}
	return *doc, created, nil
}

// GetDocument fetches a document. "_doc" and "_all" match any type.
func (s *Store) GetDocument(index, typ, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indices[index]
	if !ok {
		return Document{}, indexNotFound(index)
	}
	doc, ok := idx.Docs[id]
	if !ok || !typeMatches(typ, doc.Type) {
		return Document{}, errDocumentMissing
	}
	return *doc, nil
}

// Search evaluates a query-string filter over the indices matching pattern
// and returns up to size hits plus the total number of matches.
func (s *Store) Search(pattern, typ, q string, size int) ([]Hit, int, error) {
	node, err := query.Parse(q)
	if err != nil {
		return nil, 0, &Error{Status: 400, Type: "search_phase_execution_exception", Reason: err.Error()}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for name := range s.indices {
		if matchAny(pattern, name) {
			names = append(names, name)
		}
	}
	if len(names) == 0 && !strings.ContainsAny(pattern, "*,") {
		return nil, 0, indexNotFound(pattern)
	}
	sort.Strings(names)

	var hits []Hit
	total := 0
	for _, name := range names {
		idx := s.indices[name]
		for _, id := range idx.Order {
			doc := idx.Docs[id]
			if !typeMatches(typ, doc.Type) {
				continue
			}
			var src map[string]any
			if err := json.Unmarshal(doc.Source, &src); err != nil {
				continue
			}
			if !query.Match(node, src) {
				continue
			}
			total++
			if len(hits) < size {
				hits = append(hits, Hit{Index: name, Doc: *doc})
			}
		}
	}
	return hits, total, nil
}

func typeMatches(want, have string) bool {
	return want == "" || want == "_doc" || want == "_all" || want == have
}

// matchAny matches name against a comma-separated list of glob patterns.
func matchAny(patterns, name string) bool {
	for _, p := range strings.Split(patterns, ",") {
		if p == "_all" {
			return true
		}
		if ok, _ := path.Match(strings.TrimSpace(p), name); ok {
			return true
		}
	}
	return false
}

func validateIndexName(name string) error {
	switch {
	case name == "" || name == "." || name == "..":
	case strings.HasPrefix(name, "_") || strings.HasPrefix(name, "-") || strings.HasPrefix(name, "+"):
	case strings.ToLower(name) != name:
	case strings.ContainsAny(name, `\/*?"<>| ,#:`):
	default:
		return nil
	}
	return &Error{Status: 400, Type: "invalid_index_name_exception", Reason: fmt.Sprintf("Invalid index name [%s]", name)}
}
