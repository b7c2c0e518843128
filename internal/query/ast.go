// Package query parses and evaluates the query-string filter syntax used by
// the document store's search endpoint (the "q" parameter).
//
// Supported: field:term, field:"phrase", bare terms matched against every
// field, AND/OR/NOT and &&/||/!, +required and -prohibited clauses,
// grouping, field:(a OR b), wildcards (* and ?), ranges ([a TO b], {a TO b})
// and comparisons (field:>=5), field:* and _exists_:field. Adjacent clauses
// without an operator are OR-ed. There is no analysis beyond splitting text
// into words and comparing them case-insensitively.
package query

// Node is a parsed query.
type Node interface {
	node()
}

// And matches when both sides match.
type And struct {
	Left, Right Node
}

// Or matches when either side matches.
type Or struct {
	Left, Right Node
}

// Not inverts X.
type Not struct {
	X Node
}

// Term matches a word or, when Phrase is set, a run of words. An empty
// Field searches every field.
type Term struct {
	Field  string
	Text   string
	Phrase bool
}

// Wildcard matches words against a pattern where * is any run of
// characters and ? is a single character.
type Wildcard struct {
	Field   string
	Pattern string
}

// Range matches values between two bounds. An empty bound is open.
// Numbers compare numerically, everything else lexically, which orders
// ISO-8601 timestamps correctly.
type Range struct {
	Field        string
	Lower, Upper string
	IncludeLower bool
	IncludeUpper bool
}

// Exists matches documents that have a non-null Field.
type Exists struct {
	Field string
}

// All matches every document.
type All struct{}

func (And) node()      {}
func (Or) node()       {}
func (Not) node()      {}
func (Term) node()     {}
func (Wildcard) node() {}
func (Range) node()    {}
func (Exists) node()   {}
func (All) node()      {}

// occur is a + or - prefix. It only lives during parsing.
type occur struct {
	must bool // false means must not
	x    Node
}

func (occur) node() {}
