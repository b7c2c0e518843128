package query

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Parse parses a query string. An empty or blank query yields nil, which
// Match treats as matching everything.
func Parse(q string) (Node, error) {
	if strings.TrimSpace(q) == "" {
		return nil, nil
	}
	p := &parser{sc: scanner{src: q}}
	p.advance()
	n, err := p.clauses()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != kindEOF {
		return nil, p.unexpected()
	}
	return n, nil
}

type parser struct {
	sc    scanner
	tok   token
	field string // default field inside field:( ... )
}

func (p *parser) advance() {
	p.tok = p.sc.next()
}

func (p *parser) unexpected() error {
	if p.tok.kind == kindIllegal {
		return errors.Newf("query: %s at offset %d", p.tok.text, p.tok.pos)
	}
	if p.tok.kind == kindEOF {
		return errors.New("query: unexpected end of query")
	}
	return errors.Newf("query: unexpected %s %q at offset %d", p.tok.kind, p.tok.text, p.tok.pos)
}

func (p *parser) startsClause() bool {
	switch p.tok.kind {
	case kindWord, kindPhrase, kindLParen, kindNot, kindMust, kindMustNot:
		return true
	}
	return false
}

// clauses parses adjacent clauses up to ')' or the end and folds them:
// +clauses must all match, -clauses must not match, and the rest are OR-ed
// unless a +clause is present.
func (p *parser) clauses() (Node, error) {
	var must, mustNot, should []Node
	for p.startsClause() {
		n, err := p.or()
		if err != nil {
			return nil, err
		}
		if o, ok := n.(occur); ok {
			if o.must {
				must = append(must, o.x)
			} else {
				mustNot = append(mustNot, o.x)
			}
			continue
		}
		should = append(should, resolve(n))
	}
	if len(must)+len(mustNot)+len(should) == 0 {
		return nil, p.unexpected()
	}

	var n Node
	switch {
	case len(must) > 0:
		n = fold(must, func(l, r Node) Node { return And{l, r} })
	case len(should) > 0:
		n = fold(should, func(l, r Node) Node { return Or{l, r} })
	default:
		n = All{}
	}
	for _, x := range mustNot {
		n = And{n, Not{x}}
	}
	return n, nil
}

func fold(ns []Node, join func(l, r Node) Node) Node {
	n := ns[0]
	for _, next := range ns[1:] {
		n = join(n, next)
	}
	return n
}

// resolve turns +x into x and -x into NOT x below the top of a clause list,
// where they have no required/prohibited meaning of their own.
func resolve(n Node) Node {
	switch t := n.(type) {
	case occur:
		if t.must {
			return resolve(t.x)
		}
		return Not{resolve(t.x)}
	case And:
		return And{resolve(t.Left), resolve(t.Right)}
	case Or:
		return Or{resolve(t.Left), resolve(t.Right)}
	case Not:
		return Not{resolve(t.X)}
	}
	return n
}

func (p *parser) or() (Node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == kindOr {
		p.advance()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = Or{resolve(left), resolve(right)}
	}
	return left, nil
}

func (p *parser) and() (Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == kindAnd {
		p.advance()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = And{resolve(left), resolve(right)}
	}
	return left, nil
}

func (p *parser) unary() (Node, error) {
	switch p.tok.kind {
	case kindNot:
		p.advance()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return Not{resolve(x)}, nil
	case kindMust, kindMustNot:
		must := p.tok.kind == kindMust
		p.advance()
		x, err := p.primary()
		if err != nil {
			return nil, err
		}
		return occur{must: must, x: x}, nil
	}
	return p.primary()
}

func (p *parser) primary() (Node, error) {
	switch p.tok.kind {
	case kindLParen:
		return p.group()
	case kindPhrase:
		text := p.tok.text
		p.advance()
		return Term{Field: p.field, Text: text, Phrase: true}, nil
	case kindWord:
		word := p.tok.text
		p.advance()
		if p.tok.kind != kindColon {
			return p.term(p.field, word), nil
		}
		p.advance()
		if word == "_exists_" {
			if p.tok.kind != kindWord {
				return nil, p.unexpected()
			}
			f := p.tok.text
			p.advance()
			return Exists{Field: f}, nil
		}
		return p.value(word)
	}
	return nil, p.unexpected()
}

func (p *parser) group() (Node, error) {
	p.advance() // (
	n, err := p.clauses()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != kindRParen {
		return nil, p.unexpected()
	}
	p.advance()
	return n, nil
}

// value parses what follows "field:".
func (p *parser) value(field string) (Node, error) {
	switch p.tok.kind {
	case kindWord:
		word := p.tok.text
		p.advance()
		return p.term(field, word), nil
	case kindPhrase:
		text := p.tok.text
		p.advance()
		return Term{Field: field, Text: text, Phrase: true}, nil
	case kindLParen:
		saved := p.field
		p.field = field
		defer func() { p.field = saved }()
		return p.group()
	case kindRangeOpen:
		return p.rangeClause(field)
	case kindCompare:
		op := p.tok.text
		p.advance()
		bound, err := p.bound()
		if err != nil {
			return nil, err
		}
		r := Range{Field: field}
		switch op {
		case ">":
			r.Lower = bound
		case ">=":
			r.Lower, r.IncludeLower = bound, true
		case "<":
			r.Upper = bound
		case "<=":
			r.Upper, r.IncludeUpper = bound, true
		}
		return r, nil
	}
	return nil, p.unexpected()
}

func (p *parser) term(field, word string) Node {
	switch {
	case word == "*" && field == "":
		return All{}
	case word == "*":
		return Exists{Field: field}
	case strings.ContainsAny(word, "*?"):
		return Wildcard{Field: field, Pattern: word}
	}
	return Term{Field: field, Text: word}
}

// rangeClause parses [lower TO upper] with either bracket kind at each end.
func (p *parser) rangeClause(field string) (Node, error) {
	r := Range{Field: field, IncludeLower: p.tok.text == "["}
	p.advance()
	var err error
	if r.Lower, err = p.bound(); err != nil {
		return nil, err
	}
	if p.tok.kind != kindWord || p.tok.text != "TO" {
		return nil, p.unexpected()
	}
	p.advance()
	if r.Upper, err = p.bound(); err != nil {
		return nil, err
	}
	if p.tok.kind != kindRangeClose {
		return nil, p.unexpected()
	}
	r.IncludeUpper = p.tok.text == "]"
	p.advance()
	return r, nil
}

// bound reads a range bound. "*" is open and yields "".
func (p *parser) bound() (string, error) {
	neg := ""
	if p.tok.kind == kindMustNot {
		neg = "-"
		p.advance()
	}
	if p.tok.kind != kindWord && p.tok.kind != kindPhrase {
		return "", p.unexpected()
	}
	text := neg + p.tok.text
	p.advance()
	if text == "*" {
		return "", nil
	}
	return text, nil
}
