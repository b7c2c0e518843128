package query

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type kind int

const (
	kindEOF kind = iota
	kindIllegal
	kindWord
	kindPhrase
	kindColon
	kindLParen
	kindRParen
	kindRangeOpen  // [ or {
	kindRangeClose // ] or }
	kindCompare    // > >= < <=
	kindAnd
	kindOr
	kindNot
	kindMust
	kindMustNot
)

var kindNames = [...]string{
	kindEOF:        "end of query",
	kindIllegal:    "illegal input",
	kindWord:       "term",
	kindPhrase:     "phrase",
	kindColon:      "':'",
	kindLParen:     "'('",
	kindRParen:     "')'",
	kindRangeOpen:  "range start",
	kindRangeClose: "range end",
	kindCompare:    "comparison",
	kindAnd:        "AND",
	kindOr:         "OR",
	kindNot:        "NOT",
	kindMust:       "'+'",
	kindMustNot:    "'-'",
}

func (k kind) String() string { return kindNames[k] }

type token struct {
	kind kind
	text string
	pos  int
}

// scanner splits a query string into tokens.
type scanner struct {
	src string
	off int
}

const specials = `():[]{}"`

func (s *scanner) next() token {
	for s.off < len(s.src) {
		r, w := utf8.DecodeRuneInString(s.src[s.off:])
		if !unicode.IsSpace(r) {
			break
		}
		s.off += w
	}
	start := s.off
	if start >= len(s.src) {
		return token{kind: kindEOF, pos: start}
	}

	tok := func(k kind, n int) token {
		s.off += n
		return token{kind: k, text: s.src[start:s.off], pos: start}
	}
	rest := s.src[start:]
	switch c := rest[0]; {
	case c == '(':
		return tok(kindLParen, 1)
	case c == ')':
		return tok(kindRParen, 1)
	case c == ':':
		return tok(kindColon, 1)
	case c == '[' || c == '{':
		return tok(kindRangeOpen, 1)
	case c == ']' || c == '}':
		return tok(kindRangeClose, 1)
	case c == '"':
		return s.phrase()
	case strings.HasPrefix(rest, "&&"):
		return tok(kindAnd, 2)
	case strings.HasPrefix(rest, "||"):
		return tok(kindOr, 2)
	case c == '!':
		return tok(kindNot, 1)
	case c == '+':
		return tok(kindMust, 1)
	case c == '-':
		return tok(kindMustNot, 1)
	case strings.HasPrefix(rest, ">=") || strings.HasPrefix(rest, "<="):
		return tok(kindCompare, 2)
	case c == '>' || c == '<':
		return tok(kindCompare, 1)
	}
	return s.word()
}

// word reads up to whitespace or a special character. A backslash escapes
// the next character.
func (s *scanner) word() token {
	start := s.off
	var b strings.Builder
	for s.off < len(s.src) {
		r, w := utf8.DecodeRuneInString(s.src[s.off:])
		if r == '\\' && s.off+w < len(s.src) {
			r2, w2 := utf8.DecodeRuneInString(s.src[s.off+w:])
			b.WriteRune(r2)
			s.off += w + w2
			continue
		}
		if unicode.IsSpace(r) || strings.ContainsRune(specials, r) {
			break
		}
		b.WriteRune(r)
		s.off += w
	}
	text := b.String()
	switch text {
	case "AND":
		return token{kind: kindAnd, text: text, pos: start}
	case "OR":
		return token{kind: kindOr, text: text, pos: start}
	case "NOT":
		return token{kind: kindNot, text: text, pos: start}
	}
	return token{kind: kindWord, text: text, pos: start}
}

func (s *scanner) phrase() token {
	start := s.off
	s.off++
	var b strings.Builder
	for s.off < len(s.src) {
		c := s.src[s.off]
		switch {
		case c == '"':
			s.off++
			return token{kind: kindPhrase, text: b.String(), pos: start}
		case c == '\\' && s.off+1 < len(s.src):
			b.WriteByte(s.src[s.off+1])
			s.off += 2
		default:
			b.WriteByte(c)
			s.off++
		}
	}
	return token{kind: kindIllegal, text: "unterminated phrase", pos: start}
}
