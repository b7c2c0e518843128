package query

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Match reports whether doc, a decoded JSON object, satisfies n. A nil
// node matches everything.
func Match(n Node, doc map[string]any) bool {
	switch t := n.(type) {
	case nil, All:
		return true
	case And:
		return Match(t.Left, doc) && Match(t.Right, doc)
	case Or:
		return Match(t.Left, doc) || Match(t.Right, doc)
	case Not:
		return !Match(t.X, doc)
	case occur:
		return Match(resolve(t), doc)
	case Term:
		return anyValue(doc, t.Field, func(v any) bool { return matchTerm(v, t) })
	case Wildcard:
		re := wildcardRegexp(t.Pattern)
		return anyValue(doc, t.Field, func(v any) bool { return matchWildcard(v, re) })
	case Range:
		return anyValue(doc, t.Field, func(v any) bool { return inRange(v, t) })
	case Exists:
		v, ok := lookup(doc, t.Field)
		return ok && v != nil
	}
	return false
}

// anyValue applies fn to the scalar values of field, or to every scalar in
// doc when field is empty. Arrays are flattened.
func anyValue(doc map[string]any, field string, fn func(any) bool) bool {
	if field == "" {
		found := false
		walk(doc, func(v any) {
			found = found || fn(v)
		})
		return found
	}
	v, ok := lookup(doc, field)
	if !ok {
		return false
	}
	found := false
	walk(v, func(v any) {
		found = found || fn(v)
	})
	return found
}

// lookup resolves a field name, trying the literal key before treating
// dots as object nesting.
func lookup(doc map[string]any, field string) (any, bool) {
	if v, ok := doc[field]; ok {
		return v, true
	}
	var cur any = doc
	for _, part := range strings.Split(field, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func walk(v any, fn func(any)) {
	switch t := v.(type) {
	case map[string]any:
		for _, child := range t {
			walk(child, fn)
		}
	case []any:
		for _, child := range t {
			walk(child, fn)
		}
	default:
		fn(t)
	}
}

// matchTerm compares a term with one value. Strings match when the whole
// value or one of its words equals the term; phrases match a run of
// consecutive words. Other values compare by their JSON text.
func matchTerm(v any, t Term) bool {
	s, ok := v.(string)
	if !ok {
		return v != nil && strings.EqualFold(scalar(v), t.Text)
	}
	if strings.EqualFold(s, t.Text) {
		return true
	}
	want := words(t.Text)
	if len(want) == 0 {
		return false
	}
	have := words(s)
	for i := 0; i+len(want) <= len(have); i++ {
		if equalWords(have[i:i+len(want)], want) {
			return true
		}
	}
	return false
}

func equalWords(a, b []string) bool {
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

// words splits text the way a simple analyzer would. Dots, dashes,
// underscores and @ stay inside words so that hosts, ids and addresses
// survive whole.
func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("_-.@", r))
	})
}

func wildcardRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

func matchWildcard(v any, re *regexp.Regexp) bool {
	s := scalar(v)
	if re.MatchString(s) {
		return true
	}
	if _, ok := v.(string); !ok {
		return false
	}
	for _, w := range words(s) {
		if re.MatchString(w) {
			return true
		}
	}
	return false
}

func inRange(v any, r Range) bool {
	if v == nil {
		return false
	}
	s := scalar(v)
	if r.Lower != "" {
		c := compare(s, r.Lower)
		if c < 0 || (c == 0 && !r.IncludeLower) {
			return false
		}
	}
	if r.Upper != "" {
		c := compare(s, r.Upper)
		if c > 0 || (c == 0 && !r.IncludeUpper) {
			return false
		}
	}
	return true
}

// compare orders numerically when both sides are numbers.
func compare(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

// scalar renders a decoded JSON scalar as it appears in the source.
func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	}
	return fmt.Sprint(v)
}
