package query

import (
	"reflect"
	"testing"
)

func TestScanner(t *testing.T) {
	tests := []struct {
		input string
		kinds []kind
	}{
		{"level:INFO", []kind{kindWord, kindColon, kindWord, kindEOF}},
		{`message:"Hello World"`, []kind{kindWord, kindColon, kindPhrase, kindEOF}},
		{"a AND b OR NOT c", []kind{kindWord, kindAnd, kindWord, kindOr, kindNot, kindWord, kindEOF}},
		{"a && b || !c", []kind{kindWord, kindAnd, kindWord, kindOr, kindNot, kindWord, kindEOF}},
		{"+a -b", []kind{kindMust, kindWord, kindMustNot, kindWord, kindEOF}},
		{"code:[200 TO 299}", []kind{kindWord, kindColon, kindRangeOpen, kindWord, kindWord, kindWord, kindRangeClose, kindEOF}},
		{"code:>=500", []kind{kindWord, kindColon, kindCompare, kindWord, kindEOF}},
		{"host:logs-generic-5-3-2024", []kind{kindWord, kindColon, kindWord, kindEOF}},
		{`"open`, []kind{kindIllegal}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			sc := scanner{src: tt.input}
			for i, want := range tt.kinds {
				tok := sc.next()
				if tok.kind != want {
					t.Fatalf("token %d: expected %s, got %s (%q)", i, want, tok.kind, tok.text)
				}
			}
		})
	}
}

func TestScannerEscapes(t *testing.T) {
	sc := scanner{src: `"say \"hi\"" path\:x`}
	if tok := sc.next(); tok.kind != kindPhrase || tok.text != `say "hi"` {
		t.Fatalf("phrase: got %s %q", tok.kind, tok.text)
	}
	if tok := sc.next(); tok.kind != kindWord || tok.text != "path:x" {
		t.Fatalf("word: got %s %q", tok.kind, tok.text)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Node
	}{
		{"", nil},
		{"   ", nil},
		{"*", All{}},
		{"level:INFO", Term{Field: "level", Text: "INFO"}},
		{`message:"Hello World"`, Term{Field: "message", Text: "Hello World", Phrase: true}},
		{"timeout", Term{Text: "timeout"}},
		{"user:*", Exists{Field: "user"}},
		{"_exists_:user", Exists{Field: "user"}},
		{"host:web-*", Wildcard{Field: "host", Pattern: "web-*"}},
		{"a b", Or{Term{Text: "a"}, Term{Text: "b"}}},
		{"a OR b AND c", Or{Term{Text: "a"}, And{Term{Text: "b"}, Term{Text: "c"}}}},
		{"NOT level:INFO", Not{Term{Field: "level", Text: "INFO"}}},
		{"level:(ERROR OR WARN)", Or{Term{Field: "level", Text: "ERROR"}, Term{Field: "level", Text: "WARN"}}},
		{"+a b -c", And{Term{Text: "a"}, Not{Term{Text: "c"}}}},
		{"-c", And{All{}, Not{Term{Text: "c"}}}},
		{"+a AND -b", And{Term{Text: "a"}, Not{Term{Text: "b"}}}},
		{"code:[200 TO 299}", Range{Field: "code", Lower: "200", Upper: "299", IncludeLower: true}},
		{"code:{* TO 0]", Range{Field: "code", Upper: "0", IncludeUpper: true}},
		{"temp:[-5 TO 5]", Range{Field: "temp", Lower: "-5", Upper: "5", IncludeLower: true, IncludeUpper: true}},
		{"code:>=500", Range{Field: "code", Lower: "500", IncludeLower: true}},
		{"code:<300", Range{Field: "code", Upper: "300"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q)\n got %#v\nwant %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{
		"(level:INFO",
		"level:INFO)",
		"level:",
		"AND a",
		"a OR",
		`message:"open`,
		"code:[1 5]",
		"code:[1 TO 5",
		"_exists_:",
		"()",
	} {
		if _, err := Parse(input); err == nil {
			t.Errorf("Parse(%q): expected error", input)
		}
	}
}
