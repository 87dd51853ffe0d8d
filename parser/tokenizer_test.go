// Copyright 2016 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package parser

import (
	"reflect"
	"testing"
)

func kinds(tokens []Token) []TokenKind {
	var result []TokenKind
	for _, t := range tokens {
		result = append(result, t.Kind)
	}
	return result
}

func TestTokenizeKinds(t *testing.T) {
	cases := []struct {
		src  string
		want []TokenKind
	}{
		{"", []TokenKind{TokEndMarker}},
		{"x", []TokenKind{TokName, TokNewline, TokEndMarker}},
		{"x = 1\n", []TokenKind{TokName, TokOp, TokNumber, TokNewline, TokEndMarker}},
		{"if x:\n  y\n", []TokenKind{TokKeyword, TokName, TokOp, TokNewline, TokIndent, TokName, TokNewline, TokDedent, TokEndMarker}},
		{"# comment\n\n   \nx\n", []TokenKind{TokName, TokNewline, TokEndMarker}},
		{"(1,\n 2)\n", []TokenKind{TokOp, TokNumber, TokOp, TokNumber, TokOp, TokNewline, TokEndMarker}},
		{"x = 1 + \\\n  2\n", []TokenKind{TokName, TokOp, TokNumber, TokOp, TokNumber, TokNewline, TokEndMarker}},
		{"if a:\n  if b:\n    c\nd\n", []TokenKind{
			TokKeyword, TokName, TokOp, TokNewline, TokIndent,
			TokKeyword, TokName, TokOp, TokNewline, TokIndent,
			TokName, TokNewline, TokDedent, TokDedent, TokName, TokNewline, TokEndMarker}},
		{"a **= b // c", []TokenKind{TokName, TokOp, TokName, TokOp, TokName, TokNewline, TokEndMarker}},
		{"x = (1,\n", []TokenKind{TokName, TokOp, TokOp, TokNumber, TokOp, TokEndMarker}},
		{"def f(:\n", []TokenKind{TokKeyword, TokName, TokOp, TokOp, TokEndMarker}},
	}
	for _, cas := range cases {
		tokens, err := Tokenize("<test>", cas.src)
		if err != nil {
			t.Errorf("Tokenize(%q) failed: %v", cas.src, err)
			continue
		}
		if got := kinds(tokens); !reflect.DeepEqual(got, cas.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", cas.src, got, cas.want)
		}
	}
}

func TestTokenizeValues(t *testing.T) {
	cases := []struct {
		src  string
		want Token
	}{
		{`'abc'`, Token{Kind: TokString, Value: "abc"}},
		{`"a\tb\x41\u00e9\101"`, Token{Kind: TokString, Value: "a\tbAéA"}},
		{`r'a\nb'`, Token{Kind: TokString, Value: `a\nb`}},
		{`'''one
two'''`, Token{Kind: TokString, Value: "one\ntwo"}},
		{`'\q'`, Token{Kind: TokString, Value: `\q`}},
		{"0x_ff", Token{Kind: TokNumber, Value: "0x_ff"}},
		{"1_000.5e-3", Token{Kind: TokNumber, Value: "1_000.5e-3"}},
		{".5", Token{Kind: TokNumber, Value: ".5"}},
		{"ﬁle", Token{Kind: TokName, Value: "file"}},
		{"lambda", Token{Kind: TokKeyword, Value: "lambda"}},
		{"...", Token{Kind: TokOp, Value: "..."}},
	}
	for _, cas := range cases {
		tokens, err := Tokenize("<test>", cas.src)
		if err != nil {
			t.Errorf("Tokenize(%q) failed: %v", cas.src, err)
			continue
		}
		got := tokens[0]
		if got.Kind != cas.want.Kind || got.Value != cas.want.Value {
			t.Errorf("Tokenize(%q)[0] = %v, want %v", cas.src, got, cas.want)
		}
	}
}

func TestTokenizePositions(t *testing.T) {
	tokens, err := Tokenize("<test>", "a = (b\n     + c)\n")
	if err != nil {
		t.Fatal(err)
	}
	c := tokens[5]
	if c.Value != "c" || c.Line != 2 || c.Col != 7 {
		t.Errorf("token %v at %d:%d, want c at 2:7", c, c.Line, c.Col)
	}
}

func TestTokenizeErrors(t *testing.T) {
	cases := []struct {
		src    string
		kind   ErrorKind
		msg    string
		lineno int
	}{
		{"'abc\n", KindSyntaxError, "EOL while scanning string literal", 1},
		{"x = '''abc\n\n", KindSyntaxError, "EOF while scanning triple-quoted string literal", 1},
		{"if x:\n    a\n  b\n", KindIndentationError, "unindent does not match any outer indentation level", 3},
		{"if x:\n        a\n\tb\n", KindTabError, "inconsistent use of tabs and spaces in indentation", 3},
		{"x = 1 \\ 2\n", KindSyntaxError, "unexpected character after line continuation character", 1},
		{"x = 0123\n", KindSyntaxError, "leading zeros in decimal integer literals are not permitted; use an 0o prefix for octal integers", 1},
		{"x = 1j\n", KindSyntaxError, "imaginary literals are not supported", 1},
		{"x = a€\n", KindSyntaxError, "invalid character '€' (U+20AC)", 1},
		{"x = $\n", KindSyntaxError, "invalid syntax", 1},
		{"0b2\n", KindSyntaxError, "invalid binary literal", 1},
	}
	for _, cas := range cases {
		_, err := Tokenize("<test>", cas.src)
		se, ok := err.(*SyntaxError)
		if !ok {
			t.Errorf("Tokenize(%q) error = %v, want *SyntaxError", cas.src, err)
			continue
		}
		if se.Kind != cas.kind || se.Msg != cas.msg || se.Lineno != cas.lineno {
			t.Errorf("Tokenize(%q) error = %v %q line %d, want %v %q line %d", cas.src, se.Kind, se.Msg, se.Lineno, cas.kind, cas.msg, cas.lineno)
		}
	}
}
