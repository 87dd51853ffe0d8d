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
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const tabSize = 8

type tokenizer struct {
	filename   string
	src        string
	pos        int
	line       int
	lineStart  int
	indents    []int
	altIndents []int
	parenDepth int
	atBOL      bool
	tokens     []Token
}

// Tokenize splits src into tokens. Unless a bracket is left open the result
// always ends with NEWLINE (if src holds any statement), the DEDENTs closing
// open blocks and ENDMARKER. Errors are *SyntaxError values.
func Tokenize(filename, src string) ([]Token, error) {
	t := &tokenizer{
		filename:   filename,
		src:        strings.TrimPrefix(src, "\ufeff"),
		line:       1,
		indents:    []int{0},
		altIndents: []int{0},
		atBOL:      true,
	}
	if err := t.run(); err != nil {
		return nil, err
	}
	return t.tokens, nil
}

func (t *tokenizer) errorAt(kind ErrorKind, line, col int, format string, args ...interface{}) *SyntaxError {
	return newSyntaxError(kind, t.filename, t.src, line, col, fmt.Sprintf(format, args...))
}

func (t *tokenizer) col() int {
	return t.pos - t.lineStart
}

func (t *tokenizer) emit(kind TokenKind, value string, line, col int) {
	t.tokens = append(t.tokens, Token{Kind: kind, Value: value, Line: line, Col: col, EndLine: t.line, EndCol: t.col()})
}

func (t *tokenizer) newline() {
	t.line++
	t.lineStart = t.pos
}

// skipNewline consumes "\n", "\r\n" or "\r" at the current position.
func (t *tokenizer) skipNewline() {
	if t.src[t.pos] == '\r' {
		t.pos++
		if t.pos < len(t.src) && t.src[t.pos] == '\n' {
			t.pos++
		}
	} else {
		t.pos++
	}
	t.newline()
}

func isNewline(c byte) bool {
	return c == '\n' || c == '\r'
}

func (t *tokenizer) run() error {
	for {
		if t.atBOL && t.parenDepth == 0 {
			blank, err := t.indentation()
			if err != nil {
				return err
			}
			if blank {
				if t.pos >= len(t.src) {
					break
				}
				continue
			}
		}
		t.atBOL = false
		for t.pos < len(t.src) && (t.src[t.pos] == ' ' || t.src[t.pos] == '\t' || t.src[t.pos] == '\f') {
			t.pos++
		}
		if t.pos >= len(t.src) {
			break
		}
		line, col := t.line, t.col()
		c := t.src[t.pos]
		switch {
		case c == '#':
			for t.pos < len(t.src) && !isNewline(t.src[t.pos]) {
				t.pos++
			}
		case c == '\\':
			t.pos++
			if t.pos >= len(t.src) {
				return t.errorAt(KindSyntaxError, line, col, "unexpected EOF while parsing")
			}
			if !isNewline(t.src[t.pos]) {
				return t.errorAt(KindSyntaxError, line, col+1, "unexpected character after line continuation character")
			}
			t.skipNewline()
		case isNewline(c):
			if t.parenDepth > 0 {
				t.skipNewline()
				continue
			}
			t.pos++
			if c == '\r' && t.pos < len(t.src) && t.src[t.pos] == '\n' {
				t.pos++
			}
			t.tokens = append(t.tokens, Token{Kind: TokNewline, Value: "", Line: line, Col: col, EndLine: line, EndCol: col + 1})
			t.newline()
			t.atBOL = true
		case c == '"' || c == '\'':
			if err := t.string(line, col, false); err != nil {
				return err
			}
		case c >= '0' && c <= '9' || c == '.' && t.pos+1 < len(t.src) && t.src[t.pos+1] >= '0' && t.src[t.pos+1] <= '9':
			if err := t.number(line, col); err != nil {
				return err
			}
		case c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= utf8.RuneSelf:
			if err := t.name(line, col); err != nil {
				return err
			}
		default:
			if err := t.operator(line, col); err != nil {
				return err
			}
		}
	}
	if t.parenDepth > 0 {
		// An unclosed bracket ends the stream without a NEWLINE, so the
		// parser reports either the first bad token or the early EOF.
		t.emit(TokEndMarker, "", t.line, t.col())
		return nil
	}
	if n := len(t.tokens); n > 0 && t.tokens[n-1].Kind != TokNewline && t.tokens[n-1].Kind != TokDedent {
		t.tokens = append(t.tokens, Token{Kind: TokNewline, Line: t.line, Col: t.col(), EndLine: t.line, EndCol: t.col()})
	}
	for len(t.indents) > 1 {
		t.indents = t.indents[:len(t.indents)-1]
		t.altIndents = t.altIndents[:len(t.altIndents)-1]
		t.emit(TokDedent, "", t.line, t.col())
	}
	t.emit(TokEndMarker, "", t.line, t.col())
	return nil
}

// indentation measures the indentation of the line starting at t.pos and
// emits INDENT or DEDENT tokens. It reports whether the line is blank or a
// comment, in which case the whole line has been consumed.
func (t *tokenizer) indentation() (bool, error) {
	col, altCol := 0, 0
scan:
	for ; t.pos < len(t.src); t.pos++ {
		switch t.src[t.pos] {
		case ' ':
			col++
			altCol++
		case '\t':
			col = (col/tabSize + 1) * tabSize
			altCol++
		case '\f':
			col, altCol = 0, 0
		default:
			break scan
		}
	}
	if t.pos >= len(t.src) {
		return true, nil
	}
	if c := t.src[t.pos]; c == '#' || isNewline(c) {
		for t.pos < len(t.src) && !isNewline(t.src[t.pos]) {
			t.pos++
		}
		if t.pos < len(t.src) {
			t.skipNewline()
		}
		return true, nil
	}
	top := len(t.indents) - 1
	switch {
	case col == t.indents[top]:
		if altCol != t.altIndents[top] {
			return false, t.errorAt(KindTabError, t.line, -1, "inconsistent use of tabs and spaces in indentation")
		}
	case col > t.indents[top]:
		if altCol <= t.altIndents[top] {
			return false, t.errorAt(KindTabError, t.line, -1, "inconsistent use of tabs and spaces in indentation")
		}
		t.indents = append(t.indents, col)
		t.altIndents = append(t.altIndents, altCol)
		t.emit(TokIndent, t.src[t.lineStart:t.pos], t.line, 0)
	default:
		for top > 0 && col < t.indents[top] {
			t.indents = t.indents[:top]
			t.altIndents = t.altIndents[:top]
			top--
			t.emit(TokDedent, "", t.line, t.col())
		}
		if col != t.indents[top] {
			return false, t.errorAt(KindIndentationError, t.line, t.col(), "unindent does not match any outer indentation level")
		}
		if altCol != t.altIndents[top] {
			return false, t.errorAt(KindTabError, t.line, -1, "inconsistent use of tabs and spaces in indentation")
		}
	}
	return false, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.Is(unicode.Nl, r)
}

func isIdentContinue(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r) || unicode.In(r, unicode.Mn, unicode.Mc, unicode.Nd, unicode.Pc)
}

func (t *tokenizer) name(line, col int) error {
	start := t.pos
	ascii := true
	for t.pos < len(t.src) {
		r, size := utf8.DecodeRuneInString(t.src[t.pos:])
		if r >= utf8.RuneSelf {
			ascii = false
		}
		if t.pos == start && !isIdentStart(r) || t.pos > start && !isIdentContinue(r) {
			if t.pos == start {
				return t.errorAt(KindSyntaxError, line, col, "invalid character '%c' (U+%04X)", r, r)
			}
			break
		}
		t.pos += size
	}
	word := t.src[start:t.pos]
	if t.pos < len(t.src) && (t.src[t.pos] == '"' || t.src[t.pos] == '\'') {
		switch word {
		case "r", "R":
			return t.string(line, col, true)
		case "u", "U":
			return t.string(line, col, false)
		}
	}
	if !ascii {
		word = norm.NFKC.String(word)
	}
	kind := TokName
	if keywords[word] {
		kind = TokKeyword
	}
	t.emit(kind, word, line, col)
	return nil
}

func isDigitIn(c byte, base int) bool {
	switch base {
	case 2:
		return c == '0' || c == '1'
	case 8:
		return c >= '0' && c <= '7'
	case 16:
		return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
	}
	return c >= '0' && c <= '9'
}

// digits consumes a run of digits in base, allowing single underscores
// between digits.
func (t *tokenizer) digits(base int) bool {
	start := t.pos
	for t.pos < len(t.src) {
		c := t.src[t.pos]
		if c == '_' {
			if t.pos+1 >= len(t.src) || !isDigitIn(t.src[t.pos+1], base) {
				return false
			}
			t.pos++
			continue
		}
		if !isDigitIn(c, base) {
			break
		}
		t.pos++
	}
	return t.pos > start
}

func (t *tokenizer) number(line, col int) error {
	start := t.pos
	invalid := func() error {
		return t.errorAt(KindSyntaxError, line, col, "invalid syntax")
	}
	if t.src[t.pos] == '0' && t.pos+1 < len(t.src) {
		base := 0
		switch t.src[t.pos+1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			t.pos += 2
			if t.pos < len(t.src) && t.src[t.pos] == '_' {
				t.pos++
			}
			if !t.digits(base) {
				return t.errorAt(KindSyntaxError, line, col, "invalid %s literal", map[int]string{2: "binary", 8: "octal", 16: "hexadecimal"}[base])
			}
			return t.endNumber(line, col, start)
		}
	}
	isFloat := false
	if t.src[t.pos] != '.' {
		if !t.digits(10) {
			return invalid()
		}
	}
	if t.pos < len(t.src) && t.src[t.pos] == '.' {
		isFloat = true
		t.pos++
		if t.pos < len(t.src) && t.src[t.pos] >= '0' && t.src[t.pos] <= '9' && !t.digits(10) {
			return invalid()
		}
	}
	if t.pos < len(t.src) && (t.src[t.pos] == 'e' || t.src[t.pos] == 'E') {
		isFloat = true
		t.pos++
		if t.pos < len(t.src) && (t.src[t.pos] == '+' || t.src[t.pos] == '-') {
			t.pos++
		}
		if !t.digits(10) {
			return invalid()
		}
	}
	lit := t.src[start:t.pos]
	if !isFloat && len(lit) > 1 && lit[0] == '0' && strings.Trim(lit, "0_") != "" {
		return t.errorAt(KindSyntaxError, line, col, "leading zeros in decimal integer literals are not permitted; use an 0o prefix for octal integers")
	}
	return t.endNumber(line, col, start)
}

func (t *tokenizer) endNumber(line, col, start int) error {
	if t.pos < len(t.src) {
		r, _ := utf8.DecodeRuneInString(t.src[t.pos:])
		if r == 'j' || r == 'J' {
			return t.errorAt(KindSyntaxError, line, col, "imaginary literals are not supported")
		}
		if isIdentContinue(r) {
			return t.errorAt(KindSyntaxError, line, col, "invalid syntax")
		}
	}
	t.emit(TokNumber, t.src[start:t.pos], line, col)
	return nil
}

func (t *tokenizer) string(line, col int, raw bool) error {
	quote := t.src[t.pos]
	triple := strings.HasPrefix(t.src[t.pos:], strings.Repeat(string(quote), 3))
	if triple {
		t.pos += 3
	} else {
		t.pos++
	}
	var b strings.Builder
	for {
		if t.pos >= len(t.src) {
			if triple {
				return t.errorAt(KindSyntaxError, line, col, "EOF while scanning triple-quoted string literal")
			}
			return t.errorAt(KindSyntaxError, line, t.col(), "EOL while scanning string literal")
		}
		c := t.src[t.pos]
		switch {
		case c == quote && (!triple || strings.HasPrefix(t.src[t.pos:], strings.Repeat(string(quote), 3))):
			if triple {
				t.pos += 3
			} else {
				t.pos++
			}
			t.emit(TokString, b.String(), line, col)
			return nil
		case isNewline(c):
			if !triple {
				return t.errorAt(KindSyntaxError, t.line, t.col(), "EOL while scanning string literal")
			}
			t.skipNewline()
			b.WriteByte('\n')
		case c == '\\':
			if err := t.escape(&b, raw); err != nil {
				return err
			}
		default:
			b.WriteByte(c)
			t.pos++
		}
	}
}

var simpleEscapes = map[byte]byte{
	'\\': '\\', '\'': '\'', '"': '"', 'a': '\a', 'b': '\b',
	'f': '\f', 'n': '\n', 'r': '\r', 't': '\t', 'v': '\v',
}

// escape decodes the escape sequence starting at the backslash at t.pos.
func (t *tokenizer) escape(b *strings.Builder, raw bool) error {
	line, col := t.line, t.col()
	t.pos++
	if t.pos >= len(t.src) {
		return nil
	}
	c := t.src[t.pos]
	if isNewline(c) {
		if raw {
			b.WriteByte('\\')
			b.WriteByte('\n')
		}
		t.skipNewline()
		return nil
	}
	if raw {
		b.WriteByte('\\')
		b.WriteByte(c)
		t.pos++
		return nil
	}
	if r, ok := simpleEscapes[c]; ok {
		b.WriteByte(r)
		t.pos++
		return nil
	}
	hex := func(n int, what string) error {
		t.pos++
		if t.pos+n > len(t.src) {
			return t.errorAt(KindSyntaxError, line, col, "(unicode error) truncated %s escape", what)
		}
		v, err := strconv.ParseUint(t.src[t.pos:t.pos+n], 16, 32)
		if err != nil {
			return t.errorAt(KindSyntaxError, line, col, "(unicode error) truncated %s escape", what)
		}
		if v > unicode.MaxRune {
			return t.errorAt(KindSyntaxError, line, col, "(unicode error) illegal Unicode character")
		}
		b.WriteRune(rune(v))
		t.pos += n
		return nil
	}
	switch {
	case c >= '0' && c <= '7':
		v := 0
		for n := 0; n < 3 && t.pos < len(t.src) && t.src[t.pos] >= '0' && t.src[t.pos] <= '7'; n++ {
			v = v*8 + int(t.src[t.pos]-'0')
			t.pos++
		}
		b.WriteRune(rune(v))
		return nil
	case c == 'x':
		return hex(2, "\\xXX")
	case c == 'u':
		return hex(4, "\\uXXXX")
	case c == 'U':
		return hex(8, "\\UXXXXXXXX")
	}
	b.WriteByte('\\')
	return nil
}

func (t *tokenizer) operator(line, col int) error {
	for n := 3; n >= 1; n-- {
		if t.pos+n > len(t.src) {
			continue
		}
		op := t.src[t.pos : t.pos+n]
		if !operators[n][op] {
			continue
		}
		t.pos += n
		switch op {
		case "(", "[", "{":
			t.parenDepth++
		case ")", "]", "}":
			if t.parenDepth > 0 {
				t.parenDepth--
			}
		}
		t.emit(TokOp, op, line, col)
		return nil
	}
	r, _ := utf8.DecodeRuneInString(t.src[t.pos:])
	if r < utf8.RuneSelf && unicode.IsPrint(r) {
		return t.errorAt(KindSyntaxError, line, col, "invalid syntax")
	}
	return t.errorAt(KindSyntaxError, line, col, "invalid character '%c' (U+%04X)", r, r)
}
