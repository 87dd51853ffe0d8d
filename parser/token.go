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
)

// TokenKind classifies a Token.
type TokenKind int

// Token kinds produced by Tokenize.
const (
	TokEndMarker TokenKind = iota
	TokName
	TokKeyword
	TokNumber
	TokString
	TokNewline
	TokIndent
	TokDedent
	TokOp
)

var tokenKindNames = []string{
	TokEndMarker: "ENDMARKER",
	TokName:      "NAME",
	TokKeyword:   "KEYWORD",
	TokNumber:    "NUMBER",
	TokString:    "STRING",
	TokNewline:   "NEWLINE",
	TokIndent:    "INDENT",
	TokDedent:    "DEDENT",
	TokOp:        "OP",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is a lexical token. For names, keywords and operators Value is the
// token text, for numbers it is the literal as written and for strings it is
// the decoded value.
type Token struct {
	Kind  TokenKind
	Value string
	// Line is 1-based and Col is a 0-based byte offset into the line.
	Line, Col       int
	EndLine, EndCol int
}

func (t Token) String() string {
	switch t.Kind {
	case TokName, TokKeyword, TokNumber, TokOp:
		return fmt.Sprintf("%s %q", t.Kind, t.Value)
	case TokString:
		return fmt.Sprintf("STRING %q", t.Value)
	}
	return t.Kind.String()
}

var keywords = map[string]bool{
	"False":    true,
	"None":     true,
	"True":     true,
	"and":      true,
	"as":       true,
	"assert":   true,
	"async":    true,
	"await":    true,
	"break":    true,
	"class":    true,
	"continue": true,
	"def":      true,
	"del":      true,
	"elif":     true,
	"else":     true,
	"except":   true,
	"finally":  true,
	"for":      true,
	"from":     true,
	"global":   true,
	"if":       true,
	"import":   true,
	"in":       true,
	"is":       true,
	"lambda":   true,
	"nonlocal": true,
	"not":      true,
	"or":       true,
	"pass":     true,
	"raise":    true,
	"return":   true,
	"try":      true,
	"while":    true,
	"with":     true,
	"yield":    true,
}

// IsKeyword reports whether s is a reserved word.
func IsKeyword(s string) bool {
	return keywords[s]
}

// operators holds every operator and delimiter, grouped by length so the
// tokenizer can match the longest one first.
var operators = [...]map[string]bool{
	3: {"**=": true, "//=": true, ">>=": true, "<<=": true, "...": true},
	2: {
		"!=": true, "%=": true, "&=": true, "**": true, "*=": true, "+=": true,
		"-=": true, "->": true, "//": true, "/=": true, ":=": true, "<<": true,
		"<=": true, "==": true, ">=": true, ">>": true, "@=": true, "^=": true,
		"|=": true,
	},
	1: {
		"%": true, "&": true, "(": true, ")": true, "*": true, "+": true,
		",": true, "-": true, ".": true, "/": true, ":": true, ";": true,
		"<": true, "=": true, ">": true, "@": true, "[": true, "]": true,
		"^": true, "{": true, "|": true, "}": true, "~": true,
	},
}
