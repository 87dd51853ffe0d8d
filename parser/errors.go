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
	"strings"
	"unicode/utf8"
)

// ErrorKind names the Python exception class a SyntaxError maps to.
type ErrorKind int

// Error kinds.
const (
	KindSyntaxError ErrorKind = iota
	KindIndentationError
	KindTabError
)

func (k ErrorKind) String() string {
	switch k {
	case KindIndentationError:
		return "IndentationError"
	case KindTabError:
		return "TabError"
	}
	return "SyntaxError"
}

// SyntaxError describes source that could not be tokenized or parsed.
type SyntaxError struct {
	Kind     ErrorKind
	Msg      string
	Filename string
	Lineno   int
	// Offset is the 1-based character column of the error, or 0 when no
	// column is known.
	Offset int
	// Text is the offending source line including its line ending, if any.
	Text string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s (%s, line %d)", e.Msg, e.Filename, e.Lineno)
}

// sourceLine returns line lineno (1-based) of src including its newline.
func sourceLine(src string, lineno int) string {
	for i := 1; i < lineno; i++ {
		j := strings.IndexByte(src, '\n')
		if j < 0 {
			return ""
		}
		src = src[j+1:]
	}
	if j := strings.IndexByte(src, '\n'); j >= 0 {
		return src[:j+1]
	}
	return src
}

// newSyntaxError builds an error located at the 0-based byte column col of
// line lineno. A negative col leaves the offset unknown.
func newSyntaxError(kind ErrorKind, filename, src string, lineno, col int, msg string) *SyntaxError {
	text := sourceLine(src, lineno)
	offset := 0
	if col >= 0 {
		if col > len(text) {
			col = len(text)
		}
		offset = utf8.RuneCountInString(text[:col]) + 1
	}
	return &SyntaxError{Kind: kind, Msg: msg, Filename: filename, Lineno: lineno, Offset: offset, Text: text}
}
