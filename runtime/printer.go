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

package pycore

import (
	"fmt"
	"io"
	"os"
	"strings"

	"fortio.org/safecast"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

const (
	causeMessage   = "\nThe above exception was the direct cause of the following exception:\n\n"
	contextMessage = "\nDuring handling of the above exception, another exception occurred:\n\n"

	// tracebackRepeatCutoff is how many identical consecutive entries are
	// shown before the rest are summarized.
	tracebackRepeatCutoff = 3
	defaultTracebackLimit = 1000
)

// excPrinter formats tracebacks and exceptions for an interpreter's error
// stream.
type excPrinter struct {
	w      io.Writer
	banner *color.Color
	name   *color.Color
	limit  int
}

func newExcPrinter(interp *InterpreterState, w io.Writer) *excPrinter {
	p := &excPrinter{
		w:      w,
		banner: color.New(color.Bold),
		name:   color.New(color.FgRed, color.Bold),
		limit:  defaultTracebackLimit,
	}
	if p.w == nil {
		p.w = os.Stderr
	}
	if interp != nil && interp.config != nil && interp.config.Color {
		p.banner.EnableColor()
		p.name.EnableColor()
	} else {
		p.banner.DisableColor()
		p.name.DisableColor()
	}
	if interp != nil {
		if l := interp.sysObject("tracebacklimit"); l != nil && l.isInstance(IntType) {
			n, err := safecast.Conv[int](toIntUnsafe(l).Value())
			if err == nil {
				p.limit = n
			}
		}
	}
	return p
}

func (p *excPrinter) write(s string) {
	// Diagnostics have nowhere else to go when the error stream fails.
	_, _ = io.WriteString(p.w, s)
}

// printTraceback formats the entries of tb, outermost first, keeping only
// the innermost limit entries and collapsing long runs of identical entries.
func (p *excPrinter) printTraceback(b *strings.Builder, tb *Traceback) {
	if p.limit <= 0 {
		return
	}
	depth := 0
	for t := tb; t != nil; t = t.next {
		depth++
	}
	for depth > p.limit {
		tb = tb.next
		depth--
	}
	b.WriteString(p.banner.Sprint("Traceback (most recent call last):"))
	b.WriteString("\n")
	var lastFile, lastName string
	lastLine, repeated := -1, 0
	flushRepeated := func() {
		if repeated > tracebackRepeatCutoff {
			n := repeated - tracebackRepeatCutoff
			suffix := "s"
			if n == 1 {
				suffix = ""
			}
			fmt.Fprintf(b, "  [Previous line repeated %d more time%s]\n", n, suffix)
		}
	}
	for ; tb != nil; tb = tb.next {
		file, name := "<unknown>", "<unknown>"
		code := tb.frame.code
		if code != nil {
			file, name = code.filename, code.name
		}
		if file != lastFile || tb.lineno != lastLine || name != lastName {
			flushRepeated()
			lastFile, lastLine, lastName = file, tb.lineno, name
			repeated = 0
		}
		repeated++
		if repeated > tracebackRepeatCutoff {
			continue
		}
		fmt.Fprintf(b, "  File \"%s\", line %d, in %s\n", file, tb.lineno, name)
		if code != nil {
			if line := code.sourceLine(tb.lineno); line != "" {
				fmt.Fprintf(b, "    %s\n", line)
			}
		}
	}
	flushRepeated()
}

// printErrorText writes the offending source line of a syntax error and a
// caret under the 1-based column offset.
func printErrorText(b *strings.Builder, offset int, text string) {
	runes := []rune(text)
	offset--
	for len(runes) > 0 && (runes[0] == ' ' || runes[0] == '\t' || runes[0] == '\f') {
		runes = runes[1:]
		offset--
	}
	if n := len(runes); n > 0 && runes[n-1] == '\n' {
		runes = runes[:n-1]
	}
	// Only the physical line holding the offset is shown.
	for {
		i := -1
		for j, r := range runes {
			if r == '\n' {
				i = j
				break
			}
		}
		if i < 0 || i >= offset {
			break
		}
		runes = runes[i+1:]
		offset -= i + 1
	}
	if offset > len(runes) {
		offset = len(runes)
	}
	b.WriteString("    ")
	b.WriteString(string(runes))
	b.WriteString("\n")
	if offset < 0 {
		return
	}
	b.WriteString("    ")
	b.WriteString(strings.Repeat(" ", runewidth.StringWidth(string(runes[:offset]))))
	b.WriteString("^\n")
}

func (p *excPrinter) printException(f *Frame, b *strings.Builder, value *Object) {
	if !value.isInstance(BaseExceptionType) {
		fmt.Fprintf(b, "TypeError: print_exception(): Exception expected for value, %s found\n", value.typ.Name())
		return
	}
	e := toBaseExceptionUnsafe(value)
	if e.traceback != nil {
		p.printTraceback(b, e.traceback)
	}
	if value.isInstance(SyntaxErrorType) {
		if msg, ok := p.printSyntaxErrorLocation(f, b, value); ok {
			value = msg
		}
	}
	name, raised := e.typ.FullName(f)
	if raised != nil {
		f.RestoreExc(nil, nil)
		name = "<unknown>"
	}
	b.WriteString(p.name.Sprint(name))
	if value != None {
		s, raised := ToStr(f, value)
		switch {
		case raised != nil:
			f.RestoreExc(nil, nil)
			b.WriteString(": <exception str() failed>")
		case s.Value() != "":
			b.WriteString(": ")
			b.WriteString(s.Value())
		}
	}
	b.WriteString("\n")
}

// printSyntaxErrorLocation writes the file, line and caret of a syntax
// error and returns its message.
func (p *excPrinter) printSyntaxErrorLocation(f *Frame, b *strings.Builder, value *Object) (*Object, bool) {
	d := value.Dict()
	if d == nil {
		return nil, false
	}
	msg := d.getItemStringNoError("msg")
	if msg == nil || msg == None {
		return nil, false
	}
	filename := "<string>"
	if o := d.getItemStringNoError("filename"); o != nil && o.isInstance(StrType) {
		filename = toStrUnsafe(o).Value()
	}
	lineno, offset := 0, -1
	if o := d.getItemStringNoError("lineno"); o != nil && o.isInstance(IntType) {
		lineno, _ = safecast.Conv[int](toIntUnsafe(o).Value())
	}
	if o := d.getItemStringNoError("offset"); o != nil && o.isInstance(IntType) {
		offset, _ = safecast.Conv[int](toIntUnsafe(o).Value())
	}
	fmt.Fprintf(b, "  File \"%s\", line %d\n", filename, lineno)
	if o := d.getItemStringNoError("text"); o != nil && o.isInstance(StrType) {
		printErrorText(b, offset, toStrUnsafe(o).Value())
	}
	return msg, true
}

func (p *excPrinter) printExceptionRecursive(f *Frame, b *strings.Builder, value *Object, seen map[*Object]bool) {
	seen[value] = true
	if value.isInstance(BaseExceptionType) {
		e := toBaseExceptionUnsafe(value)
		if e.cause != nil {
			if cause := e.cause.ToObject(); !seen[cause] {
				p.printExceptionRecursive(f, b, cause, seen)
				b.WriteString(causeMessage)
			}
		} else if e.context != nil && !e.suppressContext {
			if context := e.context.ToObject(); !seen[context] {
				p.printExceptionRecursive(f, b, context, seen)
				b.WriteString(contextMessage)
			}
		}
	}
	p.printException(f, b, value)
}

// DisplayException writes value, its traceback and the exceptions chained
// to it through __cause__ and __context__ to w. tb is attached to value if
// value has no traceback yet.
func DisplayException(f *Frame, w io.Writer, value, tb *Object) {
	if value == nil {
		return
	}
	if value.isInstance(BaseExceptionType) && tb != nil && tb.isInstance(TracebackType) {
		if e := toBaseExceptionUnsafe(value); e.traceback == nil {
			e.traceback = toTracebackUnsafe(tb)
		}
	}
	p := newExcPrinter(f.ts.interp, w)
	var b strings.Builder
	p.printExceptionRecursive(f, &b, value, map[*Object]bool{})
	p.write(b.String())
}

// PrintException reports the pending exception through sys.excepthook and
// clears it. sys.last_type, sys.last_value and sys.last_traceback are set
// to the exception. A pending SystemExit is not printed: see
// HandleSystemExit.
func PrintException(f *Frame) {
	ts := f.ts
	typ, value, tb := ts.Fetch()
	if typ == nil {
		return
	}
	typ, value, tb = ts.NormalizeException(f, typ, value, tb)
	defer func() {
		XDecRef(typ)
		XDecRef(value)
		XDecRef(tb)
	}()
	if tb == nil {
		tb = newRef(None)
	}
	if value.isInstance(BaseExceptionType) && tb.isInstance(TracebackType) {
		toBaseExceptionUnsafe(value).traceback = toTracebackUnsafe(tb)
	}
	interp := ts.interp
	for name, o := range map[string]*Object{"last_type": typ, "last_value": value, "last_traceback": tb} {
		if raised := interp.sysSetObject(f, name, o); raised != nil {
			ts.ClearErr()
		}
	}
	w := interp.errStream
	hook := interp.sysObject("excepthook")
	if hook == nil {
		io.WriteString(w, "sys.excepthook is missing\n")
		DisplayException(f, w, value, tb)
		return
	}
	if _, raised := hook.Call(f, Args{typ, value, tb}, nil); raised == nil {
		return
	}
	typ2, value2, tb2 := ts.Fetch()
	typ2, value2, tb2 = ts.NormalizeException(f, typ2, value2, tb2)
	if value2 == nil {
		value2 = newRef(None)
	}
	io.WriteString(w, "Error in sys.excepthook:\n")
	DisplayException(f, w, value2, tb2)
	io.WriteString(w, "\nOriginal exception was:\n")
	DisplayException(f, w, value, tb)
	XDecRef(typ2)
	XDecRef(value2)
	XDecRef(tb2)
}

// HandleSystemExit consumes a pending SystemExit and returns the exit code
// it requests. handled is false, and the exception is left pending, if the
// pending exception is not a SystemExit or the interpreter is configured to
// inspect after running. A code of None means success, an int is used as
// is and any other value is printed to the error stream and means failure.
func HandleSystemExit(f *Frame) (code int, handled bool) {
	ts := f.ts
	interp := ts.interp
	if interp.config != nil && interp.config.Inspect {
		return 0, false
	}
	if !ts.ExceptionMatches(SystemExitType.ToObject()) {
		return 0, false
	}
	typ, value, tb := ts.Fetch()
	defer func() {
		XDecRef(typ)
		XDecRef(value)
		XDecRef(tb)
	}()
	if value == nil || value == None {
		return 0, true
	}
	exitValue := value
	if value.isInstance(BaseExceptionType) {
		c, raised := GetAttr(f, value, NewStr("code"), nil)
		if raised != nil {
			ts.ClearErr()
		} else {
			exitValue = c
		}
	}
	if exitValue == None {
		return 0, true
	}
	if exitValue.isInstance(IntType) {
		n, err := safecast.Conv[int32](toIntUnsafe(exitValue).Value())
		if err != nil {
			return -1, true
		}
		return int(n), true
	}
	io.WriteString(interp.errStream, strOrPlaceholder(f, exitValue, "<str() failed>")+"\n")
	return 1, true
}

// sysExceptHook is sys.__excepthook__.
func sysExceptHook(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "excepthook", args, ObjectType, ObjectType, ObjectType); raised != nil {
		return nil, raised
	}
	DisplayException(f, f.ts.interp.errStream, args[1], args[2])
	return None, nil
}
