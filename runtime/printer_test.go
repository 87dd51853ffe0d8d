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
	"bytes"
	"strings"
	"testing"
)

func TestPrintErrorText(t *testing.T) {
	cases := []struct {
		offset int
		text   string
		want   string
	}{
		{1, "abc", "    abc\n    ^\n"},
		{3, "abc\n", "    abc\n      ^\n"},
		{9, "abc", "    abc\n       ^\n"},
		{0, "abc", "    abc\n"},
		{5, "  x = = 1\n", "    x = = 1\n      ^\n"},
		{10, "a = 1\nb = = 2\n", "    b = = 2\n       ^\n"},
		{5, "名前 = =", "    名前 = =\n          ^\n"},
	}
	for _, cas := range cases {
		var b strings.Builder
		printErrorText(&b, cas.offset, cas.text)
		if got := b.String(); got != cas.want {
			t.Errorf("printErrorText(%d, %q) = %q, want %q", cas.offset, cas.text, got, cas.want)
		}
	}
}

func TestDisplayException(t *testing.T) {
	f := NewRootFrame()
	chained := func(link func(outer, inner *BaseException)) *Object {
		inner := mustCreateException(KeyErrorType, "a")
		outer := mustCreateException(ValueErrorType, "b")
		link(outer, inner)
		return outer.ToObject()
	}
	syntaxErr := mustNotRaise(SyntaxErrorType.ToObject().Call(f, wrapArgs("invalid syntax", newTestTuple("f.py", 3, 5, "  x = = 1\n")), nil))
	cases := []struct {
		value *Object
		want  string
	}{
		{mustCreateException(ValueErrorType, "boom").ToObject(), "ValueError: boom\n"},
		{mustCreateException(ValueErrorType, "").ToObject(), "ValueError\n"},
		{mustCreateException(KeyErrorType, "k").ToObject(), "KeyError: 'k'\n"},
		{NewInt(1).ToObject(), "TypeError: print_exception(): Exception expected for value, int found\n"},
		{chained(func(outer, inner *BaseException) { outer.context = inner }), "KeyError: 'a'\n" + contextMessage + "ValueError: b\n"},
		{chained(func(outer, inner *BaseException) { outer.cause = inner }), "KeyError: 'a'\n" + causeMessage + "ValueError: b\n"},
		{chained(func(outer, inner *BaseException) {
			outer.context = inner
			outer.suppressContext = true
		}), "ValueError: b\n"},
		{chained(func(outer, inner *BaseException) {
			outer.context = inner
			inner.context = outer
		}), "KeyError: 'a'\n" + contextMessage + "ValueError: b\n"},
		{syntaxErr, "  File \"f.py\", line 3\n    x = = 1\n      ^\nSyntaxError: invalid syntax\n"},
	}
	for _, cas := range cases {
		var buf bytes.Buffer
		DisplayException(f, &buf, cas.value, nil)
		if got := buf.String(); got != cas.want {
			t.Errorf("DisplayException(%v) = %q, want %q", cas.value, got, cas.want)
		}
	}
}

func TestDisplayExceptionTraceback(t *testing.T) {
	f := NewRootFrame()
	_, raised := runTestSource(f, "def f():\n  raise ValueError('x')\n\nf()\n")
	if raised == nil {
		t.Fatal("source did not raise")
	}
	f.ts.ClearErr()
	var buf bytes.Buffer
	DisplayException(f, &buf, raised.ToObject(), nil)
	want := "Traceback (most recent call last):\n" +
		"  File \"<test>\", line 4, in <module>\n" +
		"    f()\n" +
		"  File \"<test>\", line 2, in f\n" +
		"    raise ValueError('x')\n" +
		"ValueError: x\n"
	if got := buf.String(); got != want {
		t.Errorf("DisplayException() = %q, want %q", got, want)
	}
}

func TestDisplayExceptionSourceChain(t *testing.T) {
	f := NewRootFrame()
	_, raised := runTestSource(f, "try:\n  raise KeyError('a')\nexcept KeyError as e:\n  raise ValueError('b') from e\n")
	if raised == nil {
		t.Fatal("source did not raise")
	}
	f.ts.ClearErr()
	var buf bytes.Buffer
	DisplayException(f, &buf, raised.ToObject(), nil)
	got := buf.String()
	for _, want := range []string{
		"    raise KeyError('a')\nKeyError: 'a'\n" + causeMessage + "Traceback (most recent call last):\n",
		"    raise ValueError('b') from e\nValueError: b\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("DisplayException() = %q, does not contain %q", got, want)
		}
	}
	if strings.Contains(got, contextMessage) {
		t.Errorf("DisplayException() = %q, printed the implicit context", got)
	}
}

func TestDisplayExceptionRepeatedLines(t *testing.T) {
	f := NewRootFrame()
	_, raised := runTestSource(f, "import sys\nsys.setrecursionlimit(50)\ndef f():\n  f()\ntry:\n  f()\nfinally:\n  sys.setrecursionlimit(1000)\n")
	if raised == nil {
		t.Fatal("source did not raise")
	}
	f.ts.ClearErr()
	var buf bytes.Buffer
	DisplayException(f, &buf, raised.ToObject(), nil)
	got := buf.String()
	if n := strings.Count(got, "in f\n"); n != tracebackRepeatCutoff {
		t.Errorf("traceback shows %d entries for f, want %d:\n%s", n, tracebackRepeatCutoff, got)
	}
	if !strings.Contains(got, "  [Previous line repeated ") || !strings.Contains(got, " more times]\n") {
		t.Errorf("traceback does not summarize repeated lines:\n%s", got)
	}
}

func TestDisplayExceptionTracebackLimit(t *testing.T) {
	f := NewRootFrame()
	_, raised := runTestSource(f, "def g():\n  raise ValueError('x')\n\ng()\n")
	if raised == nil {
		t.Fatal("source did not raise")
	}
	f.ts.ClearErr()
	cases := []struct {
		limit string
		want  string
	}{
		{"1", "Traceback (most recent call last):\n  File \"<test>\", line 2, in g\n    raise ValueError('x')\nValueError: x\n"},
		{"0", "ValueError: x\n"},
		{"-5", "ValueError: x\n"},
	}
	for _, cas := range cases {
		if _, raised := runTestSource(f, "import sys\nsys.tracebacklimit = "+cas.limit+"\n"); raised != nil {
			t.Fatal(raised)
		}
		var buf bytes.Buffer
		DisplayException(f, &buf, raised.ToObject(), nil)
		if got := buf.String(); got != cas.want {
			t.Errorf("DisplayException() with tracebacklimit %s = %q, want %q", cas.limit, got, cas.want)
		}
	}
	if _, raised := runTestSource(f, "import sys\ndel sys.tracebacklimit\n"); raised != nil {
		t.Fatal(raised)
	}
}

func TestDisplayExceptionColor(t *testing.T) {
	cfg := testConfig()
	cfg.Color = true
	f := newTestRuntime(t, cfg)
	var buf bytes.Buffer
	DisplayException(f, &buf, mustCreateException(ValueErrorType, "x").ToObject(), nil)
	if got := buf.String(); !strings.Contains(got, "\x1b[") || !strings.Contains(got, "ValueError") {
		t.Errorf("DisplayException() with color = %q, want ANSI escapes", got)
	}
}

func TestPrintException(t *testing.T) {
	cfg, buf := captureConfig()
	f := newTestRuntime(t, cfg)
	raised := f.ts.SetString(f, ValueErrorType, "boom")
	PrintException(f)
	if f.ts.Occurred() != nil {
		t.Error("PrintException() left the exception pending")
	}
	if got, want := buf.String(), "ValueError: boom\n"; got != want {
		t.Errorf("PrintException() wrote %q, want %q", got, want)
	}
	if last := f.ts.interp.sysObject("last_value"); last != raised.ToObject() {
		t.Errorf("sys.last_value = %v, want %v", last, raised)
	}
	PrintException(f)
	if got := buf.String(); got != "ValueError: boom\n" {
		t.Errorf("PrintException() with nothing pending wrote %q", got)
	}
}

func TestPrintExceptionHookFails(t *testing.T) {
	cfg, buf := captureConfig()
	f := newTestRuntime(t, cfg)
	if _, raised := runTestSource(f, "import sys\ndef hook(t, v, tb):\n  raise KeyError('hook')\nsys.excepthook = hook\n"); raised != nil {
		t.Fatal(raised)
	}
	f.ts.SetString(f, ValueErrorType, "boom")
	PrintException(f)
	got := buf.String()
	for _, want := range []string{"Error in sys.excepthook:\n", "KeyError: 'hook'\n", "\nOriginal exception was:\nValueError: boom\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("PrintException() wrote %q, want it to contain %q", got, want)
		}
	}
}

func TestHandleSystemExit(t *testing.T) {
	cases := []struct {
		value       *Object
		want        int
		wantOutput  string
		wantHandled bool
	}{
		{nil, 0, "", true},
		{None, 0, "", true},
		{NewInt(3).ToObject(), 3, "", true},
		{NewInt(1 << 40).ToObject(), -1, "", true},
		{NewStr("bye").ToObject(), 1, "bye\n", true},
	}
	for _, cas := range cases {
		cfg, buf := captureConfig()
		f := newTestRuntime(t, cfg)
		f.ts.SetObject(f, SystemExitType.ToObject(), cas.value)
		code, handled := HandleSystemExit(f)
		if code != cas.want || handled != cas.wantHandled {
			t.Errorf("HandleSystemExit(SystemExit(%v)) = %d, %v, want %d, %v", cas.value, code, handled, cas.want, cas.wantHandled)
		}
		if got := buf.String(); got != cas.wantOutput {
			t.Errorf("HandleSystemExit(SystemExit(%v)) wrote %q, want %q", cas.value, got, cas.wantOutput)
		}
		if f.ts.Occurred() != nil {
			t.Errorf("HandleSystemExit(SystemExit(%v)) left an exception pending", cas.value)
			f.ts.ClearErr()
		}
	}
}

func TestHandleSystemExitNotHandled(t *testing.T) {
	f := NewRootFrame()
	f.ts.SetString(f, ValueErrorType, "x")
	if _, handled := HandleSystemExit(f); handled {
		t.Error("HandleSystemExit() handled a ValueError")
	}
	if !f.ts.ExceptionMatches(ValueErrorType.ToObject()) {
		t.Error("HandleSystemExit() consumed a ValueError")
	}
	f.ts.ClearErr()

	cfg := testConfig()
	cfg.Inspect = true
	f = newTestRuntime(t, cfg)
	f.ts.SetNone(f, SystemExitType)
	if _, handled := HandleSystemExit(f); handled {
		t.Error("HandleSystemExit() handled SystemExit in inspect mode")
	}
	f.ts.ClearErr()
}
