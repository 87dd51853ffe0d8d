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
	"testing"
)

// >>> hash("foo")
// -4177197833195190597
// >>> hash("bar")
// 327024216814240868
// >>> hash("baz")
// 327024216814240876
func TestHashString(t *testing.T) {
	cases := []struct {
		value string
		hash  int64
	}{
		{"foo", -4177197833195190597},
		{"bar", 327024216814240868},
		{"baz", 327024216814240876},
		{"", 0},
	}
	for _, cas := range cases {
		if h := hashString(cas.value); h != cas.hash {
			t.Errorf("hashString(%q) = %d, expected %d", cas.value, h, cas.hash)
		}
	}
}

func TestInternStr(t *testing.T) {
	if NewStr("__name__") != nameStr {
		t.Error(`NewStr("__name__") did not return the interned string`)
	}
	if NewStr("not interned") == NewStr("not interned") {
		t.Error("NewStr() returned the same object for an uninterned string")
	}
}

func TestQuoteStr(t *testing.T) {
	cases := []struct {
		s    string
		want string
	}{
		{"", "''"},
		{"foo", "'foo'"},
		{"it's", `"it's"`},
		{`it's "x"`, `'it\'s "x"'`},
		{"a\nb\tc", `'a\nb\tc'`},
		{"\x00\x7f", `'\x00\x7f'`},
		{`back\slash`, `'back\\slash'`},
		{"日本", "'日本'"},
	}
	for _, cas := range cases {
		if got := quoteStr(cas.s); got != cas.want {
			t.Errorf("quoteStr(%q) = %s, want %s", cas.s, got, cas.want)
		}
	}
}

func TestStrMethods(t *testing.T) {
	cases := []struct {
		methodName string
		invokeTestCase
	}{
		{"join", invokeTestCase{args: wrapArgs(",", newTestList("a", "b", "c")), want: NewStr("a,b,c").ToObject()}},
		{"join", invokeTestCase{args: wrapArgs("", NewList()), want: NewStr("").ToObject()}},
		{"join", invokeTestCase{args: wrapArgs(",", newTestList("a", 1)), wantExc: mustCreateException(TypeErrorType, "sequence item 1: expected str instance, int found")}},
		{"split", invokeTestCase{args: wrapArgs("  a b  c "), want: newTestList("a", "b", "c").ToObject()}},
		{"split", invokeTestCase{args: wrapArgs("a,b,,c", ","), want: newTestList("a", "b", "", "c").ToObject()}},
		{"split", invokeTestCase{args: wrapArgs("abc", ""), wantExc: mustCreateException(ValueErrorType, "empty separator")}},
		{"split", invokeTestCase{args: wrapArgs("abc", 1), wantExc: mustCreateException(TypeErrorType, "must be str or None")}},
		{"partition", invokeTestCase{args: wrapArgs("a.b.c", "."), want: newTestTuple("a", ".", "b.c").ToObject()}},
		{"partition", invokeTestCase{args: wrapArgs("abc", "."), want: newTestTuple("abc", "", "").ToObject()}},
		{"rpartition", invokeTestCase{args: wrapArgs("a.b.c", "."), want: newTestTuple("a.b", ".", "c").ToObject()}},
		{"rpartition", invokeTestCase{args: wrapArgs("abc", "."), want: newTestTuple("", "", "abc").ToObject()}},
		{"startswith", invokeTestCase{args: wrapArgs("foobar", "foo"), want: True.ToObject()}},
		{"startswith", invokeTestCase{args: wrapArgs("foobar", newTestTuple("x", "fo")), want: True.ToObject()}},
		{"endswith", invokeTestCase{args: wrapArgs("foobar", "foo"), want: False.ToObject()}},
		{"startswith", invokeTestCase{args: wrapArgs("foobar", 1), wantExc: mustCreateException(TypeErrorType, "startswith first arg must be str or a tuple of str, not int")}},
		{"strip", invokeTestCase{args: wrapArgs("  x \n"), want: NewStr("x").ToObject()}},
		{"lower", invokeTestCase{args: wrapArgs("MiXeD"), want: NewStr("mixed").ToObject()}},
		{"upper", invokeTestCase{args: wrapArgs("MiXeD"), want: NewStr("MIXED").ToObject()}},
		{"find", invokeTestCase{args: wrapArgs("日本語", "語"), want: NewInt(2).ToObject()}},
		{"find", invokeTestCase{args: wrapArgs("abc", "z"), want: NewInt(-1).ToObject()}},
		{"replace", invokeTestCase{args: wrapArgs("a-b-c", "-", "+"), want: NewStr("a+b+c").ToObject()}},
		{"upper", invokeTestCase{args: wrapArgs(1), wantExc: mustCreateException(TypeErrorType, "'upper' requires a 'str' object but received a 'int'")}},
	}
	for _, cas := range cases {
		if err := runInvokeMethodTestCase(StrType, cas.methodName, &cas.invokeTestCase); err != "" {
			t.Error(err)
		}
	}
}

func TestStrSource(t *testing.T) {
	cases := []struct {
		src     string
		want    interface{}
		wantExc *BaseException
	}{
		{src: "result = 'héllo'[1]", want: "é"},
		{src: "result = 'abc'[-1]", want: "c"},
		{src: "result = len('héllo')", want: 5},
		{src: "result = 'ell' in 'hello'", want: true},
		{src: "result = 'a' < 'b', 'b' <= 'a'", want: newTestTuple(true, false)},
		{src: "result = str(42), str(None), str()", want: newTestTuple("42", "None", "")},
		{src: "result = 'ab' * 0", want: ""},
		{src: "class S(str):\n  pass\nresult = S('x') == 'x', type(S('x')) is S\n", want: newTestTuple(true, true)},
		{src: "'abc'[3]", wantExc: mustCreateException(IndexErrorType, "string index out of range")},
		{src: "1 in 'abc'", wantExc: mustCreateException(TypeErrorType, "'in <string>' requires string as left operand, not int")},
		{src: "str(1, 2)", wantExc: mustCreateException(TypeErrorType, "str() takes at most 1 argument")},
	}
	for _, cas := range cases {
		f := NewRootFrame()
		d, raised := runTestSource(f, cas.src)
		if cas.wantExc != nil || raised != nil {
			if !exceptionsAreEquivalent(raised, cas.wantExc) {
				t.Errorf("%q raised %v, want %v", cas.src, raised, cas.wantExc)
			}
			f.ts.ClearErr()
			continue
		}
		if err := checkEqual(f, testResult(d), wrapValue(cas.want)); err != "" {
			t.Errorf("%q: %s", cas.src, err)
		}
	}
}
