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

func TestEvalSource(t *testing.T) {
	cases := []struct {
		src     string
		want    interface{}
		wantExc *BaseException
	}{
		{src: "result = 2 ** 10", want: 1024},
		{src: "result = 7 // 2, 7 % 3", want: newTestTuple(3, 1)},
		{src: "result = 1 / 2", want: 0.5},
		{src: "result = -7 // 2", want: -4},
		{src: "result = 'ab' + 'cd'", want: "abcd"},
		{src: "result = 'ab' * 2", want: "abab"},
		{src: "result = [1, 2] + [3]", want: newTestList(1, 2, 3)},
		{src: "result = (1, 2)[1]", want: 2},
		{src: "result = {'a': 1}['a']", want: 1},
		{src: "result = 1 if 0 else 2", want: 2},
		{src: "result = not 0", want: true},
		{src: "result = 1 < 2 < 3", want: true},
		{src: "result = 3 > 2 > 2", want: false},
		{src: "result = 0 or 'x'", want: "x"},
		{src: "result = 1 and 0", want: 0},
		{src: "result = None is None", want: true},
		{src: "result = 2 in [1, 2]", want: true},
		{src: "result = 'z' not in 'abc'", want: true},
		{src: "i = 0\nwhile True:\n  i += 1\n  if i == 5:\n    break\nresult = i\n", want: 5},
		{src: "result = 0\nfor x in range(5):\n  if x == 2:\n    continue\n  result += x\n", want: 8},
		{src: "a, b = 1, 2\nresult = b, a\n", want: newTestTuple(2, 1)},
		{src: "a, *rest = [1, 2, 3]\nresult = rest\n", want: newTestList(2, 3)},
		{src: "x = [0, 0]\nx[1] = 5\nresult = x\n", want: newTestList(0, 5)},
		{src: "x = 1\ndel x\nresult = 'x' in globals()\n", want: false},
		{src: "n = 0\ndef inc():\n  global n\n  n += 1\ninc()\ninc()\nresult = n\n", want: 2},
		{src: "class A:\n  def __init__(self, x):\n    self.x = x\n  def get(self):\n    return self.x\nresult = A(3).get()\n", want: 3},
		{src: "class A:\n  def f(self):\n    return 1\nclass B(A):\n  def f(self):\n    return super(B, self).f() + 1\nresult = B().f()\n", want: 2},
		{src: "class A:\n  pass\nresult = A.__name__, A.__module__\n", want: newTestTuple("A", "__test__")},
		{src: "try:\n  1/0\nexcept ZeroDivisionError as e:\n  result = str(e)\n", want: "division by zero"},
		{src: "try:\n  1//0\nexcept (KeyError, ArithmeticError):\n  result = 'caught'\n", want: "caught"},
		{src: "result = []\ntry:\n  result.append(1)\nfinally:\n  result.append(2)\n", want: newTestList(1, 2)},
		{src: "result = []\ntry:\n  pass\nexcept Exception:\n  result.append(1)\nelse:\n  result.append(2)\n", want: newTestList(2)},
		{src: "def f():\n  try:\n    return 1\n  finally:\n    return 2\nresult = f()\n", want: 2},
		{src: "try:\n  try:\n    raise ValueError('a')\n  except ValueError:\n    raise KeyError('b')\nexcept KeyError as e:\n  result = type(e.__context__) is ValueError\n", want: true},
		{src: "try:\n  raise KeyError('b') from ValueError('a')\nexcept KeyError as e:\n  result = type(e.__cause__) is ValueError, e.__suppress_context__\n", want: newTestTuple(true, true)},
		{src: "try:\n  raise ValueError\nexcept ValueError as e:\n  pass\nresult = 'e' in globals()\n", want: false},
		{src: "result = sorted([3, 1, 2])", want: newTestList(1, 2, 3)},
		{src: "result = sum([1, 2, 3]), max(1, 5, 3), min([4, 2])", want: newTestTuple(6, 5, 2)},
		{src: "result = isinstance(True, int), issubclass(KeyError, LookupError)", want: newTestTuple(true, true)},
		{src: "d = {}\nd.setdefault('a', []).append(1)\nresult = d\n", want: newTestDict("a", newTestList(1))},
		{src: "result = ','.join(['a', 'b'])", want: "a,b"},
		{src: "result = list(enumerate('ab'))", want: newTestList(newTestTuple(0, "a"), newTestTuple(1, "b"))},
		{src: "result = repr([1, 'a', (2,)])", want: "[1, 'a', (2,)]"},
		{src: "undefined_name", wantExc: mustCreateException(NameErrorType, "name 'undefined_name' is not defined")},
		{src: "def f():\n  y = y\nf()\n", wantExc: mustCreateException(UnboundLocalErrorType, "local variable 'y' referenced before assignment")},
		{src: "assert 1 == 2, 'nope'", wantExc: mustCreateException(AssertionErrorType, "nope")},
		{src: "raise 1", wantExc: mustCreateException(TypeErrorType, "exceptions must derive from BaseException")},
		{src: "raise", wantExc: mustCreateException(RuntimeErrorType, "No active exception to reraise")},
		{src: "try:\n  pass\nexcept 1:\n  pass\nraise ValueError\n", wantExc: mustCreateException(ValueErrorType, "")},
		{src: "try:\n  raise KeyError\nexcept 1:\n  pass\n", wantExc: mustCreateException(TypeErrorType, "catching classes that do not inherit from BaseException is not allowed")},
		{src: "[] < 1", wantExc: mustCreateException(TypeErrorType, "'<' not supported between instances of 'list' and 'int'")},
		{src: "'a' + 1", wantExc: mustCreateException(TypeErrorType, "unsupported operand type(s) for +: 'str' and 'int'")},
		{src: "{}['missing']", wantExc: mustCreateException(KeyErrorType, "missing")},
		{src: "from sys import nothing_here", wantExc: mustCreateException(ImportErrorType, "cannot import name 'nothing_here' from 'sys' (unknown location)")},
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

func TestEvalSourceTraceback(t *testing.T) {
	f := NewRootFrame()
	_, raised := runTestSource(f, "def f():\n  raise ValueError('x')\n\nf()\n")
	if raised == nil {
		t.Fatal("source did not raise")
	}
	defer f.ts.ClearErr()
	var lines []int
	var names []string
	for tb := raised.traceback; tb != nil; tb = tb.next {
		lines = append(lines, tb.lineno)
		names = append(names, tb.frame.code.name)
	}
	if len(lines) != 2 || lines[0] != 4 || lines[1] != 2 {
		t.Errorf("traceback lines = %v, want [4 2]", lines)
	}
	if len(names) != 2 || names[1] != "f" {
		t.Errorf("traceback names = %v, want [<module> f]", names)
	}
}

func TestEvalRecursionLimit(t *testing.T) {
	f := NewRootFrame()
	_, raised := runTestSource(f, "import sys\nsys.setrecursionlimit(50)\ndef f():\n  f()\ntry:\n  f()\nfinally:\n  sys.setrecursionlimit(1000)\n")
	if raised == nil || !raised.isInstance(RecursionErrorType) {
		t.Errorf("unbounded recursion raised %v, want RecursionError", raised)
	}
	f.ts.ClearErr()
}

func TestEvalPendingCall(t *testing.T) {
	f := NewRootFrame()
	interp := f.ts.interp
	ran := 0
	if err := interp.AddPendingCall(func(f *Frame) *BaseException {
		ran++
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if _, raised := runTestSource(f, "x = 1\ny = 2\n"); raised != nil {
		t.Fatal(raised)
	}
	if ran != 1 {
		t.Errorf("pending call ran %d times, want 1", ran)
	}
	if err := interp.AddPendingCall(func(f *Frame) *BaseException {
		return f.RaiseType(ValueErrorType, "from pending call")
	}); err != nil {
		t.Fatal(err)
	}
	_, raised := runTestSource(f, "x = 1\n")
	if want := mustCreateException(ValueErrorType, "from pending call"); !exceptionsAreEquivalent(raised, want) {
		t.Errorf("source raised %v, want %v", raised, want)
	}
	f.ts.ClearErr()
}

func TestEvalAsyncExc(t *testing.T) {
	f := NewRootFrame()
	f.ts.SetAsyncExc(KeyboardInterruptType.ToObject())
	_, raised := runTestSource(f, "x = 1\n")
	if raised == nil || !raised.isInstance(KeyboardInterruptType) {
		t.Errorf("source raised %v, want KeyboardInterrupt", raised)
	}
	f.ts.ClearErr()
	if _, raised := runTestSource(f, "x = 1\n"); raised != nil {
		t.Errorf("async exception was delivered twice: %v", raised)
		f.ts.ClearErr()
	}
}

func TestCompileSyntaxError(t *testing.T) {
	cases := []struct {
		src  string
		typ  *Type
		line int
	}{
		{"x = (\n", SyntaxErrorType, 2},
		{"if True:\nx = 1\n", IndentationErrorType, 2},
		{"if True:\n\tx = 1\n        y = 2\n", TabErrorType, 3},
	}
	for _, cas := range cases {
		f := NewRootFrame()
		_, raised := Compile(f, cas.src, "<test>")
		if raised == nil {
			t.Errorf("Compile(%q) succeeded", cas.src)
			continue
		}
		if raised.typ != cas.typ {
			t.Errorf("Compile(%q) raised %v, want %s", cas.src, raised.typ.Name(), cas.typ.Name())
		}
		args := raised.Args()
		if args.Len() == 2 && args.GetItem(1).isInstance(TupleType) {
			loc := toTupleUnsafe(args.GetItem(1))
			if got := loc.GetItem(0).String(); got != `"<test>"` {
				t.Errorf("Compile(%q) filename = %s, want \"<test>\"", cas.src, got)
			}
			if got := toIntUnsafe(loc.GetItem(1)).Value(); got != int64(cas.line) {
				t.Errorf("Compile(%q) lineno = %d, want %d", cas.src, got, cas.line)
			}
		} else {
			t.Errorf("Compile(%q) args = %v, want (msg, location)", cas.src, args)
		}
		f.ts.ClearErr()
	}
}

// runTestSource compiles src and runs it in a fresh namespace named
// __test__, returning the namespace.
func runTestSource(f *Frame, src string) (*Dict, *BaseException) {
	code, raised := Compile(f, src, "<test>")
	if raised != nil {
		return nil, raised
	}
	d := NewDict()
	if raised := d.SetItemString(f, "__name__", NewStr("__test__").ToObject()); raised != nil {
		return nil, raised
	}
	if _, raised := code.Exec(f, d, d); raised != nil {
		return d, raised
	}
	return d, nil
}

// testResult returns the value bound to result in d, or nil.
func testResult(d *Dict) *Object {
	return d.getItemStringNoError("result")
}
