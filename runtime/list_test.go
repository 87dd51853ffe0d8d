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

func TestListMethods(t *testing.T) {
	cases := []struct {
		methodName string
		invokeTestCase
	}{
		{"append", invokeTestCase{args: wrapArgs(newTestList(1), 2), want: None}},
		{"index", invokeTestCase{args: wrapArgs(newTestList("a", "b"), "b"), want: NewInt(1).ToObject()}},
		{"index", invokeTestCase{args: wrapArgs(newTestList("a"), "z"), wantExc: mustCreateException(ValueErrorType, "list.index(x): x not in list")}},
		{"remove", invokeTestCase{args: wrapArgs(newTestList(1), 2), wantExc: mustCreateException(ValueErrorType, "list.remove(x): x not in list")}},
		{"pop", invokeTestCase{args: wrapArgs(newTestList(1, 2, 3)), want: NewInt(3).ToObject()}},
		{"pop", invokeTestCase{args: wrapArgs(newTestList(1, 2, 3), 0), want: NewInt(1).ToObject()}},
		{"pop", invokeTestCase{args: wrapArgs(NewList()), wantExc: mustCreateException(IndexErrorType, "pop from empty list")}},
		{"pop", invokeTestCase{args: wrapArgs(newTestList(1), 5), wantExc: mustCreateException(IndexErrorType, "pop index out of range")}},
		{"insert", invokeTestCase{args: wrapArgs(NewList(), 0, "x"), want: None}},
		{"append", invokeTestCase{args: wrapArgs(newTestTuple(1), 2), wantExc: mustCreateException(TypeErrorType, "'append' requires a 'list' object but received a 'tuple'")}},
	}
	for _, cas := range cases {
		if err := runInvokeMethodTestCase(ListType, cas.methodName, &cas.invokeTestCase); err != "" {
			t.Error(err)
		}
	}
}

func TestListMutation(t *testing.T) {
	cases := []struct {
		src  string
		want *Object
	}{
		{"result = [3, 1, 2]\nresult.sort()\n", newTestList(1, 2, 3).ToObject()},
		{"result = [1, 2]\nresult.reverse()\n", newTestList(2, 1).ToObject()},
		{"result = [1]\nresult.extend((2, 3))\n", newTestList(1, 2, 3).ToObject()},
		{"result = [1, 2, 1]\nresult.remove(1)\n", newTestList(2, 1).ToObject()},
		{"result = [1, 2]\nresult.insert(-1, 5)\n", newTestList(1, 5, 2).ToObject()},
		{"result = [1, 2]\nresult.insert(10, 5)\n", newTestList(1, 2, 5).ToObject()},
		{"result = [0, 1, 2]\ndel result[1]\n", newTestList(0, 2).ToObject()},
		{"result = [1]\nresult += [2]\n", newTestList(1, 2).ToObject()},
		{"result = [0] * 3", newTestList(0, 0, 0).ToObject()},
		{"result = [1, 2][-1]", NewInt(2).ToObject()},
		{"result = list((1, 2))", newTestList(1, 2).ToObject()},
		{"result = [1, 2] < [1, 3]", True.ToObject()},
		{"result = len([1, 2, 3])", NewInt(3).ToObject()},
	}
	for _, cas := range cases {
		f := NewRootFrame()
		d, raised := runTestSource(f, cas.src)
		if raised != nil {
			t.Errorf("%q raised %v", cas.src, raised)
			f.ts.ClearErr()
			continue
		}
		if err := checkEqual(f, testResult(d), cas.want); err != "" {
			t.Errorf("%q: %s", cas.src, err)
		}
	}
}

func TestListIndexError(t *testing.T) {
	f := NewRootFrame()
	_, raised := runTestSource(f, "[1][3]")
	if want := mustCreateException(IndexErrorType, "list index out of range"); !exceptionsAreEquivalent(raised, want) {
		t.Errorf("[1][3] raised %v, want %v", raised, want)
	}
	f.ts.ClearErr()
}

func TestListRecursiveRepr(t *testing.T) {
	f := NewRootFrame()
	l := newTestList(1)
	l.Append(l.ToObject())
	s, raised := Repr(f, l.ToObject())
	if raised != nil {
		t.Fatal(raised)
	}
	if got, want := s.Value(), "[1, [...]]"; got != want {
		t.Errorf("Repr() = %q, want %q", got, want)
	}
}

func TestListGoAPI(t *testing.T) {
	f := NewRootFrame()
	l := NewList()
	l.Append(NewInt(1).ToObject())
	l.Insert(0, NewInt(0).ToObject())
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
	if raised := l.SetItem(f, 1, NewStr("x").ToObject()); raised != nil {
		t.Fatal(raised)
	}
	got, raised := l.GetItem(f, -1)
	if raised != nil {
		t.Fatal(raised)
	}
	if got.String() != `"x"` {
		t.Errorf("GetItem(-1) = %v, want \"x\"", got)
	}
	if _, raised := l.GetItem(f, 2); raised == nil || !raised.isInstance(IndexErrorType) {
		t.Errorf("GetItem(2) raised %v, want IndexError", raised)
	}
	f.ts.ClearErr()
}

func newTestList(elems ...interface{}) *List {
	return NewList(wrapArgs(elems...)...)
}
