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

func TestNewStringDict(t *testing.T) {
	cases := []struct {
		m    map[string]*Object
		want *Dict
	}{
		{nil, NewDict()},
		{map[string]*Object{"baz": NewFloat(3.14).ToObject()}, newTestDict("baz", 3.14)},
		{map[string]*Object{"foo": NewInt(2).ToObject(), "bar": NewInt(4).ToObject()}, newTestDict("bar", 4, "foo", 2)},
	}
	for _, cas := range cases {
		m := cas.m
		fun := newBuiltinFunction("newStringDict", func(*Frame, Args, KWArgs) (*Object, *BaseException) {
			return newStringDict(m).ToObject(), nil
		}).ToObject()
		if err := runInvokeTestCase(fun, &invokeTestCase{want: cas.want.ToObject()}); err != "" {
			t.Error(err)
		}
	}
}

func TestDictClear(t *testing.T) {
	clear := mustNotRaise(GetAttr(NewRootFrame(), DictType.ToObject(), NewStr("clear"), nil))
	fun := newBuiltinFunction("TestDictClear", func(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
		if _, raised := clear.Call(f, args, nil); raised != nil {
			return nil, raised
		}
		return args[0], nil
	}).ToObject()
	cases := []invokeTestCase{
		{args: wrapArgs(NewDict()), want: NewDict().ToObject()},
		{args: wrapArgs(newTestDict("foo", 1)), want: NewDict().ToObject()},
		{args: wrapArgs(NewList()), wantExc: mustCreateException(TypeErrorType, "'clear' requires a 'dict' object but received a 'list'")},
	}
	for _, cas := range cases {
		if err := runInvokeTestCase(fun, &cas); err != "" {
			t.Error(err)
		}
	}
}

func TestDictGetSetDel(t *testing.T) {
	f := NewRootFrame()
	d := NewDict()
	if raised := d.SetItemString(f, "a", NewInt(1).ToObject()); raised != nil {
		t.Fatal(raised)
	}
	if raised := d.SetItem(f, NewInt(2).ToObject(), NewStr("two").ToObject()); raised != nil {
		t.Fatal(raised)
	}
	if got := d.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
	got, raised := d.GetItemString(f, "a")
	if raised != nil || got == nil || got.String() != "1" {
		t.Errorf("GetItemString(a) = %v, %v, want 1, nil", got, raised)
	}
	// 2.0 hashes and compares equal to 2.
	got, raised = d.GetItem(f, NewFloat(2).ToObject())
	if raised != nil || got == nil || got.String() != `"two"` {
		t.Errorf("GetItem(2.0) = %v, %v, want \"two\", nil", got, raised)
	}
	if got, _ := d.GetItemString(f, "missing"); got != nil {
		t.Errorf("GetItemString(missing) = %v, want nil", got)
	}
	found, raised := d.DelItemString(f, "a")
	if raised != nil || !found {
		t.Errorf("DelItemString(a) = %v, %v, want true, nil", found, raised)
	}
	found, raised = d.DelItemString(f, "a")
	if raised != nil || found {
		t.Errorf("second DelItemString(a) = %v, %v, want false, nil", found, raised)
	}
	if _, raised := d.GetItem(f, NewList().ToObject()); !exceptionsAreEquivalent(raised, mustCreateException(TypeErrorType, "unhashable type: 'list'")) {
		t.Errorf("GetItem([]) raised %v, want unhashable TypeError", raised)
	}
	f.ts.ClearErr()
}

func TestDictInsertionOrder(t *testing.T) {
	f := NewRootFrame()
	d := NewDict()
	for _, k := range []string{"c", "a", "b"} {
		if raised := d.SetItemString(f, k, None); raised != nil {
			t.Fatal(raised)
		}
	}
	if _, raised := d.DelItemString(f, "a"); raised != nil {
		t.Fatal(raised)
	}
	if raised := d.SetItemString(f, "a", None); raised != nil {
		t.Fatal(raised)
	}
	if err := checkEqual(f, d.Keys().ToObject(), newTestList("c", "b", "a").ToObject()); err != "" {
		t.Errorf("Keys(): %s", err)
	}
}

func TestDictCopyUpdate(t *testing.T) {
	f := NewRootFrame()
	d := newTestDict("a", 1, "b", 2)
	c, raised := d.Copy(f)
	if raised != nil {
		t.Fatal(raised)
	}
	if raised := c.SetItemString(f, "a", NewInt(10).ToObject()); raised != nil {
		t.Fatal(raised)
	}
	if err := checkEqual(f, d.ToObject(), newTestDict("a", 1, "b", 2).ToObject()); err != "" {
		t.Errorf("Copy() shares storage with the original: %s", err)
	}
	if raised := d.Update(f, c.ToObject()); raised != nil {
		t.Fatal(raised)
	}
	if raised := d.Update(f, newTestList(newTestTuple("z", 26)).ToObject()); raised != nil {
		t.Fatal(raised)
	}
	if err := checkEqual(f, d.ToObject(), newTestDict("a", 10, "b", 2, "z", 26).ToObject()); err != "" {
		t.Errorf("Update(): %s", err)
	}
	raised = d.Update(f, newTestList(newTestTuple(1, 2, 3)).ToObject())
	want := mustCreateException(ValueErrorType, "dictionary update sequence element has length 3; 2 is required")
	if !exceptionsAreEquivalent(raised, want) {
		t.Errorf("Update() raised %v, want %v", raised, want)
	}
	f.ts.ClearErr()
}

func TestDictSource(t *testing.T) {
	cases := []struct {
		src     string
		want    interface{}
		wantExc *BaseException
	}{
		{src: "result = {'a': 1}.get('b', 5)", want: 5},
		{src: "result = {'a': 1}.get('b')", want: None},
		{src: "d = {'a': 1}\nresult = d.pop('a'), d\n", want: newTestTuple(1, NewDict())},
		{src: "result = {}.pop('a', 0)", want: 0},
		{src: "result = list({'a': 1, 'b': 2}.items())", want: newTestList(newTestTuple("a", 1), newTestTuple("b", 2))},
		{src: "result = list({'a': 1, 'b': 2}.values())", want: newTestList(1, 2)},
		{src: "d = {'a': 1}\nd.update({'b': 2})\nresult = d\n", want: newTestDict("a", 1, "b", 2)},
		{src: "result = dict([('a', 1)])", want: newTestDict("a", 1)},
		{src: "result = repr({'a': 1, 2: None})", want: "{'a': 1, 2: None}"},
		{src: "d = {}\nd['self'] = d\nresult = repr(d)\n", want: "{'self': {...}}"},
		{src: "result = {'a': 1} == {'a': 1}, {'a': 1} != {'a': 2}", want: newTestTuple(true, true)},
		{src: "{}.pop('a')", wantExc: mustCreateException(KeyErrorType, "a")},
		{src: "d = {1: 1}\nfor k in d:\n  d[2] = 2\n", wantExc: mustCreateException(RuntimeErrorType, "dictionary changed size during iteration")},
		{src: "hash({})", wantExc: mustCreateException(TypeErrorType, "unhashable type: 'dict'")},
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

func newTestDict(elems ...interface{}) *Dict {
	if len(elems)%2 != 0 {
		panic("invalid test dict spec")
	}
	numItems := len(elems) / 2
	d := NewDict()
	f := NewRootFrame()
	for i := 0; i < numItems; i++ {
		if raised := d.SetItem(f, wrapValue(elems[i*2]), wrapValue(elems[i*2+1])); raised != nil {
			panic(raised)
		}
	}
	return d
}
