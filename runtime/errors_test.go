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

func TestFetchRestore(t *testing.T) {
	f := NewRootFrame()
	ts := f.ts
	raised := ts.SetString(f, ValueErrorType, "boom")
	if got := ts.Occurred(); got != ValueErrorType.ToObject() {
		t.Fatalf("Occurred() = %v, want ValueError", got)
	}
	typ, value, tb := ts.Fetch()
	if ts.Occurred() != nil {
		t.Error("Fetch() left an exception pending")
	}
	if typ != ValueErrorType.ToObject() || value != raised.ToObject() {
		t.Errorf("Fetch() = (%v, %v), want (ValueError, %v)", typ, value, raised)
	}
	ts.Restore(typ, value, tb)
	if !ts.ExceptionMatches(ValueErrorType.ToObject()) {
		t.Error("restored exception does not match ValueError")
	}
	ts.ClearErr()
	if typ, value, tb := ts.Fetch(); typ != nil || value != nil || tb != nil {
		t.Errorf("Fetch() after ClearErr() = (%v, %v, %v), want nils", typ, value, tb)
	}
}

func TestRestoreDropsNonTraceback(t *testing.T) {
	f := NewRootFrame()
	ts := f.ts
	ts.Restore(newRef(KeyErrorType.ToObject()), nil, NewInt(12).ToObject())
	typ, value, tb := ts.Fetch()
	if typ != KeyErrorType.ToObject() || value != nil || tb != nil {
		t.Errorf("Fetch() = (%v, %v, %v), want (KeyError, nil, nil)", typ, value, tb)
	}
}

func TestGivenExceptionMatches(t *testing.T) {
	e := mustCreateException(KeyErrorType, "k")
	cases := []struct {
		err, exc *Object
		want     bool
	}{
		{KeyErrorType.ToObject(), KeyErrorType.ToObject(), true},
		{KeyErrorType.ToObject(), LookupErrorType.ToObject(), true},
		{LookupErrorType.ToObject(), KeyErrorType.ToObject(), false},
		{e.ToObject(), ExceptionType.ToObject(), true},
		{e.ToObject(), newTestTuple(TypeErrorType, ValueErrorType).ToObject(), false},
		{e.ToObject(), newTestTuple(TypeErrorType, newTestTuple(ValueErrorType, LookupErrorType)).ToObject(), true},
		{KeyErrorType.ToObject(), NewTuple().ToObject(), false},
		{NewInt(1).ToObject(), NewInt(1).ToObject(), true},
		{NewStr("x").ToObject(), KeyErrorType.ToObject(), false},
		{nil, KeyErrorType.ToObject(), false},
		{KeyErrorType.ToObject(), nil, false},
	}
	for _, cas := range cases {
		if got := GivenExceptionMatches(cas.err, cas.exc); got != cas.want {
			t.Errorf("GivenExceptionMatches(%v, %v) = %v, want %v", cas.err, cas.exc, got, cas.want)
		}
	}
}

func TestNormalizeException(t *testing.T) {
	f := NewRootFrame()
	ts := f.ts
	typ, value, tb := ts.NormalizeException(f, newRef(ValueErrorType.ToObject()), NewStr("bad").ToObject(), nil)
	if typ != ValueErrorType.ToObject() || !value.isInstance(ValueErrorType) || tb != nil {
		t.Fatalf("NormalizeException(ValueError, 'bad') = (%v, %v, %v)", typ, value, tb)
	}
	want := mustCreateException(ValueErrorType, "bad")
	if !exceptionsAreEquivalent(toBaseExceptionUnsafe(value), want) {
		t.Errorf("normalized value = %v, want %v", value, want)
	}
	typ2, value2, _ := ts.NormalizeException(f, typ, value, nil)
	if typ2 != typ || value2 != value {
		t.Errorf("normalizing a normalized triple changed it to (%v, %v)", typ2, value2)
	}
	// A more derived instance determines the type.
	e := mustCreateException(KeyErrorType, "k")
	typ, value, _ = ts.NormalizeException(f, newRef(LookupErrorType.ToObject()), newRef(e.ToObject()), nil)
	if typ != KeyErrorType.ToObject() || value != e.ToObject() {
		t.Errorf("NormalizeException(LookupError, KeyError('k')) = (%v, %v), want (KeyError, %v)", typ, value, e)
	}
	typ, value, _ = ts.NormalizeException(f, newRef(TypeErrorType.ToObject()), newTestTuple("a", 1).ToObject(), nil)
	if !value.isInstance(TypeErrorType) || toBaseExceptionUnsafe(value).Args().Len() != 2 {
		t.Errorf("tuple value was not unpacked as arguments: got %v", value)
	}
	// Non-class types pass through untouched.
	s := NewStr("legacy").ToObject()
	typ, value, _ = ts.NormalizeException(f, s, nil, nil)
	if typ != s || value != None {
		t.Errorf("NormalizeException('legacy', nil) = (%v, %v), want ('legacy', None)", typ, value)
	}
	if typ, value, tb := ts.NormalizeException(f, nil, nil, nil); typ != nil || value != nil || tb != nil {
		t.Errorf("NormalizeException(nil) = (%v, %v, %v), want nils", typ, value, tb)
	}
}

func TestNormalizeExceptionConstructorRaises(t *testing.T) {
	f := NewRootFrame()
	d, raised := runTestSource(f, "class E(Exception):\n  def __init__(self, x):\n    raise KeyError('init')\n")
	if raised != nil {
		t.Fatal(raised)
	}
	cls := d.getItemStringNoError("E")
	typ, value, _ := f.ts.NormalizeException(f, newRef(cls), NewStr("a").ToObject(), nil)
	if typ != KeyErrorType.ToObject() {
		t.Errorf("NormalizeException(E, 'a') type = %v, want KeyError", typ)
	}
	if want := mustCreateException(KeyErrorType, "init"); !exceptionsAreEquivalent(toBaseExceptionUnsafe(value), want) {
		t.Errorf("NormalizeException(E, 'a') value = %v, want %v", value, want)
	}
	f.ts.ClearErr()
}

func TestSetObject(t *testing.T) {
	f := NewRootFrame()
	ts := f.ts
	e := mustCreateException(IndexErrorType, "i")
	if raised := ts.SetObject(f, IndexErrorType.ToObject(), e.ToObject()); raised != e {
		t.Errorf("SetObject(IndexError, instance) raised %v, want the instance", raised)
	}
	ts.ClearErr()
	raised := ts.SetObject(f, LookupErrorType.ToObject(), e.ToObject())
	if raised != e {
		t.Errorf("SetObject(LookupError, IndexError instance) raised %v, want the instance", raised)
	}
	ts.ClearErr()
	raised = ts.SetObject(f, NewInt(3).ToObject(), nil)
	if raised == nil || !raised.isInstance(SystemErrorType) {
		t.Errorf("SetObject(3, nil) raised %v, want SystemError", raised)
	}
	ts.ClearErr()
	raised = ts.SetNone(f, StopIterationType)
	if want := mustCreateException(StopIterationType, ""); !exceptionsAreEquivalent(raised, want) {
		t.Errorf("SetNone(StopIteration) raised %v, want %v", raised, want)
	}
	ts.ClearErr()
	raised = ts.Format(f, ValueErrorType, "%s=%d", "x", 3)
	if want := mustCreateException(ValueErrorType, "x=3"); !exceptionsAreEquivalent(raised, want) {
		t.Errorf("Format() raised %v, want %v", raised, want)
	}
	ts.ClearErr()
}

func TestBadInternalCallAndNoMemory(t *testing.T) {
	f := NewRootFrame()
	raised := f.ts.BadInternalCall(f)
	if want := mustCreateException(SystemErrorType, "bad argument to internal function"); !exceptionsAreEquivalent(raised, want) {
		t.Errorf("BadInternalCall() raised %v, want %v", raised, want)
	}
	f.ts.ClearErr()
	raised = f.ts.NoMemory(f)
	if want := mustCreateException(MemoryErrorType, ""); !exceptionsAreEquivalent(raised, want) {
		t.Errorf("NoMemory() raised %v, want %v", raised, want)
	}
	f.ts.ClearErr()
}

func TestExcInfoStack(t *testing.T) {
	f := NewRootFrame()
	ts := f.ts
	if _, value, _ := ts.GetExcInfo(); value != nil && value != None {
		t.Fatalf("GetExcInfo() = %v with nothing handled", value)
	}
	outer := mustCreateException(KeyErrorType, "outer")
	ts.PushExcInfo(outer)
	if typ, value, _ := ts.GetExcInfo(); typ != KeyErrorType.ToObject() || value != outer.ToObject() {
		t.Errorf("GetExcInfo() = (%v, %v), want (KeyError, %v)", typ, value, outer)
	}
	// New exceptions raised while handling pick up __context__.
	raised := ts.SetString(f, TypeErrorType, "inner")
	if raised.Context() != outer {
		t.Errorf("raised context = %v, want %v", raised.Context(), outer)
	}
	ts.ClearErr()
	ts.PopExcInfo()
	if _, value, _ := ts.GetExcInfo(); value != nil && value != None {
		t.Errorf("GetExcInfo() after pop = %v, want nothing handled", value)
	}
}

func TestSetExceptionBreaksContextCycle(t *testing.T) {
	f := NewRootFrame()
	ts := f.ts
	first := mustCreateException(ValueErrorType, "first")
	second := mustCreateException(TypeErrorType, "second")
	second.context = first
	ts.PushExcInfo(second)
	if raised := ts.SetObject(f, ValueErrorType.ToObject(), first.ToObject()); raised != first {
		t.Fatalf("SetObject raised %v, want %v", raised, first)
	}
	ts.ClearErr()
	ts.PopExcInfo()
	if first.Context() != second {
		t.Errorf("first.__context__ = %v, want %v", first.Context(), second)
	}
	if second.Context() != nil {
		t.Errorf("second.__context__ = %v, want nil", second.Context())
	}
}

func TestFatalError(t *testing.T) {
	oldLogFatal := logFatal
	defer func() { logFatal = oldLogFatal }()
	var got []string
	logFatal = func(msg string) {
		got = append(got, msg)
	}
	FatalError("", "plain")
	FatalError("init", "broken")
	NewRootFrame().ts.PopExcInfo()
	want := []string{
		"Fatal Python error: plain",
		"Fatal Python error: init: broken",
		"Fatal Python error: PopExcInfo: exception info stack underflow",
	}
	if len(got) != len(want) {
		t.Fatalf("FatalError logged %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FatalError message %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRaisedExceptionOutlivesClearErr(t *testing.T) {
	f := NewRootFrame()
	raised := f.RaiseType(ValueErrorType, "boom")
	f.ts.ClearErr()
	if raised.state&objectStateDeallocated != 0 {
		t.Fatal("raised exception was deallocated by ClearErr")
	}
	if n := RefCount(raised.ToObject()); n < 1 {
		t.Errorf("raised exception has ref count %d after ClearErr", n)
	}
	if want := mustCreateException(ValueErrorType, "boom"); !exceptionsAreEquivalent(raised, want) {
		t.Errorf("raised exception is %v after ClearErr, want %v", raised, want)
	}
	// A later raise and clear keep the newer exception alive instead.
	_, second := runTestSource(f, "def g():\n  raise KeyError('k')\ng()\n")
	if second == nil {
		t.Fatal("source did not raise")
	}
	f.ts.ClearErr()
	if second.traceback == nil || second.state&objectStateDeallocated != 0 {
		t.Errorf("exception raised from source lost its traceback after ClearErr: %v", second)
	}
	if want := mustCreateException(KeyErrorType, "k"); !exceptionsAreEquivalent(second, want) {
		t.Errorf("raised exception is %v after ClearErr, want %v", second, want)
	}
}
