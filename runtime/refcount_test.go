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
	"strings"
	"testing"
)

func newTestInstance(t *testing.T, f *Frame) *Object {
	t.Helper()
	cls := newTestClass("Foo", []*Type{ObjectType}, NewDict())
	return mustNotRaise(cls.ToObject().Call(f, nil, nil))
}

// classFromSource runs src and returns the class it binds to name.
func classFromSource(t *testing.T, f *Frame, src, name string) (*Dict, *Object) {
	t.Helper()
	d, raised := runTestSource(f, src)
	if raised != nil {
		t.Fatal(raised)
	}
	cls := d.getItemStringNoError(name)
	if cls == nil || !cls.isInstance(TypeType) {
		t.Fatalf("%s is not bound to a class: %v", name, cls)
	}
	return d, cls
}

func TestRefCounting(t *testing.T) {
	f := NewRootFrame()
	o := newTestInstance(t, f)
	if n := RefCount(o); n != 1 {
		t.Fatalf("new object has ref count %d, want 1", n)
	}
	l := NewList()
	l.Append(o)
	if n := RefCount(o); n != 2 {
		t.Errorf("ref count after list append = %d, want 2", n)
	}
	DecRef(l.ToObject())
	if n := RefCount(o); n != 1 {
		t.Errorf("ref count after releasing the list = %d, want 1", n)
	}
	var slot *Object
	setRef(&slot, o)
	setRef(&slot, None)
	if n := RefCount(o); n != 1 {
		t.Errorf("ref count after setRef round trip = %d, want 1", n)
	}
	DecRef(o)
	if o.state&objectStateDeallocated == 0 {
		t.Error("object was not deallocated after its last reference went away")
	}
	XDecRef(nil)
}

func TestRefCountAcrossCall(t *testing.T) {
	f := NewRootFrame()
	d, raised := runTestSource(f, "def drop(x):\n  y = x\ndef keep(x):\n  return x\ndef fail(x):\n  raise ValueError('no')\n")
	if raised != nil {
		t.Fatal(raised)
	}
	for _, name := range []string{"drop", "keep", "fail"} {
		o := newTestInstance(t, f)
		result, raised := d.getItemStringNoError(name).Call(f, Args{o}, nil)
		if name == "fail" {
			if raised == nil {
				t.Errorf("%s(o) did not raise", name)
			}
			f.ts.ClearErr()
		} else if raised != nil {
			t.Errorf("%s(o) raised %v", name, raised)
		}
		if name == "keep" && result != o {
			t.Errorf("keep(o) = %v, want o", result)
		}
		if n := RefCount(o); n != 1 {
			t.Errorf("ref count after %s(o) = %d, want 1", name, n)
		}
		DecRef(o)
		if o.state&objectStateDeallocated == 0 {
			t.Errorf("object passed to %s was not deallocated after its last reference went away", name)
		}
	}
}

func TestCallResultOnlyHeldByLocals(t *testing.T) {
	f := NewRootFrame()
	d, raised := runTestSource(f, "def pack(*args):\n  return args\n")
	if raised != nil {
		t.Fatal(raised)
	}
	result := mustNotRaise(d.getItemStringNoError("pack").Call(f, wrapArgs(1, 2), nil))
	if result.state&objectStateDeallocated != 0 {
		t.Fatal("returned tuple was deallocated")
	}
	if n := RefCount(result); n != 1 {
		t.Errorf("returned tuple has ref count %d, want 1", n)
	}
	if err := checkEqual(f, result, newTestTuple(1, 2).ToObject()); err != "" {
		t.Error(err)
	}
	DecRef(result)
}

func TestRefCountingFatal(t *testing.T) {
	oldLogFatal := logFatal
	defer func() { logFatal = oldLogFatal }()
	var got []string
	logFatal = func(msg string) {
		got = append(got, msg)
	}
	o := newTestInstance(t, NewRootFrame())
	DecRef(o)
	DecRef(o)
	DecRef(nil)
	dealloc(None)
	dealloc(True.ToObject())
	want := []string{
		"Fatal Python error: DecRef: Foo object has negative ref count -1",
		"Fatal Python error: DecRef: NULL object passed to DecRef",
		"Fatal Python error: dealloc: deallocating None",
		"Fatal Python error: dealloc: deallocating bool",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("fatal errors = %q, want %q", got, want)
	}
}

func TestDeallocDeepNesting(t *testing.T) {
	inner := NewList()
	top := inner
	for i := 0; i < 10000; i++ {
		l := NewList()
		l.Append(top.ToObject())
		DecRef(top.ToObject())
		top = l
	}
	DecRef(top.ToObject())
	if trashcan.depth != 0 || len(trashcan.pending) != 0 {
		t.Errorf("trashcan not drained: depth %d, %d pending", trashcan.depth, len(trashcan.pending))
	}
	if inner.state&objectStateDeallocated == 0 {
		t.Error("innermost list was not deallocated")
	}
}

func TestFinalizer(t *testing.T) {
	f := NewRootFrame()
	d, cls := classFromSource(t, f, "log = []\nclass D(object):\n  def __del__(self):\n    log.append('del')\n", "D")
	o := mustNotRaise(cls.Call(f, nil, nil))
	DecRef(o)
	want := newTestList("del")
	if err := checkEqual(f, d.getItemStringNoError("log"), want.ToObject()); err != "" {
		t.Error(err)
	}
	if o.state&objectStateDeallocated == 0 {
		t.Error("finalized object was not deallocated")
	}
}

func TestFinalizerResurrects(t *testing.T) {
	f := NewRootFrame()
	d, cls := classFromSource(t, f, "saved = []\nclass R(object):\n  def __del__(self):\n    saved.append(self)\n", "R")
	o := mustNotRaise(cls.Call(f, nil, nil))
	DecRef(o)
	if o.state&objectStateDeallocated != 0 {
		t.Fatal("resurrected object was deallocated")
	}
	if n := RefCount(o); n != 1 {
		t.Errorf("resurrected object has ref count %d, want 1", n)
	}
	saved := toListUnsafe(d.getItemStringNoError("saved"))
	if saved.Len() != 1 || saved.elems[0] != o {
		t.Errorf("saved = %v, want [%v]", saved, o)
	}
	// __del__ runs at most once.
	if raised := saved.SetItem(f, 0, None); raised != nil {
		t.Fatal(raised)
	}
	if o.state&objectStateDeallocated == 0 {
		t.Error("object was not deallocated after the resurrecting reference went away")
	}
}

func TestFinalizerRaises(t *testing.T) {
	cfg, buf := captureConfig()
	f := newTestRuntime(t, cfg)
	_, cls := classFromSource(t, f, "class E(object):\n  def __del__(self):\n    raise ValueError('in del')\n", "E")
	o := mustNotRaise(cls.Call(f, nil, nil))
	f.ts.SetString(f, KeyErrorType, "pending")
	DecRef(o)
	got := buf.String()
	if !strings.HasPrefix(got, "Exception ignored in: <bound method") || !strings.HasSuffix(got, "ValueError: in del\n") {
		t.Errorf("finalizer error report = %q", got)
	}
	if !f.ts.ExceptionMatches(KeyErrorType.ToObject()) {
		t.Errorf("pending exception after finalizer = %v, want KeyError", f.ts.Occurred())
	}
	f.ts.ClearErr()
}

func TestWeakRef(t *testing.T) {
	f := NewRootFrame()
	o := newTestInstance(t, f)
	r, raised := NewWeakRef(f, o, nil)
	if raised != nil {
		t.Fatal(raised)
	}
	if r.Get() != o {
		t.Errorf("Get() = %v, want %v", r.Get(), o)
	}
	if n := RefCount(o); n != 1 {
		t.Errorf("weak reference changed ref count to %d", n)
	}
	shared, raised := NewWeakRef(f, o, None)
	if raised != nil || shared != r {
		t.Errorf("second weakref without callback = %v, %v, want the shared %v", shared, raised, r)
	}
	DecRef(shared.ToObject())
	if got := mustNotRaise(r.ToObject().Call(f, nil, nil)); got != o {
		t.Errorf("calling live weakref = %v, want %v", got, o)
	}
	hash, raised := Hash(f, r.ToObject())
	if raised != nil {
		t.Fatal(raised)
	}
	DecRef(o)
	if r.Get() != nil {
		t.Error("weakref still alive after referent was deallocated")
	}
	if got := mustNotRaise(r.ToObject().Call(f, nil, nil)); got != None {
		t.Errorf("calling dead weakref = %v, want None", got)
	}
	if again, raised := Hash(f, r.ToObject()); raised != nil || again.Value() != hash.Value() {
		t.Errorf("hash of dead weakref = %v, %v, want cached %v", again, raised, hash)
	}
	DecRef(r.ToObject())
}

func TestWeakRefDeadHash(t *testing.T) {
	f := NewRootFrame()
	o := newTestInstance(t, f)
	r, raised := NewWeakRef(f, o, nil)
	if raised != nil {
		t.Fatal(raised)
	}
	DecRef(o)
	_, raised = Hash(f, r.ToObject())
	if want := mustCreateException(TypeErrorType, "weak object has gone away"); !exceptionsAreEquivalent(raised, want) {
		t.Errorf("hash of dead weakref raised %v, want %v", raised, want)
	}
	f.ts.ClearErr()
}

func TestWeakRefCallback(t *testing.T) {
	f := NewRootFrame()
	o := newTestInstance(t, f)
	var calls []*Object
	callback := newBuiltinFunction("cb", func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
		calls = append(calls, args...)
		return None, nil
	})
	r1, raised := NewWeakRef(f, o, callback.ToObject())
	if raised != nil {
		t.Fatal(raised)
	}
	r2, raised := NewWeakRef(f, o, callback.ToObject())
	if raised != nil {
		t.Fatal(raised)
	}
	if r1 == r2 {
		t.Error("weakrefs with callbacks were shared")
	}
	DecRef(o)
	if len(calls) != 2 {
		t.Fatalf("callback ran %d times, want 2", len(calls))
	}
	for _, c := range calls {
		if c != r1.ToObject() && c != r2.ToObject() {
			t.Errorf("callback called with %v, want one of the weakrefs", c)
		}
	}
	DecRef(r1.ToObject())
	DecRef(r2.ToObject())
}

func TestWeakRefCallbackRaises(t *testing.T) {
	cfg, buf := captureConfig()
	f := newTestRuntime(t, cfg)
	o := newTestInstance(t, f)
	callback := newBuiltinFunction("cb", func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
		return nil, f.RaiseType(RuntimeErrorType, "callback failed")
	})
	r, raised := NewWeakRef(f, o, callback.ToObject())
	if raised != nil {
		t.Fatal(raised)
	}
	DecRef(o)
	got := buf.String()
	if !strings.HasPrefix(got, "Exception ignored while calling weakref callback: ") || !strings.HasSuffix(got, "RuntimeError: callback failed\n") {
		t.Errorf("callback error report = %q", got)
	}
	if f.ts.Occurred() != nil {
		t.Error("failing callback left an exception pending")
		f.ts.ClearErr()
	}
	DecRef(r.ToObject())
}

func TestWeakRefUnsupported(t *testing.T) {
	f := NewRootFrame()
	cases := []invokeTestCase{
		{args: wrapArgs(1), wantExc: mustCreateException(TypeErrorType, "cannot create weak reference to 'int' object")},
		{args: wrapArgs("s"), wantExc: mustCreateException(TypeErrorType, "cannot create weak reference to 'str' object")},
		{args: wrapArgs(newTestInstance(t, f), None, None), wantExc: mustCreateException(TypeErrorType, "__new__ expected at most 2 arguments, got 3")},
	}
	for _, cas := range cases {
		if err := runInvokeTestCase(WeakRefType.ToObject(), &cas); err != "" {
			t.Error(err)
		}
	}
}

func TestDebugAllocator(t *testing.T) {
	Finalize()
	if err := PreInitialize(&PreConfig{Allocator: AllocatorDebug}); err != nil {
		t.Fatal(err)
	}
	if _, err := Initialize(testConfig()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		Finalize()
		if _, err := Initialize(testConfig()); err != nil {
			t.Fatalf("re-initializing test runtime: %v", err)
		}
	})
	f := NewRootFrame()
	cls := newTestClass("Counted", []*Type{ObjectType}, NewDict())
	before := AllocStats(cls)
	var objs []*Object
	for i := 0; i < 3; i++ {
		objs = append(objs, mustNotRaise(cls.ToObject().Call(f, nil, nil)))
	}
	DecRef(objs[0])
	DecRef(objs[1])
	got := AllocStats(cls)
	if got.Allocs-before.Allocs != 3 || got.Deallocs-before.Deallocs != 2 {
		t.Errorf("AllocStats(Counted) = %+v (before %+v), want 3 allocs and 2 deallocs", got, before)
	}
	DecRef(objs[2])
}

func TestDefaultAllocatorNoStats(t *testing.T) {
	f := NewRootFrame()
	cls := newTestClass("Uncounted", []*Type{ObjectType}, NewDict())
	DecRef(mustNotRaise(cls.ToObject().Call(f, nil, nil)))
	if got := AllocStats(cls); got != (AllocCounts{}) {
		t.Errorf("AllocStats with the default allocator = %+v, want zeros", got)
	}
}
