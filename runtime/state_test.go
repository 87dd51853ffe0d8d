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
	"errors"
	"testing"
)

func TestAddPendingCallFull(t *testing.T) {
	f := newTestRuntime(t, testConfig())
	interp := f.ts.interp
	ran := 0
	for i := 0; i < maxPendingCalls; i++ {
		if err := interp.AddPendingCall(func(*Frame) *BaseException {
			ran++
			return nil
		}); err != nil {
			t.Fatalf("AddPendingCall() #%d failed: %v", i, err)
		}
	}
	if err := interp.AddPendingCall(func(*Frame) *BaseException { return nil }); !errors.Is(err, errPendingCallsFull) {
		t.Errorf("AddPendingCall() on a full queue = %v, want %v", err, errPendingCallsFull)
	}
	if raised := interp.makePendingCalls(f); raised != nil {
		t.Fatal(raised)
	}
	if ran != maxPendingCalls {
		t.Errorf("ran %d pending calls, want %d", ran, maxPendingCalls)
	}
	if interp.hasPendingCalls() {
		t.Error("pending calls remain after makePendingCalls")
	}
}

func TestAddPendingCallBusy(t *testing.T) {
	f := newTestRuntime(t, testConfig())
	interp := f.ts.interp
	interp.pending.lock.Lock()
	err := interp.AddPendingCall(func(*Frame) *BaseException { return nil })
	interp.pending.lock.Unlock()
	if !errors.Is(err, errPendingCallsBusy) {
		t.Errorf("AddPendingCall() with the queue locked = %v, want %v", err, errPendingCallsBusy)
	}
	if interp.hasPendingCalls() {
		t.Error("rejected pending call was queued")
	}
}

func TestMakePendingCallsStopsOnError(t *testing.T) {
	f := newTestRuntime(t, testConfig())
	interp := f.ts.interp
	var order []string
	calls := []func(*Frame) *BaseException{
		func(*Frame) *BaseException {
			order = append(order, "a")
			return nil
		},
		func(f *Frame) *BaseException {
			order = append(order, "b")
			return f.RaiseType(ValueErrorType, "b failed")
		},
		func(*Frame) *BaseException {
			order = append(order, "c")
			return nil
		},
	}
	for _, fn := range calls {
		if err := interp.AddPendingCall(fn); err != nil {
			t.Fatal(err)
		}
	}
	raised := interp.makePendingCalls(f)
	if want := mustCreateException(ValueErrorType, "b failed"); !exceptionsAreEquivalent(raised, want) {
		t.Errorf("makePendingCalls() raised %v, want %v", raised, want)
	}
	f.ts.ClearErr()
	if !interp.hasPendingCalls() {
		t.Fatal("remaining pending call was dropped")
	}
	if !interp.evalBreaker.Load() {
		t.Error("eval breaker not set after a failed pending call")
	}
	if raised := interp.makePendingCalls(f); raised != nil {
		t.Fatal(raised)
	}
	if got := len(order); got != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("pending calls ran in order %q, want [a b c]", order)
	}
}

func TestMakePendingCallsNotReentrant(t *testing.T) {
	f := newTestRuntime(t, testConfig())
	interp := f.ts.interp
	var order []string
	outer := func(f *Frame) *BaseException {
		order = append(order, "outer start")
		if raised := interp.makePendingCalls(f); raised != nil {
			return raised
		}
		order = append(order, "outer end")
		return nil
	}
	inner := func(*Frame) *BaseException {
		order = append(order, "inner")
		return nil
	}
	for _, fn := range []func(*Frame) *BaseException{outer, inner} {
		if err := interp.AddPendingCall(fn); err != nil {
			t.Fatal(err)
		}
	}
	if raised := interp.makePendingCalls(f); raised != nil {
		t.Fatal(raised)
	}
	want := []string{"outer start", "outer end", "inner"}
	if len(order) != len(want) {
		t.Fatalf("pending calls ran %q, want %q", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("pending call step %d = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestMakePendingCallsOffMainThread(t *testing.T) {
	f := newTestRuntime(t, testConfig())
	interp := f.ts.interp
	ts, err := NewThreadState(interp)
	if err != nil {
		t.Fatal(err)
	}
	defer ts.Delete()
	ran := false
	if err := interp.AddPendingCall(func(*Frame) *BaseException {
		ran = true
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if raised := interp.makePendingCalls(ts.callFrame()); raised != nil {
		t.Fatal(raised)
	}
	if ran {
		t.Error("pending call ran on a non-main thread")
	}
	if raised := interp.makePendingCalls(f); raised != nil {
		t.Fatal(raised)
	}
	if !ran {
		t.Error("pending call did not run on the main thread")
	}
}

func TestModuleRegistry(t *testing.T) {
	f := newTestRuntime(t, testConfig())
	interp := f.ts.interp
	def := &ModuleDef{Name: "dup"}
	m := NewModule("dup")
	if got := interp.FindModule(def); got != nil {
		t.Errorf("FindModule() before AddModule = %v, want nil", got)
	}
	if raised := interp.AddModule(f, m, def); raised != nil {
		t.Fatal(raised)
	}
	if def.index == 0 {
		t.Fatal("AddModule() did not assign a module index")
	}
	if got := interp.FindModule(def); got != m {
		t.Errorf("FindModule() = %v, want %v", got, m)
	}
	raised := interp.AddModule(f, m, def)
	if want := mustCreateException(SystemErrorType, "module dup already added"); !exceptionsAreEquivalent(raised, want) {
		t.Errorf("second AddModule() raised %v, want %v", raised, want)
	}
	f.ts.ClearErr()
	other := &ModuleDef{Name: "other"}
	if raised := interp.AddModule(f, NewModule("other"), other); raised != nil {
		t.Fatal(raised)
	}
	if other.index == def.index {
		t.Errorf("distinct definitions share module index %d", def.index)
	}
	if raised := interp.RemoveModule(f, def); raised != nil {
		t.Fatal(raised)
	}
	if got := interp.FindModule(def); got != nil {
		t.Errorf("FindModule() after RemoveModule = %v, want nil", got)
	}
	if got := interp.FindModule(other); got == nil {
		t.Error("RemoveModule() removed an unrelated module")
	}
	if got := interp.FindModule(nil); got != nil {
		t.Errorf("FindModule(nil) = %v, want nil", got)
	}
}

func TestModuleRegistryFatal(t *testing.T) {
	f := newTestRuntime(t, testConfig())
	interp := f.ts.interp
	oldLogFatal := logFatal
	defer func() { logFatal = oldLogFatal }()
	var got []string
	logFatal = func(msg string) {
		got = append(got, msg)
	}
	interp.AddModule(f, NewModule("x"), nil)
	interp.RemoveModule(f, &ModuleDef{Name: "unregistered"})
	want := []string{
		"Fatal Python error: AddModule: module definition is NULL",
		"Fatal Python error: RemoveModule: invalid module index",
	}
	if len(got) != len(want) {
		t.Fatalf("logged %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fatal message %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestThreadStates(t *testing.T) {
	f := newTestRuntime(t, testConfig())
	interp := f.ts.interp
	ts, err := NewThreadState(interp)
	if err != nil {
		t.Fatal(err)
	}
	if ts.Interp() != interp {
		t.Errorf("Interp() = %p, want %p", ts.Interp(), interp)
	}
	threads := interp.Threads()
	if len(threads) != 2 || threads[0] != ts || threads[1] != f.ts {
		t.Errorf("Threads() = %v, want [%p %p]", threads, ts, f.ts)
	}
	if ts.ID() != 0 {
		t.Errorf("ID() before first swap = %d, want 0", ts.ID())
	}
	if old := ThreadStateSwap(ts); old != f.ts {
		t.Errorf("ThreadStateSwap() returned %p, want %p", old, f.ts)
	}
	if ThreadStateGet() != ts {
		t.Error("ThreadStateGet() did not return the swapped in thread state")
	}
	ThreadStateSwap(f.ts)
	id := ts.ID()
	if id == 0 || id == f.ts.ID() {
		t.Errorf("ID() after swap = %d, want a fresh nonzero id", id)
	}
	ThreadStateSwap(ts)
	ThreadStateSwap(f.ts)
	if ts.ID() != id {
		t.Errorf("ID() changed on second swap: %d, want %d", ts.ID(), id)
	}
	ts.Delete()
	if threads := interp.Threads(); len(threads) != 1 || threads[0] != f.ts {
		t.Errorf("Threads() after Delete = %v, want [%p]", threads, f.ts)
	}
}

func TestThreadStateDeleteCurrent(t *testing.T) {
	f := newTestRuntime(t, testConfig())
	ts, err := NewThreadState(f.ts.interp)
	if err != nil {
		t.Fatal(err)
	}
	oldLogFatal := logFatal
	defer func() { logFatal = oldLogFatal }()
	var got []string
	logFatal = func(msg string) {
		got = append(got, msg)
	}
	ThreadStateSwap(ts)
	ts.Delete()
	ThreadStateSwap(f.ts)
	if want := "Fatal Python error: ThreadState.Delete: tstate is still current"; len(got) != 1 || got[0] != want {
		t.Errorf("Delete() of the current thread state logged %q, want [%q]", got, want)
	}
	if len(f.ts.interp.Threads()) != 2 {
		t.Error("current thread state was unlinked")
	}
	ts.Delete()
	if len(f.ts.interp.Threads()) != 1 {
		t.Error("Delete() did not unlink the thread state")
	}
}

func TestStateDicts(t *testing.T) {
	f := newTestRuntime(t, testConfig())
	interp := f.ts.interp
	for _, cas := range []struct {
		name string
		get  func() *Dict
	}{
		{"ThreadState", f.ts.Dict},
		{"InterpreterState", interp.Dict},
	} {
		d := cas.get()
		if d == nil {
			t.Errorf("%s.Dict() = nil", cas.name)
			continue
		}
		if raised := d.SetItemString(f, "k", None); raised != nil {
			t.Fatal(raised)
		}
		if got := cas.get(); got != d {
			t.Errorf("%s.Dict() returned a new dict on second call", cas.name)
		}
	}
	if f.ts.Dict() == interp.Dict() {
		t.Error("thread and interpreter share a dict")
	}
}

func TestInterpreterConfigIsCopy(t *testing.T) {
	f := newTestRuntime(t, testConfig())
	interp := f.ts.interp
	c := interp.Config()
	want := c.Verbose
	c.Verbose = want + 5
	if got := interp.Config().Verbose; got != want {
		t.Errorf("modifying Config() result changed the interpreter: Verbose = %d, want %d", got, want)
	}
}

func TestSetEvalFrameFunc(t *testing.T) {
	f := newTestRuntime(t, testConfig())
	interp := f.ts.interp
	var names []string
	interp.SetEvalFrameFunc(func(ts *ThreadState, frame *Frame) (*Object, *BaseException) {
		names = append(names, frame.code.name)
		return defaultEvalFrame(ts, frame)
	})
	d, raised := runTestSource(f, "def g():\n  return 3\nresult = g()\n")
	if raised != nil {
		t.Fatal(raised)
	}
	if got := testResult(d); got == nil || !got.isInstance(IntType) || toIntUnsafe(got).Value() != 3 {
		t.Errorf("result = %v, want 3", got)
	}
	if len(names) != 2 || names[0] != "<module>" || names[1] != "g" {
		t.Errorf("custom evaluator saw frames %q, want [<module> g]", names)
	}
	interp.SetEvalFrameFunc(nil)
	if interp.EvalFrameFunc() == nil {
		t.Fatal("SetEvalFrameFunc(nil) left no evaluator")
	}
	if _, raised := runTestSource(f, "x = 1\n"); raised != nil {
		t.Fatal(raised)
	}
	if len(names) != 2 {
		t.Errorf("custom evaluator still called after reset: %q", names)
	}
}

func TestRecursionLimitDefault(t *testing.T) {
	f := newTestRuntime(t, testConfig())
	if got := f.ts.interp.RecursionLimit(); got != defaultRecursionLimit {
		t.Errorf("RecursionLimit() = %d, want %d", got, defaultRecursionLimit)
	}
}

func TestSetAsyncExcCancel(t *testing.T) {
	f := newTestRuntime(t, testConfig())
	f.ts.SetAsyncExc(KeyboardInterruptType.ToObject())
	f.ts.SetAsyncExc(nil)
	if _, raised := runTestSource(f, "x = 1\n"); raised != nil {
		t.Errorf("cancelled async exception was raised: %v", raised)
		f.ts.ClearErr()
	}
}

func TestReprEnterLeave(t *testing.T) {
	f := NewRootFrame()
	o := NewList().ToObject()
	if f.ts.reprEnter(o) {
		t.Fatal("reprEnter() on a fresh object reported recursion")
	}
	if !f.ts.reprEnter(o) {
		t.Error("reprEnter() on an object being repr'd did not report recursion")
	}
	f.ts.reprLeave(o)
	if f.ts.reprEnter(o) {
		t.Error("reprEnter() after reprLeave reported recursion")
	}
	f.ts.reprLeave(o)
}

func TestNewInterpreterState(t *testing.T) {
	interp, err := NewInterpreterState()
	if err != nil {
		t.Fatal(err)
	}
	main := Runtime().MainInterpreter()
	if interp == main || interp.ID() == main.ID() {
		t.Errorf("new interpreter has id %d, same as the main interpreter", interp.ID())
	}
	if got := interp.RecursionLimit(); got != defaultRecursionLimit {
		t.Errorf("RecursionLimit() = %d, want %d", got, defaultRecursionLimit)
	}
	if interp.Modules() == main.Modules() {
		t.Error("new interpreter shares the main module table")
	}
	ts, err := NewThreadState(interp)
	if err != nil {
		t.Fatal(err)
	}
	if threads := interp.Threads(); len(threads) != 1 || threads[0] != ts {
		t.Errorf("Threads() = %v, want [%p]", threads, ts)
	}
	interp.Delete()
	if len(interp.Threads()) != 0 {
		t.Error("Delete() left thread states attached")
	}
	if Runtime().MainInterpreter() != main {
		t.Error("deleting a subinterpreter changed the main interpreter")
	}
}

func TestInterpreterClearLeavesNoPendingError(t *testing.T) {
	interp, err := NewInterpreterState()
	if err != nil {
		t.Fatal(err)
	}
	ts, err := NewThreadState(interp)
	if err != nil {
		t.Fatal(err)
	}
	f := ts.callFrame()
	st, raised := interp.getWarnings(f)
	if raised != nil {
		t.Fatal(raised)
	}
	list := st.filters.ToObject()
	IncRef(list)
	interp.Clear(f)
	if typ := ts.Occurred(); typ != nil {
		t.Errorf("Clear() left %v pending", typ)
	}
	if interp.warnings != nil {
		t.Error("Clear() kept the warnings state")
	}
	if n := RefCount(list); n != 1 {
		t.Errorf("warnings filter list has ref count %d after Clear(), want 1", n)
	}
	DecRef(list)
	interp.Delete()
}
