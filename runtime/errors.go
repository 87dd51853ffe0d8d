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
)

// normalizeRecursionLimit bounds how many times NormalizeException retries
// with the exception raised while instantiating the previous one.
const normalizeRecursionLimit = 32

// excInfo is one entry of a thread's stack of exceptions being handled.
type excInfo struct {
	typ      *Object
	value    *Object
	tb       *Object
	previous *excInfo
}

// savedErr is a pending exception parked while running code that must not
// observe it, such as finalizers and weakref callbacks.
type savedErr struct {
	typ, value, tb *Object
}

// FatalError reports an unrecoverable invariant violation and terminates the
// process through logFatal.
func FatalError(fn, msg string) {
	prefix := "Fatal Python error: "
	if fn != "" {
		prefix += fn + ": "
	}
	logFatal(prefix + msg)
}

func isExceptionClass(o *Object) bool {
	return o != nil && o.isInstance(TypeType) && toTypeUnsafe(o).isSubclass(BaseExceptionType)
}

// createException instantiates the exception class exc, unpacking value as
// the constructor arguments when it is a tuple.
func createException(f *Frame, exc, value *Object) (*Object, *BaseException) {
	switch {
	case value == nil || value == None:
		return exc.Call(f, nil, nil)
	case value.isInstance(TupleType):
		return exc.Call(f, toTupleUnsafe(value).elems, nil)
	}
	return exc.Call(f, Args{value}, nil)
}

// Restore sets the pending exception triple, taking ownership of the three
// references. A tb that is not a traceback is dropped. The previously pending
// triple is released.
func (ts *ThreadState) Restore(typ, value, tb *Object) {
	if tb != nil && !tb.isInstance(TracebackType) {
		DecRef(tb)
		tb = nil
	}
	oldType, oldValue, oldTb := ts.curType, ts.curValue, ts.curTb
	ts.curType, ts.curValue, ts.curTb = typ, value, tb
	XDecRef(oldType)
	XDecRef(oldValue)
	XDecRef(oldTb)
}

// Fetch clears the pending exception and returns it. Ownership of the three
// references passes to the caller. All three are nil when nothing is
// pending.
func (ts *ThreadState) Fetch() (typ, value, tb *Object) {
	typ, value, tb = ts.curType, ts.curValue, ts.curTb
	ts.curType, ts.curValue, ts.curTb = nil, nil, nil
	return typ, value, tb
}

// ClearErr discards the pending exception. The discarded value stays
// reachable as the thread's last raised exception, so a *BaseException
// returned by the failed call remains usable after ClearErr.
func (ts *ThreadState) ClearErr() {
	typ, value, tb := ts.Fetch()
	if value != nil {
		setRef(&ts.lastRaised, value)
	}
	XDecRef(typ)
	XDecRef(value)
	XDecRef(tb)
}

// Occurred returns the type of the pending exception, or nil.
func (ts *ThreadState) Occurred() *Object {
	return ts.curType
}

func (ts *ThreadState) restoreNormalized(e *BaseException, tb *Traceback) {
	if tb == nil {
		tb = e.traceback
	}
	var tbObj *Object
	if tb != nil {
		tbObj = newRef(tb.ToObject())
		e.traceback = tb
	}
	ts.Restore(newRef(e.typ.ToObject()), newRef(e.ToObject()), tbObj)
}

func (ts *ThreadState) saveErr() savedErr {
	typ, value, tb := ts.Fetch()
	return savedErr{typ, value, tb}
}

func (ts *ThreadState) restoreErr(s savedErr) {
	ts.Restore(s.typ, s.value, s.tb)
}

// setException makes e the pending exception, linking the exception
// currently being handled as its __context__.
func (ts *ThreadState) setException(f *Frame, e *BaseException) *BaseException {
	if _, handled, _ := ts.GetExcInfo(); handled != nil && handled != None && handled != e.ToObject() {
		h := toBaseExceptionUnsafe(handled)
		// Cut any link back to e so the context chain stays acyclic.
		for o := h; o.context != nil; o = o.context {
			if o.context == e {
				o.context = nil
				break
			}
		}
		e.context = h
	}
	ts.restoreNormalized(e, nil)
	return ts.keepRaised(e)
}

// keepRaised records e as the thread's most recently raised exception and
// returns it. The reference held there outlives ClearErr, so the value a
// raise returns stays valid until the next raise on the same thread.
func (ts *ThreadState) keepRaised(e *BaseException) *BaseException {
	setRef(&ts.lastRaised, e.ToObject())
	return e
}

// SetObject raises an exception of class exc. If value is an instance of exc
// it is raised as is, otherwise it supplies the constructor arguments.
func (ts *ThreadState) SetObject(f *Frame, exc, value *Object) *BaseException {
	if !isExceptionClass(exc) {
		name := "NULL"
		if exc != nil {
			name = exc.String()
		}
		return ts.Format(f, SystemErrorType, "_PyErr_SetObject: exception %s is not a BaseException subclass", name)
	}
	if value != nil && value.isInstance(toTypeUnsafe(exc)) {
		return ts.setException(f, toBaseExceptionUnsafe(value))
	}
	ts.ClearErr()
	o, raised := createException(f, exc, value)
	if raised != nil {
		return raised
	}
	if !o.isInstance(BaseExceptionType) {
		format := "calling %s should have returned an instance of BaseException, not %s"
		return ts.Format(f, TypeErrorType, format, toTypeUnsafe(exc).Name(), o.typ.Name())
	}
	e := ts.setException(f, toBaseExceptionUnsafe(o))
	DecRef(o)
	return e
}

// SetNone raises an exception of type t with no arguments.
func (ts *ThreadState) SetNone(f *Frame, t *Type) *BaseException {
	return ts.SetObject(f, t.ToObject(), nil)
}

// SetString raises an exception of type t with msg as its only argument.
func (ts *ThreadState) SetString(f *Frame, t *Type, msg string) *BaseException {
	s := NewStr(msg)
	raised := ts.SetObject(f, t.ToObject(), s.ToObject())
	DecRef(s.ToObject())
	return raised
}

// Format raises an exception of type t with a message built by fmt.Sprintf.
func (ts *ThreadState) Format(f *Frame, t *Type, format string, args ...interface{}) *BaseException {
	return ts.SetString(f, t, fmt.Sprintf(format, args...))
}

// BadInternalCall raises the SystemError used to report that a runtime
// function was called with invalid arguments.
func (ts *ThreadState) BadInternalCall(f *Frame) *BaseException {
	return ts.SetString(f, SystemErrorType, "bad argument to internal function")
}

// NoMemory raises MemoryError.
func (ts *ThreadState) NoMemory(f *Frame) *BaseException {
	if !MemoryErrorType.IsReady() {
		FatalError("NoMemory", "Out of memory and MemoryError is not initialized yet")
		return nil
	}
	return ts.SetNone(f, MemoryErrorType)
}

// GivenExceptionMatches reports whether err, an exception class or instance,
// matches exc, which may be an exception class or a (nested) tuple of them.
func GivenExceptionMatches(err, exc *Object) bool {
	if err == nil || exc == nil {
		return false
	}
	if exc.isInstance(TupleType) {
		for _, elem := range toTupleUnsafe(exc).elems {
			if GivenExceptionMatches(err, elem) {
				return true
			}
		}
		return false
	}
	if err.isInstance(BaseExceptionType) {
		err = err.typ.ToObject()
	}
	if isExceptionClass(err) && isExceptionClass(exc) {
		return toTypeUnsafe(err).isSubclass(toTypeUnsafe(exc))
	}
	return err == exc
}

// ExceptionMatches reports whether the pending exception matches exc.
func (ts *ThreadState) ExceptionMatches(exc *Object) bool {
	return GivenExceptionMatches(ts.curType, exc)
}

// NormalizeException ensures that value is an instance of typ when typ is an
// exception class, instantiating typ if necessary and trusting the instance's
// class when it is more derived. A failure to instantiate replaces the triple
// with the new exception and retries. Applied to a normalized triple it
// returns its arguments unchanged. References to the triple are consumed and
// the returned references are owned by the caller.
func (ts *ThreadState) NormalizeException(f *Frame, typ, value, tb *Object) (*Object, *Object, *Object) {
	depth := 0
	for {
		if typ == nil {
			return typ, value, tb
		}
		if value == nil {
			value = newRef(None)
		}
		if !isExceptionClass(typ) {
			return typ, value, tb
		}
		t := toTypeUnsafe(typ)
		if value.isInstance(BaseExceptionType) && value.typ.isSubclass(t) {
			if value.typ != t {
				DecRef(typ)
				typ = newRef(value.typ.ToObject())
			}
			return typ, value, tb
		}
		fixed, raised := createException(f, typ, value)
		if raised == nil {
			if fixed.isInstance(BaseExceptionType) {
				DecRef(value)
				return typ, fixed, tb
			}
			ts.Format(f, TypeErrorType, "calling %s should have returned an instance of BaseException, not %s", t.Name(), fixed.typ.Name())
		}
		DecRef(typ)
		DecRef(value)
		depth++
		initialTb := tb
		typ, value, tb = ts.Fetch()
		if initialTb != nil {
			if tb == nil {
				tb = initialTb
			} else {
				DecRef(initialTb)
			}
		}
		if depth >= normalizeRecursionLimit+2 {
			if GivenExceptionMatches(typ, MemoryErrorType.ToObject()) {
				FatalError("NormalizeException", "Cannot recover from MemoryErrors while normalizing exceptions.")
			} else {
				FatalError("NormalizeException", "Cannot recover from the recursive normalization of an exception.")
			}
			return typ, value, tb
		}
	}
}

// topExcInfo returns the innermost entry of the handled-exception stack that
// actually holds an exception.
func (ts *ThreadState) topExcInfo() *excInfo {
	info := ts.excInfo
	for (info.value == nil || info.value == None) && info.previous != nil {
		info = info.previous
	}
	return info
}

// GetExcInfo returns borrowed references to the exception currently being
// handled, as reported by sys.exc_info(). All three are nil when no
// exception is being handled.
func (ts *ThreadState) GetExcInfo() (typ, value, tb *Object) {
	info := ts.topExcInfo()
	return info.typ, info.value, info.tb
}

// SetExcInfo replaces the innermost handled exception, taking ownership of
// the three references.
func (ts *ThreadState) SetExcInfo(typ, value, tb *Object) {
	info := ts.excInfo
	oldType, oldValue, oldTb := info.typ, info.value, info.tb
	info.typ, info.value, info.tb = typ, value, tb
	XDecRef(oldType)
	XDecRef(oldValue)
	XDecRef(oldTb)
}

// PushExcInfo records e as the exception being handled on entry to an
// except clause.
func (ts *ThreadState) PushExcInfo(e *BaseException) {
	info := &excInfo{
		typ:      newRef(e.typ.ToObject()),
		value:    newRef(e.ToObject()),
		previous: ts.excInfo,
	}
	if e.traceback != nil {
		info.tb = newRef(e.traceback.ToObject())
	}
	ts.excInfo = info
}

// PopExcInfo restores the handled exception that was current before the
// matching PushExcInfo.
func (ts *ThreadState) PopExcInfo() {
	info := ts.excInfo
	if info.previous == nil {
		FatalError("PopExcInfo", "exception info stack underflow")
		return
	}
	ts.excInfo = info.previous
	XDecRef(info.typ)
	XDecRef(info.value)
	XDecRef(info.tb)
}
