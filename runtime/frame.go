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
	"reflect"
)

const notBaseExceptionMsg = "exceptions must derive from BaseException"

// FrameType is the object representing the Python 'frame' type.
var FrameType = newBasisType("frame", reflect.TypeOf(Frame{}), ObjectType)

// Frame represents Python 'frame' objects. A frame belongs to exactly one
// thread state and records the code being run, its namespaces and the line
// currently executing.
type Frame struct {
	Object
	ts       *ThreadState
	back     *Frame
	code     *Code
	globals  *Dict
	locals   *Dict
	builtins *Dict
	lineno   int
}

func newFrame(ts *ThreadState, back *Frame, code *Code, globals, locals *Dict) *Frame {
	f := &Frame{Object: objectHeader(FrameType), ts: ts, back: back, code: code, globals: globals, locals: locals}
	if code != nil {
		f.lineno = code.firstlineno
	}
	f.builtins = frameBuiltins(ts, globals)
	return f
}

// frameBuiltins returns the builtins namespace for code running with the
// given globals: the globals' __builtins__ entry when present, otherwise the
// interpreter's builtins.
func frameBuiltins(ts *ThreadState, globals *Dict) *Dict {
	if globals != nil {
		if b := globals.getItemStringNoError("__builtins__"); b != nil {
			switch {
			case b.isInstance(DictType):
				return toDictUnsafe(b)
			case b.isInstance(ModuleType):
				return b.Dict()
			}
		}
	}
	if ts != nil && ts.interp != nil {
		return ts.interp.builtins
	}
	return nil
}

// NewRootFrame returns a frame with no code at the bottom of the current
// thread state's stack. It is the frame to pass to runtime functions called
// from Go outside of any running Python code.
func NewRootFrame() *Frame {
	ts := ThreadStateGet()
	return newFrame(ts, nil, nil, nil, nil)
}

func toFrameUnsafe(o *Object) *Frame {
	return (*Frame)(o.toPointer())
}

// ToObject upcasts f to an Object.
func (f *Frame) ToObject() *Object {
	return &f.Object
}

// ThreadState returns the thread state f is running on.
func (f *Frame) ThreadState() *ThreadState {
	return f.ts
}

// Back returns the calling frame, or nil.
func (f *Frame) Back() *Frame {
	return f.back
}

// Code returns the code object f is executing, or nil for a root frame.
func (f *Frame) Code() *Code {
	return f.code
}

// Globals returns the globals dict for this frame.
func (f *Frame) Globals() *Dict {
	return f.globals
}

// Locals returns the locals dict for this frame.
func (f *Frame) Locals() *Dict {
	return f.locals
}

// Lineno returns the line currently executing in f.
func (f *Frame) Lineno() int {
	return f.lineno
}

// SetLineno sets the current line number for the frame.
func (f *Frame) SetLineno(lineno int) {
	f.lineno = lineno
}

// Raise creates an exception and records it as the thread's pending
// exception in a way that is compatible with the Python raise statement:
// typ may be an exception class or instance and inst supplies constructor
// args when typ is a class. If typ, inst and tb are all nil the exception
// currently being handled is re-raised. Raise returns the exception to
// propagate.
func (f *Frame) Raise(typ *Object, inst *Object, tb *Object) *BaseException {
	if typ == nil && inst == nil && tb == nil {
		_, value, excTb := f.ts.GetExcInfo()
		if value == nil || value == None {
			return f.RaiseType(RuntimeErrorType, "No active exception to reraise")
		}
		e := toBaseExceptionUnsafe(value)
		var traceback *Traceback
		if excTb != nil && excTb != None {
			traceback = toTracebackUnsafe(excTb)
		}
		f.ts.restoreNormalized(e, traceback)
		return f.ts.keepRaised(e)
	}
	if inst == nil {
		inst = None
	}
	var e *BaseException
	switch {
	case typ.isInstance(TypeType):
		t := toTypeUnsafe(typ)
		if !t.isSubclass(BaseExceptionType) {
			return f.RaiseType(TypeErrorType, notBaseExceptionMsg)
		}
		if inst.isInstance(t) {
			e = toBaseExceptionUnsafe(inst)
			break
		}
		o, raised := createException(f, typ, inst)
		if raised != nil {
			return raised
		}
		if !o.isInstance(BaseExceptionType) {
			format := "calling %s should have returned an instance of BaseException, not %s"
			return f.RaiseType(TypeErrorType, fmt.Sprintf(format, t.Name(), o.typ.Name()))
		}
		// The pending triple and lastRaised take their own references.
		defer DecRef(o)
		e = toBaseExceptionUnsafe(o)
	case typ.isInstance(BaseExceptionType):
		if inst != None {
			return f.RaiseType(TypeErrorType, "instance exception may not have a separate value")
		}
		e = toBaseExceptionUnsafe(typ)
	default:
		return f.RaiseType(TypeErrorType, notBaseExceptionMsg)
	}
	if tb != nil && tb != None {
		if !tb.isInstance(TracebackType) {
			return f.RaiseType(TypeErrorType, "raise: arg 3 must be a traceback or None")
		}
		e.traceback = toTracebackUnsafe(tb)
	}
	return f.ts.setException(f, e)
}

// RaiseType constructs a new object of type t, passing a single str argument
// built from msg and throws the constructed object.
func (f *Frame) RaiseType(t *Type, msg string) *BaseException {
	s := NewStr(msg)
	raised := f.Raise(t.ToObject(), s.ToObject(), nil)
	DecRef(s.ToObject())
	return raised
}

// ExcInfo returns the exception currently being handled by f's thread and the
// associated traceback.
func (f *Frame) ExcInfo() (*BaseException, *Traceback) {
	_, value, tb := f.ts.GetExcInfo()
	var e *BaseException
	var traceback *Traceback
	if value != nil && value != None {
		e = toBaseExceptionUnsafe(value)
	}
	if tb != nil && tb != None {
		traceback = toTracebackUnsafe(tb)
	}
	return e, traceback
}

// RestoreExc replaces the pending exception of f's thread and its traceback.
// The previously pending values are returned normalized. Passing nil for e
// clears the pending exception, which is how a caught exception is
// suppressed.
func (f *Frame) RestoreExc(e *BaseException, tb *Traceback) (*BaseException, *Traceback) {
	typ, value, tbObj := f.ts.Fetch()
	if typ != nil {
		typ, value, tbObj = f.ts.NormalizeException(f, typ, value, tbObj)
		DecRef(typ)
	}
	var prev *BaseException
	var prevTb *Traceback
	if value != nil && value.isInstance(BaseExceptionType) {
		prev = toBaseExceptionUnsafe(value)
	}
	if tbObj != nil && tbObj != None {
		prevTb = toTracebackUnsafe(tbObj)
	}
	if e != nil {
		f.ts.restoreNormalized(e, tb)
	}
	return prev, prevTb
}

func frameGetBack(f *Frame, o *Object) (*Object, *BaseException) {
	if back := toFrameUnsafe(o).back; back != nil {
		return back.ToObject(), nil
	}
	return None, nil
}

func frameGetCode(f *Frame, o *Object) (*Object, *BaseException) {
	if c := toFrameUnsafe(o).code; c != nil {
		return c.ToObject(), nil
	}
	return None, nil
}

func frameGetGlobals(f *Frame, o *Object) (*Object, *BaseException) {
	if g := toFrameUnsafe(o).globals; g != nil {
		return g.ToObject(), nil
	}
	return None, nil
}

func frameGetLocals(f *Frame, o *Object) (*Object, *BaseException) {
	if l := toFrameUnsafe(o).locals; l != nil {
		return l.ToObject(), nil
	}
	return None, nil
}

func frameGetBuiltins(f *Frame, o *Object) (*Object, *BaseException) {
	if b := toFrameUnsafe(o).builtins; b != nil {
		return b.ToObject(), nil
	}
	return None, nil
}

func frameGetLineno(f *Frame, o *Object) (*Object, *BaseException) {
	return NewInt(int64(toFrameUnsafe(o).lineno)).ToObject(), nil
}

func frameRepr(f *Frame, o *Object) (*Object, *BaseException) {
	frame := toFrameUnsafe(o)
	if frame.code == nil {
		return NewStr(fmt.Sprintf("<frame at %p>", frame)).ToObject(), nil
	}
	format := "<frame at %p, file '%s', line %d, code %s>"
	return NewStr(fmt.Sprintf(format, frame, frame.code.filename, frame.lineno, frame.code.name)).ToObject(), nil
}

func initFrameType(dict map[string]*Object) {
	FrameType.flags &= ^(typeFlagInstantiable | typeFlagBasetype)
	dict["f_back"] = newGetSetDescriptor(FrameType, "f_back", frameGetBack, nil)
	dict["f_builtins"] = newGetSetDescriptor(FrameType, "f_builtins", frameGetBuiltins, nil)
	dict["f_code"] = newGetSetDescriptor(FrameType, "f_code", frameGetCode, nil)
	dict["f_globals"] = newGetSetDescriptor(FrameType, "f_globals", frameGetGlobals, nil)
	dict["f_lineno"] = newGetSetDescriptor(FrameType, "f_lineno", frameGetLineno, nil)
	dict["f_locals"] = newGetSetDescriptor(FrameType, "f_locals", frameGetLocals, nil)
	FrameType.slots.Repr = &unaryOpSlot{frameRepr}
}
