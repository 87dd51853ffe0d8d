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

// BaseException represents Python 'BaseException' objects.
type BaseException struct {
	Object
	args            *Tuple
	traceback       *Traceback
	cause           *BaseException
	context         *BaseException
	suppressContext bool
}

func toBaseExceptionUnsafe(o *Object) *BaseException {
	return (*BaseException)(o.toPointer())
}

// ToObject upcasts e to an Object.
func (e *BaseException) ToObject() *Object {
	return &e.Object
}

// Args returns the exception's args tuple.
func (e *BaseException) Args() *Tuple {
	if e.args == nil {
		return NewTuple()
	}
	return e.args
}

// Traceback returns the traceback attached to e, or nil.
func (e *BaseException) Traceback() *Traceback {
	return e.traceback
}

// Cause returns e's __cause__, or nil.
func (e *BaseException) Cause() *BaseException {
	return e.cause
}

// Context returns e's __context__, or nil.
func (e *BaseException) Context() *BaseException {
	return e.context
}

// String returns a debugging representation of e that never runs Python code.
func (e *BaseException) String() string {
	if e == nil {
		return "<nil>"
	}
	if e.args != nil && len(e.args.elems) == 1 && e.args.elems[0].isInstance(StrType) {
		return fmt.Sprintf("%s(%q)", e.typ.Name(), toStrUnsafe(e.args.elems[0]).Value())
	}
	return fmt.Sprintf("%s%v", e.typ.Name(), e.Args().elems)
}

// BaseExceptionType corresponds to the Python type 'BaseException'.
var BaseExceptionType = newBasisType("BaseException", reflect.TypeOf(BaseException{}), ObjectType)

func baseExceptionNew(f *Frame, t *Type, args Args, kwargs KWArgs) (*Object, *BaseException) {
	o := newObject(t)
	if o.Dict() == nil {
		o.setDict(NewDict())
	}
	toBaseExceptionUnsafe(o).args = NewTuple(args.makeCopy()...)
	return o, nil
}

func baseExceptionInit(f *Frame, o *Object, args Args, kwargs KWArgs) (*Object, *BaseException) {
	e := toBaseExceptionUnsafe(o)
	old := e.args
	e.args = NewTuple(args.makeCopy()...)
	if old != nil {
		DecRef(old.ToObject())
	}
	return None, nil
}

func baseExceptionDealloc(o *Object) {
	e := toBaseExceptionUnsafe(o)
	if e.args != nil {
		DecRef(e.args.ToObject())
		e.args = nil
	}
	e.traceback, e.cause, e.context = nil, nil, nil
}

func baseExceptionRepr(f *Frame, o *Object) (*Object, *BaseException) {
	e := toBaseExceptionUnsafe(o)
	args := e.Args()
	if len(args.elems) == 1 {
		s, raised := Repr(f, args.elems[0])
		if raised != nil {
			return nil, raised
		}
		return NewStr(fmt.Sprintf("%s(%s)", e.typ.Name(), s.Value())).ToObject(), nil
	}
	s, raised := Repr(f, args.ToObject())
	if raised != nil {
		return nil, raised
	}
	return NewStr(e.typ.Name() + s.Value()).ToObject(), nil
}

func baseExceptionStr(f *Frame, o *Object) (*Object, *BaseException) {
	e := toBaseExceptionUnsafe(o)
	args := e.Args()
	var s *Str
	var raised *BaseException
	switch len(args.elems) {
	case 0:
		return NewStr("").ToObject(), nil
	case 1:
		s, raised = ToStr(f, args.elems[0])
	default:
		s, raised = ToStr(f, args.ToObject())
	}
	if raised != nil {
		return nil, raised
	}
	return s.ToObject(), nil
}

func baseExceptionGetArgs(f *Frame, o *Object) (*Object, *BaseException) {
	return toBaseExceptionUnsafe(o).Args().ToObject(), nil
}

func baseExceptionSetArgs(f *Frame, o, value *Object) *BaseException {
	if value == nil {
		return f.RaiseType(TypeErrorType, "args may not be deleted")
	}
	elems, raised := seqToSlice(f, value)
	if raised != nil {
		return raised
	}
	toBaseExceptionUnsafe(o).args = NewTuple(elems...)
	return nil
}

func baseExceptionGetTraceback(f *Frame, o *Object) (*Object, *BaseException) {
	if tb := toBaseExceptionUnsafe(o).traceback; tb != nil {
		return tb.ToObject(), nil
	}
	return None, nil
}

func baseExceptionSetTraceback(f *Frame, o, value *Object) *BaseException {
	e := toBaseExceptionUnsafe(o)
	switch {
	case value == nil:
		return f.RaiseType(TypeErrorType, "__traceback__ may not be deleted")
	case value == None:
		e.traceback = nil
	case value.isInstance(TracebackType):
		e.traceback = toTracebackUnsafe(value)
	default:
		return f.RaiseType(TypeErrorType, "__traceback__ must be a traceback or None")
	}
	return nil
}

func exceptionOrNone(e *BaseException) *Object {
	if e == nil {
		return None
	}
	return e.ToObject()
}

func baseExceptionGetCause(f *Frame, o *Object) (*Object, *BaseException) {
	return exceptionOrNone(toBaseExceptionUnsafe(o).cause), nil
}

func baseExceptionSetCause(f *Frame, o, value *Object) *BaseException {
	e := toBaseExceptionUnsafe(o)
	switch {
	case value == nil:
		return f.RaiseType(TypeErrorType, "__cause__ may not be deleted")
	case value == None:
		e.cause = nil
	case value.isInstance(BaseExceptionType):
		e.cause = toBaseExceptionUnsafe(value)
	default:
		return f.RaiseType(TypeErrorType, "exception cause must be None or derive from BaseException")
	}
	e.suppressContext = true
	return nil
}

func baseExceptionGetContext(f *Frame, o *Object) (*Object, *BaseException) {
	return exceptionOrNone(toBaseExceptionUnsafe(o).context), nil
}

func baseExceptionSetContext(f *Frame, o, value *Object) *BaseException {
	e := toBaseExceptionUnsafe(o)
	switch {
	case value == nil:
		return f.RaiseType(TypeErrorType, "__context__ may not be deleted")
	case value == None:
		e.context = nil
	case value.isInstance(BaseExceptionType):
		e.context = toBaseExceptionUnsafe(value)
	default:
		return f.RaiseType(TypeErrorType, "exception context must be None or derive from BaseException")
	}
	return nil
}

func baseExceptionGetSuppressContext(f *Frame, o *Object) (*Object, *BaseException) {
	return GetBool(toBaseExceptionUnsafe(o).suppressContext).ToObject(), nil
}

func baseExceptionSetSuppressContext(f *Frame, o, value *Object) *BaseException {
	if value == nil {
		return f.RaiseType(TypeErrorType, "__suppress_context__ may not be deleted")
	}
	b, raised := IsTrue(f, value)
	if raised != nil {
		return raised
	}
	toBaseExceptionUnsafe(o).suppressContext = b
	return nil
}

func baseExceptionWithTraceback(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkMethodArgs(f, "with_traceback", args, BaseExceptionType, ObjectType); raised != nil {
		return nil, raised
	}
	if raised := baseExceptionSetTraceback(f, args[0], args[1]); raised != nil {
		return nil, raised
	}
	return args[0], nil
}

func initBaseExceptionType(dict map[string]*Object) {
	dict["args"] = newGetSetDescriptor(BaseExceptionType, "args", baseExceptionGetArgs, baseExceptionSetArgs)
	dict["__traceback__"] = newGetSetDescriptor(BaseExceptionType, "__traceback__", baseExceptionGetTraceback, baseExceptionSetTraceback)
	dict["__cause__"] = newGetSetDescriptor(BaseExceptionType, "__cause__", baseExceptionGetCause, baseExceptionSetCause)
	dict["__context__"] = newGetSetDescriptor(BaseExceptionType, "__context__", baseExceptionGetContext, baseExceptionSetContext)
	dict["__suppress_context__"] = newGetSetDescriptor(BaseExceptionType, "__suppress_context__", baseExceptionGetSuppressContext, baseExceptionSetSuppressContext)
	dict["with_traceback"] = newBuiltinFunction("with_traceback", baseExceptionWithTraceback).ToObject()
	BaseExceptionType.slots.Dealloc = &deallocSlot{baseExceptionDealloc}
	BaseExceptionType.slots.Init = &initSlot{baseExceptionInit}
	BaseExceptionType.slots.New = &newSlot{baseExceptionNew}
	BaseExceptionType.slots.Repr = &unaryOpSlot{baseExceptionRepr}
	BaseExceptionType.slots.Str = &unaryOpSlot{baseExceptionStr}
}
