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
	"reflect"
)

// TracebackType is the object representing the Python 'traceback' type.
var TracebackType = newBasisType("traceback", reflect.TypeOf(Traceback{}), ObjectType)

// Traceback represents Python 'traceback' objects. The chain runs from the
// outermost frame through next towards the frame where the exception was
// raised.
type Traceback struct {
	Object
	frame  *Frame
	lineno int
	next   *Traceback
}

func newTraceback(f *Frame, next *Traceback) *Traceback {
	return &Traceback{Object: objectHeader(TracebackType), frame: f, lineno: f.lineno, next: next}
}

func toTracebackUnsafe(o *Object) *Traceback {
	return (*Traceback)(o.toPointer())
}

// ToObject upcasts tb to an Object.
func (tb *Traceback) ToObject() *Object {
	return &tb.Object
}

// Frame returns the frame recorded by this traceback entry.
func (tb *Traceback) Frame() *Frame {
	return tb.frame
}

// Lineno returns the line that was executing when the entry was recorded.
func (tb *Traceback) Lineno() int {
	return tb.lineno
}

// Next returns the next entry towards the raise point, or nil.
func (tb *Traceback) Next() *Traceback {
	return tb.next
}

// tracebackHere prepends an entry for f to the pending exception's
// traceback, unless the outermost recorded entry already is f. The
// exception's __traceback__ is kept in sync with the pending traceback.
func tracebackHere(f *Frame) {
	ts := f.ts
	if ts.curValue == nil || !ts.curValue.isInstance(BaseExceptionType) {
		return
	}
	e := toBaseExceptionUnsafe(ts.curValue)
	var head *Traceback
	if ts.curTb != nil && ts.curTb != None {
		head = toTracebackUnsafe(ts.curTb)
	}
	if head != nil && head.frame == f {
		return
	}
	// The new entry takes over the thread's reference to head.
	tb := newTraceback(f, head)
	ts.curTb = tb.ToObject()
	e.traceback = tb
}

func tracebackGetFrame(f *Frame, o *Object) (*Object, *BaseException) {
	return toTracebackUnsafe(o).frame.ToObject(), nil
}

func tracebackGetLineno(f *Frame, o *Object) (*Object, *BaseException) {
	return NewInt(int64(toTracebackUnsafe(o).lineno)).ToObject(), nil
}

func tracebackGetNext(f *Frame, o *Object) (*Object, *BaseException) {
	if next := toTracebackUnsafe(o).next; next != nil {
		return next.ToObject(), nil
	}
	return None, nil
}

func initTracebackType(dict map[string]*Object) {
	TracebackType.flags &^= typeFlagInstantiable | typeFlagBasetype
	dict["tb_frame"] = newGetSetDescriptor(TracebackType, "tb_frame", tracebackGetFrame, nil)
	dict["tb_lineno"] = newGetSetDescriptor(TracebackType, "tb_lineno", tracebackGetLineno, nil)
	dict["tb_next"] = newGetSetDescriptor(TracebackType, "tb_next", tracebackGetNext, nil)
}
