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
	"strings"
)

// UnraisableHookArgsType is the type of the argument passed to
// sys.unraisablehook.
var UnraisableHookArgsType = newBasisType("UnraisableHookArgs", reflect.TypeOf(unraisableHookArgs{}), ObjectType)

type unraisableHookArgs struct {
	Object
	excType  *Object
	excValue *Object
	excTb    *Object
	errMsg   *Object
	obj      *Object
}

func newUnraisableHookArgs(excType, excValue, excTb, errMsg, obj *Object) *unraisableHookArgs {
	orNone := func(o *Object) *Object {
		if o == nil {
			return None
		}
		return newRef(o)
	}
	return &unraisableHookArgs{
		Object:   objectHeader(UnraisableHookArgsType),
		excType:  orNone(excType),
		excValue: orNone(excValue),
		excTb:    orNone(excTb),
		errMsg:   orNone(errMsg),
		obj:      orNone(obj),
	}
}

func toUnraisableHookArgsUnsafe(o *Object) *unraisableHookArgs {
	return (*unraisableHookArgs)(o.toPointer())
}

func (a *unraisableHookArgs) ToObject() *Object {
	return &a.Object
}

// WriteUnraisable reports the pending exception through sys.unraisablehook
// and clears it. obj identifies the context the exception happened in,
// typically the object whose finalizer failed. It may be nil.
func WriteUnraisable(f *Frame, obj *Object) {
	writeUnraisable(f, "", obj)
}

// WriteUnraisableMsg is like WriteUnraisable but reports the error message
// "Exception ignored " + msg.
func WriteUnraisableMsg(f *Frame, msg string, obj *Object) {
	writeUnraisable(f, msg, obj)
}

func writeUnraisable(f *Frame, msg string, obj *Object) {
	ts := f.ts
	defer ts.ClearErr()
	typ, value, tb := ts.Fetch()
	var errMsg *Object
	if msg != "" {
		s := NewStr("Exception ignored " + msg)
		defer DecRef(s.ToObject())
		errMsg = s.ToObject()
	}
	if typ == nil {
		writeUnraisableDefault(f, nil, nil, nil, errMsg, obj)
		return
	}
	if tb == nil && ts.frame != nil {
		tb = newTraceback(ts.frame, nil).ToObject()
	}
	typ, value, tb = ts.NormalizeException(f, typ, value, tb)
	defer func() {
		XDecRef(typ)
		XDecRef(value)
		XDecRef(tb)
	}()
	if tb != nil && value != nil && value.isInstance(BaseExceptionType) {
		toBaseExceptionUnsafe(value).traceback = toTracebackUnsafe(tb)
	}
	hook := ts.interp.sysObject("unraisablehook")
	if hook == nil || hook == None {
		writeUnraisableDefault(f, typ, value, tb, errMsg, obj)
		return
	}
	args := newUnraisableHookArgs(typ, value, tb, errMsg, obj)
	_, raised := hook.Call(f, Args{args.ToObject()}, nil)
	DecRef(args.ToObject())
	if raised == nil {
		return
	}
	hookTyp, hookValue, hookTb := ts.Fetch()
	hookTyp, hookValue, hookTb = ts.NormalizeException(f, hookTyp, hookValue, hookTb)
	hookMsg := NewStr("Exception ignored in sys.unraisablehook")
	writeUnraisableDefault(f, hookTyp, hookValue, hookTb, hookMsg.ToObject(), hook)
	DecRef(hookMsg.ToObject())
	XDecRef(hookTyp)
	XDecRef(hookValue)
	XDecRef(hookTb)
}

// writeUnraisableDefault writes the report to the interpreter's error
// stream. Failures while formatting are absorbed into the report.
func writeUnraisableDefault(f *Frame, typ, value, tb, errMsg, obj *Object) {
	var b strings.Builder
	hasMsg := errMsg != nil && errMsg != None
	if obj != nil && obj != None {
		if hasMsg {
			b.WriteString(strOrPlaceholder(f, errMsg, "<str() failed>"))
			b.WriteString(": ")
		} else {
			b.WriteString("Exception ignored in: ")
		}
		b.WriteString(reprOrPlaceholder(f, obj, "<object repr() failed>"))
		b.WriteString("\n")
	} else if hasMsg {
		b.WriteString(strOrPlaceholder(f, errMsg, "<str() failed>"))
		b.WriteString(":\n")
	}
	p := newExcPrinter(f.ts.interp, f.ts.interp.errStream)
	if tb != nil && tb.isInstance(TracebackType) {
		p.printTraceback(&b, toTracebackUnsafe(tb))
	}
	if typ != nil && typ != None {
		name := "<unknown>"
		if typ.isInstance(TypeType) {
			if n, raised := toTypeUnsafe(typ).FullName(f); raised == nil {
				name = n
			} else {
				f.RestoreExc(nil, nil)
			}
		}
		b.WriteString(p.name.Sprint(name))
		if value != nil && value != None {
			b.WriteString(": ")
			b.WriteString(strOrPlaceholder(f, value, "<exception str() failed>"))
		}
		b.WriteString("\n")
	}
	p.write(b.String())
}

func strOrPlaceholder(f *Frame, o *Object, placeholder string) string {
	s, raised := ToStr(f, o)
	if raised != nil {
		f.RestoreExc(nil, nil)
		return placeholder
	}
	return s.Value()
}

func reprOrPlaceholder(f *Frame, o *Object, placeholder string) string {
	s, raised := Repr(f, o)
	if raised != nil {
		f.RestoreExc(nil, nil)
		return placeholder
	}
	return s.Value()
}

// sysUnraisableHook is sys.__unraisablehook__.
func sysUnraisableHook(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "unraisablehook", args, ObjectType); raised != nil {
		return nil, raised
	}
	if args[0].typ != UnraisableHookArgsType {
		return nil, f.RaiseType(TypeErrorType, "sys.unraisablehook argument type must be UnraisableHookArgs")
	}
	a := toUnraisableHookArgsUnsafe(args[0])
	writeUnraisableDefault(f, a.excType, a.excValue, a.excTb, a.errMsg, a.obj)
	return None, nil
}

func unraisableHookArgsDealloc(o *Object) {
	a := toUnraisableHookArgsUnsafe(o)
	for _, p := range []**Object{&a.excType, &a.excValue, &a.excTb, &a.errMsg, &a.obj} {
		XDecRef(*p)
		*p = nil
	}
}

func unraisableHookArgsRepr(f *Frame, o *Object) (*Object, *BaseException) {
	a := toUnraisableHookArgsUnsafe(o)
	var b strings.Builder
	b.WriteString("UnraisableHookArgs(")
	fields := []struct {
		name  string
		value *Object
	}{
		{"exc_type", a.excType},
		{"exc_value", a.excValue},
		{"exc_traceback", a.excTb},
		{"err_msg", a.errMsg},
		{"object", a.obj},
	}
	for i, field := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		s, raised := Repr(f, field.value)
		if raised != nil {
			return nil, raised
		}
		b.WriteString(field.name)
		b.WriteString("=")
		b.WriteString(s.Value())
	}
	b.WriteString(")")
	return NewStr(b.String()).ToObject(), nil
}

func initUnraisableHookArgsType(dict map[string]*Object) {
	UnraisableHookArgsType.flags &^= typeFlagInstantiable | typeFlagBasetype
	field := func(get func(a *unraisableHookArgs) *Object) func(*Frame, *Object) (*Object, *BaseException) {
		return func(f *Frame, o *Object) (*Object, *BaseException) {
			return get(toUnraisableHookArgsUnsafe(o)), nil
		}
	}
	dict["exc_type"] = newGetSetDescriptor(UnraisableHookArgsType, "exc_type", field(func(a *unraisableHookArgs) *Object { return a.excType }), nil)
	dict["exc_value"] = newGetSetDescriptor(UnraisableHookArgsType, "exc_value", field(func(a *unraisableHookArgs) *Object { return a.excValue }), nil)
	dict["exc_traceback"] = newGetSetDescriptor(UnraisableHookArgsType, "exc_traceback", field(func(a *unraisableHookArgs) *Object { return a.excTb }), nil)
	dict["err_msg"] = newGetSetDescriptor(UnraisableHookArgsType, "err_msg", field(func(a *unraisableHookArgs) *Object { return a.errMsg }), nil)
	dict["object"] = newGetSetDescriptor(UnraisableHookArgsType, "object", field(func(a *unraisableHookArgs) *Object { return a.obj }), nil)
	UnraisableHookArgsType.slots.Dealloc = &deallocSlot{unraisableHookArgsDealloc}
	UnraisableHookArgsType.slots.Repr = &unaryOpSlot{unraisableHookArgsRepr}
}
