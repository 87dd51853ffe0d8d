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

var (
	// ArithmeticErrorType corresponds to the Python type 'ArithmeticError'.
	ArithmeticErrorType = newSimpleType("ArithmeticError", ExceptionType)
	// AssertionErrorType corresponds to the Python type 'AssertionError'.
	AssertionErrorType = newSimpleType("AssertionError", ExceptionType)
	// AttributeErrorType corresponds to the Python type 'AttributeError'.
	AttributeErrorType = newSimpleType("AttributeError", ExceptionType)
	// BytesWarningType corresponds to the Python type 'BytesWarning'.
	BytesWarningType = newSimpleType("BytesWarning", WarningType)
	// DeprecationWarningType corresponds to the Python type 'DeprecationWarning'.
	DeprecationWarningType = newSimpleType("DeprecationWarning", WarningType)
	// EOFErrorType corresponds to the Python type 'EOFError'.
	EOFErrorType = newSimpleType("EOFError", ExceptionType)
	// ExceptionType corresponds to the Python type 'Exception'.
	ExceptionType = newSimpleType("Exception", BaseExceptionType)
	// FutureWarningType corresponds to the Python type 'FutureWarning'.
	FutureWarningType = newSimpleType("FutureWarning", WarningType)
	// GeneratorExitType corresponds to the Python type 'GeneratorExit'.
	GeneratorExitType = newSimpleType("GeneratorExit", BaseExceptionType)
	// ImportErrorType corresponds to the Python type 'ImportError'.
	ImportErrorType = newSimpleType("ImportError", ExceptionType)
	// ImportWarningType corresponds to the Python type 'ImportWarning'.
	ImportWarningType = newSimpleType("ImportWarning", WarningType)
	// IndentationErrorType corresponds to the Python type 'IndentationError'.
	IndentationErrorType = newSimpleType("IndentationError", SyntaxErrorType)
	// IndexErrorType corresponds to the Python type 'IndexError'.
	IndexErrorType = newSimpleType("IndexError", LookupErrorType)
	// KeyboardInterruptType corresponds to the Python type 'KeyboardInterrupt'.
	KeyboardInterruptType = newSimpleType("KeyboardInterrupt", BaseExceptionType)
	// KeyErrorType corresponds to the Python type 'KeyError'.
	KeyErrorType = newSimpleType("KeyError", LookupErrorType)
	// LookupErrorType corresponds to the Python type 'LookupError'.
	LookupErrorType = newSimpleType("LookupError", ExceptionType)
	// MemoryErrorType corresponds to the Python type 'MemoryError'.
	MemoryErrorType = newSimpleType("MemoryError", ExceptionType)
	// ModuleNotFoundErrorType corresponds to the Python type
	// 'ModuleNotFoundError'.
	ModuleNotFoundErrorType = newSimpleType("ModuleNotFoundError", ImportErrorType)
	// NameErrorType corresponds to the Python type 'NameError'.
	NameErrorType = newSimpleType("NameError", ExceptionType)
	// NotImplementedErrorType corresponds to the Python type
	// 'NotImplementedError'.
	NotImplementedErrorType = newSimpleType("NotImplementedError", RuntimeErrorType)
	// OSErrorType corresponds to the Python type 'OSError'.
	OSErrorType = newSimpleType("OSError", ExceptionType)
	// OverflowErrorType corresponds to the Python type 'OverflowError'.
	OverflowErrorType = newSimpleType("OverflowError", ArithmeticErrorType)
	// PendingDeprecationWarningType corresponds to the Python type 'PendingDeprecationWarning'.
	PendingDeprecationWarningType = newSimpleType("PendingDeprecationWarning", WarningType)
	// RecursionErrorType corresponds to the Python type 'RecursionError'.
	RecursionErrorType = newSimpleType("RecursionError", RuntimeErrorType)
	// ReferenceErrorType corresponds to the Python type 'ReferenceError'.
	ReferenceErrorType = newSimpleType("ReferenceError", ExceptionType)
	// ResourceWarningType corresponds to the Python type 'ResourceWarning'.
	ResourceWarningType = newSimpleType("ResourceWarning", WarningType)
	// RuntimeErrorType corresponds to the Python type 'RuntimeError'.
	RuntimeErrorType = newSimpleType("RuntimeError", ExceptionType)
	// RuntimeWarningType corresponds to the Python type 'RuntimeWarning'.
	RuntimeWarningType = newSimpleType("RuntimeWarning", WarningType)
	// StopIterationType corresponds to the Python type 'StopIteration'.
	StopIterationType = newSimpleType("StopIteration", ExceptionType)
	// SyntaxErrorType corresponds to the Python type 'SyntaxError'.
	SyntaxErrorType = newSimpleType("SyntaxError", ExceptionType)
	// SyntaxWarningType corresponds to the Python type 'SyntaxWarning'.
	SyntaxWarningType = newSimpleType("SyntaxWarning", WarningType)
	// SystemErrorType corresponds to the Python type 'SystemError'.
	SystemErrorType = newSimpleType("SystemError", ExceptionType)
	// SystemExitType corresponds to the Python type 'SystemExit'.
	SystemExitType = newSimpleType("SystemExit", BaseExceptionType)
	// TabErrorType corresponds to the Python type 'TabError'.
	TabErrorType = newSimpleType("TabError", IndentationErrorType)
	// TypeErrorType corresponds to the Python type 'TypeError'.
	TypeErrorType = newSimpleType("TypeError", ExceptionType)
	// UnboundLocalErrorType corresponds to the Python type
	// 'UnboundLocalError'.
	UnboundLocalErrorType = newSimpleType("UnboundLocalError", NameErrorType)
	// UnicodeErrorType corresponds to the Python type 'UnicodeError'.
	UnicodeErrorType = newSimpleType("UnicodeError", ValueErrorType)
	// UnicodeWarningType corresponds to the Python type 'UnicodeWarning'.
	UnicodeWarningType = newSimpleType("UnicodeWarning", WarningType)
	// UserWarningType corresponds to the Python type 'UserWarning'.
	UserWarningType = newSimpleType("UserWarning", WarningType)
	// ValueErrorType corresponds to the Python type 'ValueError'.
	ValueErrorType = newSimpleType("ValueError", ExceptionType)
	// WarningType corresponds to the Python type 'Warning'.
	WarningType = newSimpleType("Warning", ExceptionType)
	// ZeroDivisionErrorType corresponds to the Python type
	// 'ZeroDivisionError'.
	ZeroDivisionErrorType = newSimpleType("ZeroDivisionError", ArithmeticErrorType)
)

var exceptionTypeList = []struct {
	typ  *Type
	init builtinTypeInit
}{
	{ArithmeticErrorType, nil},
	{AssertionErrorType, nil},
	{AttributeErrorType, nil},
	{BaseExceptionType, initBaseExceptionType},
	{BytesWarningType, nil},
	{DeprecationWarningType, nil},
	{EOFErrorType, nil},
	{ExceptionType, nil},
	{FutureWarningType, nil},
	{GeneratorExitType, nil},
	{ImportErrorType, initImportErrorType},
	{ImportWarningType, nil},
	{IndentationErrorType, nil},
	{IndexErrorType, nil},
	{KeyboardInterruptType, nil},
	{KeyErrorType, initKeyErrorType},
	{LookupErrorType, nil},
	{MemoryErrorType, nil},
	{ModuleNotFoundErrorType, nil},
	{NameErrorType, nil},
	{NotImplementedErrorType, nil},
	{OSErrorType, initOSErrorType},
	{OverflowErrorType, nil},
	{PendingDeprecationWarningType, nil},
	{RecursionErrorType, nil},
	{ReferenceErrorType, nil},
	{ResourceWarningType, nil},
	{RuntimeErrorType, nil},
	{RuntimeWarningType, nil},
	{StopIterationType, initStopIterationType},
	{SyntaxErrorType, initSyntaxErrorType},
	{SyntaxWarningType, nil},
	{SystemErrorType, nil},
	{SystemExitType, initSystemExitType},
	{TabErrorType, nil},
	{TypeErrorType, nil},
	{UnboundLocalErrorType, nil},
	{UnicodeErrorType, nil},
	{UnicodeWarningType, nil},
	{UserWarningType, nil},
	{ValueErrorType, nil},
	{WarningType, nil},
	{ZeroDivisionErrorType, nil},
}

// setAttrs binds each name to the corresponding value in o's dict.
func setAttrs(f *Frame, o *Object, names []string, values ...*Object) *BaseException {
	d := o.Dict()
	for i, name := range names {
		if raised := d.SetItemString(f, name, values[i]); raised != nil {
			return raised
		}
	}
	return nil
}

func argOrNone(args Args, i int) *Object {
	if i < len(args) {
		return args[i]
	}
	return None
}

func importErrorInit(f *Frame, o *Object, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if _, raised := baseExceptionInit(f, o, args, nil); raised != nil {
		return nil, raised
	}
	for _, kw := range kwargs {
		if kw.Name != "name" && kw.Name != "path" {
			format := "'%s' is an invalid keyword argument for ImportError()"
			return nil, f.RaiseType(TypeErrorType, fmt.Sprintf(format, kw.Name))
		}
	}
	msg := None
	if len(args) == 1 {
		msg = args[0]
	}
	names := []string{"msg", "name", "path"}
	return None, setAttrs(f, o, names, msg, kwargs.get("name", None), kwargs.get("path", None))
}

func importErrorStr(f *Frame, o *Object) (*Object, *BaseException) {
	msg, raised := o.Dict().GetItemString(f, "msg")
	if raised != nil {
		return nil, raised
	}
	if msg != nil && msg != None {
		s, raised := ToStr(f, msg)
		if raised != nil {
			return nil, raised
		}
		return s.ToObject(), nil
	}
	return baseExceptionStr(f, o)
}

func initImportErrorType(map[string]*Object) {
	ImportErrorType.slots.Init = &initSlot{importErrorInit}
	ImportErrorType.slots.Str = &unaryOpSlot{importErrorStr}
}

// keyErrorStr shows a single key by its repr so that KeyError('') is
// distinguishable from KeyError().
func keyErrorStr(f *Frame, o *Object) (*Object, *BaseException) {
	args := toBaseExceptionUnsafe(o).Args()
	if len(args.elems) == 1 {
		s, raised := Repr(f, args.elems[0])
		if raised != nil {
			return nil, raised
		}
		return s.ToObject(), nil
	}
	return baseExceptionStr(f, o)
}

func initKeyErrorType(map[string]*Object) {
	KeyErrorType.slots.Str = &unaryOpSlot{keyErrorStr}
}

func osErrorInit(f *Frame, o *Object, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if _, raised := baseExceptionInit(f, o, args, kwargs); raised != nil {
		return nil, raised
	}
	errno, strerror := None, None
	if len(args) >= 2 {
		errno, strerror = args[0], args[1]
	}
	return None, setAttrs(f, o, []string{"errno", "strerror"}, errno, strerror)
}

func osErrorStr(f *Frame, o *Object) (*Object, *BaseException) {
	args := toBaseExceptionUnsafe(o).Args()
	if len(args.elems) == 2 {
		strerror, raised := ToStr(f, args.elems[1])
		if raised != nil {
			return nil, raised
		}
		errno, raised := ToStr(f, args.elems[0])
		if raised != nil {
			return nil, raised
		}
		return NewStr(fmt.Sprintf("[Errno %s] %s", errno.Value(), strerror.Value())).ToObject(), nil
	}
	return baseExceptionStr(f, o)
}

func initOSErrorType(map[string]*Object) {
	OSErrorType.slots.Init = &initSlot{osErrorInit}
	OSErrorType.slots.Str = &unaryOpSlot{osErrorStr}
}

func stopIterationInit(f *Frame, o *Object, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if _, raised := baseExceptionInit(f, o, args, kwargs); raised != nil {
		return nil, raised
	}
	return None, setAttrs(f, o, []string{"value"}, argOrNone(args, 0))
}

func initStopIterationType(map[string]*Object) {
	StopIterationType.slots.Init = &initSlot{stopIterationInit}
}

// syntaxErrorInit accepts SyntaxError(msg) and
// SyntaxError(msg, (filename, lineno, offset, text)).
func syntaxErrorInit(f *Frame, o *Object, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if _, raised := baseExceptionInit(f, o, args, kwargs); raised != nil {
		return nil, raised
	}
	names := []string{"msg", "filename", "lineno", "offset", "text"}
	values := []*Object{argOrNone(args, 0), None, None, None, None}
	if len(args) == 2 {
		info, raised := seqToSlice(f, args[1])
		if raised != nil {
			return nil, raised
		}
		if len(info) != 4 {
			return nil, f.RaiseType(IndexErrorType, "tuple index out of range")
		}
		copy(values[1:], info)
	}
	return None, setAttrs(f, o, names, values...)
}

func syntaxErrorStr(f *Frame, o *Object) (*Object, *BaseException) {
	d := o.Dict()
	msg, raised := d.GetItemString(f, "msg")
	if raised != nil {
		return nil, raised
	}
	if msg == nil || msg == None {
		return baseExceptionStr(f, o)
	}
	s, raised := ToStr(f, msg)
	if raised != nil {
		return nil, raised
	}
	filename, _ := d.GetItemString(f, "filename")
	lineno, _ := d.GetItemString(f, "lineno")
	haveFile := filename != nil && filename.isInstance(StrType)
	haveLine := lineno != nil && lineno.isInstance(IntType)
	switch {
	case haveFile && haveLine:
		return NewStr(fmt.Sprintf("%s (%s, line %d)", s.Value(), toStrUnsafe(filename).Value(), toIntUnsafe(lineno).Value())).ToObject(), nil
	case haveFile:
		return NewStr(fmt.Sprintf("%s (%s)", s.Value(), toStrUnsafe(filename).Value())).ToObject(), nil
	case haveLine:
		return NewStr(fmt.Sprintf("%s (line %d)", s.Value(), toIntUnsafe(lineno).Value())).ToObject(), nil
	}
	return s.ToObject(), nil
}

func initSyntaxErrorType(map[string]*Object) {
	SyntaxErrorType.slots.Init = &initSlot{syntaxErrorInit}
	SyntaxErrorType.slots.Str = &unaryOpSlot{syntaxErrorStr}
}

func systemExitInit(f *Frame, o *Object, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if _, raised := baseExceptionInit(f, o, args, kwargs); raised != nil {
		return nil, raised
	}
	code := None
	switch len(args) {
	case 0:
	case 1:
		code = args[0]
	default:
		code = toBaseExceptionUnsafe(o).args.ToObject()
	}
	return None, setAttrs(f, o, []string{"code"}, code)
}

func initSystemExitType(map[string]*Object) {
	SystemExitType.slots.Init = &initSlot{systemExitInit}
}
