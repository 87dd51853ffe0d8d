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
	"math"
	"runtime"
	"sort"
)

// Version is the version string reported by sys.version.
const Version = "3.9.0 (pycore)"

var sysModuleDef = &ModuleDef{
	Name: "sys",
	Doc:  "This module provides access to some objects used or maintained by the\ninterpreter and to functions that interact strongly with the interpreter.",
	Methods: []ModuleMethod{
		{"__excepthook__", sysExceptHook},
		{"__unraisablehook__", sysUnraisableHook},
		{"_getframe", sysGetFrame},
		{"exc_info", sysExcInfo},
		{"exit", sysExit},
		{"getrecursionlimit", sysGetRecursionLimit},
		{"getrefcount", sysGetRefCount},
		{"setrecursionlimit", sysSetRecursionLimit},
	},
	Exec: sysExec,
}

// sysObject returns a borrowed reference to the sys attribute name, or nil.
func (interp *InterpreterState) sysObject(name string) *Object {
	if interp.sysdict == nil {
		return nil
	}
	return interp.sysdict.getItemStringNoError(name)
}

func (interp *InterpreterState) sysSetObject(f *Frame, name string, o *Object) *BaseException {
	if interp.sysdict == nil {
		return f.RaiseType(RuntimeErrorType, "lost sys module")
	}
	return interp.sysdict.SetItemString(f, name, o)
}

func newStrList(values []string) *List {
	l := NewList()
	for _, v := range values {
		s := NewStr(v)
		l.Append(s.ToObject())
		DecRef(s.ToObject())
	}
	return l
}

func sysExec(f *Frame, m *Module) *BaseException {
	interp := f.ts.interp
	cfg := interp.config
	d := m.Dict()
	var names []string
	for _, entry := range runtimeState.inittab {
		names = append(names, entry.Name)
	}
	sort.Strings(names)
	builtinNames := make([]*Object, len(names))
	for i, name := range names {
		builtinNames[i] = NewStr(name).ToObject()
	}
	argv := cfg.Argv
	if len(argv) == 0 {
		argv = []string{""}
	}
	values := map[string]*Object{
		"argv":                 newStrList(argv).ToObject(),
		"builtin_module_names": NewTuple(builtinNames...).ToObject(),
		"excepthook":           d.getItemStringNoError("__excepthook__"),
		"executable":           NewStr(cfg.ProgramName).ToObject(),
		"maxsize":              NewInt(math.MaxInt64).ToObject(),
		"modules":              interp.modules.ToObject(),
		"path":                 newStrList(cfg.SearchPath).ToObject(),
		"platform":             NewStr(runtime.GOOS).ToObject(),
		"unraisablehook":       d.getItemStringNoError("__unraisablehook__"),
		"version":              NewStr(Version).ToObject(),
		"warnoptions":          newStrList(cfg.WarnOptions).ToObject(),
	}
	for name, value := range values {
		if raised := d.SetItemString(f, name, value); raised != nil {
			return raised
		}
	}
	if interp.sysdict == nil {
		interp.sysdict = d
		IncRef(d.ToObject())
	}
	return nil
}

func sysExcInfo(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "exc_info", args); raised != nil {
		return nil, raised
	}
	typ, value, tb := f.ts.GetExcInfo()
	orNone := func(o *Object) *Object {
		if o == nil {
			return None
		}
		return o
	}
	return NewTuple(orNone(typ), orNone(value), orNone(tb)).ToObject(), nil
}

// sysExit raises SystemExit with the optional exit status.
func sysExit(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
	if len(args) > 1 {
		return nil, f.RaiseType(TypeErrorType, fmt.Sprintf("exit expected at most 1 argument, got %d", len(args)))
	}
	var code *Object
	if len(args) == 1 {
		code = args[0]
	}
	return nil, f.ts.SetObject(f, SystemExitType.ToObject(), code)
}

func sysGetFrame(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
	expectedTypes := []*Type{IntType}
	if len(args) == 0 {
		expectedTypes = nil
	}
	if raised := checkFunctionArgs(f, "_getframe", args, expectedTypes...); raised != nil {
		return nil, raised
	}
	depth := int64(0)
	if len(args) == 1 {
		depth = toIntUnsafe(args[0]).Value()
	}
	frame := f.ts.frame
	for ; depth > 0 && frame != nil; depth-- {
		frame = frame.back
	}
	if frame == nil || frame.code == nil {
		return nil, f.RaiseType(ValueErrorType, "call stack is not deep enough")
	}
	return frame.ToObject(), nil
}

func sysGetRecursionLimit(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "getrecursionlimit", args); raised != nil {
		return nil, raised
	}
	return NewInt(int64(f.ts.interp.recursionLimit)).ToObject(), nil
}

func sysGetRefCount(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "getrefcount", args, ObjectType); raised != nil {
		return nil, raised
	}
	return NewInt(RefCount(args[0])).ToObject(), nil
}

func sysSetRecursionLimit(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "setrecursionlimit", args, ObjectType); raised != nil {
		return nil, raised
	}
	limit, raised := IndexInt(f, args[0])
	if raised != nil {
		return nil, raised
	}
	if limit < 1 {
		return nil, f.RaiseType(ValueErrorType, "recursion limit must be greater or equal than 1")
	}
	if depth := f.ts.recursionDepth; depth >= limit {
		format := "cannot set the recursion limit to %d at the recursion depth %d: the limit is too low"
		return nil, f.RaiseType(RecursionErrorType, fmt.Sprintf(format, limit, depth))
	}
	f.ts.interp.recursionLimit = limit
	return None, nil
}
