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
	"io"
	"math/big"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	importParams = newParamSpecKW("__import__", []Param{
		{Name: "name"},
		{Name: "globals", Def: None},
		{Name: "locals", Def: None},
		{Name: "fromlist", Def: None},
		{Name: "level", Def: NewInt(0).ToObject()},
	}, false, nil, false)
	execParams = newParamSpecKW("exec", []Param{
		{Name: "source"},
		{Name: "globals", Def: None},
		{Name: "locals", Def: None},
	}, false, nil, false)
	printParams = newParamSpecKW("print", nil, true, []Param{
		{Name: "sep", Def: None},
		{Name: "end", Def: None},
		{Name: "file", Def: None},
		{Name: "flush", Def: False.ToObject()},
	}, false)
)

var builtinsModuleDef = &ModuleDef{
	Name: "builtins",
	Doc:  "Built-in functions, exceptions, and other objects.",
	Size: -1,
	Methods: []ModuleMethod{
		{"__import__", builtinImport},
		{"abs", builtinAbs},
		{"all", builtinAll},
		{"any", builtinAny},
		{"bin", builtinBin},
		{"callable", builtinCallable},
		{"chr", builtinChr},
		{"delattr", builtinDelAttr},
		{"dir", builtinDir},
		{"exec", builtinExec},
		{"getattr", builtinGetAttr},
		{"globals", builtinGlobals},
		{"hasattr", builtinHasAttr},
		{"hash", builtinHash},
		{"hex", builtinHex},
		{"id", builtinID},
		{"isinstance", builtinIsInstance},
		{"issubclass", builtinIsSubclass},
		{"iter", builtinIter},
		{"len", builtinLen},
		{"locals", builtinLocals},
		{"max", builtinMax},
		{"min", builtinMin},
		{"next", builtinNext},
		{"oct", builtinOct},
		{"ord", builtinOrd},
		{"print", builtinPrint},
		{"repr", builtinRepr},
		{"setattr", builtinSetAttr},
		{"sorted", builtinSorted},
		{"sum", builtinSum},
	},
	Exec: builtinsExec,
}

func builtinsExec(f *Frame, m *Module) *BaseException {
	values := map[string]*Object{
		"None":           None,
		"Ellipsis":       Ellipsis,
		"False":          False.ToObject(),
		"NotImplemented": NotImplemented,
		"True":           True.ToObject(),
		"__debug__":      True.ToObject(),
	}
	for name, t := range builtinGlobalTypes() {
		values[name] = t.ToObject()
	}
	for name, value := range values {
		if raised := m.AddObject(f, name, value); raised != nil {
			return raised
		}
	}
	return nil
}

func builtinAbs(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "abs", args, ObjectType); raised != nil {
		return nil, raised
	}
	return Abs(f, args[0])
}

// builtinAll and builtinAny stop at the first element that decides the
// result.
func builtinAll(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
	return builtinAllAny(f, "all", args, false)
}

func builtinAny(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
	return builtinAllAny(f, "any", args, true)
}

func builtinAllAny(f *Frame, name string, args Args, stopOn bool) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, name, args, ObjectType); raised != nil {
		return nil, raised
	}
	result := !stopOn
	raised := seqForEach(f, args[0], func(o *Object) (bool, *BaseException) {
		b, raised := IsTrue(f, o)
		if raised != nil {
			return false, raised
		}
		if b == stopOn {
			result = stopOn
			return false, nil
		}
		return true, nil
	})
	if raised != nil {
		return nil, raised
	}
	return GetBool(result).ToObject(), nil
}

func builtinBin(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
	return builtinNumberToBase(f, "bin", args, "0b", 2)
}

func builtinCallable(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "callable", args, ObjectType); raised != nil {
		return nil, raised
	}
	return GetBool(args[0].typ.slots.Call != nil).ToObject(), nil
}

func builtinChr(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "chr", args, IntType); raised != nil {
		return nil, raised
	}
	i := toIntUnsafe(args[0]).Value()
	if i < 0 || i > unicode.MaxRune {
		return nil, f.RaiseType(ValueErrorType, fmt.Sprintf("chr() arg not in range(0x%x)", unicode.MaxRune+1))
	}
	return NewStr(string(rune(i))).ToObject(), nil
}

func builtinDelAttr(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "delattr", args, ObjectType, StrType); raised != nil {
		return nil, raised
	}
	if raised := DelAttr(f, args[0], toStrUnsafe(args[1])); raised != nil {
		return nil, raised
	}
	return None, nil
}

func builtinDir(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "dir", args, ObjectType); raised != nil {
		return nil, raised
	}
	d := NewDict()
	defer DecRef(d.ToObject())
	addKeys := func(src *Dict) *BaseException {
		for _, entry := range src.entries() {
			if raised := d.SetItem(f, entry.key, None); raised != nil {
				return raised
			}
		}
		return nil
	}
	o := args[0]
	if o.dict != nil {
		if raised := addKeys(o.dict); raised != nil {
			return nil, raised
		}
	}
	for _, t := range o.typ.mro {
		if raised := addKeys(t.Dict()); raised != nil {
			return nil, raised
		}
	}
	l := d.Keys()
	if _, raised := listSort(f, Args{l.ToObject()}, nil); raised != nil {
		DecRef(l.ToObject())
		return nil, raised
	}
	return l.ToObject(), nil
}

// builtinExec runs source, a str or code object, in the given namespaces.
// They default to the caller's globals and locals.
func builtinExec(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	validated := make([]*Object, execParams.Count)
	if raised := execParams.Validate(f, validated, args, kwargs); raised != nil {
		return nil, raised
	}
	source, globalsArg, localsArg := validated[0], validated[1], validated[2]
	globals, locals := f.globals, f.locals
	if globalsArg != None {
		if !globalsArg.isInstance(DictType) {
			return nil, f.RaiseType(TypeErrorType, fmt.Sprintf("exec() globals must be a dict, not %s", globalsArg.typ.Name()))
		}
		globals = toDictUnsafe(globalsArg)
		locals = globals
	}
	if localsArg != None {
		if !localsArg.isInstance(DictType) {
			return nil, f.RaiseType(TypeErrorType, fmt.Sprintf("locals must be a mapping, not %s", localsArg.typ.Name()))
		}
		locals = toDictUnsafe(localsArg)
	}
	if globals == nil {
		return nil, f.RaiseType(SystemErrorType, "globals and locals cannot be NULL")
	}
	if locals == nil {
		locals = globals
	}
	if globals.getItemStringNoError("__builtins__") == nil && f.builtins != nil {
		if raised := globals.SetItemString(f, "__builtins__", f.builtins.ToObject()); raised != nil {
			return nil, raised
		}
	}
	var code *Code
	switch {
	case source.isInstance(CodeType):
		code = toCodeUnsafe(source)
	case source.isInstance(StrType):
		c, raised := Compile(f, toStrUnsafe(source).Value(), "<string>")
		if raised != nil {
			return nil, raised
		}
		defer DecRef(c.ToObject())
		code = c
	default:
		return nil, f.RaiseType(TypeErrorType, fmt.Sprintf("exec() arg 1 must be a string or code object, not %s", source.typ.Name()))
	}
	if _, raised := code.Exec(f, globals, locals); raised != nil {
		return nil, raised
	}
	return None, nil
}

func builtinGetAttr(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	expectedTypes := []*Type{ObjectType, StrType, ObjectType}
	argc := len(args)
	if argc == 2 {
		expectedTypes = expectedTypes[:2]
	}
	if raised := checkFunctionArgs(f, "getattr", args, expectedTypes...); raised != nil {
		return nil, raised
	}
	var def *Object
	if argc == 3 {
		def = args[2]
	}
	return GetAttr(f, args[0], toStrUnsafe(args[1]), def)
}

func builtinGlobals(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "globals", args); raised != nil {
		return nil, raised
	}
	if f.globals == nil {
		return None, nil
	}
	return f.globals.ToObject(), nil
}

func builtinHasAttr(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "hasattr", args, ObjectType, StrType); raised != nil {
		return nil, raised
	}
	ok, raised := HasAttr(f, args[0], toStrUnsafe(args[1]))
	if raised != nil {
		return nil, raised
	}
	return GetBool(ok).ToObject(), nil
}

func builtinHash(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "hash", args, ObjectType); raised != nil {
		return nil, raised
	}
	h, raised := Hash(f, args[0])
	if raised != nil {
		return nil, raised
	}
	return h.ToObject(), nil
}

func builtinHex(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
	return builtinNumberToBase(f, "hex", args, "0x", 16)
}

func builtinID(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "id", args, ObjectType); raised != nil {
		return nil, raised
	}
	return NewInt(int64(uintptr(args[0].toPointer()))).ToObject(), nil
}

func builtinImport(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	validated := make([]*Object, importParams.Count)
	if raised := importParams.Validate(f, validated, args, kwargs); raised != nil {
		return nil, raised
	}
	level, raised := IndexInt(f, validated[4])
	if raised != nil {
		return nil, raised
	}
	return ImportModuleLevelObject(f, validated[0], validated[1], validated[2], validated[3], level)
}

func builtinIsInstance(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "isinstance", args, ObjectType, ObjectType); raised != nil {
		return nil, raised
	}
	ret, raised := IsInstance(f, args[0], args[1])
	if raised != nil {
		return nil, raised
	}
	return GetBool(ret).ToObject(), nil
}

func builtinIsSubclass(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "issubclass", args, ObjectType, ObjectType); raised != nil {
		return nil, raised
	}
	ret, raised := IsSubclass(f, args[0], args[1])
	if raised != nil {
		return nil, raised
	}
	return GetBool(ret).ToObject(), nil
}

func builtinIter(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "iter", args, ObjectType); raised != nil {
		return nil, raised
	}
	return Iter(f, args[0])
}

func builtinLen(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "len", args, ObjectType); raised != nil {
		return nil, raised
	}
	n, raised := Len(f, args[0])
	if raised != nil {
		return nil, raised
	}
	return NewInt(int64(n)).ToObject(), nil
}

func builtinLocals(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "locals", args); raised != nil {
		return nil, raised
	}
	if f.locals != nil {
		return f.locals.ToObject(), nil
	}
	return builtinGlobals(f, args, kwargs)
}

func builtinMax(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	return builtinMinMax(f, true, args, kwargs)
}

func builtinMin(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	return builtinMinMax(f, false, args, kwargs)
}

func builtinNext(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	expectedTypes := []*Type{ObjectType, ObjectType}
	if len(args) == 1 {
		expectedTypes = expectedTypes[:1]
	}
	if raised := checkFunctionArgs(f, "next", args, expectedTypes...); raised != nil {
		return nil, raised
	}
	ret, raised := Next(f, args[0])
	if raised != nil {
		if len(args) == 2 && raised.isInstance(StopIterationType) {
			f.RestoreExc(nil, nil)
			return args[1], nil
		}
		return nil, raised
	}
	return ret, nil
}

func builtinOct(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
	return builtinNumberToBase(f, "oct", args, "0o", 8)
}

func builtinOrd(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
	const lenMsg = "ord() expected a character, but string of length %d found"
	if raised := checkFunctionArgs(f, "ord", args, StrType); raised != nil {
		return nil, raised
	}
	s := toStrUnsafe(args[0]).Value()
	if numChars := utf8.RuneCountInString(s); numChars != 1 {
		return nil, f.RaiseType(TypeErrorType, fmt.Sprintf(lenMsg, numChars))
	}
	r, _ := utf8.DecodeRuneInString(s)
	return NewInt(int64(r)).ToObject(), nil
}

// builtinPrint writes its arguments to file, which defaults to the
// interpreter's standard output. file may be any object with a write
// method.
func builtinPrint(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	validated := make([]*Object, printParams.Count)
	if raised := printParams.Validate(f, validated, args, kwargs); raised != nil {
		return nil, raised
	}
	defer DecRef(validated[0])
	sep, raised := printSeparator(f, "sep", validated[1], " ")
	if raised != nil {
		return nil, raised
	}
	end, raised := printSeparator(f, "end", validated[2], "\n")
	if raised != nil {
		return nil, raised
	}
	var b strings.Builder
	for i, o := range toTupleUnsafe(validated[0]).elems {
		if i > 0 {
			b.WriteString(sep)
		}
		s, raised := ToStr(f, o)
		if raised != nil {
			return nil, raised
		}
		b.WriteString(s.Value())
	}
	b.WriteString(end)
	if file := validated[3]; file != None {
		s := NewStr(b.String())
		defer DecRef(s.ToObject())
		if _, raised := CallMethod(f, file, "write", Args{s.ToObject()}, nil); raised != nil {
			return nil, raised
		}
		return None, nil
	}
	if _, err := io.WriteString(f.ts.interp.stdout(), b.String()); err != nil {
		return nil, raiseOSError(f, err)
	}
	return None, nil
}

func printSeparator(f *Frame, name string, o *Object, def string) (string, *BaseException) {
	switch {
	case o == None:
		return def, nil
	case o.isInstance(StrType):
		return toStrUnsafe(o).Value(), nil
	}
	return "", f.RaiseType(TypeErrorType, fmt.Sprintf("%s must be None or a string, not %s", name, o.typ.Name()))
}

func builtinRepr(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "repr", args, ObjectType); raised != nil {
		return nil, raised
	}
	s, raised := Repr(f, args[0])
	if raised != nil {
		return nil, raised
	}
	return s.ToObject(), nil
}

func builtinSetAttr(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "setattr", args, ObjectType, StrType, ObjectType); raised != nil {
		return nil, raised
	}
	if raised := SetAttr(f, args[0], toStrUnsafe(args[1]), args[2]); raised != nil {
		return nil, raised
	}
	return None, nil
}

func builtinSorted(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "sorted", args, ObjectType); raised != nil {
		return nil, raised
	}
	elems, raised := seqToSlice(f, args[0])
	if raised != nil {
		return nil, raised
	}
	l := NewList(elems...)
	if _, raised := listSort(f, Args{l.ToObject()}, nil); raised != nil {
		DecRef(l.ToObject())
		return nil, raised
	}
	return l.ToObject(), nil
}

func builtinSum(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	expectedTypes := []*Type{ObjectType, ObjectType}
	if len(args) == 1 {
		expectedTypes = expectedTypes[:1]
	}
	if raised := checkFunctionArgs(f, "sum", args, expectedTypes...); raised != nil {
		return nil, raised
	}
	total := NewInt(0).ToObject()
	if len(args) == 2 {
		if args[1].isInstance(StrType) {
			return nil, f.RaiseType(TypeErrorType, "sum() can't sum strings [use ''.join(seq) instead]")
		}
		total = args[1]
	}
	raised := seqForEach(f, args[0], func(o *Object) (bool, *BaseException) {
		result, raised := Add(f, total, o)
		if raised != nil {
			return false, raised
		}
		total = result
		return true, nil
	})
	if raised != nil {
		return nil, raised
	}
	return total, nil
}

// builtinMinMax implements the builtin min/max() functions. When doMax is
// true, the max is found, otherwise the min is found. There are two forms of
// the builtins. The first takes a single iterable argument and the result is
// the min/max of the elements of that sequence. The second form takes two or
// more args and returns the min/max of those.
func builtinMinMax(f *Frame, doMax bool, args Args, kwargs KWArgs) (*Object, *BaseException) {
	name := "min"
	if doMax {
		name = "max"
	}
	if raised := checkFunctionVarArgs(f, name, args, ObjectType); raised != nil {
		return nil, raised
	}
	keyFunc := kwargs.get("key", nil)
	if keyFunc == None {
		keyFunc = nil
	}
	def := kwargs.get("default", nil)
	if def != nil && len(args) > 1 {
		return nil, f.RaiseType(TypeErrorType, fmt.Sprintf("Cannot specify a default for %s() with multiple positional arguments", name))
	}
	// selected is the min/max element found so far.
	var selected, selectedKey *Object
	partialFunc := func(o *Object) (bool, *BaseException) {
		oKey := o
		if keyFunc != nil {
			var raised *BaseException
			oKey, raised = keyFunc.Call(f, Args{o}, nil)
			if raised != nil {
				return false, raised
			}
		}
		// sel dictates whether o is the new min/max. It defaults to
		// true when selected == nil (we don't yet have a selection).
		sel := true
		if selected != nil {
			op := CompareLT
			if doMax {
				op = CompareGT
			}
			better, raised := RichCompareBool(f, oKey, selectedKey, op)
			if raised != nil {
				return false, raised
			}
			sel = better
		}
		if sel {
			selected = o
			selectedKey = oKey
		}
		return true, nil
	}
	if len(args) == 1 {
		// Take min/max of the single iterable arg passed.
		if raised := seqForEach(f, args[0], partialFunc); raised != nil {
			return nil, raised
		}
		if selected == nil {
			if def != nil {
				return def, nil
			}
			return nil, f.RaiseType(ValueErrorType, fmt.Sprintf("%s() arg is an empty sequence", name))
		}
	} else {
		// Take min/max of the passed args.
		for _, arg := range args {
			if _, raised := partialFunc(arg); raised != nil {
				return nil, raised
			}
		}
	}
	return selected, nil
}

// builtinNumberToBase implements the builtins "bin", "hex", and "oct" for
// any object supporting __index__.
func builtinNumberToBase(f *Frame, name string, args Args, prefix string, base int) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, name, args, ObjectType); raised != nil {
		return nil, raised
	}
	index, raised := Index(f, args[0])
	if raised != nil {
		return nil, raised
	}
	return NewStr(numberToBase(prefix, base, index.Value())).ToObject(), nil
}

// numberToBase formats i in base, which must be between 2 and 36, with the
// sign before the prefix.
func numberToBase(prefix string, base int, i int64) string {
	s := big.NewInt(i).Text(base)
	if s[0] == '-' {
		// Move the negative sign before the prefix.
		return "-" + prefix + s[1:]
	}
	return prefix + s
}

// stdout returns the interpreter's standard output stream.
func (interp *InterpreterState) stdout() io.Writer {
	if interp.config != nil && interp.config.Stdout != nil {
		return interp.config.Stdout
	}
	return os.Stdout
}
