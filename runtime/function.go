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

var (
	// FunctionType is the object representing the Python 'function' type.
	FunctionType = newBasisType("function", reflect.TypeOf(Function{}), ObjectType)
	// BuiltinFunctionType is the object representing the Python
	// 'builtin_function_or_method' type.
	BuiltinFunctionType = newType(TypeType, "builtin_function_or_method", reflect.TypeOf(Function{}), []*Type{ObjectType}, nil)
	// StaticMethodType is the object representing the Python
	// 'staticmethod' type.
	StaticMethodType = newBasisType("staticmethod", reflect.TypeOf(staticMethod{}), ObjectType)
	// ClassMethodType is the object representing the Python
	// 'classmethod' type.
	ClassMethodType = newBasisType("classmethod", reflect.TypeOf(classMethod{}), ObjectType)
)

// Args represent positional parameters in a call to a Python function.
type Args []*Object

func (a Args) makeCopy() Args {
	result := make(Args, len(a))
	copy(result, a)
	return result
}

// KWArg represents a keyword argument in a call to a Python function.
type KWArg struct {
	Name  string
	Value *Object
}

// KWArgs represents a list of keyword parameters in a call to a Python
// function.
type KWArgs []KWArg

func (k KWArgs) get(name string, def *Object) *Object {
	for _, kwarg := range k {
		if kwarg.Name == name {
			return kwarg.Value
		}
	}
	return def
}

func (k KWArgs) makeDict() *Dict {
	m := map[string]*Object{}
	for _, kw := range k {
		m[kw.Name] = kw.Value
	}
	return newStringDict(m)
}

// Func is a Go function underlying a Python builtin function object.
type Func func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException)

// Function represents Python 'function' and 'builtin_function_or_method'
// objects. Exactly one of fn and code is set.
type Function struct {
	Object
	fn       Func
	name     string
	qualname string
	code     *Code
	params   *ParamSpec
	globals  *Dict
}

// NewFunction returns a function executing c with the given globals. params
// carries the parameter defaults evaluated when the function was defined.
func NewFunction(c *Code, params *ParamSpec, globals *Dict) *Function {
	fun := &Function{Object: objectHeader(FunctionType), name: c.name, qualname: c.qualname, code: c, params: params, globals: globals}
	fun.setDict(NewDict())
	IncRef(c.ToObject())
	IncRef(globals.ToObject())
	return fun
}

// newBuiltinFunction returns a function object with the given name that
// invokes fn when called.
func newBuiltinFunction(name string, fn Func) *Function {
	return &Function{Object: objectHeader(BuiltinFunctionType), fn: fn, name: name, qualname: name}
}

func toFunctionUnsafe(o *Object) *Function {
	return (*Function)(o.toPointer())
}

// ToObject upcasts fun to an Object.
func (fun *Function) ToObject() *Object {
	return &fun.Object
}

// Name returns fun's name field.
func (fun *Function) Name() string {
	return fun.name
}

// Code returns the code object executed by fun, or nil for builtins.
func (fun *Function) Code() *Code {
	return fun.code
}

func functionCall(f *Frame, callable *Object, args Args, kwargs KWArgs) (*Object, *BaseException) {
	fun := toFunctionUnsafe(callable)
	if fun.code == nil {
		return fun.fn(f, args, kwargs)
	}
	return fun.code.Eval(f, fun.globals, fun.params, args, kwargs)
}

func functionDealloc(o *Object) {
	fun := toFunctionUnsafe(o)
	if fun.code != nil {
		DecRef(fun.code.ToObject())
		DecRef(fun.globals.ToObject())
		fun.code, fun.globals = nil, nil
	}
}

func functionGet(f *Frame, desc, instance *Object, owner *Type) (*Object, *BaseException) {
	if instance == nil {
		return desc, nil
	}
	return NewMethod(desc, instance).ToObject(), nil
}

func functionGetName(f *Frame, o *Object) (*Object, *BaseException) {
	return NewStr(toFunctionUnsafe(o).name).ToObject(), nil
}

func functionSetName(f *Frame, o, value *Object) *BaseException {
	if value == nil || !value.isInstance(StrType) {
		return f.RaiseType(TypeErrorType, "__name__ must be set to a string object")
	}
	toFunctionUnsafe(o).name = toStrUnsafe(value).Value()
	return nil
}

func functionGetQualname(f *Frame, o *Object) (*Object, *BaseException) {
	return NewStr(toFunctionUnsafe(o).qualname).ToObject(), nil
}

func functionGetCode(f *Frame, o *Object) (*Object, *BaseException) {
	if c := toFunctionUnsafe(o).code; c != nil {
		return c.ToObject(), nil
	}
	return None, nil
}

func functionGetGlobals(f *Frame, o *Object) (*Object, *BaseException) {
	if g := toFunctionUnsafe(o).globals; g != nil {
		return g.ToObject(), nil
	}
	return None, nil
}

func functionGetDefaults(f *Frame, o *Object) (*Object, *BaseException) {
	fun := toFunctionUnsafe(o)
	if fun.params == nil {
		return None, nil
	}
	var defaults []*Object
	for _, p := range fun.params.params {
		if p.Def != nil {
			defaults = append(defaults, p.Def)
		}
	}
	if len(defaults) == 0 {
		return None, nil
	}
	return NewTuple(defaults...).ToObject(), nil
}

func functionRepr(_ *Frame, o *Object) (*Object, *BaseException) {
	fun := toFunctionUnsafe(o)
	if fun.code == nil {
		return NewStr(fmt.Sprintf("<built-in function %s>", fun.name)).ToObject(), nil
	}
	return NewStr(fmt.Sprintf("<function %s at %p>", fun.qualname, fun)).ToObject(), nil
}

func initFunctionType(dict map[string]*Object) {
	dict["__name__"] = newGetSetDescriptor(FunctionType, "__name__", functionGetName, functionSetName)
	dict["__qualname__"] = newGetSetDescriptor(FunctionType, "__qualname__", functionGetQualname, nil)
	dict["__code__"] = newGetSetDescriptor(FunctionType, "__code__", functionGetCode, nil)
	dict["__globals__"] = newGetSetDescriptor(FunctionType, "__globals__", functionGetGlobals, nil)
	dict["__defaults__"] = newGetSetDescriptor(FunctionType, "__defaults__", functionGetDefaults, nil)
	FunctionType.flags &^= typeFlagInstantiable | typeFlagBasetype
	FunctionType.slots.Call = &callSlot{functionCall}
	FunctionType.slots.Dealloc = &deallocSlot{functionDealloc}
	FunctionType.slots.Get = &getSlot{functionGet}
	FunctionType.slots.Repr = &unaryOpSlot{functionRepr}
}

func initBuiltinFunctionType(dict map[string]*Object) {
	dict["__name__"] = newGetSetDescriptor(BuiltinFunctionType, "__name__", functionGetName, nil)
	dict["__qualname__"] = newGetSetDescriptor(BuiltinFunctionType, "__qualname__", functionGetQualname, nil)
	BuiltinFunctionType.flags &^= typeFlagInstantiable | typeFlagBasetype
	BuiltinFunctionType.slots.Call = &callSlot{functionCall}
	BuiltinFunctionType.slots.Get = &getSlot{functionGet}
	BuiltinFunctionType.slots.Repr = &unaryOpSlot{functionRepr}
}

// staticMethod represents Python 'staticmethod' objects.
type staticMethod struct {
	Object
	callable *Object
}

func newStaticMethod(callable *Object) *staticMethod {
	return &staticMethod{Object: objectHeader(StaticMethodType), callable: newRef(callable)}
}

func toStaticMethodUnsafe(o *Object) *staticMethod {
	return (*staticMethod)(o.toPointer())
}

// ToObject upcasts m to an Object.
func (m *staticMethod) ToObject() *Object {
	return &m.Object
}

func staticMethodDealloc(o *Object) {
	m := toStaticMethodUnsafe(o)
	XDecRef(m.callable)
	m.callable = nil
}

func staticMethodGet(f *Frame, desc, _ *Object, _ *Type) (*Object, *BaseException) {
	m := toStaticMethodUnsafe(desc)
	if m.callable == nil {
		return nil, f.RaiseType(RuntimeErrorType, "uninitialized staticmethod object")
	}
	return m.callable, nil
}

func staticMethodInit(f *Frame, o *Object, args Args, _ KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "staticmethod", args, ObjectType); raised != nil {
		return nil, raised
	}
	setRef(&toStaticMethodUnsafe(o).callable, args[0])
	return None, nil
}

func initStaticMethodType(map[string]*Object) {
	StaticMethodType.slots.Dealloc = &deallocSlot{staticMethodDealloc}
	StaticMethodType.slots.Get = &getSlot{staticMethodGet}
	StaticMethodType.slots.Init = &initSlot{staticMethodInit}
}

// classMethod represents Python 'classmethod' objects.
type classMethod struct {
	Object
	callable *Object
}

func toClassMethodUnsafe(o *Object) *classMethod {
	return (*classMethod)(o.toPointer())
}

func classMethodDealloc(o *Object) {
	m := toClassMethodUnsafe(o)
	XDecRef(m.callable)
	m.callable = nil
}

func classMethodGet(f *Frame, desc, _ *Object, owner *Type) (*Object, *BaseException) {
	m := toClassMethodUnsafe(desc)
	if m.callable == nil {
		return nil, f.RaiseType(RuntimeErrorType, "uninitialized classmethod object")
	}
	return NewMethod(m.callable, owner.ToObject()).ToObject(), nil
}

func classMethodInit(f *Frame, o *Object, args Args, _ KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "classmethod", args, ObjectType); raised != nil {
		return nil, raised
	}
	setRef(&toClassMethodUnsafe(o).callable, args[0])
	return None, nil
}

func initClassMethodType(map[string]*Object) {
	ClassMethodType.slots.Dealloc = &deallocSlot{classMethodDealloc}
	ClassMethodType.slots.Get = &getSlot{classMethodGet}
	ClassMethodType.slots.Init = &initSlot{classMethodInit}
}
