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
	"sort"
)

var (
	// ExceptionTypes contains all builtin exception types.
	ExceptionTypes []*Type
	// NoneType is the object representing the Python 'NoneType' type.
	NoneType = newSimpleType("NoneType", ObjectType)
	// None is the singleton NoneType object representing the Python 'None'
	// object.
	None = &Object{typ: NoneType, refcnt: 1}
	// NotImplementedType is the object representing the Python
	// 'NotImplementedType' object.
	NotImplementedType = newSimpleType("NotImplementedType", ObjectType)
	// NotImplemented is the singleton NotImplementedType object
	// representing the Python 'NotImplemented' object.
	NotImplemented = &Object{typ: NotImplementedType, refcnt: 1}
	// EllipsisType is the object representing the Python 'ellipsis' type.
	EllipsisType = newSimpleType("ellipsis", ObjectType)
	// Ellipsis is the singleton ellipsis object written "...".
	Ellipsis = &Object{typ: EllipsisType, refcnt: 1}
)

func noneRepr(*Frame, *Object) (*Object, *BaseException) {
	return NewStr("None").ToObject(), nil
}

func noneBool(*Frame, *Object) (*Object, *BaseException) {
	return False.ToObject(), nil
}

func noneNew(f *Frame, t *Type, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if len(args)+len(kwargs) > 0 {
		return nil, f.RaiseType(TypeErrorType, "NoneType takes no arguments")
	}
	return None, nil
}

func initNoneType(map[string]*Object) {
	NoneType.flags &^= typeFlagBasetype
	NoneType.slots.New = &newSlot{noneNew}
	NoneType.slots.Repr = &unaryOpSlot{noneRepr}
	NoneType.slots.number().Bool = &unaryOpSlot{noneBool}
}

func notImplementedRepr(*Frame, *Object) (*Object, *BaseException) {
	return NewStr("NotImplemented").ToObject(), nil
}

func notImplementedNew(f *Frame, t *Type, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if len(args)+len(kwargs) > 0 {
		return nil, f.RaiseType(TypeErrorType, "NotImplementedType takes no arguments")
	}
	return NotImplemented, nil
}

func initNotImplementedType(map[string]*Object) {
	NotImplementedType.flags &^= typeFlagBasetype
	NotImplementedType.slots.New = &newSlot{notImplementedNew}
	NotImplementedType.slots.Repr = &unaryOpSlot{notImplementedRepr}
}

func ellipsisRepr(*Frame, *Object) (*Object, *BaseException) {
	return NewStr("Ellipsis").ToObject(), nil
}

func initEllipsisType(map[string]*Object) {
	EllipsisType.flags &^= typeFlagBasetype | typeFlagInstantiable
	EllipsisType.slots.Repr = &unaryOpSlot{ellipsisRepr}
}

type typeState int

const (
	typeStateNotReady typeState = iota
	typeStateInitializing
	typeStateReady
)

type builtinTypeInit func(map[string]*Object)

type builtinTypeInfo struct {
	state  typeState
	init   builtinTypeInit
	global bool
}

var builtinTypes = map[*Type]*builtinTypeInfo{
	BoolType:               {init: initBoolType, global: true},
	ClassMethodType:        {init: initClassMethodType, global: true},
	CodeType:               {init: initCodeType},
	dictKeyIteratorType:    {init: initDictKeyIteratorType},
	EllipsisType:           {init: initEllipsisType},
	EnumerateType:          {init: initEnumerateType, global: true},
	DictType:               {init: initDictType, global: true},
	FloatType:              {init: initFloatType, global: true},
	FrameType:              {init: initFrameType},
	BuiltinFunctionType:    {init: initBuiltinFunctionType},
	FunctionType:           {init: initFunctionType},
	getSetDescriptorType:   {init: initGetSetDescriptorType},
	IntType:                {init: initIntType, global: true},
	listIteratorType:       {init: initListIteratorType},
	ListType:               {init: initListType, global: true},
	MethodType:             {init: initMethodType},
	ModuleType:             {init: initModuleType},
	NoneType:               {init: initNoneType},
	NotImplementedType:     {init: initNotImplementedType},
	ObjectType:             {init: initObjectType, global: true},
	PropertyType:           {init: initPropertyType, global: true},
	RangeType:              {init: initRangeType, global: true},
	rangeIteratorType:      {init: initRangeIteratorType},
	seqIteratorType:        {init: initSeqIteratorType},
	StaticMethodType:       {init: initStaticMethodType, global: true},
	StrType:                {init: initStrType, global: true},
	superType:              {init: initSuperType, global: true},
	TracebackType:          {init: initTracebackType},
	TupleType:              {init: initTupleType, global: true},
	TypeType:               {init: initTypeType, global: true},
	UnraisableHookArgsType: {init: initUnraisableHookArgsType},
	WeakRefType:            {init: initWeakRefType},
}

func initBuiltinType(typ *Type, info *builtinTypeInfo) {
	if info.state == typeStateReady {
		return
	}
	if info.state == typeStateInitializing {
		logFatal(fmt.Sprintf("cycle in type initialization for: %s", typ.name))
	}
	info.state = typeStateInitializing
	for _, base := range typ.bases {
		baseInfo, ok := builtinTypes[base]
		if !ok {
			logFatal(fmt.Sprintf("base type not registered for: %s", typ.name))
		}
		initBuiltinType(base, baseInfo)
	}
	prepareBuiltinType(typ, info.init)
	info.state = typeStateReady
	if typ.isSubclass(BaseExceptionType) {
		ExceptionTypes = append(ExceptionTypes, typ)
	}
}

// builtinGlobalTypes returns the types exposed by name in the builtins
// module.
func builtinGlobalTypes() map[string]*Type {
	m := map[string]*Type{}
	for typ, info := range builtinTypes {
		if info.global {
			m[typ.name] = typ
		}
	}
	return m
}

func init() {
	for _, t := range exceptionTypeList {
		builtinTypes[t.typ] = &builtinTypeInfo{init: t.init, global: true}
	}
	// Ready the types in a stable order so that initialization failures
	// are reproducible.
	types := make([]*Type, 0, len(builtinTypes))
	for typ := range builtinTypes {
		types = append(types, typ)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].name < types[j].name })
	for _, typ := range types {
		initBuiltinType(typ, builtinTypes[typ])
	}
	sort.Slice(ExceptionTypes, func(i, j int) bool { return ExceptionTypes[i].name < ExceptionTypes[j].name })
}
