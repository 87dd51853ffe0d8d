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

// Method represents Python 'method' objects: a callable bound to the
// instance it was looked up on.
type Method struct {
	Object
	function *Object
	self     *Object
}

// MethodType is the object representing the Python 'method' type.
var MethodType = newBasisType("method", reflect.TypeOf(Method{}), ObjectType)

// NewMethod returns function bound to self.
func NewMethod(function, self *Object) *Method {
	return &Method{Object: objectHeader(MethodType), function: newRef(function), self: newRef(self)}
}

func toMethodUnsafe(o *Object) *Method {
	return (*Method)(o.toPointer())
}

// ToObject upcasts m to an Object.
func (m *Method) ToObject() *Object {
	return &m.Object
}

func methodCall(f *Frame, callable *Object, args Args, kwargs KWArgs) (*Object, *BaseException) {
	m := toMethodUnsafe(callable)
	return m.function.Call(f, prependArg(m.self, args), kwargs)
}

func methodDealloc(o *Object) {
	m := toMethodUnsafe(o)
	XDecRef(m.function)
	XDecRef(m.self)
	m.function, m.self = nil, nil
}

func methodEq(f *Frame, v, w *Object) (*Object, *BaseException) {
	if !w.isInstance(MethodType) {
		return NotImplemented, nil
	}
	m1, m2 := toMethodUnsafe(v), toMethodUnsafe(w)
	return GetBool(m1.function == m2.function && m1.self == m2.self).ToObject(), nil
}

func methodGetFunc(f *Frame, o *Object) (*Object, *BaseException) {
	return toMethodUnsafe(o).function, nil
}

func methodGetSelf(f *Frame, o *Object) (*Object, *BaseException) {
	return toMethodUnsafe(o).self, nil
}

func methodGetName(f *Frame, o *Object) (*Object, *BaseException) {
	return GetAttr(f, toMethodUnsafe(o).function, nameStr, nil)
}

func methodHash(f *Frame, o *Object) (*Object, *BaseException) {
	m := toMethodUnsafe(o)
	h1, raised := objectHash(f, m.self)
	if raised != nil {
		return nil, raised
	}
	h2, raised := Hash(f, m.function)
	if raised != nil {
		return nil, raised
	}
	return NewInt(toIntUnsafe(h1).Value() ^ h2.Value()).ToObject(), nil
}

func methodRepr(f *Frame, o *Object) (*Object, *BaseException) {
	m := toMethodUnsafe(o)
	name := "?"
	if n, raised := GetAttr(f, m.function, qualnameStr, nil); raised != nil {
		return nil, raised
	} else if n != nil && n.isInstance(StrType) {
		name = toStrUnsafe(n).Value()
	}
	self, raised := Repr(f, m.self)
	if raised != nil {
		return nil, raised
	}
	return NewStr(fmt.Sprintf("<bound method %s of %s>", name, self.Value())).ToObject(), nil
}

func initMethodType(dict map[string]*Object) {
	dict["__func__"] = newGetSetDescriptor(MethodType, "__func__", methodGetFunc, nil)
	dict["__self__"] = newGetSetDescriptor(MethodType, "__self__", methodGetSelf, nil)
	dict["__name__"] = newGetSetDescriptor(MethodType, "__name__", methodGetName, nil)
	MethodType.flags &^= typeFlagBasetype | typeFlagInstantiable
	MethodType.slots.Call = &callSlot{methodCall}
	MethodType.slots.Dealloc = &deallocSlot{methodDealloc}
	MethodType.slots.Eq = &binaryOpSlot{methodEq}
	MethodType.slots.Hash = &unaryOpSlot{methodHash}
	MethodType.slots.Repr = &unaryOpSlot{methodRepr}
}
