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

// superType is the object representing the Python 'super' type. Only the
// explicit super(type, obj) form is supported.
var superType = newBasisType("super", reflect.TypeOf(super{}), ObjectType)

// super is a bound proxy: attribute lookups on it search the MRO of
// selfClass starting just after thisClass.
type super struct {
	Object
	thisClass *Type
	self      *Object
	selfClass *Type
}

func toSuperUnsafe(o *Object) *super {
	return (*super)(o.toPointer())
}

func superDealloc(o *Object) {
	sup := toSuperUnsafe(o)
	if sup.self != nil {
		self := sup.self
		sup.self, sup.thisClass, sup.selfClass = nil, nil, nil
		DecRef(self)
	}
}

// superCheck returns the class whose MRO a super(thisClass, self) proxy
// searches: self itself when it is a subclass of thisClass, otherwise the
// type of self.
func superCheck(f *Frame, thisClass *Type, self *Object) (*Type, *BaseException) {
	if self.isInstance(TypeType) && toTypeUnsafe(self).isSubclass(thisClass) {
		return toTypeUnsafe(self), nil
	}
	if self.isInstance(thisClass) {
		return self.typ, nil
	}
	return nil, f.RaiseType(TypeErrorType, "super(type, obj): obj must be an instance or subtype of type")
}

func superInit(f *Frame, o *Object, args Args, _ KWArgs) (*Object, *BaseException) {
	if len(args) != 2 {
		format := "super() takes exactly 2 arguments (%d given)"
		return nil, f.RaiseType(TypeErrorType, fmt.Sprintf(format, len(args)))
	}
	if !args[0].isInstance(TypeType) {
		format := "super() argument 1 must be type, not %s"
		return nil, f.RaiseType(TypeErrorType, fmt.Sprintf(format, args[0].typ.Name()))
	}
	thisClass := toTypeUnsafe(args[0])
	selfClass, raised := superCheck(f, thisClass, args[1])
	if raised != nil {
		return nil, raised
	}
	sup := toSuperUnsafe(o)
	sup.thisClass = thisClass
	sup.selfClass = selfClass
	setRef(&sup.self, args[1])
	return None, nil
}

// lookup finds name in the classes following thisClass in the MRO of
// selfClass and binds it to the proxied object. It returns nil when no such
// class defines name.
func (sup *super) lookup(f *Frame, name *Str) (*Object, *BaseException) {
	mro := sup.selfClass.mro
	start := len(mro)
	for i, t := range mro {
		if t == sup.thisClass {
			start = i + 1
			break
		}
	}
	var inst *Object
	if sup.self != sup.selfClass.ToObject() {
		inst = sup.self
	}
	for _, t := range mro[start:] {
		attr, raised := t.Dict().GetItem(f, name.ToObject())
		if raised != nil {
			return nil, raised
		}
		if attr == nil {
			continue
		}
		if get := attr.typ.slots.Get; get != nil {
			return get.Fn(f, attr, inst, sup.selfClass)
		}
		return attr, nil
	}
	return nil, nil
}

func superGetAttribute(f *Frame, o *Object, name *Str) (*Object, *BaseException) {
	sup := toSuperUnsafe(o)
	// __class__ describes the proxy, not the proxied object.
	if sup.selfClass != nil && name.Value() != "__class__" {
		attr, raised := sup.lookup(f, name)
		if raised != nil || attr != nil {
			return attr, raised
		}
	}
	return objectGetAttribute(f, o, name)
}

func superRepr(f *Frame, o *Object) (*Object, *BaseException) {
	sup := toSuperUnsafe(o)
	if sup.thisClass == nil {
		return NewStr("<super: <class 'NoneType'>, NULL>").ToObject(), nil
	}
	return NewStr(fmt.Sprintf("<super: <class '%s'>, <%s object>>", sup.thisClass.Name(), sup.selfClass.Name())).ToObject(), nil
}

func superGetThisClass(f *Frame, o *Object) (*Object, *BaseException) {
	if t := toSuperUnsafe(o).thisClass; t != nil {
		return t.ToObject(), nil
	}
	return None, nil
}

func superGetSelf(f *Frame, o *Object) (*Object, *BaseException) {
	if self := toSuperUnsafe(o).self; self != nil {
		return self, nil
	}
	return None, nil
}

func superGetSelfClass(f *Frame, o *Object) (*Object, *BaseException) {
	if t := toSuperUnsafe(o).selfClass; t != nil {
		return t.ToObject(), nil
	}
	return None, nil
}

func initSuperType(dict map[string]*Object) {
	dict["__thisclass__"] = newGetSetDescriptor(superType, "__thisclass__", superGetThisClass, nil)
	dict["__self__"] = newGetSetDescriptor(superType, "__self__", superGetSelf, nil)
	dict["__self_class__"] = newGetSetDescriptor(superType, "__self_class__", superGetSelfClass, nil)
	superType.slots.Dealloc = &deallocSlot{superDealloc}
	superType.slots.GetAttribute = &getAttributeSlot{superGetAttribute}
	superType.slots.Init = &initSlot{superInit}
	superType.slots.Repr = &unaryOpSlot{superRepr}
}
