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

// Property represents Python 'property' objects.
type Property struct {
	Object
	get, set, del *Object
}

func toPropertyUnsafe(o *Object) *Property {
	return (*Property)(o.toPointer())
}

// ToObject upcasts p to an Object.
func (p *Property) ToObject() *Object {
	return &p.Object
}

// PropertyType is the object representing the Python 'property' type.
var PropertyType = newBasisType("property", reflect.TypeOf(Property{}), ObjectType)

func propertyDealloc(o *Object) {
	p := toPropertyUnsafe(o)
	XDecRef(p.get)
	XDecRef(p.set)
	XDecRef(p.del)
	p.get, p.set, p.del = nil, nil, nil
}

func propertyDelete(f *Frame, desc, inst *Object) *BaseException {
	p := toPropertyUnsafe(desc)
	if p.del == nil || p.del == None {
		return f.RaiseType(AttributeErrorType, "can't delete attribute")
	}
	_, raised := p.del.Call(f, Args{inst}, nil)
	return raised
}

func propertyGet(f *Frame, desc, instance *Object, _ *Type) (*Object, *BaseException) {
	if instance == nil {
		return desc, nil
	}
	p := toPropertyUnsafe(desc)
	if p.get == nil || p.get == None {
		return nil, f.RaiseType(AttributeErrorType, "unreadable attribute")
	}
	return p.get.Call(f, Args{instance}, nil)
}

func propertyInit(f *Frame, o *Object, args Args, _ KWArgs) (*Object, *BaseException) {
	expectedTypes := []*Type{ObjectType, ObjectType, ObjectType}
	argc := len(args)
	if argc < 3 {
		expectedTypes = expectedTypes[:argc]
	}
	if raised := checkFunctionArgs(f, "property", args, expectedTypes...); raised != nil {
		return nil, raised
	}
	p := toPropertyUnsafe(o)
	fields := []**Object{&p.get, &p.set, &p.del}
	for i, arg := range args {
		setRef(fields[i], arg)
	}
	return None, nil
}

func propertySet(f *Frame, desc, inst, value *Object) *BaseException {
	p := toPropertyUnsafe(desc)
	if p.set == nil || p.set == None {
		return f.RaiseType(AttributeErrorType, "can't set attribute")
	}
	_, raised := p.set.Call(f, Args{inst, value}, nil)
	return raised
}

// propertyCopyWith implements getter/setter/deleter: a new property equal to
// p with the accessor at index replaced.
func propertyCopyWith(index int) Func {
	return func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
		if raised := checkMethodArgs(f, "property", args, PropertyType, ObjectType); raised != nil {
			return nil, raised
		}
		p := toPropertyUnsafe(args[0])
		accessors := Args{p.get, p.set, p.del}
		for i, a := range accessors {
			if a == nil {
				accessors[i] = None
			}
		}
		accessors[index] = args[1]
		return args[0].typ.ToObject().Call(f, accessors, nil)
	}
}

func initPropertyType(dict map[string]*Object) {
	dict["getter"] = newBuiltinFunction("getter", propertyCopyWith(0)).ToObject()
	dict["setter"] = newBuiltinFunction("setter", propertyCopyWith(1)).ToObject()
	dict["deleter"] = newBuiltinFunction("deleter", propertyCopyWith(2)).ToObject()
	PropertyType.slots.Dealloc = &deallocSlot{propertyDealloc}
	PropertyType.slots.Delete = &deleteSlot{propertyDelete}
	PropertyType.slots.Get = &getSlot{propertyGet}
	PropertyType.slots.Init = &initSlot{propertyInit}
	PropertyType.slots.Set = &setSlot{propertySet}
}

// getSetDescriptor exposes a Go getter and optional setter as a data
// descriptor on a builtin type.
type getSetDescriptor struct {
	Object
	owner *Type
	name  string
	get   func(*Frame, *Object) (*Object, *BaseException)
	set   func(*Frame, *Object, *Object) *BaseException
}

var getSetDescriptorType = newBasisType("getset_descriptor", reflect.TypeOf(getSetDescriptor{}), ObjectType)

// newGetSetDescriptor returns a descriptor for attribute name on owner. set
// receives a nil value on deletion and may itself be nil for a read-only
// attribute.
func newGetSetDescriptor(owner *Type, name string, get func(*Frame, *Object) (*Object, *BaseException), set func(*Frame, *Object, *Object) *BaseException) *Object {
	d := &getSetDescriptor{Object: objectHeader(getSetDescriptorType), owner: owner, name: name, get: get, set: set}
	return &d.Object
}

func toGetSetDescriptorUnsafe(o *Object) *getSetDescriptor {
	return (*getSetDescriptor)(o.toPointer())
}

func (d *getSetDescriptor) check(f *Frame, inst *Object) *BaseException {
	if !inst.isInstance(d.owner) {
		format := "descriptor '%s' for '%s' objects doesn't apply to a '%s' object"
		return f.RaiseType(TypeErrorType, fmt.Sprintf(format, d.name, d.owner.Name(), inst.typ.Name()))
	}
	return nil
}

func getSetDescriptorGet(f *Frame, desc, instance *Object, _ *Type) (*Object, *BaseException) {
	d := toGetSetDescriptorUnsafe(desc)
	if instance == nil {
		return desc, nil
	}
	if raised := d.check(f, instance); raised != nil {
		return nil, raised
	}
	return d.get(f, instance)
}

func getSetDescriptorSet(f *Frame, desc, instance, value *Object) *BaseException {
	d := toGetSetDescriptorUnsafe(desc)
	if raised := d.check(f, instance); raised != nil {
		return raised
	}
	if d.set == nil {
		format := "attribute '%s' of '%s' objects is not writable"
		return f.RaiseType(AttributeErrorType, fmt.Sprintf(format, d.name, d.owner.Name()))
	}
	return d.set(f, instance, value)
}

func getSetDescriptorDelete(f *Frame, desc, instance *Object) *BaseException {
	return getSetDescriptorSet(f, desc, instance, nil)
}

func getSetDescriptorRepr(f *Frame, o *Object) (*Object, *BaseException) {
	d := toGetSetDescriptorUnsafe(o)
	return NewStr(fmt.Sprintf("<attribute '%s' of '%s' objects>", d.name, d.owner.Name())).ToObject(), nil
}

func initGetSetDescriptorType(map[string]*Object) {
	getSetDescriptorType.flags &^= typeFlagBasetype | typeFlagInstantiable
	getSetDescriptorType.slots.Delete = &deleteSlot{getSetDescriptorDelete}
	getSetDescriptorType.slots.Get = &getSlot{getSetDescriptorGet}
	getSetDescriptorType.slots.Repr = &unaryOpSlot{getSetDescriptorRepr}
	getSetDescriptorType.slots.Set = &setSlot{getSetDescriptorSet}
}
