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
	"sync/atomic"
	"unsafe"
)

var (
	objectBasis = reflect.TypeOf(Object{})
	// ObjectType is the object representing the Python 'object' type.
	//
	// We don't use newBasisType() here since that introduces an initialization
	// cycle between TypeType and ObjectType.
	ObjectType = &Type{
		name:  "object",
		basis: objectBasis,
		flags: typeFlagDefault,
	}
)

type objectState uint32

const (
	// objectStateFinalized is set once __del__ has run so that a
	// resurrected object is never finalized twice.
	objectStateFinalized objectState = 1 << iota
	// objectStateDeallocated is set when the object's storage has been
	// released. Any further reference count traffic is a fatal error.
	objectStateDeallocated
)

// Object represents Python 'object' objects.
type Object struct {
	typ      *Type
	dict     *Dict
	weakrefs *WeakRef
	refcnt   int64
	state    objectState
}

// objectHeader returns the header for a freshly allocated instance of t. The
// reference count starts at one, owned by the caller.
func objectHeader(t *Type) Object {
	trackAlloc(t)
	return Object{typ: t, refcnt: 1}
}

func newObject(t *Type) *Object {
	var dict *Dict
	if t.flags&typeFlagHeap != 0 {
		dict = NewDict()
	}
	o := (*Object)(reflect.New(t.basis).UnsafePointer())
	*o = objectHeader(t)
	o.setDict(dict)
	return o
}

// Call invokes the callable Python object o with the given positional and
// keyword args. args must be non-nil (but can be empty). kwargs can be nil.
func (o *Object) Call(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	call := o.typ.slots.Call
	if call == nil {
		return nil, f.RaiseType(TypeErrorType, fmt.Sprintf("'%s' object is not callable", o.typ.Name()))
	}
	if raised := f.ts.enterRecursiveCall(f, " while calling a Python object"); raised != nil {
		return nil, raised
	}
	result, raised := call.Fn(f, o, args, kwargs)
	f.ts.leaveRecursiveCall()
	return result, raised
}

// Dict returns o's object dict, aka __dict__.
func (o *Object) Dict() *Dict {
	p := (*unsafe.Pointer)(unsafe.Pointer(&o.dict))
	return (*Dict)(atomic.LoadPointer(p))
}

func (o *Object) setDict(d *Dict) {
	p := (*unsafe.Pointer)(unsafe.Pointer(&o.dict))
	atomic.StorePointer(p, unsafe.Pointer(d))
}

// String returns a string representation of o, e.g. for debugging. It never
// runs Python code.
func (o *Object) String() string {
	switch {
	case o == nil:
		return "<nil>"
	case o.isInstance(StrType):
		return fmt.Sprintf("%q", toStrUnsafe(o).Value())
	case o.isInstance(IntType):
		return fmt.Sprintf("%d", toIntUnsafe(o).Value())
	case o.isInstance(TypeType):
		return fmt.Sprintf("<class '%s'>", toTypeUnsafe(o).Name())
	case o == None:
		return "None"
	}
	return fmt.Sprintf("<%s object at %p>", o.typ.Name(), o)
}

// Type returns the Python type of o.
func (o *Object) Type() *Type {
	return o.typ
}

func (o *Object) toPointer() unsafe.Pointer {
	return unsafe.Pointer(o)
}

func (o *Object) isInstance(t *Type) bool {
	return o.typ.isSubclass(t)
}

func objectDelAttr(f *Frame, o *Object, name *Str) *BaseException {
	desc, raised := o.typ.mroLookup(f, name)
	if raised != nil {
		return raised
	}
	if desc != nil {
		if del := desc.typ.slots.Delete; del != nil {
			return del.Fn(f, desc, o)
		}
	}
	deleted := false
	if d := o.Dict(); d != nil {
		deleted, raised = d.DelItem(f, name.ToObject())
		if raised != nil {
			return raised
		}
	}
	if !deleted {
		format := "'%s' object has no attribute '%s'"
		return f.RaiseType(AttributeErrorType, fmt.Sprintf(format, o.typ.Name(), name.Value()))
	}
	return nil
}

// objectGetAttribute is the generic attribute lookup: a data descriptor found
// on the type wins, then the instance dict, then a non-data descriptor, then
// the plain type attribute.
func objectGetAttribute(f *Frame, o *Object, name *Str) (*Object, *BaseException) {
	var typeGet *getSlot
	typeAttr, raised := o.typ.mroLookup(f, name)
	if raised != nil {
		return nil, raised
	}
	if typeAttr != nil {
		typeGet = typeAttr.typ.slots.Get
		if typeGet != nil && isDataDescriptor(typeAttr) {
			return typeGet.Fn(f, typeAttr, o, o.typ)
		}
	}
	if d := o.Dict(); d != nil {
		value, raised := d.GetItem(f, name.ToObject())
		if value != nil || raised != nil {
			return value, raised
		}
	}
	if typeGet != nil {
		return typeGet.Fn(f, typeAttr, o, o.typ)
	}
	if typeAttr != nil {
		return typeAttr, nil
	}
	format := "'%s' object has no attribute '%s'"
	return nil, f.RaiseType(AttributeErrorType, fmt.Sprintf(format, o.typ.Name(), name.Value()))
}

func objectSetAttr(f *Frame, o *Object, name *Str, value *Object) *BaseException {
	typeAttr, raised := o.typ.mroLookup(f, name)
	if raised != nil {
		return raised
	}
	if typeAttr != nil {
		if typeSet := typeAttr.typ.slots.Set; typeSet != nil {
			return typeSet.Fn(f, typeAttr, o, value)
		}
	}
	d := o.Dict()
	if d == nil {
		if typeAttr != nil {
			format := "'%s' object attribute '%s' is read-only"
			return f.RaiseType(AttributeErrorType, fmt.Sprintf(format, o.typ.Name(), name.Value()))
		}
		format := "'%s' object has no attribute '%s'"
		return f.RaiseType(AttributeErrorType, fmt.Sprintf(format, o.typ.Name(), name.Value()))
	}
	return d.SetItem(f, name.ToObject(), value)
}

// isDataDescriptor reports whether desc's type defines __get__ together with
// __set__ or __delete__.
func isDataDescriptor(desc *Object) bool {
	s := &desc.typ.slots
	return s.Get != nil && (s.Set != nil || s.Delete != nil)
}

func objectEq(f *Frame, v, w *Object) (*Object, *BaseException) {
	if v == w {
		return True.ToObject(), nil
	}
	return NotImplemented, nil
}

func objectNE(f *Frame, v, w *Object) (*Object, *BaseException) {
	eq := v.typ.slots.Eq
	if eq == nil {
		return NotImplemented, nil
	}
	r, raised := eq.Fn(f, v, w)
	if raised != nil || r == NotImplemented {
		return r, raised
	}
	b, raised := IsTrue(f, r)
	if raised != nil {
		return nil, raised
	}
	return GetBool(!b).ToObject(), nil
}

func objectHash(f *Frame, o *Object) (*Object, *BaseException) {
	return NewInt(int64(uintptr(o.toPointer()) >> 4)).ToObject(), nil
}

func objectInit(f *Frame, o *Object, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if len(args)+len(kwargs) > 0 && o.typ.slots.New == ObjectType.slots.New {
		return nil, f.RaiseType(TypeErrorType, "object.__init__() takes exactly one argument (the instance to initialize)")
	}
	return None, nil
}

func objectNew(f *Frame, t *Type, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if t.flags&typeFlagAbstract != 0 {
		return nil, f.RaiseType(TypeErrorType, fmt.Sprintf("cannot create '%s' instances", t.Name()))
	}
	if len(args)+len(kwargs) > 0 && t.slots.Init == ObjectType.slots.Init {
		return nil, f.RaiseType(TypeErrorType, fmt.Sprintf("%s() takes no arguments", t.Name()))
	}
	return newObject(t), nil
}

func objectRepr(f *Frame, o *Object) (*Object, *BaseException) {
	s, raised := o.typ.FullName(f)
	if raised != nil {
		return nil, raised
	}
	return NewStr(fmt.Sprintf("<%s object at %p>", s, o)).ToObject(), nil
}

func objectStr(f *Frame, o *Object) (*Object, *BaseException) {
	s, raised := Repr(f, o)
	if raised != nil {
		return nil, raised
	}
	return s.ToObject(), nil
}

func objectGetClass(f *Frame, o *Object) (*Object, *BaseException) {
	return o.typ.ToObject(), nil
}

func objectSetClass(f *Frame, o, value *Object) *BaseException {
	return f.RaiseType(TypeErrorType, "__class__ assignment is not supported")
}

func objectGetDict(f *Frame, o *Object) (*Object, *BaseException) {
	d := o.Dict()
	if d == nil {
		format := "'%s' object has no attribute '__dict__'"
		return nil, f.RaiseType(AttributeErrorType, fmt.Sprintf(format, o.typ.Name()))
	}
	return d.ToObject(), nil
}

func objectSetDict(f *Frame, o, value *Object) *BaseException {
	if o.Dict() == nil {
		format := "'%s' object has no attribute '__dict__'"
		return f.RaiseType(AttributeErrorType, fmt.Sprintf(format, o.typ.Name()))
	}
	if value == nil || !value.isInstance(DictType) {
		return f.RaiseType(TypeErrorType, "__dict__ must be set to a dictionary")
	}
	o.setDict(toDictUnsafe(value))
	return nil
}

func initObjectType(dict map[string]*Object) {
	ObjectType.typ = TypeType
	dict["__class__"] = newGetSetDescriptor(ObjectType, "__class__", objectGetClass, objectSetClass)
	dict["__dict__"] = newGetSetDescriptor(ObjectType, "__dict__", objectGetDict, objectSetDict)
	ObjectType.slots.DelAttr = &delAttrSlot{objectDelAttr}
	ObjectType.slots.Eq = &binaryOpSlot{objectEq}
	ObjectType.slots.GetAttribute = &getAttributeSlot{objectGetAttribute}
	ObjectType.slots.Hash = &unaryOpSlot{objectHash}
	ObjectType.slots.Init = &initSlot{objectInit}
	ObjectType.slots.NE = &binaryOpSlot{objectNE}
	ObjectType.slots.New = &newSlot{objectNew}
	ObjectType.slots.Repr = &unaryOpSlot{objectRepr}
	ObjectType.slots.SetAttr = &setAttrSlot{objectSetAttr}
	ObjectType.slots.Str = &unaryOpSlot{objectStr}
}
