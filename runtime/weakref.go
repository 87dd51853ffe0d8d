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
	// WeakRefType is the object representing the Python 'weakref' type.
	WeakRefType = newBasisType("weakref", reflect.TypeOf(WeakRef{}), ObjectType)
)

// WeakRef represents Python 'weakref' objects. A weak reference does not own
// its referent. When the referent is deallocated the reference goes dead and
// its callback, if any, is invoked with the reference as its argument.
type WeakRef struct {
	Object
	referent *Object
	callback *Object
	next     *WeakRef
	hash     *Object
}

func toWeakRefUnsafe(o *Object) *WeakRef {
	return (*WeakRef)(o.toPointer())
}

// ToObject upcasts r to an Object.
func (r *WeakRef) ToObject() *Object {
	return &r.Object
}

// Get returns r's referent, or nil if r is dead.
func (r *WeakRef) Get() *Object {
	return r.referent
}

// NewWeakRef returns a weak reference to o. References without a callback
// are shared.
func NewWeakRef(f *Frame, o, callback *Object) (*WeakRef, *BaseException) {
	if !supportsWeakRefs(o.typ) {
		format := "cannot create weak reference to '%s' object"
		return nil, f.RaiseType(TypeErrorType, fmt.Sprintf(format, o.typ.Name()))
	}
	if callback == None {
		callback = nil
	}
	if callback == nil {
		for r := o.weakrefs; r != nil; r = r.next {
			if r.callback == nil {
				IncRef(r.ToObject())
				return r, nil
			}
		}
	}
	r := &WeakRef{Object: objectHeader(WeakRefType), referent: o}
	if callback != nil {
		r.callback = newRef(callback)
	}
	r.next = o.weakrefs
	o.weakrefs = r
	return r, nil
}

func supportsWeakRefs(t *Type) bool {
	return t.flags&typeFlagHeap != 0 || t.isSubclass(TypeType) || t == FunctionType || t == ModuleType || t == MethodType
}

// clearWeakRefs kills every weak reference to o and returns the ones that
// carry a callback so they can be invoked once o is gone.
func clearWeakRefs(o *Object) []*WeakRef {
	var pending []*WeakRef
	r := o.weakrefs
	o.weakrefs = nil
	for r != nil {
		next := r.next
		r.referent, r.next = nil, nil
		if r.callback != nil {
			IncRef(r.ToObject())
			pending = append(pending, r)
		}
		r = next
	}
	return pending
}

// invokeCallback calls r's callback with r. Failures are reported through
// the unraisable hook.
func (r *WeakRef) invokeCallback(ts *ThreadState) {
	f := ts.callFrame()
	saved := ts.saveErr()
	if _, raised := r.callback.Call(f, Args{r.ToObject()}, nil); raised != nil {
		WriteUnraisableMsg(f, "while calling weakref callback", r.callback)
	}
	ts.restoreErr(saved)
	DecRef(r.ToObject())
}

func weakRefCall(f *Frame, callable *Object, args Args, _ KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "__call__", args); raised != nil {
		return nil, raised
	}
	if o := toWeakRefUnsafe(callable).referent; o != nil {
		return o, nil
	}
	return None, nil
}

func weakRefDealloc(o *Object) {
	r := toWeakRefUnsafe(o)
	if referent := r.referent; referent != nil {
		for p := &referent.weakrefs; *p != nil; p = &(*p).next {
			if *p == r {
				*p = r.next
				break
			}
		}
		r.referent = nil
	}
	XDecRef(r.callback)
	XDecRef(r.hash)
	r.callback, r.hash, r.next = nil, nil, nil
}

func weakRefHash(f *Frame, o *Object) (*Object, *BaseException) {
	r := toWeakRefUnsafe(o)
	if r.hash != nil {
		return r.hash, nil
	}
	if r.referent == nil {
		return nil, f.RaiseType(TypeErrorType, "weak object has gone away")
	}
	hash, raised := Hash(f, r.referent)
	if raised != nil {
		return nil, raised
	}
	r.hash = newRef(hash.ToObject())
	return r.hash, nil
}

func weakRefNew(f *Frame, t *Type, args Args, _ KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionVarArgs(f, "__new__", args, ObjectType); raised != nil {
		return nil, raised
	}
	argc := len(args)
	if argc > 2 {
		format := "__new__ expected at most 2 arguments, got %d"
		return nil, f.RaiseType(TypeErrorType, fmt.Sprintf(format, argc))
	}
	var callback *Object
	if argc > 1 {
		callback = args[1]
	}
	r, raised := NewWeakRef(f, args[0], callback)
	if raised != nil {
		return nil, raised
	}
	return r.ToObject(), nil
}

func weakRefRepr(f *Frame, o *Object) (*Object, *BaseException) {
	r := toWeakRefUnsafe(o)
	s := "dead"
	if p := r.referent; p != nil {
		s = fmt.Sprintf("to '%s' at %p", p.Type().Name(), p)
	}
	return NewStr(fmt.Sprintf("<weakref at %p; %s>", r, s)).ToObject(), nil
}

func initWeakRefType(map[string]*Object) {
	WeakRefType.slots.Call = &callSlot{weakRefCall}
	WeakRefType.slots.Dealloc = &deallocSlot{weakRefDealloc}
	WeakRefType.slots.Hash = &unaryOpSlot{weakRefHash}
	WeakRefType.slots.New = &newSlot{weakRefNew}
	WeakRefType.slots.Repr = &unaryOpSlot{weakRefRepr}
}
