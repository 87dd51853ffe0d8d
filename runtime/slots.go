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

// slotDesc locates one slot inside typeSlots. index is a field path: one
// element for top level slots, two for slots that live in a capability group.
type slotDesc struct {
	name  string
	index []int
}

var slotDescs = calcSlotDescs()

type slot interface {
	// makeCallable returns a new callable object that forwards calls to
	// the receiving slot with the given slotName. It is used to populate
	// t's type dictionary so that slots are accessible from Python.
	makeCallable(t *Type, slotName string) *Object
	// wrapCallable updates the receiver slot to forward its calls to the
	// given callable. This method is called when a user defined type
	// defines a slot method in Python to override the slot.
	wrapCallable(callable *Object) bool
}

type binaryOpFunc func(*Frame, *Object, *Object) (*Object, *BaseException)

type binaryOpSlot struct {
	Fn binaryOpFunc
}

func (s *binaryOpSlot) makeCallable(t *Type, slotName string) *Object {
	return newBuiltinFunction(slotName, func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
		if raised := checkMethodArgs(f, slotName, args, t, ObjectType); raised != nil {
			return nil, raised
		}
		return s.Fn(f, args[0], args[1])
	}).ToObject()
}

func (s *binaryOpSlot) wrapCallable(callable *Object) bool {
	s.Fn = func(f *Frame, v, w *Object) (*Object, *BaseException) {
		return callable.Call(f, Args{v, w}, nil)
	}
	return true
}

type callSlot struct {
	Fn func(*Frame, *Object, Args, KWArgs) (*Object, *BaseException)
}

func (s *callSlot) makeCallable(t *Type, _ string) *Object {
	return newBuiltinFunction("__call__", func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
		if raised := checkMethodVarArgs(f, "__call__", args, t); raised != nil {
			return nil, raised
		}
		return s.Fn(f, args[0], args[1:], kwargs)
	}).ToObject()
}

func (s *callSlot) wrapCallable(callable *Object) bool {
	s.Fn = func(f *Frame, o *Object, args Args, kwargs KWArgs) (*Object, *BaseException) {
		return callable.Call(f, prependArg(o, args), kwargs)
	}
	return true
}

// deallocSlot releases the references owned by an object whose reference
// count dropped to zero. It has no Python-level spelling.
type deallocSlot struct {
	Fn func(*Object)
}

func (s *deallocSlot) makeCallable(*Type, string) *Object {
	return nil
}

func (s *deallocSlot) wrapCallable(*Object) bool {
	return false
}

type delAttrSlot struct {
	Fn func(*Frame, *Object, *Str) *BaseException
}

func (s *delAttrSlot) makeCallable(t *Type, slotName string) *Object {
	return newBuiltinFunction(slotName, func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
		if raised := checkMethodArgs(f, slotName, args, t, StrType); raised != nil {
			return nil, raised
		}
		if raised := s.Fn(f, args[0], toStrUnsafe(args[1])); raised != nil {
			return nil, raised
		}
		return None, nil
	}).ToObject()
}

func (s *delAttrSlot) wrapCallable(callable *Object) bool {
	s.Fn = func(f *Frame, o *Object, name *Str) *BaseException {
		_, raised := callable.Call(f, Args{o, name.ToObject()}, nil)
		return raised
	}
	return true
}

type deleteSlot struct {
	Fn func(*Frame, *Object, *Object) *BaseException
}

func (s *deleteSlot) makeCallable(t *Type, slotName string) *Object {
	return newBuiltinFunction(slotName, func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
		if raised := checkMethodArgs(f, slotName, args, t, ObjectType); raised != nil {
			return nil, raised
		}
		if raised := s.Fn(f, args[0], args[1]); raised != nil {
			return nil, raised
		}
		return None, nil
	}).ToObject()
}

func (s *deleteSlot) wrapCallable(callable *Object) bool {
	s.Fn = func(f *Frame, desc *Object, inst *Object) *BaseException {
		_, raised := callable.Call(f, Args{desc, inst}, nil)
		return raised
	}
	return true
}

type delItemSlot struct {
	Fn func(*Frame, *Object, *Object) *BaseException
}

func (s *delItemSlot) makeCallable(t *Type, slotName string) *Object {
	return newBuiltinFunction(slotName, func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
		if raised := checkMethodArgs(f, slotName, args, t, ObjectType); raised != nil {
			return nil, raised
		}
		if raised := s.Fn(f, args[0], args[1]); raised != nil {
			return nil, raised
		}
		return None, nil
	}).ToObject()
}

func (s *delItemSlot) wrapCallable(callable *Object) bool {
	s.Fn = func(f *Frame, o *Object, key *Object) *BaseException {
		_, raised := callable.Call(f, Args{o, key}, nil)
		return raised
	}
	return true
}

// finalizerSlot backs __del__. Errors it raises are reported through the
// unraisable hook because there is nobody to propagate them to.
type finalizerSlot struct {
	Fn func(*Frame, *Object) *BaseException
}

func (s *finalizerSlot) makeCallable(t *Type, slotName string) *Object {
	return newBuiltinFunction(slotName, func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
		if raised := checkMethodArgs(f, slotName, args, t); raised != nil {
			return nil, raised
		}
		if raised := s.Fn(f, args[0]); raised != nil {
			return nil, raised
		}
		return None, nil
	}).ToObject()
}

func (s *finalizerSlot) wrapCallable(callable *Object) bool {
	s.Fn = func(f *Frame, o *Object) *BaseException {
		_, raised := callable.Call(f, Args{o}, nil)
		return raised
	}
	return true
}

type getAttributeSlot struct {
	Fn func(*Frame, *Object, *Str) (*Object, *BaseException)
}

func (s *getAttributeSlot) makeCallable(t *Type, slotName string) *Object {
	return newBuiltinFunction(slotName, func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
		if raised := checkMethodArgs(f, slotName, args, t, StrType); raised != nil {
			return nil, raised
		}
		return s.Fn(f, args[0], toStrUnsafe(args[1]))
	}).ToObject()
}

func (s *getAttributeSlot) wrapCallable(callable *Object) bool {
	s.Fn = func(f *Frame, o *Object, name *Str) (*Object, *BaseException) {
		return callable.Call(f, Args{o, name.ToObject()}, nil)
	}
	return true
}

type getSlot struct {
	Fn func(*Frame, *Object, *Object, *Type) (*Object, *BaseException)
}

func (s *getSlot) makeCallable(t *Type, slotName string) *Object {
	return newBuiltinFunction(slotName, func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
		if raised := checkMethodArgs(f, slotName, args, t, ObjectType, TypeType); raised != nil {
			return nil, raised
		}
		inst := args[1]
		if inst == None {
			inst = nil
		}
		return s.Fn(f, args[0], inst, toTypeUnsafe(args[2]))
	}).ToObject()
}

func (s *getSlot) wrapCallable(callable *Object) bool {
	s.Fn = func(f *Frame, desc, inst *Object, owner *Type) (*Object, *BaseException) {
		if inst == nil {
			inst = None
		}
		return callable.Call(f, Args{desc, inst, owner.ToObject()}, nil)
	}
	return true
}

type initSlot struct {
	Fn func(*Frame, *Object, Args, KWArgs) (*Object, *BaseException)
}

func (s *initSlot) makeCallable(t *Type, _ string) *Object {
	return newBuiltinFunction("__init__", func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
		if raised := checkMethodVarArgs(f, "__init__", args, t); raised != nil {
			return nil, raised
		}
		return s.Fn(f, args[0], args[1:], kwargs)
	}).ToObject()
}

func (s *initSlot) wrapCallable(callable *Object) bool {
	s.Fn = func(f *Frame, o *Object, args Args, kwargs KWArgs) (*Object, *BaseException) {
		return callable.Call(f, prependArg(o, args), kwargs)
	}
	return true
}

type newSlot struct {
	Fn func(*Frame, *Type, Args, KWArgs) (*Object, *BaseException)
}

func (s *newSlot) makeCallable(t *Type, _ string) *Object {
	return newStaticMethod(newBuiltinFunction("__new__", func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
		if raised := checkFunctionVarArgs(f, "__new__", args, TypeType); raised != nil {
			return nil, raised
		}
		typeArg := toTypeUnsafe(args[0])
		if !typeArg.isSubclass(t) {
			format := "%[1]s.__new__(%[2]s): %[2]s is not a subtype of %[1]s"
			return nil, f.RaiseType(TypeErrorType, fmt.Sprintf(format, t.Name(), typeArg.Name()))
		}
		return s.Fn(f, typeArg, args[1:], kwargs)
	}).ToObject()).ToObject()
}

func (s *newSlot) wrapCallable(callable *Object) bool {
	s.Fn = func(f *Frame, t *Type, args Args, kwargs KWArgs) (*Object, *BaseException) {
		return callable.Call(f, prependArg(t.ToObject(), args), kwargs)
	}
	return true
}

// seqItemSlot is the integer indexed half of __getitem__. A type that has it
// can be iterated even without __iter__.
type seqItemSlot struct {
	Fn func(*Frame, *Object, int) (*Object, *BaseException)
}

func (s *seqItemSlot) makeCallable(t *Type, slotName string) *Object {
	return newBuiltinFunction(slotName, func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
		if raised := checkMethodArgs(f, slotName, args, t, ObjectType); raised != nil {
			return nil, raised
		}
		i, raised := IndexInt(f, args[1])
		if raised != nil {
			return nil, raised
		}
		return s.Fn(f, args[0], i)
	}).ToObject()
}

func (s *seqItemSlot) wrapCallable(callable *Object) bool {
	s.Fn = func(f *Frame, o *Object, i int) (*Object, *BaseException) {
		return callable.Call(f, Args{o, NewInt(int64(i)).ToObject()}, nil)
	}
	return true
}

type setAttrSlot struct {
	Fn func(*Frame, *Object, *Str, *Object) *BaseException
}

func (s *setAttrSlot) makeCallable(t *Type, slotName string) *Object {
	return newBuiltinFunction(slotName, func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
		if raised := checkMethodArgs(f, slotName, args, t, StrType, ObjectType); raised != nil {
			return nil, raised
		}
		if raised := s.Fn(f, args[0], toStrUnsafe(args[1]), args[2]); raised != nil {
			return nil, raised
		}
		return None, nil
	}).ToObject()
}

func (s *setAttrSlot) wrapCallable(callable *Object) bool {
	s.Fn = func(f *Frame, o *Object, name *Str, value *Object) *BaseException {
		_, raised := callable.Call(f, Args{o, name.ToObject(), value}, nil)
		return raised
	}
	return true
}

type setItemSlot struct {
	Fn func(*Frame, *Object, *Object, *Object) *BaseException
}

func (s *setItemSlot) makeCallable(t *Type, slotName string) *Object {
	return newBuiltinFunction(slotName, func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
		if raised := checkMethodArgs(f, slotName, args, t, ObjectType, ObjectType); raised != nil {
			return nil, raised
		}
		if raised := s.Fn(f, args[0], args[1], args[2]); raised != nil {
			return nil, raised
		}
		return None, nil
	}).ToObject()
}

func (s *setItemSlot) wrapCallable(callable *Object) bool {
	s.Fn = func(f *Frame, o *Object, key *Object, value *Object) *BaseException {
		_, raised := callable.Call(f, Args{o, key, value}, nil)
		return raised
	}
	return true
}

type setSlot struct {
	Fn func(*Frame, *Object, *Object, *Object) *BaseException
}

func (s *setSlot) makeCallable(t *Type, slotName string) *Object {
	return newBuiltinFunction(slotName, func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
		if raised := checkMethodArgs(f, slotName, args, t, ObjectType, ObjectType); raised != nil {
			return nil, raised
		}
		if raised := s.Fn(f, args[0], args[1], args[2]); raised != nil {
			return nil, raised
		}
		return None, nil
	}).ToObject()
}

func (s *setSlot) wrapCallable(callable *Object) bool {
	s.Fn = func(f *Frame, desc, inst, value *Object) *BaseException {
		_, raised := callable.Call(f, Args{desc, inst, value}, nil)
		return raised
	}
	return true
}

type unaryOpSlot struct {
	Fn func(*Frame, *Object) (*Object, *BaseException)
}

func (s *unaryOpSlot) makeCallable(t *Type, slotName string) *Object {
	return newBuiltinFunction(slotName, func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
		if raised := checkMethodArgs(f, slotName, args, t); raised != nil {
			return nil, raised
		}
		return s.Fn(f, args[0])
	}).ToObject()
}

func (s *unaryOpSlot) wrapCallable(callable *Object) bool {
	s.Fn = func(f *Frame, o *Object) (*Object, *BaseException) {
		return callable.Call(f, Args{o}, nil)
	}
	return true
}

// numberSlots is the number protocol. Reflected operators carry an R prefix
// and in-place operators an I prefix.
type numberSlots struct {
	Abs       *unaryOpSlot  `slot:"__abs__"`
	Add       *binaryOpSlot `slot:"__add__"`
	And       *binaryOpSlot `slot:"__and__"`
	Bool      *unaryOpSlot  `slot:"__bool__"`
	Float     *unaryOpSlot  `slot:"__float__"`
	FloorDiv  *binaryOpSlot `slot:"__floordiv__"`
	IAdd      *binaryOpSlot `slot:"__iadd__"`
	IAnd      *binaryOpSlot `slot:"__iand__"`
	IFloorDiv *binaryOpSlot `slot:"__ifloordiv__"`
	ILShift   *binaryOpSlot `slot:"__ilshift__"`
	IMod      *binaryOpSlot `slot:"__imod__"`
	IMul      *binaryOpSlot `slot:"__imul__"`
	Index     *unaryOpSlot  `slot:"__index__"`
	Int       *unaryOpSlot  `slot:"__int__"`
	Invert    *unaryOpSlot  `slot:"__invert__"`
	IOr       *binaryOpSlot `slot:"__ior__"`
	IPow      *binaryOpSlot `slot:"__ipow__"`
	IRShift   *binaryOpSlot `slot:"__irshift__"`
	ISub      *binaryOpSlot `slot:"__isub__"`
	ITrueDiv  *binaryOpSlot `slot:"__itruediv__"`
	IXor      *binaryOpSlot `slot:"__ixor__"`
	LShift    *binaryOpSlot `slot:"__lshift__"`
	Mod       *binaryOpSlot `slot:"__mod__"`
	Mul       *binaryOpSlot `slot:"__mul__"`
	Neg       *unaryOpSlot  `slot:"__neg__"`
	Or        *binaryOpSlot `slot:"__or__"`
	Pos       *unaryOpSlot  `slot:"__pos__"`
	Pow       *binaryOpSlot `slot:"__pow__"`
	RAdd      *binaryOpSlot `slot:"__radd__"`
	RAnd      *binaryOpSlot `slot:"__rand__"`
	RFloorDiv *binaryOpSlot `slot:"__rfloordiv__"`
	RLShift   *binaryOpSlot `slot:"__rlshift__"`
	RMod      *binaryOpSlot `slot:"__rmod__"`
	RMul      *binaryOpSlot `slot:"__rmul__"`
	ROr       *binaryOpSlot `slot:"__ror__"`
	RPow      *binaryOpSlot `slot:"__rpow__"`
	RRShift   *binaryOpSlot `slot:"__rrshift__"`
	RShift    *binaryOpSlot `slot:"__rshift__"`
	RSub      *binaryOpSlot `slot:"__rsub__"`
	RTrueDiv  *binaryOpSlot `slot:"__rtruediv__"`
	RXor      *binaryOpSlot `slot:"__rxor__"`
	Sub       *binaryOpSlot `slot:"__sub__"`
	TrueDiv   *binaryOpSlot `slot:"__truediv__"`
	Xor       *binaryOpSlot `slot:"__xor__"`
}

// sequenceSlots is the integer indexed container protocol.
type sequenceSlots struct {
	Contains *binaryOpSlot `slot:"__contains__"`
	Item     *seqItemSlot  `slot:"__getitem__"`
	Len      *unaryOpSlot  `slot:"__len__"`
}

// mappingSlots is the keyed container protocol.
type mappingSlots struct {
	DelItem   *delItemSlot  `slot:"__delitem__"`
	Len       *unaryOpSlot  `slot:"__len__"`
	SetItem   *setItemSlot  `slot:"__setitem__"`
	Subscript *binaryOpSlot `slot:"__getitem__"`
}

// typeSlots hold a type's special methods such as __eq__. During type
// initialization, any field that is not set for that type will be inherited
// according to the type's MRO. Therefore, any given field will be nil only if
// that method is not defined for the type nor any of its super classes. Each
// slot is expected to be a pointer to a struct with a single function field.
// The wrapper structs permit comparison of like slots which is occasionally
// necessary to determine whether a function has been overridden by a subclass.
//
// The Number, Sequence and Mapping groups are capability tables: a type has
// the capability iff the group pointer is non-nil once the type is ready.
type typeSlots struct {
	Call          *callSlot         `slot:"__call__"`
	Dealloc       *deallocSlot      `slot:""`
	Del           *finalizerSlot    `slot:"__del__"`
	DelAttr       *delAttrSlot      `slot:"__delattr__"`
	Delete        *deleteSlot       `slot:"__delete__"`
	Eq            *binaryOpSlot     `slot:"__eq__"`
	GE            *binaryOpSlot     `slot:"__ge__"`
	Get           *getSlot          `slot:"__get__"`
	GetAttr       *getAttributeSlot `slot:"__getattr__"`
	GetAttribute  *getAttributeSlot `slot:"__getattribute__"`
	GT            *binaryOpSlot     `slot:"__gt__"`
	Hash          *unaryOpSlot      `slot:"__hash__"`
	Init          *initSlot         `slot:"__init__"`
	InstanceCheck *binaryOpSlot     `slot:"__instancecheck__"`
	Iter          *unaryOpSlot      `slot:"__iter__"`
	LE            *binaryOpSlot     `slot:"__le__"`
	LT            *binaryOpSlot     `slot:"__lt__"`
	Mapping       *mappingSlots     `group:"mapping"`
	NE            *binaryOpSlot     `slot:"__ne__"`
	New           *newSlot          `slot:"__new__"`
	Next          *unaryOpSlot      `slot:"__next__"`
	Number        *numberSlots      `group:"number"`
	Repr          *unaryOpSlot      `slot:"__repr__"`
	Sequence      *sequenceSlots    `group:"sequence"`
	Set           *setSlot          `slot:"__set__"`
	SetAttr       *setAttrSlot      `slot:"__setattr__"`
	Str           *unaryOpSlot      `slot:"__str__"`
	SubclassCheck *binaryOpSlot     `slot:"__subclasscheck__"`
}

func calcSlotDescs() []slotDesc {
	var descs []slotDesc
	slotsType := reflect.TypeOf(typeSlots{})
	for i := 0; i < slotsType.NumField(); i++ {
		field := slotsType.Field(i)
		if _, ok := field.Tag.Lookup("group"); ok {
			group := field.Type.Elem()
			for j := 0; j < group.NumField(); j++ {
				descs = append(descs, slotDesc{group.Field(j).Tag.Get("slot"), []int{i, j}})
			}
			continue
		}
		descs = append(descs, slotDesc{field.Tag.Get("slot"), []int{i}})
	}
	return descs
}

// field returns the slot field at index. For slots inside a capability group
// the group is allocated when alloc is true; otherwise an invalid Value is
// returned when the group is absent.
func (s *typeSlots) field(index []int, alloc bool) reflect.Value {
	v := reflect.ValueOf(s).Elem().Field(index[0])
	if len(index) == 1 {
		return v
	}
	if v.IsNil() {
		if !alloc {
			return reflect.Value{}
		}
		v.Set(reflect.New(v.Type().Elem()))
	}
	return v.Elem().Field(index[1])
}

// number returns t's number protocol table, allocating it if necessary. It is
// meant for builtin type initialization.
func (s *typeSlots) number() *numberSlots {
	if s.Number == nil {
		s.Number = &numberSlots{}
	}
	return s.Number
}

func (s *typeSlots) sequence() *sequenceSlots {
	if s.Sequence == nil {
		s.Sequence = &sequenceSlots{}
	}
	return s.Sequence
}

func (s *typeSlots) mapping() *mappingSlots {
	if s.Mapping == nil {
		s.Mapping = &mappingSlots{}
	}
	return s.Mapping
}

func prependArg(o *Object, args Args) Args {
	callArgs := make(Args, len(args)+1)
	callArgs[0] = o
	copy(callArgs[1:], args)
	return callArgs
}
