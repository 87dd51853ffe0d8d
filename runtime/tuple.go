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
	"reflect"
)

// Tuple represents Python 'tuple' objects.
//
// Tuples are thread safe by virtue of being immutable. A tuple owns a
// reference to each of its elements.
type Tuple struct {
	Object
	elems []*Object
}

// NewTuple returns a tuple containing the given elements. A reference to each
// element is taken.
func NewTuple(elems ...*Object) *Tuple {
	if len(elems) == 0 {
		IncRef(emptyTuple.ToObject())
		return emptyTuple
	}
	for _, e := range elems {
		IncRef(e)
	}
	return &Tuple{Object: objectHeader(TupleType), elems: elems}
}

// NewTuple0 returns the empty tuple. This is mostly provided for the
// convenience of the compiler.
func NewTuple0() *Tuple { return NewTuple() }

// NewTuple1 returns a tuple of length 1 containing just elem0.
func NewTuple1(elem0 *Object) *Tuple {
	return NewTuple(elem0)
}

// NewTuple2 returns a tuple of length 2 containing just elem0 and elem1.
func NewTuple2(elem0, elem1 *Object) *Tuple {
	return NewTuple(elem0, elem1)
}

func toTupleUnsafe(o *Object) *Tuple {
	return (*Tuple)(o.toPointer())
}

// GetItem returns the i'th element of t. Bounds are unchecked and therefore
// this method will panic unless 0 <= i < t.Len().
func (t *Tuple) GetItem(i int) *Object {
	return t.elems[i]
}

// Len returns the number of elements in t.
func (t *Tuple) Len() int {
	return len(t.elems)
}

// ToObject upcasts t to an Object.
func (t *Tuple) ToObject() *Object {
	return &t.Object
}

// TupleType is the object representing the Python 'tuple' type.
var TupleType = newBasisType("tuple", reflect.TypeOf(Tuple{}), ObjectType)

var emptyTuple = &Tuple{Object: Object{typ: TupleType, refcnt: 1}}

func tupleAdd(f *Frame, v, w *Object) (*Object, *BaseException) {
	if !w.isInstance(TupleType) {
		return NotImplemented, nil
	}
	elems1, elems2 := toTupleUnsafe(v).elems, toTupleUnsafe(w).elems
	elems := make([]*Object, 0, len(elems1)+len(elems2))
	elems = append(append(elems, elems1...), elems2...)
	return NewTuple(elems...).ToObject(), nil
}

func tupleCompare(op CompareOp) *binaryOpSlot {
	return &binaryOpSlot{func(f *Frame, v, w *Object) (*Object, *BaseException) {
		if !w.isInstance(TupleType) {
			return NotImplemented, nil
		}
		return seqCompare(f, toTupleUnsafe(v).elems, toTupleUnsafe(w).elems, op)
	}}
}

func tupleContains(f *Frame, t, v *Object) (*Object, *BaseException) {
	for _, elem := range toTupleUnsafe(t).elems {
		eq, raised := RichCompareBool(f, elem, v, CompareEq)
		if raised != nil {
			return nil, raised
		}
		if eq {
			return True.ToObject(), nil
		}
	}
	return False.ToObject(), nil
}

func tupleDealloc(o *Object) {
	t := toTupleUnsafe(o)
	for _, elem := range t.elems {
		DecRef(elem)
	}
	t.elems = nil
}

func tupleHash(f *Frame, o *Object) (*Object, *BaseException) {
	t := toTupleUnsafe(o)
	l := len(t.elems)
	result := int64(0x345678)
	multiplier := int64(1000003)
	for _, elem := range t.elems {
		h, raised := Hash(f, elem)
		if raised != nil {
			return nil, raised
		}
		result = (result ^ h.Value()) * multiplier
		multiplier += int64(82520 + l + l)
	}
	result += 97531
	if result == -1 {
		result = -2
	}
	return NewInt(result).ToObject(), nil
}

func tupleItem(f *Frame, o *Object, i int) (*Object, *BaseException) {
	t := toTupleUnsafe(o)
	i, raised := seqCheckedIndex(f, len(t.elems), i, "tuple")
	if raised != nil {
		return nil, raised
	}
	return t.elems[i], nil
}

func tupleLen(f *Frame, o *Object) (*Object, *BaseException) {
	return NewInt(int64(len(toTupleUnsafe(o).elems))).ToObject(), nil
}

func tupleMul(f *Frame, v, w *Object) (*Object, *BaseException) {
	if !hasIndex(w) {
		return NotImplemented, nil
	}
	n, raised := IndexInt(f, w)
	if raised != nil {
		return nil, raised
	}
	elems, raised := seqMul(f, toTupleUnsafe(v).elems, n)
	if raised != nil {
		return nil, raised
	}
	return NewTuple(elems...).ToObject(), nil
}

func tupleNew(f *Frame, t *Type, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if len(kwargs) != 0 || len(args) > 1 {
		return nil, f.RaiseType(TypeErrorType, "tuple expected at most 1 argument")
	}
	var elems []*Object
	if len(args) == 1 {
		if t == TupleType && args[0].typ == TupleType {
			return newRef(args[0]), nil
		}
		var raised *BaseException
		if elems, raised = seqToSlice(f, args[0]); raised != nil {
			return nil, raised
		}
	}
	if t == TupleType {
		return NewTuple(elems...).ToObject(), nil
	}
	tuple := toTupleUnsafe(newObject(t))
	for _, e := range elems {
		IncRef(e)
	}
	tuple.elems = elems
	return tuple.ToObject(), nil
}

func tupleRepr(f *Frame, o *Object) (*Object, *BaseException) {
	t := toTupleUnsafe(o)
	if len(t.elems) == 1 {
		return seqRepr(f, o, t.elems, "(", ",)")
	}
	return seqRepr(f, o, t.elems, "(", ")")
}

func initTupleType(dict map[string]*Object) {
	TupleType.slots.Dealloc = &deallocSlot{tupleDealloc}
	TupleType.slots.Eq = tupleCompare(CompareEq)
	TupleType.slots.GE = tupleCompare(CompareGE)
	TupleType.slots.GT = tupleCompare(CompareGT)
	TupleType.slots.Hash = &unaryOpSlot{tupleHash}
	TupleType.slots.LE = tupleCompare(CompareLE)
	TupleType.slots.LT = tupleCompare(CompareLT)
	TupleType.slots.NE = tupleCompare(CompareNE)
	TupleType.slots.New = &newSlot{tupleNew}
	TupleType.slots.Repr = &unaryOpSlot{tupleRepr}
	n := TupleType.slots.number()
	n.Add = &binaryOpSlot{tupleAdd}
	n.Mul = &binaryOpSlot{tupleMul}
	n.RMul = &binaryOpSlot{tupleMul}
	s := TupleType.slots.sequence()
	s.Contains = &binaryOpSlot{tupleContains}
	s.Item = &seqItemSlot{tupleItem}
	s.Len = &unaryOpSlot{tupleLen}
}
