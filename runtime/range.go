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
	// EnumerateType is the object representing the Python 'enumerate' type.
	EnumerateType = newBasisType("enumerate", reflect.TypeOf(enumerate{}), ObjectType)
	// rangeIteratorType is the object representing the Python
	// 'range_iterator' type.
	rangeIteratorType = newBasisType("range_iterator", reflect.TypeOf(rangeIterator{}), ObjectType)
	// RangeType is the object representing the Python 'range' type.
	RangeType = newBasisType("range", reflect.TypeOf(Range{}), ObjectType)
)

type enumerate struct {
	Object
	index int64
	// iter is nil once the underlying iterator is exhausted.
	iter *Object
}

func toEnumerateUnsafe(o *Object) *enumerate {
	return (*enumerate)(o.toPointer())
}

// ToObject upcasts e to an Object.
func (e *enumerate) ToObject() *Object {
	return &e.Object
}

func enumerateDealloc(o *Object) {
	e := toEnumerateUnsafe(o)
	XDecRef(e.iter)
	e.iter = nil
}

func enumerateIter(f *Frame, o *Object) (*Object, *BaseException) {
	return newRef(o), nil
}

var enumerateParams = newParamSpecKW("enumerate", []Param{
	{Name: "iterable"},
	{Name: "start", Def: NewInt(0).ToObject()},
}, false, nil, false)

func enumerateNew(f *Frame, t *Type, args Args, kwargs KWArgs) (*Object, *BaseException) {
	validated := make([]*Object, enumerateParams.Count)
	if raised := enumerateParams.Validate(f, validated, args, kwargs); raised != nil {
		return nil, raised
	}
	start, raised := Index(f, validated[1])
	if raised != nil {
		return nil, raised
	}
	iter, raised := Iter(f, validated[0])
	if raised != nil {
		return nil, raised
	}
	e := toEnumerateUnsafe(newObject(t))
	e.index = start.Value()
	e.iter = iter
	return e.ToObject(), nil
}

func enumerateNext(f *Frame, o *Object) (*Object, *BaseException) {
	e := toEnumerateUnsafe(o)
	if e.iter == nil {
		return nil, f.Raise(StopIterationType.ToObject(), nil, nil)
	}
	item, raised := Next(f, e.iter)
	if raised != nil {
		if raised.isInstance(StopIterationType) {
			DecRef(e.iter)
			e.iter = nil
		}
		return nil, raised
	}
	i := NewInt(e.index)
	e.index++
	t := NewTuple2(i.ToObject(), item)
	DecRef(i.ToObject())
	return t.ToObject(), nil
}

func initEnumerateType(map[string]*Object) {
	EnumerateType.slots.Dealloc = &deallocSlot{enumerateDealloc}
	EnumerateType.slots.Iter = &unaryOpSlot{enumerateIter}
	EnumerateType.slots.Next = &unaryOpSlot{enumerateNext}
	EnumerateType.slots.New = &newSlot{enumerateNew}
}

type rangeIterator struct {
	Object
	next      int64
	remaining int64
	step      int64
}

func toRangeIteratorUnsafe(o *Object) *rangeIterator {
	return (*rangeIterator)(o.toPointer())
}

func rangeIteratorIter(f *Frame, o *Object) (*Object, *BaseException) {
	return newRef(o), nil
}

func rangeIteratorNext(f *Frame, o *Object) (*Object, *BaseException) {
	iter := toRangeIteratorUnsafe(o)
	if iter.remaining <= 0 {
		return nil, f.Raise(StopIterationType.ToObject(), nil, nil)
	}
	ret := NewInt(iter.next)
	iter.next += iter.step
	iter.remaining--
	return ret.ToObject(), nil
}

func initRangeIteratorType(map[string]*Object) {
	rangeIteratorType.flags &^= typeFlagInstantiable | typeFlagBasetype
	rangeIteratorType.slots.Iter = &unaryOpSlot{rangeIteratorIter}
	rangeIteratorType.slots.Next = &unaryOpSlot{rangeIteratorNext}
}

// Range represents Python 'range' objects: an immutable arithmetic
// progression of ints.
type Range struct {
	Object
	start, stop, step int64
	length            int64
}

func toRangeUnsafe(o *Object) *Range {
	return (*Range)(o.toPointer())
}

// ToObject upcasts r to an Object.
func (r *Range) ToObject() *Object {
	return &r.Object
}

// Len returns the number of values in r.
func (r *Range) Len() int64 {
	return r.length
}

func rangeLength(start, stop, step int64) int64 {
	switch {
	case step > 0 && start < stop:
		return 1 + (stop-1-start)/step
	case step < 0 && start > stop:
		return 1 + (start-1-stop)/(-step)
	}
	return 0
}

func rangeContains(f *Frame, o, v *Object) (*Object, *BaseException) {
	r := toRangeUnsafe(o)
	if !v.isInstance(IntType) {
		found := false
		raised := seqForEach(f, o, func(item *Object) (bool, *BaseException) {
			eq, raised := RichCompareBool(f, item, v, CompareEq)
			found = eq
			return !eq, raised
		})
		if raised != nil {
			return nil, raised
		}
		return GetBool(found).ToObject(), nil
	}
	i := toIntUnsafe(v).Value()
	in := false
	if r.step > 0 {
		in = i >= r.start && i < r.stop
	} else {
		in = i <= r.start && i > r.stop
	}
	return GetBool(in && (i-r.start)%r.step == 0).ToObject(), nil
}

func rangeEq(f *Frame, v, w *Object) (*Object, *BaseException) {
	if !w.isInstance(RangeType) {
		return NotImplemented, nil
	}
	r1, r2 := toRangeUnsafe(v), toRangeUnsafe(w)
	eq := r1.length == r2.length
	if eq && r1.length > 0 {
		eq = r1.start == r2.start && (r1.length == 1 || r1.step == r2.step)
	}
	return GetBool(eq).ToObject(), nil
}

func rangeItem(f *Frame, o *Object, i int) (*Object, *BaseException) {
	r := toRangeUnsafe(o)
	n, raised := seqCheckedIndex(f, int(r.length), i, "range object")
	if raised != nil {
		return nil, raised
	}
	return NewInt(r.start + int64(n)*r.step).ToObject(), nil
}

func rangeIter(f *Frame, o *Object) (*Object, *BaseException) {
	r := toRangeUnsafe(o)
	iter := &rangeIterator{Object: objectHeader(rangeIteratorType), next: r.start, remaining: r.length, step: r.step}
	return iter.ToObject(), nil
}

func (iter *rangeIterator) ToObject() *Object {
	return &iter.Object
}

func rangeLen(f *Frame, o *Object) (*Object, *BaseException) {
	return NewInt(toRangeUnsafe(o).length).ToObject(), nil
}

func rangeNew(f *Frame, _ *Type, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if len(kwargs) != 0 {
		return nil, f.RaiseType(TypeErrorType, "range() takes no keyword arguments")
	}
	argc := len(args)
	if argc < 1 || argc > 3 {
		format := "range expected at least 1 argument, got %d"
		if argc > 3 {
			format = "range expected at most 3 arguments, got %d"
		}
		return nil, f.RaiseType(TypeErrorType, fmt.Sprintf(format, argc))
	}
	values := [3]int64{0, 0, 1}
	for i, arg := range args {
		v, raised := Index(f, arg)
		if raised != nil {
			return nil, raised
		}
		values[i] = v.Value()
	}
	start, stop, step := values[0], values[1], values[2]
	if argc == 1 {
		start, stop = 0, values[0]
	}
	if step == 0 {
		return nil, f.RaiseType(ValueErrorType, "range() arg 3 must not be zero")
	}
	r := &Range{Object: objectHeader(RangeType), start: start, stop: stop, step: step}
	r.length = rangeLength(start, stop, step)
	return r.ToObject(), nil
}

func rangeRepr(_ *Frame, o *Object) (*Object, *BaseException) {
	r := toRangeUnsafe(o)
	s := fmt.Sprintf("range(%d, %d)", r.start, r.stop)
	if r.step != 1 {
		s = fmt.Sprintf("range(%d, %d, %d)", r.start, r.stop, r.step)
	}
	return NewStr(s).ToObject(), nil
}

func rangeGetStart(f *Frame, o *Object) (*Object, *BaseException) {
	return NewInt(toRangeUnsafe(o).start).ToObject(), nil
}

func rangeGetStop(f *Frame, o *Object) (*Object, *BaseException) {
	return NewInt(toRangeUnsafe(o).stop).ToObject(), nil
}

func rangeGetStep(f *Frame, o *Object) (*Object, *BaseException) {
	return NewInt(toRangeUnsafe(o).step).ToObject(), nil
}

func initRangeType(dict map[string]*Object) {
	RangeType.flags &^= typeFlagBasetype
	RangeType.slots.Eq = &binaryOpSlot{rangeEq}
	RangeType.slots.Iter = &unaryOpSlot{rangeIter}
	RangeType.slots.New = &newSlot{rangeNew}
	RangeType.slots.Repr = &unaryOpSlot{rangeRepr}
	RangeType.slots.Sequence = &sequenceSlots{
		Contains: &binaryOpSlot{rangeContains},
		Item:     &seqItemSlot{rangeItem},
		Len:      &unaryOpSlot{rangeLen},
	}
	dict["start"] = newGetSetDescriptor(RangeType, "start", rangeGetStart, nil)
	dict["stop"] = newGetSetDescriptor(RangeType, "stop", rangeGetStop, nil)
	dict["step"] = newGetSetDescriptor(RangeType, "step", rangeGetStep, nil)
}
