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

// This file contains common code and helpers for sequence types.

import (
	"fmt"
	"math"
	"reflect"
	"strings"
)

const (
	maxSeqLen         = math.MaxInt32
	errResultTooLarge = "result too large"
)

var seqIteratorType = newBasisType("iterator", reflect.TypeOf(seqIterator{}), ObjectType)

// seqCompare compares two element slices lexicographically. The first pair of
// unequal elements decides; otherwise the lengths do.
func seqCompare(f *Frame, elems1, elems2 []*Object, op CompareOp) (*Object, *BaseException) {
	n1, n2 := len(elems1), len(elems2)
	if (op == CompareEq || op == CompareNE) && n1 != n2 {
		return GetBool(op == CompareNE).ToObject(), nil
	}
	for i := 0; i < n1 && i < n2; i++ {
		eq, raised := RichCompareBool(f, elems1[i], elems2[i], CompareEq)
		if raised != nil {
			return nil, raised
		}
		if !eq {
			switch op {
			case CompareEq:
				return False.ToObject(), nil
			case CompareNE:
				return True.ToObject(), nil
			}
			return RichCompare(f, elems1[i], elems2[i], op)
		}
	}
	return intCompare(op).Fn(f, NewInt(int64(n1)).ToObject(), NewInt(int64(n2)).ToObject())
}

func seqCheckedIndex(f *Frame, seqLen, index int, what string) (int, *BaseException) {
	if index < 0 {
		index = seqLen + index
	}
	if index < 0 || index >= seqLen {
		return 0, f.RaiseType(IndexErrorType, what+" index out of range")
	}
	return index, nil
}

// seqForEach iterates over iterable, calling callback with each element until
// callback returns false or raises.
func seqForEach(f *Frame, iterable *Object, callback func(*Object) (bool, *BaseException)) *BaseException {
	switch iterable.typ {
	case ListType:
		l := toListUnsafe(iterable)
		for i := 0; i < len(l.elems); i++ {
			if more, raised := callback(l.elems[i]); raised != nil || !more {
				return raised
			}
		}
		return nil
	case TupleType:
		for _, elem := range toTupleUnsafe(iterable).elems {
			if more, raised := callback(elem); raised != nil || !more {
				return raised
			}
		}
		return nil
	}
	iter, raised := Iter(f, iterable)
	if raised != nil {
		return raised
	}
	for {
		item, raised := Next(f, iter)
		if raised != nil {
			if !raised.isInstance(StopIterationType) {
				return raised
			}
			f.RestoreExc(nil, nil)
			return nil
		}
		if more, raised := callback(item); raised != nil || !more {
			return raised
		}
	}
}

// seqToSlice returns the elements of iterable. The slice is always a copy.
func seqToSlice(f *Frame, iterable *Object) ([]*Object, *BaseException) {
	var elems []*Object
	raised := seqForEach(f, iterable, func(o *Object) (bool, *BaseException) {
		elems = append(elems, o)
		return true, nil
	})
	return elems, raised
}

func seqMul(f *Frame, elems []*Object, n int) ([]*Object, *BaseException) {
	if n <= 0 || len(elems) == 0 {
		return nil, nil
	}
	if len(elems) > maxSeqLen/n {
		return nil, f.RaiseType(OverflowErrorType, errResultTooLarge)
	}
	result := make([]*Object, len(elems)*n)
	for i := range result {
		result[i] = elems[i%len(elems)]
	}
	return result, nil
}

// seqRepr formats elems between open and close. A container that is already
// being printed further up the stack is shown as open + "..." + close.
func seqRepr(f *Frame, o *Object, elems []*Object, open, close string) (*Object, *BaseException) {
	if f.ts.reprEnter(o) {
		return NewStr(open + "..." + close).ToObject(), nil
	}
	defer f.ts.reprLeave(o)
	var buf strings.Builder
	buf.WriteString(open)
	for i, elem := range elems {
		if i > 0 {
			buf.WriteString(", ")
		}
		s, raised := Repr(f, elem)
		if raised != nil {
			return nil, raised
		}
		buf.WriteString(s.Value())
	}
	buf.WriteString(close)
	return NewStr(buf.String()).ToObject(), nil
}

type seqIterator struct {
	Object
	seq   *Object
	index int
}

// newSeqIterator returns an iterator that calls seq's integer __getitem__
// with 0, 1, 2, ... until IndexError.
func newSeqIterator(seq *Object) *Object {
	iter := &seqIterator{Object: objectHeader(seqIteratorType), seq: newRef(seq)}
	return &iter.Object
}

func toSeqIteratorUnsafe(o *Object) *seqIterator {
	return (*seqIterator)(o.toPointer())
}

func seqIteratorDealloc(o *Object) {
	i := toSeqIteratorUnsafe(o)
	XDecRef(i.seq)
	i.seq = nil
}

func seqIteratorIter(f *Frame, o *Object) (*Object, *BaseException) {
	return newRef(o), nil
}

func seqIteratorNext(f *Frame, o *Object) (*Object, *BaseException) {
	i := toSeqIteratorUnsafe(o)
	if i.seq == nil {
		return nil, f.Raise(StopIterationType.ToObject(), nil, nil)
	}
	s := i.seq.typ.slots.Sequence
	if s == nil || s.Item == nil {
		return nil, f.RaiseType(TypeErrorType, fmt.Sprintf("'%s' object is not subscriptable", i.seq.typ.Name()))
	}
	item, raised := s.Item.Fn(f, i.seq, i.index)
	if raised != nil {
		if raised.isInstance(IndexErrorType) || raised.isInstance(StopIterationType) {
			f.RestoreExc(nil, nil)
			DecRef(i.seq)
			i.seq = nil
			return nil, f.Raise(StopIterationType.ToObject(), nil, nil)
		}
		return nil, raised
	}
	i.index++
	return item, nil
}

func initSeqIteratorType(map[string]*Object) {
	seqIteratorType.flags &^= typeFlagBasetype | typeFlagInstantiable
	seqIteratorType.slots.Dealloc = &deallocSlot{seqIteratorDealloc}
	seqIteratorType.slots.Iter = &unaryOpSlot{seqIteratorIter}
	seqIteratorType.slots.Next = &unaryOpSlot{seqIteratorNext}
}
