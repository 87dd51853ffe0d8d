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
	"sort"
)

// List represents Python 'list' objects. A list owns a reference to each of
// its elements.
//
// Lists rely on the single active thread discipline and carry no lock.
type List struct {
	Object
	elems []*Object
}

// NewList returns a list containing the given elements. A reference to each
// element is taken.
func NewList(elems ...*Object) *List {
	l := &List{Object: objectHeader(ListType), elems: make([]*Object, len(elems))}
	for i, e := range elems {
		l.elems[i] = newRef(e)
	}
	return l
}

func toListUnsafe(o *Object) *List {
	return (*List)(o.toPointer())
}

// ToObject upcasts l to an Object.
func (l *List) ToObject() *Object {
	return &l.Object
}

// Len returns the number of elements in l.
func (l *List) Len() int {
	return len(l.elems)
}

// Append adds o to the end of l.
func (l *List) Append(o *Object) {
	l.elems = append(l.elems, newRef(o))
}

// GetItem returns the index'th element of l as a borrowed reference.
func (l *List) GetItem(f *Frame, index int) (*Object, *BaseException) {
	i, raised := seqCheckedIndex(f, len(l.elems), index, "list")
	if raised != nil {
		return nil, raised
	}
	return l.elems[i], nil
}

// SetItem sets the index'th element of l to value.
func (l *List) SetItem(f *Frame, index int, value *Object) *BaseException {
	i, raised := seqCheckedIndex(f, len(l.elems), index, "list assignment")
	if raised != nil {
		return raised
	}
	setRef(&l.elems[i], value)
	return nil
}

// DelItem removes the index'th element of l.
func (l *List) DelItem(f *Frame, index int) *BaseException {
	i, raised := seqCheckedIndex(f, len(l.elems), index, "list assignment")
	if raised != nil {
		return raised
	}
	old := l.elems[i]
	l.elems = append(l.elems[:i], l.elems[i+1:]...)
	DecRef(old)
	return nil
}

// Insert inserts o before the index'th element of l, clamping index to the
// list bounds.
func (l *List) Insert(index int, o *Object) {
	n := len(l.elems)
	if index < 0 {
		index += n
		if index < 0 {
			index = 0
		}
	}
	if index > n {
		index = n
	}
	l.elems = append(l.elems, nil)
	copy(l.elems[index+1:], l.elems[index:])
	l.elems[index] = newRef(o)
}

// Elems returns a copy of l's elements.
func (l *List) Elems() []*Object {
	elems := make([]*Object, len(l.elems))
	copy(elems, l.elems)
	return elems
}

// ListType is the object representing the Python 'list' type.
var ListType = newBasisType("list", reflect.TypeOf(List{}), ObjectType)

func listAdd(f *Frame, v, w *Object) (*Object, *BaseException) {
	if !w.isInstance(ListType) {
		return NotImplemented, nil
	}
	elems1, elems2 := toListUnsafe(v).elems, toListUnsafe(w).elems
	elems := make([]*Object, 0, len(elems1)+len(elems2))
	return NewList(append(append(elems, elems1...), elems2...)...).ToObject(), nil
}

func listIAdd(f *Frame, v, w *Object) (*Object, *BaseException) {
	if raised := listExtendFrom(f, toListUnsafe(v), w); raised != nil {
		return nil, raised
	}
	return newRef(v), nil
}

func listExtendFrom(f *Frame, l *List, iterable *Object) *BaseException {
	elems, raised := seqToSlice(f, iterable)
	if raised != nil {
		return raised
	}
	for _, e := range elems {
		l.Append(e)
	}
	return nil
}

func listCompare(op CompareOp) *binaryOpSlot {
	return &binaryOpSlot{func(f *Frame, v, w *Object) (*Object, *BaseException) {
		if !w.isInstance(ListType) {
			return NotImplemented, nil
		}
		return seqCompare(f, toListUnsafe(v).Elems(), toListUnsafe(w).Elems(), op)
	}}
}

func listContains(f *Frame, l, v *Object) (*Object, *BaseException) {
	elems := toListUnsafe(l).Elems()
	for _, elem := range elems {
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

func listDealloc(o *Object) {
	l := toListUnsafe(o)
	elems := l.elems
	l.elems = nil
	for _, elem := range elems {
		DecRef(elem)
	}
}

func listDelItem(f *Frame, o, key *Object) *BaseException {
	i, raised := listIndexArg(f, key)
	if raised != nil {
		return raised
	}
	return toListUnsafe(o).DelItem(f, i)
}

func listIndexArg(f *Frame, key *Object) (int, *BaseException) {
	if !hasIndex(key) {
		format := "list indices must be integers, not %s"
		return 0, f.RaiseType(TypeErrorType, fmt.Sprintf(format, key.typ.Name()))
	}
	return IndexInt(f, key)
}

func listItem(f *Frame, o *Object, i int) (*Object, *BaseException) {
	return toListUnsafe(o).GetItem(f, i)
}

func listIter(f *Frame, o *Object) (*Object, *BaseException) {
	return newListIterator(toListUnsafe(o)), nil
}

func listLen(f *Frame, o *Object) (*Object, *BaseException) {
	return NewInt(int64(len(toListUnsafe(o).elems))).ToObject(), nil
}

func listMul(f *Frame, v, w *Object) (*Object, *BaseException) {
	if !hasIndex(w) {
		return NotImplemented, nil
	}
	n, raised := IndexInt(f, w)
	if raised != nil {
		return nil, raised
	}
	elems, raised := seqMul(f, toListUnsafe(v).elems, n)
	if raised != nil {
		return nil, raised
	}
	return NewList(elems...).ToObject(), nil
}

func listNew(f *Frame, t *Type, args Args, kwargs KWArgs) (*Object, *BaseException) {
	l := toListUnsafe(newObject(t))
	return l.ToObject(), nil
}

func listInit(f *Frame, o *Object, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if len(kwargs) != 0 || len(args) > 1 {
		return nil, f.RaiseType(TypeErrorType, "list expected at most 1 argument")
	}
	l := toListUnsafe(o)
	old := l.elems
	l.elems = nil
	for _, e := range old {
		DecRef(e)
	}
	if len(args) == 1 {
		if raised := listExtendFrom(f, l, args[0]); raised != nil {
			return nil, raised
		}
	}
	return None, nil
}

func listRepr(f *Frame, o *Object) (*Object, *BaseException) {
	return seqRepr(f, o, toListUnsafe(o).Elems(), "[", "]")
}

func listSetItem(f *Frame, o, key, value *Object) *BaseException {
	i, raised := listIndexArg(f, key)
	if raised != nil {
		return raised
	}
	return toListUnsafe(o).SetItem(f, i, value)
}

func listSubscript(f *Frame, o, key *Object) (*Object, *BaseException) {
	i, raised := listIndexArg(f, key)
	if raised != nil {
		return nil, raised
	}
	return toListUnsafe(o).GetItem(f, i)
}

func listAppend(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkMethodArgs(f, "append", args, ListType, ObjectType); raised != nil {
		return nil, raised
	}
	toListUnsafe(args[0]).Append(args[1])
	return None, nil
}

func listExtend(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkMethodArgs(f, "extend", args, ListType, ObjectType); raised != nil {
		return nil, raised
	}
	if raised := listExtendFrom(f, toListUnsafe(args[0]), args[1]); raised != nil {
		return nil, raised
	}
	return None, nil
}

func listInsert(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkMethodArgs(f, "insert", args, ListType, ObjectType, ObjectType); raised != nil {
		return nil, raised
	}
	i, raised := IndexInt(f, args[1])
	if raised != nil {
		return nil, raised
	}
	toListUnsafe(args[0]).Insert(i, args[2])
	return None, nil
}

func listPop(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkMethodVarArgs(f, "pop", args, ListType); raised != nil {
		return nil, raised
	}
	l := toListUnsafe(args[0])
	i := -1
	if len(args) > 1 {
		var raised *BaseException
		if i, raised = IndexInt(f, args[1]); raised != nil {
			return nil, raised
		}
	}
	if len(l.elems) == 0 {
		return nil, f.RaiseType(IndexErrorType, "pop from empty list")
	}
	i, raised := seqCheckedIndex(f, len(l.elems), i, "pop")
	if raised != nil {
		return nil, raised
	}
	item := l.elems[i]
	l.elems = append(l.elems[:i], l.elems[i+1:]...)
	// The list's reference passes to the caller.
	return item, nil
}

func listIndex(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkMethodArgs(f, "index", args, ListType, ObjectType); raised != nil {
		return nil, raised
	}
	for i, elem := range toListUnsafe(args[0]).Elems() {
		eq, raised := RichCompareBool(f, elem, args[1], CompareEq)
		if raised != nil {
			return nil, raised
		}
		if eq {
			return NewInt(int64(i)).ToObject(), nil
		}
	}
	return nil, f.RaiseType(ValueErrorType, "list.index(x): x not in list")
}

func listRemove(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	idx, raised := listIndex(f, args, kwargs)
	if raised != nil {
		if raised.isInstance(ValueErrorType) {
			f.RestoreExc(nil, nil)
			return nil, f.RaiseType(ValueErrorType, "list.remove(x): x not in list")
		}
		return nil, raised
	}
	if raised := toListUnsafe(args[0]).DelItem(f, int(toIntUnsafe(idx).Value())); raised != nil {
		return nil, raised
	}
	return None, nil
}

func listReverse(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkMethodArgs(f, "reverse", args, ListType); raised != nil {
		return nil, raised
	}
	elems := toListUnsafe(args[0]).elems
	for i, j := 0, len(elems)-1; i < j; i, j = i+1, j-1 {
		elems[i], elems[j] = elems[j], elems[i]
	}
	return None, nil
}

func listSort(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkMethodArgs(f, "sort", args, ListType); raised != nil {
		return nil, raised
	}
	l := toListUnsafe(args[0])
	elems := l.elems
	// Sort a private slice so comparisons that mutate the list can't
	// corrupt it.
	l.elems = nil
	var raised *BaseException
	sort.SliceStable(elems, func(i, j int) bool {
		if raised != nil {
			return false
		}
		var lt bool
		lt, raised = RichCompareBool(f, elems[i], elems[j], CompareLT)
		return lt
	})
	mutated := l.elems
	l.elems = elems
	for _, e := range mutated {
		DecRef(e)
	}
	if raised != nil {
		return nil, raised
	}
	return None, nil
}

func initListType(dict map[string]*Object) {
	dict["append"] = newBuiltinFunction("append", listAppend).ToObject()
	dict["extend"] = newBuiltinFunction("extend", listExtend).ToObject()
	dict["index"] = newBuiltinFunction("index", listIndex).ToObject()
	dict["insert"] = newBuiltinFunction("insert", listInsert).ToObject()
	dict["pop"] = newBuiltinFunction("pop", listPop).ToObject()
	dict["remove"] = newBuiltinFunction("remove", listRemove).ToObject()
	dict["reverse"] = newBuiltinFunction("reverse", listReverse).ToObject()
	dict["sort"] = newBuiltinFunction("sort", listSort).ToObject()
	ListType.slots.Dealloc = &deallocSlot{listDealloc}
	ListType.slots.Eq = listCompare(CompareEq)
	ListType.slots.GE = listCompare(CompareGE)
	ListType.slots.GT = listCompare(CompareGT)
	ListType.slots.Hash = &unaryOpSlot{hashNotImplemented}
	ListType.slots.Init = &initSlot{listInit}
	ListType.slots.Iter = &unaryOpSlot{listIter}
	ListType.slots.LE = listCompare(CompareLE)
	ListType.slots.LT = listCompare(CompareLT)
	ListType.slots.NE = listCompare(CompareNE)
	ListType.slots.New = &newSlot{listNew}
	ListType.slots.Repr = &unaryOpSlot{listRepr}
	n := ListType.slots.number()
	n.Add = &binaryOpSlot{listAdd}
	n.IAdd = &binaryOpSlot{listIAdd}
	n.Mul = &binaryOpSlot{listMul}
	n.RMul = &binaryOpSlot{listMul}
	m := ListType.slots.mapping()
	m.DelItem = &delItemSlot{listDelItem}
	m.Len = &unaryOpSlot{listLen}
	m.SetItem = &setItemSlot{listSetItem}
	m.Subscript = &binaryOpSlot{listSubscript}
	s := ListType.slots.sequence()
	s.Contains = &binaryOpSlot{listContains}
	s.Item = &seqItemSlot{listItem}
	s.Len = &unaryOpSlot{listLen}
}

var listIteratorType = newBasisType("list_iterator", reflect.TypeOf(listIterator{}), ObjectType)

type listIterator struct {
	Object
	list  *List
	index int
}

func newListIterator(l *List) *Object {
	IncRef(l.ToObject())
	iter := &listIterator{Object: objectHeader(listIteratorType), list: l}
	return &iter.Object
}

func toListIteratorUnsafe(o *Object) *listIterator {
	return (*listIterator)(o.toPointer())
}

func listIteratorDealloc(o *Object) {
	iter := toListIteratorUnsafe(o)
	if iter.list != nil {
		DecRef(iter.list.ToObject())
		iter.list = nil
	}
}

func listIteratorIter(f *Frame, o *Object) (*Object, *BaseException) {
	return newRef(o), nil
}

func listIteratorNext(f *Frame, o *Object) (*Object, *BaseException) {
	iter := toListIteratorUnsafe(o)
	if iter.list == nil || iter.index >= len(iter.list.elems) {
		listIteratorDealloc(o)
		return nil, f.Raise(StopIterationType.ToObject(), nil, nil)
	}
	item := iter.list.elems[iter.index]
	iter.index++
	return item, nil
}

func initListIteratorType(map[string]*Object) {
	listIteratorType.flags &^= typeFlagBasetype | typeFlagInstantiable
	listIteratorType.slots.Dealloc = &deallocSlot{listIteratorDealloc}
	listIteratorType.slots.Iter = &unaryOpSlot{listIteratorIter}
	listIteratorType.slots.Next = &unaryOpSlot{listIteratorNext}
}
