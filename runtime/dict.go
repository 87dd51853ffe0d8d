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
	"strings"
)

var (
	// DictType is the object representing the Python 'dict' type.
	DictType            = newBasisType("dict", reflect.TypeOf(Dict{}), ObjectType)
	dictKeyIteratorType = newBasisType("dict_keyiterator", reflect.TypeOf(dictKeyIterator{}), ObjectType)
	errDictChangedSize  = "dictionary changed size during iteration"
)

// dictEntry is a single key/value pair stored in a dict. A deleted entry
// keeps its slot with a nil key until the table is compacted.
type dictEntry struct {
	hash  int64
	key   *Object
	value *Object
}

// Dict represents Python 'dict' objects. Entries are kept in insertion order
// and an index from hash to entry position serves lookups. A dict owns a
// reference to every key and value it holds.
type Dict struct {
	Object
	table []dictEntry
	index map[int64][]int
	used  int
	// version is bumped on every insertion or removal so iterators can
	// detect mutation.
	version int64
}

// NewDict returns an empty Dict.
func NewDict() *Dict {
	return &Dict{Object: objectHeader(DictType), index: map[int64][]int{}}
}

func newStringDict(items map[string]*Object) *Dict {
	d := NewDict()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := NewStr(k)
		d.insert(key.hashValue(), key.ToObject(), items[k])
		DecRef(key.ToObject())
	}
	return d
}

func toDictUnsafe(o *Object) *Dict {
	return (*Dict)(o.toPointer())
}

// ToObject upcasts d to an Object.
func (d *Dict) ToObject() *Object {
	return &d.Object
}

// Len returns the number of entries in d.
func (d *Dict) Len() int {
	return d.used
}

// entries returns the live entries of d in insertion order.
func (d *Dict) entries() []dictEntry {
	entries := make([]dictEntry, 0, d.used)
	for _, e := range d.table {
		if e.key != nil {
			entries = append(entries, e)
		}
	}
	return entries
}

// Keys returns a list of d's keys in insertion order.
func (d *Dict) Keys() *List {
	l := NewList()
	for _, e := range d.entries() {
		l.Append(e.key)
	}
	return l
}

func dictKeyHash(f *Frame, key *Object) (int64, *BaseException) {
	if key.typ == StrType {
		return toStrUnsafe(key).hashValue(), nil
	}
	h, raised := Hash(f, key)
	if raised != nil {
		return 0, raised
	}
	return h.Value(), nil
}

// lookup returns the table position of key, or -1.
func (d *Dict) lookup(f *Frame, hash int64, key *Object) (int, *BaseException) {
	for _, i := range d.index[hash] {
		e := d.table[i]
		if e.key == nil {
			continue
		}
		if e.key == key {
			return i, nil
		}
		if e.key.typ == StrType && key.typ == StrType {
			if toStrUnsafe(e.key).value == toStrUnsafe(key).value {
				return i, nil
			}
			continue
		}
		version := d.version
		eq, raised := RichCompareBool(f, e.key, key, CompareEq)
		if raised != nil {
			return -1, raised
		}
		if version != d.version {
			return -1, f.RaiseType(RuntimeErrorType, "dictionary changed size during lookup")
		}
		if eq {
			return i, nil
		}
	}
	return -1, nil
}

func (d *Dict) insert(hash int64, key, value *Object) {
	d.table = append(d.table, dictEntry{hash: hash, key: newRef(key), value: newRef(value)})
	d.index[hash] = append(d.index[hash], len(d.table)-1)
	d.used++
	d.version++
}

// GetItem looks up key in d, returning a borrowed reference to the value, or
// nil if key is not present.
func (d *Dict) GetItem(f *Frame, key *Object) (*Object, *BaseException) {
	hash, raised := dictKeyHash(f, key)
	if raised != nil {
		return nil, raised
	}
	i, raised := d.lookup(f, hash, key)
	if raised != nil || i < 0 {
		return nil, raised
	}
	return d.table[i].value, nil
}

// GetItemString looks up key in d as a str.
func (d *Dict) GetItemString(f *Frame, key string) (*Object, *BaseException) {
	k := NewStr(key)
	defer DecRef(k.ToObject())
	return d.GetItem(f, k.ToObject())
}

// getItemStringNoError looks up a str key without running Python code. Keys
// that are not exact str instances are skipped.
func (d *Dict) getItemStringNoError(key string) *Object {
	for _, i := range d.index[hashString(key)] {
		e := d.table[i]
		if e.key != nil && e.key.typ == StrType && toStrUnsafe(e.key).value == key {
			return e.value
		}
	}
	return nil
}

// SetItem associates value with key in d, replacing any existing value.
func (d *Dict) SetItem(f *Frame, key, value *Object) *BaseException {
	hash, raised := dictKeyHash(f, key)
	if raised != nil {
		return raised
	}
	i, raised := d.lookup(f, hash, key)
	if raised != nil {
		return raised
	}
	if i >= 0 {
		setRef(&d.table[i].value, value)
		return nil
	}
	d.insert(hash, key, value)
	return nil
}

// SetItemString associates value with the str key in d.
func (d *Dict) SetItemString(f *Frame, key string, value *Object) *BaseException {
	k := NewStr(key)
	defer DecRef(k.ToObject())
	return d.SetItem(f, k.ToObject(), value)
}

// DelItem removes key from d. It reports whether the key was present.
func (d *Dict) DelItem(f *Frame, key *Object) (bool, *BaseException) {
	hash, raised := dictKeyHash(f, key)
	if raised != nil {
		return false, raised
	}
	i, raised := d.lookup(f, hash, key)
	if raised != nil || i < 0 {
		return false, raised
	}
	d.remove(i)
	return true, nil
}

// DelItemString removes the str key from d.
func (d *Dict) DelItemString(f *Frame, key string) (bool, *BaseException) {
	k := NewStr(key)
	defer DecRef(k.ToObject())
	return d.DelItem(f, k.ToObject())
}

func (d *Dict) remove(i int) {
	e := d.table[i]
	d.table[i] = dictEntry{}
	positions := d.index[e.hash]
	for j, p := range positions {
		if p == i {
			positions = append(positions[:j], positions[j+1:]...)
			break
		}
	}
	if len(positions) == 0 {
		delete(d.index, e.hash)
	} else {
		d.index[e.hash] = positions
	}
	d.used--
	d.version++
	if len(d.table) > 8 && d.used < len(d.table)/2 {
		d.compact()
	}
	DecRef(e.key)
	DecRef(e.value)
}

func (d *Dict) compact() {
	table := make([]dictEntry, 0, d.used)
	index := make(map[int64][]int, d.used)
	for _, e := range d.table {
		if e.key != nil {
			table = append(table, e)
			index[e.hash] = append(index[e.hash], len(table)-1)
		}
	}
	d.table, d.index = table, index
}

// Clear removes all entries from d.
func (d *Dict) Clear() {
	table := d.table
	d.table, d.index, d.used = nil, map[int64][]int{}, 0
	d.version++
	for _, e := range table {
		if e.key != nil {
			DecRef(e.key)
			DecRef(e.value)
		}
	}
}

// Copy returns a shallow copy of d.
func (d *Dict) Copy(f *Frame) (*Dict, *BaseException) {
	c := NewDict()
	for _, e := range d.entries() {
		c.insert(e.hash, e.key, e.value)
	}
	return c, nil
}

// Update copies all entries of the mapping o into d.
func (d *Dict) Update(f *Frame, o *Object) *BaseException {
	if o.isInstance(DictType) {
		for _, e := range toDictUnsafe(o).entries() {
			if raised := d.SetItem(f, e.key, e.value); raised != nil {
				return raised
			}
		}
		return nil
	}
	return seqForEach(f, o, func(item *Object) (bool, *BaseException) {
		pair, raised := seqToSlice(f, item)
		if raised != nil {
			return false, raised
		}
		if len(pair) != 2 {
			format := "dictionary update sequence element has length %d; 2 is required"
			return false, f.RaiseType(ValueErrorType, fmt.Sprintf(format, len(pair)))
		}
		return true, d.SetItem(f, pair[0], pair[1])
	})
}

func dictClear(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkMethodArgs(f, "clear", args, DictType); raised != nil {
		return nil, raised
	}
	toDictUnsafe(args[0]).Clear()
	return None, nil
}

func dictContains(f *Frame, o, key *Object) (*Object, *BaseException) {
	value, raised := toDictUnsafe(o).GetItem(f, key)
	if raised != nil {
		return nil, raised
	}
	return GetBool(value != nil).ToObject(), nil
}

func dictCopy(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkMethodArgs(f, "copy", args, DictType); raised != nil {
		return nil, raised
	}
	d, raised := toDictUnsafe(args[0]).Copy(f)
	if raised != nil {
		return nil, raised
	}
	return d.ToObject(), nil
}

func dictDealloc(o *Object) {
	toDictUnsafe(o).Clear()
}

func dictDelItem(f *Frame, o, key *Object) *BaseException {
	deleted, raised := toDictUnsafe(o).DelItem(f, key)
	if raised != nil {
		return raised
	}
	if !deleted {
		return raiseKeyError(f, key)
	}
	return nil
}

func dictEq(f *Frame, v, w *Object) (*Object, *BaseException) {
	if !w.isInstance(DictType) {
		return NotImplemented, nil
	}
	eq, raised := dictsAreEqual(f, toDictUnsafe(v), toDictUnsafe(w))
	if raised != nil {
		return nil, raised
	}
	return GetBool(eq).ToObject(), nil
}

func dictsAreEqual(f *Frame, d1, d2 *Dict) (bool, *BaseException) {
	if d1 == d2 {
		return true, nil
	}
	if d1.Len() != d2.Len() {
		return false, nil
	}
	for _, e := range d1.entries() {
		v2, raised := d2.GetItem(f, e.key)
		if raised != nil {
			return false, raised
		}
		if v2 == nil {
			return false, nil
		}
		eq, raised := RichCompareBool(f, e.value, v2, CompareEq)
		if raised != nil || !eq {
			return false, raised
		}
	}
	return true, nil
}

func dictGet(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	expectedTypes := []*Type{DictType, ObjectType, ObjectType}
	argc := len(args)
	if argc == 2 {
		expectedTypes = expectedTypes[:2]
	}
	if raised := checkMethodArgs(f, "get", args, expectedTypes...); raised != nil {
		return nil, raised
	}
	item, raised := toDictUnsafe(args[0]).GetItem(f, args[1])
	if raised == nil && item == nil {
		item = None
		if argc > 2 {
			item = args[2]
		}
	}
	return item, raised
}

func dictInit(f *Frame, o *Object, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if len(args) > 1 {
		format := "dict expected at most 1 arguments, got %d"
		return nil, f.RaiseType(TypeErrorType, fmt.Sprintf(format, len(args)))
	}
	d := toDictUnsafe(o)
	if len(args) == 1 {
		if raised := d.Update(f, args[0]); raised != nil {
			return nil, raised
		}
	}
	for _, kwarg := range kwargs {
		if raised := d.SetItemString(f, kwarg.Name, kwarg.Value); raised != nil {
			return nil, raised
		}
	}
	return None, nil
}

func dictItems(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkMethodArgs(f, "items", args, DictType); raised != nil {
		return nil, raised
	}
	l := NewList()
	for _, e := range toDictUnsafe(args[0]).entries() {
		t := NewTuple2(e.key, e.value)
		l.Append(t.ToObject())
		DecRef(t.ToObject())
	}
	return l.ToObject(), nil
}

func dictIter(f *Frame, o *Object) (*Object, *BaseException) {
	return newDictKeyIterator(toDictUnsafe(o)).ToObject(), nil
}

func dictKeys(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkMethodArgs(f, "keys", args, DictType); raised != nil {
		return nil, raised
	}
	return toDictUnsafe(args[0]).Keys().ToObject(), nil
}

func dictLen(f *Frame, o *Object) (*Object, *BaseException) {
	return NewInt(int64(toDictUnsafe(o).Len())).ToObject(), nil
}

func dictNE(f *Frame, v, w *Object) (*Object, *BaseException) {
	r, raised := dictEq(f, v, w)
	if raised != nil || r == NotImplemented {
		return r, raised
	}
	return GetBool(r != True.ToObject()).ToObject(), nil
}

func dictNew(f *Frame, t *Type, args Args, kwargs KWArgs) (*Object, *BaseException) {
	d := toDictUnsafe(newObject(t))
	d.index = map[int64][]int{}
	return d.ToObject(), nil
}

func dictPop(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkMethodVarArgs(f, "pop", args, DictType, ObjectType); raised != nil {
		return nil, raised
	}
	if len(args) > 3 {
		return nil, f.RaiseType(TypeErrorType, "pop expected at most 2 arguments")
	}
	d, key := toDictUnsafe(args[0]), args[1]
	hash, raised := dictKeyHash(f, key)
	if raised != nil {
		return nil, raised
	}
	i, raised := d.lookup(f, hash, key)
	if raised != nil {
		return nil, raised
	}
	if i < 0 {
		if len(args) == 3 {
			return args[2], nil
		}
		return nil, raiseKeyError(f, key)
	}
	value := newRef(d.table[i].value)
	d.remove(i)
	return value, nil
}

func dictRepr(f *Frame, o *Object) (*Object, *BaseException) {
	d := toDictUnsafe(o)
	if f.ts.reprEnter(o) {
		return NewStr("{...}").ToObject(), nil
	}
	defer f.ts.reprLeave(o)
	var buf strings.Builder
	buf.WriteString("{")
	for i, e := range d.entries() {
		if i > 0 {
			buf.WriteString(", ")
		}
		k, raised := Repr(f, e.key)
		if raised != nil {
			return nil, raised
		}
		v, raised := Repr(f, e.value)
		if raised != nil {
			return nil, raised
		}
		buf.WriteString(k.Value())
		buf.WriteString(": ")
		buf.WriteString(v.Value())
	}
	buf.WriteString("}")
	return NewStr(buf.String()).ToObject(), nil
}

func dictSetDefault(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkMethodVarArgs(f, "setdefault", args, DictType, ObjectType); raised != nil {
		return nil, raised
	}
	d := toDictUnsafe(args[0])
	value, raised := d.GetItem(f, args[1])
	if raised != nil || value != nil {
		return value, raised
	}
	value = None
	if len(args) > 2 {
		value = args[2]
	}
	if raised := d.SetItem(f, args[1], value); raised != nil {
		return nil, raised
	}
	return value, nil
}

func dictSetItem(f *Frame, o, key, value *Object) *BaseException {
	return toDictUnsafe(o).SetItem(f, key, value)
}

func dictSubscript(f *Frame, o, key *Object) (*Object, *BaseException) {
	item, raised := toDictUnsafe(o).GetItem(f, key)
	if raised != nil {
		return nil, raised
	}
	if item == nil {
		return nil, raiseKeyError(f, key)
	}
	return item, nil
}

func dictUpdate(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkMethodVarArgs(f, "update", args, DictType); raised != nil {
		return nil, raised
	}
	if _, raised := dictInit(f, args[0], args[1:], kwargs); raised != nil {
		return nil, raised
	}
	return None, nil
}

func dictValues(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkMethodArgs(f, "values", args, DictType); raised != nil {
		return nil, raised
	}
	l := NewList()
	for _, e := range toDictUnsafe(args[0]).entries() {
		l.Append(e.value)
	}
	return l.ToObject(), nil
}

func raiseKeyError(f *Frame, key *Object) *BaseException {
	return f.Raise(KeyErrorType.ToObject(), NewTuple1(key).ToObject(), nil)
}

func initDictType(dict map[string]*Object) {
	dict["clear"] = newBuiltinFunction("clear", dictClear).ToObject()
	dict["copy"] = newBuiltinFunction("copy", dictCopy).ToObject()
	dict["get"] = newBuiltinFunction("get", dictGet).ToObject()
	dict["items"] = newBuiltinFunction("items", dictItems).ToObject()
	dict["keys"] = newBuiltinFunction("keys", dictKeys).ToObject()
	dict["pop"] = newBuiltinFunction("pop", dictPop).ToObject()
	dict["setdefault"] = newBuiltinFunction("setdefault", dictSetDefault).ToObject()
	dict["update"] = newBuiltinFunction("update", dictUpdate).ToObject()
	dict["values"] = newBuiltinFunction("values", dictValues).ToObject()
	DictType.slots.Dealloc = &deallocSlot{dictDealloc}
	DictType.slots.Eq = &binaryOpSlot{dictEq}
	DictType.slots.Hash = &unaryOpSlot{hashNotImplemented}
	DictType.slots.Init = &initSlot{dictInit}
	DictType.slots.Iter = &unaryOpSlot{dictIter}
	DictType.slots.NE = &binaryOpSlot{dictNE}
	DictType.slots.New = &newSlot{dictNew}
	DictType.slots.Repr = &unaryOpSlot{dictRepr}
	m := DictType.slots.mapping()
	m.DelItem = &delItemSlot{dictDelItem}
	m.Len = &unaryOpSlot{dictLen}
	m.SetItem = &setItemSlot{dictSetItem}
	m.Subscript = &binaryOpSlot{dictSubscript}
	DictType.slots.sequence().Contains = &binaryOpSlot{dictContains}
}

type dictKeyIterator struct {
	Object
	dict    *Dict
	pos     int
	version int64
}

func newDictKeyIterator(d *Dict) *dictKeyIterator {
	IncRef(d.ToObject())
	return &dictKeyIterator{Object: objectHeader(dictKeyIteratorType), dict: d, version: d.version}
}

func toDictKeyIteratorUnsafe(o *Object) *dictKeyIterator {
	return (*dictKeyIterator)(o.toPointer())
}

func (iter *dictKeyIterator) ToObject() *Object {
	return &iter.Object
}

func dictKeyIteratorDealloc(o *Object) {
	iter := toDictKeyIteratorUnsafe(o)
	if iter.dict != nil {
		DecRef(iter.dict.ToObject())
		iter.dict = nil
	}
}

func dictKeyIteratorIter(f *Frame, o *Object) (*Object, *BaseException) {
	return newRef(o), nil
}

func dictKeyIteratorNext(f *Frame, o *Object) (*Object, *BaseException) {
	iter := toDictKeyIteratorUnsafe(o)
	d := iter.dict
	if d == nil {
		return nil, f.Raise(StopIterationType.ToObject(), nil, nil)
	}
	if d.version != iter.version {
		return nil, f.RaiseType(RuntimeErrorType, errDictChangedSize)
	}
	for iter.pos < len(d.table) {
		e := d.table[iter.pos]
		iter.pos++
		if e.key != nil {
			return e.key, nil
		}
	}
	dictKeyIteratorDealloc(o)
	return nil, f.Raise(StopIterationType.ToObject(), nil, nil)
}

func initDictKeyIteratorType(map[string]*Object) {
	dictKeyIteratorType.flags &^= typeFlagBasetype | typeFlagInstantiable
	dictKeyIteratorType.slots.Dealloc = &deallocSlot{dictKeyIteratorDealloc}
	dictKeyIteratorType.slots.Iter = &unaryOpSlot{dictKeyIteratorIter}
	dictKeyIteratorType.slots.Next = &unaryOpSlot{dictKeyIteratorNext}
}
