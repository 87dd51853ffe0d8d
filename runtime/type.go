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

type typeFlag int

const (
	// Set when instances can be created via __new__. This is the default.
	// Internal types like NoneType clear it.
	typeFlagInstantiable typeFlag = 1 << iota
	// Set when the type can be used as a base class. This is the default.
	// Corresponds to the Py_TPFLAGS_BASETYPE flag in CPython.
	typeFlagBasetype
	// Set for classes created at runtime by a class statement or a call to
	// type(). Instances of heap types carry an instance dict.
	typeFlagHeap
	// Set once prepareType has resolved the MRO and inherited slots.
	typeFlagReady
	// Set while prepareType is running to catch re-entrant readying.
	typeFlagReadying
	// Set for types whose instances can only be produced internally.
	typeFlagAbstract
	typeFlagDefault = typeFlagInstantiable | typeFlagBasetype
)

// Type represents Python 'type' objects.
type Type struct {
	Object
	name  string
	basis reflect.Type
	bases []*Type
	mro   []*Type
	flags typeFlag
	slots typeSlots
}

var basisTypes = map[reflect.Type]*Type{
	objectBasis: ObjectType,
	typeBasis:   TypeType,
}

// newClass creates a Python type with the given name, base classes and type
// dict. It is similar to the Python expression 'type(name, bases, dict)'.
func newClass(f *Frame, meta *Type, name string, bases []*Type, dict *Dict) (*Type, *BaseException) {
	if len(bases) == 0 {
		bases = []*Type{ObjectType}
	}
	meta, raised := calculateMetaclass(f, meta, bases)
	if raised != nil {
		return nil, raised
	}
	var basis reflect.Type
	for i, base := range bases {
		if base.flags&typeFlagBasetype == 0 {
			format := "type '%s' is not an acceptable base type"
			return nil, f.RaiseType(TypeErrorType, fmt.Sprintf(format, base.Name()))
		}
		for _, other := range bases[:i] {
			if other == base {
				return nil, f.RaiseType(TypeErrorType, fmt.Sprintf("duplicate base class %s", base.Name()))
			}
		}
		if basis = basisSelect(basis, base.basis); basis == nil {
			return nil, f.RaiseType(TypeErrorType, "multiple bases have instance lay-out conflict")
		}
	}
	t := newType(meta, name, basis, bases, dict)
	t.flags |= typeFlagHeap
	for _, desc := range slotDescs {
		if desc.name == "" {
			continue
		}
		dictFunc, raised := dict.GetItemString(f, desc.name)
		if raised != nil {
			return nil, raised
		}
		if dictFunc == nil {
			continue
		}
		if raised := t.wrapSlot(f, desc, dictFunc); raised != nil {
			return nil, raised
		}
	}
	// A class that overrides equality without hashing cannot keep the
	// identity based hash of its base.
	if eq, _ := dict.GetItemString(f, "__eq__"); eq != nil {
		if hash, _ := dict.GetItemString(f, "__hash__"); hash == nil {
			if raised := dict.SetItemString(f, "__hash__", None); raised != nil {
				return nil, raised
			}
			t.slots.Hash = &unaryOpSlot{hashNotImplemented}
		}
	}
	if err := prepareType(t); err != "" {
		return nil, f.RaiseType(TypeErrorType, err)
	}
	mod, raised := dict.GetItemString(f, "__module__")
	if raised != nil {
		return nil, raised
	}
	if mod == nil {
		modName := builtinsStr.ToObject()
		if globals := f.Globals(); globals != nil {
			if n, _ := globals.GetItemString(f, "__name__"); n != nil {
				modName = n
			}
		}
		if raised := dict.SetItemString(f, "__module__", modName); raised != nil {
			return nil, raised
		}
	}
	return t, nil
}

// wrapSlot installs a slot on t that forwards to the special method fn found
// in the class body.
func (t *Type) wrapSlot(f *Frame, desc slotDesc, fn *Object) *BaseException {
	slotField := t.slots.field(desc.index, true)
	if desc.name == "__hash__" && fn == None {
		slotField.Set(reflect.ValueOf(&unaryOpSlot{hashNotImplemented}))
		return nil
	}
	if fn.isInstance(StaticMethodType) {
		fn = toStaticMethodUnsafe(fn).callable
	}
	slotValue := reflect.New(slotField.Type().Elem())
	if slotValue.Interface().(slot).wrapCallable(fn) {
		slotField.Set(slotValue)
	}
	return nil
}

// calculateMetaclass picks the most derived metaclass out of meta and the
// metaclasses of bases.
func calculateMetaclass(f *Frame, meta *Type, bases []*Type) (*Type, *BaseException) {
	winner := meta
	for _, base := range bases {
		baseMeta := base.typ
		if winner.isSubclass(baseMeta) {
			continue
		}
		if baseMeta.isSubclass(winner) {
			winner = baseMeta
			continue
		}
		msg := "metaclass conflict: the metaclass of a derived class must be a (non-strict) subclass of the metaclasses of all its bases"
		return nil, f.RaiseType(TypeErrorType, msg)
	}
	return winner, nil
}

// basisSelect returns whichever of b1 and b2 embeds the other, or nil when
// neither layout extends the other.
func basisSelect(b1, b2 reflect.Type) reflect.Type {
	if b1 == nil {
		return b2
	}
	if basisExtends(b1, b2) {
		return b1
	}
	if basisExtends(b2, b1) {
		return b2
	}
	return nil
}

func basisExtends(b, parent reflect.Type) bool {
	for {
		if b == parent {
			return true
		}
		if b == objectBasis || b.NumField() == 0 {
			return false
		}
		b = b.Field(0).Type
	}
}

func newType(meta *Type, name string, basis reflect.Type, bases []*Type, dict *Dict) *Type {
	return &Type{
		Object: Object{typ: meta, dict: dict, refcnt: 1},
		name:   name,
		basis:  basis,
		bases:  bases,
		flags:  typeFlagDefault,
	}
}

func newBasisType(name string, basis reflect.Type, base *Type) *Type {
	if _, ok := basisTypes[basis]; ok {
		logFatal(fmt.Sprintf("type for basis already exists: %s", basis))
	}
	if basis.Kind() != reflect.Struct {
		logFatal(fmt.Sprintf("basis must be a struct not: %s", basis.Kind()))
	}
	if basis.NumField() == 0 || basis.Field(0).Type != base.basis {
		logFatal(fmt.Sprintf("1st field of basis %s must be base type's basis", basis))
	}
	t := newType(TypeType, name, basis, []*Type{base}, nil)
	basisTypes[basis] = t
	return t
}

func newSimpleType(name string, base *Type) *Type {
	return newType(TypeType, name, base.basis, []*Type{base}, nil)
}

// prepareBuiltinType initializes the builtin typ by populating its dict with
// the entries produced by init and with slot wrappers, and then readies it.
func prepareBuiltinType(typ *Type, init builtinTypeInit) {
	dict := map[string]*Object{"__module__": builtinsStr.ToObject()}
	if init != nil {
		init(dict)
	}
	for _, desc := range slotDescs {
		if desc.name == "" {
			continue
		}
		if _, ok := dict[desc.name]; ok {
			continue
		}
		slotField := typ.slots.field(desc.index, false)
		if !slotField.IsValid() || slotField.IsNil() {
			continue
		}
		if fun := slotField.Interface().(slot).makeCallable(typ, desc.name); fun != nil {
			dict[desc.name] = fun
		}
	}
	typ.setDict(newStringDict(dict))
	if err := prepareType(typ); err != "" {
		logFatal(err)
	}
}

// prepareType readies typ: it computes the MRO and inherits flags and any
// slots typ doesn't define itself from its bases. A type is readied exactly
// once; later calls are no-ops.
func prepareType(typ *Type) string {
	if typ.flags&typeFlagReady != 0 {
		return ""
	}
	if typ.flags&typeFlagReadying != 0 {
		return fmt.Sprintf("type '%s' is being readied recursively", typ.name)
	}
	typ.flags |= typeFlagReadying
	defer func() { typ.flags &^= typeFlagReadying }()
	for _, base := range typ.bases {
		if err := prepareType(base); err != "" {
			return err
		}
	}
	typ.mro = mroCalc(typ)
	for _, base := range typ.mro {
		if base.flags&typeFlagInstantiable == 0 {
			typ.flags &^= typeFlagInstantiable
		}
		if base.flags&typeFlagBasetype == 0 {
			typ.flags &^= typeFlagBasetype
		}
	}
	for _, desc := range slotDescs {
		own := typ.slots.field(desc.index, false)
		if own.IsValid() && !own.IsNil() {
			continue
		}
		for _, base := range typ.mro[1:] {
			inherited := base.slots.field(desc.index, false)
			if inherited.IsValid() && !inherited.IsNil() {
				typ.slots.field(desc.index, true).Set(inherited)
				break
			}
		}
	}
	if typ.Dict() == nil {
		typ.setDict(NewDict())
	}
	typ.flags |= typeFlagReady
	return ""
}

// mroCalc linearizes typ's bases depth first, left to right. When a type is
// reachable along several paths only its last occurrence is kept, so shared
// bases such as object come after every type that derives from them.
func mroCalc(t *Type) []*Type {
	seq := []*Type{t}
	for _, b := range t.bases {
		seq = append(seq, b.mro...)
	}
	seen := make(map[*Type]bool, len(seq))
	mro := make([]*Type, 0, len(seq))
	for i := len(seq) - 1; i >= 0; i-- {
		if !seen[seq[i]] {
			seen[seq[i]] = true
			mro = append(mro, seq[i])
		}
	}
	for i, j := 0, len(mro)-1; i < j; i, j = i+1, j-1 {
		mro[i], mro[j] = mro[j], mro[i]
	}
	return mro
}

func toTypeUnsafe(o *Object) *Type {
	return (*Type)(o.toPointer())
}

// ToObject upcasts t to an Object.
func (t *Type) ToObject() *Object {
	return &t.Object
}

// Name returns t's name field.
func (t *Type) Name() string {
	return t.name
}

// MRO returns the method resolution order computed when t was readied.
func (t *Type) MRO() []*Type {
	return t.mro
}

// IsReady reports whether t's slots have been resolved.
func (t *Type) IsReady() bool {
	return t.flags&typeFlagReady != 0
}

// FullName returns t's fully qualified name including the module.
func (t *Type) FullName(f *Frame) (string, *BaseException) {
	moduleAttr, raised := t.Dict().GetItemString(f, "__module__")
	if raised != nil {
		return "", raised
	}
	if moduleAttr == nil {
		return t.Name(), nil
	}
	if moduleAttr.isInstance(StrType) {
		if s := toStrUnsafe(moduleAttr).Value(); s != "builtins" {
			return fmt.Sprintf("%s.%s", s, t.Name()), nil
		}
	}
	return t.Name(), nil
}

func (t *Type) isSubclass(super *Type) bool {
	if t == super || super == ObjectType {
		return true
	}
	if t.mro == nil {
		// Not readied yet, walk the bases instead.
		for _, b := range t.bases {
			if b.isSubclass(super) {
				return true
			}
		}
		return false
	}
	for _, b := range t.mro {
		if b == super {
			return true
		}
	}
	return false
}

func (t *Type) mroLookup(f *Frame, name *Str) (*Object, *BaseException) {
	for _, t := range t.mro {
		d := t.Dict()
		if d == nil {
			continue
		}
		v, raised := d.GetItem(f, name.ToObject())
		if v != nil || raised != nil {
			return v, raised
		}
	}
	return nil, nil
}

var typeBasis = reflect.TypeOf(Type{})

// TypeType is the object representing the Python 'type' type.
//
// Don't use newType() since that depends on the initialization of
// TypeType.
var TypeType = &Type{
	name:  "type",
	basis: typeBasis,
	bases: []*Type{ObjectType},
	flags: typeFlagDefault,
}

func typeCall(f *Frame, callable *Object, args Args, kwargs KWArgs) (*Object, *BaseException) {
	t := toTypeUnsafe(callable)
	if t == TypeType && len(args) == 1 && len(kwargs) == 0 {
		return args[0].typ.ToObject(), nil
	}
	newFunc := t.slots.New
	if newFunc == nil || t.flags&typeFlagInstantiable == 0 {
		return nil, f.RaiseType(TypeErrorType, fmt.Sprintf("cannot create '%s' instances", t.Name()))
	}
	o, raised := newFunc.Fn(f, t, args, kwargs)
	if raised != nil {
		return nil, raised
	}
	if !o.isInstance(t) {
		return o, nil
	}
	if init := o.typ.slots.Init; init != nil {
		r, raised := init.Fn(f, o, args, kwargs)
		if raised != nil {
			return nil, raised
		}
		if r != None {
			format := "__init__() should return None, not '%s'"
			return nil, f.RaiseType(TypeErrorType, fmt.Sprintf(format, r.typ.Name()))
		}
	}
	return o, nil
}

// typeGetAttribute is very similar to objectGetAttribute except that it uses
// MRO to resolve dict attributes rather than just the type's own dict and the
// exception message is slightly different.
func typeGetAttribute(f *Frame, o *Object, name *Str) (*Object, *BaseException) {
	t := toTypeUnsafe(o)
	var metaGet *getSlot
	metaType := t.typ
	metaAttr, raised := metaType.mroLookup(f, name)
	if raised != nil {
		return nil, raised
	}
	if metaAttr != nil {
		metaGet = metaAttr.typ.slots.Get
		if metaGet != nil && isDataDescriptor(metaAttr) {
			return metaGet.Fn(f, metaAttr, t.ToObject(), metaType)
		}
	}
	attr, raised := t.mroLookup(f, name)
	if raised != nil {
		return nil, raised
	}
	if attr != nil {
		if get := attr.typ.slots.Get; get != nil {
			return get.Fn(f, attr, nil, t)
		}
		return attr, nil
	}
	if metaGet != nil {
		return metaGet.Fn(f, metaAttr, t.ToObject(), metaType)
	}
	if metaAttr != nil {
		return metaAttr, nil
	}
	msg := fmt.Sprintf("type object '%s' has no attribute '%s'", t.Name(), name.Value())
	return nil, f.RaiseType(AttributeErrorType, msg)
}

func typeSetAttr(f *Frame, o *Object, name *Str, value *Object) *BaseException {
	t := toTypeUnsafe(o)
	if t.flags&typeFlagHeap == 0 {
		format := "can't set attributes of built-in/extension type '%s'"
		return f.RaiseType(TypeErrorType, fmt.Sprintf(format, t.Name()))
	}
	metaAttr, raised := t.typ.mroLookup(f, name)
	if raised != nil {
		return raised
	}
	if metaAttr != nil {
		if set := metaAttr.typ.slots.Set; set != nil {
			return set.Fn(f, metaAttr, o, value)
		}
	}
	if raised := t.Dict().SetItem(f, name.ToObject(), value); raised != nil {
		return raised
	}
	for _, desc := range slotDescs {
		if desc.name == name.Value() {
			if raised := t.wrapSlot(f, desc, value); raised != nil {
				return raised
			}
		}
	}
	return nil
}

func typeNew(f *Frame, meta *Type, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if len(args) != 3 {
		return nil, f.RaiseType(TypeErrorType, "type() takes 1 or 3 arguments")
	}
	if !args[0].isInstance(StrType) {
		return nil, f.RaiseType(TypeErrorType, "type.__new__() argument 1 must be str")
	}
	if !args[1].isInstance(TupleType) {
		return nil, f.RaiseType(TypeErrorType, "type.__new__() argument 2 must be tuple")
	}
	if !args[2].isInstance(DictType) {
		return nil, f.RaiseType(TypeErrorType, "type.__new__() argument 3 must be dict")
	}
	var bases []*Type
	for _, b := range toTupleUnsafe(args[1]).elems {
		if !b.isInstance(TypeType) {
			format := "bases must be types, not %s"
			return nil, f.RaiseType(TypeErrorType, fmt.Sprintf(format, b.typ.Name()))
		}
		bases = append(bases, toTypeUnsafe(b))
	}
	dict, raised := toDictUnsafe(args[2]).Copy(f)
	if raised != nil {
		return nil, raised
	}
	t, raised := newClass(f, meta, toStrUnsafe(args[0]).Value(), bases, dict)
	if raised != nil {
		return nil, raised
	}
	return t.ToObject(), nil
}

func typeInit(f *Frame, o *Object, args Args, kwargs KWArgs) (*Object, *BaseException) {
	return None, nil
}

func typeRepr(f *Frame, o *Object) (*Object, *BaseException) {
	s, raised := toTypeUnsafe(o).FullName(f)
	if raised != nil {
		return nil, raised
	}
	return NewStr(fmt.Sprintf("<class '%s'>", s)).ToObject(), nil
}

func typeGetName(f *Frame, o *Object) (*Object, *BaseException) {
	return NewStr(toTypeUnsafe(o).name).ToObject(), nil
}

func typeSetName(f *Frame, o, value *Object) *BaseException {
	t := toTypeUnsafe(o)
	if t.flags&typeFlagHeap == 0 {
		format := "can't set %s.__name__"
		return f.RaiseType(TypeErrorType, fmt.Sprintf(format, t.Name()))
	}
	if value == nil || !value.isInstance(StrType) {
		return f.RaiseType(TypeErrorType, "can only assign string to __name__")
	}
	t.name = toStrUnsafe(value).Value()
	return nil
}

func typeGetBases(f *Frame, o *Object) (*Object, *BaseException) {
	t := toTypeUnsafe(o)
	elems := make([]*Object, len(t.bases))
	for i, b := range t.bases {
		elems[i] = b.ToObject()
	}
	return NewTuple(elems...).ToObject(), nil
}

func typeGetMRO(f *Frame, o *Object) (*Object, *BaseException) {
	t := toTypeUnsafe(o)
	elems := make([]*Object, len(t.mro))
	for i, b := range t.mro {
		elems[i] = b.ToObject()
	}
	return NewTuple(elems...).ToObject(), nil
}

func typeGetDict(f *Frame, o *Object) (*Object, *BaseException) {
	d, raised := toTypeUnsafe(o).Dict().Copy(f)
	if raised != nil {
		return nil, raised
	}
	return d.ToObject(), nil
}

func initTypeType(dict map[string]*Object) {
	TypeType.typ = TypeType
	dict["__name__"] = newGetSetDescriptor(TypeType, "__name__", typeGetName, typeSetName)
	dict["__bases__"] = newGetSetDescriptor(TypeType, "__bases__", typeGetBases, nil)
	dict["__mro__"] = newGetSetDescriptor(TypeType, "__mro__", typeGetMRO, nil)
	dict["__dict__"] = newGetSetDescriptor(TypeType, "__dict__", typeGetDict, nil)
	TypeType.slots.Call = &callSlot{typeCall}
	TypeType.slots.GetAttribute = &getAttributeSlot{typeGetAttribute}
	TypeType.slots.Init = &initSlot{typeInit}
	TypeType.slots.New = &newSlot{typeNew}
	TypeType.slots.Repr = &unaryOpSlot{typeRepr}
	TypeType.slots.SetAttr = &setAttrSlot{typeSetAttr}
}
