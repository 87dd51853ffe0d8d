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
	// ModuleType is the object representing the Python 'module' type.
	ModuleType = newBasisType("module", reflect.TypeOf(Module{}), ObjectType)
)

// Module represents Python 'module' objects.
type Module struct {
	Object
	def *ModuleDef
}

// ModuleMethod is a function exported by a natively defined module.
type ModuleMethod struct {
	Name string
	Fn   Func
}

// ModuleDef describes a natively defined module. A Size of -1 marks a module
// whose Exec must run at most once per process: later imports replay a copy
// of the namespace captured after the first initialization.
type ModuleDef struct {
	Name    string
	Doc     string
	Size    int
	Methods []ModuleMethod
	Exec    func(f *Frame, m *Module) *BaseException
	// index is the position of the definition in the interpreter's module
	// list. Zero means unassigned.
	index int
}

// NewModule returns a new module named name with a fresh namespace.
func NewModule(name string) *Module {
	m := &Module{Object: objectHeader(ModuleType)}
	n := NewStr(name)
	m.setDict(newStringDict(map[string]*Object{
		"__name__":    n.ToObject(),
		"__doc__":     None,
		"__package__": None,
		"__loader__":  None,
		"__spec__":    None,
	}))
	DecRef(n.ToObject())
	return m
}

// NewModuleFromDef creates the module described by def and runs its Exec
// function.
func NewModuleFromDef(f *Frame, def *ModuleDef) (*Module, *BaseException) {
	m := NewModule(def.Name)
	m.def = def
	d := m.Dict()
	if def.Doc != "" {
		doc := NewStr(def.Doc)
		raised := d.SetItemString(f, "__doc__", doc.ToObject())
		DecRef(doc.ToObject())
		if raised != nil {
			return nil, raised
		}
	}
	for _, meth := range def.Methods {
		fn := newBuiltinFunction(meth.Name, meth.Fn)
		raised := d.SetItemString(f, meth.Name, fn.ToObject())
		DecRef(fn.ToObject())
		if raised != nil {
			return nil, raised
		}
	}
	if def.Exec != nil {
		if raised := def.Exec(f, m); raised != nil {
			DecRef(m.ToObject())
			return nil, raised
		}
	}
	return m, nil
}

func toModuleUnsafe(o *Object) *Module {
	return (*Module)(o.toPointer())
}

// ToObject upcasts m to an Object.
func (m *Module) ToObject() *Object {
	return &m.Object
}

// Def returns the definition m was created from, or nil for source modules.
func (m *Module) Def() *ModuleDef {
	return m.def
}

// AddObject binds name to value in m's namespace.
func (m *Module) AddObject(f *Frame, name string, value *Object) *BaseException {
	return m.Dict().SetItemString(f, name, value)
}

// GetFilename returns the __file__ attribute of m, raising SystemError if it
// does not exist.
func (m *Module) GetFilename(f *Frame) (*Str, *BaseException) {
	fileAttr, raised := m.Dict().GetItemString(f, "__file__")
	if raised != nil {
		return nil, raised
	}
	if fileAttr == nil || !fileAttr.isInstance(StrType) {
		return nil, f.RaiseType(SystemErrorType, "module filename missing")
	}
	return toStrUnsafe(fileAttr), nil
}

// GetName returns the __name__ attribute of m, raising SystemError if it does
// not exist.
func (m *Module) GetName(f *Frame) (*Str, *BaseException) {
	nameAttr, raised := m.Dict().GetItemString(f, "__name__")
	if raised != nil {
		return nil, raised
	}
	if nameAttr == nil || !nameAttr.isInstance(StrType) {
		return nil, f.RaiseType(SystemErrorType, "nameless module")
	}
	return toStrUnsafe(nameAttr), nil
}

func moduleGetAttribute(f *Frame, o *Object, name *Str) (*Object, *BaseException) {
	v, raised := objectGetAttribute(f, o, name)
	if raised == nil || !raised.isInstance(AttributeErrorType) {
		return v, raised
	}
	f.RestoreExc(nil, nil)
	modName := "?"
	if n, _ := toModuleUnsafe(o).Dict().GetItemString(f, "__name__"); n != nil && n.isInstance(StrType) {
		modName = toStrUnsafe(n).Value()
	}
	format := "module '%s' has no attribute '%s'"
	return nil, f.RaiseType(AttributeErrorType, fmt.Sprintf(format, modName, name.Value()))
}

func moduleInit(f *Frame, o *Object, args Args, _ KWArgs) (*Object, *BaseException) {
	expectedTypes := []*Type{StrType, ObjectType}
	argc := len(args)
	if argc == 1 {
		expectedTypes = expectedTypes[:1]
	}
	if raised := checkFunctionArgs(f, "module", args, expectedTypes...); raised != nil {
		return nil, raised
	}
	d := o.Dict()
	if raised := d.SetItemString(f, "__name__", args[0]); raised != nil {
		return nil, raised
	}
	doc := None
	if argc > 1 {
		doc = args[1]
	}
	for _, attr := range []string{"__package__", "__loader__", "__spec__"} {
		if raised := d.SetItemString(f, attr, None); raised != nil {
			return nil, raised
		}
	}
	return None, d.SetItemString(f, "__doc__", doc)
}

func moduleNew(f *Frame, t *Type, args Args, kwargs KWArgs) (*Object, *BaseException) {
	o := newObject(t)
	if o.Dict() == nil {
		o.setDict(NewDict())
	}
	return o, nil
}

func moduleRepr(f *Frame, o *Object) (*Object, *BaseException) {
	m := toModuleUnsafe(o)
	name := "?"
	nameAttr, raised := m.GetName(f)
	if raised == nil {
		name = nameAttr.Value()
	} else {
		f.RestoreExc(nil, nil)
	}
	file := "(built-in)"
	fileAttr, raised := m.GetFilename(f)
	if raised == nil {
		file = fmt.Sprintf("from '%s'", fileAttr.Value())
	} else {
		f.RestoreExc(nil, nil)
	}
	return NewStr(fmt.Sprintf("<module '%s' %s>", name, file)).ToObject(), nil
}

func initModuleType(map[string]*Object) {
	ModuleType.slots.GetAttribute = &getAttributeSlot{moduleGetAttribute}
	ModuleType.slots.Init = &initSlot{moduleInit}
	ModuleType.slots.New = &newSlot{moduleNew}
	ModuleType.slots.Repr = &unaryOpSlot{moduleRepr}
}
