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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	bootstrapFilename         = "<frozen importlib._bootstrap>"
	findAndLoadName           = "_find_and_load"
	callWithFramesRemovedName = "_call_with_frames_removed"
)

var errInittabFrozen = errors.New("inittab cannot be changed after initialization")

// InittabEntry names a natively defined module that can be imported without
// a source file. A nil Def marks a module that is present but populated some
// other way: importing it only creates an empty module.
type InittabEntry struct {
	Name string
	Def  *ModuleDef
}

func defaultInittab() []InittabEntry {
	return []InittabEntry{
		{"builtins", builtinsModuleDef},
		{"sys", sysModuleDef},
		{"signal", signalModuleDef},
		{"warnings", warningsModuleDef},
	}
}

// AppendInittab registers def as the builtin module name. It must be called
// before Initialize.
func AppendInittab(name string, def *ModuleDef) error {
	rt := &runtimeState
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.stage >= RuntimeCoreInitializing {
		return fmt.Errorf("append inittab %q: %w", name, errInittabFrozen)
	}
	if name == "" {
		return errors.New("append inittab: empty module name")
	}
	rt.inittab = append(rt.inittab, InittabEntry{name, def})
	return nil
}

// Inittab returns a copy of the builtin module table.
func Inittab() []InittabEntry {
	rt := &runtimeState
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return append([]InittabEntry(nil), rt.inittab...)
}

func findInittab(name string) (InittabEntry, bool) {
	rt := &runtimeState
	rt.mu.Lock()
	defer rt.mu.Unlock()
	for _, entry := range rt.inittab {
		if entry.Name == name {
			return entry, true
		}
	}
	return InittabEntry{}, false
}

// FixupExtensionObject records mod, created from a native definition, in the
// module table under name and in the process-wide extension cache under
// (origin, name). For a definition with Size -1 a copy of the namespace is
// kept so later imports replay it instead of running Exec again.
func FixupExtensionObject(f *Frame, mod *Module, name, origin string) *BaseException {
	if mod == nil || mod.def == nil {
		return f.ts.BadInternalCall(f)
	}
	def := mod.def
	interp := f.ts.interp
	if raised := interp.modules.SetItemString(f, name, mod.ToObject()); raised != nil {
		return raised
	}
	if raised := interp.AddModule(f, mod, def); raised != nil {
		removeModule(f, name)
		return raised
	}
	entry := &extensionEntry{def: def}
	if def.Size == -1 {
		c, raised := mod.Dict().Copy(f)
		if raised != nil {
			return raised
		}
		entry.copy = c
	}
	rt := &runtimeState
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.extensions == nil {
		rt.extensions = map[extensionKey]*extensionEntry{}
	}
	key := extensionKey{origin, name}
	if old := rt.extensions[key]; old != nil && old.copy != nil {
		DecRef(old.copy.ToObject())
	}
	rt.extensions[key] = entry
	return nil
}

// FindExtensionObject returns a module for the definition cached under
// (origin, name), registering it in the module table. A definition with Size
// -1 gets its captured namespace replayed into the module; any other
// definition is executed afresh. It returns nil without raising when nothing
// is cached.
func FindExtensionObject(f *Frame, name, origin string) (*Module, *BaseException) {
	rt := &runtimeState
	rt.mu.Lock()
	entry := rt.extensions[extensionKey{origin, name}]
	rt.mu.Unlock()
	if entry == nil {
		return nil, nil
	}
	def := entry.def
	interp := f.ts.interp
	var mod *Module
	if def.Size == -1 {
		if entry.copy == nil {
			return nil, nil
		}
		m, raised := ImportAddModule(f, name)
		if raised != nil {
			return nil, raised
		}
		if raised := m.Dict().Update(f, entry.copy.ToObject()); raised != nil {
			return nil, raised
		}
		m.def = def
		mod = m
	} else {
		m, raised := NewModuleFromDef(f, def)
		if raised != nil {
			return nil, raised
		}
		raised = interp.modules.SetItemString(f, name, m.ToObject())
		DecRef(m.ToObject())
		if raised != nil {
			return nil, raised
		}
		mod = m
	}
	if raised := interp.AddModule(f, mod, def); raised != nil {
		removeModule(f, name)
		return nil, raised
	}
	return mod, nil
}

// clearExtensions drops the extension cache at finalization.
func clearExtensions() {
	rt := &runtimeState
	rt.mu.Lock()
	extensions := rt.extensions
	rt.extensions = nil
	rt.mu.Unlock()
	for _, entry := range extensions {
		if entry.copy != nil {
			DecRef(entry.copy.ToObject())
		}
	}
}

// ImportAddModule returns the module registered as name, creating an empty
// one if there is none. The result is borrowed from the module table.
func ImportAddModule(f *Frame, name string) (*Module, *BaseException) {
	modules := f.ts.interp.modules
	if modules == nil {
		return nil, f.RaiseType(RuntimeErrorType, "no import module dictionary")
	}
	if o := modules.getItemStringNoError(name); o != nil && o.isInstance(ModuleType) {
		return toModuleUnsafe(o), nil
	}
	m := NewModule(name)
	raised := modules.SetItemString(f, name, m.ToObject())
	DecRef(m.ToObject())
	if raised != nil {
		return nil, raised
	}
	return m, nil
}

// removeModule deletes name from the module table, keeping the pending
// exception.
func removeModule(f *Frame, name string) {
	ts := f.ts
	typ, value, tb := ts.Fetch()
	if modules := ts.interp.modules; modules != nil {
		if _, raised := modules.DelItemString(f, name); raised != nil {
			ts.ClearErr()
		}
	}
	ts.Restore(typ, value, tb)
}

// ExecCodeModule runs code as the body of the module name, creating the
// module if needed. On failure the module is removed from the module table.
// It returns a new reference to the module.
func ExecCodeModule(f *Frame, name string, code *Code) (*Object, *BaseException) {
	interp := f.ts.interp
	m, raised := ImportAddModule(f, name)
	if raised != nil {
		return nil, raised
	}
	d := m.Dict()
	if raised := setModuleDefaults(f, d, code.filename); raised != nil {
		return nil, raised
	}
	if _, raised := code.Exec(f, d, d); raised != nil {
		removeModule(f, name)
		return nil, raised
	}
	o := interp.modules.getItemStringNoError(name)
	if o == nil {
		return nil, f.RaiseType(ImportErrorType, fmt.Sprintf("Loaded module %s not found in sys.modules", name))
	}
	return newRef(o), nil
}

// setModuleDefaults fills in __builtins__ and __file__ when d lacks them.
func setModuleDefaults(f *Frame, d *Dict, filename string) *BaseException {
	if b := f.ts.interp.builtins; b != nil && d.getItemStringNoError("__builtins__") == nil {
		if raised := d.SetItemString(f, "__builtins__", b.ToObject()); raised != nil {
			return raised
		}
	}
	if filename != "" && d.getItemStringNoError("__file__") == nil {
		s := NewStr(filename)
		raised := d.SetItemString(f, "__file__", s.ToObject())
		DecRef(s.ToObject())
		return raised
	}
	return nil
}

// ImportModule imports the module name and returns a new reference to it.
// Unlike the import statement, a dotted name yields the leaf module.
func ImportModule(f *Frame, name string) (*Object, *BaseException) {
	n := NewStr(name)
	defer DecRef(n.ToObject())
	top, raised := ImportModuleLevelObject(f, n.ToObject(), nil, nil, nil, 0)
	if raised != nil {
		return nil, raised
	}
	DecRef(top)
	o := f.ts.interp.modules.getItemStringNoError(name)
	if o == nil {
		return nil, f.Raise(KeyErrorType.ToObject(), n.ToObject(), nil)
	}
	return newRef(o), nil
}

// ImportModuleLevelObject implements __import__. Only absolute imports are
// supported. Without a fromlist, importing a dotted name returns the top
// level package; with one it returns the named module after importing any
// submodules the fromlist names. The result is a new reference.
func ImportModuleLevelObject(f *Frame, name, globals, locals, fromlist *Object, level int) (*Object, *BaseException) {
	mod, raised := importModuleLevel(f, name, fromlist, level)
	if raised != nil {
		removeImportFrames(f.ts)
		return nil, raised
	}
	return newRef(mod), nil
}

func importModuleLevel(f *Frame, name, fromlist *Object, level int) (*Object, *BaseException) {
	if name == nil {
		return nil, f.RaiseType(ValueErrorType, "Empty module name")
	}
	if !name.isInstance(StrType) {
		return nil, f.RaiseType(TypeErrorType, "module name must be a string")
	}
	if level < 0 {
		return nil, f.RaiseType(ValueErrorType, "level must be >= 0")
	}
	if level > 0 {
		return nil, f.RaiseType(ValueErrorType, "level must be == 0")
	}
	absName := toStrUnsafe(name).Value()
	if absName == "" {
		return nil, f.RaiseType(ValueErrorType, "Empty module name")
	}
	mod, raised := importFindAndLoad(f, absName)
	if raised != nil {
		return nil, raised
	}
	hasFrom := false
	if fromlist != nil && fromlist != None {
		if hasFrom, raised = IsTrue(f, fromlist); raised != nil {
			return nil, raised
		}
	}
	if hasFrom {
		if raised := handleFromlist(f, mod, fromlist, false); raised != nil {
			return nil, raised
		}
		return mod, nil
	}
	dot := strings.IndexByte(absName, '.')
	if dot < 0 {
		return mod, nil
	}
	front := absName[:dot]
	top := f.ts.interp.modules.getItemStringNoError(front)
	if top == nil {
		format := "'%s' not in sys.modules as expected"
		return nil, f.RaiseType(KeyErrorType, fmt.Sprintf(format, front))
	}
	return top, nil
}

// handleFromlist imports the submodules of the package mod named in
// fromlist that are not already attributes of it.
func handleFromlist(f *Frame, mod, fromlist *Object, recursive bool) *BaseException {
	d := mod.Dict()
	if d == nil || d.getItemStringNoError("__path__") == nil {
		return nil
	}
	pkgName := ""
	if n := d.getItemStringNoError("__name__"); n != nil && n.isInstance(StrType) {
		pkgName = toStrUnsafe(n).Value()
	}
	names, raised := seqToSlice(f, fromlist)
	if raised != nil {
		return raised
	}
	for _, x := range names {
		if !x.isInstance(StrType) {
			where := "``from list''"
			if recursive {
				where = pkgName + ".__all__"
			}
			format := "Item in %s must be str, not %s"
			return f.RaiseType(TypeErrorType, fmt.Sprintf(format, where, x.typ.Name()))
		}
		s := toStrUnsafe(x)
		if s.Value() == "*" {
			if recursive {
				continue
			}
			if all := d.getItemStringNoError("__all__"); all != nil {
				if raised := handleFromlist(f, mod, all, true); raised != nil {
					return raised
				}
			}
			continue
		}
		has, raised := HasAttr(f, mod, s)
		if raised != nil {
			return raised
		}
		if has {
			continue
		}
		subName := pkgName + "." + s.Value()
		if _, raised := importFindAndLoad(f, subName); raised != nil {
			if raised.isInstance(ModuleNotFoundErrorType) && importErrorName(raised) == subName {
				f.ts.ClearErr()
				continue
			}
			return raised
		}
	}
	return nil
}

func importErrorName(e *BaseException) string {
	if d := e.ToObject().Dict(); d != nil {
		if n := d.getItemStringNoError("name"); n != nil && n.isInstance(StrType) {
			return toStrUnsafe(n).Value()
		}
	}
	return ""
}

// importFindAndLoad returns the module absName from the module table,
// loading it first if needed. The result is borrowed.
func importFindAndLoad(f *Frame, absName string) (*Object, *BaseException) {
	ts := f.ts
	interp := ts.interp
	if interp.modules == nil {
		return nil, f.RaiseType(RuntimeErrorType, "no import module dictionary")
	}
	if mod, raised := cachedModule(f, absName); mod != nil || raised != nil {
		return mod, raised
	}
	interp.importLock.Lock(ts)
	defer interp.importLock.Unlock(ts)
	if mod, raised := cachedModule(f, absName); mod != nil || raised != nil {
		return mod, raised
	}
	frame := newBootstrapFrame(ts, f, findAndLoadName, 991)
	prev := ts.frame
	ts.frame = frame
	mod, raised := findAndLoad(frame, absName)
	ts.frame = prev
	if raised != nil {
		tracebackHere(frame)
	}
	return mod, raised
}

// cachedModule returns the module table entry for name. Modules still being
// initialized are returned as they are, which lets circular imports see a
// partially populated module.
func cachedModule(f *Frame, name string) (*Object, *BaseException) {
	mod := f.ts.interp.modules.getItemStringNoError(name)
	if mod == None {
		msg := fmt.Sprintf("import of %s halted; None in sys.modules", name)
		return nil, raiseImportError(f, ModuleNotFoundErrorType, msg, name)
	}
	return mod, nil
}

func raiseImportError(f *Frame, t *Type, msg, name string) *BaseException {
	m, n := NewStr(msg), NewStr(name)
	defer DecRef(m.ToObject())
	defer DecRef(n.ToObject())
	exc, raised := t.ToObject().Call(f, Args{m.ToObject()}, KWArgs{{"name", n.ToObject()}})
	if raised != nil {
		return raised
	}
	defer DecRef(exc)
	return f.Raise(exc, nil, nil)
}

func newBootstrapFrame(ts *ThreadState, back *Frame, name string, lineno int) *Frame {
	code := &Code{
		Object:      objectHeader(CodeType),
		name:        name,
		qualname:    name,
		filename:    bootstrapFilename,
		firstlineno: lineno,
		kind:        codeFunction,
	}
	return newFrame(ts, back, code, nil, nil)
}

func findAndLoad(f *Frame, absName string) (*Object, *BaseException) {
	interp := f.ts.interp
	parentName, leaf := "", absName
	var path []string
	if i := strings.LastIndexByte(absName, '.'); i >= 0 {
		parentName, leaf = absName[:i], absName[i+1:]
		parent, raised := importFindAndLoad(f, parentName)
		if raised != nil {
			return nil, raised
		}
		// Importing the parent may have imported this module too.
		if mod := interp.modules.getItemStringNoError(absName); mod != nil {
			return mod, nil
		}
		if path, raised = packagePath(f, parent, absName, parentName); raised != nil {
			return nil, raised
		}
	} else {
		if entry, ok := findInittab(absName); ok {
			return importBuiltin(f, absName, entry.Def)
		}
		path = interp.searchPath()
	}
	for _, dir := range path {
		file, pkgDir, ok := findSource(dir, leaf)
		if !ok {
			continue
		}
		mod, raised := loadSource(f, absName, parentName, file, pkgDir)
		if raised != nil {
			return nil, raised
		}
		if parentName != "" {
			if parent := interp.modules.getItemStringNoError(parentName); parent != nil {
				s := NewStr(leaf)
				raised := SetAttr(f, parent, s, mod)
				DecRef(s.ToObject())
				if raised != nil {
					return nil, raised
				}
			}
		}
		return mod, nil
	}
	return nil, raiseImportError(f, ModuleNotFoundErrorType, fmt.Sprintf("No module named '%s'", absName), absName)
}

// searchPath returns the directories searched for top level modules:
// sys.path, or the configured path before sys exists.
func (interp *InterpreterState) searchPath() []string {
	p := interp.sysObject("path")
	if p == nil || !p.isInstance(ListType) {
		if interp.config == nil {
			return nil
		}
		return interp.config.SearchPath
	}
	return strItems(toListUnsafe(p).elems)
}

func strItems(items []*Object) []string {
	var result []string
	for _, item := range items {
		if item.isInstance(StrType) {
			result = append(result, toStrUnsafe(item).Value())
		}
	}
	return result
}

func packagePath(f *Frame, parent *Object, absName, parentName string) ([]string, *BaseException) {
	var p *Object
	if d := parent.Dict(); d != nil {
		p = d.getItemStringNoError("__path__")
	}
	if p == nil {
		msg := fmt.Sprintf("No module named '%s'; '%s' is not a package", absName, parentName)
		return nil, raiseImportError(f, ModuleNotFoundErrorType, msg, absName)
	}
	items, raised := seqToSlice(f, p)
	if raised != nil {
		return nil, raised
	}
	return strItems(items), nil
}

// findSource looks for leaf in dir, preferring a package directory over a
// plain source file. pkgDir is empty unless a package was found.
func findSource(dir, leaf string) (file, pkgDir string, ok bool) {
	pkg := filepath.Join(dir, leaf)
	init := filepath.Join(pkg, "__init__.py")
	if fi, err := os.Stat(init); err == nil && fi.Mode().IsRegular() {
		return init, pkg, true
	}
	file = filepath.Join(dir, leaf+".py")
	if fi, err := os.Stat(file); err == nil && fi.Mode().IsRegular() {
		return file, "", true
	}
	return "", "", false
}

func importBuiltin(f *Frame, name string, def *ModuleDef) (*Object, *BaseException) {
	interp := f.ts.interp
	if def == nil {
		m, raised := ImportAddModule(f, name)
		if raised != nil {
			return nil, raised
		}
		return m.ToObject(), nil
	}
	m, raised := FindExtensionObject(f, name, name)
	if raised != nil {
		return nil, raised
	}
	if m != nil {
		interp.verbosef("import %s # previously loaded (%s)", name, name)
		return m.ToObject(), nil
	}
	if m, raised = NewModuleFromDef(f, def); raised != nil {
		return nil, raised
	}
	defer DecRef(m.ToObject())
	if def.Name != name {
		s := NewStr(name)
		raised := m.AddObject(f, "__name__", s.ToObject())
		DecRef(s.ToObject())
		if raised != nil {
			return nil, raised
		}
	}
	if raised := FixupExtensionObject(f, m, name, name); raised != nil {
		return nil, raised
	}
	interp.verbosef("import %s # builtin", name)
	return m.ToObject(), nil
}

// loadSource compiles and runs file as the module absName. The module is in
// the module table while its body runs and is removed again if the body
// fails.
func loadSource(f *Frame, absName, parentName, file, pkgDir string) (*Object, *BaseException) {
	ts := f.ts
	interp := ts.interp
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, raiseOSError(f, err)
	}
	m := NewModule(absName)
	d := m.Dict()
	pkg := parentName
	if pkgDir != "" {
		pkg = absName
		l := newStrList([]string{pkgDir})
		raised := d.SetItemString(f, "__path__", l.ToObject())
		DecRef(l.ToObject())
		if raised != nil {
			DecRef(m.ToObject())
			return nil, raised
		}
	}
	p := NewStr(pkg)
	raised := d.SetItemString(f, "__package__", p.ToObject())
	DecRef(p.ToObject())
	if raised == nil {
		raised = setModuleDefaults(f, d, file)
	}
	if raised == nil {
		raised = interp.modules.SetItemString(f, absName, m.ToObject())
	}
	DecRef(m.ToObject())
	if raised != nil {
		return nil, raised
	}
	interp.verbosef("import %s # from %s", absName, file)
	inner := newBootstrapFrame(ts, f, callWithFramesRemovedName, 219)
	prev := ts.frame
	ts.frame = inner
	raised = execSource(inner, string(src), file, d)
	ts.frame = prev
	if raised != nil {
		tracebackHere(inner)
		removeModule(f, absName)
		return nil, raised
	}
	mod := interp.modules.getItemStringNoError(absName)
	if mod == nil {
		return nil, f.RaiseType(ImportErrorType, fmt.Sprintf("Loaded module %s not found in sys.modules", absName))
	}
	return mod, nil
}

func execSource(f *Frame, src, filename string, d *Dict) *BaseException {
	code, raised := Compile(f, src, filename)
	if raised != nil {
		return raised
	}
	_, raised = code.Exec(f, d, d)
	return raised
}

func (interp *InterpreterState) verbosef(format string, args ...interface{}) {
	if interp.verbose != nil {
		interp.verbose.Printf(format, args...)
	}
}

// removeImportFrames drops the import machinery's frames from the pending
// exception's traceback. Runs of them are always removed for ImportError.
// Otherwise only runs ending in _call_with_frames_removed are removed, and
// nothing is removed in verbose mode.
func removeImportFrames(ts *ThreadState) {
	typ, value, tbObj := ts.Fetch()
	if typ == nil || tbObj == nil {
		ts.Restore(typ, value, tbObj)
		return
	}
	alwaysTrim := typ.isInstance(TypeType) && toTypeUnsafe(typ).isSubclass(ImportErrorType)
	if !alwaysTrim && ts.interp.config != nil && ts.interp.config.Verbose > 0 {
		ts.Restore(typ, value, tbObj)
		return
	}
	head := toTracebackUnsafe(tbObj)
	link := &head
	var outer **Traceback
	inImportlib := false
	for tb := head; tb != nil; {
		next := tb.next
		code := tb.frame.code
		now := code != nil && code.filename == bootstrapFilename
		if now && !inImportlib {
			outer = link
		}
		inImportlib = now
		if inImportlib && (alwaysTrim || code.name == callWithFramesRemovedName) {
			old := *outer
			*outer = next
			if next != nil {
				IncRef(next.ToObject())
			}
			DecRef(old.ToObject())
			link = outer
		} else {
			link = &tb.next
		}
		tb = next
	}
	var newTb *Object
	if head != nil {
		newTb = head.ToObject()
	}
	if value != nil && value.isInstance(BaseExceptionType) {
		toBaseExceptionUnsafe(value).traceback = head
	}
	ts.Restore(typ, value, newTb)
}
