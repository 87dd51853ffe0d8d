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
	"io"
	"regexp"
	"strconv"
	"strings"
)

var warningActions = map[string]bool{
	"always":  true,
	"default": true,
	"error":   true,
	"ignore":  true,
	"module":  true,
	"once":    true,
}

// warningsState is the per-interpreter warnings machinery: the filter list
// shared with warnings.filters and the registry of "once" warnings.
type warningsState struct {
	filters       *List
	onceRegistry  *Dict
	defaultAction string
}

var (
	warnParams = newParamSpecKW("warn", []Param{
		{Name: "message"},
		{Name: "category", Def: None},
		{Name: "stacklevel", Def: NewInt(1).ToObject()},
	}, false, nil, false)
	simpleFilterParams = newParamSpecKW("simplefilter", []Param{
		{Name: "action"},
		{Name: "category", Def: WarningType.ToObject()},
		{Name: "lineno", Def: NewInt(0).ToObject()},
		{Name: "append", Def: False.ToObject()},
	}, false, nil, false)
)

var warningsModuleDef = &ModuleDef{
	Name: "warnings",
	Doc:  "Issue and filter warning messages.",
	Methods: []ModuleMethod{
		{"resetwarnings", warningsResetWarnings},
		{"simplefilter", warningsSimpleFilter},
		{"warn", warningsWarn},
	},
	Exec: warningsExec,
}

func newWarningFilter(action string, message *Object, category *Type, module *Object, lineno int64) *Object {
	a := NewStr(action)
	n := NewInt(lineno)
	t := NewTuple(a.ToObject(), message, category.ToObject(), module, n.ToObject())
	DecRef(a.ToObject())
	DecRef(n.ToObject())
	return t.ToObject()
}

// getWarnings returns the interpreter's warnings state, creating it with the
// default filters followed by the configured warning options.
func (interp *InterpreterState) getWarnings(f *Frame) (*warningsState, *BaseException) {
	if interp.warnings != nil {
		return interp.warnings, nil
	}
	st := &warningsState{filters: NewList(), onceRegistry: NewDict(), defaultAction: "default"}
	devMode := interp.runtime.preConfig != nil && interp.runtime.preConfig.DevMode
	if !devMode {
		main := NewStr("__main__")
		defaults := []*Object{
			newWarningFilter("default", None, DeprecationWarningType, main.ToObject(), 0),
			newWarningFilter("ignore", None, DeprecationWarningType, None, 0),
			newWarningFilter("ignore", None, PendingDeprecationWarningType, None, 0),
			newWarningFilter("ignore", None, ImportWarningType, None, 0),
			newWarningFilter("ignore", None, ResourceWarningType, None, 0),
		}
		DecRef(main.ToObject())
		for _, filter := range defaults {
			st.filters.Append(filter)
			DecRef(filter)
		}
	}
	if interp.config != nil {
		for _, opt := range interp.config.WarnOptions {
			filter, raised := parseWarnOption(f, opt)
			if raised != nil {
				DecRef(st.filters.ToObject())
				DecRef(st.onceRegistry.ToObject())
				return nil, raised
			}
			st.filters.Insert(0, filter)
			DecRef(filter)
		}
	}
	interp.warnings = st
	return st, nil
}

// clearWarnings drops the filters and the once registry of interp.
func (interp *InterpreterState) clearWarnings() {
	st := interp.warnings
	if st == nil {
		return
	}
	interp.warnings = nil
	DecRef(st.filters.ToObject())
	DecRef(st.onceRegistry.ToObject())
}

// parseWarnOption parses action:message:category:module:lineno. Missing
// trailing fields match everything.
func parseWarnOption(f *Frame, opt string) (*Object, *BaseException) {
	parts := strings.SplitN(opt, ":", 5)
	for len(parts) < 5 {
		parts = append(parts, "")
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	action, raised := resolveWarningAction(f, parts[0])
	if raised != nil {
		return nil, raised
	}
	message, module := None, None
	if parts[1] != "" {
		message = NewStr(regexp.QuoteMeta(parts[1])).ToObject()
		defer DecRef(message)
	}
	category := WarningType
	if parts[2] != "" {
		category = nil
		for _, t := range ExceptionTypes {
			if t.Name() == parts[2] {
				category = t
				break
			}
		}
		if category == nil || !category.isSubclass(WarningType) {
			return nil, f.RaiseType(ValueErrorType, fmt.Sprintf("invalid warning category: %q", parts[2]))
		}
	}
	if parts[3] != "" {
		module = NewStr(regexp.QuoteMeta(parts[3]) + `\z`).ToObject()
		defer DecRef(module)
	}
	var lineno int64
	if parts[4] != "" {
		n, err := strconv.ParseInt(parts[4], 10, 64)
		if err != nil || n < 0 {
			return nil, f.RaiseType(ValueErrorType, fmt.Sprintf("invalid lineno %q", parts[4]))
		}
		lineno = n
	}
	return newWarningFilter(action, message, category, module, lineno), nil
}

// resolveWarningAction expands an action abbreviation such as "i" for
// "ignore".
func resolveWarningAction(f *Frame, action string) (string, *BaseException) {
	switch action {
	case "":
		return "default", nil
	case "all":
		return "always", nil
	}
	for _, a := range []string{"default", "always", "ignore", "module", "once", "error"} {
		if strings.HasPrefix(a, action) {
			return a, nil
		}
	}
	return "", f.RaiseType(ValueErrorType, fmt.Sprintf("invalid action: %q", action))
}

// warningPatternMatches reports whether pattern, a str regular expression
// or None, matches the start of s.
func warningPatternMatches(f *Frame, pattern *Object, s string, ignoreCase bool) (bool, *BaseException) {
	if pattern == None {
		return true, nil
	}
	if !pattern.isInstance(StrType) {
		return false, f.RaiseType(TypeErrorType, "warning filter pattern must be a str or None")
	}
	expr := `^(?:` + toStrUnsafe(pattern).Value() + `)`
	if ignoreCase {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return false, f.RaiseType(ValueErrorType, fmt.Sprintf("invalid warning filter pattern: %v", err))
	}
	return re.MatchString(s), nil
}

// filterAction returns the action of the first filter matching the warning.
func (st *warningsState) filterAction(f *Frame, text string, category *Type, module string, lineno int) (string, *BaseException) {
	for _, o := range st.filters.Elems() {
		if !o.isInstance(TupleType) || toTupleUnsafe(o).Len() != 5 {
			return "", f.RaiseType(ValueErrorType, "warnings.filters item isn't a 5-tuple")
		}
		elems := toTupleUnsafe(o).elems
		if !elems[0].isInstance(StrType) || !elems[2].isInstance(TypeType) || !elems[4].isInstance(IntType) {
			return "", f.RaiseType(TypeErrorType, "invalid warnings filter")
		}
		ok, raised := warningPatternMatches(f, elems[1], text, true)
		if raised != nil || !ok {
			if raised != nil {
				return "", raised
			}
			continue
		}
		if !category.isSubclass(toTypeUnsafe(elems[2])) {
			continue
		}
		if ok, raised = warningPatternMatches(f, elems[3], module, false); raised != nil {
			return "", raised
		} else if !ok {
			continue
		}
		if ln := toIntUnsafe(elems[4]).Value(); ln != 0 && ln != int64(lineno) {
			continue
		}
		return toStrUnsafe(elems[0]).Value(), nil
	}
	return st.defaultAction, nil
}

// alreadyWarned records key in registry and reports whether it was present.
func alreadyWarned(f *Frame, registry *Dict, key *Object) (bool, *BaseException) {
	v, raised := registry.GetItem(f, key)
	if raised != nil {
		return false, raised
	}
	if v != nil {
		return IsTrue(f, v)
	}
	return false, registry.SetItem(f, key, True.ToObject())
}

// Warn issues a warning of the given category attributed to the frame
// stacklevel levels up the call stack. If the matching filter turns
// warnings into errors the warning is raised.
func Warn(f *Frame, category *Type, msg string, stacklevel int) *BaseException {
	s := NewStr(msg)
	defer DecRef(s.ToObject())
	return warn(f, s.ToObject(), category, stacklevel)
}

func warn(f *Frame, message *Object, category *Type, stacklevel int) *BaseException {
	if message.isInstance(WarningType) {
		category = message.typ
	}
	if category == nil {
		category = UserWarningType
	}
	if !category.isSubclass(WarningType) {
		return f.RaiseType(TypeErrorType, fmt.Sprintf("category must be a Warning subclass, not '%s'", category.Name()))
	}
	interp := f.ts.interp
	st, raised := interp.getWarnings(f)
	if raised != nil {
		return raised
	}
	frame := f.ts.frame
	for ; stacklevel > 1 && frame != nil; stacklevel-- {
		frame = frame.back
	}
	filename, module, lineno := "sys", "sys", 1
	var globals *Dict
	if frame != nil && frame.code != nil {
		filename, lineno = frame.code.filename, frame.lineno
		globals = frame.globals
		module = "<string>"
		if n := globals.getItemStringNoError("__name__"); n != nil && n.isInstance(StrType) {
			module = toStrUnsafe(n).Value()
		}
	}
	text, raised := ToStr(f, message)
	if raised != nil {
		return raised
	}
	action, raised := st.filterAction(f, text.Value(), category, module, lineno)
	if raised != nil {
		return raised
	}
	if action == "error" {
		if message.isInstance(WarningType) {
			return f.Raise(message, nil, nil)
		}
		return f.Raise(category.ToObject(), message, nil)
	}
	if action == "ignore" {
		return nil
	}
	if !warningActions[action] {
		return f.RaiseType(RuntimeErrorType, fmt.Sprintf("Unrecognized action (%s) in warnings.filters:\n %s", action, action))
	}
	if action != "always" {
		lineKey := NewInt(int64(lineno))
		if action == "once" || action == "module" {
			lineKey = NewInt(0)
		}
		key := NewTuple(text.ToObject(), category.ToObject(), lineKey.ToObject())
		DecRef(lineKey.ToObject())
		registry := st.onceRegistry
		if action != "once" && globals != nil {
			registry, raised = warningRegistry(f, globals)
			if raised != nil {
				DecRef(key.ToObject())
				return raised
			}
		}
		warned := false
		if registry != nil {
			warned, raised = alreadyWarned(f, registry, key.ToObject())
		}
		DecRef(key.ToObject())
		if raised != nil || warned {
			return raised
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d: %s: %s\n", filename, lineno, category.Name(), text.Value())
	if frame != nil && frame.code != nil {
		if line := frame.code.sourceLine(lineno); line != "" {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	if _, err := io.WriteString(interp.errStream, b.String()); err != nil {
		return raiseOSError(f, err)
	}
	return nil
}

// warningRegistry returns the __warningregistry__ of a module namespace,
// creating it if needed.
func warningRegistry(f *Frame, globals *Dict) (*Dict, *BaseException) {
	if r := globals.getItemStringNoError("__warningregistry__"); r != nil && r.isInstance(DictType) {
		return toDictUnsafe(r), nil
	}
	r := NewDict()
	raised := globals.SetItemString(f, "__warningregistry__", r.ToObject())
	DecRef(r.ToObject())
	if raised != nil {
		return nil, raised
	}
	return r, nil
}

func warningsWarn(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	validated := make([]*Object, warnParams.Count)
	if raised := warnParams.Validate(f, validated, args, kwargs); raised != nil {
		return nil, raised
	}
	var category *Type
	if c := validated[1]; c != None {
		if !c.isInstance(TypeType) {
			return nil, f.RaiseType(TypeErrorType, fmt.Sprintf("category must be a Warning subclass, not '%s'", c.typ.Name()))
		}
		category = toTypeUnsafe(c)
	}
	stacklevel, raised := IndexInt(f, validated[2])
	if raised != nil {
		return nil, raised
	}
	if raised := warn(f, validated[0], category, stacklevel); raised != nil {
		return nil, raised
	}
	return None, nil
}

func warningsSimpleFilter(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	validated := make([]*Object, simpleFilterParams.Count)
	if raised := simpleFilterParams.Validate(f, validated, args, kwargs); raised != nil {
		return nil, raised
	}
	action, category, linenoArg, appendArg := validated[0], validated[1], validated[2], validated[3]
	if !action.isInstance(StrType) || !warningActions[toStrUnsafe(action).Value()] {
		s, _ := Repr(f, action)
		msg := "invalid action"
		if s != nil {
			msg = fmt.Sprintf("invalid action: %s", s.Value())
		}
		return nil, f.RaiseType(ValueErrorType, msg)
	}
	if !category.isInstance(TypeType) || !toTypeUnsafe(category).isSubclass(WarningType) {
		return nil, f.RaiseType(TypeErrorType, "category must be a Warning subclass")
	}
	lineno, raised := IndexInt(f, linenoArg)
	if raised != nil {
		return nil, raised
	}
	if lineno < 0 {
		return nil, f.RaiseType(ValueErrorType, "lineno must be an int >= 0")
	}
	appendFilter, raised := IsTrue(f, appendArg)
	if raised != nil {
		return nil, raised
	}
	st, raised := f.ts.interp.getWarnings(f)
	if raised != nil {
		return nil, raised
	}
	filter := newWarningFilter(toStrUnsafe(action).Value(), None, toTypeUnsafe(category), None, int64(lineno))
	if appendFilter {
		st.filters.Append(filter)
	} else {
		st.filters.Insert(0, filter)
	}
	DecRef(filter)
	return None, nil
}

func warningsResetWarnings(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "resetwarnings", args); raised != nil {
		return nil, raised
	}
	st, raised := f.ts.interp.getWarnings(f)
	if raised != nil {
		return nil, raised
	}
	for st.filters.Len() > 0 {
		if raised := st.filters.DelItem(f, st.filters.Len()-1); raised != nil {
			return nil, raised
		}
	}
	return None, nil
}

func warningsExec(f *Frame, m *Module) *BaseException {
	st, raised := f.ts.interp.getWarnings(f)
	if raised != nil {
		return raised
	}
	if raised := m.AddObject(f, "filters", st.filters.ToObject()); raised != nil {
		return raised
	}
	if raised := m.AddObject(f, "_onceregistry", st.onceRegistry.ToObject()); raised != nil {
		return raised
	}
	action := NewStr(st.defaultAction)
	raised = m.AddObject(f, "_defaultaction", action.ToObject())
	DecRef(action.ToObject())
	return raised
}
