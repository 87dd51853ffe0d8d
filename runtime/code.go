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
	"reflect"
	"strings"

	"github.com/pycore/pycore/parser"
)

// CodeType is the object representing the Python 'code' type.
var CodeType = newBasisType("code", reflect.TypeOf(Code{}), ObjectType)

type codeKind int

const (
	codeModule codeKind = iota
	codeFunction
	codeClass
)

// Code represents Python 'code' objects: a compiled module, function or class
// body. Function code binds argNames positionally from the validated
// arguments of its ParamSpec.
type Code struct {
	Object
	name        string
	qualname    string
	filename    string
	firstlineno int
	kind        codeKind
	argNames    []string
	body        []parser.Stmt
	// lambda is set instead of body for lambda expressions.
	lambda      parser.Expr
	globalNames map[string]bool
	// localNames is only meaningful for function code. Names in it never
	// fall back to globals.
	localNames map[string]bool
	lines      []string
	children   map[parser.Node]*Code
}

// Compile parses src and returns the code object for it as a module body.
// Syntax errors are raised as SyntaxError, IndentationError or TabError.
func Compile(f *Frame, src, filename string) (*Code, *BaseException) {
	mod, err := parser.ParseFile(filename, src)
	if err != nil {
		return nil, raiseSyntaxError(f, err)
	}
	c := &Code{
		Object:      objectHeader(CodeType),
		name:        "<module>",
		qualname:    "<module>",
		filename:    filename,
		firstlineno: 1,
		kind:        codeModule,
		body:        mod.Body,
		globalNames: map[string]bool{},
		lines:       strings.Split(src, "\n"),
	}
	scanNames(mod.Body, map[string]bool{}, c.globalNames)
	return c, nil
}

func raiseSyntaxError(f *Frame, err error) *BaseException {
	var se *parser.SyntaxError
	if !errors.As(err, &se) {
		return f.RaiseType(SystemErrorType, err.Error())
	}
	t := SyntaxErrorType
	switch se.Kind {
	case parser.KindIndentationError:
		t = IndentationErrorType
	case parser.KindTabError:
		t = TabErrorType
	}
	offset := None
	if se.Offset > 0 {
		offset = NewInt(int64(se.Offset)).ToObject()
	}
	info := NewTuple(NewStr(se.Filename).ToObject(), NewInt(int64(se.Lineno)).ToObject(), offset, NewStr(se.Text).ToObject())
	args := NewTuple(NewStr(se.Msg).ToObject(), info.ToObject())
	return f.Raise(t.ToObject(), args.ToObject(), nil)
}

func toCodeUnsafe(o *Object) *Code {
	return (*Code)(o.toPointer())
}

// ToObject upcasts c to an Object.
func (c *Code) ToObject() *Object {
	return &c.Object
}

// Name returns the name of the function, class or "<module>".
func (c *Code) Name() string {
	return c.name
}

// Filename returns the file the code was compiled from.
func (c *Code) Filename() string {
	return c.filename
}

// sourceLine returns the stripped text of line lineno, or "".
func (c *Code) sourceLine(lineno int) string {
	if lineno < 1 || lineno > len(c.lines) {
		return ""
	}
	return strings.TrimSpace(c.lines[lineno-1])
}

// child returns the code object for a def, lambda or class nested in c,
// building it on first use.
func (c *Code) child(node parser.Node) *Code {
	if sub := c.children[node]; sub != nil {
		return sub
	}
	sub := &Code{
		Object:      objectHeader(CodeType),
		filename:    c.filename,
		firstlineno: node.Position().Line,
		kind:        codeFunction,
		globalNames: map[string]bool{},
		localNames:  map[string]bool{},
		lines:       c.lines,
	}
	var args *parser.Arguments
	switch n := node.(type) {
	case *parser.FunctionDef:
		sub.name, sub.body, args = n.Name, n.Body, n.Args
	case *parser.Lambda:
		sub.name, sub.lambda, args = "<lambda>", n.Body, n.Args
	case *parser.ClassDef:
		sub.name, sub.body, sub.kind = n.Name, n.Body, codeClass
	}
	switch c.kind {
	case codeFunction:
		sub.qualname = c.qualname + ".<locals>." + sub.name
	case codeClass:
		sub.qualname = c.qualname + "." + sub.name
	default:
		sub.qualname = sub.name
	}
	if args != nil {
		sub.argNames = argumentNames(args)
		for _, name := range sub.argNames {
			sub.localNames[name] = true
		}
	}
	scanNames(sub.body, sub.localNames, sub.globalNames)
	for name := range sub.globalNames {
		delete(sub.localNames, name)
	}
	if sub.kind == codeClass {
		sub.localNames = nil
	}
	if c.children == nil {
		c.children = map[parser.Node]*Code{}
	}
	c.children[node] = sub
	return sub
}

// argumentNames lists parameter names in the order ParamSpec.Names produces
// them.
func argumentNames(args *parser.Arguments) []string {
	var names []string
	for _, a := range args.Args {
		names = append(names, a.Name)
	}
	if args.Vararg != nil {
		names = append(names, args.Vararg.Name)
	}
	for _, a := range args.Kwonly {
		names = append(names, a.Name)
	}
	if args.Kwarg != nil {
		names = append(names, args.Kwarg.Name)
	}
	return names
}

// scanNames records the names bound and the names declared global by body
// without descending into nested function or class bodies.
func scanNames(body []parser.Stmt, bound, globals map[string]bool) {
	var target func(e parser.Expr)
	target = func(e parser.Expr) {
		switch t := e.(type) {
		case *parser.Name:
			bound[t.ID] = true
		case *parser.Starred:
			target(t.Value)
		case *parser.Tuple:
			for _, elt := range t.Elts {
				target(elt)
			}
		case *parser.List:
			for _, elt := range t.Elts {
				target(elt)
			}
		}
	}
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *parser.Assign:
			for _, t := range s.Targets {
				target(t)
			}
		case *parser.AugAssign:
			target(s.Target)
		case *parser.Delete:
			for _, t := range s.Targets {
				target(t)
			}
		case *parser.For:
			target(s.Target)
			scanNames(s.Body, bound, globals)
			scanNames(s.Orelse, bound, globals)
		case *parser.If:
			scanNames(s.Body, bound, globals)
			scanNames(s.Orelse, bound, globals)
		case *parser.While:
			scanNames(s.Body, bound, globals)
			scanNames(s.Orelse, bound, globals)
		case *parser.FunctionDef:
			bound[s.Name] = true
		case *parser.ClassDef:
			bound[s.Name] = true
		case *parser.Import:
			for _, a := range s.Names {
				bound[importBinding(a)] = true
			}
		case *parser.ImportFrom:
			for _, a := range s.Names {
				if a.Name != "*" {
					bound[importBinding(a)] = true
				}
			}
		case *parser.Global:
			for _, name := range s.Names {
				globals[name] = true
			}
		case *parser.Try:
			scanNames(s.Body, bound, globals)
			for _, h := range s.Handlers {
				if h.Name != "" {
					bound[h.Name] = true
				}
				scanNames(h.Body, bound, globals)
			}
			scanNames(s.Orelse, bound, globals)
			scanNames(s.Finalbody, bound, globals)
		}
	}
}

// importBinding returns the local name an import alias binds. A plain
// "import a.b" binds "a".
func importBinding(a *parser.Alias) string {
	if a.AsName != "" {
		return a.AsName
	}
	if i := strings.IndexByte(a.Name, '.'); i >= 0 {
		return a.Name[:i]
	}
	return a.Name
}

// Eval runs the function code c with the given globals after binding args and
// kwargs to the parameters described by params.
func (c *Code) Eval(f *Frame, globals *Dict, params *ParamSpec, args Args, kwargs KWArgs) (*Object, *BaseException) {
	validated := make([]*Object, params.Count)
	if raised := params.Validate(f, validated, args, kwargs); raised != nil {
		return nil, raised
	}
	if len(validated) != len(c.argNames) {
		format := "%s(): code expects %d arguments, parameters bind %d"
		return nil, f.RaiseType(SystemErrorType, fmt.Sprintf(format, c.name, len(c.argNames), len(validated)))
	}
	locals := NewDict()
	for i, name := range c.argNames {
		raised := locals.SetItemString(f, name, validated[i])
		if i == params.varArgIndex || i == params.kwArgIndex {
			DecRef(validated[i])
		}
		if raised != nil {
			DecRef(locals.ToObject())
			return nil, raised
		}
	}
	return c.run(f, globals, locals, true)
}

// Exec runs module or class body code with the given namespaces. For module
// code locals is normally globals.
func (c *Code) Exec(f *Frame, globals, locals *Dict) (*Object, *BaseException) {
	return c.run(f, globals, locals, false)
}

// run evaluates c in a new frame. When ownLocals is set the frame takes over
// the caller's reference to locals and releases it on return, after which
// the frame reports no locals. A result that only the locals kept alive is
// handed to the caller as a new reference.
func (c *Code) run(f *Frame, globals, locals *Dict, ownLocals bool) (result *Object, raised *BaseException) {
	ts := f.ts
	frame := newFrame(ts, f, c, globals, locals)
	prev := ts.frame
	ts.frame = frame
	defer func() {
		ts.frame = prev
		if !ownLocals {
			return
		}
		frame.locals = nil
		if result == nil {
			DecRef(locals.ToObject())
			return
		}
		IncRef(result)
		DecRef(locals.ToObject())
		if RefCount(result) > 1 {
			DecRef(result)
		}
	}()
	return ts.interp.evalFrame(ts, frame)
}

func codeGetName(f *Frame, o *Object) (*Object, *BaseException) {
	return NewStr(toCodeUnsafe(o).name).ToObject(), nil
}

func codeGetQualname(f *Frame, o *Object) (*Object, *BaseException) {
	return NewStr(toCodeUnsafe(o).qualname).ToObject(), nil
}

func codeGetFilename(f *Frame, o *Object) (*Object, *BaseException) {
	return NewStr(toCodeUnsafe(o).filename).ToObject(), nil
}

func codeGetFirstLineno(f *Frame, o *Object) (*Object, *BaseException) {
	return NewInt(int64(toCodeUnsafe(o).firstlineno)).ToObject(), nil
}

func codeGetVarnames(f *Frame, o *Object) (*Object, *BaseException) {
	c := toCodeUnsafe(o)
	names := make([]*Object, len(c.argNames))
	for i, name := range c.argNames {
		names[i] = NewStr(name).ToObject()
	}
	return NewTuple(names...).ToObject(), nil
}

func codeRepr(f *Frame, o *Object) (*Object, *BaseException) {
	c := toCodeUnsafe(o)
	return NewStr(fmt.Sprintf("<code object %s at %p, file %q, line %d>", c.name, c, c.filename, c.firstlineno)).ToObject(), nil
}

func initCodeType(dict map[string]*Object) {
	CodeType.flags &^= typeFlagInstantiable | typeFlagBasetype
	dict["co_name"] = newGetSetDescriptor(CodeType, "co_name", codeGetName, nil)
	dict["co_qualname"] = newGetSetDescriptor(CodeType, "co_qualname", codeGetQualname, nil)
	dict["co_filename"] = newGetSetDescriptor(CodeType, "co_filename", codeGetFilename, nil)
	dict["co_firstlineno"] = newGetSetDescriptor(CodeType, "co_firstlineno", codeGetFirstLineno, nil)
	dict["co_varnames"] = newGetSetDescriptor(CodeType, "co_varnames", codeGetVarnames, nil)
	CodeType.slots.Repr = &unaryOpSlot{codeRepr}
}
