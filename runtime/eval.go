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
	"math/big"
	"strings"

	"github.com/pycore/pycore/parser"
)

// flow is how a statement completed.
type flow int

const (
	flowNormal flow = iota
	flowBreak
	flowContinue
	flowReturn
)

var binaryOperators = [...]BinaryOperator{
	parser.Add:      OpAdd,
	parser.Sub:      OpSub,
	parser.Mult:     OpMul,
	parser.Div:      OpTrueDiv,
	parser.FloorDiv: OpFloorDiv,
	parser.Mod:      OpMod,
	parser.Pow:      OpPow,
	parser.LShift:   OpLShift,
	parser.RShift:   OpRShift,
	parser.BitOr:    OpOr,
	parser.BitXor:   OpXor,
	parser.BitAnd:   OpAnd,
}

var compareOperators = [...]CompareOp{
	parser.Eq:    CompareEq,
	parser.NotEq: CompareNE,
	parser.Lt:    CompareLT,
	parser.LtE:   CompareLE,
	parser.Gt:    CompareGT,
	parser.GtE:   CompareGE,
}

// evaluator walks the syntax tree of one frame's code. It never releases
// the temporaries it creates.
type evaluator struct {
	f      *Frame
	code   *Code
	retval *Object
}

// defaultEvalFrame is the interpreter's default EvalFrameFunc. It runs the
// code of f by walking its syntax tree.
func defaultEvalFrame(ts *ThreadState, f *Frame) (*Object, *BaseException) {
	ev := &evaluator{f: f, code: f.code}
	if f.code.lambda != nil {
		v, raised := ev.expr(f.code.lambda)
		if raised != nil {
			tracebackHere(f)
			return nil, raised
		}
		return v, nil
	}
	fl, raised := ev.block(f.code.body)
	if raised != nil {
		return nil, raised
	}
	if fl == flowReturn {
		return ev.retval, nil
	}
	return None, nil
}

// handleEvalBreaker runs the work that set the eval breaker: tripped
// signals, pending calls and an asynchronous exception for this thread.
func handleEvalBreaker(f *Frame) *BaseException {
	ts := f.ts
	interp := ts.interp
	interp.evalBreaker.Store(false)
	if raised := CheckSignals(f); raised != nil {
		return raised
	}
	if raised := interp.makePendingCalls(f); raised != nil {
		return raised
	}
	if exc := ts.asyncExc; exc != nil {
		ts.asyncExc = nil
		raised := f.Raise(exc, nil, nil)
		DecRef(exc)
		return raised
	}
	if signalsTripped() || interp.hasPendingCalls() {
		interp.evalBreaker.Store(true)
	}
	return nil
}

func (ev *evaluator) block(body []parser.Stmt) (flow, *BaseException) {
	for _, s := range body {
		if fl, raised := ev.stmt(s); raised != nil || fl != flowNormal {
			return fl, raised
		}
	}
	return flowNormal, nil
}

func (ev *evaluator) stmt(s parser.Stmt) (flow, *BaseException) {
	f := ev.f
	f.lineno = s.Position().Line
	if f.ts.interp.evalBreaker.Load() {
		if raised := handleEvalBreaker(f); raised != nil {
			tracebackHere(f)
			return flowNormal, raised
		}
	}
	fl, raised := ev.exec(s)
	if raised != nil {
		tracebackHere(f)
	}
	return fl, raised
}

func (ev *evaluator) exec(stmt parser.Stmt) (flow, *BaseException) {
	f := ev.f
	switch s := stmt.(type) {
	case *parser.ExprStmt:
		_, raised := ev.expr(s.Value)
		return flowNormal, raised
	case *parser.Assign:
		v, raised := ev.expr(s.Value)
		if raised != nil {
			return flowNormal, raised
		}
		for _, t := range s.Targets {
			if raised := ev.assign(t, v); raised != nil {
				return flowNormal, raised
			}
		}
		return flowNormal, nil
	case *parser.AugAssign:
		return flowNormal, ev.augAssign(s)
	case *parser.Delete:
		for _, t := range s.Targets {
			if raised := ev.del(t); raised != nil {
				return flowNormal, raised
			}
		}
		return flowNormal, nil
	case *parser.Pass, *parser.Global:
		return flowNormal, nil
	case *parser.Break:
		return flowBreak, nil
	case *parser.Continue:
		return flowContinue, nil
	case *parser.If:
		ok, raised := ev.test(s.Test)
		if raised != nil {
			return flowNormal, raised
		}
		if ok {
			return ev.block(s.Body)
		}
		return ev.block(s.Orelse)
	case *parser.While:
		return ev.execWhile(s)
	case *parser.For:
		return ev.execFor(s)
	case *parser.FunctionDef:
		fun, raised := ev.makeFunction(s, s.Args)
		if raised != nil {
			return flowNormal, raised
		}
		return flowNormal, ev.storeName(s.Name, fun)
	case *parser.Return:
		ev.retval = None
		if s.Value != nil {
			v, raised := ev.expr(s.Value)
			if raised != nil {
				return flowNormal, raised
			}
			ev.retval = v
		}
		return flowReturn, nil
	case *parser.ClassDef:
		return flowNormal, ev.execClassDef(s)
	case *parser.Import:
		return flowNormal, ev.execImport(s)
	case *parser.ImportFrom:
		return flowNormal, ev.execImportFrom(s)
	case *parser.Raise:
		return flowNormal, ev.execRaise(s)
	case *parser.Try:
		return ev.execTry(s)
	case *parser.Assert:
		ok, raised := ev.test(s.Test)
		if raised != nil || ok {
			return flowNormal, raised
		}
		var args Args
		if s.Msg != nil {
			msg, raised := ev.expr(s.Msg)
			if raised != nil {
				return flowNormal, raised
			}
			args = Args{msg}
		}
		exc, raised := AssertionErrorType.ToObject().Call(f, args, nil)
		if raised != nil {
			return flowNormal, raised
		}
		return flowNormal, f.Raise(exc, nil, nil)
	}
	return flowNormal, f.RaiseType(SystemErrorType, fmt.Sprintf("unknown statement %T", stmt))
}

func (ev *evaluator) test(e parser.Expr) (bool, *BaseException) {
	v, raised := ev.expr(e)
	if raised != nil {
		return false, raised
	}
	return IsTrue(ev.f, v)
}

func (ev *evaluator) execWhile(s *parser.While) (flow, *BaseException) {
	for {
		ok, raised := ev.test(s.Test)
		if raised != nil {
			return flowNormal, raised
		}
		if !ok {
			return ev.block(s.Orelse)
		}
		fl, raised := ev.block(s.Body)
		if raised != nil || fl == flowReturn {
			return fl, raised
		}
		if fl == flowBreak {
			return flowNormal, nil
		}
	}
}

func (ev *evaluator) execFor(s *parser.For) (flow, *BaseException) {
	f := ev.f
	seq, raised := ev.expr(s.Iter)
	if raised != nil {
		return flowNormal, raised
	}
	iter, raised := Iter(f, seq)
	if raised != nil {
		return flowNormal, raised
	}
	for {
		item, raised := Next(f, iter)
		if raised != nil {
			if !raised.isInstance(StopIterationType) {
				return flowNormal, raised
			}
			f.ts.ClearErr()
			return ev.block(s.Orelse)
		}
		if raised := ev.assign(s.Target, item); raised != nil {
			return flowNormal, raised
		}
		fl, raised := ev.block(s.Body)
		if raised != nil || fl == flowReturn {
			return fl, raised
		}
		if fl == flowBreak {
			return flowNormal, nil
		}
	}
}

// makeFunction evaluates the defaults of a def or lambda and returns the new
// function object.
func (ev *evaluator) makeFunction(node parser.Node, args *parser.Arguments) (*Object, *BaseException) {
	code := ev.code.child(node)
	params := make([]Param, len(args.Args))
	firstDefault := len(args.Args) - len(args.Defaults)
	for i, a := range args.Args {
		params[i].Name = a.Name
		if i >= firstDefault {
			def, raised := ev.expr(args.Defaults[i-firstDefault])
			if raised != nil {
				return nil, raised
			}
			params[i].Def = def
		}
	}
	kwOnly := make([]Param, len(args.Kwonly))
	for i, a := range args.Kwonly {
		kwOnly[i].Name = a.Name
		if i < len(args.KwDefaults) && args.KwDefaults[i] != nil {
			def, raised := ev.expr(args.KwDefaults[i])
			if raised != nil {
				return nil, raised
			}
			kwOnly[i].Def = def
		}
	}
	spec := newParamSpecKW(code.name, params, args.Vararg != nil, kwOnly, args.Kwarg != nil)
	return NewFunction(code, spec, ev.f.globals).ToObject(), nil
}

func (ev *evaluator) execClassDef(s *parser.ClassDef) *BaseException {
	f := ev.f
	bases, raised := ev.exprList(s.Bases)
	if raised != nil {
		return raised
	}
	var meta *Object
	var kwargs KWArgs
	for _, kw := range s.Keywords {
		v, raised := ev.expr(kw.Value)
		if raised != nil {
			return raised
		}
		if kw.Arg == "metaclass" {
			meta = v
			continue
		}
		kwargs = append(kwargs, KWArg{kw.Arg, v})
	}
	if meta == nil {
		meta = TypeType.ToObject()
		if len(bases) > 0 {
			meta = bases[0].typ.ToObject()
		}
	}
	code := ev.code.child(s)
	ns := NewDict()
	if name := f.globals.getItemStringNoError("__name__"); name != nil {
		if raised := ns.SetItem(f, moduleStr.ToObject(), name); raised != nil {
			return raised
		}
	}
	if raised := ns.SetItem(f, qualnameStr.ToObject(), NewStr(code.qualname).ToObject()); raised != nil {
		return raised
	}
	if _, raised := code.Exec(f, f.globals, ns); raised != nil {
		return raised
	}
	args := Args{NewStr(s.Name).ToObject(), NewTuple(bases...).ToObject(), ns.ToObject()}
	cls, raised := meta.Call(f, args, kwargs)
	if raised != nil {
		return raised
	}
	return ev.storeName(s.Name, cls)
}

func (ev *evaluator) importModule(name string, fromlist *Object, level int) (*Object, *BaseException) {
	f := ev.f
	return ImportModuleLevelObject(f, NewStr(name).ToObject(), f.globals.ToObject(), None, fromlist, level)
}

func (ev *evaluator) execImport(s *parser.Import) *BaseException {
	f := ev.f
	for _, a := range s.Names {
		mod, raised := ev.importModule(a.Name, None, 0)
		if raised != nil {
			return raised
		}
		if a.AsName == "" {
			if raised := ev.storeName(importBinding(a), mod); raised != nil {
				return raised
			}
			continue
		}
		for _, part := range strings.Split(a.Name, ".")[1:] {
			if mod, raised = GetAttr(f, mod, NewStr(part), nil); raised != nil {
				return raised
			}
		}
		if raised := ev.storeName(a.AsName, mod); raised != nil {
			return raised
		}
	}
	return nil
}

func (ev *evaluator) execImportFrom(s *parser.ImportFrom) *BaseException {
	f := ev.f
	names := make([]*Object, len(s.Names))
	for i, a := range s.Names {
		names[i] = NewStr(a.Name).ToObject()
	}
	mod, raised := ev.importModule(s.Module, NewTuple(names...).ToObject(), s.Level)
	if raised != nil {
		return raised
	}
	if len(s.Names) == 1 && s.Names[0].Name == "*" {
		return ev.importStar(mod)
	}
	for _, a := range s.Names {
		v, raised := GetAttr(f, mod, NewStr(a.Name), nil)
		if raised != nil {
			if !raised.isInstance(AttributeErrorType) {
				return raised
			}
			f.ts.ClearErr()
			return raiseCannotImport(f, mod, a.Name)
		}
		name := a.AsName
		if name == "" {
			name = a.Name
		}
		if raised := ev.storeName(name, v); raised != nil {
			return raised
		}
	}
	return nil
}

func raiseCannotImport(f *Frame, mod *Object, name string) *BaseException {
	modName, location := "<unknown module name>", "unknown location"
	if d := mod.Dict(); d != nil {
		if n := d.getItemStringNoError("__name__"); n != nil && n.isInstance(StrType) {
			modName = toStrUnsafe(n).Value()
		}
		if file := d.getItemStringNoError("__file__"); file != nil && file.isInstance(StrType) {
			location = toStrUnsafe(file).Value()
		}
	}
	msg := fmt.Sprintf("cannot import name '%s' from '%s' (%s)", name, modName, location)
	exc, raised := ImportErrorType.ToObject().Call(f, Args{NewStr(msg).ToObject()}, KWArgs{{"name", NewStr(modName).ToObject()}})
	if raised != nil {
		return raised
	}
	return f.Raise(exc, nil, nil)
}

// importStar binds the names listed in the module's __all__, or all its
// public names when __all__ is missing.
func (ev *evaluator) importStar(mod *Object) *BaseException {
	f := ev.f
	all, raised := GetAttr(f, mod, NewStr("__all__"), None)
	if raised != nil {
		return raised
	}
	var names []*Object
	if all != None {
		if names, raised = seqToSlice(f, all); raised != nil {
			return raised
		}
	} else if d := mod.Dict(); d != nil {
		for _, e := range d.entries() {
			if e.key.isInstance(StrType) && !strings.HasPrefix(toStrUnsafe(e.key).Value(), "_") {
				names = append(names, e.key)
			}
		}
	}
	for _, name := range names {
		if !name.isInstance(StrType) {
			format := "Item in %s.__all__ must be str, not %s"
			return f.RaiseType(TypeErrorType, fmt.Sprintf(format, mod.String(), name.typ.Name()))
		}
		v, raised := GetAttr(f, mod, toStrUnsafe(name), nil)
		if raised != nil {
			return raised
		}
		if raised := ev.storeName(toStrUnsafe(name).Value(), v); raised != nil {
			return raised
		}
	}
	return nil
}

// exceptionInstance returns o itself when it is an exception instance, or a
// new instance when it is an exception class.
func exceptionInstance(f *Frame, o *Object, msg string) (*BaseException, *BaseException) {
	if o.isInstance(BaseExceptionType) {
		return toBaseExceptionUnsafe(o), nil
	}
	if !isExceptionClass(o) {
		return nil, f.RaiseType(TypeErrorType, msg)
	}
	inst, raised := o.Call(f, nil, nil)
	if raised != nil {
		return nil, raised
	}
	if !inst.isInstance(BaseExceptionType) {
		format := "calling %s should have returned an instance of BaseException, not %s"
		return nil, f.RaiseType(TypeErrorType, fmt.Sprintf(format, toTypeUnsafe(o).Name(), inst.typ.Name()))
	}
	return toBaseExceptionUnsafe(inst), nil
}

func (ev *evaluator) execRaise(s *parser.Raise) *BaseException {
	f := ev.f
	if s.Exc == nil {
		return f.Raise(nil, nil, nil)
	}
	o, raised := ev.expr(s.Exc)
	if raised != nil {
		return raised
	}
	e, raised := exceptionInstance(f, o, notBaseExceptionMsg)
	if raised != nil {
		return raised
	}
	if s.Cause != nil {
		c, raised := ev.expr(s.Cause)
		if raised != nil {
			return raised
		}
		var cause *BaseException
		if c != None {
			if cause, raised = exceptionInstance(f, c, "exception causes must derive from BaseException"); raised != nil {
				return raised
			}
		}
		e.cause = cause
		e.suppressContext = true
	}
	return f.Raise(e.ToObject(), nil, nil)
}

func (ev *evaluator) execTry(s *parser.Try) (flow, *BaseException) {
	fl, raised := ev.block(s.Body)
	switch {
	case raised != nil && len(s.Handlers) > 0:
		fl, raised = ev.handle(s.Handlers)
	case raised == nil && fl == flowNormal:
		fl, raised = ev.block(s.Orelse)
	}
	if len(s.Finalbody) == 0 {
		return fl, raised
	}
	ts := ev.f.ts
	saved := ts.saveErr()
	if raised != nil {
		ts.PushExcInfo(raised)
	}
	retval := ev.retval
	ffl, fraised := ev.block(s.Finalbody)
	if raised != nil {
		ts.PopExcInfo()
	}
	if fraised != nil || ffl != flowNormal {
		// The finally clause's own exit wins over the pending one.
		XDecRef(saved.typ)
		XDecRef(saved.value)
		XDecRef(saved.tb)
		return ffl, fraised
	}
	ev.retval = retval
	ts.restoreErr(saved)
	return fl, raised
}

// handle runs the first except clause matching the pending exception. The
// exception stays pending when no clause matches.
func (ev *evaluator) handle(handlers []*parser.ExceptHandler) (flow, *BaseException) {
	f := ev.f
	ts := f.ts
	typ, value, tb := ts.Fetch()
	typ, value, tb = ts.NormalizeException(f, typ, value, tb)
	e := toBaseExceptionUnsafe(value)
	ts.PushExcInfo(e)
	defer func() {
		ts.PopExcInfo()
		XDecRef(typ)
		XDecRef(value)
		XDecRef(tb)
	}()
	for _, h := range handlers {
		if h.Type != nil {
			match, raised := ev.expr(h.Type)
			if raised != nil {
				return flowNormal, raised
			}
			if raised := checkExceptClause(f, match); raised != nil {
				return flowNormal, raised
			}
			if !GivenExceptionMatches(value, match) {
				continue
			}
		}
		if h.Name != "" {
			if raised := ev.storeName(h.Name, value); raised != nil {
				return flowNormal, raised
			}
		}
		fl, raised := ev.block(h.Body)
		if h.Name != "" {
			ev.unbindName(h.Name)
		}
		return fl, raised
	}
	ts.Restore(newRef(typ), newRef(value), newRef(tb))
	return flowNormal, e
}

func checkExceptClause(f *Frame, match *Object) *BaseException {
	if match.isInstance(TupleType) {
		for _, elem := range toTupleUnsafe(match).elems {
			if raised := checkExceptClause(f, elem); raised != nil {
				return raised
			}
		}
		return nil
	}
	if !isExceptionClass(match) {
		return f.RaiseType(TypeErrorType, "catching classes that do not inherit from BaseException is not allowed")
	}
	return nil
}

func (ev *evaluator) augAssign(s *parser.AugAssign) *BaseException {
	f := ev.f
	op := binaryOperators[s.Op]
	switch t := s.Target.(type) {
	case *parser.Name:
		cur, raised := ev.loadName(t.ID)
		if raised != nil {
			return raised
		}
		v, raised := ev.expr(s.Value)
		if raised != nil {
			return raised
		}
		result, raised := InplaceOp(f, cur, v, op)
		if raised != nil {
			return raised
		}
		return ev.storeName(t.ID, result)
	case *parser.Attribute:
		obj, raised := ev.expr(t.Value)
		if raised != nil {
			return raised
		}
		name := NewStr(t.Attr)
		cur, raised := GetAttr(f, obj, name, nil)
		if raised != nil {
			return raised
		}
		v, raised := ev.expr(s.Value)
		if raised != nil {
			return raised
		}
		result, raised := InplaceOp(f, cur, v, op)
		if raised != nil {
			return raised
		}
		return SetAttr(f, obj, name, result)
	case *parser.Subscript:
		obj, raised := ev.expr(t.Value)
		if raised != nil {
			return raised
		}
		key, raised := ev.expr(t.Index)
		if raised != nil {
			return raised
		}
		cur, raised := GetItem(f, obj, key)
		if raised != nil {
			return raised
		}
		v, raised := ev.expr(s.Value)
		if raised != nil {
			return raised
		}
		result, raised := InplaceOp(f, cur, v, op)
		if raised != nil {
			return raised
		}
		return SetItem(f, obj, key, result)
	}
	return f.RaiseType(SystemErrorType, fmt.Sprintf("invalid augmented assignment target %T", s.Target))
}

func (ev *evaluator) assign(target parser.Expr, v *Object) *BaseException {
	f := ev.f
	switch t := target.(type) {
	case *parser.Name:
		return ev.storeName(t.ID, v)
	case *parser.Attribute:
		obj, raised := ev.expr(t.Value)
		if raised != nil {
			return raised
		}
		return SetAttr(f, obj, NewStr(t.Attr), v)
	case *parser.Subscript:
		obj, raised := ev.expr(t.Value)
		if raised != nil {
			return raised
		}
		key, raised := ev.expr(t.Index)
		if raised != nil {
			return raised
		}
		return SetItem(f, obj, key, v)
	case *parser.Tuple:
		return ev.unpack(t.Elts, v)
	case *parser.List:
		return ev.unpack(t.Elts, v)
	}
	return f.RaiseType(SystemErrorType, fmt.Sprintf("invalid assignment target %T", target))
}

func (ev *evaluator) unpack(targets []parser.Expr, v *Object) *BaseException {
	f := ev.f
	if v.typ.slots.Iter == nil && (v.typ.slots.Sequence == nil || v.typ.slots.Sequence.Item == nil) {
		return f.RaiseType(TypeErrorType, fmt.Sprintf("cannot unpack non-iterable %s object", v.typ.Name()))
	}
	items, raised := seqToSlice(f, v)
	if raised != nil {
		return raised
	}
	star := -1
	for i, t := range targets {
		if _, ok := t.(*parser.Starred); ok {
			star = i
		}
	}
	if star < 0 {
		if len(items) > len(targets) {
			return f.RaiseType(ValueErrorType, fmt.Sprintf("too many values to unpack (expected %d)", len(targets)))
		}
		if len(items) < len(targets) {
			format := "not enough values to unpack (expected %d, got %d)"
			return f.RaiseType(ValueErrorType, fmt.Sprintf(format, len(targets), len(items)))
		}
		for i, t := range targets {
			if raised := ev.assign(t, items[i]); raised != nil {
				return raised
			}
		}
		return nil
	}
	after := len(targets) - star - 1
	if len(items) < star+after {
		format := "not enough values to unpack (expected at least %d, got %d)"
		return f.RaiseType(ValueErrorType, fmt.Sprintf(format, star+after, len(items)))
	}
	for i := 0; i < star; i++ {
		if raised := ev.assign(targets[i], items[i]); raised != nil {
			return raised
		}
	}
	rest := NewList(items[star : len(items)-after]...)
	if raised := ev.assign(targets[star].(*parser.Starred).Value, rest.ToObject()); raised != nil {
		return raised
	}
	for i := 0; i < after; i++ {
		if raised := ev.assign(targets[star+1+i], items[len(items)-after+i]); raised != nil {
			return raised
		}
	}
	return nil
}

func (ev *evaluator) del(target parser.Expr) *BaseException {
	f := ev.f
	switch t := target.(type) {
	case *parser.Name:
		return ev.delName(t.ID)
	case *parser.Attribute:
		obj, raised := ev.expr(t.Value)
		if raised != nil {
			return raised
		}
		return DelAttr(f, obj, NewStr(t.Attr))
	case *parser.Subscript:
		obj, raised := ev.expr(t.Value)
		if raised != nil {
			return raised
		}
		key, raised := ev.expr(t.Index)
		if raised != nil {
			return raised
		}
		return DelItem(f, obj, key)
	case *parser.Tuple:
		for _, elt := range t.Elts {
			if raised := ev.del(elt); raised != nil {
				return raised
			}
		}
		return nil
	case *parser.List:
		for _, elt := range t.Elts {
			if raised := ev.del(elt); raised != nil {
				return raised
			}
		}
		return nil
	}
	return f.RaiseType(SystemErrorType, fmt.Sprintf("invalid delete target %T", target))
}

// namespace returns the dict a name is bound in for stores and deletes.
func (ev *evaluator) namespace(name string) *Dict {
	if ev.code.globalNames[name] {
		return ev.f.globals
	}
	return ev.f.locals
}

func (ev *evaluator) storeName(name string, v *Object) *BaseException {
	return ev.namespace(name).SetItemString(ev.f, name, v)
}

func (ev *evaluator) delName(name string) *BaseException {
	f := ev.f
	found, raised := ev.namespace(name).DelItemString(f, name)
	if raised != nil || found {
		return raised
	}
	if ev.code.localNames[name] {
		return f.RaiseType(UnboundLocalErrorType, fmt.Sprintf("local variable '%s' referenced before assignment", name))
	}
	return f.RaiseType(NameErrorType, fmt.Sprintf("name '%s' is not defined", name))
}

// unbindName removes an except clause's target, ignoring a missing binding.
func (ev *evaluator) unbindName(name string) {
	if _, raised := ev.namespace(name).DelItemString(ev.f, name); raised != nil {
		ev.f.ts.ClearErr()
	}
}

func (ev *evaluator) loadName(name string) (*Object, *BaseException) {
	f := ev.f
	if ev.code.localNames[name] {
		if v := f.locals.getItemStringNoError(name); v != nil {
			return v, nil
		}
		return nil, f.RaiseType(UnboundLocalErrorType, fmt.Sprintf("local variable '%s' referenced before assignment", name))
	}
	if ev.code.kind != codeFunction && !ev.code.globalNames[name] && f.locals != f.globals {
		if v := f.locals.getItemStringNoError(name); v != nil {
			return v, nil
		}
	}
	if v := f.globals.getItemStringNoError(name); v != nil {
		return v, nil
	}
	if f.builtins != nil {
		if v := f.builtins.getItemStringNoError(name); v != nil {
			return v, nil
		}
	}
	return nil, f.RaiseType(NameErrorType, fmt.Sprintf("name '%s' is not defined", name))
}

func (ev *evaluator) expr(expr parser.Expr) (*Object, *BaseException) {
	f := ev.f
	switch e := expr.(type) {
	case *parser.Name:
		return ev.loadName(e.ID)
	case *parser.Constant:
		return constant(f, e)
	case *parser.UnaryOp:
		v, raised := ev.expr(e.Operand)
		if raised != nil {
			return nil, raised
		}
		switch e.Op {
		case parser.Not:
			b, raised := Not(f, v)
			if raised != nil {
				return nil, raised
			}
			return b.ToObject(), nil
		case parser.UAdd:
			return Pos(f, v)
		case parser.USub:
			return Neg(f, v)
		}
		return Invert(f, v)
	case *parser.BinOp:
		v, raised := ev.expr(e.Left)
		if raised != nil {
			return nil, raised
		}
		w, raised := ev.expr(e.Right)
		if raised != nil {
			return nil, raised
		}
		return BinaryOp(f, v, w, binaryOperators[e.Op])
	case *parser.BoolOp:
		var v *Object
		for i, operand := range e.Values {
			var raised *BaseException
			if v, raised = ev.expr(operand); raised != nil {
				return nil, raised
			}
			if i == len(e.Values)-1 {
				break
			}
			ok, raised := IsTrue(f, v)
			if raised != nil {
				return nil, raised
			}
			if ok == (e.Op == parser.Or) {
				break
			}
		}
		return v, nil
	case *parser.Compare:
		return ev.compare(e)
	case *parser.IfExp:
		ok, raised := ev.test(e.Test)
		if raised != nil {
			return nil, raised
		}
		if ok {
			return ev.expr(e.Body)
		}
		return ev.expr(e.Orelse)
	case *parser.Call:
		return ev.call(e)
	case *parser.Attribute:
		v, raised := ev.expr(e.Value)
		if raised != nil {
			return nil, raised
		}
		return GetAttr(f, v, NewStr(e.Attr), nil)
	case *parser.Subscript:
		v, raised := ev.expr(e.Value)
		if raised != nil {
			return nil, raised
		}
		key, raised := ev.expr(e.Index)
		if raised != nil {
			return nil, raised
		}
		return GetItem(f, v, key)
	case *parser.Tuple:
		elems, raised := ev.exprList(e.Elts)
		if raised != nil {
			return nil, raised
		}
		return NewTuple(elems...).ToObject(), nil
	case *parser.List:
		elems, raised := ev.exprList(e.Elts)
		if raised != nil {
			return nil, raised
		}
		return NewList(elems...).ToObject(), nil
	case *parser.Dict:
		return ev.dictDisplay(e)
	case *parser.Lambda:
		return ev.makeFunction(e, e.Args)
	}
	return nil, f.RaiseType(SystemErrorType, fmt.Sprintf("unknown expression %T", expr))
}

func constant(f *Frame, c *parser.Constant) (*Object, *BaseException) {
	switch c.Kind {
	case parser.NoneConst:
		return None, nil
	case parser.TrueConst:
		return True.ToObject(), nil
	case parser.FalseConst:
		return False.ToObject(), nil
	case parser.IntConst:
		if i, ok := c.Value.(int64); ok {
			return NewInt(i).ToObject(), nil
		}
		if _, ok := c.Value.(*big.Int); ok {
			return nil, f.RaiseType(OverflowErrorType, "Python int too large to convert to C long")
		}
	case parser.FloatConst:
		return NewFloat(c.Value.(float64)).ToObject(), nil
	case parser.StrConst:
		return NewStr(c.Value.(string)).ToObject(), nil
	case parser.EllipsisConst:
		return Ellipsis, nil
	}
	return nil, f.RaiseType(SystemErrorType, fmt.Sprintf("invalid constant %v", c.Value))
}

// exprList evaluates a display or argument list, expanding starred items.
func (ev *evaluator) exprList(exprs []parser.Expr) ([]*Object, *BaseException) {
	var result []*Object
	for _, e := range exprs {
		if s, ok := e.(*parser.Starred); ok {
			v, raised := ev.expr(s.Value)
			if raised != nil {
				return nil, raised
			}
			elems, raised := seqToSlice(ev.f, v)
			if raised != nil {
				return nil, raised
			}
			result = append(result, elems...)
			continue
		}
		v, raised := ev.expr(e)
		if raised != nil {
			return nil, raised
		}
		result = append(result, v)
	}
	return result, nil
}

func (ev *evaluator) compare(e *parser.Compare) (*Object, *BaseException) {
	f := ev.f
	left, raised := ev.expr(e.Left)
	if raised != nil {
		return nil, raised
	}
	var result *Object
	for i, op := range e.Ops {
		right, raised := ev.expr(e.Comparators[i])
		if raised != nil {
			return nil, raised
		}
		switch op {
		case parser.Is:
			result = GetBool(left == right).ToObject()
		case parser.IsNot:
			result = GetBool(left != right).ToObject()
		case parser.In, parser.NotIn:
			found, raised := Contains(f, right, left)
			if raised != nil {
				return nil, raised
			}
			result = GetBool(found == (op == parser.In)).ToObject()
		default:
			if result, raised = RichCompare(f, left, right, compareOperators[op]); raised != nil {
				return nil, raised
			}
		}
		if i == len(e.Ops)-1 {
			break
		}
		ok, raised := IsTrue(f, result)
		if raised != nil {
			return nil, raised
		}
		if !ok {
			break
		}
		left = right
	}
	return result, nil
}

func (ev *evaluator) call(e *parser.Call) (*Object, *BaseException) {
	f := ev.f
	fn, raised := ev.expr(e.Func)
	if raised != nil {
		return nil, raised
	}
	args, raised := ev.exprList(e.Args)
	if raised != nil {
		return nil, raised
	}
	var kwargs KWArgs
	add := func(name string, v *Object) *BaseException {
		if kwargs.get(name, nil) != nil {
			return f.RaiseType(TypeErrorType, fmt.Sprintf("got multiple values for keyword argument '%s'", name))
		}
		kwargs = append(kwargs, KWArg{name, v})
		return nil
	}
	for _, kw := range e.Keywords {
		v, raised := ev.expr(kw.Value)
		if raised != nil {
			return nil, raised
		}
		if kw.Arg != "" {
			if raised := add(kw.Arg, v); raised != nil {
				return nil, raised
			}
			continue
		}
		if !v.isInstance(DictType) {
			format := "argument after ** must be a mapping, not %s"
			return nil, f.RaiseType(TypeErrorType, fmt.Sprintf(format, v.typ.Name()))
		}
		for _, entry := range toDictUnsafe(v).entries() {
			if !entry.key.isInstance(StrType) {
				return nil, f.RaiseType(TypeErrorType, "keywords must be strings")
			}
			if raised := add(toStrUnsafe(entry.key).Value(), entry.value); raised != nil {
				return nil, raised
			}
		}
	}
	return fn.Call(f, args, kwargs)
}

func (ev *evaluator) dictDisplay(e *parser.Dict) (*Object, *BaseException) {
	f := ev.f
	d := NewDict()
	for i, k := range e.Keys {
		if k == nil {
			v, raised := ev.expr(e.Values[i])
			if raised != nil {
				return nil, raised
			}
			if !v.isInstance(DictType) {
				return nil, f.RaiseType(TypeErrorType, fmt.Sprintf("'%s' object is not a mapping", v.typ.Name()))
			}
			if raised := d.Update(f, v); raised != nil {
				return nil, raised
			}
			continue
		}
		key, raised := ev.expr(k)
		if raised != nil {
			return nil, raised
		}
		v, raised := ev.expr(e.Values[i])
		if raised != nil {
			return nil, raised
		}
		if raised := d.SetItem(f, key, v); raised != nil {
			return nil, raised
		}
	}
	return d.ToObject(), nil
}
