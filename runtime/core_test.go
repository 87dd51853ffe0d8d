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
	"math"
	"testing"
)

func TestBinaryOps(t *testing.T) {
	fooType := newTestClass("Foo", []*Type{ObjectType}, newStringDict(map[string]*Object{
		"__add__": newBuiltinFunction("__add__", func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
			return NewStr("foo add").ToObject(), nil
		}).ToObject(),
		"__radd__": newBuiltinFunction("__radd__", func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
			return NewStr("foo radd").ToObject(), nil
		}).ToObject(),
	}))
	barType := newTestClass("Bar", []*Type{fooType}, newStringDict(map[string]*Object{
		"__radd__": newBuiltinFunction("__radd__", func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
			return NewStr("bar radd").ToObject(), nil
		}).ToObject(),
	}))
	bazType := newTestClass("Baz", []*Type{IntType}, newStringDict(map[string]*Object{
		"__rsub__": newBuiltinFunction("__rsub__", func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
			return NotImplemented, nil
		}).ToObject(),
	}))
	foo := newObject(fooType)
	bar := newObject(barType)
	baz := newObject(bazType)
	toIntUnsafe(baz).value = 4
	cases := []struct {
		fun     func(f *Frame, v, w *Object) (*Object, *BaseException)
		v, w    *Object
		want    *Object
		wantExc *BaseException
	}{
		{Add, NewInt(1).ToObject(), NewInt(2).ToObject(), NewInt(3).ToObject(), nil},
		{Add, NewInt(1).ToObject(), NewFloat(1.5).ToObject(), NewFloat(2.5).ToObject(), nil},
		{Add, NewStr("foo").ToObject(), NewStr("bar").ToObject(), NewStr("foobar").ToObject(), nil},
		{Add, foo, NewInt(1).ToObject(), NewStr("foo add").ToObject(), nil},
		{Add, NewInt(1).ToObject(), foo, NewStr("foo radd").ToObject(), nil},
		// A subclass operand's reflected method wins over the base's
		// forward method.
		{Add, foo, bar, NewStr("bar radd").ToObject(), nil},
		{Add, bar, foo, NewStr("foo add").ToObject(), nil},
		{Add, None, NewInt(1).ToObject(), nil, mustCreateException(TypeErrorType, "unsupported operand type(s) for +: 'NoneType' and 'int'")},
		{Sub, NewInt(10).ToObject(), baz, NewInt(6).ToObject(), nil},
		{Mul, NewStr("ab").ToObject(), NewInt(3).ToObject(), NewStr("ababab").ToObject(), nil},
		{Mul, NewInt(3).ToObject(), NewList(NewInt(1).ToObject()).ToObject(), NewList(NewInt(1).ToObject(), NewInt(1).ToObject(), NewInt(1).ToObject()).ToObject(), nil},
		{Mod, NewInt(-7).ToObject(), NewInt(3).ToObject(), NewInt(2).ToObject(), nil},
		{FloorDiv, NewInt(-7).ToObject(), NewInt(2).ToObject(), NewInt(-4).ToObject(), nil},
		{FloorDiv, NewInt(1).ToObject(), NewInt(0).ToObject(), nil, mustCreateException(ZeroDivisionErrorType, "integer division or modulo by zero")},
		{TrueDiv, NewInt(3).ToObject(), NewInt(2).ToObject(), NewFloat(1.5).ToObject(), nil},
	}
	for _, cas := range cases {
		testCase := invokeTestCase{args: wrapArgs(cas.v, cas.w), want: cas.want, wantExc: cas.wantExc}
		if err := runInvokeTestCase(wrapFuncForTest(cas.fun), &testCase); err != "" {
			t.Error(err)
		}
	}
}

func TestBinaryOpOverflow(t *testing.T) {
	f := NewRootFrame()
	_, raised := Add(f, NewInt(math.MaxInt64).ToObject(), NewInt(1).ToObject())
	if !exceptionsAreEquivalent(raised, mustCreateException(OverflowErrorType, "integer overflow")) {
		t.Errorf("Add(MaxInt64, 1) raised %v, want OverflowError", raised)
	}
}

func TestRichCompare(t *testing.T) {
	o := newObject(ObjectType)
	cases := []struct {
		v, w *Object
		op   CompareOp
		want bool
	}{
		{NewInt(1).ToObject(), NewInt(2).ToObject(), CompareLT, true},
		{NewInt(2).ToObject(), NewFloat(2).ToObject(), CompareEq, true},
		{NewStr("a").ToObject(), NewStr("b").ToObject(), CompareGE, false},
		// Objects without comparison slots fall back to identity.
		{o, o, CompareEq, true},
		{o, newObject(ObjectType), CompareEq, false},
		{o, newObject(ObjectType), CompareNE, true},
		{None, None, CompareEq, true},
		{NewTuple(NewInt(1).ToObject()).ToObject(), NewTuple(NewInt(1).ToObject(), NewInt(2).ToObject()).ToObject(), CompareLT, true},
	}
	f := NewRootFrame()
	for _, cas := range cases {
		got, raised := RichCompareBool(f, cas.v, cas.w, cas.op)
		if raised != nil {
			t.Errorf("RichCompareBool(%v, %v, %v) raised %v", cas.v, cas.w, cas.op, raised)
			continue
		}
		if got != cas.want {
			t.Errorf("RichCompareBool(%v, %v, %v) = %v, want %v", cas.v, cas.w, cas.op, got, cas.want)
		}
	}
}

func TestRichCompareUnorderable(t *testing.T) {
	f := NewRootFrame()
	_, raised := RichCompare(f, newObject(ObjectType), NewInt(1).ToObject(), CompareLT)
	want := mustCreateException(TypeErrorType, "'<' not supported between instances of 'object' and 'int'")
	if !exceptionsAreEquivalent(raised, want) {
		t.Errorf("RichCompare(object(), 1, <) raised %v, want %v", raised, want)
	}
}

func TestGetAttrSetAttr(t *testing.T) {
	f := NewRootFrame()
	fooType := newTestClass("Foo", []*Type{ObjectType}, NewDict())
	foo := newObject(fooType)
	name := NewStr("bar")
	if raised := SetAttr(f, foo, name, NewInt(42).ToObject()); raised != nil {
		t.Fatalf("SetAttr(foo, 'bar', 42) raised %v", raised)
	}
	got, raised := GetAttr(f, foo, name, nil)
	if raised != nil || got == nil || !got.isInstance(IntType) || toIntUnsafe(got).Value() != 42 {
		t.Errorf("GetAttr(foo, 'bar') = %v, %v, want 42, nil", got, raised)
	}
	if raised := DelAttr(f, foo, name); raised != nil {
		t.Fatalf("DelAttr(foo, 'bar') raised %v", raised)
	}
	_, raised = GetAttr(f, foo, name, nil)
	if !exceptionsAreEquivalent(raised, mustCreateException(AttributeErrorType, "'Foo' object has no attribute 'bar'")) {
		t.Errorf("GetAttr after DelAttr raised %v, want AttributeError", raised)
	}
	got, raised = GetAttr(f, foo, name, None)
	if raised != nil || got != None {
		t.Errorf("GetAttr(foo, 'bar', None) = %v, %v, want None, nil", got, raised)
	}
	if has, raised := HasAttr(f, foo, name); raised != nil || has {
		t.Errorf("HasAttr(foo, 'bar') = %v, %v, want false, nil", has, raised)
	}
}

func TestGetAttrDataDescriptorPriority(t *testing.T) {
	d, raised := runTestSource(NewRootFrame(), `
class Foo(object):
  def get(self):
    return 'property'
  bar = property(get)
foo = Foo()
foo.__dict__['bar'] = 'instance'
result = foo.bar
`)
	if raised != nil {
		t.Fatalf("running source raised %v", raised)
	}
	if got := testResult(d); got.String() != `"property"` {
		t.Errorf("foo.bar = %v, want 'property'", got)
	}
}

func TestIsTrue(t *testing.T) {
	cases := []struct {
		o    *Object
		want bool
	}{
		{None, false},
		{True.ToObject(), true},
		{NewInt(0).ToObject(), false},
		{NewInt(-3).ToObject(), true},
		{NewFloat(0).ToObject(), false},
		{NewStr("").ToObject(), false},
		{NewStr("a").ToObject(), true},
		{NewList().ToObject(), false},
		{NewTuple(None).ToObject(), true},
		{NewDict().ToObject(), false},
		{newObject(ObjectType), true},
	}
	f := NewRootFrame()
	for _, cas := range cases {
		got, raised := IsTrue(f, cas.o)
		if raised != nil || got != cas.want {
			t.Errorf("IsTrue(%v) = %v, %v, want %v, nil", cas.o, got, raised, cas.want)
		}
	}
}

func TestHash(t *testing.T) {
	f := NewRootFrame()
	for _, o := range []*Object{NewInt(7).ToObject(), NewStr("foo").ToObject(), NewTuple(NewInt(1).ToObject()).ToObject()} {
		h1, raised := Hash(f, o)
		if raised != nil {
			t.Fatalf("Hash(%v) raised %v", o, raised)
		}
		h2, raised := Hash(f, o)
		if raised != nil || h2.Value() != h1.Value() {
			t.Errorf("Hash(%v) is not stable: %v then %v", o, h1, h2)
		}
		if h1.Value() == -1 {
			t.Errorf("Hash(%v) = -1, which is reserved", o)
		}
	}
	_, raised := Hash(f, NewList().ToObject())
	if !exceptionsAreEquivalent(raised, mustCreateException(TypeErrorType, "unhashable type: 'list'")) {
		t.Errorf("Hash([]) raised %v, want TypeError", raised)
	}
}

func TestContains(t *testing.T) {
	f := NewRootFrame()
	cases := []struct {
		seq, v *Object
		want   bool
	}{
		{NewList(NewInt(1).ToObject(), NewInt(2).ToObject()).ToObject(), NewInt(2).ToObject(), true},
		{NewTuple(NewStr("a").ToObject()).ToObject(), NewStr("b").ToObject(), false},
		{NewStr("foobar").ToObject(), NewStr("oba").ToObject(), true},
		{newTestDict("a", 1).ToObject(), NewStr("a").ToObject(), true},
		{mustNotRaise(RangeType.ToObject().Call(f, wrapArgs(10), nil)), NewInt(9).ToObject(), true},
	}
	for _, cas := range cases {
		got, raised := Contains(f, cas.seq, cas.v)
		if raised != nil || got != cas.want {
			t.Errorf("Contains(%v, %v) = %v, %v, want %v, nil", cas.seq, cas.v, got, raised, cas.want)
		}
	}
}

func TestIndex(t *testing.T) {
	f := NewRootFrame()
	if i, raised := IndexInt(f, NewInt(12).ToObject()); raised != nil || i != 12 {
		t.Errorf("IndexInt(12) = %d, %v, want 12, nil", i, raised)
	}
	_, raised := Index(f, NewFloat(1.5).ToObject())
	want := mustCreateException(TypeErrorType, "'float' object cannot be interpreted as an integer")
	if !exceptionsAreEquivalent(raised, want) {
		t.Errorf("Index(1.5) raised %v, want %v", raised, want)
	}
	if b, raised := IndexInt(f, True.ToObject()); raised != nil || b != 1 {
		t.Errorf("IndexInt(True) = %d, %v, want 1, nil", b, raised)
	}
}

func TestIsInstance(t *testing.T) {
	f := NewRootFrame()
	fooType := newTestClass("Foo", []*Type{ObjectType}, NewDict())
	foo := newObject(fooType)
	cases := []struct {
		o, classinfo *Object
		want         bool
	}{
		{foo, fooType.ToObject(), true},
		{foo, ObjectType.ToObject(), true},
		{foo, IntType.ToObject(), false},
		{True.ToObject(), IntType.ToObject(), true},
		{foo, NewTuple(IntType.ToObject(), fooType.ToObject()).ToObject(), true},
	}
	for _, cas := range cases {
		got, raised := IsInstance(f, cas.o, cas.classinfo)
		if raised != nil || got != cas.want {
			t.Errorf("IsInstance(%v, %v) = %v, %v, want %v, nil", cas.o, cas.classinfo, got, raised, cas.want)
		}
	}
	_, raised := IsInstance(f, foo, NewInt(1).ToObject())
	if raised == nil || !raised.isInstance(TypeErrorType) {
		t.Errorf("IsInstance(foo, 1) raised %v, want TypeError", raised)
	}
}

func TestRepr(t *testing.T) {
	f := NewRootFrame()
	l := NewList()
	l.Append(l.ToObject())
	cases := []struct {
		o    *Object
		want string
	}{
		{None, "None"},
		{NewInt(-5).ToObject(), "-5"},
		{NewFloat(1.5).ToObject(), "1.5"},
		{NewStr("it's").ToObject(), `"it's"`},
		{NewTuple(NewInt(1).ToObject()).ToObject(), "(1,)"},
		{l.ToObject(), "[[...]]"},
		{IntType.ToObject(), "<class 'int'>"},
	}
	for _, cas := range cases {
		s, raised := Repr(f, cas.o)
		if raised != nil || s.Value() != cas.want {
			t.Errorf("Repr(%v) = %v, %v, want %q", cas.o, s, raised, cas.want)
		}
	}
}

func exceptionsAreEquivalent(e1 *BaseException, e2 *BaseException) bool {
	if e1 == nil && e2 == nil {
		return true
	}
	if e1 == nil || e2 == nil {
		return false
	}
	if e1.typ != e2.typ {
		return false
	}
	if e1.args == nil && e2.args == nil {
		return true
	}
	f := NewRootFrame()
	b, raised := IsTrue(f, mustNotRaise(Eq(f, e1.Args().ToObject(), e2.Args().ToObject())))
	if raised != nil {
		panic(raised)
	}
	return b
}

// wrapFuncForTest creates a callable object that invokes fun, passing the
// current frame as its first argument followed by caller provided args.
func wrapFuncForTest(fun interface{}) *Object {
	var fn Func
	switch fun := fun.(type) {
	case func(*Frame, *Object, *Object) (*Object, *BaseException):
		fn = func(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
			if raised := checkFunctionArgs(f, "test", args, ObjectType, ObjectType); raised != nil {
				return nil, raised
			}
			return fun(f, args[0], args[1])
		}
	case func(*Frame, *Object) (*Object, *BaseException):
		fn = func(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
			if raised := checkFunctionArgs(f, "test", args, ObjectType); raised != nil {
				return nil, raised
			}
			return fun(f, args[0])
		}
	case func(*Frame, ...*Object) (*Object, *BaseException):
		fn = func(f *Frame, args Args, _ KWArgs) (*Object, *BaseException) {
			return fun(f, args...)
		}
	case Func:
		fn = fun
	case func(*Frame, Args, KWArgs) (*Object, *BaseException):
		fn = fun
	default:
		panic(fmt.Sprintf("wrapFuncForTest: unsupported function type %T", fun))
	}
	return newBuiltinFunction("test", fn).ToObject()
}

func mustCreateException(t *Type, msg string) *BaseException {
	if !t.isSubclass(BaseExceptionType) {
		panic(fmt.Sprintf("type does not inherit from BaseException: %s", t.Name()))
	}
	args := Args{}
	if msg != "" {
		args = Args{NewStr(msg).ToObject()}
	}
	return toBaseExceptionUnsafe(mustNotRaise(t.ToObject().Call(NewRootFrame(), args, nil)))
}

func mustNotRaise(o *Object, raised *BaseException) *Object {
	if raised != nil {
		panic(raised)
	}
	return o
}

func newTestClass(name string, bases []*Type, dict *Dict) *Type {
	t, raised := newClass(NewRootFrame(), TypeType, name, bases, dict)
	if raised != nil {
		panic(raised)
	}
	return t
}
