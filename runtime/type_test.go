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
	"testing"
)

func TestTypeMRO(t *testing.T) {
	a := newTestClass("A", nil, NewDict())
	b := newTestClass("B", []*Type{a}, NewDict())
	c := newTestClass("C", []*Type{a}, NewDict())
	d := newTestClass("D", []*Type{b, c}, NewDict())
	cases := []struct {
		typ  *Type
		want []*Type
	}{
		{a, []*Type{a, ObjectType}},
		{b, []*Type{b, a, ObjectType}},
		{d, []*Type{d, b, c, a, ObjectType}},
		{BoolType, []*Type{BoolType, IntType, ObjectType}},
	}
	for _, cas := range cases {
		got := cas.typ.MRO()
		if len(got) != len(cas.want) {
			t.Errorf("%s.MRO() = %v, want %v", cas.typ.Name(), got, cas.want)
			continue
		}
		for i := range got {
			if got[i] != cas.want[i] {
				t.Errorf("%s.MRO() = %v, want %v", cas.typ.Name(), got, cas.want)
				break
			}
		}
	}
}

func TestNewClassErrors(t *testing.T) {
	a := newTestClass("A", nil, NewDict())
	cases := []struct {
		bases   []*Type
		wantExc *BaseException
	}{
		{[]*Type{BoolType}, mustCreateException(TypeErrorType, "type 'bool' is not an acceptable base type")},
		{[]*Type{FunctionType}, mustCreateException(TypeErrorType, "type 'function' is not an acceptable base type")},
		{[]*Type{a, a}, mustCreateException(TypeErrorType, "duplicate base class A")},
		{[]*Type{IntType, StrType}, mustCreateException(TypeErrorType, "multiple bases have instance lay-out conflict")},
	}
	for _, cas := range cases {
		f := NewRootFrame()
		_, raised := newClass(f, TypeType, "X", cas.bases, NewDict())
		if !exceptionsAreEquivalent(raised, cas.wantExc) {
			t.Errorf("newClass(%v) raised %v, want %v", cas.bases, raised, cas.wantExc)
		}
		f.ts.ClearErr()
	}
}

func TestClassCapabilities(t *testing.T) {
	f := NewRootFrame()
	d, raised := runTestSource(f, `class Plain:
  pass
class Indexed:
  def __getitem__(self, i):
    return i
class Sized:
  def __len__(self):
    return 3
class Added:
  def __add__(self, o):
    return 1
class Sub(Indexed):
  pass
`)
	if raised != nil {
		t.Fatal(raised)
	}
	cases := []struct {
		name                      string
		number, sequence, mapping bool
	}{
		{"Plain", false, false, false},
		{"Indexed", false, true, true},
		{"Sized", false, true, true},
		{"Added", true, false, false},
		{"Sub", false, true, true},
	}
	for _, cas := range cases {
		o := d.getItemStringNoError(cas.name)
		if o == nil || !o.isInstance(TypeType) {
			t.Errorf("%s is not a class: %v", cas.name, o)
			continue
		}
		slots := toTypeUnsafe(o).slots
		if got := slots.Number != nil; got != cas.number {
			t.Errorf("%s has number slots = %v, want %v", cas.name, got, cas.number)
		}
		if got := slots.Sequence != nil; got != cas.sequence {
			t.Errorf("%s has sequence slots = %v, want %v", cas.name, got, cas.sequence)
		}
		if got := slots.Mapping != nil; got != cas.mapping {
			t.Errorf("%s has mapping slots = %v, want %v", cas.name, got, cas.mapping)
		}
	}
}

func TestTypeSource(t *testing.T) {
	cases := []struct {
		src     string
		want    interface{}
		wantExc *BaseException
	}{
		{src: "result = type(1) is int, type(int) is type", want: newTestTuple(true, true)},
		{src: "X = type('X', (), {'a': 1})\nresult = X.a, X.__name__\n", want: newTestTuple(1, "X")},
		{src: "class A:\n  pass\nresult = repr(A)\n", want: "<class '__test__.A'>"},
		{src: "result = repr(int)", want: "<class 'int'>"},
		{src: "class A:\n  pass\nresult = A.__bases__ == (object,)\n", want: true},
		{src: "class A:\n  pass\nclass B(A):\n  pass\nclass C(A):\n  pass\nclass D(B, C):\n  pass\nresult = []\nfor k in D.__mro__:\n  result.append(k.__name__)\n", want: newTestList("D", "B", "C", "A", "object")},
		{src: "class A:\n  pass\nA.__name__ = 'B'\nresult = A.__name__\n", want: "B"},
		{src: "class A:\n  x = 1\nclass B(A):\n  pass\nresult = B.x, 'x' in B.__dict__\n", want: newTestTuple(1, false)},
		{src: "class M(type):\n  pass\nclass A(metaclass=M):\n  pass\nclass B(A):\n  pass\nresult = type(A) is M, type(B) is M\n", want: newTestTuple(true, true)},
		{src: "class A:\n  pass\nA.__add__ = lambda self, o: 42\nresult = A() + 1\n", want: 42},
		{src: "class A:\n  def __eq__(self, other):\n    return True\n  def __hash__(self):\n    return 7\nresult = hash(A())\n", want: 7},
		{src: "class A:\n  def __len__(self):\n    return 0\nresult = bool(A()), len(A())\n", want: newTestTuple(false, 0)},
		{src: "class A:\n  def __getitem__(self, k):\n    return k * 2\nresult = A()[3], A()['x']\n", want: newTestTuple(6, "xx")},
		{src: "class A:\n  pass\nA(1)\n", wantExc: mustCreateException(TypeErrorType, "A() takes no arguments")},
		{src: "int.x = 1", wantExc: mustCreateException(TypeErrorType, "can't set attributes of built-in/extension type 'int'")},
		{src: "type(1, 2)", wantExc: mustCreateException(TypeErrorType, "type() takes 1 or 3 arguments")},
		{src: "type(1, (), {})", wantExc: mustCreateException(TypeErrorType, "type.__new__() argument 1 must be str")},
		{src: "type('X', [], {})", wantExc: mustCreateException(TypeErrorType, "type.__new__() argument 2 must be tuple")},
		{src: "type('X', (), [])", wantExc: mustCreateException(TypeErrorType, "type.__new__() argument 3 must be dict")},
		{src: "type('X', (1,), {})", wantExc: mustCreateException(TypeErrorType, "bases must be types, not int")},
		{src: "class A(bool):\n  pass\n", wantExc: mustCreateException(TypeErrorType, "type 'bool' is not an acceptable base type")},
		{src: "class M1(type):\n  pass\nclass M2(type):\n  pass\nclass A(metaclass=M1):\n  pass\nclass B(metaclass=M2):\n  pass\nclass C(A, B):\n  pass\n", wantExc: mustCreateException(TypeErrorType, "metaclass conflict: the metaclass of a derived class must be a (non-strict) subclass of the metaclasses of all its bases")},
		{src: "class A:\n  def __init__(self):\n    return 1\nA()\n", wantExc: mustCreateException(TypeErrorType, "__init__() should return None, not 'int'")},
		{src: "class A:\n  def __eq__(self, other):\n    return True\nhash(A())\n", wantExc: mustCreateException(TypeErrorType, "unhashable type: 'A'")},
		{src: "class A:\n  pass\nA.missing\n", wantExc: mustCreateException(AttributeErrorType, "type object 'A' has no attribute 'missing'")},
		{src: "class A:\n  pass\nA().missing\n", wantExc: mustCreateException(AttributeErrorType, "'A' object has no attribute 'missing'")},
	}
	for _, cas := range cases {
		f := NewRootFrame()
		d, raised := runTestSource(f, cas.src)
		if cas.wantExc != nil || raised != nil {
			if !exceptionsAreEquivalent(raised, cas.wantExc) {
				t.Errorf("%q raised %v, want %v", cas.src, raised, cas.wantExc)
			}
			f.ts.ClearErr()
			continue
		}
		if err := checkEqual(f, testResult(d), wrapValue(cas.want)); err != "" {
			t.Errorf("%q: %s", cas.src, err)
		}
	}
}

func TestDescriptorSource(t *testing.T) {
	cases := []struct {
		src     string
		want    interface{}
		wantExc *BaseException
	}{
		{src: "class A:\n  def getx(self):\n    return self._x * 2\n  def setx(self, v):\n    self._x = v\n  x = property(getx, setx)\na = A()\na.x = 4\nresult = a.x\n", want: 8},
		{src: "class A:\n  def getx(self):\n    return 1\n  x = property(getx)\na = A()\na.__dict__['x'] = 5\nresult = a.x\n", want: 1},
		{src: "class A:\n  x = property()\nresult = type(A.x) is property\n", want: true},
		{src: "class A:\n  def getx(self):\n    return 1\n  x = property().getter(getx)\nresult = A().x\n", want: 1},
		{src: "class A:\n  def f(x):\n    return x\n  f = staticmethod(f)\nresult = A.f(3), A().f(4)\n", want: newTestTuple(3, 4)},
		{src: "class A:\n  def f(cls):\n    return cls.__name__\n  f = classmethod(f)\nclass B(A):\n  pass\nresult = A.f(), B().f()\n", want: newTestTuple("A", "B")},
		{src: "class A:\n  x = property()\nA().x\n", wantExc: mustCreateException(AttributeErrorType, "unreadable attribute")},
		{src: "class A:\n  def getx(self):\n    return 1\n  x = property(getx)\nA().x = 2\n", wantExc: mustCreateException(AttributeErrorType, "can't set attribute")},
		{src: "class A:\n  x = property()\na = A()\ndel a.x\n", wantExc: mustCreateException(AttributeErrorType, "can't delete attribute")},
	}
	for _, cas := range cases {
		f := NewRootFrame()
		d, raised := runTestSource(f, cas.src)
		if cas.wantExc != nil || raised != nil {
			if !exceptionsAreEquivalent(raised, cas.wantExc) {
				t.Errorf("%q raised %v, want %v", cas.src, raised, cas.wantExc)
			}
			f.ts.ClearErr()
			continue
		}
		if err := checkEqual(f, testResult(d), wrapValue(cas.want)); err != "" {
			t.Errorf("%q: %s", cas.src, err)
		}
	}
}

func TestMethodSource(t *testing.T) {
	cases := []struct {
		src     string
		want    interface{}
		wantExc *BaseException
	}{
		{src: "class A:\n  def f(self):\n    return 1\na = A()\nm = a.f\nresult = m.__self__ is a, m.__func__ is A.f, m.__name__\n", want: newTestTuple(true, true, "f")},
		{src: "class A:\n  def f(self):\n    pass\na = A()\nresult = a.f == a.f, a.f == A().f\n", want: newTestTuple(true, false)},
		{src: "class A:\n  def f(self):\n    pass\na = A()\nresult = hash(a.f) == hash(a.f)\n", want: true},
		{src: "class A:\n  def f(self):\n    pass\n  def __repr__(self):\n    return 'a'\nresult = repr(A().f)\n", want: "<bound method A.f of a>"},
		{src: "class A:\n  def f(self, x, y=2):\n    return x + y\nresult = A().f(1), A().f(1, y=5)\n", want: newTestTuple(3, 6)},
		{src: "class A:\n  def f(self):\n    pass\nA().f(1)\n", wantExc: mustCreateException(TypeErrorType, "f() takes 1 positional arguments but 2 were given")},
	}
	for _, cas := range cases {
		f := NewRootFrame()
		d, raised := runTestSource(f, cas.src)
		if cas.wantExc != nil || raised != nil {
			if !exceptionsAreEquivalent(raised, cas.wantExc) {
				t.Errorf("%q raised %v, want %v", cas.src, raised, cas.wantExc)
			}
			f.ts.ClearErr()
			continue
		}
		if err := checkEqual(f, testResult(d), wrapValue(cas.want)); err != "" {
			t.Errorf("%q: %s", cas.src, err)
		}
	}
}

func TestSuperSource(t *testing.T) {
	classes := "class A(object):\n  def f(self):\n    return 'A'\n  def g(cls):\n    return cls.__name__\n  g = classmethod(g)\n" +
		"class B(A):\n  def f(self):\n    return 'B' + super(B, self).f()\n" +
		"class C(A):\n  def f(self):\n    return 'C' + super(C, self).f()\n" +
		"class D(B, C):\n  def f(self):\n    return 'D' + super(D, self).f()\n"
	cases := []struct {
		src     string
		want    interface{}
		wantExc *BaseException
	}{
		{src: classes + "result = D().f()\n", want: "DBCA"},
		{src: classes + "result = super(B, D()).f()\n", want: "CA"},
		{src: classes + "result = super(B, D).g()\n", want: "D"},
		{src: classes + "d = D()\ns = super(B, d)\nresult = s.__thisclass__ is B, s.__self__ is d, s.__self_class__ is D\n", want: newTestTuple(true, true, true)},
		{src: classes + "result = super(D, D()).__class__ is super\n", want: true},
		{src: classes + "result = repr(super(B, D()))\n", want: "<super: <class 'B'>, <D object>>"},
		{src: classes + "super(A, A()).f()\n", wantExc: mustCreateException(AttributeErrorType, "'super' object has no attribute 'f'")},
		{src: classes + "super(B, A())\n", wantExc: mustCreateException(TypeErrorType, "super(type, obj): obj must be an instance or subtype of type")},
		{src: "super(1, 2)\n", wantExc: mustCreateException(TypeErrorType, "super() argument 1 must be type, not int")},
		{src: "super()\n", wantExc: mustCreateException(TypeErrorType, "super() takes exactly 2 arguments (0 given)")},
	}
	for _, cas := range cases {
		f := NewRootFrame()
		d, raised := runTestSource(f, cas.src)
		if cas.wantExc != nil || raised != nil {
			if !exceptionsAreEquivalent(raised, cas.wantExc) {
				t.Errorf("%q raised %v, want %v", cas.src, raised, cas.wantExc)
			}
			f.ts.ClearErr()
			continue
		}
		if err := checkEqual(f, testResult(d), wrapValue(cas.want)); err != "" {
			t.Errorf("%q: %s", cas.src, err)
		}
	}
}
