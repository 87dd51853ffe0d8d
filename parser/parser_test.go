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

package parser

import (
	"math/big"
	"strings"
	"testing"
)

func TestParseDump(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"", "Module(body=[])"},
		{"pass", "Module(body=[Pass()])"},
		{"x = 1", "Module(body=[Assign(targets=[Name(id='x', ctx=Store())], value=Constant(value=1))])"},
		{"a = b = 'c'", "Module(body=[Assign(targets=[Name(id='a', ctx=Store()), Name(id='b', ctx=Store())], value=Constant(value='c'))])"},
		{"a, *b = c", "Module(body=[Assign(targets=[Tuple(elts=[Name(id='a', ctx=Store()), Starred(value=Name(id='b', ctx=Store()), ctx=Store())], ctx=Store())], value=Name(id='c', ctx=Load()))])"},
		{"x += 2", "Module(body=[AugAssign(target=Name(id='x', ctx=Store()), op=Add(), value=Constant(value=2))])"},
		{"1 + 2 * 3", "Module(body=[Expr(value=BinOp(left=Constant(value=1), op=Add(), right=BinOp(left=Constant(value=2), op=Mult(), right=Constant(value=3))))])"},
		{"-x ** 2", "Module(body=[Expr(value=UnaryOp(op=USub(), operand=BinOp(left=Name(id='x', ctx=Load()), op=Pow(), right=Constant(value=2))))])"},
		{"a < b <= c", "Module(body=[Expr(value=Compare(left=Name(id='a', ctx=Load()), ops=[Lt(), LtE()], comparators=[Name(id='b', ctx=Load()), Name(id='c', ctx=Load())]))])"},
		{"a not in b is not c", "Module(body=[Expr(value=Compare(left=Name(id='a', ctx=Load()), ops=[NotIn(), IsNot()], comparators=[Name(id='b', ctx=Load()), Name(id='c', ctx=Load())]))])"},
		{"a or b and not c", "Module(body=[Expr(value=BoolOp(op=Or(), values=[Name(id='a', ctx=Load()), BoolOp(op=And(), values=[Name(id='b', ctx=Load()), UnaryOp(op=Not(), operand=Name(id='c', ctx=Load()))])]))])"},
		{"x if y else z", "Module(body=[Expr(value=IfExp(test=Name(id='y', ctx=Load()), body=Name(id='x', ctx=Load()), orelse=Name(id='z', ctx=Load())))])"},
		{"f(a, *b, c=1, **d)", "Module(body=[Expr(value=Call(func=Name(id='f', ctx=Load()), args=[Name(id='a', ctx=Load()), Starred(value=Name(id='b', ctx=Load()), ctx=Load())], keywords=[keyword(arg='c', value=Constant(value=1)), keyword(value=Name(id='d', ctx=Load()))]))])"},
		{"a.b[c]", "Module(body=[Expr(value=Subscript(value=Attribute(value=Name(id='a', ctx=Load()), attr='b', ctx=Load()), slice=Name(id='c', ctx=Load()), ctx=Load()))])"},
		{"(1,)", "Module(body=[Expr(value=Tuple(elts=[Constant(value=1)], ctx=Load()))])"},
		{"[1, 2]", "Module(body=[Expr(value=List(elts=[Constant(value=1), Constant(value=2)], ctx=Load()))])"},
		{"{'a': 1, **b}", "Module(body=[Expr(value=Dict(keys=[Constant(value='a'), None], values=[Constant(value=1), Name(id='b', ctx=Load())]))])"},
		{"'a' 'b'", "Module(body=[Expr(value=Constant(value='ab'))])"},
		{"None, True, ...", "Module(body=[Expr(value=Tuple(elts=[Constant(value=None), Constant(value=True), Constant(value=Ellipsis)], ctx=Load()))])"},
		{"1.5e3", "Module(body=[Expr(value=Constant(value=1500.0))])"},
		{"lambda x, y=1: x", "Module(body=[Expr(value=Lambda(args=arguments(args=[arg(arg='x'), arg(arg='y')], kwonlyargs=[], kw_defaults=[], defaults=[Constant(value=1)]), body=Name(id='x', ctx=Load())))])"},
		{"del a, b[0]", "Module(body=[Delete(targets=[Name(id='a', ctx=Del()), Subscript(value=Name(id='b', ctx=Load()), slice=Constant(value=0), ctx=Del())])])"},
		{"import a.b as c, d", "Module(body=[Import(names=[alias(name='a.b', asname='c'), alias(name='d')])])"},
		{"from .. import (x, y as z,)", "Module(body=[ImportFrom(names=[alias(name='x'), alias(name='y', asname='z')], level=2)])"},
		{"from a.b import *", "Module(body=[ImportFrom(module='a.b', names=[alias(name='*')], level=0)])"},
		{"global a, b", "Module(body=[Global(names=['a', 'b'])])"},
		{"raise E from c", "Module(body=[Raise(exc=Name(id='E', ctx=Load()), cause=Name(id='c', ctx=Load()))])"},
		{"raise", "Module(body=[Raise()])"},
		{"assert x, 'm'", "Module(body=[Assert(test=Name(id='x', ctx=Load()), msg=Constant(value='m'))])"},
		{"return", "Module(body=[Return()])"},
		{"a; b", "Module(body=[Expr(value=Name(id='a', ctx=Load())), Expr(value=Name(id='b', ctx=Load()))])"},
		{"if a:\n  b\nelif c:\n  d\nelse:\n  e\n", "Module(body=[If(test=Name(id='a', ctx=Load()), body=[Expr(value=Name(id='b', ctx=Load()))], orelse=[If(test=Name(id='c', ctx=Load()), body=[Expr(value=Name(id='d', ctx=Load()))], orelse=[Expr(value=Name(id='e', ctx=Load()))])])])"},
		{"while x: pass\nelse: y", "Module(body=[While(test=Name(id='x', ctx=Load()), body=[Pass()], orelse=[Expr(value=Name(id='y', ctx=Load()))])])"},
		{"for k, v in d:\n  break\n", "Module(body=[For(target=Tuple(elts=[Name(id='k', ctx=Store()), Name(id='v', ctx=Store())], ctx=Store()), iter=Name(id='d', ctx=Load()), body=[Break()], orelse=[])])"},
		{"def f(a, b=1, *args, c, d=2, **kw):\n  return a\n", "Module(body=[FunctionDef(name='f', args=arguments(args=[arg(arg='a'), arg(arg='b')], vararg=arg(arg='args'), kwonlyargs=[arg(arg='c'), arg(arg='d')], kw_defaults=[None, Constant(value=2)], kwarg=arg(arg='kw'), defaults=[Constant(value=1)]), body=[Return(value=Name(id='a', ctx=Load()))])])"},
		{"class C(B, metaclass=M):\n  x = 1\n", "Module(body=[ClassDef(name='C', bases=[Name(id='B', ctx=Load())], keywords=[keyword(arg='metaclass', value=Name(id='M', ctx=Load()))], body=[Assign(targets=[Name(id='x', ctx=Store())], value=Constant(value=1))])])"},
		{"try:\n  a\nexcept E as e:\n  b\nexcept:\n  c\nelse:\n  d\nfinally:\n  e\n", "Module(body=[Try(body=[Expr(value=Name(id='a', ctx=Load()))], handlers=[ExceptHandler(type=Name(id='E', ctx=Load()), name='e', body=[Expr(value=Name(id='b', ctx=Load()))]), ExceptHandler(body=[Expr(value=Name(id='c', ctx=Load()))])], orelse=[Expr(value=Name(id='d', ctx=Load()))], finalbody=[Expr(value=Name(id='e', ctx=Load()))])])"},
	}
	for _, cas := range cases {
		m, err := ParseString(cas.src)
		if err != nil {
			t.Errorf("ParseString(%q) failed: %v", cas.src, err)
			continue
		}
		if got := Dump(m); got != cas.want {
			t.Errorf("Dump(ParseString(%q)) =\n%s\nwant\n%s", cas.src, got, cas.want)
		}
	}
}

func TestParseBigInt(t *testing.T) {
	e, err := ParseExpr("<test>", "123456789012345678901234567890")
	if err != nil {
		t.Fatal(err)
	}
	c, ok := e.(*Constant)
	if !ok {
		t.Fatalf("ParseExpr returned %T, want *Constant", e)
	}
	want, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	if b, ok := c.Value.(*big.Int); !ok || b.Cmp(want) != 0 {
		t.Errorf("constant value = %v, want %v", c.Value, want)
	}
}

func TestParsePositions(t *testing.T) {
	m, err := ParseFile("foo.py", "x = 1\n\nif x:\n    y = f(x)\n")
	if err != nil {
		t.Fatal(err)
	}
	if m.Filename != "foo.py" {
		t.Errorf("Filename = %q, want foo.py", m.Filename)
	}
	ifStmt := m.Body[1].(*If)
	if got := ifStmt.Position(); got != (Pos{3, 0}) {
		t.Errorf("if position = %v, want {3 0}", got)
	}
	call := ifStmt.Body[0].(*Assign).Value.(*Call)
	if got := call.Position(); got != (Pos{4, 8}) {
		t.Errorf("call position = %v, want {4 8}", got)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		src    string
		kind   ErrorKind
		msg    string
		lineno int
		offset int
	}{
		{"x = = 1\n", KindSyntaxError, "invalid syntax", 1, 5},
		{"  x = 1\n", KindIndentationError, "unexpected indent", 1, 1},
		{"if x:\ny = 1\n", KindIndentationError, "expected an indented block", 2, 1},
		{"1 = x\n", KindSyntaxError, "cannot assign to literal", 1, 1},
		{"f() = x\n", KindSyntaxError, "cannot assign to function call", 1, 1},
		{"a + b += 1\n", KindSyntaxError, "'operator' is an illegal expression for augmented assignment", 1, 1},
		{"del f()\n", KindSyntaxError, "cannot delete function call", 1, 5},
		{"*a = b\n", KindSyntaxError, "starred assignment target must be in a list or tuple", 1, 1},
		{"f(a=1, b)\n", KindSyntaxError, "positional argument follows keyword argument", 1, 8},
		{"f(a=1, a=2)\n", KindSyntaxError, "keyword argument repeated", 1, 8},
		{"def f(a=1, b): pass\n", KindSyntaxError, "non-default argument follows default argument", 1, 12},
		{"def f(a, a): pass\n", KindSyntaxError, "duplicate argument 'a' in function definition", 1, 10},
		{"try:\n  a\nexcept:\n  b\nexcept E:\n  c\n", KindSyntaxError, "default 'except:' must be last", 3, 1},
		{"from a import b,\n", KindSyntaxError, "trailing comma not allowed without surrounding parentheses", 1, 17},
		{"x = (1 +\n", KindSyntaxError, "unexpected EOF while parsing", 2, 1},
		{"def f(:\n", KindSyntaxError, "invalid syntax", 1, 7},
		{"x = (1,\n", KindSyntaxError, "unexpected EOF while parsing", 2, 1},
		{"f(a b\n  c)\n", KindSyntaxError, "invalid syntax", 1, 5},
	}
	for _, cas := range cases {
		_, err := ParseFile("<test>", cas.src)
		se, ok := err.(*SyntaxError)
		if !ok {
			t.Errorf("ParseFile(%q) error = %v, want *SyntaxError", cas.src, err)
			continue
		}
		if se.Kind != cas.kind || se.Msg != cas.msg || se.Lineno != cas.lineno || se.Offset != cas.offset {
			t.Errorf("ParseFile(%q) error = %v %q at %d:%d, want %v %q at %d:%d", cas.src, se.Kind, se.Msg, se.Lineno, se.Offset, cas.kind, cas.msg, cas.lineno, cas.offset)
		}
		if se.Filename != "<test>" {
			t.Errorf("ParseFile(%q) error filename = %q, want <test>", cas.src, se.Filename)
		}
		if want := sourceLine(cas.src, cas.lineno); se.Text != want {
			t.Errorf("ParseFile(%q) error text = %q, want %q", cas.src, se.Text, want)
		}
	}
}

func TestSyntaxErrorString(t *testing.T) {
	_, err := ParseFile("foo.py", "x = = 1\n")
	if err == nil || !strings.HasPrefix(err.Error(), "invalid syntax (foo.py, line 1)") {
		t.Errorf("error = %v, want invalid syntax (foo.py, line 1)", err)
	}
}
