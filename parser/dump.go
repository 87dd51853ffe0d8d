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
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Dump renders a tree in the style of Python's ast.dump: fields that are
// absent are omitted and lists are always shown.
func Dump(n interface{}) string {
	var b strings.Builder
	d := dumper{&b}
	d.node(n)
	return b.String()
}

type dumper struct {
	b *strings.Builder
}

type field struct {
	name  string
	value interface{}
}

func (d dumper) call(name string, fields ...field) {
	d.b.WriteString(name)
	d.b.WriteByte('(')
	first := true
	for _, f := range fields {
		if f.value == nil || isNilNode(f.value) {
			continue
		}
		if !first {
			d.b.WriteString(", ")
		}
		first = false
		d.b.WriteString(f.name)
		d.b.WriteByte('=')
		d.value(f.value)
	}
	d.b.WriteByte(')')
}

func isNilNode(v interface{}) bool {
	switch v := v.(type) {
	case *Arg:
		return v == nil
	case *Arguments:
		return v == nil
	}
	return false
}

func (d dumper) value(v interface{}) {
	switch v := v.(type) {
	case string:
		d.b.WriteString(quote(v))
	case int:
		d.b.WriteString(strconv.Itoa(v))
	case []Stmt:
		d.list(len(v), func(i int) { d.node(v[i]) })
	case []Expr:
		d.list(len(v), func(i int) { d.node(v[i]) })
	case []string:
		d.list(len(v), func(i int) { d.b.WriteString(quote(v[i])) })
	case []*Alias:
		d.list(len(v), func(i int) { d.node(v[i]) })
	case []*Keyword:
		d.list(len(v), func(i int) { d.node(v[i]) })
	case []*ExceptHandler:
		d.list(len(v), func(i int) { d.node(v[i]) })
	case []*Arg:
		d.list(len(v), func(i int) { d.node(v[i]) })
	case []CmpOperator:
		d.list(len(v), func(i int) { d.b.WriteString(v[i].String() + "()") })
	case fmt.Stringer:
		d.b.WriteString(v.String() + "()")
	default:
		d.node(v)
	}
}

func (d dumper) list(n int, elem func(int)) {
	d.b.WriteByte('[')
	for i := 0; i < n; i++ {
		if i > 0 {
			d.b.WriteString(", ")
		}
		elem(i)
	}
	d.b.WriteByte(']')
}

func (d dumper) node(n interface{}) {
	switch n := n.(type) {
	case nil:
		d.b.WriteString("None")
	case *Module:
		d.call("Module", field{"body", n.Body})
	case *ExprStmt:
		d.call("Expr", field{"value", n.Value})
	case *Assign:
		d.call("Assign", field{"targets", n.Targets}, field{"value", n.Value})
	case *AugAssign:
		d.call("AugAssign", field{"target", n.Target}, field{"op", n.Op}, field{"value", n.Value})
	case *Delete:
		d.call("Delete", field{"targets", n.Targets})
	case *Pass:
		d.call("Pass")
	case *Break:
		d.call("Break")
	case *Continue:
		d.call("Continue")
	case *If:
		d.call("If", field{"test", n.Test}, field{"body", n.Body}, field{"orelse", n.Orelse})
	case *While:
		d.call("While", field{"test", n.Test}, field{"body", n.Body}, field{"orelse", n.Orelse})
	case *For:
		d.call("For", field{"target", n.Target}, field{"iter", n.Iter}, field{"body", n.Body}, field{"orelse", n.Orelse})
	case *FunctionDef:
		d.call("FunctionDef", field{"name", n.Name}, field{"args", n.Args}, field{"body", n.Body})
	case *Return:
		d.call("Return", field{"value", n.Value})
	case *ClassDef:
		d.call("ClassDef", field{"name", n.Name}, field{"bases", n.Bases}, field{"keywords", n.Keywords}, field{"body", n.Body})
	case *Import:
		d.call("Import", field{"names", n.Names})
	case *ImportFrom:
		var module interface{}
		if n.Module != "" {
			module = n.Module
		}
		d.call("ImportFrom", field{"module", module}, field{"names", n.Names}, field{"level", n.Level})
	case *Global:
		d.call("Global", field{"names", n.Names})
	case *Raise:
		d.call("Raise", field{"exc", n.Exc}, field{"cause", n.Cause})
	case *Try:
		d.call("Try", field{"body", n.Body}, field{"handlers", n.Handlers}, field{"orelse", n.Orelse}, field{"finalbody", n.Finalbody})
	case *ExceptHandler:
		var name interface{}
		if n.Name != "" {
			name = n.Name
		}
		d.call("ExceptHandler", field{"type", n.Type}, field{"name", name}, field{"body", n.Body})
	case *Assert:
		d.call("Assert", field{"test", n.Test}, field{"msg", n.Msg})
	case *Arguments:
		d.call("arguments", field{"args", n.Args}, field{"vararg", n.Vararg}, field{"kwonlyargs", n.Kwonly},
			field{"kw_defaults", n.KwDefaults}, field{"kwarg", n.Kwarg}, field{"defaults", n.Defaults})
	case *Arg:
		d.call("arg", field{"arg", n.Name})
	case *Alias:
		var as interface{}
		if n.AsName != "" {
			as = n.AsName
		}
		d.call("alias", field{"name", n.Name}, field{"asname", as})
	case *Keyword:
		var arg interface{}
		if n.Arg != "" {
			arg = n.Arg
		}
		d.call("keyword", field{"arg", arg}, field{"value", n.Value})
	case *Name:
		d.call("Name", field{"id", n.ID}, field{"ctx", n.Ctx})
	case *Constant:
		d.b.WriteString("Constant(value=")
		d.b.WriteString(constantRepr(n))
		d.b.WriteByte(')')
	case *UnaryOp:
		d.call("UnaryOp", field{"op", n.Op}, field{"operand", n.Operand})
	case *BinOp:
		d.call("BinOp", field{"left", n.Left}, field{"op", n.Op}, field{"right", n.Right})
	case *BoolOp:
		d.call("BoolOp", field{"op", n.Op}, field{"values", n.Values})
	case *Compare:
		d.call("Compare", field{"left", n.Left}, field{"ops", n.Ops}, field{"comparators", n.Comparators})
	case *IfExp:
		d.call("IfExp", field{"test", n.Test}, field{"body", n.Body}, field{"orelse", n.Orelse})
	case *Call:
		d.call("Call", field{"func", n.Func}, field{"args", n.Args}, field{"keywords", n.Keywords})
	case *Attribute:
		d.call("Attribute", field{"value", n.Value}, field{"attr", n.Attr}, field{"ctx", n.Ctx})
	case *Subscript:
		d.call("Subscript", field{"value", n.Value}, field{"slice", n.Index}, field{"ctx", n.Ctx})
	case *Starred:
		d.call("Starred", field{"value", n.Value}, field{"ctx", n.Ctx})
	case *Tuple:
		d.call("Tuple", field{"elts", n.Elts}, field{"ctx", n.Ctx})
	case *List:
		d.call("List", field{"elts", n.Elts}, field{"ctx", n.Ctx})
	case *Dict:
		d.call("Dict", field{"keys", n.Keys}, field{"values", n.Values})
	case *Lambda:
		d.call("Lambda", field{"args", n.Args}, field{"body", n.Body})
	default:
		fmt.Fprintf(d.b, "<%T>", n)
	}
}

func constantRepr(c *Constant) string {
	switch c.Kind {
	case NoneConst:
		return "None"
	case TrueConst:
		return "True"
	case FalseConst:
		return "False"
	case EllipsisConst:
		return "Ellipsis"
	case StrConst:
		return quote(c.Value.(string))
	case FloatConst:
		return formatFloat(c.Value.(float64))
	}
	switch v := c.Value.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case *big.Int:
		return v.String()
	}
	return fmt.Sprint(c.Value)
}

func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	switch s {
	case "+Inf":
		return "inf"
	case "-Inf":
		return "-inf"
	case "NaN":
		return "nan"
	}
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// quote returns s as a Python string literal, preferring single quotes.
func quote(s string) string {
	q := byte('\'')
	if strings.IndexByte(s, '\'') >= 0 && strings.IndexByte(s, '"') < 0 {
		q = '"'
	}
	var b strings.Builder
	b.WriteByte(q)
	for _, r := range s {
		switch {
		case r == rune(q) || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < ' ' || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(q)
	return b.String()
}
