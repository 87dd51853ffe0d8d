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

// Pos is the start of a node: a 1-based line and a 0-based byte column.
type Pos struct {
	Line, Col int
}

// Position returns p. It lets every node embed Pos to satisfy Node.
func (p Pos) Position() Pos {
	return p
}

// Node is implemented by every syntax tree node.
type Node interface {
	Position() Pos
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Context says whether an expression is read, assigned or deleted.
type Context int

// Expression contexts.
const (
	Load Context = iota
	Store
	Del
)

func (c Context) String() string {
	switch c {
	case Store:
		return "Store"
	case Del:
		return "Del"
	}
	return "Load"
}

// Module is the root of a parsed file.
type Module struct {
	Filename string
	Body     []Stmt
}

// Statements.
type (
	// ExprStmt evaluates an expression for its side effects.
	ExprStmt struct {
		Pos
		Value Expr
	}

	// Assign binds Value to every target, left to right.
	Assign struct {
		Pos
		Targets []Expr
		Value   Expr
	}

	// AugAssign is an in-place binary operation such as "x += 1".
	AugAssign struct {
		Pos
		Target Expr
		Op     Operator
		Value  Expr
	}

	Delete struct {
		Pos
		Targets []Expr
	}

	Pass struct {
		Pos
	}

	Break struct {
		Pos
	}

	Continue struct {
		Pos
	}

	If struct {
		Pos
		Test   Expr
		Body   []Stmt
		Orelse []Stmt
	}

	While struct {
		Pos
		Test   Expr
		Body   []Stmt
		Orelse []Stmt
	}

	For struct {
		Pos
		Target Expr
		Iter   Expr
		Body   []Stmt
		Orelse []Stmt
	}

	FunctionDef struct {
		Pos
		Name string
		Args *Arguments
		Body []Stmt
	}

	// Return has a nil Value for a bare return.
	Return struct {
		Pos
		Value Expr
	}

	ClassDef struct {
		Pos
		Name     string
		Bases    []Expr
		Keywords []*Keyword
		Body     []Stmt
	}

	Import struct {
		Pos
		Names []*Alias
	}

	// ImportFrom has an empty Module for "from . import x". A single
	// alias named "*" means a star import.
	ImportFrom struct {
		Pos
		Module string
		Names  []*Alias
		Level  int
	}

	Global struct {
		Pos
		Names []string
	}

	// Raise has a nil Exc for a bare re-raise.
	Raise struct {
		Pos
		Exc   Expr
		Cause Expr
	}

	Try struct {
		Pos
		Body      []Stmt
		Handlers  []*ExceptHandler
		Orelse    []Stmt
		Finalbody []Stmt
	}

	Assert struct {
		Pos
		Test Expr
		Msg  Expr
	}
)

func (*ExprStmt) stmtNode()    {}
func (*Assign) stmtNode()      {}
func (*AugAssign) stmtNode()   {}
func (*Delete) stmtNode()      {}
func (*Pass) stmtNode()        {}
func (*Break) stmtNode()       {}
func (*Continue) stmtNode()    {}
func (*If) stmtNode()          {}
func (*While) stmtNode()       {}
func (*For) stmtNode()         {}
func (*FunctionDef) stmtNode() {}
func (*Return) stmtNode()      {}
func (*ClassDef) stmtNode()    {}
func (*Import) stmtNode()      {}
func (*ImportFrom) stmtNode()  {}
func (*Global) stmtNode()      {}
func (*Raise) stmtNode()       {}
func (*Try) stmtNode()         {}
func (*Assert) stmtNode()      {}

// ExceptHandler is one except clause. Type is nil for a bare except and Name
// is empty without an "as" clause.
type ExceptHandler struct {
	Pos
	Type Expr
	Name string
	Body []Stmt
}

// Arguments is the parameter list of a def or lambda. Defaults align with
// the last len(Defaults) entries of Args.
type Arguments struct {
	Args     []*Arg
	Defaults []Expr
	Vararg   *Arg
	Kwonly   []*Arg
	// KwDefaults aligns with Kwonly; a nil entry has no default.
	KwDefaults []Expr
	Kwarg      *Arg
}

type Arg struct {
	Pos
	Name string
}

// Alias is a name in an import statement. AsName is empty when absent.
type Alias struct {
	Name   string
	AsName string
}

// Keyword is a keyword argument; Arg is empty for "**mapping".
type Keyword struct {
	Pos
	Arg   string
	Value Expr
}

// Operator is a binary arithmetic or bitwise operator.
type Operator int

// Binary operators.
const (
	Add Operator = iota
	Sub
	Mult
	Div
	FloorDiv
	Mod
	Pow
	LShift
	RShift
	BitOr
	BitXor
	BitAnd
)

var operatorNames = []string{"Add", "Sub", "Mult", "Div", "FloorDiv", "Mod", "Pow", "LShift", "RShift", "BitOr", "BitXor", "BitAnd"}

func (op Operator) String() string {
	return operatorNames[op]
}

// UnaryOperator is a prefix operator.
type UnaryOperator int

// Unary operators.
const (
	Not UnaryOperator = iota
	UAdd
	USub
	Invert
)

func (op UnaryOperator) String() string {
	return [...]string{"Not", "UAdd", "USub", "Invert"}[op]
}

// BoolOperator is "and" or "or".
type BoolOperator int

// Boolean operators.
const (
	And BoolOperator = iota
	Or
)

func (op BoolOperator) String() string {
	if op == Or {
		return "Or"
	}
	return "And"
}

// CmpOperator is a comparison operator.
type CmpOperator int

// Comparison operators.
const (
	Eq CmpOperator = iota
	NotEq
	Lt
	LtE
	Gt
	GtE
	Is
	IsNot
	In
	NotIn
)

func (op CmpOperator) String() string {
	return [...]string{"Eq", "NotEq", "Lt", "LtE", "Gt", "GtE", "Is", "IsNot", "In", "NotIn"}[op]
}

// ConstKind classifies a Constant.
type ConstKind int

// Constant kinds.
const (
	NoneConst ConstKind = iota
	TrueConst
	FalseConst
	IntConst
	FloatConst
	StrConst
	EllipsisConst
)

// Expressions.
type (
	Name struct {
		Pos
		ID  string
		Ctx Context
	}

	// Constant is a literal. Value is nil, a bool, an int64, a *big.Int
	// for integers beyond 64 bits, a float64 or a string according to
	// Kind.
	Constant struct {
		Pos
		Kind  ConstKind
		Value interface{}
	}

	UnaryOp struct {
		Pos
		Op      UnaryOperator
		Operand Expr
	}

	BinOp struct {
		Pos
		Left  Expr
		Op    Operator
		Right Expr
	}

	BoolOp struct {
		Pos
		Op     BoolOperator
		Values []Expr
	}

	// Compare is a comparison chain: Left Ops[0] Comparators[0] ...
	Compare struct {
		Pos
		Left        Expr
		Ops         []CmpOperator
		Comparators []Expr
	}

	IfExp struct {
		Pos
		Test   Expr
		Body   Expr
		Orelse Expr
	}

	Call struct {
		Pos
		Func     Expr
		Args     []Expr
		Keywords []*Keyword
	}

	Attribute struct {
		Pos
		Value Expr
		Attr  string
		Ctx   Context
	}

	Subscript struct {
		Pos
		Value Expr
		Index Expr
		Ctx   Context
	}

	// Starred is "*value" in a call or an assignment target list.
	Starred struct {
		Pos
		Value Expr
		Ctx   Context
	}

	Tuple struct {
		Pos
		Elts []Expr
		Ctx  Context
	}

	List struct {
		Pos
		Elts []Expr
		Ctx  Context
	}

	// Dict has a nil key for a "**mapping" entry.
	Dict struct {
		Pos
		Keys   []Expr
		Values []Expr
	}

	Lambda struct {
		Pos
		Args *Arguments
		Body Expr
	}
)

func (*Name) exprNode()      {}
func (*Constant) exprNode()  {}
func (*UnaryOp) exprNode()   {}
func (*BinOp) exprNode()     {}
func (*BoolOp) exprNode()    {}
func (*Compare) exprNode()   {}
func (*IfExp) exprNode()     {}
func (*Call) exprNode()      {}
func (*Attribute) exprNode() {}
func (*Subscript) exprNode() {}
func (*Starred) exprNode()   {}
func (*Tuple) exprNode()     {}
func (*List) exprNode()      {}
func (*Dict) exprNode()      {}
func (*Lambda) exprNode()    {}
