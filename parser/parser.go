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

type ruleID int

const (
	ruleBlock ruleID = iota
	ruleExpression
	ruleDisjunction
	ruleBitwiseOr
	rulePrimary
	ruleStarExpressions
)

type memoKey struct {
	rule ruleID
	pos  int
}

type memoEntry struct {
	node interface{}
	end  int
	ok   bool
}

// parser is a packrat parser over the token stream: each rule is a method
// that either consumes tokens and succeeds or restores the position and
// fails. Results of the rules most prone to re-evaluation are memoized per
// position.
type parser struct {
	filename string
	src      string
	tokens   []Token
	pos      int
	// fill is the index of the furthest token examined. A failed parse is
	// reported there.
	fill int
	memo map[memoKey]memoEntry
	err  *SyntaxError
}

// ParseFile parses the contents of a source file. Errors are *SyntaxError
// values.
func ParseFile(filename, src string) (*Module, error) {
	tokens, err := Tokenize(filename, src)
	if err != nil {
		return nil, err
	}
	p := &parser{filename: filename, src: src, tokens: tokens, memo: map[memoKey]memoEntry{}}
	body, ok := p.file()
	if p.err != nil {
		return nil, p.err
	}
	if !ok {
		return nil, p.failure()
	}
	return &Module{Filename: filename, Body: body}, nil
}

// ParseString parses src as a module named "<string>".
func ParseString(src string) (*Module, error) {
	return ParseFile("<string>", src)
}

// ParseExpr parses src as a single expression.
func ParseExpr(filename, src string) (Expr, error) {
	tokens, err := Tokenize(filename, src)
	if err != nil {
		return nil, err
	}
	p := &parser{filename: filename, src: src, tokens: tokens, memo: map[memoKey]memoEntry{}}
	e, ok := p.starExpressions()
	if ok {
		for p.peek().Kind == TokNewline {
			p.pos++
		}
		ok = p.peek().Kind == TokEndMarker
	}
	if p.err != nil {
		return nil, p.err
	}
	if !ok {
		return nil, p.failure()
	}
	return e, nil
}

// failure builds the error for a parse that failed without a specific
// diagnosis.
func (p *parser) failure() *SyntaxError {
	t := p.tokens[p.fill]
	switch t.Kind {
	case TokIndent:
		return p.errorAt(KindIndentationError, t.Line, t.Col, "unexpected indent")
	case TokDedent:
		return p.errorAt(KindIndentationError, t.Line, t.Col, "unexpected unindent")
	case TokEndMarker:
		return p.errorAt(KindSyntaxError, t.Line, t.Col, "unexpected EOF while parsing")
	}
	return p.errorAt(KindSyntaxError, t.Line, t.Col, "invalid syntax")
}

func (p *parser) errorAt(kind ErrorKind, line, col int, format string, args ...interface{}) *SyntaxError {
	return newSyntaxError(kind, p.filename, p.src, line, col, fmt.Sprintf(format, args...))
}

// raise records a specific error at n. Only the first error is kept.
func (p *parser) raise(kind ErrorKind, pos Pos, format string, args ...interface{}) {
	if p.err == nil {
		p.err = p.errorAt(kind, pos.Line, pos.Col, format, args...)
	}
}

func memoize[T any](p *parser, rule ruleID, fn func() (T, bool)) (T, bool) {
	key := memoKey{rule, p.pos}
	if m, ok := p.memo[key]; ok {
		p.pos = m.end
		if !m.ok {
			var zero T
			return zero, false
		}
		return m.node.(T), true
	}
	start := p.pos
	n, ok := fn()
	if !ok {
		p.pos = start
	}
	p.memo[key] = memoEntry{node: n, end: p.pos, ok: ok}
	return n, ok
}

func (p *parser) peek() Token {
	if p.pos > p.fill {
		p.fill = p.pos
	}
	return p.tokens[p.pos]
}

func (p *parser) next() Token {
	t := p.peek()
	if t.Kind != TokEndMarker {
		p.pos++
	}
	return t
}

func (p *parser) isOp(s string) bool {
	t := p.peek()
	return t.Kind == TokOp && t.Value == s
}

func (p *parser) op(s string) bool {
	if p.isOp(s) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) isKeyword(s string) bool {
	t := p.peek()
	return t.Kind == TokKeyword && t.Value == s
}

func (p *parser) keyword(s string) bool {
	if p.isKeyword(s) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) name() (Token, bool) {
	t := p.peek()
	if t.Kind != TokName {
		return t, false
	}
	p.pos++
	return t, true
}

func posOf(t Token) Pos {
	return Pos{t.Line, t.Col}
}

func (p *parser) file() ([]Stmt, bool) {
	var body []Stmt
	for p.peek().Kind != TokEndMarker {
		stmts, ok := p.statement()
		if !ok {
			return nil, false
		}
		body = append(body, stmts...)
	}
	return body, true
}

func (p *parser) statement() ([]Stmt, bool) {
	if p.err != nil {
		return nil, false
	}
	if s, ok := p.compoundStmt(); ok || p.err != nil {
		return []Stmt{s}, ok
	}
	return p.simpleStmts()
}

func (p *parser) simpleStmts() ([]Stmt, bool) {
	mark := p.pos
	var stmts []Stmt
	for {
		s, ok := p.simpleStmt()
		if !ok {
			p.pos = mark
			return nil, false
		}
		stmts = append(stmts, s)
		if !p.op(";") || p.peek().Kind == TokNewline {
			break
		}
	}
	if p.peek().Kind != TokNewline {
		p.pos = mark
		return nil, false
	}
	p.next()
	return stmts, true
}

func (p *parser) simpleStmt() (Stmt, bool) {
	t := p.peek()
	pos := posOf(t)
	if t.Kind == TokKeyword {
		switch t.Value {
		case "pass":
			p.next()
			return &Pass{pos}, true
		case "break":
			p.next()
			return &Break{pos}, true
		case "continue":
			p.next()
			return &Continue{pos}, true
		case "return":
			p.next()
			r := &Return{Pos: pos}
			if p.startsExpression() {
				v, ok := p.starExpressions()
				if !ok {
					return nil, false
				}
				r.Value = v
			}
			return r, true
		case "import":
			return p.importName()
		case "from":
			return p.importFrom()
		case "raise":
			return p.raiseStmt()
		case "global":
			return p.globalStmt()
		case "del":
			return p.delStmt()
		case "assert":
			return p.assertStmt()
		}
	}
	return p.assignment()
}

// startsExpression reports whether the next token can begin an expression.
func (p *parser) startsExpression() bool {
	t := p.peek()
	switch t.Kind {
	case TokName, TokNumber, TokString:
		return true
	case TokKeyword:
		switch t.Value {
		case "None", "True", "False", "not", "lambda":
			return true
		}
	case TokOp:
		switch t.Value {
		case "(", "[", "{", "-", "+", "~", "*", "...":
			return true
		}
	}
	return false
}

var augAssignOps = map[string]Operator{
	"+=": Add, "-=": Sub, "*=": Mult, "/=": Div, "//=": FloorDiv, "%=": Mod,
	"**=": Pow, "<<=": LShift, ">>=": RShift, "|=": BitOr, "^=": BitXor, "&=": BitAnd,
}

func (p *parser) assignment() (Stmt, bool) {
	mark := p.pos
	pos := posOf(p.peek())
	first, ok := p.starExpressions()
	if !ok {
		return nil, false
	}
	if t := p.peek(); t.Kind == TokOp {
		if op, ok := augAssignOps[t.Value]; ok {
			switch first.(type) {
			case *Name, *Attribute, *Subscript:
			default:
				p.raise(KindSyntaxError, first.Position(), "'%s' is an illegal expression for augmented assignment", describe(first))
				return nil, false
			}
			p.next()
			value, ok := p.starExpressions()
			if !ok {
				p.pos = mark
				return nil, false
			}
			setContext(first, Store)
			return &AugAssign{Pos: pos, Target: first, Op: op, Value: value}, true
		}
	}
	if !p.isOp("=") {
		return &ExprStmt{Pos: pos, Value: first}, true
	}
	targets := []Expr{first}
	var value Expr
	for p.op("=") {
		e, ok := p.starExpressions()
		if !ok {
			p.pos = mark
			return nil, false
		}
		if value != nil {
			targets = append(targets, value)
		}
		value = e
	}
	for _, target := range targets {
		if !p.checkTarget(target, Store) {
			return nil, false
		}
	}
	return &Assign{Pos: pos, Targets: targets, Value: value}, true
}

// describe names an expression the way assignment diagnostics do.
func describe(e Expr) string {
	switch e := e.(type) {
	case *Name:
		return "name"
	case *Attribute:
		return "attribute"
	case *Subscript:
		return "subscript"
	case *Starred:
		return "starred"
	case *Tuple:
		return "tuple"
	case *List:
		return "list"
	case *Call:
		return "function call"
	case *BinOp, *UnaryOp, *BoolOp:
		return "operator"
	case *Compare:
		return "comparison"
	case *IfExp:
		return "conditional expression"
	case *Lambda:
		return "lambda"
	case *Dict:
		return "dict display"
	case *Constant:
		switch e.Kind {
		case NoneConst:
			return "None"
		case TrueConst:
			return "True"
		case FalseConst:
			return "False"
		case EllipsisConst:
			return "Ellipsis"
		}
		return "literal"
	}
	return "expression"
}

// checkTarget validates e as an assignment or deletion target and sets its
// context.
func (p *parser) checkTarget(e Expr, ctx Context) bool {
	verb := "assign to"
	if ctx == Del {
		verb = "delete"
	}
	switch e := e.(type) {
	case *Name, *Attribute, *Subscript:
		setContext(e, ctx)
		return true
	case *Tuple, *List:
		var elts []Expr
		if t, ok := e.(*Tuple); ok {
			elts = t.Elts
		} else {
			elts = e.(*List).Elts
		}
		starred := 0
		for _, elt := range elts {
			if s, ok := elt.(*Starred); ok && ctx == Store {
				starred++
				if starred > 1 {
					p.raise(KindSyntaxError, s.Position(), "multiple starred expressions in assignment")
					return false
				}
				if !p.checkTarget(s.Value, ctx) {
					return false
				}
				s.Ctx = ctx
				continue
			}
			if !p.checkTarget(elt, ctx) {
				return false
			}
		}
		setContext(e, ctx)
		return true
	case *Starred:
		if ctx == Store {
			p.raise(KindSyntaxError, e.Position(), "starred assignment target must be in a list or tuple")
			return false
		}
	}
	p.raise(KindSyntaxError, e.Position(), "cannot %s %s", verb, describe(e))
	return false
}

func setContext(e Expr, ctx Context) {
	switch e := e.(type) {
	case *Name:
		e.Ctx = ctx
	case *Attribute:
		e.Ctx = ctx
	case *Subscript:
		e.Ctx = ctx
	case *Starred:
		e.Ctx = ctx
	case *Tuple:
		e.Ctx = ctx
	case *List:
		e.Ctx = ctx
	}
}

func (p *parser) dottedName() (string, bool) {
	t, ok := p.name()
	if !ok {
		return "", false
	}
	parts := []string{t.Value}
	for p.isOp(".") {
		mark := p.pos
		p.next()
		t, ok := p.name()
		if !ok {
			p.pos = mark
			break
		}
		parts = append(parts, t.Value)
	}
	return strings.Join(parts, "."), true
}

func (p *parser) asName() (string, bool) {
	if !p.keyword("as") {
		return "", true
	}
	t, ok := p.name()
	return t.Value, ok
}

func (p *parser) importName() (Stmt, bool) {
	mark := p.pos
	pos := posOf(p.next())
	var names []*Alias
	for {
		name, ok := p.dottedName()
		if !ok {
			p.pos = mark
			return nil, false
		}
		as, ok := p.asName()
		if !ok {
			p.pos = mark
			return nil, false
		}
		names = append(names, &Alias{Name: name, AsName: as})
		if !p.op(",") {
			break
		}
	}
	return &Import{Pos: pos, Names: names}, true
}

func (p *parser) importFrom() (Stmt, bool) {
	mark := p.pos
	pos := posOf(p.next())
	level := 0
	for {
		if p.op(".") {
			level++
		} else if p.op("...") {
			level += 3
		} else {
			break
		}
	}
	module := ""
	if !p.isKeyword("import") {
		name, ok := p.dottedName()
		if !ok {
			p.pos = mark
			return nil, false
		}
		module = name
	} else if level == 0 {
		p.pos = mark
		return nil, false
	}
	if !p.keyword("import") {
		p.pos = mark
		return nil, false
	}
	s := &ImportFrom{Pos: pos, Module: module, Level: level}
	if p.op("*") {
		s.Names = []*Alias{{Name: "*"}}
		return s, true
	}
	parens := p.op("(")
	for {
		t, ok := p.name()
		if !ok {
			p.pos = mark
			return nil, false
		}
		as, ok := p.asName()
		if !ok {
			p.pos = mark
			return nil, false
		}
		s.Names = append(s.Names, &Alias{Name: t.Value, AsName: as})
		if !p.op(",") {
			break
		}
		if parens && p.isOp(")") {
			break
		}
		if !parens && p.peek().Kind == TokNewline {
			p.raise(KindSyntaxError, posOf(p.peek()), "trailing comma not allowed without surrounding parentheses")
			return nil, false
		}
	}
	if parens && !p.op(")") {
		p.pos = mark
		return nil, false
	}
	return s, true
}

func (p *parser) raiseStmt() (Stmt, bool) {
	mark := p.pos
	pos := posOf(p.next())
	s := &Raise{Pos: pos}
	if !p.startsExpression() {
		return s, true
	}
	exc, ok := p.expression()
	if !ok {
		p.pos = mark
		return nil, false
	}
	s.Exc = exc
	if p.keyword("from") {
		cause, ok := p.expression()
		if !ok {
			p.pos = mark
			return nil, false
		}
		s.Cause = cause
	}
	return s, true
}

func (p *parser) globalStmt() (Stmt, bool) {
	mark := p.pos
	pos := posOf(p.next())
	s := &Global{Pos: pos}
	for {
		t, ok := p.name()
		if !ok {
			p.pos = mark
			return nil, false
		}
		s.Names = append(s.Names, t.Value)
		if !p.op(",") {
			return s, true
		}
	}
}

func (p *parser) delStmt() (Stmt, bool) {
	mark := p.pos
	pos := posOf(p.next())
	e, ok := p.starExpressions()
	if !ok {
		p.pos = mark
		return nil, false
	}
	targets := []Expr{e}
	if t, ok := e.(*Tuple); ok && !p.parenthesized(t) {
		targets = t.Elts
	}
	for _, target := range targets {
		if !p.checkTarget(target, Del) {
			return nil, false
		}
	}
	return &Delete{Pos: pos, Targets: targets}, true
}

// parenthesized reports whether the tuple t was written in parentheses.
func (p *parser) parenthesized(t *Tuple) bool {
	line := sourceLine(p.src, t.Line)
	return t.Col < len(line) && line[t.Col] == '('
}

func (p *parser) assertStmt() (Stmt, bool) {
	mark := p.pos
	pos := posOf(p.next())
	test, ok := p.expression()
	if !ok {
		p.pos = mark
		return nil, false
	}
	s := &Assert{Pos: pos, Test: test}
	if p.op(",") {
		msg, ok := p.expression()
		if !ok {
			p.pos = mark
			return nil, false
		}
		s.Msg = msg
	}
	return s, true
}

func (p *parser) compoundStmt() (Stmt, bool) {
	t := p.peek()
	if t.Kind != TokKeyword {
		return nil, false
	}
	switch t.Value {
	case "def":
		return p.functionDef()
	case "if":
		return p.ifStmt()
	case "class":
		return p.classDef()
	case "for":
		return p.forStmt()
	case "try":
		return p.tryStmt()
	case "while":
		return p.whileStmt()
	}
	return nil, false
}

func (p *parser) block() ([]Stmt, bool) {
	return memoize(p, ruleBlock, func() ([]Stmt, bool) {
		if p.peek().Kind != TokNewline {
			return p.simpleStmts()
		}
		p.next()
		if t := p.peek(); t.Kind != TokIndent {
			p.raise(KindIndentationError, posOf(t), "expected an indented block")
			return nil, false
		}
		p.next()
		var body []Stmt
		for p.peek().Kind != TokDedent {
			stmts, ok := p.statement()
			if !ok {
				return nil, false
			}
			body = append(body, stmts...)
		}
		p.next()
		return body, true
	})
}

// suite parses ":" followed by a block.
func (p *parser) suite() ([]Stmt, bool) {
	if !p.op(":") {
		return nil, false
	}
	return p.block()
}

func (p *parser) elseBlock() ([]Stmt, bool) {
	if !p.isKeyword("else") {
		return nil, true
	}
	mark := p.pos
	p.next()
	body, ok := p.suite()
	if !ok {
		p.pos = mark
	}
	return body, ok
}

func (p *parser) ifStmt() (Stmt, bool) {
	mark := p.pos
	pos := posOf(p.next())
	test, ok := p.expression()
	if !ok {
		p.pos = mark
		return nil, false
	}
	body, ok := p.suite()
	if !ok {
		p.pos = mark
		return nil, false
	}
	s := &If{Pos: pos, Test: test, Body: body}
	if p.isKeyword("elif") {
		elif, ok := p.ifStmt()
		if !ok {
			p.pos = mark
			return nil, false
		}
		s.Orelse = []Stmt{elif}
		return s, true
	}
	if s.Orelse, ok = p.elseBlock(); !ok {
		p.pos = mark
		return nil, false
	}
	return s, true
}

func (p *parser) whileStmt() (Stmt, bool) {
	mark := p.pos
	pos := posOf(p.next())
	test, ok := p.expression()
	if !ok {
		p.pos = mark
		return nil, false
	}
	body, ok := p.suite()
	if !ok {
		p.pos = mark
		return nil, false
	}
	orelse, ok := p.elseBlock()
	if !ok {
		p.pos = mark
		return nil, false
	}
	return &While{Pos: pos, Test: test, Body: body, Orelse: orelse}, true
}

// starTargets parses the target list of a for statement.
func (p *parser) starTargets() (Expr, bool) {
	mark := p.pos
	pos := posOf(p.peek())
	var elts []Expr
	trailing := false
	for {
		var e Expr
		var ok bool
		if t := p.peek(); p.op("*") {
			var v Expr
			if v, ok = p.bitwiseOr(); ok {
				e = &Starred{Pos: posOf(t), Value: v, Ctx: Store}
			}
		} else {
			e, ok = p.bitwiseOr()
		}
		if !ok {
			if len(elts) > 0 && trailing {
				break
			}
			p.pos = mark
			return nil, false
		}
		elts = append(elts, e)
		trailing = p.op(",")
		if !trailing {
			break
		}
	}
	var target Expr = &Tuple{Pos: pos, Elts: elts}
	if len(elts) == 1 && !trailing {
		target = elts[0]
	}
	if !p.checkTarget(target, Store) {
		return nil, false
	}
	return target, true
}

func (p *parser) forStmt() (Stmt, bool) {
	mark := p.pos
	pos := posOf(p.next())
	target, ok := p.starTargets()
	if !ok || !p.keyword("in") {
		p.pos = mark
		return nil, false
	}
	iter, ok := p.starExpressions()
	if !ok {
		p.pos = mark
		return nil, false
	}
	body, ok := p.suite()
	if !ok {
		p.pos = mark
		return nil, false
	}
	orelse, ok := p.elseBlock()
	if !ok {
		p.pos = mark
		return nil, false
	}
	return &For{Pos: pos, Target: target, Iter: iter, Body: body, Orelse: orelse}, true
}

func (p *parser) tryStmt() (Stmt, bool) {
	mark := p.pos
	pos := posOf(p.next())
	body, ok := p.suite()
	if !ok {
		p.pos = mark
		return nil, false
	}
	s := &Try{Pos: pos, Body: body}
	for p.isKeyword("except") {
		t := p.next()
		h := &ExceptHandler{Pos: posOf(t)}
		if !p.isOp(":") {
			if h.Type, ok = p.expression(); !ok {
				p.pos = mark
				return nil, false
			}
			if p.keyword("as") {
				name, ok := p.name()
				if !ok {
					p.pos = mark
					return nil, false
				}
				h.Name = name.Value
			}
		}
		if h.Body, ok = p.suite(); !ok {
			p.pos = mark
			return nil, false
		}
		if n := len(s.Handlers); n > 0 && s.Handlers[n-1].Type == nil {
			p.raise(KindSyntaxError, s.Handlers[n-1].Pos, "default 'except:' must be last")
			return nil, false
		}
		s.Handlers = append(s.Handlers, h)
	}
	if len(s.Handlers) > 0 {
		if s.Orelse, ok = p.elseBlock(); !ok {
			p.pos = mark
			return nil, false
		}
	}
	if p.keyword("finally") {
		if s.Finalbody, ok = p.suite(); !ok {
			p.pos = mark
			return nil, false
		}
	}
	if len(s.Handlers) == 0 && s.Finalbody == nil {
		p.pos = mark
		return nil, false
	}
	return s, true
}

func (p *parser) functionDef() (Stmt, bool) {
	mark := p.pos
	pos := posOf(p.next())
	name, ok := p.name()
	if !ok || !p.op("(") {
		p.pos = mark
		return nil, false
	}
	args, ok := p.parameters(")")
	if !ok || !p.op(")") {
		p.pos = mark
		return nil, false
	}
	if p.op("->") {
		if _, ok := p.expression(); !ok {
			p.pos = mark
			return nil, false
		}
	}
	body, ok := p.suite()
	if !ok {
		p.pos = mark
		return nil, false
	}
	return &FunctionDef{Pos: pos, Name: name.Value, Args: args, Body: body}, true
}

// parameters parses a parameter list up to (not including) the closing
// token. Annotations are only accepted in def parameter lists.
func (p *parser) parameters(closing string) (*Arguments, bool) {
	args := &Arguments{}
	seen := map[string]bool{}
	annotated := closing == ")"
	param := func() (*Arg, Expr, bool) {
		t, ok := p.name()
		if !ok {
			return nil, nil, false
		}
		if seen[t.Value] {
			p.raise(KindSyntaxError, posOf(t), "duplicate argument '%s' in function definition", t.Value)
			return nil, nil, false
		}
		seen[t.Value] = true
		if annotated && p.op(":") {
			if _, ok := p.expression(); !ok {
				return nil, nil, false
			}
		}
		var def Expr
		if p.op("=") {
			if def, ok = p.expression(); !ok {
				return nil, nil, false
			}
		}
		return &Arg{Pos: posOf(t), Name: t.Value}, def, true
	}
	star := false
	for !p.isOp(closing) {
		switch {
		case p.op("**"):
			a, def, ok := param()
			if !ok || def != nil {
				return nil, false
			}
			args.Kwarg = a
			p.op(",")
			if !p.isOp(closing) {
				return nil, false
			}
			return args, true
		case p.isOp("*"):
			t := p.next()
			if star {
				p.raise(KindSyntaxError, posOf(t), "* argument may appear only once")
				return nil, false
			}
			star = true
			if p.peek().Kind == TokName {
				a, def, ok := param()
				if !ok || def != nil {
					return nil, false
				}
				args.Vararg = a
			} else if p.isOp(closing) || p.isOp(",") && p.tokens[p.pos+1].Kind == TokOp && p.tokens[p.pos+1].Value == closing {
				p.raise(KindSyntaxError, posOf(t), "named arguments must follow bare *")
				return nil, false
			}
		default:
			a, def, ok := param()
			if !ok {
				return nil, false
			}
			if star {
				args.Kwonly = append(args.Kwonly, a)
				args.KwDefaults = append(args.KwDefaults, def)
			} else {
				if def == nil && len(args.Defaults) > 0 {
					p.raise(KindSyntaxError, a.Pos, "non-default argument follows default argument")
					return nil, false
				}
				args.Args = append(args.Args, a)
				if def != nil {
					args.Defaults = append(args.Defaults, def)
				}
			}
		}
		if !p.op(",") {
			break
		}
	}
	return args, true
}

func (p *parser) classDef() (Stmt, bool) {
	mark := p.pos
	pos := posOf(p.next())
	name, ok := p.name()
	if !ok {
		p.pos = mark
		return nil, false
	}
	s := &ClassDef{Pos: pos, Name: name.Value}
	if p.op("(") {
		if s.Bases, s.Keywords, ok = p.callArgs(); !ok || !p.op(")") {
			p.pos = mark
			return nil, false
		}
	}
	if s.Body, ok = p.suite(); !ok {
		p.pos = mark
		return nil, false
	}
	return s, true
}

// starExpressions parses one or more comma separated expressions. More
// than one, or a trailing comma, makes a tuple.
func (p *parser) starExpressions() (Expr, bool) {
	return memoize(p, ruleStarExpressions, func() (Expr, bool) {
		pos := posOf(p.peek())
		first, ok := p.starExpression()
		if !ok {
			return nil, false
		}
		if !p.isOp(",") {
			return first, true
		}
		elts := []Expr{first}
		for p.op(",") {
			mark := p.pos
			e, ok := p.starExpression()
			if !ok {
				p.pos = mark
				break
			}
			elts = append(elts, e)
		}
		return &Tuple{Pos: pos, Elts: elts}, true
	})
}

func (p *parser) starExpression() (Expr, bool) {
	if t := p.peek(); p.op("*") {
		v, ok := p.bitwiseOr()
		if !ok {
			p.pos--
			return nil, false
		}
		return &Starred{Pos: posOf(t), Value: v}, true
	}
	return p.expression()
}

func (p *parser) expression() (Expr, bool) {
	return memoize(p, ruleExpression, func() (Expr, bool) {
		if p.isKeyword("lambda") {
			return p.lambda()
		}
		pos := posOf(p.peek())
		body, ok := p.disjunction()
		if !ok {
			return nil, false
		}
		mark := p.pos
		if p.keyword("if") {
			if test, ok := p.disjunction(); ok && p.keyword("else") {
				if orelse, ok := p.expression(); ok {
					return &IfExp{Pos: pos, Test: test, Body: body, Orelse: orelse}, true
				}
			}
			p.pos = mark
		}
		return body, true
	})
}

func (p *parser) lambda() (Expr, bool) {
	mark := p.pos
	pos := posOf(p.next())
	args, ok := p.parameters(":")
	if !ok || !p.op(":") {
		p.pos = mark
		return nil, false
	}
	body, ok := p.expression()
	if !ok {
		p.pos = mark
		return nil, false
	}
	return &Lambda{Pos: pos, Args: args, Body: body}, true
}

func (p *parser) boolOp(kw string, op BoolOperator, operand func() (Expr, bool)) (Expr, bool) {
	pos := posOf(p.peek())
	first, ok := operand()
	if !ok {
		return nil, false
	}
	values := []Expr{first}
	for p.isKeyword(kw) {
		mark := p.pos
		p.next()
		e, ok := operand()
		if !ok {
			p.pos = mark
			break
		}
		values = append(values, e)
	}
	if len(values) == 1 {
		return first, true
	}
	return &BoolOp{Pos: pos, Op: op, Values: values}, true
}

func (p *parser) disjunction() (Expr, bool) {
	return memoize(p, ruleDisjunction, func() (Expr, bool) {
		return p.boolOp("or", Or, p.conjunction)
	})
}

func (p *parser) conjunction() (Expr, bool) {
	return p.boolOp("and", And, p.inversion)
}

func (p *parser) inversion() (Expr, bool) {
	if t := p.peek(); p.keyword("not") {
		e, ok := p.inversion()
		if !ok {
			p.pos--
			return nil, false
		}
		return &UnaryOp{Pos: posOf(t), Op: Not, Operand: e}, true
	}
	return p.comparison()
}

func (p *parser) compareOp() (CmpOperator, bool) {
	t := p.peek()
	switch {
	case t.Kind == TokOp:
		if op, ok := compareOps[t.Value]; ok {
			p.next()
			return op, true
		}
	case t.Kind == TokKeyword && t.Value == "in":
		p.next()
		return In, true
	case t.Kind == TokKeyword && t.Value == "is":
		p.next()
		if p.keyword("not") {
			return IsNot, true
		}
		return Is, true
	case t.Kind == TokKeyword && t.Value == "not":
		if n := p.tokens[p.pos+1]; n.Kind == TokKeyword && n.Value == "in" {
			p.pos += 2
			return NotIn, true
		}
	}
	return 0, false
}

func (p *parser) comparison() (Expr, bool) {
	pos := posOf(p.peek())
	left, ok := p.bitwiseOr()
	if !ok {
		return nil, false
	}
	c := &Compare{Pos: pos, Left: left}
	for {
		mark := p.pos
		op, ok := p.compareOp()
		if !ok {
			break
		}
		right, ok := p.bitwiseOr()
		if !ok {
			p.pos = mark
			break
		}
		c.Ops = append(c.Ops, op)
		c.Comparators = append(c.Comparators, right)
	}
	if len(c.Ops) == 0 {
		return left, true
	}
	return c, true
}

// binary parses a left associative chain of operand separated by the
// operators in ops.
func (p *parser) binary(ops map[string]Operator, operand func() (Expr, bool)) (Expr, bool) {
	pos := posOf(p.peek())
	left, ok := operand()
	if !ok {
		return nil, false
	}
	for {
		t := p.peek()
		op, isOp := ops[t.Value]
		if t.Kind != TokOp || !isOp {
			return left, true
		}
		mark := p.pos
		p.next()
		right, ok := operand()
		if !ok {
			p.pos = mark
			return left, true
		}
		left = &BinOp{Pos: pos, Left: left, Op: op, Right: right}
	}
}

var compareOps = map[string]CmpOperator{"==": Eq, "!=": NotEq, "<": Lt, "<=": LtE, ">": Gt, ">=": GtE}

var (
	bitOrOps  = map[string]Operator{"|": BitOr}
	bitXorOps = map[string]Operator{"^": BitXor}
	bitAndOps = map[string]Operator{"&": BitAnd}
	shiftOps  = map[string]Operator{"<<": LShift, ">>": RShift}
	sumOps    = map[string]Operator{"+": Add, "-": Sub}
	termOps   = map[string]Operator{"*": Mult, "/": Div, "//": FloorDiv, "%": Mod}
)

func (p *parser) bitwiseOr() (Expr, bool) {
	return memoize(p, ruleBitwiseOr, func() (Expr, bool) {
		return p.binary(bitOrOps, p.bitwiseXor)
	})
}

func (p *parser) bitwiseXor() (Expr, bool) {
	return p.binary(bitXorOps, p.bitwiseAnd)
}

func (p *parser) bitwiseAnd() (Expr, bool) {
	return p.binary(bitAndOps, p.shiftExpr)
}

func (p *parser) shiftExpr() (Expr, bool) {
	return p.binary(shiftOps, p.sum)
}

func (p *parser) sum() (Expr, bool) {
	return p.binary(sumOps, p.term)
}

func (p *parser) term() (Expr, bool) {
	return p.binary(termOps, p.factor)
}

func (p *parser) factor() (Expr, bool) {
	t := p.peek()
	if t.Kind == TokOp {
		var op UnaryOperator
		switch t.Value {
		case "+":
			op = UAdd
		case "-":
			op = USub
		case "~":
			op = Invert
		default:
			return p.power()
		}
		p.next()
		e, ok := p.factor()
		if !ok {
			p.pos--
			return nil, false
		}
		return &UnaryOp{Pos: posOf(t), Op: op, Operand: e}, true
	}
	return p.power()
}

func (p *parser) power() (Expr, bool) {
	pos := posOf(p.peek())
	base, ok := p.primary()
	if !ok {
		return nil, false
	}
	if !p.isOp("**") {
		return base, true
	}
	mark := p.pos
	p.next()
	exp, ok := p.factor()
	if !ok {
		p.pos = mark
		return base, true
	}
	return &BinOp{Pos: pos, Left: base, Op: Pow, Right: exp}, true
}

func (p *parser) primary() (Expr, bool) {
	return memoize(p, rulePrimary, func() (Expr, bool) {
		pos := posOf(p.peek())
		e, ok := p.atom()
		if !ok {
			return nil, false
		}
		for {
			mark := p.pos
			switch {
			case p.op("."):
				t, ok := p.name()
				if !ok {
					p.pos = mark
					return e, true
				}
				e = &Attribute{Pos: pos, Value: e, Attr: t.Value}
			case p.op("("):
				args, keywords, ok := p.callArgs()
				if !ok || !p.op(")") {
					p.pos = mark
					return e, true
				}
				e = &Call{Pos: pos, Func: e, Args: args, Keywords: keywords}
			case p.op("["):
				index, ok := p.starExpressions()
				if !ok || !p.op("]") {
					p.pos = mark
					return e, true
				}
				e = &Subscript{Pos: pos, Value: e, Index: index}
			default:
				return e, true
			}
		}
	})
}

// callArgs parses call arguments up to (not including) the closing
// parenthesis.
func (p *parser) callArgs() ([]Expr, []*Keyword, bool) {
	var args []Expr
	var keywords []*Keyword
	seen := map[string]bool{}
	unpacked := false
	for !p.isOp(")") {
		t := p.peek()
		switch {
		case p.op("**"):
			v, ok := p.expression()
			if !ok {
				return nil, nil, false
			}
			keywords = append(keywords, &Keyword{Pos: posOf(t), Value: v})
			unpacked = true
		case p.op("*"):
			v, ok := p.expression()
			if !ok {
				return nil, nil, false
			}
			args = append(args, &Starred{Pos: posOf(t), Value: v})
		case t.Kind == TokName && p.tokens[p.pos+1].Kind == TokOp && p.tokens[p.pos+1].Value == "=":
			p.pos += 2
			v, ok := p.expression()
			if !ok {
				return nil, nil, false
			}
			if seen[t.Value] {
				p.raise(KindSyntaxError, posOf(t), "keyword argument repeated")
				return nil, nil, false
			}
			seen[t.Value] = true
			keywords = append(keywords, &Keyword{Pos: posOf(t), Arg: t.Value, Value: v})
		default:
			v, ok := p.expression()
			if !ok {
				return nil, nil, false
			}
			if len(keywords) > 0 {
				msg := "positional argument follows keyword argument"
				if unpacked {
					msg += " unpacking"
				}
				p.raise(KindSyntaxError, v.Position(), msg)
				return nil, nil, false
			}
			args = append(args, v)
		}
		if !p.op(",") {
			break
		}
	}
	return args, keywords, true
}

func (p *parser) atom() (Expr, bool) {
	t := p.peek()
	pos := posOf(t)
	switch t.Kind {
	case TokName:
		p.next()
		return &Name{Pos: pos, ID: t.Value}, true
	case TokNumber:
		p.next()
		kind, value, err := parseNumber(t.Value)
		if err != nil {
			p.raise(KindSyntaxError, pos, "invalid syntax")
			return nil, false
		}
		return &Constant{Pos: pos, Kind: kind, Value: value}, true
	case TokString:
		var b strings.Builder
		for p.peek().Kind == TokString {
			b.WriteString(p.next().Value)
		}
		return &Constant{Pos: pos, Kind: StrConst, Value: b.String()}, true
	case TokKeyword:
		switch t.Value {
		case "None":
			p.next()
			return &Constant{Pos: pos, Kind: NoneConst}, true
		case "True":
			p.next()
			return &Constant{Pos: pos, Kind: TrueConst, Value: true}, true
		case "False":
			p.next()
			return &Constant{Pos: pos, Kind: FalseConst, Value: false}, true
		}
	case TokOp:
		switch t.Value {
		case "(":
			return p.group()
		case "[":
			return p.list()
		case "{":
			return p.dict()
		case "...":
			p.next()
			return &Constant{Pos: pos, Kind: EllipsisConst}, true
		}
	}
	return nil, false
}

func (p *parser) group() (Expr, bool) {
	mark := p.pos
	pos := posOf(p.next())
	if p.op(")") {
		return &Tuple{Pos: pos}, true
	}
	e, ok := p.starExpressions()
	if !ok || !p.op(")") {
		p.pos = mark
		return nil, false
	}
	switch e := e.(type) {
	case *Tuple:
		e.Pos = pos
	case *Starred:
		p.raise(KindSyntaxError, e.Pos, "can't use starred expression here")
		return nil, false
	}
	return e, true
}

func (p *parser) list() (Expr, bool) {
	mark := p.pos
	pos := posOf(p.next())
	l := &List{Pos: pos}
	for !p.isOp("]") {
		e, ok := p.starExpression()
		if !ok {
			p.pos = mark
			return nil, false
		}
		l.Elts = append(l.Elts, e)
		if !p.op(",") {
			break
		}
	}
	if !p.op("]") {
		p.pos = mark
		return nil, false
	}
	return l, true
}

func (p *parser) dict() (Expr, bool) {
	mark := p.pos
	pos := posOf(p.next())
	d := &Dict{Pos: pos}
	for !p.isOp("}") {
		if p.op("**") {
			v, ok := p.bitwiseOr()
			if !ok {
				p.pos = mark
				return nil, false
			}
			d.Keys = append(d.Keys, nil)
			d.Values = append(d.Values, v)
		} else {
			k, ok := p.expression()
			if !ok || !p.op(":") {
				p.pos = mark
				return nil, false
			}
			v, ok := p.expression()
			if !ok {
				p.pos = mark
				return nil, false
			}
			d.Keys = append(d.Keys, k)
			d.Values = append(d.Values, v)
		}
		if !p.op(",") {
			break
		}
	}
	if !p.op("}") {
		p.pos = mark
		return nil, false
	}
	return d, true
}

// parseNumber converts a NUMBER token to a constant.
func parseNumber(lit string) (ConstKind, interface{}, error) {
	clean := strings.ReplaceAll(lit, "_", "")
	base := 10
	if len(clean) > 1 && clean[0] == '0' {
		switch clean[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
	}
	if base != 10 {
		clean = clean[2:]
	} else if strings.ContainsAny(clean, ".eE") {
		v, err := strconv.ParseFloat(clean, 64)
		if err != nil && !isRangeError(err) {
			return 0, nil, err
		}
		return FloatConst, v, nil
	}
	v, err := strconv.ParseInt(clean, base, 64)
	if err == nil {
		return IntConst, v, nil
	}
	if !isRangeError(err) {
		return 0, nil, err
	}
	b, ok := new(big.Int).SetString(clean, base)
	if !ok {
		return 0, nil, err
	}
	return IntConst, b, nil
}

func isRangeError(err error) bool {
	numErr, ok := err.(*strconv.NumError)
	return ok && numErr.Err == strconv.ErrRange
}
