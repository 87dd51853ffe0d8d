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
	"log"

	"fortio.org/safecast"
)

var logFatal = func(msg string) { log.Fatal(msg) }

const (
	errUnsupportedOperand = "unsupported operand type(s) for %s: '%s' and '%s'"
	errNotSupported       = "'%s' not supported between instances of '%s' and '%s'"
)

// BinaryOperator identifies one of the binary number protocol operators.
type BinaryOperator int

// Binary operators understood by BinaryOp and InplaceOp.
const (
	OpAdd BinaryOperator = iota
	OpSub
	OpMul
	OpTrueDiv
	OpFloorDiv
	OpMod
	OpPow
	OpLShift
	OpRShift
	OpAnd
	OpOr
	OpXor
)

type binaryOpInfo struct {
	symbol string
	slot   func(*numberSlots) *binaryOpSlot
	rslot  func(*numberSlots) *binaryOpSlot
	islot  func(*numberSlots) *binaryOpSlot
}

var binaryOps = [...]binaryOpInfo{
	OpAdd: {"+",
		func(n *numberSlots) *binaryOpSlot { return n.Add },
		func(n *numberSlots) *binaryOpSlot { return n.RAdd },
		func(n *numberSlots) *binaryOpSlot { return n.IAdd }},
	OpSub: {"-",
		func(n *numberSlots) *binaryOpSlot { return n.Sub },
		func(n *numberSlots) *binaryOpSlot { return n.RSub },
		func(n *numberSlots) *binaryOpSlot { return n.ISub }},
	OpMul: {"*",
		func(n *numberSlots) *binaryOpSlot { return n.Mul },
		func(n *numberSlots) *binaryOpSlot { return n.RMul },
		func(n *numberSlots) *binaryOpSlot { return n.IMul }},
	OpTrueDiv: {"/",
		func(n *numberSlots) *binaryOpSlot { return n.TrueDiv },
		func(n *numberSlots) *binaryOpSlot { return n.RTrueDiv },
		func(n *numberSlots) *binaryOpSlot { return n.ITrueDiv }},
	OpFloorDiv: {"//",
		func(n *numberSlots) *binaryOpSlot { return n.FloorDiv },
		func(n *numberSlots) *binaryOpSlot { return n.RFloorDiv },
		func(n *numberSlots) *binaryOpSlot { return n.IFloorDiv }},
	OpMod: {"%",
		func(n *numberSlots) *binaryOpSlot { return n.Mod },
		func(n *numberSlots) *binaryOpSlot { return n.RMod },
		func(n *numberSlots) *binaryOpSlot { return n.IMod }},
	OpPow: {"** or pow()",
		func(n *numberSlots) *binaryOpSlot { return n.Pow },
		func(n *numberSlots) *binaryOpSlot { return n.RPow },
		func(n *numberSlots) *binaryOpSlot { return n.IPow }},
	OpLShift: {"<<",
		func(n *numberSlots) *binaryOpSlot { return n.LShift },
		func(n *numberSlots) *binaryOpSlot { return n.RLShift },
		func(n *numberSlots) *binaryOpSlot { return n.ILShift }},
	OpRShift: {">>",
		func(n *numberSlots) *binaryOpSlot { return n.RShift },
		func(n *numberSlots) *binaryOpSlot { return n.RRShift },
		func(n *numberSlots) *binaryOpSlot { return n.IRShift }},
	OpAnd: {"&",
		func(n *numberSlots) *binaryOpSlot { return n.And },
		func(n *numberSlots) *binaryOpSlot { return n.RAnd },
		func(n *numberSlots) *binaryOpSlot { return n.IAnd }},
	OpOr: {"|",
		func(n *numberSlots) *binaryOpSlot { return n.Or },
		func(n *numberSlots) *binaryOpSlot { return n.ROr },
		func(n *numberSlots) *binaryOpSlot { return n.IOr }},
	OpXor: {"^",
		func(n *numberSlots) *binaryOpSlot { return n.Xor },
		func(n *numberSlots) *binaryOpSlot { return n.RXor },
		func(n *numberSlots) *binaryOpSlot { return n.IXor }},
}

// String returns the operator's Python spelling.
func (op BinaryOperator) String() string {
	return binaryOps[op].symbol
}

// Abs returns the result of o.__abs__ and is equivalent to the Python
// expression "abs(o)".
func Abs(f *Frame, o *Object) (*Object, *BaseException) {
	return unaryOp(f, o, "abs()", func(n *numberSlots) *unaryOpSlot { return n.Abs })
}

// Invert returns the result of o.__invert__ and is equivalent to the Python
// expression "~o".
func Invert(f *Frame, o *Object) (*Object, *BaseException) {
	return unaryOp(f, o, "unary ~", func(n *numberSlots) *unaryOpSlot { return n.Invert })
}

// Neg returns the result of o.__neg__ and is equivalent to the Python
// expression "-o".
func Neg(f *Frame, o *Object) (*Object, *BaseException) {
	return unaryOp(f, o, "unary -", func(n *numberSlots) *unaryOpSlot { return n.Neg })
}

// Pos returns the result of o.__pos__ and is equivalent to the Python
// expression "+o".
func Pos(f *Frame, o *Object) (*Object, *BaseException) {
	return unaryOp(f, o, "unary +", func(n *numberSlots) *unaryOpSlot { return n.Pos })
}

func unaryOp(f *Frame, o *Object, what string, get func(*numberSlots) *unaryOpSlot) (*Object, *BaseException) {
	if n := o.typ.slots.Number; n != nil {
		if s := get(n); s != nil {
			return s.Fn(f, o)
		}
	}
	return nil, f.RaiseType(TypeErrorType, fmt.Sprintf("bad operand type for %s: '%s'", what, o.typ.Name()))
}

// BinaryOp applies op to v and w. When w's type is a strict subclass of v's
// type that overrides the reflected method, w's reflected method is tried
// first. Otherwise v's method is tried before w's reflected method. The
// reflected method is never consulted when v and w have the same type.
func BinaryOp(f *Frame, v, w *Object, op BinaryOperator) (*Object, *BaseException) {
	r, raised := binaryOp1(f, v, w, op)
	if raised != nil {
		return nil, raised
	}
	if r == NotImplemented {
		msg := fmt.Sprintf(errUnsupportedOperand, binaryOps[op].symbol, v.typ.Name(), w.typ.Name())
		return nil, f.RaiseType(TypeErrorType, msg)
	}
	return r, nil
}

func binaryOp1(f *Frame, v, w *Object, op BinaryOperator) (*Object, *BaseException) {
	info := &binaryOps[op]
	var slotv, vrslot, slotw *binaryOpSlot
	if n := v.typ.slots.Number; n != nil {
		slotv = info.slot(n)
		vrslot = info.rslot(n)
	}
	if w.typ != v.typ {
		if n := w.typ.slots.Number; n != nil {
			slotw = info.rslot(n)
		}
	}
	if slotw != nil && slotw != vrslot && w.typ.isSubclass(v.typ) {
		r, raised := slotw.Fn(f, w, v)
		if raised != nil || r != NotImplemented {
			return r, raised
		}
		slotw = nil
	}
	if slotv != nil {
		r, raised := slotv.Fn(f, v, w)
		if raised != nil || r != NotImplemented {
			return r, raised
		}
	}
	if slotw != nil {
		return slotw.Fn(f, w, v)
	}
	return NotImplemented, nil
}

// InplaceOp implements the augmented assignment form of op. v's in-place
// method is used when it exists and doesn't return NotImplemented, otherwise
// it behaves like BinaryOp.
func InplaceOp(f *Frame, v, w *Object, op BinaryOperator) (*Object, *BaseException) {
	if n := v.typ.slots.Number; n != nil {
		if islot := binaryOps[op].islot(n); islot != nil {
			r, raised := islot.Fn(f, v, w)
			if raised != nil || r != NotImplemented {
				return r, raised
			}
		}
	}
	r, raised := binaryOp1(f, v, w, op)
	if raised != nil {
		return nil, raised
	}
	if r == NotImplemented {
		msg := fmt.Sprintf(errUnsupportedOperand, binaryOps[op].symbol+"=", v.typ.Name(), w.typ.Name())
		return nil, f.RaiseType(TypeErrorType, msg)
	}
	return r, nil
}

// Add returns the result of adding v and w together according to the
// __add/radd__ operator.
func Add(f *Frame, v, w *Object) (*Object, *BaseException) {
	return BinaryOp(f, v, w, OpAdd)
}

// Sub returns the result of subtracting w from v according to the
// __sub/rsub__ operator.
func Sub(f *Frame, v, w *Object) (*Object, *BaseException) {
	return BinaryOp(f, v, w, OpSub)
}

// Mul returns the result of multiplying v and w together according to the
// __mul/rmul__ operator.
func Mul(f *Frame, v, w *Object) (*Object, *BaseException) {
	return BinaryOp(f, v, w, OpMul)
}

// TrueDiv returns the result of v / w.
func TrueDiv(f *Frame, v, w *Object) (*Object, *BaseException) {
	return BinaryOp(f, v, w, OpTrueDiv)
}

// FloorDiv returns the result of v // w.
func FloorDiv(f *Frame, v, w *Object) (*Object, *BaseException) {
	return BinaryOp(f, v, w, OpFloorDiv)
}

// Mod returns the remainder from the division of v by w according to the
// __mod/rmod__ operator.
func Mod(f *Frame, v, w *Object) (*Object, *BaseException) {
	return BinaryOp(f, v, w, OpMod)
}

// CompareOp identifies one of the six rich comparison operators.
type CompareOp int

// Rich comparison operators, in the same order as CPython's Py_LT et al.
const (
	CompareLT CompareOp = iota
	CompareLE
	CompareEq
	CompareNE
	CompareGT
	CompareGE
)

var (
	compareSymbols = [...]string{"<", "<=", "==", "!=", ">", ">="}
	compareSwapped = [...]CompareOp{CompareGT, CompareGE, CompareEq, CompareNE, CompareLT, CompareLE}
)

// String returns the operator's Python spelling.
func (op CompareOp) String() string {
	return compareSymbols[op]
}

func (op CompareOp) swapped() CompareOp {
	return compareSwapped[op]
}

func (op CompareOp) slot(t *Type) *binaryOpSlot {
	switch op {
	case CompareLT:
		return t.slots.LT
	case CompareLE:
		return t.slots.LE
	case CompareEq:
		return t.slots.Eq
	case CompareNE:
		return t.slots.NE
	case CompareGT:
		return t.slots.GT
	case CompareGE:
		return t.slots.GE
	}
	panic(fmt.Sprintf("invalid CompareOp value: %d", op))
}

// RichCompare returns the result of the comparison "v op w". When w's type
// is a strict subclass of v's type, w's reflected comparison is tried first.
// If both sides decline, == and != fall back to identity and the ordering
// operators raise TypeError.
func RichCompare(f *Frame, v, w *Object, op CompareOp) (*Object, *BaseException) {
	if raised := f.ts.enterRecursiveCall(f, " in comparison"); raised != nil {
		return nil, raised
	}
	r, raised := doRichCompare(f, v, w, op)
	f.ts.leaveRecursiveCall()
	return r, raised
}

func doRichCompare(f *Frame, v, w *Object, op CompareOp) (*Object, *BaseException) {
	checkedReverse := false
	if v.typ != w.typ && w.typ.isSubclass(v.typ) {
		if s := op.swapped().slot(w.typ); s != nil {
			checkedReverse = true
			r, raised := s.Fn(f, w, v)
			if raised != nil || r != NotImplemented {
				return r, raised
			}
		}
	}
	if s := op.slot(v.typ); s != nil {
		r, raised := s.Fn(f, v, w)
		if raised != nil || r != NotImplemented {
			return r, raised
		}
	}
	if !checkedReverse {
		if s := op.swapped().slot(w.typ); s != nil {
			r, raised := s.Fn(f, w, v)
			if raised != nil || r != NotImplemented {
				return r, raised
			}
		}
	}
	switch op {
	case CompareEq:
		return GetBool(v == w).ToObject(), nil
	case CompareNE:
		return GetBool(v != w).ToObject(), nil
	}
	msg := fmt.Sprintf(errNotSupported, op, v.typ.Name(), w.typ.Name())
	return nil, f.RaiseType(TypeErrorType, msg)
}

// RichCompareBool is like RichCompare but returns the truth value of the
// result. Identical objects compare equal without calling any method.
func RichCompareBool(f *Frame, v, w *Object, op CompareOp) (bool, *BaseException) {
	if v == w {
		switch op {
		case CompareEq:
			return true, nil
		case CompareNE:
			return false, nil
		}
	}
	r, raised := RichCompare(f, v, w, op)
	if raised != nil {
		return false, raised
	}
	return IsTrue(f, r)
}

// Eq returns the equality of v and w according to the __eq__ operator.
func Eq(f *Frame, v, w *Object) (*Object, *BaseException) {
	return RichCompare(f, v, w, CompareEq)
}

// NE returns the non-equality of v and w according to the __ne__ operator.
func NE(f *Frame, v, w *Object) (*Object, *BaseException) {
	return RichCompare(f, v, w, CompareNE)
}

// LT returns the result of operation v < w.
func LT(f *Frame, v, w *Object) (*Object, *BaseException) {
	return RichCompare(f, v, w, CompareLT)
}

// LE returns the result of operation v <= w.
func LE(f *Frame, v, w *Object) (*Object, *BaseException) {
	return RichCompare(f, v, w, CompareLE)
}

// GT returns the result of operation v > w.
func GT(f *Frame, v, w *Object) (*Object, *BaseException) {
	return RichCompare(f, v, w, CompareGT)
}

// GE returns the result of operation v >= w.
func GE(f *Frame, v, w *Object) (*Object, *BaseException) {
	return RichCompare(f, v, w, CompareGE)
}

// Assert raises an AssertionError if the given cond does not evaluate to true.
// If msg is not nil it is passed as the exception's argument.
func Assert(f *Frame, cond *Object, msg *Object) *BaseException {
	result, raised := IsTrue(f, cond)
	if raised != nil || result {
		return raised
	}
	if msg == nil {
		return f.Raise(AssertionErrorType.ToObject(), nil, nil)
	}
	return f.Raise(AssertionErrorType.ToObject(), msg, nil)
}

// Contains checks whether value is present in seq. It first checks the
// __contains__ method of seq and, if that is not available, attempts to find
// value by iteration over seq. It is equivalent to the Python expression
// "value in seq".
func Contains(f *Frame, seq, value *Object) (bool, *BaseException) {
	if s := seq.typ.slots.Sequence; s != nil && s.Contains != nil {
		r, raised := s.Contains.Fn(f, seq, value)
		if raised != nil {
			return false, raised
		}
		return IsTrue(f, r)
	}
	found := false
	raised := seqForEach(f, seq, func(o *Object) (bool, *BaseException) {
		eq, raised := RichCompareBool(f, o, value, CompareEq)
		if raised != nil {
			return false, raised
		}
		found = eq
		return !eq, nil
	})
	return found, raised
}

// GetItem returns the result of operation o[key]. The mapping protocol is
// preferred, an integer indexed sequence is the fallback.
func GetItem(f *Frame, o, key *Object) (*Object, *BaseException) {
	if m := o.typ.slots.Mapping; m != nil && m.Subscript != nil {
		return m.Subscript.Fn(f, o, key)
	}
	if s := o.typ.slots.Sequence; s != nil && s.Item != nil {
		if !hasIndex(key) {
			format := "sequence index must be integer, not '%s'"
			return nil, f.RaiseType(TypeErrorType, fmt.Sprintf(format, key.typ.Name()))
		}
		i, raised := IndexInt(f, key)
		if raised != nil {
			return nil, raised
		}
		return s.Item.Fn(f, o, i)
	}
	return nil, f.RaiseType(TypeErrorType, fmt.Sprintf("'%s' object is not subscriptable", o.typ.Name()))
}

// SetItem performs the operation o[key] = value.
func SetItem(f *Frame, o, key, value *Object) *BaseException {
	if m := o.typ.slots.Mapping; m != nil && m.SetItem != nil {
		return m.SetItem.Fn(f, o, key, value)
	}
	return f.RaiseType(TypeErrorType, fmt.Sprintf("'%s' object does not support item assignment", o.typ.Name()))
}

// DelItem performs the operation del o[key].
func DelItem(f *Frame, o, key *Object) *BaseException {
	if m := o.typ.slots.Mapping; m != nil && m.DelItem != nil {
		return m.DelItem.Fn(f, o, key)
	}
	return f.RaiseType(TypeErrorType, fmt.Sprintf("'%s' object doesn't support item deletion", o.typ.Name()))
}

// GetAttr returns the named attribute of o. Equivalent to the Python expression
// getattr(o, name, def). When the regular lookup raises AttributeError and the
// type defines __getattr__, that hook is consulted.
func GetAttr(f *Frame, o *Object, name *Str, def *Object) (*Object, *BaseException) {
	var result *Object
	var raised *BaseException
	if getAttribute := o.typ.slots.GetAttribute; getAttribute != nil {
		result, raised = getAttribute.Fn(f, o, name)
	} else {
		format := "'%s' object has no attribute '%s'"
		raised = f.RaiseType(AttributeErrorType, fmt.Sprintf(format, o.typ.Name(), name.Value()))
	}
	if raised != nil && raised.isInstance(AttributeErrorType) {
		if getAttr := o.typ.slots.GetAttr; getAttr != nil {
			f.RestoreExc(nil, nil)
			result, raised = getAttr.Fn(f, o, name)
		}
	}
	if raised != nil && raised.isInstance(AttributeErrorType) && def != nil {
		f.RestoreExc(nil, nil)
		result, raised = def, nil
	}
	return result, raised
}

// GetAttrObject is GetAttr for a name that has not been checked to be a str.
func GetAttrObject(f *Frame, o, name, def *Object) (*Object, *BaseException) {
	if !name.isInstance(StrType) {
		format := "attribute name must be string, not '%s'"
		return nil, f.RaiseType(TypeErrorType, fmt.Sprintf(format, name.typ.Name()))
	}
	return GetAttr(f, o, toStrUnsafe(name), def)
}

// HasAttr reports whether o has the named attribute. Errors other than
// AttributeError propagate.
func HasAttr(f *Frame, o *Object, name *Str) (bool, *BaseException) {
	if _, raised := GetAttr(f, o, name, nil); raised != nil {
		if !raised.isInstance(AttributeErrorType) {
			return false, raised
		}
		f.RestoreExc(nil, nil)
		return false, nil
	}
	return true, nil
}

// SetAttr sets the attribute of o given by name to value. Equivalent to the
// Python statement setattr(o, name, value).
func SetAttr(f *Frame, o *Object, name *Str, value *Object) *BaseException {
	setAttr := o.typ.slots.SetAttr
	if setAttr == nil {
		return readOnlyAttrError(f, o, "assign to", name)
	}
	return setAttr.Fn(f, o, name, value)
}

// SetAttrObject is SetAttr for a name that has not been checked to be a str.
func SetAttrObject(f *Frame, o, name, value *Object) *BaseException {
	if !name.isInstance(StrType) {
		format := "attribute name must be string, not '%s'"
		return f.RaiseType(TypeErrorType, fmt.Sprintf(format, name.typ.Name()))
	}
	return SetAttr(f, o, toStrUnsafe(name), value)
}

// DelAttr removes the attribute of o given by name. Equivalent to the Python
// expression delattr(o, name).
func DelAttr(f *Frame, o *Object, name *Str) *BaseException {
	delAttr := o.typ.slots.DelAttr
	if delAttr == nil {
		return readOnlyAttrError(f, o, "del", name)
	}
	return delAttr.Fn(f, o, name)
}

func readOnlyAttrError(f *Frame, o *Object, action string, name *Str) *BaseException {
	format := "'%s' object has only read-only attributes (%s .%s)"
	if o.typ.slots.GetAttribute == nil {
		format = "'%s' object has no attributes (%s .%s)"
	}
	return f.RaiseType(TypeErrorType, fmt.Sprintf(format, o.typ.Name(), action, name.Value()))
}

// Hash returns the hash of o according to its __hash__ operator. A type that
// has not been readied yet is readied before concluding it is unhashable.
func Hash(f *Frame, o *Object) (*Int, *BaseException) {
	hash := o.typ.slots.Hash
	if hash == nil && !o.typ.IsReady() {
		if err := prepareType(o.typ); err != "" {
			return nil, f.RaiseType(SystemErrorType, err)
		}
		hash = o.typ.slots.Hash
	}
	if hash == nil {
		_, raised := hashNotImplemented(f, o)
		return nil, raised
	}
	h, raised := hash.Fn(f, o)
	if raised != nil {
		return nil, raised
	}
	if !h.isInstance(IntType) {
		return nil, f.RaiseType(TypeErrorType, "__hash__ method should return an integer")
	}
	return toIntUnsafe(h), nil
}

func hashNotImplemented(f *Frame, o *Object) (*Object, *BaseException) {
	return nil, f.RaiseType(TypeErrorType, fmt.Sprintf("unhashable type: '%s'", o.typ.Name()))
}

// IsTrue returns the truthiness of o. True, False and None are answered
// directly, then __bool__ is consulted, then __len__. Objects with neither
// are true.
func IsTrue(f *Frame, o *Object) (bool, *BaseException) {
	switch o {
	case True.ToObject():
		return true, nil
	case False.ToObject(), None:
		return false, nil
	}
	if n := o.typ.slots.Number; n != nil && n.Bool != nil {
		r, raised := n.Bool.Fn(f, o)
		if raised != nil {
			return false, raised
		}
		if !r.isInstance(BoolType) {
			msg := fmt.Sprintf("__bool__ should return bool, returned %s", r.typ.Name())
			return false, f.RaiseType(TypeErrorType, msg)
		}
		return r == True.ToObject(), nil
	}
	var length *unaryOpSlot
	if m := o.typ.slots.Mapping; m != nil && m.Len != nil {
		length = m.Len
	} else if s := o.typ.slots.Sequence; s != nil && s.Len != nil {
		length = s.Len
	}
	if length == nil {
		return true, nil
	}
	l, raised := checkedLen(f, o, length)
	if raised != nil {
		return false, raised
	}
	return l != 0, nil
}

// Not returns the boolean negation of o's truthiness.
func Not(f *Frame, o *Object) (*Int, *BaseException) {
	b, raised := IsTrue(f, o)
	if raised != nil {
		return nil, raised
	}
	return GetBool(!b), nil
}

// Iter implements the Python iter() builtin. It returns an iterator for o if
// o is iterable. Otherwise it raises TypeError.
func Iter(f *Frame, o *Object) (*Object, *BaseException) {
	if iter := o.typ.slots.Iter; iter != nil {
		it, raised := iter.Fn(f, o)
		if raised != nil {
			return nil, raised
		}
		if it.typ.slots.Next == nil {
			format := "iter() returned non-iterator of type '%s'"
			return nil, f.RaiseType(TypeErrorType, fmt.Sprintf(format, it.typ.Name()))
		}
		return it, nil
	}
	if s := o.typ.slots.Sequence; s != nil && s.Item != nil {
		return newSeqIterator(o), nil
	}
	return nil, f.RaiseType(TypeErrorType, fmt.Sprintf("'%s' object is not iterable", o.typ.Name()))
}

// Next implements the Python next() builtin. Exhaustion is signaled by a
// raised StopIteration.
func Next(f *Frame, iter *Object) (*Object, *BaseException) {
	next := iter.typ.slots.Next
	if next == nil {
		return nil, f.RaiseType(TypeErrorType, fmt.Sprintf("'%s' object is not an iterator", iter.typ.Name()))
	}
	return next.Fn(f, iter)
}

// IsInstance returns true if the type o is an instance of classinfo, or an
// instance of an element in classinfo (if classinfo is a tuple). A type whose
// metaclass defines __instancecheck__ decides for itself.
func IsInstance(f *Frame, o *Object, classinfo *Object) (bool, *BaseException) {
	if o.typ.ToObject() == classinfo {
		return true, nil
	}
	if classinfo.typ == TypeType {
		return realIsInstance(f, o, classinfo)
	}
	if classinfo.isInstance(TupleType) {
		if raised := f.ts.enterRecursiveCall(f, " in __instancecheck__"); raised != nil {
			return false, raised
		}
		defer f.ts.leaveRecursiveCall()
		for _, elem := range toTupleUnsafe(classinfo).elems {
			r, raised := IsInstance(f, o, elem)
			if raised != nil || r {
				return r, raised
			}
		}
		return false, nil
	}
	if check := classinfo.typ.slots.InstanceCheck; check != nil {
		if raised := f.ts.enterRecursiveCall(f, " in __instancecheck__"); raised != nil {
			return false, raised
		}
		r, raised := check.Fn(f, classinfo, o)
		f.ts.leaveRecursiveCall()
		if raised != nil {
			return false, raised
		}
		return IsTrue(f, r)
	}
	return realIsInstance(f, o, classinfo)
}

// IsSubclass returns true if the type o is a subtype of classinfo or a subtype
// of an element in classinfo (if classinfo is a tuple).
func IsSubclass(f *Frame, o *Object, classinfo *Object) (bool, *BaseException) {
	if classinfo.typ == TypeType {
		if o == classinfo {
			return true, nil
		}
		return realIsSubclass(f, o, classinfo)
	}
	if classinfo.isInstance(TupleType) {
		if raised := f.ts.enterRecursiveCall(f, " in __subclasscheck__"); raised != nil {
			return false, raised
		}
		defer f.ts.leaveRecursiveCall()
		for _, elem := range toTupleUnsafe(classinfo).elems {
			r, raised := IsSubclass(f, o, elem)
			if raised != nil || r {
				return r, raised
			}
		}
		return false, nil
	}
	if check := classinfo.typ.slots.SubclassCheck; check != nil {
		if raised := f.ts.enterRecursiveCall(f, " in __subclasscheck__"); raised != nil {
			return false, raised
		}
		r, raised := check.Fn(f, classinfo, o)
		f.ts.leaveRecursiveCall()
		if raised != nil {
			return false, raised
		}
		return IsTrue(f, r)
	}
	return realIsSubclass(f, o, classinfo)
}

func realIsInstance(f *Frame, o, cls *Object) (bool, *BaseException) {
	if cls.isInstance(TypeType) {
		if o.isInstance(toTypeUnsafe(cls)) {
			return true, nil
		}
		icls, raised := GetAttr(f, o, classStr, None)
		if raised != nil {
			return false, raised
		}
		if icls != o.typ.ToObject() && icls.isInstance(TypeType) {
			return toTypeUnsafe(icls).isSubclass(toTypeUnsafe(cls)), nil
		}
		return false, nil
	}
	if raised := checkClass(f, cls, "isinstance() arg 2 must be a type, a tuple of types, or a union"); raised != nil {
		return false, raised
	}
	icls, raised := GetAttr(f, o, classStr, None)
	if raised != nil || icls == None {
		return false, raised
	}
	return abstractIsSubclass(f, icls, cls)
}

func realIsSubclass(f *Frame, derived, cls *Object) (bool, *BaseException) {
	if cls.isInstance(TypeType) && derived.isInstance(TypeType) {
		return toTypeUnsafe(derived).isSubclass(toTypeUnsafe(cls)), nil
	}
	if raised := checkClass(f, derived, "issubclass() arg 1 must be a class"); raised != nil {
		return false, raised
	}
	if raised := checkClass(f, cls, "issubclass() arg 2 must be a class, a tuple of classes, or a union"); raised != nil {
		return false, raised
	}
	return abstractIsSubclass(f, derived, cls)
}

// abstractGetBases returns cls.__bases__ if it is a tuple and nil otherwise.
// Only AttributeError is suppressed.
func abstractGetBases(f *Frame, cls *Object) (*Tuple, *BaseException) {
	bases, raised := GetAttr(f, cls, basesStr, None)
	if raised != nil {
		return nil, raised
	}
	if !bases.isInstance(TupleType) {
		return nil, nil
	}
	return toTupleUnsafe(bases), nil
}

func checkClass(f *Frame, cls *Object, msg string) *BaseException {
	bases, raised := abstractGetBases(f, cls)
	if raised != nil {
		return raised
	}
	if bases == nil {
		return f.RaiseType(TypeErrorType, msg)
	}
	return nil
}

// abstractIsSubclass walks __bases__ tuples looking for cls. Single
// inheritance chains are followed iteratively so deep hierarchies don't
// recurse.
func abstractIsSubclass(f *Frame, derived, cls *Object) (bool, *BaseException) {
	for {
		if derived == cls {
			return true, nil
		}
		bases, raised := abstractGetBases(f, derived)
		if raised != nil || bases == nil {
			return false, raised
		}
		switch n := len(bases.elems); n {
		case 0:
			return false, nil
		case 1:
			derived = bases.elems[0]
			continue
		}
		if raised := f.ts.enterRecursiveCall(f, " in __issubclass__"); raised != nil {
			return false, raised
		}
		defer f.ts.leaveRecursiveCall()
		for _, base := range bases.elems {
			r, raised := abstractIsSubclass(f, base, cls)
			if raised != nil || r {
				return r, raised
			}
		}
		return false, nil
	}
}

// Index returns the int that o represents according to __index__. Ints are
// returned unchanged.
func Index(f *Frame, o *Object) (*Int, *BaseException) {
	if o.isInstance(IntType) {
		return toIntUnsafe(o), nil
	}
	if n := o.typ.slots.Number; n != nil && n.Index != nil {
		i, raised := n.Index.Fn(f, o)
		if raised != nil {
			return nil, raised
		}
		if !i.isInstance(IntType) {
			format := "__index__ returned non-int (type %s)"
			return nil, f.RaiseType(TypeErrorType, fmt.Sprintf(format, i.typ.Name()))
		}
		return toIntUnsafe(i), nil
	}
	format := "'%s' object cannot be interpreted as an integer"
	return nil, f.RaiseType(TypeErrorType, fmt.Sprintf(format, o.typ.Name()))
}

// IndexInt returns the value of o converted to a Go int according to o's
// __index__ slot. It raises OverflowError if the value doesn't fit.
func IndexInt(f *Frame, o *Object) (int, *BaseException) {
	i, raised := Index(f, o)
	if raised != nil {
		return 0, raised
	}
	n, err := safecast.Conv[int](i.Value())
	if err != nil {
		return 0, f.RaiseType(OverflowErrorType, "Python int too large to convert to Go int")
	}
	return n, nil
}

func hasIndex(o *Object) bool {
	if o.isInstance(IntType) {
		return true
	}
	n := o.typ.slots.Number
	return n != nil && n.Index != nil
}

// Len returns the length of o according to its __len__ slot.
func Len(f *Frame, o *Object) (int, *BaseException) {
	if s := o.typ.slots.Sequence; s != nil && s.Len != nil {
		return checkedLen(f, o, s.Len)
	}
	if m := o.typ.slots.Mapping; m != nil && m.Len != nil {
		return checkedLen(f, o, m.Len)
	}
	return 0, f.RaiseType(TypeErrorType, fmt.Sprintf("object of type '%s' has no len()", o.typ.Name()))
}

func checkedLen(f *Frame, o *Object, slot *unaryOpSlot) (int, *BaseException) {
	r, raised := slot.Fn(f, o)
	if raised != nil {
		return 0, raised
	}
	n, raised := IndexInt(f, r)
	if raised != nil {
		return 0, raised
	}
	if n < 0 {
		return 0, f.RaiseType(ValueErrorType, "__len__() should return >= 0")
	}
	return n, nil
}

// Repr returns a string containing a printable representation of o. This is
// equivalent to the Python expression "repr(o)".
func Repr(f *Frame, o *Object) (*Str, *BaseException) {
	repr := o.typ.slots.Repr
	if repr == nil {
		s, raised := o.typ.FullName(f)
		if raised != nil {
			return nil, raised
		}
		return NewStr(fmt.Sprintf("<%s object at %p>", s, o)), nil
	}
	if raised := f.ts.enterRecursiveCall(f, " while getting the repr of an object"); raised != nil {
		return nil, raised
	}
	r, raised := repr.Fn(f, o)
	f.ts.leaveRecursiveCall()
	if raised != nil {
		return nil, raised
	}
	if !r.isInstance(StrType) {
		return nil, f.RaiseType(TypeErrorType, fmt.Sprintf("__repr__ returned non-string (type %s)", r.typ.Name()))
	}
	return toStrUnsafe(r), nil
}

// ToStr is a convenience function for calling "str(o)".
func ToStr(f *Frame, o *Object) (*Str, *BaseException) {
	if o.typ == StrType {
		return toStrUnsafe(o), nil
	}
	str := o.typ.slots.Str
	if str == nil {
		return Repr(f, o)
	}
	s, raised := str.Fn(f, o)
	if raised != nil {
		return nil, raised
	}
	if !s.isInstance(StrType) {
		return nil, f.RaiseType(TypeErrorType, fmt.Sprintf("__str__ returned non-string (type %s)", s.typ.Name()))
	}
	return toStrUnsafe(s), nil
}

// CallMethod looks up the named attribute of o and calls it.
func CallMethod(f *Frame, o *Object, name string, args Args, kwargs KWArgs) (*Object, *BaseException) {
	method, raised := GetAttr(f, o, NewStr(name), nil)
	if raised != nil {
		return nil, raised
	}
	return method.Call(f, args, kwargs)
}

// Invoke calls the given callable with the positional arguments given by args
// and *varargs, and the keyword arguments by keywords and **kwargs. It first
// packs the arguments into slices for the positional and keyword arguments,
// then it passes those to *Object.Call.
func Invoke(f *Frame, callable *Object, args Args, varargs *Object, keywords KWArgs, kwargs *Object) (*Object, *BaseException) {
	if varargs != nil {
		elems, raised := seqToSlice(f, varargs)
		if raised != nil {
			return nil, raised
		}
		packed := make(Args, 0, len(args)+len(elems))
		args = append(append(packed, args...), elems...)
	}
	if kwargs != nil {
		if !kwargs.isInstance(DictType) {
			format := "argument after ** must be a mapping, not %s"
			return nil, f.RaiseType(TypeErrorType, fmt.Sprintf(format, kwargs.typ.Name()))
		}
		d := toDictUnsafe(kwargs)
		packed := make(KWArgs, len(keywords), len(keywords)+d.Len())
		copy(packed, keywords)
		for _, entry := range d.entries() {
			if !entry.key.isInstance(StrType) {
				return nil, f.RaiseType(TypeErrorType, "keywords must be strings")
			}
			name := toStrUnsafe(entry.key).Value()
			if packed.get(name, nil) != nil {
				format := "got multiple values for keyword argument '%s'"
				return nil, f.RaiseType(TypeErrorType, fmt.Sprintf(format, name))
			}
			packed = append(packed, KWArg{name, entry.value})
		}
		keywords = packed
	}
	return callable.Call(f, args, keywords)
}

func checkFunctionArgs(f *Frame, function string, args Args, types ...*Type) *BaseException {
	if len(args) != len(types) {
		msg := fmt.Sprintf("'%s' requires %d arguments", function, len(types))
		return f.RaiseType(TypeErrorType, msg)
	}
	for i, t := range types {
		if !args[i].isInstance(t) {
			format := "'%s' requires a '%s' object but received a '%s'"
			return f.RaiseType(TypeErrorType, fmt.Sprintf(format, function, t.Name(), args[i].typ.Name()))
		}
	}
	return nil
}

func checkFunctionVarArgs(f *Frame, function string, args Args, types ...*Type) *BaseException {
	if len(args) <= len(types) {
		return checkFunctionArgs(f, function, args, types...)
	}
	return checkFunctionArgs(f, function, args[:len(types)], types...)
}

func checkMethodArgs(f *Frame, method string, args Args, types ...*Type) *BaseException {
	if len(args) != len(types) {
		msg := fmt.Sprintf("'%s' of '%s' requires %d arguments", method, types[0].Name(), len(types))
		return f.RaiseType(TypeErrorType, msg)
	}
	for i, t := range types {
		if !args[i].isInstance(t) {
			format := "'%s' requires a '%s' object but received a '%s'"
			return f.RaiseType(TypeErrorType, fmt.Sprintf(format, method, t.Name(), args[i].typ.Name()))
		}
	}
	return nil
}

func checkMethodVarArgs(f *Frame, method string, args Args, types ...*Type) *BaseException {
	if len(args) <= len(types) {
		return checkMethodArgs(f, method, args, types...)
	}
	return checkMethodArgs(f, method, args[:len(types)], types...)
}
