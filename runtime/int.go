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
	"math/bits"
	"reflect"
	"strconv"
	"strings"
)

const (
	internedIntMin = -5
	internedIntMax = 256
	errIntOverflow = "integer overflow"
)

var internedInts = makeInternedInts()

// Int represents Python 'int' objects. Values are limited to 64 bits;
// arithmetic that leaves that range raises OverflowError.
type Int struct {
	Object
	value int64
}

// NewInt returns a new reference to an Int holding the given value. Small
// values share a preallocated object.
func NewInt(value int64) *Int {
	if value >= internedIntMin && value <= internedIntMax {
		i := &internedInts[value-internedIntMin]
		IncRef(i.ToObject())
		return i
	}
	return &Int{objectHeader(IntType), value}
}

func toIntUnsafe(o *Object) *Int {
	return (*Int)(o.toPointer())
}

// ToObject upcasts i to an Object.
func (i *Int) ToObject() *Object {
	return &i.Object
}

// Value returns the underlying integer value held by i.
func (i *Int) Value() int64 {
	return i.value
}

// IsTrue returns false if i is zero, true otherwise.
func (i *Int) IsTrue() bool {
	return i.value != 0
}

// IntType is the object representing the Python 'int' type.
var IntType = newBasisType("int", reflect.TypeOf(Int{}), ObjectType)

func intAbs(f *Frame, o *Object) (*Object, *BaseException) {
	if toIntUnsafe(o).value >= 0 && o.typ == IntType {
		return newRef(o), nil
	}
	if toIntUnsafe(o).value >= 0 {
		return NewInt(toIntUnsafe(o).value).ToObject(), nil
	}
	return intNeg(f, o)
}

func intBool(f *Frame, o *Object) (*Object, *BaseException) {
	return GetBool(toIntUnsafe(o).value != 0).ToObject(), nil
}

func intFloat(f *Frame, o *Object) (*Object, *BaseException) {
	return NewFloat(float64(toIntUnsafe(o).value)).ToObject(), nil
}

func intHash(f *Frame, o *Object) (*Object, *BaseException) {
	v := toIntUnsafe(o).value
	if v == -1 {
		v = -2
	}
	return NewInt(v).ToObject(), nil
}

func intIndex(f *Frame, o *Object) (*Object, *BaseException) {
	if o.typ == IntType {
		return newRef(o), nil
	}
	return NewInt(toIntUnsafe(o).value).ToObject(), nil
}

func intInvert(f *Frame, o *Object) (*Object, *BaseException) {
	return NewInt(^toIntUnsafe(o).value).ToObject(), nil
}

func intNeg(f *Frame, o *Object) (*Object, *BaseException) {
	v := toIntUnsafe(o).value
	if v == math.MinInt64 {
		return nil, f.RaiseType(OverflowErrorType, errIntOverflow)
	}
	return NewInt(-v).ToObject(), nil
}

func intPos(f *Frame, o *Object) (*Object, *BaseException) {
	return intIndex(f, o)
}

func intRepr(f *Frame, o *Object) (*Object, *BaseException) {
	return NewStr(strconv.FormatInt(toIntUnsafe(o).value, 10)).ToObject(), nil
}

// intBinaryOp adapts fn into a slot that returns NotImplemented unless both
// operands are ints. When reflected is set the operands are swapped back so
// fn always sees them in source order.
func intBinaryOp(reflected bool, fn func(f *Frame, v, w int64) (*Object, *BaseException)) *binaryOpSlot {
	return &binaryOpSlot{func(f *Frame, v, w *Object) (*Object, *BaseException) {
		if !w.isInstance(IntType) {
			return NotImplemented, nil
		}
		if reflected {
			v, w = w, v
		}
		return fn(f, toIntUnsafe(v).value, toIntUnsafe(w).value)
	}}
}

func intCheckedAdd(f *Frame, v, w int64) (*Object, *BaseException) {
	r := v + w
	if (r > v) != (w > 0) {
		return nil, f.RaiseType(OverflowErrorType, errIntOverflow)
	}
	return NewInt(r).ToObject(), nil
}

func intCheckedSub(f *Frame, v, w int64) (*Object, *BaseException) {
	r := v - w
	if (r < v) != (w > 0) {
		return nil, f.RaiseType(OverflowErrorType, errIntOverflow)
	}
	return NewInt(r).ToObject(), nil
}

func intCheckedMul(f *Frame, v, w int64) (*Object, *BaseException) {
	r, ok := mulInt64(v, w)
	if !ok {
		return nil, f.RaiseType(OverflowErrorType, errIntOverflow)
	}
	return NewInt(r).ToObject(), nil
}

func mulInt64(v, w int64) (int64, bool) {
	if v == 0 || w == 0 {
		return 0, true
	}
	r := v * w
	if r/w != v || (v == -1 && w == math.MinInt64) || (w == -1 && v == math.MinInt64) {
		return 0, false
	}
	return r, true
}

func intFloorDivMod(f *Frame, v, w int64) (int64, int64, *BaseException) {
	if w == 0 {
		return 0, 0, f.RaiseType(ZeroDivisionErrorType, "integer division or modulo by zero")
	}
	if v == math.MinInt64 && w == -1 {
		return 0, 0, f.RaiseType(OverflowErrorType, errIntOverflow)
	}
	q, m := v/w, v%w
	if m != 0 && (m < 0) != (w < 0) {
		q--
		m += w
	}
	return q, m, nil
}

func intCheckedFloorDiv(f *Frame, v, w int64) (*Object, *BaseException) {
	q, _, raised := intFloorDivMod(f, v, w)
	if raised != nil {
		return nil, raised
	}
	return NewInt(q).ToObject(), nil
}

func intCheckedMod(f *Frame, v, w int64) (*Object, *BaseException) {
	_, m, raised := intFloorDivMod(f, v, w)
	if raised != nil {
		return nil, raised
	}
	return NewInt(m).ToObject(), nil
}

func intTrueDiv(f *Frame, v, w int64) (*Object, *BaseException) {
	if w == 0 {
		return nil, f.RaiseType(ZeroDivisionErrorType, "division by zero")
	}
	return NewFloat(float64(v) / float64(w)).ToObject(), nil
}

func intCheckedPow(f *Frame, v, w int64) (*Object, *BaseException) {
	if w < 0 {
		if v == 0 {
			return nil, f.RaiseType(ZeroDivisionErrorType, "0 cannot be raised to a negative power")
		}
		return NewFloat(math.Pow(float64(v), float64(w))).ToObject(), nil
	}
	result, base := int64(1), v
	for w > 0 {
		var ok bool
		if w&1 == 1 {
			if result, ok = mulInt64(result, base); !ok {
				return nil, f.RaiseType(OverflowErrorType, errIntOverflow)
			}
		}
		w >>= 1
		if w > 0 {
			if base, ok = mulInt64(base, base); !ok {
				return nil, f.RaiseType(OverflowErrorType, errIntOverflow)
			}
		}
	}
	return NewInt(result).ToObject(), nil
}

func intLShift(f *Frame, v, w int64) (*Object, *BaseException) {
	if w < 0 {
		return nil, f.RaiseType(ValueErrorType, "negative shift count")
	}
	if v == 0 {
		return NewInt(0).ToObject(), nil
	}
	mag := v
	if mag < 0 {
		mag = ^mag
	}
	if w >= 63 || bits.Len64(uint64(mag))+int(w) > 63 {
		return nil, f.RaiseType(OverflowErrorType, errIntOverflow)
	}
	return NewInt(v << uint(w)).ToObject(), nil
}

func intRShift(f *Frame, v, w int64) (*Object, *BaseException) {
	if w < 0 {
		return nil, f.RaiseType(ValueErrorType, "negative shift count")
	}
	if w > 63 {
		w = 63
	}
	return NewInt(v >> uint(w)).ToObject(), nil
}

func intAnd(f *Frame, v, w int64) (*Object, *BaseException) {
	return NewInt(v & w).ToObject(), nil
}

func intOr(f *Frame, v, w int64) (*Object, *BaseException) {
	return NewInt(v | w).ToObject(), nil
}

func intXor(f *Frame, v, w int64) (*Object, *BaseException) {
	return NewInt(v ^ w).ToObject(), nil
}

func intCompare(op CompareOp) *binaryOpSlot {
	return &binaryOpSlot{func(f *Frame, v, w *Object) (*Object, *BaseException) {
		if !w.isInstance(IntType) {
			if w.isInstance(FloatType) {
				return floatCompareValues(op, float64(toIntUnsafe(v).value), toFloatUnsafe(w).value), nil
			}
			return NotImplemented, nil
		}
		x, y := toIntUnsafe(v).value, toIntUnsafe(w).value
		var r bool
		switch op {
		case CompareLT:
			r = x < y
		case CompareLE:
			r = x <= y
		case CompareEq:
			r = x == y
		case CompareNE:
			r = x != y
		case CompareGT:
			r = x > y
		case CompareGE:
			r = x >= y
		}
		return GetBool(r).ToObject(), nil
	}}
}

func intNew(f *Frame, t *Type, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if len(kwargs) != 0 || len(args) > 2 {
		return nil, f.RaiseType(TypeErrorType, "int() takes at most 2 arguments")
	}
	var value int64
	switch len(args) {
	case 0:
	case 1:
		i, raised := toIntValue(f, args[0])
		if raised != nil {
			return nil, raised
		}
		value = i
	case 2:
		if !args[0].isInstance(StrType) {
			return nil, f.RaiseType(TypeErrorType, "int() can't convert non-string with explicit base")
		}
		base, raised := IndexInt(f, args[1])
		if raised != nil {
			return nil, raised
		}
		if value, raised = parseIntLiteral(f, toStrUnsafe(args[0]).Value(), base); raised != nil {
			return nil, raised
		}
	}
	if t == IntType {
		return NewInt(value).ToObject(), nil
	}
	o := newObject(t)
	toIntUnsafe(o).value = value
	return o, nil
}

// toIntValue implements the single argument form of int().
func toIntValue(f *Frame, o *Object) (int64, *BaseException) {
	switch {
	case o.isInstance(IntType):
		return toIntUnsafe(o).value, nil
	case o.isInstance(StrType):
		return parseIntLiteral(f, toStrUnsafe(o).Value(), 10)
	case o.isInstance(FloatType):
		v := toFloatUnsafe(o).value
		if math.IsNaN(v) {
			return 0, f.RaiseType(ValueErrorType, "cannot convert float NaN to integer")
		}
		if math.IsInf(v, 0) || v >= math.MaxInt64 || v < math.MinInt64 {
			return 0, f.RaiseType(OverflowErrorType, "cannot convert float infinity to integer")
		}
		return int64(v), nil
	}
	if n := o.typ.slots.Number; n != nil {
		conv := n.Int
		if conv == nil {
			conv = n.Index
		}
		if conv != nil {
			r, raised := conv.Fn(f, o)
			if raised != nil {
				return 0, raised
			}
			if !r.isInstance(IntType) {
				format := "__int__ returned non-int (type %s)"
				return 0, f.RaiseType(TypeErrorType, fmt.Sprintf(format, r.typ.Name()))
			}
			return toIntUnsafe(r).value, nil
		}
	}
	format := "int() argument must be a string or a number, not '%s'"
	return 0, f.RaiseType(TypeErrorType, fmt.Sprintf(format, o.typ.Name()))
}

func parseIntLiteral(f *Frame, s string, base int) (int64, *BaseException) {
	if base != 0 && (base < 2 || base > 36) {
		return 0, f.RaiseType(ValueErrorType, "int() base must be >= 2 and <= 36, or 0")
	}
	lit := strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	neg := false
	if lit != "" && (lit[0] == '-' || lit[0] == '+') {
		neg = lit[0] == '-'
		lit = lit[1:]
	}
	if base == 0 || base == 16 || base == 8 || base == 2 {
		prefixes := map[string]int{"0x": 16, "0X": 16, "0o": 8, "0O": 8, "0b": 2, "0B": 2}
		if len(lit) > 2 {
			if b, ok := prefixes[lit[:2]]; ok && (base == 0 || base == b) {
				base, lit = b, lit[2:]
			}
		}
		if base == 0 {
			base = 10
		}
	}
	u, err := strconv.ParseUint(lit, base, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return 0, f.RaiseType(OverflowErrorType, errIntOverflow)
		}
		format := "invalid literal for int() with base %d: %s"
		r, _ := Repr(f, NewStr(s).ToObject())
		return 0, f.RaiseType(ValueErrorType, fmt.Sprintf(format, base, r.Value()))
	}
	if neg {
		if u > 1<<63 {
			return 0, f.RaiseType(OverflowErrorType, errIntOverflow)
		}
		return -int64(u), nil
	}
	if u > math.MaxInt64 {
		return 0, f.RaiseType(OverflowErrorType, errIntOverflow)
	}
	return int64(u), nil
}

func initIntType(dict map[string]*Object) {
	IntType.slots.Hash = &unaryOpSlot{intHash}
	IntType.slots.New = &newSlot{intNew}
	IntType.slots.Repr = &unaryOpSlot{intRepr}
	IntType.slots.Eq = intCompare(CompareEq)
	IntType.slots.GE = intCompare(CompareGE)
	IntType.slots.GT = intCompare(CompareGT)
	IntType.slots.LE = intCompare(CompareLE)
	IntType.slots.LT = intCompare(CompareLT)
	IntType.slots.NE = intCompare(CompareNE)
	n := IntType.slots.number()
	n.Abs = &unaryOpSlot{intAbs}
	n.Bool = &unaryOpSlot{intBool}
	n.Float = &unaryOpSlot{intFloat}
	n.Index = &unaryOpSlot{intIndex}
	n.Int = &unaryOpSlot{intIndex}
	n.Invert = &unaryOpSlot{intInvert}
	n.Neg = &unaryOpSlot{intNeg}
	n.Pos = &unaryOpSlot{intPos}
	n.Add, n.RAdd = intBinaryOp(false, intCheckedAdd), intBinaryOp(true, intCheckedAdd)
	n.Sub, n.RSub = intBinaryOp(false, intCheckedSub), intBinaryOp(true, intCheckedSub)
	n.Mul, n.RMul = intBinaryOp(false, intCheckedMul), intBinaryOp(true, intCheckedMul)
	n.FloorDiv, n.RFloorDiv = intBinaryOp(false, intCheckedFloorDiv), intBinaryOp(true, intCheckedFloorDiv)
	n.Mod, n.RMod = intBinaryOp(false, intCheckedMod), intBinaryOp(true, intCheckedMod)
	n.TrueDiv, n.RTrueDiv = intBinaryOp(false, intTrueDiv), intBinaryOp(true, intTrueDiv)
	n.Pow, n.RPow = intBinaryOp(false, intCheckedPow), intBinaryOp(true, intCheckedPow)
	n.LShift, n.RLShift = intBinaryOp(false, intLShift), intBinaryOp(true, intLShift)
	n.RShift, n.RRShift = intBinaryOp(false, intRShift), intBinaryOp(true, intRShift)
	n.And, n.RAnd = intBinaryOp(false, intAnd), intBinaryOp(true, intAnd)
	n.Or, n.ROr = intBinaryOp(false, intOr), intBinaryOp(true, intOr)
	n.Xor, n.RXor = intBinaryOp(false, intXor), intBinaryOp(true, intXor)
}

func makeInternedInts() [internedIntMax - internedIntMin + 1]Int {
	var ints [internedIntMax - internedIntMin + 1]Int
	for i := internedIntMin; i <= internedIntMax; i++ {
		ints[i-internedIntMin] = Int{Object{typ: IntType, refcnt: 1}, int64(i)}
	}
	return ints
}
