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
	"reflect"
	"strconv"
	"strings"
)

// FloatType is the object representing the Python 'float' type.
var FloatType = newBasisType("float", reflect.TypeOf(Float{}), ObjectType)

// Float represents Python 'float' objects.
type Float struct {
	Object
	value float64
}

// NewFloat returns a new Float holding the given floating point value.
func NewFloat(value float64) *Float {
	return &Float{objectHeader(FloatType), value}
}

func toFloatUnsafe(o *Object) *Float {
	return (*Float)(o.toPointer())
}

// ToObject upcasts f to an Object.
func (f *Float) ToObject() *Object {
	return &f.Object
}

// Value returns the underlying floating point value held by f.
func (f *Float) Value() float64 {
	return f.value
}

// floatOperand extracts a float64 from a float or int operand.
func floatOperand(o *Object) (float64, bool) {
	switch {
	case o.isInstance(FloatType):
		return toFloatUnsafe(o).value, true
	case o.isInstance(IntType):
		return float64(toIntUnsafe(o).value), true
	}
	return 0, false
}

func floatBinaryOp(reflected bool, fn func(f *Frame, v, w float64) (*Object, *BaseException)) *binaryOpSlot {
	return &binaryOpSlot{func(f *Frame, v, w *Object) (*Object, *BaseException) {
		x, ok := floatOperand(v)
		y, ok2 := floatOperand(w)
		if !ok || !ok2 {
			return NotImplemented, nil
		}
		if reflected {
			x, y = y, x
		}
		return fn(f, x, y)
	}}
}

func floatAdd(f *Frame, v, w float64) (*Object, *BaseException) {
	return NewFloat(v + w).ToObject(), nil
}

func floatSub(f *Frame, v, w float64) (*Object, *BaseException) {
	return NewFloat(v - w).ToObject(), nil
}

func floatMul(f *Frame, v, w float64) (*Object, *BaseException) {
	return NewFloat(v * w).ToObject(), nil
}

func floatTrueDiv(f *Frame, v, w float64) (*Object, *BaseException) {
	if w == 0 {
		return nil, f.RaiseType(ZeroDivisionErrorType, "float division by zero")
	}
	return NewFloat(v / w).ToObject(), nil
}

func floatDivMod(f *Frame, v, w float64) (float64, float64, *BaseException) {
	if w == 0 {
		return 0, 0, f.RaiseType(ZeroDivisionErrorType, "float modulo")
	}
	m := math.Mod(v, w)
	if m != 0 && (m < 0) != (w < 0) {
		m += w
	}
	return math.Floor((v - m) / w), m, nil
}

func floatFloorDiv(f *Frame, v, w float64) (*Object, *BaseException) {
	q, _, raised := floatDivMod(f, v, w)
	if raised != nil {
		return nil, raised
	}
	return NewFloat(q).ToObject(), nil
}

func floatMod(f *Frame, v, w float64) (*Object, *BaseException) {
	_, m, raised := floatDivMod(f, v, w)
	if raised != nil {
		return nil, raised
	}
	return NewFloat(m).ToObject(), nil
}

func floatPow(f *Frame, v, w float64) (*Object, *BaseException) {
	if v == 0 && w < 0 {
		return nil, f.RaiseType(ZeroDivisionErrorType, "0.0 cannot be raised to a negative power")
	}
	return NewFloat(math.Pow(v, w)).ToObject(), nil
}

func floatCompareValues(op CompareOp, x, y float64) *Object {
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
	return GetBool(r).ToObject()
}

func floatCompare(op CompareOp) *binaryOpSlot {
	return &binaryOpSlot{func(f *Frame, v, w *Object) (*Object, *BaseException) {
		y, ok := floatOperand(w)
		if !ok {
			return NotImplemented, nil
		}
		return floatCompareValues(op, toFloatUnsafe(v).value, y), nil
	}}
}

func floatAbs(f *Frame, o *Object) (*Object, *BaseException) {
	return NewFloat(math.Abs(toFloatUnsafe(o).value)).ToObject(), nil
}

func floatBool(f *Frame, o *Object) (*Object, *BaseException) {
	return GetBool(toFloatUnsafe(o).value != 0).ToObject(), nil
}

func floatFloat(f *Frame, o *Object) (*Object, *BaseException) {
	return NewFloat(toFloatUnsafe(o).value).ToObject(), nil
}

func floatInt(f *Frame, o *Object) (*Object, *BaseException) {
	i, raised := toIntValue(f, o)
	if raised != nil {
		return nil, raised
	}
	return NewInt(i).ToObject(), nil
}

func floatHash(f *Frame, o *Object) (*Object, *BaseException) {
	v := toFloatUnsafe(o).value
	if i := int64(v); float64(i) == v {
		return intHash(f, NewInt(i).ToObject())
	}
	return NewInt(int64(math.Float64bits(v) >> 1)).ToObject(), nil
}

func floatNeg(f *Frame, o *Object) (*Object, *BaseException) {
	return NewFloat(-toFloatUnsafe(o).value).ToObject(), nil
}

func floatPos(f *Frame, o *Object) (*Object, *BaseException) {
	return NewFloat(toFloatUnsafe(o).value).ToObject(), nil
}

func floatNew(f *Frame, t *Type, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if len(kwargs) != 0 || len(args) > 1 {
		return nil, f.RaiseType(TypeErrorType, "float() takes at most 1 argument")
	}
	var value float64
	if len(args) == 1 {
		v, raised := toFloatValue(f, args[0])
		if raised != nil {
			return nil, raised
		}
		value = v
	}
	if t == FloatType {
		return NewFloat(value).ToObject(), nil
	}
	o := newObject(t)
	toFloatUnsafe(o).value = value
	return o, nil
}

func toFloatValue(f *Frame, o *Object) (float64, *BaseException) {
	if v, ok := floatOperand(o); ok {
		return v, nil
	}
	if o.isInstance(StrType) {
		s := strings.TrimSpace(toStrUnsafe(o).Value())
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			r, _ := Repr(f, o)
			return 0, f.RaiseType(ValueErrorType, fmt.Sprintf("could not convert string to float: %s", r.Value()))
		}
		return v, nil
	}
	if n := o.typ.slots.Number; n != nil && n.Float != nil {
		r, raised := n.Float.Fn(f, o)
		if raised != nil {
			return 0, raised
		}
		if !r.isInstance(FloatType) {
			format := "%s.__float__ returned non-float (type %s)"
			return 0, f.RaiseType(TypeErrorType, fmt.Sprintf(format, o.typ.Name(), r.typ.Name()))
		}
		return toFloatUnsafe(r).value, nil
	}
	format := "float() argument must be a string or a number, not '%s'"
	return 0, f.RaiseType(TypeErrorType, fmt.Sprintf(format, o.typ.Name()))
}

func floatRepr(f *Frame, o *Object) (*Object, *BaseException) {
	return NewStr(formatFloat(toFloatUnsafe(o).value)).ToObject(), nil
}

// formatFloat renders v the way repr() does: the shortest string that round
// trips, always with a fractional part or an exponent.
func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	}
	if a := math.Abs(v); a != 0 && (a < 1e-4 || a >= 1e16) {
		s := strconv.FormatFloat(v, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		if len(exp) == 2 {
			exp = exp[:1] + "0" + exp[1:]
		}
		return mant + "e" + exp
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

func initFloatType(dict map[string]*Object) {
	FloatType.slots.Eq = floatCompare(CompareEq)
	FloatType.slots.GE = floatCompare(CompareGE)
	FloatType.slots.GT = floatCompare(CompareGT)
	FloatType.slots.Hash = &unaryOpSlot{floatHash}
	FloatType.slots.LE = floatCompare(CompareLE)
	FloatType.slots.LT = floatCompare(CompareLT)
	FloatType.slots.NE = floatCompare(CompareNE)
	FloatType.slots.New = &newSlot{floatNew}
	FloatType.slots.Repr = &unaryOpSlot{floatRepr}
	n := FloatType.slots.number()
	n.Abs = &unaryOpSlot{floatAbs}
	n.Bool = &unaryOpSlot{floatBool}
	n.Float = &unaryOpSlot{floatFloat}
	n.Int = &unaryOpSlot{floatInt}
	n.Neg = &unaryOpSlot{floatNeg}
	n.Pos = &unaryOpSlot{floatPos}
	n.Add, n.RAdd = floatBinaryOp(false, floatAdd), floatBinaryOp(true, floatAdd)
	n.Sub, n.RSub = floatBinaryOp(false, floatSub), floatBinaryOp(true, floatSub)
	n.Mul, n.RMul = floatBinaryOp(false, floatMul), floatBinaryOp(true, floatMul)
	n.TrueDiv, n.RTrueDiv = floatBinaryOp(false, floatTrueDiv), floatBinaryOp(true, floatTrueDiv)
	n.FloorDiv, n.RFloorDiv = floatBinaryOp(false, floatFloorDiv), floatBinaryOp(true, floatFloorDiv)
	n.Mod, n.RMod = floatBinaryOp(false, floatMod), floatBinaryOp(true, floatMod)
	n.Pow, n.RPow = floatBinaryOp(false, floatPow), floatBinaryOp(true, floatPow)
}
