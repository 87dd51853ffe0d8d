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
	"math"
	"testing"
)

func TestIntBinaryOps(t *testing.T) {
	cases := []struct {
		op      BinaryOperator
		v, w    interface{}
		want    interface{}
		wantExc *BaseException
	}{
		{op: OpAdd, v: -100, w: 50, want: -50},
		{op: OpSub, v: math.MinInt64, w: 1, wantExc: mustCreateException(OverflowErrorType, "integer overflow")},
		{op: OpMul, v: 6, w: 7, want: 42},
		{op: OpMul, v: int64(math.MaxInt64), w: 2, wantExc: mustCreateException(OverflowErrorType, "integer overflow")},
		{op: OpFloorDiv, v: 7, w: -2, want: -4},
		{op: OpFloorDiv, v: int64(math.MinInt64), w: -1, wantExc: mustCreateException(OverflowErrorType, "integer overflow")},
		{op: OpFloorDiv, v: 1, w: 0, wantExc: mustCreateException(ZeroDivisionErrorType, "integer division or modulo by zero")},
		{op: OpMod, v: -7, w: 3, want: 2},
		{op: OpMod, v: 7, w: -3, want: -2},
		{op: OpMod, v: 1, w: 0, wantExc: mustCreateException(ZeroDivisionErrorType, "integer division or modulo by zero")},
		{op: OpTrueDiv, v: 3, w: 2, want: 1.5},
		{op: OpTrueDiv, v: 1, w: 0, wantExc: mustCreateException(ZeroDivisionErrorType, "division by zero")},
		{op: OpPow, v: 2, w: 62, want: int64(1) << 62},
		{op: OpPow, v: 2, w: 63, wantExc: mustCreateException(OverflowErrorType, "integer overflow")},
		{op: OpPow, v: 2, w: -1, want: 0.5},
		{op: OpPow, v: 0, w: -1, wantExc: mustCreateException(ZeroDivisionErrorType, "0 cannot be raised to a negative power")},
		{op: OpLShift, v: 1, w: 10, want: 1024},
		{op: OpLShift, v: 1, w: 63, wantExc: mustCreateException(OverflowErrorType, "integer overflow")},
		{op: OpLShift, v: 1, w: -1, wantExc: mustCreateException(ValueErrorType, "negative shift count")},
		{op: OpRShift, v: -8, w: 1, want: -4},
		{op: OpAnd, v: 12, w: 10, want: 8},
		{op: OpOr, v: 12, w: 10, want: 14},
		{op: OpXor, v: 12, w: 10, want: 6},
		{op: OpAdd, v: 1, w: 0.5, want: 1.5},
		{op: OpAdd, v: 1, w: "a", wantExc: mustCreateException(TypeErrorType, "unsupported operand type(s) for +: 'int' and 'str'")},
	}
	for _, cas := range cases {
		op := cas.op
		fun := wrapFuncForTest(func(f *Frame, v, w *Object) (*Object, *BaseException) {
			return BinaryOp(f, v, w, op)
		})
		testCase := invokeTestCase{args: wrapArgs(cas.v, cas.w), wantExc: cas.wantExc}
		if cas.wantExc == nil {
			testCase.want = wrapValue(cas.want)
		}
		if err := runInvokeTestCase(fun, &testCase); err != "" {
			t.Error(err)
		}
	}
}

func TestIntNew(t *testing.T) {
	cases := []invokeTestCase{
		{want: NewInt(0).ToObject()},
		{args: wrapArgs(" 42 "), want: NewInt(42).ToObject()},
		{args: wrapArgs("-1_000"), want: NewInt(-1000).ToObject()},
		{args: wrapArgs("ff", 16), want: NewInt(255).ToObject()},
		{args: wrapArgs("0x10", 0), want: NewInt(16).ToObject()},
		{args: wrapArgs("0b101", 2), want: NewInt(5).ToObject()},
		{args: wrapArgs(3.9), want: NewInt(3).ToObject()},
		{args: wrapArgs(-3.9), want: NewInt(-3).ToObject()},
		{args: wrapArgs(true), want: NewInt(1).ToObject()},
		{args: wrapArgs("9223372036854775807"), want: NewInt(math.MaxInt64).ToObject()},
		{args: wrapArgs("-9223372036854775808"), want: NewInt(math.MinInt64).ToObject()},
		{args: wrapArgs("9223372036854775808"), wantExc: mustCreateException(OverflowErrorType, "integer overflow")},
		{args: wrapArgs("abc"), wantExc: mustCreateException(ValueErrorType, "invalid literal for int() with base 10: 'abc'")},
		{args: wrapArgs("1", 99), wantExc: mustCreateException(ValueErrorType, "int() base must be >= 2 and <= 36, or 0")},
		{args: wrapArgs(1, 10), wantExc: mustCreateException(TypeErrorType, "int() can't convert non-string with explicit base")},
		{args: wrapArgs(math.NaN()), wantExc: mustCreateException(ValueErrorType, "cannot convert float NaN to integer")},
		{args: wrapArgs(math.Inf(1)), wantExc: mustCreateException(OverflowErrorType, "cannot convert float infinity to integer")},
		{args: wrapArgs(None), wantExc: mustCreateException(TypeErrorType, "int() argument must be a string or a number, not 'NoneType'")},
		{args: wrapArgs(1, 2, 3), wantExc: mustCreateException(TypeErrorType, "int() takes at most 2 arguments")},
	}
	for _, cas := range cases {
		if err := runInvokeTestCase(IntType.ToObject(), &cas); err != "" {
			t.Error(err)
		}
	}
}

func TestIntUnaryOps(t *testing.T) {
	cases := []struct {
		src  string
		want interface{}
	}{
		{"result = -5", -5},
		{"result = +5", 5},
		{"result = abs(-5)", 5},
		{"result = hash(-1)", -2},
		{"result = bool(0), bool(7)", newTestTuple(false, true)},
		{"result = True + 1", 2},
		{"result = repr(True), repr(False)", newTestTuple("True", "False")},
		{"result = repr(12345)", "12345"},
		{"result = bin(5), oct(8), hex(255)", newTestTuple("0b101", "0o10", "0xff")},
		{"result = bin(-5)", "-0b101"},
		{"class I(int):\n  pass\nresult = I(3) + 1, type(abs(I(3))) is int\n", newTestTuple(4, true)},
	}
	for _, cas := range cases {
		f := NewRootFrame()
		d, raised := runTestSource(f, cas.src)
		if raised != nil {
			t.Errorf("%q raised %v", cas.src, raised)
			f.ts.ClearErr()
			continue
		}
		if err := checkEqual(f, testResult(d), wrapValue(cas.want)); err != "" {
			t.Errorf("%q: %s", cas.src, err)
		}
	}
}

func TestIntNegOverflow(t *testing.T) {
	f := NewRootFrame()
	_, raised := Neg(f, NewInt(math.MinInt64).ToObject())
	if want := mustCreateException(OverflowErrorType, "integer overflow"); !exceptionsAreEquivalent(raised, want) {
		t.Errorf("Neg(MinInt64) raised %v, want %v", raised, want)
	}
	f.ts.ClearErr()
}

func TestInternedInts(t *testing.T) {
	if NewInt(5) != NewInt(5) {
		t.Error("small ints are not interned")
	}
	if RefCount(NewInt(5).ToObject()) <= 0 {
		t.Error("interned int has a non-positive reference count")
	}
}

func TestFloatOps(t *testing.T) {
	cases := []struct {
		src     string
		want    interface{}
		wantExc *BaseException
	}{
		{src: "result = 0.1 + 0.2 == 0.3", want: false},
		{src: "result = 7.5 // 2, 7.5 % 2", want: newTestTuple(3.0, 1.5)},
		{src: "result = -7.5 % 2", want: 0.5},
		{src: "result = 2.0 ** 3", want: 8.0},
		{src: "result = float('1.5'), float(2)", want: newTestTuple(1.5, 2.0)},
		{src: "result = int(2.5), abs(-2.5)", want: newTestTuple(2, 2.5)},
		{src: "result = 1.0 == 1, hash(1.0) == hash(1)", want: newTestTuple(true, true)},
		{src: "result = repr(1.0), repr(0.1), repr(1e16), repr(1e-05)", want: newTestTuple("1.0", "0.1", "1e+16", "1e-05")},
		{src: "result = repr(float('inf')), repr(-float('inf'))", want: newTestTuple("inf", "-inf")},
		{src: "1.0 / 0", wantExc: mustCreateException(ZeroDivisionErrorType, "float division by zero")},
		{src: "1.0 % 0", wantExc: mustCreateException(ZeroDivisionErrorType, "float modulo")},
		{src: "0.0 ** -1", wantExc: mustCreateException(ZeroDivisionErrorType, "0.0 cannot be raised to a negative power")},
		{src: "float('x')", wantExc: mustCreateException(ValueErrorType, "could not convert string to float: 'x'")},
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
