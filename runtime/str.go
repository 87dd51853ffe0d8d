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
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// StrType is the object representing the Python 'str' type.
	StrType      = newBasisType("str", reflect.TypeOf(Str{}), ObjectType)
	internedStrs = map[string]*Str{}

	builtinsStr    = InternStr("builtins")
	basesStr       = InternStr("__bases__")
	builtinsDunder = InternStr("__builtins__")
	classStr       = InternStr("__class__")
	delStr         = InternStr("__del__")
	fileStr        = InternStr("__file__")
	initStr        = InternStr("__init__")
	loaderStr      = InternStr("__loader__")
	mainStr        = InternStr("__main__")
	moduleStr      = InternStr("__module__")
	nameStr        = InternStr("__name__")
	packageStr     = InternStr("__package__")
	pathStr        = InternStr("__path__")
	qualnameStr    = InternStr("__qualname__")
	specStr        = InternStr("__spec__")
)

// InternStr adds s to the interned string map. Subsequent calls to NewStr()
// will return the same underlying Str. InternStr is not thread safe and should
// only be called during package initialization or with the runtime held.
func InternStr(s string) *Str {
	str := internedStrs[s]
	if str == nil {
		str = &Str{Object: Object{typ: StrType, refcnt: 1}, value: s, hash: hashString(s), hashed: true}
		internedStrs[s] = str
	}
	return str
}

// Str represents Python 'str' objects.
type Str struct {
	Object
	value  string
	hash   int64
	hashed bool
}

// NewStr returns a new reference to a Str holding the given string value.
func NewStr(value string) *Str {
	if s := internedStrs[value]; s != nil {
		IncRef(s.ToObject())
		return s
	}
	return &Str{Object: objectHeader(StrType), value: value}
}

func toStrUnsafe(o *Object) *Str {
	return (*Str)(o.toPointer())
}

// ToObject upcasts s to an Object.
func (s *Str) ToObject() *Object {
	return &s.Object
}

// Value returns the underlying string value held by s.
func (s *Str) Value() string {
	return s.value
}

func (s *Str) hashValue() int64 {
	if !s.hashed {
		s.hash, s.hashed = hashString(s.value), true
	}
	return s.hash
}

func hashString(s string) int64 {
	l := len(s)
	if l == 0 {
		return 0
	}
	h := int64(s[0]) << 7
	for i := 0; i < l; i++ {
		h = (1000003 * h) ^ int64(s[i])
	}
	h ^= int64(l)
	if h == -1 {
		h = -2
	}
	return h
}

func strAdd(f *Frame, v, w *Object) (*Object, *BaseException) {
	if !w.isInstance(StrType) {
		return NotImplemented, nil
	}
	return NewStr(toStrUnsafe(v).value + toStrUnsafe(w).value).ToObject(), nil
}

func strMul(f *Frame, v, w *Object) (*Object, *BaseException) {
	if !hasIndex(w) {
		return NotImplemented, nil
	}
	n, raised := IndexInt(f, w)
	if raised != nil {
		return nil, raised
	}
	if n <= 0 {
		return NewStr("").ToObject(), nil
	}
	s := toStrUnsafe(v).value
	if len(s) > 0 && n > maxSeqLen/len(s) {
		return nil, f.RaiseType(OverflowErrorType, errResultTooLarge)
	}
	return NewStr(strings.Repeat(s, n)).ToObject(), nil
}

func strCompare(op CompareOp) *binaryOpSlot {
	return &binaryOpSlot{func(f *Frame, v, w *Object) (*Object, *BaseException) {
		if !w.isInstance(StrType) {
			return NotImplemented, nil
		}
		c := strings.Compare(toStrUnsafe(v).value, toStrUnsafe(w).value)
		var r bool
		switch op {
		case CompareLT:
			r = c < 0
		case CompareLE:
			r = c <= 0
		case CompareEq:
			r = c == 0
		case CompareNE:
			r = c != 0
		case CompareGT:
			r = c > 0
		case CompareGE:
			r = c >= 0
		}
		return GetBool(r).ToObject(), nil
	}}
}

func strContains(f *Frame, o, value *Object) (*Object, *BaseException) {
	if !value.isInstance(StrType) {
		format := "'in <string>' requires string as left operand, not %s"
		return nil, f.RaiseType(TypeErrorType, fmt.Sprintf(format, value.typ.Name()))
	}
	return GetBool(strings.Contains(toStrUnsafe(o).value, toStrUnsafe(value).value)).ToObject(), nil
}

func strHash(f *Frame, o *Object) (*Object, *BaseException) {
	return NewInt(toStrUnsafe(o).hashValue()).ToObject(), nil
}

func strItem(f *Frame, o *Object, i int) (*Object, *BaseException) {
	runes := []rune(toStrUnsafe(o).value)
	if i < 0 {
		i += len(runes)
	}
	if i < 0 || i >= len(runes) {
		return nil, f.RaiseType(IndexErrorType, "string index out of range")
	}
	return NewStr(string(runes[i])).ToObject(), nil
}

func strLen(f *Frame, o *Object) (*Object, *BaseException) {
	return NewInt(int64(utf8.RuneCountInString(toStrUnsafe(o).value))).ToObject(), nil
}

func strNew(f *Frame, t *Type, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if len(kwargs) != 0 || len(args) > 1 {
		return nil, f.RaiseType(TypeErrorType, "str() takes at most 1 argument")
	}
	s := ""
	if len(args) == 1 {
		str, raised := ToStr(f, args[0])
		if raised != nil {
			return nil, raised
		}
		s = str.value
	}
	if t == StrType {
		return NewStr(s).ToObject(), nil
	}
	o := newObject(t)
	toStrUnsafe(o).value = s
	return o, nil
}

func strRepr(_ *Frame, o *Object) (*Object, *BaseException) {
	return NewStr(quoteStr(toStrUnsafe(o).value)).ToObject(), nil
}

// quoteStr renders s as a Python string literal, preferring single quotes.
func quoteStr(s string) string {
	quote := byte('\'')
	if strings.IndexByte(s, '\'') >= 0 && strings.IndexByte(s, '"') < 0 {
		quote = '"'
	}
	var buf strings.Builder
	buf.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == rune(quote) || r == '\\':
			buf.WriteByte('\\')
			buf.WriteRune(r)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&buf, `\x%02x`, r)
		case !unicode.IsPrint(r) && r <= 0xff:
			fmt.Fprintf(&buf, `\x%02x`, r)
		case !unicode.IsPrint(r) && r <= 0xffff:
			fmt.Fprintf(&buf, `\u%04x`, r)
		case !unicode.IsPrint(r):
			fmt.Fprintf(&buf, `\U%08x`, r)
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte(quote)
	return buf.String()
}

func strStr(_ *Frame, o *Object) (*Object, *BaseException) {
	if o.typ == StrType {
		return newRef(o), nil
	}
	return NewStr(toStrUnsafe(o).value).ToObject(), nil
}

// strMethod wraps fn as a str method taking self plus the given argument
// types.
func strMethod(name string, fn func(f *Frame, s string, args Args) (*Object, *BaseException), types ...*Type) *Object {
	return newBuiltinFunction(name, func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
		if raised := checkMethodArgs(f, name, args, append([]*Type{StrType}, types...)...); raised != nil {
			return nil, raised
		}
		return fn(f, toStrUnsafe(args[0]).value, args[1:])
	}).ToObject()
}

func strJoin(f *Frame, sep string, args Args) (*Object, *BaseException) {
	var parts []string
	raised := seqForEach(f, args[0], func(o *Object) (bool, *BaseException) {
		if !o.isInstance(StrType) {
			format := "sequence item %d: expected str instance, %s found"
			return false, f.RaiseType(TypeErrorType, fmt.Sprintf(format, len(parts), o.typ.Name()))
		}
		parts = append(parts, toStrUnsafe(o).value)
		return true, nil
	})
	if raised != nil {
		return nil, raised
	}
	return NewStr(strings.Join(parts, sep)).ToObject(), nil
}

func strSplit(f *Frame, s string, args Args) (*Object, *BaseException) {
	var parts []string
	if len(args) == 0 || args[0] == None {
		parts = strings.Fields(s)
	} else {
		if !args[0].isInstance(StrType) {
			return nil, f.RaiseType(TypeErrorType, "must be str or None")
		}
		sep := toStrUnsafe(args[0]).value
		if sep == "" {
			return nil, f.RaiseType(ValueErrorType, "empty separator")
		}
		parts = strings.Split(s, sep)
	}
	elems := make([]*Object, len(parts))
	for i, p := range parts {
		elems[i] = NewStr(p).ToObject()
	}
	l := NewList(elems...)
	for _, e := range elems {
		DecRef(e)
	}
	return l.ToObject(), nil
}

func strPartition(f *Frame, s string, args Args, last bool) (*Object, *BaseException) {
	sep := toStrUnsafe(args[0]).value
	if sep == "" {
		return nil, f.RaiseType(ValueErrorType, "empty separator")
	}
	var i int
	if last {
		i = strings.LastIndex(s, sep)
	} else {
		i = strings.Index(s, sep)
	}
	var head, mid, tail string
	switch {
	case i >= 0:
		head, mid, tail = s[:i], sep, s[i+len(sep):]
	case last:
		tail = s
	default:
		head = s
	}
	return NewTuple(NewStr(head).ToObject(), NewStr(mid).ToObject(), NewStr(tail).ToObject()).ToObject(), nil
}

func strAffix(f *Frame, s string, args Args, has func(s, affix string) bool) (*Object, *BaseException) {
	arg := args[0]
	if arg.isInstance(TupleType) {
		for _, elem := range toTupleUnsafe(arg).elems {
			if elem.isInstance(StrType) && has(s, toStrUnsafe(elem).value) {
				return True.ToObject(), nil
			}
		}
		return False.ToObject(), nil
	}
	if !arg.isInstance(StrType) {
		format := "startswith first arg must be str or a tuple of str, not %s"
		return nil, f.RaiseType(TypeErrorType, fmt.Sprintf(format, arg.typ.Name()))
	}
	return GetBool(has(s, toStrUnsafe(arg).value)).ToObject(), nil
}

func initStrType(dict map[string]*Object) {
	dict["join"] = strMethod("join", strJoin, ObjectType)
	dict["split"] = newBuiltinFunction("split", func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
		if raised := checkMethodVarArgs(f, "split", args, StrType); raised != nil {
			return nil, raised
		}
		return strSplit(f, toStrUnsafe(args[0]).value, args[1:])
	}).ToObject()
	dict["partition"] = strMethod("partition", func(f *Frame, s string, args Args) (*Object, *BaseException) {
		return strPartition(f, s, args, false)
	}, StrType)
	dict["rpartition"] = strMethod("rpartition", func(f *Frame, s string, args Args) (*Object, *BaseException) {
		return strPartition(f, s, args, true)
	}, StrType)
	dict["startswith"] = strMethod("startswith", func(f *Frame, s string, args Args) (*Object, *BaseException) {
		return strAffix(f, s, args, strings.HasPrefix)
	}, ObjectType)
	dict["endswith"] = strMethod("endswith", func(f *Frame, s string, args Args) (*Object, *BaseException) {
		return strAffix(f, s, args, strings.HasSuffix)
	}, ObjectType)
	dict["strip"] = strMethod("strip", func(f *Frame, s string, args Args) (*Object, *BaseException) {
		return NewStr(strings.TrimSpace(s)).ToObject(), nil
	})
	dict["lower"] = strMethod("lower", func(f *Frame, s string, args Args) (*Object, *BaseException) {
		return NewStr(strings.ToLower(s)).ToObject(), nil
	})
	dict["upper"] = strMethod("upper", func(f *Frame, s string, args Args) (*Object, *BaseException) {
		return NewStr(strings.ToUpper(s)).ToObject(), nil
	})
	dict["find"] = strMethod("find", func(f *Frame, s string, args Args) (*Object, *BaseException) {
		i := strings.Index(s, toStrUnsafe(args[0]).value)
		if i > 0 {
			i = utf8.RuneCountInString(s[:i])
		}
		return NewInt(int64(i)).ToObject(), nil
	}, StrType)
	dict["replace"] = strMethod("replace", func(f *Frame, s string, args Args) (*Object, *BaseException) {
		return NewStr(strings.ReplaceAll(s, toStrUnsafe(args[0]).value, toStrUnsafe(args[1]).value)).ToObject(), nil
	}, StrType, StrType)
	StrType.slots.Eq = strCompare(CompareEq)
	StrType.slots.GE = strCompare(CompareGE)
	StrType.slots.GT = strCompare(CompareGT)
	StrType.slots.Hash = &unaryOpSlot{strHash}
	StrType.slots.LE = strCompare(CompareLE)
	StrType.slots.LT = strCompare(CompareLT)
	StrType.slots.NE = strCompare(CompareNE)
	StrType.slots.New = &newSlot{strNew}
	StrType.slots.Repr = &unaryOpSlot{strRepr}
	StrType.slots.Str = &unaryOpSlot{strStr}
	n := StrType.slots.number()
	n.Add = &binaryOpSlot{strAdd}
	n.Mul = &binaryOpSlot{strMul}
	n.RMul = &binaryOpSlot{strMul}
	s := StrType.slots.sequence()
	s.Contains = &binaryOpSlot{strContains}
	s.Item = &seqItemSlot{strItem}
	s.Len = &unaryOpSlot{strLen}
}
