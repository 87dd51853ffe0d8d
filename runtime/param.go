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
)

// Param describes a parameter to a Python function.
type Param struct {
	// Name is the argument name.
	Name string
	// Def is the default value to use if the argument is not provided. If
	// no default is specified then Def is nil.
	Def *Object
}

// ParamSpec describes a Python function's parameters: positional parameters,
// an optional *args collector, keyword-only parameters and an optional
// **kwargs collector, in that order.
type ParamSpec struct {
	Count       int
	name        string
	minArgs     int
	varArgIndex int
	kwArgIndex  int
	params      []Param
	kwOnly      []Param
}

// NewParamSpec returns a new ParamSpec that accepts the given positional
// parameters and optional vararg and/or kwarg parameter.
func NewParamSpec(name string, params []Param, varArg bool, kwArg bool) *ParamSpec {
	return newParamSpecKW(name, params, varArg, nil, kwArg)
}

func newParamSpecKW(name string, params []Param, varArg bool, kwOnly []Param, kwArg bool) *ParamSpec {
	s := &ParamSpec{name: name, params: params, kwOnly: kwOnly, varArgIndex: -1, kwArgIndex: -1}
	numParams := len(params)
	for ; s.minArgs < numParams; s.minArgs++ {
		if params[s.minArgs].Def != nil {
			break
		}
	}
	for _, p := range params[s.minArgs:numParams] {
		if p.Def == nil {
			format := "%s() non-default argument %s follows default argument"
			logFatal(fmt.Sprintf(format, name, p.Name))
		}
	}
	s.Count = numParams
	if varArg {
		s.varArgIndex = s.Count
		s.Count++
	}
	s.Count += len(kwOnly)
	if kwArg {
		s.kwArgIndex = s.Count
		s.Count++
	}
	return s
}

// Names returns the local variable names the validated slice binds to, given
// the names of the *args and **kwargs collectors.
func (s *ParamSpec) Names(varArg, kwArg string) []string {
	names := make([]string, 0, s.Count)
	for _, p := range s.params {
		names = append(names, p.Name)
	}
	if s.varArgIndex != -1 {
		names = append(names, varArg)
	}
	for _, p := range s.kwOnly {
		names = append(names, p.Name)
	}
	if s.kwArgIndex != -1 {
		names = append(names, kwArg)
	}
	return names
}

// Validate ensures that a the args and kwargs passed are valid arguments for
// the param spec s. The validated parameters are output to the validated slice
// which must have len s.Count. Collected *args and **kwargs values are new
// references owned by the caller.
func (s *ParamSpec) Validate(f *Frame, validated []*Object, args Args, kwargs KWArgs) *BaseException {
	if nv := len(validated); nv != s.Count {
		format := "%s(): validated slice was incorrect size: %d, want %d"
		return f.RaiseType(SystemErrorType, fmt.Sprintf(format, s.name, nv, s.Count))
	}
	numParams := len(s.params)
	argc := len(args)
	if argc > numParams && s.varArgIndex == -1 {
		format := "%s() takes %d positional arguments but %d were given"
		return f.RaiseType(TypeErrorType, fmt.Sprintf(format, s.name, numParams, argc))
	}
	i := 0
	for ; i < argc && i < numParams; i++ {
		validated[i] = args[i]
	}
	if s.varArgIndex != -1 {
		validated[s.varArgIndex] = NewTuple(args[i:].makeCopy()...).ToObject()
	}
	kwOnlyBase := numParams
	if s.varArgIndex != -1 {
		kwOnlyBase++
	}
	var kwargDict *Dict
	if s.kwArgIndex != -1 {
		kwargDict = NewDict()
		validated[s.kwArgIndex] = kwargDict.ToObject()
	}
	for _, kw := range kwargs {
		j := s.keywordIndex(kw.Name, kwOnlyBase)
		if j >= 0 {
			if validated[j] != nil {
				format := "%s() got multiple values for argument '%s'"
				return f.RaiseType(TypeErrorType, fmt.Sprintf(format, s.name, kw.Name))
			}
			validated[j] = kw.Value
			continue
		}
		if kwargDict == nil {
			format := "%s() got an unexpected keyword argument '%s'"
			return f.RaiseType(TypeErrorType, fmt.Sprintf(format, s.name, kw.Name))
		}
		if raised := kwargDict.SetItemString(f, kw.Name, kw.Value); raised != nil {
			return raised
		}
	}
	for ; i < numParams; i++ {
		p := s.params[i]
		if validated[i] == nil {
			if p.Def == nil {
				format := "%s() missing required argument: '%s'"
				return f.RaiseType(TypeErrorType, fmt.Sprintf(format, s.name, p.Name))
			}
			validated[i] = p.Def
		}
	}
	for k, p := range s.kwOnly {
		if validated[kwOnlyBase+k] == nil {
			if p.Def == nil {
				format := "%s() missing required keyword-only argument: '%s'"
				return f.RaiseType(TypeErrorType, fmt.Sprintf(format, s.name, p.Name))
			}
			validated[kwOnlyBase+k] = p.Def
		}
	}
	return nil
}

func (s *ParamSpec) keywordIndex(name string, kwOnlyBase int) int {
	for j, p := range s.params {
		if p.Name == name {
			return j
		}
	}
	for k, p := range s.kwOnly {
		if p.Name == name {
			return kwOnlyBase + k
		}
	}
	return -1
}
