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
	"testing"
)

func TestSysSource(t *testing.T) {
	cases := []struct {
		src     string
		want    interface{}
		wantExc *BaseException
	}{
		{src: "import sys\nresult = sys.getrecursionlimit()\n", want: defaultRecursionLimit},
		{src: "import sys\nresult = sys.exc_info()\n", want: newTestTuple(nil, nil, nil)},
		{src: "import sys\ntry:\n  raise KeyError('k')\nexcept KeyError:\n  t, v, tb = sys.exc_info()\nresult = t is KeyError, str(v), tb is None\n", want: newTestTuple(true, "'k'", false)},
		{src: "import sys\ndef f():\n  return sys._getframe().f_code.co_name, sys._getframe(1).f_code.co_name\nresult = f()\n", want: newTestTuple("f", "<module>")},
		{src: "import sys\nresult = sys.modules['sys'] is sys, sys.__name__\n", want: newTestTuple(true, "sys")},
		{src: "import sys\nresult = sys.getrefcount(sys) > 0\n", want: true},
		{src: "import sys\ntry:\n  sys.exit(3)\nexcept SystemExit as e:\n  result = e.code\n", want: 3},
		{src: "import sys\ntry:\n  sys.exit()\nexcept SystemExit as e:\n  result = e.code\n", want: nil},
		{src: "import sys\nsys.setrecursionlimit(0)\n", wantExc: mustCreateException(ValueErrorType, "recursion limit must be greater or equal than 1")},
		{src: "import sys\nsys.exit(1, 2)\n", wantExc: mustCreateException(TypeErrorType, "exit expected at most 1 argument, got 2")},
		{src: "import sys\nsys._getframe(1000)\n", wantExc: mustCreateException(ValueErrorType, "call stack is not deep enough")},
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
