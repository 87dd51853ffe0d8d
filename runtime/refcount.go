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
	"sync"
	"sync/atomic"
)

// Reference ownership: containers (tuple, list, dict), modules, the module
// table and thread/interpreter state own one reference to everything they
// store. Constructors return a new reference owned by the caller. The
// evaluator is reference neutral: values it produces are never released by
// it, so only references taken by owners are ever given back.

// trashcanLimit bounds how deep nested deallocations recurse before further
// releases are queued and drained iteratively.
const trashcanLimit = 50

var trashcan struct {
	depth   int
	pending []*Object
}

// IncRef adds a strong reference to o.
func IncRef(o *Object) {
	if o != nil {
		atomic.AddInt64(&o.refcnt, 1)
	}
}

// DecRef releases a strong reference to o. The object is deallocated when
// the last reference goes away.
func DecRef(o *Object) {
	if o == nil {
		FatalError("DecRef", "NULL object passed to DecRef")
		return
	}
	switch n := atomic.AddInt64(&o.refcnt, -1); {
	case n == 0:
		dealloc(o)
	case n < 0:
		FatalError("DecRef", fmt.Sprintf("%s object has negative ref count %d", o.typ.Name(), n))
	}
}

// XDecRef is DecRef that tolerates nil.
func XDecRef(o *Object) {
	if o != nil {
		DecRef(o)
	}
}

// RefCount returns the number of strong references to o.
func RefCount(o *Object) int64 {
	return atomic.LoadInt64(&o.refcnt)
}

// newRef returns o after taking a new reference to it.
func newRef(o *Object) *Object {
	IncRef(o)
	return o
}

// setRef stores o in *slot, taking a new reference and releasing the
// previously stored value.
func setRef(slot **Object, o *Object) {
	IncRef(o)
	old := *slot
	*slot = o
	XDecRef(old)
}

func isImmortal(o *Object) bool {
	return o == None || o == NotImplemented || o == True.ToObject() || o == False.ToObject()
}

func dealloc(o *Object) {
	if isImmortal(o) {
		s := o.typ.Name()
		switch o {
		case None:
			s = "None"
		case True.ToObject(), False.ToObject():
			s = "bool"
		}
		FatalError("dealloc", "deallocating "+s)
		return
	}
	if o.state&objectStateDeallocated != 0 {
		return
	}
	if o.typ == TypeType && toTypeUnsafe(o).flags&typeFlagHeap == 0 {
		// Static types live for the whole process.
		atomic.StoreInt64(&o.refcnt, 1)
		return
	}
	if trashcan.depth >= trashcanLimit {
		trashcan.pending = append(trashcan.pending, o)
		return
	}
	trashcan.depth++
	deallocOne(o)
	trashcan.depth--
	if trashcan.depth == 0 {
		for len(trashcan.pending) > 0 {
			next := trashcan.pending[len(trashcan.pending)-1]
			trashcan.pending = trashcan.pending[:len(trashcan.pending)-1]
			trashcan.depth++
			deallocOne(next)
			trashcan.depth--
		}
	}
}

func deallocOne(o *Object) {
	ts := threadStateUnchecked()
	if del := o.typ.slots.Del; del != nil && ts != nil && o.state&objectStateFinalized == 0 {
		if !callFinalizer(ts, o, del) {
			return
		}
	}
	refs := clearWeakRefs(o)
	if d := o.typ.slots.Dealloc; d != nil {
		d.Fn(o)
	}
	if d := o.Dict(); d != nil {
		o.setDict(nil)
		DecRef(d.ToObject())
	}
	o.state |= objectStateDeallocated
	trackDealloc(o.typ)
	if ts != nil {
		for _, r := range refs {
			r.invokeCallback(ts)
		}
	}
}

// callFinalizer runs o's __del__ with o temporarily resurrected. It returns
// false if the finalizer stored a new reference to o, in which case the
// deallocation is abandoned.
func callFinalizer(ts *ThreadState, o *Object, del *finalizerSlot) bool {
	o.state |= objectStateFinalized
	atomic.StoreInt64(&o.refcnt, 1)
	f := ts.callFrame()
	saved := f.ts.saveErr()
	if raised := del.Fn(f, o); raised != nil {
		exc, tb := f.RestoreExc(nil, nil)
		obj, raised := GetAttr(f, o, delStr, nil)
		if raised != nil {
			f.RestoreExc(nil, nil)
			obj = o
		}
		f.RestoreExc(exc, tb)
		WriteUnraisable(f, obj)
	}
	f.ts.restoreErr(saved)
	return atomic.AddInt64(&o.refcnt, -1) == 0
}

// allocStats counts allocations and deallocations per type when the debug
// allocator is selected.
var allocStats = struct {
	enabled atomic.Bool
	mu      sync.Mutex
	counts  map[*Type]*AllocCounts
}{counts: map[*Type]*AllocCounts{}}

// AllocCounts is a snapshot of the debug allocator's counters for one type.
type AllocCounts struct {
	Allocs   int64
	Deallocs int64
}

func trackAlloc(t *Type) {
	if !allocStats.enabled.Load() {
		return
	}
	allocStats.mu.Lock()
	c := allocStats.counts[t]
	if c == nil {
		c = &AllocCounts{}
		allocStats.counts[t] = c
	}
	c.Allocs++
	allocStats.mu.Unlock()
}

func trackDealloc(t *Type) {
	if !allocStats.enabled.Load() {
		return
	}
	allocStats.mu.Lock()
	c := allocStats.counts[t]
	if c == nil {
		c = &AllocCounts{}
		allocStats.counts[t] = c
	}
	c.Deallocs++
	allocStats.mu.Unlock()
}

// AllocStats returns the debug allocator's counters for t. Both counts are
// zero unless the runtime was preinitialized with the debug allocator.
func AllocStats(t *Type) AllocCounts {
	allocStats.mu.Lock()
	defer allocStats.mu.Unlock()
	if c := allocStats.counts[t]; c != nil {
		return *c
	}
	return AllocCounts{}
}

func setDebugAllocator(enabled bool) {
	allocStats.mu.Lock()
	allocStats.counts = map[*Type]*AllocCounts{}
	allocStats.mu.Unlock()
	allocStats.enabled.Store(enabled)
}
