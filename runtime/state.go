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
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
)

const (
	defaultRecursionLimit = 1000
	// recursionHeadroom is how far past the limit a thread that already
	// overflowed may recurse while handling the RecursionError.
	recursionHeadroom = 50
	maxPendingCalls   = 32
)

var (
	errFinalizing         = errors.New("runtime is finalizing")
	errPendingCallsFull   = errors.New("pending call queue is full")
	errPendingCallsBusy   = errors.New("pending call queue is locked")
	errAlreadyInitialized = errors.New("runtime is already initialized")
)

// EvalFrameFunc runs the code of frame f on thread ts and returns its
// result.
type EvalFrameFunc func(ts *ThreadState, f *Frame) (*Object, *BaseException)

// ThreadState is the execution context of one thread running Python code: its
// pending exception, the stack of exceptions being handled and the current
// frame.
type ThreadState struct {
	interp     *InterpreterState
	prev, next *ThreadState
	id         uint64
	// frame is borrowed: the evaluator that pushed it owns it.
	frame          *Frame
	rootFrame      *Frame
	recursionDepth int
	overflowed     bool
	curType        *Object
	curValue       *Object
	curTb          *Object
	// lastRaised keeps the exception most recently returned by a raise
	// alive after the pending triple is cleared.
	lastRaised     *Object
	excState       excInfo
	excInfo        *excInfo
	dict           *Dict
	asyncExc       *Object
	reprState      map[*Object]bool
}

// NewThreadState creates a thread state attached to interp. The thread is
// given an identifier the first time it is made current.
func NewThreadState(interp *InterpreterState) (*ThreadState, error) {
	if interp.runtime.IsFinalizing() {
		return nil, fmt.Errorf("new thread state: %w", errFinalizing)
	}
	ts := &ThreadState{interp: interp}
	ts.excInfo = &ts.excState
	ts.rootFrame = newFrame(ts, nil, nil, nil, nil)
	interp.mu.Lock()
	ts.next = interp.threads
	if interp.threads != nil {
		interp.threads.prev = ts
	}
	interp.threads = ts
	interp.mu.Unlock()
	return ts, nil
}

// threadStateUnchecked returns the current thread state, or nil.
func threadStateUnchecked() *ThreadState {
	return runtimeState.current.Load()
}

// ThreadStateGet returns the current thread state. Calling it when no thread
// state is current is a fatal error.
func ThreadStateGet() *ThreadState {
	ts := threadStateUnchecked()
	if ts == nil {
		FatalError("ThreadStateGet", "the function must be called with the GIL held, "+
			"but the GIL is released (the current Python thread state is NULL)")
	}
	return ts
}

// ThreadStateSwap makes ts the current thread state and returns the previous
// one. ts may be nil.
func ThreadStateSwap(ts *ThreadState) *ThreadState {
	if ts != nil && ts.id == 0 {
		ts.id = runtimeState.nextThreadID.Add(1)
	}
	return runtimeState.current.Swap(ts)
}

// Interp returns the interpreter ts belongs to.
func (ts *ThreadState) Interp() *InterpreterState {
	return ts.interp
}

// ID returns the identifier assigned when ts was first made current, or 0.
func (ts *ThreadState) ID() uint64 {
	return ts.id
}

// Frame returns the frame currently executing on ts, or nil.
func (ts *ThreadState) Frame() *Frame {
	return ts.frame
}

// callFrame returns the frame to pass to runtime functions invoked on behalf
// of ts from outside the evaluator.
func (ts *ThreadState) callFrame() *Frame {
	if ts.frame != nil {
		return ts.frame
	}
	return ts.rootFrame
}

// Dict returns the thread's extension dictionary, creating it on first use.
func (ts *ThreadState) Dict() *Dict {
	if ts.dict == nil {
		ts.dict = NewDict()
	}
	return ts.dict
}

// Clear releases everything ts owns. The current frame is borrowed and is
// left alone.
func (ts *ThreadState) Clear() {
	if ts.dict != nil {
		d := ts.dict
		ts.dict = nil
		DecRef(d.ToObject())
	}
	if ts.asyncExc != nil {
		exc := ts.asyncExc
		ts.asyncExc = nil
		DecRef(exc)
	}
	ts.ClearErr()
	if ts.lastRaised != nil {
		e := ts.lastRaised
		ts.lastRaised = nil
		DecRef(e)
	}
	for ts.excInfo != &ts.excState {
		ts.PopExcInfo()
	}
	ts.SetExcInfo(nil, nil, nil)
	ts.reprState = nil
}

// Delete unlinks ts from its interpreter. ts must not be current.
func (ts *ThreadState) Delete() {
	if threadStateUnchecked() == ts {
		FatalError("ThreadState.Delete", "tstate is still current")
		return
	}
	ts.unlink()
}

func (ts *ThreadState) unlink() {
	interp := ts.interp
	interp.mu.Lock()
	if ts.prev != nil {
		ts.prev.next = ts.next
	} else if interp.threads == ts {
		interp.threads = ts.next
	}
	if ts.next != nil {
		ts.next.prev = ts.prev
	}
	ts.prev, ts.next = nil, nil
	interp.mu.Unlock()
}

// isMainThread reports whether ts may run signal handlers: it must be the
// main thread of the main interpreter.
func (ts *ThreadState) isMainThread() bool {
	return ts != nil && ts == runtimeState.mainThread && ts.interp == runtimeState.mainInterp.Load()
}

// SetAsyncExc schedules exc to be raised in ts at its next eval breaker check.
// A nil exc cancels a pending one.
func (ts *ThreadState) SetAsyncExc(exc *Object) {
	old := ts.asyncExc
	ts.asyncExc = exc
	if exc != nil {
		IncRef(exc)
		ts.interp.evalBreaker.Store(true)
	}
	XDecRef(old)
}

// enterRecursiveCall guards a nested call into Python code, raising
// RecursionError when the interpreter's recursion limit is exceeded.
func (ts *ThreadState) enterRecursiveCall(f *Frame, where string) *BaseException {
	ts.recursionDepth++
	limit := ts.interp.recursionLimit
	if ts.overflowed {
		if ts.recursionDepth > limit+recursionHeadroom {
			FatalError("enterRecursiveCall", "Cannot recover from stack overflow.")
		}
		return nil
	}
	if ts.recursionDepth > limit {
		ts.recursionDepth--
		ts.overflowed = true
		return f.RaiseType(RecursionErrorType, "maximum recursion depth exceeded"+where)
	}
	return nil
}

func (ts *ThreadState) leaveRecursiveCall() {
	ts.recursionDepth--
	limit := ts.interp.recursionLimit
	lowWater := limit - recursionHeadroom
	if limit <= 200 {
		lowWater = 3 * limit / 4
	}
	if ts.overflowed && ts.recursionDepth < lowWater {
		ts.overflowed = false
	}
}

// reprEnter marks o as being repr'd on this thread. It returns true if o is
// already being repr'd further up the stack.
func (ts *ThreadState) reprEnter(o *Object) bool {
	if ts.reprState[o] {
		return true
	}
	if ts.reprState == nil {
		ts.reprState = map[*Object]bool{}
	}
	ts.reprState[o] = true
	return false
}

func (ts *ThreadState) reprLeave(o *Object) {
	delete(ts.reprState, o)
}

// pendingCall is a function scheduled to run on the main thread at the next
// eval breaker check.
type pendingCall func(f *Frame) *BaseException

// InterpreterState holds the state shared by the threads of one interpreter:
// its module table, builtins and configuration.
type InterpreterState struct {
	runtime *RuntimeState
	next    *InterpreterState
	id      int64

	mu      sync.Mutex
	threads *ThreadState

	modules        *Dict
	modulesByIndex *List
	builtins       *Dict
	sysdict        *Dict
	dict           *Dict
	config         *Config
	evalFrame      EvalFrameFunc
	recursionLimit int
	warnings       *warningsState
	importLock     recursiveMutex

	pending struct {
		lock  *TryableMutex
		calls []pendingCall
		busy  bool
	}
	evalBreaker atomic.Bool

	errStream io.Writer
	verbose   *log.Logger
}

// NewInterpreterState creates an interpreter attached to the process
// runtime with a default configuration and the default frame evaluator. No
// thread state is created.
func NewInterpreterState() (*InterpreterState, error) {
	rt := &runtimeState
	if rt.IsFinalizing() {
		return nil, fmt.Errorf("new interpreter: %w", errFinalizing)
	}
	interp := &InterpreterState{
		runtime:        rt,
		modules:        NewDict(),
		evalFrame:      defaultEvalFrame,
		recursionLimit: defaultRecursionLimit,
	}
	interp.pending.lock = NewTryableMutex()
	interp.setConfig(DefaultConfig())
	rt.mu.Lock()
	rt.nextInterpID++
	interp.id = rt.nextInterpID
	interp.next = rt.interpreters
	rt.interpreters = interp
	rt.mu.Unlock()
	return interp, nil
}

func (interp *InterpreterState) setConfig(c *Config) {
	interp.config = c.Clone()
	interp.errStream = interp.config.ErrStream
	interp.verbose = nil
	if interp.config.Verbose > 0 {
		interp.verbose = log.New(interp.errStream, "", 0)
	}
}

// ID returns the interpreter's identifier.
func (interp *InterpreterState) ID() int64 {
	return interp.id
}

// Modules returns the module table, keyed by fully qualified module name.
func (interp *InterpreterState) Modules() *Dict {
	return interp.modules
}

// Builtins returns the builtins namespace.
func (interp *InterpreterState) Builtins() *Dict {
	return interp.builtins
}

// Dict returns the interpreter's embedding dictionary, creating it on first
// use.
func (interp *InterpreterState) Dict() *Dict {
	if interp.dict == nil {
		interp.dict = NewDict()
	}
	return interp.dict
}

// Config returns a copy of the interpreter's configuration.
func (interp *InterpreterState) Config() *Config {
	return interp.config.Clone()
}

// EvalFrameFunc returns the frame evaluation strategy.
func (interp *InterpreterState) EvalFrameFunc() EvalFrameFunc {
	return interp.evalFrame
}

// SetEvalFrameFunc replaces the frame evaluation strategy. A nil fn restores
// the default evaluator.
func (interp *InterpreterState) SetEvalFrameFunc(fn EvalFrameFunc) {
	if fn == nil {
		fn = defaultEvalFrame
	}
	interp.evalFrame = fn
}

// RecursionLimit returns the maximum Python call depth.
func (interp *InterpreterState) RecursionLimit() int {
	return interp.recursionLimit
}

// Threads returns the thread states attached to interp, most recent first.
func (interp *InterpreterState) Threads() []*ThreadState {
	interp.mu.Lock()
	defer interp.mu.Unlock()
	var result []*ThreadState
	for ts := interp.threads; ts != nil; ts = ts.next {
		result = append(result, ts)
	}
	return result
}

// Clear releases the module table, the builtins, the embedding dictionary
// and the configuration, in that order. f must run on a thread of interp.
func (interp *InterpreterState) Clear(f *Frame) {
	for _, ts := range interp.Threads() {
		ts.Clear()
	}
	if interp.modulesByIndex != nil {
		l := interp.modulesByIndex
		interp.modulesByIndex = nil
		DecRef(l.ToObject())
	}
	if interp.modules != nil {
		m := interp.modules
		interp.modules = nil
		DecRef(m.ToObject())
	}
	for _, d := range []**Dict{&interp.sysdict, &interp.builtins, &interp.dict} {
		if *d != nil {
			old := *d
			*d = nil
			DecRef(old.ToObject())
		}
	}
	interp.clearWarnings()
	interp.config = nil
}

// Delete unlinks interp from the runtime and deletes its remaining thread
// states. None of them may be current.
func (interp *InterpreterState) Delete() {
	for _, ts := range interp.Threads() {
		ts.Delete()
	}
	rt := interp.runtime
	rt.mu.Lock()
	for p := &rt.interpreters; *p != nil; p = &(*p).next {
		if *p == interp {
			*p = interp.next
			break
		}
	}
	rt.mu.Unlock()
	rt.mainInterp.CompareAndSwap(interp, nil)
}

// AddPendingCall schedules fn to run on the main thread at the next eval
// breaker check. It never blocks: if the queue is locked or full an error is
// returned.
func (interp *InterpreterState) AddPendingCall(fn func(f *Frame) *BaseException) error {
	if !interp.pending.lock.TryLock() {
		return errPendingCallsBusy
	}
	defer interp.pending.lock.Unlock()
	if len(interp.pending.calls) >= maxPendingCalls {
		return errPendingCallsFull
	}
	interp.pending.calls = append(interp.pending.calls, fn)
	interp.evalBreaker.Store(true)
	return nil
}

// makePendingCalls runs the queued pending calls on the main thread. The
// first failure stops the run and leaves the remaining calls queued.
func (interp *InterpreterState) makePendingCalls(f *Frame) *BaseException {
	if interp.pending.busy || !f.ts.isMainThread() {
		return nil
	}
	interp.pending.busy = true
	defer func() { interp.pending.busy = false }()
	for {
		interp.pending.lock.Lock()
		if len(interp.pending.calls) == 0 {
			interp.pending.lock.Unlock()
			return nil
		}
		fn := interp.pending.calls[0]
		interp.pending.calls = interp.pending.calls[1:]
		interp.pending.lock.Unlock()
		if raised := fn(f); raised != nil {
			interp.evalBreaker.Store(true)
			return raised
		}
	}
}

func (interp *InterpreterState) hasPendingCalls() bool {
	interp.pending.lock.Lock()
	defer interp.pending.lock.Unlock()
	return len(interp.pending.calls) > 0
}

// AddModule records m in the module-by-index list at def's index.
func (interp *InterpreterState) AddModule(f *Frame, m *Module, def *ModuleDef) *BaseException {
	if def == nil {
		FatalError("AddModule", "module definition is NULL")
		return nil
	}
	assignModuleIndex(def)
	if l := interp.modulesByIndex; l != nil && def.index < l.Len() && l.elems[def.index] == m.ToObject() {
		return f.RaiseType(SystemErrorType, fmt.Sprintf("module %s already added", def.Name))
	}
	if interp.modulesByIndex == nil {
		interp.modulesByIndex = NewList()
	}
	l := interp.modulesByIndex
	for l.Len() <= def.index {
		l.Append(None)
	}
	return l.SetItem(f, def.index, m.ToObject())
}

// RemoveModule clears def's entry in the module-by-index list.
func (interp *InterpreterState) RemoveModule(f *Frame, def *ModuleDef) *BaseException {
	if def.index == 0 {
		FatalError("RemoveModule", "invalid module index")
		return nil
	}
	if interp.modulesByIndex == nil {
		FatalError("RemoveModule", "Interpreters module-list not accessible.")
		return nil
	}
	if def.index >= interp.modulesByIndex.Len() {
		FatalError("RemoveModule", "Module index out of bounds.")
		return nil
	}
	return interp.modulesByIndex.SetItem(f, def.index, None)
}

// FindModule returns the module registered for def, or nil.
func (interp *InterpreterState) FindModule(def *ModuleDef) *Module {
	if def == nil || def.index == 0 || interp.modulesByIndex == nil {
		return nil
	}
	if def.index >= interp.modulesByIndex.Len() {
		return nil
	}
	o := interp.modulesByIndex.elems[def.index]
	if o == None {
		return nil
	}
	return toModuleUnsafe(o)
}

// RuntimeStage is the initialization progress of the process runtime.
type RuntimeStage int

const (
	// RuntimeUninitialized is the state before initialization and after
	// finalization.
	RuntimeUninitialized RuntimeStage = iota
	// RuntimePreInitializing is set while the pre-configuration is applied.
	RuntimePreInitializing
	// RuntimePreInitialized means the allocator and pre-configuration are
	// in place.
	RuntimePreInitialized
	// RuntimeCoreInitializing is set while the main interpreter is built.
	RuntimeCoreInitializing
	// RuntimeCoreInitialized means builtins and sys exist.
	RuntimeCoreInitialized
	// RuntimeInitialized means the runtime is fully usable.
	RuntimeInitialized
)

var stageNames = []string{
	RuntimeUninitialized:    "uninitialized",
	RuntimePreInitializing:  "pre-initializing",
	RuntimePreInitialized:   "pre-initialized",
	RuntimeCoreInitializing: "core-initializing",
	RuntimeCoreInitialized:  "core-initialized",
	RuntimeInitialized:      "initialized",
}

func (s RuntimeStage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("RuntimeStage(%d)", int(s))
}

const maxAtExitFuncs = 32

type extensionKey struct {
	origin, name string
}

type extensionEntry struct {
	def  *ModuleDef
	copy *Dict
}

// RuntimeState is the process-wide runtime: initialization progress, the
// interpreters and the current thread state.
type RuntimeState struct {
	mu           sync.Mutex
	stage        RuntimeStage
	finalizing   atomic.Pointer[ThreadState]
	atExit       []func()
	preConfig    *PreConfig
	interpreters *InterpreterState
	nextInterpID int64
	mainInterp   atomic.Pointer[InterpreterState]
	mainThread   *ThreadState
	current      atomic.Pointer[ThreadState]
	nextThreadID atomic.Uint64
	extensions   map[extensionKey]*extensionEntry
	inittab      []InittabEntry
}

var runtimeState RuntimeState

func init() {
	runtimeState.inittab = defaultInittab()
}

// Runtime returns the process runtime.
func Runtime() *RuntimeState {
	return &runtimeState
}

// Stage returns the runtime's initialization progress.
func (rt *RuntimeState) Stage() RuntimeStage {
	return rt.stage
}

// MainInterpreter returns the main interpreter, or nil.
func (rt *RuntimeState) MainInterpreter() *InterpreterState {
	return rt.mainInterp.Load()
}

// IsFinalizing reports whether finalization has started.
func (rt *RuntimeState) IsFinalizing() bool {
	return rt.finalizing.Load() != nil
}

// IsInitialized reports whether the runtime is fully initialized.
func IsInitialized() bool {
	return runtimeState.stage == RuntimeInitialized
}

// IsFinalizing reports whether the runtime is shutting down.
func IsFinalizing() bool {
	return runtimeState.IsFinalizing()
}

// RegisterAtExit registers fn to run at the end of Finalize. Functions run
// in reverse order of registration.
func RegisterAtExit(fn func()) error {
	rt := &runtimeState
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if len(rt.atExit) >= maxAtExitFuncs {
		return fmt.Errorf("register at exit: at most %d functions may be registered", maxAtExitFuncs)
	}
	rt.atExit = append(rt.atExit, fn)
	return nil
}

func (rt *RuntimeState) runAtExit() {
	rt.mu.Lock()
	funcs := rt.atExit
	rt.atExit = nil
	rt.mu.Unlock()
	for i := len(funcs) - 1; i >= 0; i-- {
		funcs[i]()
	}
}

// moduleIndexCounter hands out module-by-index slots. Index 0 means
// unassigned.
var moduleIndexCounter atomic.Int64

func assignModuleIndex(def *ModuleDef) {
	if def.index == 0 {
		def.index = int(moduleIndexCounter.Add(1))
	}
}
