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
)

// PreInitialize applies cfg to the process runtime. A nil cfg means the
// defaults with the environment overrides applied. Calling it again before
// Initialize is a no-op.
func PreInitialize(cfg *PreConfig) error {
	rt := &runtimeState
	rt.mu.Lock()
	defer rt.mu.Unlock()
	switch {
	case rt.stage == RuntimePreInitialized:
		return nil
	case rt.stage > RuntimePreInitialized:
		return fmt.Errorf("pre-initialize: %w", errAlreadyInitialized)
	}
	if cfg == nil {
		cfg = DefaultPreConfig()
		cfg.ApplyEnv()
	}
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("pre-initialize: %w", err)
	}
	rt.stage = RuntimePreInitializing
	rt.preConfig = cfg.Clone()
	setDebugAllocator(cfg.Allocator == AllocatorDebug)
	rt.stage = RuntimePreInitialized
	return nil
}

// Initialize creates the main interpreter and its main thread, imports
// builtins and sys, installs the signal handlers and creates __main__. The
// returned thread state is current. A nil cfg means the defaults with the
// environment overrides applied.
func Initialize(cfg *Config) (*ThreadState, error) {
	rt := &runtimeState
	if rt.stage >= RuntimeCoreInitializing {
		return nil, fmt.Errorf("initialize: %w", errAlreadyInitialized)
	}
	if err := PreInitialize(nil); err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = DefaultConfig()
		if err := cfg.ApplyEnv(); err != nil {
			return nil, fmt.Errorf("initialize: %w", err)
		}
	}
	rt.mu.Lock()
	rt.stage = RuntimeCoreInitializing
	rt.mu.Unlock()
	ts, err := initCore(cfg)
	if err != nil {
		rt.mu.Lock()
		rt.stage = RuntimePreInitialized
		rt.mu.Unlock()
		return nil, fmt.Errorf("initialize: %w", err)
	}
	rt.mu.Lock()
	rt.stage = RuntimeInitialized
	rt.mu.Unlock()
	return ts, nil
}

func initCore(cfg *Config) (*ThreadState, error) {
	rt := &runtimeState
	interp, err := NewInterpreterState()
	if err != nil {
		return nil, err
	}
	interp.setConfig(cfg)
	ts, err := NewThreadState(interp)
	if err != nil {
		interp.Delete()
		return nil, err
	}
	rt.mainInterp.Store(interp)
	rt.mainThread = ts
	ThreadStateSwap(ts)
	f := ts.rootFrame
	if err := initCoreModules(f); err != nil {
		ThreadStateSwap(nil)
		interp.Clear(f)
		interp.Delete()
		rt.mainThread = nil
		return nil, err
	}
	return ts, nil
}

func initCoreModules(f *Frame) error {
	interp := f.ts.interp
	b, raised := ImportModule(f, "builtins")
	if raised != nil {
		return exceptionError(f, "importing builtins", raised)
	}
	interp.builtins = b.Dict()
	IncRef(interp.builtins.ToObject())
	DecRef(b)
	s, raised := ImportModule(f, "sys")
	if raised != nil {
		return exceptionError(f, "importing sys", raised)
	}
	DecRef(s)
	runtimeState.mu.Lock()
	runtimeState.stage = RuntimeCoreInitialized
	runtimeState.mu.Unlock()
	initSignals(interp.config.InstallSignalHandlers)
	if raised := initMainModule(f); raised != nil {
		return exceptionError(f, "creating __main__", raised)
	}
	return nil
}

func initMainModule(f *Frame) *BaseException {
	m, raised := ImportAddModule(f, "__main__")
	if raised != nil {
		return raised
	}
	d := m.Dict()
	if d.getItemStringNoError("__builtins__") == nil {
		b := f.ts.interp.modules.getItemStringNoError("builtins")
		if b == nil {
			return f.RaiseType(RuntimeErrorType, "Failed to retrieve builtins module")
		}
		if raised := d.SetItemString(f, "__builtins__", b); raised != nil {
			return raised
		}
	}
	return nil
}

// exceptionError converts the pending exception e into a Go error and clears
// it.
func exceptionError(f *Frame, what string, e *BaseException) error {
	msg := strOrPlaceholder(f, e.ToObject(), "<exception str() failed>")
	name, raised := e.typ.FullName(f)
	if raised != nil {
		name = e.typ.Name()
	}
	f.ts.ClearErr()
	return fmt.Errorf("%s: %s: %s", what, name, msg)
}

// RunMain compiles src and runs it in the namespace of __main__. filename is
// recorded as __file__ unless it is a pseudo name such as "<string>".
func RunMain(f *Frame, src, filename string) *BaseException {
	m, raised := ImportAddModule(f, "__main__")
	if raised != nil {
		return raised
	}
	d := m.Dict()
	if filename != "" && filename[0] != '<' {
		s := NewStr(filename)
		raised := d.SetItemString(f, "__file__", s.ToObject())
		DecRef(s.ToObject())
		if raised != nil {
			return raised
		}
	}
	code, raised := Compile(f, src, filename)
	if raised != nil {
		return raised
	}
	_, raised = code.Exec(f, d, d)
	return raised
}

// Finalize tears down the main interpreter, runs the functions registered
// with RegisterAtExit and returns the runtime to the uninitialized stage so
// it may be initialized again. It returns -1 if flushing standard output
// failed and 0 otherwise.
func Finalize() int {
	rt := &runtimeState
	if !IsInitialized() {
		return 0
	}
	ts := threadStateUnchecked()
	if ts == nil {
		ts = rt.mainThread
		ThreadStateSwap(ts)
	}
	interp := ts.interp
	status := 0
	if fl, ok := interp.stdout().(interface{ Flush() error }); ok {
		if err := fl.Flush(); err != nil {
			log.Printf("pycore: flushing stdout: %v", err)
			status = -1
		}
	}
	rt.finalizing.Store(ts)
	finalizeSignals()
	interp.Clear(ts.callFrame())
	ThreadStateSwap(nil)
	interp.Delete()
	clearExtensions()
	rt.mu.Lock()
	rt.mainThread = nil
	rt.preConfig = nil
	rt.mu.Unlock()
	rt.runAtExit()
	rt.mu.Lock()
	rt.stage = RuntimeUninitialized
	rt.mu.Unlock()
	rt.finalizing.Store(nil)
	return status
}
