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
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"
)

// NSIG is one more than the largest signal number.
const NSIG = 65

// Handler values stored for the SIG_DFL and SIG_IGN dispositions.
const (
	sigDFL = 0
	sigIGN = 1
)

type signalHandler struct {
	tripped atomic.Bool
	// fn and notified are only touched on the main thread.
	fn       *Object
	notified bool
}

// signals is the process-wide signal table. Only the atomic fields are
// written from the delivery path.
var signals struct {
	isTripped        atomic.Bool
	handlers         [NSIG]signalHandler
	wakeupFD         atomic.Int64
	warnOnFullBuffer atomic.Bool
	dispatchOnce     sync.Once
	ch               chan os.Signal
}

func init() {
	signals.wakeupFD.Store(-1)
	signals.warnOnFullBuffer.Store(true)
}

// tripSignal records the delivery of sig. It takes no locks and runs no
// Python code. The tripped flag is published before the wakeup fd is written
// so a loop woken by the byte always observes it.
func tripSignal(sig int) {
	signals.handlers[sig].tripped.Store(true)
	signals.isTripped.Store(true)
	if interp := runtimeState.mainInterp.Load(); interp != nil {
		interp.evalBreaker.Store(true)
	}
	fd := signals.wakeupFD.Load()
	if fd < 0 {
		return
	}
	if _, err := unix.Write(int(fd), []byte{byte(sig)}); err != nil {
		if errors.Is(err, unix.EAGAIN) && !signals.warnOnFullBuffer.Load() {
			return
		}
		reportWakeupWriteError(err)
	}
}

// reportWakeupWriteError defers the report of a failed wakeup write to the
// main thread.
func reportWakeupWriteError(err error) {
	interp := runtimeState.mainInterp.Load()
	if interp == nil {
		return
	}
	// A full or busy queue drops the report. The signal itself is
	// already recorded.
	_ = interp.AddPendingCall(func(f *Frame) *BaseException {
		raiseOSError(f, err)
		WriteUnraisableMsg(f, "when trying to write to the signal wakeup fd", nil)
		return nil
	})
}

func signalsTripped() bool {
	return signals.isTripped.Load()
}

// CheckSignals runs the Python handlers of signals delivered since the last
// call. It does nothing unless a signal was tripped and f runs on the main
// thread of the main interpreter. A failing handler leaves the remaining
// signals tripped for the next call.
func CheckSignals(f *Frame) *BaseException {
	if !signals.isTripped.Load() {
		return nil
	}
	ts := f.ts
	if !ts.isMainThread() {
		return nil
	}
	signals.isTripped.Store(false)
	frame := None
	if ts.frame != nil {
		frame = ts.frame.ToObject()
	}
	for i := 1; i < NSIG; i++ {
		h := &signals.handlers[i]
		if !h.tripped.Load() {
			continue
		}
		h.tripped.Store(false)
		fn := h.fn
		if fn == nil || fn == None || isHandler(fn, sigIGN) || isHandler(fn, sigDFL) {
			f.RaiseType(OSErrorType, fmt.Sprintf("Signal %d ignored due to race condition", i))
			WriteUnraisable(f, None)
			continue
		}
		signum := NewInt(int64(i))
		_, raised := fn.Call(f, Args{signum.ToObject(), frame}, nil)
		DecRef(signum.ToObject())
		if raised != nil {
			signals.isTripped.Store(true)
			ts.interp.evalBreaker.Store(true)
			return raised
		}
	}
	return nil
}

func isHandler(o *Object, disposition int64) bool {
	return o != nil && o.typ == IntType && toIntUnsafe(o).Value() == disposition
}

func startSignalDispatcher() {
	signals.dispatchOnce.Do(func() {
		signals.ch = make(chan os.Signal, NSIG)
		go func() {
			for s := range signals.ch {
				if sig, ok := s.(syscall.Signal); ok && sig > 0 && int(sig) < NSIG {
					tripSignal(int(sig))
				}
			}
		}()
	})
}

// setOSHandler routes the OS disposition of sig according to handler.
func setOSHandler(sig int, handler *Object) {
	s := syscall.Signal(sig)
	h := &signals.handlers[sig]
	switch {
	case isHandler(handler, sigDFL):
		signal.Reset(s)
		h.notified = false
	case isHandler(handler, sigIGN):
		signal.Ignore(s)
		h.notified = false
	default:
		startSignalDispatcher()
		signal.Notify(signals.ch, s)
		h.notified = true
	}
}

// setSignalHandler installs handler for sig and returns the previous
// handler as a new reference, or nil.
func setSignalHandler(sig int, handler *Object) *Object {
	h := &signals.handlers[sig]
	old := h.fn
	h.fn = newRef(handler)
	setOSHandler(sig, handler)
	return old
}

// initSignals resets the handler table from the current OS dispositions and
// installs the SIGINT handler when requested.
func initSignals(installHandlers bool) {
	for i := 1; i < NSIG; i++ {
		h := &signals.handlers[i]
		h.tripped.Store(false)
		disposition := int64(sigDFL)
		if signal.Ignored(syscall.Signal(i)) {
			disposition = sigIGN
		}
		old := h.fn
		h.fn = NewInt(disposition).ToObject()
		XDecRef(old)
	}
	signals.isTripped.Store(false)
	if installHandlers {
		XDecRef(setSignalHandler(int(unix.SIGINT), defaultIntHandler.ToObject()))
	}
}

// finalizeSignals restores the OS dispositions changed by the runtime and
// clears the handler table.
func finalizeSignals() {
	for i := 1; i < NSIG; i++ {
		h := &signals.handlers[i]
		if h.notified {
			signal.Reset(syscall.Signal(i))
			h.notified = false
		}
		h.tripped.Store(false)
		old := h.fn
		h.fn = nil
		XDecRef(old)
	}
	signals.isTripped.Store(false)
	signals.wakeupFD.Store(-1)
	signals.warnOnFullBuffer.Store(true)
}

// raiseOSError raises OSError(errno, strerror) for a failed system call.
func raiseOSError(f *Frame, err error) *BaseException {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return f.RaiseType(OSErrorType, err.Error())
	}
	args := NewTuple(NewInt(int64(errno)).ToObject(), NewStr(errno.Error()).ToObject())
	raised := f.Raise(OSErrorType.ToObject(), args.ToObject(), nil)
	DecRef(args.ToObject())
	return raised
}
