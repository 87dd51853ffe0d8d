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
	"syscall"

	"golang.org/x/sys/unix"
)

var (
	defaultIntHandler = newBuiltinFunction("default_int_handler", signalDefaultIntHandler)

	setWakeupFDParams = newParamSpecKW("set_wakeup_fd", []Param{{Name: "fd"}}, false,
		[]Param{{Name: "warn_on_full_buffer", Def: True.ToObject()}}, false)

	signalConstants = []struct {
		name string
		sig  unix.Signal
	}{
		{"SIGABRT", unix.SIGABRT},
		{"SIGALRM", unix.SIGALRM},
		{"SIGBUS", unix.SIGBUS},
		{"SIGCHLD", unix.SIGCHLD},
		{"SIGCONT", unix.SIGCONT},
		{"SIGFPE", unix.SIGFPE},
		{"SIGHUP", unix.SIGHUP},
		{"SIGILL", unix.SIGILL},
		{"SIGINT", unix.SIGINT},
		{"SIGIO", unix.SIGIO},
		{"SIGKILL", unix.SIGKILL},
		{"SIGPIPE", unix.SIGPIPE},
		{"SIGPROF", unix.SIGPROF},
		{"SIGQUIT", unix.SIGQUIT},
		{"SIGSEGV", unix.SIGSEGV},
		{"SIGSTOP", unix.SIGSTOP},
		{"SIGSYS", unix.SIGSYS},
		{"SIGTERM", unix.SIGTERM},
		{"SIGTRAP", unix.SIGTRAP},
		{"SIGTSTP", unix.SIGTSTP},
		{"SIGTTIN", unix.SIGTTIN},
		{"SIGTTOU", unix.SIGTTOU},
		{"SIGURG", unix.SIGURG},
		{"SIGUSR1", unix.SIGUSR1},
		{"SIGUSR2", unix.SIGUSR2},
		{"SIGVTALRM", unix.SIGVTALRM},
		{"SIGWINCH", unix.SIGWINCH},
		{"SIGXCPU", unix.SIGXCPU},
		{"SIGXFSZ", unix.SIGXFSZ},
	}
)

var signalModuleDef = &ModuleDef{
	Name: "signal",
	Doc:  "This module provides mechanisms to use signal handlers in Python.",
	Methods: []ModuleMethod{
		{"getsignal", signalGetSignal},
		{"raise_signal", signalRaiseSignal},
		{"set_wakeup_fd", signalSetWakeupFD},
		{"signal", signalSignal},
	},
	Exec: signalExec,
}

func signalNumber(f *Frame, o *Object) (int, *BaseException) {
	sig, raised := IndexInt(f, o)
	if raised != nil {
		return 0, raised
	}
	if sig < 1 || sig >= NSIG {
		return 0, f.RaiseType(ValueErrorType, "signal number out of range")
	}
	return sig, nil
}

func signalDefaultIntHandler(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	return nil, f.Raise(KeyboardInterruptType.ToObject(), nil, nil)
}

func signalGetSignal(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "getsignal", args, ObjectType); raised != nil {
		return nil, raised
	}
	sig, raised := signalNumber(f, args[0])
	if raised != nil {
		return nil, raised
	}
	if fn := signals.handlers[sig].fn; fn != nil {
		return newRef(fn), nil
	}
	return None, nil
}

func signalSignal(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "signal", args, ObjectType, ObjectType); raised != nil {
		return nil, raised
	}
	if !f.ts.isMainThread() {
		return nil, f.RaiseType(ValueErrorType, "signal only works in main thread of the main interpreter")
	}
	sig, raised := signalNumber(f, args[0])
	if raised != nil {
		return nil, raised
	}
	handler := args[1]
	if !isHandler(handler, sigDFL) && !isHandler(handler, sigIGN) && handler.typ.slots.Call == nil {
		return nil, f.RaiseType(TypeErrorType, "signal handler must be signal.SIG_IGN, signal.SIG_DFL, or a callable object")
	}
	if sig == int(unix.SIGKILL) || sig == int(unix.SIGSTOP) {
		return nil, raiseOSError(f, unix.EINVAL)
	}
	// Run handlers for signals that arrived under the old disposition.
	if raised := CheckSignals(f); raised != nil {
		return nil, raised
	}
	if old := setSignalHandler(sig, handler); old != nil {
		return old, nil
	}
	return None, nil
}

func signalSetWakeupFD(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	validated := make([]*Object, setWakeupFDParams.Count)
	if raised := setWakeupFDParams.Validate(f, validated, args, kwargs); raised != nil {
		return nil, raised
	}
	fd, raised := IndexInt(f, validated[0])
	if raised != nil {
		return nil, raised
	}
	warn, raised := IsTrue(f, validated[1])
	if raised != nil {
		return nil, raised
	}
	if !f.ts.isMainThread() {
		return nil, f.RaiseType(ValueErrorType, "set_wakeup_fd only works in main thread of the main interpreter")
	}
	if fd != -1 {
		var st unix.Stat_t
		if err := unix.Fstat(fd, &st); err != nil {
			return nil, raiseOSError(f, err)
		}
		flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
		if err != nil {
			return nil, raiseOSError(f, err)
		}
		if flags&unix.O_NONBLOCK == 0 {
			return nil, f.RaiseType(ValueErrorType, fmt.Sprintf("the fd %d must be in non-blocking mode", fd))
		}
	}
	old := signals.wakeupFD.Swap(int64(fd))
	signals.warnOnFullBuffer.Store(warn)
	return NewInt(old).ToObject(), nil
}

// signalRaiseSignal delivers sig to the process. A Python-level handler is
// tripped directly and run before returning.
func signalRaiseSignal(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException) {
	if raised := checkFunctionArgs(f, "raise_signal", args, ObjectType); raised != nil {
		return nil, raised
	}
	sig, raised := signalNumber(f, args[0])
	if raised != nil {
		return nil, raised
	}
	switch fn := signals.handlers[sig].fn; {
	case isHandler(fn, sigIGN):
	case fn == nil || isHandler(fn, sigDFL):
		if err := unix.Kill(unix.Getpid(), syscall.Signal(sig)); err != nil {
			return nil, raiseOSError(f, err)
		}
	default:
		tripSignal(sig)
	}
	if raised := CheckSignals(f); raised != nil {
		return nil, raised
	}
	return None, nil
}

func signalExec(f *Frame, m *Module) *BaseException {
	consts := map[string]*Object{
		"SIG_DFL":             NewInt(sigDFL).ToObject(),
		"SIG_IGN":             NewInt(sigIGN).ToObject(),
		"NSIG":                NewInt(NSIG).ToObject(),
		"default_int_handler": defaultIntHandler.ToObject(),
	}
	for _, c := range signalConstants {
		consts[c.name] = NewInt(int64(c.sig)).ToObject()
	}
	for name, value := range consts {
		if raised := m.AddObject(f, name, value); raised != nil {
			return raised
		}
	}
	return nil
}
