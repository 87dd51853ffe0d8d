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
	"sync"
	"sync/atomic"
)

// recursiveMutex implements a typical reentrant lock, similar to Python's
// RLock. Lock can be called multiple times by the same thread state.
type recursiveMutex struct {
	mutex sync.Mutex
	owner atomic.Pointer[ThreadState]
	count int
}

func (m *recursiveMutex) Lock(ts *ThreadState) {
	if m.owner.Load() != ts {
		// m.owner != ts implies m is not held by this thread and
		// therefore we won't deadlock acquiring the mutex.
		m.mutex.Lock()
		// m.owner is now guaranteed to be empty (otherwise we couldn't
		// have acquired m.mutex) so store our own thread state.
		m.owner.Store(ts)
	}
	m.count++
}

func (m *recursiveMutex) Unlock(ts *ThreadState) {
	if m.owner.Load() != ts {
		logFatal("recursiveMutex.Unlock: thread state did not match that passed to Lock")
	}
	// Since we're unlocking, we must hold m.mutex, so this is safe.
	if m.count <= 0 {
		logFatal("recursiveMutex.Unlock: Unlock called too many times")
	}
	m.count--
	if m.count == 0 {
		m.owner.Store(nil)
		m.mutex.Unlock()
	}
}

// TryableMutex is a mutex-like object that also supports TryLock().
type TryableMutex struct {
	c chan bool
}

// NewTryableMutex returns a new TryableMutex.
func NewTryableMutex() *TryableMutex {
	m := &TryableMutex{make(chan bool, 1)}
	m.Unlock()
	return m
}

// Lock blocks until the mutex is available and then acquires a lock.
func (m *TryableMutex) Lock() {
	<-m.c
}

// TryLock returns true and acquires a lock if the mutex is available, otherwise
// it returns false.
func (m *TryableMutex) TryLock() bool {
	select {
	case <-m.c:
		return true
	default:
		return false
	}
}

// Unlock releases the mutex's lock.
func (m *TryableMutex) Unlock() {
	m.c <- true
}
