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

/*
Package pycore is a Python object runtime: the object model, reference
counting, exceptions, signals, interpreter and thread state, and imports,
together with a tree walking evaluator for source modules.

Data model

All Python objects are represented by structs that are binary compatible with
pycore.Object, so for example the result of the Python expression "object()"
is just an Object pointer. More complex primitive types like str and dict are
represented by structs that augment Object by embedding it as their first
field and holding other data in subsequent fields.

Objects contain a pointer to their Python type, represented by pycore.Type, a
pointer to their attribute dict, which may be nil, and a reference count.
Every Type holds its bases and its MRO, computed once when the type is
readied.

Each Type also holds a reflect.Type known as the type's "basis": the Go
struct used to store its instances. An instance of a Python type is always
stored in the Go struct that is that type's basis, which is what makes the
unsafe downcasts done by the toXUnsafe helpers valid. E.g. it is valid to cast
an *Object with type StrType to a *Str because it was allocated with storage
represented by StrType's basis, which is struct Str.

Reference counting

Constructors return a new reference owned by the caller. Containers, modules
and the interpreter and thread state own one reference to each object they
store and release it with DecRef when the object is removed. When the count
drops to zero the type's __del__ finalizer runs, weak references are cleared
and the Dealloc slot releases whatever the object owns. Deeply nested
deallocations are queued rather than recursed. None, NotImplemented, True,
False and the static types are never deallocated.

Slots

Each Type carries a typeSlots table: per-operation slots like Repr and Call,
and the Number, Sequence and Mapping capability groups. A type has a
capability iff the group is non-nil once the type is ready. Slots not set by
a type are inherited along its MRO. Generic operations such as Add, GetItem
and RichCompare dispatch through these slots, including the reflected
operation of a subclass operand before the forward one of its base.

Exceptions

Python exceptions are represented by the BaseException basis struct. Runtime
functions propagate exceptions by returning *BaseException as their last
return value. Raising also records the exception as the thread state's
pending triple (type, value, traceback), so code may either check the
returned value or the thread state. ThreadState.Fetch and Restore move the
pending triple in and out without normalizing it.

	func(f *Frame, args Args, kwargs KWArgs) (*Object, *BaseException)

is the signature shared by builtin functions and functions defined in Python
source. The frame f is the caller's: it gives access to the thread state and
the interpreter.

State

A RuntimeState holds the process wide state: the initialization stage, the
interpreters, the current thread state and the extension module cache. Each
InterpreterState has its own module table, builtins and configuration, and
each ThreadState its own pending exception, handled exception stack and frame
stack. Exactly one thread state is current at a time.

Execution model

Python source is parsed into a syntax tree by package parser and compiled
into a Code object. The default frame evaluation function walks that tree,
checking the eval breaker between statements so that tripped signals,
pending calls and asynchronous exceptions are handled promptly. The
evaluation function is pluggable per interpreter.
*/
package pycore
