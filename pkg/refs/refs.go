// Copyright 2026 The gVisor Authors.
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

// Package refs provides an embeddable atomic reference count with optional
// leak checking.
package refs

import (
	"fmt"
	"sync/atomic"
)

// RefCounter is the interface to be implemented by objects that are reference
// counted.
type RefCounter interface {
	// IncRef increments the reference counter on the object.
	IncRef()

	// DecRef decrements the reference counter on the object.
	DecRef()

	// TryIncRef attempts to increase the reference counter on the object,
	// but may fail if all references have already been dropped.
	TryIncRef() bool
}

// Refs keeps a reference count using atomic operations and calls a
// destructor when the count reaches zero.
type Refs struct {
	// refCount is composed of two fields:
	//
	//	[32-bit speculative references]:[32-bit real references]
	//
	// Speculative references are used for TryIncRef, to avoid a CompareAndSwap
	// loop. See IncRef, DecRef and TryIncRef for details of how these fields are
	// used.
	refCount atomic.Int64

	// owner is registered for leak checking. Immutable after InitRefs.
	owner CheckedObject
}

// InitRefs initializes r with one reference and, if enabled, activates leak
// checking for owner.
func (r *Refs) InitRefs(owner CheckedObject) {
	r.refCount.Store(1)
	r.owner = owner
	if owner != nil {
		Register(owner)
	}
}

// ReadRefs returns the current number of references. The returned count is
// inherently racy and is unsafe to use without external synchronization.
func (r *Refs) ReadRefs() int64 {
	return r.refCount.Load()
}

// IncRef increments the reference count.
//
// Preconditions: the caller already holds a reference.
func (r *Refs) IncRef() {
	v := r.refCount.Add(1)
	if r.owner != nil {
		LogIncRef(r.owner, v)
	}
	if v <= 1 {
		panic(fmt.Sprintf("Incrementing non-positive count %p", r))
	}
}

// TryIncRef attempts to take a reference. It fails if the count already
// reached zero.
//
// To do this safely without a loop, a speculative reference is first acquired
// on the object. This allows multiple concurrent TryIncRef calls to distinguish
// other TryIncRef calls from genuine references held.
func (r *Refs) TryIncRef() bool {
	const speculativeRef = 1 << 32
	if v := r.refCount.Add(speculativeRef); int32(v) == 0 {
		// This object has already been freed.
		r.refCount.Add(-speculativeRef)
		return false
	}

	// Turn into a real reference.
	v := r.refCount.Add(-speculativeRef + 1)
	if r.owner != nil {
		LogTryIncRef(r.owner, v)
	}
	return true
}

// DecRef drops a reference, calling destroy (if not nil) when the last one
// is dropped.
func (r *Refs) DecRef(destroy func()) {
	v := r.refCount.Add(-1)
	if r.owner != nil {
		LogDecRef(r.owner, v)
	}
	switch {
	case v < 0:
		panic(fmt.Sprintf("Decrementing non-positive ref count %p", r))

	case v == 0:
		if r.owner != nil {
			Unregister(r.owner)
		}
		if destroy != nil {
			destroy()
		}
	}
}
