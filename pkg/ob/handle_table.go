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

package ob

import (
	"bytes"
	"fmt"
	"sort"

	"gvisor.dev/obdir/pkg/status"
	"gvisor.dev/obdir/pkg/sync"
)

// Handle identifies an open object in a HandleTable. Valid handles are
// non-zero multiples of 4.
type Handle uint32

const (
	handleStep = 4

	// MaxHandles is the number of handles a table can hold.
	MaxHandles = 1 << 24
)

// String implements fmt.Stringer.String.
func (h Handle) String() string {
	return fmt.Sprintf("%#x", uint32(h))
}

// valid returns true if h can name a table slot.
func (h Handle) valid() bool {
	return h != 0 && h%handleStep == 0
}

// descriptor is a handle table slot.
//
// Note that this is immutable and can only be changed via operations on the
// table.
type descriptor struct {
	obj     Object
	granted AccessMask
}

// HandleTable maps handles to objects. Each handle holds one reference on
// its object and counts towards its handle count.
type HandleTable struct {
	m *Manager

	// mu protects below.
	mu sync.Mutex

	// next is the lowest handle that may be free.
	next Handle

	descriptors map[Handle]descriptor
}

// NewHandleTable returns an empty handle table.
func (m *Manager) NewHandleTable() *HandleTable {
	return &HandleTable{
		m:           m,
		next:        handleStep,
		descriptors: make(map[Handle]descriptor),
	}
}

// insert installs obj at the lowest free handle, taking a reference and a
// handle count on it.
func (t *HandleTable) insert(obj Object, granted AccessMask) (Handle, error) {
	return t.install(obj, granted, false)
}

// install installs obj at the lowest free handle. If counted is true the
// caller has already taken the handle's reference and handle count, and
// keeps them if install fails.
func (t *HandleTable) install(obj Object, granted AccessMask, counted bool) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.descriptors) >= MaxHandles {
		return 0, status.QuotaExceeded
	}
	h := t.next
	for {
		if _, ok := t.descriptors[h]; !ok {
			break
		}
		h += handleStep
	}
	if !counted {
		hdr := obj.Header()
		hdr.IncRef()
		hdr.handleCount.Add(1)
	}
	t.descriptors[h] = descriptor{obj: obj, granted: granted}
	t.next = h + handleStep
	return h, nil
}

// Get returns a reference to the object at h and the access granted to h.
//
// N.B. Callers are required to use DecRef when they are done.
func (t *HandleTable) Get(h Handle) (Object, AccessMask, error) {
	if !h.valid() {
		return nil, 0, status.InvalidHandle
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.descriptors[h]
	if !ok {
		return nil, 0, status.InvalidHandle
	}
	// The handle's reference keeps the object alive.
	d.obj.Header().IncRef()
	return d.obj, d.granted, nil
}

// Close removes h from the table and drops its handle count and reference.
// When the last handle to a temporary object is closed the object loses
// its name.
func (t *HandleTable) Close(h Handle) error {
	if !h.valid() {
		return status.InvalidHandle
	}
	t.mu.Lock()
	d, ok := t.descriptors[h]
	if ok {
		delete(t.descriptors, h)
		if h < t.next {
			t.next = h
		}
	}
	t.mu.Unlock()
	if !ok {
		return status.InvalidHandle
	}
	t.m.closeHandle(d.obj.Header())
	return nil
}

// CloseAll closes every handle in the table.
func (t *HandleTable) CloseAll() {
	t.mu.Lock()
	ds := t.descriptors
	t.descriptors = make(map[Handle]descriptor)
	t.next = handleStep
	t.mu.Unlock()

	for _, d := range ds {
		t.m.closeHandle(d.obj.Header())
	}
}

// Len returns the number of open handles.
func (t *HandleTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.descriptors)
}

// ForEach calls fn for every handle in ascending order. fn must not call
// back into t.
func (t *HandleTable) ForEach(fn func(h Handle, obj Object, granted AccessMask)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	hs := make([]Handle, 0, len(t.descriptors))
	for h := range t.descriptors {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	for _, h := range hs {
		d := t.descriptors[h]
		fn(h, d.obj, d.granted)
	}
}

// String returns a description of the table.
func (t *HandleTable) String() string {
	var b bytes.Buffer
	t.ForEach(func(h Handle, obj Object, granted AccessMask) {
		hdr := obj.Header()
		fmt.Fprintf(&b, "\thandle:%v => %s %q access %#x\n", h, hdr.typ.Name(), hdr.name, uint32(granted))
	})
	return b.String()
}
