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
	"fmt"
	"sync/atomic"

	"gvisor.dev/obdir/pkg/log"
	"gvisor.dev/obdir/pkg/refs"
)

// Object is implemented by every object the manager tracks. Object bodies
// embed an ObjectHeader, which provides Header.
type Object interface {
	Header() *ObjectHeader
}

// ObjectHeader is the part of an object that the manager and directories
// operate on.
//
// An object is a member of at most one directory. The directory links
// the object through dirEntry but holds no reference on it; the object
// holds a reference on its parent directory while it is linked.
type ObjectHeader struct {
	refs.Refs

	// dirEntry links the object into its parent's entry list. It is
	// protected by the parent's mu.
	dirEntry entryEntry

	// parent is the directory the object is linked into, or nil. It is
	// only stored with the parent's mu held.
	parent atomic.Pointer[Directory]

	// name is the object's name within parent. It is empty for unnamed
	// objects and immutable once the object is linked.
	name      string
	nameUnits int

	// The following fields are immutable after CreateObject.
	mgr  *Manager
	typ  *Type
	self Object

	handleCount atomic.Int64
	permanent   atomic.Bool
}

// Header implements Object.Header.
func (h *ObjectHeader) Header() *ObjectHeader {
	return h
}

// Name returns the object's name, or "" if it is unnamed.
func (h *ObjectHeader) Name() string {
	return h.name
}

// Type returns the object's type.
func (h *ObjectHeader) Type() *Type {
	return h.typ
}

// Parent returns the directory the object is linked into, or nil.
func (h *ObjectHeader) Parent() *Directory {
	return h.parent.Load()
}

// HandleCount returns the number of open handles to the object.
func (h *ObjectHeader) HandleCount() int64 {
	return h.handleCount.Load()
}

// IsPermanent returns true if the object is permanent.
func (h *ObjectHeader) IsPermanent() bool {
	return h.permanent.Load()
}

// DecRef drops a reference, destroying the object when the last one is
// dropped.
func (h *ObjectHeader) DecRef() {
	h.Refs.DecRef(h.destroy)
}

// RefType implements refs.CheckedObject.RefType.
func (h *ObjectHeader) RefType() string {
	if h.typ == nil {
		return "Object"
	}
	return h.typ.Name()
}

// LeakMessage implements refs.CheckedObject.LeakMessage.
func (h *ObjectHeader) LeakMessage() string {
	return fmt.Sprintf("[%s %p] %q: %d references, %d handles", h.RefType(), h, h.name, h.ReadRefs(), h.HandleCount())
}

// LogRefs implements refs.CheckedObject.LogRefs.
func (h *ObjectHeader) LogRefs() bool {
	return h.mgr != nil && h.mgr.logRefs
}

// infoSize returns the number of bytes a directory information record for
// h needs: the record itself plus both strings and their terminators.
func (h *ObjectHeader) infoSize() uint64 {
	size := uint64(DirectoryInformationSize)
	if h.name != "" {
		size += 2*uint64(h.nameUnits) + 2
	}
	return size + 2*uint64(h.typ.nameUnits) + 2
}

func (h *ObjectHeader) setName(name string) {
	h.name = name
	h.nameUnits = utf16Len(name)
}

func (h *ObjectHeader) destroy() {
	m := h.mgr
	m.unlink(h)
	if del := h.typ.Delete; del != nil {
		del(h.self)
	}
	h.typ.objects.Add(-1)
	m.live.Add(-1)
	log.Debugf("Destroyed %s object %q", h.typ.Name(), h.name)
}
