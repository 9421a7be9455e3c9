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

// Package ob implements an object manager: typed, reference-counted
// objects named in a hierarchy of directories, and per-task handle tables.
//
// Lock order:
//
//	HandleTable.mu
//	Directory.mu
//
// At most one Directory.mu is held at a time.
package ob

import (
	"sync/atomic"

	"gvisor.dev/obdir/pkg/log"
	"gvisor.dev/obdir/pkg/status"
)

// ObjectTypesDirectory is the name of the directory that types are
// published in.
const ObjectTypesDirectory = `\ObjectTypes`

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// LogRefs logs reference count changes of every object when leak
	// checking is enabled.
	LogRefs bool
}

// Manager owns a namespace and its types.
type Manager struct {
	logRefs bool

	types       *TypeRegistry
	root        *Directory
	objectTypes *Directory

	// TypeType and DirectoryType are the built-in types.
	TypeType      *Type
	DirectoryType *Type

	// live counts objects that have not been destroyed.
	live atomic.Int64
}

// NewManager returns a manager with an empty root directory and the
// built-in types published in \ObjectTypes.
func NewManager(opts ManagerOptions) *Manager {
	m := &Manager{
		logRefs: opts.LogRefs,
		types:   newTypeRegistry(),
	}

	tt := &Type{ValidAccess: TypeAllAccess, Mapping: TypeMapping}
	tt.setName("Type")
	m.initHeader(&tt.ObjectHeader, tt, tt)
	dt := &Type{ValidAccess: DirectoryAllAccess, Mapping: DirectoryMapping}
	dt.setName("Directory")
	m.initHeader(&dt.ObjectHeader, tt, dt)
	m.TypeType, m.DirectoryType = tt, dt

	m.root = &Directory{}
	m.initHeader(&m.root.ObjectHeader, dt, m.root)
	m.MakePermanent(m.root)

	m.objectTypes = &Directory{}
	m.initHeader(&m.objectTypes.ObjectHeader, dt, m.objectTypes)
	m.objectTypes.setName(ObjectTypesDirectory[1:])
	m.MakePermanent(m.objectTypes)
	m.link(m.root, &m.objectTypes.ObjectHeader)
	m.objectTypes.DecRef()

	for _, t := range []*Type{tt, dt} {
		m.publishType(t)
	}
	return m
}

func (m *Manager) initHeader(h *ObjectHeader, typ *Type, self Object) {
	h.mgr = m
	h.typ = typ
	h.self = self
	h.InitRefs(h)
	typ.objects.Add(1)
	m.live.Add(1)
}

// publishType registers t and links it into \ObjectTypes. t's creation
// reference is transferred to the namespace.
func (m *Manager) publishType(t *Type) bool {
	if !m.types.add(t) {
		return false
	}
	m.MakePermanent(t)
	m.link(m.objectTypes, &t.ObjectHeader)
	t.DecRef()
	return true
}

// RegisterType creates a type and publishes it in \ObjectTypes.
func (m *Manager) RegisterType(name string, validAccess AccessMask, mapping GenericMapping, del func(Object)) (*Type, error) {
	if name == "" || utf16Len(name) > maxNameUnits {
		return nil, status.ObjectNameInvalid
	}
	for _, r := range name {
		if r == Separator {
			return nil, status.ObjectNameInvalid
		}
	}
	t := &Type{ValidAccess: validAccess, Mapping: mapping, Delete: del}
	t.setName(name)
	m.initHeader(&t.ObjectHeader, m.TypeType, t)
	if !m.publishType(t) {
		t.DecRef()
		return nil, status.ObjectNameCollision
	}
	log.Debugf("Registered object type %q", name)
	return t, nil
}

// Types returns the type registry.
func (m *Manager) Types() *TypeRegistry {
	return m.types
}

// Root returns the root directory. The caller does not get a reference.
func (m *Manager) Root() *Directory {
	return m.root
}

// ObjectTypes returns the directory types are published in. The caller
// does not get a reference.
func (m *Manager) ObjectTypes() *Directory {
	return m.objectTypes
}

// CreateObject initializes obj as a new object of type typ holding one
// reference. The object is not in the namespace until InsertObject.
func (m *Manager) CreateObject(typ *Type, attrs *Attributes, obj Object) error {
	if typ == nil || obj == nil {
		return status.InvalidParameter
	}
	if attrs != nil {
		if _, err := ParsePath(attrs.Name); err != nil {
			return err
		}
	}
	h := obj.Header()
	m.initHeader(h, typ, obj)
	if attrs != nil && attrs.Flags&Permanent != 0 {
		m.MakePermanent(obj)
	}
	return nil
}

// NewDirectory creates a directory object. See CreateObject.
func (m *Manager) NewDirectory(attrs *Attributes) (*Directory, error) {
	d := &Directory{}
	if err := m.CreateObject(m.DirectoryType, attrs, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Reference returns a reference to the object at handle h, which must have
// type typ (if not nil) and grant access.
//
// N.B. Callers are required to use DecRef when they are done.
func (m *Manager) Reference(ht *HandleTable, h Handle, access AccessMask, typ *Type) (Object, error) {
	obj, granted, err := ht.Get(h)
	if err != nil {
		return nil, err
	}
	hdr := obj.Header()
	if typ != nil && hdr.typ != typ {
		hdr.DecRef()
		return nil, status.ObjectTypeMismatch
	}
	if !granted.Contains(hdr.typ.Mapping.Map(access)) {
		hdr.DecRef()
		return nil, status.AccessDenied
	}
	return obj, nil
}

// start returns a reference to the directory that attrs.Name is resolved
// from, the parsed name and the access held on that directory.
func (m *Manager) start(ht *HandleTable, attrs *Attributes) (*Directory, Path, AccessMask, error) {
	if attrs == nil {
		return nil, Path{}, 0, status.ObjectNameInvalid
	}
	p, err := ParsePath(attrs.Name)
	if err != nil {
		return nil, Path{}, 0, err
	}
	if attrs.RootDirectory == 0 {
		if attrs.Name == "" {
			return nil, Path{}, 0, status.ObjectNameInvalid
		}
		if !p.Absolute {
			return nil, Path{}, 0, status.ObjectPathSyntaxBad
		}
		m.root.IncRef()
		return m.root, p, DirectoryAllAccess, nil
	}
	if p.Absolute {
		return nil, Path{}, 0, status.ObjectPathSyntaxBad
	}
	obj, granted, err := ht.Get(attrs.RootDirectory)
	if err != nil {
		return nil, Path{}, 0, err
	}
	d, ok := obj.(*Directory)
	if !ok {
		obj.Header().DecRef()
		return nil, Path{}, 0, status.ObjectTypeMismatch
	}
	return d, p, granted, nil
}

// walkParent resolves every component of p but the last, starting at d,
// and returns a reference to the directory holding the last component and
// its name. The caller's reference on d is consumed.
//
// Preconditions: p.Begin.Ok().
func (m *Manager) walkParent(d *Directory, p Path, caseInsensitive bool) (*Directory, string, error) {
	it := p.Begin
	for it.NextOk() {
		child := d.lookup(it.String(), caseInsensitive)
		d.DecRef()
		if child == nil {
			return nil, "", status.ObjectPathNotFound
		}
		cd, ok := child.self.(*Directory)
		if !ok {
			child.DecRef()
			return nil, "", status.ObjectPathNotFound
		}
		d = cd
		it = it.Next()
	}
	return d, it.String(), nil
}

// lookup resolves attrs to a referenced object.
func (m *Manager) lookup(ht *HandleTable, attrs *Attributes) (*ObjectHeader, error) {
	d, p, granted, err := m.start(ht, attrs)
	if err != nil {
		return nil, err
	}
	if !p.Begin.Ok() {
		return &d.ObjectHeader, nil
	}
	if !granted.Contains(DirectoryTraverse) {
		d.DecRef()
		return nil, status.AccessDenied
	}
	parent, leaf, err := m.walkParent(d, p, attrs.caseInsensitive())
	if err != nil {
		return nil, err
	}
	child := parent.lookup(leaf, attrs.caseInsensitive())
	parent.DecRef()
	if child == nil {
		return nil, status.ObjectNameNotFound
	}
	return child, nil
}

// OpenByName resolves attrs and opens a handle granting access to the
// object, which must have type typ if typ is not nil.
func (m *Manager) OpenByName(ht *HandleTable, attrs *Attributes, access AccessMask, typ *Type) (Handle, error) {
	h, err := m.lookup(ht, attrs)
	if err != nil {
		return 0, err
	}
	defer h.DecRef()
	if typ != nil && h.typ != typ {
		return 0, status.ObjectTypeMismatch
	}
	return ht.insert(h.self, h.typ.grant(access))
}

// InsertObject names obj as described by attrs and opens a handle to it.
// The caller keeps its own reference; the namespace holds none, and the
// handle holds one.
//
// If the name exists and attrs has OpenIf, a handle to the existing object
// is returned along with ObjectNameExists; obj is not inserted.
func (m *Manager) InsertObject(ht *HandleTable, obj Object, attrs *Attributes, access AccessMask) (Handle, error) {
	h := obj.Header()
	if h.parent.Load() != nil {
		return 0, status.InvalidParameter
	}
	if attrs == nil || (attrs.Name == "" && attrs.RootDirectory == 0) {
		return ht.insert(obj, h.typ.grant(access))
	}

	d, p, granted, err := m.start(ht, attrs)
	if err != nil {
		return 0, err
	}
	if !p.Begin.Ok() {
		d.DecRef()
		return 0, status.ObjectNameInvalid
	}
	need := DirectoryTraverse
	if !p.Begin.NextOk() {
		need = DirectoryCreateObject
		if h.typ == m.DirectoryType {
			need = DirectoryCreateSubdirectory
		}
	}
	if !granted.Contains(need) {
		d.DecRef()
		return 0, status.AccessDenied
	}
	ci := attrs.caseInsensitive()
	parent, leaf, err := m.walkParent(d, p, ci)
	if err != nil {
		return 0, err
	}
	defer parent.DecRef()

	parent.mu.Lock()
	if existing := parent.lookupLocked(leaf, ci); existing != nil {
		parent.mu.Unlock()
		defer existing.DecRef()
		if attrs.Flags&OpenIf == 0 {
			return 0, status.ObjectNameCollision
		}
		if existing.typ != h.typ {
			return 0, status.ObjectTypeMismatch
		}
		hd, err := ht.insert(existing.self, existing.typ.grant(access))
		if err != nil {
			return 0, err
		}
		return hd, status.ObjectNameExists
	}
	// The new handle is counted before the name is published, so a racing
	// open and close of the name cannot see the last handle go away.
	h.IncRef()
	h.handleCount.Add(1)
	h.setName(leaf)
	parent.IncRef()
	parent.linkLocked(h)
	parent.mu.Unlock()

	hd, err := ht.install(obj, h.typ.grant(access), true)
	if err != nil {
		h.handleCount.Add(-1)
		m.unlink(h)
		h.DecRef()
		return 0, err
	}
	log.Debugf("Inserted %s %q into %q", h.typ.Name(), leaf, parent.name)
	return hd, nil
}

// InsertAnonymous links the unnamed object obj into dir.
func (m *Manager) InsertAnonymous(dir *Directory, obj Object) error {
	h := obj.Header()
	if h.name != "" || h.parent.Load() != nil {
		return status.InvalidParameter
	}
	m.link(dir, h)
	return nil
}

// link appends h to d and takes a reference on d for h.
func (m *Manager) link(d *Directory, h *ObjectHeader) {
	d.IncRef()
	d.mu.Lock()
	d.linkLocked(h)
	d.mu.Unlock()
}

// unlink removes h from its parent, if any, and drops the reference h held
// on the parent.
func (m *Manager) unlink(h *ObjectHeader) {
	p := h.parent.Load()
	if p == nil {
		return
	}
	p.mu.Lock()
	if h.parent.Load() != p {
		// Raced with another unlink.
		p.mu.Unlock()
		return
	}
	p.unlinkLocked(h)
	p.mu.Unlock()
	p.DecRef()
}

// MakePermanent marks obj permanent. A permanent object keeps its name
// after its last handle is closed; the namespace holds a reference on it.
func (m *Manager) MakePermanent(obj Object) {
	h := obj.Header()
	if !h.permanent.Swap(true) {
		h.IncRef()
	}
}

// MakeTemporary clears obj's permanent mark. If obj has no open handles it
// loses its name immediately.
func (m *Manager) MakeTemporary(obj Object) {
	h := obj.Header()
	wasPermanent := h.permanent.Swap(false)
	m.deleteNameCheck(h)
	if wasPermanent {
		h.DecRef()
	}
}

// Release drops a reference on obj.
func (m *Manager) Release(obj Object) {
	obj.Header().DecRef()
}

// closeHandle drops a handle count and the handle's reference on h.
func (m *Manager) closeHandle(h *ObjectHeader) {
	if h.handleCount.Add(-1) == 0 {
		m.deleteNameCheck(h)
	}
	h.DecRef()
}

// deleteNameCheck unlinks temporary objects that have no open handles.
func (m *Manager) deleteNameCheck(h *ObjectHeader) {
	if h.handleCount.Load() == 0 && !h.permanent.Load() {
		m.unlink(h)
	}
}

// Stats describes the objects a manager tracks.
type Stats struct {
	// Live is the number of objects not yet destroyed.
	Live int64

	// Types maps type names to their live object counts.
	Types map[string]int64
}

// Stats returns object counts.
func (m *Manager) Stats() Stats {
	s := Stats{
		Live:  m.live.Load(),
		Types: make(map[string]int64),
	}
	for _, t := range m.types.Types() {
		s.Types[t.Name()] = t.Objects()
	}
	return s
}
