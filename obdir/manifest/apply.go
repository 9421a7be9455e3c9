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


package manifest

import (
	"fmt"

	"gvisor.dev/obdir/pkg/log"
	"gvisor.dev/obdir/pkg/ob"
)

// DefaultValidAccess is the valid access of types that do not name one.
const DefaultValidAccess = ob.StandardRightsRequired | ob.Synchronize | 0xFFFF

// Object is the body of objects created from a manifest.
type Object struct {
	ob.ObjectHeader
}

// mappingFor returns the generic mapping of a manifest type granting valid.
func mappingFor(valid ob.AccessMask) ob.GenericMapping {
	return ob.GenericMapping{
		Read:    ob.StandardRightsRead | valid&0x1,
		Write:   ob.StandardRightsWrite | valid&0x2,
		Execute: ob.StandardRightsExecute | ob.Synchronize&valid,
		All:     valid,
	}
}

// Apply populates m's namespace from the manifest. Permanent directories
// and objects keep their names on their own; handles to temporary ones are
// left open in ht, so they live until ht is closed.
func (mf *Manifest) Apply(m *ob.Manager, ht *ob.HandleTable) error {
	for _, ts := range mf.Types {
		if m.Types().Lookup(ts.Name) != nil {
			continue
		}
		valid := ob.AccessMask(ts.ValidAccess)
		if valid == 0 {
			valid = DefaultValidAccess
		}
		if _, err := m.RegisterType(ts.Name, valid, mappingFor(valid), deleted); err != nil {
			return fmt.Errorf("registering type %q: %w", ts.Name, err)
		}
	}
	for _, ds := range mf.Directories {
		if err := createDirectory(m, ht, ds); err != nil {
			return fmt.Errorf("creating directory %q: %w", ds.Path, err)
		}
	}
	for _, spec := range mf.Objects {
		var err error
		if spec.Anonymous {
			err = createAnonymous(m, ht, spec)
		} else {
			err = createObject(m, ht, spec)
		}
		if err != nil {
			return fmt.Errorf("creating object %q: %w", spec.Path, err)
		}
	}
	return nil
}

func deleted(obj ob.Object) {
	h := obj.Header()
	log.Debugf("Deleted %s object %q", h.Type().Name(), h.Name())
}

func attributes(path string, permanent bool) *ob.Attributes {
	attrs := &ob.Attributes{Name: path}
	if permanent {
		attrs.Flags |= ob.Permanent
	}
	return attrs
}

// insert names obj and closes the new handle if obj is permanent.
func insert(m *ob.Manager, ht *ob.HandleTable, obj ob.Object, attrs *ob.Attributes, access ob.AccessMask) error {
	defer m.Release(obj)
	h, err := m.InsertObject(ht, obj, attrs, access)
	if err != nil {
		if attrs.Flags&ob.Permanent != 0 {
			m.MakeTemporary(obj)
		}
		return err
	}
	if attrs.Flags&ob.Permanent != 0 {
		return ht.Close(h)
	}
	return nil
}

func createDirectory(m *ob.Manager, ht *ob.HandleTable, ds DirectorySpec) error {
	attrs := attributes(ds.Path, ds.Permanent)
	d, err := m.NewDirectory(attrs)
	if err != nil {
		return err
	}
	return insert(m, ht, d, attrs, ob.DirectoryAllAccess)
}

func lookupType(m *ob.Manager, name string) (*ob.Type, error) {
	typ := m.Types().Lookup(name)
	if typ == nil {
		return nil, fmt.Errorf("unknown type %q", name)
	}
	if typ == m.DirectoryType || typ == m.TypeType {
		return nil, fmt.Errorf("type %q cannot be created by objects", name)
	}
	return typ, nil
}

func createObject(m *ob.Manager, ht *ob.HandleTable, spec ObjectSpec) error {
	typ, err := lookupType(m, spec.Type)
	if err != nil {
		return err
	}
	attrs := attributes(spec.Path, spec.Permanent)
	obj := &Object{}
	if err := m.CreateObject(typ, attrs, obj); err != nil {
		return err
	}
	return insert(m, ht, obj, attrs, ob.GenericAll)
}

// createAnonymous links an unnamed object into the directory at spec.Path.
func createAnonymous(m *ob.Manager, ht *ob.HandleTable, spec ObjectSpec) error {
	typ, err := lookupType(m, spec.Type)
	if err != nil {
		return err
	}
	dh, err := m.OpenByName(ht, &ob.Attributes{Name: spec.Path}, ob.DirectoryCreateObject, m.DirectoryType)
	if err != nil {
		return err
	}
	defer ht.Close(dh)
	do, err := m.Reference(ht, dh, ob.DirectoryCreateObject, m.DirectoryType)
	if err != nil {
		return err
	}
	defer m.Release(do)

	obj := &Object{}
	if err := m.CreateObject(typ, nil, obj); err != nil {
		return err
	}
	defer m.Release(obj)
	if spec.Permanent {
		m.MakePermanent(obj)
	} else if _, err := m.InsertObject(ht, obj, nil, ob.GenericAll); err != nil {
		return err
	}
	return m.InsertAnonymous(do.(*ob.Directory), obj)
}
