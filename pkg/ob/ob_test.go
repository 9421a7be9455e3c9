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
	"testing"
)

// DeviceAllAccess is the valid access of the test device type.
const deviceAllAccess = StandardRightsRequired | Synchronize | 0x1FF

// testObject is a minimal object body.
type testObject struct {
	ObjectHeader
}

type testEnv struct {
	m      *Manager
	ht     *HandleTable
	device *Type
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	m := NewManager(ManagerOptions{})
	device, err := m.RegisterType("Device", deviceAllAccess, GenericMapping{All: deviceAllAccess}, nil)
	if err != nil {
		t.Fatalf("RegisterType(Device): %v", err)
	}
	return &testEnv{m: m, ht: m.NewHandleTable(), device: device}
}

// mkdir creates a directory and returns a handle to it.
func (e *testEnv) mkdir(t *testing.T, attrs *Attributes) Handle {
	t.Helper()
	d, err := e.m.NewDirectory(attrs)
	if err != nil {
		t.Fatalf("NewDirectory(%v): %v", attrs, err)
	}
	defer e.m.Release(d)
	h, err := e.m.InsertObject(e.ht, d, attrs, DirectoryAllAccess)
	if err != nil {
		t.Fatalf("InsertObject(%v): %v", attrs, err)
	}
	return h
}

// device creates a permanent device object and returns it. The caller does
// not hold a reference.
func (e *testEnv) mkdev(t *testing.T, name string, root Handle) *testObject {
	t.Helper()
	attrs := &Attributes{Name: name, RootDirectory: root, Flags: Permanent}
	obj := &testObject{}
	if err := e.m.CreateObject(e.device, attrs, obj); err != nil {
		t.Fatalf("CreateObject(%v): %v", attrs, err)
	}
	defer e.m.Release(obj)
	h, err := e.m.InsertObject(e.ht, obj, attrs, GenericAll)
	if err != nil {
		t.Fatalf("InsertObject(%v): %v", attrs, err)
	}
	if err := e.ht.Close(h); err != nil {
		t.Fatalf("Close(%v): %v", h, err)
	}
	return obj
}

// dir returns the directory at handle h.
func (e *testEnv) dir(t *testing.T, h Handle) *Directory {
	t.Helper()
	obj, err := e.m.Reference(e.ht, h, DirectoryQuery, e.m.DirectoryType)
	if err != nil {
		t.Fatalf("Reference(%v): %v", h, err)
	}
	// The handle keeps the directory alive for the rest of the test.
	e.m.Release(obj)
	return obj.(*Directory)
}
