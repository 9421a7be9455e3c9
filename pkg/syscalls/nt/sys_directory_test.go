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

package nt

import (
	"context"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/obdir/pkg/kernel"
	"gvisor.dev/obdir/pkg/ob"
	"gvisor.dev/obdir/pkg/pool"
	"gvisor.dev/obdir/pkg/status"
	"gvisor.dev/obdir/pkg/usermem"
)

// Task memory layout.
const (
	memBase    = usermem.Addr(0x10000)
	memSize    = 0x10000
	handleAddr = memBase
	ctxAddr    = memBase + 8
	retLenAddr = memBase + 12
	bufAddr    = memBase + 0x100
	bufMax     = memSize - 0x100
)

type testEnv struct {
	k      *kernel.Kernel
	t      *kernel.Task
	mem    *usermem.BytesIO
	device *ob.Type
}

func newTestEnv(t *testing.T, cfg kernel.Config) *testEnv {
	t.Helper()
	k := kernel.New(cfg)
	device, err := k.ObjectManager.RegisterType("Device", ob.GenericAll, ob.GenericMapping{All: ob.GenericAll}, nil)
	if err != nil {
		t.Fatalf("RegisterType: %v", err)
	}
	mem := &usermem.BytesIO{Bytes: make([]byte, memSize), Base: memBase}
	return &testEnv{
		k:      k,
		t:      k.NewTask(context.Background(), usermem.UserMode, mem),
		mem:    mem,
		device: device,
	}
}

func (e *testEnv) u32(addr usermem.Addr) uint32 {
	return binary.LittleEndian.Uint32(e.mem.Bytes[addr-memBase:])
}

func (e *testEnv) setU32(addr usermem.Addr, v uint32) {
	binary.LittleEndian.PutUint32(e.mem.Bytes[addr-memBase:], v)
}

// mkdir creates a directory and returns its handle.
func (e *testEnv) mkdir(t *testing.T, attrs *ob.Attributes) ob.Handle {
	t.Helper()
	if err := CreateDirectoryObject(e.t, handleAddr, ob.DirectoryAllAccess, attrs); err != nil {
		t.Fatalf("CreateDirectoryObject(%v): %v", attrs, err)
	}
	return ob.Handle(e.u32(handleAddr))
}

// mkdev creates a permanent device named name in the directory at root.
func (e *testEnv) mkdev(t *testing.T, name string, root ob.Handle) {
	t.Helper()
	type device struct{ ob.ObjectHeader }
	m := e.k.ObjectManager
	attrs := &ob.Attributes{Name: name, RootDirectory: root, Flags: ob.Permanent}
	dev := &device{}
	if err := m.CreateObject(e.device, attrs, dev); err != nil {
		t.Fatalf("CreateObject(%v): %v", attrs, err)
	}
	defer m.Release(dev)
	h, err := m.InsertObject(e.t.HandleTable(), dev, attrs, ob.GenericAll)
	if err != nil {
		t.Fatalf("InsertObject(%v): %v", attrs, err)
	}
	if err := Close(e.t, h); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

// fooBar returns a handle to \Dir holding Foo and Bar devices.
func (e *testEnv) fooBar(t *testing.T) ob.Handle {
	t.Helper()
	h := e.mkdir(t, &ob.Attributes{Name: `\Dir`})
	e.mkdev(t, "Foo", h)
	e.mkdev(t, "Bar", h)
	return h
}

// query zeroes the output buffer, runs QueryDirectoryObject and decodes
// what was delivered.
func (e *testEnv) query(t *testing.T, h ob.Handle, length uint32, single, restart bool) ([]ob.DirectoryEntry, error) {
	t.Helper()
	clear(e.mem.Bytes[bufAddr-memBase:])
	err := QueryDirectoryObject(e.t, h, bufAddr, length, single, restart, ctxAddr, retLenAddr)
	entries, perr := ob.ParseDirectoryInformation(e.mem.Bytes[bufAddr-memBase:], bufAddr)
	if perr != nil {
		t.Fatalf("ParseDirectoryInformation: %v", perr)
	}
	return entries, err
}

func TestQueryScenario(t *testing.T) {
	e := newTestEnv(t, kernel.Config{})
	h := e.fooBar(t)

	entries, err := e.query(t, h, 86, false, true)
	if err != status.MoreEntries {
		t.Fatalf("first query: got %v, wanted %v", err, status.MoreEntries)
	}
	if diff := cmp.Diff([]ob.DirectoryEntry{{Name: "Foo", TypeName: "Device"}}, entries); diff != "" {
		t.Errorf("first entries mismatch (-want +got):\n%s", diff)
	}
	if got := e.u32(ctxAddr); got != 1 {
		t.Errorf("first cursor: got %d, wanted 1", got)
	}
	// Bytes actually delivered.
	if got := e.u32(retLenAddr); got != 86 {
		t.Errorf("first return length: got %d, wanted 86", got)
	}

	entries, err = e.query(t, h, 4096, false, false)
	if err != nil {
		t.Fatalf("second query: %v", err)
	}
	if diff := cmp.Diff([]ob.DirectoryEntry{{Name: "Bar", TypeName: "Device"}}, entries); diff != "" {
		t.Errorf("second entries mismatch (-want +got):\n%s", diff)
	}
	if got := e.u32(ctxAddr); got != 2 {
		t.Errorf("second cursor: got %d, wanted 2", got)
	}

	entries, err = e.query(t, h, 4096, false, false)
	if err != status.NoMoreEntries {
		t.Fatalf("third query: got %v, wanted %v", err, status.NoMoreEntries)
	}
	if len(entries) != 0 {
		t.Errorf("third query delivered %v", entries)
	}
	if got := e.u32(ctxAddr); got != 2 {
		t.Errorf("third cursor: got %d, wanted 2", got)
	}
	if got := e.u32(retLenAddr); got != ob.DirectoryInformationSize {
		t.Errorf("third return length: got %d, wanted %d", got, ob.DirectoryInformationSize)
	}
}

func TestQuerySingleBufferTooSmall(t *testing.T) {
	e := newTestEnv(t, kernel.Config{})
	h := e.fooBar(t)
	e.setU32(ctxAddr, 0)

	entries, err := e.query(t, h, 85, true, false)
	if err != status.BufferTooSmall {
		t.Fatalf("query: got %v, wanted %v", err, status.BufferTooSmall)
	}
	if len(entries) != 0 {
		t.Errorf("too small query delivered %v", entries)
	}
	if got := e.u32(ctxAddr); got != 0 {
		t.Errorf("cursor: got %d, wanted 0", got)
	}
	need := e.u32(retLenAddr)
	if need != 86 {
		t.Fatalf("return length: got %d, wanted 86", need)
	}

	entries, err = e.query(t, h, need, true, false)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if diff := cmp.Diff([]ob.DirectoryEntry{{Name: "Foo", TypeName: "Device"}}, entries); diff != "" {
		t.Errorf("retry entries mismatch (-want +got):\n%s", diff)
	}
	if got := e.u32(ctxAddr); got != 1 {
		t.Errorf("retry cursor: got %d, wanted 1", got)
	}
}

func TestQueryMultiNothingFits(t *testing.T) {
	e := newTestEnv(t, kernel.Config{})
	h := e.fooBar(t)
	e.setU32(ctxAddr, 1)

	entries, err := e.query(t, h, 40, false, false)
	if err != status.MoreEntries {
		t.Fatalf("query: got %v, wanted %v", err, status.MoreEntries)
	}
	if len(entries) != 0 {
		t.Errorf("query delivered %v", entries)
	}
	if got := e.u32(ctxAddr); got != 1 {
		t.Errorf("cursor: got %d, wanted unchanged 1", got)
	}
	if got := e.u32(retLenAddr); got != ob.DirectoryInformationSize {
		t.Errorf("return length: got %d, wanted %d", got, ob.DirectoryInformationSize)
	}
}

func TestQueryEmpty(t *testing.T) {
	e := newTestEnv(t, kernel.Config{})
	h := e.mkdir(t, &ob.Attributes{Name: `\Empty`})

	_, err := e.query(t, h, 1024, false, true)
	if err != status.NoMoreEntries {
		t.Fatalf("query: got %v, wanted %v", err, status.NoMoreEntries)
	}
	if got := e.u32(retLenAddr); got != ob.DirectoryInformationSize {
		t.Errorf("return length: got %d, wanted %d", got, ob.DirectoryInformationSize)
	}
}

func TestQueryWithoutReturnLength(t *testing.T) {
	e := newTestEnv(t, kernel.Config{})
	h := e.fooBar(t)
	e.setU32(retLenAddr, 0xdead)
	if err := QueryDirectoryObject(e.t, h, bufAddr, 4096, false, true, ctxAddr, 0); err != nil {
		t.Fatalf("query: %v", err)
	}
	if got := e.u32(retLenAddr); got != 0xdead {
		t.Errorf("return length written: %#x", got)
	}
	if got := e.u32(ctxAddr); got != 2 {
		t.Errorf("cursor: got %d, wanted 2", got)
	}
}

func TestQueryValidationFaults(t *testing.T) {
	e := newTestEnv(t, kernel.Config{})
	h := e.fooBar(t)
	const sentinel = 0x5555

	for _, test := range []struct {
		desc    string
		buf     usermem.Addr
		length  uint32
		ctx     usermem.Addr
		retLen  usermem.Addr
		restart bool
		err     error
	}{
		{desc: "buffer past end", buf: bufAddr, length: bufMax + 2, ctx: ctxAddr, err: status.AccessViolation},
		{desc: "buffer unmapped", buf: 0x1000, length: 4096, ctx: ctxAddr, err: status.AccessViolation},
		{desc: "buffer misaligned", buf: bufAddr + 1, length: 4096, ctx: ctxAddr, err: status.DatatypeMisalignment},
		{desc: "cursor unmapped", buf: bufAddr, length: 4096, ctx: 0x20, err: status.AccessViolation},
		{desc: "cursor misaligned", buf: bufAddr, length: 4096, ctx: ctxAddr + 2, restart: true, err: status.DatatypeMisalignment},
		{desc: "return length unmapped", buf: bufAddr, length: 4096, ctx: ctxAddr, retLen: 0x20, err: status.AccessViolation},
	} {
		t.Run(test.desc, func(t *testing.T) {
			e.setU32(ctxAddr, sentinel)
			e.setU32(retLenAddr, sentinel)
			err := QueryDirectoryObject(e.t, h, test.buf, test.length, false, test.restart, test.ctx, test.retLen)
			if err != test.err {
				t.Fatalf("query: got %v, wanted %v", err, test.err)
			}
			if got := e.u32(ctxAddr); got != sentinel {
				t.Errorf("cursor changed to %#x", got)
			}
			if got := e.u32(retLenAddr); got != sentinel {
				t.Errorf("return length changed to %#x", got)
			}
		})
	}
}

func TestQueryHandleErrors(t *testing.T) {
	e := newTestEnv(t, kernel.Config{})
	e.fooBar(t)
	m := e.k.ObjectManager
	ht := e.t.HandleTable()

	dev, err := m.OpenByName(ht, &ob.Attributes{Name: `\Dir\Foo`}, ob.GenericAll, nil)
	if err != nil {
		t.Fatalf("OpenByName(Foo): %v", err)
	}
	traverseOnly, err := m.OpenByName(ht, &ob.Attributes{Name: `\Dir`}, ob.DirectoryTraverse, nil)
	if err != nil {
		t.Fatalf("OpenByName(Dir): %v", err)
	}
	for _, test := range []struct {
		desc string
		h    ob.Handle
		err  error
	}{
		{desc: "invalid", h: 0x400, err: status.InvalidHandle},
		{desc: "zero", h: 0, err: status.InvalidHandle},
		{desc: "not a directory", h: dev, err: status.ObjectTypeMismatch},
		{desc: "no query access", h: traverseOnly, err: status.AccessDenied},
	} {
		t.Run(test.desc, func(t *testing.T) {
			e.setU32(ctxAddr, 7)
			if err := QueryDirectoryObject(e.t, test.h, bufAddr, 4096, false, true, ctxAddr, retLenAddr); err != test.err {
				t.Errorf("query: got %v, wanted %v", err, test.err)
			}
			if got := e.u32(ctxAddr); got != 7 {
				t.Errorf("cursor changed to %d", got)
			}
		})
	}
}

func TestQueryInsufficientResources(t *testing.T) {
	e := newTestEnv(t, kernel.Config{Pool: pool.Config{NonPagedQuota: 100}})
	h := e.fooBar(t)
	e.setU32(ctxAddr, 9)

	if err := QueryDirectoryObject(e.t, h, bufAddr, 4096, false, false, ctxAddr, retLenAddr); err != status.InsufficientResources {
		t.Fatalf("query: got %v, wanted %v", err, status.InsufficientResources)
	}
	if got := e.u32(ctxAddr); got != 9 {
		t.Errorf("cursor changed to %d", got)
	}
	// A buffer within the quota still works.
	if _, err := e.query(t, h, 100, false, true); err != status.MoreEntries {
		t.Errorf("small query: got %v, wanted %v", err, status.MoreEntries)
	}
	if got := e.k.Pool.Stats(pool.NonPaged).Outstanding; got != 0 {
		t.Errorf("scratch bytes outstanding: %d", got)
	}
}

// faultingIO fails copies of more than one byte at addr, simulating memory
// that becomes inaccessible after it was probed.
type faultingIO struct {
	*usermem.BytesIO
	addr usermem.Addr
}

func (f *faultingIO) CopyOut(ctx context.Context, addr usermem.Addr, src []byte) (int, error) {
	if addr == f.addr && len(src) > 1 {
		return 0, status.AccessViolation
	}
	return f.BytesIO.CopyOut(ctx, addr, src)
}

func TestQueryDeliveryFault(t *testing.T) {
	e := newTestEnv(t, kernel.Config{})
	h := e.fooBar(t)
	ft := e.k.NewTask(context.Background(), usermem.UserMode, &faultingIO{BytesIO: e.mem, addr: bufAddr})
	obj, err := e.k.ObjectManager.Reference(e.t.HandleTable(), h, 0, nil)
	if err != nil {
		t.Fatalf("Reference: %v", err)
	}
	defer e.k.ObjectManager.Release(obj)
	fh, err := e.k.ObjectManager.OpenByName(ft.HandleTable(), &ob.Attributes{Name: `\Dir`}, ob.DirectoryQuery, nil)
	if err != nil {
		t.Fatalf("OpenByName: %v", err)
	}

	if err := QueryDirectoryObject(ft, fh, bufAddr, 4096, false, true, ctxAddr, retLenAddr); err != status.AccessViolation {
		t.Fatalf("query: got %v, wanted %v", err, status.AccessViolation)
	}
	// The directory lock was released before delivery.
	if got := obj.(*ob.Directory).Len(); got != 2 {
		t.Errorf("Len: got %d, wanted 2", got)
	}
	if _, err := e.query(t, h, 4096, false, true); err != nil {
		t.Errorf("query after fault: %v", err)
	}
	if got := e.k.Pool.Stats(pool.NonPaged).Outstanding; got != 0 {
		t.Errorf("scratch bytes outstanding: %d", got)
	}
}

func TestQueryKernelMode(t *testing.T) {
	e := newTestEnv(t, kernel.Config{})
	e.fooBar(t)
	kt := e.k.NewTask(context.Background(), usermem.KernelMode, e.mem)
	kh, err := e.k.ObjectManager.OpenByName(kt.HandleTable(), &ob.Attributes{Name: `\Dir`}, ob.DirectoryQuery, nil)
	if err != nil {
		t.Fatalf("OpenByName: %v", err)
	}

	// Kernel-mode buffers are not probed for alignment.
	buf := bufAddr + 1
	if err := QueryDirectoryObject(kt, kh, buf, 4096, false, true, ctxAddr, retLenAddr); err != nil {
		t.Fatalf("query: %v", err)
	}
	entries, err := ob.ParseDirectoryInformation(e.mem.Bytes[buf-memBase:], buf)
	if err != nil {
		t.Fatalf("ParseDirectoryInformation: %v", err)
	}
	want := []ob.DirectoryEntry{{Name: "Foo", TypeName: "Device"}, {Name: "Bar", TypeName: "Device"}}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryKernelModeBadAddress(t *testing.T) {
	e := newTestEnv(t, kernel.Config{})
	e.fooBar(t)
	kt := e.k.NewTask(context.Background(), usermem.KernelMode, e.mem)
	kh, err := e.k.ObjectManager.OpenByName(kt.HandleTable(), &ob.Attributes{Name: `\Dir`}, ob.DirectoryQuery, nil)
	if err != nil {
		t.Fatalf("OpenByName: %v", err)
	}

	for _, test := range []struct {
		desc    string
		buf     usermem.Addr
		ctx     usermem.Addr
		retLen  usermem.Addr
		restart bool
	}{
		{desc: "cursor unmapped", buf: bufAddr, ctx: 0x20},
		{desc: "buffer unmapped", buf: 0x1000, ctx: ctxAddr, restart: true},
		{desc: "cursor store unmapped", buf: bufAddr, ctx: 0x20, restart: true},
		{desc: "return length unmapped", buf: bufAddr, ctx: ctxAddr, retLen: 0x20, restart: true},
	} {
		t.Run(test.desc, func(t *testing.T) {
			err := QueryDirectoryObject(kt, kh, test.buf, 4096, false, test.restart, test.ctx, test.retLen)
			if err != status.AccessViolation {
				t.Errorf("query: got %v, wanted %v", err, status.AccessViolation)
			}
		})
	}
	if got := e.k.Pool.Stats(pool.NonPaged).Outstanding; got != 0 {
		t.Errorf("scratch bytes outstanding: %d", got)
	}
}

func TestCreateKernelModeBadHandleAddress(t *testing.T) {
	e := newTestEnv(t, kernel.Config{})
	kt := e.k.NewTask(context.Background(), usermem.KernelMode, e.mem)
	if err := CreateDirectoryObject(kt, 0x20, ob.DirectoryAllAccess, &ob.Attributes{Name: `\Kernel`}); err != status.AccessViolation {
		t.Fatalf("CreateDirectoryObject: got %v, wanted %v", err, status.AccessViolation)
	}
	if err := OpenDirectoryObject(kt, 0x20, ob.DirectoryQuery, &ob.Attributes{Name: `\Kernel`}); err != status.AccessViolation {
		t.Errorf("OpenDirectoryObject: got %v, wanted %v", err, status.AccessViolation)
	}
}

func TestOpenDirectoryObject(t *testing.T) {
	e := newTestEnv(t, kernel.Config{})
	e.fooBar(t)
	ht := e.t.HandleTable()
	before := ht.Len()

	if err := OpenDirectoryObject(e.t, handleAddr, ob.DirectoryQuery, &ob.Attributes{Name: `\Dir`}); err != nil {
		t.Fatalf("OpenDirectoryObject: %v", err)
	}
	h := ob.Handle(e.u32(handleAddr))
	if entries, err := e.query(t, h, 4096, false, true); err != nil || len(entries) != 2 {
		t.Errorf("query through opened handle: %v, %v", err, entries)
	}
	if err := Close(e.t, h); err != nil {
		t.Errorf("Close: %v", err)
	}

	for _, test := range []struct {
		desc  string
		addr  usermem.Addr
		attrs *ob.Attributes
		err   error
	}{
		{desc: "bad handle pointer", addr: 0x10, attrs: &ob.Attributes{Name: `\Dir`}, err: status.AccessViolation},
		{desc: "misaligned handle pointer", addr: handleAddr + 1, attrs: &ob.Attributes{Name: `\Dir`}, err: status.DatatypeMisalignment},
		{desc: "not a directory", addr: handleAddr, attrs: &ob.Attributes{Name: `\Dir\Foo`}, err: status.ObjectTypeMismatch},
		{desc: "missing", addr: handleAddr, attrs: &ob.Attributes{Name: `\Nope`}, err: status.ObjectNameNotFound},
	} {
		t.Run(test.desc, func(t *testing.T) {
			if err := OpenDirectoryObject(e.t, test.addr, ob.DirectoryQuery, test.attrs); err != test.err {
				t.Errorf("OpenDirectoryObject: got %v, wanted %v", err, test.err)
			}
			if got := ht.Len(); got != before {
				t.Errorf("handles: got %d, wanted %d", got, before)
			}
		})
	}
}

func TestOpenDirectoryObjectWriteBackFault(t *testing.T) {
	e := newTestEnv(t, kernel.Config{})
	ft := e.k.NewTask(context.Background(), usermem.UserMode, &faultingIO{BytesIO: e.mem, addr: handleAddr})
	if err := OpenDirectoryObject(ft, handleAddr, ob.DirectoryQuery, &ob.Attributes{Name: `\`}); err != status.AccessViolation {
		t.Fatalf("OpenDirectoryObject: got %v, wanted %v", err, status.AccessViolation)
	}
	// The handle stays open.
	if got := ft.HandleTable().Len(); got != 1 {
		t.Errorf("handles: got %d, wanted 1", got)
	}
}

func TestCreateDirectoryObjectCollision(t *testing.T) {
	for _, flags := range []ob.AttributeFlags{0, ob.Permanent} {
		t.Run(flags.String(), func(t *testing.T) {
			e := newTestEnv(t, kernel.Config{})
			first := e.mkdir(t, &ob.Attributes{Name: `\Dir`})
			live := e.k.ObjectManager.Stats().Live

			e.setU32(handleAddr, 0)
			err := CreateDirectoryObject(e.t, handleAddr, ob.DirectoryAllAccess, &ob.Attributes{Name: `\Dir`, Flags: flags})
			if err != status.ObjectNameCollision {
				t.Fatalf("CreateDirectoryObject: got %v, wanted %v", err, status.ObjectNameCollision)
			}
			if got := e.u32(handleAddr); got != 0 {
				t.Errorf("handle written on failure: %#x", got)
			}
			if got := e.k.ObjectManager.Stats().Live; got != live {
				t.Errorf("Live: got %d, wanted %d", got, live)
			}

			if err := OpenDirectoryObject(e.t, handleAddr, ob.DirectoryQuery, &ob.Attributes{Name: `\Dir`}); err != nil {
				t.Fatalf("OpenDirectoryObject: %v", err)
			}
			m := e.k.ObjectManager
			want, _ := m.Reference(e.t.HandleTable(), first, 0, nil)
			got, _ := m.Reference(e.t.HandleTable(), ob.Handle(e.u32(handleAddr)), 0, nil)
			if got != want {
				t.Errorf(`\Dir: got %p, wanted the first directory %p`, got, want)
			}
			m.Release(want)
			m.Release(got)
		})
	}
}

func TestCreateDirectoryObjectOpenIf(t *testing.T) {
	e := newTestEnv(t, kernel.Config{})
	first := e.mkdir(t, &ob.Attributes{Name: `\Dir`})
	live := e.k.ObjectManager.Stats().Live

	err := CreateDirectoryObject(e.t, handleAddr, ob.DirectoryQuery, &ob.Attributes{Name: `\Dir`, Flags: ob.OpenIf})
	if err != status.ObjectNameExists {
		t.Fatalf("CreateDirectoryObject: got %v, wanted %v", err, status.ObjectNameExists)
	}
	h := ob.Handle(e.u32(handleAddr))
	if h == 0 || h == first {
		t.Errorf("handle: got %v", h)
	}
	if got := e.k.ObjectManager.Stats().Live; got != live {
		t.Errorf("Live: got %d, wanted %d", got, live)
	}
}

func TestCreateDirectoryObjectTemporary(t *testing.T) {
	e := newTestEnv(t, kernel.Config{})
	h := e.mkdir(t, &ob.Attributes{Name: `\Tmp`})
	sub := e.mkdir(t, &ob.Attributes{Name: `Sub`, RootDirectory: h})

	if err := Close(e.t, sub); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if entries, err := e.query(t, h, 4096, false, true); err != status.NoMoreEntries {
		t.Errorf("query after closing temporary child: %v, %v", err, entries)
	}
	if err := Close(e.t, h); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := OpenDirectoryObject(e.t, handleAddr, ob.DirectoryQuery, &ob.Attributes{Name: `\Tmp`}); err != status.ObjectNameNotFound {
		t.Errorf("OpenDirectoryObject after close: got %v, wanted %v", err, status.ObjectNameNotFound)
	}
}

func TestCreateDirectoryObjectProbe(t *testing.T) {
	e := newTestEnv(t, kernel.Config{})
	live := e.k.ObjectManager.Stats().Live
	if err := CreateDirectoryObject(e.t, 0x10, ob.DirectoryAllAccess, &ob.Attributes{Name: `\Dir`}); err != status.AccessViolation {
		t.Fatalf("CreateDirectoryObject: got %v, wanted %v", err, status.AccessViolation)
	}
	if got := e.k.ObjectManager.Stats().Live; got != live {
		t.Errorf("Live: got %d, wanted %d", got, live)
	}
	if err := CreateDirectoryObject(e.t, handleAddr, ob.DirectoryAllAccess, &ob.Attributes{Name: `\Missing\Dir`}); err != status.ObjectPathNotFound {
		t.Errorf("CreateDirectoryObject under missing parent: got %v, wanted %v", err, status.ObjectPathNotFound)
	}
	if got := e.k.ObjectManager.Stats().Live; got != live {
		t.Errorf("Live after failed insert: got %d, wanted %d", got, live)
	}
}

func TestCreateManyAndEnumerate(t *testing.T) {
	e := newTestEnv(t, kernel.Config{})
	h := e.mkdir(t, &ob.Attributes{Name: `\Many`})
	want := map[string]bool{}
	for i := 0; i < 50; i++ {
		name := fmt.Sprintf("d%d", i)
		e.mkdir(t, &ob.Attributes{Name: name, RootDirectory: h})
		want[name] = true
	}

	got := map[string]bool{}
	restart := true
	for i := 0; ; i++ {
		if i > 100 {
			t.Fatalf("enumeration did not terminate")
		}
		entries, err := e.query(t, h, 512, false, restart)
		restart = false
		for _, ent := range entries {
			if got[ent.Name] {
				t.Errorf("%q returned twice", ent.Name)
			}
			got[ent.Name] = true
		}
		if err == status.NoMoreEntries || err == nil {
			break
		}
		if err != status.MoreEntries {
			t.Fatalf("query: %v", err)
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}
