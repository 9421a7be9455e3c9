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
	"gvisor.dev/obdir/pkg/kernel"
	"gvisor.dev/obdir/pkg/log"
	"gvisor.dev/obdir/pkg/ob"
	"gvisor.dev/obdir/pkg/status"
	"gvisor.dev/obdir/pkg/usermem"
)

// OpenDirectoryObject opens the directory named by attrs and writes the new
// handle to handleAddr.
//
// If the handle cannot be written back the handle stays open.
func OpenDirectoryObject(t *kernel.Task, handleAddr usermem.Addr, access ob.AccessMask, attrs *ob.Attributes) error {
	log.Debugf("OpenDirectoryObject(%v, %#x, %v)", handleAddr, uint32(access), attrs)
	if err := probeHandle(t, handleAddr); err != nil {
		log.Debugf("OpenDirectoryObject failed: %v", err)
		return err
	}
	m := t.Kernel().ObjectManager
	h, err := m.OpenByName(t.HandleTable(), attrs, access, m.DirectoryType)
	if err != nil {
		return err
	}
	return copyOutHandle(t, handleAddr, h)
}

// CreateDirectoryObject creates a directory named by attrs and writes a
// handle to it to handleAddr. With OpenIf an existing directory is opened
// instead and ObjectNameExists is returned.
func CreateDirectoryObject(t *kernel.Task, handleAddr usermem.Addr, access ob.AccessMask, attrs *ob.Attributes) error {
	log.Debugf("CreateDirectoryObject(%v, %#x, %v)", handleAddr, uint32(access), attrs)
	if err := probeHandle(t, handleAddr); err != nil {
		log.Debugf("CreateDirectoryObject failed: %v", err)
		return err
	}
	m := t.Kernel().ObjectManager
	d, err := m.NewDirectory(attrs)
	if err != nil {
		return err
	}
	h, err := m.InsertObject(t.HandleTable(), d, attrs, access)
	if err != nil {
		// d did not make it into the namespace; it must not outlive
		// this call.
		m.MakeTemporary(d)
	}
	m.Release(d)
	if !status.Succeeded(err) {
		return err
	}
	if cerr := copyOutHandle(t, handleAddr, h); cerr != nil {
		return cerr
	}
	return err
}

// query holds the validated arguments of QueryDirectoryObject.
type query struct {
	buf        usermem.Addr
	length     uint32
	single     bool
	restart    bool
	ctxAddr    usermem.Addr
	retLenAddr usermem.Addr

	// cursor is the value read from ctxAddr, or zero when restarting.
	cursor ob.Cursor
}

// QueryDirectoryObject enumerates the directory at handle h into the length
// bytes at buf.
//
// The cursor at ctxAddr is read unless restart is set and is updated,
// together with the length at retLenAddr (if not zero), on every outcome
// that is not a fault: success, MoreEntries, NoMoreEntries and
// BufferTooSmall. The length reported is the number of bytes delivered, or
// with BufferTooSmall the number needed for the first entry that did not
// fit.
func QueryDirectoryObject(t *kernel.Task, h ob.Handle, buf usermem.Addr, length uint32, single, restart bool, ctxAddr, retLenAddr usermem.Addr) error {
	log.Debugf("QueryDirectoryObject(%v, %v, %d, single=%t, restart=%t, %v, %v)", h, buf, length, single, restart, ctxAddr, retLenAddr)
	q, err := validateQuery(t, query{
		buf:        buf,
		length:     length,
		single:     single,
		restart:    restart,
		ctxAddr:    ctxAddr,
		retLenAddr: retLenAddr,
	})
	if err != nil {
		log.Debugf("QueryDirectoryObject failed: %v", err)
		return err
	}
	scratch, res, err := stageQuery(t, h, q)
	if err != nil {
		return err
	}
	defer scratch.Release()
	return deliverQuery(t, q, scratch, res)
}

// validateQuery probes the caller's pointers and reads the cursor. It does
// not touch the directory.
func validateQuery(t *kernel.Task, q query) (query, error) {
	mem := t.MemoryManager()
	err := guard(func() error {
		if t.PreviousMode() == usermem.UserMode {
			// Records only need wide-character alignment.
			if err := usermem.ProbeForWrite(t, mem, q.buf, uint64(q.length), 2); err != nil {
				return err
			}
			if err := usermem.ProbeForWrite(t, mem, q.ctxAddr, 4, 4); err != nil {
				return err
			}
			if q.retLenAddr != 0 {
				if err := usermem.ProbeForWrite(t, mem, q.retLenAddr, 4, 4); err != nil {
					return err
				}
			}
		}
		if !q.restart {
			v, err := usermem.CopyUint32In(t, mem, q.ctxAddr)
			if err != nil {
				return usermem.Check(q.ctxAddr, err)
			}
			q.cursor = ob.Cursor(v)
		}
		return nil
	})
	return q, err
}

// stageQuery scans the directory at h into a scratch buffer. The directory
// lock is held only inside Directory.Scan, and the scratch buffer is
// allocated before it is taken.
//
// On success the caller must release the scratch buffer.
func stageQuery(t *kernel.Task, h ob.Handle, q query) (*ob.Scratch, ob.ScanResult, error) {
	k := t.Kernel()
	m := k.ObjectManager
	obj, err := m.Reference(t.HandleTable(), h, ob.DirectoryQuery, m.DirectoryType)
	if err != nil {
		return nil, ob.ScanResult{}, err
	}
	defer m.Release(obj)

	scratch, err := ob.NewScratch(k.Pool, q.length)
	if err != nil {
		allocFailures.Warningf("QueryDirectoryObject: scratch allocation of %d bytes failed: %v", q.length, err)
		return nil, ob.ScanResult{}, status.InsufficientResources
	}
	res := obj.(*ob.Directory).Scan(scratch, ob.ScanRequest{
		Length:  q.length,
		Base:    q.buf,
		Single:  q.single,
		Restart: q.restart,
		Cursor:  q.cursor,
	})
	return scratch, res, nil
}

// deliverQuery copies the staged records to the caller and stores the
// cursor and length. It runs without any directory lock held.
func deliverQuery(t *kernel.Task, q query, scratch *ob.Scratch, res ob.ScanResult) error {
	mem := t.MemoryManager()
	err := guard(func() error {
		if res.CopyBytes != 0 {
			if _, err := mem.CopyOut(t, q.buf, scratch.Bytes(res.CopyBytes)); err != nil {
				return usermem.Check(q.buf, err)
			}
		}
		if err := usermem.CopyUint32Out(t, mem, q.ctxAddr, uint32(res.Next)); err != nil {
			return usermem.Check(q.ctxAddr, err)
		}
		if q.retLenAddr != 0 {
			return usermem.Check(q.retLenAddr, usermem.CopyUint32Out(t, mem, q.retLenAddr, res.Required))
		}
		return nil
	})
	if err != nil {
		return err
	}
	return res.Status
}
