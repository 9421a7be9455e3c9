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


// Package cmd holds implementations of the obdir commands.
//
// Every invocation builds a fresh namespace, populated from the manifest
// named by --manifest, and issues system calls from a user-mode task whose
// memory is a small arena owned by the command.
package cmd

import (
	"context"
	"fmt"

	"gvisor.dev/obdir/obdir/config"
	"gvisor.dev/obdir/obdir/manifest"
	"gvisor.dev/obdir/pkg/kernel"
	"gvisor.dev/obdir/pkg/log"
	"gvisor.dev/obdir/pkg/ob"
	"gvisor.dev/obdir/pkg/refs"
	"gvisor.dev/obdir/pkg/status"
	"gvisor.dev/obdir/pkg/syscalls/nt"
	"gvisor.dev/obdir/pkg/usermem"
)

// Layout of the task arena.
const (
	memBase    usermem.Addr = 0x10000
	handleAddr              = memBase
	ctxAddr                 = memBase + 8
	retLenAddr              = memBase + 12
	bufAddr                 = memBase + bufOffset

	bufOffset = 0x100
)

// maxBufferSize bounds query buffer growth.
const maxBufferSize = 1 << 24

// session is a namespace and a task to issue calls from.
type session struct {
	k   *kernel.Kernel
	t   *kernel.Task
	mem *usermem.BytesIO

	// init holds the handles that keep temporary manifest objects alive.
	init *ob.HandleTable
}

func newSession(ctx context.Context, conf *config.Config) (*session, error) {
	k := kernel.New(kernel.Config{
		Pool:    conf.PoolConfig(),
		LogRefs: conf.ReferenceLeak != refs.NoLeakChecking,
	})
	s := &session{
		k:    k,
		init: k.ObjectManager.NewHandleTable(),
	}
	if conf.Manifest != "" {
		mf, err := manifest.Load(conf.Manifest, conf.LockTimeout)
		if err != nil {
			return nil, err
		}
		manifest.LogManifest(mf)
		if err := mf.Apply(k.ObjectManager, s.init); err != nil {
			s.init.CloseAll()
			return nil, fmt.Errorf("applying manifest %q: %w", conf.Manifest, err)
		}
	}
	s.mem = &usermem.BytesIO{
		Bytes: make([]byte, bufOffset+int(conf.BufferSize)),
		Base:  memBase,
	}
	s.t = k.NewTask(ctx, usermem.UserMode, s.mem)
	return s, nil
}

// fork returns a session sharing s's namespace, with its own task.
func (s *session) fork(ctx context.Context) *session {
	mem := &usermem.BytesIO{
		Bytes: make([]byte, len(s.mem.Bytes)),
		Base:  memBase,
	}
	return &session{
		k:   s.k,
		t:   s.k.NewTask(ctx, usermem.UserMode, mem),
		mem: mem,
	}
}

// close releases every handle the session holds.
func (s *session) close() {
	s.t.Exit()
	if s.init != nil {
		s.init.CloseAll()
	}
}

// buffer returns the query buffer, grown to size bytes if needed.
func (s *session) buffer(size uint32) []byte {
	if need := bufOffset + int(size); need > len(s.mem.Bytes) {
		b := make([]byte, need)
		copy(b, s.mem.Bytes[:bufOffset])
		s.mem.Bytes = b
	}
	return s.mem.Bytes[bufOffset : bufOffset+int(size)]
}

func (s *session) u32(addr usermem.Addr) uint32 {
	v, err := usermem.CopyUint32In(s.t, s.mem, addr)
	if err != nil {
		panic(fmt.Sprintf("reading session arena at %v: %v", addr, err))
	}
	return v
}

// open opens the directory at path, relative to root if root is not zero.
func (s *session) open(path string, root ob.Handle) (ob.Handle, error) {
	attrs := &ob.Attributes{Name: path, RootDirectory: root, Flags: ob.CaseInsensitive}
	if err := nt.OpenDirectoryObject(s.t, handleAddr, ob.DirectoryQuery|ob.DirectoryTraverse, attrs); err != nil {
		return 0, err
	}
	return ob.Handle(s.u32(handleAddr)), nil
}

// mkdir creates the directory at path. With openIf, an existing directory
// is opened and ObjectNameExists is returned along with its handle.
func (s *session) mkdir(path string, openIf, permanent bool) (ob.Handle, error) {
	attrs := &ob.Attributes{Name: path}
	if openIf {
		attrs.Flags |= ob.OpenIf
	}
	if permanent {
		attrs.Flags |= ob.Permanent
	}
	err := nt.CreateDirectoryObject(s.t, handleAddr, ob.DirectoryAllAccess, attrs)
	if !status.Succeeded(err) {
		return 0, err
	}
	return ob.Handle(s.u32(handleAddr)), err
}

// listing is the result of enumerating a directory.
type listing struct {
	Entries []ob.DirectoryEntry `json:"entries"`

	// Bytes is the amount of directory information returned.
	Bytes uint64 `json:"bytes"`

	// Calls is the number of queries issued.
	Calls int `json:"calls"`
}

// list enumerates the directory at h, starting with a size byte buffer.
// The buffer is grown whenever a query makes no progress.
func (s *session) list(h ob.Handle, size uint32, single bool) (listing, error) {
	var l listing
	if size < ob.DirectoryInformationSize {
		size = ob.DirectoryInformationSize
	}
	restart := true
	for {
		buf := s.buffer(size)
		clear(buf)
		err := nt.QueryDirectoryObject(s.t, h, bufAddr, size, single, restart, ctxAddr, retLenAddr)
		l.Calls++
		restart = false

		var entries []ob.DirectoryEntry
		switch err {
		case nil, status.MoreEntries:
			var perr error
			if entries, perr = ob.ParseDirectoryInformation(buf, bufAddr); perr != nil {
				return l, fmt.Errorf("parsing directory information: %w", perr)
			}
		case status.BufferTooSmall:
		case status.NoMoreEntries:
			return l, nil
		default:
			return l, err
		}

		if len(entries) == 0 {
			next := size * 2
			if need := s.u32(retLenAddr); need > next {
				next = need
			}
			if next > maxBufferSize {
				return l, fmt.Errorf("entry does not fit in %d bytes: %w", maxBufferSize, status.BufferTooSmall)
			}
			log.Debugf("Growing query buffer from %d to %d bytes", size, next)
			size = next
			continue
		}
		l.Entries = append(l.Entries, entries...)
		l.Bytes += uint64(s.u32(retLenAddr))
		if err == nil && !single {
			return l, nil
		}
	}
}
