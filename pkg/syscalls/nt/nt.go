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

// Package nt implements the object directory system calls.
//
// Pointers passed by user-mode tasks are probed before use. Every access
// to caller memory runs under usermem.Try, so that a bad pointer turns into
// a status instead of a crash. Kernel-mode pointers are not probed.
package nt

import (
	"time"

	"gvisor.dev/obdir/pkg/kernel"
	"gvisor.dev/obdir/pkg/log"
	"gvisor.dev/obdir/pkg/ob"
	"gvisor.dev/obdir/pkg/usermem"
)

// handleSize is the size of a handle in task memory.
const handleSize = 4

// allocFailures reports scratch allocation failures, which a caller can
// provoke at will.
var allocFailures = log.BasicRateLimitedLogger(time.Second)

// guard runs fn and reduces any fault it reports to a status.
func guard(fn func() error) error {
	return usermem.Try(fn)
}

// probeHandle checks that a handle can be written at addr.
func probeHandle(t *kernel.Task, addr usermem.Addr) error {
	if t.PreviousMode() == usermem.KernelMode {
		return nil
	}
	return guard(func() error {
		return usermem.ProbeForWrite(t, t.MemoryManager(), addr, handleSize, handleSize)
	})
}

// copyOutHandle writes h at addr.
func copyOutHandle(t *kernel.Task, addr usermem.Addr, h ob.Handle) error {
	return guard(func() error {
		return usermem.Check(addr, usermem.CopyUint32Out(t, t.MemoryManager(), addr, uint32(h)))
	})
}

// Close closes handle h of the calling task.
func Close(t *kernel.Task, h ob.Handle) error {
	log.Debugf("Close(%v)", h)
	return t.HandleTable().Close(h)
}
