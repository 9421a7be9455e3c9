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

// Package kernel ties the object manager and the pool allocator together
// and provides the Task that system calls run on behalf of.
package kernel

import (
	"context"

	"gvisor.dev/obdir/pkg/log"
	"gvisor.dev/obdir/pkg/ob"
	"gvisor.dev/obdir/pkg/pool"
	"gvisor.dev/obdir/pkg/usermem"
)

// Config configures a Kernel.
type Config struct {
	// Pool configures the pool allocator.
	Pool pool.Config

	// LogRefs logs object reference changes when leak checking is on.
	LogRefs bool
}

// Kernel is the shared state of all tasks.
type Kernel struct {
	// ObjectManager owns the object namespace.
	ObjectManager *ob.Manager

	// Pool allocates scratch memory.
	Pool *pool.Pool
}

// New returns a new Kernel with an empty namespace.
func New(cfg Config) *Kernel {
	k := &Kernel{
		ObjectManager: ob.NewManager(ob.ManagerOptions{LogRefs: cfg.LogRefs}),
		Pool:          pool.New(cfg.Pool),
	}
	log.Debugf("Kernel created: non-paged quota %d, lock pages %t", cfg.Pool.NonPagedQuota, cfg.Pool.LockPages)
	return k
}

// contextID is the kernel package's type for context.Context.Value keys.
type contextID int

const (
	// CtxKernel is a Context.Value key for a Kernel.
	CtxKernel contextID = iota

	// CtxTask is a Context.Value key for a Task.
	CtxTask
)

// KernelFromContext returns the Kernel in which ctx is executing, or nil if
// there is no such Kernel.
func KernelFromContext(ctx context.Context) *Kernel {
	if v := ctx.Value(CtxKernel); v != nil {
		return v.(*Kernel)
	}
	return nil
}

// TaskFromContext returns the Task associated with ctx, or nil if there is
// no such Task.
func TaskFromContext(ctx context.Context) *Task {
	if v := ctx.Value(CtxTask); v != nil {
		return v.(*Task)
	}
	return nil
}

// Task is a thread of execution issuing system calls. A Task is a
// context.Context.
type Task struct {
	context.Context

	k       *Kernel
	mode    usermem.ProcessorMode
	mem     usermem.IO
	handles *ob.HandleTable
}

// NewTask returns a task with an empty handle table. mode is the mode the
// task's system calls are issued from; mem is the memory its pointers
// refer to.
func (k *Kernel) NewTask(ctx context.Context, mode usermem.ProcessorMode, mem usermem.IO) *Task {
	return &Task{
		Context: ctx,
		k:       k,
		mode:    mode,
		mem:     mem,
		handles: k.ObjectManager.NewHandleTable(),
	}
}

// Value implements context.Context.Value.
func (t *Task) Value(key any) any {
	switch key {
	case CtxKernel:
		return t.k
	case CtxTask:
		return t
	default:
		return t.Context.Value(key)
	}
}

// Kernel returns the task's kernel.
func (t *Task) Kernel() *Kernel {
	return t.k
}

// PreviousMode returns the mode the task's calls come from.
func (t *Task) PreviousMode() usermem.ProcessorMode {
	return t.mode
}

// MemoryManager returns the task's memory.
func (t *Task) MemoryManager() usermem.IO {
	return t.mem
}

// HandleTable returns the task's handle table.
func (t *Task) HandleTable() *ob.HandleTable {
	return t.handles
}

// Exit closes all of the task's handles.
func (t *Task) Exit() {
	t.handles.CloseAll()
}
