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

// Package pool implements the paged and non-paged pool allocators.
//
// Non-paged allocations back buffers that are used while a spin lock is
// held. When page locking is enabled they are mapped and locked into
// memory so that touching them cannot fault.
package pool

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"gvisor.dev/obdir/pkg/status"
)

// Type selects a pool.
type Type int

const (
	// NonPaged memory is resident and safe to touch with a spin lock held.
	NonPaged Type = iota

	// Paged memory may be paged out.
	Paged

	numTypes
)

// String implements fmt.Stringer.String.
func (t Type) String() string {
	switch t {
	case NonPaged:
		return "NonPaged"
	case Paged:
		return "Paged"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Allocator allocates and frees pool memory.
type Allocator interface {
	// Allocate returns a zeroed buffer of size bytes from the pool of the
	// given type, or status.InsufficientResources.
	Allocate(typ Type, size int) ([]byte, error)

	// Free returns a buffer obtained from Allocate with the same type.
	Free(typ Type, buf []byte)
}

// Config configures a Pool.
type Config struct {
	// NonPagedQuota and PagedQuota bound the bytes outstanding in each
	// pool. Zero means unlimited.
	NonPagedQuota int64
	PagedQuota    int64

	// LockPages maps and locks non-paged allocations into memory.
	LockPages bool
}

// Stats describes pool usage.
type Stats struct {
	Outstanding int64
	Allocations uint64
	Failures    uint64
}

type typePool struct {
	quota *semaphore.Weighted // nil if unlimited.

	outstanding atomic.Int64
	allocations atomic.Uint64
	failures    atomic.Uint64
}

// Pool is the default Allocator.
type Pool struct {
	lockPages bool
	pools     [numTypes]typePool
}

var _ Allocator = (*Pool)(nil)

// New returns a new Pool.
func New(cfg Config) *Pool {
	p := &Pool{lockPages: cfg.LockPages}
	if cfg.NonPagedQuota > 0 {
		p.pools[NonPaged].quota = semaphore.NewWeighted(cfg.NonPagedQuota)
	}
	if cfg.PagedQuota > 0 {
		p.pools[Paged].quota = semaphore.NewWeighted(cfg.PagedQuota)
	}
	return p
}

// Allocate implements Allocator.Allocate. It never blocks: an allocation
// that would exceed the quota fails immediately.
func (p *Pool) Allocate(typ Type, size int) ([]byte, error) {
	if typ < 0 || typ >= numTypes || size < 0 {
		return nil, status.InvalidParameter
	}
	tp := &p.pools[typ]
	if tp.quota != nil && !tp.quota.TryAcquire(int64(size)) {
		tp.failures.Add(1)
		return nil, status.InsufficientResources
	}

	var (
		buf []byte
		err error
	)
	if typ == NonPaged && p.lockPages && size > 0 {
		buf, err = allocLocked(size)
	} else {
		buf = make([]byte, size)
	}
	if err != nil {
		if tp.quota != nil {
			tp.quota.Release(int64(size))
		}
		tp.failures.Add(1)
		return nil, status.InsufficientResources
	}
	tp.outstanding.Add(int64(size))
	tp.allocations.Add(1)
	return buf, nil
}

// Free implements Allocator.Free.
func (p *Pool) Free(typ Type, buf []byte) {
	tp := &p.pools[typ]
	size := len(buf)
	if typ == NonPaged && p.lockPages && size > 0 {
		freeLocked(buf)
	}
	tp.outstanding.Add(-int64(size))
	if tp.quota != nil {
		tp.quota.Release(int64(size))
	}
}

// Stats returns usage of the pool of the given type.
func (p *Pool) Stats(typ Type) Stats {
	tp := &p.pools[typ]
	return Stats{
		Outstanding: tp.outstanding.Load(),
		Allocations: tp.allocations.Load(),
		Failures:    tp.failures.Load(),
	}
}

// Drain waits until every byte of the non-paged quota has been returned.
// It is used on shutdown to check that no scratch buffer leaked.
func (p *Pool) Drain(ctx context.Context, typ Type, quota int64) error {
	tp := &p.pools[typ]
	if tp.quota == nil {
		if n := tp.outstanding.Load(); n != 0 {
			return fmt.Errorf("%v pool: %d bytes outstanding", typ, n)
		}
		return nil
	}
	if err := tp.quota.Acquire(ctx, quota); err != nil {
		return fmt.Errorf("%v pool: %d bytes outstanding: %w", typ, tp.outstanding.Load(), err)
	}
	tp.quota.Release(quota)
	return nil
}
