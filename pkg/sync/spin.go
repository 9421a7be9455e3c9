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

package sync

import (
	"runtime"
	"sync/atomic"
)

// spinsBeforeYield is the number of failed acquisition attempts after which
// a waiter starts yielding the processor between attempts.
const spinsBeforeYield = 64

// SpinLock is a busy-wait mutual exclusion lock.
//
// A SpinLock never parks the acquiring goroutine on a channel, semaphore or
// futex. Critical sections protected by a SpinLock must therefore be short
// and must not block, allocate from paged pools, or touch caller memory.
//
// The zero value for SpinLock is an unlocked lock.
type SpinLock struct {
	state atomic.Uint32
}

// Lock acquires l, spinning until it is available.
func (l *SpinLock) Lock() {
	for spins := 0; ; spins++ {
		if l.state.Load() == 0 && l.state.CompareAndSwap(0, 1) {
			return
		}
		if spins >= spinsBeforeYield {
			runtime.Gosched()
		}
	}
}

// TryLock attempts to acquire l without spinning. It returns true on
// success.
func (l *SpinLock) TryLock() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Unlock releases l.
//
// Preconditions: l is locked.
func (l *SpinLock) Unlock() {
	if !l.state.CompareAndSwap(1, 0) {
		panic("sync: unlock of unlocked SpinLock")
	}
}

// Held returns true if l is currently locked by anyone. It is only useful
// for assertions.
func (l *SpinLock) Held() bool {
	return l.state.Load() != 0
}
