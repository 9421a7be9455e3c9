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

package usermem

import (
	"fmt"
)

// Addr represents an address in a caller's address space. Address 0 is
// never mapped.
type Addr uintptr

// AddLength adds the given length to start and returns the result. ok is true
// iff adding the length did not overflow the range of Addr.
func (v Addr) AddLength(length uint64) (end Addr, ok bool) {
	end = v + Addr(length)
	// The second half of the following check is needed in case uintptr is
	// smaller than 64 bits.
	ok = end >= v && length <= uint64(^Addr(0))
	return
}

// IsAligned returns true if v is a multiple of alignment. An alignment of 0
// or 1 accepts every address.
func (v Addr) IsAligned(alignment uint64) bool {
	if alignment <= 1 {
		return true
	}
	return uint64(v)%alignment == 0
}

// String implements fmt.Stringer.String.
func (v Addr) String() string {
	return fmt.Sprintf("%#x", uintptr(v))
}

// ProcessorMode is the trust level of the caller on whose behalf a system
// service runs.
type ProcessorMode int

const (
	// KernelMode callers are trusted; their pointers are not probed.
	KernelMode ProcessorMode = iota

	// UserMode callers are untrusted; all of their pointers are probed
	// before use and accessed with fault containment.
	UserMode
)

// String implements fmt.Stringer.String.
func (m ProcessorMode) String() string {
	switch m {
	case KernelMode:
		return "KernelMode"
	case UserMode:
		return "UserMode"
	default:
		return fmt.Sprintf("ProcessorMode(%d)", int(m))
	}
}
