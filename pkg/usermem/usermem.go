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

// Package usermem governs access to caller memory.
//
// Every touch of a caller-supplied pointer goes through an IO. A fault
// (an access outside the caller's mapped memory) is reported as a status
// instead of terminating the caller.
package usermem

import (
	"context"
	"encoding/binary"

	"gvisor.dev/obdir/pkg/status"
)

// IO provides access to the contents of a caller's memory.
type IO interface {
	// CopyOut copies len(src) bytes from src to the memory mapped at addr. It
	// returns the number of bytes copied. If the number of bytes copied is <
	// len(src), it returns a non-nil error explaining why.
	CopyOut(ctx context.Context, addr Addr, src []byte) (int, error)

	// CopyIn copies len(dst) bytes from the memory mapped at addr to dst.
	// It returns the number of bytes copied. If the number of bytes copied is
	// < len(dst), it returns a non-nil error explaining why.
	CopyIn(ctx context.Context, addr Addr, dst []byte) (int, error)

	// ZeroOut sets toZero bytes to 0, starting at addr. It returns the number
	// of bytes zeroed. If the number of bytes zeroed is < toZero, it returns a
	// non-nil error explaining why.
	ZeroOut(ctx context.Context, addr Addr, toZero int64) (int64, error)
}

// ProbeForWrite checks that length bytes at addr are writable and that addr
// is aligned to alignment. A zero-length probe always succeeds. Probing
// does not change the contents of memory.
func ProbeForWrite(ctx context.Context, uio IO, addr Addr, length uint64, alignment uint64) error {
	if length == 0 {
		return nil
	}
	if !addr.IsAligned(alignment) {
		return status.DatatypeMisalignment
	}
	if _, ok := addr.AddLength(length); !ok {
		return status.AccessViolation
	}
	// Touch the first and last byte of the range, in the same manner as a
	// write probe touches each page.
	var b [1]byte
	for _, a := range []Addr{addr, addr + Addr(length-1)} {
		if _, err := uio.CopyIn(ctx, a, b[:]); err != nil {
			return err
		}
		if _, err := uio.CopyOut(ctx, a, b[:]); err != nil {
			return err
		}
	}
	return nil
}

// CopyUint32In reads a little-endian uint32 from addr.
func CopyUint32In(ctx context.Context, uio IO, addr Addr) (uint32, error) {
	var buf [4]byte
	if _, err := uio.CopyIn(ctx, addr, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// CopyUint32Out writes v to addr in little-endian byte order.
func CopyUint32Out(ctx context.Context, uio IO, addr Addr, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := uio.CopyOut(ctx, addr, buf[:])
	return err
}
