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
	"context"

	"gvisor.dev/obdir/pkg/status"
)

// BytesIO implements IO using a byte slice mapped at Base. Addresses outside
// [Base, Base+len(Bytes)) are not mapped and fault.
type BytesIO struct {
	Bytes []byte
	Base  Addr
}

// CopyOut implements IO.CopyOut.
func (b *BytesIO) CopyOut(ctx context.Context, addr Addr, src []byte) (int, error) {
	off, n, rngErr := b.rangeCheck(addr, len(src))
	if n != 0 {
		copy(b.Bytes[off:off+n], src)
	}
	return n, rngErr
}

// CopyIn implements IO.CopyIn.
func (b *BytesIO) CopyIn(ctx context.Context, addr Addr, dst []byte) (int, error) {
	off, n, rngErr := b.rangeCheck(addr, len(dst))
	if n != 0 {
		copy(dst, b.Bytes[off:off+n])
	}
	return n, rngErr
}

// ZeroOut implements IO.ZeroOut.
func (b *BytesIO) ZeroOut(ctx context.Context, addr Addr, toZero int64) (int64, error) {
	if toZero < 0 {
		return 0, status.InvalidParameter
	}
	off, n, rngErr := b.rangeCheck(addr, int(toZero))
	clear(b.Bytes[off : off+n])
	return int64(n), rngErr
}

// rangeCheck returns the offset of addr in b.Bytes and the number of bytes
// of the access that are mapped. If the access is not entirely mapped, it
// also returns status.AccessViolation.
func (b *BytesIO) rangeCheck(addr Addr, length int) (int, int, error) {
	if length == 0 {
		return 0, 0, nil
	}
	if addr < b.Base {
		return 0, 0, status.AccessViolation
	}
	off := uint64(addr - b.Base)
	if off >= uint64(len(b.Bytes)) {
		return 0, 0, status.AccessViolation
	}
	avail := uint64(len(b.Bytes)) - off
	if uint64(length) > avail {
		return int(off), int(avail), status.AccessViolation
	}
	return int(off), length, nil
}
