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

package ob

import (
	"encoding/binary"
	"unicode/utf16"

	"gvisor.dev/obdir/pkg/usermem"
)

// UnicodeStringSize is the size of a string descriptor: Length (u16),
// MaximumLength (u16), 4 bytes of padding and a 64-bit Buffer address.
const UnicodeStringSize = 16

// UnicodeString is a decoded string descriptor.
type UnicodeString struct {
	Length        uint16
	MaximumLength uint16
	Buffer        usermem.Addr
}

// MarshalBytes encodes s into dst.
//
// Preconditions: len(dst) >= UnicodeStringSize.
func (s *UnicodeString) MarshalBytes(dst []byte) {
	binary.LittleEndian.PutUint16(dst[0:], s.Length)
	binary.LittleEndian.PutUint16(dst[2:], s.MaximumLength)
	binary.LittleEndian.PutUint32(dst[4:], 0)
	binary.LittleEndian.PutUint64(dst[8:], uint64(s.Buffer))
}

// UnmarshalBytes decodes s from src.
//
// Preconditions: len(src) >= UnicodeStringSize.
func (s *UnicodeString) UnmarshalBytes(src []byte) {
	s.Length = binary.LittleEndian.Uint16(src[0:])
	s.MaximumLength = binary.LittleEndian.Uint16(src[2:])
	s.Buffer = usermem.Addr(binary.LittleEndian.Uint64(src[8:]))
}

// utf16Len returns the number of UTF-16 code units needed to encode s.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if utf16.RuneLen(r) == 2 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// putUTF16 encodes s into dst followed by a wide null and returns the
// number of bytes written.
//
// Preconditions: len(dst) >= 2*utf16Len(s)+2.
func putUTF16(dst []byte, s string) int {
	off := 0
	for _, r := range s {
		if utf16.RuneLen(r) == 2 {
			r1, r2 := utf16.EncodeRune(r)
			binary.LittleEndian.PutUint16(dst[off:], uint16(r1))
			binary.LittleEndian.PutUint16(dst[off+2:], uint16(r2))
			off += 4
			continue
		}
		binary.LittleEndian.PutUint16(dst[off:], uint16(r))
		off += 2
	}
	binary.LittleEndian.PutUint16(dst[off:], 0)
	return off + 2
}

// decodeUTF16 decodes little-endian UTF-16 bytes.
func decodeUTF16(src []byte) string {
	units := make([]uint16, len(src)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(src[2*i:])
	}
	return string(utf16.Decode(units))
}
