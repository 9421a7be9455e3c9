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
	"fmt"

	"gvisor.dev/obdir/pkg/pool"
	"gvisor.dev/obdir/pkg/status"
	"gvisor.dev/obdir/pkg/usermem"
)

// DirectoryInformationSize is the size of one directory information
// record: an ObjectName descriptor followed by an ObjectTypeName
// descriptor.
const DirectoryInformationSize = 2 * UnicodeStringSize

// Cursor counts the entries of a directory that earlier queries of the same
// scan have consumed, whether delivered or skipped.
//
// A cursor is only meaningful against an unchanged directory. Members
// linked or unlinked between two queries may cause later queries to skip
// or repeat entries; no lock is held across queries.
type Cursor uint32

// Scratch is a staging buffer for one query. It is allocated from the
// non-paged pool before the directory lock is taken so that the scan never
// allocates or touches caller memory while holding the lock.
type Scratch struct {
	alloc pool.Allocator
	buf   []byte

	// staged holds the members selected by the scan. Its capacity bounds
	// the number of records that can fit in buf, so appending to it never
	// allocates.
	staged []*ObjectHeader
}

// NewScratch allocates a scratch buffer of length bytes.
func NewScratch(alloc pool.Allocator, length uint32) (*Scratch, error) {
	buf, err := alloc.Allocate(pool.NonPaged, int(length))
	if err != nil {
		return nil, err
	}
	return &Scratch{
		alloc:  alloc,
		buf:    buf,
		staged: make([]*ObjectHeader, 0, length/DirectoryInformationSize),
	}, nil
}

// Bytes returns the first n bytes of the scratch buffer.
func (s *Scratch) Bytes(n int) []byte {
	return s.buf[:n]
}

// Release returns the buffer to the pool.
func (s *Scratch) Release() {
	s.alloc.Free(pool.NonPaged, s.buf)
	s.buf = nil
	s.staged = nil
}

// ScanRequest are the parameters of a scan.
type ScanRequest struct {
	// Length is the size of the caller's buffer. It must not exceed the
	// size of the scratch buffer.
	Length uint32

	// Base is the caller address the scratch buffer will be copied to.
	// String descriptors point into it.
	Base usermem.Addr

	// Single requests at most one record.
	Single bool

	// Restart ignores Cursor and starts from the first member.
	Restart bool

	// Cursor is the position of the previous query of this scan.
	Cursor Cursor
}

// ScanResult is the outcome of a scan.
type ScanResult struct {
	// Status is nil on success, or one of MoreEntries, NoMoreEntries and
	// BufferTooSmall.
	Status error

	// CopyBytes is the number of scratch bytes to deliver. It is zero if
	// no record was collected.
	CopyBytes int

	// Next is the cursor for the following query.
	Next Cursor

	// Required is the number of bytes the delivered records need. With
	// BufferTooSmall it includes the record that did not fit.
	Required uint32

	// Collected is the number of records staged.
	Collected int
}

// Scan selects the members of d that fit in req.Length bytes, starting
// after req.Cursor, and lays them out in the scratch buffer as an array of
// records terminated by a zeroed record and followed by their strings.
//
// Scan holds d.mu for its whole duration and does not touch caller memory.
func (d *Directory) Scan(s *Scratch, req ScanRequest) ScanResult {
	if int(req.Length) > len(s.buf) {
		panic(fmt.Sprintf("scan length %d exceeds scratch size %d", req.Length, len(s.buf)))
	}
	var skip Cursor
	if !req.Restart {
		skip = req.Cursor
	}
	res := ScanResult{Status: status.NoMoreEntries}
	required := uint64(DirectoryInformationSize)
	s.staged = s.staged[:0]

	d.mu.Lock()
	defer d.mu.Unlock()

	e := d.entries.Front()
	for ; e != nil; e = e.dirEntry.Next() {
		res.Next++
		if skip > 0 {
			skip--
			continue
		}
		size := e.infoSize()
		if required+size <= uint64(req.Length) {
			s.staged = append(s.staged, e)
			required += size
			res.Status = nil
			if req.Single {
				break
			}
			continue
		}
		if req.Single {
			required += size
			res.Status = status.BufferTooSmall
		}
		// Leave the entry for the next query.
		res.Next--
		break
	}
	if !req.Single && e != nil {
		res.Status = status.MoreEntries
	}

	res.Required = uint32(required)
	res.Collected = len(s.staged)
	if res.Collected > 0 && status.Succeeded(res.Status) {
		res.CopyBytes = s.compact(req.Base)
	}
	return res
}

// compact writes the staged records followed by their strings and returns
// the number of bytes used.
func (s *Scratch) compact(base usermem.Addr) int {
	n := len(s.staged)
	heap := (n + 1) * DirectoryInformationSize
	clear(s.buf[n*DirectoryInformationSize : heap])
	for i, h := range s.staged {
		rec := s.buf[i*DirectoryInformationSize : (i+1)*DirectoryInformationSize]
		if h.name != "" {
			heap = s.putString(rec[:UnicodeStringSize], heap, h.name, base)
		} else {
			clear(rec[:UnicodeStringSize])
		}
		heap = s.putString(rec[UnicodeStringSize:], heap, h.typ.Name(), base)
	}
	return heap
}

// putString copies str to the heap at off, fills in its descriptor and
// returns the new end of the heap.
func (s *Scratch) putString(desc []byte, off int, str string, base usermem.Addr) int {
	n := putUTF16(s.buf[off:], str)
	us := UnicodeString{
		Length:        uint16(n - 2),
		MaximumLength: uint16(n),
		Buffer:        base + usermem.Addr(off),
	}
	us.MarshalBytes(desc)
	return off + n
}

// DirectoryEntry is a decoded directory information record.
type DirectoryEntry struct {
	Name     string `json:"name"`
	TypeName string `json:"type"`
}

// ParseDirectoryInformation decodes the records in buf, which was delivered
// to address base, up to the terminating zeroed record.
func ParseDirectoryInformation(buf []byte, base usermem.Addr) ([]DirectoryEntry, error) {
	var entries []DirectoryEntry
	for off := 0; ; off += DirectoryInformationSize {
		if off+DirectoryInformationSize > len(buf) {
			return nil, fmt.Errorf("record at offset %d: missing terminator", off)
		}
		var name, typ UnicodeString
		name.UnmarshalBytes(buf[off:])
		typ.UnmarshalBytes(buf[off+UnicodeStringSize:])
		if typ.Buffer == 0 && name.Buffer == 0 && typ.Length == 0 && name.Length == 0 {
			return entries, nil
		}
		n, err := readString(buf, base, name)
		if err != nil {
			return nil, fmt.Errorf("record at offset %d: name: %w", off, err)
		}
		t, err := readString(buf, base, typ)
		if err != nil {
			return nil, fmt.Errorf("record at offset %d: type name: %w", off, err)
		}
		entries = append(entries, DirectoryEntry{Name: n, TypeName: t})
	}
}

func readString(buf []byte, base usermem.Addr, us UnicodeString) (string, error) {
	if us.Length == 0 {
		return "", nil
	}
	if us.Buffer < base {
		return "", fmt.Errorf("buffer %v before %v", us.Buffer, base)
	}
	off := uint64(us.Buffer - base)
	end := off + uint64(us.Length)
	if end > uint64(len(buf)) || us.Length%2 != 0 {
		return "", fmt.Errorf("string [%#x, %#x) outside %d byte buffer", off, end, len(buf))
	}
	return decodeUTF16(buf[off:end]), nil
}
