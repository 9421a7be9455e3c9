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
	"strings"

	"github.com/google/btree"
	"gvisor.dev/obdir/pkg/sync"
)

// indexDegree is the B-tree degree of a directory's name index.
const indexDegree = 8

// indexEntry is a member of a directory's name index, ordered by the
// case-folded name and then by the exact name.
type indexEntry struct {
	folded string
	name   string
	obj    *ObjectHeader
}

func indexLess(a, b indexEntry) bool {
	if a.folded != b.folded {
		return a.folded < b.folded
	}
	return a.name < b.name
}

func foldName(name string) string {
	return strings.ToUpper(name)
}

// Directory is a namespace container. Members are kept in insertion order
// in an intrusive list; named members are also indexed by name.
//
// Directory membership is weak: a directory does not hold references on
// its members, and a member is unlinked before it is destroyed.
type Directory struct {
	ObjectHeader

	// mu protects the fields below. It is a spin lock: the critical
	// section may only traverse the list, do size arithmetic and stage
	// into memory that was allocated before mu was taken.
	mu sync.SpinLock

	// entries holds all members, named or not.
	entries entryList

	// count is the number of members in entries.
	count int

	// index holds the named members. It is created on first link.
	index *btree.BTreeG[indexEntry]
}

// Len returns the number of members of d.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// linkLocked appends h to d. Named members are also added to the index.
//
// Preconditions:
//   - d.mu is locked.
//   - h is not linked into any directory.
func (d *Directory) linkLocked(h *ObjectHeader) {
	d.entries.PushBack(h)
	d.count++
	if h.name != "" {
		if d.index == nil {
			d.index = btree.NewG[indexEntry](indexDegree, indexLess)
		}
		d.index.ReplaceOrInsert(indexEntry{folded: foldName(h.name), name: h.name, obj: h})
	}
	h.parent.Store(d)
}

// unlinkLocked removes h from d.
//
// Preconditions:
//   - d.mu is locked.
//   - h is linked into d.
func (d *Directory) unlinkLocked(h *ObjectHeader) {
	d.entries.Remove(h)
	d.count--
	if h.name != "" && d.index != nil {
		key := indexEntry{folded: foldName(h.name), name: h.name}
		// A dying member may share its key with a newer one that
		// replaced it in the index.
		if e, ok := d.index.Get(key); ok && e.obj == h {
			d.index.Delete(key)
		}
	}
	h.parent.Store(nil)
}

// lookupLocked returns a referenced member called name, or nil. Members
// whose last reference is already gone are ignored.
//
// Preconditions: d.mu is locked.
func (d *Directory) lookupLocked(name string, caseInsensitive bool) *ObjectHeader {
	if d.index == nil {
		return nil
	}
	folded := foldName(name)
	if !caseInsensitive {
		e, ok := d.index.Get(indexEntry{folded: folded, name: name})
		if !ok || !e.obj.TryIncRef() {
			return nil
		}
		return e.obj
	}
	var found *ObjectHeader
	d.index.AscendGreaterOrEqual(indexEntry{folded: folded}, func(e indexEntry) bool {
		if e.folded != folded {
			return false
		}
		if e.obj.TryIncRef() {
			found = e.obj
			return false
		}
		return true
	})
	return found
}

// lookup is lookupLocked with d.mu taken.
func (d *Directory) lookup(name string, caseInsensitive bool) *ObjectHeader {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lookupLocked(name, caseInsensitive)
}
