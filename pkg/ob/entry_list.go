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

// entryList is an intrusive list of object headers, linked through
// ObjectHeader.dirEntry. Entries can be added to or removed from the list
// in O(1) time and with no additional memory allocations.
//
// The zero value for entryList is an empty list ready to use.
//
// To iterate over a list (where l is an entryList):
//
//	for e := l.Front(); e != nil; e = e.dirEntry.Next() {
//		// do something with e.
//	}
type entryList struct {
	head *ObjectHeader
	tail *ObjectHeader
}

// Reset resets list l to the empty state.
func (l *entryList) Reset() {
	l.head = nil
	l.tail = nil
}

// Empty returns true iff the list is empty.
func (l *entryList) Empty() bool {
	return l.head == nil
}

// Front returns the first element of list l or nil.
func (l *entryList) Front() *ObjectHeader {
	return l.head
}

// Back returns the last element of list l or nil.
func (l *entryList) Back() *ObjectHeader {
	return l.tail
}

// Len returns the number of elements in the list.
//
// NOTE: This is an O(n) operation.
func (l *entryList) Len() (count int) {
	for e := l.Front(); e != nil; e = e.dirEntry.Next() {
		count++
	}
	return count
}

// PushBack inserts the element e at the back of list l.
func (l *entryList) PushBack(e *ObjectHeader) {
	e.dirEntry.SetNext(nil)
	e.dirEntry.SetPrev(l.tail)
	if l.tail != nil {
		l.tail.dirEntry.SetNext(e)
	} else {
		l.head = e
	}
	l.tail = e
}

// Remove removes e from l.
func (l *entryList) Remove(e *ObjectHeader) {
	prev := e.dirEntry.Prev()
	next := e.dirEntry.Next()

	if prev != nil {
		prev.dirEntry.SetNext(next)
	} else if l.head == e {
		l.head = next
	}

	if next != nil {
		next.dirEntry.SetPrev(prev)
	} else if l.tail == e {
		l.tail = prev
	}

	e.dirEntry.SetNext(nil)
	e.dirEntry.SetPrev(nil)
}

// entryEntry is the linkage embedded in an ObjectHeader.
type entryEntry struct {
	next *ObjectHeader
	prev *ObjectHeader
}

// Next returns the entry that follows e in the list.
func (e *entryEntry) Next() *ObjectHeader {
	return e.next
}

// Prev returns the entry that precedes e in the list.
func (e *entryEntry) Prev() *ObjectHeader {
	return e.prev
}

// SetNext assigns 'entry' as the entry that follows e in the list.
func (e *entryEntry) SetNext(elem *ObjectHeader) {
	e.next = elem
}

// SetPrev assigns 'entry' as the entry that precedes e in the list.
func (e *entryEntry) SetPrev(elem *ObjectHeader) {
	e.prev = elem
}
