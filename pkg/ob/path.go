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

	"gvisor.dev/obdir/pkg/status"
)

const (
	// Separator separates path components.
	Separator = '\\'

	// maxNameUnits bounds the UTF-16 length of a single component so that
	// its byte length, including the terminator, fits a string descriptor.
	maxNameUnits = 0x7ffe
)

// Path is a parsed object name.
type Path struct {
	// Begin is an iterator to the first path component. If the path has no
	// components, Begin is a terminal iterator.
	Begin Iterator

	// Absolute is true if the name began with a separator.
	Absolute bool
}

// ParsePath parses a name. Empty components (repeated or trailing
// separators) are rejected with ObjectNameInvalid.
func ParsePath(name string) (Path, error) {
	if name == "" {
		return Path{}, nil
	}
	var p Path
	if name[0] == Separator {
		p.Absolute = true
		name = name[1:]
	}
	if name == "" {
		return p, nil
	}
	for _, pc := range strings.Split(name, string(Separator)) {
		if pc == "" {
			return Path{}, status.ObjectNameInvalid
		}
		if utf16Len(pc) > maxNameUnits {
			return Path{}, status.ObjectNameInvalid
		}
	}
	p.Begin = Iterator{partialPathname: name}
	return p, nil
}

// String returns the name that p was parsed from, normalized.
func (p Path) String() string {
	var b strings.Builder
	if p.Absolute {
		b.WriteByte(Separator)
	}
	for it := p.Begin; it.Ok(); it = it.Next() {
		b.WriteString(it.String())
		if it.NextOk() {
			b.WriteByte(Separator)
		}
	}
	return b.String()
}

// Iterator yields the components of a Path.
type Iterator struct {
	partialPathname string
}

// Ok returns true if it is not terminal.
func (it Iterator) Ok() bool {
	return len(it.partialPathname) != 0
}

// String returns the component at it.
//
// Preconditions: it.Ok().
func (it Iterator) String() string {
	if i := strings.IndexByte(it.partialPathname, Separator); i >= 0 {
		return it.partialPathname[:i]
	}
	return it.partialPathname
}

// Next returns an iterator to the component after it.
//
// Preconditions: it.Ok().
func (it Iterator) Next() Iterator {
	if i := strings.IndexByte(it.partialPathname, Separator); i >= 0 {
		return Iterator{partialPathname: it.partialPathname[i+1:]}
	}
	return Iterator{}
}

// NextOk is equivalent to it.Next().Ok(), but faster.
//
// Preconditions: it.Ok().
func (it Iterator) NextOk() bool {
	return strings.IndexByte(it.partialPathname, Separator) >= 0
}
