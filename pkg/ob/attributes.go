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
	"strings"
)

// AttributeFlags modify how a name is resolved or an object is inserted.
type AttributeFlags uint32

// Attribute flags.
const (
	// Permanent objects keep their name after the last handle is closed.
	Permanent AttributeFlags = 0x10

	// CaseInsensitive compares names without regard to case.
	CaseInsensitive AttributeFlags = 0x40

	// OpenIf opens an existing object of the same type instead of
	// failing with a name collision.
	OpenIf AttributeFlags = 0x80
)

// String implements fmt.Stringer.String.
func (f AttributeFlags) String() string {
	var s []string
	if f&Permanent != 0 {
		s = append(s, "Permanent")
	}
	if f&CaseInsensitive != 0 {
		s = append(s, "CaseInsensitive")
	}
	if f&OpenIf != 0 {
		s = append(s, "OpenIf")
	}
	if rest := f &^ (Permanent | CaseInsensitive | OpenIf); rest != 0 {
		s = append(s, fmt.Sprintf("%#x", uint32(rest)))
	}
	if len(s) == 0 {
		return "0"
	}
	return strings.Join(s, "|")
}

// Attributes name an object. Name is a path of components separated by
// '\'. It is absolute when RootDirectory is zero and relative to
// RootDirectory otherwise.
type Attributes struct {
	Name          string
	RootDirectory Handle
	Flags         AttributeFlags
}

// String implements fmt.Stringer.String.
func (a *Attributes) String() string {
	if a == nil {
		return "<nil>"
	}
	return fmt.Sprintf("{Name: %q, RootDirectory: %v, Flags: %v}", a.Name, a.RootDirectory, a.Flags)
}

func (a *Attributes) caseInsensitive() bool {
	return a != nil && a.Flags&CaseInsensitive != 0
}
