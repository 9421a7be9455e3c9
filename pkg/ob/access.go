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

// AccessMask is a set of access rights.
type AccessMask uint32

// Standard rights.
const (
	Delete      AccessMask = 0x00010000
	ReadControl AccessMask = 0x00020000
	WriteDAC    AccessMask = 0x00040000
	WriteOwner  AccessMask = 0x00080000
	Synchronize AccessMask = 0x00100000

	StandardRightsRequired = Delete | ReadControl | WriteDAC | WriteOwner
	StandardRightsRead     = ReadControl
	StandardRightsWrite    = ReadControl
	StandardRightsExecute  = ReadControl
)

// Generic rights, mapped to specific rights by a type's GenericMapping.
const (
	MaximumAllowed AccessMask = 0x02000000
	GenericAll     AccessMask = 0x10000000
	GenericExecute AccessMask = 0x20000000
	GenericWrite   AccessMask = 0x40000000
	GenericRead    AccessMask = 0x80000000

	genericRights = GenericAll | GenericExecute | GenericWrite | GenericRead
)

// Directory rights.
const (
	DirectoryQuery              AccessMask = 0x0001
	DirectoryTraverse           AccessMask = 0x0002
	DirectoryCreateObject       AccessMask = 0x0004
	DirectoryCreateSubdirectory AccessMask = 0x0008

	DirectoryAllAccess = StandardRightsRequired | 0xF
)

// Type object rights.
const (
	TypeCreate    AccessMask = 0x0001
	TypeAllAccess            = StandardRightsRequired | TypeCreate
)

// GenericMapping maps generic rights to the specific rights of a type.
type GenericMapping struct {
	Read    AccessMask
	Write   AccessMask
	Execute AccessMask
	All     AccessMask
}

// Map replaces the generic rights in m with the specific rights they stand
// for.
func (g GenericMapping) Map(m AccessMask) AccessMask {
	out := m &^ genericRights
	if m&GenericRead != 0 {
		out |= g.Read
	}
	if m&GenericWrite != 0 {
		out |= g.Write
	}
	if m&GenericExecute != 0 {
		out |= g.Execute
	}
	if m&GenericAll != 0 {
		out |= g.All
	}
	return out
}

// Contains returns true if m grants every right in want.
func (m AccessMask) Contains(want AccessMask) bool {
	return m&want == want
}

// DirectoryMapping is the generic mapping of directory objects.
var DirectoryMapping = GenericMapping{
	Read:    StandardRightsRead | DirectoryQuery | DirectoryTraverse,
	Write:   StandardRightsWrite | DirectoryCreateObject | DirectoryCreateSubdirectory,
	Execute: StandardRightsExecute | DirectoryQuery | DirectoryTraverse,
	All:     DirectoryAllAccess,
}

// TypeMapping is the generic mapping of type objects.
var TypeMapping = GenericMapping{
	Read:    StandardRightsRead,
	Write:   StandardRightsWrite,
	Execute: StandardRightsExecute,
	All:     TypeAllAccess,
}
