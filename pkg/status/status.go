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

// Package status contains NT status codes exported as error interface
// pointers. Values are compared by identity, the same way syscall errno
// values are compared elsewhere in the tree.
package status

import (
	"errors"
	"fmt"
)

// Code is a 32-bit NT status value. The top two bits hold the severity.
type Code uint32

// Severity values, taken from Code bits 31:30.
const (
	SeveritySuccess       = 0
	SeverityInformational = 1
	SeverityWarning       = 2
	SeverityError         = 3
)

// Severity returns the severity bits of c.
func (c Code) Severity() int {
	return int(c >> 30)
}

// String implements fmt.Stringer.String.
func (c Code) String() string {
	return fmt.Sprintf("%#08x", uint32(c))
}

// Error represents an NT status with a descriptive message.
type Error struct {
	code    Code
	message string
}

// New creates a new *Error.
func New(code Code, message string) *Error {
	return &Error{
		code:    code,
		message: message,
	}
}

// Error implements error.Error.
func (e *Error) Error() string { return e.message }

// Code returns the underlying status code.
func (e *Error) Code() Code { return e.code }

// The following statuses are returned by the object manager and the
// directory system services. A nil error stands for STATUS_SUCCESS.
var (
	noError *Error = nil

	// Informational.
	MoreEntries      = New(0x00000105, "more entries are available")
	ObjectNameExists = New(0x40000000, "object name already exists")

	// Warnings.
	DatatypeMisalignment = New(0x80000002, "datatype misalignment")
	NoMoreEntries        = New(0x8000001A, "no more entries")

	// Errors.
	AccessViolation       = New(0xC0000005, "access violation")
	InvalidHandle         = New(0xC0000008, "invalid handle")
	InvalidParameter      = New(0xC000000D, "invalid parameter")
	AccessDenied          = New(0xC0000022, "access denied")
	BufferTooSmall        = New(0xC0000023, "buffer too small")
	ObjectTypeMismatch    = New(0xC0000024, "object type mismatch")
	ObjectNameInvalid     = New(0xC0000033, "object name invalid")
	ObjectNameNotFound    = New(0xC0000034, "object name not found")
	ObjectNameCollision   = New(0xC0000035, "object name collision")
	ObjectPathNotFound    = New(0xC000003A, "object path not found")
	ObjectPathSyntaxBad   = New(0xC000003B, "object path syntax bad")
	QuotaExceeded         = New(0xC0000044, "quota exceeded")
	InsufficientResources = New(0xC000009A, "insufficient resources")
)

var byCode = map[Code]*Error{}

func init() {
	for _, e := range []*Error{
		MoreEntries, ObjectNameExists, DatatypeMisalignment, NoMoreEntries,
		AccessViolation, InvalidHandle, InvalidParameter, AccessDenied,
		BufferTooSmall, ObjectTypeMismatch, ObjectNameInvalid,
		ObjectNameNotFound, ObjectNameCollision, ObjectPathNotFound,
		ObjectPathSyntaxBad, QuotaExceeded, InsufficientResources,
	} {
		byCode[e.code] = e
	}
}

// Lookup returns the *Error registered for code, or nil if code is
// STATUS_SUCCESS or unknown.
func Lookup(code Code) *Error {
	return byCode[code]
}

// FromError extracts the status carried by err. It returns false if err is
// neither nil nor wraps an *Error.
func FromError(err error) (*Error, bool) {
	if err == nil {
		return noError, true
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the status code carried by err. Untranslatable errors are
// reported as InvalidParameter.
func CodeOf(err error) Code {
	e, ok := FromError(err)
	if !ok {
		return InvalidParameter.code
	}
	if e == nil {
		return 0
	}
	return e.code
}

// Succeeded returns true if err is nil or carries a success or
// informational status, i.e. the NT_SUCCESS macro.
func Succeeded(err error) bool {
	e, ok := FromError(err)
	if !ok {
		return false
	}
	return e == nil || e.code.Severity() <= SeverityInformational
}

// Is returns true if err carries the status s. A nil s matches a nil err.
func Is(err error, s *Error) bool {
	e, ok := FromError(err)
	return ok && e == s
}
