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
	"errors"

	"gvisor.dev/obdir/pkg/status"
)

// Fault is the error returned for a failed access to caller memory.
type Fault struct {
	Status *status.Error
	Addr   Addr
}

// Error implements error.Error.
func (f Fault) Error() string {
	return f.Status.Error() + " at " + f.Addr.String()
}

// Unwrap returns the status carried by f.
func (f Fault) Unwrap() error {
	return f.Status
}

// Check returns nil if err is nil. Otherwise it returns a Fault at addr
// carrying err's status, or AccessViolation if err has none.
func Check(addr Addr, err error) error {
	if err == nil {
		return nil
	}
	s, ok := status.FromError(err)
	if !ok || s == nil {
		s = status.AccessViolation
	}
	return Fault{Status: s, Addr: addr}
}

// Try runs fn and reduces a Fault returned by fn to its status. Other
// errors are returned unchanged.
func Try(fn func() error) error {
	err := fn()
	var f Fault
	if errors.As(err, &f) {
		return f.Status
	}
	return err
}
