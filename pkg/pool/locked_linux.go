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

//go:build linux

package pool

import (
	"golang.org/x/sys/unix"
)

// allocLocked maps size bytes of anonymous memory and locks them into RAM.
func allocLocked(size int) ([]byte, error) {
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, err
	}
	if err := unix.Mlock(buf); err != nil {
		unix.Munmap(buf)
		return nil, err
	}
	return buf, nil
}

// freeLocked unlocks and unmaps a buffer from allocLocked.
func freeLocked(buf []byte) {
	unix.Munlock(buf)
	unix.Munmap(buf)
}
