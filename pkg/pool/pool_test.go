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

package pool

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/obdir/pkg/status"
)

func TestAllocateUnlimited(t *testing.T) {
	p := New(Config{})
	buf, err := p.Allocate(NonPaged, 128)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if len(buf) != 128 {
		t.Fatalf("len(buf): got %d, wanted 128", len(buf))
	}
	if diff := cmp.Diff(Stats{Outstanding: 128, Allocations: 1}, p.Stats(NonPaged)); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}
	p.Free(NonPaged, buf)
	if got := p.Stats(NonPaged).Outstanding; got != 0 {
		t.Errorf("Outstanding after Free: got %d, wanted 0", got)
	}
}

func TestAllocateQuota(t *testing.T) {
	p := New(Config{NonPagedQuota: 100})
	a, err := p.Allocate(NonPaged, 60)
	if err != nil {
		t.Fatalf("Allocate(60): %v", err)
	}
	if _, err := p.Allocate(NonPaged, 60); err != status.InsufficientResources {
		t.Fatalf("Allocate over quota: got %v, wanted %v", err, status.InsufficientResources)
	}
	// The paged pool is independent.
	if _, err := p.Allocate(Paged, 1000); err != nil {
		t.Fatalf("Allocate(Paged): %v", err)
	}
	p.Free(NonPaged, a)
	b, err := p.Allocate(NonPaged, 100)
	if err != nil {
		t.Fatalf("Allocate after Free: %v", err)
	}
	p.Free(NonPaged, b)

	if got := p.Stats(NonPaged).Failures; got != 1 {
		t.Errorf("Failures: got %d, wanted 1", got)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Drain(ctx, NonPaged, 100); err != nil {
		t.Errorf("Drain: %v", err)
	}
}

func TestAllocateInvalid(t *testing.T) {
	p := New(Config{})
	if _, err := p.Allocate(NonPaged, -1); err != status.InvalidParameter {
		t.Errorf("Allocate(-1): got %v, wanted %v", err, status.InvalidParameter)
	}
	if _, err := p.Allocate(Type(7), 1); err != status.InvalidParameter {
		t.Errorf("Allocate(Type(7)): got %v, wanted %v", err, status.InvalidParameter)
	}
}

func TestAllocateLocked(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("page locking requires linux")
	}
	p := New(Config{LockPages: true})
	buf, err := p.Allocate(NonPaged, 4096)
	if err == status.InsufficientResources {
		// RLIMIT_MEMLOCK may forbid locking even a single page.
		t.Skipf("mlock not permitted: %v", err)
	}
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	buf[0], buf[4095] = 1, 2
	p.Free(NonPaged, buf)
}
