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

package kernel

import (
	"context"
	"testing"

	"gvisor.dev/obdir/pkg/ob"
	"gvisor.dev/obdir/pkg/usermem"
)

func TestTaskContext(t *testing.T) {
	k := New(Config{})
	task := k.NewTask(context.Background(), usermem.UserMode, &usermem.BytesIO{})
	if got := KernelFromContext(task); got != k {
		t.Errorf("KernelFromContext: got %p, wanted %p", got, k)
	}
	if got := TaskFromContext(task); got != task {
		t.Errorf("TaskFromContext: got %p, wanted %p", got, task)
	}
	if got := KernelFromContext(context.Background()); got != nil {
		t.Errorf("KernelFromContext(Background): got %p, wanted nil", got)
	}
	if got := task.PreviousMode(); got != usermem.UserMode {
		t.Errorf("PreviousMode: got %v", got)
	}
}

func TestTaskExit(t *testing.T) {
	k := New(Config{})
	task := k.NewTask(context.Background(), usermem.KernelMode, &usermem.BytesIO{})
	m := k.ObjectManager
	if _, err := m.OpenByName(task.HandleTable(), &ob.Attributes{Name: `\`}, ob.DirectoryQuery, nil); err != nil {
		t.Fatalf("OpenByName: %v", err)
	}
	task.Exit()
	if got := task.HandleTable().Len(); got != 0 {
		t.Errorf("handles after Exit: got %d", got)
	}
	if got := m.Root().HandleCount(); got != 0 {
		t.Errorf("root HandleCount: got %d", got)
	}
}
