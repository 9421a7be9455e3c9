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
	"sort"
	"sync/atomic"

	"gvisor.dev/obdir/pkg/sync"
)

// Type describes a class of objects. Types are themselves objects of the
// type named "Type" and are published in \ObjectTypes.
type Type struct {
	ObjectHeader

	// ValidAccess is the set of rights that handles to objects of this
	// type may hold.
	ValidAccess AccessMask

	// Mapping maps generic rights for this type.
	Mapping GenericMapping

	// Delete, if not nil, is called when an object of this type is
	// destroyed.
	Delete func(Object)

	// objects counts live objects of this type.
	objects atomic.Int64
}

// Objects returns the number of live objects of this type.
func (t *Type) Objects() int64 {
	return t.objects.Load()
}

// grant returns the rights a handle opened with access receives.
func (t *Type) grant(access AccessMask) AccessMask {
	if access&MaximumAllowed != 0 {
		return t.ValidAccess
	}
	return t.Mapping.Map(access) & t.ValidAccess
}

// TypeRegistry indexes types by name.
type TypeRegistry struct {
	mu    sync.Mutex
	types map[string]*Type
}

func newTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[string]*Type)}
}

func (r *TypeRegistry) add(t *Type) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[t.Name()]; ok {
		return false
	}
	r.types[t.Name()] = t
	return true
}

// Lookup returns the type with the given name, or nil.
func (r *TypeRegistry) Lookup(name string) *Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.types[name]
}

// Types returns all registered types sorted by name.
func (r *TypeRegistry) Types() []*Type {
	r.mu.Lock()
	ts := make([]*Type, 0, len(r.types))
	for _, t := range r.types {
		ts = append(ts, t)
	}
	r.mu.Unlock()
	sort.Slice(ts, func(i, j int) bool { return ts[i].Name() < ts[j].Name() })
	return ts
}
