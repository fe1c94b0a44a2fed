//
// Copyright 2019-2020 Nestybox, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package arena is the kernel's object registry: it resolves a capability's
// base_ptr (a heap frame number) back to the live, typed Go object that
// backs it. The original implementation reconstructs owning references from
// raw pointer bits; since Go forbids that, every allocator records the object
// it just built here, keyed by the same base_ptr the capability carries, and
// every handler that needs to act on the object looks it up by that key.
package arena

// Registry maps a capability's base_ptr to the kernel object it designates.
type Registry struct {
	objects map[uint64]any
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{objects: make(map[uint64]any)}
}

// Put records obj as the live object at basePtr. It overwrites any previous
// entry, which should only happen when a freed base_ptr is reused by the
// heap.
func (r *Registry) Put(basePtr uint64, obj any) {
	r.objects[basePtr] = obj
}

// Get resolves basePtr to its live object.
func (r *Registry) Get(basePtr uint64) (any, bool) {
	obj, ok := r.objects[basePtr]
	return obj, ok
}

// Delete removes the object at basePtr. Called by a destructor right before
// (or instead of, if it doesn't exist) returning the block to the heap.
func (r *Registry) Delete(basePtr uint64) {
	delete(r.objects, basePtr)
}

// Len reports the number of live objects, for leak-detection assertions in
// tests.
func (r *Registry) Len() int {
	return len(r.objects)
}
