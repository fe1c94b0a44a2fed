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

// Package heapalloc defines the low-level heap interface the kernel core
// consumes. The real heap lives in the HAL's memory manager, entirely outside
// this module's scope; this package declares the contract and ships SimHeap,
// an in-memory reference implementation of it.
package heapalloc

// Heap is the allocator the CSpace handler draws kernel objects from and
// returns them to. Implementations must zero freshly allocated memory.
type Heap interface {
	// AllocZeroed returns a zeroed, size/align-conforming block, or ok=false
	// if the heap is exhausted.
	AllocZeroed(size, align uintptr) (ptr uintptr, ok bool)

	// Dealloc returns a previously allocated block. size and align must match
	// the values passed to the AllocZeroed call that produced ptr.
	Dealloc(ptr uintptr, size, align uintptr)
}
