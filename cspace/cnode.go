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

// Package cspace implements CapNode, the fixed-size capability table owned
// by a thread, along with the allocation/derivation/destructor discipline
// that governs every slot.
package cspace

import (
	"github.com/pkg/errors"

	"github.com/MORK-core/mork-syscall/arena"
	"github.com/MORK-core/mork-syscall/capability"
	"github.com/MORK-core/mork-syscall/config"
	"github.com/MORK-core/mork-syscall/heapalloc"
	"github.com/MORK-core/mork-syscall/syscallabi"
)

// CapNode is a capability table: a fixed-size vector of slots, a slot is
// "used" iff its capability is non-Null. Slot 0 and the reserved CNodeSlot
// range below syscallabi.FirstFree are conventionally left Null by the
// allocator that owns this CapNode (the root task's bootstrap code, outside
// this module's scope) — CapNode itself enforces nothing about them beyond
// honoring AllocFree's floor.
type CapNode struct {
	slots []capability.Cap
}

// NewCapNode allocates an empty CapNode with the given slot count.
func NewCapNode(size int) *CapNode {
	return &CapNode{slots: make([]capability.Cap, size)}
}

// Size returns the number of slots.
func (n *CapNode) Size() int {
	return len(n.slots)
}

// Get returns the capability at index, or Null and false if index is out of
// range.
func (n *CapNode) Get(index int) (capability.Cap, bool) {
	if index < 0 || index >= len(n.slots) {
		return capability.Null, false
	}
	return n.slots[index], true
}

// Set overwrites the capability at index. Callers are responsible for having
// freed whatever was there before, if anything — Set never runs a
// destructor.
func (n *CapNode) Set(index int, c capability.Cap) {
	n.slots[index] = c
}

// IsUsed reports whether slot index holds a non-Null capability.
func (n *CapNode) IsUsed(index int) bool {
	return index >= 0 && index < len(n.slots) && n.slots[index].Kind != capability.KindNull
}

// Empty reports whether every slot is Null.
func (n *CapNode) Empty() bool {
	for _, c := range n.slots {
		if c.Kind != capability.KindNull {
			return false
		}
	}
	return true
}

// AllocFree returns the lowest unused index at or above first, or false if
// the CapNode is full. first is normally syscallabi.FirstFree.
func (n *CapNode) AllocFree(first int) (int, bool) {
	for i := first; i < len(n.slots); i++ {
		if n.slots[i].Kind == capability.KindNull {
			return i, true
		}
	}
	return 0, false
}

// OwnedCSpace lets cspace.Free recurse into a Thread capability's own
// CapNode without this package importing the task package (which itself
// must import cspace for its CSpace field type). Any type with this method
// — in practice only task.Context — is treated as the owner of a CSpace.
type Owner interface {
	OwnedCSpace() *CapNode
}

// Blocked lets cspace.Free refuse to tear down a Notification that still has
// threads parked in its receive queue, per spec.md §9's open question —
// freeing a Notification with waiters would otherwise leak those TCBs.
type Blocked interface {
	HasWaiters() bool
}

// FreeSlot runs the slot's destructor (see Free) and then zeroes it. It
// returns ErrOutOfRange for an index outside the CapNode. When the
// destructor fails (ErrNotificationBlocked, wrapped) the slot is left
// untouched so the caller can retry once the notification drains.
func (n *CapNode) FreeSlot(index int, heap heapalloc.Heap, reg *arena.Registry, cfg config.Kernel) error {
	c, ok := n.Get(index)
	if !ok {
		return ErrOutOfRange
	}
	if c.Kind == capability.KindNull {
		return nil
	}
	if err := Free(c, heap, reg, cfg); err != nil {
		return errors.Wrapf(err, "cspace: free slot %d", index)
	}
	n.slots[index] = capability.Null
	return nil
}

// ErrOutOfRange is returned by FreeSlot for an index outside the CapNode.
var ErrOutOfRange = capError("cspace: index out of range")

// ErrNotificationBlocked is returned by Free when asked to destroy a
// Notification capability whose object still has threads blocked in
// receive().
var ErrNotificationBlocked = capError("cspace: cannot free notification with blocked waiters")

type capError string

func (e capError) Error() string { return string(e) }

// Free runs c's type-specific destructor. It is a no-op for a Null or a
// non-owning (derived) capability — the derivation law in spec.md §8
// requires that deleting a derived copy never touches the object it points
// to. Freeing a CNode capability directly is an internal-consistency
// violation (CNodes are only ever freed as part of freeing their owning
// TCB) and panics, per spec.md §4.2.
func Free(c capability.Cap, heap heapalloc.Heap, reg *arena.Registry, cfg config.Kernel) error {
	if c.Kind == capability.KindNull || !c.Owning {
		return nil
	}

	switch c.Kind {
	case capability.KindCNode:
		panic("cspace: attempted to free a CNode capability directly")

	case capability.KindFrame:
		size, align, ok := cfg.FrameLayout(c.SizeLevel)
		if !ok {
			panic("cspace: frame capability with unsupported size level")
		}
		reg.Delete(c.BasePtr)
		heap.Dealloc(uintptr(c.BasePtr)<<12, size, align)
		return nil

	case capability.KindPageTable:
		size, align, _ := cfg.Layout(syscallabi.ObjPageTable)
		reg.Delete(c.BasePtr)
		heap.Dealloc(uintptr(c.BasePtr)<<12, size, align)
		return nil

	case capability.KindNotification:
		if obj, ok := reg.Get(c.BasePtr); ok {
			if b, ok := obj.(Blocked); ok && b.HasWaiters() {
				return ErrNotificationBlocked
			}
		}
		size, align, _ := cfg.Layout(syscallabi.ObjNotification)
		reg.Delete(c.BasePtr)
		heap.Dealloc(uintptr(c.BasePtr)<<12, size, align)
		return nil

	case capability.KindThread:
		if obj, ok := reg.Get(c.BasePtr); ok {
			if owner, ok := obj.(Owner); ok {
				if cs := owner.OwnedCSpace(); cs != nil {
					for i := int(syscallabi.CapInitVSpace); i < cs.Size(); i++ {
						if cs.Empty() {
							break
						}
						if cs.IsUsed(i) {
							if err := cs.FreeSlot(i, heap, reg, cfg); err != nil {
								return err
							}
						}
					}
				}
			}
		}
		size, align, _ := cfg.Layout(syscallabi.ObjThread)
		reg.Delete(c.BasePtr)
		heap.Dealloc(uintptr(c.BasePtr)<<12, size, align)
		return nil

	default:
		panic("cspace: capability with unknown kind reached Free")
	}
}
