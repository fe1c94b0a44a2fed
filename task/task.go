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

// Package task implements TCB, the kernel's per-thread state, and the
// thread-state machine the dispatcher and task handler drive.
package task

import (
	"github.com/MORK-core/mork-syscall/cspace"
	"github.com/MORK-core/mork-syscall/hal"
)

// State is a thread's scheduling state, per spec.md §3.
type State int

const (
	Inactive State = iota
	Restart
	Running
	BlockedOnReceive
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "Inactive"
	case Restart:
		return "Restart"
	case Running:
		return "Running"
	case BlockedOnReceive:
		return "BlockedOnReceive"
	}
	return "unknown"
}

// TCB is the kernel object backing a Thread capability.
type TCB struct {
	HALContext hal.Context

	State State
	Prio  int

	// IsQueued reports whether this TCB currently sits on the scheduler's
	// run queue. The scheduler sets and clears it as it enqueues and
	// dequeues; the dispatcher clears it when it leaves the caller parked.
	IsQueued bool

	// CSpace is the capability table this thread owns. A Thread capability
	// created by CNodeAlloc immediately builds one; TCBSetSpace only ever
	// replaces the VSpace capability within it, never the CSpace itself.
	CSpace *cspace.CapNode

	// IPCBufferVAddr is the virtual address, in this thread's own address
	// space, of its IPC buffer page. Unset until TCBSetIPCBuffer succeeds.
	IPCBufferVAddr *uint64

	// Notification wait links: when State == BlockedOnReceive, this TCB sits
	// in exactly one Notification's waiter FIFO, threaded through these
	// pointers rather than a separate slice, mirroring the original's
	// intrusive-list TCB layout.
	waitNext *TCB
	waitPrev *TCB
}

// New builds a fresh user thread: Restart state, the priority
// CNodeAlloc(Thread) assigns per spec.md §4.2, and its own empty CSpace.
func New(halCtx hal.Context, cspaceSize int, maxPrio int) *TCB {
	return &TCB{
		HALContext: halCtx,
		State:      Restart,
		Prio:       maxPrio - 1,
		CSpace:     cspace.NewCapNode(cspaceSize),
	}
}

// OwnedCSpace satisfies cspace.Owner, letting cspace.Free recurse into a
// freed Thread capability's own table without this package's cspace
// dependency becoming circular.
func (t *TCB) OwnedCSpace() *cspace.CapNode {
	return t.CSpace
}

// WaitNext and WaitPrev expose the intrusive notification-queue links to the
// notification package, which imports task and threads *TCB values through
// its FIFO with these accessors.
func (t *TCB) WaitNext() *TCB     { return t.waitNext }
func (t *TCB) SetWaitNext(n *TCB) { t.waitNext = n }
func (t *TCB) WaitPrev() *TCB     { return t.waitPrev }
func (t *TCB) SetWaitPrev(n *TCB) { t.waitPrev = n }
