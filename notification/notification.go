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

// Package notification implements the Notification kernel object: a
// signal word together with a FIFO of threads blocked in receive(), per
// spec.md §4.5.
package notification

import "github.com/MORK-core/mork-syscall/task"

// state is the Notification's own Idle/Signaled/Waiting classification. It
// is derived, not stored: Idle means no signal word and no waiters,
// Signaled means a pending signal word and no waiters, Waiting means
// threads are parked and the signal word is necessarily zero.
type state int

const (
	idle state = iota
	signaled
	waiting
)

// Notification is the kernel object backing a Notification capability.
type Notification struct {
	word    uint64
	waiters *waiterQueue
}

// New returns an Idle notification.
func New() *Notification {
	return &Notification{waiters: newWaiterQueue()}
}

func (n *Notification) classify() state {
	switch {
	case n.waiters.len > 0:
		return waiting
	case n.word != 0:
		return signaled
	default:
		return idle
	}
}

// HasWaiters satisfies cspace.Blocked: cspace.Free refuses to tear down a
// Notification capability while this is true.
func (n *Notification) HasWaiters() bool {
	return n.waiters.len > 0
}

// Signal ORs badge into the signal word. If a thread is already waiting, it
// is popped off the front of the queue and handed the badge directly — the
// signal word stays zero, matching the rule that Waiting and a nonzero word
// are mutually exclusive. Signal returns the woken thread, or nil if the
// signal was only latched into the word.
func (n *Notification) Signal(badge uint64) *task.TCB {
	if n.waiters.len > 0 {
		woken := n.waiters.popFront()
		woken.HALContext.SetMR(0, badge)
		woken.State = task.Restart
		return woken
	}
	n.word |= badge
	return nil
}

// Receive services a SysRecv on this notification from current. If the
// signal word is already nonzero it is drained and returned immediately
// (signaled -> idle). Otherwise current is parked on the waiter queue and
// Receive reports that the caller blocked; the dispatcher must not re-admit
// current to the run queue when blocked is true.
func (n *Notification) Receive(current *task.TCB) (badge uint64, blocked bool) {
	if n.word != 0 {
		badge = n.word
		n.word = 0
		return badge, false
	}
	current.State = task.BlockedOnReceive
	n.waiters.pushBack(current)
	return 0, true
}

// waiterQueue is an intrusive FIFO threaded through task.TCB's own
// WaitNext/WaitPrev links, avoiding a separate slice allocation per
// notification.
type waiterQueue struct {
	head, tail *task.TCB
	len        int
}

func newWaiterQueue() *waiterQueue { return &waiterQueue{} }

func (q *waiterQueue) pushBack(t *task.TCB) {
	t.SetWaitNext(nil)
	t.SetWaitPrev(q.tail)
	if q.tail != nil {
		q.tail.SetWaitNext(t)
	} else {
		q.head = t
	}
	q.tail = t
	q.len++
}

func (q *waiterQueue) popFront() *task.TCB {
	t := q.head
	q.head = t.WaitNext()
	if q.head != nil {
		q.head.SetWaitPrev(nil)
	} else {
		q.tail = nil
	}
	t.SetWaitNext(nil)
	t.SetWaitPrev(nil)
	q.len--
	return t
}
