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

// Package sched declares the scheduler collaborator the dispatcher drives,
// and ships a reference priority run queue. Picking the next thread to run
// and any cross-hart coordination is the scheduler's own business, entirely
// outside this module's scope (spec.md §1) — the dispatcher only ever
// enqueues and dequeues.
package sched

import "github.com/MORK-core/mork-syscall/task"

// Scheduler is the run-queue collaborator HandleSyscall uses to re-admit a
// thread left in Restart state and to admit a thread another thread woke.
// EnqueueFront is used for a thread re-admitted after a syscall it issued
// itself; EnqueueBack for a thread woken by another thread's signal or
// resumed by TCBResume.
type Scheduler interface {
	EnqueueFront(t *task.TCB)
	EnqueueBack(t *task.TCB)
	Dequeue() (*task.TCB, bool)
}

// PrioQueue is a reference Scheduler: one FIFO run queue per priority level,
// highest priority drained first. It does nothing with hart affinity or
// preemption — both are the real scheduler's job.
type PrioQueue struct {
	levels [][]*task.TCB
}

// NewPrioQueue returns an empty queue with levels priorities, 0..levels-1.
func NewPrioQueue(levels int) *PrioQueue {
	return &PrioQueue{levels: make([][]*task.TCB, levels)}
}

func (q *PrioQueue) clampLevel(prio int) int {
	if prio < 0 {
		return 0
	}
	if prio >= len(q.levels) {
		return len(q.levels) - 1
	}
	return prio
}

// EnqueueFront places t at the head of its priority level's queue.
func (q *PrioQueue) EnqueueFront(t *task.TCB) {
	if t.IsQueued {
		return
	}
	lvl := q.clampLevel(t.Prio)
	q.levels[lvl] = append([]*task.TCB{t}, q.levels[lvl]...)
	t.IsQueued = true
}

// EnqueueBack places t at the tail of its priority level's queue.
func (q *PrioQueue) EnqueueBack(t *task.TCB) {
	if t.IsQueued {
		return
	}
	lvl := q.clampLevel(t.Prio)
	q.levels[lvl] = append(q.levels[lvl], t)
	t.IsQueued = true
}

// Dequeue pops the head of the highest non-empty priority level.
func (q *PrioQueue) Dequeue() (*task.TCB, bool) {
	for lvl := len(q.levels) - 1; lvl >= 0; lvl-- {
		if len(q.levels[lvl]) == 0 {
			continue
		}
		t := q.levels[lvl][0]
		q.levels[lvl] = q.levels[lvl][1:]
		t.IsQueued = false
		return t, true
	}
	return nil, false
}
