package sched_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MORK-core/mork-syscall/hal"
	"github.com/MORK-core/mork-syscall/sched"
	"github.com/MORK-core/mork-syscall/task"
)

func TestDequeueDrainsHighestPriorityFirst(t *testing.T) {
	q := sched.NewPrioQueue(4)
	low := newTCBAtPrio(t, q, 1)
	high := newTCBAtPrio(t, q, 3)

	q.EnqueueBack(low)
	q.EnqueueBack(high)

	got, ok := q.Dequeue()
	require.True(t, ok)
	assert.Same(t, high, got)

	got, ok = q.Dequeue()
	require.True(t, ok)
	assert.Same(t, low, got)
}

func TestEnqueueBackPreservesFIFOWithinLevel(t *testing.T) {
	q := sched.NewPrioQueue(4)
	a := newTCBAtPrio(t, q, 2)
	b := newTCBAtPrio(t, q, 2)

	q.EnqueueBack(a)
	q.EnqueueBack(b)

	got, _ := q.Dequeue()
	assert.Same(t, a, got)
	got, _ = q.Dequeue()
	assert.Same(t, b, got)
}

func TestEnqueueFrontJumpsTheLine(t *testing.T) {
	q := sched.NewPrioQueue(4)
	a := newTCBAtPrio(t, q, 2)
	b := newTCBAtPrio(t, q, 2)

	q.EnqueueBack(a)
	q.EnqueueFront(b)

	got, _ := q.Dequeue()
	assert.Same(t, b, got)
}

func TestEnqueueIsNoOpWhenAlreadyQueued(t *testing.T) {
	q := sched.NewPrioQueue(4)
	a := newTCBAtPrio(t, q, 2)

	q.EnqueueBack(a)
	q.EnqueueBack(a) // second enqueue of the same TCB must not duplicate it

	_, ok := q.Dequeue()
	require.True(t, ok)
	_, ok = q.Dequeue()
	assert.False(t, ok, "a TCB enqueued twice must only be dequeued once")
}

func TestDequeueEmptyReportsFalse(t *testing.T) {
	q := sched.NewPrioQueue(4)
	_, ok := q.Dequeue()
	assert.False(t, ok)
}

func TestOutOfRangePriorityClamps(t *testing.T) {
	q := sched.NewPrioQueue(4)
	t1 := task.New(hal.NewSimContext(), 16, 1000)
	t1.Prio = 1000 // above the queue's 4 levels

	q.EnqueueBack(t1)
	got, ok := q.Dequeue()
	require.True(t, ok)
	assert.Same(t, t1, got)
}

func newTCBAtPrio(t *testing.T, q *sched.PrioQueue, prio int) *task.TCB {
	t.Helper()
	tcb := task.New(hal.NewSimContext(), 16, 256)
	tcb.Prio = prio
	return tcb
}
