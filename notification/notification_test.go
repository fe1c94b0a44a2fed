package notification_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MORK-core/mork-syscall/hal"
	"github.com/MORK-core/mork-syscall/notification"
	"github.com/MORK-core/mork-syscall/task"
)

func TestSignalWhileIdleLatchesWord(t *testing.T) {
	n := notification.New()
	woken := n.Signal(0x4)
	assert.Nil(t, woken)
	assert.False(t, n.HasWaiters())
}

func TestReceiveDrainsSignaledWord(t *testing.T) {
	n := notification.New()
	n.Signal(0x4)
	n.Signal(0x2)

	current := &task.TCB{State: task.Running}
	badge, blocked := n.Receive(current)

	assert.False(t, blocked)
	assert.Equal(t, uint64(0x6), badge)
	assert.Equal(t, task.Running, current.State, "a signaled receive never changes current's state")
}

func TestReceiveWhileIdleBlocks(t *testing.T) {
	n := notification.New()
	current := &task.TCB{State: task.Restart}

	_, blocked := n.Receive(current)

	assert.True(t, blocked)
	assert.Equal(t, task.BlockedOnReceive, current.State)
	assert.True(t, n.HasWaiters())
}

func TestSignalWakesWaiterFIFO(t *testing.T) {
	n := notification.New()
	w1 := &task.TCB{HALContext: hal.NewSimContext()}
	w2 := &task.TCB{HALContext: hal.NewSimContext()}
	w3 := &task.TCB{HALContext: hal.NewSimContext()}

	_, blocked1 := n.Receive(w1)
	_, blocked2 := n.Receive(w2)
	_, blocked3 := n.Receive(w3)
	require.True(t, blocked1 && blocked2 && blocked3)

	first := n.Signal(0x8)
	require.NotNil(t, first)
	assert.Same(t, w1, first)
	assert.Equal(t, task.Restart, w1.State)

	second := n.Signal(0x9)
	require.NotNil(t, second)
	assert.Same(t, w2, second)

	assert.True(t, n.HasWaiters(), "w3 is still waiting")
}
