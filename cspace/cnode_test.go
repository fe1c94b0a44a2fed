package cspace_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MORK-core/mork-syscall/arena"
	"github.com/MORK-core/mork-syscall/capability"
	"github.com/MORK-core/mork-syscall/config"
	"github.com/MORK-core/mork-syscall/cspace"
	"github.com/MORK-core/mork-syscall/heapalloc"
	"github.com/MORK-core/mork-syscall/syscallabi"
)

func TestAllocFreeSkipsReservedSlots(t *testing.T) {
	cn := cspace.NewCapNode(8)
	idx, ok := cn.AllocFree(int(syscallabi.FirstFree))
	require.True(t, ok)
	assert.Equal(t, int(syscallabi.FirstFree), idx)
}

func TestAllocFreeFullReportsFalse(t *testing.T) {
	cn := cspace.NewCapNode(2)
	cn.Set(0, capability.NewThreadCap(1))
	cn.Set(1, capability.NewThreadCap(2))
	_, ok := cn.AllocFree(0)
	assert.False(t, ok)
}

func TestFreeFrameReturnsHeapBlock(t *testing.T) {
	heap := heapalloc.NewSimHeap(0)
	reg := arena.New()
	cfg := config.Default()

	ptr, ok := heap.AllocZeroed(cfg.PageSizeNormal, cfg.PageSizeNormal)
	require.True(t, ok)
	basePtr := uint64(ptr) >> 12
	c := capability.NewFrameCap(basePtr, config.FrameLevel4K)
	reg.Put(basePtr, struct{}{})

	require.NoError(t, cspace.Free(c, heap, reg, cfg))
	_, stillThere := reg.Get(basePtr)
	assert.False(t, stillThere)

	// The freed block is reusable: a same-size allocation returns it.
	ptr2, ok := heap.AllocZeroed(cfg.PageSizeNormal, cfg.PageSizeNormal)
	require.True(t, ok)
	assert.Equal(t, ptr, ptr2)
}

func TestFreeDerivedCapabilityIsNoOp(t *testing.T) {
	heap := heapalloc.NewSimHeap(0)
	reg := arena.New()
	cfg := config.Default()

	ptr, _ := heap.AllocZeroed(cfg.PageSizeNormal, cfg.PageSizeNormal)
	basePtr := uint64(ptr) >> 12
	owning := capability.NewFrameCap(basePtr, config.FrameLevel4K)
	reg.Put(basePtr, struct{}{})
	derived := owning.Derive()

	require.NoError(t, cspace.Free(derived, heap, reg, cfg))
	_, stillThere := reg.Get(basePtr)
	assert.True(t, stillThere, "freeing a derived copy must not touch the shared object")
}

func TestFreeCNodeDirectlyPanics(t *testing.T) {
	heap := heapalloc.NewSimHeap(0)
	reg := arena.New()
	cfg := config.Default()
	c := capability.NewCNodeCap(5, 8)

	assert.Panics(t, func() {
		_ = cspace.Free(c, heap, reg, cfg)
	})
}

type fakeBlocked struct{ waiters bool }

func (f fakeBlocked) HasWaiters() bool { return f.waiters }

func TestFreeNotificationWithWaitersIsRefused(t *testing.T) {
	heap := heapalloc.NewSimHeap(0)
	reg := arena.New()
	cfg := config.Default()

	ptr, _ := heap.AllocZeroed(64, cfg.PageSizeNormal)
	basePtr := uint64(ptr) >> 12
	c := capability.NewNotificationCap(basePtr)
	reg.Put(basePtr, fakeBlocked{waiters: true})

	err := cspace.Free(c, heap, reg, cfg)
	assert.ErrorIs(t, err, cspace.ErrNotificationBlocked)
	_, stillThere := reg.Get(basePtr)
	assert.True(t, stillThere)
}

type fakeOwner struct{ cs *cspace.CapNode }

func (f fakeOwner) OwnedCSpace() *cspace.CapNode { return f.cs }

func TestFreeThreadRecursivelyFreesOwnedCSpace(t *testing.T) {
	heap := heapalloc.NewSimHeap(0)
	reg := arena.New()
	cfg := config.Default()

	// A frame the thread's own CSpace owns, sitting past CapInitVSpace.
	framePtr, _ := heap.AllocZeroed(cfg.PageSizeNormal, cfg.PageSizeNormal)
	frameBase := uint64(framePtr) >> 12
	reg.Put(frameBase, struct{}{})

	threadCSpace := cspace.NewCapNode(cfg.MaxCNodeSize)
	idx, _ := threadCSpace.AllocFree(int(syscallabi.FirstFree))
	threadCSpace.Set(idx, capability.NewFrameCap(frameBase, config.FrameLevel4K))

	threadPtr, _ := heap.AllocZeroed(512, cfg.PageSizeNormal)
	threadBase := uint64(threadPtr) >> 12
	reg.Put(threadBase, fakeOwner{cs: threadCSpace})

	threadCap := capability.NewThreadCap(threadBase)
	require.NoError(t, cspace.Free(threadCap, heap, reg, cfg))

	_, frameStillThere := reg.Get(frameBase)
	assert.False(t, frameStillThere)
	_, threadStillThere := reg.Get(threadBase)
	assert.False(t, threadStillThere)
}
