package memory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MORK-core/mork-syscall/memory"
)

func TestMapFrameRequiresIntermediateTable(t *testing.T) {
	pt := memory.NewPageTable()
	err := pt.MapFrame(0x40000000, 0x1000, 3, false, true, true)
	assert.Error(t, err, "mapping a 4K frame with no intermediate table installed must fail")
}

func TestMapFrameThenDoubleMapRejected(t *testing.T) {
	pt := memory.NewPageTable()
	_, err := pt.MapPageTable(0x40000000, 0x2000, memory.NewPageTable())
	require.NoError(t, err)
	_, err = pt.MapPageTable(0x40000000, 0x3000, memory.NewPageTable())
	require.NoError(t, err)

	require.NoError(t, pt.MapFrame(0x40000000, 0x1000, 3, false, true, true))

	err = pt.MapFrame(0x40000000, 0x5000, 3, false, true, true)
	assert.Error(t, err, "mapping the same vaddr twice must be rejected")
}

func TestVAToPAAfterMapFrame(t *testing.T) {
	pt := memory.NewPageTable()
	_, err := pt.MapPageTable(0x40000000, 0x2000, memory.NewPageTable())
	require.NoError(t, err)
	_, err = pt.MapPageTable(0x40000000, 0x3000, memory.NewPageTable())
	require.NoError(t, err)
	require.NoError(t, pt.MapFrame(0x40000000, 0x80000000, 3, false, true, true))

	paddr, ok := pt.VAToPA(0x40000010)
	require.True(t, ok)
	assert.Equal(t, uint64(0x80000010), paddr)
}

func TestUnmapFrameThenVAToPAFails(t *testing.T) {
	pt := memory.NewPageTable()
	pt.MapPageTable(0x40000000, 0x2000, memory.NewPageTable())
	pt.MapPageTable(0x40000000, 0x3000, memory.NewPageTable())
	require.NoError(t, pt.MapFrame(0x40000000, 0x80000000, 3, false, true, true))

	require.NoError(t, pt.UnmapFrame(0x40000000))
	_, ok := pt.VAToPA(0x40000000)
	assert.False(t, ok)
}

func TestMapFrameRejectsMisalignedVaddr(t *testing.T) {
	pt := memory.NewPageTable()
	pt.MapPageTable(0x40000000, 0x2000, memory.NewPageTable())
	pt.MapPageTable(0x40000000, 0x3000, memory.NewPageTable())

	err := pt.MapFrame(0x40000001, 0x80000000, 3, false, true, true)
	assert.Error(t, err, "a vaddr not aligned to the 4K frame size must be rejected")
}

func TestMapFrameRejectsMisalignedPaddr(t *testing.T) {
	pt := memory.NewPageTable()
	pt.MapPageTable(0x40000000, 0x2000, memory.NewPageTable())
	pt.MapPageTable(0x40000000, 0x3000, memory.NewPageTable())

	err := pt.MapFrame(0x40000000, 0x80000001, 3, false, true, true)
	assert.Error(t, err, "a paddr not aligned to the 4K frame size must be rejected")
}

func TestUnmapFrameUnknownAddrErrors(t *testing.T) {
	pt := memory.NewPageTable()
	err := pt.UnmapFrame(0x1000)
	assert.Error(t, err)
}

func TestMapKernelWindowSharesHighHalf(t *testing.T) {
	tmpl := memory.NewPageTable()
	tmpl.MapPageTable(0xFFFFFFFF80000000, 0x9000, memory.NewPageTable())
	memory.SetKernelWindow(tmpl)
	defer memory.SetKernelWindow(nil)

	vspace := memory.NewPageTable()
	require.NoError(t, memory.MapKernelWindow(vspace))

	// The high-half slot is now occupied by the shared template entry, so
	// mapping an intermediate table at the same vaddr must fail.
	_, err := vspace.MapPageTable(0xFFFFFFFF80000000, 0xA000, memory.NewPageTable())
	assert.Error(t, err)
}
