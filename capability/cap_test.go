package capability_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MORK-core/mork-syscall/capability"
)

func TestDeriveClearsMappingAndOwnership(t *testing.T) {
	owning := capability.NewPageTableCap(7)
	owning.IsMapped = true
	owning.MappedAddr = 0x1234
	owning.Level = 2

	derived := owning.Derive()

	assert.False(t, derived.Owning)
	assert.False(t, derived.IsMapped)
	assert.Zero(t, derived.MappedAddr)
	assert.Zero(t, derived.Level)
	assert.Equal(t, owning.BasePtr, derived.BasePtr)
	assert.Equal(t, owning.Kind, derived.Kind)

	// The source capability itself is untouched by deriving a copy from it.
	assert.True(t, owning.Owning)
	assert.True(t, owning.IsMapped)
}

func TestDeriveFramePreservesSizeLevel(t *testing.T) {
	frame := capability.NewFrameCap(3, 3)
	frame.IsMapped = true
	frame.MappedAddr = 0x9000

	derived := frame.Derive()

	assert.Equal(t, frame.SizeLevel, derived.SizeLevel)
	assert.False(t, derived.IsMapped)
	assert.Zero(t, derived.MappedAddr)
}

func TestNullCapIsZeroValue(t *testing.T) {
	assert.Equal(t, capability.Cap{}, capability.Null)
	assert.Equal(t, capability.KindNull, capability.Null.Type())
}
