package debugfs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MORK-core/mork-syscall/arena"
	"github.com/MORK-core/mork-syscall/capability"
	"github.com/MORK-core/mork-syscall/cspace"
	"github.com/MORK-core/mork-syscall/debugfs"
)

func TestSnapshotArenaWritesOneFilePerObject(t *testing.T) {
	reg := arena.New()
	reg.Put(5, cspace.NewCapNode(16))

	d := debugfs.New()
	require.NoError(t, d.SnapshotArena(reg, []uint64{5}))

	content, err := d.ReadFile("/mork/arena/5")
	require.NoError(t, err)
	assert.Contains(t, content, "CapNode")
}

func TestSnapshotArenaSkipsMissingEntries(t *testing.T) {
	reg := arena.New()
	d := debugfs.New()

	require.NoError(t, d.SnapshotArena(reg, []uint64{999}))
	_, err := d.ReadFile("/mork/arena/999")
	assert.Error(t, err, "no snapshot file should exist for a base_ptr with no live object")
}

func TestSnapshotCSpaceReportsOccupancyPerSlot(t *testing.T) {
	n := cspace.NewCapNode(4)
	n.Set(1, capability.NewFrameCap(10, 3))

	d := debugfs.New()
	require.NoError(t, d.SnapshotCSpace("root", n))

	content, err := d.ReadFile("/mork/cspace/root/occupancy")
	require.NoError(t, err)
	assert.Equal(t, "free\nused\nfree\nfree\n", content)
}

func TestReadFileMissingPathErrors(t *testing.T) {
	d := debugfs.New()
	_, err := d.ReadFile("/mork/nope")
	assert.Error(t, err)
}
