package invariants_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MORK-core/mork-syscall/capability"
	"github.com/MORK-core/mork-syscall/cspace"
	"github.com/MORK-core/mork-syscall/invariants"
)

func TestCheckSingleOwnershipPassesForDistinctOwners(t *testing.T) {
	n := cspace.NewCapNode(16)
	n.Set(4, capability.NewFrameCap(10, 3))
	n.Set(5, capability.NewFrameCap(11, 3))

	assert.NoError(t, invariants.CheckSingleOwnership(n))
}

func TestCheckSingleOwnershipIgnoresDerivedCopies(t *testing.T) {
	n := cspace.NewCapNode(16)
	owning := capability.NewFrameCap(10, 3)
	n.Set(4, owning)
	n.Set(5, owning.Derive()) // non-owning, must not count as a second owner

	assert.NoError(t, invariants.CheckSingleOwnership(n))
}

func TestCheckSingleOwnershipDetectsDuplicateAcrossNodes(t *testing.T) {
	n1 := cspace.NewCapNode(16)
	n2 := cspace.NewCapNode(16)
	cap := capability.NewFrameCap(10, 3)
	n1.Set(4, cap)
	n2.Set(4, cap)

	err := invariants.CheckSingleOwnership(n1, n2)
	require.Error(t, err)
	var dup *invariants.DuplicateOwnerError
	require.ErrorAs(t, err, &dup)
	assert.EqualValues(t, 10, dup.BasePtr)
}

func TestCheckOccupancyPassesForFreshCapNode(t *testing.T) {
	n := cspace.NewCapNode(8)
	n.Set(2, capability.NewFrameCap(5, 3))
	assert.NoError(t, invariants.CheckOccupancy(n))
}
