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

// Package invariants checks the singly-owned-object and occupancy
// properties spec.md §8 states as quantified invariants, across a set of
// CapNodes an operator or a test wants audited together.
package invariants

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/MORK-core/mork-syscall/capability"
	"github.com/MORK-core/mork-syscall/cspace"
)

// DuplicateOwnerError reports two owning capabilities pointing at the same
// base_ptr, a direct violation of singly-owned-object.
type DuplicateOwnerError struct {
	BasePtr uint64
}

func (e *DuplicateOwnerError) Error() string {
	return fmt.Sprintf("invariants: base_ptr %d owned by more than one capability", e.BasePtr)
}

// CheckSingleOwnership walks every slot of every given CapNode and fails if
// two distinct owning capabilities share a base_ptr.
func CheckSingleOwnership(nodes ...*cspace.CapNode) error {
	seen := mapset.NewThreadUnsafeSet[uint64]()
	for _, n := range nodes {
		for i := 0; i < n.Size(); i++ {
			c, _ := n.Get(i)
			if c.Kind == capability.KindNull || !c.Owning {
				continue
			}
			if seen.Contains(c.BasePtr) {
				return &DuplicateOwnerError{BasePtr: c.BasePtr}
			}
			seen.Add(c.BasePtr)
		}
	}
	return nil
}

// CheckOccupancy verifies "is_used(i) <=> slot[i].type != Null" for every
// slot of n — trivially true given CapNode's own implementation, but kept as
// an explicit, independently-stated check a test can run against any
// CapNode it builds by hand.
func CheckOccupancy(n *cspace.CapNode) error {
	for i := 0; i < n.Size(); i++ {
		c, _ := n.Get(i)
		used := n.IsUsed(i)
		isNull := c.Kind == capability.KindNull
		if used == isNull {
			return fmt.Errorf("invariants: slot %d occupancy mismatch (is_used=%v, is_null=%v)", i, used, isNull)
		}
	}
	return nil
}
