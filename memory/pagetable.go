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

// Package memory implements the architecture-neutral multi-level page table
// the memory handler drives. The real PTE word format, TLB shoot-down and
// physical-memory access all belong to the HAL, entirely outside this
// module's scope (spec.md §1); this package only maintains the tree of
// present/absent mappings needed to decide whether a PageTableMap/PageMap
// invocation may proceed.
package memory

import (
	"github.com/MORK-core/mork-syscall/syscallabi"
)

const (
	entriesPerTable = 512
	numLevels       = 3 // levels 1 (top) .. 3 (4K leaf)
)

// entry is one slot of a PageTable: either a pointer to a child table or,
// once sizeLevel frames are mapped, a leaf translation.
type entry struct {
	present bool
	isLeaf  bool

	child *PageTable // set when !isLeaf

	leafPaddr uint64 // byte address, set when isLeaf
	rights    syscallabi.VMRights
}

// PageTable is one node of a thread's address space tree. The capability
// layer treats the root PageTable of a VSpace and every intermediate table
// within it identically — both are PageTable objects, distinguished only by
// their position in the tree.
type PageTable struct {
	entries [entriesPerTable]entry
}

// NewPageTable returns an empty page table, suitable either as a fresh
// intermediate table or as the root of a new VSpace.
func NewPageTable() *PageTable {
	return &PageTable{}
}

// PTError is a page-table-engine error; the memory handler converts it 1:1
// into a syscallabi.ResponseLabel, per spec.md §4.3.
type PTError struct {
	label syscallabi.ResponseLabel
	msg   string
}

func (e *PTError) Error() string                         { return e.msg }
func (e *PTError) ResponseLabel() syscallabi.ResponseLabel { return e.label }

var (
	errNoMapping  = &PTError{label: syscallabi.NoMappingError, msg: "memory: no mapping at that address"}
	errExists     = &PTError{label: syscallabi.MappingAlreadyExists, msg: "memory: mapping already exists"}
	errMisaligned = &PTError{label: syscallabi.InvalidParam, msg: "memory: vaddr/paddr not aligned to frame size"}
)

func shiftForLevel(level int) uint {
	return 12 + 9*uint(numLevels-level)
}

func indexForLevel(vaddr uint64, level int) int {
	return int((vaddr >> shiftForLevel(level)) & (entriesPerTable - 1))
}

func levelPageSize(level int) uint64 {
	return uint64(1) << shiftForLevel(level)
}

// MapPageTable walks from the root following already-present intermediate
// tables, and installs child — the PageTable a separate PageTable capability
// already designates — at the first missing level. paddr is that
// capability's own base_ptr<<12, recorded so UnmapPageTable can confirm it is
// unmapping the same capability it was asked to. MapPageTable returns the
// level (1..numLevels) at which child was planted.
func (pt *PageTable) MapPageTable(vaddr, paddr uint64, child *PageTable) (int, error) {
	cur := pt
	for level := 1; level <= numLevels; level++ {
		idx := indexForLevel(vaddr, level)
		e := &cur.entries[idx]
		if !e.present {
			e.present = true
			e.isLeaf = false
			e.child = child
			e.leafPaddr = paddr
			return level, nil
		}
		if e.isLeaf {
			return 0, errExists
		}
		cur = e.child
	}
	return 0, errExists
}

// UnmapPageTable removes the intermediate table installed at the given
// level for vaddr, provided its recorded physical address matches paddr.
func (pt *PageTable) UnmapPageTable(vaddr, paddr uint64, level int) error {
	if level < 1 || level > numLevels {
		return errNoMapping
	}
	cur := pt
	for l := 1; l < level; l++ {
		idx := indexForLevel(vaddr, l)
		e := &cur.entries[idx]
		if !e.present || e.isLeaf {
			return errNoMapping
		}
		cur = e.child
	}
	idx := indexForLevel(vaddr, level)
	e := &cur.entries[idx]
	if !e.present || e.isLeaf || e.leafPaddr != paddr {
		return errNoMapping
	}
	*e = entry{}
	return nil
}

// MapFrame installs a leaf translation for a sizeLevel frame (FrameLevel4K
// or FrameLevel2M) at vaddr, requiring every intermediate table above the
// target level to already be present (installed by a prior PageTableMap).
// vaddr and paddr must both be aligned to the frame's own size (2 MiB for
// FrameLevel2M, 4 KiB for FrameLevel4K, per spec.md §4.3); indexForLevel
// silently discards the low bits of a misaligned vaddr, so this must be
// checked up front rather than left to fall out of the tree walk.
func (pt *PageTable) MapFrame(vaddr, paddr uint64, sizeLevel int, x, w, r bool) error {
	targetLevel := sizeLevel
	if targetLevel < 2 || targetLevel > numLevels {
		return errNoMapping
	}

	mask := levelPageSize(targetLevel) - 1
	if vaddr&mask != 0 || paddr&mask != 0 {
		return errMisaligned
	}

	cur := pt
	for level := 1; level < targetLevel; level++ {
		idx := indexForLevel(vaddr, level)
		e := &cur.entries[idx]
		if !e.present || e.isLeaf {
			return errNoMapping
		}
		cur = e.child
	}

	idx := indexForLevel(vaddr, targetLevel)
	e := &cur.entries[idx]
	if e.present {
		return errExists
	}

	var rights syscallabi.VMRights
	if r {
		rights |= syscallabi.VMRead
	}
	if w {
		rights |= syscallabi.VMWrite
	}
	if x {
		rights |= syscallabi.VMExec
	}

	*e = entry{present: true, isLeaf: true, leafPaddr: paddr, rights: rights}
	return nil
}

// UnmapFrame finds whatever leaf translation covers vaddr — at any level,
// since the caller (the memory handler) only tracks vaddr, not the frame's
// size — and clears it.
func (pt *PageTable) UnmapFrame(vaddr uint64) error {
	cur := pt
	for level := 1; level <= numLevels; level++ {
		idx := indexForLevel(vaddr, level)
		e := &cur.entries[idx]
		if !e.present {
			return errNoMapping
		}
		if e.isLeaf {
			*e = entry{}
			return nil
		}
		cur = e.child
	}
	return errNoMapping
}

// VAToPA translates vaddr through the tree, returning the backing physical
// address if a leaf covers it.
func (pt *PageTable) VAToPA(vaddr uint64) (uint64, bool) {
	cur := pt
	for level := 1; level <= numLevels; level++ {
		idx := indexForLevel(vaddr, level)
		e := &cur.entries[idx]
		if !e.present {
			return 0, false
		}
		if e.isLeaf {
			offset := vaddr & (levelPageSize(level) - 1)
			return e.leafPaddr + offset, true
		}
		cur = e.child
	}
	return 0, false
}

// kernelWindow is the template of high-half entries every VSpace must share,
// installed once at boot by the root-task bootstrap (out of this module's
// scope) via SetKernelWindow.
var kernelWindow *PageTable

// SetKernelWindow records the kernel's shared high-half mapping template.
// Call once during boot; a nil template makes MapKernelWindow a no-op,
// which is the correct behavior for tests that never construct one.
func SetKernelWindow(pt *PageTable) {
	kernelWindow = pt
}

// MapKernelWindow shares the kernel's high-half mappings into pt, a newly
// created top-level VSpace, per spec.md §3.
func MapKernelWindow(pt *PageTable) error {
	if kernelWindow == nil {
		return nil
	}
	half := entriesPerTable / 2
	for i := half; i < entriesPerTable; i++ {
		pt.entries[i] = kernelWindow.entries[i]
	}
	return nil
}
