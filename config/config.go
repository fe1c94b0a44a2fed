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

// Package config holds the kernel object budgets the original implementation
// hardcodes as constants. Defaults match the original; a TOML file can
// override them for tests that want to exercise small CNodes or tight
// priority ranges without recompiling.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"golang.org/x/sys/unix"

	"github.com/MORK-core/mork-syscall/syscallabi"
)

// Kernel collects the tunables referenced throughout this module.
type Kernel struct {
	// MaxCNodeSize is the fixed slot count of every CapNode. Must be a power
	// of two, per spec.
	MaxCNodeSize int `toml:"max_cnode_size"`

	// MaxPrio is the highest valid thread priority (inclusive).
	MaxPrio int `toml:"max_prio"`

	// PageSizeNormal and PageSize2M are the two supported frame sizes.
	PageSizeNormal uintptr `toml:"page_size_normal"`
	PageSize2M     uintptr `toml:"page_size_2m"`
}

// Default returns the kernel tunables the original implementation hardcodes.
func Default() Kernel {
	return Kernel{
		MaxCNodeSize:   256,
		MaxPrio:        255,
		PageSizeNormal: 4096,
		PageSize2M:     2 * 1024 * 1024,
	}
}

// Load reads a Kernel config from a TOML file, starting from Default() so an
// override file only needs to specify the fields it changes.
func Load(path string) (Kernel, error) {
	k := Default()
	if _, err := toml.DecodeFile(path, &k); err != nil {
		return Kernel{}, fmt.Errorf("decode kernel config %s: %w", path, err)
	}
	if err := k.Validate(); err != nil {
		return Kernel{}, err
	}
	return k, nil
}

// Validate rejects configurations that would break the power-of-two slot
// invariant or produce a degenerate priority range.
func (k Kernel) Validate() error {
	if k.MaxCNodeSize <= 0 || k.MaxCNodeSize&(k.MaxCNodeSize-1) != 0 {
		return fmt.Errorf("max_cnode_size must be a power of two, got %d", k.MaxCNodeSize)
	}
	if k.MaxPrio <= 0 {
		return fmt.Errorf("max_prio must be positive, got %d", k.MaxPrio)
	}
	if k.PageSizeNormal == 0 || k.PageSize2M == 0 {
		return fmt.Errorf("page sizes must be nonzero")
	}
	return nil
}

// capSlotSize is the nominal on-heap footprint of one CapNode slot, used only
// for heap bookkeeping (the reference heap has no real memory layout to
// measure, unlike the Rust original's sizeof()).
const capSlotSize = 16

// nominalThreadSize and nominalPageTableSize are bookkeeping sizes for
// objects whose real Go struct layout isn't meaningful to a heap abstraction
// that never actually dereferences raw bytes.
const (
	nominalThreadSize     = 512
	nominalPageTableSize  = 4096
	nominalNotifySize     = 64
)

// Layout returns the (size, align) pair CNodeAlloc must request from the heap
// for the given object type, and its destructor must pass back to Dealloc.
// Mirrors the allocation table in spec.md §4.2.
func (k Kernel) Layout(obj syscallabi.ObjectType) (size, align uintptr, ok bool) {
	switch obj {
	case syscallabi.ObjCNode:
		return uintptr(k.MaxCNodeSize) * capSlotSize, k.PageSizeNormal, true
	case syscallabi.ObjThread:
		return nominalThreadSize, k.PageSizeNormal, true
	case syscallabi.ObjPageTable:
		return nominalPageTableSize, k.PageSizeNormal, true
	case syscallabi.ObjFrame4K:
		return k.PageSizeNormal, k.PageSizeNormal, true
	case syscallabi.ObjFrame2M:
		return k.PageSize2M, k.PageSize2M, true
	case syscallabi.ObjNotification:
		return nominalNotifySize, k.PageSizeNormal, true
	default:
		return 0, 0, false
	}
}

// FrameLayout returns the (size, align) pair for a frame capability's
// size-level encoding (Frame4K = 3, Frame2M = 2, per spec.md §3).
func (k Kernel) FrameLayout(sizeLevel uint8) (size, align uintptr, ok bool) {
	switch sizeLevel {
	case FrameLevel4K:
		return k.Layout(syscallabi.ObjFrame4K)
	case FrameLevel2M:
		return k.Layout(syscallabi.ObjFrame2M)
	default:
		return 0, 0, false
	}
}

// Frame size-level encoding, per spec.md §3: "Frame { ... size_level ∈
// {frame-4K = 3, frame-2M = 2} ... }".
const (
	FrameLevel2M uint8 = 2
	FrameLevel4K uint8 = 3
)

// CheckHostPageSize reports whether k.PageSizeNormal matches the host's
// actual page size. A root-task bootstrap running this kernel directly atop
// hardware (rather than the SimHeap used by this module's own tests) should
// call this before trusting PageSizeNormal-derived alignment decisions: a
// mismatched config value would silently misalign every frame this kernel
// hands out.
func CheckHostPageSize(k Kernel) error {
	host := unix.Getpagesize()
	if host > 0 && uintptr(host) != k.PageSizeNormal {
		return fmt.Errorf("page_size_normal %d does not match host page size %d", k.PageSizeNormal, host)
	}
	return nil
}
