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

// Package capability defines Cap, the tagged capability value stored in
// every CSpace slot. The original implementation packs a 128-bit bitfield
// union; a safe Go reimplementation can't alias memory that way; instead Cap
// is a small tagged struct that only the fields relevant to its Kind are
// meaningful in. Accessors that assume the wrong Kind panic — the boundary
// checks belong to the handlers that decode a CSpace slot against the
// invocation they're serving, not to Cap itself.
package capability

// Kind discriminates the variant a Cap holds. The zero value, KindNull,
// matches the zero value of Cap, so a freshly zeroed CapNode slot is
// correctly "empty" without further initialization.
type Kind uint8

const (
	KindNull Kind = iota
	KindCNode
	KindThread
	KindPageTable
	KindFrame
	KindNotification
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindCNode:
		return "CNode"
	case KindThread:
		return "Thread"
	case KindPageTable:
		return "PageTable"
	case KindFrame:
		return "Frame"
	case KindNotification:
		return "Notification"
	}
	return "unknown"
}

// Cap is the capability stored in one CSpace slot. base_ptr is a heap frame
// number (not a byte address); reconstruct the byte address with
// BasePtr << 12. Fields are only meaningful for the Kinds noted in their
// comment.
type Cap struct {
	Kind Kind

	// BasePtr is set for every non-Null kind; it is the key under which the
	// live object backing this capability is registered in the arena.
	BasePtr uint64

	// Radix is the CNode's slot-count exponent (2^Radix slots). CNode only.
	Radix uint8

	// SizeLevel is the frame size encoding: FrameLevel4K (3) or
	// FrameLevel2M (2), per spec.md §3. Frame only.
	SizeLevel uint8

	// Level is the page-table level at which this PageTable capability is
	// currently mapped. PageTable only, meaningful iff IsMapped.
	Level uint8

	// IsMapped reports whether this capability currently has a live PTE
	// pointing at it. PageTable and Frame only.
	IsMapped bool

	// MappedAddr is the VPN (virtual address >> 12) this capability is
	// mapped at. PageTable and Frame only, meaningful iff IsMapped.
	MappedAddr uint64

	// Badge is copied in at derivation time and identifies the sender on a
	// notification signal. Notification only.
	Badge uint64

	// Owning marks the single slot that exclusively owns the underlying
	// arena object. Only an owning capability's destructor actually
	// deallocates; a derived (non-owning) capability's destructor is a
	// no-op, per spec.md §3's "derived copies never carry ownership" rule.
	// This field has no equivalent in the original's raw-pointer
	// representation, where ownership was tracked by convention alone — Go's
	// memory safety requires it be explicit.
	Owning bool
}

// Null is the zero Cap, matching an empty CSpace slot.
var Null = Cap{}

// Type reports the capability's Kind.
func (c Cap) Type() Kind {
	return c.Kind
}

// Derive produces a non-owning copy of c with mapping state cleared, per
// spec.md §3: "Cap::derive() produces a copy with is_mapped := 0 and is
// non-owning." The caller is responsible for never freeing a derived
// capability as though it owned the underlying object (see cspace.Free).
func (c Cap) Derive() Cap {
	d := c
	d.IsMapped = false
	d.MappedAddr = 0
	d.Owning = false
	if c.Kind == KindPageTable {
		d.Level = 0
	}
	return d
}
