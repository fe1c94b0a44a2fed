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

package capability

// NewCNodeCap builds the owning capability a CNodeAlloc(CNode) installs.
func NewCNodeCap(basePtr uint64, radix uint8) Cap {
	return Cap{Kind: KindCNode, BasePtr: basePtr, Radix: radix, Owning: true}
}

// NewThreadCap builds the owning capability a CNodeAlloc(Thread) installs.
func NewThreadCap(basePtr uint64) Cap {
	return Cap{Kind: KindThread, BasePtr: basePtr, Owning: true}
}

// NewPageTableCap builds the owning, as-yet-unmapped capability a
// CNodeAlloc(PageTable) installs.
func NewPageTableCap(basePtr uint64) Cap {
	return Cap{Kind: KindPageTable, BasePtr: basePtr, Owning: true}
}

// NewFrameCap builds the owning, as-yet-unmapped capability a
// CNodeAlloc(Frame4K|Frame2M) installs.
func NewFrameCap(basePtr uint64, sizeLevel uint8) Cap {
	return Cap{Kind: KindFrame, BasePtr: basePtr, SizeLevel: sizeLevel, Owning: true}
}

// NewNotificationCap builds the owning capability a
// CNodeAlloc(Notification) installs. badge is 0 until CNodeMint assigns one
// (CNodeMint is outside this core's implemented label set but is part of the
// closed InvocationLabel enum; AllocObject/CNodeAlloc never sets a badge).
func NewNotificationCap(basePtr uint64) Cap {
	return Cap{Kind: KindNotification, BasePtr: basePtr, Owning: true}
}
