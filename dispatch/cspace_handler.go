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

package dispatch

import (
	"math/bits"

	"github.com/pkg/errors"

	"github.com/MORK-core/mork-syscall/capability"
	"github.com/MORK-core/mork-syscall/config"
	"github.com/MORK-core/mork-syscall/cspace"
	"github.com/MORK-core/mork-syscall/klog"
	"github.com/MORK-core/mork-syscall/memory"
	"github.com/MORK-core/mork-syscall/notification"
	"github.com/MORK-core/mork-syscall/syscallabi"
	"github.com/MORK-core/mork-syscall/task"
)

// handleCSpace implements the CNodeAlloc/CNodeDelete/CNodeCopy table of
// spec.md §4.2 against cn, which is either the target CNode capability's own
// table or (when forwarded from a Thread target) that thread's embedded
// CSpace.
func (ks *KernelState) handleCSpace(T *task.TCB, cn *cspace.CapNode, tag syscallabi.MessageInfo) (uint64, syscallabi.ResponseLabel) {
	label := tag.InvocationLabel()
	switch label {
	case syscallabi.CNodeAlloc:
		return ks.cnodeAlloc(cn, T.HALContext.MR(0))
	case syscallabi.CNodeDelete:
		return ks.cnodeDelete(cn, T.HALContext.MR(0))
	case syscallabi.CNodeCopy:
		return ks.cnodeCopy(cn, T.HALContext.MR(0), T.HALContext.MR(1), T.HALContext.MR(2))
	default:
		klog.Rejected("cspace", label, syscallabi.UnSupported, nil)
		return 0, syscallabi.UnSupported
	}
}

func (ks *KernelState) cnodeAlloc(cn *cspace.CapNode, objRaw uint64) (uint64, syscallabi.ResponseLabel) {
	objType, ok := syscallabi.ObjectTypeFromUint(objRaw)
	if !ok {
		klog.Rejected("cspace", syscallabi.CNodeAlloc, syscallabi.UnSupported, nil)
		return 0, syscallabi.UnSupported
	}

	idx, ok := cn.AllocFree(int(syscallabi.FirstFree))
	if !ok {
		klog.Rejected("cspace", syscallabi.CNodeAlloc, syscallabi.NotEnoughSpace, nil)
		return 0, syscallabi.NotEnoughSpace
	}

	size, align, ok := ks.Config.Layout(objType)
	if !ok {
		panic("cspace: CNodeAlloc reached with an unknown ObjectType")
	}
	ptr, ok := ks.Heap.AllocZeroed(size, align)
	if !ok {
		klog.Rejected("cspace", syscallabi.CNodeAlloc, syscallabi.NotEnoughSpace, nil)
		return 0, syscallabi.NotEnoughSpace
	}
	basePtr := uint64(ptr) >> 12

	var cap capability.Cap
	switch objType {
	case syscallabi.ObjCNode:
		cap = capability.NewCNodeCap(basePtr, radixOf(ks.Config))
		ks.Arena.Put(basePtr, cspace.NewCapNode(ks.Config.MaxCNodeSize))

	case syscallabi.ObjThread:
		cap = capability.NewThreadCap(basePtr)
		ks.Arena.Put(basePtr, task.New(ks.NewContext(), ks.Config.MaxCNodeSize, ks.Config.MaxPrio))

	case syscallabi.ObjPageTable:
		cap = capability.NewPageTableCap(basePtr)
		ks.Arena.Put(basePtr, memory.NewPageTable())

	case syscallabi.ObjFrame4K:
		cap = capability.NewFrameCap(basePtr, config.FrameLevel4K)
		ks.Arena.Put(basePtr, struct{}{})

	case syscallabi.ObjFrame2M:
		cap = capability.NewFrameCap(basePtr, config.FrameLevel2M)
		ks.Arena.Put(basePtr, struct{}{})

	case syscallabi.ObjNotification:
		cap = capability.NewNotificationCap(basePtr)
		ks.Arena.Put(basePtr, notification.New())

	default:
		panic("cspace: CNodeAlloc reached with an unknown ObjectType")
	}

	cn.Set(idx, cap)
	return uint64(idx), syscallabi.Success
}

// radixOf derives the power-of-two exponent CapNode.Radix records, from the
// configured slot count.
func radixOf(cfg config.Kernel) uint8 {
	return uint8(bits.TrailingZeros(uint(cfg.MaxCNodeSize)))
}

func (ks *KernelState) cnodeDelete(cn *cspace.CapNode, idxRaw uint64) (uint64, syscallabi.ResponseLabel) {
	idx := int(idxRaw)
	err := cn.FreeSlot(idx, ks.Heap, ks.Arena, ks.Config)
	switch {
	case err == nil:
		return idxRaw, syscallabi.Success
	case errors.Is(err, cspace.ErrOutOfRange):
		klog.Rejected("cspace", syscallabi.CNodeDelete, syscallabi.OutOfRange, nil)
		return 0, syscallabi.OutOfRange
	case errors.Is(err, cspace.ErrNotificationBlocked):
		klog.Rejected("cspace", syscallabi.CNodeDelete, syscallabi.InvalidParam, nil)
		return 0, syscallabi.InvalidParam
	default:
		panic(err)
	}
}

func (ks *KernelState) cnodeCopy(cn *cspace.CapNode, srcRaw, destTCBRaw, destRaw uint64) (uint64, syscallabi.ResponseLabel) {
	src, ok := cn.Get(int(srcRaw))
	if !ok {
		klog.Rejected("cspace", syscallabi.CNodeCopy, syscallabi.OutOfRange, nil)
		return 0, syscallabi.OutOfRange
	}

	destTCBCap, ok := cn.Get(int(destTCBRaw))
	if !ok {
		klog.Rejected("cspace", syscallabi.CNodeCopy, syscallabi.OutOfRange, nil)
		return 0, syscallabi.OutOfRange
	}
	if destTCBCap.Kind != capability.KindThread {
		klog.Rejected("cspace", syscallabi.CNodeCopy, syscallabi.ErrCapType, nil)
		return 0, syscallabi.ErrCapType
	}
	destT := ks.resolveThread(destTCBCap)

	destIdx := int(destRaw)
	if _, ok := destT.CSpace.Get(destIdx); !ok {
		klog.Rejected("cspace", syscallabi.CNodeCopy, syscallabi.OutOfRange, nil)
		return 0, syscallabi.OutOfRange
	}
	if destT.CSpace.IsUsed(destIdx) {
		freeIdx, ok := destT.CSpace.AllocFree(int(syscallabi.FirstFree))
		if !ok {
			klog.Rejected("cspace", syscallabi.CNodeCopy, syscallabi.NotEnoughSpace, nil)
			return 0, syscallabi.NotEnoughSpace
		}
		destIdx = freeIdx
	}

	destT.CSpace.Set(destIdx, src.Derive())
	return uint64(destIdx), syscallabi.Success
}
