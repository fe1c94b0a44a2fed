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
	"github.com/MORK-core/mork-syscall/capability"
	"github.com/MORK-core/mork-syscall/hal"
	"github.com/MORK-core/mork-syscall/klog"
	"github.com/MORK-core/mork-syscall/memory"
	"github.com/MORK-core/mork-syscall/syscallabi"
	"github.com/MORK-core/mork-syscall/task"
)

const pageMask = 4096 - 1

// handleTask implements the TCB-handler table of spec.md §4.4. T is the
// caller, destT the thread the target capability designates (possibly T
// itself).
func (ks *KernelState) handleTask(T, destT *task.TCB, tag syscallabi.MessageInfo) (uint64, syscallabi.ResponseLabel) {
	label := tag.InvocationLabel()
	switch label {
	case syscallabi.TCBSuspend:
		destT.State = task.Inactive
		return 0, syscallabi.Success

	case syscallabi.TCBResume:
		if !destT.IsQueued {
			destT.State = task.Restart
			if destT != T {
				ks.Scheduler.EnqueueBack(destT)
			}
		}
		return 0, syscallabi.Success

	case syscallabi.TCBSetIPCBuffer:
		return ks.tcbSetIPCBuffer(T, destT)

	case syscallabi.TCBSetSpace:
		return ks.tcbSetSpace(T, destT)

	case syscallabi.TCBSetTLSBase:
		destT.HALContext.SetTLSBase(T.HALContext.MR(0))
		return 0, syscallabi.Success

	case syscallabi.TCBReadRegisters:
		return ks.tcbReadRegisters(T, destT)

	case syscallabi.TCBWriteRegisters:
		return ks.tcbWriteRegisters(T, destT)

	default:
		klog.Rejected("task", label, syscallabi.UnSupported, nil)
		return 0, syscallabi.UnSupported
	}
}

func (ks *KernelState) tcbSetIPCBuffer(T, destT *task.TCB) (uint64, syscallabi.ResponseLabel) {
	vaddr := T.HALContext.MR(0)
	if vaddr&pageMask != 0 {
		klog.Rejected("task", syscallabi.TCBSetIPCBuffer, syscallabi.InvalidParam, nil)
		return 0, syscallabi.InvalidParam
	}

	v, ok := ks.resolveCallerVSpace(T)
	if !ok {
		klog.Rejected("task", syscallabi.TCBSetIPCBuffer, syscallabi.InvalidParam, nil)
		return 0, syscallabi.InvalidParam
	}
	// A failed translation is treated as InvalidParam rather than silently
	// leaving ipc_buffer_vaddr unset: one source revision drops the failure,
	// but an unset buffer a caller believes it installed is worse than a
	// reported error.
	if _, ok := v.VAToPA(vaddr); !ok {
		klog.Rejected("task", syscallabi.TCBSetIPCBuffer, syscallabi.InvalidParam, nil)
		return 0, syscallabi.InvalidParam
	}

	addr := vaddr
	destT.IPCBufferVAddr = &addr
	return 0, syscallabi.Success
}

func (ks *KernelState) tcbSetSpace(T, destT *task.TCB) (uint64, syscallabi.ResponseLabel) {
	slotRaw := T.HALContext.MR(0)
	c, ok := T.CSpace.Get(int(slotRaw))
	if !ok {
		return 0, syscallabi.OutOfRange
	}
	if c.Kind != capability.KindPageTable {
		klog.Rejected("task", syscallabi.TCBSetSpace, syscallabi.ErrCapType, nil)
		return 0, syscallabi.ErrCapType
	}

	sameThread := destT == T
	if sameThread && slotRaw == uint64(syscallabi.CapInitVSpace) {
		return 0, syscallabi.Success
	}

	if destT.CSpace.IsUsed(int(syscallabi.CapInitVSpace)) {
		if err := destT.CSpace.FreeSlot(int(syscallabi.CapInitVSpace), ks.Heap, ks.Arena, ks.Config); err != nil {
			klog.Rejected("task", syscallabi.TCBSetSpace, syscallabi.InvalidParam, nil)
			return 0, syscallabi.InvalidParam
		}
	}
	destT.CSpace.Set(int(syscallabi.CapInitVSpace), c.Derive())

	if !sameThread {
		if obj, ok := ks.Arena.Get(c.BasePtr); ok {
			if pt, ok := obj.(*memory.PageTable); ok {
				_ = memory.MapKernelWindow(pt)
			}
		}
	}
	return 0, syscallabi.Success
}

// resolveCallerVSpace resolves the PageTable object installed at the
// caller's own CapInitVSpace slot.
func (ks *KernelState) resolveCallerVSpace(T *task.TCB) (*memory.PageTable, bool) {
	if T.CSpace == nil {
		return nil, false
	}
	c, ok := T.CSpace.Get(int(syscallabi.CapInitVSpace))
	if !ok || c.Kind != capability.KindPageTable {
		return nil, false
	}
	obj, ok := ks.Arena.Get(c.BasePtr)
	if !ok {
		return nil, false
	}
	pt, ok := obj.(*memory.PageTable)
	return pt, ok
}

// copyRegisters transfers the general-purpose register file and PC between
// two contexts. The real IPC buffer is a page of the destination thread's
// own address space, whose byte-level layout belongs entirely to the HAL
// (spec.md §1); this core marshals through the Context register accessors
// directly rather than modeling that page's contents.
func copyRegisters(dst, src hal.Context) {
	for i := 0; i < hal.MaxGeneralRegisters; i++ {
		dst.SetReg(i, src.Reg(i))
	}
	dst.SetNextIP(src.NextIP())
}

func (ks *KernelState) tcbReadRegisters(T, destT *task.TCB) (uint64, syscallabi.ResponseLabel) {
	if T.IPCBufferVAddr == nil {
		klog.Rejected("task", syscallabi.TCBReadRegisters, syscallabi.NoIpcBuffer, nil)
		return 0, syscallabi.NoIpcBuffer
	}
	copyRegisters(T.HALContext, destT.HALContext)
	return 0, syscallabi.Success
}

func (ks *KernelState) tcbWriteRegisters(T, destT *task.TCB) (uint64, syscallabi.ResponseLabel) {
	if T.IPCBufferVAddr == nil {
		klog.Rejected("task", syscallabi.TCBWriteRegisters, syscallabi.NoIpcBuffer, nil)
		return 0, syscallabi.NoIpcBuffer
	}
	copyRegisters(destT.HALContext, T.HALContext)
	return 0, syscallabi.Success
}
