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
	"github.com/MORK-core/mork-syscall/cspace"
	"github.com/MORK-core/mork-syscall/klog"
	"github.com/MORK-core/mork-syscall/memory"
	"github.com/MORK-core/mork-syscall/syscallabi"
	"github.com/MORK-core/mork-syscall/task"
)

// handleMemory implements the PageTableMap/Unmap and PageMap/Unmap table of
// spec.md §4.3 against v, the VSpace the target PageTable capability
// designates. cn is always T's own CSpace: slots named by mr0 are resolved
// in the caller's table, never the target's.
func (ks *KernelState) handleMemory(T *task.TCB, cn *cspace.CapNode, v *memory.PageTable, tag syscallabi.MessageInfo) (uint64, syscallabi.ResponseLabel) {
	label := tag.InvocationLabel()
	switch label {
	case syscallabi.PageTableMap:
		return ks.pageTableMap(cn, v, T.HALContext.MR(0), T.HALContext.MR(1))
	case syscallabi.PageTableUnmap:
		return ks.pageTableUnmap(cn, v, T.HALContext.MR(0))
	case syscallabi.PageMap:
		return ks.pageMap(cn, v, T.HALContext.MR(0), T.HALContext.MR(1), T.HALContext.MR(2))
	case syscallabi.PageUnmap:
		return ks.pageUnmap(cn, v, T.HALContext.MR(0))
	default:
		klog.Rejected("memory", label, syscallabi.UnSupported, nil)
		return 0, syscallabi.UnSupported
	}
}

func ptErrResponse(err error) syscallabi.ResponseLabel {
	if pe, ok := err.(*memory.PTError); ok {
		return pe.ResponseLabel()
	}
	return syscallabi.InvalidParam
}

func (ks *KernelState) pageTableMap(cn *cspace.CapNode, v *memory.PageTable, slotRaw, vaddr uint64) (uint64, syscallabi.ResponseLabel) {
	c, ok := cn.Get(int(slotRaw))
	if !ok {
		return 0, syscallabi.OutOfRange
	}
	if c.Kind != capability.KindPageTable {
		klog.Rejected("memory", syscallabi.PageTableMap, syscallabi.ErrCapType, nil)
		return 0, syscallabi.ErrCapType
	}
	if c.IsMapped {
		klog.Rejected("memory", syscallabi.PageTableMap, syscallabi.InvalidParam, nil)
		return 0, syscallabi.InvalidParam
	}

	obj, ok := ks.Arena.Get(c.BasePtr)
	child, ok2 := obj.(*memory.PageTable)
	if !ok || !ok2 {
		panic("memory: PageTable capability with no backing PageTable")
	}

	paddr := c.BasePtr << 12
	level, err := v.MapPageTable(vaddr, paddr, child)
	if err != nil {
		resp := ptErrResponse(err)
		klog.Rejected("memory", syscallabi.PageTableMap, resp, nil)
		return 0, resp
	}

	c.IsMapped = true
	c.MappedAddr = vaddr >> 12
	c.Level = uint8(level)
	cn.Set(int(slotRaw), c)
	return 0, syscallabi.Success
}

func (ks *KernelState) pageTableUnmap(cn *cspace.CapNode, v *memory.PageTable, slotRaw uint64) (uint64, syscallabi.ResponseLabel) {
	c, ok := cn.Get(int(slotRaw))
	if !ok {
		return 0, syscallabi.OutOfRange
	}
	if c.Kind != capability.KindPageTable {
		klog.Rejected("memory", syscallabi.PageTableUnmap, syscallabi.ErrCapType, nil)
		return 0, syscallabi.ErrCapType
	}
	if !c.IsMapped || c.Level == 0 {
		klog.Rejected("memory", syscallabi.PageTableUnmap, syscallabi.InvalidParam, nil)
		return 0, syscallabi.InvalidParam
	}

	paddr := c.BasePtr << 12
	if err := v.UnmapPageTable(c.MappedAddr<<12, paddr, int(c.Level)); err != nil {
		resp := ptErrResponse(err)
		klog.Rejected("memory", syscallabi.PageTableUnmap, resp, nil)
		return 0, resp
	}

	c.IsMapped = false
	c.MappedAddr = 0
	c.Level = 0
	cn.Set(int(slotRaw), c)
	return 0, syscallabi.Success
}

func (ks *KernelState) pageMap(cn *cspace.CapNode, v *memory.PageTable, slotRaw, vaddr, rightsRaw uint64) (uint64, syscallabi.ResponseLabel) {
	rights, ok := syscallabi.VMRightsFromUint(rightsRaw)
	if !ok {
		klog.Rejected("memory", syscallabi.PageMap, syscallabi.InvalidParam, nil)
		return 0, syscallabi.InvalidParam
	}

	c, ok := cn.Get(int(slotRaw))
	if !ok {
		return 0, syscallabi.OutOfRange
	}
	if c.Kind != capability.KindFrame {
		klog.Rejected("memory", syscallabi.PageMap, syscallabi.ErrCapType, nil)
		return 0, syscallabi.ErrCapType
	}
	if c.IsMapped {
		klog.Rejected("memory", syscallabi.PageMap, syscallabi.InvalidParam, nil)
		return 0, syscallabi.InvalidParam
	}

	paddr := c.BasePtr << 12
	if err := v.MapFrame(vaddr, paddr, int(c.SizeLevel), rights.Exec(), rights.Write(), rights.Read()); err != nil {
		resp := ptErrResponse(err)
		klog.Rejected("memory", syscallabi.PageMap, resp, nil)
		return 0, resp
	}

	c.IsMapped = true
	c.MappedAddr = vaddr >> 12
	cn.Set(int(slotRaw), c)
	return 0, syscallabi.Success
}

func (ks *KernelState) pageUnmap(cn *cspace.CapNode, v *memory.PageTable, slotRaw uint64) (uint64, syscallabi.ResponseLabel) {
	c, ok := cn.Get(int(slotRaw))
	if !ok {
		return 0, syscallabi.OutOfRange
	}
	if c.Kind != capability.KindFrame {
		klog.Rejected("memory", syscallabi.PageUnmap, syscallabi.ErrCapType, nil)
		return 0, syscallabi.ErrCapType
	}
	if !c.IsMapped {
		klog.Rejected("memory", syscallabi.PageUnmap, syscallabi.InvalidParam, nil)
		return 0, syscallabi.InvalidParam
	}

	if err := v.UnmapFrame(c.MappedAddr << 12); err != nil {
		resp := ptErrResponse(err)
		klog.Rejected("memory", syscallabi.PageUnmap, resp, nil)
		return 0, resp
	}

	c.IsMapped = false
	c.MappedAddr = 0
	cn.Set(int(slotRaw), c)
	return 0, syscallabi.Success
}
