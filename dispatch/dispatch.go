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

// Package dispatch implements HandleSyscall, the single entry point that
// decodes a trap, routes it to the cspace, memory, task or notification
// handler, and re-admits the caller onto the run queue.
package dispatch

import (
	"github.com/MORK-core/mork-syscall/arena"
	"github.com/MORK-core/mork-syscall/capability"
	"github.com/MORK-core/mork-syscall/config"
	"github.com/MORK-core/mork-syscall/cspace"
	"github.com/MORK-core/mork-syscall/hal"
	"github.com/MORK-core/mork-syscall/heapalloc"
	"github.com/MORK-core/mork-syscall/klog"
	"github.com/MORK-core/mork-syscall/memory"
	"github.com/MORK-core/mork-syscall/notification"
	"github.com/MORK-core/mork-syscall/sched"
	"github.com/MORK-core/mork-syscall/syscallabi"
	"github.com/MORK-core/mork-syscall/task"
)

// KernelState bundles the collaborators a syscall touches: the heap and
// object registry the cspace handler allocates from, the run queue the
// dispatcher re-admits into, the console/shutdown HAL the debug syscalls
// drive, the kernel's tunables, and the thread the trap belongs to.
type KernelState struct {
	Heap      heapalloc.Heap
	Arena     *arena.Registry
	Scheduler sched.Scheduler
	HAL       hal.HAL
	Config    config.Kernel

	// NewContext builds a fresh per-thread trap context for CNodeAlloc(Thread).
	// Constructing the real trap frame belongs to the HAL; this hook is how a
	// caller wires that in without this package importing a concrete HAL.
	NewContext func() hal.Context

	// Current is the thread the in-progress syscall belongs to. HandleSyscall
	// takes ownership of it for the duration of the call and clears or
	// re-enqueues it before returning, per spec.md §4.1.
	Current *task.TCB
}

// HandleSyscall decodes sys, routes the invocation through the appropriate
// handler, and re-admits Current onto the run queue if it is still
// runnable afterward.
func (ks *KernelState) HandleSyscall(cptr uint64, tag syscallabi.MessageInfo, sys syscallabi.Syscall) {
	T := ks.Current
	if T == nil {
		panic("dispatch: HandleSyscall called with no current task")
	}
	if T.State == task.Running {
		T.State = task.Restart
	}

	switch sys {
	case syscallabi.SysDebugPutChar:
		ks.HAL.PutChar(byte(T.HALContext.Cap() & 0xFF))
	case syscallabi.SysDebugShutdown:
		ks.HAL.Shutdown()
	case syscallabi.Syscall_Call:
		ks.routeCall(T, cptr, tag)
	case syscallabi.SysNBSend:
		ks.routeNotify(T, cptr, true)
	case syscallabi.SysRecv:
		ks.routeNotify(T, cptr, false)
	}

	if T.State == task.Restart {
		ks.Scheduler.EnqueueFront(T)
	} else {
		T.IsQueued = false
	}
}

func (ks *KernelState) respond(T *task.TCB, resp syscallabi.ResponseLabel, value uint64) {
	if resp == syscallabi.Success {
		T.HALContext.SetMR(0, value)
	}
	T.HALContext.SetTag(syscallabi.NewResponse(resp))
}

// routeCall implements the Call-routing table of spec.md §4.1: resolve the
// destination capability at cptr in T's own CSpace and fan out by its kind.
func (ks *KernelState) routeCall(T *task.TCB, cptr uint64, tag syscallabi.MessageInfo) {
	if cptr >= uint64(ks.Config.MaxCNodeSize) {
		ks.respond(T, syscallabi.OutOfRange, 0)
		return
	}
	if T.CSpace == nil {
		ks.respond(T, syscallabi.NotEnoughSpace, 0)
		return
	}
	destCap, ok := T.CSpace.Get(int(cptr))
	if !ok {
		ks.respond(T, syscallabi.OutOfRange, 0)
		return
	}

	var value uint64
	var resp syscallabi.ResponseLabel

	switch destCap.Kind {
	case capability.KindCNode:
		cn := ks.resolveCNode(destCap)
		value, resp = ks.handleCSpace(T, cn, tag)

	case capability.KindThread:
		destT := ks.resolveThread(destCap)
		if tag.InvocationLabel().InCSpaceRange() {
			value, resp = ks.handleCSpace(T, destT.CSpace, tag)
		} else {
			value, resp = ks.handleTask(T, destT, tag)
		}

	case capability.KindPageTable:
		v := ks.resolvePageTable(destCap)
		value, resp = ks.handleMemory(T, T.CSpace, v, tag)

	default:
		resp = syscallabi.UnSupported
		klog.Rejected("dispatch", tag.InvocationLabel(), resp, nil)
	}

	ks.respond(T, resp, value)
}

// routeNotify implements SysNBSend/SysRecv routing: the target at cptr must
// be a Notification capability.
func (ks *KernelState) routeNotify(T *task.TCB, cptr uint64, send bool) {
	if T.CSpace == nil {
		ks.respond(T, syscallabi.NotEnoughSpace, 0)
		return
	}
	destCap, ok := T.CSpace.Get(int(cptr))
	if !ok {
		ks.respond(T, syscallabi.OutOfRange, 0)
		return
	}
	if destCap.Kind != capability.KindNotification {
		ks.respond(T, syscallabi.ErrCapType, 0)
		return
	}

	n := ks.resolveNotification(destCap)

	if send {
		if woken := n.Signal(destCap.Badge); woken != nil {
			ks.Scheduler.EnqueueBack(woken)
		}
		ks.respond(T, syscallabi.Success, 0)
		return
	}

	badge, blocked := n.Receive(T)
	if blocked {
		T.HALContext.SetTag(syscallabi.NewResponse(syscallabi.Success))
		return
	}
	ks.respond(T, syscallabi.Success, badge)
}

func (ks *KernelState) resolveCNode(c capability.Cap) *cspace.CapNode {
	obj, ok := ks.Arena.Get(c.BasePtr)
	cn, ok2 := obj.(*cspace.CapNode)
	if !ok || !ok2 {
		panic("dispatch: CNode capability with no backing CapNode")
	}
	return cn
}

func (ks *KernelState) resolveThread(c capability.Cap) *task.TCB {
	obj, ok := ks.Arena.Get(c.BasePtr)
	t, ok2 := obj.(*task.TCB)
	if !ok || !ok2 {
		panic("dispatch: Thread capability with no backing TCB")
	}
	return t
}

func (ks *KernelState) resolvePageTable(c capability.Cap) *memory.PageTable {
	obj, ok := ks.Arena.Get(c.BasePtr)
	v, ok2 := obj.(*memory.PageTable)
	if !ok || !ok2 {
		panic("dispatch: PageTable capability with no backing PageTable")
	}
	return v
}

func (ks *KernelState) resolveNotification(c capability.Cap) *notification.Notification {
	obj, ok := ks.Arena.Get(c.BasePtr)
	n, ok2 := obj.(*notification.Notification)
	if !ok || !ok2 {
		panic("dispatch: Notification capability with no backing Notification")
	}
	return n
}
