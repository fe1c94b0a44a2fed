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

// Package syscallabi defines the wire format shared between user threads and
// the kernel core: the syscall kinds trapped by the HAL, the invocation and
// response labels carried in a MessageInfo tag, and the object-type and
// reserved-slot enums used across the cspace/memory/task handlers.
package syscallabi

// Syscall identifies the trap kind decoded by the HAL before handing control
// to the dispatcher.
type Syscall int

const (
	Syscall_Call Syscall = iota
	SysNBSend
	SysRecv
	SysDebugPutChar
	SysDebugShutdown
)

func (s Syscall) String() string {
	switch s {
	case Syscall_Call:
		return "Syscall"
	case SysNBSend:
		return "SysNBSend"
	case SysRecv:
		return "SysRecv"
	case SysDebugPutChar:
		return "SysDebugPutChar"
	case SysDebugShutdown:
		return "SysDebugShutdown"
	}
	return "unknown"
}

// InvocationLabel is the opcode a caller places in the tag register to select
// the operation a target capability should perform. Order is part of the
// stable wire format; never reorder existing members.
type InvocationLabel int

const (
	AllocObject InvocationLabel = iota
	CNodeAlloc
	CNodeDelete
	CNodeCopy
	CNodeMint
	CNodeMove
	CNodeMutate
	CNodeRotate
	CNodeSaveCaller
	PageTableMap
	PageTableUnmap
	PageMap
	PageUnmap
	TCBSuspend
	TCBResume
	TCBSetIPCBuffer
	TCBSetSpace
	TCBSetTLSBase
	TCBReadRegisters
	TCBWriteRegisters
)

func (l InvocationLabel) String() string {
	switch l {
	case AllocObject:
		return "AllocObject"
	case CNodeAlloc:
		return "CNodeAlloc"
	case CNodeDelete:
		return "CNodeDelete"
	case CNodeCopy:
		return "CNodeCopy"
	case CNodeMint:
		return "CNodeMint"
	case CNodeMove:
		return "CNodeMove"
	case CNodeMutate:
		return "CNodeMutate"
	case CNodeRotate:
		return "CNodeRotate"
	case CNodeSaveCaller:
		return "CNodeSaveCaller"
	case PageTableMap:
		return "PageTableMap"
	case PageTableUnmap:
		return "PageTableUnmap"
	case PageMap:
		return "PageMap"
	case PageUnmap:
		return "PageUnmap"
	case TCBSuspend:
		return "TCBSuspend"
	case TCBResume:
		return "TCBResume"
	case TCBSetIPCBuffer:
		return "TCBSetIPCBuffer"
	case TCBSetSpace:
		return "TCBSetSpace"
	case TCBSetTLSBase:
		return "TCBSetTLSBase"
	case TCBReadRegisters:
		return "TCBReadRegisters"
	case TCBWriteRegisters:
		return "TCBWriteRegisters"
	}
	return "unknown"
}

// InCSpaceRange reports whether the label falls within the contiguous
// CNodeAlloc..CNodeSaveCaller range that the task handler forwards into the
// cspace handler against the target TCB's own CSpace.
func (l InvocationLabel) InCSpaceRange() bool {
	return l >= CNodeAlloc && l <= CNodeSaveCaller
}

// ResponseLabel is the opcode a handler leaves in the tag register to report
// its outcome back to the caller.
type ResponseLabel int

const (
	Success ResponseLabel = iota
	UnSupported
	OutOfRange
	NotEnoughSpace
	ErrCapType
	InvalidParam
	NoIpcBuffer
	NoMappingError
	MappingAlreadyExists
)

func (r ResponseLabel) String() string {
	switch r {
	case Success:
		return "Success"
	case UnSupported:
		return "UnSupported"
	case OutOfRange:
		return "OutOfRange"
	case NotEnoughSpace:
		return "NotEnoughSpace"
	case ErrCapType:
		return "ErrCapType"
	case InvalidParam:
		return "InvalidParam"
	case NoIpcBuffer:
		return "NoIpcBuffer"
	case NoMappingError:
		return "NoMappingError"
	case MappingAlreadyExists:
		return "MappingAlreadyExists"
	}
	return "unknown"
}

// ObjectType is the closed set of kernel object kinds CNodeAlloc can create.
type ObjectType int

const (
	ObjCNode ObjectType = iota
	ObjThread
	ObjPageTable
	ObjFrame4K
	ObjFrame2M
	ObjNotification
)

func (o ObjectType) String() string {
	switch o {
	case ObjCNode:
		return "CNode"
	case ObjThread:
		return "Thread"
	case ObjPageTable:
		return "PageTable"
	case ObjFrame4K:
		return "Frame4K"
	case ObjFrame2M:
		return "Frame2M"
	case ObjNotification:
		return "Notification"
	}
	return "unknown"
}

// ObjectTypeFromUint decodes a raw mr0 operand into an ObjectType, reporting
// whether the value is within the closed enum. Out-of-range values are a
// domain error (UnSupported), never a panic — only the allocator itself may
// panic on an ObjectType it doesn't recognize, since by the time it sees one
// this decode has already happened.
func ObjectTypeFromUint(v uint64) (ObjectType, bool) {
	if v > uint64(ObjNotification) {
		return 0, false
	}
	return ObjectType(v), true
}

// CNodeSlot enumerates the reserved low indices of a freshly allocated
// CapNode. The first allocator-assignable slot is FirstFree.
type CNodeSlot int

const (
	CapNull CNodeSlot = iota
	CapInitVSpace
	CapInitTCB
	CapInitCNode
	CapInitNotification

	FirstFree
)

func (s CNodeSlot) String() string {
	switch s {
	case CapNull:
		return "CapNull"
	case CapInitVSpace:
		return "CapInitVSpace"
	case CapInitTCB:
		return "CapInitTCB"
	case CapInitCNode:
		return "CapInitCNode"
	case CapInitNotification:
		return "CapInitNotification"
	case FirstFree:
		return "FirstFree"
	}
	return "unknown"
}

// VMRights is the bitmask carried in mr2 of a PageMap invocation. Bit layout
// mirrors the POSIX mmap PROT_* convention (golang.org/x/sys/unix) that the
// rest of this codebase's HAL layer targets.
type VMRights uint8

const (
	VMRead VMRights = 1 << iota
	VMWrite
	VMExec
)

const vmRightsMask = VMRead | VMWrite | VMExec

// VMRightsFromUint validates a raw mr2 operand, rejecting any bit outside the
// R|W|X mask.
func VMRightsFromUint(v uint64) (VMRights, bool) {
	if v == 0 || v&^uint64(vmRightsMask) != 0 {
		return 0, false
	}
	return VMRights(v), true
}

func (r VMRights) Read() bool  { return r&VMRead != 0 }
func (r VMRights) Write() bool { return r&VMWrite != 0 }
func (r VMRights) Exec() bool  { return r&VMExec != 0 }
