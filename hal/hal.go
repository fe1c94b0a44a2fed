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

// Package hal declares the hardware-abstraction-layer interfaces the kernel
// core consumes: trap context access, the debug console, and shutdown. Trap
// entry/exit, context switching, TLB control and the raw PTE word format are
// the real HAL's job and stay entirely outside this module (spec.md §1).
package hal

import "github.com/MORK-core/mork-syscall/syscallabi"

// MaxGeneralRegisters bounds the general-purpose register file a
// TCBReadRegisters/TCBWriteRegisters invocation copies through the IPC
// buffer.
const MaxGeneralRegisters = 32

// MaxMessageRegisters bounds the mr0..mrN operand slots an invocation can
// carry directly in registers rather than through the IPC buffer.
const MaxMessageRegisters = 7

// Context is the per-thread trap context: the general-purpose registers, PC,
// TLS base, and the tag/message/cap registers the syscall ABI is built on.
type Context interface {
	// Cap returns the destination capability index a Syscall trap carries in
	// the cap register.
	Cap() uint64
	SetCap(v uint64)

	Tag() syscallabi.MessageInfo
	SetTag(tag syscallabi.MessageInfo)

	MR(i int) uint64
	SetMR(i int, v uint64)

	NextIP() uint64
	SetNextIP(v uint64)

	TLSBase() uint64
	SetTLSBase(v uint64)

	Reg(i int) uint64
	SetReg(i int, v uint64)
}

// Console is the debug output sink SysDebugPutChar writes to.
type Console interface {
	PutChar(b byte)
}

// HAL bundles the console and the shutdown trap, the two collaborators the
// dispatcher's debug syscalls need directly (everything else goes through a
// thread's own Context).
type HAL interface {
	Console
	Shutdown()
}
