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

package hal

import (
	"bytes"

	"github.com/MORK-core/mork-syscall/syscallabi"
)

// SimContext is a plain in-memory Context, standing in for the real trap
// frame in tests and in any standalone use of this module.
type SimContext struct {
	cap     uint64
	tag     syscallabi.MessageInfo
	mr      [MaxMessageRegisters]uint64
	nextIP  uint64
	tlsBase uint64
	regs    [MaxGeneralRegisters]uint64
}

func NewSimContext() *SimContext { return &SimContext{} }

func (c *SimContext) Cap() uint64                         { return c.cap }
func (c *SimContext) SetCap(v uint64)                     { c.cap = v }
func (c *SimContext) Tag() syscallabi.MessageInfo         { return c.tag }
func (c *SimContext) SetTag(tag syscallabi.MessageInfo)   { c.tag = tag }
func (c *SimContext) MR(i int) uint64                     { return c.mr[i] }
func (c *SimContext) SetMR(i int, v uint64)               { c.mr[i] = v }
func (c *SimContext) NextIP() uint64                      { return c.nextIP }
func (c *SimContext) SetNextIP(v uint64)                  { c.nextIP = v }
func (c *SimContext) TLSBase() uint64                     { return c.tlsBase }
func (c *SimContext) SetTLSBase(v uint64)                 { c.tlsBase = v }
func (c *SimContext) Reg(i int) uint64                     { return c.regs[i] }
func (c *SimContext) SetReg(i int, v uint64)               { c.regs[i] = v }

// SimHAL is a debug console backed by an in-memory buffer and a shutdown
// flag, standing in for the real console/power-control HAL in tests.
type SimHAL struct {
	Console_     bytes.Buffer
	ShutdownHit  bool
}

func NewSimHAL() *SimHAL { return &SimHAL{} }

func (h *SimHAL) PutChar(b byte) { h.Console_.WriteByte(b) }
func (h *SimHAL) Shutdown()      { h.ShutdownHit = true }
