/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package isa

import (
    `fmt`
)

// PhysReg is a physical register number using the hardware operand
// encoding: scalar registers and special registers below 256, vector
// registers from 256 upwards.
type PhysReg uint16

const (
    VCC    PhysReg = 106
    VCCHi  PhysReg = 107
    M0     PhysReg = 124
    Exec   PhysReg = 126
    ExecHi PhysReg = 127
    SCC    PhysReg = 253
)

const (
    _MaxSGPR  = 106
    _VGPRBase = 256
    _MaxVGPR  = 256
)

// SGPR returns the n-th scalar register.
func SGPR(n int) PhysReg {
    if n < 0 || n >= _MaxSGPR {
        panic(fmt.Sprintf("isa: sgpr index out of range: %d", n))
    } else {
        return PhysReg(n)
    }
}

// VGPR returns the n-th vector register.
func VGPR(n int) PhysReg {
    if n < 0 || n >= _MaxVGPR {
        panic(fmt.Sprintf("isa: vgpr index out of range: %d", n))
    } else {
        return PhysReg(_VGPRBase + n)
    }
}

func (self PhysReg) IsVGPR() bool {
    return self >= _VGPRBase
}

func (self PhysReg) String() string {
    switch {
        case self == VCC        : return "vcc"
        case self == VCCHi      : return "vcc_hi"
        case self == M0         : return "m0"
        case self == Exec       : return "exec"
        case self == ExecHi     : return "exec_hi"
        case self == SCC        : return "scc"
        case self < _MaxSGPR    : return fmt.Sprintf("s%d", uint16(self))
        case self >= _VGPRBase  : return fmt.Sprintf("v%d", uint16(self) - _VGPRBase)
        default                 : return fmt.Sprintf("r%d", uint16(self))
    }
}

// RegType tells which register file a value lives in.
type RegType uint8

const (
    RegSGPR RegType = iota
    RegVGPR
)

// RegClass encodes a register file and a size in dwords. The high bit
// selects the vector file.
type RegClass uint8

const (
    _RcVector = 0x80
    _RcSize   = 0x1f
)

const (
    S1 RegClass = 1
    S2 RegClass = 2
    S4 RegClass = 4
    V1 RegClass = _RcVector | 1
    V2 RegClass = _RcVector | 2
)

func (self RegClass) Type() RegType {
    if self & _RcVector != 0 {
        return RegVGPR
    } else {
        return RegSGPR
    }
}

func (self RegClass) Size() int {
    return int(self & _RcSize)
}

func (self RegClass) String() string {
    if self.Type() == RegVGPR {
        return fmt.Sprintf("v%d", self.Size())
    } else {
        return fmt.Sprintf("s%d", self.Size())
    }
}

// Covers reports whether a value of class rc placed at reg overlaps x.
func Covers(reg PhysReg, rc RegClass, x PhysReg) bool {
    n := rc.Size()
    if n == 0 {
        n = 1
    }
    return x >= reg && int(x) < int(reg) + n
}
