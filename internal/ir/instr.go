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

package ir

import (
    `fmt`
    `strings`

    `github.com/cloudwego/brlower/internal/isa`
)

// Operand is either a physical register of some class or a 32-bit constant.
type Operand struct {
    Reg   isa.PhysReg
    Rc    isa.RegClass
    Const bool
    Val   uint32
}

func Reg(r isa.PhysReg, rc isa.RegClass) Operand {
    return Operand { Reg: r, Rc: rc }
}

func Const(v uint32) Operand {
    return Operand { Const: true, Val: v }
}

func (self Operand) Covers(r isa.PhysReg) bool {
    return !self.Const && isa.Covers(self.Reg, self.Rc, r)
}

func (self Operand) String() string {
    if self.Const {
        return fmt.Sprintf("#%d", self.Val)
    } else {
        return regrepr(self.Reg, self.Rc)
    }
}

// Definition is a register written by an instruction.
type Definition struct {
    Reg isa.PhysReg
    Rc  isa.RegClass
}

func Def(r isa.PhysReg, rc isa.RegClass) Definition {
    return Definition { Reg: r, Rc: rc }
}

func (self Definition) Covers(r isa.PhysReg) bool {
    return isa.Covers(self.Reg, self.Rc, r)
}

func (self Definition) String() string {
    return regrepr(self.Reg, self.Rc)
}

// Branch is the payload of a pseudo branch marker.
type Branch struct {
    Target      int
    NeverTaken  bool
    RarelyTaken bool
}

// Instr is a single machine or pseudo instruction. Hardware branches keep
// their target block in Imm; pseudo branches keep it in Br.
type Instr struct {
    Op   isa.Opcode
    Defs []Definition
    Ops  []Operand
    Imm  uint32
    Br   *Branch
}

func (self *Instr) Clone() Instr {
    ret := Instr {
        Op   : self.Op,
        Imm  : self.Imm,
        Defs : append([]Definition(nil), self.Defs...),
        Ops  : append([]Operand(nil), self.Ops...),
    }
    if self.Br != nil {
        br := *self.Br
        ret.Br = &br
    }
    return ret
}

func (self *Instr) Category() isa.Category {
    return self.Op.Category()
}

func (self *Instr) IsPseudoBranch() bool {
    return self.Op.Category() == isa.CatPseudoBranch
}

// IsHardwareBranch reports whether the instruction is a final branch form.
func (self *Instr) IsHardwareBranch() bool {
    switch self.Op {
        case isa.OP_s_branch         : return true
        case isa.OP_s_cbranch_scc0   : return true
        case isa.OP_s_cbranch_scc1   : return true
        case isa.OP_s_cbranch_vccz   : return true
        case isa.OP_s_cbranch_vccnz  : return true
        case isa.OP_s_cbranch_execz  : return true
        case isa.OP_s_cbranch_execnz : return true
        default                      : return false
    }
}

func (self *Instr) IsBranch() bool {
    return self.IsPseudoBranch() || self.IsHardwareBranch()
}

// Tested returns the register a conditional branch tests.
func (self *Instr) Tested() isa.PhysReg {
    if len(self.Ops) == 0 || self.Ops[0].Const {
        panic("ir: branch has no tested register: " + self.String())
    } else {
        return self.Ops[0].Reg
    }
}

func (self *Instr) ReadsReg(r isa.PhysReg) bool {
    for _, v := range self.Ops {
        if v.Covers(r) {
            return true
        }
    }
    return false
}

func (self *Instr) WritesReg(r isa.PhysReg) bool {
    for _, v := range self.Defs {
        if v.Covers(r) {
            return true
        }
    }
    return false
}

func (self *Instr) ReadsExec() bool {
    return self.ReadsReg(isa.Exec) || self.ReadsReg(isa.ExecHi)
}

func (self *Instr) WritesExec() bool {
    return self.WritesReg(isa.Exec) || self.WritesReg(isa.ExecHi)
}

// WritesScalar reports whether any definition lives in the scalar file.
func (self *Instr) WritesScalar() bool {
    for _, v := range self.Defs {
        if v.Rc.Type() == isa.RegSGPR {
            return true
        }
    }
    return false
}

// NeedsExec reports whether the instruction's behaviour depends on the
// current exec mask.
func (self *Instr) NeedsExec() bool {
    switch self.Op.Category() {
        case isa.CatVALU, isa.CatVINTRP: {
            return !self.Op.IgnoresExec()
        }

        /* per-lane memory and exports always honour exec */
        case isa.CatVMEM, isa.CatFLAT, isa.CatDS, isa.CatLDSDIR, isa.CatEXP: {
            return true
        }

        /* scalar instructions only need exec if they read it */
        case isa.CatSALU, isa.CatSOPP, isa.CatSMEM, isa.CatBarrier, isa.CatPseudoBranch: {
            return self.ReadsExec()
        }

        /* debug info has no runtime effect, unlike the other pseudo instructions it never reads exec */
        case isa.CatDebugInfo: {
            return false
        }

        default: {
            return true
        }
    }
}

func (self *Instr) String() string {
    var ops []string
    var defs []string

    /* definitions and operands */
    for _, v := range self.Defs { defs = append(defs, v.String()) }
    for _, v := range self.Ops  { ops = append(ops, v.String()) }

    /* branch targets */
    if self.Br != nil {
        ops = append(ops, fmt.Sprintf("bb_%d", self.Br.Target))
    } else if self.IsHardwareBranch() {
        ops = append(ops, fmt.Sprintf("bb_%d", self.Imm))
    }

    /* build the instruction text */
    buf := self.Op.String()
    if len(ops) != 0 {
        buf += " " + strings.Join(ops, ", ")
    }
    if len(defs) != 0 {
        buf = strings.Join(defs, ", ") + " = " + buf
    }

    /* static branch hints */
    if self.Br != nil && self.Br.NeverTaken  { buf += " never_taken" }
    if self.Br != nil && self.Br.RarelyTaken { buf += " rarely_taken" }
    return buf
}

func regrepr(r isa.PhysReg, rc isa.RegClass) string {
    if rc.Size() <= 1 || r == isa.Exec || r == isa.VCC {
        return r.String()
    } else if r.IsVGPR() {
        n := int(r) - int(isa.VGPR(0))
        return fmt.Sprintf("v[%d:%d]", n, n + rc.Size() - 1)
    } else {
        return fmt.Sprintf("s[%d:%d]", int(r), int(r) + rc.Size() - 1)
    }
}
