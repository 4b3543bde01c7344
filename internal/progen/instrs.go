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

package progen

import (
    `github.com/cloudwego/brlower/internal/ir`
    `github.com/cloudwego/brlower/internal/isa`
)

var (
    s0 = isa.SGPR(0)
    s2 = isa.SGPR(2)
    s4 = isa.SGPR(4)
    s6 = isa.SGPR(6)
    s8 = isa.SGPR(8)
    v0 = isa.VGPR(0)
    v1 = isa.VGPR(1)
    v2 = isa.VGPR(2)
    v3 = isa.VGPR(3)
)

func sreg(r isa.PhysReg) ir.Operand { return ir.Reg(r, isa.S1) }
func vreg(r isa.PhysReg) ir.Operand { return ir.Reg(r, isa.V1) }
func sdef(r isa.PhysReg) ir.Definition { return ir.Def(r, isa.S1) }
func vdef(r isa.PhysReg) ir.Definition { return ir.Def(r, isa.V1) }

// pick chooses the wave32 or wave64 form of a lane mask instruction.
func (self *_Generator) pick(op32 isa.Opcode, op64 isa.Opcode) isa.Opcode {
    if self.cfg.LaneMask == isa.S1 {
        return op32
    } else {
        return op64
    }
}

func (self *_Generator) mask(r isa.PhysReg) ir.Operand {
    return ir.Reg(r, self.cfg.LaneMask)
}

func (self *_Generator) maskdef(r isa.PhysReg) ir.Definition {
    return ir.Def(r, self.cfg.LaneMask)
}

// ins appends one random instruction to the current block.
func (self *_Generator) ins() {
    b := self.b
    lm := self.cfg.LaneMask
    scc := ir.Reg(isa.SCC, isa.S1)

    /* weighted towards the exec manipulation the pass cares about */
    switch self.f.IntRange(0, 21) {
        case 0  : b.Ins(isa.OP_s_mov_b32, ir.Defs(sdef(s6)), ir.Const(uint32(self.f.IntRange(0, 64))))
        case 1  : b.Ins(isa.OP_s_add_u32, ir.Defs(sdef(s6), ir.Def(isa.SCC, isa.S1)), sreg(s6), ir.Const(1))
        case 2  : b.Ins(isa.OP_s_cmp_eq_u32, ir.Defs(ir.Def(isa.SCC, isa.S1)), sreg(s6), ir.Const(0))
        case 3  : b.Ins(isa.OP_s_cselect_b32, ir.Defs(sdef(s8)), sreg(s6), ir.Const(0), scc)
        case 4  : b.Ins(self.pick(isa.OP_s_mov_b32, isa.OP_s_mov_b64), ir.Defs(self.maskdef(isa.Exec)), self.mask(s2))
        case 5  : b.Ins(self.pick(isa.OP_s_and_b32, isa.OP_s_or_b64), ir.Defs(self.maskdef(isa.Exec), ir.Def(isa.SCC, isa.S1)), self.mask(isa.Exec), self.mask(s4))
        case 6  : b.Ins(self.pick(isa.OP_s_and_saveexec_b32, isa.OP_s_and_saveexec_b64), ir.Defs(self.maskdef(s2), ir.Def(isa.SCC, isa.S1), self.maskdef(isa.Exec)), self.mask(isa.VCC), self.mask(isa.Exec))
        case 7  : b.Ins(isa.OP_v_add_f32, ir.Defs(vdef(v0)), vreg(v1), vreg(v2))
        case 8  : b.Ins(isa.OP_v_cmp_lt_f32, ir.Defs(ir.Def(isa.VCC, lm)), vreg(v0), vreg(v1))
        case 9  : b.Ins(isa.OP_v_cndmask_b32, ir.Defs(vdef(v3)), vreg(v0), vreg(v1), self.mask(isa.VCC))
        case 10 : b.Ins(isa.OP_v_readlane_b32, ir.Defs(sdef(s8)), vreg(v0), ir.Const(0))
        case 11 : b.Ins(isa.OP_v_writelane_b32, ir.Defs(vdef(v3)), sreg(s8), ir.Const(1))
        case 12 : b.Ins(isa.OP_v_interp_p1_f32, ir.Defs(vdef(v1)), vreg(v0), ir.Reg(isa.M0, isa.S1))
        case 13 : b.Ins(isa.OP_s_load_dword, ir.Defs(sdef(s8)), ir.Reg(s0, isa.S2), ir.Const(0))
        case 14 : b.Ins(isa.OP_buffer_load_dword, ir.Defs(vdef(v2)), ir.Reg(s0, isa.S4), vreg(v0))
        case 15 : b.Ins(isa.OP_global_store_dword, nil, ir.Reg(v0, isa.V2), vreg(v2))
        case 16 : b.Ins(isa.OP_ds_read_b32, ir.Defs(vdef(v1)), vreg(v0))
        case 17 : b.Ins(isa.OP_exp, nil, vreg(v0), vreg(v1))
        case 18 : b.Ins(isa.OP_p_barrier, nil)
        case 19 : b.Ins(isa.OP_p_debug_info, nil)
        case 20 : b.Ins(isa.OP_s_nop, nil)
        default : b.Ins(isa.OP_v_mov_b32, ir.Defs(vdef(v2)), self.mask(isa.Exec))
    }
}
