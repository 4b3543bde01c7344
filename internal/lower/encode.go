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

package lower

import (
    `github.com/cloudwego/brlower/internal/ir`
    `github.com/cloudwego/brlower/internal/isa`
)

var _BranchForms = map[isa.Opcode]map[isa.PhysReg]isa.Opcode {
    isa.OP_p_cbranch_nz: {
        isa.Exec : isa.OP_s_cbranch_execnz,
        isa.VCC  : isa.OP_s_cbranch_vccnz,
        isa.SCC  : isa.OP_s_cbranch_scc1,
    },
    isa.OP_p_cbranch_z: {
        isa.Exec : isa.OP_s_cbranch_execz,
        isa.VCC  : isa.OP_s_cbranch_vccz,
        isa.SCC  : isa.OP_s_cbranch_scc0,
    },
}

// HardwareForm returns the hardware opcode a pseudo branch is encoded to.
func HardwareForm(ins *ir.Instr) (isa.Opcode, bool) {
    if ins.Op == isa.OP_p_branch {
        return isa.OP_s_branch, true
    } else if tab, ok := _BranchForms[ins.Op]; !ok || len(ins.Ops) == 0 || ins.Ops[0].Const {
        return isa.OP_invalid, false
    } else {
        op, ok := tab[ins.Ops[0].Reg]
        return op, ok
    }
}

// Invert swaps the polarity of a conditional pseudo branch.
func Invert(op isa.Opcode) isa.Opcode {
    switch op {
        case isa.OP_p_cbranch_z  : return isa.OP_p_cbranch_nz
        case isa.OP_p_cbranch_nz : return isa.OP_p_cbranch_z
        default                  : panic("lower: cannot invert " + op.String())
    }
}

func (self *_BranchCtx) lowerBranch(bb int) {
    p := self.p
    blk := p.Block(bb)
    ins := p.Last(bb)

    /* only pseudo branches are lowered */
    if ins == nil || !ins.IsPseudoBranch() {
        return
    }

    /* evaluate the heuristic */
    ret := Decision {
        Block      : bb,
        Op         : ins.Op,
        Target     : ins.Br.Target,
        Uniform    : IsUniform(ins),
        NeverTaken : ins.Br.NeverTaken,
    }

    /* record the decision when done */
    ret.Verdict, ret.Reason = Decide(p, &self.opts, bb, ins)
    defer self.decided(&ret)

    /* removed branches fall through, conditional ones also lose the taken edge */
    if ret.Verdict == Remove {
        blk.Ins = blk.Ins[:len(blk.Ins) - 1]
        if ins.Op != isa.OP_p_branch {
            self.removeLinearSucc(bb, ret.Target)
        }
        return
    }

    /* the target must agree with the linear successors */
    tgt := ret.Target
    succ := blk.Succs(ir.Linear)

    /* check the slot the target is in */
    if ins.Op == isa.OP_p_branch {
        if len(succ) == 0 || succ[0] != tgt {
            fatalf(bb, ins, "unconditional branch target is not the linear successor")
        }
    } else {
        if len(succ) != 2 || succ[1] != tgt {
            fatalf(bb, ins, "conditional branch target is not the taken successor")
        }
    }

    /* select the hardware form */
    op, ok := HardwareForm(ins)
    if !ok {
        fatalf(bb, ins, "unsupported branch condition")
    }

    /* unconditional branches have no operands */
    if op == isa.OP_s_branch {
        ins.Ops = nil
    }

    /* rewrite in place */
    ins.Op = op
    ins.Br = nil
    ins.Imm = uint32(tgt)
    ret.Encoded = op
}
