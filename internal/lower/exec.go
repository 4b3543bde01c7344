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

// writesOtherLive reports whether a definition other than exec is still
// needed. Scalar condition codes are tracked precisely, everything else is
// assumed to be live.
func writesOtherLive(ins *ir.Instr, scc bool) bool {
    for _, d := range ins.Defs {
        switch {
            case d.Covers(isa.Exec) || d.Covers(isa.ExecHi) : continue
            case d.Reg == isa.SCC                           : if scc { return true }
            default                                         : return true
        }
    }
    return false
}

// sccUsedAtEnd computes whether scc may be read after the block ends.
func (self *_BranchCtx) sccUsedAtEnd(bb int) bool {
    for _, s := range self.p.Block(bb).Succs(ir.Linear) {
        if self.sccUsed[s] {
            return true
        }
    }
    return false
}

// execUsedAtEnd computes whether exec may be read after the block ends.
func (self *_BranchCtx) execUsedAtEnd(bb int) bool {
    p := self.p
    blk := p.Block(bb)
    succ := blk.Succs(ir.Linear)

    /* exec is returned to the caller */
    if blk.Kind.Has(ir.BlockEndWithRegs) {
        return true
    }

    /* indirect jumps leave the program with exec as an argument */
    if len(succ) == 0 {
        last := p.Last(bb)
        return last != nil && last.Op == isa.OP_s_setpc_b64
    }

    /* otherwise it's used if any successor uses it */
    for _, s := range succ {
        if self.execUsed[s] {
            return true
        }
    }
    return false
}

func (self *_BranchCtx) eliminateExecWrites(bb int) {
    p := self.p
    blk := p.Block(bb)
    used := self.execUsedAtEnd(bb)
    dead := make([]bool, len(blk.Ins))

    /* scc is tracked across blocks the same way as exec */
    scc := self.sccUsedAtEnd(bb)
    ndel := 0

    /* backward scan */
    for i := len(blk.Ins) - 1; i >= 0; i-- {
        ins := p.Instr(blk.Ins[i])
        wex := ins.WritesExec() && ins.Defs[0].Rc == p.LaneMask

        /* a full overwrite of exec nobody reads */
        if wex && !used && !writesOtherLive(ins, scc) {
            ndel++
            dead[i] = true
            continue
        }

        /* an overwrite hides the earlier value, a read makes it live */
        if wex { used = false }
        if ins.NeedsExec() { used = true }

        /* track the scalar condition code */
        if ins.WritesReg(isa.SCC) { scc = false }
        if ins.ReadsReg(isa.SCC)  { scc = true }
    }

    /* exec and scc usage at the start of this block */
    self.execUsed[bb] = used
    self.sccUsed[bb] = scc
    if ndel == 0 {
        return
    }

    /* compact the instruction list, recording where the deleted ones were */
    ins := blk.Ins[:0]
    for i, id := range blk.Ins {
        if dead[i] {
            self.deleted(bb, i, len(ins), p.Instr(id))
        } else {
            ins = append(ins, id)
        }
    }

    /* update the block */
    blk.Ins = ins
}
