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

// Problem is a single structural defect found by Validate.
type Problem struct {
    Block  int
    Instr  int
    Reason string
}

func (self Problem) String() string {
    if self.Instr < 0 {
        return fmt.Sprintf("bb_%d: %s", self.Block, self.Reason)
    } else {
        return fmt.Sprintf("bb_%d: instruction %06x: %s", self.Block, self.Instr, self.Reason)
    }
}

// ValidationError lists every problem found in a program.
type ValidationError struct {
    Problems []Problem
}

func (self *ValidationError) Error() string {
    buf := make([]string, len(self.Problems))
    for i, v := range self.Problems {
        buf[i] = v.String()
    }
    return fmt.Sprintf("invalid program (%d problems):\n\t%s", len(buf), strings.Join(buf, "\n\t"))
}

type _Validator struct {
    p    *Program
    errs []Problem
}

func (self *_Validator) check(ok bool, bb int, ins int, reason string, args ...interface{}) {
    if !ok {
        self.errs = append(self.errs, Problem {
            Block  : bb,
            Instr  : ins,
            Reason : fmt.Sprintf(reason, args...),
        })
    }
}

func count(s []int, v int) (n int) {
    for _, x := range s {
        if x == v {
            n++
        }
    }
    return
}

func (self *_Validator) edges(bb *Block, v View) {
    nb := self.p.NumBlocks()
    es := bb.edges(v)

    /* successor count and ranges */
    self.check(len(es.succs) <= _MaxSuccs, bb.Id, -1, "%d %s successors", len(es.succs), v)
    for _, s := range es.succs {
        if s < 0 || s >= nb {
            self.check(false, bb.Id, -1, "%s successor bb_%d out of range", v, s)
            continue
        }
        self.check(count(es.succs, s) == 1, bb.Id, -1, "duplicated %s successor bb_%d", v, s)
        self.check(count(self.p.blocks[s].edges(v).preds, bb.Id) == 1, bb.Id, -1, "%s successor bb_%d does not list it as predecessor", v, s)
    }

    /* every predecessor must list us as successor */
    for _, p := range es.preds {
        if p < 0 || p >= nb {
            self.check(false, bb.Id, -1, "%s predecessor bb_%d out of range", v, p)
        } else {
            self.check(count(self.p.blocks[p].edges(v).succs, bb.Id) == 1, bb.Id, -1, "%s predecessor bb_%d does not list it as successor", v, p)
        }
    }
}

func (self *_Validator) branch(bb *Block, id int, ins *Instr) {
    succs := bb.linear.succs
    nb := self.p.NumBlocks()

    /* pseudo branches carry their target in the payload */
    if ins.IsPseudoBranch() {
        if ins.Br == nil {
            self.check(false, bb.Id, id, "pseudo branch without target")
            return
        }
        tgt := ins.Br.Target
        self.check(tgt >= 0 && tgt < nb, bb.Id, id, "branch target bb_%d out of range", tgt)
        if ins.Op == isa.OP_p_branch {
            self.check(len(succs) == 1 && succs[0] == tgt, bb.Id, id, "unconditional branch to bb_%d does not match linear successors {%s}", tgt, blocklist(succs))
            return
        }
        self.check(len(succs) == 2 && succs[1] == tgt, bb.Id, id, "conditional branch to bb_%d does not match linear successors {%s}", tgt, blocklist(succs))
        self.check(len(ins.Ops) == 1 && !ins.Ops[0].Const, bb.Id, id, "conditional branch must test exactly one register")
        if len(ins.Ops) == 1 {
            r := ins.Ops[0].Reg
            self.check(r == isa.Exec || r == isa.VCC || r == isa.SCC, bb.Id, id, "conditional branch tests %s", r)
        }
        return
    }

    /* hardware branches carry it in the immediate */
    tgt := int(ins.Imm)
    self.check(tgt < nb, bb.Id, id, "branch target bb_%d out of range", tgt)
    if ins.Op == isa.OP_s_branch {
        self.check(len(succs) == 1 && succs[0] == tgt, bb.Id, id, "s_branch to bb_%d does not match linear successors {%s}", tgt, blocklist(succs))
    } else {
        self.check(len(succs) == 2 && succs[1] == tgt, bb.Id, id, "%s to bb_%d does not match linear successors {%s}", ins.Op, tgt, blocklist(succs))
    }
}

func (self *_Validator) block(bb *Block) {
    self.edges(bb, Linear)
    self.edges(bb, Logical)

    /* check every instruction */
    for i, id := range bb.Ins {
        if id < 0 || id >= len(self.p.instrs) {
            self.check(false, bb.Id, id, "instruction id out of range")
            continue
        }
        ins := &self.p.instrs[id]
        if !ins.Op.Valid() {
            self.check(false, bb.Id, id, "invalid opcode %d", uint16(ins.Op))
            continue
        }
        if ins.IsBranch() {
            self.check(i == len(bb.Ins) - 1, bb.Id, id, "branch is not the last instruction")
            self.branch(bb, id, ins)
        }
    }

    /* multiple successors require an explicit branch */
    if len(bb.linear.succs) > 1 {
        last := self.p.Last(bb.Id)
        self.check(last != nil && last.IsBranch(), bb.Id, -1, "%d linear successors but no branch", len(bb.linear.succs))
    }

    /* blocks without successors end the program, unless they are detached */
    if len(bb.linear.succs) == 0 && !bb.Kind.Has(BlockEndWithRegs) && (bb.Id == 0 || len(bb.linear.preds) != 0 || len(bb.Ins) != 0) {
        last := self.p.Last(bb.Id)
        self.check(last != nil && (last.Op == isa.OP_s_endpgm || last.Op == isa.OP_s_setpc_b64), bb.Id, -1, "no linear successors but does not end the program")
    }
}

// Validate checks the structural invariants the branch lowering relies on.
// It returns nil or a *ValidationError.
func Validate(p *Program) error {
    v := _Validator { p: p }
    for i := range p.blocks {
        if p.blocks[i].Id != i {
            v.check(false, i, -1, "block id bb_%d does not match its position", p.blocks[i].Id)
            continue
        }
        v.block(&p.blocks[i])
    }
    if len(v.errs) == 0 {
        return nil
    } else {
        return &ValidationError { Problems: v.errs }
    }
}
