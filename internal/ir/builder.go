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

    `github.com/cloudwego/brlower/internal/isa`
)

// Hint carries the static branch hints produced by divergence analysis.
type Hint uint8

const (
    HintNeverTaken Hint = 1 << iota
    HintRarelyTaken
)

type _PendingEdge struct {
    from int
    to   int
    view View
}

// Builder constructs a program block by block. Edges may refer to blocks
// that are created later; they are resolved by Build in the order they were
// declared, which also fixes the predecessor order.
type Builder struct {
    p     *Program
    bb    int
    edges []_PendingEdge
}

func CreateBuilder(gfx isa.GfxLevel, laneMask isa.RegClass) *Builder {
    return &Builder {
        p  : NewProgram(gfx, laneMask),
        bb : -1,
    }
}

// Block appends a new block and makes it the current one.
func (self *Builder) Block(kind BlockKind) int {
    self.bb = self.p.NewBlock(kind)
    return self.bb
}

// Current returns the id of the block instructions are appended to.
func (self *Builder) Current() int {
    if self.bb < 0 {
        panic("ir: builder has no current block")
    } else {
        return self.bb
    }
}

// Ins appends an instruction to the current block.
func (self *Builder) Ins(op isa.Opcode, defs []Definition, ops ...Operand) int {
    return self.p.Append(self.Current(), Instr {
        Op   : op,
        Defs : defs,
        Ops  : ops,
    })
}

// Jump terminates the current block with an unconditional pseudo branch.
func (self *Builder) Jump(target int, hint Hint) int {
    bb := self.Current()
    self.edges = append(self.edges, _PendingEdge { bb, target, Linear })
    return self.p.Append(bb, Instr {
        Op : isa.OP_p_branch,
        Br : newBranch(target, hint),
    })
}

// Branch terminates the current block with a conditional pseudo branch on reg
// (exec, vcc or scc). The linear successors become [next, target].
func (self *Builder) Branch(op isa.Opcode, reg isa.PhysReg, next int, target int, hint Hint) int {
    bb := self.Current()
    rc := self.p.LaneMask

    /* only conditional markers are accepted here */
    if !op.IsConditionalBranch() {
        panic("ir: not a conditional pseudo branch: " + op.String())
    }

    /* scc is a single bit */
    if reg == isa.SCC {
        rc = isa.S1
    }

    /* record both successors */
    self.edges = append(self.edges,
        _PendingEdge { bb, next, Linear },
        _PendingEdge { bb, target, Linear },
    )

    /* emit the marker */
    return self.p.Append(bb, Instr {
        Op  : op,
        Ops : []Operand { Reg(reg, rc) },
        Br  : newBranch(target, hint),
    })
}

// Terminate appends an arbitrary terminator, such as a hardware branch or
// s_endpgm, and records linear edges to the given successors.
func (self *Builder) Terminate(ins Instr, succs ...int) int {
    bb := self.Current()
    for _, v := range succs {
        self.edges = append(self.edges, _PendingEdge { bb, v, Linear })
    }
    return self.p.Append(bb, ins)
}

// Fallthrough adds a linear edge without a branch marker.
func (self *Builder) Fallthrough(to int) {
    self.edges = append(self.edges, _PendingEdge { self.Current(), to, Linear })
}

// Logical adds logical edges from the current block.
func (self *Builder) Logical(to ...int) {
    for _, v := range to {
        self.edges = append(self.edges, _PendingEdge { self.Current(), v, Logical })
    }
}

// Edge adds an arbitrary edge.
func (self *Builder) Edge(from int, to int, v View) {
    self.edges = append(self.edges, _PendingEdge { from, to, v })
}

// Build resolves all pending edges and returns the program.
func (self *Builder) Build() *Program {
    nb := self.p.NumBlocks()

    /* add every edge */
    for _, e := range self.edges {
        if e.from >= nb || e.to < 0 || e.to >= nb {
            panic(fmt.Sprintf("ir: %s edge bb_%d -> bb_%d refers to a missing block", e.view, e.from, e.to))
        } else {
            self.p.AddEdge(e.from, e.to, e.view)
        }
    }

    /* the builder is single-use */
    p := self.p
    self.p, self.edges = nil, nil
    return p
}

func newBranch(target int, hint Hint) *Branch {
    return &Branch {
        Target      : target,
        NeverTaken  : hint & HintNeverTaken != 0,
        RarelyTaken : hint & HintRarelyTaken != 0,
    }
}

// Defs is a shorthand for building definition lists.
func Defs(defs ...Definition) []Definition {
    return defs
}
