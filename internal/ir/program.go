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

// BlockKind is a set of classification flags attached by instruction selection.
type BlockKind uint16

const (
    BlockUniform BlockKind = 1 << iota
    BlockTopLevel
    BlockLoopPreheader
    BlockLoopHeader
    BlockLoopExit
    BlockBreak
    BlockContinue
    BlockDiscardEarlyExit
    BlockBranch
    BlockMerge
    BlockInvert
    BlockExportEnd
    BlockUsesDiscard
    BlockEndWithRegs
)

var _KindNames = [...]string {
    "uniform",
    "top-level",
    "loop-preheader",
    "loop-header",
    "loop-exit",
    "break",
    "continue",
    "discard-early-exit",
    "branch",
    "merge",
    "invert",
    "export-end",
    "uses-discard",
    "end-with-regs",
}

func (self BlockKind) Has(k BlockKind) bool {
    return self & k != 0
}

func (self BlockKind) String() string {
    var buf []string
    for i, v := range _KindNames {
        if self & (1 << i) != 0 {
            buf = append(buf, v)
        }
    }
    return strings.Join(buf, ", ")
}

type _Edges struct {
    succs []int
    preds []int
}

// Block is a basic block. Its identity is its position in the program and
// never changes; a block removed from the CFG stays in place, empty.
type Block struct {
    Id      int
    Kind    BlockKind
    Ins     []int
    linear  _Edges
    logical _Edges
}

func (self *Block) edges(v View) *_Edges {
    switch v {
        case Linear  : return &self.linear
        case Logical : return &self.logical
        default      : panic(fmt.Sprintf("ir: invalid CFG view %d", v))
    }
}

// Succs returns the successors of the block in the given view. The returned
// slice belongs to the block and must not be modified; edges are changed only
// through the edge operations of Program.
func (self *Block) Succs(v View) []int {
    return self.edges(v).succs
}

// Preds returns the predecessors of the block in the given view. Same rules
// as Succs apply.
func (self *Block) Preds(v View) []int {
    return self.edges(v).preds
}

func (self *Block) Empty() bool {
    return len(self.Ins) == 0
}

// Program owns every block and instruction of one compiled routine. Blocks and
// instructions are referenced by their integer ids.
type Program struct {
    Gfx      isa.GfxLevel
    LaneMask isa.RegClass
    blocks   []Block
    instrs   []Instr
}

// NewProgram creates an empty program. The lane mask is isa.S2 for wave64 and
// isa.S1 for wave32.
func NewProgram(gfx isa.GfxLevel, laneMask isa.RegClass) *Program {
    if laneMask != isa.S1 && laneMask != isa.S2 {
        panic("ir: lane mask must be s1 or s2, got " + laneMask.String())
    }
    return &Program {
        Gfx      : gfx,
        LaneMask : laneMask,
    }
}

// WaveSize returns the number of lanes per wavefront.
func (self *Program) WaveSize() int {
    return 32 * self.LaneMask.Size()
}

func (self *Program) NumBlocks() int {
    return len(self.blocks)
}

// Block returns the block with the given id.
func (self *Program) Block(id int) *Block {
    if id < 0 || id >= len(self.blocks) {
        panic(fmt.Sprintf("ir: block id out of range: bb_%d (%d blocks)", id, len(self.blocks)))
    } else {
        return &self.blocks[id]
    }
}

// NewBlock appends a block and returns its id.
func (self *Program) NewBlock(kind BlockKind) int {
    id := len(self.blocks)
    self.blocks = append(self.blocks, Block { Id: id, Kind: kind })
    return id
}

// Instr returns the instruction with the given id. The pointer is valid until
// the next call to NewInstr.
func (self *Program) Instr(id int) *Instr {
    if id < 0 || id >= len(self.instrs) {
        panic(fmt.Sprintf("ir: instruction id out of range: %d", id))
    } else {
        return &self.instrs[id]
    }
}

// NewInstr stores an instruction in the arena without placing it in a block.
func (self *Program) NewInstr(ins Instr) int {
    self.instrs = append(self.instrs, ins)
    return len(self.instrs) - 1
}

// Append places a new instruction at the end of block bb.
func (self *Program) Append(bb int, ins Instr) int {
    id := self.NewInstr(ins)
    b := self.Block(bb)
    b.Ins = append(b.Ins, id)
    return id
}

// Last returns the last instruction of a block, or nil if the block is empty.
func (self *Program) Last(bb int) *Instr {
    if b := self.Block(bb); len(b.Ins) == 0 {
        return nil
    } else {
        return self.Instr(b.Ins[len(b.Ins) - 1])
    }
}

// First returns the first instruction of a block, or nil if the block is empty.
func (self *Program) First(bb int) *Instr {
    if b := self.Block(bb); len(b.Ins) == 0 {
        return nil
    } else {
        return self.Instr(b.Ins[0])
    }
}

// RangeEmpty reports whether every block strictly between lo and hi is empty.
func (self *Program) RangeEmpty(lo int, hi int) bool {
    for i := lo + 1; i < hi; i++ {
        if !self.Block(i).Empty() {
            return false
        }
    }
    return true
}

// Clone makes a deep copy of the program.
func (self *Program) Clone() *Program {
    ret := &Program {
        Gfx      : self.Gfx,
        LaneMask : self.LaneMask,
        blocks   : make([]Block, len(self.blocks)),
        instrs   : make([]Instr, len(self.instrs)),
    }

    /* copy every instruction */
    for i := range self.instrs {
        ret.instrs[i] = self.instrs[i].Clone()
    }

    /* copy every block and its edges */
    for i, bb := range self.blocks {
        ret.blocks[i] = Block {
            Id      : bb.Id,
            Kind    : bb.Kind,
            Ins     : append([]int(nil), bb.Ins...),
            linear  : _Edges { append([]int(nil), bb.linear.succs...), append([]int(nil), bb.linear.preds...) },
            logical : _Edges { append([]int(nil), bb.logical.succs...), append([]int(nil), bb.logical.preds...) },
        }
    }
    return ret
}
