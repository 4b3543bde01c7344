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

// Package progen generates random, structurally valid programs ready for
// branch lowering.
package progen

import (
    `math/rand`

    `github.com/brianvoe/gofakeit/v6`

    `github.com/cloudwego/brlower/internal/ir`
    `github.com/cloudwego/brlower/internal/isa`
)

// Config controls the shape of generated programs.
type Config struct {
    Blocks   int
    MaxIns   int
    Gfx      isa.GfxLevel
    LaneMask isa.RegClass
}

// DefaultConfig is a medium-sized wave64 program for GFX10.
var DefaultConfig = Config {
    Blocks   : 16,
    MaxIns   : 4,
    Gfx      : isa.GFX10,
    LaneMask : isa.S2,
}

type _Generator struct {
    f   *gofakeit.Faker
    b   *ir.Builder
    cfg Config
    hdr []int
}

// Generate builds a random program. The same seed and config always produce
// the same program.
func Generate(seed int64, cfg Config) *ir.Program {
    if cfg.Blocks < 2 {
        cfg.Blocks = 2
    }

    /* create the generator */
    g := &_Generator {
        f   : gofakeit.NewCustom(rand.NewSource(seed).(rand.Source64)),
        b   : ir.CreateBuilder(cfg.Gfx, cfg.LaneMask),
        cfg : cfg,
    }

    /* every block but the last has a successor */
    for i := 0; i < cfg.Blocks - 1; i++ {
        g.b.Block(g.kind(i))
        g.body()
        g.terminate(i)
    }

    /* the exit block */
    g.b.Block(ir.BlockTopLevel | g.exitKind())
    g.body()
    g.exit()

    /* mark the loop headers */
    p := g.b.Build()
    for _, v := range g.hdr {
        p.Block(v).Kind |= ir.BlockLoopHeader
    }
    return p
}

func (self *_Generator) chance(pct int) bool {
    return self.f.IntRange(0, 99) < pct
}

func (self *_Generator) kind(i int) (k ir.BlockKind) {
    if i == 0 || self.chance(30) { k |= ir.BlockTopLevel }
    if self.chance(30)           { k |= ir.BlockUniform }
    if self.chance(10)           { k |= ir.BlockLoopPreheader }
    if self.chance(5)            { k |= ir.BlockBreak }
    if self.chance(5)            { k |= ir.BlockContinue }
    if self.chance(5)            { k |= ir.BlockDiscardEarlyExit }
    return
}

func (self *_Generator) exitKind() ir.BlockKind {
    if self.chance(15) {
        return ir.BlockEndWithRegs
    } else {
        return ir.BlockExportEnd
    }
}

func (self *_Generator) body() {
    n := self.f.IntRange(0, self.cfg.MaxIns)
    for i := 0; i < n; i++ {
        self.ins()
    }
}

func (self *_Generator) terminate(i int) {
    last := self.cfg.Blocks - 1
    next := i + 1

    /* pick the terminator */
    switch r := self.f.IntRange(0, 99); {
        case r < 25: {
            self.b.Fallthrough(next)
            self.logical(next)
        }

        /* unconditional forward jump */
        case r < 50: {
            tgt := self.f.IntRange(next, last)
            self.b.Jump(tgt, 0)
            self.logical(tgt)
        }

        /* conditional forward jump, skipping at least one block */
        case r < 88 && next < last: {
            tgt := self.f.IntRange(next + 1, last)
            reg, hint := self.condition(true)
            self.b.Branch(self.polarity(), reg, next, tgt, hint)
            self.logical(next, tgt)
        }

        /* conditional back-edge */
        default: {
            tgt := self.f.IntRange(0, i)
            reg, hint := self.condition(false)
            self.b.Branch(self.polarity(), reg, next, tgt, hint)
            self.logical(next, tgt)
            self.hdr = append(self.hdr, tgt)
        }
    }
}

func (self *_Generator) polarity() isa.Opcode {
    if self.f.Bool() {
        return isa.OP_p_cbranch_z
    } else {
        return isa.OP_p_cbranch_nz
    }
}

func (self *_Generator) condition(forward bool) (reg isa.PhysReg, hint ir.Hint) {
    switch self.f.IntRange(0, 2) {
        case 0  : reg = isa.Exec
        case 1  : reg = isa.VCC
        default : reg = isa.SCC
    }

    /* only divergent forward branches can be statically never taken */
    if forward && reg == isa.Exec && self.chance(15) {
        hint |= ir.HintNeverTaken
    }

    /* rarely taken is just a hint */
    if self.chance(15) {
        hint |= ir.HintRarelyTaken
    }
    return
}

// logical mirrors the linear successors, or occasionally leaves the block
// without logical successors.
func (self *_Generator) logical(succs ...int) {
    switch {
        case self.chance(10)                    : return
        case len(succs) == 2 && self.chance(30) : self.b.Logical(succs[0])
        default                                 : self.b.Logical(succs...)
    }
}

func (self *_Generator) exit() {
    if self.chance(10) {
        self.b.Terminate(ir.Instr {
            Op  : isa.OP_s_setpc_b64,
            Ops : []ir.Operand { ir.Reg(isa.SGPR(0), isa.S2) },
        })
    } else {
        self.b.Terminate(ir.Instr { Op: isa.OP_s_endpgm })
    }
}
