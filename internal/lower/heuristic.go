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
    `github.com/cloudwego/brlower/internal/opts`
)

// IsUniform reports whether the branch takes the same direction for every
// active lane, that is, anything other than a conditional branch on exec.
func IsUniform(br *ir.Instr) bool {
    return !br.Op.IsConditionalBranch() || br.Tested() != isa.Exec
}

// Decide determines whether the pseudo branch br, terminating block bb, may
// be replaced by falling through into the blocks it would have skipped.
func Decide(p *ir.Program, o *opts.Options, bb int, br *ir.Instr) (Verdict, Reason) {
    tgt := br.Br.Target
    uni := IsUniform(br)

    /* the condition is statically false */
    if br.Br.NeverTaken {
        if uni && !p.RangeEmpty(bb, tgt) {
            fatalf(bb, br, "never-taken uniform branch skips non-empty blocks")
        }
        return Remove, ReasonNeverTaken
    }

    /* loops are kept, the back-edge is how they repeat */
    if tgt <= bb {
        return Keep, ReasonBackEdge
    }

    /* scan the skipped range */
    ns := 0
    nv := 0
    cm := p.Gfx.Cost()
    prefer := br.Br.RarelyTaken || o.PreferRemove

    /* uniform branches must not execute code they would have skipped */
    for i := bb + 1; i < tgt; i++ {
        blk := p.Block(i)
        if uni && !blk.Empty() {
            return Keep, ReasonUniformSkipsCode
        }

        /* check every instruction in the block */
        for _, id := range blk.Ins {
            ins := p.Instr(id)
            cat := ins.Category()

            /* classify the instruction */
            switch {
                case cat == isa.CatSOPP: {
                    if isBenignControl(p, blk, ins) {
                        continue
                    } else {
                        return Keep, ReasonControlFlow
                    }
                }

                /* scalar ALU, executed regardless of exec */
                case cat == isa.CatSALU: {
                    ns++
                }

                /* vector ALU, lane-indexed writes ignore exec */
                case cat.IsVector(): {
                    if ins.Op.IsLaneIndexedWrite() {
                        return Keep, ReasonLaneWrite
                    }

                    /* the VALU also writes to the scalar file on newer chips */
                    nv++
                    if cm.VectorWritesScalar {
                        for _, d := range ins.Defs {
                            if d.Rc.Type() == isa.RegSGPR {
                                ns++
                            }
                        }
                    }
                }

                /* exports, scalar loads and barriers are unsafe with an empty exec */
                case cat == isa.CatEXP, cat == isa.CatSMEM, cat == isa.CatBarrier: {
                    return Keep, ReasonUnsafe
                }

                /* vector memory is slow even if masked off */
                case cat.IsVectorMemory(): {
                    if !prefer {
                        return Keep, ReasonVectorMemory
                    }
                }

                /* debug info is free */
                case cat == isa.CatDebugInfo: {
                    break
                }

                /* everything else should have been lowered already */
                default: {
                    fatalf(i, ins, "unexpected %s instruction in skipped range", cat)
                }
            }

            /* check the budget after every instruction */
            if !prefer && cm.Estimate(ns, nv) > o.SkipBudget {
                return Keep, ReasonTooExpensive
            }
        }
    }

    /* cheap enough to run with an empty exec */
    return Remove, ReasonCheap
}

// isBenignControl reports whether a control instruction in a skipped block
// keeps the fall-through semantics when the enclosing branch is removed.
func isBenignControl(p *ir.Program, blk *ir.Block, ins *ir.Instr) bool {
    switch ins.Op {
        case isa.OP_s_cbranch_scc0   : break
        case isa.OP_s_cbranch_scc1   : break
        case isa.OP_s_cbranch_execz  : break
        case isa.OP_s_cbranch_execnz : break
        default                      : return false
    }

    /* break and continue blocks jump out of the loop */
    if blk.Kind.Has(ir.BlockBreak | ir.BlockContinue) {
        return true
    }

    /* so does the jump to the discard early exit */
    if tgt := int(ins.Imm); tgt < p.NumBlocks() {
        return p.Block(tgt).Kind.Has(ir.BlockDiscardEarlyExit)
    } else {
        return false
    }
}
