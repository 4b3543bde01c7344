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
    `testing`

    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`

    `github.com/cloudwego/brlower/internal/ir`
    `github.com/cloudwego/brlower/internal/isa`
)

var (
    sccDef   = ir.Def(isa.SCC, isa.S1)
    sccUse   = ir.Reg(isa.SCC, isa.S1)
    execDef  = ir.Def(isa.Exec, isa.S2)
    execUse  = ir.Reg(isa.Exec, isa.S2)
    saved    = ir.Reg(isa.SGPR(2), isa.S2)
    restored = ir.Reg(isa.SGPR(4), isa.S2)
)

/* bb_0 runs body, then falls into bb_1 which overwrites exec before using it */
func overwritten(kind ir.BlockKind, body func(b *ir.Builder)) *ir.Program {
    b := ir.CreateBuilder(isa.GFX10, isa.S2)
    b.Block(ir.BlockTopLevel)
    valu(b)
    body(b)
    b.Fallthrough(1)
    b.Logical(1)
    b.Block(ir.BlockTopLevel | kind)
    b.Ins(isa.OP_s_mov_b64, ir.Defs(execDef), restored)
    valu(b)
    endpgm(b)
    return b.Build()
}

func TestExec_DeadWrite(t *testing.T) {
    p := overwritten(0, func(b *ir.Builder) {
        b.Ins(isa.OP_s_mov_b64, ir.Defs(execDef), saved)
    })
    rp := run(t, p)
    require.Len(t, rp.DeadWrites, 1)
    assert.Equal(t, DeadWrite {
        Block : 0,
        Pos   : 1,
        Next  : 1,
        Instr : ir.Instr { Op: isa.OP_s_mov_b64, Defs: ir.Defs(execDef), Ops: []ir.Operand { saved } },
    }, rp.DeadWrites[0])
    require.Len(t, p.Block(0).Ins, 1)
    assert.Equal(t, isa.OP_v_add_f32, p.Last(0).Op)

    /* the overwrite in bb_1 is needed by the VALU after it */
    assert.Equal(t, isa.OP_s_mov_b64, p.First(1).Op)
}

func TestExec_DeadWriteWithDeadScc(t *testing.T) {
    p := overwritten(0, func(b *ir.Builder) {
        b.Ins(isa.OP_s_or_b64, ir.Defs(execDef, sccDef), execUse, restored)
    })
    rp := run(t, p)
    require.Len(t, rp.DeadWrites, 1)
    assert.Equal(t, isa.OP_s_or_b64, rp.DeadWrites[0].Instr.Op)
}

func TestExec_LiveSccKeepsWrite(t *testing.T) {
    p := overwritten(0, func(b *ir.Builder) {
        b.Ins(isa.OP_s_or_b64, ir.Defs(execDef, sccDef), execUse, restored)
        b.Ins(isa.OP_s_cselect_b32, ir.Defs(ir.Def(isa.SGPR(8), isa.S1)), s6, ir.Const(0), sccUse)
    })
    rp := run(t, p)
    assert.Empty(t, rp.DeadWrites)
    require.Len(t, p.Block(0).Ins, 3)

    /* kept as a whole, both definitions */
    ins := p.Instr(p.Block(0).Ins[1])
    assert.Equal(t, isa.OP_s_or_b64, ins.Op)
    assert.Equal(t, ir.Defs(execDef, sccDef), ins.Defs)
}

func TestExec_SccReadBySuccessor(t *testing.T) {
    b := ir.CreateBuilder(isa.GFX10, isa.S2)
    b.Block(ir.BlockTopLevel)
    valu(b)
    b.Ins(isa.OP_s_or_b64, ir.Defs(execDef, sccDef), execUse, restored)
    b.Fallthrough(1)
    b.Logical(1)
    b.Block(ir.BlockTopLevel)
    b.Ins(isa.OP_s_cselect_b32, ir.Defs(ir.Def(isa.SGPR(8), isa.S1)), s6, ir.Const(0), sccUse)
    b.Ins(isa.OP_s_mov_b64, ir.Defs(execDef), restored)
    valu(b)
    endpgm(b)
    p := b.Build()
    rp := run(t, p)

    /* exec is dead at the end of bb_0, but scc is not */
    assert.Empty(t, rp.DeadWrites)
    require.Len(t, p.Block(0).Ins, 2)
    assert.Equal(t, isa.OP_s_or_b64, p.Last(0).Op)
}

func TestExec_SccAcrossBackEdge(t *testing.T) {
    b := ir.CreateBuilder(isa.GFX10, isa.S2)
    b.Block(ir.BlockTopLevel)
    valu(b)
    b.Fallthrough(1)
    b.Logical(1)
    b.Block(ir.BlockLoopHeader)
    valu(b)
    b.Ins(isa.OP_s_or_b64, ir.Defs(execDef, sccDef), execUse, restored)
    b.Ins(isa.OP_s_mov_b64, ir.Defs(execDef), saved)
    b.Branch(isa.OP_p_cbranch_nz, isa.VCC, 2, 1, 0)
    b.Logical(2, 1)
    b.Block(ir.BlockTopLevel)
    endpgm(b)
    p := b.Build()
    rp := run(t, p)

    /* bb_1 has not been looked at when its own back-edge is, so scc may be read there */
    assert.Empty(t, rp.DeadWrites)
    assert.Len(t, p.Block(1).Ins, 4)
}

func TestExec_SccRedefinedBeforeUse(t *testing.T) {
    p := overwritten(0, func(b *ir.Builder) {
        b.Ins(isa.OP_s_or_b64, ir.Defs(execDef, sccDef), execUse, restored)
        b.Ins(isa.OP_s_cmp_eq_u32, ir.Defs(sccDef), s6, ir.Const(0))
        b.Ins(isa.OP_s_cselect_b32, ir.Defs(ir.Def(isa.SGPR(8), isa.S1)), s6, ir.Const(0), sccUse)
    })
    rp := run(t, p)
    require.Len(t, rp.DeadWrites, 1)
    assert.Equal(t, 1, rp.DeadWrites[0].Pos)
    assert.Equal(t, 1, rp.DeadWrites[0].Next)
    assert.Equal(t, isa.OP_s_cmp_eq_u32, p.Instr(p.Block(0).Ins[1]).Op)
}

func TestExec_SavedCopyKeepsWrite(t *testing.T) {
    p := overwritten(0, func(b *ir.Builder) {
        b.Ins(isa.OP_s_and_saveexec_b64, ir.Defs(ir.Def(isa.SGPR(2), isa.S2), sccDef, execDef), ir.Reg(isa.VCC, isa.S2), execUse)
    })
    rp := run(t, p)
    assert.Empty(t, rp.DeadWrites)
    assert.Equal(t, isa.OP_s_and_saveexec_b64, p.Last(0).Op)
}

func TestExec_DebugInfoDoesNotReadExec(t *testing.T) {
    p := overwritten(0, func(b *ir.Builder) {
        b.Ins(isa.OP_s_mov_b64, ir.Defs(execDef), saved)
        b.Ins(isa.OP_p_debug_info, nil)
    })
    rp := run(t, p)
    require.Len(t, rp.DeadWrites, 1)
    assert.Equal(t, isa.OP_p_debug_info, p.Last(0).Op)
}

func TestExec_UsedBeforeOverwrite(t *testing.T) {
    p := overwritten(0, func(b *ir.Builder) {
        b.Ins(isa.OP_s_mov_b64, ir.Defs(execDef), saved)
        valu(b)
    })
    rp := run(t, p)
    assert.Empty(t, rp.DeadWrites)
    assert.Len(t, p.Block(0).Ins, 3)
}

func TestExec_PartialWriteIsNotTracked(t *testing.T) {
    p := overwritten(0, func(b *ir.Builder) {
        b.Ins(isa.OP_s_mov_b32, ir.Defs(ir.Def(isa.Exec, isa.S1)), s6)
    })
    rp := run(t, p)
    assert.Empty(t, rp.DeadWrites)
    assert.Equal(t, isa.OP_s_mov_b32, p.Last(0).Op)
}

func TestExec_Wave32(t *testing.T) {
    b := ir.CreateBuilder(isa.GFX10_3, isa.S1)
    b.Block(ir.BlockTopLevel)
    b.Ins(isa.OP_s_mov_b32, ir.Defs(ir.Def(isa.Exec, isa.S1)), s6)
    b.Ins(isa.OP_s_mov_b32, ir.Defs(ir.Def(isa.Exec, isa.S1)), ir.Reg(isa.SGPR(7), isa.S1))
    valu(b)
    endpgm(b)
    p := b.Build()
    rp := run(t, p)
    require.Len(t, rp.DeadWrites, 1)
    assert.Equal(t, 0, rp.DeadWrites[0].Pos)
    assert.Equal(t, 0, rp.DeadWrites[0].Next)
    assert.Len(t, p.Block(0).Ins, 3)
}

func TestExec_ProgramEnds(t *testing.T) {
    /* exec is handed over to the next part */
    p := overwritten(ir.BlockEndWithRegs, func(b *ir.Builder) {})
    p.Block(1).Ins = p.Block(1).Ins[:1]
    rp := run(t, p)
    assert.Empty(t, rp.DeadWrites)
    assert.Len(t, p.Block(1).Ins, 1)

    /* so it is through an indirect jump */
    b := ir.CreateBuilder(isa.GFX10, isa.S2)
    b.Block(ir.BlockTopLevel)
    b.Ins(isa.OP_s_mov_b64, ir.Defs(execDef), saved)
    b.Terminate(ir.Instr { Op: isa.OP_s_setpc_b64, Ops: []ir.Operand { ir.Reg(isa.SGPR(0), isa.S2) } })
    p = b.Build()
    rp = run(t, p)
    assert.Empty(t, rp.DeadWrites)

    /* but not by a plain end */
    b = ir.CreateBuilder(isa.GFX10, isa.S2)
    b.Block(ir.BlockTopLevel)
    b.Ins(isa.OP_s_mov_b64, ir.Defs(execDef), saved)
    endpgm(b)
    p = b.Build()
    rp = run(t, p)
    assert.Len(t, rp.DeadWrites, 1)
    assert.Nil(t, p.First(0).Br)
    assert.Equal(t, isa.OP_s_endpgm, p.First(0).Op)
}

func TestExec_LoopIsConservative(t *testing.T) {
    b := ir.CreateBuilder(isa.GFX10, isa.S2)
    b.Block(ir.BlockLoopHeader)
    valu(b)
    b.Ins(isa.OP_s_mov_b64, ir.Defs(execDef), saved)
    b.Branch(isa.OP_p_cbranch_nz, isa.SCC, 1, 0, 0)
    b.Block(ir.BlockTopLevel)
    b.Ins(isa.OP_s_mov_b64, ir.Defs(execDef), restored)
    endpgm(b)
    p := b.Build()
    rp := run(t, p)

    /* bb_0 is assumed to need exec when its own back-edge is analyzed */
    require.Len(t, rp.DeadWrites, 1)
    assert.Equal(t, 1, rp.DeadWrites[0].Block)
    assert.Len(t, p.Block(0).Ins, 3)
    assert.Equal(t, isa.OP_s_cbranch_scc1, p.Last(0).Op)
}

func TestExec_BranchReadsExec(t *testing.T) {
    b := ir.CreateBuilder(isa.GFX10, isa.S2)
    b.Block(ir.BlockTopLevel)
    b.Ins(isa.OP_s_mov_b64, ir.Defs(execDef), saved)
    b.Branch(isa.OP_p_cbranch_z, isa.Exec, 1, 2, 0)
    b.Block(0)
    b.Ins(isa.OP_exp, nil, v0)
    b.Fallthrough(2)
    b.Block(ir.BlockTopLevel)
    endpgm(b)
    p := b.Build()
    rp := run(t, p)

    /* the kept branch tests exec */
    assert.Empty(t, rp.DeadWrites)
    assert.Equal(t, isa.OP_s_cbranch_execz, p.Last(0).Op)
    assert.True(t, p.Last(0).NeedsExec())
}
