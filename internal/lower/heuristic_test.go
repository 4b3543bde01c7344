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
    `github.com/cloudwego/brlower/internal/opts`
)

/* bb_0 branches over bb_1 to bb_2 */
func skipOver(gfx isa.GfxLevel, reg isa.PhysReg, hint ir.Hint, body func(b *ir.Builder)) *ir.Program {
    b := ir.CreateBuilder(gfx, isa.S2)
    b.Block(ir.BlockTopLevel)
    b.Branch(isa.OP_p_cbranch_z, reg, 1, 2, hint)
    b.Block(0)
    body(b)
    b.Fallthrough(2)
    b.Block(ir.BlockTopLevel)
    endpgm(b)
    return b.Build()
}

func vcmp(b *ir.Builder, n int) {
    for i := 0; i < n; i++ {
        b.Ins(isa.OP_v_cmp_lt_f32, ir.Defs(ir.Def(isa.VCC, isa.S2)), v0, v1)
    }
}

func TestDecide_Rules(t *testing.T) {
    tests := []struct {
        name    string
        gfx     isa.GfxLevel
        reg     isa.PhysReg
        hint    ir.Hint
        prefer  bool
        body    func(b *ir.Builder)
        verdict Verdict
        reason  Reason
    }{
        { "cheap scalar"          , isa.GFX10, isa.Exec, 0, false, func(b *ir.Builder) { salu(b, 2) }, Remove, ReasonCheap },
        { "uniform over code"     , isa.GFX10, isa.SCC , 0, false, func(b *ir.Builder) { salu(b, 2) }, Keep, ReasonUniformSkipsCode },
        { "uniform over vcc"      , isa.GFX10, isa.VCC , 0, false, func(b *ir.Builder) { salu(b, 1) }, Keep, ReasonUniformSkipsCode },
        { "uniform over nothing"  , isa.GFX10, isa.SCC , 0, false, func(b *ir.Builder) {}, Remove, ReasonCheap },
        { "export"                , isa.GFX10, isa.Exec, 0, false, func(b *ir.Builder) { salu(b, 1); b.Ins(isa.OP_exp, nil, v0) }, Keep, ReasonUnsafe },
        { "export rarely taken"   , isa.GFX10, isa.Exec, ir.HintRarelyTaken, false, func(b *ir.Builder) { b.Ins(isa.OP_exp, nil, v0) }, Keep, ReasonUnsafe },
        { "scalar load"           , isa.GFX10, isa.Exec, 0, false, func(b *ir.Builder) { b.Ins(isa.OP_s_load_dword, ir.Defs(ir.Def(isa.SGPR(8), isa.S1)), ir.Reg(isa.SGPR(0), isa.S2)) }, Keep, ReasonUnsafe },
        { "barrier"               , isa.GFX10, isa.Exec, 0, false, func(b *ir.Builder) { b.Ins(isa.OP_p_barrier, nil) }, Keep, ReasonUnsafe },
        { "gfx9 scalar"           , isa.GFX9 , isa.Exec, 0, false, func(b *ir.Builder) { salu(b, 5) }, Keep, ReasonTooExpensive },
        { "gfx10 scalar"          , isa.GFX10, isa.Exec, 0, false, func(b *ir.Builder) { salu(b, 5) }, Remove, ReasonCheap },
        { "at budget"             , isa.GFX10, isa.Exec, 0, false, func(b *ir.Builder) { salu(b, 8) }, Remove, ReasonCheap },
        { "over budget"           , isa.GFX10, isa.Exec, 0, false, func(b *ir.Builder) { salu(b, 9) }, Keep, ReasonTooExpensive },
        { "valu writes sgpr"      , isa.GFX10, isa.Exec, 0, false, func(b *ir.Builder) { vcmp(b, 6) }, Keep, ReasonTooExpensive },
        { "valu writes sgpr cheap", isa.GFX10, isa.Exec, 0, false, func(b *ir.Builder) { vcmp(b, 5) }, Remove, ReasonCheap },
        { "gfx9 valu"             , isa.GFX9 , isa.Exec, 0, false, func(b *ir.Builder) { vcmp(b, 5) }, Keep, ReasonTooExpensive },
        { "gfx9 valu cheap"       , isa.GFX9 , isa.Exec, 0, false, func(b *ir.Builder) { vcmp(b, 4) }, Remove, ReasonCheap },
        { "rarely taken ignores cost", isa.GFX9, isa.Exec, ir.HintRarelyTaken, false, func(b *ir.Builder) { salu(b, 20) }, Remove, ReasonCheap },
        { "writelane"             , isa.GFX10, isa.Exec, ir.HintRarelyTaken, false, func(b *ir.Builder) { b.Ins(isa.OP_v_writelane_b32, ir.Defs(ir.Def(isa.VGPR(3), isa.V1)), s6, ir.Const(1)) }, Keep, ReasonLaneWrite },
        { "vector memory"         , isa.GFX10, isa.Exec, 0, false, func(b *ir.Builder) { b.Ins(isa.OP_buffer_load_dword, ir.Defs(ir.Def(isa.VGPR(2), isa.V1)), v0) }, Keep, ReasonVectorMemory },
        { "lds"                   , isa.GFX10, isa.Exec, 0, false, func(b *ir.Builder) { b.Ins(isa.OP_ds_read_b32, ir.Defs(ir.Def(isa.VGPR(2), isa.V1)), v0) }, Keep, ReasonVectorMemory },
        { "vector memory rarely"  , isa.GFX10, isa.Exec, ir.HintRarelyTaken, false, func(b *ir.Builder) { b.Ins(isa.OP_global_load_dword, ir.Defs(ir.Def(isa.VGPR(2), isa.V1)), v0) }, Remove, ReasonCheap },
        { "vector memory preferred", isa.GFX10, isa.Exec, 0, true, func(b *ir.Builder) { b.Ins(isa.OP_buffer_store_dword, nil, v0, v1) }, Remove, ReasonCheap },
        { "nop"                   , isa.GFX10, isa.Exec, 0, false, func(b *ir.Builder) { b.Ins(isa.OP_s_nop, nil) }, Keep, ReasonControlFlow },
        { "debug info"            , isa.GFX10, isa.Exec, 0, false, func(b *ir.Builder) { b.Ins(isa.OP_p_debug_info, nil) }, Remove, ReasonCheap },
        { "never taken"           , isa.GFX10, isa.Exec, ir.HintNeverTaken, false, func(b *ir.Builder) { b.Ins(isa.OP_exp, nil, v0) }, Remove, ReasonNeverTaken },
        { "never taken uniform"   , isa.GFX10, isa.VCC , ir.HintNeverTaken, false, func(b *ir.Builder) {}, Remove, ReasonNeverTaken },
    }
    for _, tc := range tests {
        t.Run(tc.name, func(t *testing.T) {
            p := skipOver(tc.gfx, tc.reg, tc.hint, tc.body)
            o := opts.Options { SkipBudget: isa.DefaultSkipBudget, PreferRemove: tc.prefer }
            v, r := Decide(p, &o, 0, p.Last(0))
            assert.Equal(t, tc.verdict, v, "%s\n%s", r, p)
            assert.Equal(t, tc.reason, r, "%s", p)
        })
    }
}

func TestDecide_SkipBudgetOption(t *testing.T) {
    p := skipOver(isa.GFX10, isa.Exec, 0, func(b *ir.Builder) { salu(b, 2) })
    o := opts.Options { SkipBudget: 3 }
    v, r := Decide(p, &o, 0, p.Last(0))
    assert.Equal(t, Keep, v)
    assert.Equal(t, ReasonTooExpensive, r)
}

func TestDecide_BackEdge(t *testing.T) {
    b := ir.CreateBuilder(isa.GFX10, isa.S2)
    b.Block(ir.BlockLoopHeader)
    b.Branch(isa.OP_p_cbranch_nz, isa.Exec, 1, 0, ir.HintRarelyTaken)
    b.Block(ir.BlockTopLevel)
    endpgm(b)
    p := b.Build()
    o := opts.GetDefaultOptions()
    v, r := Decide(p, &o, 0, p.Last(0))
    assert.Equal(t, Keep, v)
    assert.Equal(t, ReasonBackEdge, r)

    /* the hint wins over the loop */
    p.Last(0).Br.NeverTaken = true
    v, r = Decide(p, &o, 0, p.Last(0))
    assert.Equal(t, Remove, v)
    assert.Equal(t, ReasonNeverTaken, r)
}

func TestDecide_Fatal(t *testing.T) {
    o := opts.Options { SkipBudget: isa.DefaultSkipBudget }
    p := skipOver(isa.GFX10, isa.SCC, ir.HintNeverTaken, func(b *ir.Builder) { salu(b, 1) })
    assert.Panics(t, func() { Decide(p, &o, 0, p.Last(0)) })
    p = skipOver(isa.GFX10, isa.Exec, 0, func(b *ir.Builder) { b.Ins(isa.OP_p_parallelcopy, nil) })
    assert.Panics(t, func() { Decide(p, &o, 0, p.Last(0)) })
}

/* bb_0 branches over bb_1 (which may leave early) and bb_2 to bb_3 */
func earlyExit(kind ir.BlockKind, exit ir.BlockKind, op isa.Opcode) *ir.Program {
    b := ir.CreateBuilder(isa.GFX10, isa.S2)
    b.Block(ir.BlockTopLevel)
    b.Branch(isa.OP_p_cbranch_z, isa.Exec, 1, 3, 0)
    b.Block(kind)
    b.Terminate(ir.Instr { Op: op, Ops: []ir.Operand { ir.Reg(isa.Exec, isa.S2) }, Imm: 4 }, 2, 4)
    b.Block(0)
    valu(b)
    b.Fallthrough(3)
    b.Block(0)
    b.Fallthrough(4)
    b.Block(ir.BlockTopLevel | exit)
    endpgm(b)
    return b.Build()
}

func TestDecide_EarlyExits(t *testing.T) {
    o := opts.Options { SkipBudget: isa.DefaultSkipBudget }
    tests := []struct {
        name    string
        kind    ir.BlockKind
        exit    ir.BlockKind
        op      isa.Opcode
        verdict Verdict
    }{
        { "plain"    , 0                , 0                        , isa.OP_s_cbranch_execz , Keep   },
        { "break"    , ir.BlockBreak    , 0                        , isa.OP_s_cbranch_execz , Remove },
        { "continue" , ir.BlockContinue , 0                        , isa.OP_s_cbranch_execnz, Remove },
        { "discard"  , 0                , ir.BlockDiscardEarlyExit , isa.OP_s_cbranch_scc0  , Remove },
        { "vcc"      , ir.BlockBreak    , ir.BlockDiscardEarlyExit , isa.OP_s_cbranch_vccz  , Keep   },
        { "jump"     , ir.BlockBreak    , 0                        , isa.OP_s_branch        , Keep   },
    }
    for _, tc := range tests {
        t.Run(tc.name, func(t *testing.T) {
            p := earlyExit(tc.kind, tc.exit, tc.op)
            if tc.op == isa.OP_s_branch {
                p.RemoveEdge(1, 2, ir.Linear)
            }
            require.NoError(t, ir.Validate(p))
            v, _ := Decide(p, &o, 0, p.Last(0))
            assert.Equal(t, tc.verdict, v)
        })
    }
}

func TestEncode_Forms(t *testing.T) {
    tests := []struct {
        op  isa.Opcode
        reg isa.PhysReg
        hw  isa.Opcode
    }{
        { isa.OP_p_cbranch_nz , isa.Exec , isa.OP_s_cbranch_execnz },
        { isa.OP_p_cbranch_nz , isa.VCC  , isa.OP_s_cbranch_vccnz  },
        { isa.OP_p_cbranch_nz , isa.SCC  , isa.OP_s_cbranch_scc1   },
        { isa.OP_p_cbranch_z  , isa.Exec , isa.OP_s_cbranch_execz  },
        { isa.OP_p_cbranch_z  , isa.VCC  , isa.OP_s_cbranch_vccz   },
        { isa.OP_p_cbranch_z  , isa.SCC  , isa.OP_s_cbranch_scc0   },
    }
    for _, tc := range tests {
        ins := ir.Instr { Op: tc.op, Ops: []ir.Operand { ir.Reg(tc.reg, isa.S2) }, Br: &ir.Branch { Target: 1 } }
        op, ok := HardwareForm(&ins)
        require.True(t, ok)
        assert.Equal(t, tc.hw, op, "%s", &ins)
        assert.Equal(t, tc.op, Invert(Invert(tc.op)))
        assert.NotEqual(t, tc.op, Invert(tc.op))
    }

    /* unconditional and unsupported forms */
    op, ok := HardwareForm(&ir.Instr { Op: isa.OP_p_branch })
    assert.True(t, ok)
    assert.Equal(t, isa.OP_s_branch, op)
    _, ok = HardwareForm(&ir.Instr { Op: isa.OP_p_cbranch_z, Ops: []ir.Operand { ir.Reg(isa.M0, isa.S1) } })
    assert.False(t, ok)
    _, ok = HardwareForm(&ir.Instr { Op: isa.OP_s_endpgm })
    assert.False(t, ok)
    assert.Panics(t, func() { Invert(isa.OP_p_branch) })
}
