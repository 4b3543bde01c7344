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

package isa

import (
    `fmt`
)

// Category is the coarse instruction class the branch lowering reasons about.
type Category uint8

const (
    CatSALU Category = iota
    CatSOPP
    CatSMEM
    CatVALU
    CatVINTRP
    CatVMEM
    CatFLAT
    CatDS
    CatLDSDIR
    CatEXP
    CatBarrier
    CatPseudoBranch
    CatPseudo
    CatDebugInfo
)

var _CatNames = [...]string {
    CatSALU         : "salu",
    CatSOPP         : "sopp",
    CatSMEM         : "smem",
    CatVALU         : "valu",
    CatVINTRP       : "vintrp",
    CatVMEM         : "vmem",
    CatFLAT         : "flat",
    CatDS           : "ds",
    CatLDSDIR       : "ldsdir",
    CatEXP          : "exp",
    CatBarrier      : "barrier",
    CatPseudoBranch : "pseudo_branch",
    CatPseudo       : "pseudo",
    CatDebugInfo    : "debug_info",
}

func (self Category) String() string {
    if int(self) < len(_CatNames) {
        return _CatNames[self]
    } else {
        return fmt.Sprintf("category?(%d)", uint8(self))
    }
}

// IsVector reports whether instructions of this class execute per lane.
func (self Category) IsVector() bool {
    return self == CatVALU || self == CatVINTRP
}

// IsVectorMemory reports whether the class accesses memory per lane.
func (self Category) IsVectorMemory() bool {
    switch self {
        case CatVMEM, CatFLAT, CatDS, CatLDSDIR : return true
        default                                 : return false
    }
}

type Opcode uint16

const (
    OP_invalid Opcode = iota

    /* pseudo instructions */
    OP_p_branch
    OP_p_cbranch_z
    OP_p_cbranch_nz
    OP_p_barrier
    OP_p_debug_info
    OP_p_parallelcopy

    /* program flow */
    OP_s_branch
    OP_s_cbranch_scc0
    OP_s_cbranch_scc1
    OP_s_cbranch_vccz
    OP_s_cbranch_vccnz
    OP_s_cbranch_execz
    OP_s_cbranch_execnz
    OP_s_nop
    OP_s_endpgm

    /* scalar ALU */
    OP_s_mov_b32
    OP_s_mov_b64
    OP_s_and_b32
    OP_s_and_b64
    OP_s_or_b64
    OP_s_andn2_b64
    OP_s_and_saveexec_b32
    OP_s_and_saveexec_b64
    OP_s_or_saveexec_b64
    OP_s_cmp_eq_u32
    OP_s_cmp_lg_u32
    OP_s_cselect_b32
    OP_s_add_u32
    OP_s_wqm_b64
    OP_s_setpc_b64

    /* scalar memory */
    OP_s_load_dword
    OP_s_buffer_load_dword

    /* vector ALU */
    OP_v_mov_b32
    OP_v_add_f32
    OP_v_mul_f32
    OP_v_cndmask_b32
    OP_v_cmp_eq_u32
    OP_v_cmp_lt_f32
    OP_v_add_co_u32
    OP_v_readlane_b32
    OP_v_readfirstlane_b32
    OP_v_writelane_b32
    OP_v_writelane_b32_e64

    /* interpolation */
    OP_v_interp_p1_f32

    /* vector memory, flat, LDS */
    OP_buffer_load_dword
    OP_buffer_store_dword
    OP_global_load_dword
    OP_global_store_dword
    OP_ds_read_b32
    OP_ds_write_b32
    OP_lds_param_load

    /* export */
    OP_exp

    _OP_count
)

const (
    _F_lane_indexed = 1 << iota
    _F_ignores_exec
)

type _OpInfo struct {
    name  string
    cat   Category
    flags uint8
}

var _OpTab = [_OP_count]_OpInfo {
    OP_invalid             : { "invalid"             , CatPseudo       , 0 },
    OP_p_branch            : { "p_branch"            , CatPseudoBranch , 0 },
    OP_p_cbranch_z         : { "p_cbranch_z"         , CatPseudoBranch , 0 },
    OP_p_cbranch_nz        : { "p_cbranch_nz"        , CatPseudoBranch , 0 },
    OP_p_barrier           : { "p_barrier"           , CatBarrier      , 0 },
    OP_p_debug_info        : { "p_debug_info"        , CatDebugInfo    , 0 },
    OP_p_parallelcopy      : { "p_parallelcopy"      , CatPseudo       , 0 },
    OP_s_branch            : { "s_branch"            , CatSOPP         , 0 },
    OP_s_cbranch_scc0      : { "s_cbranch_scc0"      , CatSOPP         , 0 },
    OP_s_cbranch_scc1      : { "s_cbranch_scc1"      , CatSOPP         , 0 },
    OP_s_cbranch_vccz      : { "s_cbranch_vccz"      , CatSOPP         , 0 },
    OP_s_cbranch_vccnz     : { "s_cbranch_vccnz"     , CatSOPP         , 0 },
    OP_s_cbranch_execz     : { "s_cbranch_execz"     , CatSOPP         , 0 },
    OP_s_cbranch_execnz    : { "s_cbranch_execnz"    , CatSOPP         , 0 },
    OP_s_nop               : { "s_nop"               , CatSOPP         , 0 },
    OP_s_endpgm            : { "s_endpgm"            , CatSOPP         , 0 },
    OP_s_mov_b32           : { "s_mov_b32"           , CatSALU         , 0 },
    OP_s_mov_b64           : { "s_mov_b64"           , CatSALU         , 0 },
    OP_s_and_b32           : { "s_and_b32"           , CatSALU         , 0 },
    OP_s_and_b64           : { "s_and_b64"           , CatSALU         , 0 },
    OP_s_or_b64            : { "s_or_b64"            , CatSALU         , 0 },
    OP_s_andn2_b64         : { "s_andn2_b64"         , CatSALU         , 0 },
    OP_s_and_saveexec_b32  : { "s_and_saveexec_b32"  , CatSALU         , 0 },
    OP_s_and_saveexec_b64  : { "s_and_saveexec_b64"  , CatSALU         , 0 },
    OP_s_or_saveexec_b64   : { "s_or_saveexec_b64"   , CatSALU         , 0 },
    OP_s_cmp_eq_u32        : { "s_cmp_eq_u32"        , CatSALU         , 0 },
    OP_s_cmp_lg_u32        : { "s_cmp_lg_u32"        , CatSALU         , 0 },
    OP_s_cselect_b32       : { "s_cselect_b32"       , CatSALU         , 0 },
    OP_s_add_u32           : { "s_add_u32"           , CatSALU         , 0 },
    OP_s_wqm_b64           : { "s_wqm_b64"           , CatSALU         , 0 },
    OP_s_setpc_b64         : { "s_setpc_b64"         , CatSALU         , 0 },
    OP_s_load_dword        : { "s_load_dword"        , CatSMEM         , 0 },
    OP_s_buffer_load_dword : { "s_buffer_load_dword" , CatSMEM         , 0 },
    OP_v_mov_b32           : { "v_mov_b32"           , CatVALU         , 0 },
    OP_v_add_f32           : { "v_add_f32"           , CatVALU         , 0 },
    OP_v_mul_f32           : { "v_mul_f32"           , CatVALU         , 0 },
    OP_v_cndmask_b32       : { "v_cndmask_b32"       , CatVALU         , 0 },
    OP_v_cmp_eq_u32        : { "v_cmp_eq_u32"        , CatVALU         , 0 },
    OP_v_cmp_lt_f32        : { "v_cmp_lt_f32"        , CatVALU         , 0 },
    OP_v_add_co_u32        : { "v_add_co_u32"        , CatVALU         , 0 },
    OP_v_readlane_b32      : { "v_readlane_b32"      , CatVALU         , _F_ignores_exec },
    OP_v_readfirstlane_b32 : { "v_readfirstlane_b32" , CatVALU         , 0 },
    OP_v_writelane_b32     : { "v_writelane_b32"     , CatVALU         , _F_ignores_exec | _F_lane_indexed },
    OP_v_writelane_b32_e64 : { "v_writelane_b32_e64" , CatVALU         , _F_ignores_exec | _F_lane_indexed },
    OP_v_interp_p1_f32     : { "v_interp_p1_f32"     , CatVINTRP       , 0 },
    OP_buffer_load_dword   : { "buffer_load_dword"   , CatVMEM         , 0 },
    OP_buffer_store_dword  : { "buffer_store_dword"  , CatVMEM         , 0 },
    OP_global_load_dword   : { "global_load_dword"   , CatFLAT         , 0 },
    OP_global_store_dword  : { "global_store_dword"  , CatFLAT         , 0 },
    OP_ds_read_b32         : { "ds_read_b32"         , CatDS           , 0 },
    OP_ds_write_b32        : { "ds_write_b32"        , CatDS           , 0 },
    OP_lds_param_load      : { "lds_param_load"      , CatLDSDIR       , 0 },
    OP_exp                 : { "exp"                 , CatEXP          , 0 },
}

var _OpNames map[string]Opcode

func init() {
    _OpNames = make(map[string]Opcode, len(_OpTab))
    for i, v := range _OpTab {
        _OpNames[v.name] = Opcode(i)
    }
}

// LookupOpcode finds an opcode by its mnemonic.
func LookupOpcode(name string) (Opcode, bool) {
    op, ok := _OpNames[name]
    return op, ok
}

func (self Opcode) Valid() bool {
    return self > OP_invalid && self < _OP_count
}

func (self Opcode) String() string {
    if self < _OP_count {
        return _OpTab[self].name
    } else {
        return fmt.Sprintf("op?(%d)", uint16(self))
    }
}

func (self Opcode) Category() Category {
    if self < _OP_count {
        return _OpTab[self].cat
    } else {
        panic(fmt.Sprintf("isa: invalid opcode %d", uint16(self)))
    }
}

// IsLaneIndexedWrite reports whether the instruction writes a lane selected by
// an operand rather than by the exec mask. Such writes to inactive lanes are
// undefined.
func (self Opcode) IsLaneIndexedWrite() bool {
    return self < _OP_count && _OpTab[self].flags & _F_lane_indexed != 0
}

// IgnoresExec reports whether a vector instruction runs regardless of exec.
func (self Opcode) IgnoresExec() bool {
    return self < _OP_count && _OpTab[self].flags & _F_ignores_exec != 0
}

// IsConditionalBranch reports whether op is a conditional pseudo branch.
func (self Opcode) IsConditionalBranch() bool {
    return self == OP_p_cbranch_z || self == OP_p_cbranch_nz
}
