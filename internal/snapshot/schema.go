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

// Package snapshot serializes programs with the Thrift binary protocol.
//
// The schema, in Thrift IDL:
//
//     struct Operand { 1: i16 reg, 2: byte rc, 3: bool konst, 4: i32 val }
//     struct Def     { 1: i16 reg, 2: byte rc }
//     struct Instr   {
//         1: string op, 2: list<Def> defs, 3: list<Operand> ops, 4: i32 imm,
//         5: optional i32 target, 6: bool never_taken, 7: bool rarely_taken,
//     }
//     struct Block   { 1: i32 kind, 2: list<Instr> ins, 3: list<i32> linear, 4: list<i32> logical }
//     struct Program { 1: string gfx, 2: byte lane_mask, 3: list<Block> blocks }
//
// Only successor lists are stored, predecessors are rebuilt in block order.
package snapshot

import (
    `fmt`
)

const (
    _F_operand_reg   int16 = 1
    _F_operand_rc    int16 = 2
    _F_operand_konst int16 = 3
    _F_operand_val   int16 = 4
)

const (
    _F_def_reg int16 = 1
    _F_def_rc  int16 = 2
)

const (
    _F_instr_op          int16 = 1
    _F_instr_defs        int16 = 2
    _F_instr_ops         int16 = 3
    _F_instr_imm         int16 = 4
    _F_instr_target      int16 = 5
    _F_instr_never_taken int16 = 6
    _F_instr_rarely      int16 = 7
)

const (
    _F_block_kind    int16 = 1
    _F_block_ins     int16 = 2
    _F_block_linear  int16 = 3
    _F_block_logical int16 = 4
)

const (
    _F_program_gfx       int16 = 1
    _F_program_lane_mask int16 = 2
    _F_program_blocks    int16 = 3
)

// FormatError is returned for snapshots that are well-formed Thrift but do not
// describe a program.
type FormatError struct {
    Block  int
    Reason string
}

func (self FormatError) Error() string {
    if self.Block < 0 {
        return fmt.Sprintf("snapshot: %s", self.Reason)
    } else {
        return fmt.Sprintf("snapshot: bb_%d: %s", self.Block, self.Reason)
    }
}

func formatError(bb int, format string, args ...interface{}) error {
    return FormatError {
        Block  : bb,
        Reason : fmt.Sprintf(format, args...),
    }
}
