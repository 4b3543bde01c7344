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
    `fmt`

    `github.com/cloudwego/brlower/internal/ir`
    `github.com/cloudwego/brlower/internal/isa`
)

// Verdict is the outcome of the branch elimination heuristic.
type Verdict uint8

const (
    Keep Verdict = iota
    Remove
)

func (self Verdict) String() string {
    switch self {
        case Keep   : return "keep"
        case Remove : return "remove"
        default     : return fmt.Sprintf("verdict?(%d)", uint8(self))
    }
}

// Reason tells which rule of the heuristic produced the verdict.
type Reason uint8

const (
    ReasonNeverTaken Reason = iota
    ReasonBackEdge
    ReasonUniformSkipsCode
    ReasonControlFlow
    ReasonUnsafe
    ReasonLaneWrite
    ReasonVectorMemory
    ReasonTooExpensive
    ReasonCheap
)

var _ReasonNames = [...]string {
    ReasonNeverTaken       : "never taken",
    ReasonBackEdge         : "back-edge",
    ReasonUniformSkipsCode : "uniform branch skips code",
    ReasonControlFlow      : "control flow in range",
    ReasonUnsafe           : "export, smem or barrier in range",
    ReasonLaneWrite        : "lane-indexed write in range",
    ReasonVectorMemory     : "vector memory in range",
    ReasonTooExpensive     : "too expensive",
    ReasonCheap            : "cheap",
}

func (self Reason) String() string {
    if int(self) < len(_ReasonNames) {
        return _ReasonNames[self]
    } else {
        return fmt.Sprintf("reason?(%d)", uint8(self))
    }
}

// Decision records what happened to one pseudo branch.
type Decision struct {
    Block      int
    Op         isa.Opcode
    Target     int
    Uniform    bool
    NeverTaken bool
    Verdict    Verdict
    Reason     Reason
    Encoded    isa.Opcode   // hardware form, OP_invalid when removed
}

// DeadWrite records a deleted exec write. Pos is the index of the instruction
// in the block as it was before the deletion; Next is the index of the first
// surviving instruction after it in the final block.
type DeadWrite struct {
    Block int
    Pos   int
    Next  int
    Instr ir.Instr
}

// Collapse records a pass-through block spliced out of the CFG.
type Collapse struct {
    Block int
    Succ  int
}

// Report describes every change made by one run of the pass.
type Report struct {
    Decisions  []Decision
    DeadWrites []DeadWrite
    Collapsed  []Collapse
    Pruned     []int
}

// Count returns the number of branch decisions with the given verdict.
func (self *Report) Count(v Verdict) (n int) {
    for _, d := range self.Decisions {
        if d.Verdict == v {
            n++
        }
    }
    return
}

// Changed reports whether the pass modified the program: a pseudo branch was
// encoded or removed, an exec write was deleted or a block was taken out.
func (self *Report) Changed() bool {
    return len(self.Decisions) != 0 || len(self.DeadWrites) != 0 || len(self.Collapsed) != 0 || len(self.Pruned) != 0
}

func (self *Report) String() string {
    return fmt.Sprintf(
        "branches: %d kept, %d removed; exec writes deleted: %d; blocks collapsed: %d, pruned: %d",
        self.Count(Keep),
        self.Count(Remove),
        len(self.DeadWrites),
        len(self.Collapsed),
        len(self.Pruned),
    )
}
