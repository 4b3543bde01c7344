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

// CostModel holds the per-generation weights used to estimate how many cycles
// a block costs when it runs with an empty exec mask instead of being skipped.
type CostModel struct {
    Scalar int     // cycles per scalar instruction
    Vector int     // cycles per vector instruction

    /* VALU instructions writing scalar registers execute even with exec = 0 */
    VectorWritesScalar bool
}

// DefaultSkipBudget is the estimated cycle count above which a forward branch
// is considered cheaper than running the skipped blocks.
const DefaultSkipBudget = 16

// Cost returns the cost model for the generation.
func (self GfxLevel) Cost() CostModel {
    if self >= GFX10 {
        return CostModel { Scalar: 2, Vector: 1, VectorWritesScalar: true }
    } else {
        return CostModel { Scalar: 4, Vector: 4 }
    }
}

// Estimate computes the estimated cycles for the given instruction counts.
func (self CostModel) Estimate(scalar int, vector int) int {
    return scalar * self.Scalar + vector * self.Vector
}
