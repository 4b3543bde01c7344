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

package debug

import (
	"sync/atomic"

	"github.com/cloudwego/brlower/internal/lower"
)

// A Stats records cumulative statistics of the branch lowering pass.
type Stats struct {
	Programs int
	Branches BranchStats
	Blocks   BlockStats

	// ExecWrites is the number of exec writes deleted as dead.
	ExecWrites int
}

// A BranchStats records what happened to pseudo branches.
type BranchStats struct {
	Kept    int
	Removed int
}

// A BlockStats records blocks taken out of the control flow graph.
type BlockStats struct {
	Collapsed int
	Pruned    int
}

// GetStats returns statistics of every program lowered so far.
func GetStats() Stats {
	return Stats{
		Programs: int(atomic.LoadUint64(&lower.ProgramCount)),
		Branches: BranchStats{
			Kept:    int(atomic.LoadUint64(&lower.BranchesKept)),
			Removed: int(atomic.LoadUint64(&lower.BranchesRemoved)),
		},
		Blocks: BlockStats{
			Collapsed: int(atomic.LoadUint64(&lower.BlocksCollapsed)),
			Pruned:    int(atomic.LoadUint64(&lower.BlocksPruned)),
		},
		ExecWrites: int(atomic.LoadUint64(&lower.ExecWritesDeleted)),
	}
}
