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
    `context`
    `fmt`
    `sync/atomic`

    `github.com/nikandfor/tlog`

    `github.com/cloudwego/brlower/internal/ir`
    `github.com/cloudwego/brlower/internal/opts`
)

// Cumulative statistics, read by the debug package.
var (
    ProgramCount      uint64
    BranchesKept      uint64
    BranchesRemoved   uint64
    ExecWritesDeleted uint64
    BlocksCollapsed   uint64
    BlocksPruned      uint64
)

type _BranchCtx struct {
    p        *ir.Program
    tr       tlog.Span
    opts     opts.Options
    report   *Report
    execUsed []bool
    sccUsed  []bool
    retry    []int
}

func fatalf(bb int, ins *ir.Instr, format string, args ...interface{}) {
    if ins == nil {
        panic(fmt.Sprintf("lower: bb_%d: %s", bb, fmt.Sprintf(format, args...)))
    } else {
        panic(fmt.Sprintf("lower: bb_%d: %s: %s", bb, ins, fmt.Sprintf(format, args...)))
    }
}

func (self *_BranchCtx) trace(msg string, kvs ...interface{}) {
    if self.tr.If("brlower") {
        self.tr.Printw(msg, kvs...)
    }
}

func (self *_BranchCtx) decided(d *Decision) {
    self.report.Decisions = append(self.report.Decisions, *d)
    self.trace("branch", "block", d.Block, "op", d.Op, "target", d.Target, "verdict", d.Verdict, "reason", d.Reason)
}

func (self *_BranchCtx) deleted(bb int, pos int, next int, ins *ir.Instr) {
    self.report.DeadWrites = append(self.report.DeadWrites, DeadWrite {
        Block : bb,
        Pos   : pos,
        Next  : next,
        Instr : ins.Clone(),
    })
    self.trace("dead exec write", "block", bb, "pos", pos, "instr", ins.String())
}

func (self *_BranchCtx) collapsed(bb int, succ int) {
    self.report.Collapsed = append(self.report.Collapsed, Collapse { Block: bb, Succ: succ })
    self.trace("collapse", "block", bb, "succ", succ)
}

func (self *_BranchCtx) pruned(bb int) {
    self.report.Pruned = append(self.report.Pruned, bb)
    self.trace("prune", "block", bb)
}

// Run lowers every pseudo branch of the program into its final form, deletes
// dead exec writes and splices out blocks that only pass control through.
// Blocks are visited once, from the last to the first.
func Run(ctx context.Context, p *ir.Program, o opts.Options) *Report {
    tr, _ := tlog.SpawnFromContextAndWrap(ctx, "lower_branches", "blocks", p.NumBlocks(), "gfx", p.Gfx.String())
    defer tr.Finish()

    /* check the program first if asked */
    if o.Validate {
        if err := ir.Validate(p); err != nil {
            panic(err)
        }
    }

    /* exec and scc are conservatively assumed to be used everywhere */
    bc := &_BranchCtx {
        p        : p,
        tr       : tr,
        opts     : o,
        report   : new(Report),
        execUsed : make([]bool, p.NumBlocks()),
        sccUsed  : make([]bool, p.NumBlocks()),
    }

    /* initialize the exec and scc usage */
    for i := range bc.execUsed {
        bc.execUsed[i] = true
        bc.sccUsed[i] = true
    }

    /* blocks after the current one are final */
    for i := p.NumBlocks() - 1; i >= 0; i-- {
        bc.lowerBranch(i)
        bc.eliminateExecWrites(i)

        /* single successor, try removing the block */
        if len(p.Block(i).Succs(ir.Linear)) == 1 {
            bc.trySimplify(i)
        }

        /* blocks already visited may be removable now */
        bc.revisit(i)
    }

    /* update the statistics */
    rp := bc.report
    atomic.AddUint64(&ProgramCount, 1)
    atomic.AddUint64(&BranchesKept, uint64(rp.Count(Keep)))
    atomic.AddUint64(&BranchesRemoved, uint64(rp.Count(Remove)))
    atomic.AddUint64(&ExecWritesDeleted, uint64(len(rp.DeadWrites)))
    atomic.AddUint64(&BlocksCollapsed, uint64(len(rp.Collapsed)))
    atomic.AddUint64(&BlocksPruned, uint64(len(rp.Pruned)))

    /* all done */
    tr.Printw("done", "kept", rp.Count(Keep), "removed", rp.Count(Remove), "dead", len(rp.DeadWrites), "collapsed", len(rp.Collapsed), "pruned", len(rp.Pruned))
    return rp
}
