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
    `github.com/oleiade/lane`

    `github.com/cloudwego/brlower/internal/ir`
    `github.com/cloudwego/brlower/internal/isa`
)

type _PredAction uint8

const (
    _A_jump _PredAction = iota
    _A_merge
    _A_taken
    _A_fallthrough
    _A_invert
    _A_plain
)

func (self _PredAction) String() string {
    switch self {
        case _A_jump        : return "jump"
        case _A_merge       : return "merge"
        case _A_taken       : return "taken"
        case _A_fallthrough : return "fallthrough"
        case _A_invert      : return "invert"
        case _A_plain       : return "plain"
        default             : panic("unreachable")
    }
}

// removeLinearSucc removes the linear edge from -> to, then empties and
// detaches every block that became unreachable because of it.
func (self *_BranchCtx) removeLinearSucc(from int, to int) {
    p := self.p
    q := lane.NewQueue()

    /* remove the edge, the entry block is always reachable */
    p.RemoveEdge(from, to, ir.Linear)
    self.lostPred(to, q)

    /* propagate to successors */
    for !q.Empty() {
        id := q.Dequeue().(int)
        bb := p.Block(id)
        bb.Ins = nil
        self.pruned(id)

        /* detach the block from the successors */
        for _, s := range append([]int(nil), bb.Succs(ir.Linear)...) {
            p.RemoveEdge(id, s, ir.Linear)
            self.lostPred(s, q)
        }
    }
}

// lostPred queues bb for pruning if nothing reaches it anymore, or for another
// simplification attempt otherwise.
func (self *_BranchCtx) lostPred(bb int, q *lane.Queue) {
    if bb == 0 || len(self.p.Block(bb).Preds(ir.Linear)) != 0 {
        self.retry = append(self.retry, bb)
    } else {
        q.Enqueue(bb)
    }
}

// revisit retries simplifying blocks after cur that lost a predecessor, or that
// cur now falls into. Predecessors that already went through the encoder are
// given a jump by the rewrite, so it is encoded here.
func (self *_BranchCtx) revisit(cur int) {
    p := self.p
    succ := p.Block(cur).Succs(ir.Linear)

    /* the block cur falls into */
    if len(succ) == 1 {
        self.retry = append(self.retry, succ[0])
    }

    /* try every candidate once */
    for len(self.retry) != 0 {
        bb := self.retry[0]
        self.retry = self.retry[1:]

        /* only blocks that were visited, with a single successor */
        if bb <= cur || len(p.Block(bb).Succs(ir.Linear)) != 1 {
            continue
        }

        /* splice it out */
        preds := append([]int(nil), p.Block(bb).Preds(ir.Linear)...)
        if !self.trySimplify(bb) {
            continue
        }

        /* encode the jumps added to visited predecessors */
        for _, v := range preds {
            if v >= cur {
                self.lowerBranch(v)
            }
        }
    }
}

// planPred decides how predecessor pred will be rewritten to bypass bb.
func (self *_BranchCtx) planPred(pred int, bb int, succ int) (_PredAction, bool) {
    p := self.p
    blk := p.Block(bb)
    ins := p.Last(pred)
    ps := p.Block(pred).Succs(ir.Linear)

    /* only forward edges into bb */
    if pred >= bb {
        return 0, false
    }

    /* plain fall-through */
    if ins == nil || !ins.IsBranch() {
        if len(ps) != 1 {
            fatalf(pred, ins, "%d linear successors but no branch", len(ps))
        }
        return _A_plain, true
    }

    /* branches that were already encoded can no longer be rewritten */
    if !ins.IsPseudoBranch() {
        return 0, false
    }

    /* unconditional jump */
    if ins.Op == isa.OP_p_branch {
        return _A_jump, true
    }

    /* both sides will lead to the successor */
    if ps[0] == succ || ps[1] == succ {
        return _A_merge, true
    }

    /* bb is the taken side */
    if ps[1] == bb {
        return _A_taken, true
    }

    /* bb is the fall-through side and has nothing in it */
    if blk.Empty() {
        return _A_fallthrough, true
    }

    /* the branch can be inverted if it's a jump over empty blocks only */
    if tgt := ps[1]; bb < tgt && p.RangeEmpty(bb, tgt) {
        return _A_invert, true
    } else {
        return 0, false
    }
}

// applyPred rewrites the edge pred -> bb into pred -> succ.
func (self *_BranchCtx) applyPred(pred int, bb int, succ int, act _PredAction) {
    p := self.p
    ins := p.Last(pred)

    /* rewrite the branch and the edge */
    switch act {
        case _A_jump, _A_taken: {
            p.RetargetSucc(pred, bb, succ, ir.Linear)
            ins.Br.Target = succ
        }

        /* the condition no longer matters */
        case _A_merge: {
            p.RetargetSucc(pred, bb, succ, ir.Linear)
            ins.Op = isa.OP_p_branch
            ins.Ops = nil
            ins.Br = &ir.Branch { Target: succ }
        }

        /* nothing in the branch refers to the fall-through block */
        case _A_fallthrough: {
            p.RetargetSucc(pred, bb, succ, ir.Linear)
        }

        /* jump to succ instead, fall through to the old target */
        case _A_invert: {
            p.RetargetSucc(pred, bb, succ, ir.Linear)
            p.SwapSuccs(pred, ir.Linear)
            ins.Op = Invert(ins.Op)
            ins.Br = &ir.Branch { Target: succ }
        }

        /* add a jump if bb is not going to be empty */
        case _A_plain: {
            if !p.Block(bb).Empty() {
                p.Append(pred, ir.Instr { Op: isa.OP_p_branch, Br: &ir.Branch { Target: succ } })
            }
            p.RetargetSucc(pred, bb, succ, ir.Linear)
        }

        /* should never happen */
        default: {
            panic("unreachable")
        }
    }
}

// trySimplify splices a block that does nothing except pass control to its
// only linear successor out of both CFG views.
func (self *_BranchCtx) trySimplify(bb int) bool {
    p := self.p
    blk := p.Block(bb)

    /* the block must be empty, or only contain a jump */
    if !blk.Empty() {
        if ins := p.First(bb); len(blk.Ins) != 1 || ins.Op != isa.OP_s_branch {
            return false
        }
    }

    /* loop pre-headers are kept for later passes */
    if blk.Kind.Has(ir.BlockLoopPreheader) {
        return false
    }

    /* must be reachable, and cannot be a logical split */
    lsucc := blk.Succs(ir.Logical)
    preds := append([]int(nil), blk.Preds(ir.Linear)...)

    /* check for preconditions */
    if len(preds) == 0 || len(lsucc) > 1 || (len(lsucc) == 1 && lsucc[0] == bb) {
        return false
    }

    /* plan every predecessor first, so nothing is touched if any can't be rewritten */
    succ := blk.Succs(ir.Linear)[0]
    plan := make([]_PredAction, len(preds))

    /* check every predecessor */
    for i, v := range preds {
        var ok bool
        if plan[i], ok = self.planPred(v, bb, succ); !ok {
            return false
        }
    }

    /* rewrite the linear predecessors */
    for i, v := range preds {
        self.applyPred(v, bb, succ, plan[i])
        self.trace("retarget", "block", v, "from", bb, "to", succ, "action", plan[i])
    }

    /* rewrite the logical predecessors */
    if len(lsucc) == 1 {
        ls := lsucc[0]
        for _, v := range append([]int(nil), blk.Preds(ir.Logical)...) {
            p.RetargetSucc(v, bb, ls, ir.Logical)
        }
        p.RemoveEdge(bb, ls, ir.Logical)
    }

    /* detach the block */
    blk.Ins = nil
    self.removeLinearSucc(bb, succ)
    self.collapsed(bb, succ)
    return true
}
