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

package ir

import (
    `fmt`
)

// View selects one of the two CFGs every block takes part in.
type View uint8

const (
    Linear View = iota
    Logical
)

func (self View) String() string {
    switch self {
        case Linear  : return "linear"
        case Logical : return "logical"
        default      : return fmt.Sprintf("view?(%d)", uint8(self))
    }
}

const _MaxSuccs = 2

func indexOf(s []int, v int) int {
    for i, x := range s {
        if x == v {
            return i
        }
    }
    return -1
}

func removeOne(s []int, v int, what string) []int {
    if i := indexOf(s, v); i < 0 {
        panic(fmt.Sprintf("ir: %s list does not contain bb_%d", what, v))
    } else {
        return append(s[:i], s[i + 1:]...)
    }
}

// AddEdge appends to as a successor of from in view v.
func (self *Program) AddEdge(from int, to int, v View) {
    src := self.Block(from).edges(v)
    dst := self.Block(to).edges(v)

    /* check for duplicated edges */
    if indexOf(src.succs, to) >= 0 {
        panic(fmt.Sprintf("ir: duplicated %s edge bb_%d -> bb_%d", v, from, to))
    }

    /* at most 2 successors per view */
    if len(src.succs) >= _MaxSuccs {
        panic(fmt.Sprintf("ir: bb_%d already has %d %s successors", from, len(src.succs), v))
    }

    /* link both sides */
    src.succs = append(src.succs, to)
    dst.preds = append(dst.preds, from)
}

// RemoveEdge removes the edge from -> to in view v.
func (self *Program) RemoveEdge(from int, to int, v View) {
    src := self.Block(from).edges(v)
    dst := self.Block(to).edges(v)
    src.succs = removeOne(src.succs, to, fmt.Sprintf("bb_%d %s successor", from, v))
    dst.preds = removeOne(dst.preds, from, fmt.Sprintf("bb_%d %s predecessor", to, v))
}

// RetargetSucc replaces the successor old of from with to in view v, keeping
// its slot. If to already is the other successor of from, both slots are
// merged into one.
func (self *Program) RetargetSucc(from int, old int, to int, v View) {
    if old == to {
        return
    }

    /* locate the slot */
    src := self.Block(from).edges(v)
    idx := indexOf(src.succs, old)

    /* must be an existing successor */
    if idx < 0 {
        panic(fmt.Sprintf("ir: bb_%d has no %s successor bb_%d", from, v, old))
    }

    /* unlink from the old successor */
    prev := self.Block(old).edges(v)
    prev.preds = removeOne(prev.preds, from, fmt.Sprintf("bb_%d %s predecessor", old, v))

    /* merge with the other slot, or link to the new successor */
    if indexOf(src.succs, to) >= 0 {
        src.succs = append(src.succs[:idx], src.succs[idx + 1:]...)
    } else {
        src.succs[idx] = to
        next := self.Block(to).edges(v)
        next.preds = append(next.preds, from)
    }
}

// SwapSuccs exchanges the two successor slots of from in view v.
func (self *Program) SwapSuccs(from int, v View) {
    if src := self.Block(from).edges(v); len(src.succs) != 2 {
        panic(fmt.Sprintf("ir: cannot swap %d %s successors of bb_%d", len(src.succs), v, from))
    } else {
        src.succs[0], src.succs[1] = src.succs[1], src.succs[0]
    }
}
