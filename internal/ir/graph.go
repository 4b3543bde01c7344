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
    `strings`

    `gonum.org/v1/gonum/graph`
    `gonum.org/v1/gonum/graph/encoding`
    `gonum.org/v1/gonum/graph/encoding/dot`
    `gonum.org/v1/gonum/graph/multi`
    `gonum.org/v1/gonum/graph/traverse`
)

type _Node struct {
    p  *Program
    id int
}

func (self _Node) ID() int64 {
    return int64(self.id)
}

func (self _Node) DOTID() string {
    return fmt.Sprintf("bb_%d", self.id)
}

func (self _Node) Attributes() []encoding.Attribute {
    bb := self.p.Block(self.id)
    buf := []string { fmt.Sprintf("bb_%d", self.id) }

    /* block kinds */
    if bb.Kind != 0 {
        buf = append(buf, "# " + bb.Kind.String())
    }

    /* every instruction, left aligned */
    for _, id := range bb.Ins {
        buf = append(buf, strings.ReplaceAll(self.p.Instr(id).String(), `"`, `\"`))
    }

    /* build the label */
    return []encoding.Attribute {
        { Key: "shape", Value: "box" },
        { Key: "label", Value: `"` + strings.Join(buf, `\l`) + `\l"` },
    }
}

type _Line struct {
    f    _Node
    t    _Node
    uid  int64
    slot int
    view View
}

func (self _Line) From() graph.Node         { return self.f }
func (self _Line) To() graph.Node           { return self.t }
func (self _Line) ID() int64                { return self.uid }
func (self _Line) ReversedLine() graph.Line { return _Line { self.t, self.f, self.uid, self.slot, self.view } }

func (self _Line) Attributes() []encoding.Attribute {
    var ret []encoding.Attribute
    if self.view == Logical {
        ret = append(ret, encoding.Attribute { Key: "style", Value: "dashed" })
    }
    if self.view == Linear && self.slot == 1 {
        ret = append(ret, encoding.Attribute { Key: "label", Value: "taken" })
    }
    return ret
}

// Graph builds a gonum multigraph of the selected CFG views. Node ids are
// block ids; removed (empty, unreachable) blocks stay as isolated nodes.
func (self *Program) Graph(views ...View) *multi.DirectedGraph {
    uid := int64(0)
    ret := multi.NewDirectedGraph()

    /* add every block */
    for i := range self.blocks {
        ret.AddNode(_Node { self, i })
    }

    /* add every edge of the selected views */
    for _, v := range views {
        for i := range self.blocks {
            for slot, s := range self.blocks[i].edges(v).succs {
                ret.SetLine(_Line {
                    f    : _Node { self, i },
                    t    : _Node { self, s },
                    uid  : uid,
                    slot : slot,
                    view : v,
                })
                uid++
            }
        }
    }
    return ret
}

// Dot renders both CFG views in Graphviz format. Logical edges are dashed.
func (self *Program) Dot(name string) ([]byte, error) {
    return dot.MarshalMulti(self.Graph(Linear, Logical), name, "", "    ")
}

// Reachable returns, for every block, whether it can be reached from the
// block from in view v.
func (self *Program) Reachable(from int, v View) []bool {
    ret := make([]bool, len(self.blocks))
    ret[from] = true
    bfs := traverse.BreadthFirst {
        Visit: func(n graph.Node) { ret[n.ID()] = true },
    }
    bfs.Walk(self.Graph(v), _Node { self, from }, nil)
    return ret
}
