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
)

func blocklist(ids []int) string {
    buf := make([]string, len(ids))
    for i, v := range ids {
        buf[i] = fmt.Sprintf("bb_%d", v)
    }
    return strings.Join(buf, ", ")
}

// Header renders the block id, kinds and both edge sets on one line.
func (self *Block) Header() string {
    kind := ""
    if self.Kind != 0 {
        kind = fmt.Sprintf(" [%s]", self.Kind)
    }
    return fmt.Sprintf(
        "bb_%d:%s linear(preds={%s} succs={%s}) logical(preds={%s} succs={%s})",
        self.Id,
        kind,
        blocklist(self.linear.preds),
        blocklist(self.linear.succs),
        blocklist(self.logical.preds),
        blocklist(self.logical.succs),
    )
}

func (self *Program) String() string {
    buf := []string {
        fmt.Sprintf("# %s, wave%d", self.Gfx, self.WaveSize()),
    }

    /* dump every block */
    for i := range self.blocks {
        bb := &self.blocks[i]
        buf = append(buf, bb.Header())

        /* dump every instruction */
        for _, id := range bb.Ins {
            buf = append(buf, fmt.Sprintf("%06x |     %s", id, self.instrs[id].String()))
        }
    }

    /* join them together */
    return fmt.Sprintf(
        "Program {\n%s\n}",
        strings.Join(buf, "\n"),
    )
}
