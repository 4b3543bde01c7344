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
    `strings`
)

// GfxLevel identifies the hardware generation a program is compiled for.
type GfxLevel uint8

const (
    GFX6 GfxLevel = iota
    GFX7
    GFX8
    GFX9
    GFX10
    GFX10_3
    GFX11
    GFX12
)

var _GfxNames = [...]string {
    GFX6    : "gfx6",
    GFX7    : "gfx7",
    GFX8    : "gfx8",
    GFX9    : "gfx9",
    GFX10   : "gfx10",
    GFX10_3 : "gfx10.3",
    GFX11   : "gfx11",
    GFX12   : "gfx12",
}

func (self GfxLevel) String() string {
    if int(self) < len(_GfxNames) {
        return _GfxNames[self]
    } else {
        return fmt.Sprintf("gfx?(%d)", uint8(self))
    }
}

// Valid reports whether the level is one of the known generations.
func (self GfxLevel) Valid() bool {
    return int(self) < len(_GfxNames)
}

// ParseGfxLevel parses names like "gfx9", "GFX10.3" or "gfx11".
func ParseGfxLevel(s string) (GfxLevel, error) {
    ls := strings.ToLower(strings.TrimSpace(s))

    /* match against the name table */
    for i, v := range _GfxNames {
        if v == ls {
            return GfxLevel(i), nil
        }
    }

    /* no such generation */
    return 0, fmt.Errorf("isa: unknown hardware generation %q", s)
}
