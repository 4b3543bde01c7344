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

package brlower

import (
	"context"

	"github.com/cloudwego/brlower/internal/ir"
	"github.com/cloudwego/brlower/internal/isa"
	"github.com/cloudwego/brlower/internal/lower"
	"github.com/cloudwego/brlower/internal/opts"
	"github.com/cloudwego/brlower/internal/progen"
	"github.com/cloudwego/brlower/internal/snapshot"
)

// Report describes what lowering did to a program.
type Report = lower.Report

// Lower decodes a program snapshot, rewrites every pseudo branch into its
// hardware form or removes it, and returns the re-encoded program.
//
// The snapshot is validated before lowering. Lower panics only if the program
// breaks a rule validation cannot see, for example a never-taken uniform
// branch that skips code.
func Lower(ctx context.Context, data []byte, options ...Option) ([]byte, *Report, error) {
	o := opts.GetDefaultOptions()
	for _, fn := range options {
		fn(&o)
	}

	p, err := load(data)
	if err != nil {
		return nil, nil, err
	}

	o.Validate = false
	rp := lower.Run(ctx, p, o)

	out, err := snapshot.Encode(p)
	if err != nil {
		return nil, nil, SnapshotError{Op: "encode", Err: err}
	}
	return out, rp, nil
}

// Listing renders a program snapshot as text, one block header followed by
// its instructions.
func Listing(data []byte) (string, error) {
	p, err := snapshot.Decode(data)
	if err != nil {
		return "", SnapshotError{Op: "decode", Err: err}
	}
	return p.String(), nil
}

// Dot renders both control flow views of a program snapshot as a Graphviz
// digraph. Logical edges are dashed.
func Dot(data []byte, name string) ([]byte, error) {
	p, err := snapshot.Decode(data)
	if err != nil {
		return nil, SnapshotError{Op: "decode", Err: err}
	}
	return p.Dot(name)
}

// Shape describes a random program.
type Shape struct {
	Gfx    string
	Wave   int
	Blocks int
	MaxIns int
}

// DefaultShape is the shape Generate uses for zero fields.
var DefaultShape = Shape{
	Gfx:    progen.DefaultConfig.Gfx.String(),
	Wave:   64,
	Blocks: progen.DefaultConfig.Blocks,
	MaxIns: progen.DefaultConfig.MaxIns,
}

// Generate builds a structurally valid random program and returns its
// snapshot. The same seed and shape always give the same program.
func Generate(seed int64, shape Shape) ([]byte, error) {
	cfg := progen.DefaultConfig
	if shape.Blocks > 0 {
		cfg.Blocks = shape.Blocks
	}
	if shape.MaxIns > 0 {
		cfg.MaxIns = shape.MaxIns
	}

	if shape.Gfx != "" {
		gfx, err := isa.ParseGfxLevel(shape.Gfx)
		if err != nil {
			return nil, err
		}
		cfg.Gfx = gfx
	}

	switch shape.Wave {
	case 0, 64:
		cfg.LaneMask = isa.S2
	case 32:
		cfg.LaneMask = isa.S1
	default:
		return nil, ShapeError{Wave: shape.Wave}
	}
	return snapshot.Encode(progen.Generate(seed, cfg))
}

func load(data []byte) (*ir.Program, error) {
	p, err := snapshot.Decode(data)
	if err != nil {
		return nil, SnapshotError{Op: "decode", Err: err}
	}
	if err = ir.Validate(p); err != nil {
		return nil, SnapshotError{Op: "validate", Err: err}
	}
	return p, nil
}
