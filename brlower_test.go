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
	"errors"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/brlower/debug"
	"github.com/cloudwego/brlower/internal/ir"
	"github.com/cloudwego/brlower/internal/isa"
	"github.com/cloudwego/brlower/internal/lower"
	"github.com/cloudwego/brlower/internal/snapshot"
)

func TestLower(t *testing.T) {
	before := debug.GetStats()
	for seed := int64(0); seed < 20; seed++ {
		src, err := Generate(seed, Shape{Blocks: 24})
		require.NoError(t, err)
		out, rp, err := Lower(context.Background(), src)
		require.NoError(t, err)

		/* only hardware branches are left */
		text, err := Listing(out)
		require.NoError(t, err)
		if !assert.NotContains(t, text, "p_cbranch", rp) || !assert.NotContains(t, text, "p_branch", rp) {
			t.Log(spew.Sdump(rp))
		}

		/* lowering again changes nothing */
		_, again, err := Lower(context.Background(), out)
		require.NoError(t, err)
		assert.Empty(t, again.Decisions)
		assert.Empty(t, again.DeadWrites)
	}
	after := debug.GetStats()
	assert.Equal(t, before.Programs+40, after.Programs)
}

func TestLower_Options(t *testing.T) {
	src, err := Generate(3, Shape{Blocks: 32, MaxIns: 8})
	require.NoError(t, err)
	_, strict, err := Lower(context.Background(), src, WithSkipBudget(0))
	require.NoError(t, err)
	for _, d := range strict.Decisions {
		if d.Verdict == lower.Remove {
			assert.Contains(t, []lower.Reason{lower.ReasonNeverTaken, lower.ReasonCheap}, d.Reason)
		}
	}

	/* nothing is too expensive when removal is preferred */
	_, loose, err := Lower(context.Background(), src, WithPreferRemove(true))
	require.NoError(t, err)
	for _, d := range loose.Decisions {
		assert.NotEqual(t, lower.ReasonTooExpensive, d.Reason)
		assert.NotEqual(t, lower.ReasonVectorMemory, d.Reason)
	}
	assert.Panics(t, func() { WithSkipBudget(-1) })
}

func TestLower_BadSnapshot(t *testing.T) {
	var se SnapshotError
	_, _, err := Lower(context.Background(), []byte{0xff, 0x00})
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "decode", se.Op)

	/* a block without a terminator */
	p := ir.NewProgram(isa.GFX10, isa.S2)
	p.NewBlock(ir.BlockTopLevel)
	buf, err := snapshot.Encode(p)
	require.NoError(t, err)
	_, _, err = Lower(context.Background(), buf)
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "validate", se.Op)
	assert.True(t, strings.HasPrefix(err.Error(), "SnapshotError(validate): "))
}

func TestGenerate(t *testing.T) {
	a, err := Generate(42, Shape{Gfx: "gfx11", Wave: 32})
	require.NoError(t, err)
	b, err := Generate(42, Shape{Gfx: "gfx11", Wave: 32})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = Generate(42, Shape{Wave: 16})
	assert.Equal(t, ShapeError{Wave: 16}, err)
	_, err = Generate(42, Shape{Gfx: "gfx5"})
	assert.Error(t, err)
}

func TestDot(t *testing.T) {
	src, err := Generate(1, DefaultShape)
	require.NoError(t, err)
	out, err := Dot(src, "prog")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "digraph prog {"), string(out))
}
