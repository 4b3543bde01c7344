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
	"fmt"

	"github.com/cloudwego/brlower/internal/opts"
)

// Option is the property setter function for opts.Options.
type Option func(*opts.Options)

// WithSkipBudget sets the estimated cycle count above which a forward
// divergent branch is kept.
//
// The budget is compared against the cost of the skipped instructions on the
// program's hardware generation, so larger values remove more branches.
//
// The default value of this option is "16", and can be changed with the
// `BRLOWER_SKIP_BUDGET` environment variable.
func WithSkipBudget(budget int) Option {
	if budget < 0 {
		panic(fmt.Sprintf("brlower: invalid skip budget: %d", budget))
	} else {
		return func(o *opts.Options) { o.SkipBudget = budget }
	}
}

// WithPreferRemove makes every forward divergent branch behave as if it were
// rarely taken: neither the skip budget nor vector memory keeps it.
func WithPreferRemove(v bool) Option {
	return func(o *opts.Options) { o.PreferRemove = v }
}

// SetSkipBudget sets the default skip budget for all programs from now on.
//
// Returns the old opts.SkipBudget value.
func SetSkipBudget(budget int) int {
	budget, opts.SkipBudget = opts.SkipBudget, budget
	return budget
}
