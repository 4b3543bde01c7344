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

package opts

// Options controls the branch lowering pass.
type Options struct {
	// SkipBudget is the estimated cycle count above which a forward branch
	// is kept instead of running the skipped blocks with an empty exec mask.
	SkipBudget int

	// PreferRemove tells the pass that the application prefers flattened
	// control flow: the cycle budget and the vector memory exception are
	// ignored for every branch.
	PreferRemove bool

	// Validate runs the structural validator before lowering.
	Validate bool
}

func GetDefaultOptions() Options {
	return Options{
		SkipBudget:   SkipBudget,
		PreferRemove: PreferRemove,
		Validate:     Validate,
	}
}
