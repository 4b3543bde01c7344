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
    `fmt`
)

// SnapshotError occures when a program snapshot cannot be read or written.
type SnapshotError struct {
    Op  string
    Err error
}

func (self SnapshotError) Error() string {
    return fmt.Sprintf("SnapshotError(%s): %v", self.Op, self.Err)
}

func (self SnapshotError) Unwrap() error {
    return self.Err
}

// ShapeError occures when a random program shape cannot be generated.
type ShapeError struct {
    Wave int
}

func (self ShapeError) Error() string {
    return fmt.Sprintf("ShapeError: wave size must be 32 or 64, got %d", self.Wave)
}
