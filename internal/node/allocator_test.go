// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocator_AllocFreeCounters(t *testing.T) {
	a := NewAllocator(10)
	assert.EqualValues(t, 0, a.Allocated())
	assert.EqualValues(t, 0, a.Fresh())

	n1 := a.Alloc()
	n2 := a.Alloc()
	assert.EqualValues(t, 2, a.Allocated())
	assert.EqualValues(t, 2, a.Fresh())

	a.Free(n1)
	assert.EqualValues(t, 1, a.Allocated())
	assert.EqualValues(t, 2, a.Fresh(), "fresh-mint counter is monotonic, unaffected by Free")

	a.Free(n2)
	assert.EqualValues(t, 0, a.Allocated())
}

func TestAllocator_OverTarget(t *testing.T) {
	a := NewAllocator(2)
	assert.False(t, a.OverTarget())
	a.Alloc()
	a.Alloc()
	assert.False(t, a.OverTarget(), "allocated == target is not yet over")
	a.Alloc()
	assert.True(t, a.OverTarget())
}

func TestAllocator_AtOrOverTarget(t *testing.T) {
	a := NewAllocator(2)
	assert.False(t, a.AtOrOverTarget())
	a.Alloc()
	assert.False(t, a.AtOrOverTarget())
	a.Alloc()
	assert.True(t, a.AtOrOverTarget(), "allocated == target already trips the freelist-reuse gate")
	a.Alloc()
	assert.True(t, a.AtOrOverTarget())
}

func TestAllocator_SetTarget(t *testing.T) {
	a := NewAllocator(0)
	a.Alloc()
	assert.True(t, a.OverTarget())
	a.SetTarget(5)
	assert.False(t, a.OverTarget())
	assert.EqualValues(t, 5, a.Target())
}

func TestAllocator_ClampTarget(t *testing.T) {
	// available/4 / nodeSize = (4000/4)/100 = 10, below the hint of 100.
	got := ClampTarget(100, 4000, 100)
	assert.EqualValues(t, 10, got)

	// Hint already under the ceiling is left untouched.
	got = ClampTarget(5, 4000, 100)
	assert.EqualValues(t, 5, got)

	// Zero node size means no meaningful clamp is possible; pass the hint
	// through unchanged rather than divide by zero.
	got = ClampTarget(42, 4000, 0)
	assert.EqualValues(t, 42, got)
}

func TestAllocator_ReclaimCallback(t *testing.T) {
	a := NewAllocator(0)
	calls := 0
	a.RegisterReclaim(func() { calls++ })
	a.Reclaim()
	a.Reclaim()
	assert.Equal(t, 2, calls)
}

func TestAllocator_ReclaimWithoutCallbackIsNoop(t *testing.T) {
	a := NewAllocator(0)
	assert.NotPanics(t, func() { a.Reclaim() })
}
