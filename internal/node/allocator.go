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
	"sync"
	"sync/atomic"
)

// Allocator is the fixed-size-object pool of spec §4.1: alloc() returns a
// zeroed node with uninitialized (freshly initialized, in Go's case)
// synchronization primitives, free(node) returns memory to the pool, and a
// reclaim callback can be registered for memory-pressure eviction (§4.5.4).
//
// Go has no kmem_cache, and this allocator keeps no pool of its own: Alloc
// always mints a new node, Free only updates the counters, and a freed node
// is left to the garbage collector.
type Allocator struct {
	// allocated is nodes_allocated (spec §3): currently live slab-backed
	// nodes. Atomic, per spec §5.
	allocated atomic.Int64

	// fresh is the source's fusenodenew: a monotonic count of how many
	// times alloc() has actually minted new memory (as opposed to recycling
	// a freelist victim). Supplemental observability detail recovered from
	// original_source/ (see SPEC_FULL.md §C).
	fresh atomic.Int64

	// target is nodes_target (spec §4.1): the soft ceiling past which the
	// lifecycle engine prefers destruction over pooling.
	target atomic.Int64

	reclaimMu sync.Mutex
	reclaim   func()
}

// NewAllocator constructs an allocator with the given soft ceiling. Pass
// the result of ClampTarget to respect spec §4.1's memory clamp.
func NewAllocator(target int64) *Allocator {
	a := &Allocator{}
	a.target.Store(target)
	return a
}

// ClampTarget clamps a configured sizing hint to
// (availableMemory / 4) / sizeof(node), per spec §4.1.
func ClampTarget(hint int64, availableMemory uint64, nodeSize uintptr) int64 {
	if nodeSize == 0 {
		return hint
	}
	ceiling := int64((availableMemory / 4) / uint64(nodeSize))
	if hint > ceiling {
		return ceiling
	}
	return hint
}

// Alloc mints a fresh, zeroed node shell and increments nodes_allocated and
// the fresh-mint counter.
func (a *Allocator) Alloc() *Node {
	n := newNode()
	a.allocated.Add(1)
	a.fresh.Add(1)
	return n
}

// Free returns a destroyed node's memory to the pool bookkeeping,
// decrementing nodes_allocated. The node itself becomes eligible for GC;
// there is nothing further for this package to reuse once destroy_node's
// assertions (spec §4.4.4) have been satisfied.
func (a *Allocator) Free(n *Node) {
	_ = n
	a.allocated.Add(-1)
}

// Allocated returns nodes_allocated.
func (a *Allocator) Allocated() int64 { return a.allocated.Load() }

// Fresh returns the monotonic fresh-mint counter (original_source/'s
// fusenodenew).
func (a *Allocator) Fresh() int64 { return a.fresh.Load() }

// Target returns nodes_target.
func (a *Allocator) Target() int64 { return a.target.Load() }

// SetTarget updates nodes_target, e.g. after a config reload.
func (a *Allocator) SetTarget(n int64) { a.target.Store(n) }

// OverTarget reports whether nodes_allocated currently exceeds
// nodes_target -- the condition that makes the lifecycle engine prefer
// destruction over pooling (spec §4.1, §4.4.3 step 1's should_destroy
// formula, which uses strict ">").
func (a *Allocator) OverTarget() bool {
	return a.allocated.Load() > a.target.Load()
}

// AtOrOverTarget reports whether nodes_allocated has met or exceeded
// nodes_target -- the freelist-reuse gate in make_node's reuse dance (spec
// §4.4.2: "if free_head ≠ null and nodes_allocated ≥ nodes_target"). This is
// deliberately a separate, looser threshold than OverTarget: once allocation
// reaches the target, make_node prefers recycling a freelist victim over
// minting a new one, even before the should_destroy formula elsewhere would
// call the population over target.
func (a *Allocator) AtOrOverTarget() bool {
	return a.allocated.Load() >= a.target.Load()
}

// RegisterReclaim installs the callback invoked by Reclaim (spec §4.1: "a
// reclaim callback invoked by the allocator when memory pressure is
// reported").
func (a *Allocator) RegisterReclaim(f func()) {
	a.reclaimMu.Lock()
	a.reclaim = f
	a.reclaimMu.Unlock()
}

// Reclaim invokes the registered reclaim callback, if any. A real
// deployment would wire this to the Go runtime's memory-pressure signals;
// this package only provides the hook (spec §4.5.4).
func (a *Allocator) Reclaim() {
	a.reclaimMu.Lock()
	f := a.reclaim
	a.reclaimMu.Unlock()
	if f != nil {
		f()
	}
}
