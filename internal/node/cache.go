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

// Package node implements the path-indexed node cache: a per-mount ordered
// lookup index keyed by remote path, a process-wide LRU free list of
// reclaimable nodes, and a slab-style node allocator, coordinated by a
// lifecycle engine under the lock order
//
//	mount.index_lock -> vnode.vlock -> free_lock -> node.state_lock
//
// See SPEC_FULL.md for the full design this package implements.
package node

import (
	"hash/fnv"
	"log/slog"

	"github.com/jacobsa/fuse/fuseops"
)

// Recorder receives lifecycle events for external instrumentation
// (internal/metrics implements this). The lifecycle engine invokes every
// method with none of this package's locks held.
type Recorder interface {
	NodeCreated()
	NodeRecycled()
	NodeDestroyed()
	NodePooled()
	NodeReclaimed()
}

type nopRecorder struct{}

func (nopRecorder) NodeCreated()   {}
func (nopRecorder) NodeRecycled()  {}
func (nopRecorder) NodeDestroyed() {}
func (nopRecorder) NodePooled()    {}
func (nopRecorder) NodeReclaimed() {}

// Cache is the process-wide state of spec §3: the allocator, the freelist,
// and the external collaborators the lifecycle engine calls out to. One
// Cache serves every Mount in the process -- the freelist must be
// process-wide, not per-mount, to preserve the cross-mount recycling
// policy (spec §9).
type Cache struct {
	Alloc  *Allocator
	Vnodes VnodeAllocator

	// Attrs is optional; when nil, CacheCheck/Install are simply skipped
	// (useful for tests exercising pure lifecycle behavior).
	Attrs AttrFetcher

	// Hasher computes inode_hash from remote_path. Defaults to a 64-bit FNV
	// hash (spec §9 "fake inode" note) if left nil.
	Hasher PathHasher

	Log *slog.Logger

	Metrics Recorder

	free *freeList
}

// NewCache constructs a Cache. alloc and vnodes are required; the rest of
// the fields may be set on the returned value before first use.
func NewCache(alloc *Allocator, vnodes VnodeAllocator) *Cache {
	return &Cache{
		Alloc:   alloc,
		Vnodes:  vnodes,
		Hasher:  defaultHasher,
		Log:     slog.Default(),
		Metrics: nopRecorder{},
		free:    &freeList{},
	}
}

func defaultHasher(path []byte) fuseops.InodeID {
	h := fnv.New64a()
	h.Write(path)
	return fuseops.InodeID(h.Sum64())
}

func (c *Cache) hash(path []byte) fuseops.InodeID {
	if c.Hasher == nil {
		return defaultHasher(path)
	}
	return c.Hasher(path)
}

// FreelistLen reports the number of nodes currently pooled. Exposed for
// metrics and tests.
func (c *Cache) FreelistLen() int { return c.free.len() }
