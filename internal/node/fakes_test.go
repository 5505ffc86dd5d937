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

	"github.com/jacobsa/fuse/fuseops"
)

// fakeVnode is a minimal Vnode used to exercise the lifecycle engine
// without a real kernel-backed VFS shell (the VFS vnode subsystem is out
// of scope per spec §1).
type fakeVnode struct {
	mu       sync.Mutex
	refcount int32
	typ      VnodeType
	id       fuseops.InodeID

	reinitCount     int
	invalidateCount int
}

func (v *fakeVnode) Lock()   { v.mu.Lock() }
func (v *fakeVnode) Unlock() { v.mu.Unlock() }

func (v *fakeVnode) RefCount() int32 { return v.refcount }
func (v *fakeVnode) IncRef()         { v.refcount++ }
func (v *fakeVnode) DecRef()         { v.refcount-- }
func (v *fakeVnode) SetType(t VnodeType) { v.typ = t }
func (v *fakeVnode) ID() fuseops.InodeID { return v.id }
func (v *fakeVnode) SetID(id fuseops.InodeID) { v.id = id }

// fakeVnodeAllocator counts alloc/reinit/invalidate calls so tests can
// assert on recycling behavior (scenario 2: "nodes_allocated unchanged").
type fakeVnodeAllocator struct {
	mu            sync.Mutex
	allocCount    int
	reinitCount   int
	invalidations int
}

func (a *fakeVnodeAllocator) Alloc() Vnode {
	a.mu.Lock()
	a.allocCount++
	a.mu.Unlock()
	return &fakeVnode{refcount: 1, typ: VnodeNone}
}

func (a *fakeVnodeAllocator) Reinit(v Vnode) {
	a.mu.Lock()
	a.reinitCount++
	a.mu.Unlock()
	fv := v.(*fakeVnode)
	fv.mu.Lock()
	fv.refcount = 1
	fv.typ = VnodeNone
	fv.reinitCount++
	fv.mu.Unlock()
}

func (a *fakeVnodeAllocator) Invalidate(v Vnode) {
	a.mu.Lock()
	a.invalidations++
	a.mu.Unlock()
	v.(*fakeVnode).invalidateCount++
}

// fakeVFS counts hold/release so tests can check balance.
type fakeVFS struct {
	mu      sync.Mutex
	holds   int
	release int
}

func (f *fakeVFS) Hold()    { f.mu.Lock(); f.holds++; f.mu.Unlock() }
func (f *fakeVFS) Release() { f.mu.Lock(); f.release++; f.mu.Unlock() }

// fakeCred is a Credential that records whether it was released.
type fakeCred struct {
	released bool
}

func (c *fakeCred) Release() { c.released = true }

// fakeAttrFetcher records CacheCheck/Install invocations.
type fakeAttrFetcher struct {
	mu          sync.Mutex
	checked     []Attrs
	installed   []Attrs
	checkErr    error
}

func (f *fakeAttrFetcher) CacheCheck(n *Node, attrs Attrs) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checked = append(f.checked, attrs)
	return f.checkErr
}

func (f *fakeAttrFetcher) Install(n *Node, attrs Attrs) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installed = append(f.installed, attrs)
}

// fakeInvalidator records nodes passed to Remove, by path, for the prune
// boundary test (scenario 3).
type fakeInvalidator struct {
	mu      sync.Mutex
	removed [][]byte
}

func (f *fakeInvalidator) Remove(n *Node) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, append([]byte(nil), n.remotePath...))
}

// newTestCache builds a Cache with fake collaborators wired in, and a
// target high enough that the slab-alloc branch is taken by default.
func newTestCache(target int64) (*Cache, *fakeVnodeAllocator) {
	va := &fakeVnodeAllocator{}
	c := NewCache(NewAllocator(target), va)
	return c, va
}

func newTestMount(sep byte) (*Mount, *fakeVFS) {
	vfs := &fakeVFS{}
	return NewMount(sep, ':', 0, vfs), vfs
}

// releaseVnodeRef drops one vnode reference under the vlock, simulating an
// external caller giving back the reference make_node's promotion step
// handed it, so that a subsequent AddToFree sees the node at its HASHED
// baseline rather than racing abandonIfRaced.
func releaseVnodeRef(n *Node) {
	n.vnode.Lock()
	n.vnode.DecRef()
	n.vnode.Unlock()
}
