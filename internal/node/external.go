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

import "github.com/jacobsa/fuse/fuseops"

// VnodeType mirrors the handful of VFS vnode types this cache needs to know
// about when minting a fresh shell. Everything else about the vnode (mode
// bits, page cache, directory entries) belongs to the VFS layer, not here.
type VnodeType int

const (
	VnodeNone VnodeType = iota
	VnodeDir
	VnodeFile
	VnodeSymlink
)

// Vnode is the VFS shell a Node exclusively owns. Allocation, reference
// counting, and type mutation belong to the VFS subsystem (spec §1,
// out of scope); this cache only ever asks to allocate, reinitialize,
// invalidate, hold, and release one.
type Vnode interface {
	// Lock/Unlock guard Vnode.RefCount and VnodeType mutation. This is
	// "vnode.vlock" in the lock order of §5.
	Lock()
	Unlock()

	// RefCount returns the current reference count. Callers must hold Lock.
	RefCount() int32

	// IncRef/DecRef adjust the reference count by one. Callers must hold Lock.
	IncRef()
	DecRef()

	// SetType mutates the vnode's VFS type (dir/file/symlink/none). Callers
	// must hold Lock.
	SetType(VnodeType)

	// ID returns the fake inode number the kernel dirent layer will see.
	// Set once at mint time from the node's path hash.
	ID() fuseops.InodeID
	SetID(fuseops.InodeID)
}

// VnodeAllocator is the external collaborator that owns vnode lifecycle:
// allocation, reinitialization for reuse, and invalidation at destroy time.
type VnodeAllocator interface {
	Alloc() Vnode
	Reinit(v Vnode)
	Invalidate(v Vnode)
}

// VFSHandle stands in for the external "vfs_t" descriptor a mount holds a
// reference to (vfs_hold/vfs_release in spec §6). Opaque to this package.
type VFSHandle interface {
	Hold()
	Release()
}

// AttrFetcher compares freshly fetched remote attributes against what a node
// has cached and installs them. Both are external collaborators (spec §6).
type AttrFetcher interface {
	// CacheCheck compares attrs to the node's cached state and purges stale
	// data pages if they disagree. Called only for nodes that already
	// existed (newly_created_flag == 0 in find_or_create, spec §4.4.1 step 8).
	CacheCheck(n *Node, attrs Attrs) error

	// Install copies attrs into the node's cached state.
	Install(n *Node, attrs Attrs)
}

// AttrInvalidator marks a single node's cached attributes stale. Used by
// AttrPrune (spec §4.5.1).
type AttrInvalidator interface {
	Remove(n *Node)
}

// Credential is an opaque handle to deferred-writeback credentials cached on
// a node (spec §3 cached_cred). Released, never inspected, by this package.
type Credential interface {
	Release()
}

// PathHasher computes the fake inode number exposed to the kernel dirent
// layer for a given remote path. Collisions are tolerable (spec §9).
type PathHasher func(path []byte) fuseops.InodeID
