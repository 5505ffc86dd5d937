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

import "github.com/jacobsa/syncutil"

// composeKey joins dir and name with sep into a single lookup key. sep ==
// 0 means "no separator" (root concatenation), per spec §4.4.1. The
// source's small-buffer optimisation (on-stack scratch for keys under
// 1024 bytes, heap otherwise) has no direct Go analogue; escape analysis
// plays that role here instead.
func composeKey(dir []byte, sep byte, name []byte) []byte {
	n := len(dir) + len(name)
	if sep != 0 {
		n++
	}
	key := make([]byte, 0, n)
	key = append(key, dir...)
	if sep != 0 {
		key = append(key, sep)
	}
	key = append(key, name...)
	return key
}

// FindOrCreate is the lifecycle engine's entry point (spec §4.4.1). attrs
// nil / FATTR_ZERO / real attrs become the Lookup / CreateBlank /
// CreateWithAttrs variants of AttrRequest. Returns a referenced node, or
// nil with no error for a pure lookup miss.
func (c *Cache) FindOrCreate(mount *Mount, dir []byte, sep byte, name []byte, req AttrRequest) (*Node, error) {
	key := composeKey(dir, sep, name)

	mount.indexLock.RLock()

	if req.isLookupOnly() {
		n, found := mount.index.find(key)
		mount.indexLock.RUnlock()
		if !found {
			return nil, nil
		}
		c.promote(n)
		return n, nil
	}

	n, created := c.makeNode(mount, key)
	mount.indexLock.RUnlock()

	if req.kind == attrCreateBlank {
		return n, nil
	}

	if !created && c.Attrs != nil {
		if err := c.Attrs.CacheCheck(n, req.attrs); err != nil {
			return nil, err
		}
	}
	if c.Attrs != nil {
		c.Attrs.Install(n, req.attrs)
	}

	return n, nil
}

// promote is the "find already transferred/incremented a reference" step
// spec §4.4.2 describes inline in path_index.find's use within make_node:
// pull the node off the freelist if it was cached-but-cold (invariant 4),
// then hand the caller a fresh vnode reference. A node returned this way
// ends up with vnode.refcount >= 2 (one for HASHED, one transferred),
// matching the ordering guarantee in spec §5.
func (c *Cache) promote(n *Node) {
	c.free.remove(n)
	n.vnode.Lock()
	n.vnode.IncRef()
	n.vnode.Unlock()
}

// abandonIfRaced is the "if vnode.refcount > 1 { decrement; retry }" idiom
// named verbatim per spec §9's design notes: we tentatively hold the
// freelist's baseline reference (or, in AddToFree, the HASHED baseline);
// if we observe more than that, a concurrent caller has genuinely
// re-referenced the node and our tentative hold must be given back.
// Callers must hold v's vnode lock.
func abandonIfRaced(v *Node) bool {
	if v.vnode.RefCount() > 1 {
		v.vnode.DecRef()
		return true
	}
	return false
}

// makeNode implements spec §4.4.2's reuse dance. Precondition: caller
// holds mount.indexLock in shared mode. Postcondition: returns holding it
// in shared mode.
func (c *Cache) makeNode(mount *Mount, key []byte) (*Node, bool) {
	for {
		if n, found := mount.index.find(key); found {
			c.promote(n)
			return n, false
		}

		mount.indexLock.RUnlock()

		victim, abandon := c.obtainVictim(mount)
		if abandon {
			mount.indexLock.RLock()
			continue
		}

		newPath := append([]byte(nil), key...)
		c.prepareShell(victim, mount)

		mount.indexLock.Lock()

		if n, found := mount.index.find(key); found {
			mount.indexLock.Unlock()
			c.AddToFree(victim)
			mount.indexLock.RLock()
			c.promote(n)
			return n, false
		}

		victim.remotePath = newPath
		victim.inodeHash = c.hash(newPath)
		mount.index.insert(victim)
		victim.stateLock.Lock()
		victim.flags |= FlagHashed
		victim.stateLock.Unlock()

		victim.vnode.Lock()
		victim.vnode.SetID(victim.inodeHash)
		victim.vnode.IncRef()
		victim.vnode.Unlock()

		mount.indexLock.Unlock()
		mount.indexLock.RLock()

		return victim, true
	}
}

// obtainVictim implements the freelist-vs-slab arm of make_node (spec
// §4.4.2). It returns a victim ready for prepareShell, or abandon=true if
// a concurrent external holder raced the recycle attempt -- the caller
// must re-acquire mount.indexLock (shared) and retry from the top.
func (c *Cache) obtainVictim(mount *Mount) (victim *Node, abandon bool) {
	if !c.Alloc.AtOrOverTarget() || c.free.len() == 0 {
		v := c.Alloc.Alloc()
		v.vnode = c.Vnodes.Alloc()
		c.Metrics.NodeCreated()
		return v, false
	}

	v := c.free.popHead()
	if v == nil {
		v = c.Alloc.Alloc()
		v.vnode = c.Vnodes.Alloc()
		c.Metrics.NodeCreated()
		return v, false
	}

	if v.Hashed() {
		oldMount := v.mount
		oldMount.indexLock.Lock()
		v.vnode.Lock()
		if abandonIfRaced(v) {
			v.vnode.Unlock()
			oldMount.indexLock.Unlock()
			return nil, true
		}
		v.vnode.Unlock()

		oldMount.index.remove(v)
		v.stateLock.Lock()
		v.flags &^= FlagHashed
		v.stateLock.Unlock()
		oldMount.indexLock.Unlock()
	}

	c.inactivate(v)

	v.vnode.Lock()
	if abandonIfRaced(v) {
		v.vnode.Unlock()
		return nil, true
	}
	v.vnode.Unlock()

	c.Vnodes.Reinit(v.vnode)
	if v.mount != nil {
		if vfs := v.mount.VFS(); vfs != nil {
			vfs.Release()
		}
	}

	c.Metrics.NodeRecycled()
	return v, false
}

// prepareShell resets a victim (whether freshly slab-allocated or
// recycled) into the "fresh/clean shell" state spec §4.4.2 describes
// between obtaining the victim and re-acquiring the index lock
// exclusively: fields zeroed, synchronization primitives reinitialized,
// mount assigned, and a new vfs reference held.
func (c *Cache) prepareShell(v *Node, mount *Mount) {
	v.remotePath = nil
	v.inodeHash = 0
	v.flags = 0
	v.remoteFid = UnusedFid
	v.cachedCred = nil
	v.ioError = nil
	v.refCount = 0
	v.stateLock = syncutil.NewInvariantMutex(v.checkInvariants)
	v.mount = mount

	v.vnode.Lock()
	v.vnode.SetType(VnodeNone)
	v.vnode.Unlock()

	if vfs := mount.VFS(); vfs != nil {
		vfs.Hold()
	}
}

// AddToFree implements spec §4.4.3: decide whether a released node should
// be pooled or destroyed, and act on that decision. Preconditions: caller
// holds a reference; node is not already on the freelist.
func (c *Cache) AddToFree(n *Node) {
	n.stateLock.Lock()
	hashed := n.flags&FlagHashed != 0
	ioErr := n.ioError != nil
	refZero := n.refCount == 0
	n.stateLock.Unlock()

	mount := n.mount
	unmounted := mount != nil && mount.Unmounted()
	shouldDestroy := refZero && (!hashed || ioErr || unmounted || c.Alloc.OverTarget())

	if !shouldDestroy {
		mount.indexLock.Lock()
		n.vnode.Lock()
		raced := abandonIfRaced(n)
		n.vnode.Unlock()
		if raced {
			mount.indexLock.Unlock()
			return
		}
		c.free.pushTail(n)
		mount.indexLock.Unlock()
		c.Metrics.NodePooled()
		return
	}

	if hashed {
		mount.indexLock.Lock()
		n.vnode.Lock()
		if abandonIfRaced(n) {
			n.vnode.Unlock()
			mount.indexLock.Unlock()
			return
		}
		n.vnode.Unlock()

		mount.index.remove(n)
		n.stateLock.Lock()
		n.flags &^= FlagHashed
		n.stateLock.Unlock()
		mount.indexLock.Unlock()
	}

	c.inactivate(n)

	n.vnode.Lock()
	if abandonIfRaced(n) {
		n.vnode.Unlock()
		return
	}
	n.vnode.Unlock()

	c.destroyNode(n)
}

// RmFromIndex unhashes n from its mount's path index on demand (spec §6's
// rm_from_index, mirroring the source's fusefs_rmhash/sn_rmhash_locked):
// the unlink/rename path calls this to drop a node's path entry while the
// node itself remains live and referenced, unlike AddToFree's unhash-on-
// release. A no-op if n is not currently hashed.
func (c *Cache) RmFromIndex(n *Node) {
	mount := n.mount
	mount.indexLock.Lock()
	defer mount.indexLock.Unlock()

	n.stateLock.Lock()
	hashed := n.flags&FlagHashed != 0
	n.stateLock.Unlock()
	if !hashed {
		return
	}

	mount.index.remove(n)
	n.stateLock.Lock()
	n.flags &^= FlagHashed
	n.stateLock.Unlock()
}

// inactivate releases a node's cached credential and path storage under
// its state lock, leaving the shell ready for destruction or reuse (spec
// §4.4.5).
func (c *Cache) inactivate(n *Node) {
	n.stateLock.Lock()
	cred := n.cachedCred
	n.cachedCred = nil
	n.remotePath = nil
	n.stateLock.Unlock()

	if cred != nil {
		cred.Release()
	}
}

// destroyNode implements spec §4.4.4's assertions and cleanup.
func (c *Cache) destroyNode(n *Node) {
	n.stateLock.Lock()
	refCount := n.refCount
	hashed := n.flags&FlagHashed != 0
	cred := n.cachedCred
	path := n.remotePath
	n.stateLock.Unlock()

	n.vnode.Lock()
	vrefc := n.vnode.RefCount()
	n.vnode.Unlock()

	switch {
	case vrefc != 1:
		panic("fusenodecache: destroy_node: vnode.refcount != 1")
	case refCount != 0:
		panic("fusenodecache: destroy_node: ref_count != 0")
	case cred != nil:
		panic("fusenodecache: destroy_node: cached credential not released")
	case path != nil:
		panic("fusenodecache: destroy_node: remote_path not cleared")
	case hashed:
		panic("fusenodecache: destroy_node: still hashed")
	case n.OnFreelist():
		panic("fusenodecache: destroy_node: still on freelist")
	}

	c.Vnodes.Invalidate(n.vnode)
	c.Alloc.Free(n)
	if n.mount != nil {
		if vfs := n.mount.VFS(); vfs != nil {
			vfs.Release()
		}
	}
	c.Metrics.NodeDestroyed()
}
