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

// isPathSeparator reports whether b is one of the two bytes that may
// separate a parent path from a descendant's remainder (spec §4.5.1):
// '/' for path components, ':' for attribute-namespace joins.
func isPathSeparator(b byte) bool {
	return b == '/' || b == ':'
}

// AttrPrune invalidates cached attributes of every descendant of top,
// without affecting top itself (spec §4.5.1). Used after a directory is
// renamed or deleted. Runs under the mount's index_lock held shared.
func (c *Cache) AttrPrune(mount *Mount, top *Node, inval AttrInvalidator) {
	mount.indexLock.RLock()
	defer mount.indexLock.RUnlock()

	n := top
	for {
		n = mount.index.successor(n)
		if n == nil {
			return
		}
		if len(n.remotePath) < len(top.remotePath) {
			return
		}
		if string(n.remotePath[:len(top.remotePath)]) != string(top.remotePath) {
			return
		}
		if len(n.remotePath) > len(top.remotePath) && isPathSeparator(n.remotePath[len(top.remotePath)]) {
			inval.Remove(n)
		}
		// Else: a sibling sharing top's path as a literal byte prefix but
		// with no separator immediately after it (e.g. "foo bar" sorting
		// between "foo" and "foo/bar") -- not a descendant. Keep walking:
		// true descendants still sort after it.
	}
}

// CheckBusy walks mount's index counting nodes that are not on the
// freelist, have cached dirty pages, or have ref_count > 0, skipping the
// mount root (spec §4.5.2). This implementation always walks the entire
// index rather than short-circuiting on the first busy node (spec §9's
// open question, resolved here in favor of a deterministic, always-
// complete count -- see SPEC_FULL.md §C).
func (c *Cache) CheckBusy(mount *Mount, root *Node) int {
	mount.indexLock.RLock()
	defer mount.indexLock.RUnlock()

	busy := 0
	for n := mount.index.first(); n != nil; n = mount.index.successor(n) {
		if n == root {
			continue
		}
		n.stateLock.Lock()
		dirty := n.flags&FlagDirty != 0
		refCount := n.refCount
		n.stateLock.Unlock()

		if !n.OnFreelist() || dirty || refCount > 0 {
			busy++
		}
	}
	return busy
}

// DestroyTable implements spec §4.5.3: destroy every inactive node in
// mount's index and preserve every active one, as part of unmount
// teardown. Every destruction is routed through AddToFree, so the same
// checked path (and its races) applies here as everywhere else.
func (c *Cache) DestroyTable(mount *Mount) {
	mount.Unmount()

	mount.indexLock.Lock()
	drained := mount.index.drain()

	kept := newPathIndex()
	var toDestroy []*Node

	for _, n := range drained {
		if c.free.remove(n) {
			n.stateLock.Lock()
			n.flags &^= FlagHashed
			n.stateLock.Unlock()
			toDestroy = append(toDestroy, n)
			continue
		}
		kept.insert(n)
	}

	mount.index = kept
	mount.indexLock.Unlock()

	for _, n := range toDestroy {
		c.AddToFree(n)
	}
}
