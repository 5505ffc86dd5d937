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
	"bytes"

	"github.com/google/btree"
)

// pathIndexDegree controls the branching factor of the per-mount btree.
// 32 is the value google/btree's own benchmarks recommend for general use.
const pathIndexDegree = 32

// nodeItem adapts *Node to btree.Item without requiring package node's core
// type to import google/btree directly.
type nodeItem struct {
	*Node
}

func (a nodeItem) Less(than btree.Item) bool {
	switch b := than.(type) {
	case nodeItem:
		if a.Node == b.Node {
			return false
		}
		return pathLess(a.remotePath, b.remotePath)
	case keyItem:
		return pathLess(a.remotePath, b.key)
	default:
		panic("fusenodecache: unknown btree.Item type")
	}
}

// keyItem is a search pivot: a bare key with no backing Node, used by find.
type keyItem struct{ key []byte }

func (a keyItem) Less(than btree.Item) bool {
	switch b := than.(type) {
	case nodeItem:
		return pathLess(a.key, b.remotePath)
	case keyItem:
		return pathLess(a.key, b.key)
	default:
		panic("fusenodecache: unknown btree.Item type")
	}
}

// pathIndex is the per-mount ordered map from remote path to node (spec
// §4.2), backed by github.com/google/btree -- the ordered-map library of
// choice across the retrieved corpus for exactly this shape of problem.
// All mutation requires the owning mount's index lock held exclusively;
// find and traversal require it held at least for reading. pathIndex
// itself holds no lock -- that discipline lives in Mount.
type pathIndex struct {
	tree *btree.BTree
}

func newPathIndex() *pathIndex {
	return &pathIndex{tree: btree.New(pathIndexDegree)}
}

// find returns the node for key, if any, and whether it was found. The
// source's position_hint has no direct analogue in google/btree (there is
// no iterator-based insert-at-position), so find returns no hint: a miss
// only tells the caller the key is absent, and insert performs its own
// O(log n) search.
func (idx *pathIndex) find(key []byte) (n *Node, found bool) {
	item := idx.tree.Get(keyItem{key: key})
	if item == nil {
		return nil, false
	}
	return item.(nodeItem).Node, true
}

// insert links n into the index. Per spec §3 invariant 6, paths within one
// mount are unique; inserting a node whose path already has an entry is a
// programming error and panics rather than silently overwriting.
func (idx *pathIndex) insert(n *Node) {
	old := idx.tree.ReplaceOrInsert(nodeItem{n})
	if old != nil {
		panic("fusenodecache: duplicate remote_path inserted into path index")
	}
}

// remove unlinks n from the index. A no-op if n was never indexed with
// this path (callers are expected to only call this while FlagHashed is
// known set, under the mount's exclusive index lock).
func (idx *pathIndex) remove(n *Node) {
	idx.tree.Delete(nodeItem{n})
}

// first returns the lexicographically smallest node in the index, or nil
// if the index is empty.
func (idx *pathIndex) first() *Node {
	var result *Node
	idx.tree.Ascend(func(item btree.Item) bool {
		result = item.(nodeItem).Node
		return false
	})
	return result
}

// successor returns the node immediately after n in sorted order, or nil
// if n is the last entry. Used by the subtree prefix walk (spec §4.5.1).
func (idx *pathIndex) successor(n *Node) *Node {
	var result *Node
	idx.tree.AscendGreaterOrEqual(nodeItem{n}, func(item btree.Item) bool {
		cand := item.(nodeItem).Node
		if cand == n || bytes.Equal(cand.remotePath, n.remotePath) {
			return true // keep going past n itself
		}
		result = cand
		return false
	})
	return result
}

// drain empties the index, returning every node it held in ascending
// order. Used by destroy_table (spec §4.5.3).
func (idx *pathIndex) drain() []*Node {
	nodes := make([]*Node, 0, idx.tree.Len())
	idx.tree.Ascend(func(item btree.Item) bool {
		nodes = append(nodes, item.(nodeItem).Node)
		return true
	})
	idx.tree = btree.New(pathIndexDegree)
	return nodes
}

// len reports the number of nodes currently indexed.
func (idx *pathIndex) len() int {
	return idx.tree.Len()
}
