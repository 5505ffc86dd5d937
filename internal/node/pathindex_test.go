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
	"github.com/stretchr/testify/require"
)

func nodeWithPath(path string) *Node {
	n := newNode()
	n.remotePath = []byte(path)
	return n
}

func TestPathIndex_FindMiss(t *testing.T) {
	idx := newPathIndex()
	n, found := idx.find([]byte("foo"))
	assert.False(t, found)
	assert.Nil(t, n)
}

// P7: round-trip find/insert/remove.
func TestPathIndex_InsertFindRemove(t *testing.T) {
	idx := newPathIndex()
	n := nodeWithPath("foo/bar")
	idx.insert(n)
	require.Equal(t, 1, idx.len())

	got, found := idx.find([]byte("foo/bar"))
	require.True(t, found)
	assert.Same(t, n, got)

	idx.remove(n)
	assert.Equal(t, 0, idx.len())
	_, found = idx.find([]byte("foo/bar"))
	assert.False(t, found)
}

// P1: uniqueness -- inserting a second node under an already-indexed path
// is a programming error and must panic rather than silently clobber.
func TestPathIndex_DuplicateInsertPanics(t *testing.T) {
	idx := newPathIndex()
	idx.insert(nodeWithPath("foo"))
	assert.Panics(t, func() {
		idx.insert(nodeWithPath("foo"))
	})
}

// P5: sort order -- Ascend (exercised here via first/successor) must
// visit nodes in lexicographic byte order of remote_path.
func TestPathIndex_SortOrder(t *testing.T) {
	idx := newPathIndex()
	paths := []string{"foo/baz", "foo", "foo bar", "foo:stream", "fop", "foo/bar"}
	for _, p := range paths {
		idx.insert(nodeWithPath(p))
	}

	var got []string
	for n := idx.first(); n != nil; n = idx.successor(n) {
		got = append(got, string(n.remotePath))
	}

	want := []string{"foo", "foo bar", "foo/bar", "foo/baz", "foo:stream", "fop"}
	assert.Equal(t, want, got)
}

func TestPathIndex_SuccessorOfLastIsNil(t *testing.T) {
	idx := newPathIndex()
	a := nodeWithPath("a")
	b := nodeWithPath("b")
	idx.insert(a)
	idx.insert(b)

	assert.Same(t, b, idx.successor(a))
	assert.Nil(t, idx.successor(b))
}

func TestPathIndex_FirstOnEmptyIsNil(t *testing.T) {
	idx := newPathIndex()
	assert.Nil(t, idx.first())
}

func TestPathIndex_Drain(t *testing.T) {
	idx := newPathIndex()
	idx.insert(nodeWithPath("b"))
	idx.insert(nodeWithPath("a"))
	idx.insert(nodeWithPath("c"))

	drained := idx.drain()
	require.Len(t, drained, 3)
	assert.Equal(t, "a", string(drained[0].remotePath))
	assert.Equal(t, "b", string(drained[1].remotePath))
	assert.Equal(t, "c", string(drained[2].remotePath))

	assert.Equal(t, 0, idx.len())
	assert.Nil(t, idx.first())
}

func TestPathLess(t *testing.T) {
	assert.True(t, pathLess([]byte("a"), []byte("b")))
	assert.True(t, pathLess([]byte("foo"), []byte("foo/bar")))
	assert.False(t, pathLess([]byte("foo/bar"), []byte("foo")))
	assert.False(t, pathLess([]byte("a"), []byte("a")))
}
