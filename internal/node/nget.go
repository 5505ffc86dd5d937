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

// Nget is the convenience wrapper of spec §6: it rejects empty, ".", and
// "..", inherits the extended-attribute namespace flag from the parent (by
// using the parent's AttrSeparator when xattr is true), and returns a
// referenced vnode rather than a *Node, for callers that only care about
// the VFS shell.
func (c *Cache) Nget(parentMount *Mount, parentPath []byte, name []byte, xattr bool, req AttrRequest) (Vnode, error) {
	if len(name) == 0 || string(name) == "." || string(name) == ".." {
		return nil, ErrInvalidName
	}

	sep := parentMount.Separator
	if xattr {
		sep = parentMount.AttrSeparator
	}

	n, err := c.FindOrCreate(parentMount, parentPath, sep, name, req)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, nil
	}
	return n.Vnode(), nil
}
