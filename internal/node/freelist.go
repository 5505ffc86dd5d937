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

import "sync"

// freeList is the process-wide circular doubly linked FIFO of spec §4.3,
// guarded by a single mutex. It is intentionally not per-mount: a per-mount
// freelist would break the "oldest cold node anywhere is next to be
// recycled" policy and lose the cross-mount size cap (spec §9).
//
// Links live directly on Node (free_prev/free_next) -- no container/list
// boxing, per spec §9's note on intrusive embedded links.
type freeList struct {
	mu    sync.Mutex
	head  *Node
	count int
}

// pushTail appends n to the tail of the freelist. Requires the caller to
// already hold n's mount's index_lock exclusively (spec §4.3), which this
// type cannot itself verify; that discipline is enforced by lifecycle.go.
func (fl *freeList) pushTail(n *Node) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.head == nil {
		n.freePrev, n.freeNext = n, n
		fl.head = n
	} else {
		tail := fl.head.freePrev
		tail.freeNext = n
		n.freePrev = tail
		n.freeNext = fl.head
		fl.head.freePrev = n
	}
	fl.count++
}

// remove unlinks n from the freelist if it is on it. Safe to call whether
// or not n is currently linked (spec §4.3); returns whether it was.
func (fl *freeList) remove(n *Node) bool {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.removeLocked(n)
}

func (fl *freeList) removeLocked(n *Node) bool {
	if n.freePrev == nil || n.freeNext == nil {
		return false
	}

	if n.freeNext == n {
		// Sole entry.
		fl.head = nil
	} else {
		n.freePrev.freeNext = n.freeNext
		n.freeNext.freePrev = n.freePrev
		if fl.head == n {
			fl.head = n.freeNext
		}
	}

	n.freePrev, n.freeNext = nil, nil
	fl.count--
	return true
}

// popHead removes and returns the oldest pooled node, or nil if the
// freelist is empty.
func (fl *freeList) popHead() *Node {
	fl.mu.Lock()
	n := fl.head
	if n == nil {
		fl.mu.Unlock()
		return nil
	}
	fl.removeLocked(n)
	fl.mu.Unlock()
	return n
}

// len reports the number of nodes currently on the freelist.
func (fl *freeList) len() int {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.count
}
