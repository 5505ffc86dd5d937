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

// invariantRWMutex is mount.index_lock (spec §3): a reader/writer lock that
// re-checks a supplied invariant function around every exclusive critical
// section, in the spirit of github.com/jacobsa/syncutil.InvariantMutex
// (used elsewhere in this package for node.state_lock) -- but with the
// shared-read capability the path index's concurrent-lookup requirement
// (spec §4.2) needs, which that primitive doesn't provide.
type invariantRWMutex struct {
	mu    sync.RWMutex
	check func()
}

func newInvariantRWMutex(check func()) *invariantRWMutex {
	return &invariantRWMutex{check: check}
}

// Lock acquires the lock exclusively. Invariants are checked once acquired
// and again just before release, so that a violation introduced by the
// critical section itself is caught before anyone else can observe it.
func (m *invariantRWMutex) Lock() {
	m.mu.Lock()
	m.check()
}

func (m *invariantRWMutex) Unlock() {
	m.check()
	m.mu.Unlock()
}

// RLock acquires the lock for shared reading. Readers don't mutate state,
// so there is nothing to re-check on the way in; the invariants were
// already true when the last writer released.
func (m *invariantRWMutex) RLock() {
	m.mu.RLock()
}

func (m *invariantRWMutex) RUnlock() {
	m.mu.RUnlock()
}
