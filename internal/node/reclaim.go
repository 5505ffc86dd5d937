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

// ReclaimUnderPressure implements the allocator's memory-pressure reclaim
// hook (spec §4.5.4): pop the oldest freelist node, unhash it from
// whichever mount still holds it (racing the same way make_node's victim
// reuse does), and route it through AddToFree -- which will destroy it,
// since it is no longer hashed and its ref_count is zero. Repeats until
// the freelist is empty.
//
// Register this with c.Alloc.RegisterReclaim(c.ReclaimUnderPressure) to
// wire it to the allocator's reclaim callback.
func (c *Cache) ReclaimUnderPressure() {
	for {
		victim := c.free.popHead()
		if victim == nil {
			return
		}

		if victim.Hashed() {
			mount := victim.mount
			mount.indexLock.Lock()
			victim.vnode.Lock()
			if abandonIfRaced(victim) {
				victim.vnode.Unlock()
				mount.indexLock.Unlock()
				continue
			}
			victim.vnode.Unlock()

			mount.index.remove(victim)
			victim.stateLock.Lock()
			victim.flags &^= FlagHashed
			victim.stateLock.Unlock()
			mount.indexLock.Unlock()
		}

		c.Metrics.NodeReclaimed()
		c.AddToFree(victim)
	}
}
