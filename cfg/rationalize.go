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

package cfg

// Rationalize updates config fields based on the values of other fields,
// the way the teacher's own Rationalize does for its bucket-specific knobs
// -- here applied to the node cache's knobs instead.
func Rationalize(c *Config) error {
	if c.Debug.LogMutex || c.Debug.ExitOnInvariantViolation {
		c.Logging.Severity = TraceLogSeverity
	}

	if c.Cache.PathSeparator == "" {
		c.Cache.PathSeparator = "/"
	}
	if c.Cache.AttrSeparator == "" {
		c.Cache.AttrSeparator = ":"
	}

	if c.Cache.NodesTarget == 0 && c.Cache.AvailableMemoryMb > 0 {
		c.Cache.NodesTarget = estimateNodesTarget(c.Cache.AvailableMemoryMb)
	}

	return nil
}

// estimateNodesTarget applies spec §4.1's clamp using a conservative
// estimate of one cached node's footprint (256 bytes) rather than the
// actual size of internal/node's Node.
func estimateNodesTarget(availableMemoryMb int64) int64 {
	const estimatedNodeBytes = 256
	return ((availableMemoryMb * 1024 * 1024) / 4) / estimatedNodeBytes
}
