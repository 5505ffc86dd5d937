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
	"fmt"
	"syscall"
)

// Per spec §7's error taxonomy: internal races (Retry) are handled locally
// and never surfaced, resource exhaustion effectively never happens because
// allocation blocks rather than fails, and a cached I/O error only ever
// changes add_to_free's destroy-vs-pool decision. The only user-visible
// error this package returns is ErrInvalidName, from Nget's argument
// validation.
var (
	// ErrInvalidName is returned by Nget when asked to resolve an empty
	// name, ".", or "..". Reported as EINVAL to the kernel (spec §7).
	ErrInvalidName = fmt.Errorf("fusenodecache: invalid child name: %w", syscall.EINVAL)
)
