// Copyright 2023 Google Inc. All Rights Reserved.
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

// Package util holds small generic helpers shared across cfg and the
// node cache: path resolution for cfg.ResolvedPath, byte/MiB conversions
// for cache sizing, and context isolation for background work that must
// outlive a single request.
package util

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// GCSFUSE_PARENT_PROCESS_DIR names the environment variable a child mount
// helper process uses to resolve relative paths against its parent's
// working directory instead of its own.
const GCSFUSE_PARENT_PROCESS_DIR = "GCSFUSE_PARENT_PROCESS_DIR"

// GetResolvedPath returns filePath resolved to an absolute path: "~" expands
// to the user's home directory, a relative path is joined against the
// parent process's directory (if GCSFUSE_PARENT_PROCESS_DIR is set) or the
// current working directory otherwise. An empty filePath resolves to "".
func GetResolvedPath(filePath string) (string, error) {
	if filePath == "" {
		return "", nil
	}

	if filePath == "~" || strings.HasPrefix(filePath, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if filePath == "~" {
			return homeDir, nil
		}
		return filepath.Join(homeDir, filePath[2:]), nil
	}

	if filepath.IsAbs(filePath) {
		return filePath, nil
	}

	baseDir := os.Getenv(GCSFUSE_PARENT_PROCESS_DIR)
	if baseDir == "" {
		var err error
		baseDir, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(baseDir, filePath), nil
}

// YAMLStringify marshals v to its YAML representation, used to print an
// effective Config for --help/debug output the way the teacher's own cfg
// package does.
func YAMLStringify(v any) (string, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Stringify marshals v to JSON, returning "" on error.
func Stringify(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// MiBsToBytes converts a count of mebibytes to bytes.
func MiBsToBytes(mib uint64) uint64 {
	return mib << 20
}

// BytesToHigherMiBs converts a byte count to the smallest mebibyte count
// that would not truncate it (i.e. rounds up).
func BytesToHigherMiBs(bytes uint64) uint64 {
	return (bytes + (1 << 20) - 1) >> 20
}

// IsolateContextFromParentContext returns a context that carries no
// cancellation from parent, only from the returned CancelFunc -- used for
// background work (freelist draining, reclaim) that must not abort merely
// because the request that triggered it was cancelled.
func IsolateContextFromParentContext(_ context.Context) (context.Context, context.CancelFunc) {
	return context.WithCancel(context.Background())
}

// IsUnsupportedObjectName reports whether name contains a pattern this
// module's path index cannot represent: an empty path segment produced by
// "//", or a path that is only "/".
func IsUnsupportedObjectName(name string) bool {
	if name == "/" {
		return true
	}
	return strings.Contains(name, "//")
}
