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

// Package config carries the legacy, pre-cfg-package logging configuration
// shape forward, so internal/logger can bridge between a caller still on
// the old flags and one already speaking cfg.LoggingConfig (spec §A
// "Logging" -- see SPEC_FULL.md). The rest of the teacher's legacy
// MountConfig (bucket mounts, GCS auth, file cache sizing) has no home in
// the node cache domain and is not carried forward here; see DESIGN.md.
package config

// Severity constants, ordered least to most severe except OFF, which
// disables logging entirely.
const (
	TRACE   = "TRACE"
	DEBUG   = "DEBUG"
	INFO    = "INFO"
	WARNING = "WARNING"
	ERROR   = "ERROR"
	OFF     = "OFF"
)

// LogRotateConfig mirrors lumberjack.Logger's rotation knobs, in the
// pre-cfg-package flag shape.
type LogRotateConfig struct {
	MaxFileSizeMB   int
	BackupFileCount int
	Compress        bool
}

// DefaultLogRotateConfig returns the rotation defaults used when a caller
// supplies no explicit configuration.
func DefaultLogRotateConfig() LogRotateConfig {
	return LogRotateConfig{
		MaxFileSizeMB:   512,
		BackupFileCount: 10,
		Compress:        true,
	}
}

// LogConfig is the legacy (pre-cfg-package) logging configuration shape.
type LogConfig struct {
	Severity        string
	File            string
	Format          string
	LogRotateConfig LogRotateConfig
}
