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

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	AppName string `yaml:"app-name"`

	Cache CacheConfig `yaml:"cache"`

	Debug DebugConfig `yaml:"debug"`

	FileSystem FileSystemConfig `yaml:"file-system"`

	Logging LoggingConfig `yaml:"logging"`
}

// CacheConfig configures the node cache's allocator sizing, attribute TTL,
// and path-separator bytes -- the knobs spec §4.1's "external configuration"
// note calls out.
type CacheConfig struct {
	// NodesTarget is the soft ceiling nodes_target (spec §4.1). When it is
	// zero and AvailableMemoryMb is positive, Rationalize derives it from
	// AvailableMemoryMb.
	NodesTarget int64 `yaml:"nodes-target"`

	// AvailableMemoryMb bounds NodesTarget when it is left at zero.
	AvailableMemoryMb int64 `yaml:"available-memory-mb"`

	// AttrCacheTtl is the mount-wide attribute cache time-to-live.
	AttrCacheTtl time.Duration `yaml:"attr-cache-ttl"`

	// PathSeparator is the byte used to join directory and child names when
	// composing lookup keys ('/' by default).
	PathSeparator string `yaml:"path-separator"`

	// AttrSeparator is the byte used for extended-attribute namespace joins
	// (':' by default).
	AttrSeparator string `yaml:"attr-separator"`

	// DebugInvariants is bound to --cache-debug-invariants but is not read by
	// the node cache: its invariant checks panic on a violation whatever
	// this field says.
	DebugInvariants bool `yaml:"debug-invariants"`
}

type DebugConfig struct {
	ExitOnInvariantViolation bool `yaml:"exit-on-invariant-violation"`

	LogMutex bool `yaml:"log-mutex"`
}

type FileSystemConfig struct {
	FileMode Octal `yaml:"file-mode"`

	Uid int `yaml:"uid"`
}

// LoggingConfig configures the ambient slog-based logger (internal/logger).
type LoggingConfig struct {
	Severity LogSeverity `yaml:"severity"`

	Format string `yaml:"format"`

	FilePath ResolvedPath `yaml:"file-path"`

	LogRotate LogRotateLoggingConfig `yaml:"log-rotate"`
}

// LogRotateLoggingConfig mirrors lumberjack.Logger's rotation knobs.
type LogRotateLoggingConfig struct {
	MaxFileSizeMb int64 `yaml:"max-file-size-mb"`

	BackupFileCount int `yaml:"backup-file-count"`

	Compress bool `yaml:"compress"`
}

func BindFlags(flagSet *pflag.FlagSet) error {
	var err error

	flagSet.StringP("app-name", "", "", "The application name of this mount.")

	err = viper.BindPFlag("app-name", flagSet.Lookup("app-name"))
	if err != nil {
		return err
	}

	flagSet.BoolP("debug_fuse", "", true, "This flag is currently unused.")

	err = flagSet.MarkDeprecated("debug_fuse", "This flag is currently unused.")
	if err != nil {
		return err
	}

	flagSet.BoolP("debug_fuse_errors", "", true, "This flag is currently unused.")

	err = flagSet.MarkDeprecated("debug_fuse_errors", "This flag is currently unused.")
	if err != nil {
		return err
	}

	flagSet.BoolP("debug_invariants", "", false, "Exit when internal invariants are violated.")

	err = viper.BindPFlag("debug.exit-on-invariant-violation", flagSet.Lookup("debug_invariants"))
	if err != nil {
		return err
	}

	flagSet.BoolP("debug_mutex", "", false, "Print debug messages when a mutex is held too long.")

	err = viper.BindPFlag("debug.log-mutex", flagSet.Lookup("debug_mutex"))
	if err != nil {
		return err
	}

	flagSet.IntP("file-mode", "", 0, "Permissions bits for files, in octal.")

	err = viper.BindPFlag("file-system.file-mode", flagSet.Lookup("file-mode"))
	if err != nil {
		return err
	}

	flagSet.IntP("uid", "", -1, "UID owner of all inodes.")

	err = viper.BindPFlag("file-system.uid", flagSet.Lookup("uid"))
	if err != nil {
		return err
	}

	flagSet.Int64P("cache-nodes-target", "", 0, "Soft ceiling on live cached nodes; 0 derives it from --cache-available-memory-mb.")

	err = viper.BindPFlag("cache.nodes-target", flagSet.Lookup("cache-nodes-target"))
	if err != nil {
		return err
	}

	flagSet.Int64P("cache-available-memory-mb", "", 1024, "Available memory budget used to clamp cache.nodes-target when it is zero.")

	err = viper.BindPFlag("cache.available-memory-mb", flagSet.Lookup("cache-available-memory-mb"))
	if err != nil {
		return err
	}

	flagSet.DurationP("cache-attr-ttl", "", time.Minute, "Attribute cache time-to-live for newly mounted path indexes.")

	err = viper.BindPFlag("cache.attr-cache-ttl", flagSet.Lookup("cache-attr-ttl"))
	if err != nil {
		return err
	}

	flagSet.StringP("cache-path-separator", "", "/", "Byte used to join directory and child names when composing cache lookup keys.")

	err = viper.BindPFlag("cache.path-separator", flagSet.Lookup("cache-path-separator"))
	if err != nil {
		return err
	}

	flagSet.StringP("cache-attr-separator", "", ":", "Byte used for extended-attribute namespace joins in cache lookup keys.")

	err = viper.BindPFlag("cache.attr-separator", flagSet.Lookup("cache-attr-separator"))
	if err != nil {
		return err
	}

	flagSet.BoolP("cache-debug-invariants", "", false, "Currently unused: node cache invariant violations always panic.")

	err = viper.BindPFlag("cache.debug-invariants", flagSet.Lookup("cache-debug-invariants"))
	if err != nil {
		return err
	}

	flagSet.StringP("log-severity", "", "INFO", "Logging severity: TRACE, DEBUG, INFO, WARNING, ERROR, or OFF.")

	err = viper.BindPFlag("logging.severity", flagSet.Lookup("log-severity"))
	if err != nil {
		return err
	}

	flagSet.StringP("log-format", "", "json", "Logging output format: json or text.")

	err = viper.BindPFlag("logging.format", flagSet.Lookup("log-format"))
	if err != nil {
		return err
	}

	flagSet.StringP("log-file", "", "", "Path to a log file; empty means stderr.")

	err = viper.BindPFlag("logging.file-path", flagSet.Lookup("log-file"))
	if err != nil {
		return err
	}

	return nil
}
