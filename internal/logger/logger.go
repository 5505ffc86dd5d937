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

// Package logger wraps log/slog with a custom TRACE level below DEBUG, a
// process-wide default logger swappable between json and text encodings,
// and file rotation via lumberjack -- ambient infrastructure shared by
// every component in this module, following the teacher's own
// internal/logger package.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/fusenodecache/cfg"
	"github.com/GoogleCloudPlatform/fusenodecache/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Custom levels, placed around slog's built-ins so TRACE sits below DEBUG
// and OFF sits above ERROR.
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelOff   = slog.Level(1 << 30)
)

var levelNames = map[slog.Level]string{
	LevelTrace: "TRACE",
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARNING",
	LevelError: "ERROR",
}

// textTimeLayout matches the 26-character timestamp the teacher's text
// format has always emitted.
const textTimeLayout = "2006/01/02 15:04:05.000000"

// recordHandler renders a slog.Record directly instead of going through
// slog's built-in Text/JSON handlers: the teacher's on-disk shapes (a
// nested {seconds,nanos} JSON timestamp, an unquoted text severity) aren't
// expressible through ReplaceAttr alone.
type recordHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  *slog.LevelVar
	format string
	prefix string
}

func (h *recordHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *recordHandler) Handle(_ context.Context, r slog.Record) error {
	sev, ok := levelNames[r.Level]
	if !ok {
		sev = r.Level.String()
	}
	msg := h.prefix + r.Message

	var line string
	if h.format == "text" {
		line = fmt.Sprintf("time=%q severity=%s message=%q\n", r.Time.Format(textTimeLayout), sev, msg)
	} else {
		line = fmt.Sprintf(
			"{\"timestamp\":{\"seconds\":%d,\"nanos\":%d},\"severity\":%q,\"message\":%q}\n",
			r.Time.Unix(), r.Time.Nanosecond(), sev, msg,
		)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line)
	return err
}

func (h *recordHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *recordHandler) WithGroup(_ string) slog.Handler      { return h }

// loggerFactory builds slog.Handlers from the currently configured
// destination (file or stderr), format, and level.
type loggerFactory struct {
	file      *os.File
	sysWriter io.Writer
	rotator   io.Writer // lumberjack-backed async writer, set when file logging is active

	format          string
	level           string
	logRotateConfig config.LogRotateConfig
}

func (f *loggerFactory) createJsonOrTextHandler(w io.Writer, level *slog.LevelVar, prefix string) slog.Handler {
	return &recordHandler{
		mu:     new(sync.Mutex),
		w:      w,
		level:  level,
		format: f.format,
		prefix: prefix,
	}
}

var defaultLoggerFactory = &loggerFactory{
	level:           config.INFO,
	format:          "json",
	sysWriter:       os.Stderr,
	logRotateConfig: config.DefaultLogRotateConfig(),
}

func toLevelVar(sev string) *slog.LevelVar {
	v := new(slog.LevelVar)
	setLoggingLevel(sev, v)
	return v
}

var defaultLogger = slog.New(
	defaultLoggerFactory.createJsonOrTextHandler(os.Stderr, toLevelVar(config.INFO), ""),
)

// setLoggingLevel maps a config severity string onto programLevel, the
// slog.LevelVar a live handler consults on every call.
func setLoggingLevel(severity string, programLevel *slog.LevelVar) {
	switch severity {
	case config.TRACE:
		programLevel.Set(LevelTrace)
	case config.DEBUG:
		programLevel.Set(LevelDebug)
	case config.INFO:
		programLevel.Set(LevelInfo)
	case config.WARNING:
		programLevel.Set(LevelWarn)
	case config.ERROR:
		programLevel.Set(LevelError)
	case config.OFF:
		programLevel.Set(LevelOff)
	default:
		programLevel.Set(LevelInfo)
	}
}

// asyncLogBufferSize bounds how many pending log lines the async file
// writer will queue before blocking the caller.
const asyncLogBufferSize = 1024

// InitLogFile reconfigures the default logger from a (legacy, new) pair of
// configs: prefer the new cfg.LoggingConfig's fields, fall back to the
// legacy config.LogConfig's rotation settings when present. A non-empty
// file path is written through an async lumberjack-backed writer so a slow
// disk never blocks the caller of Tracef/Debugf/....
func InitLogFile(legacy config.LogConfig, next cfg.LoggingConfig) error {
	factory := &loggerFactory{
		format: next.Format,
		level:  string(next.Severity),
		logRotateConfig: config.LogRotateConfig{
			MaxFileSizeMB:   legacy.LogRotateConfig.MaxFileSizeMB,
			BackupFileCount: legacy.LogRotateConfig.BackupFileCount,
			Compress:        legacy.LogRotateConfig.Compress,
		},
	}
	if next.LogRotate != (cfg.LogRotateLoggingConfig{}) {
		factory.logRotateConfig = config.LogRotateConfig{
			MaxFileSizeMB:   int(next.LogRotate.MaxFileSizeMb),
			BackupFileCount: next.LogRotate.BackupFileCount,
			Compress:        next.LogRotate.Compress,
		}
	}

	path := string(next.FilePath)
	if path == "" {
		path = legacy.File
	}

	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		factory.file = f
		factory.sysWriter = nil
		factory.rotator = NewAsyncLogger(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    factory.logRotateConfig.MaxFileSizeMB,
			MaxBackups: factory.logRotateConfig.BackupFileCount,
			Compress:   factory.logRotateConfig.Compress,
		}, asyncLogBufferSize)
	} else {
		factory.sysWriter = os.Stderr
	}

	defaultLoggerFactory = factory
	rebuildDefaultLogger()
	return nil
}

// SetLogFormat rebuilds the default logger using the currently configured
// destination and level, with a new output format.
func SetLogFormat(format string) {
	defaultLoggerFactory.format = format
	rebuildDefaultLogger()
}

func rebuildDefaultLogger() {
	var w io.Writer = os.Stderr
	switch {
	case defaultLoggerFactory.rotator != nil:
		w = defaultLoggerFactory.rotator
	case defaultLoggerFactory.file != nil:
		w = defaultLoggerFactory.file
	case defaultLoggerFactory.sysWriter != nil:
		w = defaultLoggerFactory.sysWriter
	}

	level := toLevelVar(defaultLoggerFactory.level)
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(w, level, ""))
}

func logAt(level slog.Level, format string, v ...any) {
	ctx := context.Background()
	if !defaultLogger.Enabled(ctx, level) {
		return
	}
	defaultLogger.Log(ctx, level, fmt.Sprintf(format, v...))
}

// Tracef logs at the custom TRACE level, below DEBUG.
func Tracef(format string, v ...any) { logAt(LevelTrace, format, v...) }

// Debugf logs at DEBUG.
func Debugf(format string, v ...any) { logAt(LevelDebug, format, v...) }

// Infof logs at INFO.
func Infof(format string, v ...any) { logAt(LevelInfo, format, v...) }

// Warnf logs at WARNING.
func Warnf(format string, v ...any) { logAt(LevelWarn, format, v...) }

// Errorf logs at ERROR.
func Errorf(format string, v ...any) { logAt(LevelError, format, v...) }
