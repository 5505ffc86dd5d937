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

package logger

import (
	"fmt"
	"io"
	"os"
)

// asyncLogger queues writes onto a bounded channel and flushes them to the
// underlying writer from a single background goroutine, so a slow disk (or
// a rotating lumberjack file) never blocks the caller of Tracef/Debugf/....
type asyncLogger struct {
	w       io.Writer
	entries chan []byte
	done    chan struct{}
}

// NewAsyncLogger wraps w so writes are buffered through a channel of the
// given capacity and flushed asynchronously. Close drains every buffered
// write, in the order it was queued, before returning.
func NewAsyncLogger(w io.Writer, bufferSize int) *asyncLogger {
	l := &asyncLogger{
		w:       w,
		entries: make(chan []byte, bufferSize),
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *asyncLogger) run() {
	defer close(l.done)
	for b := range l.entries {
		if _, err := l.w.Write(b); err != nil {
			fmt.Fprintf(os.Stderr, "asynclogger: write failed: %v\n", err)
		}
	}
}

// Write copies b (the caller retains ownership of its backing array) and
// queues it for the background writer. It blocks if the buffer is full.
func (l *asyncLogger) Write(b []byte) (int, error) {
	cp := make([]byte, len(b))
	copy(cp, b)
	l.entries <- cp
	return len(b), nil
}

// Close stops accepting new writes, waits for every already-queued write to
// flush, and closes the underlying writer if it supports io.Closer.
func (l *asyncLogger) Close() error {
	close(l.entries)
	<-l.done

	if c, ok := l.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
