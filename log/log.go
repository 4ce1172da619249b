// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package log provides the small structured logging surface evtx uses
// internally: a Logger interface, a std-library backed implementation, a
// level Filter, and a Helper that offers printf-style convenience methods
// over any Logger.
package log

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// Level is a log severity, ordered from most to least verbose.
type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Logger is the minimal sink every component in this module logs through.
// Log receives already-formatted key/value pairs, alternating key, value,
// key, value, ...
type Logger interface {
	Log(level Level, keyvals ...interface{}) error
}

// stdLogger is a Logger backed by the standard library's log package.
type stdLogger struct {
	mu  sync.Mutex
	out *log.Logger
}

// NewStdLogger returns a Logger that writes to os.Stderr.
func NewStdLogger() Logger {
	return &stdLogger{out: log.New(os.Stderr, "", log.LstdFlags)}
}

func (l *stdLogger) Log(level Level, keyvals ...interface{}) error {
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "MISSING_VALUE")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	parts := make([]interface{}, 0, len(keyvals)+1)
	parts = append(parts, "level="+level.String())
	for i := 0; i < len(keyvals); i += 2 {
		parts = append(parts, fmt.Sprintf("%v=%v", keyvals[i], keyvals[i+1]))
	}
	l.out.Println(parts...)
	return nil
}

// filter wraps a Logger, dropping records below a minimum level.
type filter struct {
	logger Logger
	level  Level
}

// FilterOption configures a Filter.
type FilterOption func(*filter)

// FilterLevel sets the minimum level a record must meet to pass through.
func FilterLevel(level Level) FilterOption {
	return func(f *filter) { f.level = level }
}

// NewFilter wraps logger, applying every opt.
func NewFilter(logger Logger, opts ...FilterOption) Logger {
	f := &filter{logger: logger, level: LevelDebug}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *filter) Log(level Level, keyvals ...interface{}) error {
	if level < f.level {
		return nil
	}
	return f.logger.Log(level, keyvals...)
}

// Helper adds printf-style convenience methods on top of any Logger, the
// way every component in this module actually logs (one Helper held per
// File/Chunk, constructed once in New/NewBytes).
type Helper struct {
	logger Logger
}

// NewHelper wraps logger in a Helper.
func NewHelper(logger Logger) *Helper {
	return &Helper{logger: logger}
}

func (h *Helper) log(level Level, msg string) {
	if h == nil || h.logger == nil {
		return
	}
	h.logger.Log(level, "msg", msg)
}

// Debugf logs at LevelDebug.
func (h *Helper) Debugf(format string, args ...interface{}) {
	h.log(LevelDebug, fmt.Sprintf(format, args...))
}

// Warnf logs at LevelWarn.
func (h *Helper) Warnf(format string, args ...interface{}) {
	h.log(LevelWarn, fmt.Sprintf(format, args...))
}

// Warn logs at LevelWarn without format verbs.
func (h *Helper) Warn(args ...interface{}) {
	h.log(LevelWarn, fmt.Sprint(args...))
}

// Errorf logs at LevelError.
func (h *Helper) Errorf(format string, args ...interface{}) {
	h.log(LevelError, fmt.Sprintf(format, args...))
}

// Error logs at LevelError without format verbs.
func (h *Helper) Error(args ...interface{}) {
	h.log(LevelError, fmt.Sprint(args...))
}

// Infof logs at LevelInfo.
func (h *Helper) Infof(format string, args ...interface{}) {
	h.log(LevelInfo, fmt.Sprintf(format, args...))
}
