// CLASSIFICATION: COMMUNITY
// Filename: logger.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

// Package logging provides the leveled logger shared by the gym server,
// the simulation loop and the CLI.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// Level defines severity for logger output.
type Level int32

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// ParseLevel maps a config string onto a Level. Unknown names fall back to info.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError, true
	case "warn", "warning":
		return LevelWarn, true
	case "info", "":
		return LevelInfo, true
	case "debug":
		return LevelDebug, true
	default:
		return LevelInfo, false
	}
}

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelDebug:
		return "debug"
	default:
		return "info"
	}
}

// Printer is the minimal logging surface HTTP middleware and handlers need.
type Printer interface {
	Printf(string, ...any)
}

// Logger provides leveled logging. The level may be changed while other
// goroutines are logging.
type Logger struct {
	level  atomic.Int32
	logger *log.Logger
}

// New creates a logger writing to w with the given level and prefix.
func New(w io.Writer, level Level, prefix string) *Logger {
	l := &Logger{logger: log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)}
	l.level.Store(int32(level))
	return l
}

// SetLevel adjusts the current logging level.
func (l *Logger) SetLevel(level Level) {
	if l == nil {
		return
	}
	l.level.Store(int32(level))
}

// Level returns the current logging level.
func (l *Logger) Level() Level {
	if l == nil {
		return LevelError
	}
	return Level(l.level.Load())
}

func (l *Logger) logf(target Level, tag, format string, args ...any) {
	if l == nil || target > Level(l.level.Load()) {
		return
	}
	l.logger.Output(3, tag+fmt.Sprintf(format, args...))
}

// Debugf prints debug messages.
func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, "DEBUG ", format, args...) }

// Infof prints info messages.
func (l *Logger) Infof(format string, args ...any) { l.logf(LevelInfo, "INFO ", format, args...) }

// Warnf prints warning messages.
func (l *Logger) Warnf(format string, args ...any) { l.logf(LevelWarn, "WARN ", format, args...) }

// Errorf prints error messages.
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, "ERROR ", format, args...) }

// Printf logs at info level so the logger satisfies Printer.
func (l *Logger) Printf(format string, args ...any) { l.logf(LevelInfo, "", format, args...) }

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(New(os.Stderr, LevelInfo, "[wolfgym] "))
}

// Default returns the process-wide logger.
func Default() *Logger {
	return defaultLogger.Load()
}

// SetDefault replaces the process-wide logger (primarily for tests).
func SetDefault(l *Logger) {
	if l == nil {
		return
	}
	defaultLogger.Store(l)
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, LevelError, "")
}
