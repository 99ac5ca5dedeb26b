// Package obslog is the structured logging gate every component logs
// through. It mirrors the teacher's internal/debug package: a package-level
// quiet flag suppresses all output when the host process pipes structured
// data over stdio (an LSP transport is stdio-sensitive the same way the
// teacher's MCP transport is), and every call site names its component.
// Unlike the teacher, output is backed by github.com/sirupsen/logrus rather
// than raw fmt.Fprintf, since logrus is a real dependency present in the
// retrieved corpus.
package obslog

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu     sync.Mutex
	quiet  bool
	logger = logrus.StandardLogger()
)

// SetQuiet suppresses all log output. Set this before wiring a component up
// over a stdio transport that cannot tolerate interleaved log lines.
func SetQuiet(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

// SetOutput lets callers redirect the underlying logrus logger, e.g. to a
// file, in tests or long-running daemons.
func SetOutput(l *logrus.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

func isQuiet() bool {
	mu.Lock()
	defer mu.Unlock()
	return quiet
}

// For returns a component-scoped logger. Every log call site in the
// indexing pipeline should go through a *Logger obtained here rather than
// calling logrus directly, so SetQuiet has one place to take effect.
func For(component string) *Logger {
	return &Logger{component: component}
}

// Logger is a component-scoped wrapper around a logrus entry.
type Logger struct {
	component string
}

func (l *Logger) entry() *logrus.Entry {
	return logger.WithField("component", l.component)
}

// Infof logs at info level with the component field set.
func (l *Logger) Infof(format string, args ...interface{}) {
	if isQuiet() {
		return
	}
	l.entry().Infof(format, args...)
}

// Warnf logs at warn level with the component field set. This is the level
// used for every "recovered locally" error class from spec.md §7: oversized
// files, parse failures, malformed jars, failed dependency resolution.
func (l *Logger) Warnf(format string, args ...interface{}) {
	if isQuiet() {
		return
	}
	l.entry().Warnf(format, args...)
}

// Errorf logs at error level with the component field set.
func (l *Logger) Errorf(format string, args ...interface{}) {
	if isQuiet() {
		return
	}
	l.entry().Errorf(format, args...)
}

// WithPath returns a derived logger carrying a path field, for the common
// case of logging about one file/archive/project. The result is gated by
// the same quiet flag as Infof/Warnf/Errorf.
func (l *Logger) WithPath(path string) *PathLogger {
	return &PathLogger{entry: l.entry().WithField("path", path)}
}

// PathLogger is a quiet-gated logrus entry pre-populated with a path field.
type PathLogger struct {
	entry *logrus.Entry
}

// Infof logs at info level.
func (p *PathLogger) Infof(format string, args ...interface{}) {
	if isQuiet() {
		return
	}
	p.entry.Infof(format, args...)
}

// Warn logs a single message at warn level.
func (p *PathLogger) Warn(args ...interface{}) {
	if isQuiet() {
		return
	}
	p.entry.Warn(args...)
}

// Warnf logs at warn level.
func (p *PathLogger) Warnf(format string, args ...interface{}) {
	if isQuiet() {
		return
	}
	p.entry.Warnf(format, args...)
}

// Errorf logs at error level.
func (p *PathLogger) Errorf(format string, args ...interface{}) {
	if isQuiet() {
		return
	}
	p.entry.Errorf(format, args...)
}
