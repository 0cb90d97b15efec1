// File: internal/logging/logger.go
// Author: momentics <momentics@gmail.com>
//
// Leveled logger on top of the standard log package. Lines look like
//
//	[HIOLOAD_BATCH][ERROR] when (pool.Run) : message
//
// Verbosity 1 keeps fatal and error lines, 2 adds info, 3 adds debug.
// Verbose lines (per-request debug traces) are written at any verbosity
// above zero.

package logging

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Title tags every line written by the library.
const Title = "HIOLOAD_BATCH"

// Severity of a single log line.
type Severity int

const (
	SeverityFatal Severity = iota + 1
	SeverityError
	SeverityInfo
	SeverityDebug
)

func (s Severity) String() string {
	switch s {
	case SeverityFatal:
		return "FATAL ERROR"
	case SeverityError:
		return "ERROR"
	case SeverityInfo:
		return "INFO"
	case SeverityDebug:
		return "DEBUG"
	default:
		return "VERBOSE"
	}
}

// Verbosity levels.
const (
	Quiet      = 0
	VerboseV   = 1
	VerboseVV  = 2
	VerboseVVV = 3
)

// DefaultVerbosity matches the library's out-of-the-box log level.
const DefaultVerbosity = VerboseVV

// Logger writes leveled lines to an underlying *log.Logger.
type Logger struct {
	out       *log.Logger
	verbosity int
}

// New returns a logger writing to w. A nil w means stderr.
func New(w io.Writer, verbosity int) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{out: log.New(w, "", log.LstdFlags), verbosity: verbosity}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, Quiet)
}

// Verbosity reports the configured verbosity.
func (l *Logger) Verbosity() int {
	if l == nil {
		return Quiet
	}
	return l.verbosity
}

// Enabled reports whether lines of severity s are written.
func (l *Logger) Enabled(s Severity) bool {
	if l == nil || l.verbosity <= Quiet {
		return false
	}
	switch l.verbosity {
	case VerboseV:
		return s <= SeverityError
	case VerboseVV:
		return s <= SeverityInfo
	default:
		return s <= SeverityDebug
	}
}

func (l *Logger) write(s Severity, fn, format string, args ...any) {
	if !l.Enabled(s) {
		return
	}
	l.out.Printf("[%s][%s] when (%s) : %s", Title, s, fn, fmt.Sprintf(format, args...))
}

// Fatalf logs a configuration failure the caller chose not to propagate.
// It does not exit.
func (l *Logger) Fatalf(fn, format string, args ...any) {
	l.write(SeverityFatal, fn, format, args...)
}

// Errorf logs at error severity.
func (l *Logger) Errorf(fn, format string, args ...any) {
	l.write(SeverityError, fn, format, args...)
}

// Infof logs at info severity.
func (l *Logger) Infof(fn, format string, args ...any) {
	l.write(SeverityInfo, fn, format, args...)
}

// Debugf logs at debug severity.
func (l *Logger) Debugf(fn, format string, args ...any) {
	l.write(SeverityDebug, fn, format, args...)
}

// Verbosef logs a per-request trace line whenever logging is on at all.
func (l *Logger) Verbosef(fn, format string, args ...any) {
	if l == nil || l.verbosity <= Quiet {
		return
	}
	l.out.Printf("[%s][VERBOSE] when (%s) : %s", Title, fn, fmt.Sprintf(format, args...))
}
