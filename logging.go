package rainfx

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// DefaultLogger writes debug and info lines to one writer and warnings and errors to
// another. Loggers derived with With share the debug switch of their parent.
type DefaultLogger struct {
	debug  *debugFlag
	prefix string
	out    *log.Logger
	err    *log.Logger
}

type debugFlag struct {
	mu sync.Mutex
	on bool
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	return NewWriterLogger(prefix, debug, os.Stdout, os.Stderr)
}

func NewWriterLogger(prefix string, debug bool, out, errOut io.Writer) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	return &DefaultLogger{
		debug:  &debugFlag{on: debug},
		prefix: prefix,
		out:    log.New(out, "", flags),
		err:    log.New(errOut, "", flags),
	}
}

// With returns a logger whose prefix is nested under l's, e.g. "rainfx/gpu".
func (l *DefaultLogger) With(prefix string) *DefaultLogger {
	child := *l
	if l.prefix != "" && prefix != "" {
		child.prefix = l.prefix + "/" + prefix
	} else if prefix != "" {
		child.prefix = prefix
	}
	return &child
}

func (l *DefaultLogger) DebugEnabled() bool {
	l.debug.mu.Lock()
	defer l.debug.mu.Unlock()
	return l.debug.on
}

func (l *DefaultLogger) SetDebug(enabled bool) {
	l.debug.mu.Lock()
	l.debug.on = enabled
	l.debug.mu.Unlock()
}

func (l *DefaultLogger) line(level string, format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		return fmt.Sprintf("[%s] %s: %s", l.prefix, level, msg)
	}
	return level + ": " + msg
}

func (l *DefaultLogger) Debugf(format string, args ...any) {
	if !l.DebugEnabled() {
		return
	}
	l.out.Print(l.line("DEBUG", format, args...))
}

func (l *DefaultLogger) Infof(format string, args ...any) {
	l.out.Print(l.line("INFO", format, args...))
}

func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.err.Print(l.line("WARN", format, args...))
}

func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.err.Print(l.line("ERROR", format, args...))
}

type nopLogger struct{}

func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) DebugEnabled() bool    { return false }
func (nopLogger) SetDebug(bool)         {}
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
