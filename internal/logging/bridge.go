package logging

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
)

// callerInfo walks past this package's own frames to find the call site,
// so Debugf/Infof/... attribute to the plugin or core file that logged,
// not to logger.go itself.
func callerInfo() (pc uintptr, file string, line int, ok bool) {
	var pcs [8]uintptr
	n := runtime.Callers(2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		if f.File == "" {
			return 0, "", 0, false
		}
		// Test files share this package's import path but are call sites.
		if !isLoggingFrame(f.Function) || strings.HasSuffix(f.File, "_test.go") {
			return f.PC, shortFile(f.File), f.Line, true
		}
		if !more {
			return f.PC, shortFile(f.File), f.Line, true
		}
	}
}

const loggingPkgPrefix = "github.com/netlogd/netlogd/internal/logging"

func isLoggingFrame(fn string) bool {
	return len(fn) >= len(loggingPkgPrefix) && fn[:len(loggingPkgPrefix)] == loggingPkgPrefix
}

func shortFile(path string) string {
	depth := 0
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			depth++
			if depth == 2 {
				return path[i+1:]
			}
		}
	}
	return path
}

// slogBridge adapts a *Logger to slog.Handler, so code written against the
// standard library interface (e.g. a chi middleware, or a third-party
// client that accepts a *slog.Logger) still funnels through the same
// file-or-syslog sink and Reopen() lifecycle.
type slogBridge struct {
	lg    *Logger
	attrs []slog.Attr
	group string
}

func (b *slogBridge) Enabled(_ context.Context, level slog.Level) bool {
	return b.lg.Enabled(level)
}

func (b *slogBridge) Handle(_ context.Context, r slog.Record) error {
	file, line := "???", 0
	if r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := frames.Next()
		if f.File != "" {
			file, line = shortFile(f.File), f.Line
		}
	}
	msg := r.Message
	appendAttr := func(a slog.Attr) bool {
		if b.lg.redact != nil {
			a = b.lg.redact(nil, a)
		}
		msg += " " + a.Key + "=" + a.Value.String()
		return true
	}
	for _, a := range b.attrs {
		appendAttr(a)
	}
	r.Attrs(appendAttr)
	b.lg.Log(r.Level, file, line, "%s", msg)
	return nil
}

func (b *slogBridge) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &slogBridge{lg: b.lg, attrs: append(append([]slog.Attr{}, b.attrs...), attrs...), group: b.group}
}

func (b *slogBridge) WithGroup(name string) slog.Handler {
	return &slogBridge{lg: b.lg, attrs: b.attrs, group: name}
}
