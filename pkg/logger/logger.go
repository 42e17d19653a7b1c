// Package logger provides a small leveled key/value logger.
//
// Lines look like:
//
//	2026-01-01T10:00:00.000000+01:00 [INFO] created event title=Restmüll date=2026-01-08
package logger

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var severity = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ParseLevel maps a config string such as "debug" to a Level.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := severity[l]; !ok {
		return "", fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// Logger writes leveled lines with optional bound key/value pairs.
type Logger struct {
	mu       *sync.Mutex
	out      *stdlog.Logger
	minLevel *Level
	kv       []any
}

// New creates a logger writing to w at the given minimum level.
func New(w io.Writer, level Level) *Logger {
	return &Logger{
		mu:       &sync.Mutex{},
		out:      stdlog.New(w, "", 0),
		minLevel: &level,
	}
}

var std = New(os.Stderr, LevelInfo)

// Default returns the package-level logger.
func Default() *Logger { return std }

// SetDefault replaces the package-level logger.
func SetDefault(l *Logger) { std = l }

// SetLevel changes the minimum level. Loggers derived with With share it.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.minLevel = level
}

// With returns a logger that appends kv to every line.
func (l *Logger) With(kv ...any) *Logger {
	bound := make([]any, 0, len(l.kv)+len(kv))
	bound = append(bound, l.kv...)
	bound = append(bound, kv...)
	return &Logger{mu: l.mu, out: l.out, minLevel: l.minLevel, kv: bound}
}

func (l *Logger) Debug(msg string, kv ...any) { l.log(LevelDebug, msg, kv) }
func (l *Logger) Info(msg string, kv ...any)  { l.log(LevelInfo, msg, kv) }
func (l *Logger) Warn(msg string, kv ...any)  { l.log(LevelWarn, msg, kv) }

// Error logs msg with err first in the key/value list.
func (l *Logger) Error(msg string, err error, kv ...any) {
	l.log(LevelError, msg, append([]any{"err", err}, kv...))
}

func (l *Logger) log(level Level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if severity[level] < severity[*l.minLevel] {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02T15:04:05.000000Z07:00"))
	b.WriteString(" [")
	b.WriteString(string(level))
	b.WriteString("] ")
	b.WriteString(msg)
	writeKVs(&b, l.kv)
	writeKVs(&b, kv)
	l.out.Println(b.String())
}

// writeKVs expects key, value pairs; a trailing odd key is dropped.
func writeKVs(b *strings.Builder, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		val := fmt.Sprint(kv[i+1])
		if strings.ContainsAny(val, " \t\"=") {
			val = fmt.Sprintf("%q", val)
		}
		b.WriteString(" ")
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(val)
	}
}

func Debug(msg string, kv ...any)            { std.Debug(msg, kv...) }
func Info(msg string, kv ...any)             { std.Info(msg, kv...) }
func Warn(msg string, kv ...any)             { std.Warn(msg, kv...) }
func Error(msg string, err error, kv ...any) { std.Error(msg, err, kv...) }
