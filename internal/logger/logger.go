// Package logger provides the structured logger used across the service.
// Arguments after the message are key/value pairs.
package logger

import (
	"fmt"
	"log"
	"strings"
)

type Logger interface {
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// Std writes through a stdlib *log.Logger.
type Std struct {
	l *log.Logger
}

var _ Logger = (*Std)(nil)

func NewStd(l *log.Logger) *Std {
	if l == nil {
		l = log.Default()
	}
	return &Std{l: l}
}

func (s *Std) Info(msg string, kv ...any)  { s.l.Print(format("INFO", msg, kv)) }
func (s *Std) Warn(msg string, kv ...any)  { s.l.Print(format("WARN", msg, kv)) }
func (s *Std) Error(msg string, kv ...any) { s.l.Print(format("ERROR", msg, kv)) }

// Nop discards everything.
type Nop struct{}

func (Nop) Info(string, ...any)  {}
func (Nop) Warn(string, ...any)  {}
func (Nop) Error(string, ...any) {}

func format(level, msg string, kv []any) string {
	var b strings.Builder
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if i+1 < len(kv) {
			fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
		} else {
			fmt.Fprintf(&b, " %v", kv[i])
		}
	}
	return b.String()
}

// fields turns key/value pairs into a map, pulling out the first error value.
func fields(kv []any) (map[string]interface{}, error) {
	var firstErr error
	m := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k := fmt.Sprint(kv[i])
		if err, ok := kv[i+1].(error); ok && firstErr == nil {
			firstErr = err
		}
		m[k] = kv[i+1]
	}
	return m, firstErr
}
