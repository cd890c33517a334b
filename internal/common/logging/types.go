// Package logging is the structured logging surface of the cache: a small
// Logger interface, field helpers and a zap implementation.
package logging

import (
	"context"
	"io"
	"strings"
)

// LogLevel orders messages by severity
type LogLevel int

// Levels, least severe first
const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = map[LogLevel]string{
	DebugLevel: "DEBUG",
	InfoLevel:  "INFO",
	WarnLevel:  "WARN",
	ErrorLevel: "ERROR",
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLevel maps a case-insensitive level name to a LogLevel. "warning" is
// accepted for WarnLevel; anything unrecognised is InfoLevel.
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Field is one structured key/value attached to a message
type Field struct {
	Key   string
	Value interface{}
}

// Logger is implemented by ZapAdapter. Error takes the failure separately so
// it is always rendered under the "error" key.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
	WithFields(fields ...Field) Logger
	WithContext(ctx context.Context) Logger
}

// Encoders understood by NewZapLogger
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// LogConfig describes a logger built by NewZapLogger
type LogConfig struct {
	Level  LogLevel
	Format string    // FormatConsole or FormatJSON
	Output io.Writer // stderr when nil
	Name   string    // logger name, omitted when empty
}
