package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
)

// ProcessName names the logger installed by InitGlobalLogger
const ProcessName = "artifact-cache"

// NewDefaultLogger creates a console logger configured by DefaultLogConfig
func NewDefaultLogger() Logger {
	logger, err := NewZapLogger(DefaultLogConfig())
	if err != nil {
		panic(fmt.Sprintf("failed to initialize default zap logger: %v", err))
	}
	return logger
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() Logger {
	return NewZapAdapter(zap.NewNop())
}

// InitGlobalLogger builds the process logger from level, format and an optional
// log file and installs it as the global logger. An empty file means stderr.
//
// The returned closer flushes buffered entries and then releases the log
// file; call it once the process is done logging.
func InitGlobalLogger(level, format, file string) (Logger, io.Closer, error) {
	config := LogConfig{
		Level:  ParseLevel(level),
		Format: format,
		Name:   ProcessName,
	}

	var f *os.File
	if file != "" {
		var err error
		f, err = os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", file, err)
		}
		config.Output = f
	}

	logger, err := NewZapLogger(config)
	if err != nil {
		if f != nil {
			f.Close()
		}
		return nil, nil, err
	}

	SetGlobalLogger(logger)
	logger.Debug("Logger initialized",
		String("level", config.Level.String()),
		String("format", format),
	)

	return logger, &flushCloser{logger: logger.(*ZapAdapter), file: f}, nil
}

type flushCloser struct {
	logger *ZapAdapter
	file   *os.File
}

// Close syncs the logger before the file goes away. Sync errors on stderr are
// expected on some platforms and ignored.
func (c *flushCloser) Close() error {
	syncErr := c.logger.Sync()
	if c.file == nil {
		return nil
	}
	if err := c.file.Close(); err != nil {
		return err
	}
	return syncErr
}

// Err creates an error field with key "error"
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// String creates a string field
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Strings creates a string slice field
func Strings(key string, values []string) Field {
	return Field{Key: key, Value: values}
}

// Int creates an int field
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Any creates a field with any value
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}
