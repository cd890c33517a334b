package logging

import (
	"os"
	"sync"
)

var global struct {
	sync.RWMutex
	logger Logger
}

// SetGlobalLogger installs the process logger
func SetGlobalLogger(logger Logger) {
	global.Lock()
	global.logger = logger
	global.Unlock()
}

// GetGlobalLogger returns the process logger. Until one is installed it is a
// console logger on stderr at the LOG_LEVEL level.
func GetGlobalLogger() Logger {
	global.RLock()
	logger := global.logger
	global.RUnlock()
	if logger != nil {
		return logger
	}

	global.Lock()
	defer global.Unlock()
	if global.logger == nil {
		global.logger = NewDefaultLogger()
	}
	return global.logger
}

// DefaultLogConfig is the configuration of the fallback global logger
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  ParseLevel(os.Getenv("LOG_LEVEL")),
		Format: FormatConsole,
	}
}
