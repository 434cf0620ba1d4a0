package debug

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	mu    sync.RWMutex
	sugar = zap.NewNop().Sugar()
)

// SetLogger installs the logger used for trace output. Safe to call once at
// startup before any pipeline work begins.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	sugar = l.Sugar()
}

func logger() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Output emits trace output if tracing is enabled for the caller
func Output(enabled bool, format string, args ...interface{}) {
	if enabled {
		logger().Debugf(format, args...)
	}
}

// Timing measures and logs execution time if tracing is enabled
func Timing(enabled bool, operation string) func() {
	if !enabled {
		return func() {}
	}

	start := time.Now()
	Output(enabled, "Starting: %s", operation)

	return func() {
		duration := time.Since(start)
		Output(enabled, "Completed: %s (took %v)", operation, duration)
	}
}
