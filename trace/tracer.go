package trace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Tracer provides lowering and execution tracing for debugging
type Tracer struct {
	enabled bool
	filters []string
	writer  io.Writer
	mu      sync.Mutex
}

// Global tracer instance
var globalTracer *Tracer

// Init initializes the global tracer
func Init(enabled bool, filters []string, writer io.Writer) {
	if writer == nil {
		writer = os.Stderr
	}
	globalTracer = &Tracer{
		enabled: enabled,
		filters: filters,
		writer:  writer,
	}
}

// IsEnabled returns whether tracing is enabled
func IsEnabled() bool {
	if globalTracer == nil {
		return false
	}
	return globalTracer.enabled
}

// matchesFilter checks if a function name matches any of the filter patterns
func (t *Tracer) matchesFilter(funcName string) bool {
	if len(t.filters) == 0 {
		return true // No filters = trace everything
	}

	for _, pattern := range t.filters {
		if matched, _ := filepath.Match(pattern, funcName); matched {
			return true
		}
	}
	return false
}

// Lower logs a lowering decision for a statement
func (t *Tracer) Lower(funcName, construct, format string, args ...interface{}) {
	if !t.enabled || !t.matchesFilter(funcName) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.writer, "[TRACE] LOWER %s %s %s\n", funcName, construct, fmt.Sprintf(format, args...))
}

// Func logs a finished function
func (t *Tracer) Func(funcName string, size, instrs int) {
	if !t.enabled || !t.matchesFilter(funcName) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.writer, "[TRACE] FUNC %s size=%d instrs=%d\n", funcName, size, instrs)
}

// Step logs one executed instruction
func (t *Tracer) Step(funcName string, ip int, op string, depth int) {
	if !t.enabled || !t.matchesFilter(funcName) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.writer, "[TRACE]   STEP %s %04d %s sp=%d\n", funcName, ip, op, depth)
}

// Global convenience functions

// Lower logs a lowering decision using the global tracer
func Lower(funcName, construct, format string, args ...interface{}) {
	if globalTracer != nil {
		globalTracer.Lower(funcName, construct, format, args...)
	}
}

// Func logs a finished function using the global tracer
func Func(funcName string, size, instrs int) {
	if globalTracer != nil {
		globalTracer.Func(funcName, size, instrs)
	}
}

// Step logs one executed instruction using the global tracer
func Step(funcName string, ip int, op string, depth int) {
	if globalTracer != nil {
		globalTracer.Step(funcName, ip, op, depth)
	}
}
