package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// LogLevel represents the severity of a log message
type LogLevel int32

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

var levels = [...]struct {
	name   string
	prefix string
}{
	LevelDebug: {"debug", "[DEBUG] "},
	LevelInfo:  {"info", "[INFO] "},
	LevelWarn:  {"warn", "[WARN] "},
	LevelError: {"error", "[ERROR] "},
}

var (
	current  atomic.Int32
	seedOnce sync.Once
)

// seed reads DEBUG and LOG_LEVEL the first time the level is needed.
// A truthy DEBUG overrides LOG_LEVEL.
func seed() {
	seedOnce.Do(func() {
		switch strings.ToLower(os.Getenv("DEBUG")) {
		case "1", "true", "yes", "on":
			current.Store(int32(LevelDebug))
		default:
			level, _ := ParseLevel(os.Getenv("LOG_LEVEL"))
			current.Store(int32(level))
		}
	})
}

// ParseLevel converts a level name into a LogLevel. Unknown or empty names
// yield LevelInfo and ok=false.
func ParseLevel(name string) (level LogLevel, ok bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		return LevelWarn, true
	}
	for l, def := range levels {
		if def.name == name {
			return LogLevel(l), true
		}
	}
	return LevelInfo, false
}

// SetLevel replaces the level seeded from the environment.
func SetLevel(level LogLevel) {
	seedOnce.Do(func() {})
	current.Store(int32(level))
}

// GetLevel returns the active level.
func GetLevel() LogLevel {
	seed()
	return LogLevel(current.Load())
}

// IsDebugEnabled reports whether debug lines are written. Callers use it to
// skip building expensive debug output.
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

func logAt(level LogLevel, format string, args []interface{}) {
	if GetLevel() > level {
		return
	}
	log.Printf(levels[level].prefix+format, args...)
}

// Debug logs at debug level.
func Debug(format string, args ...interface{}) { logAt(LevelDebug, format, args) }

// Info logs at info level.
func Info(format string, args ...interface{}) { logAt(LevelInfo, format, args) }

// Warn logs at warn level.
func Warn(format string, args ...interface{}) { logAt(LevelWarn, format, args) }

// Error logs at error level.
func Error(format string, args ...interface{}) { logAt(LevelError, format, args) }

// Fatal logs regardless of level and exits with status 1.
func Fatal(format string, args ...interface{}) {
	log.Fatalf("[FATAL] "+format, args...)
}

func (l LogLevel) String() string {
	if l >= 0 && int(l) < len(levels) {
		return levels[l].name
	}
	return fmt.Sprintf("unknown(%d)", int32(l))
}
