package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// Level represents logging severity.
type Level int32

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

var (
	// The session loop and transport log from their own goroutines while the
	// shell may change the level, hence atomics.
	currentLevel     atomic.Int32
	currentVerbosity atomic.Int32

	logger = log.New(os.Stderr, "", log.LstdFlags|log.Lmsgprefix)
)

func init() {
	currentLevel.Store(int32(LevelWarn))
}

// SetOutput redirects log output, e.g. to the readline shell's stderr.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// SetVerbosity configures logger output from count of -v flags (0-4).
func SetVerbosity(count int) {
	if count < 0 {
		count = 0
	}
	if count > 4 {
		count = 4
	}
	currentVerbosity.Store(int32(count))
	switch count {
	case 0:
		currentLevel.Store(int32(LevelWarn))
	case 1:
		currentLevel.Store(int32(LevelInfo))
	case 2:
		currentLevel.Store(int32(LevelDebug))
	default:
		currentLevel.Store(int32(LevelTrace))
	}
}

// SetLevel sets the level directly, keeping the verbosity count in step.
func SetLevel(l Level, verbosity int) {
	currentLevel.Store(int32(l))
	currentVerbosity.Store(int32(verbosity))
}

// Verbosity returns the stored -v count.
func Verbosity() int {
	return int(currentVerbosity.Load())
}

// CurrentLevel returns the active level.
func CurrentLevel() Level {
	return Level(currentLevel.Load())
}

// LevelName returns current level label.
func LevelName() string {
	return LevelToString(CurrentLevel())
}

// LevelToString converts a Level to human readable text.
func LevelToString(l Level) string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	case LevelTrace:
		return "trace"
	default:
		return "unknown"
	}
}

// ParseLevel returns Level + verbosity count from string.
func ParseLevel(s string) (Level, int, error) {
	switch strings.ToLower(s) {
	case "error":
		return LevelError, 0, nil
	case "warn", "warning":
		return LevelWarn, 0, nil
	case "info":
		return LevelInfo, 1, nil
	case "debug":
		return LevelDebug, 2, nil
	case "trace":
		return LevelTrace, 4, nil
	default:
		return CurrentLevel(), Verbosity(), fmt.Errorf("unknown level %s", s)
	}
}

// Enabled reports whether messages at l are printed.
func Enabled(l Level) bool {
	return l <= CurrentLevel()
}

func logf(l Level, prefix, format string, args ...any) {
	if !Enabled(l) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	logger.Printf("[%s] %s", strings.ToUpper(prefix), msg)
}

// Errorf always prints.
func Errorf(format string, args ...any) {
	logf(LevelError, "err", format, args...)
}

func Warnf(format string, args ...any) {
	logf(LevelWarn, "warn", format, args...)
}

func Infof(format string, args ...any) {
	logf(LevelInfo, "info", format, args...)
}

func Debugf(format string, args ...any) {
	logf(LevelDebug, "dbg", format, args...)
}

func Tracef(format string, args ...any) {
	logf(LevelTrace, "trc", format, args...)
}
