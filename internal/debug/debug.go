// Package debug provides a verbose file logger for development diagnostics.
//
// When enabled via --debug or SCAMSIM_DEBUG, playback sessions, timer
// scheduling, web requests and CLI lifecycle events are written to a single
// .log file under <config dir>/debug/. Each line carries a nanosecond
// timestamp, elapsed time, goroutine ID, component and caller location.
//
// When disabled (the default), all logging functions are no-ops.
package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/agusx1211/scamsim/internal/hexid"
)

const (
	// EnvEnabled toggles the debug logger without the --debug flag.
	EnvEnabled = "SCAMSIM_DEBUG"
	// EnvLogPath forces logs into a specific file instead of a fresh one.
	EnvLogPath = "SCAMSIM_DEBUG_LOG"
)

var (
	logger   *Logger
	loggerMu sync.RWMutex
)

// Logger writes debug lines to a file.
type Logger struct {
	mu        sync.Mutex
	file      *os.File
	path      string
	startedAt time.Time
}

// Init opens the global debug log. With EnvLogPath set it appends to that
// file; otherwise it creates <dir>/debug/<timestamp>_<hexid>.log. Calling Init
// again returns the already open path.
func Init(dir string) (string, error) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger != nil {
		return logger.path, nil
	}

	path := strings.TrimSpace(os.Getenv(EnvLogPath))
	if path == "" {
		logDir := filepath.Join(dir, "debug")
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return "", fmt.Errorf("debug: create dir %s: %w", logDir, err)
		}
		path = filepath.Join(logDir, fmt.Sprintf("%s_%s.log", time.Now().Format("20060102T150405"), hexid.New()))
	} else if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("debug: create dir for %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("debug: open log %s: %w", path, err)
	}
	now := time.Now()
	fmt.Fprintf(f, "=== SCAMSIM DEBUG LOG ===\nStarted: %s\nPID: %d\nGOMAXPROCS: %d\n===\n\n",
		now.Format(time.RFC3339Nano), os.Getpid(), runtime.GOMAXPROCS(0))

	logger = &Logger{file: f, path: path, startedAt: now}
	return path, nil
}

// Close writes a closing marker and closes the log. Safe when not initialized.
func Close() {
	loggerMu.Lock()
	l := logger
	logger = nil
	loggerMu.Unlock()
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.file, "\n=== DEBUG LOG CLOSED === (duration=%s)\n", time.Since(l.startedAt))
	l.file.Close()
}

// Enabled reports whether the debug logger is active.
func Enabled() bool {
	return current() != nil
}

// Path returns the log file path, or "" if not enabled.
func Path() string {
	if l := current(); l != nil {
		return l.path
	}
	return ""
}

// ShouldEnableFromEnv reports whether the environment asks for debug logging.
// An explicit off value wins over EnvLogPath.
func ShouldEnableFromEnv() bool {
	path := strings.TrimSpace(os.Getenv(EnvLogPath))
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvEnabled))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return path != ""
	}
}

// Log writes a debug line. No-op when debug is disabled.
func Log(component, msg string) {
	if l := current(); l != nil {
		l.write(component, msg)
	}
}

// Logf writes a formatted debug line. No-op when debug is disabled.
func Logf(component, format string, args ...any) {
	if l := current(); l != nil {
		l.write(component, fmt.Sprintf(format, args...))
	}
}

// LogKV writes a debug line followed by key=value pairs.
// Usage: debug.LogKV("playback", "turn delivered", "session", id, "index", 3)
func LogKV(component, msg string, kvs ...any) {
	l := current()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(kvs); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kvs[i], kvs[i+1])
	}
	l.write(component, b.String())
}

func current() *Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

func (l *Logger) write(component, msg string) {
	now := time.Now()

	caller := "??:0"
	if _, file, line, ok := runtime.Caller(2); ok {
		for _, marker := range []string{"/internal/", "/cmd/", "/pkg/"} {
			if idx := strings.LastIndex(file, marker); idx >= 0 {
				file = file[idx+1:]
				break
			}
		}
		caller = fmt.Sprintf("%s:%d", file, line)
	}

	// TIMESTAMP +ELAPSED [GID] [COMPONENT] CALLER | MESSAGE
	entry := fmt.Sprintf("%s +%12s [G%-6d] [%-10s] %-36s | %s\n",
		now.Format("15:04:05.000000000"),
		now.Sub(l.startedAt).Truncate(time.Microsecond),
		goroutineID(),
		component,
		caller,
		msg,
	)

	l.mu.Lock()
	l.file.WriteString(entry)
	l.mu.Unlock()
}

// goroutineID parses the id out of runtime.Stack; only used in debug mode.
func goroutineID() int64 {
	var buf [64]byte
	s := string(buf[:runtime.Stack(buf[:], false)])
	s, ok := strings.CutPrefix(s, "goroutine ")
	if !ok {
		return 0
	}
	var id int64
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return id
}
