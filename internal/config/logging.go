package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// logFilePrefix names the files SetupLogFile manages; PruneLogs only ever
// touches files matching it.
const logFilePrefix = "dpmeschat"

// SetupLogFile opens a fresh timestamped log file under dir and prunes the
// oldest files beyond maxFiles. The caller owns the returned handle.
func SetupLogFile(dir string, maxFiles int) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s.log", logFilePrefix, time.Now().Format("20060102-150405"))
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	PruneLogs(dir, maxFiles)

	return f, nil
}

// PruneLogs removes the oldest managed log files so at most maxFiles remain.
// Failures are logged and swallowed; a stale log file never blocks startup.
func PruneLogs(dir string, maxFiles int) {
	matches, err := filepath.Glob(filepath.Join(dir, logFilePrefix+"-*.log"))
	if err != nil {
		slog.Warn("log directory scan failed", "dir", dir, "error", err)
		return
	}
	if len(matches) <= maxFiles {
		return
	}

	// The timestamp in the name sorts chronologically.
	sort.Strings(matches)
	for _, stale := range matches[:len(matches)-maxFiles] {
		if err := os.Remove(stale); err != nil {
			slog.Warn("stale log file not removed", "file", stale, "error", err)
		}
	}
}
