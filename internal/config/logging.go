package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SetupLogFile opens a fresh timestamped log file next to logfilePath and
// prunes older ones, keeping at most maxFiles. logfilePath is the
// logfile_path setting itself (a single file path such as "remotestorage.log"
// or "/var/log/remotestorage/server.log"), not a directory: the timestamp is
// spliced into its base name so rotation works relative to wherever the
// setting points, rather than requiring a pre-existing log directory.
func SetupLogFile(logfilePath string, maxFiles int) (*os.File, error) {
	dir := filepath.Dir(logfilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	base := filepath.Base(logfilePath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	// Rotated log file named after logfile_path's own base name.
	filename := filepath.Join(dir, fmt.Sprintf("%s-%s%s",
		stem, time.Now().Format("2006-01-02T15-04-05"), ext))

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	// Cleanup old files (keep maxFiles most recent)
	if err := cleanupOldLogs(dir, stem, ext, maxFiles); err != nil {
		// Log cleanup error but don't fail - logging still works
		fmt.Fprintf(os.Stderr, "warning: failed to cleanup old logs: %v\n", err)
	}

	return f, nil
}

// cleanupOldLogs removes oldest rotated files matching stem-*ext when count
// exceeds maxFiles.
func cleanupOldLogs(dir, stem, ext string, maxFiles int) error {
	pattern := filepath.Join(dir, stem+"-*"+ext)
	files, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	if len(files) <= maxFiles {
		return nil
	}

	// Sort by name (timestamp format ensures chronological order)
	sort.Strings(files)

	// Remove oldest files
	for i := 0; i < len(files)-maxFiles; i++ {
		if err := os.Remove(files[i]); err != nil {
			return fmt.Errorf("remove %s: %w", files[i], err)
		}
	}

	return nil
}
