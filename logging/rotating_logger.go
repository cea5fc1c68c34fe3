package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	logFilePrefix      = "omeq-"
	logFileSuffix      = ".log"
	defaultMaxFileSize = 100 * 1024 * 1024
	cleanupInterval    = 24 * time.Hour
)

// numberedFileRegex matches size-rotated files such as omeq-2025-W41_02.log
var numberedFileRegex = regexp.MustCompile(`^omeq-\d{4}-W\d{2}_(\d{2})\.log$`)

// RotatingLogger writes to one file per ISO week, starting a numbered file
// when the size limit is reached, and deletes files older than the retention.
type RotatingLogger struct {
	logDir      string
	currentFile *os.File
	currentWeek string
	retention   time.Duration
	maxFileSize int64
	currentSize atomic.Int64
	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	cleanupDone chan struct{}
	started     atomic.Bool
}

// NewRotatingLogger creates a rotating logger with the default 100MB size limit
func NewRotatingLogger(logDir string, retentionWeeks int) *RotatingLogger {
	return NewRotatingLoggerWithSizeLimit(logDir, retentionWeeks, defaultMaxFileSize)
}

// NewRotatingLoggerWithSizeLimit creates a rotating logger. A zero size disables size rotation.
func NewRotatingLoggerWithSizeLimit(logDir string, retentionWeeks int, maxFileSize int64) *RotatingLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &RotatingLogger{
		logDir:      logDir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		ctx:         ctx,
		cancel:      cancel,
		cleanupDone: make(chan struct{}),
	}
}

// getWeekKey returns the week key in YYYY-Www format (ISO week)
func getWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func weekFileName(week string) string {
	return logFilePrefix + week + logFileSuffix
}

// open creates the directory, opens the file for the current week and starts the cleanup loop
func (rl *RotatingLogger) open() error {
	if err := os.MkdirAll(rl.logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	rl.mu.Lock()
	err := rl.doRotate(getWeekKey(time.Now()))
	rl.mu.Unlock()
	if err != nil {
		return err
	}

	if rl.started.CompareAndSwap(false, true) {
		go rl.cleanupLoop()
	}
	return nil
}

func (rl *RotatingLogger) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	defer close(rl.cleanupDone)

	for {
		select {
		case <-rl.ctx.Done():
			return
		case <-ticker.C:
			if err := rl.cleanupOldLogs(); err != nil {
				slog.Warn("Failed to cleanup old logs", "error", err)
			}
		}
	}
}

// doRotate switches to the file for targetWeek (caller must hold the lock)
func (rl *RotatingLogger) doRotate(targetWeek string) error {
	if rl.currentFile != nil {
		if err := rl.currentFile.Close(); err != nil {
			slog.Warn("Failed to close log file during rotation", "error", err)
		}
		rl.currentFile = nil
	}

	isSizeRotation := rl.maxFileSize > 0 && rl.currentSize.Load() >= rl.maxFileSize
	fileName, isNew := rl.pickFile(targetWeek, isSizeRotation)

	logPath := filepath.Join(rl.logDir, fileName)
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	rl.currentFile = file
	rl.currentWeek = targetWeek

	rl.currentSize.Store(0)
	if !isNew {
		if info, err := os.Stat(logPath); err == nil {
			rl.currentSize.Store(info.Size())
		}
	}

	return nil
}

// pickFile returns the file to write for the week and whether it is a fresh numbered file
func (rl *RotatingLogger) pickFile(targetWeek string, isSizeRotation bool) (string, bool) {
	baseFileName := weekFileName(targetWeek)

	if !isSizeRotation {
		info, err := os.Stat(filepath.Join(rl.logDir, baseFileName))
		if err != nil || rl.maxFileSize == 0 || info.Size() < rl.maxFileSize {
			return baseFileName, false
		}
	}

	highestNum, lastPath, lastSize := rl.highestNumberedFile(targetWeek)
	if lastPath != "" && lastSize < rl.maxFileSize {
		return filepath.Base(lastPath), false
	}

	return fmt.Sprintf("%s%s_%02d%s", logFilePrefix, targetWeek, highestNum+1, logFileSuffix), true
}

// highestNumberedFile finds the last size-rotated file of the week
func (rl *RotatingLogger) highestNumberedFile(targetWeek string) (int, string, int64) {
	pattern := fmt.Sprintf("%s%s_??%s", logFilePrefix, targetWeek, logFileSuffix)
	matches, _ := filepath.Glob(filepath.Join(rl.logDir, pattern))

	highestNum := 0
	var lastPath string
	var lastSize int64

	for _, match := range matches {
		m := numberedFileRegex.FindStringSubmatch(filepath.Base(match))
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		if num <= highestNum {
			continue
		}

		highestNum = num
		lastPath = match
		lastSize = 0
		if info, err := os.Stat(match); err == nil {
			lastSize = info.Size()
		}
	}

	return highestNum, lastPath, lastSize
}

// Write writes data to the current log file, rotating first when the week
// changed or the write would exceed the size limit
func (rl *RotatingLogger) Write(p []byte) (n int, err error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	currentWeek := getWeekKey(time.Now())
	needsRotation := rl.currentFile == nil || rl.currentWeek != currentWeek

	if rl.maxFileSize > 0 && !needsRotation {
		currentSize := rl.currentSize.Load()
		if currentSize+int64(len(p)) > rl.maxFileSize {
			needsRotation = true
			rl.currentSize.Store(rl.maxFileSize)
		}
	}

	if needsRotation {
		if err = rl.doRotate(currentWeek); err != nil {
			return 0, err
		}
	}

	n, err = rl.currentFile.Write(p)
	rl.currentSize.Add(int64(n))
	return n, err
}

// cleanupOldLogs removes log files older than the retention period
func (rl *RotatingLogger) cleanupOldLogs() error {
	entries, err := os.ReadDir(rl.logDir)
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := time.Now().Add(-rl.retention)
	deletedCount := 0

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, logFileSuffix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(rl.logDir, name)); err == nil {
				deletedCount++
			}
		}
	}

	if deletedCount > 0 {
		// Console only, the file handler may be the caller
		fmt.Fprintf(os.Stderr, "Cleaned up %d old log files\n", deletedCount)
	}

	return nil
}

// Close stops the cleanup loop and closes the current file
func (rl *RotatingLogger) Close() error {
	rl.cancel()

	if rl.started.Load() {
		select {
		case <-rl.cleanupDone:
		case <-time.After(time.Second):
			fmt.Fprintln(os.Stderr, "Warning: log cleanup loop did not stop in time")
		}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.currentFile != nil {
		err := rl.currentFile.Close()
		rl.currentFile = nil
		return err
	}
	return nil
}
