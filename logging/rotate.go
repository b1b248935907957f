package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	logFilePrefix   = "mfdsmatch-"
	logFileSuffix   = ".log"
	cleanupInterval = 24 * time.Hour
)

// Numbered overflow files are named mfdsmatch-2025-W41_03.log
var overflowFile = regexp.MustCompile(`^mfdsmatch-\d{4}-W\d{2}_(\d{2})\.log$`)

// RotatingLogger is an io.Writer over one log file per ISO week. When a file reaches maxSize
// the writer moves on to a numbered overflow file of the same week. Files older than the
// retention period are removed once a day.
type RotatingLogger struct {
	dir       string
	retention time.Duration
	maxSize   int64

	mu   sync.Mutex
	file *os.File
	week string
	size int64

	cleaning  bool
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewRotatingLogger returns a writer for dir. A maxSize of 0 disables size rotation.
func NewRotatingLogger(dir string, retentionWeeks int, maxSize int64) *RotatingLogger {
	return &RotatingLogger{
		dir:       dir,
		retention: time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxSize:   maxSize,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// weekKey returns the ISO week of t as YYYY-Www
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func baseName(week string) string {
	return logFilePrefix + week + logFileSuffix
}

func overflowName(week string, n int) string {
	return fmt.Sprintf("%s%s_%02d%s", logFilePrefix, week, n, logFileSuffix)
}

// pickFile chooses the file to append to for week. full forces a new overflow file.
func (rl *RotatingLogger) pickFile(week string, full bool) string {
	base := baseName(week)
	if !full {
		info, err := os.Stat(filepath.Join(rl.dir, base))
		if err != nil || rl.maxSize == 0 || info.Size() < rl.maxSize {
			return base
		}
	}

	highest := 0
	var highestSize int64
	entries, _ := os.ReadDir(rl.dir)
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), logFilePrefix+week+"_") {
			continue
		}
		m := overflowFile.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		if n <= highest {
			continue
		}
		highest = n
		highestSize = 0
		if info, err := e.Info(); err == nil {
			highestSize = info.Size()
		}
	}

	if highest > 0 && !full && highestSize < rl.maxSize {
		return overflowName(week, highest)
	}
	return overflowName(week, highest+1)
}

// rotate switches to the right file for week; the caller holds mu
func (rl *RotatingLogger) rotate(week string, full bool) error {
	if rl.file != nil {
		if err := rl.file.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
		rl.file = nil
	}

	path := filepath.Join(rl.dir, rl.pickFile(week, full))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	rl.file = f
	rl.week = week
	rl.size = 0
	if info, err := f.Stat(); err == nil {
		rl.size = info.Size()
	}
	return nil
}

// Write appends p to the current week's file, rotating first when the week changed or p
// would push the file over maxSize.
func (rl *RotatingLogger) Write(p []byte) (int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	week := weekKey(time.Now())
	full := rl.file != nil && rl.maxSize > 0 && rl.size > 0 && rl.size+int64(len(p)) > rl.maxSize

	if rl.file == nil || rl.week != week || full {
		if err := rl.rotate(week, full && rl.week == week); err != nil {
			return 0, err
		}
	}

	n, err := rl.file.Write(p)
	rl.size += int64(n)
	return n, err
}

// cleanup removes log files last modified before now minus the retention period
func (rl *RotatingLogger) cleanup(now time.Time) (int, error) {
	entries, err := os.ReadDir(rl.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := now.Add(-rl.retention)
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, logFileSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(rl.dir, name)); err == nil {
			removed++
		}
	}
	return removed, nil
}

// startCleanup runs cleanup every interval until Close
func (rl *RotatingLogger) startCleanup(interval time.Duration) {
	rl.cleaning = true
	go func() {
		defer close(rl.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-rl.stop:
				return
			case now := <-ticker.C:
				// Written to stderr directly, the slog handlers may be writing to this file
				if n, err := rl.cleanup(now); err != nil {
					fmt.Fprintf(os.Stderr, "log cleanup failed: %v\n", err)
				} else if n > 0 {
					fmt.Fprintf(os.Stderr, "removed %d old log files\n", n)
				}
			}
		}
	}()
}

// Close stops the cleanup goroutine, if any, and closes the current file
func (rl *RotatingLogger) Close() error {
	var err error
	rl.closeOnce.Do(func() {
		close(rl.stop)
		if rl.cleaning {
			<-rl.done
		}

		rl.mu.Lock()
		defer rl.mu.Unlock()
		if rl.file != nil {
			err = rl.file.Close()
			rl.file = nil
		}
	})
	return err
}
