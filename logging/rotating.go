package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// RotatingFile is an io.Writer that starts a new file every ISO week and
// whenever the current file would exceed maxSize. Files are named
// app-2026-W42.log, then app-2026-W42_01.log, app-2026-W42_02.log, ...
// Files older than the retention period are removed once a day.
type RotatingFile struct {
	dir       string
	retention time.Duration
	maxSize   int64

	mu    sync.Mutex
	file  *os.File
	week  string
	seq   int
	size  int64
	now   func() time.Time
	stop  context.CancelFunc
	swept chan struct{}
}

// OpenRotatingFile creates dir if needed and opens the file for the current week.
func OpenRotatingFile(dir string, retentionWeeks int, maxSize int64) (*RotatingFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	rf := &RotatingFile{
		dir:       dir,
		retention: time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxSize:   maxSize,
		now:       time.Now,
		stop:      cancel,
		swept:     make(chan struct{}),
	}

	rf.mu.Lock()
	err := rf.rotate(weekKey(rf.now()))
	rf.mu.Unlock()
	if err != nil {
		cancel()
		return nil, err
	}

	go rf.sweepLoop(ctx)
	return rf, nil
}

func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func (rf *RotatingFile) fileName() string {
	if rf.seq == 0 {
		return fmt.Sprintf("app-%s.log", rf.week)
	}
	return fmt.Sprintf("app-%s_%02d.log", rf.week, rf.seq)
}

// rotate opens the next file for week. Caller holds mu.
func (rf *RotatingFile) rotate(week string) error {
	if rf.file != nil {
		_ = rf.file.Close()
		rf.file = nil
	}

	if week != rf.week {
		rf.week = week
		rf.seq = 0
	}

	for {
		path := filepath.Join(rf.dir, rf.fileName())
		info, err := os.Stat(path)
		if err == nil && rf.maxSize > 0 && info.Size() >= rf.maxSize {
			rf.seq++
			continue
		}

		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		rf.file = file
		rf.size = 0
		if info != nil {
			rf.size = info.Size()
		}
		return nil
	}
}

// Write appends p to the current file, rotating first when the week changed
// or the size limit would be crossed.
func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	week := weekKey(rf.now())
	switch {
	case week != rf.week:
		if err := rf.rotate(week); err != nil {
			return 0, err
		}
	case rf.maxSize > 0 && rf.size > 0 && rf.size+int64(len(p)) > rf.maxSize:
		rf.seq++
		if err := rf.rotate(week); err != nil {
			return 0, err
		}
	}

	if rf.file == nil {
		return 0, fmt.Errorf("no log file available")
	}

	n, err := rf.file.Write(p)
	rf.size += int64(n)
	return n, err
}

// removeExpired deletes app-*.log files last modified before the retention cutoff.
func (rf *RotatingFile) removeExpired() (int, error) {
	entries, err := os.ReadDir(rf.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := rf.now().Add(-rf.retention)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "app-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if os.Remove(filepath.Join(rf.dir, name)) == nil {
			removed++
		}
	}
	return removed, nil
}

func (rf *RotatingFile) sweepLoop(ctx context.Context) {
	defer close(rf.swept)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Reported on stdout: logging through slog here would write back into rf.
			if n, err := rf.removeExpired(); err != nil {
				fmt.Printf("log cleanup failed: %v\n", err)
			} else if n > 0 {
				fmt.Printf("Cleaned up %d old log files\n", n)
			}
		}
	}
}

// Close stops the cleanup goroutine and closes the current file.
func (rf *RotatingFile) Close() error {
	rf.stop()
	<-rf.swept

	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.file == nil {
		return nil
	}
	err := rf.file.Close()
	rf.file = nil
	return err
}
