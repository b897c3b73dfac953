package staging

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultSweepInterval = 10 * time.Minute
	DefaultFileTTL       = time.Hour
)

// StartSweeper launches a background loop that removes staged files older
// than ttl. Release already cleans up on every request path; the sweeper only
// catches files orphaned by a crashed process.
func (a *Area) StartSweeper(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if ttl <= 0 {
		ttl = DefaultFileTTL
	}
	go a.sweepLoop(ctx, interval, ttl)
}

func (a *Area) sweepLoop(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.sweep(ttl); err != nil {
				a.logger.Warn("staging.sweep_failed", "error", err)
			}
		}
	}
}

func (a *Area) sweep(ttl time.Duration) error {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-ttl)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(a.dir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			a.logger.Warn("staging.sweep_remove_failed", "path", path, "error", err)
			continue
		}
		a.logger.Info("staging.swept_orphan", "path", path, "age", time.Since(info.ModTime()).String())
	}
	return nil
}
