package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Artifact paths for one cycle.
func RecordingPath(dir, cycleID string) string {
	return filepath.Join(dir, fmt.Sprintf("recording-%s.wav", cycleID))
}

func ProcessedPath(dir, cycleID string) string {
	return filepath.Join(dir, fmt.Sprintf("processed-%s.wav", cycleID))
}

type Cleaner struct {
	fs     afero.Fs
	logger *slog.Logger
}

func NewCleaner(fs afero.Fs, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{fs: fs, logger: logger}
}

// Clean removes every path. Missing files are fine; other failures are
// logged and do not stop the remaining removals.
func (c *Cleaner) Clean(paths ...string) int {
	removed := 0
	for _, p := range paths {
		if p == "" {
			continue
		}
		err := c.fs.Remove(p)
		switch {
		case err == nil:
			removed++
		case errors.Is(err, os.ErrNotExist):
		default:
			c.logger.Warn("remove artifact failed", "path", p, "error", err)
		}
	}
	return removed
}

// Prepare creates the artifact directory and removes clips left behind by
// an interrupted run.
func (c *Cleaner) Prepare(dir string) error {
	if err := c.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir %s: %w", dir, err)
	}
	var stale []string
	for _, pattern := range []string{"recording-*.wav", "processed-*.wav"} {
		matches, err := afero.Glob(c.fs, filepath.Join(dir, pattern))
		if err != nil {
			return fmt.Errorf("scan artifact dir %s: %w", dir, err)
		}
		stale = append(stale, matches...)
	}
	if n := c.Clean(stale...); n > 0 {
		c.logger.Info("removed stale artifacts", "dir", dir, "count", n)
	}
	return nil
}
