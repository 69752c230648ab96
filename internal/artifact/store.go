// Package artifact persists finished call audio on disk and hands out
// opaque download references.
package artifact

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/calldrill/calldrill/internal/audio"
)

// refPattern is the only shape a download reference may take. Anything else
// is rejected before touching the filesystem, so a reference can never name
// a file outside the store.
var refPattern = regexp.MustCompile(`^call_\d{8}_\d{6}_[0-9a-f]{8}\.(mp3|wav)$`)

// ErrNotFound is returned by Open for references that are well-formed but
// have no stored artifact, typically because the sweeper already removed it.
var ErrNotFound = fmt.Errorf("artifact not found")

// Store writes artifacts under a single directory and expires them after a
// retention window.
type Store struct {
	dir       string
	retention time.Duration
}

// NewStore creates the artifact directory if needed.
func NewStore(dir string, retention time.Duration) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact dir: %w", err)
	}
	return &Store{dir: dir, retention: retention}, nil
}

// Save persists the artifact and returns its download reference. The
// reference embeds a timestamp and a random component, so concurrent saves
// never collide.
func (s *Store) Save(art *audio.Artifact) (string, error) {
	now := time.Now().UTC()
	ref := fmt.Sprintf("call_%s_%s.%s",
		now.Format("20060102_150405"),
		uuid.NewString()[:8],
		art.Format)

	path := filepath.Join(s.dir, ref)
	if err := os.WriteFile(path, art.Data, 0o644); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	slog.Debug("artifact saved", "ref", ref, "bytes", len(art.Data))
	return ref, nil
}

// Open returns a reader for a previously saved artifact along with its
// size. The caller owns the reader and must close it.
func (s *Store) Open(ref string) (io.ReadSeekCloser, int64, error) {
	if !refPattern.MatchString(ref) {
		return nil, 0, fmt.Errorf("%w: malformed reference %q", ErrNotFound, ref)
	}
	f, err := os.Open(filepath.Join(s.dir, ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, 0, fmt.Errorf("opening artifact: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat artifact: %w", err)
	}
	return f, info.Size(), nil
}

// Sweep removes artifacts older than the retention window and returns how
// many were deleted.
func (s *Store) Sweep() int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		slog.Warn("artifact sweep failed", "error", err)
		return 0
	}

	cutoff := time.Now().Add(-s.retention)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !refPattern.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			slog.Warn("failed to remove expired artifact", "ref", entry.Name(), "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		slog.Info("swept expired artifacts", "removed", removed)
	}
	return removed
}

// SweepLoop runs Sweep on a fixed interval until the context is cancelled.
func (s *Store) SweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
