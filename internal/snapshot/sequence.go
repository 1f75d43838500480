// Package snapshot writes numbered capture artifacts into a run directory.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

// Source is an external collaborator capable of producing image bytes.
// The capture mechanism itself (browser engine, fake, recorder) is opaque
// here; the sequence only owns destination naming and the file write.
type Source interface {
	Snapshot(ctx context.Context) ([]byte, error)
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc func(ctx context.Context) ([]byte, error)

func (f SourceFunc) Snapshot(ctx context.Context) ([]byte, error) { return f(ctx) }

// Sequence assigns monotonically increasing, human-labeled filenames to a
// series of captures within one test run or session. The counter is strictly
// increasing and never reused, so filenames are unique per instance and their
// numeric order matches capture order.
type Sequence struct {
	dir     string
	ext     string
	logger  *zap.Logger
	counter atomic.Uint64
}

// Option customizes a Sequence at construction.
type Option func(*Sequence)

// WithExtension overrides the artifact file extension (default ".png").
func WithExtension(ext string) Option {
	return func(s *Sequence) {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		s.ext = ext
	}
}

// WithLogger attaches a logger used by BestEffort to report discarded
// secondary failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Sequence) { s.logger = logger }
}

// NewSequence creates the target directory (recursively, idempotent when it
// already exists) and returns a sequence with its counter at zero.
func NewSequence(dir string, opts ...Option) (*Sequence, error) {
	s := &Sequence{
		dir:    dir,
		ext:    ".png",
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory %q: %w", dir, err)
	}
	return s, nil
}

// Dir returns the directory artifacts are written into.
func (s *Sequence) Dir() string { return s.dir }

// Capture produces one artifact: it takes the next counter value, derives
// "{counter}_{label}{ext}", asks src for the image bytes, and writes them
// under the sequence directory. It returns the full path of the written file.
//
// Capture failures from src propagate unmodified; callers wanting best-effort
// semantics use BestEffort instead. The counter value consumed by a failed
// capture is not reused.
func (s *Sequence) Capture(ctx context.Context, src Source, label string) (string, error) {
	n := s.counter.Add(1)
	path := filepath.Join(s.dir, fmt.Sprintf("%d_%s%s", n, label, s.ext))

	data, err := src.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact %q: %w", path, err)
	}
	return path, nil
}

// BestEffort attempts a diagnostic capture on a failure path and deliberately
// discards any secondary error after logging it. It returns the written path,
// or "" when the capture was dropped.
func (s *Sequence) BestEffort(ctx context.Context, src Source, label string) string {
	path, err := s.Capture(ctx, src, label)
	if err != nil {
		// Intentional discard: a diagnostic artifact must never mask the
		// primary failure that triggered it.
		s.logger.Warn("Discarding failed diagnostic capture.",
			zap.String("label", label),
			zap.Error(err))
		return ""
	}
	return path
}

// Count reports how many counter values have been consumed so far.
func (s *Sequence) Count() uint64 { return s.counter.Load() }
