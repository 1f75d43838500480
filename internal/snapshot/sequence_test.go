package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"
)

func staticSource(data []byte) Source {
	return SourceFunc(func(ctx context.Context) ([]byte, error) {
		return data, nil
	})
}

func failingSource(err error) Source {
	return SourceFunc(func(ctx context.Context) ([]byte, error) {
		return nil, err
	})
}

func TestNewSequence_CreatesMissingDirectories(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artifacts", "run-1", "login")

	seq, err := NewSequence(dir)
	require.NoError(t, err)
	require.Equal(t, dir, seq.Dir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewSequence_ExistingDirectoryIsFine(t *testing.T) {
	dir := t.TempDir()

	_, err := NewSequence(dir)
	require.NoError(t, err)
	_, err = NewSequence(dir)
	require.NoError(t, err)
}

func TestNewSequence_DirectoryCreationFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "occupied")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// A regular file sits where the directory should go.
	_, err := NewSequence(filepath.Join(blocker, "sub"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create artifact directory")
}

func TestCapture_SequentialNaming(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	seq, err := NewSequence(dir, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	src := staticSource([]byte("fake-png"))
	var paths []string
	for _, label := range []string{"a", "b", "c"} {
		path, err := seq.Capture(context.Background(), src, label)
		require.NoError(t, err)
		paths = append(paths, path)
	}

	assert.Equal(t, []string{
		filepath.Join(dir, "1_a.png"),
		filepath.Join(dir, "2_b.png"),
		filepath.Join(dir, "3_c.png"),
	}, paths)

	for _, path := range paths {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []byte("fake-png"), data)
	}
	assert.Equal(t, uint64(3), seq.Count())
}

func TestCapture_CustomExtension(t *testing.T) {
	seq, err := NewSequence(t.TempDir(), WithExtension("jpeg"))
	require.NoError(t, err)

	path, err := seq.Capture(context.Background(), staticSource([]byte{0xff}), "landing")
	require.NoError(t, err)
	assert.Equal(t, "1_landing.jpeg", filepath.Base(path))
}

func TestCapture_SourceFailurePropagatesUnmodified(t *testing.T) {
	seq, err := NewSequence(t.TempDir())
	require.NoError(t, err)

	boom := errors.New("target closed")
	_, err = seq.Capture(context.Background(), failingSource(boom), "crash")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, boom, err, "capture failures must not be wrapped")
}

func TestCapture_CounterNotReusedAfterFailure(t *testing.T) {
	dir := t.TempDir()
	seq, err := NewSequence(dir)
	require.NoError(t, err)

	_, err = seq.Capture(context.Background(), failingSource(errors.New("flaky")), "first")
	require.Error(t, err)

	path, err := seq.Capture(context.Background(), staticSource([]byte("ok")), "second")
	require.NoError(t, err)
	assert.Equal(t, "2_second.png", filepath.Base(path), "the value burned by the failed capture stays consumed")
}

func TestCapture_ConcurrentCallsProduceUniqueNames(t *testing.T) {
	seq, err := NewSequence(t.TempDir())
	require.NoError(t, err)

	const captures = 32
	var mu sync.Mutex
	var paths []string

	var g errgroup.Group
	for i := 0; i < captures; i++ {
		label := fmt.Sprintf("worker%d", i)
		g.Go(func() error {
			path, err := seq.Capture(context.Background(), staticSource([]byte("x")), label)
			if err != nil {
				return err
			}
			mu.Lock()
			paths = append(paths, path)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	sort.Strings(paths)
	for i := 1; i < len(paths); i++ {
		assert.NotEqual(t, paths[i-1], paths[i], "filename collision under concurrent capture")
	}
	assert.Equal(t, uint64(captures), seq.Count())
}

func TestBestEffort_DiscardsSecondaryFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	seq, err := NewSequence(t.TempDir(), WithLogger(zap.New(core)))
	require.NoError(t, err)

	path := seq.BestEffort(context.Background(), failingSource(errors.New("session gone")), "post-failure")
	assert.Empty(t, path)

	entries := logs.FilterMessageSnippet("Discarding failed diagnostic capture").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "post-failure", entries[0].ContextMap()["label"])
}

func TestBestEffort_ReturnsPathOnSuccess(t *testing.T) {
	seq, err := NewSequence(t.TempDir())
	require.NoError(t, err)

	path := seq.BestEffort(context.Background(), staticSource([]byte("ok")), "diag")
	assert.Equal(t, "1_diag.png", filepath.Base(path))
}
