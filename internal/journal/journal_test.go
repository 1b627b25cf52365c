package journal

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := j.Record(ctx, Entry{
		Input: "/in/a.mkv", Output: "/out/a.mkv", Approach: "hdr", HDRFormat: "HDR10",
		Outcome: "passthrough", Success: true, InputBytes: 1000, OutputBytes: 400,
		Duration: 1500 * time.Millisecond, FinishedAt: base,
	})
	require.NoError(t, err)
	id, err := j.Record(ctx, Entry{
		Input: "/in/b.mkv", Output: "/out/b.mkv", Approach: "dolby_vision", HDRFormat: "HDR10",
		DVProfile: "8.1", Outcome: "injected", Success: true, InputBytes: 2000, OutputBytes: 500,
		FinishedAt: base.Add(time.Minute),
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "/in/b.mkv", entries[0].Input)
	assert.Equal(t, "8.1", entries[0].DVProfile)
	assert.Equal(t, "/in/a.mkv", entries[1].Input)
	assert.Equal(t, 1500*time.Millisecond, entries[1].Duration)
	assert.True(t, entries[1].FinishedAt.Equal(base))

	entries, err = j.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSummarize(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()

	s, err := j.Summarize(ctx)
	require.NoError(t, err)
	assert.Zero(t, s)

	for _, e := range []Entry{
		{Input: "a", Outcome: "injected", Success: true, InputBytes: 100, OutputBytes: 40},
		{Input: "b", Outcome: "fallback", Success: true, InputBytes: 100, OutputBytes: 70},
		{Input: "c", Outcome: "passthrough", Success: false, Error: "encode failed", InputBytes: 100},
	} {
		_, err := j.Record(ctx, e)
		require.NoError(t, err)
	}

	s, err = j.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Files: 3, Succeeded: 2, Injected: 1, BytesSaved: 90}, s)
}

func TestConcurrentRecord(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := j.Record(ctx, Entry{Input: "x", Outcome: "passthrough", Success: true})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := j.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, s.Files)
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	j, err := Open(path)
	require.NoError(t, err)
	_, err = j.Record(context.Background(), Entry{Input: "a", Outcome: "injected", Success: true})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()
	entries, err := j.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
