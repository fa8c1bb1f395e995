package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindSubtitles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.srt", sampleSRT)
	writeFile(t, dir, "A.SRT", sampleSRT)
	writeFile(t, dir, "notes.txt", "x")
	writeFile(t, dir, "b.srt.analysis.json", "{}")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.srt"), 0o755))

	files, err := FindSubtitles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "A.SRT"), filepath.Join(dir, "b.srt")}, files)

	_, err = FindSubtitles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestProcessBatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "One.2001.srt", sampleSRT)
	writeFile(t, dir, "Two.2002.SRT", sampleSRT+"\n4\n00:00:07,000 --> 00:00:08,000\nAnother line here.\n")
	writeFile(t, dir, "empty.srt", "")
	writeFile(t, dir, "readme.txt", sampleSRT)

	p := newProcessor(WithOptions(Options{Workers: 3}))
	batch, err := p.ProcessBatch(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 3, batch.Files)
	assert.Equal(t, 2, batch.Processed)
	assert.Equal(t, 1, batch.Skipped)
	assert.Zero(t, batch.Failed)
	require.Len(t, batch.Results, 3)
	assert.Equal(t, filepath.Join(dir, "One.2001.srt"), batch.Results[0].Source)
	assert.Equal(t, StatusProcessed, batch.Results[1].Status)
	assert.Equal(t, StatusSkipped, batch.Results[2].Status)
}

func TestProcessBatchDedupesWithinRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.srt", sampleSRT)
	writeFile(t, dir, "b.srt", sampleSRT)

	store := newFakeStore()
	p := newProcessor(WithStore(store), WithOptions(Options{Workers: 1}))

	batch, err := p.ProcessBatch(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Processed)
	assert.Equal(t, 1, batch.Duplicates)
	assert.Len(t, store.requests, 1)
}

func TestProcessBatchEmptyDirectory(t *testing.T) {
	batch, err := newProcessor().ProcessBatch(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, batch.Files)
	assert.Empty(t, batch.Results)
}

func TestProcessBatchCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.srt", sampleSRT)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := newProcessor().ProcessBatch(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, batch)
	assert.Equal(t, 1, batch.Files)
}
