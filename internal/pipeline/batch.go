package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// BatchResult summarises a directory run
type BatchResult struct {
	Files      int       `json:"files"`
	Processed  int       `json:"processed"`
	Skipped    int       `json:"skipped"`
	Duplicates int       `json:"duplicates"`
	Failed     int       `json:"failed"`
	Results    []*Result `json:"results"`
}

// FindSubtitles lists the .srt files directly inside dir, matched
// case-insensitively and sorted by name
func FindSubtitles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".srt") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ProcessBatch processes every subtitle file in dir with a bounded pool of
// workers. A failing file never stops the batch; Results keeps input order.
func (p *Processor) ProcessBatch(ctx context.Context, dir string) (*BatchResult, error) {
	files, err := FindSubtitles(dir)
	if err != nil {
		return nil, err
	}

	batch := &BatchResult{Files: len(files), Results: make([]*Result, len(files))}

	workers := p.opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(files) {
		workers = len(files)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := p.ProcessFile(ctx, files[i])
				if err != nil {
					p.logger.WithFile(files[i]).WithError(err).Debug("File not processed")
				}
				batch.Results[i] = res
			}
		}()
	}

feed:
	for i := range files {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	for i, res := range batch.Results {
		if res == nil {
			res = &Result{Source: files[i], Status: StatusSkipped}
			batch.Results[i] = res
		}
		switch res.Status {
		case StatusProcessed:
			batch.Processed++
		case StatusDuplicate:
			batch.Duplicates++
		case StatusFailed:
			batch.Failed++
		default:
			batch.Skipped++
		}
	}

	p.logger.WithFields(map[string]interface{}{
		"directory":  dir,
		"files":      batch.Files,
		"processed":  batch.Processed,
		"duplicates": batch.Duplicates,
		"skipped":    batch.Skipped,
		"failed":     batch.Failed,
	}).Info("Batch processing complete")

	return batch, ctx.Err()
}
