package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/therealutkarshpriyadarshi/filmfluent/internal/logging"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/metrics"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/pipeline"
	"github.com/therealutkarshpriyadarshi/filmfluent/pkg/models"
)

type worker struct {
	processor *pipeline.Processor
	logger    *logging.Logger
}

func newWorker(p *pipeline.Processor, logger *logging.Logger) *worker {
	return &worker{processor: p, logger: logger}
}

// handle runs one job. Duplicates, files locked by another worker and files
// without subtitles are acknowledged as skipped; only real failures are
// returned so the queue retries them.
func (w *worker) handle(ctx context.Context, job *models.Job) error {
	log := w.logger.WithJobID(job.ID)
	start := time.Now()
	w.logger.LogJobEvent(job.ID, "started", models.JobStatusProcessing, map[string]interface{}{
		"source":      job.Source,
		"retry_count": job.RetryCount,
	})

	opts := w.processor.Options()
	opts.IncludeStopwords = job.IncludeStopwords
	opts.SaveJSON = job.SaveJSON
	p := w.processor.With(opts)

	var (
		res *pipeline.Result
		err error
	)
	switch job.Source {
	case models.JobSourceStorage:
		res, err = p.ProcessObject(ctx, job.ObjectKey)
	case models.JobSourceFile:
		res, err = p.ProcessFile(ctx, job.Path)
	default:
		// not retryable, but the queue has no other way to park it
		err = fmt.Errorf("unknown job source %q", job.Source)
	}

	// a job is only done once its analysis is stored
	if err == nil && res.StoreErr != nil {
		err = res.StoreErr
	}
	status := jobStatus(err)

	metrics.RecordJobCompleted(status)
	details := map[string]interface{}{"duration_ms": time.Since(start).Milliseconds()}
	if res != nil && res.Analysis != nil {
		details["total_words"] = res.Analysis.TotalWords
		details["unique_words"] = res.Analysis.UniqueWords
	}

	switch status {
	case models.JobStatusFailed:
		details["error"] = err.Error()
		w.logger.LogJobEvent(job.ID, "failed", status, details)
		return err
	case models.JobStatusSkipped:
		details["reason"] = err.Error()
		w.logger.LogJobEvent(job.ID, "skipped", status, details)
		return nil
	}

	if res.ExportErr != nil {
		log.WithError(res.ExportErr).Warn("Analysis export failed")
	}
	w.logger.LogJobEvent(job.ID, "completed", status, details)
	return nil
}

func jobStatus(err error) string {
	switch {
	case err == nil:
		return models.JobStatusCompleted
	case errors.Is(err, pipeline.ErrAlreadyProcessed),
		errors.Is(err, pipeline.ErrInProgress),
		errors.Is(err, pipeline.ErrNoSubtitles):
		return models.JobStatusSkipped
	default:
		return models.JobStatusFailed
	}
}
