// Package pipeline runs subtitle files through parsing, analysis, export
// and persistence.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/therealutkarshpriyadarshi/filmfluent/internal/analysis"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/config"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/database"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/export"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/logging"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/metadata"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/metrics"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/subtitle"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/tracing"
	"github.com/therealutkarshpriyadarshi/filmfluent/pkg/models"
)

var (
	// ErrAlreadyProcessed is returned for a file whose content hash is
	// already stored
	ErrAlreadyProcessed = errors.New("subtitle file already processed")
	// ErrInProgress is returned when another worker holds the file's lock
	ErrInProgress = errors.New("subtitle file is being processed elsewhere")
	// ErrNoSubtitles is returned when parsing yields no records
	ErrNoSubtitles = errors.New("no subtitles parsed")
)

// Result statuses
const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusDuplicate = "duplicate"
	StatusFailed    = "failed"
)

const lockTTL = 5 * time.Minute

// Store persists analyses
type Store interface {
	FileIDByHash(ctx context.Context, hash string) (string, error)
	StoreAnalysis(ctx context.Context, req database.StoreRequest) (*models.StoredIDs, error)
}

// Cache speeds up duplicate detection and coordinates parallel workers
type Cache interface {
	ProcessedFileID(ctx context.Context, hash string) (string, error)
	MarkProcessed(ctx context.Context, hash, fileID string, ttl time.Duration) error
	SetAnalysis(ctx context.Context, hash string, result *models.AnalysisResult, ttl time.Duration) error
	GetAnalysis(ctx context.Context, hash string) (*models.AnalysisResult, error)
	InvalidateOverview(ctx context.Context) error
	AcquireLock(ctx context.Context, resource string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, resource string) error
}

// ObjectStore reads subtitle objects and receives JSON exports
type ObjectStore interface {
	ReadObject(ctx context.Context, key string) ([]byte, error)
	UploadExport(ctx context.Context, source string, data []byte) (string, error)
}

// Options control a processing run
type Options struct {
	IncludeStopwords bool
	SaveJSON         bool
	Language         string
	CacheTTL         time.Duration
	Workers          int
}

// Result describes what happened to one file
type Result struct {
	Source     string                 `json:"source"`
	Hash       string                 `json:"hash"`
	Status     string                 `json:"status"`
	Report     subtitle.ParseReport   `json:"-"`
	Records    int                    `json:"records"`
	Analysis   *models.AnalysisResult `json:"analysis,omitempty"`
	Movie      *models.Movie          `json:"movie,omitempty"`
	Stored     *models.StoredIDs      `json:"stored,omitempty"`
	ExportPath string                 `json:"export_path,omitempty"`
	ExportErr  error                  `json:"-"`
	StoreErr   error                  `json:"-"`
}

// Processor runs the pipeline. Store, cache and object store are optional.
type Processor struct {
	parser   *subtitle.Parser
	analyzer *analysis.Analyzer
	store    Store
	cache    Cache
	objects  ObjectStore
	logger   *logging.Logger
	opts     Options
	now      func() time.Time
}

// Option configures a Processor
type Option func(*Processor)

// WithStore enables persistence and hash deduplication
func WithStore(s Store) Option {
	return func(p *Processor) { p.store = s }
}

// WithCache enables the Redis-backed dedupe markers and locks
func WithCache(c Cache) Option {
	return func(p *Processor) { p.cache = c }
}

// WithObjectStore enables object sources and uploads exports instead of
// writing them next to the source file
func WithObjectStore(o ObjectStore) Option {
	return func(p *Processor) { p.objects = o }
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithOptions sets the run options
func WithOptions(o Options) Option {
	return func(p *Processor) { p.opts = o }
}

// New creates a processor
func New(parser *subtitle.Parser, analyzer *analysis.Analyzer, opts ...Option) *Processor {
	p := &Processor{
		parser:   parser,
		analyzer: analyzer,
		logger:   logging.NewNopLogger(),
		opts:     Options{Language: "English", CacheTTL: 24 * time.Hour, Workers: 1},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FromConfig builds a processor whose parser, analyzer and run options come
// from the analysis configuration. opts are applied after the configuration.
func FromConfig(cfg config.AnalysisConfig, opts ...Option) *Processor {
	parser := subtitle.NewParser(subtitle.WithDefaultEncoding(cfg.DefaultEncoding))
	analyzer := analysis.NewAnalyzer(analysis.WithTopN(cfg.TopN))

	base := []Option{WithOptions(OptionsFromConfig(cfg))}
	return New(parser, analyzer, append(base, opts...)...)
}

// OptionsFromConfig maps the analysis configuration onto run options
func OptionsFromConfig(cfg config.AnalysisConfig) Options {
	o := Options{
		IncludeStopwords: cfg.IncludeStopwords,
		SaveJSON:         cfg.SaveJSON,
		Language:         cfg.Language,
		CacheTTL:         cfg.CacheTTL,
		Workers:          cfg.WorkerCount,
	}
	if o.Language == "" {
		o.Language = "English"
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 24 * time.Hour
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	return o
}

// Options returns the run options
func (p *Processor) Options() Options {
	return p.opts
}

// With returns a copy of the processor using o for its runs
func (p *Processor) With(o Options) *Processor {
	cp := *p
	cp.opts = o
	return &cp
}

// HashBytes returns the hex SHA-256 of data
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ProcessFile runs the pipeline on a local file
func (p *Processor) ProcessFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		metrics.RecordFileProcessed(StatusFailed)
		p.logger.WithFile(path).WithError(err).Warn("Cannot read subtitle file")
		return &Result{Source: path, Status: StatusFailed}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return p.process(ctx, path, data, true)
}

// ProcessObject runs the pipeline on an object from the object store
func (p *Processor) ProcessObject(ctx context.Context, key string) (*Result, error) {
	if p.objects == nil {
		return &Result{Source: key, Status: StatusFailed}, errors.New("object store not configured")
	}

	start := time.Now()
	data, err := p.objects.ReadObject(ctx, key)
	elapsed := time.Since(start)
	metrics.RecordStorageOperation("read_object", metrics.Status(err), elapsed.Seconds(), int64(len(data)))
	p.logger.LogStorageOperation("read_object", key, int64(len(data)), elapsed, err)
	if err != nil {
		metrics.RecordFileProcessed(StatusFailed)
		return &Result{Source: key, Status: StatusFailed}, err
	}
	return p.process(ctx, key, data, false)
}

// ProcessBytes runs the pipeline on in-memory content. source names the
// content for metadata extraction and logs.
func (p *Processor) ProcessBytes(ctx context.Context, source string, data []byte) (*Result, error) {
	return p.process(ctx, source, data, false)
}

func (p *Processor) process(ctx context.Context, source string, data []byte, local bool) (res *Result, err error) {
	span, ctx := tracing.StartSpan(ctx, "pipeline.process")
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "source", source)

	metrics.FilesInProgress.Inc()
	defer metrics.FilesInProgress.Dec()

	log := p.logger.WithFile(source)
	res = &Result{Source: source, Hash: HashBytes(data)}
	defer func() {
		metrics.RecordFileProcessed(res.Status)
		if err != nil && !errors.Is(err, ErrAlreadyProcessed) && !errors.Is(err, ErrNoSubtitles) {
			tracing.LogError(span, err)
		}
	}()

	if p.store != nil {
		if fileID := p.lookupProcessed(ctx, res.Hash); fileID != "" {
			log.WithField("file_id", fileID).Info("File already processed")
			res.Status = StatusDuplicate
			res.Analysis = p.cachedAnalysis(ctx, res.Hash)
			return res, ErrAlreadyProcessed
		}

		if p.cache != nil {
			lock := "file:" + res.Hash
			acquired, lerr := p.cache.AcquireLock(ctx, lock, lockTTL)
			if lerr != nil {
				log.WithError(lerr).Warn("Cannot acquire file lock, continuing without it")
			} else if !acquired {
				res.Status = StatusDuplicate
				return res, ErrInProgress
			} else {
				defer func() {
					if rerr := p.cache.ReleaseLock(context.WithoutCancel(ctx), lock); rerr != nil {
						log.WithError(rerr).Warn("Failed to release file lock")
					}
				}()
			}
		}
	}

	records := p.parse(ctx, res, data)
	if len(records) == 0 {
		log.Warn("No subtitles were parsed, skipping file")
		res.Status = StatusSkipped
		return res, ErrNoSubtitles
	}

	result := p.analyze(ctx, source, records)
	res.Analysis = &result
	res.Movie = p.movieInfo(source, records)
	res.Status = StatusProcessed

	if p.opts.SaveJSON {
		res.ExportPath, res.ExportErr = p.export(ctx, source, &result, local)
		if res.ExportErr != nil {
			log.WithError(res.ExportErr).Warn("Failed to save analysis export")
		}
	}

	if p.store != nil {
		p.persist(ctx, res)
		if errors.Is(res.StoreErr, database.ErrDuplicateFile) {
			res.Status = StatusDuplicate
			return res, ErrAlreadyProcessed
		}
	}

	return res, nil
}

// lookupProcessed returns the stored file id for hash, or "" when the file is
// new or the lookup failed
func (p *Processor) lookupProcessed(ctx context.Context, hash string) string {
	if p.cache != nil {
		id, err := p.cache.ProcessedFileID(ctx, hash)
		if err != nil {
			p.logger.WithError(err).Warn("Processed-file cache lookup failed")
		}
		metrics.RecordCacheAccess("processed", id != "")
		if id != "" {
			return id
		}
	}

	start := time.Now()
	id, err := p.store.FileIDByHash(ctx, hash)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		metrics.RecordDatabaseOperation("file_by_hash", "error", time.Since(start).Seconds())
		p.logger.WithError(err).Warn("File hash lookup failed")
		return ""
	}
	metrics.RecordDatabaseOperation("file_by_hash", "success", time.Since(start).Seconds())

	if id != "" && p.cache != nil {
		if err := p.cache.MarkProcessed(ctx, hash, id, p.opts.CacheTTL); err != nil {
			p.logger.WithError(err).Warn("Failed to cache processed marker")
		}
	}
	return id
}

// cachedAnalysis returns the analysis stored for hash when the cache still
// holds it. Cached analyses carry no sentences.
func (p *Processor) cachedAnalysis(ctx context.Context, hash string) *models.AnalysisResult {
	if p.cache == nil {
		return nil
	}
	result, err := p.cache.GetAnalysis(ctx, hash)
	if err != nil {
		p.logger.WithError(err).Warn("Analysis cache lookup failed")
		return nil
	}
	metrics.RecordCacheAccess("analysis", result != nil)
	return result
}

func (p *Processor) parse(ctx context.Context, res *Result, data []byte) []models.SubtitleRecord {
	span, _ := tracing.StartSpan(ctx, "pipeline.parse")
	defer tracing.FinishSpan(span)
	start := time.Now()

	records, report := p.parser.ParseBytes(data)
	report.Source = res.Source
	res.Report = report
	res.Records = len(records)

	metrics.RecordStage("parse", time.Since(start).Seconds())
	metrics.RecordParse(report.Encoding, report.Detected, report.Parsed, skippedByReason(report))
	p.logger.LogParseReport(res.Source, report.Encoding, report.Detected, report.Blocks, report.Parsed, report.SkippedTotal())

	tracing.SetTag(span, "encoding", report.Encoding)
	tracing.SetTag(span, "blocks", report.Blocks)
	tracing.SetTag(span, "parsed", report.Parsed)
	return records
}

func (p *Processor) analyze(ctx context.Context, source string, records []models.SubtitleRecord) models.AnalysisResult {
	span, _ := tracing.StartSpan(ctx, "pipeline.analyze")
	defer tracing.FinishSpan(span)
	start := time.Now()

	result := p.analyzer.Analyze(subtitle.FullText(records), p.opts.IncludeStopwords)

	elapsed := time.Since(start)
	metrics.RecordStage("analyze", elapsed.Seconds())
	metrics.RecordAnalysis(result.TotalWords, result.TotalSentences)
	p.logger.LogAnalysis(source, result.TotalWords, result.UniqueWords, result.TotalSentences, elapsed)

	tracing.SetTag(span, "total_words", result.TotalWords)
	return result
}

func (p *Processor) movieInfo(source string, records []models.SubtitleRecord) *models.Movie {
	info := metadata.FromFilename(source)
	return &models.Movie{
		Title:         info.Title,
		ReleaseYear:   info.ReleaseYear,
		Language:      p.opts.Language,
		SubtitleCount: len(records),
		Metadata: models.Metadata{
			"processed_date": p.now().UTC().Format(time.RFC3339),
			"first_subtitle": records[0].CleanedText,
			"last_subtitle":  records[len(records)-1].CleanedText,
		},
	}
}

func (p *Processor) export(ctx context.Context, source string, result *models.AnalysisResult, local bool) (string, error) {
	if p.objects != nil {
		data, err := export.Marshal(result)
		if err != nil {
			return "", err
		}
		start := time.Now()
		key, err := p.objects.UploadExport(ctx, source, data)
		elapsed := time.Since(start)
		metrics.RecordStorageOperation("upload_export", metrics.Status(err), elapsed.Seconds(), int64(len(data)))
		p.logger.LogStorageOperation("upload_export", key, int64(len(data)), elapsed, err)
		return key, err
	}
	if !local {
		return "", fmt.Errorf("no destination for export of %s", source)
	}
	return export.WriteFile(source, result)
}

func (p *Processor) persist(ctx context.Context, res *Result) {
	span, ctx := tracing.StartSpan(ctx, "pipeline.store")
	defer tracing.FinishSpan(span)
	start := time.Now()

	file := &models.SubtitleFile{
		Filename:      filepath.Base(res.Source),
		FilePath:      res.Source,
		Encoding:      res.Report.Encoding,
		SubtitleCount: res.Records,
		FileHash:      res.Hash,
	}

	ids, err := p.store.StoreAnalysis(ctx, database.StoreRequest{
		Movie:      res.Movie,
		File:       file,
		Result:     *res.Analysis,
		Stats:      analysis.Stats(*res.Analysis),
		Sentences:  analysis.SentenceRecords(res.Analysis.Sentences),
		IsStopword: p.analyzer.IsStopword,
	})

	elapsed := time.Since(start)
	metrics.RecordDatabaseOperation("store_analysis", metrics.Status(err), elapsed.Seconds())
	p.logger.LogDatabaseOperation("store_analysis", elapsed, err)

	if err != nil {
		tracing.LogError(span, err)
		res.StoreErr = err
		return
	}
	res.Stored = ids

	if p.cache == nil {
		return
	}
	if err := p.cache.MarkProcessed(ctx, res.Hash, ids.FileID, p.opts.CacheTTL); err != nil {
		p.logger.WithError(err).Warn("Failed to cache processed marker")
	}
	if err := p.cache.SetAnalysis(ctx, res.Hash, res.Analysis, p.opts.CacheTTL); err != nil {
		p.logger.WithError(err).Warn("Failed to cache analysis")
	}
	if err := p.cache.InvalidateOverview(ctx); err != nil {
		p.logger.WithError(err).Warn("Failed to invalidate overview cache")
	}
}

func skippedByReason(report subtitle.ParseReport) map[string]int {
	out := make(map[string]int, len(report.Skipped))
	for reason, n := range report.Skipped {
		out[string(reason)] = n
	}
	return out
}
