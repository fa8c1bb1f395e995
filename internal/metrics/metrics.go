package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmfluent_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filmfluent_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Pipeline Metrics
	FilesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmfluent_files_processed_total",
			Help: "Total number of subtitle files handled, by outcome",
		},
		[]string{"status"},
	)

	BlocksParsedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filmfluent_blocks_parsed_total",
			Help: "Total number of subtitle blocks parsed into records",
		},
	)

	BlocksSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmfluent_blocks_skipped_total",
			Help: "Total number of subtitle blocks skipped, by reason",
		},
		[]string{"reason"},
	)

	EncodingsDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmfluent_encodings_total",
			Help: "Encodings used to decode subtitle files",
		},
		[]string{"encoding", "detected"},
	)

	WordsCountedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filmfluent_words_counted_total",
			Help: "Total number of word tokens analyzed",
		},
	)

	SentencesCountedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filmfluent_sentences_counted_total",
			Help: "Total number of sentences analyzed",
		},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filmfluent_pipeline_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"stage"},
	)

	FilesInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "filmfluent_files_in_progress",
			Help: "Number of files currently being processed",
		},
	)

	// Job Metrics
	JobsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmfluent_jobs_created_total",
			Help: "Total number of analysis jobs enqueued",
		},
		[]string{"source"},
	)

	JobsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmfluent_jobs_completed_total",
			Help: "Total number of analysis jobs finished, by status",
		},
		[]string{"status"},
	)

	JobsQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "filmfluent_jobs_queue_depth",
			Help: "Number of jobs waiting in queue",
		},
	)

	JobsDeadLetterDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "filmfluent_jobs_dead_letter_depth",
			Help: "Number of jobs parked in the dead letter queue",
		},
	)

	// Storage Metrics
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmfluent_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filmfluent_storage_operation_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StorageBytesTransferred = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmfluent_storage_bytes_transferred_total",
			Help: "Total bytes transferred to/from storage",
		},
		[]string{"operation"},
	)

	// Database Metrics
	DatabaseOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmfluent_database_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "status"},
	)

	DatabaseOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filmfluent_database_operation_duration_seconds",
			Help:    "Database operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
		[]string{"operation"},
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmfluent_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmfluent_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmfluent_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordFileProcessed records the outcome of one subtitle file
func RecordFileProcessed(status string) {
	FilesProcessedTotal.WithLabelValues(status).Inc()
}

// RecordParse records block counts and the encoding of one parsed file
func RecordParse(encoding string, detected bool, parsed int, skipped map[string]int) {
	BlocksParsedTotal.Add(float64(parsed))
	for reason, n := range skipped {
		BlocksSkippedTotal.WithLabelValues(reason).Add(float64(n))
	}

	flag := "false"
	if detected {
		flag = "true"
	}
	EncodingsDetectedTotal.WithLabelValues(encoding, flag).Inc()
}

// RecordAnalysis records the token and sentence counts of one analysis
func RecordAnalysis(totalWords, totalSentences int) {
	WordsCountedTotal.Add(float64(totalWords))
	SentencesCountedTotal.Add(float64(totalSentences))
}

// RecordStage records how long a pipeline stage took
func RecordStage(stage string, duration float64) {
	PipelineStageDuration.WithLabelValues(stage).Observe(duration)
}

// RecordJobCreated records a job enqueue
func RecordJobCreated(source string) {
	JobsCreatedTotal.WithLabelValues(source).Inc()
}

// RecordJobCompleted records a job completion
func RecordJobCompleted(status string) {
	JobsCompletedTotal.WithLabelValues(status).Inc()
}

// UpdateQueueDepth sets the observed queue depth
func UpdateQueueDepth(depth int) {
	JobsQueueDepth.Set(float64(depth))
}

// UpdateDeadLetterDepth sets the observed dead letter queue depth
func UpdateDeadLetterDepth(depth int) {
	JobsDeadLetterDepth.Set(float64(depth))
}

// RecordStorageOperation records a storage operation
func RecordStorageOperation(operation, status string, duration float64, bytesTransferred int64) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	StorageOperationDuration.WithLabelValues(operation).Observe(duration)
	StorageBytesTransferred.WithLabelValues(operation).Add(float64(bytesTransferred))
}

// RecordDatabaseOperation records a database operation
func RecordDatabaseOperation(operation, status string, duration float64) {
	DatabaseOperationsTotal.WithLabelValues(operation, status).Inc()
	DatabaseOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordCacheAccess records cache hit or miss
func RecordCacheAccess(cacheType string, hit bool) {
	if hit {
		CacheHitsTotal.WithLabelValues(cacheType).Inc()
	} else {
		CacheMissesTotal.WithLabelValues(cacheType).Inc()
	}
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// Status returns "success" or "error" for use as a status label
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
