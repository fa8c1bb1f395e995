package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/database"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/logging"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/metrics"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/middleware"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/pipeline"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/queue"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/storage"
	"github.com/therealutkarshpriyadarshi/filmfluent/pkg/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 500
)

// Queries is the read side of the repository used by the API
type Queries interface {
	Overview(ctx context.Context) (*models.Overview, error)
	ListMovies(ctx context.Context, limit, offset int) ([]*models.MovieSummary, error)
	GetMovie(ctx context.Context, movieID string) (*models.MovieDetail, error)
	MovieTopWords(ctx context.Context, movieID string, limit int) ([]*models.WordFrequency, error)
	MovieSentences(ctx context.Context, movieID string, limit, offset int) ([]*models.StoredSentence, error)
	TopWords(ctx context.Context, limit int) ([]*models.CorpusWord, error)
	WordUsage(ctx context.Context, word string) ([]*models.WordUsage, error)
	TranslationProgress(ctx context.Context) ([]*models.TranslationProgress, error)
	RecentTranslations(ctx context.Context, limit int) ([]*models.Translation, error)
}

// Translations records word translations
type Translations interface {
	AddTranslation(ctx context.Context, word, language, translation string) error
}

// OverviewCache caches the corpus overview
type OverviewCache interface {
	GetOverview(ctx context.Context) (*models.Overview, error)
	SetOverview(ctx context.Context, overview *models.Overview, ttl time.Duration) error
}

// JobPublisher queues analysis jobs
type JobPublisher interface {
	PublishJob(ctx context.Context, job *models.Job) error
}

// HealthChecker reports database health
type HealthChecker interface {
	Health(ctx context.Context) error
}

// API holds the handler dependencies. cache and queue may be nil.
type API struct {
	queries      Queries
	translations Translations
	health       HealthChecker
	cache        OverviewCache
	queue        JobPublisher
	processor    *pipeline.Processor
	logger       *logging.Logger
	maxUpload    int64
	overviewTTL  time.Duration
}

// Health check endpoint
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	// Check database health
	if err := api.health.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

func (api *API) getOverview(c *gin.Context) {
	ctx := c.Request.Context()

	if api.cache != nil {
		cached, err := api.cache.GetOverview(ctx)
		if err != nil {
			api.logger.WithError(err).Warn("Overview cache read failed")
		}
		metrics.RecordCacheAccess("overview", cached != nil)
		if cached != nil {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	overview, err := api.queries.Overview(ctx)
	if err != nil {
		api.internalError(c, "Failed to load overview", err)
		return
	}

	if api.cache != nil {
		if err := api.cache.SetOverview(ctx, overview, api.overviewTTL); err != nil {
			api.logger.WithError(err).Warn("Overview cache write failed")
		}
	}
	c.JSON(http.StatusOK, overview)
}

func (api *API) listMovies(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	movies, err := api.queries.ListMovies(c.Request.Context(), limit, offset)
	if err != nil {
		api.internalError(c, "Failed to list movies", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"movies": movies,
		"limit":  limit,
		"offset": offset,
	})
}

func (api *API) getMovie(c *gin.Context) {
	movieID, ok := movieIDParam(c)
	if !ok {
		return
	}

	movie, err := api.queries.GetMovie(c.Request.Context(), movieID)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Movie not found"})
		return
	}
	if err != nil {
		api.internalError(c, "Failed to load movie", err)
		return
	}

	c.JSON(http.StatusOK, movie)
}

func (api *API) getMovieWords(c *gin.Context) {
	movieID, ok := movieIDParam(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", defaultPageSize, 1, maxPageSize)
	if !ok {
		return
	}

	words, err := api.queries.MovieTopWords(c.Request.Context(), movieID, limit)
	if err != nil {
		api.internalError(c, "Failed to load words", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"movie_id": movieID, "words": words})
}

func (api *API) getMovieSentences(c *gin.Context) {
	movieID, ok := movieIDParam(c)
	if !ok {
		return
	}
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	sentences, err := api.queries.MovieSentences(c.Request.Context(), movieID, limit, offset)
	if err != nil {
		api.internalError(c, "Failed to load sentences", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"movie_id":  movieID,
		"sentences": sentences,
		"limit":     limit,
		"offset":    offset,
	})
}

func (api *API) getTopWords(c *gin.Context) {
	limit, ok := intQuery(c, "limit", defaultPageSize, 1, maxPageSize)
	if !ok {
		return
	}

	words, err := api.queries.TopWords(c.Request.Context(), limit)
	if err != nil {
		api.internalError(c, "Failed to load top words", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"words": words})
}

func (api *API) getWordUsage(c *gin.Context) {
	word := strings.ToLower(strings.TrimSpace(c.Param("word")))
	if word == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Word is required"})
		return
	}

	usage, err := api.queries.WordUsage(c.Request.Context(), word)
	if err != nil {
		api.internalError(c, "Failed to load word usage", err)
		return
	}

	total := 0
	for _, u := range usage {
		total += u.Frequency
	}

	c.JSON(http.StatusOK, gin.H{
		"word":            word,
		"total_frequency": total,
		"movie_count":     len(usage),
		"movies":          usage,
	})
}

func (api *API) getTranslationProgress(c *gin.Context) {
	progress, err := api.queries.TranslationProgress(c.Request.Context())
	if err != nil {
		api.internalError(c, "Failed to load translation progress", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"languages": progress})
}

func (api *API) getRecentTranslations(c *gin.Context) {
	limit, ok := intQuery(c, "limit", defaultPageSize, 1, maxPageSize)
	if !ok {
		return
	}

	translations, err := api.queries.RecentTranslations(c.Request.Context(), limit)
	if err != nil {
		api.internalError(c, "Failed to load translations", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"translations": translations})
}

func (api *API) addTranslation(c *gin.Context) {
	var req struct {
		Word        string `json:"word" binding:"required"`
		Language    string `json:"language" binding:"required"`
		Translation string `json:"translation" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	word := strings.ToLower(strings.TrimSpace(req.Word))
	err := api.translations.AddTranslation(c.Request.Context(), word, req.Language, req.Translation)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Word %q is not in the dictionary", word)})
		return
	}
	if err != nil {
		api.internalError(c, "Failed to save translation", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"word":        word,
		"language":    req.Language,
		"translation": req.Translation,
	})
}

// analyzeUpload parses and analyzes an uploaded subtitle file synchronously
func (api *API) analyzeUpload(c *gin.Context) {
	if api.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, api.maxUpload)
	}

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No subtitle file provided"})
		return
	}
	if !storage.IsSubtitleKey(header.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only .srt files are supported"})
		return
	}

	file, err := header.Open()
	if err != nil {
		api.internalError(c, "Failed to open upload", err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.internalError(c, "Failed to read upload", err)
		return
	}

	opts := api.processor.Options()
	opts.IncludeStopwords = c.Query("include_stopwords") == "true"
	// exports of uploads only make sense with object storage behind them
	opts.SaveJSON = c.Query("save_json") == "true"

	res, err := api.processor.With(opts).ProcessBytes(c.Request.Context(), header.Filename, data)
	switch {
	case errors.Is(err, pipeline.ErrAlreadyProcessed), errors.Is(err, pipeline.ErrInProgress):
		body := gin.H{"error": err.Error(), "hash": res.Hash}
		if res.Analysis != nil {
			body["analysis"] = res.Analysis
		}
		c.JSON(http.StatusConflict, body)
		return
	case errors.Is(err, pipeline.ErrNoSubtitles):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "hash": res.Hash})
		return
	case err != nil:
		api.internalError(c, "Failed to analyze subtitles", err)
		return
	}

	body := gin.H{
		"source":   res.Source,
		"hash":     res.Hash,
		"records":  res.Records,
		"encoding": res.Report.Encoding,
		"skipped":  res.Report.SkippedTotal(),
		"movie":    res.Movie,
		"analysis": res.Analysis,
		"stored":   res.Stored,
	}
	if res.ExportPath != "" {
		body["export"] = res.ExportPath
	}
	if res.StoreErr != nil {
		body["store_error"] = res.StoreErr.Error()
	}
	if res.ExportErr != nil {
		body["export_error"] = res.ExportErr.Error()
	}

	status := http.StatusCreated
	if res.Stored == nil {
		status = http.StatusOK
	}
	c.JSON(status, body)
}

// createJob queues a storage object for the worker
func (api *API) createJob(c *gin.Context) {
	if api.queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Job queue unavailable"})
		return
	}

	var req struct {
		ObjectKey        string `json:"object_key" binding:"required"`
		IncludeStopwords bool   `json:"include_stopwords"`
		SaveJSON         bool   `json:"save_json"`
		Priority         *int   `json:"priority"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key, err := storage.ObjectKey("", req.ObjectKey)
	if err != nil || !storage.IsSubtitleKey(key) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "object_key must name an .srt object"})
		return
	}

	job := queue.NewJob(models.JobSourceStorage, key, req.IncludeStopwords, req.SaveJSON)
	if req.Priority != nil {
		job.Priority = *req.Priority
	}

	if err := api.queue.PublishJob(c.Request.Context(), job); err != nil {
		api.internalError(c, "Failed to queue job", err)
		return
	}
	metrics.RecordJobCreated(job.Source)

	userID, _ := middleware.GetUserID(c)
	api.logger.LogJobEvent(job.ID, "queued", job.Status, map[string]interface{}{
		"object_key": key,
		"user_id":    userID,
	})

	c.JSON(http.StatusAccepted, job)
}

func (api *API) internalError(c *gin.Context, msg string, err error) {
	api.logger.WithError(err).Error(msg)
	metrics.RecordError("api", c.FullPath())
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func movieIDParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid movie ID"})
		return "", false
	}
	return id, true
}

func pagination(c *gin.Context) (limit, offset int, ok bool) {
	limit, ok = intQuery(c, "limit", defaultPageSize, 1, maxPageSize)
	if !ok {
		return 0, 0, false
	}
	offset, ok = intQuery(c, "offset", 0, 0, -1)
	return limit, offset, ok
}

// intQuery reads an integer query parameter. A negative hi means unbounded;
// values above hi are clamped, values below lo are rejected.
func intQuery(c *gin.Context, name string, def, lo, hi int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < lo {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s", name)})
		return 0, false
	}
	if hi >= 0 && n > hi {
		n = hi
	}
	return n, true
}
