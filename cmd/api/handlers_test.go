package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/cache"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/config"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/database"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/logging"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/middleware"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/pipeline"
	"github.com/therealutkarshpriyadarshi/filmfluent/pkg/models"
)

const (
	movieID   = "6f1c2a3e-9d4b-4c5e-8f7a-0b1c2d3e4f5a"
	sampleSRT = "1\n00:00:01,000 --> 00:00:02,500\nThe cat sat.\n\n" +
		"2\n00:00:03,000 --> 00:00:04,000\nThe dog ran!\n"
)

type fakeQueries struct {
	overviewCalls int
	lastLimit     int
	lastOffset    int
	err           error
}

func (f *fakeQueries) Overview(context.Context) (*models.Overview, error) {
	f.overviewCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.Overview{Movies: 2, SubtitleFiles: 2, TotalWords: 1200, UniqueWords: 300, TotalSentences: 150}, nil
}

func (f *fakeQueries) ListMovies(_ context.Context, limit, offset int) ([]*models.MovieSummary, error) {
	f.lastLimit, f.lastOffset = limit, offset
	if f.err != nil {
		return nil, f.err
	}
	return []*models.MovieSummary{{ID: movieID, Title: "Heat", TotalWords: 900}}, nil
}

func (f *fakeQueries) GetMovie(_ context.Context, id string) (*models.MovieDetail, error) {
	if id != movieID {
		return nil, database.ErrNotFound
	}
	return &models.MovieDetail{Movie: models.Movie{ID: movieID, Title: "Heat"}}, nil
}

func (f *fakeQueries) MovieTopWords(_ context.Context, _ string, limit int) ([]*models.WordFrequency, error) {
	f.lastLimit = limit
	return []*models.WordFrequency{{Word: "bank", Frequency: 12, RelativeFrequency: 0.01}}, nil
}

func (f *fakeQueries) MovieSentences(_ context.Context, _ string, limit, offset int) ([]*models.StoredSentence, error) {
	f.lastLimit, f.lastOffset = limit, offset
	return []*models.StoredSentence{{Position: 0, Sentence: "Hello there", WordCount: 2}}, nil
}

func (f *fakeQueries) TopWords(_ context.Context, limit int) ([]*models.CorpusWord, error) {
	f.lastLimit = limit
	return []*models.CorpusWord{{Word: "bank", Frequency: 20, MovieCount: 2}}, nil
}

func (f *fakeQueries) WordUsage(_ context.Context, word string) ([]*models.WordUsage, error) {
	if word != "bank" {
		return []*models.WordUsage{}, nil
	}
	return []*models.WordUsage{
		{MovieID: movieID, Title: "Heat", Frequency: 12},
		{MovieID: "other", Title: "Ronin", Frequency: 8},
	}, nil
}

func (f *fakeQueries) TranslationProgress(context.Context) ([]*models.TranslationProgress, error) {
	return []*models.TranslationProgress{{Language: "Spanish", Translated: 10, TotalWords: 100, PercentDone: 10}}, nil
}

func (f *fakeQueries) RecentTranslations(_ context.Context, limit int) ([]*models.Translation, error) {
	f.lastLimit = limit
	return []*models.Translation{}, nil
}

type fakeTranslations struct {
	saved []string
}

func (f *fakeTranslations) AddTranslation(_ context.Context, word, language, translation string) error {
	if word == "zzz" {
		return database.ErrNotFound
	}
	f.saved = append(f.saved, word+"/"+language+"/"+translation)
	return nil
}

type fakeOverviewCache struct {
	overview *models.Overview
}

func (f *fakeOverviewCache) GetOverview(context.Context) (*models.Overview, error) {
	return f.overview, nil
}

func (f *fakeOverviewCache) SetOverview(_ context.Context, o *models.Overview, _ time.Duration) error {
	f.overview = o
	return nil
}

type fakePublisher struct {
	jobs []*models.Job
	err  error
}

func (f *fakePublisher) PublishJob(_ context.Context, job *models.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeHealth struct{ err error }

func (f fakeHealth) Health(context.Context) error { return f.err }

func newTestAPI() (*API, *fakeQueries) {
	q := &fakeQueries{}
	return &API{
		queries:      q,
		translations: &fakeTranslations{},
		health:       fakeHealth{},
		processor:    pipeline.FromConfig(config.AnalysisConfig{TopN: 5}),
		logger:       logging.NewNopLogger(),
		maxUpload:    1 << 20,
		overviewTTL:  time.Minute,
	}, q
}

func serve(api *API, req *http.Request) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	setupRouter(api).ServeHTTP(w, req)
	return w
}

func get(t *testing.T, api *API, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := serve(api, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return w, body
}

func authHeader(t *testing.T) string {
	t.Helper()
	middleware.SetJWTSecret("test-secret")
	t.Cleanup(func() { middleware.SetJWTSecret("") })
	token, err := middleware.GenerateToken("user-1", "user@example.com", time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthCheck(t *testing.T) {
	api, _ := newTestAPI()
	w, body := get(t, api, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])

	api.health = fakeHealth{err: errors.New("db down")}
	w, body = get(t, api, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", body["status"])
}

func TestGetOverviewUsesCache(t *testing.T) {
	api, q := newTestAPI()
	cache := &fakeOverviewCache{}
	api.cache = cache

	w, body := get(t, api, "/api/v1/overview")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1200), body["total_words"])
	require.NotNil(t, cache.overview)

	_, _ = get(t, api, "/api/v1/overview")
	assert.Equal(t, 1, q.overviewCalls, "second request is served from cache")
}

func TestGetOverviewError(t *testing.T) {
	api, q := newTestAPI()
	q.err = errors.New("boom")

	w, body := get(t, api, "/api/v1/overview")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to load overview", body["error"])
}

func TestListMoviesPagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantCode   int
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", http.StatusOK, defaultPageSize, 0},
		{"explicit", "?limit=5&offset=10", http.StatusOK, 5, 10},
		{"clamped", "?limit=100000", http.StatusOK, maxPageSize, 0},
		{"zero limit", "?limit=0", http.StatusBadRequest, 0, 0},
		{"negative offset", "?offset=-1", http.StatusBadRequest, 0, 0},
		{"not a number", "?limit=ten", http.StatusBadRequest, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, q := newTestAPI()
			w, body := get(t, api, "/api/v1/movies"+tt.query)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode != http.StatusOK {
				return
			}
			assert.Equal(t, tt.wantLimit, q.lastLimit)
			assert.Equal(t, tt.wantOffset, q.lastOffset)
			assert.Len(t, body["movies"], 1)
		})
	}
}

func TestGetMovie(t *testing.T) {
	api, _ := newTestAPI()

	w, body := get(t, api, "/api/v1/movies/"+movieID)
	assert.Equal(t, http.StatusOK, w.Code)
	movie, ok := body["movie"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Heat", movie["title"])

	w, _ = get(t, api, "/api/v1/movies/0b1c2d3e-9d4b-4c5e-8f7a-6f1c2a3e4f5a")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = get(t, api, "/api/v1/movies/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMovieWordsAndSentences(t *testing.T) {
	api, q := newTestAPI()

	w, body := get(t, api, "/api/v1/movies/"+movieID+"/words?limit=3")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, q.lastLimit)
	assert.Len(t, body["words"], 1)

	w, body = get(t, api, "/api/v1/movies/"+movieID+"/sentences?offset=20")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 20, q.lastOffset)
	assert.Len(t, body["sentences"], 1)
}

func TestWords(t *testing.T) {
	api, q := newTestAPI()

	w, body := get(t, api, "/api/v1/words/top?limit=7")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, q.lastLimit)
	assert.Len(t, body["words"], 1)

	w, body = get(t, api, "/api/v1/words/BANK")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bank", body["word"])
	assert.Equal(t, float64(20), body["total_frequency"])
	assert.Equal(t, float64(2), body["movie_count"])

	_, body = get(t, api, "/api/v1/words/unknown")
	assert.Equal(t, float64(0), body["movie_count"])
	assert.Empty(t, body["movies"])
}

func TestTranslations(t *testing.T) {
	api, _ := newTestAPI()

	w, body := get(t, api, "/api/v1/translations/progress")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["languages"], 1)

	w, _ = get(t, api, "/api/v1/translations/recent")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAddTranslation(t *testing.T) {
	api, _ := newTestAPI()
	auth := authHeader(t)
	store := api.translations.(*fakeTranslations)

	post := func(payload string, withAuth bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/translations", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		if withAuth {
			req.Header.Set("Authorization", auth)
		}
		return serve(api, req)
	}

	assert.Equal(t, http.StatusUnauthorized, post(`{}`, false).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"word":"bank"}`, true).Code)
	assert.Equal(t, http.StatusNotFound, post(`{"word":"zzz","language":"Spanish","translation":"x"}`, true).Code)

	w := post(`{"word":" Bank ","language":"Spanish","translation":"banco"}`, true)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"bank/Spanish/banco"}, store.saved)
}

func uploadRequest(t *testing.T, filename, content, auth string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze?include_stopwords=true", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	return req
}

func TestAnalyzeUpload(t *testing.T) {
	api, _ := newTestAPI()
	auth := authHeader(t)

	w := serve(api, uploadRequest(t, "Heat.1995.srt", sampleSRT, auth))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Records  int `json:"records"`
		Analysis struct {
			TotalWords      int            `json:"total_words"`
			WordFrequencies map[string]int `json:"word_frequencies"`
		} `json:"analysis"`
		Movie struct {
			Title string `json:"title"`
		} `json:"movie"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Records)
	assert.Equal(t, 6, body.Analysis.TotalWords)
	assert.Equal(t, 2, body.Analysis.WordFrequencies["the"])
	assert.Equal(t, "Heat", body.Movie.Title)
}

type memoryStore struct {
	files map[string]string
}

func (m *memoryStore) FileIDByHash(_ context.Context, hash string) (string, error) {
	if id, ok := m.files[hash]; ok {
		return id, nil
	}
	return "", database.ErrNotFound
}

func (m *memoryStore) StoreAnalysis(_ context.Context, req database.StoreRequest) (*models.StoredIDs, error) {
	id := "file-" + req.File.FileHash[:8]
	m.files[req.File.FileHash] = id
	return &models.StoredIDs{MovieID: movieID, FileID: id, WordCount: req.Result.UniqueWords}, nil
}

func TestAnalyzeUploadDuplicateReturnsCachedAnalysis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	c, err := cache.NewCache(mr.Host(), mr.Server().Addr().Port, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	api, _ := newTestAPI()
	api.processor = pipeline.FromConfig(config.AnalysisConfig{TopN: 5},
		pipeline.WithStore(&memoryStore{files: map[string]string{}}),
		pipeline.WithCache(c))
	auth := authHeader(t)

	w := serve(api, uploadRequest(t, "Heat.1995.srt", sampleSRT, auth))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = serve(api, uploadRequest(t, "Heat.1995.srt", sampleSRT, auth))
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	var body struct {
		Error    string `json:"error"`
		Hash     string `json:"hash"`
		Analysis struct {
			TotalWords int `json:"total_words"`
		} `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, pipeline.ErrAlreadyProcessed.Error(), body.Error)
	assert.Equal(t, pipeline.HashBytes([]byte(sampleSRT)), body.Hash)
	assert.Equal(t, 6, body.Analysis.TotalWords)
}

func TestAnalyzeUploadRejections(t *testing.T) {
	api, _ := newTestAPI()
	auth := authHeader(t)

	w := serve(api, uploadRequest(t, "Heat.srt", sampleSRT, ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(api, uploadRequest(t, "Heat.txt", sampleSRT, auth))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(api, uploadRequest(t, "Heat.srt", "no subtitles here\n", auth))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	api.maxUpload = 64
	w = serve(api, uploadRequest(t, "Heat.srt", strings.Repeat(sampleSRT, 10), auth))
	assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, w.Code)
}

func TestCreateJob(t *testing.T) {
	api, _ := newTestAPI()
	auth := authHeader(t)

	post := func(payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", auth)
		return serve(api, req)
	}

	assert.Equal(t, http.StatusServiceUnavailable, post(`{"object_key":"a.srt"}`).Code)

	pub := &fakePublisher{}
	api.queue = pub

	assert.Equal(t, http.StatusBadRequest, post(`{}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"object_key":"movie.mp4"}`).Code)

	w := post(`{"object_key":"s3://subtitles/movies/Heat.srt","include_stopwords":true,"priority":9}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	require.Len(t, pub.jobs, 1)
	job := pub.jobs[0]
	assert.Equal(t, models.JobSourceStorage, job.Source)
	assert.Equal(t, "movies/Heat.srt", job.ObjectKey)
	assert.True(t, job.IncludeStopwords)
	assert.Equal(t, 9, job.Priority)

	pub.err = errors.New("channel closed")
	assert.Equal(t, http.StatusInternalServerError, post(`{"object_key":"b.srt"}`).Code)
}
