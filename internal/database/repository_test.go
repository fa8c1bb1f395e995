package database

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/config"
	"github.com/therealutkarshpriyadarshi/filmfluent/pkg/models"
)

func TestBuildFrequencyRows(t *testing.T) {
	freqs := map[string]int{"the": 2, "cat": 1, "sat": 1}
	stop := func(w string) bool { return w == "the" }

	rows := buildFrequencyRows(freqs, 8, stop)

	assert.Equal(t, []string{"cat", "sat", "the"}, rows.Words)
	assert.Equal(t, []bool{false, false, true}, rows.Stopwords)
	assert.Equal(t, []int32{1, 1, 2}, rows.Counts)
	assert.InDeltaSlice(t, []float64{0.125, 0.125, 0.25}, rows.Relative, 1e-9)
}

func TestBuildFrequencyRowsZeroTotal(t *testing.T) {
	rows := buildFrequencyRows(map[string]int{"x": 3}, 0, nil)

	assert.Equal(t, []float64{0}, rows.Relative)
	assert.Equal(t, []bool{false}, rows.Stopwords)

	empty := buildFrequencyRows(nil, 10, nil)
	assert.Empty(t, empty.Words)
}

func TestMigrationFiles(t *testing.T) {
	files, err := migrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "migrations/001_init.up.sql", files[0])

	script, err := migrationFS.ReadFile(files[0])
	require.NoError(t, err)
	for _, table := range []string{
		"movies", "subtitle_files", "analysis_results", "words_dictionary",
		"word_frequencies", "sentences", "target_languages", "word_translations",
	} {
		assert.Contains(t, string(script), "CREATE TABLE IF NOT EXISTS "+table+" ", table)
	}
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host: "db", Port: 5433, User: "u", Password: "p", DBName: "filmfluent",
		SSLMode: "disable", MaxConns: 5, MinConns: 1,
	})

	assert.True(t, strings.HasPrefix(dsn, "host=db port=5433 "))
	assert.Contains(t, dsn, "dbname=filmfluent")
	assert.Contains(t, dsn, "pool_max_conns=5")
}

// Integration test; set FILMFLUENT_TEST_DATABASE_URL to a scratch database to run it.
func TestRepository_StoreAndQuery(t *testing.T) {
	url := os.Getenv("FILMFLUENT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Skipping integration test - requires database connection")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	db := &DB{Pool: pool}
	defer db.Close()

	require.NoError(t, db.Migrate(ctx))
	repo := NewRepository(db)

	hash := uuid.New().String()
	req := StoreRequest{
		Movie: &models.Movie{Title: "Integration Movie", Metadata: models.Metadata{"source": "test"}},
		File: &models.SubtitleFile{
			Filename: "integration.srt", FilePath: "/tmp/integration.srt",
			Encoding: "utf-8", SubtitleCount: 2, FileHash: hash,
		},
		Result: models.AnalysisResult{
			TotalWords: 6, UniqueWords: 4, TotalSentences: 2,
			WordFrequencies: map[string]int{"cat": 1, "sat": 1, "dog": 1, "ran": 1},
		},
		Sentences: []models.SentenceRecord{{Sentence: "The cat sat", WordCount: 3}, {Sentence: "The dog ran!", WordCount: 3}},
	}

	ids, err := repo.StoreAnalysis(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 4, ids.WordCount)
	assert.Equal(t, 2, ids.SentenceCount)

	fileID, err := repo.FileIDByHash(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, ids.FileID, fileID)

	req.Movie = &models.Movie{Title: "Integration Movie"}
	req.File = &models.SubtitleFile{Filename: "again.srt", FileHash: hash, Encoding: "utf-8"}
	_, err = repo.StoreAnalysis(ctx, req)
	assert.ErrorIs(t, err, ErrDuplicateFile)

	usage, err := repo.WordUsage(ctx, "cat")
	require.NoError(t, err)
	assert.NotEmpty(t, usage)

	_, err = repo.FileIDByHash(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
