package database

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/therealutkarshpriyadarshi/filmfluent/pkg/models"
)

// ErrDuplicateFile is returned by StoreAnalysis when a file with the same
// content hash has already been stored
var ErrDuplicateFile = errors.New("subtitle file already stored")

// Repository provides database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// StoreRequest is everything persisted for one analyzed subtitle file
type StoreRequest struct {
	Movie      *models.Movie
	File       *models.SubtitleFile
	Result     models.AnalysisResult
	Stats      models.TextStats
	Sentences  []models.SentenceRecord
	IsStopword func(word string) bool
}

// StoreAnalysis writes the movie, file, analysis summary, word frequencies
// and sentences in a single transaction. Nothing is written when any step
// fails.
func (r *Repository) StoreAnalysis(ctx context.Context, req StoreRequest) (*models.StoredIDs, error) {
	if req.Movie == nil || req.File == nil {
		return nil, fmt.Errorf("movie and file are required")
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	ids := &models.StoredIDs{}

	if err := createMovie(ctx, tx, req.Movie); err != nil {
		return nil, err
	}
	ids.MovieID = req.Movie.ID

	req.File.MovieID = req.Movie.ID
	if err := createSubtitleFile(ctx, tx, req.File); err != nil {
		return nil, err
	}
	ids.FileID = req.File.ID

	analysisID, err := createAnalysis(ctx, tx, req.File.ID, req.Result, req.Stats)
	if err != nil {
		return nil, err
	}
	ids.AnalysisID = analysisID

	rows := buildFrequencyRows(req.Result.WordFrequencies, req.Result.TotalWords, req.IsStopword)
	ids.WordCount, err = storeWordFrequencies(ctx, tx, req.File.ID, rows, req.Movie.Language)
	if err != nil {
		return nil, err
	}

	ids.SentenceCount, err = storeSentences(ctx, tx, req.File.ID, req.Sentences)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit analysis: %w", err)
	}

	return ids, nil
}

func createMovie(ctx context.Context, tx pgx.Tx, movie *models.Movie) error {
	if movie.ID == "" {
		movie.ID = uuid.New().String()
	}
	if movie.Language == "" {
		movie.Language = "English"
	}

	query := `
		INSERT INTO movies (movie_id, title, release_year, language, genre, runtime_minutes, subtitle_count, metadata)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
		RETURNING created_at
	`

	err := tx.QueryRow(ctx, query,
		movie.ID, movie.Title, movie.ReleaseYear, movie.Language, movie.Genre,
		movie.RuntimeMinutes, movie.SubtitleCount, movie.Metadata,
	).Scan(&movie.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create movie: %w", err)
	}

	return nil
}

func createSubtitleFile(ctx context.Context, tx pgx.Tx, file *models.SubtitleFile) error {
	if file.ID == "" {
		file.ID = uuid.New().String()
	}

	query := `
		INSERT INTO subtitle_files (file_id, movie_id, filename, file_path, encoding, subtitle_count, file_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (file_hash) DO NOTHING
		RETURNING created_at
	`

	err := tx.QueryRow(ctx, query,
		file.ID, file.MovieID, file.Filename, file.FilePath, file.Encoding,
		file.SubtitleCount, file.FileHash,
	).Scan(&file.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicateFile
	}
	if err != nil {
		return fmt.Errorf("failed to create subtitle file: %w", err)
	}

	return nil
}

func createAnalysis(ctx context.Context, tx pgx.Tx, fileID string, result models.AnalysisResult, stats models.TextStats) (string, error) {
	id := uuid.New().String()

	query := `
		INSERT INTO analysis_results (analysis_id, file_id, total_words, unique_words, total_sentences,
			average_words_per_sentence, average_word_length)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.Exec(ctx, query,
		id, fileID, result.TotalWords, result.UniqueWords, result.TotalSentences,
		stats.AverageWordsPerSentence, stats.AverageWordLength,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create analysis: %w", err)
	}

	return id, nil
}

// frequencyRows is a column-oriented batch of word frequency rows, ready to
// be bound to unnest() parameters
type frequencyRows struct {
	Words     []string
	Stopwords []bool
	Counts    []int32
	Relative  []float64
}

// buildFrequencyRows orders words alphabetically so batches are deterministic
func buildFrequencyRows(freqs map[string]int, totalWords int, isStopword func(string) bool) frequencyRows {
	words := make([]string, 0, len(freqs))
	for w := range freqs {
		words = append(words, w)
	}
	sort.Strings(words)

	rows := frequencyRows{
		Words:     words,
		Stopwords: make([]bool, len(words)),
		Counts:    make([]int32, len(words)),
		Relative:  make([]float64, len(words)),
	}
	for i, w := range words {
		if isStopword != nil {
			rows.Stopwords[i] = isStopword(w)
		}
		rows.Counts[i] = int32(freqs[w])
		rows.Relative[i] = models.RelativeFrequency(freqs[w], totalWords)
	}
	return rows
}

func storeWordFrequencies(ctx context.Context, tx pgx.Tx, fileID string, rows frequencyRows, language string) (int, error) {
	if len(rows.Words) == 0 {
		return 0, nil
	}

	dictionary := `
		INSERT INTO words_dictionary (word, is_stopword, language)
		SELECT t.w, t.s, $3
		FROM unnest($1::text[], $2::bool[]) AS t(w, s)
		ON CONFLICT (word) DO NOTHING
	`
	if _, err := tx.Exec(ctx, dictionary, rows.Words, rows.Stopwords, language); err != nil {
		return 0, fmt.Errorf("failed to upsert dictionary words: %w", err)
	}

	frequencies := `
		INSERT INTO word_frequencies (file_id, word_id, frequency, relative_frequency)
		SELECT $1::uuid, d.word_id, t.f, t.r
		FROM unnest($2::text[], $3::int4[], $4::float8[]) AS t(w, f, r)
		JOIN words_dictionary d ON d.word = t.w
		ON CONFLICT (file_id, word_id) DO UPDATE SET
			frequency = EXCLUDED.frequency,
			relative_frequency = EXCLUDED.relative_frequency
	`
	tag, err := tx.Exec(ctx, frequencies, fileID, rows.Words, rows.Counts, rows.Relative)
	if err != nil {
		return 0, fmt.Errorf("failed to store word frequencies: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

func storeSentences(ctx context.Context, tx pgx.Tx, fileID string, sentences []models.SentenceRecord) (int, error) {
	if len(sentences) == 0 {
		return 0, nil
	}

	positions := make([]int32, len(sentences))
	texts := make([]string, len(sentences))
	counts := make([]int32, len(sentences))
	for i, s := range sentences {
		positions[i] = int32(i)
		texts[i] = s.Sentence
		counts[i] = int32(s.WordCount)
	}

	query := `
		INSERT INTO sentences (file_id, position, sentence, word_count)
		SELECT $1::uuid, t.p, t.s, t.c
		FROM unnest($2::int4[], $3::text[], $4::int4[]) AS t(p, s, c)
	`
	tag, err := tx.Exec(ctx, query, fileID, positions, texts, counts)
	if err != nil {
		return 0, fmt.Errorf("failed to store sentences: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// FileIDByHash returns the id of the subtitle file with the given content hash
func (r *Repository) FileIDByHash(ctx context.Context, hash string) (string, error) {
	var id string
	err := r.db.Pool.QueryRow(ctx,
		`SELECT file_id FROM subtitle_files WHERE file_hash = $1`, hash,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up file hash: %w", err)
	}
	return id, nil
}

// AddTranslation stores a translation of a dictionary word, creating the
// target language on first use
func (r *Repository) AddTranslation(ctx context.Context, word, language, translation string) error {
	query := `
		WITH lang AS (
			INSERT INTO target_languages (language_name) VALUES ($2)
			ON CONFLICT (language_name) DO UPDATE SET language_name = EXCLUDED.language_name
			RETURNING language_id
		)
		INSERT INTO word_translations (word_id, language_id, translation)
		SELECT d.word_id, lang.language_id, $3
		FROM words_dictionary d, lang
		WHERE d.word = $1
		ON CONFLICT (word_id, language_id) DO UPDATE SET
			translation = EXCLUDED.translation,
			created_at = NOW()
	`

	tag, err := r.db.Pool.Exec(ctx, query, word, language, translation)
	if err != nil {
		return fmt.Errorf("failed to add translation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
