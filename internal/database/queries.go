package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/therealutkarshpriyadarshi/filmfluent/pkg/models"
)

// Read-side queries backing the API

// Overview returns corpus-wide totals
func (r *Repository) Overview(ctx context.Context) (*models.Overview, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM movies),
			(SELECT COUNT(*) FROM subtitle_files),
			(SELECT COALESCE(SUM(total_words), 0) FROM analysis_results),
			(SELECT COUNT(DISTINCT word_id) FROM word_frequencies),
			(SELECT COALESCE(SUM(total_sentences), 0) FROM analysis_results)
	`

	var o models.Overview
	err := r.db.Pool.QueryRow(ctx, query).Scan(
		&o.Movies, &o.SubtitleFiles, &o.TotalWords, &o.UniqueWords, &o.TotalSentences,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get overview: %w", err)
	}

	return &o, nil
}

// ListMovies returns analyzed movies ordered by total words, largest first
func (r *Repository) ListMovies(ctx context.Context, limit, offset int) ([]*models.MovieSummary, error) {
	query := `
		SELECT m.movie_id, m.title, m.release_year, m.subtitle_count,
			ar.total_words, ar.unique_words, ar.total_sentences,
			ar.average_words_per_sentence, ar.average_word_length
		FROM movies m
		JOIN subtitle_files sf ON m.movie_id = sf.movie_id
		JOIN analysis_results ar ON sf.file_id = ar.file_id
		ORDER BY ar.total_words DESC, m.title
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	defer rows.Close()

	movies := []*models.MovieSummary{}
	for rows.Next() {
		var m models.MovieSummary
		err := rows.Scan(
			&m.ID, &m.Title, &m.ReleaseYear, &m.SubtitleCount,
			&m.TotalWords, &m.UniqueWords, &m.TotalSentences,
			&m.AverageWordsPerSentence, &m.AverageWordLength,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movie: %w", err)
		}
		movies = append(movies, &m)
	}

	return movies, rows.Err()
}

// GetMovie returns a movie with its subtitle files and analyses
func (r *Repository) GetMovie(ctx context.Context, movieID string) (*models.MovieDetail, error) {
	query := `
		SELECT movie_id, title, release_year, language, COALESCE(genre, ''), runtime_minutes,
			subtitle_count, metadata, created_at
		FROM movies
		WHERE movie_id = $1
	`

	var detail models.MovieDetail
	m := &detail.Movie
	err := r.db.Pool.QueryRow(ctx, query, movieID).Scan(
		&m.ID, &m.Title, &m.ReleaseYear, &m.Language, &m.Genre, &m.RuntimeMinutes,
		&m.SubtitleCount, &m.Metadata, &m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}

	files := `
		SELECT sf.file_id, sf.movie_id, sf.filename, sf.file_path, sf.encoding, sf.subtitle_count,
			sf.file_hash, sf.created_at,
			ar.analysis_id, ar.total_words, ar.unique_words, ar.total_sentences,
			ar.average_words_per_sentence, ar.average_word_length, ar.created_at
		FROM subtitle_files sf
		JOIN analysis_results ar ON sf.file_id = ar.file_id
		WHERE sf.movie_id = $1
		ORDER BY sf.created_at
	`

	rows, err := r.db.Pool.Query(ctx, files, movieID)
	if err != nil {
		return nil, fmt.Errorf("failed to get movie files: %w", err)
	}
	defer rows.Close()

	detail.Files = []models.SubtitleFile{}
	detail.Analyses = []models.AnalysisRecord{}
	for rows.Next() {
		var f models.SubtitleFile
		var a models.AnalysisRecord
		err := rows.Scan(
			&f.ID, &f.MovieID, &f.Filename, &f.FilePath, &f.Encoding, &f.SubtitleCount,
			&f.FileHash, &f.CreatedAt,
			&a.ID, &a.TotalWords, &a.UniqueWords, &a.TotalSentences,
			&a.AverageWordsPerSentence, &a.AverageWordLength, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movie file: %w", err)
		}
		a.FileID = f.ID
		detail.Files = append(detail.Files, f)
		detail.Analyses = append(detail.Analyses, a)
	}

	return &detail, rows.Err()
}

// MovieTopWords returns the most frequent words across a movie's files
func (r *Repository) MovieTopWords(ctx context.Context, movieID string, limit int) ([]*models.WordFrequency, error) {
	query := `
		SELECT w.word, SUM(wf.frequency)::int AS frequency, AVG(wf.relative_frequency) AS relative_frequency
		FROM word_frequencies wf
		JOIN words_dictionary w ON wf.word_id = w.word_id
		JOIN subtitle_files sf ON wf.file_id = sf.file_id
		WHERE sf.movie_id = $1
		GROUP BY w.word
		ORDER BY frequency DESC, w.word
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, movieID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get movie words: %w", err)
	}
	defer rows.Close()

	words := []*models.WordFrequency{}
	for rows.Next() {
		var w models.WordFrequency
		if err := rows.Scan(&w.Word, &w.Frequency, &w.RelativeFrequency); err != nil {
			return nil, fmt.Errorf("failed to scan word frequency: %w", err)
		}
		words = append(words, &w)
	}

	return words, rows.Err()
}

// MovieSentences returns a movie's sentences in subtitle order
func (r *Repository) MovieSentences(ctx context.Context, movieID string, limit, offset int) ([]*models.StoredSentence, error) {
	query := `
		SELECT s.position, s.sentence, s.word_count
		FROM sentences s
		JOIN subtitle_files sf ON s.file_id = sf.file_id
		WHERE sf.movie_id = $1
		ORDER BY sf.created_at, s.position
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool.Query(ctx, query, movieID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get sentences: %w", err)
	}
	defer rows.Close()

	sentences := []*models.StoredSentence{}
	for rows.Next() {
		var s models.StoredSentence
		if err := rows.Scan(&s.Position, &s.Sentence, &s.WordCount); err != nil {
			return nil, fmt.Errorf("failed to scan sentence: %w", err)
		}
		sentences = append(sentences, &s)
	}

	return sentences, rows.Err()
}

// TopWords ranks non-stopword words across every processed file
func (r *Repository) TopWords(ctx context.Context, limit int) ([]*models.CorpusWord, error) {
	query := `
		SELECT w.word, SUM(wf.frequency)::int AS total_frequency, COUNT(DISTINCT sf.movie_id)::int AS movie_count
		FROM word_frequencies wf
		JOIN words_dictionary w ON wf.word_id = w.word_id
		JOIN subtitle_files sf ON wf.file_id = sf.file_id
		WHERE w.is_stopword = FALSE
		GROUP BY w.word
		ORDER BY total_frequency DESC, w.word
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top words: %w", err)
	}
	defer rows.Close()

	words := []*models.CorpusWord{}
	for rows.Next() {
		var w models.CorpusWord
		if err := rows.Scan(&w.Word, &w.Frequency, &w.MovieCount); err != nil {
			return nil, fmt.Errorf("failed to scan word: %w", err)
		}
		words = append(words, &w)
	}

	return words, rows.Err()
}

// WordUsage returns how often word occurs in each movie
func (r *Repository) WordUsage(ctx context.Context, word string) ([]*models.WordUsage, error) {
	query := `
		SELECT m.movie_id, m.title, wf.frequency, wf.relative_frequency
		FROM word_frequencies wf
		JOIN words_dictionary w ON wf.word_id = w.word_id
		JOIN subtitle_files sf ON wf.file_id = sf.file_id
		JOIN movies m ON sf.movie_id = m.movie_id
		WHERE w.word = $1
		ORDER BY wf.frequency DESC, m.title
	`

	rows, err := r.db.Pool.Query(ctx, query, word)
	if err != nil {
		return nil, fmt.Errorf("failed to get word usage: %w", err)
	}
	defer rows.Close()

	usage := []*models.WordUsage{}
	for rows.Next() {
		var u models.WordUsage
		if err := rows.Scan(&u.MovieID, &u.Title, &u.Frequency, &u.RelativeFrequency); err != nil {
			return nil, fmt.Errorf("failed to scan word usage: %w", err)
		}
		usage = append(usage, &u)
	}

	return usage, rows.Err()
}

// TranslationProgress reports, per target language, how much of the
// dictionary has a translation
func (r *Repository) TranslationProgress(ctx context.Context) ([]*models.TranslationProgress, error) {
	query := `
		SELECT tl.language_name, COUNT(DISTINCT wt.word_id)::int AS translated,
			(SELECT COUNT(*) FROM words_dictionary)::int AS total_words
		FROM target_languages tl
		LEFT JOIN word_translations wt ON tl.language_id = wt.language_id
		GROUP BY tl.language_name
		ORDER BY translated DESC, tl.language_name
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get translation progress: %w", err)
	}
	defer rows.Close()

	progress := []*models.TranslationProgress{}
	for rows.Next() {
		var p models.TranslationProgress
		if err := rows.Scan(&p.Language, &p.Translated, &p.TotalWords); err != nil {
			return nil, fmt.Errorf("failed to scan translation progress: %w", err)
		}
		p.PercentDone = models.PercentOf(p.Translated, p.TotalWords)
		progress = append(progress, &p)
	}

	return progress, rows.Err()
}

// RecentTranslations returns the newest translations first
func (r *Repository) RecentTranslations(ctx context.Context, limit int) ([]*models.Translation, error) {
	query := `
		SELECT w.word, tl.language_name, wt.translation, wt.created_at
		FROM word_translations wt
		JOIN words_dictionary w ON wt.word_id = w.word_id
		JOIN target_languages tl ON wt.language_id = tl.language_id
		ORDER BY wt.created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get translations: %w", err)
	}
	defer rows.Close()

	translations := []*models.Translation{}
	for rows.Next() {
		var t models.Translation
		if err := rows.Scan(&t.Word, &t.Language, &t.Translation, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan translation: %w", err)
		}
		translations = append(translations, &t)
	}

	return translations, rows.Err()
}
