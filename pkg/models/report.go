package models

import "time"

// Overview holds corpus-wide totals
type Overview struct {
	Movies         int `json:"movies"`
	SubtitleFiles  int `json:"subtitle_files"`
	TotalWords     int `json:"total_words"`
	UniqueWords    int `json:"unique_words"`
	TotalSentences int `json:"total_sentences"`
}

// MovieSummary is one row of the movie listing
type MovieSummary struct {
	ID                      string  `json:"id"`
	Title                   string  `json:"title"`
	ReleaseYear             *int    `json:"release_year,omitempty"`
	SubtitleCount           int     `json:"subtitle_count"`
	TotalWords              int     `json:"total_words"`
	UniqueWords             int     `json:"unique_words"`
	TotalSentences          int     `json:"total_sentences"`
	AverageWordsPerSentence float64 `json:"average_words_per_sentence"`
	AverageWordLength       float64 `json:"average_word_length"`
}

// MovieDetail is a movie with its files and their analyses
type MovieDetail struct {
	Movie    Movie            `json:"movie"`
	Files    []SubtitleFile   `json:"files"`
	Analyses []AnalysisRecord `json:"analyses"`
}

// CorpusWord is a word ranked across every processed file
type CorpusWord struct {
	Word       string `json:"word"`
	Frequency  int    `json:"frequency"`
	MovieCount int    `json:"movie_count"`
}

// WordUsage is how often one word appears in one movie
type WordUsage struct {
	MovieID           string  `json:"movie_id"`
	Title             string  `json:"title"`
	Frequency         int     `json:"frequency"`
	RelativeFrequency float64 `json:"relative_frequency"`
}

// TranslationProgress reports coverage of the dictionary for one language
type TranslationProgress struct {
	Language    string  `json:"language"`
	Translated  int     `json:"translated"`
	TotalWords  int     `json:"total_words"`
	PercentDone float64 `json:"percent_done"`
}

// Translation is a stored word translation
type Translation struct {
	Word        string    `json:"word"`
	Language    string    `json:"language"`
	Translation string    `json:"translation"`
	CreatedAt   time.Time `json:"created_at"`
}

// StoredSentence is a sentence row read back from storage
type StoredSentence struct {
	Position  int    `json:"position"`
	Sentence  string `json:"sentence"`
	WordCount int    `json:"word_count"`
}

// PercentOf returns part as a percentage of total, or 0 when total is 0
func PercentOf(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) * 100 / float64(total)
}
