package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// WordCount is a single entry of a ranked frequency list
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// TopWords is an ordered word ranking. It encodes as a JSON object whose key
// order follows the ranking, so exports keep the descending order.
type TopWords []WordCount

// MarshalJSON implements json.Marshaler
func (tw TopWords) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, wc := range tw {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(wc.Word)
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, strconv.Itoa(wc.Count)...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// UnmarshalJSON implements json.Unmarshaler. Object key order is preserved.
func (tw *TopWords) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}

	var out TopWords
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		word, _ := tok.(string)
		var count int
		if err := dec.Decode(&count); err != nil {
			return err
		}
		out = append(out, WordCount{Word: word, Count: count})
	}
	*tw = out
	return nil
}

// AnalysisResult holds the statistics computed for one text.
//
// TotalWords counts tokens before stopword filtering while UniqueWords and
// WordFrequencies are computed after it, so with filtering enabled the sum of
// the frequencies can be lower than TotalWords.
type AnalysisResult struct {
	TotalWords      int            `json:"total_words"`
	UniqueWords     int            `json:"unique_words"`
	TotalSentences  int            `json:"total_sentences"`
	WordFrequencies map[string]int `json:"word_frequencies"`
	TopWords        TopWords       `json:"top_words"`
	Sentences       []string       `json:"sentences"`
}

// TextStats holds derived averages stored next to an analysis
type TextStats struct {
	AverageWordsPerSentence float64 `json:"average_words_per_sentence"`
	AverageWordLength       float64 `json:"average_word_length"`
}

// SentenceRecord is a sentence with its word count
type SentenceRecord struct {
	Sentence  string `json:"sentence"`
	WordCount int    `json:"word_count"`
}

// Movie is the title a subtitle file belongs to
type Movie struct {
	ID             string    `json:"id" db:"movie_id"`
	Title          string    `json:"title" db:"title"`
	ReleaseYear    *int      `json:"release_year,omitempty" db:"release_year"`
	Language       string    `json:"language" db:"language"`
	Genre          string    `json:"genre,omitempty" db:"genre"`
	RuntimeMinutes *int      `json:"runtime_minutes,omitempty" db:"runtime_minutes"`
	SubtitleCount  int       `json:"subtitle_count" db:"subtitle_count"`
	Metadata       Metadata  `json:"metadata" db:"metadata"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// SubtitleFile is a processed subtitle file
type SubtitleFile struct {
	ID            string    `json:"id" db:"file_id"`
	MovieID       string    `json:"movie_id" db:"movie_id"`
	Filename      string    `json:"filename" db:"filename"`
	FilePath      string    `json:"file_path" db:"file_path"`
	Encoding      string    `json:"encoding" db:"encoding"`
	SubtitleCount int       `json:"subtitle_count" db:"subtitle_count"`
	FileHash      string    `json:"file_hash" db:"file_hash"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// AnalysisRecord is the stored summary of an analysis
type AnalysisRecord struct {
	ID                      string    `json:"id" db:"analysis_id"`
	FileID                  string    `json:"file_id" db:"file_id"`
	TotalWords              int       `json:"total_words" db:"total_words"`
	UniqueWords             int       `json:"unique_words" db:"unique_words"`
	TotalSentences          int       `json:"total_sentences" db:"total_sentences"`
	AverageWordsPerSentence float64   `json:"average_words_per_sentence" db:"average_words_per_sentence"`
	AverageWordLength       float64   `json:"average_word_length" db:"average_word_length"`
	CreatedAt               time.Time `json:"created_at" db:"created_at"`
}

// WordFrequency is a stored per-file word count
type WordFrequency struct {
	Word              string  `json:"word" db:"word"`
	Frequency         int     `json:"frequency" db:"frequency"`
	RelativeFrequency float64 `json:"relative_frequency" db:"relative_frequency"`
}

// StoredIDs reports what a persistence run wrote
type StoredIDs struct {
	MovieID       string `json:"movie_id"`
	FileID        string `json:"file_id"`
	AnalysisID    string `json:"analysis_id"`
	WordCount     int    `json:"word_count"`
	SentenceCount int    `json:"sentence_count"`
}

// RelativeFrequency returns count / totalWords, or 0 when totalWords is 0
func RelativeFrequency(count, totalWords int) float64 {
	if totalWords <= 0 {
		return 0
	}
	return float64(count) / float64(totalWords)
}
