package analysis

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/therealutkarshpriyadarshi/filmfluent/pkg/models"
)

// DefaultTopN is the size of the ranked word list in an analysis
const DefaultTopN = 50

// Frequencies maps words to counts and remembers the order in which words
// were first seen, which TopN uses to break ties.
type Frequencies struct {
	Counts map[string]int
	Order  []string
}

// Total returns the sum of all counts
func (f Frequencies) Total() int {
	total := 0
	for _, c := range f.Counts {
		total += c
	}
	return total
}

// Analyzer computes word and sentence statistics. It holds no state besides
// its configuration, so one instance can serve concurrent callers.
type Analyzer struct {
	stopwords StopwordSet
	topN      int
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithStopwords replaces the built-in stopword set. Words are lowercased.
func WithStopwords(words ...string) Option {
	return func(a *Analyzer) {
		set := make(StopwordSet, len(words))
		for _, w := range words {
			set[strings.ToLower(w)] = struct{}{}
		}
		a.stopwords = set
	}
}

// WithTopN sets the size of the ranked word list
func WithTopN(n int) Option {
	return func(a *Analyzer) {
		if n >= 0 {
			a.topN = n
		}
	}
}

// NewAnalyzer creates an analyzer with the built-in stopwords and DefaultTopN
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		stopwords: DefaultStopwords(),
		topN:      DefaultTopN,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// IsStopword reports whether word is filtered by this analyzer
func (a *Analyzer) IsStopword(word string) bool {
	return a.stopwords.Contains(word)
}

// Stopwords returns a copy of the analyzer's stopword set
func (a *Analyzer) Stopwords() StopwordSet {
	out := make(StopwordSet, len(a.stopwords))
	for w := range a.stopwords {
		out[w] = struct{}{}
	}
	return out
}

// RemoveStopwords returns words without exact stopword matches
func (a *Analyzer) RemoveStopwords(words []string) []string {
	if len(a.stopwords) == 0 {
		return words
	}

	kept := make([]string, 0, len(words))
	for _, w := range words {
		if !a.stopwords.Contains(w) {
			kept = append(kept, w)
		}
	}
	return kept
}

// CountFrequencies counts tokens case-insensitively. With filterStopwords
// the stopwords are left out of the result entirely.
func (a *Analyzer) CountFrequencies(tokens []string, filterStopwords bool) Frequencies {
	if filterStopwords {
		tokens = a.RemoveStopwords(tokens)
	}

	freq := Frequencies{Counts: make(map[string]int)}
	for _, tok := range tokens {
		tok = strings.ToLower(tok)
		if _, seen := freq.Counts[tok]; !seen {
			freq.Order = append(freq.Order, tok)
		}
		freq.Counts[tok]++
	}
	return freq
}

// TopN returns the n most frequent words by descending count. Words with
// equal counts keep the order in which they were first seen.
func TopN(freq Frequencies, n int) models.TopWords {
	if n <= 0 {
		return models.TopWords{}
	}

	ranked := make(models.TopWords, 0, len(freq.Order))
	for _, w := range freq.Order {
		ranked = append(ranked, models.WordCount{Word: w, Count: freq.Counts[w]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Analyze tokenizes text and computes its statistics. Stopwords are filtered
// from the frequencies unless includeStopwords is set; TotalWords always
// counts every token.
func (a *Analyzer) Analyze(text string, includeStopwords bool) models.AnalysisResult {
	words := TokenizeWords(text)
	sentences := TokenizeSentences(text)
	freq := a.CountFrequencies(words, !includeStopwords)

	counts := make(map[string]int, len(freq.Counts))
	for w, c := range freq.Counts {
		counts[w] = c
	}

	return models.AnalysisResult{
		TotalWords:      len(words),
		UniqueWords:     len(freq.Counts),
		TotalSentences:  len(sentences),
		WordFrequencies: counts,
		TopWords:        TopN(freq, a.topN),
		Sentences:       sentences,
	}
}

// Stats derives the averages stored with an analysis
func Stats(result models.AnalysisResult) models.TextStats {
	var stats models.TextStats

	if result.TotalSentences > 0 {
		stats.AverageWordsPerSentence = float64(result.TotalWords) / float64(result.TotalSentences)
	}

	if result.TotalWords > 0 {
		chars := 0
		for w, c := range result.WordFrequencies {
			chars += utf8.RuneCountInString(w) * c
		}
		stats.AverageWordLength = float64(chars) / float64(result.TotalWords)
	}

	return stats
}

// SentenceRecords pairs each sentence with its whitespace-separated word count
func SentenceRecords(sentences []string) []models.SentenceRecord {
	records := make([]models.SentenceRecord, 0, len(sentences))
	for _, s := range sentences {
		records = append(records, models.SentenceRecord{
			Sentence:  s,
			WordCount: len(strings.Fields(s)),
		})
	}
	return records
}
