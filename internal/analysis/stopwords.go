package analysis

// defaultStopwords lists common English function words plus the fragments
// left over when contractions lose their apostrophe ("don't" -> "don", "t").
var defaultStopwords = []string{
	"a", "an", "the", "and", "or", "but", "if", "because", "as", "what",
	"which", "this", "that", "these", "those", "then", "just", "so", "than",
	"such", "both", "through", "about", "for", "is", "of", "while", "during",
	"to", "from", "in", "out", "on", "off", "over", "under", "again", "once",
	"here", "there", "when", "where", "why", "how", "all", "any",
	"each", "few", "more", "most", "other", "some", "no", "nor",
	"not", "only", "own", "same", "too", "very", "s", "t", "can", "will",
	"don", "should", "now", "i", "me", "my", "myself", "we", "our", "ours",
	"ourselves", "you", "your", "yours", "yourself", "yourselves", "he", "him",
	"his", "himself", "she", "her", "hers", "herself", "it", "its", "itself",
	"they", "them", "their", "theirs", "themselves", "am", "are", "was", "were",
	"be", "been", "being", "have", "has", "had", "having", "do", "does", "did",
	"doing", "would", "could", "ought", "im", "youre", "hes", "shes",
	"theyre", "ive", "youve", "weve", "theyve", "id", "youd",
	"hed", "shed", "wed", "theyd", "isnt", "arent", "wasnt", "werent", "hasnt",
	"havent", "hadnt", "doesnt", "dont", "didnt",
}

// StopwordSet is a set of lowercase words excluded from frequency counts
type StopwordSet map[string]struct{}

// NewStopwordSet builds a set from words as given
func NewStopwordSet(words ...string) StopwordSet {
	set := make(StopwordSet, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// DefaultStopwords returns a fresh copy of the built-in English set
func DefaultStopwords() StopwordSet {
	return NewStopwordSet(defaultStopwords...)
}

// Contains reports whether word is in the set
func (s StopwordSet) Contains(word string) bool {
	_, ok := s[word]
	return ok
}
