package subtitle

import (
	"regexp"
	"strings"

	"github.com/therealutkarshpriyadarshi/filmfluent/pkg/models"
)

var markupTag = regexp.MustCompile(`<[^>]+>`)

// CleanText strips HTML-like tags and collapses whitespace runs to single spaces
func CleanText(text string) string {
	text = markupTag.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// Texts returns the cleaned text of each record in order
func Texts(records []models.SubtitleRecord) []string {
	texts := make([]string, 0, len(records))
	for _, r := range records {
		texts = append(texts, r.CleanedText)
	}
	return texts
}

// FullText joins the cleaned text of all records with single spaces
func FullText(records []models.SubtitleRecord) string {
	return strings.Join(Texts(records), " ")
}
