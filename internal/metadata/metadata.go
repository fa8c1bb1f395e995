// Package metadata derives movie information from subtitle file names.
package metadata

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	// Movie.Title.2020.srt, Movie_Title_2020.srt
	separatedYear = regexp.MustCompile(`(.+?)[._](\d{4})[._]`)
	// Movie Title (2020).srt
	parenthesizedYear = regexp.MustCompile(`(.+?)\s*\((\d{4})\)`)

	titleSeparators = strings.NewReplacer(".", " ", "_", " ")
)

// MovieInfo is what a file name reveals about its movie
type MovieInfo struct {
	Title       string
	ReleaseYear *int
}

// FromFilename extracts a title and release year from the base name of
// path. When no pattern matches, the title is the file name without its
// extension and the year is unknown.
func FromFilename(path string) MovieInfo {
	name := filepath.Base(path)

	if m := separatedYear.FindStringSubmatch(name); m != nil {
		return MovieInfo{
			Title:       strings.TrimSpace(titleSeparators.Replace(m[1])),
			ReleaseYear: year(m[2]),
		}
	}

	if m := parenthesizedYear.FindStringSubmatch(name); m != nil {
		return MovieInfo{
			Title:       strings.TrimSpace(m[1]),
			ReleaseYear: year(m[2]),
		}
	}

	return MovieInfo{Title: strings.TrimSuffix(name, filepath.Ext(name))}
}

func year(s string) *int {
	y, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &y
}
