package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromFilename(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantTitle string
		wantYear  int
	}{
		{"Dotted", "The.Matrix.1999.srt", "The Matrix", 1999},
		{"Underscored", "Blade_Runner_1982.srt", "Blade Runner", 1982},
		{"Release tags after year", "Heat.1995.1080p.BluRay.srt", "Heat", 1995},
		{"Parenthesized", "Spirited Away (2001).srt", "Spirited Away", 2001},
		{"Title starting with digits", "2001.A.Space.Odyssey.1968.srt", "2001 A Space Odyssey", 1968},
		{"Directory is ignored", "/data/subs/Alien.1979.srt", "Alien", 1979},
		{"No year", "Casablanca.srt", "Casablanca", 0},
		{"Year without trailing separator", "Movie.2020", "Movie", 0},
		{"No extension", "notes", "notes", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := FromFilename(tt.path)
			assert.Equal(t, tt.wantTitle, info.Title)
			if tt.wantYear == 0 {
				assert.Nil(t, info.ReleaseYear)
				return
			}
			if assert.NotNil(t, info.ReleaseYear) {
				assert.Equal(t, tt.wantYear, *info.ReleaseYear)
			}
		})
	}
}
