package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetContentType(t *testing.T) {
	tests := []struct {
		filePath string
		wantType string
	}{
		{"movie.srt", "application/x-subrip"},
		{"MOVIE.SRT", "application/x-subrip"},
		{"movie.srt.analysis.json", "application/json"},
		{"notes.txt", "text/plain; charset=utf-8"},
		{"unknown.xyz", "application/octet-stream"},
		{"noext", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.filePath, func(t *testing.T) {
			assert.Equal(t, tt.wantType, getContentType(tt.filePath))
		})
	}
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name    string
		bucket  string
		ref     string
		want    string
		wantErr bool
	}{
		{"Plain key", "subtitles", "movies/heat.srt", "movies/heat.srt", false},
		{"Leading slash", "subtitles", "/heat.srt", "heat.srt", false},
		{"S3 reference", "subtitles", "s3://subtitles/movies/heat.srt", "movies/heat.srt", false},
		{"Any bucket allowed", "", "s3://other/heat.srt", "heat.srt", false},
		{"Wrong bucket", "subtitles", "s3://other/heat.srt", "", true},
		{"Missing key", "subtitles", "s3://subtitles", "", true},
		{"Empty key", "subtitles", "s3://subtitles/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ObjectKey(tt.bucket, tt.ref)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExportKey(t *testing.T) {
	assert.Equal(t, "analyses/heat.srt.analysis.json", ExportKey("analyses/", "/data/subs/heat.srt"))
	assert.Equal(t, "heat.srt.analysis.json", ExportKey("", "heat.srt"))
}

func TestIsSubtitleKey(t *testing.T) {
	assert.True(t, IsSubtitleKey("a/b/movie.srt"))
	assert.True(t, IsSubtitleKey("MOVIE.SRT"))
	assert.False(t, IsSubtitleKey("movie.srt.analysis.json"))
	assert.False(t, IsSubtitleKey("movie.vtt"))
}
