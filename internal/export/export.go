// Package export writes analysis results as JSON documents.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/therealutkarshpriyadarshi/filmfluent/pkg/models"
)

// Suffix is appended to a subtitle path to name its export
const Suffix = ".analysis.json"

// Path returns the export path for a subtitle file
func Path(source string) string {
	return source + Suffix
}

// Marshal encodes result as indented JSON. Non-ASCII text and HTML
// characters are written as-is.
func Marshal(result *models.AnalysisResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, result); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes result to w
func Write(w io.Writer, result *models.AnalysisResult) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}
	return nil
}

// WriteFile writes the export next to source and returns its path
func WriteFile(source string, result *models.AnalysisResult) (string, error) {
	data, err := Marshal(result)
	if err != nil {
		return "", err
	}

	path := Path(source)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export %s: %w", path, err)
	}
	return path, nil
}
