package subtitle

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

const (
	// DetectSampleSize is how many leading bytes DetectEncoding looks at
	DetectSampleSize = 10000

	// DefaultEncoding is used when detection is inconclusive or the label is unknown
	DefaultEncoding = "windows-1252"

	// minConfidence is the lowest detector confidence accepted as a result
	minConfidence = 10
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// labels reported by the detector that htmlindex spells differently
var encodingAliases = map[string]string{
	"gb-18030": "gb18030",
}

// DetectEncoding guesses the text encoding of data from its first
// DetectSampleSize bytes. It returns "" when the sample is inconclusive;
// callers decide on a fallback.
func DetectEncoding(data []byte) string {
	sample := data
	if len(sample) > DetectSampleSize {
		sample = sample[:DetectSampleSize]
	}
	if len(sample) == 0 {
		return ""
	}

	switch {
	case bytes.HasPrefix(sample, bomUTF8):
		return "utf-8"
	case bytes.HasPrefix(sample, []byte{0xFF, 0xFE, 0x00, 0x00}):
		return "utf-32le"
	case bytes.HasPrefix(sample, bomUTF16LE):
		return "utf-16le"
	case bytes.HasPrefix(sample, bomUTF16BE):
		return "utf-16be"
	}

	if validUTF8Prefix(sample, len(data) > len(sample)) {
		return "utf-8"
	}

	result, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil || result == nil || result.Confidence < minConfidence {
		return ""
	}
	return strings.ToLower(result.Charset)
}

// validUTF8Prefix reports whether sample is valid UTF-8, allowing one
// multi-byte sequence to be cut off at the end when the sample is truncated.
func validUTF8Prefix(sample []byte, truncated bool) bool {
	if utf8.Valid(sample) {
		return true
	}
	if !truncated {
		return false
	}
	for i := 1; i < utf8.UTFMax && i <= len(sample); i++ {
		if utf8.RuneStart(sample[len(sample)-i]) {
			return utf8.Valid(sample[:len(sample)-i])
		}
	}
	return false
}

// LookupEncoding resolves an encoding label. It returns nil for empty or unknown labels.
func LookupEncoding(label string) encoding.Encoding {
	name := strings.ToLower(strings.TrimSpace(label))
	if name == "" {
		return nil
	}
	if alias, ok := encodingAliases[name]; ok {
		name = alias
	}

	switch name {
	case "utf-8", "utf8", "ascii", "us-ascii":
		return unicode.UTF8
	case "utf-32le":
		return utf32.UTF32(utf32.LittleEndian, utf32.UseBOM)
	case "utf-32be":
		return utf32.UTF32(utf32.BigEndian, utf32.UseBOM)
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil
	}
	return enc
}

// Decode converts data to a UTF-8 string using the encoding named by label,
// falling back to DefaultEncoding when the label is empty or unknown.
//
// Decoding never fails: every byte that is not part of a valid sequence in
// the source encoding becomes one U+FFFD. A leading byte order mark is dropped.
func Decode(data []byte, label string) string {
	enc := LookupEncoding(label)
	if enc == nil {
		enc = LookupEncoding(DefaultEncoding)
	}

	var decoder transform.Transformer = enc.NewDecoder()
	if !isUTF32(label) {
		// UTF-32 handles its own BOM; FF FE 00 00 would otherwise read as UTF-16LE.
		decoder = unicode.BOMOverride(decoder)
	}

	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return strings.ToValidUTF8(string(bytes.TrimPrefix(data, bomUTF8)), "\uFFFD")
	}
	return string(out)
}

func isUTF32(label string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(label)), "utf-32")
}
