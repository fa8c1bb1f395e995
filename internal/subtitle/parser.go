package subtitle

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/therealutkarshpriyadarshi/filmfluent/pkg/models"
)

// SkipReason says why a block produced no record
type SkipReason string

// SkipReason constants
const (
	SkipNone        SkipReason = ""
	SkipTooFewLines SkipReason = "too_few_lines"
	SkipBadIndex    SkipReason = "bad_index"
	SkipBadTiming   SkipReason = "bad_timing"
	SkipPanic       SkipReason = "panic"
)

// minBlockLines is index + time range + at least one line of text
const minBlockLines = 3

var (
	blockSeparator   = regexp.MustCompile(`\n\s*\n`)
	timeRangePattern = regexp.MustCompile(`^([\d:,]+)\s*-->\s*([\d:,]+)`)
	timestampPattern = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2}),(\d{3})$`)
)

// BlockResult is the outcome of parsing one block: either a record or a skip reason
type BlockResult struct {
	Record models.SubtitleRecord
	Skip   SkipReason
	Detail string
}

// OK reports whether the block produced a record
func (r BlockResult) OK() bool {
	return r.Skip == SkipNone
}

// ParseReport summarises a parse run
type ParseReport struct {
	Source   string
	Encoding string
	Detected bool
	ReadErr  error
	Blocks   int
	Parsed   int
	Skipped  map[SkipReason]int
}

// SkippedTotal returns the number of blocks that produced no record
func (r ParseReport) SkippedTotal() int {
	total := 0
	for _, n := range r.Skipped {
		total += n
	}
	return total
}

// Parser turns subtitle files into records
type Parser struct {
	defaultEncoding string
}

// Option configures a Parser
type Option func(*Parser)

// WithDefaultEncoding sets the encoding used when detection is inconclusive
func WithDefaultEncoding(label string) Option {
	return func(p *Parser) {
		if LookupEncoding(label) != nil {
			p.defaultEncoding = label
		}
	}
}

// NewParser creates a parser
func NewParser(opts ...Option) *Parser {
	p := &Parser{defaultEncoding: DefaultEncoding}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads and parses the file at path with a default parser
func Parse(path string) []models.SubtitleRecord {
	records, _ := NewParser().ParseFile(path)
	return records
}

// ParseFile reads the file at path and parses it. A missing or unreadable file
// yields an empty slice; the reason is recorded in the report and logged.
func (p *Parser) ParseFile(path string) ([]models.SubtitleRecord, ParseReport) {
	data, err := readFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Cannot read subtitle file")
		return []models.SubtitleRecord{}, ParseReport{
			Source:  path,
			ReadErr: err,
			Skipped: map[SkipReason]int{},
		}
	}

	records, report := p.ParseBytes(data)
	report.Source = path
	return records, report
}

// ParseReader reads r to the end and parses the content
func (p *Parser) ParseReader(r io.Reader) ([]models.SubtitleRecord, ParseReport) {
	data, err := io.ReadAll(r)
	if err != nil {
		log.Warn().Err(err).Msg("Cannot read subtitle stream")
		return []models.SubtitleRecord{}, ParseReport{ReadErr: err, Skipped: map[SkipReason]int{}}
	}
	return p.ParseBytes(data)
}

// ParseBytes detects the encoding of data, decodes it and parses every block
func (p *Parser) ParseBytes(data []byte) ([]models.SubtitleRecord, ParseReport) {
	report := ParseReport{Skipped: map[SkipReason]int{}}

	label := DetectEncoding(data)
	report.Detected = label != "" && LookupEncoding(label) != nil
	if !report.Detected {
		label = p.defaultEncoding
	}
	report.Encoding = label

	records, stats := ParseText(Decode(data, label))
	report.Blocks = stats.Blocks
	report.Parsed = stats.Parsed
	report.Skipped = stats.Skipped
	return records, report
}

// ParseText parses already decoded subtitle text
func ParseText(text string) ([]models.SubtitleRecord, ParseReport) {
	report := ParseReport{Skipped: map[SkipReason]int{}}
	records := []models.SubtitleRecord{}

	for _, block := range SplitBlocks(text) {
		report.Blocks++

		res := ParseBlock(block)
		if !res.OK() {
			report.Skipped[res.Skip]++
			if res.Skip == SkipPanic {
				log.Error().Str("detail", res.Detail).Msg("Error parsing subtitle block")
			} else {
				log.Debug().Str("reason", string(res.Skip)).Str("detail", res.Detail).Msg("Skipping subtitle block")
			}
			continue
		}

		report.Parsed++
		records = append(records, res.Record)
	}

	return records, report
}

// SplitBlocks splits text on blank lines. Lines holding only whitespace count
// as blank. A leading byte order mark is dropped and the whole text is
// trimmed first.
func SplitBlocks(text string) []string {
	text = strings.TrimPrefix(text, "\uFEFF")
	text = normalizeNewlines(text)
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return blockSeparator.Split(text, -1)
}

// ParseBlock parses one block into a record. Malformed blocks are reported
// through the result's Skip field, never as an error or panic.
func ParseBlock(block string) (res BlockResult) {
	defer func() {
		if r := recover(); r != nil {
			res = BlockResult{Skip: SkipPanic, Detail: fmt.Sprint(r)}
		}
	}()

	lines := strings.Split(strings.TrimSpace(normalizeNewlines(block)), "\n")
	if len(lines) < minBlockLines {
		return BlockResult{Skip: SkipTooFewLines, Detail: fmt.Sprintf("%d lines", len(lines))}
	}

	index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return BlockResult{Skip: SkipBadIndex, Detail: lines[0]}
	}

	start, end, ok := ParseTimeRange(lines[1])
	if !ok {
		return BlockResult{Skip: SkipBadTiming, Detail: lines[1]}
	}

	text := strings.Join(lines[2:], "\n")
	return BlockResult{
		Record: models.SubtitleRecord{
			Index:       index,
			Start:       start,
			End:         end,
			Text:        text,
			CleanedText: CleanText(text),
		},
	}
}

// ParseTimeRange parses a "HH:MM:SS,mmm --> HH:MM:SS,mmm" line. Anything after
// the second timestamp, such as position hints, is ignored.
func ParseTimeRange(line string) (start, end models.Timestamp, ok bool) {
	m := timeRangePattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return start, end, false
	}

	start, okStart := ParseTimestamp(m[1])
	end, okEnd := ParseTimestamp(m[2])
	if !okStart || !okEnd {
		return models.Timestamp{}, models.Timestamp{}, false
	}
	return start, end, true
}

// ParseTimestamp parses "HH:MM:SS,mmm" with exactly 2-2-2-3 digits.
// Hours above 23 and minutes or seconds above 59 are rejected.
func ParseTimestamp(s string) (models.Timestamp, bool) {
	m := timestampPattern.FindStringSubmatch(s)
	if m == nil {
		return models.Timestamp{}, false
	}

	// the pattern guarantees the groups are digits
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	ms, _ := strconv.Atoi(m[4])

	if h > 23 || mins > 59 || sec > 59 {
		return models.Timestamp{}, false
	}

	return models.Timestamp{Hours: h, Minutes: mins, Seconds: sec, Milliseconds: ms}, true
}

func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// readFile reads the whole file and always closes it
func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subtitle file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read subtitle file: %w", err)
	}
	return data, nil
}
