package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/filmfluent/pkg/models"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:02,500
Hello <b>world</b>

abc
00:00:03,000 --> 00:00:04,000
This block has a bad index

2
00:00:05,000 --> 00:00:07,250
<i>Two   lines</i>
of text

3
00:00:08,000 -> 00:00:09,000
Broken arrow

4
00:00:10,000 --> 00:00:11,000
Last one.
`

func TestParseBlock(t *testing.T) {
	res := ParseBlock("1\n00:00:01,000 --> 00:00:02,500\nHello <b>world</b>")
	require.True(t, res.OK(), "skip reason: %s", res.Skip)

	assert.Equal(t, 1, res.Record.Index)
	assert.Equal(t, models.Timestamp{Hours: 0, Minutes: 0, Seconds: 1, Milliseconds: 0}, res.Record.Start)
	assert.Equal(t, models.Timestamp{Hours: 0, Minutes: 0, Seconds: 2, Milliseconds: 500}, res.Record.End)
	assert.Equal(t, "Hello <b>world</b>", res.Record.Text)
	assert.Equal(t, "Hello world", res.Record.CleanedText)
	assert.InDelta(t, 1.5, res.Record.Duration(), 1e-9)
}

func TestParseBlockSkips(t *testing.T) {
	tests := []struct {
		name  string
		block string
		want  SkipReason
	}{
		{"Too few lines", "1\n00:00:01,000 --> 00:00:02,000", SkipTooFewLines},
		{"Empty", "", SkipTooFewLines},
		{"Non numeric index", "abc\n00:00:01,000 --> 00:00:02,000\ntext", SkipBadIndex},
		{"Missing arrow", "1\n00:00:01,000 00:00:02,000\ntext", SkipBadTiming},
		{"Dot milliseconds", "1\n00:00:01.000 --> 00:00:02.000\ntext", SkipBadTiming},
		{"Short hour group", "1\n0:00:01,000 --> 00:00:02,000\ntext", SkipBadTiming},
		{"Long millisecond group", "1\n00:00:01,0000 --> 00:00:02,000\ntext", SkipBadTiming},
		{"Minutes out of range", "1\n00:75:01,000 --> 00:76:02,000\ntext", SkipBadTiming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseBlock(tt.block)
			assert.False(t, res.OK())
			assert.Equal(t, tt.want, res.Skip)
		})
	}
}

func TestParseBlockKeepsInvertedRange(t *testing.T) {
	res := ParseBlock("7\n00:00:09,000 --> 00:00:03,000\nbackwards")
	require.True(t, res.OK())
	assert.True(t, res.Record.End.Before(res.Record.Start))
	assert.Less(t, res.Record.Duration(), 0.0)
}

func TestParseBlockIgnoresPositionHints(t *testing.T) {
	res := ParseBlock("3\n00:00:12,000 --> 00:00:15,080  X1:100 X2:200\ntext")
	require.True(t, res.OK())
	assert.Equal(t, 80, res.Record.End.Milliseconds)
}

func TestParseText(t *testing.T) {
	records, report := ParseText(sampleSRT)

	require.Len(t, records, 3)
	assert.Equal(t, []int{1, 2, 4}, []int{records[0].Index, records[1].Index, records[2].Index})
	assert.Equal(t, "Two lines of text", records[1].CleanedText)
	assert.Equal(t, "<i>Two   lines</i>\nof text", records[1].Text)

	assert.Equal(t, 5, report.Blocks)
	assert.Equal(t, 3, report.Parsed)
	assert.Equal(t, 1, report.Skipped[SkipBadIndex])
	assert.Equal(t, 1, report.Skipped[SkipBadTiming])
	assert.Equal(t, 2, report.SkippedTotal())
}

func TestParseTextLeadingByteOrderMark(t *testing.T) {
	records, report := ParseText("\uFEFF1\n00:00:01,000 --> 00:00:02,000\nHello there.\n")

	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Index)
	assert.Equal(t, "Hello there.", records[0].CleanedText)
	assert.Zero(t, report.SkippedTotal())
}

func TestParseTextPreservesDeclaredIndex(t *testing.T) {
	text := "10\n00:00:05,000 --> 00:00:06,000\nb\n\n3\n00:00:01,000 --> 00:00:02,000\na\n"
	records, _ := ParseText(text)

	require.Len(t, records, 2)
	assert.Equal(t, 10, records[0].Index)
	assert.Equal(t, 3, records[1].Index)
}

func TestParseTextWellFormedCount(t *testing.T) {
	var b strings.Builder
	good := 0
	for i := 1; i <= 20; i++ {
		if i%3 == 0 {
			b.WriteString("x\n00:00:01,000 --> 00:00:02,000\nmalformed\n\n")
			continue
		}
		good++
		fmt.Fprintf(&b, "%d\n00:00:01,000 --> 00:00:02,000\nline <u>%d</u>  here\n\n", i, i)
	}

	records, report := ParseText(b.String())
	require.Len(t, records, good)
	assert.Equal(t, 20-good, report.Skipped[SkipBadIndex])
	for i := 1; i < len(records); i++ {
		assert.Less(t, records[i-1].Index, records[i].Index)
	}
	for _, r := range records {
		assert.NotContains(t, r.CleanedText, "<")
		assert.NotContains(t, r.CleanedText, "  ")
	}
}

func TestSplitBlocks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"Empty", "", 0},
		{"Whitespace only", "  \n\n \t\n", 0},
		{"Single", "1\n00:00:01,000 --> 00:00:02,000\na", 1},
		{"Whitespace separator line", "a\n \t \nb", 2},
		{"Several blank lines", "a\n\n\n\nb\n\nc", 3},
		{"CRLF", "a\r\n\r\nb\r\n", 2},
		{"Byte order mark only", "\uFEFF", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, SplitBlocks(tt.text), tt.want)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	ts, ok := ParseTimestamp("01:02:03,456")
	require.True(t, ok)
	assert.Equal(t, models.Timestamp{Hours: 1, Minutes: 2, Seconds: 3, Milliseconds: 456}, ts)
	assert.InDelta(t, 3723.456, ts.TotalSeconds(), 1e-9)
	assert.Equal(t, "01:02:03,456", ts.String())

	for _, bad := range []string{"", "1:02:03,456", "01:02:03", "01:02:03,45", "aa:bb:cc,ddd", "01:02:60,000", "24:00:00,000"} {
		_, ok := ParseTimestamp(bad)
		assert.False(t, ok, bad)
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello <b>world</b>", "Hello world"},
		{"  padded  ", "padded"},
		{"multi\nline\ttext", "multi line text"},
		{"<font color=\"#ffff00\">Yellow</font>   text", "Yellow text"},
		{"no tags", "no tags"},
		{"<i></i>", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanText(tt.in), tt.in)
	}
}

func TestFullText(t *testing.T) {
	records := []models.SubtitleRecord{
		{CleanedText: "The cat sat."},
		{CleanedText: "The dog ran!"},
	}
	assert.Equal(t, "The cat sat. The dog ran!", FullText(records))
	assert.Equal(t, "", FullText(nil))
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movie.srt")
	require.NoError(t, os.WriteFile(path, []byte(sampleSRT), 0o644))

	records, report := NewParser().ParseFile(path)
	assert.Len(t, records, 3)
	assert.Equal(t, path, report.Source)
	assert.Equal(t, "utf-8", report.Encoding)
	assert.True(t, report.Detected)
	assert.NoError(t, report.ReadErr)
}

func TestParseFileMissing(t *testing.T) {
	records, report := NewParser().ParseFile(filepath.Join(t.TempDir(), "missing.srt"))
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.Error(t, report.ReadErr)

	assert.Empty(t, Parse("/definitely/not/here.srt"))
}

func TestParseBytesEmptyAndGarbage(t *testing.T) {
	p := NewParser()

	records, report := p.ParseBytes(nil)
	assert.Empty(t, records)
	assert.Equal(t, 0, report.Blocks)

	records, _ = p.ParseBytes([]byte("just some prose\nwithout any structure\n"))
	assert.Empty(t, records)
}

func TestParseBytesLatin1(t *testing.T) {
	// "Café" in windows-1252 is not valid UTF-8.
	data := []byte("1\r\n00:00:01,000 --> 00:00:02,000\r\nCaf\xe9 cr\xe8me br\xfbl\xe9e\r\n")
	records, report := NewParser().ParseBytes(data)

	require.Len(t, records, 1)
	assert.NotEqual(t, "utf-8", report.Encoding)
	assert.True(t, strings.HasPrefix(records[0].CleanedText, "Caf"))
}

func TestParseReader(t *testing.T) {
	records, _ := NewParser().ParseReader(strings.NewReader(sampleSRT))
	assert.Len(t, records, 3)
}
