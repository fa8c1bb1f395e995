package models

import (
	"encoding/json"
	"fmt"
)

// Timestamp is a position inside a subtitle file as written in the time-range line
type Timestamp struct {
	Hours        int `json:"hours"`
	Minutes      int `json:"minutes"`
	Seconds      int `json:"seconds"`
	Milliseconds int `json:"milliseconds"`
}

// TotalSeconds returns the timestamp as fractional seconds
func (t Timestamp) TotalSeconds() float64 {
	return float64(t.Hours*3600+t.Minutes*60+t.Seconds) + float64(t.Milliseconds)/1000
}

// MarshalJSON adds total_seconds next to the timestamp fields
func (t Timestamp) MarshalJSON() ([]byte, error) {
	type fields Timestamp
	return json.Marshal(struct {
		fields
		TotalSeconds float64 `json:"total_seconds"`
	}{fields(t), t.TotalSeconds()})
}

// String formats the timestamp the way it appears in an SRT file
func (t Timestamp) String() string {
	return fmt.Sprintf("%02d:%02d:%02d,%03d", t.Hours, t.Minutes, t.Seconds, t.Milliseconds)
}

// Before reports whether t is strictly earlier than other
func (t Timestamp) Before(other Timestamp) bool {
	return t.TotalSeconds() < other.TotalSeconds()
}

// SubtitleRecord is one parsed block of a subtitle file.
// Index is kept exactly as declared in the file; it is neither renumbered nor sorted.
// End is not checked against Start.
type SubtitleRecord struct {
	Index       int       `json:"index"`
	Start       Timestamp `json:"start_time"`
	End         Timestamp `json:"end_time"`
	Text        string    `json:"text"`
	CleanedText string    `json:"cleaned_text"`
}

// Duration returns End minus Start in seconds; it is negative for inverted ranges
func (r SubtitleRecord) Duration() float64 {
	return r.End.TotalSeconds() - r.Start.TotalSeconds()
}

// SubtitleFormat constants
const (
	SubtitleFormatSRT = "srt"
)
