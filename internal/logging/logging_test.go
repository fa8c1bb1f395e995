package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "JSON format to stdout",
			config: Config{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
			wantErr: false,
		},
		{
			name: "Console format to stderr",
			config: Config{
				Level:  "debug",
				Format: "console",
				Output: "stderr",
			},
			wantErr: false,
		},
		{
			name: "Invalid log level defaults to info",
			config: Config{
				Level:  "invalid",
				Format: "json",
				Output: "stdout",
			},
			wantErr: false,
		},
		{
			name: "Unwritable file path",
			config: Config{
				Level:  "info",
				Format: "json",
				Output: "/nonexistent-dir/sub/app.log",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewLogger() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("Expected non-nil logger")
			}
		})
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(Config{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Debug("hidden too")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected info and debug to be filtered, got %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("Expected warn message in output, got %s", out)
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(Config{Level: "info", Format: "json"}, &buf)

	logger.WithFile("movie.srt").
		WithJobID("job-456").
		WithFields(map[string]interface{}{"key1": "value1", "key2": 123}).
		Info("processing")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to decode log line: %v", err)
	}

	if entry["file"] != "movie.srt" {
		t.Errorf("Expected file=movie.srt, got %v", entry["file"])
	}
	if entry["job_id"] != "job-456" {
		t.Errorf("Expected job_id=job-456, got %v", entry["job_id"])
	}
	if entry["key2"] != float64(123) {
		t.Errorf("Expected key2=123, got %v", entry["key2"])
	}
	if entry["message"] != "processing" {
		t.Errorf("Expected message=processing, got %v", entry["message"])
	}
}

func TestLogParseReport(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(Config{Level: "info", Format: "json"}, &buf)

	logger.LogParseReport("empty.srt", "utf-8", true, 3, 0, 3)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to decode log line: %v", err)
	}
	if entry["level"] != "warn" {
		t.Errorf("Expected warn level when nothing parsed, got %v", entry["level"])
	}
	if entry["skipped"] != float64(3) {
		t.Errorf("Expected skipped=3, got %v", entry["skipped"])
	}
}

func TestLogOperations(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(Config{Level: "info", Format: "json"}, &buf)

	logger.LogHTTPRequest("GET", "/api/v1/movies", "192.168.1.1", 200, 100*time.Millisecond)
	logger.LogJobEvent("job-123", "started", "processing", map[string]interface{}{"source": "storage"})
	logger.LogAnalysis("movie.srt", 1200, 450, 130, 15*time.Millisecond)
	logger.LogStorageOperation("download", "movies/movie.srt", 2048, time.Second, nil)
	logger.LogDatabaseOperation("store_analysis", 50*time.Millisecond, errors.New("connection refused"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("Expected 5 log lines, got %d", len(lines))
	}

	var last map[string]interface{}
	if err := json.Unmarshal([]byte(lines[4]), &last); err != nil {
		t.Fatalf("Failed to decode log line: %v", err)
	}
	if last["level"] != "error" {
		t.Errorf("Expected error level for failed operation, got %v", last["level"])
	}
}

func TestLoggerRequestAndWorkerIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(Config{Level: "info", Format: "json"}, &buf)

	logger.WithWorkerID("worker-1").WithRequestID("req-9").Info("tagged")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to decode log line: %v", err)
	}
	if entry["worker_id"] != "worker-1" {
		t.Errorf("Expected worker_id=worker-1, got %v", entry["worker_id"])
	}
	if entry["request_id"] != "req-9" {
		t.Errorf("Expected request_id=req-9, got %v", entry["request_id"])
	}
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Info("discarded")
	logger.WithError(errors.New("x")).Error("discarded")
}
