package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/config"
	"github.com/therealutkarshpriyadarshi/filmfluent/pkg/models"
)

func TestURL(t *testing.T) {
	url := URL(config.QueueConfig{Host: "mq", Port: 5672, User: "guest", Password: "secret", Vhost: "/"})
	assert.Equal(t, "amqp://guest:secret@mq:5672/", url)
}

func TestNewJob(t *testing.T) {
	stored := NewJob(models.JobSourceStorage, "movies/heat.srt", true, false)
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, "movies/heat.srt", stored.ObjectKey)
	assert.Empty(t, stored.Path)
	assert.Equal(t, models.JobStatusQueued, stored.Status)
	assert.True(t, stored.IncludeStopwords)
	assert.Equal(t, models.JobPriorityNormal, stored.Priority)

	local := NewJob(models.JobSourceFile, "/data/heat.srt", false, true)
	assert.Equal(t, "/data/heat.srt", local.Path)
	assert.Empty(t, local.ObjectKey)
	assert.True(t, local.SaveJSON)
	assert.NotEqual(t, stored.ID, local.ID)
}

func TestClampPriority(t *testing.T) {
	tests := []struct {
		in   int
		want uint8
	}{
		{-1, 0},
		{0, 0},
		{models.JobPriorityNormal, 5},
		{models.JobPriorityHigh, 10},
		{42, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampPriority(tt.in), "priority %d", tt.in)
	}
}

func TestCalculateBackoffDelay(t *testing.T) {
	tests := []struct {
		retry int
		want  time.Duration
	}{
		{-3, 30 * time.Second},
		{0, 30 * time.Second},
		{1, time.Minute},
		{2, 2 * time.Minute},
		{4, 8 * time.Minute},
		{5, 10 * time.Minute},
		{50, 10 * time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, calculateBackoffDelay(tt.retry), "retry %d", tt.retry)
	}
}

func TestExhausted(t *testing.T) {
	assert.False(t, exhausted(&models.Job{RetryCount: 0}))
	assert.False(t, exhausted(&models.Job{RetryCount: models.MaxJobRetries - 1}))
	assert.True(t, exhausted(&models.Job{RetryCount: models.MaxJobRetries}))
}
