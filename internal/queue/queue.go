package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/config"
	"github.com/therealutkarshpriyadarshi/filmfluent/pkg/models"
)

const (
	AnalysisQueueName = "analysis_jobs"
	ExchangeName      = "filmfluent"
	maxPriority       = 10
)

// Handler processes one job. A returned error schedules a retry.
type Handler func(ctx context.Context, job *models.Job) error

// Queue provides message queue operations
type Queue struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	prefetch int
}

// URL builds the AMQP connection URL for cfg
func URL(cfg config.QueueConfig) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Vhost)
}

// New creates a new queue client and declares the analysis, retry and dead
// letter topology
func New(cfg config.QueueConfig) (*Queue, error) {
	conn, err := amqp.Dial(URL(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q := &Queue{conn: conn, channel: channel, prefetch: cfg.Prefetch}
	if q.prefetch <= 0 {
		q.prefetch = 1
	}

	if err := q.declare(); err != nil {
		q.Close()
		return nil, err
	}
	if err := q.SetupDeadLetterQueue(); err != nil {
		q.Close()
		return nil, err
	}

	return q, nil
}

func (q *Queue) declare() error {
	err := q.channel.ExchangeDeclare(
		ExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = q.channel.QueueDeclare(
		AnalysisQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-max-priority": maxPriority},
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = q.channel.QueueBind(
		AnalysisQueueName,
		AnalysisQueueName,
		ExchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	return nil
}

// Close closes the queue connection
func (q *Queue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// NewJob builds a queued job for a subtitle source
func NewJob(source, ref string, includeStopwords, saveJSON bool) *models.Job {
	job := &models.Job{
		ID:               uuid.New().String(),
		Source:           source,
		IncludeStopwords: includeStopwords,
		SaveJSON:         saveJSON,
		Priority:         models.JobPriorityNormal,
		Status:           models.JobStatusQueued,
		CreatedAt:        time.Now().UTC(),
	}
	if source == models.JobSourceStorage {
		job.ObjectKey = ref
	} else {
		job.Path = ref
	}
	return job
}

// PublishJob publishes an analysis job to the queue
func (q *Queue) PublishJob(ctx context.Context, job *models.Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = q.channel.PublishWithContext(ctx,
		ExchangeName,
		AnalysisQueueName,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    job.ID,
			Body:         body,
			Timestamp:    time.Now(),
			Priority:     clampPriority(job.Priority),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}

	return nil
}

// ConsumeJobs starts consuming jobs from the queue. Failed jobs go to the
// retry queue until they exhaust models.MaxJobRetries, then to the dead
// letter queue. Undecodable messages are dropped.
func (q *Queue) ConsumeJobs(ctx context.Context, handler Handler) error {
	err := q.channel.Qos(
		q.prefetch, // prefetch count
		0,          // prefetch size
		false,      // global
	)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := q.channel.Consume(
		AnalysisQueueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				q.deliver(ctx, msg, handler)
			}
		}
	}()

	return nil
}

func (q *Queue) deliver(ctx context.Context, msg amqp.Delivery, handler Handler) {
	var job models.Job
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		log.Warn().Err(err).Str("message_id", msg.MessageId).Msg("Dropping undecodable job")
		msg.Nack(false, false)
		return
	}

	herr := handler(ctx, &job)
	if herr == nil {
		msg.Ack(false)
		return
	}

	job.ErrorMsg = herr.Error()
	if err := q.PublishToRetryQueue(ctx, &job); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to reschedule job")
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}

// GetQueueDepth returns the number of messages in the queue
func (q *Queue) GetQueueDepth() (int, error) {
	info, err := q.channel.QueueInspect(AnalysisQueueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue: %w", err)
	}

	return info.Messages, nil
}

func clampPriority(p int) uint8 {
	if p < 0 {
		return 0
	}
	if p > maxPriority {
		return maxPriority
	}
	return uint8(p)
}
