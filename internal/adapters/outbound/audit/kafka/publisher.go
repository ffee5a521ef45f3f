package kafka

import (
	"context"
	"strings"
	"time"

	"housebalance/internal/application/dto"
	portsout "housebalance/internal/application/ports/out"
	apperrors "housebalance/internal/shared_kernel/errors"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	defaultTopic        = "housebalance.audit"
	defaultWriteTimeout = 10 * time.Second
	defaultBatchTimeout = 50 * time.Millisecond
)

type Config struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, messages ...kafkago.Message) error
	Close() error
}

// Publisher writes audit outbox events to one Kafka topic. Events for the
// same user address share a partition so consumers see them in order.
type Publisher struct {
	writer       messageWriter
	topic        string
	writeTimeout time.Duration
	logger       *zap.Logger
}

var _ portsout.AuditEventPublisher = (*Publisher)(nil)

func NewPublisher(cfg Config, logger *zap.Logger) (*Publisher, *apperrors.AppError) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, broker := range cfg.Brokers {
		if trimmed := strings.TrimSpace(broker); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	if len(brokers) == 0 {
		return nil, apperrors.NewInternal(
			"audit_kafka_brokers_missing",
			"at least one kafka broker is required",
			nil,
		)
	}

	topic := strings.TrimSpace(cfg.Topic)
	if topic == "" {
		topic = defaultTopic
	}
	writer := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		BatchTimeout:           defaultBatchTimeout,
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(writer, topic, cfg.WriteTimeout, logger), nil
}

func newPublisher(writer messageWriter, topic string, writeTimeout time.Duration, logger *zap.Logger) *Publisher {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		writer:       writer,
		topic:        topic,
		writeTimeout: writeTimeout,
		logger:       logger.With(zap.String("component", "audit_kafka_publisher"), zap.String("topic", topic)),
	}
}

func (p *Publisher) PublishAuditEvent(ctx context.Context, input dto.PublishAuditEventInput) *apperrors.AppError {
	if p == nil || p.writer == nil {
		return apperrors.NewInternal(
			"audit_publisher_not_configured",
			"audit publisher is not configured",
			nil,
		)
	}
	if strings.TrimSpace(input.EventID) == "" || len(input.Payload) == 0 {
		return apperrors.NewValidation(
			"audit_event_invalid",
			"audit event id and payload are required",
			map[string]any{"event_id": input.EventID},
		)
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	message := kafkago.Message{
		Key:   []byte(input.AggregateKey),
		Value: input.Payload,
		Headers: []kafkago.Header{
			{Key: "event_id", Value: []byte(input.EventID)},
			{Key: "event_type", Value: []byte(input.EventType)},
		},
	}
	if err := p.writer.WriteMessages(writeCtx, message); err != nil {
		p.logger.Warn("audit event publish failed",
			zap.String("event_id", input.EventID),
			zap.String("event_type", input.EventType),
			zap.Error(err),
		)
		return apperrors.NewUnavailable(
			"audit_publish_failed",
			"failed to publish audit event",
			map[string]any{"event_id": input.EventID, "error": err.Error()},
		)
	}

	p.logger.Debug("audit event published",
		zap.String("event_id", input.EventID),
		zap.String("event_type", input.EventType),
	)
	return nil
}

func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
