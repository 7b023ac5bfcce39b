package outbox

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/bolttesting/Bookly-sub001/internal/store"
	"github.com/bolttesting/Bookly-sub001/internal/telemetry"
)

// messageWriter is the part of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher relays stored outbox events to Kafka, one topic per event type.
// Delivery is at least once: a batch is marked published only after every
// message in it was written.
type Publisher struct {
	repo      store.OutboxRepository
	logger    *slog.Logger
	brokers   []string
	pollEvery time.Duration
	batchSize int

	newWriter func(brokers []string) messageWriter
}

type PublisherConfig struct {
	Brokers   string
	PollEvery time.Duration
	BatchSize int
}

func NewPublisher(repo store.OutboxRepository, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Publisher{
		repo:      repo,
		logger:    logger.With(slog.String("component", "outbox")),
		brokers:   SplitBrokers(cfg.Brokers),
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
		newWriter: func(brokers []string) messageWriter {
			return &kafka.Writer{
				Addr:                   kafka.TCP(brokers...),
				Balancer:               &kafka.Hash{},
				AllowAutoTopicCreation: true,
			}
		},
	}
}

// Enabled reports whether any broker is configured.
func (p *Publisher) Enabled() bool {
	return len(p.brokers) > 0
}

// Run polls the outbox until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	if !p.Enabled() {
		p.logger.Warn("outbox publisher disabled (no kafka brokers configured)")
		return
	}

	writer := p.newWriter(p.brokers)
	defer func() {
		if err := writer.Close(); err != nil {
			p.logger.Warn("kafka writer close failed", slog.Any("err", err))
		}
	}()

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PublishBatch(ctx, writer)
			if err != nil {
				p.logger.Error("outbox publish failed", slog.Any("err", err))
				continue
			}
			if n > 0 {
				p.logger.Debug("outbox batch published", slog.Int("count", n))
			}
		}
	}
}

// PublishBatch writes at most one batch of pending events.
func (p *Publisher) PublishBatch(ctx context.Context, writer messageWriter) (int, error) {
	return p.repo.ProcessBatch(ctx, p.batchSize, func(ctx context.Context, records []store.OutboxRecord) error {
		msgs := make([]kafka.Message, 0, len(records))
		for _, r := range records {
			msgs = append(msgs, Message(ctx, r))
		}
		return writer.WriteMessages(ctx, msgs...)
	})
}

// Message builds the Kafka message for r. The trace context captured when
// the event was stored travels in W3C headers.
func Message(ctx context.Context, r store.OutboxRecord) kafka.Message {
	msgCtx := telemetry.ContextWithTraceContext(ctx, r.Traceparent, r.Tracestate)
	msg := kafka.Message{
		Topic: r.EventType,
		Key:   []byte(r.AggregateID),
		Value: r.Payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(r.EventID.String())},
			{Key: "event_type", Value: []byte(r.EventType)},
			{Key: "aggregate_type", Value: []byte(r.AggregateType)},
		},
	}
	msg.Headers = InjectTraceHeaders(msgCtx, msg.Headers)
	return msg
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
