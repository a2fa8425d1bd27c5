package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wonny/aegis/v13/perf/internal/contracts"
	"github.com/wonny/aegis/v13/perf/pkg/config"
	"github.com/wonny/aegis/v13/perf/pkg/logger"
)

// messageWriter is the part of *kafka.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes report events to a Kafka topic keyed by portfolio ID,
// so all reports of one portfolio land on the same partition in order.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *logger.Logger
	now    func() time.Time
}

// NewKafkaPublisher creates a publisher for cfg.ReportTopic
func NewKafkaPublisher(cfg config.KafkaConfig, log *logger.Logger) (*KafkaPublisher, error) {
	if !cfg.Enabled() {
		return nil, errors.New("kafka: no brokers configured")
	}
	if cfg.ReportTopic == "" {
		return nil, errors.New("kafka: report topic is required")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.ReportTopic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
	}
	return newKafkaPublisher(w, cfg.ReportTopic, log), nil
}

func newKafkaPublisher(w messageWriter, topic string, log *logger.Logger) *KafkaPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &KafkaPublisher{
		writer: w,
		topic:  topic,
		logger: log.Component("publish.kafka"),
		now:    time.Now,
	}
}

// Publish implements contracts.ReportPublisher
func (k *KafkaPublisher) Publish(ctx context.Context, report *contracts.PerformanceReport) error {
	if report == nil {
		return errors.New("kafka: nil report")
	}

	now := k.now()
	value, err := json.Marshal(newEvent(report, now))
	if err != nil {
		return fmt.Errorf("kafka: marshal report %s: %w", report.ID, err)
	}

	msg := kafka.Message{
		Key:   []byte(report.PortfolioID),
		Value: value,
		Time:  now,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(EventReportGenerated)},
			{Key: "report-id", Value: []byte(report.ID)},
		},
	}

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write to %s: %w", k.topic, err)
	}

	k.logger.WithFields(map[string]interface{}{
		"topic":        k.topic,
		"portfolio_id": report.PortfolioID,
		"report_id":    report.ID,
		"bytes":        len(value),
	}).Debug("Report published")
	return nil
}

// Close flushes pending messages and closes the writer
func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}
