package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/keepsake-app/keepsake/config"
)

// KafkaEmitter publishes notification events to a Kafka topic using a
// synchronous producer.
type KafkaEmitter struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewKafkaEmitter creates a Kafka-backed Emitter. It establishes a
// connection to the brokers specified in the configuration.
func NewKafkaEmitter(cfg *config.KafkaConfig, logger *zap.Logger) (*KafkaEmitter, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = cfg.MaxRetries
	saramaConfig.Producer.Retry.Backoff = time.Duration(cfg.RetryBackoffMs) * time.Millisecond
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1

	// Bounded timeouts so a broker outage cannot hang request handling.
	saramaConfig.Net.DialTimeout = 10 * time.Second
	saramaConfig.Net.ReadTimeout = 10 * time.Second
	saramaConfig.Net.WriteTimeout = 10 * time.Second
	saramaConfig.Metadata.Retry.Max = 3
	saramaConfig.Metadata.Retry.Backoff = 250 * time.Millisecond
	saramaConfig.Metadata.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return &KafkaEmitter{
		producer: producer,
		topic:    cfg.Topic,
		logger:   logger,
	}, nil
}

// Send publishes one event keyed by the target user id. Errors are logged,
// never returned.
func (e *KafkaEmitter) Send(_ context.Context, targetUserID, kind string, payload map[string]any) {
	event := Event{
		TargetUserID: targetUserID,
		Kind:         kind,
		Payload:      payload,
		EmittedAt:    time.Now(),
	}

	bytes, err := json.Marshal(event)
	if err != nil {
		e.logger.Error("failed to marshal notification event",
			zap.String("kind", kind),
			zap.Error(err))
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: e.topic,
		Key:   sarama.StringEncoder(targetUserID),
		Value: sarama.ByteEncoder(bytes),
	}

	partition, offset, err := e.producer.SendMessage(msg)
	if err != nil {
		e.logger.Warn("notification delivery failed",
			zap.String("target_user_id", targetUserID),
			zap.String("kind", kind),
			zap.Error(err))
		return
	}

	e.logger.Debug("notification delivered",
		zap.String("kind", kind),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
}

// Close shuts down the underlying producer.
func (e *KafkaEmitter) Close() error {
	return e.producer.Close()
}
