package outbox

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaProducer lazily manages writers per topic.
type KafkaProducer struct {
	brokers []string
	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewKafkaProducer creates a KafkaProducer.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{
		brokers: brokers,
		writers: make(map[string]*kafka.Writer),
	}
}

// WriteMessages writes messages to the given topic, creating a writer if necessary.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	writer := p.writerForTopic(topic)
	return writer.WriteMessages(ctx, msgs...)
}

func (p *KafkaProducer) writerForTopic(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, ok := p.writers[topic]; ok {
		return writer
	}

	// Hash on the activity name keeps each roster's events ordered.
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(p.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: true,
	}
	p.writers[topic] = writer
	return writer
}

// Close releases all writers.
func (p *KafkaProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
	}
	return firstErr
}

// LogWriter stands in for Kafka when no brokers are configured and writes
// each event to the log instead.
type LogWriter struct {
	logger *zap.Logger
}

// NewLogWriter constructs a LogWriter.
func NewLogWriter(logger *zap.Logger) *LogWriter {
	return &LogWriter{logger: logger}
}

// WriteMessages logs every message and never fails.
func (w *LogWriter) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	for _, msg := range msgs {
		fields := []zap.Field{
			zap.String("topic", topic),
			zap.ByteString("key", msg.Key),
			zap.ByteString("payload", msg.Value),
		}
		for _, header := range msg.Headers {
			fields = append(fields, zap.ByteString(header.Key, header.Value))
		}
		w.logger.Info("roster event", fields...)
	}
	return nil
}

// Close implements io.Closer.
func (w *LogWriter) Close() error { return nil }
