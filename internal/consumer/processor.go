// Package consumer reads roster events from Kafka for downstream auditing.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded messages from Kafka.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is the decoded representation of a roster event emitted by the outbox dispatcher.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	EventType string
	EventID   string
	Activity  string
	Payload   json.RawMessage
}

// Defaults for retry pacing. A handler gets DefaultHandlerAttempts tries per
// record before the record is committed as dropped.
const (
	DefaultFetchBackoff    = time.Second
	DefaultHandlerAttempts = 3
	DefaultHandlerBackoff  = 200 * time.Millisecond
)

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithFetchBackoff sets the pause after a failed fetch.
func WithFetchBackoff(d time.Duration) Option {
	return func(p *Processor) {
		p.fetchBackoff = d
	}
}

// WithHandlerRetry sets how often a record is handed to the handler, and the
// pause between attempts, before it is dropped.
func WithHandlerRetry(attempts int, backoff time.Duration) Option {
	return func(p *Processor) {
		if attempts > 0 {
			p.handlerAttempts = attempts
		}
		p.handlerBackoff = backoff
	}
}

// Processor pulls roster records from Kafka, decodes them, and passes them to a
// Handler. Records are committed once handled, once malformed, or once the
// handler has failed on them handlerAttempts times; in the last case the record
// is counted as dropped.
type Processor struct {
	reader          Reader
	handler         Handler
	logger          *zap.Logger
	fetchBackoff    time.Duration
	handlerAttempts int
	handlerBackoff  time.Duration
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:          reader,
		handler:         handler,
		logger:          zap.NewNop(),
		fetchBackoff:    DefaultFetchBackoff,
		handlerAttempts: DefaultHandlerAttempts,
		handlerBackoff:  DefaultHandlerBackoff,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run consumes records until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.logger.Warn("fetch error", zap.Error(err), zap.Duration("retry_in", p.fetchBackoff))
			if err := sleep(ctx, p.fetchBackoff); err != nil {
				return err
			}
			continue
		}

		event, decodeErr := decodeMessage(msg)
		if decodeErr != nil {
			p.logger.Warn("skipping malformed roster record",
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(decodeErr),
			)
			recordDecodeError(msg.Topic)
			p.commit(ctx, msg)
			continue
		}

		handleErr := p.handle(ctx, event)
		switch {
		case handleErr == nil:
			if p.commit(ctx, msg) {
				recordProcessed(event)
			}
		case ctx.Err() != nil:
			// Left uncommitted so the group redelivers it after restart.
			return ctx.Err()
		default:
			p.logger.Error("dropping roster record after repeated handler failures",
				zap.String("event_type", event.EventType),
				zap.String("event_id", event.EventID),
				zap.String("activity", event.Activity),
				zap.Int("attempts", p.handlerAttempts),
				zap.Error(handleErr),
			)
			recordDropped(event)
			p.commit(ctx, msg)
		}
	}
}

// handle offers event to the handler up to handlerAttempts times and returns
// the last error.
func (p *Processor) handle(ctx context.Context, event Message) error {
	var err error
	for attempt := 1; attempt <= p.handlerAttempts; attempt++ {
		if err = p.handler.Handle(ctx, event); err == nil {
			return nil
		}
		recordHandlerError(event)
		p.logger.Warn("handler error",
			zap.String("event_type", event.EventType),
			zap.String("event_id", event.EventID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < p.handlerAttempts {
			if sleepErr := sleep(ctx, p.handlerBackoff); sleepErr != nil {
				return sleepErr
			}
		}
	}
	return err
}

func (p *Processor) commit(ctx context.Context, msg kafka.Message) bool {
	if err := p.reader.CommitMessages(ctx, msg); err != nil {
		p.logger.Warn("commit error",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return false
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func decodeMessage(msg kafka.Message) (Message, error) {
	eventType, ok := headerValue(msg, "event_type")
	if !ok || len(eventType) == 0 {
		return Message{}, errors.New("missing event_type header")
	}
	eventID, _ := headerValue(msg, "event_id")

	if !json.Valid(msg.Value) {
		return Message{}, fmt.Errorf("payload is not valid JSON (%d bytes)", len(msg.Value))
	}

	return Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		EventType: string(eventType),
		EventID:   string(eventID),
		Activity:  string(msg.Key),
		Payload:   json.RawMessage(append([]byte(nil), msg.Value...)),
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
