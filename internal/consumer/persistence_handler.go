package consumer

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PersistenceHandler writes consumed roster events into Postgres for auditing.
type PersistenceHandler struct {
	pool *pgxpool.Pool
}

// NewPersistenceHandler constructs a handler backed by the provided pool.
func NewPersistenceHandler(pool *pgxpool.Pool) *PersistenceHandler {
	return &PersistenceHandler{pool: pool}
}

// Handle stores the event in the roster_event_log table. Redelivered offsets
// are ignored.
func (h *PersistenceHandler) Handle(ctx context.Context, msg Message) error {
	_, err := h.pool.Exec(ctx,
		`INSERT INTO roster_event_log (event_id, event_type, topic, partition, record_offset, activity, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
         ON CONFLICT (topic, partition, record_offset) DO NOTHING`,
		msg.EventID,
		msg.EventType,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		msg.Activity,
		[]byte(msg.Payload),
		msg.Timestamp,
	)
	return err
}

// LogHandler reports each roster event through the logger. It backs the
// consumer when no database is configured.
type LogHandler struct {
	logger *zap.Logger
}

// NewLogHandler constructs a LogHandler.
func NewLogHandler(logger *zap.Logger) *LogHandler {
	return &LogHandler{logger: logger}
}

// Handle implements Handler.
func (h *LogHandler) Handle(_ context.Context, msg Message) error {
	h.logger.Info("roster event received",
		zap.String("event_type", msg.EventType),
		zap.String("event_id", msg.EventID),
		zap.String("activity", msg.Activity),
		zap.String("topic", msg.Topic),
		zap.Int64("offset", msg.Offset),
		zap.ByteString("payload", msg.Payload),
	)
	return nil
}
