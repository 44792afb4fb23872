package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/signup/internal/outbox"
)

// DefaultClaimLease is how long a fetched batch stays reserved for one
// dispatcher before another may pick it up again.
const DefaultClaimLease = time.Minute

// OutboxStore implements outbox.Store on the outbox table.
type OutboxStore struct {
	pool  *pgxpool.Pool
	lease time.Duration
}

// NewOutboxStore constructs an OutboxStore.
func NewOutboxStore(pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{pool: pool, lease: DefaultClaimLease}
}

// Append implements outbox.Store.
func (s *OutboxStore) Append(ctx context.Context, msg outbox.Message) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO outbox (event_id, event_type, topic, partition_key, payload, occurred_at)
         VALUES ($1,$2,$3,$4,$5,$6)`,
		msg.EventID, msg.EventType, msg.Topic, msg.PartitionKey, []byte(msg.Payload), msg.OccurredAt,
	)
	return err
}

// FetchPending implements outbox.Store. Returned rows are claimed for the
// lease duration so concurrent dispatchers skip them.
func (s *OutboxStore) FetchPending(ctx context.Context, limit int) (messages []outbox.Message, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	query := `SELECT event_id, event_type, topic, partition_key, payload, occurred_at
        FROM outbox
        WHERE published_at IS NULL
          AND (claimed_at IS NULL OR claimed_at < NOW() - make_interval(secs => $2))
        ORDER BY created_at, event_id
        LIMIT $1
        FOR UPDATE SKIP LOCKED`

	rows, err := tx.Query(ctx, query, limit, s.lease.Seconds())
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0)
	for rows.Next() {
		var (
			msg     outbox.Message
			payload []byte
		)
		if err = rows.Scan(&msg.EventID, &msg.EventType, &msg.Topic, &msg.PartitionKey, &payload, &msg.OccurredAt); err != nil {
			rows.Close()
			return nil, err
		}
		msg.Payload = payload
		messages = append(messages, msg)
		ids = append(ids, msg.EventID)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return nil, tx.Commit(ctx)
	}

	if _, err = tx.Exec(ctx, `UPDATE outbox SET claimed_at = NOW() WHERE event_id = ANY($1)`, ids); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkPublished implements outbox.Store.
func (s *OutboxStore) MarkPublished(ctx context.Context, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET published_at = NOW() WHERE event_id = ANY($1)`, eventIDs)
	return err
}
