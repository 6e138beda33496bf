package events

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/trgnexus/platform/libs/db"
)

// InboxRepository records processed event ids so redelivered Kafka
// messages are handled at most once per service.
type InboxRepository struct {
	pool *db.Pool
}

func NewInboxRepository(pool *db.Pool) *InboxRepository {
	return &InboxRepository{pool: pool}
}

// WithRecord claims the event id and runs fn in the same transaction.
// The inbox row only commits when fn succeeds, so a failed handler
// leaves the event unclaimed and a redelivery retries it. Returns
// false when the event id was already seen; fn is not called then.
func (r *InboxRepository) WithRecord(ctx context.Context, eventID string, eventType string, fn func(context.Context) error) (bool, error) {
	fresh := false
	err := r.pool.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO inbox_events (event_id, event_type)
			VALUES ($1, $2)
			ON CONFLICT (event_id) DO NOTHING
		`, eventID, eventType)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		fresh = true
		return fn(ctx)
	})
	if err != nil {
		return false, err
	}
	return fresh, nil
}
