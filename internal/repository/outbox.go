package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/samudaya-events/internal/model"
)

// OutboxRepository reads the outbox rows written alongside registrations.
type OutboxRepository struct {
	db *pgxpool.Pool
}

// NewOutboxRepository constructs an OutboxRepository.
func NewOutboxRepository(db *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// ListUnpublished returns up to limit unpublished rows, oldest first. Rows
// are not locked, so the publisher must run as a single instance or replicas
// will relay the same rows.
func (r *OutboxRepository) ListUnpublished(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at, published_at
		 FROM outbox_events
		 WHERE published_at IS NULL
		 ORDER BY id ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, storeErr("list outbox events", err)
	}
	defer rows.Close()

	var events []model.OutboxEvent
	for rows.Next() {
		var ev model.OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &ev.Payload, &ev.CreatedAt, &ev.PublishedAt); err != nil {
			return nil, storeErr("scan outbox event", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate outbox events", err)
	}
	return events, nil
}

// MarkPublished stamps a row as delivered.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE outbox_events SET published_at = now() WHERE id = $1 AND published_at IS NULL`, id)
	if err != nil {
		return storeErr("mark outbox event published", err)
	}
	return nil
}
