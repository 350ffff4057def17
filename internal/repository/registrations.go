package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/samudaya-events/internal/model"
)

// maxClaimAttempts bounds retries when a claim fails but a follow-up read
// finds every precondition satisfied (the event was published in between).
const maxClaimAttempts = 3

// claimSeatSQL is the single serialization point for an event's registrant
// set. The UPDATE takes the row lock and re-checks status, capacity and
// membership against the latest committed row, so a competing claim for the
// last seat either sees the incremented count or waits for it. The
// registration insert and the outbox insert run in the same statement, so
// either all three writes commit or none do.
//
// The unique key on (event_id, user_id) catches the case where the same user
// races itself past the NOT EXISTS check.
const claimSeatSQL = `
WITH claimed AS (
    UPDATE events
    SET registered_count = registered_count + 1, updated_at = $4
    WHERE id = $1
      AND status = 'published'
      AND registered_count < capacity
      AND NOT EXISTS (
          SELECT 1 FROM registrations WHERE event_id = $1 AND user_id = $2
      )
    RETURNING id, status, capacity, registered_count
), inserted AS (
    INSERT INTO registrations (id, event_id, user_id, created_at)
    SELECT $3::uuid, id, $2::uuid, $4::timestamptz FROM claimed
), queued AS (
    INSERT INTO outbox_events (aggregate_id, event_type, payload, created_at)
    SELECT id::text, $5::text, json_build_object(
        'eventId', id,
        'userId', $2::uuid,
        'registeredCount', registered_count,
        'capacity', capacity,
        'registeredAt', $4::timestamptz
    ), $4::timestamptz
    FROM claimed
)
SELECT id, status, capacity, registered_count FROM claimed`

const classifySQL = `
SELECT e.status, e.capacity, e.registered_count,
       EXISTS (SELECT 1 FROM registrations r WHERE r.event_id = e.id AND r.user_id = $2)
FROM events e
WHERE e.id = $1`

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db, now: utcNow}
}

// TryAddRegistrant performs the atomic conditional update described on
// claimSeatSQL. When no row is claimed, a follow-up read decides which
// precondition failed; that read never changes state.
func (r *RegistrationRepository) TryAddRegistrant(ctx context.Context, eventID, userID string) (*model.EventSnapshot, error) {
	if !validID(eventID) {
		return nil, model.ErrEventNotFound
	}
	if !validID(userID) {
		return nil, model.ErrUserNotFound
	}

	return retryClaim(
		func() (*model.EventSnapshot, error) { return r.claim(ctx, eventID, userID) },
		func() error { return r.classify(ctx, eventID, userID) },
	)
}

// retryClaim runs claim until it succeeds, fails for a reason classify can
// name, or maxClaimAttempts is spent. claim reports "no row claimed" as
// pgx.ErrNoRows.
func retryClaim(claim func() (*model.EventSnapshot, error), classify func() error) (*model.EventSnapshot, error) {
	for attempt := 1; attempt <= maxClaimAttempts; attempt++ {
		snap, err := claim()
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, classifyClaimErr(err)
		}

		if err := classify(); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("add registrant: %w: claim kept losing to concurrent updates", model.ErrUnavailable)
}

func (r *RegistrationRepository) claim(ctx context.Context, eventID, userID string) (*model.EventSnapshot, error) {
	var snap model.EventSnapshot
	err := r.db.QueryRow(ctx, claimSeatSQL,
		eventID, userID, uuid.New().String(), r.now(), model.EventTypeRegistrationCreated,
	).Scan(&snap.ID, &snap.Status, &snap.Capacity, &snap.RegisteredCount)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// classify returns the error for the first failing precondition, or nil if
// all of them hold now.
func (r *RegistrationRepository) classify(ctx context.Context, eventID, userID string) error {
	var (
		status     model.EventStatus
		capacity   int
		registered int
		member     bool
	)
	err := r.db.QueryRow(ctx, classifySQL, eventID, userID).Scan(&status, &capacity, &registered, &member)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return model.ErrEventNotFound
	case err != nil:
		return fmt.Errorf("classify registration: %w: %w", model.ErrUnavailable, err)
	case status != model.StatusPublished:
		return model.ErrNotOpen
	case member:
		return model.ErrAlreadyRegistered
	case registered >= capacity:
		return model.ErrFull
	}
	return nil
}

func classifyClaimErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return model.ErrAlreadyRegistered
		case codeCheckViolation:
			if pgErr.ConstraintName == capacityConstraint {
				return model.ErrFull
			}
		}
		return fmt.Errorf("add registrant: %w", err)
	}
	return fmt.Errorf("add registrant: %w: %w", model.ErrUnavailable, err)
}

// ListByEvent returns all registrations for an event, oldest first.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	if !validID(eventID) {
		return nil, model.ErrEventNotFound
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, event_id, user_id, created_at
		 FROM registrations
		 WHERE event_id = $1
		 ORDER BY created_at ASC, id ASC`,
		eventID,
	)
	if err != nil {
		return nil, storeErr("list registrations", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate registrations", err)
	}
	return regs, nil
}

// ListEventsByUser returns every event userID is registered for.
func (r *RegistrationRepository) ListEventsByUser(ctx context.Context, userID string) ([]model.Event, error) {
	if !validID(userID) {
		return nil, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT e.id, e.title, e.description, e.location, e.category, e.tags, e.starts_at,
		        e.capacity, e.registered_count, e.status, e.creator_id, e.created_at, e.updated_at
		 FROM events e
		 JOIN registrations r ON r.event_id = e.id
		 WHERE r.user_id = $1
		 ORDER BY e.starts_at ASC`,
		userID,
	)
	if err != nil {
		return nil, storeErr("list events by user", err)
	}
	return collectEvents(rows)
}

// InconsistentEvents returns the ids of events whose stored registered
// count differs from the number of registration rows. It should always be
// empty.
func (r *RegistrationRepository) InconsistentEvents(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT e.id
		 FROM events e
		 LEFT JOIN registrations r ON r.event_id = e.id
		 GROUP BY e.id, e.registered_count
		 HAVING e.registered_count <> COUNT(r.id)`)
	if err != nil {
		return nil, storeErr("check registered counts", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
