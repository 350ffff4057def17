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

const eventColumns = `id, title, description, location, category, tags, starts_at,
	capacity, registered_count, status, creator_id, created_at, updated_at`

// PostgreSQL error codes the repositories translate.
const (
	codeUniqueViolation = "23505"
	codeCheckViolation  = "23514"

	capacityConstraint = "events_registered_within_capacity"
)

// EventRepository handles persistence for events.
type EventRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db, now: utcNow}
}

// Create inserts a new event. ID and timestamps are assigned when empty.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	now := r.now()
	e.CreatedAt, e.UpdatedAt = now, now
	e.RegisteredCount = 0
	if e.Tags == nil {
		e.Tags = []string{}
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.ID, e.Title, e.Description, e.Location, e.Category, e.Tags, e.StartsAt,
		e.Capacity, e.RegisteredCount, e.Status, e.CreatorID, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return storeErr("insert event", err)
	}
	return nil
}

// FindByID returns a single event or model.ErrEventNotFound.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*model.Event, error) {
	if !validID(id) {
		return nil, model.ErrEventNotFound
	}
	e, err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrEventNotFound
		}
		return nil, storeErr("get event", err)
	}
	return e, nil
}

// List returns events matching filter ordered by start time.
func (r *EventRepository) List(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	status, category := normalizeFilter(filter)
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE status = $1 AND ($2 = '' OR category = $2)
		 ORDER BY starts_at ASC, created_at ASC`,
		status, category,
	)
	if err != nil {
		return nil, storeErr("list events", err)
	}
	return collectEvents(rows)
}

// Update locks the event row with SELECT … FOR UPDATE, applies fn and
// writes the mutable columns back in the same transaction. The registered
// count is never written here; only TryAddRegistrant changes it.
func (r *EventRepository) Update(ctx context.Context, id string, fn func(e *model.Event) error) (*model.Event, error) {
	if !validID(id) {
		return nil, model.ErrEventNotFound
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	e, err := scanEvent(tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrEventNotFound
		}
		return nil, storeErr("lock event row", err)
	}

	if err := fn(e); err != nil {
		return nil, err
	}
	e.UpdatedAt = r.now()

	_, err = tx.Exec(ctx,
		`UPDATE events
		 SET title = $2, description = $3, location = $4, category = $5, tags = $6,
		     starts_at = $7, capacity = $8, status = $9, updated_at = $10
		 WHERE id = $1`,
		id, e.Title, e.Description, e.Location, e.Category, e.Tags,
		e.StartsAt, e.Capacity, e.Status, e.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == codeCheckViolation && pgErr.ConstraintName == capacityConstraint {
			return nil, model.ErrCapacityBelowRegistered
		}
		return nil, storeErr("update event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr("commit transaction", err)
	}
	return e, nil
}

// Delete removes an event and, by cascade, its registrations.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return model.ErrEventNotFound
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete event", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrEventNotFound
	}
	return nil
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Location, &e.Category, &e.Tags, &e.StartsAt,
		&e.Capacity, &e.RegisteredCount, &e.Status, &e.CreatorID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func collectEvents(rows pgx.Rows) ([]model.Event, error) {
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate events", err)
	}
	return events, nil
}

// storeErr wraps err with op. Errors that did not come back from the server
// (dial failures, closed pools, timeouts) are also tagged
// model.ErrUnavailable, since the effect of the call is unknown.
func storeErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, model.ErrUnavailable, err)
}

// validID reports whether id can name a row. Row ids are UUIDs, so any
// other string cannot exist.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func normalizeFilter(f model.EventFilter) (model.EventStatus, string) {
	status := f.Status
	if status == "" {
		status = model.StatusPublished
	}
	category := f.Category
	if category == "all" {
		category = ""
	}
	return status, category
}

func utcNow() time.Time {
	return time.Now().UTC()
}
