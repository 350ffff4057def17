// Package outbox relays committed registration events from the outbox table
// to a Redis stream.
package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/rueidis"

	"github.com/Shivanand-hulikatti/samudaya-events/internal/model"
	"github.com/Shivanand-hulikatti/samudaya-events/internal/repository"
)

// StreamWriter appends one message to a stream.
type StreamWriter interface {
	Append(ctx context.Context, stream string, ev model.OutboxEvent) error
}

// Observer receives one observation per relay attempt.
type Observer interface {
	ObservePublish(ok bool)
}

type nopObserver struct{}

func (nopObserver) ObservePublish(bool) {}

// RedisStream writes outbox events to Redis streams with XADD.
type RedisStream struct {
	client rueidis.Client
}

// NewRedisStream wraps a rueidis client.
func NewRedisStream(client rueidis.Client) *RedisStream {
	return &RedisStream{client: client}
}

// Append implements StreamWriter.
func (s *RedisStream) Append(ctx context.Context, stream string, ev model.OutboxEvent) error {
	cmd := s.client.B().Xadd().Key(stream).Id("*").
		FieldValue().
		FieldValue("event_type", ev.EventType).
		FieldValue("aggregate_id", ev.AggregateID).
		FieldValue("payload", string(ev.Payload)).
		Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("xadd %s: %w", stream, err)
	}
	return nil
}

// Options configures a Publisher.
type Options struct {
	Stream       string
	BatchSize    int
	PollInterval time.Duration
}

// Publisher polls the outbox and relays unpublished rows.
type Publisher struct {
	store    repository.OutboxStore
	writer   StreamWriter
	observer Observer
	opts     Options
	log      *slog.Logger
}

// NewPublisher constructs a Publisher. A nil observer disables metrics.
func NewPublisher(store repository.OutboxStore, writer StreamWriter, observer Observer, opts Options, log *slog.Logger) *Publisher {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Publisher{store: store, writer: writer, observer: observer, opts: opts, log: log}
}

// Run processes a batch immediately and then every poll interval until ctx
// is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	p.log.Info("outbox publisher started",
		slog.String("stream", p.opts.Stream),
		slog.Duration("poll_interval", p.opts.PollInterval),
		slog.Int("batch_size", p.opts.BatchSize),
	)

	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := p.ProcessBatch(ctx); err != nil {
			p.log.Error("process outbox batch", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			p.log.Info("outbox publisher stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// ProcessBatch relays up to BatchSize rows and returns how many were
// published. A row that fails to publish stays pending for the next batch.
func (p *Publisher) ProcessBatch(ctx context.Context) (int, error) {
	events, err := p.store.ListUnpublished(ctx, p.opts.BatchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, ev := range events {
		if err := p.writer.Append(ctx, p.opts.Stream, ev); err != nil {
			p.observer.ObservePublish(false)
			p.log.Warn("publish outbox event",
				slog.Int64("outbox_id", ev.ID),
				slog.Any("error", err),
			)
			continue
		}
		if err := p.store.MarkPublished(ctx, ev.ID); err != nil {
			// Delivered but not acknowledged; it will be sent again.
			p.observer.ObservePublish(false)
			p.log.Warn("mark outbox event published",
				slog.Int64("outbox_id", ev.ID),
				slog.Any("error", err),
			)
			continue
		}
		p.observer.ObservePublish(true)
		published++
		p.log.Debug("outbox event published",
			slog.Int64("outbox_id", ev.ID),
			slog.String("event_type", ev.EventType),
			slog.String("aggregate_id", ev.AggregateID),
		)
	}
	return published, nil
}
