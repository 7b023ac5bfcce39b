package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/bolttesting/Bookly-sub001/internal/store"
	"github.com/bolttesting/Bookly-sub001/internal/telemetry"
)

type outboxEvent struct {
	bun.BaseModel `bun:"table:outbox_events,alias:oe"`

	ID            int64           `bun:"id,pk,autoincrement"`
	EventID       uuid.UUID       `bun:"event_id,notnull,type:uuid"`
	AggregateType string          `bun:"aggregate_type,notnull"`
	AggregateID   string          `bun:"aggregate_id,notnull"`
	EventType     string          `bun:"event_type,notnull"`
	Payload       json.RawMessage `bun:"payload,type:jsonb,notnull"`
	Traceparent   string          `bun:"traceparent,notnull"`
	Tracestate    string          `bun:"tracestate,notnull"`
	CreatedAt     time.Time       `bun:"created_at,notnull"`
	PublishedAt   *time.Time      `bun:"published_at"`
}

// insertOutbox stores ev in the caller's transaction together with the
// current trace context, so the publisher can continue the trace.
func insertOutbox(ctx context.Context, db bun.IDB, ev store.OutboxEvent) error {
	eventID, err := uuid.NewV7()
	if err != nil {
		return err
	}
	traceparent, tracestate := telemetry.TraceContextStrings(ctx)
	payload := json.RawMessage(ev.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	_, err = db.NewInsert().
		Model(&outboxEvent{
			EventID:       eventID,
			AggregateType: ev.AggregateType,
			AggregateID:   ev.AggregateID,
			EventType:     ev.EventType,
			Payload:       payload,
			Traceparent:   traceparent,
			Tracestate:    tracestate,
			CreatedAt:     time.Now().UTC(),
		}).
		Exec(ctx)
	return err
}

type OutboxRepo struct {
	db bun.IDB
}

func NewOutboxRepo(db bun.IDB) *OutboxRepo {
	return &OutboxRepo{db: db}
}

func (r *OutboxRepo) ProcessBatch(ctx context.Context, limit int, fn func(ctx context.Context, records []store.OutboxRecord) error) (int, error) {
	n := 0
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var rows []outboxEvent
		err := tx.NewSelect().
			Model(&rows).
			Where("oe.published_at IS NULL").
			OrderExpr("oe.id ASC").
			Limit(limit).
			For("UPDATE SKIP LOCKED").
			Scan(ctx)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		records := make([]store.OutboxRecord, 0, len(rows))
		ids := make([]int64, 0, len(rows))
		for _, row := range rows {
			records = append(records, store.OutboxRecord{
				ID:            row.ID,
				EventID:       row.EventID,
				AggregateType: row.AggregateType,
				AggregateID:   row.AggregateID,
				EventType:     row.EventType,
				Payload:       row.Payload,
				Traceparent:   row.Traceparent,
				Tracestate:    row.Tracestate,
				CreatedAt:     row.CreatedAt,
			})
			ids = append(ids, row.ID)
		}
		n = len(records)

		if err := fn(ctx, records); err != nil {
			return err
		}

		_, err = tx.NewUpdate().
			Model((*outboxEvent)(nil)).
			Set("published_at = ?", time.Now().UTC()).
			Where("id IN (?)", bun.In(ids)).
			Exec(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
