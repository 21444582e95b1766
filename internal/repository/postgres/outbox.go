package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/NordCoder/Authgate/internal/domain/outbox"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

var _ outbox.Repository = (*OutboxRepo)(nil)

// OutboxRepo keeps user events next to the rows that produced them.
type OutboxRepo struct{ db *DB }

func NewOutboxRepo(db *DB) *OutboxRepo { return &OutboxRepo{db: db} }

var errBadBatch = errors.New("outbox: batch must be > 0")

const (
	qOutboxEnqueue = `
INSERT INTO outbox (idempotency_key, kind, data, status, traceparent, tracestate, baggage)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (idempotency_key) DO NOTHING`

	// Stale IN_PROGRESS rows belong to a runner that died mid-batch.
	qOutboxClaim = `
WITH cand AS (
    SELECT idempotency_key
    FROM outbox
    WHERE status = $3
       OR (status = $4 AND updated_at < now() - make_interval(secs => $2))
    ORDER BY created_at
    LIMIT $1
    FOR UPDATE SKIP LOCKED
)
UPDATE outbox o
SET status = $4, updated_at = now()
FROM cand
WHERE o.idempotency_key = cand.idempotency_key
RETURNING o.idempotency_key, o.kind, o.data, o.status,
          o.traceparent, o.tracestate, o.baggage, o.created_at, o.updated_at`

	qOutboxDone = `
UPDATE outbox
SET status = $2, updated_at = now()
WHERE idempotency_key = ANY($1)`
)

// Enqueue records the current trace context so the runner can continue it.
func (r *OutboxRepo) Enqueue(ctx context.Context, key string, kind outbox.Kind, data []byte) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	tc := outbox.TraceContextFromCarrier(carrier)

	if _, err := r.db.execQueryer(ctx).Exec(ctx, qOutboxEnqueue,
		key, kind, data, string(outbox.StatusCreated), tc.Parent, tc.State, tc.Baggage); err != nil {
		return storageErr("outbox.enqueue", err)
	}
	return nil
}

func (r *OutboxRepo) PickBatch(ctx context.Context, batch int, inProgressTTL time.Duration) ([]outbox.Message, error) {
	if batch <= 0 {
		return nil, errBadBatch
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qOutboxClaim,
		batch, inProgressTTL.Seconds(), string(outbox.StatusCreated), string(outbox.StatusInProgress))
	if err != nil {
		return nil, storageErr("outbox.pick", err)
	}
	defer rows.Close()

	var out []outbox.Message
	for rows.Next() {
		var (
			m      outbox.Message
			status string
		)
		if err := rows.Scan(&m.IdempotencyKey, &m.Kind, &m.Data, &status,
			&m.Trace.Parent, &m.Trace.State, &m.Trace.Baggage, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, storageErr("outbox.scan", err)
		}
		m.Status = outbox.Status(status)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("outbox.pick", err)
	}
	return out, nil
}

func (r *OutboxRepo) MarkSuccess(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()
	if _, err := r.db.Pool.Exec(ctx, qOutboxDone, keys, string(outbox.StatusSuccess)); err != nil {
		return storageErr("outbox.mark_success", err)
	}
	return nil
}
