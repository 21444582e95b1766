package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NordCoder/Authgate/internal/domain/outbox"
	"github.com/NordCoder/Authgate/internal/obs/retry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Publisher delivers one encoded user event downstream.
type Publisher interface {
	PublishUserEvent(ctx context.Context, kind outbox.Kind, userID int64, data []byte) error
}

var (
	mHandleLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_handler_latency_seconds",
		Help:    "Time to deliver one outbox message, retries included.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	mHandleErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_handler_errors_total",
		Help: "Outbox messages that failed after all retries.",
	}, []string{"kind"})
)

// MakeGlobalOutboxHandler routes user lifecycle kinds to pub. Malformed
// payloads fail immediately; publish errors are retried under pol.
func MakeGlobalOutboxHandler(pub Publisher, pol retry.Policy) outbox.GlobalHandler {
	return func(kind outbox.Kind) (outbox.KindHandler, error) {
		switch kind {
		case outbox.KindUserRegistered, outbox.KindUserDeleted:
			return withRetry(kind, pol, publishUserEvent(pub, kind)), nil
		default:
			return nil, fmt.Errorf("unsupported outbox kind: %d", kind)
		}
	}
}

func publishUserEvent(pub Publisher, kind outbox.Kind) outbox.KindHandler {
	return func(ctx context.Context, data []byte) error {
		var ev outbox.UserEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return retry.Permanent(fmt.Errorf("decode %s payload: %w", kind, err))
		}
		return pub.PublishUserEvent(ctx, kind, ev.UserID, data)
	}
}

func withRetry(kind outbox.Kind, pol retry.Policy, h outbox.KindHandler) outbox.KindHandler {
	label := kind.String()
	if pol.Name == "" {
		pol.Name = "outbox_" + label
	}
	tr := otel.Tracer("outbox.handler")

	return func(ctx context.Context, data []byte) error {
		ctx, span := tr.Start(ctx, "outbox.handle", trace.WithAttributes(attribute.String("outbox.kind", label)))
		defer span.End()

		start := time.Now()
		err := retry.Do(ctx, pol, func(ctx context.Context) error { return h(ctx, data) })
		mHandleLatency.WithLabelValues(label).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			mHandleErrors.WithLabelValues(label).Inc()
		}
		return err
	}
}
