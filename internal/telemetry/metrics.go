package telemetry

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the business counters exported over OTLP
type Metrics struct {
	SnapshotsIngestedTotal metric.Int64Counter
	ContactDispatchTotal   metric.Int64Counter
	ContactOutcomeTotal    metric.Int64Counter
	StatusOverrideTotal    metric.Int64Counter

	AuthFailuresTotal metric.Int64Counter
}

// InitMetrics registers the counters on the global meter provider
func InitMetrics() (*Metrics, error) {
	return newMetrics(otel.Meter("github.com/WailSalutem-Health-Care/recall-service"))
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	snapshotsIngested, err := meter.Int64Counter(
		"snapshots_ingested_total",
		metric.WithDescription("Total number of treatment-plan snapshots applied"),
		metric.WithUnit("{snapshot}"),
	)
	if err != nil {
		return nil, err
	}

	contactDispatch, err := meter.Int64Counter(
		"contact_dispatch_total",
		metric.WithDescription("Total number of outbound contact attempts by result"),
		metric.WithUnit("{dispatch}"),
	)
	if err != nil {
		return nil, err
	}

	contactOutcome, err := meter.Int64Counter(
		"contact_outcome_total",
		metric.WithDescription("Total number of vendor outcome callbacks by result"),
		metric.WithUnit("{outcome}"),
	)
	if err != nil {
		return nil, err
	}

	statusOverride, err := meter.Int64Counter(
		"status_override_total",
		metric.WithDescription("Total number of manual status overrides by status kind"),
		metric.WithUnit("{override}"),
	)
	if err != nil {
		return nil, err
	}

	authFailures, err := meter.Int64Counter(
		"auth_failures_total",
		metric.WithDescription("Total number of rejected shared-secret requests"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	log.Info().Msg("custom metrics initialized")

	return &Metrics{
		SnapshotsIngestedTotal: snapshotsIngested,
		ContactDispatchTotal:   contactDispatch,
		ContactOutcomeTotal:    contactOutcome,
		StatusOverrideTotal:    statusOverride,
		AuthFailuresTotal:      authFailures,
	}, nil
}

// RecordSnapshotsIngested adds the size of a committed batch
func (m *Metrics) RecordSnapshotsIngested(ctx context.Context, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.SnapshotsIngestedTotal.Add(ctx, int64(count))
}

// RecordDispatch counts a contact attempt (sent or failed)
func (m *Metrics) RecordDispatch(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.ContactDispatchTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", result),
	))
}

// RecordOutcome counts a vendor callback
func (m *Metrics) RecordOutcome(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.ContactOutcomeTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", result),
	))
}

// RecordStatusOverride counts a manual override; kind is known or external
func (m *Metrics) RecordStatusOverride(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.StatusOverrideTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
	))
}

// RecordAuthFailure records an authentication failure metric
func (m *Metrics) RecordAuthFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.AuthFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}
