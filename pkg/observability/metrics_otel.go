package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics holds the OpenTelemetry metric instruments mirrored onto
// the OTLP pipeline. HTTP-level metrics come from the otelhttp handler
// wrapper instead, so only domain instruments live here.
type OTelMetrics struct {
	loginAttempts    metric.Int64Counter
	signUps          metric.Int64Counter
	providerCalls    metric.Int64Counter
	providerDuration metric.Float64Histogram
}

// NewOTelMetrics creates the OTel metric instruments
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter("github.com/platinummonkey/vestibule")

	m := &OTelMetrics{}
	var err error

	m.loginAttempts, err = meter.Int64Counter(
		"auth.login.attempts",
		metric.WithDescription("Login attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create login attempts counter: %w", err)
	}

	m.signUps, err = meter.Int64Counter(
		"auth.signups",
		metric.WithDescription("Sign-up requests by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sign-ups counter: %w", err)
	}

	m.providerCalls, err = meter.Int64Counter(
		"provider.calls",
		metric.WithDescription("Identity provider calls by operation and status"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider calls counter: %w", err)
	}

	m.providerDuration, err = meter.Float64Histogram(
		"provider.call.duration",
		metric.WithDescription("Identity provider call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider duration histogram: %w", err)
	}

	return m, nil
}

// RecordLogin records a login attempt outcome
func (m *OTelMetrics) RecordLogin(ctx context.Context, outcome string) {
	m.loginAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordSignUp records a sign-up outcome
func (m *OTelMetrics) RecordSignUp(ctx context.Context, outcome string) {
	m.signUps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordProviderCall records one provider round trip
func (m *OTelMetrics) RecordProviderCall(ctx context.Context, operation string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.String("status", status),
	}
	m.providerCalls.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.providerDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
	))
}
