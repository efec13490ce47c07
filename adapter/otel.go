package adapter

import (
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/srediag/plugin-status/pkg/host"
)

const instrumentationName = "github.com/srediag/plugin-status"

// OTel carries the OpenTelemetry providers the host reports to.
type OTel struct {
	Tracer trace.Tracer
	Meter  metric.Meter
}

// NewOTel builds tracer and meter from the given providers. Nil providers
// fall back to no-op implementations.
func NewOTel(tp trace.TracerProvider, mp metric.MeterProvider) *OTel {
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}
	if mp == nil {
		mp = metricnoop.NewMeterProvider()
	}
	return &OTel{
		Tracer: tp.Tracer(instrumentationName),
		Meter:  mp.Meter(instrumentationName),
	}
}

// HostOptions returns the host options that install o.
func (o *OTel) HostOptions() []host.Option {
	return []host.Option{host.WithTracer(o.Tracer), host.WithMeter(o.Meter)}
}
