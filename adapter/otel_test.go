package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestNewOTelDefaults(t *testing.T) {
	o := NewOTel(nil, nil)
	assert.NotNil(t, o.Tracer)
	assert.NotNil(t, o.Meter)
	assert.Len(t, o.HostOptions(), 2)

	o = NewOTel(tracenoop.NewTracerProvider(), nil)
	assert.NotNil(t, o.Tracer)
}
