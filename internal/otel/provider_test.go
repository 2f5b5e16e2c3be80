package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(context.Background(), Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.Equal(t, noop.Meter{}, p.Meter("vlm"))

	rm, err := p.Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rm.ScopeMetrics)

	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutOutput(t *testing.T) {
	_, err := New(context.Background(), Config{Enabled: true, ServiceName: "vlm"})
	assert.ErrorIs(t, err, ErrNoLogOutput)
}

func enabled(t *testing.T, buf *bytes.Buffer) *Provider {
	t.Helper()
	p, err := New(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "vlm",
		BatchTimeout: time.Second,
		LogWriter:    buf,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return p
}

func TestNew_FileExporter(t *testing.T) {
	var buf bytes.Buffer
	p := enabled(t, &buf)
	require.NotNil(t, p.LoggerProvider())
	assert.True(t, p.Enabled())

	var rec otellog.Record
	rec.SetBody(otellog.StringValue("conversion finished"))
	p.LoggerProvider().Logger("test").Emit(context.Background(), rec)

	require.NoError(t, p.Flush(context.Background()))
	assert.Contains(t, buf.String(), "conversion finished")
	assert.Contains(t, buf.String(), "vlm")
}

func TestMeter_Collect(t *testing.T) {
	var buf bytes.Buffer
	p := enabled(t, &buf)

	counter, err := p.Meter("vlm/test").Int64Counter("vlm.conversions")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)
	counter.Add(context.Background(), 1)

	rm, err := p.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rm.ScopeMetrics, 1)
	assert.Equal(t, "vlm/test", rm.ScopeMetrics[0].Scope.Name)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)

	m := rm.ScopeMetrics[0].Metrics[0]
	assert.Equal(t, "vlm.conversions", m.Name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
}

func TestNilProvider(t *testing.T) {
	var p *Provider
	assert.Equal(t, noop.Meter{}, p.Meter("vlm"))
	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}
