package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestInitLogger_JSONCarriesService(t *testing.T) {
	var buf bytes.Buffer
	initLogger(&buf, "doctor-console", "production")

	log.Info().Str("appointment_id", "A101").Msg("recording started")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "doctor-console", entry["service"])
	assert.Equal(t, "A101", entry["appointment_id"])
	assert.Equal(t, "recording started", entry["message"])
}

func TestMetrics_RecordUpload(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	RecordUpload(ctx, metrics, 2048, 150*time.Millisecond, nil)
	RecordUpload(ctx, metrics, 1024, 90*time.Millisecond, errors.New("gateway down"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "console.transcription.upload.count" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), total)
}

func TestRecordHelpers_NilMetrics(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		RecordQueueAdvance(ctx, nil, nil)
		RecordRecordingStarted(ctx, nil)
		RecordUpload(ctx, nil, 1, time.Millisecond, nil)
		RecordSubmit(ctx, nil, nil)
		RecordRequestMetric(ctx, nil, "GET", "/health", 200, time.Millisecond)
	})
}
