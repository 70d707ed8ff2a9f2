package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/mmo-sim/internal/config"
)

func TestDisabledTelemetryIsNoop(t *testing.T) {
	shutdown, err := InitTelemetry(context.Background(), config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestEnabledTelemetryShutsDown(t *testing.T) {
	// Экспортер подключается лениво, пустой буфер сбрасывается без обращения к коллектору
	shutdown, err := InitTelemetry(context.Background(), config.TelemetryConfig{
		Enabled:  true,
		Endpoint: "127.0.0.1:4318",
		Service:  "test",
	})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
