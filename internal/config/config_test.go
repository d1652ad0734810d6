package config

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/crisjonblvx/facultyflow/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CANVAS_REQUESTS_PER_HOUR", "")
	t.Setenv("ANALYSIS_CACHE_TTL", "")
	t.Setenv("EVENTS_ENABLED", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Empty(t, cfg.JWTSecret)
	assert.Equal(t, 3000, cfg.Canvas.RequestsPerHour)
	assert.Equal(t, 10*time.Minute, cfg.AnalysisCacheTTL)
	assert.True(t, cfg.Events.Enabled)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("CANVAS_REQUESTS_PER_HOUR", "120")
	t.Setenv("CANVAS_TIMEOUT", "5s")
	t.Setenv("AUTH_PROVIDER", "Casdoor")
	t.Setenv("EVENTS_ENABLED", "false")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.Canvas.RequestsPerHour)
	assert.Equal(t, 5*time.Second, cfg.Canvas.Timeout)
	assert.Equal(t, "casdoor", cfg.Auth.Provider)
	assert.False(t, cfg.Events.Enabled)
	assert.True(t, cfg.IsProduction())
}

func TestLoadConfig_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("CANVAS_REQUESTS_PER_HOUR", "lots")
	t.Setenv("ANALYSIS_CACHE_TTL", "soon")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Canvas.RequestsPerHour)
	assert.Equal(t, 10*time.Minute, cfg.AnalysisCacheTTL)
}

func TestEventConfig_Brokers(t *testing.T) {
	cfg := EventConfig{KafkaBrokers: "a:9092, b:9092,,"}
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.GetKafkaBrokers())
}

func TestEventConfig_DisabledUsesMock(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, cfg := range []EventConfig{
		{Enabled: false, Publisher: "kafka"},
		{Enabled: true, Publisher: "mock"},
		{Enabled: true, Publisher: "carrier-pigeon"},
	} {
		publisher, err := cfg.CreateEventPublisher(logger)
		require.NoError(t, err)
		assert.IsType(t, &events.MockEventPublisher{}, publisher)
	}
}
