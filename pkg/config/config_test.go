package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(lookupFrom(map[string]string{}))
	require.NoError(t, err)

	assert.Empty(t, cfg.TrackingID)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, time.Second, cfg.SearchDebounce)
	assert.Equal(t, SearchEventsCollapsed, cfg.SearchEvents)
	assert.Equal(t, FilterEventsGeneric, cfg.FilterEvents)
	assert.Equal(t, []string{TransportMemory}, cfg.Transports)
	assert.Equal(t, ":8080", cfg.ListenAddress)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTimeout)
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(lookupFrom(map[string]string{
		"NEXT_PUBLIC_GA_ID":    "G-TEST",
		"NODE_ENV":             "Production",
		"SEARCH_DEBOUNCE_MS":   "250",
		"SEARCH_EVENTS":        "split",
		"FILTER_EVENTS":        "named",
		"TRACKING_TRANSPORT":   "memory, redis",
		"REDIS_URL":            "localhost:6379",
		"SESSION_IDLE_SECONDS": "60",
	}))
	require.NoError(t, err)

	assert.Equal(t, "G-TEST", cfg.TrackingID)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 250*time.Millisecond, cfg.SearchDebounce)
	assert.Equal(t, SearchEventsSplit, cfg.SearchEvents)
	assert.Equal(t, FilterEventsNamed, cfg.FilterEvents)
	assert.True(t, cfg.HasTransport(TransportRedis))
	assert.False(t, cfg.HasTransport(TransportRabbit))
	assert.Equal(t, time.Minute, cfg.SessionIdleTimeout)
}

func TestTrackingIDPrefersServiceVariable(t *testing.T) {
	cfg, err := FromEnv(lookupFrom(map[string]string{
		"GA_TRACKING_ID":    "G-SERVICE",
		"NEXT_PUBLIC_GA_ID": "G-PUBLIC",
	}))
	require.NoError(t, err)
	assert.Equal(t, "G-SERVICE", cfg.TrackingID)
}

func TestInvalidDebounceKeepsDefault(t *testing.T) {
	cfg, err := FromEnv(lookupFrom(map[string]string{"SEARCH_DEBOUNCE_MS": "-3"}))
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.SearchDebounce)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want error
	}{
		{"search events", map[string]string{"SEARCH_EVENTS": "both"}, ErrUnknownSearchEvents},
		{"filter events", map[string]string{"FILTER_EVENTS": "fancy"}, ErrUnknownFilterEvents},
		{"transport", map[string]string{"TRACKING_TRANSPORT": "kafka"}, ErrUnknownTransport},
		{"measurement secret", map[string]string{"TRACKING_TRANSPORT": "measurement"}, ErrMissingSetting},
		{"rabbit url", map[string]string{"TRACKING_TRANSPORT": "rabbit"}, ErrMissingSetting},
		{"redis url", map[string]string{"TRACKING_TRANSPORT": "redis"}, ErrMissingSetting},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromEnv(lookupFrom(tc.env))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
