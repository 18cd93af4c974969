// Package config loads the tracking service configuration once at startup.
//
// Values come from the process environment, optionally seeded from .env
// files. Nothing else in the service reads the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	Development = "development"
	Production  = "production"

	// SearchEventsSplit keeps the debounced query tracker and the
	// result-count correlator as two independent emitters.
	SearchEventsSplit = "split"
	// SearchEventsCollapsed emits one debounced search event carrying the
	// latest observed result count.
	SearchEventsCollapsed = "collapsed"

	FilterEventsGeneric = "generic"
	FilterEventsNamed   = "named"

	TransportMemory      = "memory"
	TransportMeasurement = "measurement"
	TransportRabbit      = "rabbit"
	TransportRedis       = "redis"
)

const (
	defaultCurrency            = "USD"
	defaultSearchDebounce      = 1000 * time.Millisecond
	defaultListenAddress       = ":8080"
	defaultCountry             = "se"
	defaultRedisStream         = "gtag"
	defaultMeasurementEndpoint = "https://www.google-analytics.com/mp/collect"
	defaultSessionIdleTimeout  = 30 * time.Minute
	defaultLogLevel            = "info"
)

var (
	ErrUnknownSearchEvents = errors.New("unknown search event mode")
	ErrUnknownFilterEvents = errors.New("unknown filter event style")
	ErrUnknownTransport    = errors.New("unknown transport")
	ErrMissingSetting      = errors.New("missing setting")
)

type Config struct {
	// TrackingID is the analytics destination. Empty disables sending.
	TrackingID  string
	Environment string
	Currency    string
	LogLevel    string

	SearchDebounce time.Duration
	SearchEvents   string
	FilterEvents   string

	Transports          []string
	MeasurementSecret   string
	MeasurementEndpoint string
	RabbitURL           string
	Country             string
	RedisURL            string
	RedisPassword       string
	RedisStream         string

	ListenAddress      string
	SessionIdleTimeout time.Duration
}

// IsDevelopment reports whether diagnostic logging and the debug_mode
// parameter should be enabled.
func (c *Config) IsDevelopment() bool {
	return c.Environment != Production
}

func (c *Config) HasTransport(name string) bool {
	for _, t := range c.Transports {
		if t == name {
			return true
		}
	}
	return false
}

// Load reads .env.local and .env (when present) and then the environment.
func Load() (*Config, error) {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else {
		for _, f := range []string{".env.local", ".env"} {
			if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("load %s: %w", f, err)
			}
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from a lookup function and validates it.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	get := func(def string, keys ...string) string {
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return def
	}
	millis := func(def time.Duration, key string) time.Duration {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return time.Duration(n) * time.Millisecond
			}
		}
		return def
	}

	cfg := &Config{
		TrackingID:          get("", "GA_TRACKING_ID", "NEXT_PUBLIC_GA_ID"),
		Environment:         strings.ToLower(get(Development, "APP_ENV", "NODE_ENV")),
		Currency:            get(defaultCurrency, "TRACKING_CURRENCY"),
		LogLevel:            get(defaultLogLevel, "LOG_LEVEL"),
		SearchDebounce:      millis(defaultSearchDebounce, "SEARCH_DEBOUNCE_MS"),
		SearchEvents:        strings.ToLower(get(SearchEventsCollapsed, "SEARCH_EVENTS")),
		FilterEvents:        strings.ToLower(get(FilterEventsGeneric, "FILTER_EVENTS")),
		Transports:          splitList(get(TransportMemory, "TRACKING_TRANSPORT")),
		MeasurementSecret:   get("", "GA_API_SECRET"),
		MeasurementEndpoint: get(defaultMeasurementEndpoint, "GA_ENDPOINT"),
		RabbitURL:           get("", "RABBIT_URL", "RABBIT_HOST"),
		Country:             get(defaultCountry, "COUNTRY"),
		RedisURL:            get("", "REDIS_URL"),
		RedisPassword:       get("", "REDIS_PASSWORD"),
		RedisStream:         get(defaultRedisStream, "REDIS_STREAM"),
		ListenAddress:       get(defaultListenAddress, "LISTEN_ADDRESS"),
		SessionIdleTimeout:  defaultSessionIdleTimeout,
	}
	if v, ok := lookup("SESSION_IDLE_SECONDS"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionIdleTimeout = time.Duration(n) * time.Second
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.SearchEvents {
	case SearchEventsSplit, SearchEventsCollapsed:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSearchEvents, c.SearchEvents)
	}
	switch c.FilterEvents {
	case FilterEventsGeneric, FilterEventsNamed:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFilterEvents, c.FilterEvents)
	}
	for _, t := range c.Transports {
		switch t {
		case TransportMemory:
		case TransportMeasurement:
			if c.MeasurementSecret == "" {
				return fmt.Errorf("%w: GA_API_SECRET for %s transport", ErrMissingSetting, t)
			}
		case TransportRabbit:
			if c.RabbitURL == "" {
				return fmt.Errorf("%w: RABBIT_URL for %s transport", ErrMissingSetting, t)
			}
		case TransportRedis:
			if c.RedisURL == "" {
				return fmt.Errorf("%w: REDIS_URL for %s transport", ErrMissingSetting, t)
			}
		default:
			return fmt.Errorf("%w: %q", ErrUnknownTransport, t)
		}
	}
	return nil
}

func splitList(v string) []string {
	ret := make([]string, 0)
	for _, p := range strings.Split(v, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			ret = append(ret, p)
		}
	}
	return ret
}
