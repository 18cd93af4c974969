package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/matst80/slask-tracking/pkg/config"
	"github.com/matst80/slask-tracking/pkg/gtag"
)

type transports struct {
	taggers   gtag.MultiTagger
	dataLayer *gtag.DataLayer
	closers   []func() error
}

// Tagger returns the tagging function for the sink, nil when nothing is
// enabled.
func (t *transports) Tagger() gtag.Tagger {
	switch len(t.taggers) {
	case 0:
		return nil
	case 1:
		return t.taggers[0]
	}
	return t.taggers
}

func (t *transports) Close(ctx context.Context) error {
	var errs []error
	for _, c := range t.closers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Keeps this many calls in the in-memory data layer.
const dataLayerLimit = 1000

func buildTransports(cfg *config.Config, log *zap.Logger) (*transports, error) {
	ret := &transports{}
	for _, name := range cfg.Transports {
		switch name {
		case config.TransportMemory:
			ret.dataLayer = gtag.NewDataLayer(dataLayerLimit)
			ret.taggers = append(ret.taggers, ret.dataLayer)

		case config.TransportMeasurement:
			m := gtag.NewMeasurementTagger(gtag.MeasurementOptions{
				Endpoint:      cfg.MeasurementEndpoint,
				MeasurementID: cfg.TrackingID,
				APISecret:     cfg.MeasurementSecret,
			}, log)
			ret.taggers = append(ret.taggers, m)
			ret.closers = append(ret.closers, func() error {
				m.Close()
				return nil
			})

		case config.TransportRabbit:
			r, err := gtag.NewRabbitTagger(cfg.RabbitURL, cfg.Country)
			if err != nil {
				_ = ret.Close(context.Background())
				return nil, fmt.Errorf("rabbit transport: %w", err)
			}
			ret.taggers = append(ret.taggers, r)
			ret.closers = append(ret.closers, r.Close)

		case config.TransportRedis:
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisURL,
				Password: cfg.RedisPassword,
				DB:       0,
			})
			r := gtag.NewRedisTagger(client, cfg.RedisStream)
			ret.taggers = append(ret.taggers, r)
			ret.closers = append(ret.closers, r.Close)
		}
		log.Info("transport enabled", zap.String("transport", name))
	}
	return ret, nil
}
