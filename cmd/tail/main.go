// Command tail prints the gtag calls published by the tracking service, read
// from the RabbitMQ tracking topic or from the Redis stream.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/matst80/slask-tracking/pkg/config"
	"github.com/matst80/slask-tracking/pkg/gtag"
	"github.com/matst80/slask-tracking/pkg/logging"
	"github.com/matst80/slask-tracking/pkg/messaging"
)

var source = flag.String("source", config.TransportRabbit, "where to read calls from: rabbit or redis")

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.Must(zap.NewProduction()).Fatal("invalid configuration", zap.Error(err))
	}
	log, err := logging.New(true, cfg.LogLevel)
	if err != nil {
		zap.Must(zap.NewProduction()).Fatal("failed to create logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *source {
	case config.TransportRabbit:
		err = tailRabbit(ctx, cfg, log)
	case config.TransportRedis:
		err = tailRedis(ctx, cfg, log)
	default:
		log.Error("unknown source", zap.String("source", *source))
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("tail failed", zap.Error(err))
	}
}

func logCall(log *zap.Logger, call gtag.Call) {
	log.Info(string(call.Command),
		zap.String("target", call.Target),
		zap.Time("time", call.Time),
		zap.Any("params", call.Params))
}

func tailRabbit(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if cfg.RabbitURL == "" {
		log.Fatal("RABBIT_URL environment variable is not set")
	}
	conn, err := amqp.DialConfig(cfg.RabbitURL, amqp.Config{
		Properties: amqp.NewConnectionProperties(),
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	err = messaging.ListenToTopic(ch, cfg.Country, messaging.TrackingTopic, log, func(d amqp.Delivery) error {
		call, err := messaging.Decode[gtag.Call](d.Body)
		if err != nil {
			log.Warn("undecodable message", zap.Error(err))
			return nil
		}
		logCall(log, call)
		return nil
	})
	if err != nil {
		return err
	}
	log.Info("listening", zap.String("topic", messaging.TopicName(cfg.Country, messaging.TrackingTopic)))
	<-ctx.Done()
	return nil
}

func tailRedis(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if cfg.RedisURL == "" {
		log.Fatal("REDIS_URL environment variable is not set")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer client.Close()

	log.Info("reading stream", zap.String("stream", cfg.RedisStream))
	last := "$"
	for {
		streams, err := client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{cfg.RedisStream, last},
			Block:   5 * time.Second,
			Count:   100,
		}).Result()
		if ctx.Err() != nil {
			return nil
		}
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return err
		}
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				last = msg.ID
				raw, ok := msg.Values["call"].(string)
				if !ok {
					continue
				}
				call, err := messaging.Decode[gtag.Call]([]byte(raw))
				if err != nil {
					log.Warn("undecodable entry", zap.String("id", msg.ID), zap.Error(err))
					continue
				}
				logCall(log, call)
			}
		}
	}
}
