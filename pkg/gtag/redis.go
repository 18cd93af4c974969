package gtag

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const redisTagTimeout = 2 * time.Second

// RedisTagger appends every gtag call to a Redis stream, one JSON encoded
// Call per entry under the "call" field.
type RedisTagger struct {
	client *redis.Client
	stream string
	now    func() time.Time
}

func NewRedisTagger(client *redis.Client, stream string) *RedisTagger {
	return &RedisTagger{client: client, stream: stream, now: time.Now}
}

func (t *RedisTagger) Tag(command Command, target string, params Params) error {
	payload, err := sonic.Marshal(Call{
		Command: command,
		Target:  target,
		Params:  params,
		Time:    t.now(),
	})
	if err != nil {
		return fmt.Errorf("encode call: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisTagTimeout)
	defer cancel()
	if err := t.client.XAdd(ctx, &redis.XAddArgs{
		Stream: t.stream,
		Values: map[string]any{"call": string(payload)},
	}).Err(); err != nil {
		return fmt.Errorf("append to stream %s: %w", t.stream, err)
	}
	return nil
}

func (t *RedisTagger) Close() error {
	return t.client.Close()
}
