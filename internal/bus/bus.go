// Package bus bridges the cognitive core to Redis Streams: raw events are
// read from an inbound stream and executed actions are appended to an
// outbound stream.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Lang-lll/lll-cognitive-core/internal/cognitive"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultInbound  = "lll:cognitive:events"
	DefaultOutbound = "lll:cognitive:actions"
	payloadField    = "payload"
)

// Receiver accepts raw events. *cognitive.Core implements it.
type Receiver interface {
	ReceiveEvent(eventType, data, source string)
}

// Event is the inbound stream payload.
type Event struct {
	Type      string    `json:"type"`
	Data      string    `json:"data"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// ActionMessage is the outbound stream payload.
type ActionMessage struct {
	Action    cognitive.Action `json:"action"`
	Timestamp time.Time        `json:"timestamp"`
}

// Bus handles event ingestion and action publishing via Redis Streams.
type Bus struct {
	rdb      *redis.Client
	inbound  string
	outbound string
	startID  string
	logger   *zap.Logger
}

// New connects to Redis and returns a bus on the given streams. Empty
// stream names take the defaults.
func New(redisURL, inbound, outbound string, logger *zap.Logger) (*Bus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if inbound == "" {
		inbound = DefaultInbound
	}
	if outbound == "" {
		outbound = DefaultOutbound
	}
	return &Bus{rdb: rdb, inbound: inbound, outbound: outbound, startID: "$", logger: logger}, nil
}

// Publish appends a raw event to the inbound stream.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	return b.add(ctx, b.inbound, ev)
}

// Execute appends an action to the outbound stream. It implements
// cognitive.BehaviorExecutor.
func (b *Bus) Execute(ctx context.Context, action cognitive.Action) error {
	return b.add(ctx, b.outbound, ActionMessage{Action: action, Timestamp: time.Now()})
}

func (b *Bus) add(ctx context.Context, stream string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{payloadField: string(data)},
	}).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", stream, err)
	}
	b.logger.Debug("published to stream", zap.String("stream", stream))
	return nil
}

// Run reads the inbound stream and hands every event to r until ctx is
// cancelled. Only events added after Run starts are delivered.
func (b *Bus) Run(ctx context.Context, r Receiver) {
	lastID := b.startID
	b.logger.Info("event bus listening", zap.String("stream", b.inbound))

	for {
		if ctx.Err() != nil {
			return
		}

		results, err := b.rdb.XRead(ctx, &redis.XReadArgs{
			Streams: []string{b.inbound, lastID},
			Count:   10,
			Block:   2 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			if !errors.Is(err, redis.Nil) {
				b.logger.Warn("event bus read failed", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
			}
			continue
		}

		for _, res := range results {
			for _, msg := range res.Messages {
				lastID = msg.ID
				b.deliver(msg, r)
			}
		}
	}
}

func (b *Bus) deliver(msg redis.XMessage, r Receiver) {
	data, ok := msg.Values[payloadField].(string)
	if !ok {
		b.logger.Debug("stream entry without payload", zap.String("id", msg.ID))
		return
	}
	var ev Event
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		b.logger.Debug("undecodable stream entry", zap.String("id", msg.ID), zap.Error(err))
		return
	}
	r.ReceiveEvent(ev.Type, ev.Data, ev.Source)
}

// Close shuts down the Redis connection.
func (b *Bus) Close() error {
	return b.rdb.Close()
}
