// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisBridge forwards local changes to a Redis pub/sub channel and replays
// changes published by other instances into the local hub, so watchers on
// every instance see every write.
type RedisBridge struct {
	client  *redis.Client
	channel string
	origin  string
	hub     *Hub
	logger  *slog.Logger
}

// NewRedisBridge connects to url and attaches to hub.
func NewRedisBridge(url, channel string, hub *Hub, logger *slog.Logger) (*RedisBridge, error) {
	if url == "" {
		return nil, errors.New("redis URL is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	b := &RedisBridge{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		hub:     hub,
		logger:  logger,
	}
	hub.Relay(b.forward)
	return b, nil
}

// forward publishes a local change. Failures only cost remote freshness.
func (b *RedisBridge) forward(c Change) {
	if c.Origin != "" {
		return // replayed from another instance
	}
	c.Origin = b.origin
	payload, err := json.Marshal(c)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.logger.Warn("publishing change failed", "error", err, "collection", c.Collection)
	}
}

// Run replays remote changes until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context) {
	sub := b.client.Subscribe(ctx, b.channel)
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var c Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				b.logger.Warn("ignoring malformed change", "error", err)
				continue
			}
			if c.Origin == b.origin {
				continue
			}
			b.hub.Notify(c)
		}
	}
}

// Close releases the Redis connection.
func (b *RedisBridge) Close() error {
	return b.client.Close()
}
