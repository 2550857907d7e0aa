package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"lifebee/internal/websocket"
	"lifebee/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Publisher pushes a delivered notification to live consumers
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// HubPublisher sends to the websocket connections of the recipient in this process
type HubPublisher struct {
	hub *websocket.Hub
}

func NewHubPublisher(hub *websocket.Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	p.hub.SendToUser(msg.UserID, payload)
	return nil
}

// RedisPublisher publishes to a Redis channel so API processes other than the
// dispatcher can reach their websocket clients
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// MultiPublisher fans out to every publisher and joins their errors
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, msg Message) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscriber forwards messages from the Redis channel to the local websocket hub
type Subscriber struct {
	client  *redis.Client
	channel string
	hub     *websocket.Hub
	log     logger.Logger
}

func NewSubscriber(client *redis.Client, channel string, hub *websocket.Hub, log logger.Logger) *Subscriber {
	return &Subscriber{client: client, channel: channel, hub: hub, log: log}
}

// Run blocks until ctx is cancelled
func (s *Subscriber) Run(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.channel, err)
	}
	s.log.Infof("Subscribed to notification channel %s", s.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			s.forward([]byte(m.Payload))
		}
	}
}

func (s *Subscriber) forward(payload []byte) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.log.Warnf("dropping malformed notification message: %v", err)
		return
	}
	s.hub.SendToUser(msg.UserID, payload)
}
