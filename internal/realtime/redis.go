package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisNotifier publishes signals on Redis pub/sub so every instance behind
// a load balancer sees writes made by any other.
type RedisNotifier struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

func NewRedisNotifier(client *redis.Client, prefix string, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, prefix: prefix, logger: logger}
}

// ConnectRedis parses a redis:// URL and pings the server.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (n *RedisNotifier) channel(topic string) string {
	return n.prefix + topic
}

func (n *RedisNotifier) Publish(ctx context.Context, topic string) error {
	if err := n.client.Publish(ctx, n.channel(topic), "changed").Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (n *RedisNotifier) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	ps := n.client.Subscribe(ctx, n.channel(topic))

	// Wait for the subscribe confirmation so no publish after this call is missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	sub := &redisSubscription{
		ps:   ps,
		ch:   make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go sub.forward(n.logger.With(zap.String("topic", topic)))
	return sub, nil
}

type redisSubscription struct {
	ps   *redis.PubSub
	ch   chan struct{}
	done chan struct{}
	once sync.Once
}

// forward drains the pub/sub channel until it is closed by Close or by
// the client going away. C is closed after the last signal.
func (s *redisSubscription) forward(logger *zap.Logger) {
	defer close(s.done)
	defer close(s.ch)
	for range s.ps.Channel() {
		signal(s.ch)
	}
	logger.Debug("redis subscription ended")
}

func (s *redisSubscription) C() <-chan struct{} { return s.ch }

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.ps.Close()
		<-s.done
	})
	return err
}
