package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect opens a Redis client and checks it answers.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("REDIS_HOST not configured")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to connect to Redis: %w", err)
	}

	log.Println("✅ Redis connected")
	return client, nil
}

// CartEvents publishes cart change notifications on a per-user channel so
// every open cart socket of that user can refresh.
type CartEvents struct {
	client *redis.Client
}

func NewCartEvents(client *redis.Client) *CartEvents {
	return &CartEvents{client: client}
}

func CartChannel(userID int64) string {
	return "cart:" + strconv.FormatInt(userID, 10)
}

// CartChanged publishes event ("updated" or "cleared") for userID.
func (e *CartEvents) CartChanged(ctx context.Context, userID int64, event string) error {
	return e.client.Publish(ctx, CartChannel(userID), event).Err()
}

// Subscribe listens to userID's cart channel. The caller closes the returned
// PubSub.
func (e *CartEvents) Subscribe(ctx context.Context, userID int64) (*redis.PubSub, error) {
	pubsub := e.client.Subscribe(ctx, CartChannel(userID))
	// Wait for the subscription confirmation so no event published after
	// Subscribe returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}
	return pubsub, nil
}
