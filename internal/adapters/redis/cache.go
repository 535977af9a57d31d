package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// EventStatus is the cached point-in-time view served by the status
// endpoint. It is deliberately not linked to in-flight intents.
type EventStatus struct {
	AvailableTickets int `json:"available_tickets"`
	WaitingListCount int `json:"waiting_list_count"`
}

func (c *Cache) GetEventStatus(ctx context.Context, eventID string) (*EventStatus, error) {
	val, err := c.client.Get(ctx, "status:"+eventID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var status EventStatus
	if err := json.Unmarshal(val, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Cache) SetEventStatus(ctx context.Context, eventID string, status EventStatus, ttl time.Duration) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "status:"+eventID, data, ttl).Err()
}
