package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
)

// Event types published to project channels.
const (
	EventTaskCreated = "task_created"
	EventTaskStatus  = "task_status_updated"
	EventChatMessage = "chat_message"
)

// Event is the JSON payload published after a commit so connected clients
// subscribed to the project's scope observe the change.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Broadcaster delivers post-commit events scoped to a project.
type Broadcaster interface {
	Publish(ctx context.Context, projectID int, event Event)
}

// RedisBroadcaster publishes events on the project:<id> channel. Delivery
// failures are logged, never surfaced to the caller: the write already
// committed.
type RedisBroadcaster struct {
	rdb *redis.Client
}

func NewRedisBroadcaster(rdb *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{rdb: rdb}
}

func Channel(projectID int) string {
	return fmt.Sprintf("project:%d", projectID)
}

func (b *RedisBroadcaster) Publish(ctx context.Context, projectID int, event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error encoding %s event for project %d: %v", event.Type, projectID, err)
		return
	}
	if err := b.rdb.Publish(ctx, Channel(projectID), body).Err(); err != nil {
		log.Printf("Error publishing %s event for project %d: %v", event.Type, projectID, err)
	}
}

// Subscribe returns a subscription for a project's channel, for consumers
// that bridge events to connected clients.
func (b *RedisBroadcaster) Subscribe(ctx context.Context, projectID int) *redis.PubSub {
	return b.rdb.Subscribe(ctx, Channel(projectID))
}

// Noop discards events; used where no broker is configured.
type Noop struct{}

func (Noop) Publish(ctx context.Context, projectID int, event Event) {}
