package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventType 描述文档发生的变化。
type EventType string

const (
	EventDocumentCreated  EventType = "document.created"
	EventDocumentUpdated  EventType = "document.updated"
	EventDocumentArchived EventType = "document.archived"
	EventDocumentRestored EventType = "document.restored"
	EventDocumentDeleted  EventType = "document.deleted"
)

// Event 通过 Redis Pub/Sub 推送给同一用户的其它编辑器，收到后应使本地缓存失效。
type Event struct {
	Type       EventType `json:"type"`
	DocumentID string    `json:"documentId"`
	At         time.Time `json:"at"`
	// Origin 是触发变更的请求 Correlation ID，发起方据此忽略自己的回声。
	Origin string `json:"origin,omitempty"`
}

// EventChannel 返回用户的事件频道名。
func EventChannel(userID uint) string {
	return fmt.Sprintf("document_events:%d", userID)
}

type EventPublisher struct {
	client redis.UniversalClient
}

func NewEventPublisher(client redis.UniversalClient) *EventPublisher {
	return &EventPublisher{client: client}
}

func (p *EventPublisher) Publish(ctx context.Context, userID uint, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.client.Publish(ctx, EventChannel(userID), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}
