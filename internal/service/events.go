package service

import (
	"context"
	"time"

	"github.com/agrokasa/advert_market/internal/logging"
	"github.com/agrokasa/advert_market/internal/mykafka"
)

type AdvertEvent struct {
	Type     string    `json:"type"`
	AdvertID string    `json:"advertID"`
	OwnerID  string    `json:"ownerID"`
	ActorID  string    `json:"actorID"`
	Title    string    `json:"title,omitempty"`
	At       time.Time `json:"at"`
}

type UserEvent struct {
	Type   string    `json:"type"`
	UserID string    `json:"userID"`
	Role   string    `json:"role"`
	At     time.Time `json:"at"`
}

// publish never fails the caller: events are best effort.
func publish(ctx context.Context, pub mykafka.Publisher, topic, key string, event any) {
	if pub == nil {
		return
	}
	if err := pub.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "topic", topic, "key", key, "error", err)
	}
}
