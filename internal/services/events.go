package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/morerecipes/apiserver/types"
)

// EventType names a recipe lifecycle transition.
type EventType string

const (
	EventRecipeCreated EventType = "recipe.created"
	EventRecipeUpdated EventType = "recipe.updated"
	EventRecipeDeleted EventType = "recipe.deleted"
)

// RecipeEvent is the payload published for every recipe lifecycle transition.
type RecipeEvent struct {
	Type       EventType `json:"type"`
	RecipeID   int       `json:"recipe_id"`
	UserID     int       `json:"user_id"`
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher is the broker operation used to emit events. *mq.MQ satisfies it.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// EventPublisher emits recipe events on a single channel. Publishing is best
// effort: failures are logged and never returned. A nil *EventPublisher is a
// no-op.
type EventPublisher struct {
	publisher Publisher
	channel   string
	logger    *slog.Logger
	now       func() time.Time
}

func NewEventPublisher(publisher Publisher, channel string, logger *slog.Logger) *EventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventPublisher{
		publisher: publisher,
		channel:   channel,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (e *EventPublisher) publish(ctx context.Context, eventType EventType, recipe types.Recipe) {
	if e == nil || e.publisher == nil {
		return
	}

	event := RecipeEvent{
		Type:       eventType,
		RecipeID:   recipe.ID,
		UserID:     recipe.UserID,
		Name:       recipe.Name,
		OccurredAt: e.now(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		e.logger.ErrorContext(ctx, "encode recipe event", "type", eventType, "error", err)
		return
	}

	attrs := map[string]string{
		"type":      string(eventType),
		"recipe_id": strconv.Itoa(recipe.ID),
	}
	if _, err := e.publisher.Publish(ctx, e.channel, data, attrs); err != nil {
		e.logger.ErrorContext(ctx, "publish recipe event",
			"type", eventType,
			"recipe_id", recipe.ID,
			"channel", e.channel,
			"error", err,
		)
	}
}

// DecodeRecipeEvent parses a payload produced by EventPublisher.
func DecodeRecipeEvent(data []byte) (RecipeEvent, error) {
	var event RecipeEvent
	err := json.Unmarshal(data, &event)
	return event, err
}
