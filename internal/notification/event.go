// Package notification turns outbox events into user notifications and delivers
// them over websocket and Redis.
package notification

import (
	"encoding/json"
	"time"

	"lifebee/internal/model"

	"github.com/google/uuid"
)

// Message is the wire form pushed to websocket clients and Redis subscribers
type Message struct {
	ID        uuid.UUID       `json:"id"`
	EventID   uuid.UUID       `json:"event_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEvent builds a pending outbox event for userID. data is stored as a JSON object.
func NewEvent(userID uuid.UUID, eventType, title, message string, data map[string]interface{}) model.OutboxEvent {
	return model.OutboxEvent{
		UserID:  userID,
		Type:    eventType,
		Title:   title,
		Message: message,
		Data:    encodeData(data),
		Status:  model.OutboxStatusPending,
	}
}

func encodeData(data map[string]interface{}) string {
	if len(data) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// NewMessage converts a stored notification to its wire form
func NewMessage(n *model.Notification) Message {
	data := json.RawMessage(n.Data)
	if !json.Valid(data) {
		data = json.RawMessage("{}")
	}
	return Message{
		ID:        n.ID,
		EventID:   n.EventID,
		UserID:    n.UserID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Data:      data,
		CreatedAt: n.CreatedAt,
	}
}
