package events

import (
	"encoding/json"
	"fmt"
	"time"

	"marketplace-service/backend/internal/entity"
)

type EventType string

const (
	EventStatus       EventType = "STATUS"
	EventMessage      EventType = "MESSAGE"
	EventNotification EventType = "NOTIFICATION"
)

type StatusPayload struct {
	UserID uint64 `json:"userId"`
	Status string `json:"status"` // "online" | "offline"
}

type MessagePayload struct {
	// 已持久化的消息记录，发布前必须先落库
	Message    entity.Message `json:"message"`
	ChatID     string         `json:"chatId"`
	ReceiverID uint64         `json:"receiverId"`
}

type NotificationPayload struct {
	UserID    uint64          `json:"userId"`
	Type      string          `json:"type"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Envelope 是总线上的带类型消息单元。
// 三种载荷互斥，Type 决定哪个字段非空；解码是穷举的，
// 未知类型直接报错而不是被悄悄放过。
type Envelope struct {
	Type         EventType
	Status       *StatusPayload
	Message      *MessagePayload
	Notification *NotificationPayload
}

func NewStatusEnvelope(userID uint64, status string) Envelope {
	return Envelope{Type: EventStatus, Status: &StatusPayload{UserID: userID, Status: status}}
}

func NewMessageEnvelope(msg entity.Message, chatID string, receiverID uint64) Envelope {
	return Envelope{Type: EventMessage, Message: &MessagePayload{Message: msg, ChatID: chatID, ReceiverID: receiverID}}
}

func NewNotificationEnvelope(n entity.Notification) Envelope {
	return Envelope{Type: EventNotification, Notification: &NotificationPayload{
		UserID:    n.UserID,
		Type:      n.Type,
		Message:   n.Message,
		Data:      n.Data,
		CreatedAt: n.CreatedAt,
	}}
}

// 线格式固定为 { "type": ..., "payload": ... }
type wireEnvelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	// 注意不能把空指针装进 interface{} 再判 nil，那样判不出来
	var payload interface{}
	switch e.Type {
	case EventStatus:
		if e.Status != nil {
			payload = e.Status
		}
	case EventMessage:
		if e.Message != nil {
			payload = e.Message
		}
	case EventNotification:
		if e.Notification != nil {
			payload = e.Notification
		}
	default:
		return nil, fmt.Errorf("events: unknown envelope type %q", e.Type)
	}
	if payload == nil {
		return nil, fmt.Errorf("events: envelope %q has no payload", e.Type)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireEnvelope{Type: e.Type, Payload: raw})
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.Type = w.Type
	e.Status, e.Message, e.Notification = nil, nil, nil
	switch w.Type {
	case EventStatus:
		var p StatusPayload
		if err := json.Unmarshal(w.Payload, &p); err != nil {
			return err
		}
		e.Status = &p
	case EventMessage:
		var p MessagePayload
		if err := json.Unmarshal(w.Payload, &p); err != nil {
			return err
		}
		e.Message = &p
	case EventNotification:
		var p NotificationPayload
		if err := json.Unmarshal(w.Payload, &p); err != nil {
			return err
		}
		e.Notification = &p
	default:
		return fmt.Errorf("events: unknown envelope type %q", w.Type)
	}
	return nil
}
