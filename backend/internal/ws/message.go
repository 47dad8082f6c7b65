package ws

import (
	"fmt"
	"strconv"

	"marketplace-service/backend/internal/entity"
	"marketplace-service/backend/internal/events"
)

type ClientMessage struct {
	Type       string `json:"type"`
	UserID     uint64 `json:"userId,omitempty"`
	ChatID     string `json:"chatId,omitempty"`
	ReceiverID uint64 `json:"receiverId,omitempty"`
	Content    string `json:"content,omitempty"`
}

type ServerMessage struct {
	Type         string                      `json:"type"`
	UserID       uint64                      `json:"userId,omitempty"`
	Status       string                      `json:"status,omitempty"`
	ChatID       string                      `json:"chatId,omitempty"`
	SenderName   string                      `json:"senderName,omitempty"`
	Preview      string                      `json:"preview,omitempty"`
	Users        []uint64                    `json:"users,omitempty"`
	Message      *entity.Message             `json:"message,omitempty"`
	Notification *events.NotificationPayload `json:"notification,omitempty"`
	Content      string                      `json:"content,omitempty"`
}

// 出站消息接口
type OutboundMessage interface {
	MessageType() string
}

// 隐式实现（继承） OutboundMessage 接口
func (m ServerMessage) MessageType() string { return m.Type }

// 房间命名：个人房间与会话房间共用一个 rooms 表，用前缀隔开，
// 避免数字形式的 chatId 和 userId 撞名
func userRoom(userID uint64) string { return "user:" + strconv.FormatUint(userID, 10) }
func chatRoom(chatID string) string { return fmt.Sprintf("chat:%s", chatID) }
