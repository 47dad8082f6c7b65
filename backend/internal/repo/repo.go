package repo

import (
	"context"
	"errors"
	"time"

	"marketplace-service/backend/internal/entity"
)

var ErrNotFound = errors.New("record not found")

// ErrConflict：带前置条件的更新没有命中任何行（并发写抢先改掉了状态）
var ErrConflict = errors.New("conflicting concurrent update")

// UserRepo 定义了用户数据的业务契约（只读，写路径不在核心范围内）
type UserRepo interface {
	GetUser(ctx context.Context, userID uint64) (*entity.User, error)
	// 分页列出表演者；search 为空表示不过滤
	ListPerformers(ctx context.Context, page, limit int, search string) ([]entity.User, error)
	// 条件搜索；params 的键：city / category / q
	SearchPerformers(ctx context.Context, params map[string]string) ([]entity.User, error)
}

type ChatRepo interface {
	GetChat(ctx context.Context, chatID string) (*entity.Chat, error)
	// 新消息写入后刷新会话时间戳
	TouchLastMessage(ctx context.Context, chatID string, t time.Time) error
}

type MessageRepo interface {
	CreateMessage(ctx context.Context, msg *entity.Message) error
	ListByChat(ctx context.Context, chatID string, page, limit int) ([]entity.Message, error)
}

type NotificationRepo interface {
	CreateNotification(ctx context.Context, n *entity.Notification) error
	ListByUser(ctx context.Context, userID uint64, page, limit int) ([]entity.Notification, error)
	MarkRead(ctx context.Context, id, userID uint64) error
}

type BookingRepo interface {
	GetBooking(ctx context.Context, id uint64) (*entity.Booking, error)
	// 条件更新：只有当前状态仍为 from 时才写入 to，
	// 否则返回 ErrConflict（记录不存在时返回 ErrNotFound）
	UpdateStatus(ctx context.Context, id uint64, from, to string) (*entity.Booking, error)
	ListByUser(ctx context.Context, userID uint64, page, limit int) ([]entity.Booking, error)
}
