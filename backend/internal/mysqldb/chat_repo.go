package mysqldb

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"marketplace-service/backend/internal/entity"
	"marketplace-service/backend/internal/repo"
)

type mysqlChatRepo struct {
	db *gorm.DB
}

func NewMySQLChatRepo(db *gorm.DB) repo.ChatRepo {
	return &mysqlChatRepo{db: db}
}

func (r *mysqlChatRepo) GetChat(ctx context.Context, chatID string) (*entity.Chat, error) {
	var chat entity.Chat
	err := r.db.WithContext(ctx).Where("id = ?", chatID).First(&chat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	return &chat, nil
}

func (r *mysqlChatRepo) TouchLastMessage(ctx context.Context, chatID string, t time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.Chat{}).
		Where("id = ?", chatID).
		Update("last_message_at", t).Error
}

type mysqlMessageRepo struct {
	db *gorm.DB
}

func NewMySQLMessageRepo(db *gorm.DB) repo.MessageRepo {
	return &mysqlMessageRepo{db: db}
}

func (r *mysqlMessageRepo) CreateMessage(ctx context.Context, msg *entity.Message) error {
	// gorm 回填自增ID和CreatedAt，发布到总线的就是这条已持久化记录
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *mysqlMessageRepo) ListByChat(ctx context.Context, chatID string, page, limit int) ([]entity.Message, error) {
	if page < 1 {
		page = 1
	}
	var msgs []entity.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
