package mysqldb

import (
	"context"
	"time"

	"gorm.io/gorm"

	"marketplace-service/backend/internal/entity"
	"marketplace-service/backend/internal/repo"
)

type mysqlNotificationRepo struct {
	db *gorm.DB
}

func NewMySQLNotificationRepo(db *gorm.DB) repo.NotificationRepo {
	return &mysqlNotificationRepo{db: db}
}

func (r *mysqlNotificationRepo) CreateNotification(ctx context.Context, n *entity.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *mysqlNotificationRepo) ListByUser(ctx context.Context, userID uint64, page, limit int) ([]entity.Notification, error) {
	if page < 1 {
		page = 1
	}
	var ns []entity.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&ns).Error
	if err != nil {
		return nil, err
	}
	return ns, nil
}

func (r *mysqlNotificationRepo) MarkRead(ctx context.Context, id, userID uint64) error {
	// 带 user_id 条件防止标记别人的通知
	res := r.db.WithContext(ctx).Model(&entity.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
