package mysqldb

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"marketplace-service/backend/internal/entity"
	"marketplace-service/backend/internal/repo"
)

type mysqlBookingRepo struct {
	db *gorm.DB
}

func NewMySQLBookingRepo(db *gorm.DB) repo.BookingRepo {
	return &mysqlBookingRepo{db: db}
}

func (r *mysqlBookingRepo) GetBooking(ctx context.Context, id uint64) (*entity.Booking, error) {
	var b entity.Booking
	err := r.db.WithContext(ctx).First(&b, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *mysqlBookingRepo) UpdateStatus(ctx context.Context, id uint64, from, to string) (*entity.Booking, error) {
	// 状态写带上读到的旧值做条件，两个并发请求只有一个能改成功
	res := r.db.WithContext(ctx).Model(&entity.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// 区分记录不存在和状态被并发修改
		if _, err := r.GetBooking(ctx, id); err != nil {
			return nil, err
		}
		return nil, repo.ErrConflict
	}
	return r.GetBooking(ctx, id)
}

func (r *mysqlBookingRepo) ListByUser(ctx context.Context, userID uint64, page, limit int) ([]entity.Booking, error) {
	if page < 1 {
		page = 1
	}
	var bs []entity.Booking
	err := r.db.WithContext(ctx).
		Where("customer_id = ? OR performer_id = ?", userID, userID).
		Order("id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&bs).Error
	if err != nil {
		return nil, err
	}
	return bs, nil
}
