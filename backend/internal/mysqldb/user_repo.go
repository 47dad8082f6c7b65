package mysqldb

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"marketplace-service/backend/internal/entity"
	"marketplace-service/backend/internal/repo"
)

type mysqlUserRepo struct {
	db *gorm.DB
}

func NewMySQLUserRepo(db *gorm.DB) repo.UserRepo {
	return &mysqlUserRepo{db: db}
}

func (r *mysqlUserRepo) GetUser(ctx context.Context, userID uint64) (*entity.User, error) {
	var u entity.User
	err := r.db.WithContext(ctx).First(&u, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *mysqlUserRepo) ListPerformers(ctx context.Context, page, limit int, search string) ([]entity.User, error) {
	if page < 1 {
		page = 1
	}
	q := r.db.WithContext(ctx).Where("role = ?", "performer")
	if search != "" {
		q = q.Where("display_name LIKE ?", "%"+search+"%")
	}
	var users []entity.User
	err := q.Order("rating DESC, id ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *mysqlUserRepo) SearchPerformers(ctx context.Context, params map[string]string) ([]entity.User, error) {
	q := r.db.WithContext(ctx).Where("role = ?", "performer")
	if city := params["city"]; city != "" {
		q = q.Where("city = ?", city)
	}
	if category := params["category"]; category != "" {
		q = q.Where("category = ?", category)
	}
	if text := params["q"]; text != "" {
		q = q.Where("display_name LIKE ?", "%"+text+"%")
	}
	var users []entity.User
	if err := q.Order("rating DESC, id ASC").Limit(100).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
