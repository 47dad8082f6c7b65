package entity

import "time"

// Role 取值：customer / performer / agency / partner / admin
type User struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Username    string `gorm:"type:varchar(64);uniqueIndex" json:"username"`
	Role        string `gorm:"type:varchar(16);index" json:"role"`
	DisplayName string `gorm:"type:varchar(128)" json:"displayName"`
	City        string `gorm:"type:varchar(64);index" json:"city"`
	Category    string `gorm:"type:varchar(64);index" json:"category"`
	Rating      float64   `gorm:"default:0" json:"rating"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
