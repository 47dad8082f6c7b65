package entity

import (
	"encoding/json"
	"time"
)

type Notification struct {
	ID        uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64          `gorm:"index" json:"userId"`
	Type      string          `gorm:"type:varchar(32)" json:"type"`
	Message   string          `gorm:"type:varchar(255)" json:"message"`
	Data      json.RawMessage `gorm:"type:json" json:"data,omitempty"`
	ReadAt    *time.Time      `json:"readAt,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
