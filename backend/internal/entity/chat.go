package entity

import "time"

type Chat struct {
	ID            string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CustomerID    uint64 `gorm:"index" json:"customerId"`
	PerformerID   uint64 `gorm:"index" json:"performerId"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Message struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID     string `gorm:"type:varchar(64);index" json:"chatId"`
	SenderID   uint64 `gorm:"index" json:"senderId"`
	ReceiverID uint64 `gorm:"index" json:"receiverId"`
	Content    string `gorm:"type:text" json:"content"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}
