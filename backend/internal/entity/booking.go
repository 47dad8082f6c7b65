package entity

import "time"

// Status 取值：pending / confirmed / declined / completed / cancelled
type Booking struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID  uint64 `gorm:"index" json:"customerId"`
	PerformerID uint64 `gorm:"index" json:"performerId"`
	EventDate   time.Time `json:"eventDate"`
	Status      string `gorm:"type:varchar(16);index" json:"status"`
	Price       uint64 `gorm:"default:0" json:"price"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
