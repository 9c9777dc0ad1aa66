package domain

import "time"

// MaxDevicesPerUser bounds push fan-out; the least recently registered devices are dropped first
const MaxDevicesPerUser = 10

// FCMToken is one browser or device that receives approval and reminder pushes
type FCMToken struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	UserID     string    `json:"user_id" gorm:"index;not null"`
	Token      string    `json:"-" gorm:"uniqueIndex;not null"`
	DeviceInfo string    `json:"device_info"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"index"`
}
