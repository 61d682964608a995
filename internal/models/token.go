package models

import "time"

// Token is a device-bindable, time-limited licence for one store.
type Token struct {
	ID            uint      `json:"-" gorm:"primaryKey"`
	Code          string    `json:"token" gorm:"uniqueIndex;size:32;not null"`
	StoreName     string    `json:"storeName" gorm:"size:255;not null"`
	Duration      Plan      `json:"duration" gorm:"size:8;not null"`
	Expiry        time.Time `json:"expiry" gorm:"index"`
	IsActive      bool      `json:"isActive" gorm:"not null"`
	BoundDeviceID string    `json:"deviceId" gorm:"size:255;not null"` // empty until first login
	BaseModel
}

// IsBound reports whether a device has claimed the token.
func (t *Token) IsBound() bool {
	return t.BoundDeviceID != ""
}
