package models

import "time"

// Recognized setting keys.
const (
	SettingWebhookURL  = "WEBHOOK_URL"
	SettingPaymentInfo = "PAYMENT_INFO"
)

// Setting stores a key/value configuration entry in the database.
type Setting struct {
	Key       string    `gorm:"size:64;primaryKey"`
	Value     string    `gorm:"type:text"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
