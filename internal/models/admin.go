package models

// AdminCredential is the single operator login. Replacing it removes the old row.
type AdminCredential struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string `gorm:"size:255;not null"` // bcrypt
	BaseModel
}
