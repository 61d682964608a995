package models

import "github.com/shopspring/decimal"

// Product is a catalogue entry. StockQty is decremented by every sale and may
// go negative.
type Product struct {
	ID        string          `json:"id" gorm:"primaryKey;size:36"`
	Name      string          `json:"name" gorm:"size:255;not null"`
	UnitPrice decimal.Decimal `json:"price" gorm:"type:decimal(20,2);not null"`
	StockQty  int             `json:"stock" gorm:"not null"`
	Category  string          `json:"category" gorm:"size:128"`
	BaseModel
}
