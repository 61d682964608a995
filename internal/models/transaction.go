package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentType distinguishes paid sales from sales on credit
type PaymentType string

const (
	PaymentCash PaymentType = "CASH"
	PaymentDebt PaymentType = "DEBT"
)

// LineItem is a snapshot of a sold product. It is not linked to the live
// catalogue row, so receipts survive later renames, repricing and deletes.
type LineItem struct {
	ProductID string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"price"`
}

// Subtotal is qty times unit price.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Qty)))
}

// Transaction is an immutable sale record. Seq gives a total insertion
// order for sales sharing a timestamp.
type Transaction struct {
	Seq           uint64                       `json:"-" gorm:"primaryKey;autoIncrement"`
	ID            string                       `json:"id" gorm:"uniqueIndex;size:16;not null"`
	CreatedAt     time.Time                    `json:"createdAt" gorm:"index"`
	Date          string                       `json:"date" gorm:"size:32;not null"`
	PaymentType   PaymentType                  `json:"type" gorm:"size:8;not null"`
	Total         decimal.Decimal              `json:"total" gorm:"type:decimal(20,2);not null"`
	CustomerLabel string                       `json:"customer" gorm:"size:255"`
	LineItems     datatypes.JSONSlice[LineItem] `json:"items"`
}

// TableName avoids the TRANSACTION keyword
func (Transaction) TableName() string {
	return "transactions"
}
