package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer holds the running debt of a buyer who pays later.
type Customer struct {
	ID          string          `json:"id" gorm:"primaryKey;size:36"`
	Name        string          `json:"name" gorm:"size:255;not null"`
	NameKey     string          `json:"-" gorm:"size:255;not null;default:'';index"`
	DebtBalance decimal.Decimal `json:"debt" gorm:"type:decimal(20,2);not null"`
	Phone       string          `json:"phone" gorm:"size:64"`
	BaseModel
}

// DebtKind classifies a debt ledger entry
type DebtKind string

const (
	DebtIncrease DebtKind = "DEBT_INCREASE"
	DebtPayment  DebtKind = "DEBT_PAYMENT"
)

// ManualPaymentRef marks payments not tied to a sale.
const ManualPaymentRef = "MANUAL_PAYMENT"

// DebtLog is an append-only audit entry for a customer balance change.
type DebtLog struct {
	ID           uint            `json:"-" gorm:"primaryKey"`
	Timestamp    time.Time       `json:"timestamp" gorm:"index"`
	Date         string          `json:"date" gorm:"size:32"`
	CustomerID   string          `json:"customerId" gorm:"size:36;not null;index"`
	CustomerName string          `json:"customerName" gorm:"size:255"`
	Kind         DebtKind        `json:"type" gorm:"size:16;not null"`
	Amount       decimal.Decimal `json:"amount" gorm:"type:decimal(20,2);not null"`
	Reference    string          `json:"ref" gorm:"size:32"`
}
