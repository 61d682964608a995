package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Clients read prices and balances as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// BaseModel provides the audit timestamps shared by ledger tables
type BaseModel struct {
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// All returns every model that must exist in the schema.
func All() []interface{} {
	return []interface{}{
		&Token{},
		&Order{},
		&Product{},
		&Transaction{},
		&Customer{},
		&DebtLog{},
		&AdminCredential{},
		&Setting{},
	}
}
