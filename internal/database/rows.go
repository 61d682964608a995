package database

import (
	"pos-ledger-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ForUpdate locks the selected rows until the surrounding transaction ends.
// SQLite has no row locks and the clause is dropped by its dialect.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// GetTokenForUpdate loads a token by code with a row lock
func GetTokenForUpdate(tx *gorm.DB, code string) (*models.Token, error) {
	var token models.Token
	if err := ForUpdate(tx).Where("code = ?", code).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// GetOrderForUpdate loads an order by its public id with a row lock
func GetOrderForUpdate(tx *gorm.DB, orderID string) (*models.Order, error) {
	var order models.Order
	if err := ForUpdate(tx).Where("order_id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// GetCustomerForUpdate loads a customer by id with a row lock
func GetCustomerForUpdate(tx *gorm.DB, id string) (*models.Customer, error) {
	var customer models.Customer
	if err := ForUpdate(tx).Where("id = ?", id).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindCustomerByName matches a customer on its stored name key, the
// NormalizeName form of the name. The oldest match wins.
func FindCustomerByName(tx *gorm.DB, name string) (*models.Customer, error) {
	var customer models.Customer
	err := ForUpdate(tx).
		Where("name_key = ?", NormalizeName(name)).
		Order("created_at ASC").
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}
