package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pos-ledger-api/internal/database"
	"pos-ledger-api/internal/models"
	"pos-ledger-api/pkg/logging"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	// LedgerDateFormat is how sale and debt timestamps are rendered for receipts.
	LedgerDateFormat = "2006-01-02 15:04:05"

	// HistoryLimit caps the number of sales returned by History.
	HistoryLimit = 100

	defaultCashCustomer = "General"
)

// CartItem is a line of the cart sent by the till
type CartItem struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Qty   int             `json:"qty"`
	Price decimal.Decimal `json:"price"`
}

// SaleInput describes a sale to record
type SaleInput struct {
	Cart         []CartItem
	PaymentType  string
	CustomerName string
}

// SaleResult identifies a recorded sale
type SaleResult struct {
	TransactionID string          `json:"transactionId"`
	Date          string          `json:"date"`
	Total         decimal.Decimal `json:"total"`
}

// PaymentResult is the customer balance after a debt payment
type PaymentResult struct {
	CustomerID string          `json:"customerId"`
	NewBalance decimal.Decimal `json:"newBalance"`
}

// LedgerService records sales, stock movement and customer debt
type LedgerService struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

func NewLedgerService(db *gorm.DB, loc *time.Location) *LedgerService {
	if loc == nil {
		loc = time.Local
	}
	return &LedgerService{db: db, loc: loc, now: time.Now}
}

func (in SaleInput) validate() (models.PaymentType, error) {
	if len(in.Cart) == 0 {
		return "", ErrInvalidCart
	}
	for _, item := range in.Cart {
		if item.Qty <= 0 || item.Price.IsNegative() {
			return "", ErrInvalidCart
		}
	}
	pt := models.PaymentType(strings.ToUpper(strings.TrimSpace(in.PaymentType)))
	switch pt {
	case models.PaymentCash:
	case models.PaymentDebt:
		if strings.TrimSpace(in.CustomerName) == "" {
			return "", ErrCustomerNameRequired
		}
	default:
		return "", ErrInvalidPaymentType
	}
	return pt, nil
}

// RecordSale decrements stock, appends the transaction and, for DEBT sales,
// charges the customer. Everything commits together or not at all.
// Stock may go negative.
func (s *LedgerService) RecordSale(ctx context.Context, in SaleInput) (*SaleResult, error) {
	paymentType, err := in.validate()
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	dateStr := now.Format(LedgerDateFormat)

	var result *SaleResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := make([]models.LineItem, 0, len(in.Cart))
		total := decimal.Zero

		for _, ci := range in.Cart {
			item := models.LineItem{ProductID: ci.ID, Name: ci.Name, Qty: ci.Qty, UnitPrice: ci.Price}

			if ci.ID != "" {
				var product models.Product
				err := database.ForUpdate(tx).Where("id = ?", ci.ID).First(&product).Error
				switch {
				case err == nil:
					item.Name = product.Name
					item.UnitPrice = product.UnitPrice
					if err := tx.Model(&models.Product{}).Where("id = ?", product.ID).
						UpdateColumn("stock_qty", gorm.Expr("stock_qty - ?", ci.Qty)).Error; err != nil {
						return fmt.Errorf("decrement stock: %w", err)
					}
				case errors.Is(err, gorm.ErrRecordNotFound):
					logging.Warnf("Sale references unknown product - id: %s", ci.ID)
				default:
					return fmt.Errorf("load product: %w", err)
				}
			}

			total = total.Add(item.Subtotal())
			items = append(items, item)
		}

		txID, err := s.newTransactionID(tx)
		if err != nil {
			return err
		}

		label := strings.TrimSpace(in.CustomerName)
		if label == "" {
			label = defaultCashCustomer
		}

		sale := &models.Transaction{
			ID:            txID,
			CreatedAt:     now,
			Date:          dateStr,
			PaymentType:   paymentType,
			Total:         total,
			CustomerLabel: label,
			LineItems:     items,
		}
		if err := tx.Create(sale).Error; err != nil {
			return fmt.Errorf("failed to record transaction: %w", err)
		}

		if paymentType == models.PaymentDebt {
			if err := s.chargeCustomer(tx, label, total, txID, now); err != nil {
				return err
			}
		}

		result = &SaleResult{TransactionID: txID, Date: dateStr, Total: total}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Infof("Sale recorded - transaction: %s, type: %s, total: %s", result.TransactionID, paymentType, result.Total)
	return result, nil
}

// chargeCustomer adds amount to the customer matching name, creating the
// customer when none matches, and logs the increase.
func (s *LedgerService) chargeCustomer(tx *gorm.DB, name string, amount decimal.Decimal, ref string, now time.Time) error {
	customer, err := database.FindCustomerByName(tx, name)
	switch {
	case err == nil:
		customer.DebtBalance = customer.DebtBalance.Add(amount)
		if err := tx.Model(customer).Update("debt_balance", customer.DebtBalance).Error; err != nil {
			return fmt.Errorf("update customer debt: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		customer = &models.Customer{
			ID:          uuid.NewString(),
			Name:        name,
			NameKey:     database.NormalizeName(name),
			DebtBalance: amount,
		}
		if err := tx.Create(customer).Error; err != nil {
			return fmt.Errorf("failed to create customer: %w", err)
		}
		logging.Infof("Customer created - id: %s, name: %s", customer.ID, customer.Name)
	default:
		return fmt.Errorf("find customer: %w", err)
	}

	return appendDebtLog(tx, customer, models.DebtIncrease, amount, ref, now)
}

// RecordDebtPayment reduces a customer's debt. Over-payment clamps the
// balance at zero; the log keeps the amount actually paid.
func (s *LedgerService) RecordDebtPayment(ctx context.Context, customerID string, amount decimal.Decimal) (*PaymentResult, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, ErrMissingFields
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	now := s.now().In(s.loc)
	var result *PaymentResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := database.GetCustomerForUpdate(tx, customerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCustomerNotFound
			}
			return fmt.Errorf("load customer: %w", err)
		}

		balance := customer.DebtBalance.Sub(amount)
		if balance.IsNegative() {
			balance = decimal.Zero
		}
		customer.DebtBalance = balance
		if err := tx.Model(customer).Update("debt_balance", balance).Error; err != nil {
			return fmt.Errorf("update customer debt: %w", err)
		}
		if err := appendDebtLog(tx, customer, models.DebtPayment, amount, models.ManualPaymentRef, now); err != nil {
			return err
		}

		result = &PaymentResult{CustomerID: customer.ID, NewBalance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Infof("Debt payment recorded - customer: %s, amount: %s, balance: %s", result.CustomerID, amount, result.NewBalance)
	return result, nil
}

func appendDebtLog(tx *gorm.DB, customer *models.Customer, kind models.DebtKind, amount decimal.Decimal, ref string, now time.Time) error {
	entry := &models.DebtLog{
		Timestamp:    now,
		Date:         now.Format(LedgerDateFormat),
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		Kind:         kind,
		Amount:       amount,
		Reference:    ref,
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("append debt log: %w", err)
	}
	return nil
}

// History returns up to limit sales, newest first. A limit outside
// 1..HistoryLimit means HistoryLimit.
func (s *LedgerService) History(ctx context.Context, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > HistoryLimit {
		limit = HistoryLimit
	}
	var sales []models.Transaction
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Order("seq DESC").
		Limit(limit).
		Find(&sales).Error
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return sales, nil
}

// SearchCustomer matches query as a case-insensitive substring of the name.
// An empty query returns every customer.
func (s *LedgerService) SearchCustomer(ctx context.Context, query string) ([]models.Customer, error) {
	pattern := "%" + database.EscapeLike(database.NormalizeName(query)) + "%"
	var customers []models.Customer
	err := s.db.WithContext(ctx).
		Where(`name_key LIKE ? ESCAPE '\'`, pattern).
		Order("name ASC").
		Find(&customers).Error
	if err != nil {
		return nil, fmt.Errorf("search customers: %w", err)
	}
	return customers, nil
}

// DebtLog returns a customer's debt entries newest first
func (s *LedgerService) DebtLog(ctx context.Context, customerID string) ([]models.DebtLog, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, ErrMissingFields
	}
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Customer{}).Where("id = ?", customerID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("load customer: %w", err)
	}
	if count == 0 {
		return nil, ErrCustomerNotFound
	}

	var entries []models.DebtLog
	if err := db.Where("customer_id = ?", customerID).Order("timestamp DESC").Order("id DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load debt log: %w", err)
	}
	return entries, nil
}

// newTransactionID picks an id not yet used by another sale.
func (s *LedgerService) newTransactionID(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < maxOrderIDAttempts; attempt++ {
		id := shortID()
		var count int64
		if err := tx.Model(&models.Transaction{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return "", fmt.Errorf("check transaction id: %w", err)
		}
		if count == 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not allocate a transaction id after %d attempts", maxOrderIDAttempts)
}

// shortID is the first group of a random UUID, upper-cased: 8 hex characters.
func shortID() string {
	return strings.ToUpper(strings.SplitN(uuid.NewString(), "-", 2)[0])
}
