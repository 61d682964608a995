package api

import (
	"context"
	"encoding/json"
	"strings"

	"pos-ledger-api/internal/models"
	"pos-ledger-api/internal/services"

	"github.com/shopspring/decimal"
)

// StoreData is the catalogue snapshot loaded by the till
type StoreData struct {
	Products []models.Product `json:"products"`
}

func (d *Dispatcher) getStoreData(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	products, err := d.svc.Catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	return StoreData{Products: products}, nil
}

// ManageProductRequest adds, updates or deletes a product
type ManageProductRequest struct {
	Type    string `json:"type"`
	Product *struct {
		ID string `json:"id"`
		services.ProductInput
	} `json:"product"`
}

func (d *Dispatcher) manageProduct(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req ManageProductRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if req.Product == nil {
		return nil, services.ErrMissingFields
	}

	switch strings.ToUpper(req.Type) {
	case services.ProductOpAdd:
		product, err := d.svc.Catalog.Create(ctx, req.Product.ProductInput)
		if err != nil {
			return nil, err
		}
		return struct {
			Message string `json:"message"`
			ID      string `json:"id"`
		}{"Product Added", product.ID}, nil
	case services.ProductOpUpdate:
		if _, err := d.svc.Catalog.Update(ctx, req.Product.ID, req.Product.ProductInput); err != nil {
			return nil, err
		}
		return message("Product Updated"), nil
	case services.ProductOpDelete:
		if err := d.svc.Catalog.Delete(ctx, req.Product.ID); err != nil {
			return nil, err
		}
		return message("Product Deleted"), nil
	default:
		return nil, services.ErrInvalidProductOperation
	}
}

// ProcessTransactionRequest records a sale. The client's total is
// informational; the ledger computes its own.
type ProcessTransactionRequest struct {
	Cart         []services.CartItem `json:"cart"`
	PaymentType  string              `json:"paymentType"`
	CustomerName string              `json:"customerName"`
	Total        decimal.Decimal     `json:"total"`
}

func (d *Dispatcher) processTransaction(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req ProcessTransactionRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	return d.svc.Ledger.RecordSale(ctx, services.SaleInput{
		Cart:         req.Cart,
		PaymentType:  req.PaymentType,
		CustomerName: req.CustomerName,
	})
}

func (d *Dispatcher) getStoreHistory(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return d.svc.Ledger.History(ctx, services.HistoryLimit)
}

// SearchCustomerRequest filters customers by name
type SearchCustomerRequest struct {
	Query string `json:"query"`
}

func (d *Dispatcher) searchCustomer(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req SearchCustomerRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	return d.svc.Ledger.SearchCustomer(ctx, req.Query)
}

// DebtPaymentRequest records a customer paying down debt
type DebtPaymentRequest struct {
	CustomerID string          `json:"customerId"`
	Amount     decimal.Decimal `json:"amount"`
}

func (d *Dispatcher) processDebtPayment(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req DebtPaymentRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	return d.svc.Ledger.RecordDebtPayment(ctx, req.CustomerID, req.Amount)
}

// DebtLogRequest names the customer whose ledger is requested
type DebtLogRequest struct {
	CustomerID string `json:"customerId"`
}

func (d *Dispatcher) getDebtLog(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req DebtLogRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	return d.svc.Ledger.DebtLog(ctx, req.CustomerID)
}
