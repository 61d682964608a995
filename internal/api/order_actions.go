package api

import (
	"context"
	"encoding/json"

	"pos-ledger-api/internal/services"
)

// CreateOrderRequest represents a purchase request from a store.
// Older clients send the contact handle as "whatsapp".
type CreateOrderRequest struct {
	StoreName string `json:"storeName"`
	Contact   string `json:"contact"`
	WhatsApp  string `json:"whatsapp"`
	Plan      string `json:"plan"`
}

func (d *Dispatcher) createOrder(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req CreateOrderRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	contact := req.Contact
	if contact == "" {
		contact = req.WhatsApp
	}
	return d.svc.Orders.Submit(ctx, req.StoreName, contact, req.Plan)
}

// CheckOrderRequest looks up an order by id or contact handle
type CheckOrderRequest struct {
	Query string `json:"query"`
}

func (d *Dispatcher) checkOrderStatus(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req CheckOrderRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	return d.svc.Orders.Lookup(ctx, req.Query)
}

func (d *Dispatcher) getPublicSettings(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return d.svc.Settings.Public(ctx)
}

// ProcessOrderRequest approves or rejects an order
type ProcessOrderRequest struct {
	OrderID string `json:"orderId"`
	Action  string `json:"action"`
}

func (d *Dispatcher) adminProcessOrder(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req ProcessOrderRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	return d.svc.Orders.Decide(ctx, req.OrderID, req.Action)
}

func (d *Dispatcher) adminGetOrders(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return d.svc.Orders.List(ctx)
}

// SaveSettingsRequest replaces the operator settings
type SaveSettingsRequest struct {
	WebhookURL  string `json:"webhookUrl"`
	PaymentInfo string `json:"paymentInfo"`
}

func (d *Dispatcher) adminGetSettings(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return d.svc.Settings.Get(ctx)
}

func (d *Dispatcher) adminSaveSettings(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req SaveSettingsRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if err := d.svc.Settings.Save(ctx, services.Settings{WebhookURL: req.WebhookURL, PaymentInfo: req.PaymentInfo}); err != nil {
		return nil, err
	}
	return message("Saved"), nil
}
