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

	"gorm.io/gorm"
)

// Order decisions accepted by Decide.
const (
	OrderActionApprove = "APPROVE"
	OrderActionReject  = "REJECT"
)

const maxOrderIDAttempts = 5

// OrderService runs the purchase flow: a store submits an order, the operator
// approves it (minting a token) or rejects it.
type OrderService struct {
	db       *gorm.DB
	tokens   *TokenService
	settings *SettingsService
	notifier OrderNotifier
	throttle Throttle
	loc      *time.Location
	now      func() time.Time
}

// NewOrderService creates an order service. notifier and throttle may be nil.
func NewOrderService(db *gorm.DB, tokens *TokenService, settings *SettingsService, notifier OrderNotifier, throttle Throttle, loc *time.Location) *OrderService {
	if loc == nil {
		loc = time.Local
	}
	return &OrderService{
		db:       db,
		tokens:   tokens,
		settings: settings,
		notifier: notifier,
		throttle: throttle,
		loc:      loc,
		now:      time.Now,
	}
}

// SubmitResult is returned to the store after an order is recorded
type SubmitResult struct {
	OrderID string `json:"orderId"`
	Message string `json:"message"`
}

// OrderView is what a store sees when it checks on an order
type OrderView struct {
	OrderID   string             `json:"orderId"`
	StoreName string             `json:"storeName"`
	Status    models.OrderStatus `json:"status"`
	Token     string             `json:"token"`
}

// DecisionResult is returned to the operator after deciding an order
type DecisionResult struct {
	OrderID string             `json:"orderId"`
	Status  models.OrderStatus `json:"status"`
	Token   string             `json:"token,omitempty"`
}

// Submit records a PENDING order and notifies the operator
func (s *OrderService) Submit(ctx context.Context, storeName, contact, plan string) (*SubmitResult, error) {
	storeName = strings.TrimSpace(storeName)
	contact = strings.TrimSpace(contact)
	if storeName == "" || contact == "" || strings.TrimSpace(plan) == "" {
		return nil, ErrMissingFields
	}
	p, ok := models.ParsePlan(plan)
	if !ok {
		return nil, ErrInvalidPlan
	}

	throttled := false
	if s.throttle != nil {
		allowed, err := s.throttle.Allow(ctx, contact)
		if err != nil {
			// Fail open, ordering must not depend on Redis
			logging.Warnf("Order throttle unavailable - contact: %s, error: %v", contact, err)
		} else if !allowed {
			return nil, ErrTooManyRequests
		} else {
			throttled = true
		}
	}

	order := &models.Order{
		StoreName: storeName,
		Contact:   contact,
		Plan:      p,
		Status:    models.OrderPending,
	}
	if err := s.create(ctx, order); err != nil {
		if throttled {
			if rerr := s.throttle.Reset(ctx, contact); rerr != nil {
				logging.Warnf("Failed to reset order throttle - contact: %s, error: %v", contact, rerr)
			}
		}
		return nil, err
	}
	logging.Infof("Order submitted - order: %s, store: %s, plan: %s", order.OrderID, order.StoreName, order.Plan)

	s.notify(ctx, order)

	return &SubmitResult{
		OrderID: order.OrderID,
		Message: "Order placed successfully",
	}, nil
}

// create assigns a fresh order id, retrying when it is already taken.
func (s *OrderService) create(ctx context.Context, order *models.Order) error {
	db := s.db.WithContext(ctx)
	for attempt := 0; attempt < maxOrderIDAttempts; attempt++ {
		id := shortID()
		var count int64
		if err := db.Model(&models.Order{}).Where("order_id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("check order id: %w", err)
		}
		if count > 0 {
			continue
		}
		order.OrderID = id
		if err := db.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return nil
	}
	return fmt.Errorf("could not allocate an order id after %d attempts", maxOrderIDAttempts)
}

func (s *OrderService) notify(ctx context.Context, order *models.Order) {
	if s.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logging.Errorf("Order notification panicked - order: %s, panic: %v", order.OrderID, r)
		}
	}()
	webhookURL := ""
	if s.settings != nil {
		url, err := s.settings.WebhookURL(ctx)
		if err != nil {
			logging.Errorf("Failed to read webhook URL - order: %s, error: %v", order.OrderID, err)
		}
		webhookURL = url
	}
	s.notifier.NotifyNewOrder(webhookURL, NewOrderEvent{
		Event:   EventNewOrder,
		OrderID: order.OrderID,
		Store:   order.StoreName,
		Contact: order.Contact,
		Plan:    string(order.Plan),
		Time:    s.now().In(s.loc).Format(time.RFC3339),
	})
}

// Lookup finds an order by id, or else the latest order for a contact handle
func (s *OrderService) Lookup(ctx context.Context, query string) (*OrderView, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrMissingFields
	}

	db := s.db.WithContext(ctx)
	var order models.Order
	err := db.Where("order_id = ?", strings.ToUpper(query)).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = db.Where("contact = ?", query).Order("created_at DESC").Order("id DESC").First(&order).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("lookup order: %w", err)
	}

	return &OrderView{
		OrderID:   order.OrderID,
		StoreName: order.StoreName,
		Status:    order.Status,
		Token:     order.IssuedToken,
	}, nil
}

// Decide approves or rejects a pending order. Approval mints the token in the
// same transaction that records the decision.
func (s *OrderService) Decide(ctx context.Context, orderID, action string) (*DecisionResult, error) {
	orderID = strings.ToUpper(strings.TrimSpace(orderID))
	action = strings.ToUpper(strings.TrimSpace(action))
	if orderID == "" || action == "" {
		return nil, ErrMissingFields
	}
	if action != OrderActionApprove && action != OrderActionReject {
		return nil, ErrInvalidOrderAction
	}

	var result *DecisionResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := database.GetOrderForUpdate(tx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("load order: %w", err)
		}
		if order.IsTerminal() {
			return ErrOrderAlreadyDecided
		}

		updates := map[string]interface{}{}
		if action == OrderActionApprove {
			token, err := s.tokens.mint(tx, order.StoreName, order.Plan)
			if err != nil {
				return err
			}
			updates["status"] = models.OrderApproved
			updates["issued_token"] = token.Code
			order.Status = models.OrderApproved
			order.IssuedToken = token.Code
		} else {
			updates["status"] = models.OrderRejected
			order.Status = models.OrderRejected
		}

		if err := tx.Model(order).Updates(updates).Error; err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		result = &DecisionResult{OrderID: order.OrderID, Status: order.Status, Token: order.IssuedToken}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Infof("Order decided - order: %s, status: %s", result.OrderID, result.Status)
	return result, nil
}

// List returns all orders newest first
func (s *OrderService) List(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}
