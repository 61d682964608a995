package models

// OrderStatus is the provisioning state of an order
type OrderStatus string

const (
	OrderPending  OrderStatus = "PENDING"
	OrderApproved OrderStatus = "APPROVED"
	OrderRejected OrderStatus = "REJECTED"
)

// Order is a store's request to buy a token.
type Order struct {
	ID          uint        `json:"-" gorm:"primaryKey"`
	OrderID     string      `json:"orderId" gorm:"uniqueIndex;size:16;not null"`
	StoreName   string      `json:"storeName" gorm:"size:255;not null"`
	Contact     string      `json:"contact" gorm:"size:64;not null;index"` // phone or WhatsApp handle
	Plan        Plan        `json:"plan" gorm:"size:8;not null"`
	Status      OrderStatus `json:"status" gorm:"size:16;not null;index"`
	IssuedToken string      `json:"generatedToken" gorm:"size:32"`
	BaseModel
}

// TableName avoids the ORDER keyword
func (Order) TableName() string {
	return "orders"
}

// IsTerminal reports whether the order has been decided.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderApproved || o.Status == OrderRejected
}
