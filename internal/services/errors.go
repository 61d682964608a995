package services

// Error is a business failure with a stable identifier. Callers match on
// Code (or errors.Is against the sentinels below), never on Message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Licensing errors.
var (
	ErrInvalidToken   = newError("INVALID_TOKEN", "Invalid Token")
	ErrTokenInactive  = newError("TOKEN_INACTIVE", "Token is inactive")
	ErrTokenExpired   = newError("TOKEN_EXPIRED", "Token has expired")
	ErrDeviceMismatch = newError("DEVICE_MISMATCH", "Access Denied: Token is locked to another device")
	ErrTokenNotFound  = newError("TOKEN_NOT_FOUND", "Token not found")
	ErrInvalidPlan    = newError("INVALID_PLAN", "Invalid plan")
)

// Admin errors.
var (
	ErrUnauthorizedAdmin  = newError("UNAUTHORIZED_ADMIN_ACTION", "Unauthorized Admin Action")
	ErrInvalidCredentials = newError("INVALID_CREDENTIALS", "Invalid Admin Username or Password")
)

// Order errors.
var (
	ErrOrderNotFound       = newError("ORDER_NOT_FOUND", "Order not found")
	ErrOrderAlreadyDecided = newError("ORDER_ALREADY_DECIDED", "Order has already been processed")
	ErrInvalidOrderAction  = newError("INVALID_ORDER_ACTION", "Invalid order action")
	ErrTooManyRequests     = newError("TOO_MANY_REQUESTS", "Please wait before submitting another order")
)

// Ledger errors.
var (
	ErrProductNotFound         = newError("PRODUCT_NOT_FOUND", "Product not found")
	ErrInvalidProduct          = newError("INVALID_PRODUCT", "Invalid product")
	ErrInvalidProductOperation = newError("INVALID_PRODUCT_OPERATION", "Invalid product operation")
	ErrCustomerNotFound        = newError("CUSTOMER_NOT_FOUND", "Customer not found")
	ErrCustomerNameRequired    = newError("CUSTOMER_NAME_REQUIRED", "Customer Name is required for Debt")
	ErrInvalidCart             = newError("INVALID_CART", "Invalid cart")
	ErrInvalidPaymentType      = newError("INVALID_PAYMENT_TYPE", "Invalid payment type")
	ErrInvalidAmount           = newError("INVALID_AMOUNT", "Amount must be positive")
)

// Boundary errors.
var (
	ErrMissingFields = newError("MISSING_FIELDS", "Missing fields")
	ErrUnknownAction = newError("UNKNOWN_ACTION", "Unknown action")
	ErrLockTimeout   = newError("LOCK_TIMEOUT", "Server is busy, please retry")
	ErrBadRequest    = newError("BAD_REQUEST", "Invalid request format")
	ErrInternal      = newError("INTERNAL_ERROR", "Internal server error")
)
