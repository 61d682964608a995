package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"pos-ledger-api/internal/metrics"
	"pos-ledger-api/internal/services"
	"pos-ledger-api/pkg/logging"

	log "github.com/sirupsen/logrus"
)

type authKind int

const (
	authNone authKind = iota
	authAdmin
	authDevice
)

type actionFunc func(ctx context.Context, payload json.RawMessage) (interface{}, error)

type action struct {
	auth   authKind
	handle actionFunc
}

// Services groups the business services the dispatcher routes to
type Services struct {
	Tokens   *services.TokenService
	Orders   *services.OrderService
	Catalog  *services.CatalogService
	Ledger   *services.LedgerService
	Admin    *services.AdminService
	Settings *services.SettingsService
}

// Dispatcher runs every action under the global request lock
type Dispatcher struct {
	svc         Services
	locker      services.Locker
	lockTimeout time.Duration
	actions     map[string]action
}

// NewDispatcher builds the action table
func NewDispatcher(svc Services, locker services.Locker, lockTimeout time.Duration) *Dispatcher {
	d := &Dispatcher{
		svc:         svc,
		locker:      locker,
		lockTimeout: lockTimeout,
	}
	d.actions = map[string]action{
		// Auth
		"login":                  {authNone, d.login},
		"adminLogin":             {authNone, d.adminLogin},
		"updateAdminCredentials": {authAdmin, d.updateAdminCredentials},

		// Public store front
		"createOrder":       {authNone, d.createOrder},
		"checkOrderStatus":  {authNone, d.checkOrderStatus},
		"getPublicSettings": {authNone, d.getPublicSettings},

		// Operator
		"adminGenerateToken":  {authAdmin, d.adminGenerateToken},
		"adminGetTokens":      {authAdmin, d.adminGetTokens},
		"adminResetDevice":    {authAdmin, d.adminResetDevice},
		"adminSetTokenActive": {authAdmin, d.adminSetTokenActive},
		"adminGetOrders":      {authAdmin, d.adminGetOrders},
		"adminProcessOrder":   {authAdmin, d.adminProcessOrder},
		"adminGetSettings":    {authAdmin, d.adminGetSettings},
		"adminSaveSettings":   {authAdmin, d.adminSaveSettings},

		// POS
		"getStoreData":       {authDevice, d.getStoreData},
		"manageProduct":      {authDevice, d.manageProduct},
		"processTransaction": {authDevice, d.processTransaction},
		"getStoreHistory":    {authDevice, d.getStoreHistory},
		"searchCustomer":     {authDevice, d.searchCustomer},
		"processDebtPayment": {authDevice, d.processDebtPayment},
		"getDebtLog":         {authDevice, d.getDebtLog},
	}
	return d
}

// Handle runs one action. Unknown actions fail before the lock is taken;
// every other action runs while holding it.
func (d *Dispatcher) Handle(ctx context.Context, name string, payload json.RawMessage) (data interface{}, err error) {
	start := time.Now()
	defer func() {
		metrics.RPCRequests.WithLabelValues(metricAction(d, name), statusLabel(err)).Inc()
		metrics.RPCDuration.WithLabelValues(metricAction(d, name)).Observe(time.Since(start).Seconds())
	}()

	act, ok := d.actions[name]
	if !ok {
		return nil, services.ErrUnknownAction
	}

	lockCtx, cancel := context.WithTimeout(ctx, d.lockTimeout)
	defer cancel()

	waitStart := time.Now()
	release, err := d.locker.Acquire(lockCtx)
	metrics.LockWait.Observe(time.Since(waitStart).Seconds())
	if err != nil {
		if errors.Is(err, services.ErrLockTimeout) {
			metrics.LockTimeouts.Inc()
			logging.Warnf("Request lock not acquired - action: %s, waited: %s", name, time.Since(waitStart))
			return nil, services.ErrLockTimeout
		}
		return nil, fmt.Errorf("acquire request lock: %w", err)
	}
	defer release()

	defer func() {
		if r := recover(); r != nil {
			logging.WithFields(log.Fields{"action": name, "panic": r}).
				Errorf("Action panicked\n%s", debug.Stack())
			data, err = nil, services.ErrInternal
		}
	}()

	if err := d.authorize(ctx, act.auth, payload); err != nil {
		return nil, err
	}
	return act.handle(ctx, payload)
}

// authFields are the credentials a guarded action carries in its payload.
type authFields struct {
	AdminSessionToken string `json:"adminSessionToken"`
	Token             string `json:"token"`
	DeviceID          string `json:"deviceId"`
}

func (d *Dispatcher) authorize(ctx context.Context, kind authKind, payload json.RawMessage) error {
	if kind == authNone {
		return nil
	}
	var creds authFields
	if err := decode(payload, &creds); err != nil {
		return err
	}
	switch kind {
	case authAdmin:
		return d.svc.Admin.VerifySession(ctx, creds.AdminSessionToken)
	case authDevice:
		return d.svc.Tokens.Verify(ctx, creds.Token, creds.DeviceID)
	}
	return nil
}

// decode unmarshals a payload. A missing payload decodes as an empty object.
func decode(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return services.ErrBadRequest
	}
	return nil
}

// metricAction keeps label cardinality bounded for unknown action names.
func metricAction(d *Dispatcher, name string) string {
	if _, ok := d.actions[name]; ok {
		return name
	}
	return "unknown"
}

func statusLabel(err error) string {
	if err == nil {
		return "success"
	}
	var se *services.Error
	if errors.As(err, &se) {
		return se.Code
	}
	return services.ErrInternal.Code
}
