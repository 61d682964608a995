package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"pos-ledger-api/internal/database"
	"pos-ledger-api/internal/models"
	"pos-ledger-api/pkg/logging"

	"gorm.io/gorm"
)

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// TokenService mints licence tokens and enforces device binding
type TokenService struct {
	db     *gorm.DB
	prefix string
	loc    *time.Location
	now    func() time.Time
}

// NewTokenService creates a token service. Codes look like PREFIX-XXXX-XXXX
// and expiries are computed on the calendar of loc.
func NewTokenService(db *gorm.DB, prefix string, loc *time.Location) *TokenService {
	if loc == nil {
		loc = time.Local
	}
	return &TokenService{
		db:     db,
		prefix: prefix,
		loc:    loc,
		now:    time.Now,
	}
}

// LoginResult is returned to a device that unlocked its workspace
type LoginResult struct {
	StoreName string    `json:"storeName"`
	Token     string    `json:"token"`
	DeviceID  string    `json:"deviceId"`
	Expiry    time.Time `json:"expiry"`
}

// GenerateCode draws 8 characters uniformly from A-Z0-9.
// Codes are not checked against existing tokens; the unique index on
// token.code rejects the (unlikely) collision.
func (s *TokenService) GenerateCode() (string, error) {
	max := big.NewInt(int64(len(tokenAlphabet)))
	b := make([]byte, 8)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = tokenAlphabet[n.Int64()]
	}
	return fmt.Sprintf("%s-%s-%s", s.prefix, b[:4], b[4:]), nil
}

// Mint issues a new active, unbound token
func (s *TokenService) Mint(ctx context.Context, storeName, duration string) (*models.Token, error) {
	storeName = strings.TrimSpace(storeName)
	if storeName == "" || strings.TrimSpace(duration) == "" {
		return nil, ErrMissingFields
	}
	plan, ok := models.ParsePlan(duration)
	if !ok {
		return nil, ErrInvalidPlan
	}
	return s.mint(s.db.WithContext(ctx), storeName, plan)
}

// mint persists a token using tx so order approval can share its transaction.
func (s *TokenService) mint(tx *gorm.DB, storeName string, plan models.Plan) (*models.Token, error) {
	code, err := s.GenerateCode()
	if err != nil {
		return nil, fmt.Errorf("generate token code: %w", err)
	}

	token := &models.Token{
		Code:      code,
		StoreName: storeName,
		Duration:  plan,
		Expiry:    plan.ExpiryFrom(s.now().In(s.loc)),
		IsActive:  true,
	}
	if err := tx.Create(token).Error; err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	logging.Infof("Token minted - token: %s, store: %s, plan: %s, expiry: %s",
		token.Code, token.StoreName, plan, token.Expiry.Format(time.RFC3339))
	return token, nil
}

// AuthenticateDevice unlocks a token for deviceID. An unbound token is bound
// to the first device that logs in; afterwards only that device is accepted
// until an operator resets the lock.
func (s *TokenService) AuthenticateDevice(ctx context.Context, code, deviceID string) (*LoginResult, error) {
	code = normalizeCode(code)
	if code == "" || deviceID == "" {
		return nil, ErrMissingFields
	}

	var result *LoginResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		token, err := database.GetTokenForUpdate(tx, code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidToken
			}
			return fmt.Errorf("load token: %w", err)
		}

		if !token.IsActive {
			return ErrTokenInactive
		}
		if s.now().After(token.Expiry) {
			return ErrTokenExpired
		}

		if !token.IsBound() {
			// Conditional update so a concurrent binder cannot be overwritten.
			res := tx.Model(&models.Token{}).
				Where("id = ? AND bound_device_id = ?", token.ID, "").
				Update("bound_device_id", deviceID)
			if res.Error != nil {
				return fmt.Errorf("bind device: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return ErrDeviceMismatch
			}
			logging.Infof("Binding device to token - token: %s, store: %s", token.Code, token.StoreName)
		} else if token.BoundDeviceID != deviceID {
			logging.Warnf("Device mismatch detected - token: %s, store: %s", token.Code, token.StoreName)
			return ErrDeviceMismatch
		}

		result = &LoginResult{
			StoreName: token.StoreName,
			Token:     token.Code,
			DeviceID:  deviceID,
			Expiry:    token.Expiry,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Verify gates ledger operations: the token must exist, be bound to exactly
// deviceID and be active. A token that was never bound always fails.
func (s *TokenService) Verify(ctx context.Context, code, deviceID string) error {
	token, err := s.find(ctx, code, ErrInvalidToken)
	if err != nil {
		return err
	}
	if !token.IsBound() || token.BoundDeviceID != deviceID {
		return ErrDeviceMismatch
	}
	if !token.IsActive {
		return ErrTokenInactive
	}
	return nil
}

// ResetDeviceLock clears the binding so the next login may claim the token
func (s *TokenService) ResetDeviceLock(ctx context.Context, code string) error {
	token, err := s.find(ctx, code, ErrTokenNotFound)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(token).Update("bound_device_id", "").Error; err != nil {
		return fmt.Errorf("reset device lock: %w", err)
	}
	logging.Infof("Device lock reset - token: %s, store: %s", token.Code, token.StoreName)
	return nil
}

// SetActive enables or disables a token
func (s *TokenService) SetActive(ctx context.Context, code string, active bool) error {
	token, err := s.find(ctx, code, ErrTokenNotFound)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(token).Update("is_active", active).Error; err != nil {
		return fmt.Errorf("update token: %w", err)
	}
	logging.Infof("Token active flag changed - token: %s, active: %t", token.Code, active)
	return nil
}

// List returns every token in issue order
func (s *TokenService) List(ctx context.Context) ([]models.Token, error) {
	var tokens []models.Token
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&tokens).Error; err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	return tokens, nil
}

func (s *TokenService) find(ctx context.Context, code string, notFound error) (*models.Token, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, notFound
	}
	var token models.Token
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound
		}
		return nil, fmt.Errorf("load token: %w", err)
	}
	return &token, nil
}

// normalizeCode accepts codes typed with stray spaces or lower case.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
