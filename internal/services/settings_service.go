package services

import (
	"context"
	"errors"
	"fmt"

	"pos-ledger-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPaymentInfo is shown to stores before the operator saves payment details.
const DefaultPaymentInfo = "Contact Admin"

// Settings is the operator-editable configuration
type Settings struct {
	WebhookURL  string `json:"webhookUrl"`
	PaymentInfo string `json:"paymentInfo"`
}

// PublicSettings is the subset shown on the purchase page
type PublicSettings struct {
	PaymentInfo string `json:"paymentInfo"`
}

type SettingsService struct {
	db *gorm.DB
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

// Get returns both settings, empty when unset
func (s *SettingsService) Get(ctx context.Context) (*Settings, error) {
	webhookURL, err := s.value(ctx, models.SettingWebhookURL)
	if err != nil {
		return nil, err
	}
	paymentInfo, err := s.value(ctx, models.SettingPaymentInfo)
	if err != nil {
		return nil, err
	}
	return &Settings{WebhookURL: webhookURL, PaymentInfo: paymentInfo}, nil
}

// Save replaces both settings
func (s *SettingsService) Save(ctx context.Context, settings Settings) error {
	rows := []models.Setting{
		{Key: models.SettingWebhookURL, Value: settings.WebhookURL},
		{Key: models.SettingPaymentInfo, Value: settings.PaymentInfo},
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Public returns the payment instructions, defaulting to DefaultPaymentInfo
func (s *SettingsService) Public(ctx context.Context) (*PublicSettings, error) {
	paymentInfo, err := s.value(ctx, models.SettingPaymentInfo)
	if err != nil {
		return nil, err
	}
	if paymentInfo == "" {
		paymentInfo = DefaultPaymentInfo
	}
	return &PublicSettings{PaymentInfo: paymentInfo}, nil
}

// WebhookURL returns the configured webhook, or "" when none is set
func (s *SettingsService) WebhookURL(ctx context.Context) (string, error) {
	return s.value(ctx, models.SettingWebhookURL)
}

func (s *SettingsService) value(ctx context.Context, key string) (string, error) {
	var setting models.Setting
	err := s.db.WithContext(ctx).Where(&models.Setting{Key: key}).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("load setting %s: %w", key, err)
	}
	return setting.Value, nil
}
