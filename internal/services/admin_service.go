package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pos-ledger-api/internal/models"
	"pos-ledger-api/internal/security"
	"pos-ledger-api/pkg/logging"

	"gorm.io/gorm"
)

// AdminService authenticates the operator and issues session tokens
type AdminService struct {
	db              *gorm.DB
	secret          string
	ttl             time.Duration
	defaultUsername string
	defaultPassword string
	bcryptCost      int
	now             func() time.Time
}

// AdminOptions configures an AdminService
type AdminOptions struct {
	Secret          string
	SessionTTL      time.Duration
	DefaultUsername string
	DefaultPassword string
	BcryptCost      int
}

func NewAdminService(db *gorm.DB, opts AdminOptions) *AdminService {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 12 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = security.DefaultBcryptCost
	}
	return &AdminService{
		db:              db,
		secret:          opts.Secret,
		ttl:             opts.SessionTTL,
		defaultUsername: opts.DefaultUsername,
		defaultPassword: opts.DefaultPassword,
		bcryptCost:      opts.BcryptCost,
		now:             time.Now,
	}
}

// AdminSession is returned after a successful operator login
type AdminSession struct {
	SessionToken string    `json:"token"`
	Username     string    `json:"username"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Login checks the operator pair. The first login on an empty store seeds
// the default credentials.
func (s *AdminService) Login(ctx context.Context, username, password string) (*AdminSession, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	cred, err := s.credential(ctx)
	if err != nil {
		return nil, err
	}
	if cred.Username != username || !security.CheckPassword(cred.PasswordHash, password) {
		logging.Warnf("Admin login failed - username: %s", username)
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	token, err := security.GenerateAdminSession(s.secret, cred.Username, now, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("sign admin session: %w", err)
	}
	logging.Infof("Admin logged in - username: %s", cred.Username)
	return &AdminSession{SessionToken: token, Username: cred.Username, ExpiresAt: now.Add(s.ttl)}, nil
}

// VerifySession accepts a session that is signed, unexpired and issued to
// the username currently on record.
func (s *AdminService) VerifySession(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return ErrUnauthorizedAdmin
	}
	claims, err := security.ParseAdminSession(s.secret, sessionToken, s.now())
	if err != nil {
		return ErrUnauthorizedAdmin
	}

	var cred models.AdminCredential
	if err := s.db.WithContext(ctx).Order("id ASC").First(&cred).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnauthorizedAdmin
		}
		return fmt.Errorf("load admin credential: %w", err)
	}
	if cred.Username != claims.Username {
		return ErrUnauthorizedAdmin
	}
	return nil
}

// ChangeCredentials replaces the operator pair. Sessions issued to another
// username stop verifying.
func (s *AdminService) ChangeCredentials(ctx context.Context, sessionToken, newUsername, newPassword string) error {
	if err := s.VerifySession(ctx, sessionToken); err != nil {
		return err
	}
	newUsername = strings.TrimSpace(newUsername)
	if newUsername == "" || newPassword == "" {
		return ErrMissingFields
	}

	hash, err := security.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.AdminCredential{}).Error; err != nil {
			return fmt.Errorf("delete admin credential: %w", err)
		}
		if err := tx.Create(&models.AdminCredential{Username: newUsername, PasswordHash: hash}).Error; err != nil {
			return fmt.Errorf("create admin credential: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logging.Infof("Admin credentials updated - username: %s", newUsername)
	return nil
}

// credential returns the stored pair, seeding the default when none exists.
func (s *AdminService) credential(ctx context.Context) (*models.AdminCredential, error) {
	var cred models.AdminCredential
	err := s.db.WithContext(ctx).Order("id ASC").First(&cred).Error
	if err == nil {
		return &cred, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load admin credential: %w", err)
	}

	hash, err := security.HashPassword(s.defaultPassword, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash default password: %w", err)
	}
	cred = models.AdminCredential{Username: s.defaultUsername, PasswordHash: hash}
	if err := s.db.WithContext(ctx).Create(&cred).Error; err != nil {
		return nil, fmt.Errorf("seed admin credential: %w", err)
	}
	logging.Infof("Seeded default admin credential - username: %s", cred.Username)
	return &cred, nil
}
