package database

import (
	"context"
	"fmt"
	"time"

	"pos-ledger-api/internal/config"
	"pos-ledger-api/internal/models"
	"pos-ledger-api/pkg/logging"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var (
	DB          *gorm.DB
	RedisClient *redis.Client
)

// InitDatabase initializes database connection
func InitDatabase(cfg *config.Config) error {
	var err error
	if cfg.DatabaseURL == "" {
		// Fallback to SQLite for development
		logging.Infof("Database URL not set, using SQLite at %s", cfg.SQLitePath)
		DB, err = OpenSQLite(cfg.SQLitePath)
	} else {
		DB, err = OpenPostgres(cfg.DatabaseURL)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	logging.Infof("Database connected successfully")

	// Redis is optional; it backs the distributed lock and order throttling.
	if cfg.RedisURL != "" {
		if RedisClient, err = OpenRedis(cfg.RedisURL); err != nil {
			return fmt.Errorf("failed to initialize Redis: %w", err)
		}
	}

	if err := Migrate(DB); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := insertDefaultData(DB); err != nil {
		return fmt.Errorf("failed to insert default data: %w", err)
	}

	return nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(
			logging.Logger,
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	}
}

// OpenSQLite opens a SQLite database. dsn may be a file path or a
// "file:...?mode=memory" URI.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// Writers are serialized anyway; one connection avoids SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// OpenPostgres opens a PostgreSQL database
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

// OpenRedis parses a redis:// URL and checks the connection
func OpenRedis(redisURL string) (*redis.Client, error) {
	logging.Infof("Connecting to Redis: %s", maskRedisURL(redisURL))

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		logging.Errorf("Failed to parse Redis URL: %v", err)
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logging.Errorf("Failed to connect to Redis: %v", err)
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Infof("Redis connected successfully")
	return client, nil
}

// maskRedisURL masks sensitive information in Redis URL for logging
func maskRedisURL(url string) string {
	if len(url) > 20 {
		return url[:10] + "***" + url[len(url)-10:]
	}
	return "***"
}

// Migrate creates or updates every ledger table
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return err
	}
	return backfillCustomerKeys(db)
}

// backfillCustomerKeys fills name_key for customers stored before the column existed
func backfillCustomerKeys(db *gorm.DB) error {
	var customers []models.Customer
	if err := db.Where("name_key = ? OR name_key IS NULL", "").Find(&customers).Error; err != nil {
		return fmt.Errorf("load customers without name key: %w", err)
	}
	for i := range customers {
		key := NormalizeName(customers[i].Name)
		if key == "" {
			continue
		}
		if err := db.Model(&customers[i]).UpdateColumn("name_key", key).Error; err != nil {
			return fmt.Errorf("backfill customer %s: %w", customers[i].ID, err)
		}
	}
	if len(customers) > 0 {
		logging.Infof("Customer name keys backfilled - count: %d", len(customers))
	}
	return nil
}

// insertDefaultData makes sure the recognized setting keys exist
func insertDefaultData(db *gorm.DB) error {
	for _, key := range []string{models.SettingWebhookURL, models.SettingPaymentInfo} {
		row := models.Setting{Key: key}
		// Use FirstOrCreate to avoid duplicates
		if err := db.Where(models.Setting{Key: key}).FirstOrCreate(&row).Error; err != nil {
			return fmt.Errorf("failed to create setting %s: %w", key, err)
		}
	}
	logging.Infof("Default data inserted successfully")
	return nil
}

// GetDB returns database instance
func GetDB() *gorm.DB {
	return DB
}

// GetRedis returns Redis client, nil when Redis is not configured
func GetRedis() *redis.Client {
	return RedisClient
}

// CloseDatabase closes database connections
func CloseDatabase() error {
	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logging.Errorf("Failed to close database: %v", err)
			}
		}
	}

	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logging.Errorf("Failed to close Redis: %v", err)
		}
	}

	return nil
}
