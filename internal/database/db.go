package database

import (
	"fmt"

	"lifebee/internal/config"
	"lifebee/internal/model"
	"lifebee/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewConnection initializes a new connection pool using GORM. The API process runs Migrate
// afterwards; the dispatcher only needs the pool.
func NewConnection(cfg config.DatabaseConfig, log logger.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)

	log.Debugf("Database pool configured: max_open=%d max_idle=%d", cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// Migrate creates or updates every table plus the indexes AutoMigrate cannot express
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.ServiceRequest{},
		&model.ServiceOffer{},
		&model.ServiceProgress{},
		&model.PaymentReference{},
		&model.Transaction{},
		&model.ServiceReview{},
		&model.OutboxEvent{},
		&model.Notification{},
		&model.AuditLog{},
	)
	if err != nil {
		return err
	}

	// A request may hold at most one offer in the accepted family
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_service_offers_one_accepted
		ON service_offers (service_request_id)
		WHERE status IN ('accepted', 'paid', 'completed')`).Error; err != nil {
		return fmt.Errorf("create accepted offer index: %w", err)
	}

	// One live offer per professional per request
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_service_offers_one_pending
		ON service_offers (service_request_id, professional_id)
		WHERE status = 'pending'`).Error; err != nil {
		return fmt.Errorf("create pending offer index: %w", err)
	}

	return nil
}
