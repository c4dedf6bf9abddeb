package infra

import (
	"fmt"
	"time"

	"aquafarm/internal/model"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the postgres connection pool and runs migrations.
func NewDatabase(databaseURL string, env string) (*gorm.DB, error) {
	gormLogLevel := logger.Warn
	if env == "development" {
		gormLogLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(gormLogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info().Msg("database connected and migrated")
	return db, nil
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Farm{},
		&model.Pond{},
		&model.CultureCycle{},
		&model.HarvestRecord{},
		&model.InventoryItem{},
		&model.InventoryMovement{},
		&model.FeedingRecord{},
		&model.BiometryRecord{},
		&model.WaterQualityRecord{},
		&model.MortalityRecord{},
	)
}
