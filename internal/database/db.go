package database

import (
	"fmt"

	"mareero-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres and migrates the record and audit tables.
func Open(dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := Migrate(db, log); err != nil {
		return nil, err
	}
	log.Info("database connected, migration done")
	return db, nil
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	// Tables created before rows carried a position are ordered by id.
	// Backfill before AutoMigrate, which cannot add a NOT NULL column to a
	// populated table.
	m := db.Migrator()
	if m.HasTable(&models.RecordRow{}) && !m.HasColumn(&models.RecordRow{}, "position") {
		log.Info("adding inventory_records.position")
		if err := db.Exec("ALTER TABLE inventory_records ADD COLUMN position BIGINT NOT NULL DEFAULT 0").Error; err != nil {
			return fmt.Errorf("add position column: %w", err)
		}
		res := db.Exec("UPDATE inventory_records SET position = id")
		if res.Error != nil {
			return fmt.Errorf("backfill position: %w", res.Error)
		}
		log.Info("inventory_records.position backfilled", zap.Int64("rows", res.RowsAffected))
	}

	if err := db.AutoMigrate(&models.RecordRow{}, &models.AuditLog{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
