package db

import (
	"errors"
	"fmt"
	"log"
	"time"

	"echofm/config"
	"echofm/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SchemaVersion tracks the persisted schema shape. The version integer is
// bumped whenever a collection's shape changes; InitDB runs the one-time
// structural migration on first open after a bump.
type SchemaVersion struct {
	ID        uint `gorm:"primaryKey"`
	Version   int
	AppliedAt time.Time
}

// CurrentSchemaVersion is the shape the code expects.
const CurrentSchemaVersion = 1

// GormDB is the GORM handle used for schema bootstrap and migration. The
// repository layer keeps using the raw *sql.DB.
var GormDB *gorm.DB

// ConnectGormDB establishes the GORM connection, independent of ConnectDB.
func ConnectGormDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	GormDB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect database with GORM: %w", err)
	}

	sqlDB, err := GormDB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Successfully connected to the database with GORM.")
	return nil
}

// CloseGormDB closes the GORM connection.
func CloseGormDB() error {
	if GormDB == nil {
		return nil
	}

	sqlDB, err := GormDB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// InitDB migrates the two persisted collections and applies any pending
// structural migration exactly once per version bump.
func InitDB() error {
	if GormDB == nil {
		return fmt.Errorf("GORM database not initialized")
	}

	if err := GormDB.AutoMigrate(&model.Song{}, &model.Favorite{}, &SchemaVersion{}); err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}

	var current SchemaVersion
	err := GormDB.Order("version DESC").First(&current).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		current.Version = 0
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if current.Version < CurrentSchemaVersion {
		if err := migrateSchema(current.Version); err != nil {
			return fmt.Errorf("schema migration from v%d failed: %w", current.Version, err)
		}
		record := SchemaVersion{Version: CurrentSchemaVersion, AppliedAt: time.Now()}
		if err := GormDB.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		log.Printf("Schema migrated to version %d.", CurrentSchemaVersion)
	}

	return nil
}

// migrateSchema applies structural migrations between versions. Version 1 is
// the initial shape, so there is nothing to do beyond AutoMigrate yet; future
// bumps add their steps here.
func migrateSchema(from int) error {
	switch from {
	case 0:
		return nil
	default:
		return nil
	}
}
