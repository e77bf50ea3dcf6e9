package models

import (
	"fmt"

	"github.com/teampulse-io/teampulse/backend/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.DatabaseConfig) error {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	DB = db
	return nil
}

func AutoMigrate() error {
	return DB.AutoMigrate(
		&User{},
		&TeamMember{},
		&Ticket{},
		&Commit{},
		&PullRequest{},
		&StatusTransition{},
		&AccountabilityFlag{},
		&EngineerPattern{},
		&AutomationConfig{},
		&AutomationRun{},
		&AutomationAction{},
		&IMBot{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

// SeedDefaultData creates the automation settings singleton on first run.
// The seed values come from the file config; afterwards the row is owned
// by the operator API.
func SeedDefaultData(seed *config.AutomationConfig) error {
	var count int64
	DB.Model(&AutomationConfig{}).Count(&count)
	if count > 0 {
		return nil
	}

	interval := seed.CheckIntervalMinutes
	if interval <= 0 {
		interval = 60
	}
	threshold := seed.AutoApproveThreshold
	if threshold < 0 || threshold > 1 {
		threshold = 0.8
	}

	cfg := AutomationConfig{
		ID:                   1,
		Enabled:              seed.Enabled,
		CheckIntervalMinutes: interval,
		AutoApproveThreshold: threshold,
		NotifyOnNewActions:   seed.NotifyOnNewActions,
	}
	return DB.Create(&cfg).Error
}
