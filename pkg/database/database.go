package database

import (
	"fmt"
	"study_buddy_backend/internal/config"
	"study_buddy_backend/internal/model"
	appLogger "study_buddy_backend/pkg/logger"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Dialector 根据配置的驱动构造 gorm 方言
func Dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=UTC",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
			cfg.Host,
			cfg.User,
			cfg.Password,
			cfg.DBName,
			cfg.Port,
			cfg.SSLMode,
		)
		return postgres.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := Dialector(&cfg.Database)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Warn
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info
	}

	var db *gorm.DB
	connect := func() error {
		conn, err := gorm.Open(dialector, &gorm.Config{
			Logger:  logger.Default.LogMode(logLevel),
			NowFunc: func() time.Time { return time.Now().UTC() },
		})
		if err != nil {
			return err
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.Ping(); err != nil {
			return err
		}
		db = conn
		return nil
	}

	err = backoff.RetryNotify(
		connect,
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), cfg.Database.MaxRetries),
		func(err error, d time.Duration) {
			appLogger.Log.Warn("Database connection attempt failed",
				zap.String("driver", cfg.Database.Driver),
				zap.Error(err),
				zap.Duration("backoff", d))
		},
	)
	if err != nil {
		return nil, fmt.Errorf("connect %s after %d retries: %w", cfg.Database.Driver, cfg.Database.MaxRetries, err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	appLogger.Log.Info("Database connection established", zap.String("driver", cfg.Database.Driver))
	return db, nil
}

// Migrate 建表并在徽章表为空时写入默认目录
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.UserActivity{},
		&model.Badge{},
		&model.UserBadge{},
		&model.UserStreak{},
	)
	if err != nil {
		return err
	}
	appLogger.Log.Info("Database migration completed")

	seeded, err := seedBadges(db)
	if err != nil {
		return fmt.Errorf("seed badges: %w", err)
	}
	if seeded > 0 {
		appLogger.Log.Info("Default badges seeded", zap.Int("count", seeded))
	}
	return nil
}
