package database

import (
	"fmt"
	log2 "log"
	"os"
	"time"

	"github.com/dhawton/log4g"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var MaxAttempts = 10
var DelayBetweenAttempts = time.Minute * 1
var log = log4g.Category("db")

type Config struct {
	Username string
	Password string
	Hostname string
	Port     string
	Database string
}

// Connect opens the MySQL database, retrying up to MaxAttempts times, and
// migrates the schema.
func Connect(cfg Config) (*Store, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC", cfg.Username, cfg.Password, cfg.Hostname, cfg.Port, cfg.Database)
	newLogger := logger.New(
		log2.New(os.Stdout, "\r\n", log2.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             time.Second,   // Slow SQL threshold
			LogLevel:                  logger.Silent, // Log level
			IgnoreRecordNotFoundError: true,          // Ignore ErrRecordNotFound error for logger
			Colorful:                  false,         // Disable color
		},
	)

	var db *gorm.DB
	var err error
	for attempt := 1; ; attempt++ {
		db, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
			Logger: newLogger,
		})
		if err == nil {
			break
		}

		log.Error("Error connecting to database: " + err.Error())
		if attempt >= MaxAttempts {
			return nil, fmt.Errorf("max attempts reached connecting to database: %w", err)
		}
		log.Info(fmt.Sprintf("Attempt %d/%d Failed. Waiting %s before trying again...", attempt, MaxAttempts, DelayBetweenAttempts.String()))
		time.Sleep(DelayBetweenAttempts)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(10)

	return Open(db)
}

// Open wraps an existing gorm handle and migrates the schema.
func Open(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&PilotOnline{}, &AtcOnline{}, &AtisOnline{}, &ControllerHours{}, &Pirep{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
