package mysql

import (
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options holds the DSN and the pool limits. Zero limits take the defaults.
type Options struct {
	DSN     string
	MaxOpen int
	MaxIdle int
	MaxLife time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxOpen <= 0 {
		o.MaxOpen = 50
	}
	if o.MaxIdle <= 0 || o.MaxIdle > o.MaxOpen {
		o.MaxIdle = min(10, o.MaxOpen)
	}
	if o.MaxLife <= 0 {
		o.MaxLife = time.Hour
	}
	return o
}

// Open connects to MySQL. Indexed string columns are capped at 191
// characters so utf8mb4 keys fit the index limit.
func Open(o Options) (*gorm.DB, error) {
	o = o.withDefaults()
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:               o.DSN,
		DefaultStringSize: 191,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(o.MaxOpen)
	sqlDB.SetMaxIdleConns(o.MaxIdle)
	sqlDB.SetConnMaxLifetime(o.MaxLife)
	return db, nil
}
